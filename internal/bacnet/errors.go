package bacnet

import (
	"errors"
	"fmt"
)

// Domain errors for the BACnet protocol surface.
var (
	// ErrInvalidObjectID is returned when an object identifier string
	// cannot be parsed.
	ErrInvalidObjectID = errors.New("bacnet: invalid object identifier")

	// ErrInvalidRequest is returned when a request cannot be constructed
	// from the given parameters (empty object set, missing address, ...).
	// Construction failures are always surfaced, never swallowed.
	ErrInvalidRequest = errors.New("bacnet: invalid request")

	// ErrUnknownDataType is returned when a property value cannot be
	// decoded because its datatype is unknown or the raw value does not
	// match it.
	ErrUnknownDataType = errors.New("bacnet: unknown datatype")

	// ErrNotSupported is returned when the underlying protocol library
	// does not implement the requested service.
	ErrNotSupported = errors.New("bacnet: service not supported")

	// ErrTransportClosed is returned for requests issued after Close.
	ErrTransportClosed = errors.New("bacnet: transport closed")
)

// ErrorClass classifies a failed request the way the protocol reports it,
// so retry policy can branch without inspecting messages.
type ErrorClass uint8

// Request failure classes.
const (
	ClassError ErrorClass = iota
	ClassReject
	ClassAbort
	ClassTimeout
)

// String returns the lowercase class name.
func (c ErrorClass) String() string {
	switch c {
	case ClassError:
		return "error"
	case ClassReject:
		return "reject"
	case ClassAbort:
		return "abort"
	case ClassTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// RequestError is the typed failure of a submitted request. It carries the
// protocol classification plus the underlying cause.
type RequestError struct {
	Class ErrorClass
	Err   error
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("bacnet: request failed (%s)", e.Class)
	}
	return fmt.Sprintf("bacnet: request failed (%s): %v", e.Class, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is / errors.As.
func (e *RequestError) Unwrap() error {
	return e.Err
}

// NewRequestError wraps err with a protocol classification.
func NewRequestError(class ErrorClass, err error) *RequestError {
	return &RequestError{Class: class, Err: err}
}

// ClassOf extracts the protocol classification from an error chain.
// Errors without a RequestError default to ClassError.
func ClassOf(err error) ErrorClass {
	var re *RequestError
	if errors.As(err, &re) {
		return re.Class
	}
	return ClassError
}
