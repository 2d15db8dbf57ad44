package bacnet

import "errors"

// Domain errors for the BACnet bridge package.
var (
	// ErrRequestConstruction is returned when a request cannot be built
	// from the given parameters (no objects, no properties, unknown
	// address). Construction failures are surfaced to the caller, never
	// swallowed into the completion path.
	ErrRequestConstruction = errors.New("bacnet bridge: request construction failed")

	// ErrUnknownDevice is returned when an operation names a device or
	// address the registry has never seen.
	ErrUnknownDevice = errors.New("bacnet bridge: unknown device")

	// ErrBridgeStopped is returned for operations submitted after Stop.
	ErrBridgeStopped = errors.New("bacnet bridge: stopped")
)
