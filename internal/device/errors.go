package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrDeviceNotFound) {
//	    // handle not found case
//	}
var (
	// ErrDeviceNotFound is returned when a device identifier is not in
	// the registry.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrObjectNotFound is returned when an object identifier is not
	// present on a known device.
	ErrObjectNotFound = errors.New("device: object not found")

	// ErrAddressNotFound is returned when no device is registered at the
	// given transport address.
	ErrAddressNotFound = errors.New("device: address not found")

	// ErrNotADevice is returned when a device-scoped operation is given
	// an identifier that is not a device object.
	ErrNotADevice = errors.New("device: identifier is not a device")
)
