package ec

import "errors"

// Error kinds surfaced by the transport. Callers should match with
// errors.Is rather than comparing backend-specific wrapped text.
var (
	// ErrNotSupported means no usable backend was found on this machine.
	ErrNotSupported = errors.New("ec: no supported backend found")

	// ErrPermissionDenied means a backend exists but the caller can't open it.
	// Distinct from ErrNotSupported because the user can fix this one.
	ErrPermissionDenied = errors.New("ec: permission denied, run as root")

	// ErrIoFailed covers polling timeouts, short reads/writes, and sysfs
	// parse failures.
	ErrIoFailed = errors.New("ec: io operation failed")

	// ErrInvalidAddress means the selected backend has no mapping for the
	// requested register address.
	ErrInvalidAddress = errors.New("ec: address not mapped on this backend")
)
