package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthentication means the device rejected the credentials
	ErrAuthentication = errors.New("authentication failed")
	// ErrTimeout means a connect or command exceeded its timeout
	ErrTimeout = errors.New("transport timeout")
	// ErrTransport is a connection-level failure
	ErrTransport = errors.New("transport error")
	// ErrUnsupported means a vendor adapter lacks the requested capability
	ErrUnsupported = errors.New("unsupported operation")
	// ErrPartialBatch means some commands of a batch ran before a failure
	ErrPartialBatch = errors.New("partial batch failure")

	ErrIntervalTooShort = errors.New("monitoring interval too short")
	ErrInvalidRange     = errors.New("invalid address range")
	ErrRangeTooLarge    = errors.New("address range too large")
	ErrNotFound         = errors.New("not found")
	ErrCancelled        = errors.New("cancelled before start")
)

// UnsupportedError reports a capability a vendor family does not provide
type UnsupportedError struct {
	Vendor    VendorFamily
	Operation string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("%s: %s does not support %s", ErrUnsupported, e.Vendor, e.Operation)
}

// Is matches ErrUnsupported
func (e *UnsupportedError) Is(target error) bool {
	return target == ErrUnsupported
}

// Unsupported creates an UnsupportedError
func Unsupported(vendor VendorFamily, operation string) error {
	return &UnsupportedError{Vendor: vendor, Operation: operation}
}

// BatchError reports the command that failed within a batch. Commands before
// Index completed and may have changed the device.
type BatchError struct {
	Device  string
	Index   int
	Command string
	Err     error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("%s on %s: command %d %q failed after %d completed: %v",
		ErrPartialBatch, e.Device, e.Index+1, e.Command, e.Index, e.Err)
}

// Unwrap exposes the underlying cause
func (e *BatchError) Unwrap() error {
	return e.Err
}

// Is matches ErrPartialBatch
func (e *BatchError) Is(target error) bool {
	return target == ErrPartialBatch
}
