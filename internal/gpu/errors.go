package gpu

import "fmt"

// ErrorType represents categories of compute errors
type ErrorType int

const (
	// ErrTypeMemory is a device allocation or release failure
	ErrTypeMemory ErrorType = iota
	// ErrTypeTransfer is a host/device copy failure
	ErrTypeTransfer
	// ErrTypeLaunch is an invalid kernel configuration
	ErrTypeLaunch
	// ErrTypeExecution is a failure while the kernel was running
	ErrTypeExecution
	// ErrTypeDevice is a backend or driver failure
	ErrTypeDevice
	// ErrTypeVerification is a result that failed the host-side check
	ErrTypeVerification
)

func (t ErrorType) String() string {
	switch t {
	case ErrTypeMemory:
		return "memory"
	case ErrTypeTransfer:
		return "transfer"
	case ErrTypeLaunch:
		return "launch"
	case ErrTypeExecution:
		return "execution"
	case ErrTypeDevice:
		return "device"
	case ErrTypeVerification:
		return "verification"
	default:
		return fmt.Sprintf("unknown(%d)", int(t))
	}
}

// ComputeError is a failure of the device pipeline. It is never retried.
type ComputeError struct {
	Type    ErrorType
	Op      string
	Message string
	Err     error
}

func (e *ComputeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s error in %s: %s: %v", e.Type, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s error in %s: %s", e.Type, e.Op, e.Message)
}

func (e *ComputeError) Unwrap() error {
	return e.Err
}

func newComputeError(t ErrorType, op, message string, err error) error {
	return &ComputeError{Type: t, Op: op, Message: message, Err: err}
}
