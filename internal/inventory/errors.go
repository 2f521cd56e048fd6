package inventory

import "fmt"

// ErrorKind classifies why a device query failed.
type ErrorKind int

const (
	// ToolNotFound means the query utility is not installed or not on PATH.
	ToolNotFound ErrorKind = iota
	// ToolFailed means the utility ran and exited with an error.
	ToolFailed
	// Unparsable means the utility's output did not have the expected shape.
	Unparsable
)

func (k ErrorKind) String() string {
	switch k {
	case ToolNotFound:
		return "tool_not_found"
	case ToolFailed:
		return "tool_failed"
	case Unparsable:
		return "unparsable"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// DeviceQueryError is returned by Querier.Query. Its message is what the HTTP
// layer reports to clients.
type DeviceQueryError struct {
	Kind    ErrorKind
	Command string
	Err     error
}

func (e *DeviceQueryError) Error() string {
	switch e.Kind {
	case ToolNotFound:
		return fmt.Sprintf("%s not found. Is NVIDIA driver installed?", e.Command)
	case ToolFailed:
		return fmt.Sprintf("Failed to query GPU: %v", e.Err)
	default:
		return fmt.Sprintf("Error getting GPU info: %v", e.Err)
	}
}

func (e *DeviceQueryError) Unwrap() error {
	return e.Err
}
