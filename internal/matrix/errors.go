package matrix

import "fmt"

// DecodeError reports an upload that is not a usable NumPy array container.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ShapeMismatchError reports two operands whose shapes differ. A is always the
// shape of the first operand and B the shape of the second.
type ShapeMismatchError struct {
	A Shape
	B Shape
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("Matrix shapes do not match: %s vs %s", e.A, e.B)
}
