package matrix

// Pair is an ordered pair of operands with identical shapes. The only way to
// obtain one is Validate.
type Pair struct {
	a *Matrix
	b *Matrix
}

// A returns the first operand.
func (p Pair) A() *Matrix { return p.a }

// B returns the second operand.
func (p Pair) B() *Matrix { return p.b }

// Shape returns the common shape of both operands.
func (p Pair) Shape() Shape { return p.a.Shape() }

// Validate checks that a and b can be added element-wise.
func Validate(a, b *Matrix) (Pair, error) {
	if err := a.wellFormed(); err != nil {
		return Pair{}, &DecodeError{Reason: "invalid first operand", Err: err}
	}
	if err := b.wellFormed(); err != nil {
		return Pair{}, &DecodeError{Reason: "invalid second operand", Err: err}
	}
	if a.Rows != b.Rows || a.Cols != b.Cols {
		return Pair{}, &ShapeMismatchError{A: a.Shape(), B: b.Shape()}
	}
	return Pair{a: a, b: b}, nil
}
