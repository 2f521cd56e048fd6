// Package verify checks device results against a host-side reference.
package verify

import (
	"fmt"
	"math"

	"github.com/fxnlabs/matrix-node/internal/matrix"
	"gonum.org/v1/gonum/mat"
)

// DefaultTolerance is used when a non-positive tolerance is given. It covers
// the rounding difference between a float32 device sum and the float64
// reference.
const DefaultTolerance = 1e-6

// MismatchError reports the first element where the result and the reference
// disagree.
type MismatchError struct {
	Row, Col  int
	Got, Want float64
	Tolerance float64
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("element (%d, %d) is %g, expected %g (tolerance %g)", e.Row, e.Col, e.Got, e.Want, e.Tolerance)
}

// VerifySum checks that c equals a + b element-wise within tol, using an
// absolute-or-relative comparison. The reference is rounded to float32 the
// way the device rounds, so overflow to ±Inf and NaN propagation agree.
func VerifySum(a, b, c *matrix.Matrix, tol float64) error {
	if a == nil || b == nil || c == nil {
		return fmt.Errorf("verify: nil matrix")
	}
	if a.Shape() != b.Shape() || a.Shape() != c.Shape() {
		return fmt.Errorf("verify: shapes differ: %s, %s, %s", a.Shape(), b.Shape(), c.Shape())
	}
	if tol <= 0 {
		tol = DefaultTolerance
	}

	want := mat.NewDense(a.Rows, a.Cols, nil)
	want.Add(dense(a), dense(b))
	want.Apply(func(_, _ int, v float64) float64 {
		return float64(float32(v))
	}, want)

	return firstMismatch(dense(c), want, tol)
}

// dense copies m into a float64 gonum matrix.
func dense(m *matrix.Matrix) *mat.Dense {
	data := make([]float64, len(m.Data))
	for i, v := range m.Data {
		data[i] = float64(v)
	}
	return mat.NewDense(m.Rows, m.Cols, data)
}

func firstMismatch(got, want *mat.Dense, tol float64) error {
	rows, cols := got.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			g, w := got.At(i, j), want.At(i, j)
			if !withinAbsOrRel(g, w, tol) {
				return &MismatchError{Row: i, Col: j, Got: g, Want: w, Tolerance: tol}
			}
		}
	}
	return nil
}

// withinAbsOrRel treats equal infinities and a NaN pair as equal.
func withinAbsOrRel(a, b, tol float64) bool {
	if a == b {
		return true
	}
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}
	if math.IsInf(a, 0) || math.IsInf(b, 0) {
		return false
	}
	delta := math.Abs(a - b)
	if delta <= tol {
		return true
	}
	return delta/math.Max(math.Abs(a), math.Abs(b)) <= tol
}
