package gpu

import (
	"fmt"
	"math"
)

// ceilDiv returns ceil(n / d) for positive d.
func ceilDiv(n, d int) int {
	return (n + d - 1) / d
}

// roundMicro rounds seconds to 6 decimal places.
func roundMicro(seconds float64) float64 {
	return math.Round(seconds*1e6) / 1e6
}

// checkNativeDims rejects shapes whose dimensions do not fit the C int the
// native kernel takes.
func checkNativeDims(rows, cols int) error {
	if rows <= 0 || cols <= 0 {
		return newComputeError(ErrTypeLaunch, "MatrixAdd", fmt.Sprintf("invalid dimensions %dx%d", rows, cols), nil)
	}
	if rows > math.MaxInt32 || cols > math.MaxInt32 {
		return newComputeError(ErrTypeLaunch, "MatrixAdd", fmt.Sprintf("dimensions %dx%d exceed the native kernel limit", rows, cols), nil)
	}
	return nil
}
