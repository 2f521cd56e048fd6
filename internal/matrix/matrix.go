// Package matrix decodes uploaded NumPy containers into float32 matrices and
// checks that two operands can be added element-wise.
package matrix

import "fmt"

// Shape is the (rows, cols) pair describing a matrix.
type Shape struct {
	Rows int
	Cols int
}

// String renders the shape the way NumPy prints tuples, e.g. "(100, 100)".
func (s Shape) String() string {
	return fmt.Sprintf("(%d, %d)", s.Rows, s.Cols)
}

// Elements returns rows*cols.
func (s Shape) Elements() int {
	return s.Rows * s.Cols
}

// Matrix is a dense row-major matrix of float32 elements.
type Matrix struct {
	Rows int
	Cols int
	Data []float32
}

// New wraps data as a rows×cols matrix. data is not copied.
func New(rows, cols int, data []float32) (*Matrix, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("matrix dimensions must be positive, got %dx%d", rows, cols)
	}
	if len(data) != rows*cols {
		return nil, fmt.Errorf("matrix data size mismatch: expected %d, got %d", rows*cols, len(data))
	}
	return &Matrix{Rows: rows, Cols: cols, Data: data}, nil
}

// Filled returns a rows×cols matrix with every element set to v.
func Filled(rows, cols int, v float32) *Matrix {
	data := make([]float32, rows*cols)
	for i := range data {
		data[i] = v
	}
	return &Matrix{Rows: rows, Cols: cols, Data: data}
}

// Shape returns the matrix dimensions.
func (m *Matrix) Shape() Shape {
	return Shape{Rows: m.Rows, Cols: m.Cols}
}

// At returns the element at row i, column j.
func (m *Matrix) At(i, j int) float32 {
	return m.Data[i*m.Cols+j]
}

// Set stores v at row i, column j.
func (m *Matrix) Set(i, j int, v float32) {
	m.Data[i*m.Cols+j] = v
}

func (m *Matrix) wellFormed() error {
	if m == nil {
		return fmt.Errorf("matrix is nil")
	}
	if m.Rows <= 0 || m.Cols <= 0 {
		return fmt.Errorf("matrix dimensions must be positive, got %dx%d", m.Rows, m.Cols)
	}
	if len(m.Data) != m.Rows*m.Cols {
		return fmt.Errorf("matrix data size mismatch: expected %d, got %d", m.Rows*m.Cols, len(m.Data))
	}
	return nil
}
