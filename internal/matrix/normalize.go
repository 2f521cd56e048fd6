package matrix

import "github.com/x448/float16"

type number interface {
	~int8 | ~int16 | ~int32 | ~int64 |
		~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

func toFloat32[T number](in []T) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(v)
	}
	return out
}

// Normalize converts raw to a row-major float32 matrix. float32 row-major data
// is adopted without copying; everything else is converted element by element.
func Normalize(raw *RawArray) *Matrix {
	var data []float32
	switch v := raw.values.(type) {
	case []float32:
		data = v
	case []float64:
		data = toFloat32(v)
	case []int8:
		data = toFloat32(v)
	case []int16:
		data = toFloat32(v)
	case []int32:
		data = toFloat32(v)
	case []int64:
		data = toFloat32(v)
	case []uint8:
		data = toFloat32(v)
	case []uint16:
		data = toFloat32(v)
	case []uint32:
		data = toFloat32(v)
	case []uint64:
		data = toFloat32(v)
	case []float16.Float16:
		data = make([]float32, len(v))
		for i, h := range v {
			data[i] = h.Float32()
		}
	case []bool:
		data = make([]float32, len(v))
		for i, b := range v {
			if b {
				data[i] = 1
			}
		}
	default:
		data = make([]float32, raw.Rows*raw.Cols)
	}

	if raw.Fortran {
		data = transpose(data, raw.Rows, raw.Cols)
	}

	return &Matrix{Rows: raw.Rows, Cols: raw.Cols, Data: data}
}

// transpose reorders column-major data into row-major order.
func transpose(colMajor []float32, rows, cols int) []float32 {
	out := make([]float32, len(colMajor))
	for j := 0; j < cols; j++ {
		for i := 0; i < rows; i++ {
			out[i*cols+j] = colMajor[j*rows+i]
		}
	}
	return out
}
