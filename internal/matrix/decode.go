package matrix

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"

	"github.com/sbinet/npyio/npz"
)

// RawArray is the first array of a decoded container, still in its source
// element type.
type RawArray struct {
	Name    string
	DType   string
	Rows    int
	Cols    int
	Fortran bool

	values any
}

// Shape returns the array dimensions.
func (r *RawArray) Shape() Shape {
	return Shape{Rows: r.Rows, Cols: r.Cols}
}

// Decode parses a NumPy .npz payload and returns its first array in archive
// order, the same array NumPy exposes as data[data.files[0]].
func Decode(payload []byte) (*RawArray, error) {
	if len(payload) == 0 {
		return nil, &DecodeError{Reason: "empty payload"}
	}

	member, err := firstMember(payload)
	if err != nil {
		return nil, err
	}

	zr, err := npz.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		return nil, &DecodeError{Reason: "payload is not a valid .npz container", Err: err}
	}

	key, ok := resolveKey(zr.Keys(), member)
	if !ok {
		return nil, &DecodeError{Reason: fmt.Sprintf("array %q not found in container", member)}
	}

	hdr := zr.Header(key)
	if hdr == nil {
		return nil, &DecodeError{Reason: fmt.Sprintf("array %q has no header", key)}
	}

	shape := hdr.Descr.Shape
	if len(shape) != 2 {
		return nil, &DecodeError{Reason: fmt.Sprintf("array %q must be 2-dimensional, got %d dimension(s)", key, len(shape))}
	}
	if shape[0] <= 0 || shape[1] <= 0 {
		return nil, &DecodeError{Reason: fmt.Sprintf("array %q has an empty dimension: (%d, %d)", key, shape[0], shape[1])}
	}

	raw := &RawArray{
		Name:    strings.TrimSuffix(key, ".npy"),
		DType:   hdr.Descr.Type,
		Rows:    shape[0],
		Cols:    shape[1],
		Fortran: hdr.Descr.Fortran,
	}

	var values any
	var n int
	if isHalf(raw.DType) {
		half, err := readHalf(payload, member, raw.DType)
		if err != nil {
			return nil, err
		}
		values, n = half, len(half)
	} else {
		values, n, err = readValues(zr, key, raw.DType)
		if err != nil {
			return nil, err
		}
	}
	if n != raw.Rows*raw.Cols {
		return nil, &DecodeError{Reason: fmt.Sprintf("array %q holds %d elements, expected %d", key, n, raw.Rows*raw.Cols)}
	}
	raw.values = values

	return raw, nil
}

// DecodeMatrix decodes payload and normalizes the result to float32.
func DecodeMatrix(payload []byte) (*Matrix, error) {
	raw, err := Decode(payload)
	if err != nil {
		return nil, err
	}
	return Normalize(raw), nil
}

func firstMember(payload []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		return "", &DecodeError{Reason: "payload is not a valid .npz container", Err: err}
	}
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, ".npy") {
			return f.Name, nil
		}
	}
	return "", &DecodeError{Reason: "container holds no arrays"}
}

func isHalf(dtype string) bool {
	return dtype == "<f2" || dtype == ">f2" || dtype == "=f2" || dtype == "f2"
}

func resolveKey(keys []string, member string) (string, bool) {
	trimmed := strings.TrimSuffix(member, ".npy")
	for _, k := range keys {
		if k == member || k == trimmed {
			return k, true
		}
	}
	return "", false
}

func readValues(zr *npz.Reader, key, dtype string) (any, int, error) {
	if len(dtype) < 2 {
		return nil, 0, &DecodeError{Reason: fmt.Sprintf("array %q has unsupported dtype %q", key, dtype)}
	}
	// Strip the byte-order mark ('<', '>', '|', '=') if present.
	kind := dtype
	switch kind[0] {
	case '<', '>', '|', '=':
		kind = kind[1:]
	}

	read := func(ptr any) error {
		if err := zr.Read(key, ptr); err != nil {
			return &DecodeError{Reason: fmt.Sprintf("could not read array %q", key), Err: err}
		}
		return nil
	}

	switch kind {
	case "f4":
		var v []float32
		err := read(&v)
		return v, len(v), err
	case "f8":
		var v []float64
		err := read(&v)
		return v, len(v), err
	case "i1":
		var v []int8
		err := read(&v)
		return v, len(v), err
	case "i2":
		var v []int16
		err := read(&v)
		return v, len(v), err
	case "i4":
		var v []int32
		err := read(&v)
		return v, len(v), err
	case "i8":
		var v []int64
		err := read(&v)
		return v, len(v), err
	case "u1":
		var v []uint8
		err := read(&v)
		return v, len(v), err
	case "u2":
		var v []uint16
		err := read(&v)
		return v, len(v), err
	case "u4":
		var v []uint32
		err := read(&v)
		return v, len(v), err
	case "u8":
		var v []uint64
		err := read(&v)
		return v, len(v), err
	case "b1":
		var v []bool
		err := read(&v)
		return v, len(v), err
	default:
		return nil, 0, &DecodeError{Reason: fmt.Sprintf("array %q has unsupported dtype %q", key, dtype)}
	}
}
