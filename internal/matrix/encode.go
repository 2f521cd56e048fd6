package matrix

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strings"
)

var npyMagic = []byte("\x93NUMPY")

// Named is a matrix stored under name inside a container.
type Named struct {
	Name   string
	Matrix *Matrix
}

// Encode writes arrays as an uncompressed .npz container of little-endian
// float32 arrays, the layout numpy.savez produces.
func Encode(w io.Writer, arrays ...Named) error {
	if len(arrays) == 0 {
		return fmt.Errorf("no arrays to encode")
	}
	zw := zip.NewWriter(w)
	for _, a := range arrays {
		if err := a.Matrix.wellFormed(); err != nil {
			return fmt.Errorf("array %q: %w", a.Name, err)
		}
		var buf bytes.Buffer
		if err := binary.Write(&buf, binary.LittleEndian, a.Matrix.Data); err != nil {
			return err
		}
		if err := writeMember(zw, a.Name, "<f4", false, []int{a.Matrix.Rows, a.Matrix.Cols}, buf.Bytes()); err != nil {
			return err
		}
	}
	return zw.Close()
}

// EncodeBytes is Encode into a fresh buffer.
func EncodeBytes(arrays ...Named) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, arrays...); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeMember(zw *zip.Writer, name, descr string, fortran bool, shape []int, data []byte) error {
	fw, err := zw.CreateHeader(&zip.FileHeader{
		Name:   strings.TrimSuffix(name, ".npy") + ".npy",
		Method: zip.Store,
	})
	if err != nil {
		return err
	}
	return writeNPY(fw, descr, fortran, shape, data)
}

// writeNPY writes a version 1.0 .npy record.
func writeNPY(w io.Writer, descr string, fortran bool, shape []int, data []byte) error {
	order := "False"
	if fortran {
		order = "True"
	}
	dims := make([]string, len(shape))
	for i, d := range shape {
		dims[i] = fmt.Sprint(d)
	}
	tuple := "(" + strings.Join(dims, ", ") + ")"
	if len(shape) == 1 {
		tuple = "(" + dims[0] + ",)"
	}

	header := fmt.Sprintf("{'descr': '%s', 'fortran_order': %s, 'shape': %s, }", descr, order, tuple)
	// magic(6) + version(2) + length(2) + header + '\n' is padded to 64 bytes.
	total := len(npyMagic) + 4 + len(header) + 1
	if pad := total % 64; pad != 0 {
		header += strings.Repeat(" ", 64-pad)
	}
	header += "\n"

	var prefix bytes.Buffer
	prefix.Write(npyMagic)
	prefix.Write([]byte{1, 0})
	if err := binary.Write(&prefix, binary.LittleEndian, uint16(len(header))); err != nil {
		return err
	}
	prefix.WriteString(header)

	if _, err := w.Write(prefix.Bytes()); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}
