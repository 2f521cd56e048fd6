package matrix

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/x448/float16"
)

// readHalf reads a float16 array straight from its .npy member. The values
// are returned as raw half-precision numbers and widened by Normalize.
func readHalf(payload []byte, member, dtype string) ([]float16.Float16, error) {
	zr, err := zip.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		return nil, &DecodeError{Reason: "payload is not a valid .npz container", Err: err}
	}

	var body []byte
	for _, f := range zr.File {
		if f.Name != member {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, &DecodeError{Reason: fmt.Sprintf("could not read array %q", member), Err: err}
		}
		body, err = io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, &DecodeError{Reason: fmt.Sprintf("could not read array %q", member), Err: err}
		}
		break
	}

	data, err := npyBody(body)
	if err != nil {
		return nil, &DecodeError{Reason: fmt.Sprintf("array %q is not a valid .npy record", member), Err: err}
	}
	if len(data)%2 != 0 {
		return nil, &DecodeError{Reason: fmt.Sprintf("array %q has a truncated float16 payload", member)}
	}

	var order binary.ByteOrder = binary.LittleEndian
	if dtype[0] == '>' {
		order = binary.BigEndian
	}
	out := make([]float16.Float16, len(data)/2)
	for i := range out {
		out[i] = float16.Frombits(order.Uint16(data[2*i:]))
	}
	return out, nil
}

// npyBody skips the magic, version and header of a .npy record.
func npyBody(rec []byte) ([]byte, error) {
	if len(rec) < len(npyMagic)+4 || !bytes.HasPrefix(rec, npyMagic) {
		return nil, fmt.Errorf("missing .npy magic")
	}
	var start int
	switch major := rec[len(npyMagic)]; major {
	case 1:
		start = len(npyMagic) + 4 + int(binary.LittleEndian.Uint16(rec[8:10]))
	case 2, 3:
		if len(rec) < len(npyMagic)+6 {
			return nil, fmt.Errorf("short .npy header")
		}
		start = len(npyMagic) + 6 + int(binary.LittleEndian.Uint32(rec[8:12]))
	default:
		return nil, fmt.Errorf("unsupported .npy version %d", major)
	}
	if start > len(rec) {
		return nil, fmt.Errorf("short .npy header")
	}
	return rec[start:], nil
}
