package maptools

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/pierrec/lz4/v4"
)

const (
	matrixRaw byte = iota
	matrixLZ4
)

// method byte plus two little-endian uint32 dimensions
const matrixHeaderSize = 9

// widest either axis can span, 255 chunks of 255 tiles
const maxMatrixDim = 255 * 255

var (
	errCorruptBlob  = errors.New("maptools: corrupt matrix blob")
	errRaggedMatrix = errors.New("maptools: ragged matrix")
)

// marshalMatrix packs a decoded layer into the blob stored in the
// catalogue: a method byte, the dimensions and the row data, lz4 block
// compressed when that comes out smaller than the rows themselves.
func marshalMatrix(m [][]byte) ([]byte, error) {
	height := len(m)
	width := 0
	if height > 0 {
		width = len(m[0])
	}

	flat := make([]byte, 0, width*height)
	for _, row := range m {
		if len(row) != width {
			return nil, errRaggedMatrix
		}
		flat = append(flat, row...)
	}

	payload, method := compress(flat)

	b := new(bytes.Buffer)
	b.WriteByte(method)
	if err := binary.Write(b, binary.LittleEndian, uint32(width)); err != nil {
		return nil, err
	}
	if err := binary.Write(b, binary.LittleEndian, uint32(height)); err != nil {
		return nil, err
	}
	if _, err := b.Write(payload); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

func compress(data []byte) ([]byte, byte) {
	buf := make([]byte, lz4.CompressBlockBound(len(data)))

	var c lz4.Compressor
	n, err := c.CompressBlock(data, buf)
	if err != nil || n == 0 || n >= len(data) {
		return data, matrixRaw
	}

	return buf[:n], matrixLZ4
}

// unmarshalMatrix expands a catalogue blob back into rows. Zero-height
// blobs unmarshal to the same empty, non-nil matrix an empty map decodes
// to.
func unmarshalMatrix(b []byte) ([][]byte, error) {
	if len(b) < matrixHeaderSize {
		return nil, fmt.Errorf("%w: %d byte blob", errCorruptBlob, len(b))
	}

	method := b[0]
	width := binary.LittleEndian.Uint32(b[1:5])
	height := binary.LittleEndian.Uint32(b[5:9])
	payload := b[matrixHeaderSize:]

	if width > maxMatrixDim || height > maxMatrixDim {
		return nil, fmt.Errorf("%w: implausible %dx%d matrix", errCorruptBlob, width, height)
	}
	w, h := int(width), int(height)

	var flat []byte
	switch method {
	case matrixRaw:
		if len(payload) != w*h {
			return nil, fmt.Errorf("%w: %d bytes for %dx%d", errCorruptBlob, len(payload), w, h)
		}
		flat = payload
	case matrixLZ4:
		flat = make([]byte, w*h)
		n, err := lz4.UncompressBlock(payload, flat)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errCorruptBlob, err)
		}
		if n != len(flat) {
			return nil, fmt.Errorf("%w: %d bytes for %dx%d", errCorruptBlob, n, w, h)
		}
	default:
		return nil, fmt.Errorf("%w: method %d", errCorruptBlob, method)
	}

	m := make([][]byte, h)
	for y := range m {
		m[y] = flat[y*w : (y+1)*w]
	}

	return m, nil
}
