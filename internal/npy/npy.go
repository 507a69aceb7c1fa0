// Package npy reads and writes NumPy array files: .npy version 1.0 and the
// zip-based .npz container. Only the two element types the dataset layouts
// need are supported, little-endian float64 ("<f8") and uint8 ("|u1"),
// always in C order.
package npy

import (
	"archive/zip"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strings"
)

var magic = []byte("\x93NUMPY\x01\x00")

const headerAlign = 64

// WriteFloat64 writes data as a little-endian float64 array of the given
// shape. The shape product must match len(data); an empty shape writes a
// scalar holding exactly one element.
func WriteFloat64(w io.Writer, shape []int, data []float64) error {
	if err := checkShape(shape, len(data)); err != nil {
		return err
	}
	if err := writeHeader(w, "<f8", shape); err != nil {
		return err
	}
	buf := make([]byte, 8*len(data))
	for i, v := range data {
		binary.LittleEndian.PutUint64(buf[8*i:], math.Float64bits(v))
	}
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("npy: write payload: %w", err)
	}
	return nil
}

// WriteUint8 writes data as a uint8 array of the given shape.
func WriteUint8(w io.Writer, shape []int, data []byte) error {
	if err := checkShape(shape, len(data)); err != nil {
		return err
	}
	if err := writeHeader(w, "|u1", shape); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("npy: write payload: %w", err)
	}
	return nil
}

func checkShape(shape []int, n int) error {
	total := 1
	for _, dim := range shape {
		if dim < 0 {
			return fmt.Errorf("npy: negative dimension %d", dim)
		}
		total *= dim
	}
	if total != n {
		return fmt.Errorf("npy: shape %v holds %d elements, data has %d", shape, total, n)
	}
	return nil
}

// writeHeader emits the magic, version 1.0 and the dict header padded with
// spaces so the payload starts on a 64-byte boundary, as numpy does.
func writeHeader(w io.Writer, descr string, shape []int) error {
	dict := fmt.Sprintf("{'descr': '%s', 'fortran_order': False, 'shape': %s, }",
		descr, shapeTuple(shape))

	// magic(8) + header length field(2) + dict + padding + '\n'
	unpadded := len(magic) + 2 + len(dict) + 1
	padding := (headerAlign - unpadded%headerAlign) % headerAlign
	header := dict + strings.Repeat(" ", padding) + "\n"

	if _, err := w.Write(magic); err != nil {
		return fmt.Errorf("npy: write magic: %w", err)
	}
	var lenField [2]byte
	binary.LittleEndian.PutUint16(lenField[:], uint16(len(header)))
	if _, err := w.Write(lenField[:]); err != nil {
		return fmt.Errorf("npy: write header length: %w", err)
	}
	if _, err := io.WriteString(w, header); err != nil {
		return fmt.Errorf("npy: write header: %w", err)
	}
	return nil
}

// shapeTuple renders a shape as a Python tuple literal, with the trailing
// comma numpy expects for one-dimensional shapes.
func shapeTuple(shape []int) string {
	switch len(shape) {
	case 0:
		return "()"
	case 1:
		return fmt.Sprintf("(%d,)", shape[0])
	default:
		parts := make([]string, len(shape))
		for i, dim := range shape {
			parts[i] = fmt.Sprintf("%d", dim)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	}
}

// ArchiveWriter writes an .npz container: a zip archive holding one
// deflate-compressed .npy entry per named array.
type ArchiveWriter struct {
	zw *zip.Writer
}

// NewArchiveWriter wraps w. Close must be called to finalise the archive.
func NewArchiveWriter(w io.Writer) *ArchiveWriter {
	return &ArchiveWriter{zw: zip.NewWriter(w)}
}

func (a *ArchiveWriter) entry(name string) (io.Writer, error) {
	ew, err := a.zw.CreateHeader(&zip.FileHeader{
		Name:   name + ".npy",
		Method: zip.Deflate,
	})
	if err != nil {
		return nil, fmt.Errorf("npy: create archive entry %s: %w", name, err)
	}
	return ew, nil
}

// AppendFloat64 adds one float64 array under the given key.
func (a *ArchiveWriter) AppendFloat64(name string, shape []int, data []float64) error {
	ew, err := a.entry(name)
	if err != nil {
		return err
	}
	return WriteFloat64(ew, shape, data)
}

// AppendUint8 adds one uint8 array under the given key.
func (a *ArchiveWriter) AppendUint8(name string, shape []int, data []byte) error {
	ew, err := a.entry(name)
	if err != nil {
		return err
	}
	return WriteUint8(ew, shape, data)
}

// Close finalises the zip directory.
func (a *ArchiveWriter) Close() error {
	if err := a.zw.Close(); err != nil {
		return fmt.Errorf("npy: close archive: %w", err)
	}
	return nil
}
