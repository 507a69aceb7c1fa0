package npy

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Array is a decoded .npy payload.
type Array struct {
	// Descr is the numpy dtype string, "<f8" or "|u1".
	Descr string
	Shape []int

	// Exactly one of the two slices is populated, matching Descr.
	Float64 []float64
	Uint8   []byte
}

// Read decodes a version 1.0 .npy stream.
func Read(r io.Reader) (Array, error) {
	head := make([]byte, 10)
	if _, err := io.ReadFull(r, head); err != nil {
		return Array{}, fmt.Errorf("npy: read magic: %w", err)
	}
	if !bytes.Equal(head[:8], magic) {
		return Array{}, fmt.Errorf("npy: bad magic %q", head[:8])
	}
	headerLen := binary.LittleEndian.Uint16(head[8:])

	header := make([]byte, headerLen)
	if _, err := io.ReadFull(r, header); err != nil {
		return Array{}, fmt.Errorf("npy: read header: %w", err)
	}

	descr, shape, err := parseHeader(string(header))
	if err != nil {
		return Array{}, err
	}

	total := 1
	for _, dim := range shape {
		total *= dim
	}

	arr := Array{Descr: descr, Shape: shape}
	switch descr {
	case "<f8":
		buf := make([]byte, 8*total)
		if _, err := io.ReadFull(r, buf); err != nil {
			return Array{}, fmt.Errorf("npy: read payload: %w", err)
		}
		arr.Float64 = make([]float64, total)
		for i := range arr.Float64 {
			arr.Float64[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[8*i:]))
		}
	case "|u1":
		arr.Uint8 = make([]byte, total)
		if _, err := io.ReadFull(r, arr.Uint8); err != nil {
			return Array{}, fmt.Errorf("npy: read payload: %w", err)
		}
	default:
		return Array{}, fmt.Errorf("npy: unsupported dtype %q", descr)
	}
	return arr, nil
}

// ReadArchive decodes every entry of an .npz archive, keyed by array name
// (the entry name without the .npy suffix).
func ReadArchive(r io.ReaderAt, size int64) (map[string]Array, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("npy: open archive: %w", err)
	}

	arrays := make(map[string]Array, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("npy: open entry %s: %w", f.Name, err)
		}
		arr, err := Read(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("npy: entry %s: %w", f.Name, err)
		}
		arrays[strings.TrimSuffix(f.Name, ".npy")] = arr
	}
	return arrays, nil
}

// parseHeader extracts descr and shape from the python dict literal. The
// writer side only ever emits C-order arrays, so fortran_order is rejected.
func parseHeader(header string) (string, []int, error) {
	descr, err := dictString(header, "descr")
	if err != nil {
		return "", nil, err
	}
	if strings.Contains(header, "'fortran_order': True") {
		return "", nil, fmt.Errorf("npy: fortran order not supported")
	}

	open := strings.Index(header, "(")
	end := strings.Index(header, ")")
	if open < 0 || end < open {
		return "", nil, fmt.Errorf("npy: header has no shape tuple: %q", header)
	}
	var shape []int
	for _, field := range strings.Split(header[open+1:end], ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		dim, err := strconv.Atoi(field)
		if err != nil {
			return "", nil, fmt.Errorf("npy: bad shape dimension %q: %w", field, err)
		}
		shape = append(shape, dim)
	}
	return descr, shape, nil
}

func dictString(header, key string) (string, error) {
	marker := "'" + key + "': '"
	start := strings.Index(header, marker)
	if start < 0 {
		return "", fmt.Errorf("npy: header missing %s: %q", key, header)
	}
	rest := header[start+len(marker):]
	end := strings.Index(rest, "'")
	if end < 0 {
		return "", fmt.Errorf("npy: unterminated %s in header: %q", key, header)
	}
	return rest[:end], nil
}
