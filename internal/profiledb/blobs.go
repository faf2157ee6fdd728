package profiledb

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Position arrays are stored little-endian, 4 bytes per position, gzip
// compressed. Coverage arrays compress very well on low-diversity samples.

func compressValues(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, fmt.Errorf("compress position data: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compress position data: %w", err)
	}
	return buf.Bytes(), nil
}

func decompressValues(blob []byte, wantLength int) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("decompress position data: %w", err)
	}
	defer func() { _ = zr.Close() }()
	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("decompress position data: %w", err)
	}
	if len(raw) != wantLength*4 {
		return nil, fmt.Errorf("position data holds %d bytes, want %d", len(raw), wantLength*4)
	}
	return raw, nil
}

func encodeInt32s(values []int32) ([]byte, error) {
	raw := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(raw[i*4:], uint32(v))
	}
	return compressValues(raw)
}

func decodeInt32s(blob []byte, length int) ([]int32, error) {
	raw, err := decompressValues(blob, length)
	if err != nil {
		return nil, err
	}
	values := make([]int32, length)
	for i := range values {
		values[i] = int32(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return values, nil
}

func encodeFloat32s(values []float32) ([]byte, error) {
	raw := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(v))
	}
	return compressValues(raw)
}

func decodeFloat32s(blob []byte, length int) ([]float32, error) {
	raw, err := decompressValues(blob, length)
	if err != nil {
		return nil, err
	}
	values := make([]float32, length)
	for i := range values {
		values[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return values, nil
}
