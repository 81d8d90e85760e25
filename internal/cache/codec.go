package cache

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
)

// Encode serializes a model list as brotli-compressed JSON.
func Encode[T any](items []T) ([]byte, error) {
	raw, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("marshal cache payload: %w", err)
	}

	var buf bytes.Buffer
	w := brotli.NewWriterLevel(&buf, brotli.DefaultCompression)
	if _, err := w.Write(raw); err != nil {
		return nil, fmt.Errorf("compress cache payload: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("compress cache payload: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode is the inverse of Encode.
func Decode[T any](payload []byte) ([]T, error) {
	raw, err := io.ReadAll(brotli.NewReader(bytes.NewReader(payload)))
	if err != nil {
		return nil, fmt.Errorf("decompress cache payload: %w", err)
	}

	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("unmarshal cache payload: %w", err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}
