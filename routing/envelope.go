package routing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
)

// The routing index travels as a gzip-compressed JSON envelope, the same
// container the chunk packages use.

// Encode serializes the index to gzipped JSON.
func (ri *Index) Encode() ([]byte, error) {
	var buf bytes.Buffer

	gz, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, err
	}
	if err := json.NewEncoder(gz).Encode(ri); err != nil {
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// WriteFile writes the encoded index to path.
func (ri *Index) WriteFile(path string) error {
	data, err := ri.Encode()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// DecodeIndex parses a gzipped JSON routing index from r and validates
// its format version.
func DecodeIndex(r io.Reader) (*Index, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("routing index is not gzip data: %w", err)
	}
	defer gz.Close()

	var ri Index
	if err := json.NewDecoder(gz).Decode(&ri); err != nil {
		return nil, fmt.Errorf("routing index JSON decode failed: %w", err)
	}
	if ri.FormatVersion != FormatVersion {
		return nil, fmt.Errorf("unsupported routing index format version %q", ri.FormatVersion)
	}

	return &ri, nil
}

// ReadIndexFile reads an encoded index from path.
func ReadIndexFile(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return DecodeIndex(f)
}
