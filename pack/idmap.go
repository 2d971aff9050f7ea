package pack

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/klauspost/compress/gzip"
)

// The id map records chunk ids in artifact node order, so node indices
// in the ANN graph can be resolved back to chunk ids at query time. It
// ships as gzipped JSON next to the artifact.

// EncodeIDMap serializes chunk ids to the gzipped JSON wire form.
func EncodeIDMap(ids []string) ([]byte, error) {
	var buf bytes.Buffer

	gz, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, err
	}
	if err := json.NewEncoder(gz).Encode(ids); err != nil {
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// DecodeIDMap parses a gzipped JSON id map.
func DecodeIDMap(data []byte) ([]string, error) {
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("id map is not gzip data: %w", err)
	}
	defer gz.Close()

	var ids []string
	if err := json.NewDecoder(gz).Decode(&ids); err != nil {
		return nil, fmt.Errorf("id map JSON decode failed: %w", err)
	}

	return ids, nil
}

// WriteIDMapFile writes the encoded id map to path and returns the
// encoded bytes for checksumming.
func WriteIDMapFile(path string, ids []string) ([]byte, error) {
	data, err := EncodeIDMap(ids)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, err
	}
	return data, nil
}
