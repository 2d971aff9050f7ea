// Package pack reads and writes the gzip JSON chunk-package container.
//
// A package is the transparent envelope around one document's chunks and
// their embeddings. Its shape is validated once here, at the boundary;
// the core pipeline only ever sees well-formed records.
package pack

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/klauspost/compress/gzip"

	"github.com/shelfann/shelfann/routing"
)

// ErrInvalidPackage indicates input that is not a well-formed chunk
// package. The file is skipped; the batch continues.
var ErrInvalidPackage = errors.New("invalid package")

// gzipMagic is the two-byte gzip file signature.
var gzipMagic = []byte{0x1f, 0x8b}

// DocumentMetadata describes the source document.
type DocumentMetadata struct {
	ID        string `json:"id,omitempty"`
	Filename  string `json:"filename,omitempty"`
	PageCount int    `json:"page_count,omitempty"`
}

// ChunkMetadata carries per-chunk source information.
type ChunkMetadata struct {
	Page int `json:"page,omitempty"`
}

// Chunk is one embedded text fragment as stored in a package.
type Chunk struct {
	ID        string        `json:"id"`
	Text      string        `json:"text,omitempty"`
	Embedding []float32     `json:"embedding"`
	Metadata  ChunkMetadata `json:"metadata,omitempty"`
}

// Params are the graph construction parameters recorded with an index.
type Params struct {
	M              int `json:"m"`
	EFConstruction int `json:"ef_construction"`
	EFSearch       int `json:"ef_search"`
}

// IndexInfo is the ann_index metadata block attached to a package once
// its ANN artifact has been built. The checksum fields are the SHA-256
// digests of the external files; they live here, outside the artifact
// itself.
type IndexInfo struct {
	Algorithm           string `json:"algorithm"`
	EmbeddingDimensions int    `json:"embedding_dimensions"`
	Distance            string `json:"distance"`
	Params              Params `json:"params"`

	ArtifactName     string `json:"artifact_name"`
	ArtifactChecksum string `json:"artifact_checksum"`
	ArtifactSize     int    `json:"artifact_size"`

	IDMapName     string `json:"id_map_name"`
	IDMapChecksum string `json:"id_map_checksum"`
	IDMapSize     int    `json:"id_map_size"`

	// Inline payloads for single-file distribution.
	ArtifactBase64 string   `json:"artifact_base64,omitempty"`
	IDMap          []string `json:"id_map,omitempty"`
}

// Package is one document's chunk container.
type Package struct {
	FormatVersion    string            `json:"format_version"`
	DocumentMetadata *DocumentMetadata `json:"document_metadata,omitempty"`
	Chunks           []Chunk           `json:"chunks"`
	ANNIndex         *IndexInfo        `json:"ann_index,omitempty"`
}

// ReadyFormatVersion marks a package whose ann_index block is attached.
const ReadyFormatVersion = "1.1"

// Decode parses a package from raw bytes, transparently handling the
// gzip envelope. It rejects input without a chunks list.
func Decode(data []byte) (*Package, error) {
	if bytes.HasPrefix(data, gzipMagic) {
		gz, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: bad gzip envelope: %w", ErrInvalidPackage, err)
		}
		defer gz.Close()

		var p Package
		if err := json.NewDecoder(gz).Decode(&p); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidPackage, err)
		}
		return validated(&p)
	}

	var p Package
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPackage, err)
	}
	return validated(&p)
}

func validated(p *Package) (*Package, error) {
	if p.Chunks == nil {
		return nil, fmt.Errorf("%w: missing chunks", ErrInvalidPackage)
	}
	return p, nil
}

// ReadFile reads and decodes a package file (gzipped or plain JSON).
func ReadFile(path string) (*Package, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

// EncodeJSON serializes the package as plain JSON.
func (p *Package) EncodeJSON() ([]byte, error) {
	return json.Marshal(p)
}

// EncodeGzip serializes the package as gzipped JSON, the shard wire form.
func (p *Package) EncodeGzip() ([]byte, error) {
	plain, err := p.EncodeJSON()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	gz, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := gz.Write(plain); err != nil {
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// WriteFile writes the package as plain JSON.
func (p *Package) WriteFile(path string) error {
	data, err := p.EncodeJSON()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// WriteFileGzip writes the package in shard wire form.
func (p *Package) WriteFileGzip(path string) error {
	data, err := p.EncodeGzip()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// EmbeddingMatrix extracts chunk ids and embedding vectors in chunk
// order, the node order of the ANN artifact. A chunk with a missing id
// or embedding invalidates the whole package: node indices must line up
// exactly with the id map. Per-vector quality (norm, dimension
// consistency) is the caller's concern, handled by exclusion.
func (p *Package) EmbeddingMatrix() (ids []string, vectors [][]float32, err error) {
	if len(p.Chunks) == 0 {
		return nil, nil, fmt.Errorf("%w: no chunks", ErrInvalidPackage)
	}

	ids = make([]string, len(p.Chunks))
	vectors = make([][]float32, len(p.Chunks))

	for i, ch := range p.Chunks {
		if ch.ID == "" {
			return nil, nil, fmt.Errorf("%w: chunk %d has no id", ErrInvalidPackage, i)
		}
		if len(ch.Embedding) == 0 {
			return nil, nil, fmt.Errorf("%w: chunk %q has no embedding", ErrInvalidPackage, ch.ID)
		}
		ids[i] = ch.ID
		vectors[i] = ch.Embedding
	}

	return ids, vectors, nil
}

// RoutingChunks converts the package's chunks into the aggregation
// input form.
func (p *Package) RoutingChunks() []routing.Chunk {
	out := make([]routing.Chunk, len(p.Chunks))
	for i, ch := range p.Chunks {
		out[i] = routing.Chunk{
			ID:     ch.ID,
			Page:   ch.Metadata.Page,
			Text:   ch.Text,
			Vector: ch.Embedding,
		}
	}
	return out
}

// BookIdentity derives the routing identity of the package: metadata id
// and filename when present, the source name otherwise.
func (p *Package) BookIdentity(sourceName, fallbackID string) (bookID, bookName string, pageCount int) {
	bookID = fallbackID
	bookName = sourceName
	if m := p.DocumentMetadata; m != nil {
		if m.ID != "" {
			bookID = m.ID
		}
		if m.Filename != "" {
			bookName = m.Filename
		}
		pageCount = m.PageCount
	}
	return bookID, bookName, pageCount
}

// AttachIndex records the ann_index block and upgrades the package
// format version.
func (p *Package) AttachIndex(info *IndexInfo) {
	p.ANNIndex = info
	p.FormatVersion = ReadyFormatVersion
}
