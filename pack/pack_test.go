package pack

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePackage() *Package {
	return &Package{
		FormatVersion: "1.0",
		DocumentMetadata: &DocumentMetadata{
			ID:        "doc-1",
			Filename:  "anatomy.pdf",
			PageCount: 120,
		},
		Chunks: []Chunk{
			{ID: "c0", Text: "first chunk", Embedding: []float32{1, 0}, Metadata: ChunkMetadata{Page: 1}},
			{ID: "c1", Text: "second chunk", Embedding: []float32{0, 1}, Metadata: ChunkMetadata{Page: 30}},
		},
	}
}

func TestDecodePlainAndGzip(t *testing.T) {
	p := samplePackage()

	plain, err := p.EncodeJSON()
	require.NoError(t, err)
	fromPlain, err := Decode(plain)
	require.NoError(t, err)
	assert.Equal(t, p, fromPlain)

	gzipped, err := p.EncodeGzip()
	require.NoError(t, err)
	fromGzip, err := Decode(gzipped)
	require.NoError(t, err)
	assert.Equal(t, p, fromGzip)
}

func TestDecodeRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"NotJSON", []byte("plainly not json")},
		{"NoChunks", []byte(`{"format_version":"1.0"}`)},
		{"WrongShape", []byte(`[1,2,3]`)},
		{"BadGzip", []byte{0x1f, 0x8b, 0xff, 0xff}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data)
			assert.ErrorIs(t, err, ErrInvalidPackage)
		})
	}
}

func TestFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	p := samplePackage()

	jsonPath := filepath.Join(dir, "doc.json")
	require.NoError(t, p.WriteFile(jsonPath))
	loaded, err := ReadFile(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, p, loaded)

	binPath := filepath.Join(dir, "shard_1a2.bin")
	require.NoError(t, p.WriteFileGzip(binPath))
	loaded, err = ReadFile(binPath)
	require.NoError(t, err)
	assert.Equal(t, p, loaded)
}

func TestEmbeddingMatrix(t *testing.T) {
	p := samplePackage()

	ids, vectors, err := p.EmbeddingMatrix()
	require.NoError(t, err)
	assert.Equal(t, []string{"c0", "c1"}, ids)
	require.Len(t, vectors, 2)
	assert.Equal(t, []float32{1, 0}, vectors[0])
}

func TestEmbeddingMatrixKeepsRaggedDimensions(t *testing.T) {
	// Dimension consistency is an exclusion concern for the caller, not
	// a package-validity concern.
	p := samplePackage()
	p.Chunks[1].Embedding = []float32{1, 2, 3}

	ids, vectors, err := p.EmbeddingMatrix()
	require.NoError(t, err)
	assert.Equal(t, []string{"c0", "c1"}, ids)
	assert.Equal(t, []float32{1, 2, 3}, vectors[1])
}

func TestEmbeddingMatrixRejectsBadChunks(t *testing.T) {
	t.Run("MissingID", func(t *testing.T) {
		p := samplePackage()
		p.Chunks[1].ID = ""
		_, _, err := p.EmbeddingMatrix()
		assert.ErrorIs(t, err, ErrInvalidPackage)
	})

	t.Run("MissingEmbedding", func(t *testing.T) {
		p := samplePackage()
		p.Chunks[0].Embedding = nil
		_, _, err := p.EmbeddingMatrix()
		assert.ErrorIs(t, err, ErrInvalidPackage)
	})

	t.Run("Empty", func(t *testing.T) {
		p := &Package{Chunks: []Chunk{}}
		_, _, err := p.EmbeddingMatrix()
		assert.ErrorIs(t, err, ErrInvalidPackage)
	})
}

func TestRoutingChunks(t *testing.T) {
	p := samplePackage()
	chunks := p.RoutingChunks()
	require.Len(t, chunks, 2)
	assert.Equal(t, "c0", chunks[0].ID)
	assert.Equal(t, 1, chunks[0].Page)
	assert.Equal(t, 30, chunks[1].Page)
	assert.Equal(t, []float32{0, 1}, chunks[1].Vector)
}

func TestBookIdentity(t *testing.T) {
	p := samplePackage()
	id, name, pages := p.BookIdentity("shard_1a2.bin", "shard_1a2")
	assert.Equal(t, "doc-1", id)
	assert.Equal(t, "anatomy.pdf", name)
	assert.Equal(t, 120, pages)

	p.DocumentMetadata = nil
	id, name, pages = p.BookIdentity("shard_1a2.bin", "shard_1a2")
	assert.Equal(t, "shard_1a2", id)
	assert.Equal(t, "shard_1a2.bin", name)
	assert.Zero(t, pages)
}

func TestAttachIndex(t *testing.T) {
	p := samplePackage()
	p.AttachIndex(&IndexInfo{
		Algorithm:           "hnsw",
		EmbeddingDimensions: 2,
		Distance:            "cosine",
		Params:              Params{M: 24, EFConstruction: 128, EFSearch: 80},
		ArtifactName:        "doc.ann.bin",
	})

	assert.Equal(t, ReadyFormatVersion, p.FormatVersion)
	require.NotNil(t, p.ANNIndex)
	assert.Equal(t, "hnsw", p.ANNIndex.Algorithm)
}

func TestIDMapRoundTrip(t *testing.T) {
	ids := []string{"c0", "c1", "c2"}

	data, err := EncodeIDMap(ids)
	require.NoError(t, err)

	decoded, err := DecodeIDMap(data)
	require.NoError(t, err)
	assert.Equal(t, ids, decoded)

	_, err = DecodeIDMap([]byte("junk"))
	assert.Error(t, err)
}

func TestWriteIDMapFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.ann.idmap.json.gz")

	data, err := WriteIDMapFile(path, []string{"a", "b"})
	require.NoError(t, err)
	require.NotEmpty(t, data)

	loaded, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, data, loaded)

	ids, err := DecodeIDMap(loaded)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)
}
