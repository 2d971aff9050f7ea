package routing

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexEncodeDecode(t *testing.T) {
	book, err := Aggregate("bk", "book.pdf", 0, []Chunk{
		{ID: "c1", Page: 3, Text: "content", Vector: []float32{1, 2}},
	}, DefaultOptions)
	require.NoError(t, err)

	ri := NewIndex(20, []*BookAggregate{book}, []string{"other.bin: no chunks"})

	data, err := ri.Encode()
	require.NoError(t, err)

	decoded, err := DecodeIndex(bytes.NewReader(data))
	require.NoError(t, err)

	assert.Equal(t, FormatVersion, decoded.FormatVersion)
	assert.Equal(t, 1, decoded.BooksCount)
	assert.Equal(t, 20, decoded.SectionPages)
	assert.Equal(t, []string{"other.bin: no chunks"}, decoded.Skipped)
	require.Len(t, decoded.Books, 1)
	assert.Equal(t, "bk", decoded.Books[0].BookID)
	require.Len(t, decoded.Books[0].Sections, 1)
	assert.InDeltaSlice(t, book.Sections[0].Vector, decoded.Books[0].Sections[0].Vector, 1e-6)

	// generated_at is RFC3339 UTC.
	ts, err := time.Parse(time.RFC3339, decoded.GeneratedAt)
	require.NoError(t, err)
	assert.Equal(t, time.UTC, ts.Location())
}

func TestDecodeIndexRejectsGarbage(t *testing.T) {
	_, err := DecodeIndex(bytes.NewReader([]byte("not gzip")))
	assert.Error(t, err)
}

func TestDecodeIndexRejectsUnknownVersion(t *testing.T) {
	ri := NewIndex(20, nil, nil)
	ri.FormatVersion = "route-9.0"

	data, err := ri.Encode()
	require.NoError(t, err)

	_, err = DecodeIndex(bytes.NewReader(data))
	assert.ErrorContains(t, err, "format version")
}

func TestIndexFileRoundTrip(t *testing.T) {
	ri := NewIndex(10, nil, nil)
	path := filepath.Join(t.TempDir(), "routing_comp.bin")

	require.NoError(t, ri.WriteFile(path))

	loaded, err := ReadIndexFile(path)
	require.NoError(t, err)
	assert.Equal(t, 10, loaded.SectionPages)
	assert.NotNil(t, loaded.Skipped)
}
