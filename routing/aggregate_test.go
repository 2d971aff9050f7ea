package routing

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfann/shelfann/distance"
)

func TestAggregate_SingleChunk(t *testing.T) {
	chunks := []Chunk{
		{ID: "c1", Page: 5, Text: "aortic   dissection\n\npresentation", Vector: []float32{3, 4}},
	}

	book, err := Aggregate("bk", "book.pdf", 0, chunks, Options{SectionPages: 20, MinChunksPerSection: 1})
	require.NoError(t, err)

	assert.Equal(t, 2, book.Dim)
	assert.Equal(t, 1, book.ChunkCount)
	assert.Equal(t, 5, book.PageCount, "falls back to max page seen")
	assert.InDelta(t, 1.0, distance.Norm(book.Vector), 1e-6)

	require.Len(t, book.Sections, 1)
	sec := book.Sections[0]
	assert.Equal(t, "bk_sec_0000", sec.SectionID)
	assert.Equal(t, 1, sec.PageStart)
	assert.Equal(t, 20, sec.PageEnd)
	assert.Equal(t, "Pages 1-20", sec.Title)
	assert.Equal(t, []string{"c1"}, sec.ChunkIDs)
	assert.Equal(t, "aortic dissection presentation", sec.SummaryPreview)
	assert.InDelta(t, 1.0, distance.Norm(sec.Vector), 1e-6)
}

func TestAggregate_NoUsableVectors(t *testing.T) {
	chunks := []Chunk{
		{ID: "a", Page: 1, Vector: []float32{0, 0}},
		{ID: "b", Page: 2, Vector: nil},
	}

	book, err := Aggregate("bk", "book.pdf", 0, chunks, DefaultOptions)
	assert.Nil(t, book)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestAggregate_OverflowingVectorDropped(t *testing.T) {
	// Finite components whose squared sum overflows float32: the vector
	// cannot be normalized and must contribute nothing, not a zero
	// vector inflating the count and biasing the mean.
	chunks := []Chunk{
		{ID: "a", Page: 1, Vector: []float32{1, 0}},
		{ID: "b", Page: 1, Vector: []float32{2e19, 2e19}},
	}

	book, err := Aggregate("bk", "book.pdf", 0, chunks, DefaultOptions)
	require.NoError(t, err)
	assert.Equal(t, 1, book.ChunkCount)
	require.Len(t, book.Sections, 1)
	assert.Equal(t, []string{"a"}, book.Sections[0].ChunkIDs)
	assert.InDelta(t, 1.0, float64(book.Vector[0]), 1e-6)
}

func TestAggregate_DimensionMismatchDropped(t *testing.T) {
	chunks := []Chunk{
		{ID: "a", Page: 1, Vector: []float32{1, 0}},
		{ID: "b", Page: 1, Vector: []float32{1, 0, 0}}, // wrong dim, dropped
		{ID: "c", Page: 1, Vector: []float32{0, 1}},
	}

	book, err := Aggregate("bk", "book.pdf", 0, chunks, DefaultOptions)
	require.NoError(t, err)
	assert.Equal(t, 2, book.ChunkCount)
	assert.Equal(t, 2, book.Dim)
	require.Len(t, book.Sections, 1)
	assert.Equal(t, []string{"a", "c"}, book.Sections[0].ChunkIDs)
}

func TestAggregate_SectionBuckets(t *testing.T) {
	var chunks []Chunk
	for i := 0; i < 6; i++ {
		chunks = append(chunks, Chunk{
			ID:     fmt.Sprintf("c%d", i),
			Page:   i*10 + 1, // pages 1,11,21,31,41,51
			Vector: []float32{1, float32(i)},
		})
	}

	book, err := Aggregate("bk", "book.pdf", 60, chunks, Options{SectionPages: 20, MinChunksPerSection: 1})
	require.NoError(t, err)
	assert.Equal(t, 60, book.PageCount, "metadata page count wins when positive")

	// Pages 1,11 -> bucket 0; 21,31 -> bucket 1; 41,51 -> bucket 2.
	require.Len(t, book.Sections, 3)
	assert.Equal(t, 1, book.Sections[0].PageStart)
	assert.Equal(t, 20, book.Sections[0].PageEnd)
	assert.Equal(t, 21, book.Sections[1].PageStart)
	assert.Equal(t, 41, book.Sections[2].PageStart)

	// Conservation: every id lands in exactly one section.
	seen := map[string]int{}
	for _, sec := range book.Sections {
		assert.Equal(t, sec.ChunkCount, len(sec.ChunkIDs))
		for _, id := range sec.ChunkIDs {
			seen[id]++
		}
	}
	assert.Len(t, seen, 6)
	for id, n := range seen {
		assert.Equal(t, 1, n, "chunk %s appears in %d sections", id, n)
	}
}

func TestAggregate_MinChunksPruning(t *testing.T) {
	chunks := []Chunk{
		{ID: "a", Page: 1, Vector: []float32{1, 0}},
		{ID: "b", Page: 2, Vector: []float32{0, 1}},
		{ID: "lone", Page: 25, Vector: []float32{1, 1}},
	}

	book, err := Aggregate("bk", "book.pdf", 0, chunks, Options{SectionPages: 20, MinChunksPerSection: 2})
	require.NoError(t, err)

	// The page-25 bucket has one chunk and is silently dropped; the book
	// still counts all three contributions.
	require.Len(t, book.Sections, 1)
	assert.Equal(t, 3, book.ChunkCount)
	assert.Equal(t, 2, book.Sections[0].ChunkCount)
}

func TestAggregate_NonpositivePageCoerced(t *testing.T) {
	chunks := []Chunk{
		{ID: "a", Page: 0, Vector: []float32{1, 0}},
		{ID: "b", Page: -3, Vector: []float32{0, 1}},
	}

	book, err := Aggregate("bk", "book.pdf", 0, chunks, Options{SectionPages: 20, MinChunksPerSection: 1})
	require.NoError(t, err)
	require.Len(t, book.Sections, 1)
	assert.Equal(t, 1, book.Sections[0].PageStart)
	assert.Equal(t, 2, book.Sections[0].ChunkCount)
}

func TestAggregate_SummaryPreviewCaps(t *testing.T) {
	long := make([]byte, 1000)
	for i := range long {
		long[i] = 'x'
	}

	chunks := []Chunk{
		{ID: "a", Page: 1, Text: string(long), Vector: []float32{1, 0}},
		{ID: "b", Page: 2, Text: string(long), Vector: []float32{0, 1}},
		{ID: "c", Page: 3, Text: string(long), Vector: []float32{1, 1}},
	}

	book, err := Aggregate("bk", "book.pdf", 0, chunks, Options{
		SectionPages:        20,
		MinChunksPerSection: 1,
		SummaryChunks:       2,
		SummaryChars:        500,
	})
	require.NoError(t, err)
	require.Len(t, book.Sections, 1)

	// Two chunks at 400 chars each, joined, then capped at SummaryChars.
	assert.Len(t, book.Sections[0].SummaryPreview, 500)
}

func TestAggregate_MeanIsNormalizedMean(t *testing.T) {
	chunks := []Chunk{
		{ID: "a", Page: 1, Vector: []float32{2, 0}},
		{ID: "b", Page: 1, Vector: []float32{0, 3}},
	}

	book, err := Aggregate("bk", "book.pdf", 0, chunks, DefaultOptions)
	require.NoError(t, err)

	// Inputs normalize to (1,0) and (0,1); the normalized mean is the
	// diagonal regardless of the original magnitudes.
	inv := float32(0.7071067)
	assert.InDelta(t, inv, book.Vector[0], 1e-5)
	assert.InDelta(t, inv, book.Vector[1], 1e-5)
}

func TestOptionsSanitized(t *testing.T) {
	o := Options{}.sanitized()
	assert.Equal(t, 1, o.SectionPages)
	assert.Equal(t, 1, o.MinChunksPerSection)
	assert.Equal(t, 1, o.SummaryChunks)
	assert.Equal(t, 120, o.SummaryChars)
}

func TestCompactText(t *testing.T) {
	assert.Equal(t, "", compactText("", 100))
	assert.Equal(t, "a b c", compactText("  a\tb\n\nc  ", 100))
	assert.Equal(t, "ab", compactText("abcd", 2))
}
