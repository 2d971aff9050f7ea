package routing

import (
	"fmt"
	"time"
)

// FormatVersion identifies the routing index schema. Consumers must
// reject unknown major versions rather than guess compatibility.
const FormatVersion = "route-1.1"

// Chunk is one embedded text fragment of a document. Chunks are created
// during ingestion and read-only afterwards.
type Chunk struct {
	// ID is unique within its document.
	ID string

	// Page is the 1-based page the chunk came from. Pages need not be
	// contiguous or start at 1, only positive; nonpositive values are
	// coerced to 1.
	Page int

	// Text is the chunk's raw text, used only for summary previews.
	Text string

	// Vector is the chunk's embedding. It is not retained after
	// aggregation; sections reference chunks by ID only.
	Vector []float32
}

// SectionAggregate is the mean vector of one contiguous page bucket,
// the mid-granularity routing unit between whole book and single chunk.
type SectionAggregate struct {
	SectionID      string    `json:"section_id"`
	Title          string    `json:"title"`
	PageStart      int       `json:"page_start"`
	PageEnd        int       `json:"page_end"`
	ChunkCount     int       `json:"chunk_count"`
	ChunkIDs       []string  `json:"chunk_ids"`
	Vector         []float32 `json:"vector"`
	SummaryPreview string    `json:"summary_preview,omitempty"`

	// SemanticLabel and SemanticScore are set by AssignLabels; sections
	// carry no label when the labeling stage is skipped.
	SemanticLabel string  `json:"semantic_label,omitempty"`
	SemanticScore float32 `json:"semantic_score,omitempty"`
}

// BookAggregate is the routing summary of one document: a mean vector
// over all usable chunks plus one SectionAggregate per retained page
// bucket. A book owns its sections exclusively.
type BookAggregate struct {
	BookID     string              `json:"book_id"`
	BookName   string              `json:"book_name"`
	SourceFile string              `json:"source_bin,omitempty"`
	Dim        int                 `json:"embedding_dimensions"`
	ChunkCount int                 `json:"chunk_count"`
	PageCount  int                 `json:"page_count"`
	Vector     []float32           `json:"book_vector"`
	Sections   []*SectionAggregate `json:"sections"`
}

// SemanticInfo records whether and how the labeling stage ran.
type SemanticInfo struct {
	Enabled      bool `json:"enabled"`
	LabelCount   int  `json:"label_count"`
	SectionCount int  `json:"section_count"`
}

// Index is the final routing artifact. It is independent of the ANN
// artifact; the only cross-link is an external checksum/name maintained
// by the caller.
type Index struct {
	FormatVersion   string           `json:"format_version"`
	GeneratedAt     string           `json:"generated_at"`
	SourceDirectory string           `json:"source_directory,omitempty"`
	SectionPages    int              `json:"section_pages"`
	BooksCount      int              `json:"books_count"`
	Books           []*BookAggregate `json:"books"`
	Semantic        SemanticInfo     `json:"semantic"`
	Skipped         []string         `json:"skipped"`
}

// NewIndex assembles a routing index with the current UTC timestamp.
// skipped carries one human-readable reason per document that produced
// no BookAggregate; it is reported, never silently swallowed.
func NewIndex(sectionPages int, books []*BookAggregate, skipped []string) *Index {
	if skipped == nil {
		skipped = []string{}
	}
	return &Index{
		FormatVersion: FormatVersion,
		GeneratedAt:   time.Now().UTC().Format(time.RFC3339),
		SectionPages:  sectionPages,
		BooksCount:    len(books),
		Books:         books,
		Skipped:       skipped,
	}
}

// Sections returns all sections across books in book order. AssignLabels
// operates on this flattened view.
func Sections(books []*BookAggregate) []*SectionAggregate {
	var out []*SectionAggregate
	for _, b := range books {
		out = append(out, b.Sections...)
	}
	return out
}

// SkipReason formats a per-document skip entry.
func SkipReason(source, reason string) string {
	return fmt.Sprintf("%s: %s", source, reason)
}
