package routing

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/shelfann/shelfann/distance"
)

// ErrInsufficientData is returned when a document yields no usable
// vectors. The document is skipped; the batch continues.
var ErrInsufficientData = errors.New("insufficient data")

// ErrBookVector indicates a document whose mean vector failed
// normalization. It wraps ErrInsufficientData: the document is skipped,
// not fatal.
var ErrBookVector = fmt.Errorf("%w: book vector normalization failed", ErrInsufficientData)

// Options configures aggregation.
type Options struct {
	// SectionPages is the page bucket size per section.
	SectionPages int

	// MinChunksPerSection drops buckets with fewer contributing chunks.
	// Dropping is a filtering policy, not an error.
	MinChunksPerSection int

	// SummaryChunks is how many chunk texts feed a section's preview.
	SummaryChunks int

	// SummaryChars caps the preview length per section.
	SummaryChars int
}

// DefaultOptions mirror the established artifact defaults.
var DefaultOptions = Options{
	SectionPages:        20,
	MinChunksPerSection: 1,
	SummaryChunks:       2,
	SummaryChars:        700,
}

func (o Options) sanitized() Options {
	if o.SectionPages < 1 {
		o.SectionPages = 1
	}
	if o.MinChunksPerSection < 1 {
		o.MinChunksPerSection = 1
	}
	if o.SummaryChunks < 1 {
		o.SummaryChunks = 1
	}
	if o.SummaryChars < 120 {
		o.SummaryChars = 120
	}
	return o
}

// sectionAccum is the running state of one page bucket. Only the sum and
// count are kept; contributing vectors are never materialized.
type sectionAccum struct {
	sum          []float64
	count        int
	pageStart    int
	pageEnd      int
	chunkIDs     []string
	summaryTexts []string
}

// Aggregate mean-pools the usable chunk vectors of one document into a
// book vector plus one vector per retained page bucket.
//
// A chunk contributes nothing if its vector cannot be normalized
// (zero-norm or non-finite) or its dimension differs from the document's
// first-seen dimension; both conditions are recovered locally by
// exclusion. If no chunk is usable, ErrInsufficientData is returned and
// no BookAggregate is produced.
//
// pageCount is metadata from the source; zero or negative falls back to
// the highest page seen.
func Aggregate(bookID, bookName string, pageCount int, chunks []Chunk, opts Options) (*BookAggregate, error) {
	opts = opts.sanitized()

	var (
		dim        int
		bookSum    []float64
		bookCount  int
		maxPage    = 1
		sections   = make(map[int]*sectionAccum)
	)

	for _, ch := range chunks {
		if len(ch.Vector) == 0 {
			continue
		}

		if bookSum == nil {
			dim = len(ch.Vector)
			bookSum = make([]float64, dim)
		} else if len(ch.Vector) != dim {
			// Dimension mismatch: dropped like an invalid vector.
			continue
		}

		nvec, ok := distance.NormalizeL2Copy(ch.Vector)
		if !ok {
			continue
		}

		for i, x := range nvec {
			bookSum[i] += float64(x)
		}
		bookCount++

		page := ch.Page
		if page < 1 {
			page = 1
		}
		if page > maxPage {
			maxPage = page
		}

		secIdx := (page - 1) / opts.SectionPages
		sec := sections[secIdx]
		if sec == nil {
			sec = &sectionAccum{
				sum:       make([]float64, dim),
				pageStart: secIdx*opts.SectionPages + 1,
				pageEnd:   (secIdx + 1) * opts.SectionPages,
			}
			sections[secIdx] = sec
		}

		for i, x := range nvec {
			sec.sum[i] += float64(x)
		}
		sec.count++

		if ch.ID != "" {
			sec.chunkIDs = append(sec.chunkIDs, ch.ID)
		}
		if len(sec.summaryTexts) < opts.SummaryChunks {
			if text := compactText(ch.Text, 400); text != "" {
				sec.summaryTexts = append(sec.summaryTexts, text)
			}
		}
	}

	if bookCount == 0 {
		return nil, ErrInsufficientData
	}

	bookVec, ok := finalizeMean(bookSum, bookCount)
	if !ok {
		return nil, ErrBookVector
	}

	secIndices := make([]int, 0, len(sections))
	for idx := range sections {
		secIndices = append(secIndices, idx)
	}
	sort.Ints(secIndices)

	out := make([]*SectionAggregate, 0, len(secIndices))
	for _, idx := range secIndices {
		sec := sections[idx]
		if sec.count < opts.MinChunksPerSection {
			continue
		}

		secVec, ok := finalizeMean(sec.sum, sec.count)
		if !ok {
			continue
		}

		preview := strings.TrimSpace(strings.Join(sec.summaryTexts, " "))
		if len(preview) > opts.SummaryChars {
			preview = preview[:opts.SummaryChars]
		}

		out = append(out, &SectionAggregate{
			SectionID:      fmt.Sprintf("%s_sec_%04d", bookID, idx),
			Title:          fmt.Sprintf("Pages %d-%d", sec.pageStart, sec.pageEnd),
			PageStart:      sec.pageStart,
			PageEnd:        sec.pageEnd,
			ChunkCount:     sec.count,
			ChunkIDs:       sec.chunkIDs,
			Vector:         secVec,
			SummaryPreview: preview,
		})
	}

	if pageCount <= 0 {
		pageCount = maxPage
	}

	return &BookAggregate{
		BookID:     bookID,
		BookName:   bookName,
		Dim:        dim,
		ChunkCount: bookCount,
		PageCount:  pageCount,
		Vector:     bookVec,
		Sections:   out,
	}, nil
}

// finalizeMean divides the running sum once and re-normalizes. The false
// return covers degenerate sums that cancel to zero.
func finalizeMean(sum []float64, count int) ([]float32, bool) {
	mean := make([]float32, len(sum))
	for i, x := range sum {
		mean[i] = float32(x / float64(count))
	}
	if !distance.NormalizeL2InPlace(mean) {
		return nil, false
	}
	return mean, true
}

var whitespaceRE = regexp.MustCompile(`\s+`)

// compactText collapses runs of whitespace and truncates to limit.
func compactText(text string, limit int) string {
	if text == "" {
		return ""
	}
	cleaned := strings.TrimSpace(whitespaceRE.ReplaceAllString(text, " "))
	if len(cleaned) > limit {
		cleaned = cleaned[:limit]
	}
	return cleaned
}
