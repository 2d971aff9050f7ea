package shelfann

import (
	"github.com/shelfann/shelfann/distance"
	"github.com/shelfann/shelfann/routing"
)

// Pipeline ties the components together: normalization, graph
// construction, quantization and artifact encoding on one side, and
// routing aggregation with optional semantic labeling on the other.
//
// A Pipeline is immutable after construction and safe for concurrent
// use.
type Pipeline struct {
	opts options
}

// New creates a Pipeline.
func New(optFns ...Option) *Pipeline {
	opts := options{
		logger:  NoopLogger(),
		graph:   DefaultGraphParams,
		routing: routing.DefaultOptions,
		inline:  true,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Pipeline{opts: opts}
}

// normalizeUsable L2-normalizes vectors, dropping the unusable ones:
// zero-norm or non-finite vectors, and vectors whose dimension differs
// from the first usable vector's. ids and vectors stay aligned. The
// inputs are not modified.
func normalizeUsable(ids []string, vectors [][]float32) (keptIDs []string, kept [][]float32, dropped int) {
	dim := -1
	keptIDs = make([]string, 0, len(ids))
	kept = make([][]float32, 0, len(vectors))

	for i, v := range vectors {
		if dim >= 0 && len(v) != dim {
			dropped++
			continue
		}
		nv, ok := distance.NormalizeL2Copy(v)
		if !ok {
			dropped++
			continue
		}
		if dim < 0 {
			dim = len(v)
		}
		keptIDs = append(keptIDs, ids[i])
		kept = append(kept, nv)
	}
	return keptIDs, kept, dropped
}
