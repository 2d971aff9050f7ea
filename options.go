package shelfann

import (
	"github.com/shelfann/shelfann/embedder"
	"github.com/shelfann/shelfann/routing"
)

// GraphParams configures neighbor graph construction and the header
// fields recorded in the artifact.
type GraphParams struct {
	// M is the out-degree of every node.
	M int

	// EFConstruction is recorded as construction metadata. The graph
	// is built by exhaustive search, so it does not affect results.
	EFConstruction int

	// EFSearch is the suggested query-time beam width stored in the
	// artifact header.
	EFSearch int

	// BlockSize bounds working memory during graph construction.
	BlockSize int

	// Concurrency limits parallel block workers; zero uses all CPUs.
	Concurrency int
}

// DefaultGraphParams are the standard construction parameters.
var DefaultGraphParams = GraphParams{
	M:              24,
	EFConstruction: 128,
	EFSearch:       80,
	BlockSize:      512,
}

// clamped applies the construction policy floors. Degenerate values
// would produce artifacts too sparse to route queries through.
func (g GraphParams) clamped() GraphParams {
	if g.M < 4 {
		g.M = 4
	}
	if g.BlockSize < 64 {
		g.BlockSize = 64
	}
	if g.EFSearch < 16 {
		g.EFSearch = 16
	}
	return g
}

type options struct {
	logger      *Logger
	graph       GraphParams
	routing     routing.Options
	inline      bool
	concurrency int
	labels      []string
	embedder    embedder.Embedder
}

// Option configures pipeline behavior.
type Option func(*options)

// WithLogger configures structured logging. If nil is passed, logging
// is disabled.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithGraphParams configures neighbor graph construction. Values below
// the policy floors (m 4, blockSize 64, efSearch 16) are raised before
// the build.
func WithGraphParams(g GraphParams) Option {
	return func(o *options) {
		o.graph = g
	}
}

// WithM configures the graph out-degree.
func WithM(m int) Option {
	return func(o *options) {
		o.graph.M = m
	}
}

// WithRoutingOptions configures section bucketing and pruning for the
// routing index.
func WithRoutingOptions(ro routing.Options) Option {
	return func(o *options) {
		o.routing = ro
	}
}

// WithInline controls whether the artifact and id map are additionally
// embedded base64/inline into the ready package. Enabled by default.
func WithInline(inline bool) Option {
	return func(o *options) {
		o.inline = inline
	}
}

// WithConcurrency limits how many documents a batch run processes in
// parallel. Zero means runtime.NumCPU.
func WithConcurrency(n int) Option {
	return func(o *options) {
		o.concurrency = n
	}
}

// WithSemanticLabels enables the semantic labeling stage: every section
// is tagged with its nearest label under cosine similarity. The
// embedder supplies label and section-prompt vectors. Passing an empty
// label set falls back to routing.DefaultLabels.
func WithSemanticLabels(e embedder.Embedder, labels []string) Option {
	return func(o *options) {
		o.embedder = e
		if len(labels) == 0 {
			labels = routing.DefaultLabels
		}
		o.labels = labels
	}
}
