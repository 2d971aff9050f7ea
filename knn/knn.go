// Package knn builds exact k-nearest-neighbor graphs over unit vectors.
package knn

import (
	"context"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/shelfann/shelfann/internal/math32"
)

// Empty marks an unfilled neighbor slot.
const Empty int32 = -1

// Options configures graph construction.
type Options struct {
	// M is the number of neighbors kept per node (graph out-degree).
	M int

	// BlockSize is the number of rows scored per block. Peak working
	// memory is O(BlockSize x N) similarity entries instead of O(N^2).
	BlockSize int

	// Concurrency limits the number of blocks scored in parallel.
	// Zero means runtime.GOMAXPROCS(0); one forces sequential execution.
	// Results are identical regardless of this setting: every block only
	// reads the shared input vectors and writes its own output rows.
	Concurrency int
}

// DefaultOptions are sensible defaults for document-scale graphs.
var DefaultOptions = Options{
	M:         24,
	BlockSize: 512,
}

func (o Options) sanitized() Options {
	if o.M <= 0 {
		o.M = DefaultOptions.M
	}
	if o.BlockSize <= 0 {
		o.BlockSize = DefaultOptions.BlockSize
	}
	if o.Concurrency <= 0 {
		o.Concurrency = runtime.GOMAXPROCS(0)
	}
	return o
}

// BuildGraph computes, for every vector, the indices of its top-M most
// similar other vectors by dot product, descending. Vectors must be
// L2-normalized so dot product equals cosine similarity. Self-matches are
// excluded. Ties are broken by lower index. Unfilled slots (N-1 < M) hold
// Empty.
//
// The returned slice has exactly len(vectors) rows of exactly M entries.
// Construction is exact and O(N^2 x D); the blocking bounds memory, not
// time.
func BuildGraph(ctx context.Context, vectors [][]float32, opts Options) ([][]int32, error) {
	opts = opts.sanitized()

	n := len(vectors)
	neighbors := make([][]int32, n)
	for i := range neighbors {
		row := make([]int32, opts.M)
		for j := range row {
			row[j] = Empty
		}
		neighbors[i] = row
	}

	topK := opts.M
	if n-1 < topK {
		topK = n - 1
	}
	if topK <= 0 {
		return neighbors, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)

	for start := 0; start < n; start += opts.BlockSize {
		end := start + opts.BlockSize
		if end > n {
			end = n
		}

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			sims := make([]float32, n)
			sel := newSelector(topK)
			for row := start; row < end; row++ {
				scoreRow(vectors, row, sims)
				sel.reset()
				for j, s := range sims {
					sel.offer(int32(j), s)
				}
				copy(neighbors[row], sel.indices())
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return neighbors, nil
}

// scoreRow fills sims with the similarity of vectors[row] against all
// vectors, with the self-similarity forced to -Inf.
func scoreRow(vectors [][]float32, row int, sims []float32) {
	q := vectors[row]
	for j, v := range vectors {
		sims[j] = math32.Dot(q, v)
	}
	sims[row] = float32(math.Inf(-1))
}

// selector keeps the top-k (index, similarity) pairs in descending
// similarity order. Candidates must be offered in ascending index order;
// on equal similarity the earlier (lower) index wins.
type selector struct {
	k    int
	idx  []int32
	sim  []float32
	size int
}

func newSelector(k int) *selector {
	return &selector{
		k:   k,
		idx: make([]int32, k),
		sim: make([]float32, k),
	}
}

func (s *selector) reset() {
	s.size = 0
}

func (s *selector) offer(idx int32, sim float32) {
	if s.size == s.k && sim <= s.sim[s.size-1] {
		return
	}

	// Insertion position: after all entries with similarity >= sim, so
	// equal-similarity entries keep ascending index order.
	pos := s.size
	for pos > 0 && s.sim[pos-1] < sim {
		pos--
	}

	if s.size < s.k {
		s.size++
	}
	copy(s.idx[pos+1:s.size], s.idx[pos:s.size-1])
	copy(s.sim[pos+1:s.size], s.sim[pos:s.size-1])
	s.idx[pos] = idx
	s.sim[pos] = sim
}

func (s *selector) indices() []int32 {
	return s.idx[:s.size]
}
