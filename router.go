package shelfann

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/shelfann/shelfann/pack"
	"github.com/shelfann/shelfann/routing"
)

// BuildRouting scans dir for chunk packages and builds the routing
// index: one mean vector per book, one per page-range section. Books
// are processed in parallel; per-document problems are collected as
// skip reasons, never aborting the batch. When semantic labeling is
// configured, every section is tagged with its nearest label.
func (p *Pipeline) BuildRouting(ctx context.Context, dir string) (*routing.Index, error) {
	paths, err := discoverPackages(dir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoPackages, dir)
	}

	p.opts.logger.Info("building routing index", "dir", dir, "packages", len(paths))

	concurrency := p.opts.concurrency
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}

	var (
		mu      sync.Mutex
		books   []*routing.BookAggregate
		skipped []string
	)
	skip := func(source, reason string) {
		mu.Lock()
		skipped = append(skipped, routing.SkipReason(source, reason))
		mu.Unlock()
		p.opts.logger.WithSource(source).Warn("skipping package", "reason", reason)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			book, serr := p.aggregatePackage(path)
			if serr != nil {
				skip(serr.Source, serr.Reason)
				return nil
			}

			mu.Lock()
			books = append(books, book)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Map iteration and goroutine completion are unordered; sort for a
	// deterministic index.
	sort.Slice(books, func(i, j int) bool { return books[i].BookID < books[j].BookID })
	sort.Strings(skipped)

	idx := routing.NewIndex(p.opts.routing.SectionPages, books, skipped)
	idx.SourceDirectory = dir

	if p.opts.embedder != nil && len(books) > 0 {
		if err := p.labelSections(ctx, idx); err != nil {
			return nil, fmt.Errorf("semantic labels: %w", err)
		}
	}

	return idx, nil
}

// aggregatePackage reads one package and aggregates it into a book. A
// nil *SkipError means success.
func (p *Pipeline) aggregatePackage(path string) (*routing.BookAggregate, *SkipError) {
	source := filepath.Base(path)

	pkg, err := pack.ReadFile(path)
	if err != nil {
		return nil, &SkipError{Source: source, Reason: "unreadable or invalid package format", cause: err}
	}
	if len(pkg.Chunks) == 0 {
		return nil, &SkipError{Source: source, Reason: "no chunks"}
	}

	bookID, bookName, pageCount := pkg.BookIdentity(source, packageBaseName(path))
	book, err := routing.Aggregate(bookID, bookName, pageCount, pkg.RoutingChunks(), p.opts.routing)
	if err != nil {
		reason := "no usable embeddings"
		if errors.Is(err, routing.ErrBookVector) {
			reason = "failed book vector normalization"
		}
		return nil, &SkipError{Source: source, Reason: reason, cause: err}
	}

	book.SourceFile = source
	p.opts.logger.WithBook(bookID).Info("aggregated book",
		"chunks", book.ChunkCount,
		"sections", len(book.Sections),
		"dim", book.Dim,
	)
	return book, nil
}

// labelSections embeds the label set and one prompt per section, then
// assigns each section its nearest label.
func (p *Pipeline) labelSections(ctx context.Context, idx *routing.Index) error {
	labels := p.opts.labels

	var prompts []string
	for _, book := range idx.Books {
		for _, sec := range book.Sections {
			prompts = append(prompts, routing.SectionPrompt(book, sec))
		}
	}
	if len(prompts) == 0 {
		return nil
	}

	p.opts.logger.Info("embedding labels", "labels", len(labels), "model", p.opts.embedder.ModelInfo())
	labelVecs, err := p.opts.embedder.Embed(ctx, labels)
	if err != nil {
		return err
	}

	p.opts.logger.Info("embedding section prompts", "sections", len(prompts))
	sectionVecs, err := p.opts.embedder.Embed(ctx, prompts)
	if err != nil {
		return err
	}

	if err := routing.AssignLabels(idx.Books, sectionVecs, labelVecs, labels); err != nil {
		return err
	}

	idx.Semantic = routing.SemanticInfo{
		Enabled:      true,
		LabelCount:   len(labels),
		SectionCount: len(prompts),
	}
	return nil
}

// discoverPackages lists chunk packages in dir: shard containers
// (*.bin) and processed exports (*_processed_export.json), sorted by
// name. Files this pipeline itself produces are not re-read.
func discoverPackages(dir string) ([]string, error) {
	bins, err := filepath.Glob(filepath.Join(dir, "*.bin"))
	if err != nil {
		return nil, err
	}
	exports, err := filepath.Glob(filepath.Join(dir, "*_processed_export.json"))
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, path := range append(bins, exports...) {
		name := filepath.Base(path)
		if strings.HasSuffix(name, "_comp.bin") || strings.HasSuffix(name, ".ann.bin") {
			continue
		}
		paths = append(paths, path)
	}

	sort.Strings(paths)
	return paths, nil
}
