// Package shelfann turns per-chunk embedding vectors for a collection of
// documents ("books") into two durable artifacts:
//
//   - A quantized exact-kNN neighbor graph, serialized in the "HNSWANN1"
//     binary format with an external SHA-256 checksum. The container is
//     HNSW-compatible but the graph is built by exhaustive similarity
//     computation, so consumers must not assume sublinear query time.
//   - A hierarchical routing index: one mean vector per book and one per
//     contiguous page range ("section"), optionally tagged with the
//     best-matching semantic label.
//
// # Quick Start
//
//	ctx := context.Background()
//	p := shelfann.New(shelfann.WithM(24))
//
//	// ANN artifact for one chunk package:
//	report, _ := p.IndexPackageFile(ctx, "books/alpha.bin", "out")
//
//	// Routing index over a directory of packages:
//	idx, _ := p.BuildRouting(ctx, "books")
//	_ = idx.WriteFile("out/routing_index.json.gz")
//
// The pipeline is pure, synchronous computation over immutable inputs;
// all I/O happens at stage boundaries. Per-chunk problems (zero-norm or
// non-finite vectors, dimension mismatches) are dropped and counted,
// never fatal. Per-artifact problems (corrupt bytes, checksum mismatch)
// are always fatal for that artifact.
package shelfann
