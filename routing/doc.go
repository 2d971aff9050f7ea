// Package routing builds the hierarchical routing index: one mean vector
// per book and one per contiguous page-range section, optionally tagged
// with a best-matching topic label.
//
// Aggregation is streaming: only (sum, count) pairs are kept per
// aggregate key, so per-document memory stays bounded regardless of
// chunk count. Finalization divides once and re-normalizes once.
//
// A query router uses the result coarse-to-fine: book vectors select
// candidate documents, section vectors narrow to page ranges, and only
// then does chunk-level ANN search run against those candidates.
package routing
