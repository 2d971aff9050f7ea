// Package distance implements similarity and normalization primitives.
//
// All graph construction and aggregation in this module operates on
// L2-normalized vectors, so cosine similarity reduces to a plain dot
// product. Vectors that cannot be normalized (zero norm, NaN or Inf
// components) are rejected at this boundary and excluded from every
// downstream aggregate.
package distance
