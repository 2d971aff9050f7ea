// Package quantization implements symmetric 8-bit scalar quantization.
//
// Unlike min/max range quantization, the symmetric scheme maps zero to
// code zero and uses a single shared scale per batch. That matches the
// artifact wire format, where one f32 scale in the header decodes every
// stored vector.
package quantization
