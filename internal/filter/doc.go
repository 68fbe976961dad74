// Package filter provides the Gaussian blur applied to the glow buffer.
//
// The blur is separable: a horizontal pass into a pooled float32 scratch
// buffer followed by a vertical pass back into the glow buffer, giving
// O(w*h*r) cost instead of O(w*h*r*r). Samples outside the buffer count
// as transparent, so energy that the kernel would fetch from beyond the
// edge is lost rather than replicated.
package filter
