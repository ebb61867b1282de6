// Package render turns alarm events into console lines.
//
// Sink batches lines through go-microbatch so concurrent display workers never
// interleave partial writes, and optionally applies a per-group sliding window
// limit through go-catrate.
package render
