// ABOUTME: Audio resampling package using linear interpolation
// ABOUTME: Converts audio between different sample rates
// Package resample provides audio sample rate conversion.
//
// Uses linear interpolation for converting between sample rates.
// Output positions are derived from absolute sample indices, so a signal
// resampled in blocks matches the same signal resampled in one pass.
//
// Example:
//
//	r := resample.New(44100, 48000, 0)
//	first, count := r.Span(k, len(out))
//	// read count input samples starting at first into src
//	r.Resample(src, first, k, out)
package resample
