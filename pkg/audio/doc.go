// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Format, sample formats, tags, dither and sample conversions
// Package audio provides fundamental audio types shared by the editing engine,
// the mixer and the import/export codecs.
//
// Integer samples are carried as int32 left-justified in the 24-bit range;
// 16-bit material keeps its low 8 bits zero. Edited audio is float32 in [-1, 1).
//
// It provides:
//   - Format: codec, sample rate, channels and bit depth of a stream
//   - SampleFormat: float32, int16 or int24 mixer output
//   - Quantizer: float to integer conversion with optional dither
//   - Tags: ordered metadata for exporters
//
// Example:
//
//	q, _ := audio.NewQuantizer(audio.Int16, audio.DitherTriangle, 1)
//	ints := make([]int32, len(block))
//	q.Quantize(block, ints)
//
//	// 16-bit value for a PCM writer
//	s16 := audio.SampleToInt16(ints[0])
package audio
