// ABOUTME: Audio encoder package for writing exported audio files
// ABOUTME: Provides the Encoder interface and PCM, WAV, FLAC and Opus writers
// Package encode writes planar int32 blocks in 24-bit range to audio files.
//
// Supports: raw PCM and WAV (16-bit and 24-bit), FLAC (16-bit and 24-bit,
// optional Vorbis comments) and Opus packet streams at 48 kHz.
//
// Example:
//
//	enc, err := encode.New("flac", f, encode.Options{FLACLevel: 5})
//	err = enc.Begin(format, tags)
//	err = enc.Encode(block)
//	err = enc.Finish()
package encode
