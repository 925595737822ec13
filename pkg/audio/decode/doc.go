// ABOUTME: Audio decoder package for importing files and decoding packets
// ABOUTME: Provides Source for WAV, MP3, FLAC and Opus files plus packet Decoders
// Package decode reads audio into int32 samples in 24-bit range.
//
// Sources stream whole files: WAV (go-audio/wav), MP3 (go-mp3), FLAC
// (mewkiz/flac), Opus packet streams written by the encode package, and
// headerless PCM through OpenRaw. Decoders convert single PCM or Opus
// packets.
//
// Example:
//
//	src, err := decode.Open("take1.flac")
//	defer src.Close()
//	channels, err := decode.ReadAll(src)
package decode
