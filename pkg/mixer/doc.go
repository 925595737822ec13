// ABOUTME: Mixer package documentation
// ABOUTME: Describes the Process loop contract used by export and playback
// Package mixer renders a time range of wave tracks into fixed-size blocks.
//
// Callers loop on Process until it returns 0:
//
//	m, err := mixer.New(mixer.Options{Tracks: tracks, T0: 0, T1: 10, Channels: 2, Rate: 44100, Format: audio.Int16})
//	for {
//		n, err := m.Process()
//		if err != nil || n == 0 {
//			break
//		}
//		left, right := m.Int(0), m.Int(1)
//	}
package mixer
