// ABOUTME: Audio output package for playing mixed audio
// ABOUTME: Provides the Output interface, the Play loop and an oto device
// Package output plays mixer blocks on an audio device.
//
// Example:
//
//	out := output.NewOto()
//	frames, err := output.Play(ctx, mix, out)
package output
