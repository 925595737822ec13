// ABOUTME: Package documentation for tracks and clips
// ABOUTME: Describes the clip placement model and track editing operations
// Package track implements the editable timeline: clips, wave tracks,
// label tracks, note tracks and the ordered track list.
//
// A Clip places one sequence per channel on the timeline. Sequence sample k
// plays at Offset + k*Stretch; samples hidden by the left and right trims
// stay stored so a later edit can bring them back.
//
// Track edits take times in seconds and quantize them to the track rate
// once. Clips a failed edit would have dropped are kept until the edit
// succeeds.
//
// Example:
//
//	store := sampleblock.NewMemoryStore()
//	w := track.NewWaveTrack(store, 44100, 1, 0)
//	w.NewClipFromSamples(0, [][]float32{samples})
//	cut, _ := w.Copy(1, 2, true)
//	w.Clear(1, 2)
//	w.Paste(3, cut)
package track
