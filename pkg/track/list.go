// ABOUTME: Ordered track list with per-track selection
// ABOUTME: Computes sync-lock groups and aggregate extents over the tracks
package track

import "fmt"

type entry struct {
	track    Track
	selected bool
}

// List is an ordered set of tracks. It owns the tracks it holds.
type List struct {
	entries []entry
}

// NewList creates a list holding tracks, none selected
func NewList(tracks ...Track) *List {
	l := &List{}
	for _, t := range tracks {
		l.Add(t)
	}
	return l
}

// Len returns the number of tracks
func (l *List) Len() int { return len(l.entries) }

// At returns track i
func (l *List) At(i int) Track { return l.entries[i].track }

// Tracks returns the tracks in order
func (l *List) Tracks() []Track {
	out := make([]Track, len(l.entries))
	for i, e := range l.entries {
		out[i] = e.track
	}
	return out
}

// Add appends a track
func (l *List) Add(t Track) {
	l.entries = append(l.entries, entry{track: t})
}

// Insert places a track at position i
func (l *List) Insert(i int, t Track) error {
	if i < 0 || i > len(l.entries) {
		return fmt.Errorf("track index %d out of range", i)
	}
	l.entries = append(l.entries, entry{})
	copy(l.entries[i+1:], l.entries[i:])
	l.entries[i] = entry{track: t}
	return nil
}

// Remove takes track i out of the list and returns it to the caller
func (l *List) Remove(i int) (Track, error) {
	if i < 0 || i >= len(l.entries) {
		return nil, fmt.Errorf("track index %d out of range", i)
	}
	t := l.entries[i].track
	l.entries = append(l.entries[:i], l.entries[i+1:]...)
	return t, nil
}

// Index returns the position of t or -1
func (l *List) Index(t Track) int {
	for i, e := range l.entries {
		if e.track == t {
			return i
		}
	}
	return -1
}

// SetSelected marks track i selected or not
func (l *List) SetSelected(i int, selected bool) {
	l.entries[i].selected = selected
}

// Selected reports whether track i is selected
func (l *List) Selected(i int) bool { return l.entries[i].selected }

// SelectAll selects or deselects every track
func (l *List) SelectAll(selected bool) {
	for i := range l.entries {
		l.entries[i].selected = selected
	}
}

// SelectedIndices returns the positions of selected tracks
func (l *List) SelectedIndices() []int {
	var out []int
	for i, e := range l.entries {
		if e.selected {
			out = append(out, i)
		}
	}
	return out
}

// SelectedTracks returns the selected tracks in order
func (l *List) SelectedTracks() []Track {
	var out []Track
	for _, e := range l.entries {
		if e.selected {
			out = append(out, e.track)
		}
	}
	return out
}

// AnySelected reports whether at least one track is selected
func (l *List) AnySelected() bool {
	for _, e := range l.entries {
		if e.selected {
			return true
		}
	}
	return false
}

// SyncLockGroup returns the indices of the group containing track i. A
// group is a run of audio or note tracks followed by the label tracks
// directly under them.
func (l *List) SyncLockGroup(i int) []int {
	if i < 0 || i >= len(l.entries) {
		return nil
	}
	start := i
	for start > 0 && !l.groupStartsAt(start) {
		start--
	}
	end := i + 1
	for end < len(l.entries) && !l.groupStartsAt(end) {
		end++
	}

	out := make([]int, 0, end-start)
	for j := start; j < end; j++ {
		out = append(out, j)
	}
	return out
}

// groupStartsAt reports whether a non-label track follows a label at j
func (l *List) groupStartsAt(j int) bool {
	return l.entries[j].track.Kind() != KindLabel && l.entries[j-1].track.Kind() == KindLabel
}

// WaveTracks returns the wave tracks in order
func (l *List) WaveTracks() []*WaveTrack {
	var out []*WaveTrack
	for _, e := range l.entries {
		if w, ok := e.track.(*WaveTrack); ok {
			out = append(out, w)
		}
	}
	return out
}

// StartTime returns the earliest start over all tracks
func (l *List) StartTime() float64 {
	if len(l.entries) == 0 {
		return 0
	}
	start := l.entries[0].track.StartTime()
	for _, e := range l.entries[1:] {
		start = min(start, e.track.StartTime())
	}
	return start
}

// EndTime returns the latest end over all tracks
func (l *List) EndTime() float64 {
	var end float64
	for _, e := range l.entries {
		end = max(end, e.track.EndTime())
	}
	return end
}

// HasHiddenData reports whether any wave track hides trimmed audio
func (l *List) HasHiddenData() bool {
	for _, w := range l.WaveTracks() {
		if w.HasHiddenData() {
			return true
		}
	}
	return false
}

// SequenceSamplesCount sums stored samples over all wave tracks
func (l *List) SequenceSamplesCount() int64 {
	var n int64
	for _, w := range l.WaveTracks() {
		n += w.SequenceSamplesCount()
	}
	return n
}

// Clone returns a list of cloned tracks with the same selection
func (l *List) Clone() *List {
	out := &List{entries: make([]entry, len(l.entries))}
	for i, e := range l.entries {
		out.entries[i] = entry{track: e.track.Clone(), selected: e.selected}
	}
	return out
}

// Release releases every track and empties the list
func (l *List) Release() {
	for _, e := range l.entries {
		e.track.Release()
	}
	l.entries = nil
}
