// ABOUTME: Bounded undo/redo log of track list snapshots
// ABOUTME: Evicted and truncated states release their block references
package history

import (
	"github.com/Resonate-Protocol/resonate-edit/pkg/track"
)

// DefaultDepth is the number of states kept when none is configured
const DefaultDepth = 256

// Selection is a time range
type Selection struct {
	T0 float64
	T1 float64
}

// Duration returns T1 - T0
func (s Selection) Duration() float64 { return s.T1 - s.T0 }

// State is one snapshot. The history owns Tracks; callers clone it
// before editing.
type State struct {
	Tracks    *track.List
	Selection Selection
	Long      string
	Short     string
}

// History is a linear undo log. current indexes the state matching the
// project's live tracks.
type History struct {
	states  []State
	current int
	depth   int
}

// New creates an empty history keeping at most depth states
func New(depth int) *History {
	if depth <= 0 {
		depth = DefaultDepth
	}
	return &History{current: -1, depth: depth}
}

// Depth returns the state limit
func (h *History) Depth() int { return h.depth }

// Len returns the number of stored states
func (h *History) Len() int { return len(h.states) }

// Position returns the index of the current state, or -1 when empty
func (h *History) Position() int { return h.current }

// States returns the stored states oldest first; callers must not modify them
func (h *History) States() []State {
	return append([]State(nil), h.states...)
}

// Push records s as the newest state, discarding any redo states and
// evicting the oldest when over depth
func (h *History) Push(s State) {
	for _, old := range h.states[h.current+1:] {
		release(old)
	}
	h.states = append(h.states[:h.current+1], s)

	for len(h.states) > h.depth {
		release(h.states[0])
		h.states = h.states[1:]
	}
	h.current = len(h.states) - 1
}

// Current returns the state matching the live tracks
func (h *History) Current() (State, bool) {
	if h.current < 0 {
		return State{}, false
	}
	return h.states[h.current], true
}

// CanUndo reports whether an earlier state exists
func (h *History) CanUndo() bool { return h.current > 0 }

// CanRedo reports whether a later state exists
func (h *History) CanRedo() bool { return h.current < len(h.states)-1 }

// Undo steps back and returns the state to restore
func (h *History) Undo() (State, bool) {
	if !h.CanUndo() {
		return State{}, false
	}
	h.current--
	return h.states[h.current], true
}

// Redo steps forward and returns the state to restore
func (h *History) Redo() (State, bool) {
	if !h.CanRedo() {
		return State{}, false
	}
	h.current++
	return h.states[h.current], true
}

// Clear releases every state
func (h *History) Clear() {
	for _, s := range h.states {
		release(s)
	}
	h.states = nil
	h.current = -1
}

func release(s State) {
	if s.Tracks != nil {
		s.Tracks.Release()
	}
}
