// ABOUTME: Note tracks hold MIDI-style note events on the timeline
// ABOUTME: Notes move with cut and paste like audio; silence drops sounding notes
package track

import (
	"fmt"
	"sort"
)

// Note is one sounding note
type Note struct {
	Start    float64
	Duration float64
	Channel  uint8
	Key      uint8
	Velocity uint8
}

// End returns when the note stops
func (n Note) End() float64 { return n.Start + n.Duration }

// NoteTrack holds notes ordered by start time
type NoteTrack struct {
	name  string
	notes []Note
	span  float64
	mute  bool
	solo  bool
}

// NewNoteTrack creates an empty note track
func NewNoteTrack() *NoteTrack {
	return &NoteTrack{}
}

func (n *NoteTrack) Name() string               { return n.name }
func (n *NoteTrack) SetName(name string)        { n.name = name }
func (n *NoteTrack) Kind() Kind                 { return KindNote }
func (n *NoteTrack) Channels() int              { return 1 }
func (n *NoteTrack) SupportsBasicEditing() bool { return true }

func (n *NoteTrack) Mute() bool     { return n.mute }
func (n *NoteTrack) SetMute(m bool) { n.mute = m }
func (n *NoteTrack) Solo() bool     { return n.solo }
func (n *NoteTrack) SetSolo(s bool) { n.solo = s }

// Notes returns a copy of the notes
func (n *NoteTrack) Notes() []Note {
	out := make([]Note, len(n.notes))
	copy(out, n.notes)
	return out
}

// AddNote inserts a note keeping start order
func (n *NoteTrack) AddNote(note Note) {
	n.notes = append(n.notes, note)
	n.sort()
}

func (n *NoteTrack) sort() {
	sort.SliceStable(n.notes, func(i, j int) bool { return n.notes[i].Start < n.notes[j].Start })
}

func (n *NoteTrack) StartTime() float64 {
	if len(n.notes) == 0 {
		return 0
	}
	return n.notes[0].Start
}

func (n *NoteTrack) EndTime() float64 {
	var end float64
	for _, note := range n.notes {
		end = max(end, note.End())
	}
	return end
}

func (n *NoteTrack) Clone() Track {
	return &NoteTrack{
		name:  n.name,
		notes: n.Notes(),
		span:  n.span,
		mute:  n.mute,
		solo:  n.solo,
	}
}

// Release is a no-op; notes own no sample blocks
func (n *NoteTrack) Release() {}

func (n *NoteTrack) Shift(dt float64) {
	for i := range n.notes {
		n.notes[i].Start += dt
	}
}

func (n *NoteTrack) Copy(t0, t1 float64, forClipboard bool) (Track, error) {
	if err := checkRange(t0, t1); err != nil {
		return nil, err
	}
	out := &NoteTrack{name: n.name, span: t1 - t0}
	for _, note := range n.notes {
		if note.Start < t0 || note.Start >= t1 {
			continue
		}
		note.Duration = min(note.End(), t1) - note.Start
		note.Start -= t0
		out.notes = append(out.notes, note)
	}
	return out, nil
}

func (n *NoteTrack) Clear(t0, t1 float64) error {
	if err := checkRange(t0, t1); err != nil {
		return err
	}
	d := t1 - t0
	var kept []Note
	for _, note := range n.notes {
		switch {
		case note.Start >= t1:
			note.Start -= d
		case note.Start >= t0:
			continue
		case note.End() > t0:
			note.Duration = (t0 - note.Start) + max(0, note.End()-t1)
		}
		kept = append(kept, note)
	}
	n.notes = kept
	return nil
}

func (n *NoteTrack) Paste(t float64, src Track) error {
	sn, ok := src.(*NoteTrack)
	if !ok {
		return fmt.Errorf("%w: %s into note", ErrKindMismatch, src.Kind())
	}
	length := max(sn.span, sn.EndTime())
	n.shiftOnInsert(length, t)
	for _, note := range sn.notes {
		note.Start += t
		n.notes = append(n.notes, note)
	}
	n.sort()
	return nil
}

func (n *NoteTrack) shiftOnInsert(length, t float64) {
	for i := range n.notes {
		if n.notes[i].Start >= t {
			n.notes[i].Start += length
		}
	}
}

// Silence drops notes starting in [t0, t1) and cuts off notes sounding into it
func (n *NoteTrack) Silence(t0, t1 float64) error {
	if err := checkRange(t0, t1); err != nil {
		return err
	}
	var kept []Note
	for _, note := range n.notes {
		switch {
		case note.Start >= t0 && note.Start < t1:
			continue
		case note.Start < t0 && note.End() > t0:
			note.Duration = t0 - note.Start
		}
		kept = append(kept, note)
	}
	n.notes = kept
	return nil
}

func (n *NoteTrack) SyncLockAdjust(oldT1, newT1 float64) error {
	switch {
	case newT1 > oldT1:
		n.shiftOnInsert(newT1-oldT1, oldT1)
	case newT1 < oldT1:
		return n.Clear(newT1, oldT1)
	}
	return nil
}
