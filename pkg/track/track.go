// ABOUTME: Track interface shared by wave, label and note tracks
// ABOUTME: Defines kinds and the basic editing capabilities every variant implements
package track

import (
	"errors"
	"fmt"
)

// ErrKindMismatch is returned when pasting one track kind into another
var ErrKindMismatch = errors.New("track kinds differ")

// Kind identifies a track variant
type Kind int

const (
	KindWave Kind = iota
	KindLabel
	KindNote
)

func (k Kind) String() string {
	switch k {
	case KindWave:
		return "wave"
	case KindLabel:
		return "label"
	case KindNote:
		return "note"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Track is the closed set of track variants: *WaveTrack, *LabelTrack, *NoteTrack.
// Times are seconds on the project timeline.
type Track interface {
	Name() string
	SetName(name string)
	Kind() Kind
	Channels() int

	StartTime() float64
	EndTime() float64

	// SupportsBasicEditing reports whether cut, copy and paste apply
	SupportsBasicEditing() bool

	// Copy returns a detached track holding [t0, t1) moved to start at 0
	Copy(t0, t1 float64, forClipboard bool) (Track, error)

	// Clear removes [t0, t1) and moves later content earlier
	Clear(t0, t1 float64) error

	// Paste inserts src at t and moves later content right
	Paste(t float64, src Track) error

	// Silence blanks [t0, t1) without moving anything
	Silence(t0, t1 float64) error

	// SyncLockAdjust follows a selection end moving from oldT1 to newT1
	SyncLockAdjust(oldT1, newT1 float64) error

	// Shift moves all content by dt
	Shift(dt float64)

	Clone() Track
	Release()
}

// FitsInto reports whether src can be pasted into dst
func FitsInto(src, dst Track) bool {
	return src.Kind() == dst.Kind() && src.Channels() <= dst.Channels()
}

// ClearAndPaste replaces [t0, t1) of dst with src
func ClearAndPaste(dst Track, t0, t1 float64, src Track) error {
	if t1 > t0 {
		if err := dst.Clear(t0, t1); err != nil {
			return err
		}
	}
	return dst.Paste(t0, src)
}

func checkRange(t0, t1 float64) error {
	if t1 < t0 {
		return fmt.Errorf("%w: [%.6f, %.6f)", ErrInvalidRange, t0, t1)
	}
	return nil
}
