// ABOUTME: Label tracks annotate time regions with text
// ABOUTME: Labels follow cut, paste and sync-lock edits of the audio around them
package track

import (
	"fmt"
	"sort"
)

// Label marks [T0, T1) with a title; T0 == T1 is a point label
type Label struct {
	T0    float64
	T1    float64
	Title string
}

// LabelTrack holds labels ordered by start time
type LabelTrack struct {
	name   string
	labels []Label
	span   float64
}

// NewLabelTrack creates an empty label track
func NewLabelTrack() *LabelTrack {
	return &LabelTrack{}
}

func (l *LabelTrack) Name() string               { return l.name }
func (l *LabelTrack) SetName(name string)        { l.name = name }
func (l *LabelTrack) Kind() Kind                 { return KindLabel }
func (l *LabelTrack) Channels() int              { return 1 }
func (l *LabelTrack) SupportsBasicEditing() bool { return true }

// Labels returns a copy of the labels
func (l *LabelTrack) Labels() []Label {
	out := make([]Label, len(l.labels))
	copy(out, l.labels)
	return out
}

// AddLabel inserts a label keeping start order
func (l *LabelTrack) AddLabel(t0, t1 float64, title string) error {
	if t1 < t0 {
		return fmt.Errorf("%w: label [%.6f, %.6f)", ErrInvalidRange, t0, t1)
	}
	l.labels = append(l.labels, Label{T0: t0, T1: t1, Title: title})
	l.sort()
	return nil
}

func (l *LabelTrack) sort() {
	sort.SliceStable(l.labels, func(i, j int) bool { return l.labels[i].T0 < l.labels[j].T0 })
}

func (l *LabelTrack) StartTime() float64 {
	if len(l.labels) == 0 {
		return 0
	}
	return l.labels[0].T0
}

func (l *LabelTrack) EndTime() float64 {
	var end float64
	for _, lb := range l.labels {
		end = max(end, lb.T1)
	}
	return end
}

func (l *LabelTrack) Clone() Track {
	return &LabelTrack{
		name:   l.name,
		labels: l.Labels(),
		span:   l.span,
	}
}

// Release is a no-op; labels own no sample blocks
func (l *LabelTrack) Release() {}

func (l *LabelTrack) Shift(dt float64) {
	for i := range l.labels {
		l.labels[i].T0 += dt
		l.labels[i].T1 += dt
	}
}

func (l *LabelTrack) Copy(t0, t1 float64, forClipboard bool) (Track, error) {
	if err := checkRange(t0, t1); err != nil {
		return nil, err
	}
	out := &LabelTrack{name: l.name, span: t1 - t0}
	for _, lb := range l.labels {
		if lb.T1 < t0 || lb.T0 > t1 || (lb.T0 == t1 && lb.T1 > t1) {
			continue
		}
		out.labels = append(out.labels, Label{
			T0:    max(lb.T0, t0) - t0,
			T1:    min(lb.T1, t1) - t0,
			Title: lb.Title,
		})
	}
	return out, nil
}

func (l *LabelTrack) Clear(t0, t1 float64) error {
	if err := checkRange(t0, t1); err != nil {
		return err
	}
	d := t1 - t0
	var kept []Label
	for _, lb := range l.labels {
		switch {
		case lb.T1 <= t0 && lb.T0 < t0:
			// before
		case lb.T0 >= t1:
			lb.T0 -= d
			lb.T1 -= d
		case lb.T0 >= t0 && lb.T1 <= t1:
			continue
		case lb.T0 < t0 && lb.T1 > t1:
			lb.T1 -= d
		case lb.T0 < t0:
			lb.T1 = t0
		default:
			lb.T0 = t0
			lb.T1 -= d
		}
		kept = append(kept, lb)
	}
	l.labels = kept
	return nil
}

// shiftOnInsert makes room for length seconds at t
func (l *LabelTrack) shiftOnInsert(length, t float64) {
	for i := range l.labels {
		lb := &l.labels[i]
		switch {
		case lb.T0 >= t:
			lb.T0 += length
			lb.T1 += length
		case lb.T1 > t:
			lb.T1 += length
		}
	}
}

func (l *LabelTrack) Paste(t float64, src Track) error {
	sl, ok := src.(*LabelTrack)
	if !ok {
		return fmt.Errorf("%w: %s into label", ErrKindMismatch, src.Kind())
	}
	length := max(sl.span, sl.EndTime())
	l.shiftOnInsert(length, t)
	for _, lb := range sl.labels {
		l.labels = append(l.labels, Label{T0: lb.T0 + t, T1: lb.T1 + t, Title: lb.Title})
	}
	l.sort()
	return nil
}

// Silence leaves labels untouched; they carry no audio
func (l *LabelTrack) Silence(t0, t1 float64) error {
	return checkRange(t0, t1)
}

func (l *LabelTrack) SyncLockAdjust(oldT1, newT1 float64) error {
	switch {
	case newT1 > oldT1:
		l.shiftOnInsert(newT1-oldT1, oldT1)
	case newT1 < oldT1:
		return l.Clear(newT1, oldT1)
	}
	return nil
}
