// ABOUTME: Editing commands over the selected tracks and time selection
// ABOUTME: Cut, copy, delete, split variants, join, disjoin, trim, silence, duplicate and effects
package project

import (
	"errors"
	"fmt"

	"github.com/Resonate-Protocol/resonate-edit/pkg/audio"
	"github.com/Resonate-Protocol/resonate-edit/pkg/effect"
	"github.com/Resonate-Protocol/resonate-edit/pkg/history"
	"github.com/Resonate-Protocol/resonate-edit/pkg/track"
)

// copySelected copies [t0, t1) of every selected editable track
func copySelected(l *track.List, t0, t1 float64) (*track.List, error) {
	out := track.NewList()
	for _, t := range l.SelectedTracks() {
		if !t.SupportsBasicEditing() {
			continue
		}
		c, err := t.Copy(t0, t1, true)
		if err != nil {
			out.Release()
			return nil, err
		}
		c.SetName(t.Name())
		out.Add(c)
	}
	return out, nil
}

// Copy puts the selected region on the clipboard; the project is unchanged
func (p *Project) Copy() error {
	if err := p.requireRange(); err != nil {
		return err
	}
	clip, err := copySelected(p.tracks, p.sel.T0, p.sel.T1)
	if err != nil {
		return err
	}
	p.clipboard.Assign(clip, p.sel.T0, p.sel.T1, p.id)
	return nil
}

// Cut copies the selected region to the clipboard and removes it, closing the gap
func (p *Project) Cut() error {
	if err := p.requireRange(); err != nil {
		return err
	}
	t0, t1 := p.sel.T0, p.sel.T1

	var clip *track.List
	err := p.transact("Cut to the clipboard", "Cut", func(l *track.List) (history.Selection, error) {
		var err error
		if clip, err = copySelected(l, t0, t1); err != nil {
			return p.sel, err
		}
		for _, i := range p.targets(l, true) {
			t := l.At(i)
			if !t.SupportsBasicEditing() {
				continue
			}
			if w, ok := t.(*track.WaveTrack); ok && p.cfg.CutLines {
				err = w.ClearAndAddCutLine(t0, t1)
			} else {
				err = t.Clear(t0, t1)
			}
			if err != nil {
				clip.Release()
				return p.sel, fmt.Errorf("failed to cut %q: %w", t.Name(), err)
			}
		}
		return history.Selection{T0: t0, T1: t0}, nil
	})
	if err != nil {
		return err
	}
	p.clipboard.Assign(clip, t0, t1, p.id)
	return nil
}

// Delete removes the selected region, closing the gap
func (p *Project) Delete() error {
	if err := p.requireRange(); err != nil {
		return err
	}
	t0, t1 := p.sel.T0, p.sel.T1
	long := fmt.Sprintf("Deleted %.2f seconds at t=%.2f", t1-t0, t0)
	return p.transact(long, "Delete", func(l *track.List) (history.Selection, error) {
		for _, i := range p.targets(l, true) {
			t := l.At(i)
			if !t.SupportsBasicEditing() {
				continue
			}
			if err := t.Clear(t0, t1); err != nil {
				return p.sel, fmt.Errorf("failed to delete from %q: %w", t.Name(), err)
			}
		}
		return history.Selection{T0: t0, T1: t0}, nil
	})
}

// SplitCut copies the selected region to the clipboard and leaves a gap
func (p *Project) SplitCut() error {
	if err := p.requireRange(); err != nil {
		return err
	}
	t0, t1 := p.sel.T0, p.sel.T1

	clip := track.NewList()
	err := p.transact("Split-cut to the clipboard", "Split Cut", func(l *track.List) (history.Selection, error) {
		for _, t := range l.SelectedTracks() {
			var dest track.Track
			var err error
			switch v := t.(type) {
			case *track.WaveTrack:
				dest, err = v.SplitCut(t0, t1)
			default:
				if !t.SupportsBasicEditing() {
					continue
				}
				if dest, err = t.Copy(t0, t1, true); err == nil {
					if err = t.Silence(t0, t1); err != nil {
						dest.Release()
					}
				}
			}
			if err != nil {
				return p.sel, fmt.Errorf("failed to split-cut %q: %w", t.Name(), err)
			}
			dest.SetName(t.Name())
			clip.Add(dest)
		}
		return p.sel, nil
	})
	if err != nil {
		clip.Release()
		return err
	}
	p.clipboard.Assign(clip, t0, t1, p.id)
	return nil
}

// SplitDelete removes the selected region and leaves a gap
func (p *Project) SplitDelete() error {
	if err := p.requireRange(); err != nil {
		return err
	}
	t0, t1 := p.sel.T0, p.sel.T1
	long := fmt.Sprintf("Split-deleted %.2f seconds at t=%.2f", t1-t0, t0)
	return p.transact(long, "Split Delete", func(l *track.List) (history.Selection, error) {
		for _, t := range l.SelectedTracks() {
			var err error
			switch v := t.(type) {
			case *track.WaveTrack:
				err = v.SplitDelete(t0, t1)
			default:
				if t.SupportsBasicEditing() {
					err = t.Silence(t0, t1)
				}
			}
			if err != nil {
				return p.sel, fmt.Errorf("failed to split-delete %q: %w", t.Name(), err)
			}
		}
		return p.sel, nil
	})
}

// waveEdit runs fn on every selected wave track
func (p *Project) waveEdit(long, short string, fn func(w *track.WaveTrack) error) error {
	return p.transact(long, short, func(l *track.List) (history.Selection, error) {
		for _, t := range l.SelectedTracks() {
			w, ok := t.(*track.WaveTrack)
			if !ok {
				continue
			}
			if err := fn(w); err != nil {
				return p.sel, fmt.Errorf("%s failed on %q: %w", short, w.Name(), err)
			}
		}
		return p.sel, nil
	})
}

// Silence zeroes the selected region of selected wave tracks
func (p *Project) Silence() error {
	if err := p.requireRange(); err != nil {
		return err
	}
	t0, t1 := p.sel.T0, p.sel.T1
	long := fmt.Sprintf("Silenced selected tracks for %.2f seconds at %.2f", t1-t0, t0)
	return p.waveEdit(long, "Silence", func(w *track.WaveTrack) error {
		return w.Silence(t0, t1)
	})
}

// Trim hides audio outside the selection; a point selection does nothing
func (p *Project) Trim() error {
	t0, t1 := p.sel.T0, p.sel.T1
	if t1 <= t0 {
		return nil
	}
	long := fmt.Sprintf("Trim selected audio tracks from %.2f seconds to %.2f seconds", t0, t1)
	return p.waveEdit(long, "Trim Audio", func(w *track.WaveTrack) error {
		return w.Trim(t0, t1)
	})
}

// Split inserts clip boundaries at both selection edges
func (p *Project) Split() error {
	t0, t1 := p.sel.T0, p.sel.T1
	return p.waveEdit("Split", "Split", func(w *track.WaveTrack) error {
		if err := w.Split(t0); err != nil {
			return err
		}
		if t1 != t0 {
			return w.Split(t1)
		}
		return nil
	})
}

// Join merges the clips in the selection, filling gaps with silence
func (p *Project) Join() error {
	if err := p.requireRange(); err != nil {
		return err
	}
	t0, t1 := p.sel.T0, p.sel.T1
	long := fmt.Sprintf("Joined %.2f seconds at t=%.2f", t1-t0, t0)
	return p.waveEdit(long, "Join", func(w *track.WaveTrack) error {
		return w.Join(t0, t1)
	})
}

// Disjoin splits clips at runs of digital silence inside the selection
func (p *Project) Disjoin() error {
	if err := p.requireRange(); err != nil {
		return err
	}
	t0, t1 := p.sel.T0, p.sel.T1
	long := fmt.Sprintf("Detached %.2f seconds at t=%.2f", t1-t0, t0)
	return p.waveEdit(long, "Detach", func(w *track.WaveTrack) error {
		return w.Disjoin(t0, t1, p.cfg.DisjoinMinSilence)
	})
}

// SplitNew moves the selected region of each selected wave track to a new
// track, leaving a gap behind
func (p *Project) SplitNew() error {
	if err := p.requireRange(); err != nil {
		return err
	}
	t0, t1 := p.sel.T0, p.sel.T1
	return p.transact("Split to new track", "Split New", func(l *track.List) (history.Selection, error) {
		var created []track.Track
		for _, w := range selectedWaves(l) {
			dest, err := w.Copy(t0, t1, false)
			if err == nil {
				if err = w.SplitDelete(t0, t1); err != nil {
					dest.Release()
				}
			}
			if err != nil {
				for _, t := range created {
					t.Release()
				}
				return p.sel, fmt.Errorf("failed to split %q to a new track: %w", w.Name(), err)
			}
			dest.SetName(w.Name())
			dest.Shift(t0)
			created = append(created, dest)
		}
		for _, t := range created {
			l.Add(t)
		}
		return p.sel, nil
	})
}

// Duplicate adds a copy of the selected region of each selected track as a
// new track at the same position
func (p *Project) Duplicate() error {
	if err := p.requireRange(); err != nil {
		return err
	}
	t0, t1 := p.sel.T0, p.sel.T1
	return p.transact("Duplicated", "Duplicate", func(l *track.List) (history.Selection, error) {
		var created []track.Track
		for _, t := range l.SelectedTracks() {
			if !t.SupportsBasicEditing() {
				continue
			}
			dest, err := t.Copy(t0, t1, false)
			if err != nil {
				for _, c := range created {
					c.Release()
				}
				return p.sel, fmt.Errorf("failed to duplicate %q: %w", t.Name(), err)
			}
			dest.SetName(t.Name())
			dest.Shift(t0)
			created = append(created, dest)
		}
		for _, t := range created {
			l.Add(t)
		}
		return p.sel, nil
	})
}

// ApplyEffect runs e over the selection of every selected wave track
func (p *Project) ApplyEffect(e effect.Effect) error {
	if err := p.requireRange(); err != nil {
		return err
	}
	t0, t1 := p.sel.T0, p.sel.T1
	return p.waveEdit("Applied effect: "+e.Name(), e.Name(), func(w *track.WaveTrack) error {
		return effect.Apply(w, t0, t1, e, 0)
	})
}

// Generate renders e into a new selected wave track starting at the
// selection. A range selection sets the length, otherwise duration does.
func (p *Project) Generate(e effect.Effect, duration float64) error {
	t0, t1 := p.sel.T0, p.sel.T1
	if t1 <= t0 {
		t1 = p.quantize(t0 + duration)
	}
	if t1 <= t0 {
		return ErrEmptySelection
	}

	frames := audio.TimeToSamples(t1, p.cfg.Rate) - audio.TimeToSamples(t0, p.cfg.Rate)
	samples, err := effect.Render(e, p.cfg.Rate, p.cfg.Channels, frames, 0)
	if err != nil {
		return err
	}
	w := p.NewWaveTrack(0)
	w.SetName(e.Name())
	if _, err := w.NewClipFromSamples(t0, samples); err != nil {
		w.Release()
		return err
	}

	return p.transact("Generated "+e.Name(), "Generate", func(l *track.List) (history.Selection, error) {
		l.SelectAll(false)
		l.Add(w)
		l.SetSelected(l.Len()-1, true)
		return history.Selection{T0: t0, T1: t1}, nil
	})
}

// ExpandCutLine restores the audio removed at cut line t on selected wave tracks
func (p *Project) ExpandCutLine(t float64) error {
	if !p.hasCutLine(t) {
		return fmt.Errorf("%w at %.6f", track.ErrNoCutLine, t)
	}
	return p.waveEdit("Expanded cut line", "Expand", func(w *track.WaveTrack) error {
		// Other selected tracks need not have a line at t
		if err := w.ExpandCutLine(t); err != nil && !errors.Is(err, track.ErrNoCutLine) {
			return err
		}
		return nil
	})
}

// RemoveCutLine discards the audio held by cut line t on selected wave tracks
func (p *Project) RemoveCutLine(t float64) error {
	if !p.hasCutLine(t) {
		return fmt.Errorf("%w at %.6f", track.ErrNoCutLine, t)
	}
	return p.waveEdit("Removed cut line", "Remove Cut Line", func(w *track.WaveTrack) error {
		w.RemoveCutLine(t)
		return nil
	})
}

// SetClipTrim changes the hidden left and right time of one clip
func (p *Project) SetClipTrim(trackIndex, clip int, left, right float64) error {
	if trackIndex < 0 || trackIndex >= p.tracks.Len() {
		return fmt.Errorf("no track %d", trackIndex)
	}
	if _, ok := p.tracks.At(trackIndex).(*track.WaveTrack); !ok {
		return fmt.Errorf("track %d is not a wave track", trackIndex)
	}
	return p.transact("Changed clip trim", "Trim Clip", func(l *track.List) (history.Selection, error) {
		return p.sel, l.At(trackIndex).(*track.WaveTrack).SetClipTrim(clip, left, right)
	})
}

func (p *Project) hasCutLine(t float64) bool {
	for _, w := range selectedWaves(p.tracks) {
		s := audio.TimeToSamples(t, w.Rate())
		for _, pos := range w.CutLines() {
			if audio.TimeToSamples(pos, w.Rate()) == s {
				return true
			}
		}
	}
	return false
}

func selectedWaves(l *track.List) []*track.WaveTrack {
	var out []*track.WaveTrack
	for _, t := range l.SelectedTracks() {
		if w, ok := t.(*track.WaveTrack); ok {
			out = append(out, w)
		}
	}
	return out
}
