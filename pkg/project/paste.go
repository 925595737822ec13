// ABOUTME: Paste from the shared clipboard into the project
// ABOUTME: Handles the hidden-data paste policy, track correspondence and sync-lock adjustment
package project

import (
	"fmt"
	"strings"

	"github.com/Resonate-Protocol/resonate-edit/pkg/history"
	"github.com/Resonate-Protocol/resonate-edit/pkg/track"
)

// PastePolicy decides what happens to trimmed-away audio when pasting
// content that came from another project
type PastePolicy int

const (
	// PasteAsk consults Config.Ask when the content has hidden data
	PasteAsk PastePolicy = iota
	// PasteKeep pastes hidden data as is
	PasteKeep
	// PasteDiscard drops hidden data from the pasted copy
	PasteDiscard
)

func (p PastePolicy) String() string {
	switch p {
	case PasteAsk:
		return "ask"
	case PasteKeep:
		return "keep"
	case PasteDiscard:
		return "discard"
	}
	return fmt.Sprintf("PastePolicy(%d)", int(p))
}

// ParsePastePolicy accepts "ask", "keep" or "discard"
func ParsePastePolicy(s string) (PastePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ask", "":
		return PasteAsk, nil
	case "keep":
		return PasteKeep, nil
	case "discard":
		return PasteDiscard, nil
	}
	return PasteAsk, fmt.Errorf("unknown paste policy %q", s)
}

// PasteChoice is the answer of Config.Ask
type PasteChoice int

const (
	ChoiceKeep PasteChoice = iota
	ChoiceDiscard
	ChoiceCancel
)

// EstimateCopyBytes estimates the storage a full copy of l would take
func EstimateCopyBytes(l *track.List) int64 {
	return l.SequenceSamplesCount() * 4
}

// pasteSource returns the list to paste from. The caller releases it.
func (p *Project) pasteSource() (*track.List, error) {
	src := p.clipboard.Tracks().Clone()
	if p.clipboard.Owner() == p.id || !src.HasHiddenData() {
		return src, nil
	}

	discard := false
	switch p.cfg.PastePolicy {
	case PasteDiscard:
		discard = true
	case PasteAsk:
		if p.cfg.Ask == nil {
			break
		}
		choice, err := p.cfg.Ask(EstimateCopyBytes(src))
		if err != nil {
			src.Release()
			return nil, err
		}
		switch choice {
		case ChoiceCancel:
			src.Release()
			return nil, ErrPasteCancelled
		case ChoiceDiscard:
			discard = true
		}
	}

	if discard {
		for _, w := range src.WaveTracks() {
			if err := w.DiscardHidden(); err != nil {
				src.Release()
				return nil, fmt.Errorf("failed to discard hidden audio: %w", err)
			}
		}
	}
	return src, nil
}

type pastePair struct{ src, dst int }

// correspondence pairs each source track with a destination in l. With one
// track selected, that track and every track after it are candidates;
// otherwise only selected tracks are. Destinations that cannot hold the
// next source are skipped.
func correspondence(l, src *track.List) ([]pastePair, error) {
	candidates := l.SelectedIndices()
	single := len(candidates) == 1
	if single {
		for i := candidates[0] + 1; i < l.Len(); i++ {
			candidates = append(candidates, i)
		}
	}

	var pairs []pastePair
	next := 0
	for _, d := range candidates {
		if next == src.Len() {
			break
		}
		if track.FitsInto(src.At(next), l.At(d)) {
			pairs = append(pairs, pastePair{src: next, dst: d})
			next++
		}
	}
	if next < src.Len() {
		if single {
			return nil, fmt.Errorf("%w: the content you are trying to paste will span across more tracks than you currently have available at the point of insertion", ErrNotEnoughTracks)
		}
		return nil, fmt.Errorf("%w: there are not enough tracks selected to accommodate your copied content", ErrNotEnoughTracks)
	}
	return pairs, nil
}

// Paste replaces the selection with the clipboard. With no track selected
// the content goes to new tracks at the selection start.
func (p *Project) Paste() error {
	if p.clipboard.Empty() {
		return ErrClipboardEmpty
	}
	src, err := p.pasteSource()
	if err != nil {
		return err
	}
	defer src.Release()

	t0, t1 := p.sel.T0, p.sel.T1
	newT1 := p.quantize(t0 + p.clipboard.Duration())

	if !p.tracks.AnySelected() {
		return p.pasteNew(src, t0, newT1)
	}

	return p.transact("Pasted from the clipboard", "Paste", func(l *track.List) (history.Selection, error) {
		pairs, err := correspondence(l, src)
		if err != nil {
			return p.sel, err
		}

		pasted := make(map[int]bool, len(pairs))
		for _, pr := range pairs {
			dst := l.At(pr.dst)
			if err := track.ClearAndPaste(dst, t0, t1, src.At(pr.src)); err != nil {
				return p.sel, fmt.Errorf("failed to paste into %q: %w", dst.Name(), err)
			}
			pasted[pr.dst] = true
		}

		if p.cfg.SyncLock && t1 != newT1 {
			if err := syncLockAdjust(l, pasted, t1, newT1); err != nil {
				return p.sel, err
			}
		}
		return history.Selection{T0: t0, T1: newT1}, nil
	})
}

// syncLockAdjust moves the unpasted members of every group that received
// content so they stay aligned with the pasted tracks
func syncLockAdjust(l *track.List, pasted map[int]bool, t1, newT1 float64) error {
	adjusted := make(map[int]bool)
	for i := range pasted {
		for _, j := range l.SyncLockGroup(i) {
			if pasted[j] || adjusted[j] {
				continue
			}
			adjusted[j] = true
			t := l.At(j)
			if t1 > t.EndTime() {
				continue
			}
			if err := t.SyncLockAdjust(t1, newT1); err != nil {
				return fmt.Errorf("failed to adjust %q: %w", t.Name(), err)
			}
		}
	}
	return nil
}

// pasteNew appends one new selected track per source track, starting at t0
func (p *Project) pasteNew(src *track.List, t0, newT1 float64) error {
	return p.transact("Pasted from the clipboard", "Paste", func(l *track.List) (history.Selection, error) {
		for _, s := range src.Tracks() {
			var dst track.Track
			switch v := s.(type) {
			case *track.WaveTrack:
				w := track.NewWaveTrack(p.store, v.Rate(), v.Channels(), p.cfg.MaxBlock)
				if err := w.Paste(t0, v); err != nil {
					w.Release()
					return p.sel, fmt.Errorf("failed to paste %q: %w", s.Name(), err)
				}
				dst = w
			default:
				dst = s.Clone()
				dst.Shift(t0)
			}
			dst.SetName(s.Name())
			l.Add(dst)
			l.SetSelected(l.Len()-1, true)
		}
		return history.Selection{T0: t0, T1: newT1}, nil
	})
}
