// ABOUTME: Project owns the live track list, selection, undo history and block store
// ABOUTME: Every structural command edits a clone and commits only on success
package project

import (
	"errors"
	"fmt"

	"github.com/Resonate-Protocol/resonate-edit/pkg/audio"
	"github.com/Resonate-Protocol/resonate-edit/pkg/clipboard"
	"github.com/Resonate-Protocol/resonate-edit/pkg/history"
	"github.com/Resonate-Protocol/resonate-edit/pkg/sampleblock"
	"github.com/Resonate-Protocol/resonate-edit/pkg/track"
	"github.com/google/uuid"
)

var (
	// ErrNotEnoughTracks rejects a paste whose source tracks have no destination
	ErrNotEnoughTracks = errors.New("not enough tracks")

	// ErrClipboardEmpty is returned by paste with nothing on the clipboard
	ErrClipboardEmpty = errors.New("clipboard is empty")

	// ErrPasteCancelled is returned when the paste policy callback cancels
	ErrPasteCancelled = errors.New("paste cancelled")

	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")

	// ErrEmptySelection is returned by range commands given a point selection
	ErrEmptySelection = errors.New("selection is empty")
)

// DefaultRate is the project rate when none is configured
const DefaultRate = 44100

// DefaultDisjoinMinSilence is the shortest silence Disjoin splits at, in seconds
const DefaultDisjoinMinSilence = 0.01

// Config holds the editing preferences commands read
type Config struct {
	Rate     int
	Channels int // channels of tracks created by NewWaveTrack
	MaxBlock int

	SyncLock bool
	CutLines bool

	PastePolicy PastePolicy
	// Ask decides Keep, Discard or Cancel under PasteAsk; nil means Keep
	Ask func(estimatedBytes int64) (PasteChoice, error)

	DisjoinMinSilence float64
	HistoryDepth      int
}

// Project is single-owner: commands must not run concurrently
type Project struct {
	id        uuid.UUID
	cfg       Config
	store     *sampleblock.Store
	clipboard *clipboard.Clipboard
	history   *history.History

	tracks *track.List
	sel    history.Selection
}

// New creates an empty project. The clipboard may be shared between projects.
func New(store *sampleblock.Store, cb *clipboard.Clipboard, cfg Config) *Project {
	if cfg.Rate <= 0 {
		cfg.Rate = DefaultRate
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if cfg.DisjoinMinSilence <= 0 {
		cfg.DisjoinMinSilence = DefaultDisjoinMinSilence
	}
	if store == nil {
		store = sampleblock.NewMemoryStore()
	}
	if cb == nil {
		cb = clipboard.New()
	}

	p := &Project{
		id:        uuid.New(),
		cfg:       cfg,
		store:     store,
		clipboard: cb,
		history:   history.New(cfg.HistoryDepth),
		tracks:    track.NewList(),
	}
	p.history.Push(history.State{
		Tracks: p.tracks.Clone(),
		Long:   "Created new project",
		Short:  "New",
	})
	return p
}

func (p *Project) ID() uuid.UUID                     { return p.id }
func (p *Project) Rate() int                         { return p.cfg.Rate }
func (p *Project) Config() Config                    { return p.cfg }
func (p *Project) Store() *sampleblock.Store         { return p.store }
func (p *Project) Clipboard() *clipboard.Clipboard   { return p.clipboard }
func (p *Project) History() *history.History         { return p.history }
func (p *Project) Selection() history.Selection      { return p.sel }
func (p *Project) SetSyncLock(on bool)               { p.cfg.SyncLock = on }
func (p *Project) SetPastePolicy(policy PastePolicy) { p.cfg.PastePolicy = policy }

// Tracks returns the live list. Selection flags may be changed directly;
// structural edits must go through commands.
func (p *Project) Tracks() *track.List { return p.tracks }

// Snapshot returns a frozen copy for mixing or export; the caller releases it
func (p *Project) Snapshot() *track.List { return p.tracks.Clone() }

// quantize snaps t to the nearest project sample
func (p *Project) quantize(t float64) float64 {
	return audio.SamplesToTime(audio.TimeToSamples(t, p.cfg.Rate), p.cfg.Rate)
}

// SetSelection sets the time selection, snapped to project samples
func (p *Project) SetSelection(t0, t1 float64) error {
	if t1 < t0 {
		return fmt.Errorf("%w: [%.6f, %.6f)", track.ErrInvalidRange, t0, t1)
	}
	p.sel = history.Selection{T0: p.quantize(t0), T1: p.quantize(t1)}
	return nil
}

// NewWaveTrack creates an empty wave track using the project store and rate
func (p *Project) NewWaveTrack(channels int) *track.WaveTrack {
	if channels <= 0 {
		channels = p.cfg.Channels
	}
	return track.NewWaveTrack(p.store, p.cfg.Rate, channels, p.cfg.MaxBlock)
}

// AddTracks appends tracks as one undoable step; the project takes ownership
func (p *Project) AddTracks(long, short string, tracks ...track.Track) error {
	return p.transact(long, short, func(l *track.List) (history.Selection, error) {
		for _, t := range tracks {
			l.Add(t)
		}
		return p.sel, nil
	})
}

// PushState records the live tracks as a new undo state. Use it after
// non-structural changes such as gain or track selection.
func (p *Project) PushState(long, short string) {
	p.history.Push(history.State{
		Tracks:    p.tracks.Clone(),
		Selection: p.sel,
		Long:      long,
		Short:     short,
	})
}

// transact runs edit on a clone of the track list. On error the clone is
// released and the project is unchanged; on success it replaces the live
// list and exactly one history state is pushed.
func (p *Project) transact(long, short string, edit func(l *track.List) (history.Selection, error)) error {
	work := p.tracks.Clone()
	sel, err := edit(work)
	if err != nil {
		work.Release()
		return err
	}

	old := p.tracks
	p.tracks = work
	p.sel = sel
	old.Release()

	p.PushState(long, short)
	return nil
}

// Undo restores the previous state
func (p *Project) Undo() error {
	s, ok := p.history.Undo()
	if !ok {
		return ErrNothingToUndo
	}
	p.restore(s)
	return nil
}

// Redo restores the next state
func (p *Project) Redo() error {
	s, ok := p.history.Redo()
	if !ok {
		return ErrNothingToRedo
	}
	p.restore(s)
	return nil
}

// restore installs a clone so the stored snapshot stays immutable
func (p *Project) restore(s history.State) {
	old := p.tracks
	p.tracks = s.Tracks.Clone()
	p.sel = s.Selection
	old.Release()
}

// Close releases the live tracks and all history. The clipboard is
// detached and stays usable by other projects.
func (p *Project) Close() {
	p.history.Clear()
	p.tracks.Release()
}

// targets returns the indices commands act on: selected tracks, plus their
// sync-lock groups when sync-lock is on and withGroups is set
func (p *Project) targets(l *track.List, withGroups bool) []int {
	if !withGroups || !p.cfg.SyncLock {
		return l.SelectedIndices()
	}
	var out []int
	for i := 0; i < l.Len(); i++ {
		for _, j := range l.SyncLockGroup(i) {
			if l.Selected(j) {
				out = append(out, i)
				break
			}
		}
	}
	return out
}

// requireRange rejects a point selection
func (p *Project) requireRange() error {
	if p.sel.T1 <= p.sel.T0 {
		return ErrEmptySelection
	}
	return nil
}
