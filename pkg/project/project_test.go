// ABOUTME: Tests for project commands, paste and undo
// ABOUTME: Uses small in-memory tracks at 100 Hz so times map to whole samples
package project

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/Resonate-Protocol/resonate-edit/pkg/clipboard"
	"github.com/Resonate-Protocol/resonate-edit/pkg/effect"
	"github.com/Resonate-Protocol/resonate-edit/pkg/sampleblock"
	"github.com/Resonate-Protocol/resonate-edit/pkg/track"
)

const testRate = 100

func ramp(n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(i+1) / 1000
	}
	return out
}

func newProject(t *testing.T, cfg Config) *Project {
	t.Helper()
	if cfg.Rate == 0 {
		cfg.Rate = testRate
	}
	if cfg.MaxBlock == 0 {
		cfg.MaxBlock = 16
	}
	p := New(nil, nil, cfg)
	t.Cleanup(p.Close)
	return p
}

// addWave appends a mono track holding samples at time at
func addWave(t *testing.T, p *Project, at float64, samples []float32) {
	t.Helper()
	w := p.NewWaveTrack(1)
	if _, err := w.NewClipFromSamples(at, [][]float32{samples}); err != nil {
		t.Fatalf("NewClipFromSamples failed: %v", err)
	}
	if err := p.AddTracks("Added track", "Add", w); err != nil {
		t.Fatalf("AddTracks failed: %v", err)
	}
}

func wave(t *testing.T, p *Project, i int) *track.WaveTrack {
	t.Helper()
	w, ok := p.Tracks().At(i).(*track.WaveTrack)
	if !ok {
		t.Fatalf("Track %d is not a wave track", i)
	}
	return w
}

func read(t *testing.T, w *track.WaveTrack, start, n int64) []float32 {
	t.Helper()
	out := make([]float32, n)
	if err := w.Get(0, start, out); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	return out
}

func equal(a, b []float32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func selectRange(t *testing.T, p *Project, t0, t1 float64) {
	t.Helper()
	if err := p.SetSelection(t0, t1); err != nil {
		t.Fatalf("SetSelection failed: %v", err)
	}
}

func TestUndoRedoRestoresContent(t *testing.T) {
	p := newProject(t, Config{})
	orig := ramp(100)
	addWave(t, p, 0, orig)
	p.Tracks().SetSelected(0, true)
	selectRange(t, p, 0.2, 0.5)

	if err := p.Delete(); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if end := wave(t, p, 0).EndTime(); !approx(end, 0.7) {
		t.Errorf("Expected end 0.7 after delete, got %f", end)
	}
	if sel := p.Selection(); !approx(sel.T0, 0.2) || !approx(sel.T1, 0.2) {
		t.Errorf("Expected selection to collapse to 0.2, got %+v", sel)
	}
	if s, _ := p.History().Current(); s.Short != "Delete" || !strings.HasPrefix(s.Long, "Deleted 0.30 seconds at t=0.20") {
		t.Errorf("Unexpected history entry %q / %q", s.Long, s.Short)
	}

	if err := p.Undo(); err != nil {
		t.Fatalf("Undo failed: %v", err)
	}
	if got := read(t, wave(t, p, 0), 0, 100); !equal(got, orig) {
		t.Errorf("Undo did not restore the samples")
	}

	if err := p.Redo(); err != nil {
		t.Fatalf("Redo failed: %v", err)
	}
	if end := wave(t, p, 0).EndTime(); !approx(end, 0.7) {
		t.Errorf("Expected end 0.7 after redo, got %f", end)
	}
	if err := p.Redo(); !errors.Is(err, ErrNothingToRedo) {
		t.Errorf("Expected ErrNothingToRedo, got %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := p.Undo(); err != nil {
			t.Fatalf("Undo %d failed: %v", i, err)
		}
	}
	if p.Tracks().Len() != 0 {
		t.Errorf("Expected the initial empty project, got %d tracks", p.Tracks().Len())
	}
	if err := p.Undo(); !errors.Is(err, ErrNothingToUndo) {
		t.Errorf("Expected ErrNothingToUndo, got %v", err)
	}
}

func TestCutThenPasteRestores(t *testing.T) {
	p := newProject(t, Config{})
	orig := ramp(100)
	addWave(t, p, 0, orig)
	p.Tracks().SetSelected(0, true)
	selectRange(t, p, 0.2, 0.5)

	if err := p.Cut(); err != nil {
		t.Fatalf("Cut failed: %v", err)
	}
	if end := wave(t, p, 0).EndTime(); !approx(end, 0.7) {
		t.Errorf("Expected end 0.7 after cut, got %f", end)
	}
	if !approx(p.Clipboard().Duration(), 0.3) {
		t.Errorf("Expected clipboard duration 0.3, got %f", p.Clipboard().Duration())
	}

	if err := p.Paste(); err != nil {
		t.Fatalf("Paste failed: %v", err)
	}
	if got := read(t, wave(t, p, 0), 0, 100); !equal(got, orig) {
		t.Errorf("Cut then paste did not restore the track")
	}
	if sel := p.Selection(); !approx(sel.T0, 0.2) || !approx(sel.T1, 0.5) {
		t.Errorf("Expected selection [0.2, 0.5), got %+v", sel)
	}
	if s, _ := p.History().Current(); s.Long != "Pasted from the clipboard" || s.Short != "Paste" {
		t.Errorf("Unexpected history entry %q / %q", s.Long, s.Short)
	}
}

func TestPasteIntoNewTrack(t *testing.T) {
	const rate = 44100
	p := newProject(t, Config{Rate: rate, MaxBlock: 4096})

	orig := make([]float32, rate)
	for i := range orig {
		orig[i] = float32(math.Sin(2*math.Pi*440*float64(i)/rate)) / 2
	}
	addWave(t, p, 0, orig)
	p.Tracks().SetSelected(0, true)
	selectRange(t, p, 0, 1)

	if err := p.Cut(); err != nil {
		t.Fatalf("Cut failed: %v", err)
	}
	if src := wave(t, p, 0); src.NumClips() != 0 || src.EndTime() != 0 {
		t.Errorf("Expected the source to be empty, got %d clips ending at %f", src.NumClips(), src.EndTime())
	}

	p.Tracks().SelectAll(false)
	selectRange(t, p, 2, 2)
	if err := p.Paste(); err != nil {
		t.Fatalf("Paste failed: %v", err)
	}
	if p.Tracks().Len() != 2 {
		t.Fatalf("Expected a new track, got %d tracks", p.Tracks().Len())
	}
	dst := wave(t, p, 1)
	if !approx(dst.StartTime(), 2) || !approx(dst.EndTime(), 3) {
		t.Errorf("Expected new track at [2, 3), got [%f, %f)", dst.StartTime(), dst.EndTime())
	}
	if got := read(t, dst, 2*rate, rate); !equal(got, orig) {
		t.Errorf("Pasted samples differ from the cut samples")
	}
	if !p.Tracks().Selected(1) {
		t.Errorf("Expected the new track to be selected")
	}
	if sel := p.Selection(); !approx(sel.T0, 2) || !approx(sel.T1, 3) {
		t.Errorf("Expected selection [2, 3), got %+v", sel)
	}
}

func TestPasteNotEnoughTracks(t *testing.T) {
	p := newProject(t, Config{})
	addWave(t, p, 0, ramp(100))
	addWave(t, p, 0, ramp(100))
	p.Tracks().SelectAll(true)
	selectRange(t, p, 0, 0.2)
	if err := p.Copy(); err != nil {
		t.Fatalf("Copy failed: %v", err)
	}
	selectRange(t, p, 0, 0)

	// The last track alone cannot take two sources
	p.Tracks().SelectAll(false)
	p.Tracks().SetSelected(1, true)
	depth := p.History().Len()

	err := p.Paste()
	if !errors.Is(err, ErrNotEnoughTracks) {
		t.Fatalf("Expected ErrNotEnoughTracks, got %v", err)
	}
	if !strings.Contains(err.Error(), "span across more tracks") {
		t.Errorf("Unexpected message %q", err)
	}
	if p.History().Len() != depth {
		t.Errorf("Rejected paste pushed a history state")
	}
	for i := 0; i < 2; i++ {
		if end := wave(t, p, i).EndTime(); !approx(end, 1) {
			t.Errorf("Track %d changed: end %f", i, end)
		}
	}

	// The first track and the one after it can
	p.Tracks().SetSelected(1, false)
	p.Tracks().SetSelected(0, true)
	if err := p.Paste(); err != nil {
		t.Fatalf("Paste failed: %v", err)
	}
	for i := 0; i < 2; i++ {
		if end := wave(t, p, i).EndTime(); !approx(end, 1.2) {
			t.Errorf("Expected track %d to end at 1.2, got %f", i, end)
		}
	}
}

func TestPasteMultipleSelectedNeedsEnough(t *testing.T) {
	p := newProject(t, Config{})
	for i := 0; i < 3; i++ {
		addWave(t, p, 0, ramp(100))
	}
	p.Tracks().SelectAll(true)
	selectRange(t, p, 0, 0.2)
	if err := p.Copy(); err != nil {
		t.Fatalf("Copy failed: %v", err)
	}

	p.Tracks().SelectAll(false)
	p.Tracks().SetSelected(0, true)
	p.Tracks().SetSelected(2, true)
	err := p.Paste()
	if !errors.Is(err, ErrNotEnoughTracks) {
		t.Fatalf("Expected ErrNotEnoughTracks, got %v", err)
	}
	if !strings.Contains(err.Error(), "not enough tracks selected") {
		t.Errorf("Unexpected message %q", err)
	}
}

func TestPasteSyncLockAdjustsGroup(t *testing.T) {
	p := newProject(t, Config{SyncLock: true})
	addWave(t, p, 0, ramp(100))
	addWave(t, p, 0, ramp(100))
	p.Tracks().SetSelected(0, true)
	selectRange(t, p, 0, 0.1)
	if err := p.Copy(); err != nil {
		t.Fatalf("Copy failed: %v", err)
	}

	selectRange(t, p, 0.5, 0.5)
	if err := p.Paste(); err != nil {
		t.Fatalf("Paste failed: %v", err)
	}
	for i := 0; i < 2; i++ {
		if end := wave(t, p, i).EndTime(); !approx(end, 1.1) {
			t.Errorf("Expected track %d to end at 1.1, got %f", i, end)
		}
	}
	got := read(t, wave(t, p, 1), 50, 10)
	if !equal(got, make([]float32, 10)) {
		t.Errorf("Expected silence inserted in the unselected track, got %v", got)
	}
	if got := read(t, wave(t, p, 1), 60, 1); got[0] != ramp(100)[50] {
		t.Errorf("Expected later audio moved right, got %v", got[0])
	}
}

func TestPastePolicy(t *testing.T) {
	tests := []struct {
		name    string
		policy  PastePolicy
		choice  PasteChoice
		same    bool
		stored  int64
		wantErr error
	}{
		{"keep", PasteKeep, ChoiceKeep, false, 100, nil},
		{"discard", PasteDiscard, ChoiceKeep, false, 30, nil},
		{"ask discard", PasteAsk, ChoiceDiscard, false, 30, nil},
		{"ask keep", PasteAsk, ChoiceKeep, false, 100, nil},
		{"ask cancel", PasteAsk, ChoiceCancel, false, 0, ErrPasteCancelled},
		{"same project ignores policy", PasteDiscard, ChoiceKeep, true, 100, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := sampleblock.NewMemoryStore()
			cb := clipboard.New()
			src := New(store, cb, Config{Rate: testRate, MaxBlock: 16})
			defer src.Close()
			addWave(t, src, 0, ramp(100))
			src.Tracks().SetSelected(0, true)
			selectRange(t, src, 0.2, 0.5)
			if err := src.Copy(); err != nil {
				t.Fatalf("Copy failed: %v", err)
			}

			var asked int64
			dst := src
			if !tt.same {
				dst = New(store, cb, Config{
					Rate:        testRate,
					MaxBlock:    16,
					PastePolicy: tt.policy,
					Ask: func(estimated int64) (PasteChoice, error) {
						asked = estimated
						return tt.choice, nil
					},
				})
				defer dst.Close()
			} else {
				dst.SetPastePolicy(tt.policy)
				dst.Tracks().SelectAll(false)
			}
			selectRange(t, dst, 0, 0)
			before := dst.Tracks().Len()

			err := dst.Paste()
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Expected %v, got %v", tt.wantErr, err)
				}
				if dst.Tracks().Len() != before {
					t.Errorf("Cancelled paste added tracks")
				}
				return
			}
			if err != nil {
				t.Fatalf("Paste failed: %v", err)
			}
			w := wave(t, dst, dst.Tracks().Len()-1)
			if got := w.SequenceSamplesCount(); got != tt.stored {
				t.Errorf("Expected %d stored samples, got %d", tt.stored, got)
			}
			if tt.policy == PasteAsk && asked != 400 {
				t.Errorf("Expected Ask with 400 bytes, got %d", asked)
			}
		})
	}
}

func TestParsePastePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    PastePolicy
		wantErr bool
	}{
		{"ask", PasteAsk, false},
		{"Keep", PasteKeep, false},
		{" discard ", PasteDiscard, false},
		{"", PasteAsk, false},
		{"always", PasteAsk, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePastePolicy(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePastePolicy(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParsePastePolicy(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestPasteEmptyClipboard(t *testing.T) {
	p := newProject(t, Config{})
	if err := p.Paste(); !errors.Is(err, ErrClipboardEmpty) {
		t.Errorf("Expected ErrClipboardEmpty, got %v", err)
	}
}

func TestRangeCommandsNeedSelection(t *testing.T) {
	p := newProject(t, Config{})
	addWave(t, p, 0, ramp(100))
	p.Tracks().SetSelected(0, true)
	selectRange(t, p, 0.3, 0.3)

	commands := map[string]func() error{
		"Copy":        p.Copy,
		"Cut":         p.Cut,
		"Delete":      p.Delete,
		"SplitCut":    p.SplitCut,
		"SplitDelete": p.SplitDelete,
		"Silence":     p.Silence,
		"Join":        p.Join,
		"Disjoin":     p.Disjoin,
		"SplitNew":    p.SplitNew,
		"Duplicate":   p.Duplicate,
	}
	for name, cmd := range commands {
		if err := cmd(); !errors.Is(err, ErrEmptySelection) {
			t.Errorf("%s: expected ErrEmptySelection, got %v", name, err)
		}
	}
	if p.History().Len() != 2 {
		t.Errorf("Expected no new history states, got %d", p.History().Len())
	}
}

func TestSplitCommands(t *testing.T) {
	orig := ramp(100)
	tests := []struct {
		name   string
		run    func(p *Project) error
		clips  int
		tracks int
		short  string
	}{
		{"split", (*Project).Split, 3, 1, "Split"},
		{"split delete", (*Project).SplitDelete, 2, 1, "Split Delete"},
		{"split cut", (*Project).SplitCut, 2, 1, "Split Cut"},
		{"split new", (*Project).SplitNew, 2, 2, "Split New"},
		{"duplicate", (*Project).Duplicate, 1, 2, "Duplicate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newProject(t, Config{})
			addWave(t, p, 0, orig)
			p.Tracks().SetSelected(0, true)
			selectRange(t, p, 0.2, 0.5)

			if err := tt.run(p); err != nil {
				t.Fatalf("%s failed: %v", tt.name, err)
			}
			if n := wave(t, p, 0).NumClips(); n != tt.clips {
				t.Errorf("Expected %d clips, got %d", tt.clips, n)
			}
			if n := p.Tracks().Len(); n != tt.tracks {
				t.Errorf("Expected %d tracks, got %d", tt.tracks, n)
			}
			if s, _ := p.History().Current(); s.Short != tt.short {
				t.Errorf("Expected history %q, got %q", tt.short, s.Short)
			}
			if !approx(wave(t, p, 0).EndTime(), 1) {
				t.Errorf("Expected the track to keep its length, end %f", wave(t, p, 0).EndTime())
			}
			if tt.tracks == 2 {
				w := wave(t, p, 1)
				if !approx(w.StartTime(), 0.2) || !approx(w.EndTime(), 0.5) {
					t.Errorf("Expected new track at [0.2, 0.5), got [%f, %f)", w.StartTime(), w.EndTime())
				}
				if got := read(t, w, 20, 30); !equal(got, orig[20:50]) {
					t.Errorf("New track holds the wrong samples")
				}
			}
		})
	}
}

func TestJoinAfterSplit(t *testing.T) {
	p := newProject(t, Config{})
	orig := ramp(100)
	addWave(t, p, 0, orig)
	p.Tracks().SetSelected(0, true)
	selectRange(t, p, 0.2, 0.5)
	if err := p.Split(); err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	selectRange(t, p, 0, 1)
	if err := p.Join(); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	w := wave(t, p, 0)
	if w.NumClips() != 1 {
		t.Errorf("Expected one clip after join, got %d", w.NumClips())
	}
	if got := read(t, w, 0, 100); !equal(got, orig) {
		t.Errorf("Join changed the samples")
	}
	if s, _ := p.History().Current(); s.Long != "Joined 1.00 seconds at t=0.00" {
		t.Errorf("Unexpected history entry %q", s.Long)
	}
}

func TestSilenceAndTrim(t *testing.T) {
	p := newProject(t, Config{})
	orig := ramp(100)
	addWave(t, p, 0, orig)
	p.Tracks().SetSelected(0, true)
	selectRange(t, p, 0.2, 0.5)

	if err := p.Silence(); err != nil {
		t.Fatalf("Silence failed: %v", err)
	}
	w := wave(t, p, 0)
	if got := read(t, w, 20, 30); !equal(got, make([]float32, 30)) {
		t.Errorf("Expected silence in the selection")
	}
	if got := read(t, w, 50, 50); !equal(got, orig[50:]) {
		t.Errorf("Silence changed audio outside the selection")
	}

	if err := p.Trim(); err != nil {
		t.Fatalf("Trim failed: %v", err)
	}
	w = wave(t, p, 0)
	if !approx(w.StartTime(), 0.2) || !approx(w.EndTime(), 0.5) {
		t.Errorf("Expected trimmed track at [0.2, 0.5), got [%f, %f)", w.StartTime(), w.EndTime())
	}
	if s, _ := p.History().Current(); s.Short != "Trim Audio" {
		t.Errorf("Expected Trim Audio, got %q", s.Short)
	}

	depth := p.History().Len()
	selectRange(t, p, 0.3, 0.3)
	if err := p.Trim(); err != nil {
		t.Fatalf("Trim on a point failed: %v", err)
	}
	if p.History().Len() != depth {
		t.Errorf("Trim on a point should not push history")
	}
}

func TestCutLines(t *testing.T) {
	p := newProject(t, Config{CutLines: true})
	orig := ramp(100)
	addWave(t, p, 0, orig)
	p.Tracks().SetSelected(0, true)
	selectRange(t, p, 0.2, 0.5)

	if err := p.Cut(); err != nil {
		t.Fatalf("Cut failed: %v", err)
	}
	if lines := wave(t, p, 0).CutLines(); len(lines) != 1 || !approx(lines[0], 0.2) {
		t.Fatalf("Expected a cut line at 0.2, got %v", lines)
	}
	if err := p.ExpandCutLine(0.4); !errors.Is(err, track.ErrNoCutLine) {
		t.Errorf("Expected ErrNoCutLine for a missing cut line, got %v", err)
	}
	if err := p.ExpandCutLine(0.2); err != nil {
		t.Fatalf("ExpandCutLine failed: %v", err)
	}
	if got := read(t, wave(t, p, 0), 0, 100); !equal(got, orig) {
		t.Errorf("Expanding the cut line did not restore the audio")
	}

	if err := p.Undo(); err != nil {
		t.Fatalf("Undo failed: %v", err)
	}
	if err := p.RemoveCutLine(0.2); err != nil {
		t.Fatalf("RemoveCutLine failed: %v", err)
	}
	if len(wave(t, p, 0).CutLines()) != 0 {
		t.Errorf("Expected the cut line removed")
	}
}

func TestTrimmedCutLineIsNotExpanded(t *testing.T) {
	p := newProject(t, Config{CutLines: true})
	orig := ramp(100)
	addWave(t, p, 0, orig)
	p.Tracks().SetSelected(0, true)

	selectRange(t, p, 0.3, 0.4)
	if err := p.Cut(); err != nil {
		t.Fatalf("Cut failed: %v", err)
	}
	selectRange(t, p, 0.5, 0.9)
	if err := p.Trim(); err != nil {
		t.Fatalf("Trim failed: %v", err)
	}

	states := p.History().Len()
	if err := p.ExpandCutLine(0.3); !errors.Is(err, track.ErrNoCutLine) {
		t.Fatalf("Expected ErrNoCutLine, got %v", err)
	}
	if p.History().Len() != states {
		t.Errorf("Failed expand pushed history")
	}
	if got := read(t, wave(t, p, 0), 50, 40); !equal(got, orig[60:]) {
		t.Errorf("Failed expand changed the audio")
	}

	if err := p.SetClipTrim(0, 0, 0, 0); err != nil {
		t.Fatalf("SetClipTrim failed: %v", err)
	}
	if err := p.ExpandCutLine(0.3); err != nil {
		t.Fatalf("ExpandCutLine failed: %v", err)
	}
	if got := read(t, wave(t, p, 0), 0, 100); !equal(got, orig) {
		t.Errorf("Expanding the revealed cut line did not restore the audio")
	}
}

func TestSetClipTrim(t *testing.T) {
	p := newProject(t, Config{})
	addWave(t, p, 0, ramp(100))
	p.Tracks().SetSelected(0, true)
	selectRange(t, p, 0.4, 0.4)
	if err := p.Split(); err != nil {
		t.Fatalf("Split failed: %v", err)
	}

	states := p.History().Len()
	for _, tc := range []struct {
		name        string
		track, clip int
	}{
		{"overlapping neighbour", 0, 1},
		{"missing clip", 0, 5},
		{"missing track", 3, 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if err := p.SetClipTrim(tc.track, tc.clip, 0, 0); err == nil {
				t.Fatalf("Expected an error")
			}
			if p.History().Len() != states {
				t.Errorf("Rejected trim pushed history")
			}
		})
	}

	if err := p.SetClipTrim(0, 1, 0.5, 0); err != nil {
		t.Fatalf("SetClipTrim failed: %v", err)
	}
	if c := wave(t, p, 0).Clips()[1]; !approx(c.PlayStart(), 0.5) {
		t.Errorf("Expected the clip to start at 0.5, got %f", c.PlayStart())
	}
	if err := p.Undo(); err != nil {
		t.Fatalf("Undo failed: %v", err)
	}
	if c := wave(t, p, 0).Clips()[1]; !approx(c.PlayStart(), 0.4) {
		t.Errorf("Undo left the clip at %f", c.PlayStart())
	}
}

func TestApplyEffect(t *testing.T) {
	p := newProject(t, Config{})
	addWave(t, p, 0, ramp(100))
	p.Tracks().SetSelected(0, true)
	selectRange(t, p, 0, 1)

	if err := p.ApplyEffect(effect.Invert{}); err != nil {
		t.Fatalf("ApplyEffect failed: %v", err)
	}
	got := read(t, wave(t, p, 0), 0, 3)
	want := []float32{-0.001, -0.002, -0.003}
	if !equal(got, want) {
		t.Errorf("Expected inverted samples %v, got %v", want, got)
	}
	if err := p.Undo(); err != nil {
		t.Fatalf("Undo failed: %v", err)
	}
	if got := read(t, wave(t, p, 0), 0, 1); got[0] != 0.001 {
		t.Errorf("Undo did not restore the effect input, got %v", got[0])
	}
}

func TestCloseFreesBlocks(t *testing.T) {
	store := sampleblock.NewMemoryStore()
	p := New(store, nil, Config{Rate: testRate, MaxBlock: 16})
	addWave(t, p, 0, ramp(100))
	p.Tracks().SetSelected(0, true)
	selectRange(t, p, 0.2, 0.5)
	if err := p.Delete(); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := p.Copy(); !errors.Is(err, ErrEmptySelection) {
		t.Fatalf("Expected ErrEmptySelection, got %v", err)
	}

	p.Close()
	if live := store.Stats().Live; live != 0 {
		t.Errorf("Expected all blocks freed, %d live", live)
	}
}

func TestGenerate(t *testing.T) {
	p := newProject(t, Config{})
	addWave(t, p, 0, ramp(10))
	p.Tracks().SetSelected(0, true)
	selectRange(t, p, 0.1, 0.1)

	if err := p.Generate(&effect.Tone{Frequency: 25, Amplitude: 0.5}, 0.2); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if n := p.Tracks().Len(); n != 2 {
		t.Fatalf("Expected 2 tracks, got %d", n)
	}
	if p.Tracks().Selected(0) || !p.Tracks().Selected(1) {
		t.Error("Expected only the generated track to be selected")
	}
	w := wave(t, p, 1)
	if !approx(w.StartTime(), 0.1) || !approx(w.EndTime(), 0.3) {
		t.Errorf("Expected tone over [0.1, 0.3), got [%f, %f)", w.StartTime(), w.EndTime())
	}
	got := read(t, w, 11, 2)
	if math.Abs(float64(got[0]-0.5)) > 1e-5 || math.Abs(float64(got[1])) > 1e-5 {
		t.Errorf("Unexpected tone samples %v", got)
	}
	if sel := p.Selection(); !approx(sel.T0, 0.1) || !approx(sel.T1, 0.3) {
		t.Errorf("Expected selection [0.1, 0.3), got %+v", sel)
	}
	if s, _ := p.History().Current(); s.Long != "Generated Tone" {
		t.Errorf("Unexpected history entry %q", s.Long)
	}

	if err := p.Undo(); err != nil {
		t.Fatalf("Undo failed: %v", err)
	}
	if n := p.Tracks().Len(); n != 1 {
		t.Errorf("Expected 1 track after undo, got %d", n)
	}

	selectRange(t, p, 0, 0)
	if err := p.Generate(effect.NewTone(), 0); !errors.Is(err, ErrEmptySelection) {
		t.Errorf("Expected ErrEmptySelection, got %v", err)
	}
}
