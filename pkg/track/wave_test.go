// ABOUTME: Tests for wave track editing
// ABOUTME: Covers cut/paste round trips, split, join, trim, silence and cut lines
package track

import (
	"errors"
	"math"
	"testing"

	"github.com/Resonate-Protocol/resonate-edit/pkg/sampleblock"
	"github.com/google/uuid"
)

const testRate = 100

func ramp(n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(i+1) / 1000
	}
	return out
}

func newWave(t *testing.T, store *sampleblock.Store, maxBlock int, at float64, channels ...[]float32) *WaveTrack {
	t.Helper()
	w := NewWaveTrack(store, testRate, len(channels), maxBlock)
	if _, err := w.NewClipFromSamples(at, channels); err != nil {
		t.Fatalf("NewClipFromSamples failed: %v", err)
	}
	return w
}

func readTrack(t *testing.T, w *WaveTrack, ch int, start, n int64) []float32 {
	t.Helper()
	out := make([]float32, n)
	if err := w.Get(ch, start, out); err != nil {
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

func TestWaveTrackCutThenPasteRestores(t *testing.T) {
	store := sampleblock.NewMemoryStore()
	orig := ramp(100)
	w := newWave(t, store, 16, 0, orig)

	cp, err := w.Copy(0.2, 0.5, true)
	if err != nil {
		t.Fatalf("Copy failed: %v", err)
	}
	defer cp.Release()

	if err := w.Clear(0.2, 0.5); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if !approx(w.EndTime(), 0.7) {
		t.Errorf("Expected end 0.7 after clear, got %f", w.EndTime())
	}
	got := readTrack(t, w, 0, 0, 70)
	want := append(append([]float32{}, orig[:20]...), orig[50:]...)
	if !equal(got, want) {
		t.Errorf("Unexpected samples after clear")
	}

	if err := w.Paste(0.2, cp); err != nil {
		t.Fatalf("Paste failed: %v", err)
	}
	if w.NumClips() != 1 {
		t.Errorf("Expected paste to merge into one clip, got %d", w.NumClips())
	}
	if got := readTrack(t, w, 0, 0, 100); !equal(got, orig) {
		t.Errorf("Cut then paste did not restore the track")
	}
}

func TestWaveTrackCopyOfClipboard(t *testing.T) {
	store := sampleblock.NewMemoryStore()
	w := newWave(t, store, 16, 0, ramp(100))

	tests := []struct {
		name         string
		forClipboard bool
		stored       int64
	}{
		{"clipboard keeps hidden", true, 100},
		{"plain copy materializes", false, 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cp, err := w.Copy(0.2, 0.5, tt.forClipboard)
			if err != nil {
				t.Fatalf("Copy failed: %v", err)
			}
			defer cp.Release()
			cw := cp.(*WaveTrack)
			if got := cw.SequenceSamplesCount(); got != tt.stored {
				t.Errorf("Expected %d stored samples, got %d", tt.stored, got)
			}
			if !approx(cw.StartTime(), 0) || !approx(cw.EndTime(), 0.3) {
				t.Errorf("Expected copy to play [0, 0.3), got [%f, %f)", cw.StartTime(), cw.EndTime())
			}
			if cw.HasHiddenData() != tt.forClipboard {
				t.Errorf("Expected hidden data %v", tt.forClipboard)
			}
		})
	}
}

func TestWaveTrackClearKeepsBlocksOutsideRange(t *testing.T) {
	store := sampleblock.NewMemoryStore()
	w := newWave(t, store, 10, 0, ramp(100))

	before := w.Clips()[0].Sequence(0).Blocks()
	if err := w.Clear(0.25, 0.45); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	after := make(map[uuid.UUID]bool)
	for _, b := range w.Clips()[0].Sequence(0).Blocks() {
		after[b.ID] = true
	}
	for _, b := range before {
		untouched := b.Start+int64(b.Len) <= 20 || b.Start >= 50
		if untouched && !after[b.ID] {
			t.Errorf("Block at %d outside the cleared range was rewritten", b.Start)
		}
	}
}

func TestWaveTrackSplitJoinRoundTrip(t *testing.T) {
	store := sampleblock.NewMemoryStore()
	orig := ramp(100)
	w := newWave(t, store, 16, 0, orig)

	if err := w.Split(0.4); err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if w.NumClips() != 2 {
		t.Fatalf("Expected 2 clips after split, got %d", w.NumClips())
	}
	clips := w.Clips()
	if !approx(clips[0].PlayEnd(), 0.4) || !approx(clips[1].PlayStart(), 0.4) {
		t.Errorf("Split boundary wrong: %f / %f", clips[0].PlayEnd(), clips[1].PlayStart())
	}

	if err := w.Join(0, 1); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if w.NumClips() != 1 {
		t.Fatalf("Expected 1 clip after join, got %d", w.NumClips())
	}
	if got := readTrack(t, w, 0, 0, 100); !equal(got, orig) {
		t.Errorf("Split then join changed the audio")
	}
}

func TestWaveTrackJoinKeepsHiddenTail(t *testing.T) {
	store := sampleblock.NewMemoryStore()
	orig := ramp(100)
	w := newWave(t, store, 16, 0, orig)

	if err := w.Clips()[0].SetTrimRight(0.1); err != nil {
		t.Fatalf("SetTrimRight failed: %v", err)
	}
	if err := w.Split(0.4); err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if err := w.Join(0, 1); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if w.NumClips() != 1 {
		t.Fatalf("Expected 1 clip after join, got %d", w.NumClips())
	}
	if got := w.SequenceSamplesCount(); got != 100 {
		t.Errorf("Expected 100 stored samples, got %d", got)
	}
	if !approx(w.EndTime(), 0.9) {
		t.Errorf("Expected the join to end at 0.9, got %f", w.EndTime())
	}

	if err := w.Clips()[0].SetTrimRight(0); err != nil {
		t.Fatalf("SetTrimRight failed: %v", err)
	}
	if got := readTrack(t, w, 0, 0, 100); !equal(got, orig) {
		t.Errorf("Revealed tail differs: got %v, want %v", got[90:], orig[90:])
	}
}

func TestWaveTrackJoinDropsHiddenMiddle(t *testing.T) {
	store := sampleblock.NewMemoryStore()
	orig := ramp(100)
	w := newWave(t, store, 16, 0, orig)

	if err := w.SplitDelete(0.3, 0.5); err != nil {
		t.Fatalf("SplitDelete failed: %v", err)
	}
	if err := w.Join(0, 1); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if got := w.SequenceSamplesCount(); got != 100 {
		t.Errorf("Expected the gap to be stored as silence only, got %d samples", got)
	}
	if w.HasHiddenData() {
		t.Errorf("Expected no hidden data between the joined clips")
	}
}

func TestWaveTrackJoinFillsGap(t *testing.T) {
	store := sampleblock.NewMemoryStore()
	w := newWave(t, store, 16, 0, ramp(100))
	if err := w.SplitDelete(0.3, 0.5); err != nil {
		t.Fatalf("SplitDelete failed: %v", err)
	}
	if err := w.Join(0, 1); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if w.NumClips() != 1 {
		t.Fatalf("Expected 1 clip, got %d", w.NumClips())
	}
	got := readTrack(t, w, 0, 30, 20)
	for i, v := range got {
		if v != 0 {
			t.Fatalf("Expected silence in joined gap at %d, got %f", i, v)
		}
	}
}

func TestWaveTrackSplitDeleteLeavesGap(t *testing.T) {
	store := sampleblock.NewMemoryStore()
	orig := ramp(100)
	w := newWave(t, store, 16, 0, orig)

	if err := w.SplitDelete(0.3, 0.5); err != nil {
		t.Fatalf("SplitDelete failed: %v", err)
	}
	if w.NumClips() != 2 {
		t.Fatalf("Expected 2 clips, got %d", w.NumClips())
	}
	if !approx(w.EndTime(), 1.0) {
		t.Errorf("Expected end to stay at 1.0, got %f", w.EndTime())
	}
	got := readTrack(t, w, 0, 0, 100)
	for i := 30; i < 50; i++ {
		if got[i] != 0 {
			t.Fatalf("Expected gap at %d, got %f", i, got[i])
		}
	}
	if !equal(got[50:], orig[50:]) {
		t.Errorf("Audio after the gap moved")
	}
	if !w.HasHiddenData() {
		t.Errorf("Expected split clips to keep hidden data")
	}
}

func TestWaveTrackTrim(t *testing.T) {
	store := sampleblock.NewMemoryStore()
	w := newWave(t, store, 16, 0, ramp(100))
	if err := w.Trim(0.2, 0.6); err != nil {
		t.Fatalf("Trim failed: %v", err)
	}
	if !approx(w.StartTime(), 0.2) || !approx(w.EndTime(), 0.6) {
		t.Errorf("Expected [0.2, 0.6), got [%f, %f)", w.StartTime(), w.EndTime())
	}
	if got := w.SequenceSamplesCount(); got != 100 {
		t.Errorf("Trim should only hide samples, stored %d", got)
	}
	if err := w.DiscardHidden(); err != nil {
		t.Fatalf("DiscardHidden failed: %v", err)
	}
	if got := w.SequenceSamplesCount(); got != 40 {
		t.Errorf("Expected 40 stored samples after discard, got %d", got)
	}
	if !approx(w.StartTime(), 0.2) {
		t.Errorf("Discarding hidden data moved the clip to %f", w.StartTime())
	}
}

func TestWaveTrackSilence(t *testing.T) {
	store := sampleblock.NewMemoryStore()
	orig := ramp(100)
	w := newWave(t, store, 16, 0, orig)
	if err := w.Silence(0.1, 0.2); err != nil {
		t.Fatalf("Silence failed: %v", err)
	}
	got := readTrack(t, w, 0, 0, 100)
	for i := range got {
		want := orig[i]
		if i >= 10 && i < 20 {
			want = 0
		}
		if got[i] != want {
			t.Fatalf("Sample %d: expected %f, got %f", i, want, got[i])
		}
	}
	if !approx(w.EndTime(), 1.0) {
		t.Errorf("Silence changed the track length")
	}
}

func TestWaveTrackDisjoin(t *testing.T) {
	store := sampleblock.NewMemoryStore()
	data := ramp(100)
	for i := 30; i < 60; i++ {
		data[i] = 0
	}
	w := newWave(t, store, 16, 0, data)

	if err := w.Disjoin(0, 1, 0.1); err != nil {
		t.Fatalf("Disjoin failed: %v", err)
	}
	if w.NumClips() != 2 {
		t.Fatalf("Expected 2 clips, got %d", w.NumClips())
	}
	clips := w.Clips()
	if !approx(clips[0].PlayEnd(), 0.3) || !approx(clips[1].PlayStart(), 0.6) {
		t.Errorf("Unexpected clip bounds %f / %f", clips[0].PlayEnd(), clips[1].PlayStart())
	}
}

func TestWaveTrackDisjoinIgnoresShortRuns(t *testing.T) {
	store := sampleblock.NewMemoryStore()
	data := ramp(100)
	for i := 30; i < 35; i++ {
		data[i] = 0
	}
	w := newWave(t, store, 16, 0, data)
	if err := w.Disjoin(0, 1, 0.1); err != nil {
		t.Fatalf("Disjoin failed: %v", err)
	}
	if w.NumClips() != 1 {
		t.Errorf("Expected short silence to be kept, got %d clips", w.NumClips())
	}
}

func TestWaveTrackPasteIntoGap(t *testing.T) {
	store := sampleblock.NewMemoryStore()
	w := newWave(t, store, 16, 0, ramp(50))

	src := newWave(t, store, 16, 0, ramp(20))
	defer src.Release()
	cp, err := src.Copy(0, 0.2, true)
	if err != nil {
		t.Fatalf("Copy failed: %v", err)
	}
	defer cp.Release()

	if err := w.Paste(1.0, cp); err != nil {
		t.Fatalf("Paste failed: %v", err)
	}
	if w.NumClips() != 2 {
		t.Fatalf("Expected a separate clip, got %d", w.NumClips())
	}
	if !approx(w.EndTime(), 1.2) {
		t.Errorf("Expected end 1.2, got %f", w.EndTime())
	}
	got := readTrack(t, w, 0, 100, 20)
	if !equal(got, ramp(20)) {
		t.Errorf("Pasted audio differs")
	}
}

func TestWaveTrackPasteMovesLaterClips(t *testing.T) {
	store := sampleblock.NewMemoryStore()
	w := newWave(t, store, 16, 0, ramp(50))
	if _, err := w.NewClipFromSamples(1.0, [][]float32{ramp(10)}); err != nil {
		t.Fatalf("NewClipFromSamples failed: %v", err)
	}

	src := newWave(t, store, 16, 0, ramp(30))
	defer src.Release()
	if err := w.Paste(0.2, src); err != nil {
		t.Fatalf("Paste failed: %v", err)
	}
	clips := w.Clips()
	if !approx(clips[len(clips)-1].PlayStart(), 1.3) {
		t.Errorf("Expected later clip at 1.3, got %f", clips[len(clips)-1].PlayStart())
	}
}

func TestWaveTrackPasteMonoIntoStereo(t *testing.T) {
	store := sampleblock.NewMemoryStore()
	w := newWave(t, store, 16, 0, ramp(50), ramp(50))
	src := newWave(t, store, 16, 0, ramp(10))
	defer src.Release()

	if err := w.Paste(0.5, src); err != nil {
		t.Fatalf("Paste failed: %v", err)
	}
	for ch := 0; ch < 2; ch++ {
		if got := readTrack(t, w, ch, 50, 10); !equal(got, ramp(10)) {
			t.Errorf("Channel %d did not receive the mono source", ch)
		}
	}
}

func TestWaveTrackPasteRejectsWiderSource(t *testing.T) {
	store := sampleblock.NewMemoryStore()
	w := newWave(t, store, 16, 0, ramp(50))
	src := newWave(t, store, 16, 0, ramp(10), ramp(10))
	defer src.Release()

	err := w.Paste(0.1, src)
	if !errors.Is(err, ErrChannelMismatch) {
		t.Errorf("Expected ErrChannelMismatch, got %v", err)
	}
}

func TestWaveTrackPasteRejectsOtherKind(t *testing.T) {
	store := sampleblock.NewMemoryStore()
	w := newWave(t, store, 16, 0, ramp(50))
	err := w.Paste(0.1, NewLabelTrack())
	if !errors.Is(err, ErrKindMismatch) {
		t.Errorf("Expected ErrKindMismatch, got %v", err)
	}
}

func TestWaveTrackCutLine(t *testing.T) {
	store := sampleblock.NewMemoryStore()
	orig := ramp(100)
	w := newWave(t, store, 16, 0, orig)

	if err := w.ClearAndAddCutLine(0.2, 0.5); err != nil {
		t.Fatalf("ClearAndAddCutLine failed: %v", err)
	}
	lines := w.CutLines()
	if len(lines) != 1 || !approx(lines[0], 0.2) {
		t.Fatalf("Expected one cut line at 0.2, got %v", lines)
	}
	if err := w.ExpandCutLine(0.2); err != nil {
		t.Fatalf("ExpandCutLine failed: %v", err)
	}
	if got := readTrack(t, w, 0, 0, 100); !equal(got, orig) {
		t.Errorf("Expanding the cut line did not restore the audio")
	}
	if len(w.CutLines()) != 0 {
		t.Errorf("Cut line should be gone after expanding")
	}
}

func TestWaveTrackRemoveCutLine(t *testing.T) {
	store := sampleblock.NewMemoryStore()
	w := newWave(t, store, 16, 0, ramp(100))
	if err := w.ClearAndAddCutLine(0.2, 0.5); err != nil {
		t.Fatalf("ClearAndAddCutLine failed: %v", err)
	}
	if !w.RemoveCutLine(0.2) {
		t.Fatalf("Expected cut line to be removed")
	}
	if w.RemoveCutLine(0.2) {
		t.Errorf("Removing twice should report false")
	}
	if err := w.ExpandCutLine(0.2); !errors.Is(err, ErrNoCutLine) {
		t.Errorf("Expected ErrNoCutLine, got %v", err)
	}
}

func TestWaveTrackTrimHidesCutLine(t *testing.T) {
	store := sampleblock.NewMemoryStore()
	orig := ramp(100)
	w := newWave(t, store, 16, 0, orig)

	if err := w.ClearAndAddCutLine(0.3, 0.4); err != nil {
		t.Fatalf("ClearAndAddCutLine failed: %v", err)
	}
	if err := w.Trim(0.5, 0.9); err != nil {
		t.Fatalf("Trim failed: %v", err)
	}
	if lines := w.CutLines(); len(lines) != 0 {
		t.Errorf("Expected the trimmed cut line to be hidden, got %v", lines)
	}
	if err := w.ExpandCutLine(0.3); !errors.Is(err, ErrNoCutLine) {
		t.Fatalf("Expected ErrNoCutLine, got %v", err)
	}
	if got := readTrack(t, w, 0, 50, 40); !equal(got, orig[60:]) {
		t.Errorf("Failed expand changed the audio")
	}

	// Revealing the trimmed audio makes the line expandable again
	if err := w.SetClipTrim(0, 0, 0); err != nil {
		t.Fatalf("SetClipTrim failed: %v", err)
	}
	if err := w.ExpandCutLine(0.3); err != nil {
		t.Fatalf("ExpandCutLine failed: %v", err)
	}
	if got := readTrack(t, w, 0, 0, 100); !equal(got, orig) {
		t.Errorf("Expanding the revealed cut line did not restore the audio")
	}
}

func TestWaveTrackSetClipTrim(t *testing.T) {
	store := sampleblock.NewMemoryStore()
	w := newWave(t, store, 16, 0, ramp(100))
	if err := w.Split(0.4); err != nil {
		t.Fatalf("Split failed: %v", err)
	}

	tests := []struct {
		name        string
		clip        int
		left, right float64
		wantErr     bool
		start, end  float64
	}{
		{"reveal over left neighbour", 1, 0, 0, true, 0.4, 1.0},
		{"reveal into right neighbour", 0, 0, 0, true, 0, 0.4},
		{"past stored audio", 1, 0.8, 0.3, true, 0.4, 1.0},
		{"no such clip", 2, 0, 0, true, 0, 0},
		{"hide more of the right clip", 1, 0.5, 0.1, false, 0.5, 0.9},
		{"reveal into the new gap", 0, 0, 0.55, false, 0, 0.45},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := w.SetClipTrim(tt.clip, tt.left, tt.right)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidRange) {
					t.Fatalf("Expected ErrInvalidRange, got %v", err)
				}
				if tt.clip >= w.NumClips() {
					return
				}
			} else if err != nil {
				t.Fatalf("SetClipTrim failed: %v", err)
			}
			c := w.Clips()[tt.clip]
			if !approx(c.PlayStart(), tt.start) || !approx(c.PlayEnd(), tt.end) {
				t.Errorf("Expected [%f, %f), got [%f, %f)", tt.start, tt.end, c.PlayStart(), c.PlayEnd())
			}
		})
	}
}

func TestWaveTrackLevels(t *testing.T) {
	store := sampleblock.NewMemoryStore()
	w := newWave(t, store, 16, 0, ramp(100))

	peak, rms, err := w.Levels()
	if err != nil {
		t.Fatalf("Levels failed: %v", err)
	}
	// Mean of (i/1000)^2 for i in 1..100 is 338350/100 millionths
	if !approx(float64(peak), float64(float32(0.1))) || math.Abs(float64(rms)-math.Sqrt(3383.5)/1000) > 1e-5 {
		t.Errorf("Unexpected levels: peak %f rms %f", peak, rms)
	}

	if err := w.Trim(0, 0.5); err != nil {
		t.Fatalf("Trim failed: %v", err)
	}
	if peak, _, _ := w.Levels(); peak != float32(50)/1000 {
		t.Errorf("Hidden samples counted in the peak: %f", peak)
	}
}

func TestWaveTrackStretchedClipRejectsSampleEdits(t *testing.T) {
	store := sampleblock.NewMemoryStore()
	w := newWave(t, store, 16, 0, ramp(100))
	if err := w.Clips()[0].SetStretch(2); err != nil {
		t.Fatalf("SetStretch failed: %v", err)
	}
	if !approx(w.EndTime(), 2.0) {
		t.Errorf("Expected stretched end 2.0, got %f", w.EndTime())
	}
	if err := w.Clear(0.2, 0.4); !errors.Is(err, ErrStretched) {
		t.Errorf("Expected ErrStretched, got %v", err)
	}
	if err := w.Silence(0.2, 0.4); !errors.Is(err, ErrStretched) {
		t.Errorf("Expected ErrStretched from silence, got %v", err)
	}
}

func TestWaveTrackSyncLockAdjust(t *testing.T) {
	tests := []struct {
		name         string
		oldT1, newT1 float64
		wantEnd      float64
	}{
		{"grow inserts silence", 0.5, 0.7, 1.2},
		{"shrink clears", 0.5, 0.3, 0.8},
		{"after end is ignored", 1.5, 1.8, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := sampleblock.NewMemoryStore()
			w := newWave(t, store, 16, 0, ramp(100))
			defer w.Release()
			if err := w.SyncLockAdjust(tt.oldT1, tt.newT1); err != nil {
				t.Fatalf("SyncLockAdjust failed: %v", err)
			}
			if !approx(w.EndTime(), tt.wantEnd) {
				t.Errorf("Expected end %f, got %f", tt.wantEnd, w.EndTime())
			}
		})
	}
}

func TestWaveTrackReleaseFreesBlocks(t *testing.T) {
	store := sampleblock.NewMemoryStore()
	w := newWave(t, store, 16, 0, ramp(100))
	cp := w.Clone()
	w.Release()
	if store.Stats().Live == 0 {
		t.Fatalf("Clone should keep blocks alive")
	}
	cp.Release()
	if live := store.Stats().Live; live != 0 {
		t.Errorf("Expected all blocks freed, %d live", live)
	}
}

func TestWaveTrackChannelGain(t *testing.T) {
	w := NewWaveTrack(sampleblock.NewMemoryStore(), testRate, 2, 0)
	w.SetGain(0.5)
	w.SetPan(0.5)
	if got := w.ChannelGain(0); got != 0.25 {
		t.Errorf("Expected left gain 0.25, got %f", got)
	}
	if got := w.ChannelGain(1); got != 0.5 {
		t.Errorf("Expected right gain 0.5, got %f", got)
	}
	w.SetPan(-3)
	if w.Pan() != -1 {
		t.Errorf("Expected pan clamped to -1, got %f", w.Pan())
	}
}

func TestWaveTrackAddClipRejectsOverlap(t *testing.T) {
	store := sampleblock.NewMemoryStore()
	w := newWave(t, store, 16, 0, ramp(100))
	_, err := w.NewClipFromSamples(0.5, [][]float32{ramp(10)})
	if !errors.Is(err, ErrInvalidRange) {
		t.Errorf("Expected overlap to be rejected, got %v", err)
	}
}
