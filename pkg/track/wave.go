// ABOUTME: Wave tracks hold non-overlapping clips at one sample rate
// ABOUTME: Implements cut, paste, split, join, disjoin, trim and silence over clips
package track

import (
	"fmt"
	"math"
	"sort"

	"github.com/Resonate-Protocol/resonate-edit/pkg/audio"
	"github.com/Resonate-Protocol/resonate-edit/pkg/audio/resample"
	"github.com/Resonate-Protocol/resonate-edit/pkg/sampleblock"
	"github.com/Resonate-Protocol/resonate-edit/pkg/sequence"
)

// WaveTrack is an audio track. Clip play regions never overlap.
type WaveTrack struct {
	name     string
	store    *sampleblock.Store
	rate     int
	channels int
	maxBlock int
	clips    []*Clip

	// span is the length of the range a copy was taken from
	span int64

	gain float32
	pan  float32
	mute bool
	solo bool
}

// NewWaveTrack creates an empty wave track
func NewWaveTrack(store *sampleblock.Store, rate, channels, maxBlock int) *WaveTrack {
	if maxBlock <= 0 {
		maxBlock = sequence.DefaultMaxBlockSize
	}
	return &WaveTrack{
		store:    store,
		rate:     rate,
		channels: channels,
		maxBlock: maxBlock,
		gain:     1,
	}
}

func (w *WaveTrack) emptyLike() *WaveTrack {
	out := NewWaveTrack(w.store, w.rate, w.channels, w.maxBlock)
	out.name = w.name
	out.gain = w.gain
	out.pan = w.pan
	out.mute = w.mute
	out.solo = w.solo
	return out
}

func (w *WaveTrack) Name() string               { return w.name }
func (w *WaveTrack) SetName(name string)        { w.name = name }
func (w *WaveTrack) Kind() Kind                 { return KindWave }
func (w *WaveTrack) Channels() int              { return w.channels }
func (w *WaveTrack) SupportsBasicEditing() bool { return true }

// Rate returns the track sample rate
func (w *WaveTrack) Rate() int { return w.rate }

// Store returns the block store clips allocate from
func (w *WaveTrack) Store() *sampleblock.Store { return w.store }

// MaxBlockSize returns the block size used for new sequences
func (w *WaveTrack) MaxBlockSize() int { return w.maxBlock }

// Gain returns the linear gain
func (w *WaveTrack) Gain() float32 { return w.gain }

// SetGain sets the linear gain
func (w *WaveTrack) SetGain(g float32) { w.gain = g }

// SetGainDB sets the gain in decibels
func (w *WaveTrack) SetGainDB(db float64) { w.gain = float32(math.Pow(10, db/20)) }

// Pan returns the pan position in [-1, 1]
func (w *WaveTrack) Pan() float32 { return w.pan }

// SetPan sets the pan position, clamped to [-1, 1]
func (w *WaveTrack) SetPan(p float32) { w.pan = max(-1, min(1, p)) }

func (w *WaveTrack) Mute() bool     { return w.mute }
func (w *WaveTrack) SetMute(m bool) { w.mute = m }
func (w *WaveTrack) Solo() bool     { return w.solo }
func (w *WaveTrack) SetSolo(s bool) { w.solo = s }

// ChannelGain returns the gain applied to channel ch of a stereo pair
func (w *WaveTrack) ChannelGain(ch int) float32 {
	g := w.gain
	switch {
	case ch == 0 && w.pan > 0:
		g *= 1 - w.pan
	case ch == 1 && w.pan < 0:
		g *= 1 + w.pan
	}
	return g
}

func (w *WaveTrack) toSample(t float64) int64 {
	return audio.TimeToSamples(t, w.rate)
}

func (w *WaveTrack) toTime(s int64) float64 {
	return audio.SamplesToTime(s, w.rate)
}

func (w *WaveTrack) sortClips() {
	sort.SliceStable(w.clips, func(i, j int) bool {
		return w.clips[i].playStart() < w.clips[j].playStart()
	})
}

// Clips returns the clips ordered by play start
func (w *WaveTrack) Clips() []*Clip {
	out := make([]*Clip, len(w.clips))
	copy(out, w.clips)
	return out
}

// NumClips returns the number of clips
func (w *WaveTrack) NumClips() int { return len(w.clips) }

// AddClip takes ownership of c; it must match the track layout and not
// overlap an existing clip
func (w *WaveTrack) AddClip(c *Clip) error {
	if c.rate != w.rate {
		return fmt.Errorf("clip rate %d does not match track rate %d", c.rate, w.rate)
	}
	if c.Channels() != w.channels {
		return fmt.Errorf("%w: %d-channel clip on %d-channel track", ErrChannelMismatch, c.Channels(), w.channels)
	}
	for _, o := range w.clips {
		if c.playStart() < o.playEnd() && o.playStart() < c.playEnd() {
			return fmt.Errorf("%w: clip overlaps [%.6f, %.6f)", ErrInvalidRange, o.PlayStart(), o.PlayEnd())
		}
	}
	w.clips = append(w.clips, c)
	w.sortClips()
	return nil
}

// NewClipFromSamples creates a clip from planar samples at t and adds it
func (w *WaveTrack) NewClipFromSamples(t float64, channels [][]float32) (*Clip, error) {
	c, err := NewClipFromSamples(w.store, w.rate, w.maxBlock, channels)
	if err != nil {
		return nil, err
	}
	c.SetOffset(t)
	if err := w.AddClip(c); err != nil {
		c.Release()
		return nil, err
	}
	return c, nil
}

func (w *WaveTrack) StartTime() float64 {
	if len(w.clips) == 0 {
		return 0
	}
	return w.toTime(w.clips[0].playStart())
}

func (w *WaveTrack) EndTime() float64 {
	return w.toTime(w.endSample())
}

func (w *WaveTrack) endSample() int64 {
	var end int64
	for _, c := range w.clips {
		end = max(end, c.playEnd())
	}
	return end
}

// HasHiddenData reports whether any clip hides trimmed samples
func (w *WaveTrack) HasHiddenData() bool {
	for _, c := range w.clips {
		if c.HasHiddenData() {
			return true
		}
	}
	return false
}

// SequenceSamplesCount sums stored samples over clips and channels
func (w *WaveTrack) SequenceSamplesCount() int64 {
	var n int64
	for _, c := range w.clips {
		n += c.SequenceSamplesCount()
	}
	return n
}

// DiscardHidden deletes hidden samples from every clip
func (w *WaveTrack) DiscardHidden() error {
	for _, c := range w.clips {
		if err := c.DiscardHidden(); err != nil {
			return err
		}
	}
	return nil
}

func (w *WaveTrack) Clone() Track {
	out := w.emptyLike()
	out.span = w.span
	out.clips = make([]*Clip, len(w.clips))
	for i, c := range w.clips {
		out.clips[i] = c.Clone()
	}
	return out
}

func (w *WaveTrack) Release() {
	for _, c := range w.clips {
		c.Release()
	}
	w.clips = nil
}

func (w *WaveTrack) Shift(dt float64) {
	n := w.toSample(dt)
	for _, c := range w.clips {
		c.shiftSamples(n)
	}
}

func (w *WaveTrack) Copy(t0, t1 float64, forClipboard bool) (Track, error) {
	if err := checkRange(t0, t1); err != nil {
		return nil, err
	}
	s0, s1 := w.toSample(t0), w.toSample(t1)

	out := w.emptyLike()
	out.span = s1 - s0
	for _, c := range w.clips {
		if c.playEnd() <= s0 || c.playStart() >= s1 {
			continue
		}
		nc, err := c.copySamples(s0, s1, forClipboard)
		if err != nil {
			out.Release()
			return nil, err
		}
		if nc.IsEmpty() {
			nc.Release()
			continue
		}
		nc.shiftSamples(-s0)
		out.clips = append(out.clips, nc)
	}
	return out, nil
}

func (w *WaveTrack) Clear(t0, t1 float64) error {
	if err := checkRange(t0, t1); err != nil {
		return err
	}
	return w.clearSamples(w.toSample(t0), w.toSample(t1), false)
}

// ClearAndAddCutLine clears [t0, t1), keeping the removed audio of a clip
// that spans the whole range as a cut line
func (w *WaveTrack) ClearAndAddCutLine(t0, t1 float64) error {
	if err := checkRange(t0, t1); err != nil {
		return err
	}
	return w.clearSamples(w.toSample(t0), w.toSample(t1), true)
}

func (w *WaveTrack) clearSamples(s0, s1 int64, addCutLine bool) error {
	if s1 <= s0 {
		return nil
	}
	d := s1 - s0

	var kept, dropped []*Clip
	for _, c := range w.clips {
		ps, pe := c.playStart(), c.playEnd()
		switch {
		case pe <= s0:
			kept = append(kept, c)
		case ps >= s1:
			c.shiftSamples(-d)
			kept = append(kept, c)
		case ps >= s0 && pe <= s1:
			dropped = append(dropped, c)
		default:
			var err error
			if addCutLine && ps < s0 && pe > s1 {
				err = c.clearAndAddCutLine(s0, s1)
			} else {
				err = c.clearSamples(s0, s1)
			}
			if err != nil {
				return err
			}
			// Content that started inside the range now starts at s0
			if ps > s0 {
				c.shiftSamples(s0 - ps)
			}
			kept = append(kept, c)
		}
	}
	w.commitClips(kept, dropped)
	return nil
}

func (w *WaveTrack) commitClips(kept, dropped []*Clip) {
	for _, c := range dropped {
		c.Release()
	}
	w.clips = kept
	w.sortClips()
}

// SplitDelete removes [t0, t1) leaving a gap; clips crossing a boundary
// are split and keep the removed part as hidden data
func (w *WaveTrack) SplitDelete(t0, t1 float64) error {
	if err := checkRange(t0, t1); err != nil {
		return err
	}
	return w.splitDeleteSamples(w.toSample(t0), w.toSample(t1))
}

func (w *WaveTrack) splitDeleteSamples(s0, s1 int64) error {
	if s1 <= s0 {
		return nil
	}

	var kept, dropped []*Clip
	for _, c := range w.clips {
		ps, pe := c.playStart(), c.playEnd()
		switch {
		case pe <= s0 || ps >= s1:
			kept = append(kept, c)
		case ps >= s0 && pe <= s1:
			dropped = append(dropped, c)
		case ps < s0 && pe > s1:
			left, right := c.Clone(), c.Clone()
			if err := left.trimSamples(ps, s0); err != nil {
				left.Release()
				right.Release()
				return err
			}
			if err := right.trimSamples(s1, pe); err != nil {
				left.Release()
				right.Release()
				return err
			}
			kept = append(kept, left, right)
			dropped = append(dropped, c)
		case ps < s0:
			if err := c.trimSamples(ps, s0); err != nil {
				return err
			}
			kept = append(kept, c)
		default:
			if err := c.trimSamples(s1, pe); err != nil {
				return err
			}
			kept = append(kept, c)
		}
	}
	w.commitClips(kept, dropped)
	return nil
}

// SplitCut copies [t0, t1) for the clipboard and then split-deletes it
func (w *WaveTrack) SplitCut(t0, t1 float64) (Track, error) {
	cp, err := w.Copy(t0, t1, true)
	if err != nil {
		return nil, err
	}
	if err := w.SplitDelete(t0, t1); err != nil {
		cp.Release()
		return nil, err
	}
	return cp, nil
}

// Split divides the clip containing t into two clips
func (w *WaveTrack) Split(t float64) error {
	s := w.toSample(t)
	for i, c := range w.clips {
		if s <= c.playStart() || s >= c.playEnd() {
			continue
		}
		left, right, err := c.splitSamples(s)
		if err != nil {
			return err
		}
		c.Release()
		w.clips = append(w.clips[:i], append([]*Clip{left, right}, w.clips[i+1:]...)...)
		return nil
	}
	return nil
}

// Join merges the clips touching [t0, t1) into one, filling gaps with silence
func (w *WaveTrack) Join(t0, t1 float64) error {
	if err := checkRange(t0, t1); err != nil {
		return err
	}
	s0, s1 := w.toSample(t0), w.toSample(t1)

	var group []*Clip
	for _, c := range w.clips {
		if c.playEnd() > s0 && c.playStart() < s1 {
			group = append(group, c)
		}
	}
	if len(group) < 2 {
		return nil
	}

	merged := group[0]
	for _, c := range group {
		if c.stretch != 1 {
			return ErrStretched
		}
		if c.Channels() > merged.Channels() {
			return fmt.Errorf("%w: %d channels into %d", ErrChannelMismatch, c.Channels(), merged.Channels())
		}
	}

	// The joined clip keeps the first clip's hidden head and the last
	// clip's hidden tail; hidden audio between the clips is dropped
	last := group[len(group)-1]
	var tail []*sequence.Sequence
	if last.trimRight > 0 {
		var err error
		if tail, err = last.copySequences(last.seqLen()-last.trimRight, last.trimRight, merged.rate); err != nil {
			return err
		}
		defer func() {
			for _, p := range tail {
				p.Release()
			}
		}()
	}
	if err := merged.clearRightSamples(merged.playEnd()); err != nil {
		return err
	}

	for _, c := range group[1:] {
		if gap := c.playStart() - merged.playEnd(); gap > 0 {
			if err := merged.insertSilenceSamples(merged.playEnd(), gap); err != nil {
				return err
			}
		}
		if _, err := merged.pasteSamples(merged.playEnd(), c); err != nil {
			return err
		}
	}

	if len(tail) > 0 {
		end := merged.seqLen()
		for ch, seq := range merged.seqs {
			if err := seq.Insert(end, tail[min(ch, len(tail)-1)]); err != nil {
				return err
			}
		}
		merged.trimRight = tail[0].Len()
	}

	var kept []*Clip
	for _, c := range w.clips {
		if c == merged || !containsClip(group, c) {
			kept = append(kept, c)
		}
	}
	w.commitClips(kept, group[1:])
	return nil
}

func containsClip(clips []*Clip, c *Clip) bool {
	for _, o := range clips {
		if o == c {
			return true
		}
	}
	return false
}

// Disjoin removes runs of digital silence of at least minSilence seconds
// inside [t0, t1), leaving the remaining audio as separate clips
func (w *WaveTrack) Disjoin(t0, t1, minSilence float64) error {
	if err := checkRange(t0, t1); err != nil {
		return err
	}
	s0, s1 := w.toSample(t0), w.toSample(t1)
	minRun := max(w.toSample(minSilence), 1)

	type run struct{ start, end int64 }
	var runs []run
	for _, c := range w.clips {
		a, b := c.intersect(s0, s1)
		if a >= b {
			continue
		}
		found, err := w.silentRuns(c, a, b, minRun)
		if err != nil {
			return err
		}
		for _, r := range found {
			runs = append(runs, run{r[0], r[1]})
		}
	}

	for _, r := range runs {
		if err := w.splitDeleteSamples(r.start, r.end); err != nil {
			return err
		}
	}
	return nil
}

// silentRuns finds [start, end) runs inside [a, b) where every channel is zero
func (w *WaveTrack) silentRuns(c *Clip, a, b, minRun int64) ([][2]int64, error) {
	const chunk = 65536
	bufs := make([][]float32, c.Channels())
	for ch := range bufs {
		bufs[ch] = make([]float32, chunk)
	}

	var runs [][2]int64
	runStart := int64(-1)
	for pos := a; pos < b; pos += chunk {
		n := min(int64(chunk), b-pos)
		for ch := range bufs {
			if err := c.Get(ch, pos, bufs[ch][:n]); err != nil {
				return nil, err
			}
		}
		for i := int64(0); i < n; i++ {
			silent := true
			for ch := range bufs {
				if bufs[ch][i] != 0 {
					silent = false
					break
				}
			}
			switch {
			case silent && runStart < 0:
				runStart = pos + i
			case !silent && runStart >= 0:
				if pos+i-runStart >= minRun {
					runs = append(runs, [2]int64{runStart, pos + i})
				}
				runStart = -1
			}
		}
	}
	if runStart >= 0 && b-runStart >= minRun {
		runs = append(runs, [2]int64{runStart, b})
	}
	return runs, nil
}

// Trim hides audio outside [t0, t1) and removes clips entirely outside it
func (w *WaveTrack) Trim(t0, t1 float64) error {
	if err := checkRange(t0, t1); err != nil {
		return err
	}
	s0, s1 := w.toSample(t0), w.toSample(t1)

	var kept, dropped []*Clip
	for _, c := range w.clips {
		if c.playEnd() <= s0 || c.playStart() >= s1 {
			dropped = append(dropped, c)
			continue
		}
		if err := c.trimSamples(s0, s1); err != nil {
			return err
		}
		kept = append(kept, c)
	}
	w.commitClips(kept, dropped)
	return nil
}

func (w *WaveTrack) Silence(t0, t1 float64) error {
	if err := checkRange(t0, t1); err != nil {
		return err
	}
	s0, s1 := w.toSample(t0), w.toSample(t1)
	for _, c := range w.clips {
		if err := c.silenceSamples(s0, s1); err != nil {
			return err
		}
	}
	return nil
}

// InsertSilence inserts dur seconds of silence at t, moving later audio right
func (w *WaveTrack) InsertSilence(t, dur float64) error {
	if dur < 0 {
		return fmt.Errorf("%w: negative duration %.6f", ErrInvalidRange, dur)
	}
	return w.insertSilenceSamples(w.toSample(t), w.toSample(dur))
}

func (w *WaveTrack) insertSilenceSamples(s, n int64) error {
	if n == 0 {
		return nil
	}
	for _, c := range w.clips {
		ps, pe := c.playStart(), c.playEnd()
		switch {
		case ps >= s:
			c.shiftSamples(n)
		case pe > s:
			if err := c.insertSilenceSamples(s, n); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *WaveTrack) SyncLockAdjust(oldT1, newT1 float64) error {
	switch {
	case newT1 > oldT1:
		if oldT1 >= w.EndTime() {
			return nil
		}
		return w.InsertSilence(oldT1, newT1-oldT1)
	case newT1 < oldT1:
		return w.Clear(newT1, oldT1)
	}
	return nil
}

// Paste inserts src at t. A single source clip that starts at 0 and fills
// the copied span merges into a clip containing t; otherwise the source
// clips are inserted as separate clips.
func (w *WaveTrack) Paste(t float64, src Track) error {
	sw, ok := src.(*WaveTrack)
	if !ok {
		return fmt.Errorf("%w: %s into wave", ErrKindMismatch, src.Kind())
	}
	if sw.channels > w.channels {
		return fmt.Errorf("%w: %d channels into %d", ErrChannelMismatch, sw.channels, w.channels)
	}

	s := w.toSample(t)
	srcLen := resample.OutputLength(max(sw.span, sw.endSample()), sw.rate, w.rate)

	if len(sw.clips) == 1 {
		sc := sw.clips[0]
		if sc.playStart() == 0 && sc.playEnd() == max(sw.span, sw.endSample()) {
			if target := w.clipContaining(s); target != nil {
				return w.pasteIntoClip(target, s, sc)
			}
		}
	}

	adopted := make([]*Clip, 0, len(sw.clips))
	for _, sc := range sw.clips {
		nc, err := w.adoptClip(sc)
		if err != nil {
			for _, c := range adopted {
				c.Release()
			}
			return err
		}
		nc.shiftSamples(s)
		adopted = append(adopted, nc)
	}

	if err := w.Split(t); err != nil {
		for _, c := range adopted {
			c.Release()
		}
		return err
	}
	for _, c := range w.clips {
		if c.playStart() >= s {
			c.shiftSamples(srcLen)
		}
	}
	w.clips = append(w.clips, adopted...)
	w.sortClips()
	return nil
}

func (w *WaveTrack) clipContaining(s int64) *Clip {
	for _, c := range w.clips {
		if c.playStart() <= s && s <= c.playEnd() {
			return c
		}
	}
	return nil
}

func (w *WaveTrack) pasteIntoClip(target *Clip, s int64, src *Clip) error {
	oldEnd := target.playEnd()
	n, err := target.pasteSamples(s, src)
	if err != nil {
		return err
	}
	for _, c := range w.clips {
		if c != target && c.playStart() >= oldEnd {
			c.shiftSamples(n)
		}
	}
	return nil
}

// adoptClip returns a clip with this track's rate and channel count
func (w *WaveTrack) adoptClip(c *Clip) (*Clip, error) {
	if c.rate == w.rate && c.Channels() == w.channels {
		return c.Clone(), nil
	}

	pieces, err := c.visibleSequences(w.rate)
	if err != nil {
		return nil, err
	}
	out := &Clip{
		rate:    w.rate,
		offset:  resample.OutputLength(c.playStart(), c.rate, w.rate),
		stretch: c.stretch,
		seqs:    make([]*sequence.Sequence, w.channels),
	}
	for ch := range out.seqs {
		out.seqs[ch] = pieces[min(ch, len(pieces)-1)].Clone()
	}
	for _, p := range pieces {
		p.Release()
	}
	return out, nil
}

// ClearAndPaste replaces [t0, t1) with src
func (w *WaveTrack) ClearAndPaste(t0, t1 float64, src Track) error {
	return ClearAndPaste(w, t0, t1, src)
}

// CutLines returns the positions of every cut line on the track
func (w *WaveTrack) CutLines() []float64 {
	var out []float64
	for _, c := range w.clips {
		out = append(out, c.CutLines()...)
	}
	return out
}

// ExpandCutLine restores the audio removed at cut line t
func (w *WaveTrack) ExpandCutLine(t float64) error {
	s := w.toSample(t)
	for _, target := range w.clips {
		oldEnd := target.playEnd()
		n, found, err := target.expandCutLine(s)
		if err != nil {
			return err
		}
		if !found {
			continue
		}
		for _, c := range w.clips {
			if c != target && c.playStart() >= oldEnd {
				c.shiftSamples(n)
			}
		}
		return nil
	}
	return fmt.Errorf("%w at %.6f", ErrNoCutLine, t)
}

// SetClipTrim sets the hidden left and right time of clip i. The new play
// region may not overlap another clip.
func (w *WaveTrack) SetClipTrim(i int, left, right float64) error {
	if i < 0 || i >= len(w.clips) {
		return fmt.Errorf("%w: no clip %d", ErrInvalidRange, i)
	}
	c := w.clips[i]
	oldLeft, oldRight := c.trimLeft, c.trimRight
	restore := func() { c.trimLeft, c.trimRight = oldLeft, oldRight }

	// Clear both first so each setter sees the other's new value
	c.trimLeft, c.trimRight = 0, 0
	if err := c.SetTrimLeft(left); err != nil {
		restore()
		return err
	}
	if err := c.SetTrimRight(right); err != nil {
		restore()
		return err
	}

	for _, o := range w.clips {
		if o != c && !o.IsEmpty() && c.playStart() < o.playEnd() && o.playStart() < c.playEnd() {
			restore()
			return fmt.Errorf("%w: clip %d would overlap [%.6f, %.6f)",
				ErrInvalidRange, i, o.PlayStart(), o.PlayEnd())
		}
	}
	w.sortClips()
	return nil
}

// Levels returns the peak and RMS of the audible samples over every channel
func (w *WaveTrack) Levels() (peak, rms float32, err error) {
	var lv sampleblock.Levels
	for _, c := range w.clips {
		if err := c.levels(&lv); err != nil {
			return 0, 0, err
		}
	}
	return lv.Peak(), lv.RMS(), nil
}

// RemoveCutLine discards the cut line at t
func (w *WaveTrack) RemoveCutLine(t float64) bool {
	for _, c := range w.clips {
		if c.RemoveCutLine(t) {
			return true
		}
	}
	return false
}

// Get reads channel ch for track samples [start, start+len(out)).
// Gaps between clips read as zero.
func (w *WaveTrack) Get(ch int, start int64, out []float32) error {
	clear(out)
	end := start + int64(len(out))
	for _, c := range w.clips {
		a, b := c.intersect(start, end)
		if a >= b {
			continue
		}
		if err := c.Get(ch, a, out[a-start:b-start]); err != nil {
			return err
		}
	}
	return nil
}

// Set overwrites channel ch for track samples covered by clips
func (w *WaveTrack) Set(ch int, start int64, samples []float32) error {
	end := start + int64(len(samples))
	for _, c := range w.clips {
		a, b := c.intersect(start, end)
		if a >= b {
			continue
		}
		if err := c.Set(ch, a, samples[a-start:b-start]); err != nil {
			return err
		}
	}
	return nil
}
