// ABOUTME: Clips place per-channel sample sequences on the timeline
// ABOUTME: Offset, hidden trims and stretch select which samples play and when
package track

import (
	"errors"
	"fmt"
	"math"

	"github.com/Resonate-Protocol/resonate-edit/pkg/audio"
	"github.com/Resonate-Protocol/resonate-edit/pkg/audio/resample"
	"github.com/Resonate-Protocol/resonate-edit/pkg/sampleblock"
	"github.com/Resonate-Protocol/resonate-edit/pkg/sequence"
)

var (
	// ErrInvalidRange is returned for times outside the region an edit needs
	ErrInvalidRange = errors.New("invalid time range")

	// ErrChannelMismatch is returned when source channels cannot map onto the destination
	ErrChannelMismatch = errors.New("channel layout mismatch")

	// ErrNoCutLine is returned when no audible cut line sits at the given time
	ErrNoCutLine = fmt.Errorf("%w: no cut line", ErrInvalidRange)

	// ErrStretched is returned for sample edits on a clip with a stretch ratio applied
	ErrStretched = errors.New("clip is stretched; render the stretch first")
)

type cutLine struct {
	pos  int64 // sequence position
	clip *Clip
}

// Clip is one or more equal-length sequences placed on a track timeline.
// Sequence sample k plays at offset + k*stretch. The first trimLeft and last
// trimRight sequence samples are hidden but retained.
type Clip struct {
	rate      int
	offset    int64
	trimLeft  int64
	trimRight int64
	stretch   float64
	seqs      []*sequence.Sequence
	cutLines  []cutLine
}

// NewClip creates an empty clip at offset 0
func NewClip(store *sampleblock.Store, rate, channels, maxBlock int) *Clip {
	c := &Clip{
		rate:    rate,
		stretch: 1,
		seqs:    make([]*sequence.Sequence, channels),
	}
	for ch := range c.seqs {
		c.seqs[ch] = sequence.New(store, maxBlock)
	}
	return c
}

// NewClipFromSamples creates a clip from planar channel data
func NewClipFromSamples(store *sampleblock.Store, rate, maxBlock int, channels [][]float32) (*Clip, error) {
	c := NewClip(store, rate, len(channels), maxBlock)
	if err := c.Append(channels); err != nil {
		c.Release()
		return nil, err
	}
	return c, nil
}

// Append adds planar samples to the end of every channel
func (c *Clip) Append(channels [][]float32) error {
	if len(channels) != len(c.seqs) {
		return fmt.Errorf("%w: appending %d channels to a %d-channel clip", ErrChannelMismatch, len(channels), len(c.seqs))
	}
	for ch, data := range channels {
		if len(data) != len(channels[0]) {
			return fmt.Errorf("%w: channel %d has %d samples, expected %d", ErrChannelMismatch, ch, len(data), len(channels[0]))
		}
	}
	for ch, data := range channels {
		if err := c.seqs[ch].Append(data); err != nil {
			return err
		}
	}
	return nil
}

// Rate returns the clip sample rate
func (c *Clip) Rate() int { return c.rate }

// Channels returns the number of sequences
func (c *Clip) Channels() int { return len(c.seqs) }

// Sequence returns the sequence for channel ch
func (c *Clip) Sequence(ch int) *sequence.Sequence { return c.seqs[ch] }

// Stretch returns the playback stretch ratio
func (c *Clip) Stretch() float64 { return c.stretch }

// HasHiddenData reports whether trims hide any samples
func (c *Clip) HasHiddenData() bool { return c.trimLeft > 0 || c.trimRight > 0 }

// SequenceSamplesCount returns the stored samples summed over channels,
// hidden samples included
func (c *Clip) SequenceSamplesCount() int64 {
	var n int64
	for _, s := range c.seqs {
		n += s.Len()
	}
	return n
}

func (c *Clip) seqLen() int64 {
	if len(c.seqs) == 0 {
		return 0
	}
	return c.seqs[0].Len()
}

func (c *Clip) toSample(t float64) int64 {
	return audio.TimeToSamples(t, c.rate)
}

func (c *Clip) toTime(s int64) float64 {
	return audio.SamplesToTime(s, c.rate)
}

// timeOf maps a sequence position to a timeline sample
func (c *Clip) timeOf(k int64) int64 {
	if c.stretch == 1 {
		return c.offset + k
	}
	return c.offset + int64(math.Round(float64(k)*c.stretch))
}

// seqPosOf maps a timeline sample to a sequence position
func (c *Clip) seqPosOf(s int64) int64 {
	if c.stretch == 1 {
		return s - c.offset
	}
	return int64(math.Round(float64(s-c.offset) / c.stretch))
}

func (c *Clip) playStart() int64 { return c.timeOf(c.trimLeft) }
func (c *Clip) playEnd() int64   { return c.timeOf(c.seqLen() - c.trimRight) }

// Offset returns the timeline position of the first stored sample
func (c *Clip) Offset() float64 { return c.toTime(c.offset) }

// SetOffset moves the clip so its first stored sample sits at t
func (c *Clip) SetOffset(t float64) { c.offset = c.toSample(t) }

// Shift moves the clip by dt seconds
func (c *Clip) Shift(dt float64) { c.offset += c.toSample(dt) }

func (c *Clip) shiftSamples(n int64) { c.offset += n }

// PlayStart returns the first audible time
func (c *Clip) PlayStart() float64 { return c.toTime(c.playStart()) }

// PlayEnd returns the end of the audible region
func (c *Clip) PlayEnd() float64 { return c.toTime(c.playEnd()) }

// Duration returns the audible length in seconds
func (c *Clip) Duration() float64 { return c.toTime(c.playEnd() - c.playStart()) }

// TrimLeft returns the hidden time before the play region
func (c *Clip) TrimLeft() float64 { return c.toTime(c.timeOf(c.trimLeft) - c.offset) }

// TrimRight returns the hidden time after the play region
func (c *Clip) TrimRight() float64 { return c.toTime(c.timeOf(c.seqLen()) - c.playEnd()) }

// IsEmpty reports whether nothing is audible
func (c *Clip) IsEmpty() bool { return c.playEnd() <= c.playStart() }

// intersect clips [s0, s1) to the play region
func (c *Clip) intersect(s0, s1 int64) (int64, int64) {
	a := max(s0, c.playStart())
	b := min(s1, c.playEnd())
	if b < a {
		b = a
	}
	return a, b
}

// SetTrimLeft hides t seconds at the start of the stored samples. It does
// not see neighbouring clips; for clips on a track use WaveTrack.SetClipTrim.
func (c *Clip) SetTrimLeft(t float64) error {
	n := c.seqPosOf(c.offset + c.toSample(t))
	if n < 0 || n+c.trimRight > c.seqLen() {
		return fmt.Errorf("%w: left trim %.6f", ErrInvalidRange, t)
	}
	c.trimLeft = n
	return nil
}

// SetTrimRight hides t seconds at the end of the stored samples. Like
// SetTrimLeft it only checks the clip itself.
func (c *Clip) SetTrimRight(t float64) error {
	n := c.seqPosOf(c.offset + c.toSample(t))
	if n < 0 || c.trimLeft+n > c.seqLen() {
		return fmt.Errorf("%w: right trim %.6f", ErrInvalidRange, t)
	}
	c.trimRight = n
	return nil
}

// Clone returns a clip sharing every block
func (c *Clip) Clone() *Clip {
	out := &Clip{
		rate:      c.rate,
		offset:    c.offset,
		trimLeft:  c.trimLeft,
		trimRight: c.trimRight,
		stretch:   c.stretch,
		seqs:      make([]*sequence.Sequence, len(c.seqs)),
	}
	for ch, s := range c.seqs {
		out.seqs[ch] = s.Clone()
	}
	for _, cl := range c.cutLines {
		out.cutLines = append(out.cutLines, cutLine{pos: cl.pos, clip: cl.clip.Clone()})
	}
	return out
}

// Release drops every block reference held by the clip
func (c *Clip) Release() {
	for _, s := range c.seqs {
		s.Release()
	}
	for _, cl := range c.cutLines {
		cl.clip.Release()
	}
	c.cutLines = nil
}

// Copy returns the part of the clip audible in [t0, t1). With forClipboard
// the hidden samples on both sides are kept; otherwise only the audible
// samples are materialized.
func (c *Clip) Copy(t0, t1 float64, forClipboard bool) (*Clip, error) {
	if t1 < t0 {
		return nil, fmt.Errorf("%w: [%.6f, %.6f)", ErrInvalidRange, t0, t1)
	}
	return c.copySamples(c.toSample(t0), c.toSample(t1), forClipboard)
}

func (c *Clip) copySamples(s0, s1 int64, forClipboard bool) (*Clip, error) {
	a, b := c.intersect(s0, s1)
	k0, k1 := c.seqPosOf(a), c.seqPosOf(b)

	if forClipboard {
		out := c.Clone()
		out.trimLeft = k0
		out.trimRight = c.seqLen() - k1
		return out, nil
	}

	out := &Clip{
		rate:    c.rate,
		offset:  a,
		stretch: c.stretch,
		seqs:    make([]*sequence.Sequence, len(c.seqs)),
	}
	for ch, s := range c.seqs {
		piece, err := s.Copy(k0, k1-k0)
		if err != nil {
			out.seqs = out.seqs[:ch]
			out.Release()
			return nil, err
		}
		out.seqs[ch] = piece
	}
	for _, cl := range c.cutLines {
		if cl.pos > k0 && cl.pos < k1 {
			out.cutLines = append(out.cutLines, cutLine{pos: cl.pos - k0, clip: cl.clip.Clone()})
		}
	}
	return out, nil
}

// Clear removes the audible samples in [t0, t1); later samples move earlier
func (c *Clip) Clear(t0, t1 float64) error {
	return c.clearSamples(c.toSample(t0), c.toSample(t1))
}

func (c *Clip) clearSamples(s0, s1 int64) error {
	a, b := c.intersect(s0, s1)
	if a >= b {
		return nil
	}
	if c.stretch != 1 {
		return ErrStretched
	}
	k0, k1 := a-c.offset, b-c.offset
	for _, s := range c.seqs {
		if err := s.Delete(k0, k1-k0); err != nil {
			return err
		}
	}

	kept := c.cutLines[:0]
	for _, cl := range c.cutLines {
		switch {
		case cl.pos > k0 && cl.pos < k1:
			cl.clip.Release()
			continue
		case cl.pos >= k1:
			cl.pos -= k1 - k0
		}
		kept = append(kept, cl)
	}
	c.cutLines = kept
	return nil
}

// ClearAndAddCutLine removes [t0, t1) and keeps the removed audio as a cut line at t0
func (c *Clip) ClearAndAddCutLine(t0, t1 float64) error {
	return c.clearAndAddCutLine(c.toSample(t0), c.toSample(t1))
}

func (c *Clip) clearAndAddCutLine(s0, s1 int64) error {
	a, b := c.intersect(s0, s1)
	if a >= b {
		return nil
	}
	if c.stretch != 1 {
		return ErrStretched
	}
	removed, err := c.copySamples(a, b, false)
	if err != nil {
		return err
	}
	if err := c.clearSamples(a, b); err != nil {
		removed.Release()
		return err
	}
	removed.offset = 0
	c.cutLines = append(c.cutLines, cutLine{pos: a - c.offset, clip: removed})
	return nil
}

// Paste inserts the audible part of src at t; later samples move right
func (c *Clip) Paste(t float64, src *Clip) error {
	_, err := c.pasteSamples(c.toSample(t), src)
	return err
}

// pasteSamples returns the number of timeline samples inserted
func (c *Clip) pasteSamples(s int64, src *Clip) (int64, error) {
	if s < c.playStart() || s > c.playEnd() {
		return 0, fmt.Errorf("%w: paste point outside clip", ErrInvalidRange)
	}
	if c.stretch != 1 || src.stretch != 1 {
		return 0, ErrStretched
	}
	if src.Channels() > c.Channels() {
		return 0, fmt.Errorf("%w: %d channels into %d", ErrChannelMismatch, src.Channels(), c.Channels())
	}

	pieces, err := src.visibleSequences(c.rate)
	if err != nil {
		return 0, err
	}
	defer func() {
		for _, p := range pieces {
			p.Release()
		}
	}()

	k := s - c.offset
	for ch, seq := range c.seqs {
		// A mono source fills every destination channel
		piece := pieces[min(ch, len(pieces)-1)]
		if err := seq.Insert(k, piece); err != nil {
			return 0, err
		}
	}

	n := pieces[0].Len()
	for i := range c.cutLines {
		if c.cutLines[i].pos >= k {
			c.cutLines[i].pos += n
		}
	}
	if src.rate == c.rate {
		for _, cl := range src.cutLines {
			if cl.pos > src.trimLeft && cl.pos < src.seqLen()-src.trimRight {
				c.cutLines = append(c.cutLines, cutLine{pos: k + cl.pos - src.trimLeft, clip: cl.clip.Clone()})
			}
		}
	}
	return n, nil
}

// visibleSequences copies the audible samples of each channel at rate
func (c *Clip) visibleSequences(rate int) ([]*sequence.Sequence, error) {
	return c.copySequences(c.trimLeft, c.seqLen()-c.trimLeft-c.trimRight, rate)
}

// copySequences copies n stored samples from position k of each channel at rate
func (c *Clip) copySequences(k, n int64, rate int) ([]*sequence.Sequence, error) {
	pieces := make([]*sequence.Sequence, 0, len(c.seqs))
	release := func() {
		for _, p := range pieces {
			p.Release()
		}
	}

	for _, s := range c.seqs {
		piece, err := s.Copy(k, n)
		if err != nil {
			release()
			return nil, err
		}
		if rate != c.rate {
			converted, err := resampleSequence(piece, c.rate, rate)
			piece.Release()
			if err != nil {
				release()
				return nil, err
			}
			piece = converted
		}
		pieces = append(pieces, piece)
	}
	return pieces, nil
}

func resampleSequence(s *sequence.Sequence, from, to int) (*sequence.Sequence, error) {
	data, err := s.GetRange(0, s.Len())
	if err != nil {
		return nil, err
	}
	return sequence.FromSamples(s.Store(), s.MaxBlockSize(), resample.Buffer(data, from, to))
}

// Split divides the clip at t into two clips sharing its blocks; each keeps
// the other's part as hidden data
func (c *Clip) Split(t float64) (*Clip, *Clip, error) {
	return c.splitSamples(c.toSample(t))
}

func (c *Clip) splitSamples(s int64) (*Clip, *Clip, error) {
	if s <= c.playStart() || s >= c.playEnd() {
		return nil, nil, fmt.Errorf("%w: split point outside clip", ErrInvalidRange)
	}
	k := c.seqPosOf(s)

	left := c.Clone()
	left.trimRight = c.seqLen() - k
	left.cutLines = filterCutLines(left.cutLines, func(pos int64) bool { return pos <= k })

	right := c.Clone()
	right.trimLeft = k
	right.cutLines = filterCutLines(right.cutLines, func(pos int64) bool { return pos > k })
	return left, right, nil
}

func filterCutLines(lines []cutLine, keep func(int64) bool) []cutLine {
	var out []cutLine
	for _, cl := range lines {
		if keep(cl.pos) {
			out = append(out, cl)
		} else {
			cl.clip.Release()
		}
	}
	return out
}

// Trim hides everything outside [t0, t1)
func (c *Clip) Trim(t0, t1 float64) error {
	return c.trimSamples(c.toSample(t0), c.toSample(t1))
}

func (c *Clip) trimSamples(s0, s1 int64) error {
	a, b := c.intersect(s0, s1)
	if a >= b {
		return fmt.Errorf("%w: trim range does not overlap clip", ErrInvalidRange)
	}
	c.trimLeft = c.seqPosOf(a)
	c.trimRight = c.seqLen() - c.seqPosOf(b)
	return nil
}

// ClearLeft deletes every stored sample before t, hidden or not
func (c *Clip) ClearLeft(t float64) error {
	return c.clearLeftSamples(c.toSample(t))
}

func (c *Clip) clearLeftSamples(s int64) error {
	k := min(max(c.seqPosOf(s), 0), c.seqLen())
	if k == 0 {
		return nil
	}
	for _, seq := range c.seqs {
		if err := seq.Delete(0, k); err != nil {
			return err
		}
	}
	c.offset = c.timeOf(k)
	c.trimLeft = max(c.trimLeft-k, 0)
	c.cutLines = filterCutLines(c.cutLines, func(pos int64) bool { return pos > k })
	for i := range c.cutLines {
		c.cutLines[i].pos -= k
	}
	return nil
}

// ClearRight deletes every stored sample from t on, hidden or not
func (c *Clip) ClearRight(t float64) error {
	return c.clearRightSamples(c.toSample(t))
}

func (c *Clip) clearRightSamples(s int64) error {
	n := c.seqLen()
	k := min(max(c.seqPosOf(s), 0), n)
	if k == n {
		return nil
	}
	for _, seq := range c.seqs {
		if err := seq.Delete(k, n-k); err != nil {
			return err
		}
	}
	c.trimRight = max(c.trimRight-(n-k), 0)
	c.cutLines = filterCutLines(c.cutLines, func(pos int64) bool { return pos < k })
	return nil
}

// DiscardHidden deletes the hidden samples on both sides
func (c *Clip) DiscardHidden() error {
	start, end := c.playStart(), c.playEnd()
	c.trimLeft, c.trimRight = 0, 0
	if err := c.clearLeftSamples(start); err != nil {
		return err
	}
	return c.clearRightSamples(end)
}

// Silence replaces the audible samples in [t0, t1) with zeros
func (c *Clip) Silence(t0, t1 float64) error {
	return c.silenceSamples(c.toSample(t0), c.toSample(t1))
}

func (c *Clip) silenceSamples(s0, s1 int64) error {
	a, b := c.intersect(s0, s1)
	if a >= b {
		return nil
	}
	if c.stretch != 1 {
		return ErrStretched
	}
	for _, seq := range c.seqs {
		if err := seq.SetSilence(a-c.offset, b-a); err != nil {
			return err
		}
	}
	return nil
}

// InsertSilence inserts dur seconds of silence at t inside the play region
func (c *Clip) InsertSilence(t, dur float64) error {
	return c.insertSilenceSamples(c.toSample(t), c.toSample(dur))
}

func (c *Clip) insertSilenceSamples(s, n int64) error {
	if s < c.playStart() || s > c.playEnd() {
		return fmt.Errorf("%w: insert point outside clip", ErrInvalidRange)
	}
	if c.stretch != 1 {
		return ErrStretched
	}
	k := s - c.offset
	for _, seq := range c.seqs {
		if err := seq.InsertSilence(k, n); err != nil {
			return err
		}
	}
	for i := range c.cutLines {
		if c.cutLines[i].pos >= k {
			c.cutLines[i].pos += n
		}
	}
	return nil
}

// appendSilence extends the stored samples by n zeros after the play region
func (c *Clip) appendSilence(n int64) error {
	return c.insertSilenceSamples(c.playEnd(), n)
}

// Get reads channel ch for timeline samples [start, start+len(out)).
// Samples outside the play region read as zero.
func (c *Clip) Get(ch int, start int64, out []float32) error {
	clear(out)
	a, b := c.intersect(start, start+int64(len(out)))
	if a >= b {
		return nil
	}
	dst := out[a-start : b-start]
	seq := c.seqs[ch]

	if c.stretch == 1 {
		return seq.Read(a-c.offset, dst)
	}

	r := resample.NewWithRatio(1/c.stretch, 0)
	k := a - c.offset
	first, count := r.Span(k, len(dst))
	lo := max(first, 0)
	hi := min(first+int64(count), seq.Len())
	src := make([]float32, count)
	if hi > lo {
		if err := seq.Read(lo, src[lo-first:hi-first]); err != nil {
			return err
		}
	}
	r.Resample(src, first, k, dst)
	return nil
}

// Set overwrites channel ch for timeline samples [start, start+len(samples))
// within the play region
func (c *Clip) Set(ch int, start int64, samples []float32) error {
	a, b := c.intersect(start, start+int64(len(samples)))
	if a >= b {
		return nil
	}
	if c.stretch != 1 {
		return ErrStretched
	}
	return c.seqs[ch].SetSamples(a-c.offset, samples[a-start:b-start])
}

// SetStretch changes the stretch ratio keeping the play start fixed
func (c *Clip) SetStretch(ratio float64) error {
	if ratio <= 0 || math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return fmt.Errorf("%w: stretch ratio %f", ErrInvalidRange, ratio)
	}
	ps := c.playStart()
	c.stretch = ratio
	c.offset = ps - int64(math.Round(float64(c.trimLeft)*ratio))
	return nil
}

// ApplyStretch renders the stretch ratio into the samples
func (c *Clip) ApplyStretch() error {
	if c.stretch == 1 {
		return nil
	}
	n := int64(math.Round(float64(c.seqLen()) * c.stretch))
	ps, pe := c.playStart(), c.playEnd()
	linePos := make([]int64, len(c.cutLines))
	for i, cl := range c.cutLines {
		linePos[i] = c.timeOf(cl.pos) - c.offset
	}

	r := resample.NewWithRatio(1/c.stretch, 0)
	rendered := make([]*sequence.Sequence, len(c.seqs))
	release := func() {
		for _, s := range rendered {
			if s != nil {
				s.Release()
			}
		}
	}
	for ch, seq := range c.seqs {
		data, err := seq.GetRange(0, seq.Len())
		if err != nil {
			release()
			return err
		}
		out := make([]float32, n)
		r.Resample(data, 0, 0, out)
		if rendered[ch], err = sequence.FromSamples(seq.Store(), seq.MaxBlockSize(), out); err != nil {
			release()
			return err
		}
	}

	for ch, seq := range c.seqs {
		seq.Release()
		c.seqs[ch] = rendered[ch]
	}
	for i := range c.cutLines {
		c.cutLines[i].pos = linePos[i]
	}
	c.stretch = 1
	c.trimLeft = min(max(ps-c.offset, 0), n)
	c.trimRight = min(max(n-(pe-c.offset), 0), n-c.trimLeft)
	return nil
}

// cutLineAudible reports whether a cut line lies inside the play region.
// Lines in trimmed audio stay with the clip but cannot be expanded.
func (c *Clip) cutLineAudible(pos int64) bool {
	return pos >= c.trimLeft && pos <= c.seqLen()-c.trimRight
}

// CutLines returns the timeline positions of the clip's audible cut lines
func (c *Clip) CutLines() []float64 {
	var out []float64
	for _, cl := range c.cutLines {
		if c.cutLineAudible(cl.pos) {
			out = append(out, c.toTime(c.timeOf(cl.pos)))
		}
	}
	return out
}

func (c *Clip) findCutLine(s int64) int {
	for i, cl := range c.cutLines {
		if c.cutLineAudible(cl.pos) && c.timeOf(cl.pos) == s {
			return i
		}
	}
	return -1
}

// expandCutLine restores the audio of the cut line at s and returns its length.
// The line is dropped only once its audio is back in the clip.
func (c *Clip) expandCutLine(s int64) (int64, bool, error) {
	i := c.findCutLine(s)
	if i < 0 {
		return 0, false, nil
	}
	line := c.cutLines[i].clip

	n, err := c.pasteSamples(s, line)
	if err != nil {
		return 0, true, err
	}
	for j, cl := range c.cutLines {
		if cl.clip == line {
			c.cutLines = append(c.cutLines[:j], c.cutLines[j+1:]...)
			break
		}
	}
	line.Release()
	return n, true, nil
}

// levels folds the audible samples of every channel into lv
func (c *Clip) levels(lv *sampleblock.Levels) error {
	n := c.seqLen() - c.trimLeft - c.trimRight
	for _, seq := range c.seqs {
		if err := seq.Levels(c.trimLeft, n, lv); err != nil {
			return err
		}
	}
	return nil
}

// RemoveCutLine discards the cut line at t
func (c *Clip) RemoveCutLine(t float64) bool {
	i := c.findCutLine(c.toSample(t))
	if i < 0 {
		return false
	}
	c.cutLines[i].clip.Release()
	c.cutLines = append(c.cutLines[:i], c.cutLines[i+1:]...)
	return true
}
