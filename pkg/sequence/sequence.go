// ABOUTME: Ordered list of shared sample blocks forming one channel of audio
// ABOUTME: Edits split only the blocks at range boundaries and share everything else
package sequence

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Resonate-Protocol/resonate-edit/pkg/sampleblock"
	"github.com/google/uuid"
)

// DefaultMaxBlockSize is the largest block, in samples, created by appends
const DefaultMaxBlockSize = 65536

// ErrRange is returned for sample ranges outside the sequence
var ErrRange = errors.New("sample range out of bounds")

type entry struct {
	block *sampleblock.Block
	start int64
}

// BlockInfo describes one block reference of a sequence
type BlockInfo struct {
	ID     uuid.UUID
	Start  int64
	Len    int64
	Silent bool
}

// Sequence is a run of samples backed by shared blocks.
// The block lengths always sum to Len().
type Sequence struct {
	store    *sampleblock.Store
	maxBlock int
	blocks   []entry
	length   int64
}

// New creates an empty sequence
func New(store *sampleblock.Store, maxBlock int) *Sequence {
	if maxBlock <= 0 {
		maxBlock = DefaultMaxBlockSize
	}
	return &Sequence{
		store:    store,
		maxBlock: maxBlock,
	}
}

// FromSamples creates a sequence holding a copy of samples
func FromSamples(store *sampleblock.Store, maxBlock int, samples []float32) (*Sequence, error) {
	s := New(store, maxBlock)
	if err := s.Append(samples); err != nil {
		return nil, err
	}
	return s, nil
}

// Store returns the block store the sequence allocates from
func (s *Sequence) Store() *sampleblock.Store { return s.store }

// MaxBlockSize returns the block size limit
func (s *Sequence) MaxBlockSize() int { return s.maxBlock }

// Len returns the number of samples
func (s *Sequence) Len() int64 { return s.length }

// Blocks lists the block references in order
func (s *Sequence) Blocks() []BlockInfo {
	infos := make([]BlockInfo, len(s.blocks))
	for i, e := range s.blocks {
		infos[i] = BlockInfo{
			ID:     e.block.ID(),
			Start:  e.start,
			Len:    int64(e.block.Len()),
			Silent: e.block.Silent(),
		}
	}
	return infos
}

func (s *Sequence) checkRange(start, n int64) error {
	if start < 0 || n < 0 || start+n > s.length {
		return fmt.Errorf("%w: [%d,%d) of %d samples", ErrRange, start, start+n, s.length)
	}
	return nil
}

// findBlock returns the index of the block containing pos
func (s *Sequence) findBlock(pos int64) int {
	return sort.Search(len(s.blocks), func(i int) bool {
		e := s.blocks[i]
		return e.start+int64(e.block.Len()) > pos
	})
}

// Read fills out with samples starting at start
func (s *Sequence) Read(start int64, out []float32) error {
	n := int64(len(out))
	if err := s.checkRange(start, n); err != nil {
		return err
	}

	done := int64(0)
	for i := s.findBlock(start); done < n; i++ {
		e := s.blocks[i]
		off := start + done - e.start
		cnt := min(int64(e.block.Len())-off, n-done)
		if err := e.block.Read(int(off), out[done:done+cnt]); err != nil {
			return err
		}
		done += cnt
	}
	return nil
}

// Levels folds n samples starting at start into lv. Blocks wholly inside
// the range use their stored summary; partial blocks are read.
func (s *Sequence) Levels(start, n int64, lv *sampleblock.Levels) error {
	if err := s.checkRange(start, n); err != nil {
		return err
	}

	var buf []float32
	done := int64(0)
	for i := s.findBlock(start); done < n; i++ {
		e := s.blocks[i]
		off := start + done - e.start
		cnt := min(int64(e.block.Len())-off, n-done)
		if off == 0 && cnt == int64(e.block.Len()) {
			lv.Add(e.block.Summary(), int(cnt))
		} else {
			if int64(cap(buf)) < cnt {
				buf = make([]float32, cnt)
			}
			part := buf[:cnt]
			if err := e.block.Read(int(off), part); err != nil {
				return err
			}
			lv.Add(sampleblock.Summarize(part), len(part))
		}
		done += cnt
	}
	return nil
}

// GetRange returns a copy of n samples starting at start
func (s *Sequence) GetRange(start, n int64) ([]float32, error) {
	out := make([]float32, n)
	if err := s.Read(start, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Sequence) newBlocks(samples []float32) ([]*sampleblock.Block, error) {
	var blocks []*sampleblock.Block
	for len(samples) > 0 {
		n := min(len(samples), s.maxBlock)
		b, err := s.store.Create(samples[:n])
		if err != nil {
			releaseAll(blocks)
			return nil, err
		}
		blocks = append(blocks, b)
		samples = samples[n:]
	}
	return blocks, nil
}

func (s *Sequence) silentBlocks(n int64) []*sampleblock.Block {
	var blocks []*sampleblock.Block
	for n > 0 {
		cnt := min(n, int64(s.maxBlock))
		blocks = append(blocks, s.store.CreateSilent(int(cnt)))
		n -= cnt
	}
	return blocks
}

func releaseAll(blocks []*sampleblock.Block) {
	for _, b := range blocks {
		b.Release()
	}
}

// renumber recomputes block starts and the length from index from
func (s *Sequence) renumber(from int) {
	pos := int64(0)
	if from > 0 {
		prev := s.blocks[from-1]
		pos = prev.start + int64(prev.block.Len())
	}
	for i := from; i < len(s.blocks); i++ {
		s.blocks[i].start = pos
		pos += int64(s.blocks[i].block.Len())
	}
	s.length = pos
}

// splitAt makes pos a block boundary and returns the index of the block
// starting there. Only the block straddling pos is rewritten.
func (s *Sequence) splitAt(pos int64) (int, error) {
	if pos >= s.length {
		return len(s.blocks), nil
	}
	i := s.findBlock(pos)
	e := s.blocks[i]
	if e.start == pos {
		return i, nil
	}

	off := int(pos - e.start)
	var left, right *sampleblock.Block
	if e.block.Silent() {
		left = s.store.CreateSilent(off)
		right = s.store.CreateSilent(e.block.Len() - off)
	} else {
		data, err := e.block.Samples()
		if err != nil {
			return 0, err
		}
		if left, err = s.store.Create(data[:off]); err != nil {
			return 0, err
		}
		if right, err = s.store.Create(data[off:]); err != nil {
			left.Release()
			return 0, err
		}
	}

	s.blocks = append(s.blocks[:i], append([]entry{{left, e.start}, {right, pos}}, s.blocks[i+1:]...)...)
	e.block.Release()
	return i + 1, nil
}

// replace swaps the blocks covering [start, start+n) for blocks.
// New blocks are already owned by the caller and are adopted.
func (s *Sequence) replace(start, n int64, blocks []*sampleblock.Block) error {
	i, err := s.splitAt(start)
	if err != nil {
		releaseAll(blocks)
		return err
	}
	j, err := s.splitAt(start + n)
	if err != nil {
		releaseAll(blocks)
		return err
	}

	for _, e := range s.blocks[i:j] {
		e.block.Release()
	}

	ins := make([]entry, len(blocks))
	for k, b := range blocks {
		ins[k] = entry{block: b}
	}
	tail := append([]entry(nil), s.blocks[j:]...)
	s.blocks = append(append(s.blocks[:i], ins...), tail...)
	s.renumber(i)
	return nil
}

// Append adds samples at the end, topping up a partially filled last block
func (s *Sequence) Append(samples []float32) error {
	if len(samples) == 0 {
		return nil
	}

	var blocks []*sampleblock.Block
	start := s.length
	if n := len(s.blocks); n > 0 {
		last := s.blocks[n-1]
		if room := s.maxBlock - last.block.Len(); room > 0 {
			data, err := last.block.Samples()
			if err != nil {
				return err
			}
			take := min(room, len(samples))
			merged, err := s.store.Create(append(data, samples[:take]...))
			if err != nil {
				return err
			}
			blocks = append(blocks, merged)
			samples = samples[take:]
			start = last.start
		}
	}

	more, err := s.newBlocks(samples)
	if err != nil {
		releaseAll(blocks)
		return err
	}
	return s.replace(start, s.length-start, append(blocks, more...))
}

// AppendSilence adds n zero samples at the end
func (s *Sequence) AppendSilence(n int64) error {
	return s.InsertSilence(s.length, n)
}

// Insert shares the blocks of src at position at
func (s *Sequence) Insert(at int64, src *Sequence) error {
	if err := s.checkRange(at, 0); err != nil {
		return err
	}
	blocks := make([]*sampleblock.Block, len(src.blocks))
	for i, e := range src.blocks {
		blocks[i] = e.block.Retain()
	}
	return s.replace(at, 0, blocks)
}

// InsertSamples inserts a copy of samples at position at
func (s *Sequence) InsertSamples(at int64, samples []float32) error {
	if err := s.checkRange(at, 0); err != nil {
		return err
	}
	blocks, err := s.newBlocks(samples)
	if err != nil {
		return err
	}
	return s.replace(at, 0, blocks)
}

// InsertSilence inserts n zero samples at position at
func (s *Sequence) InsertSilence(at, n int64) error {
	if err := s.checkRange(at, 0); err != nil {
		return err
	}
	if n < 0 {
		return fmt.Errorf("%w: negative silence length %d", ErrRange, n)
	}
	return s.replace(at, 0, s.silentBlocks(n))
}

// Delete removes n samples starting at start
func (s *Sequence) Delete(start, n int64) error {
	if err := s.checkRange(start, n); err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	return s.replace(start, n, nil)
}

// SetSamples overwrites samples starting at start
func (s *Sequence) SetSamples(start int64, samples []float32) error {
	n := int64(len(samples))
	if err := s.checkRange(start, n); err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	blocks, err := s.newBlocks(samples)
	if err != nil {
		return err
	}
	return s.replace(start, n, blocks)
}

// SetSilence overwrites n samples starting at start with zeros
func (s *Sequence) SetSilence(start, n int64) error {
	if err := s.checkRange(start, n); err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	return s.replace(start, n, s.silentBlocks(n))
}

// Copy returns a new sequence holding [start, start+n). Blocks wholly inside
// the range are shared; partial edge blocks are copied into new blocks.
func (s *Sequence) Copy(start, n int64) (*Sequence, error) {
	if err := s.checkRange(start, n); err != nil {
		return nil, err
	}

	out := New(s.store, s.maxBlock)
	end := start + n
	pos := start
	for i := s.findBlock(start); pos < end; i++ {
		e := s.blocks[i]
		blockEnd := e.start + int64(e.block.Len())
		next := min(blockEnd, end)

		if e.start >= start && blockEnd <= end {
			out.blocks = append(out.blocks, entry{block: e.block.Retain()})
		} else {
			cnt := next - pos
			var b *sampleblock.Block
			if e.block.Silent() {
				b = s.store.CreateSilent(int(cnt))
			} else {
				data := make([]float32, cnt)
				if err := e.block.Read(int(pos-e.start), data); err != nil {
					out.Release()
					return nil, err
				}
				var err error
				if b, err = s.store.Create(data); err != nil {
					out.Release()
					return nil, err
				}
			}
			out.blocks = append(out.blocks, entry{block: b})
		}
		pos = next
	}
	out.renumber(0)
	return out, nil
}

// Clone returns a sequence sharing every block
func (s *Sequence) Clone() *Sequence {
	out := &Sequence{
		store:    s.store,
		maxBlock: s.maxBlock,
		blocks:   make([]entry, len(s.blocks)),
		length:   s.length,
	}
	for i, e := range s.blocks {
		out.blocks[i] = entry{block: e.block.Retain(), start: e.start}
	}
	return out
}

// Release drops every block reference and empties the sequence
func (s *Sequence) Release() {
	for _, e := range s.blocks {
		e.block.Release()
	}
	s.blocks = nil
	s.length = 0
}
