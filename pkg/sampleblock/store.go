// ABOUTME: Reference-counted immutable sample blocks
// ABOUTME: The store creates blocks, tracks live ones and frees storage at refcount zero
package sampleblock

import (
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/viterin/vek/vek32"
)

var (
	// ErrStorage wraps every backend failure
	ErrStorage = errors.New("sample block storage failure")

	// ErrFreed is returned when reading a block whose last reference was released
	ErrFreed = errors.New("sample block already freed")
)

// Summary holds per-block statistics computed at creation
type Summary struct {
	Min float32
	Max float32
	RMS float32
}

// Levels accumulates peak and RMS over several summarized runs
type Levels struct {
	peak   float32
	energy float64
	count  int64
}

// Add folds in the summary of n samples
func (l *Levels) Add(sum Summary, n int) {
	l.peak = max(l.peak, sum.Max, -sum.Min)
	l.energy += float64(sum.RMS) * float64(sum.RMS) * float64(n)
	l.count += int64(n)
}

// Peak returns the largest absolute sample seen
func (l *Levels) Peak() float32 { return l.peak }

// RMS returns the root mean square over every added sample
func (l *Levels) RMS() float32 {
	if l.count == 0 {
		return 0
	}
	return float32(math.Sqrt(l.energy / float64(l.count)))
}

// Stats reports block accounting
type Stats struct {
	Live    int
	Created int64
	Freed   int64
}

// Store creates blocks and frees them from the backend when unreferenced
type Store struct {
	backend Backend

	mu   sync.Mutex
	live map[uuid.UUID]*Block

	created atomic.Int64
	freed   atomic.Int64
}

// NewStore creates a store over backend
func NewStore(backend Backend) *Store {
	return &Store{
		backend: backend,
		live:    make(map[uuid.UUID]*Block),
	}
}

// NewMemoryStore is shorthand for a store over a fresh MemoryBackend
func NewMemoryStore() *Store {
	return NewStore(NewMemoryBackend())
}

// Create persists samples as a new block holding one reference.
// All-zero input becomes a silent block that stores no data.
func (s *Store) Create(samples []float32) (*Block, error) {
	sum := Summarize(samples)
	if sum.Min == 0 && sum.Max == 0 {
		return s.CreateSilent(len(samples)), nil
	}

	b := &Block{
		id:      uuid.New(),
		store:   s,
		length:  len(samples),
		summary: sum,
	}
	if err := s.backend.Put(b.id, samples); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	b.refs.Store(1)
	s.register(b)
	return b, nil
}

// CreateSilent creates a block of n zero samples without touching the backend
func (s *Store) CreateSilent(n int) *Block {
	b := &Block{
		id:     uuid.New(),
		store:  s,
		length: n,
		silent: true,
	}
	b.refs.Store(1)
	s.register(b)
	return b
}

func (s *Store) register(b *Block) {
	s.mu.Lock()
	s.live[b.id] = b
	s.mu.Unlock()
	s.created.Add(1)
}

func (s *Store) free(b *Block) {
	s.mu.Lock()
	delete(s.live, b.id)
	s.mu.Unlock()
	s.freed.Add(1)

	if b.silent {
		return
	}
	if err := s.backend.Delete(b.id); err != nil {
		log.Printf("Failed to delete block %s: %v", b.id, err)
	}
}

// Stats returns the current block accounting
func (s *Store) Stats() Stats {
	s.mu.Lock()
	live := len(s.live)
	s.mu.Unlock()

	return Stats{
		Live:    live,
		Created: s.created.Load(),
		Freed:   s.freed.Load(),
	}
}

// Block is an immutable run of samples shared by reference
type Block struct {
	id      uuid.UUID
	store   *Store
	length  int
	silent  bool
	summary Summary
	refs    atomic.Int32
}

// ID returns the block identity
func (b *Block) ID() uuid.UUID { return b.id }

// Len returns the number of samples
func (b *Block) Len() int { return b.length }

// Silent reports whether the block is all zeros
func (b *Block) Silent() bool { return b.silent }

// Summary returns min/max/RMS of the block
func (b *Block) Summary() Summary { return b.summary }

// Refs returns the current reference count
func (b *Block) Refs() int { return int(b.refs.Load()) }

// Retain adds a reference and returns the block
func (b *Block) Retain() *Block {
	b.refs.Add(1)
	return b
}

// Release drops a reference; the last release frees the block
func (b *Block) Release() {
	n := b.refs.Add(-1)
	switch {
	case n == 0:
		b.store.free(b)
	case n < 0:
		log.Printf("Block %s released more times than retained", b.id)
	}
}

// Read copies len(out) samples starting at start
func (b *Block) Read(start int, out []float32) error {
	if b.refs.Load() <= 0 {
		return fmt.Errorf("%w: %s", ErrFreed, b.id)
	}
	if start < 0 || start+len(out) > b.length {
		return fmt.Errorf("read [%d,%d) outside block of %d samples", start, start+len(out), b.length)
	}
	if b.silent {
		clear(out)
		return nil
	}
	if err := b.store.backend.Get(b.id, start, out); err != nil {
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return nil
}

// Samples returns a copy of the whole block
func (b *Block) Samples() ([]float32, error) {
	out := make([]float32, b.length)
	if err := b.Read(0, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Summarize computes min, max and RMS of samples
func Summarize(samples []float32) Summary {
	if len(samples) == 0 {
		return Summary{}
	}
	energy := vek32.Dot(samples, samples)
	return Summary{
		Min: vek32.Min(samples),
		Max: vek32.Max(samples),
		RMS: float32(math.Sqrt(float64(energy) / float64(len(samples)))),
	}
}
