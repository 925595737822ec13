// ABOUTME: Persistence backends for sample blocks
// ABOUTME: In-memory map backend and a directory backend writing one file per block
package sampleblock

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// Backend persists immutable sample runs keyed by block id
type Backend interface {
	// Put stores samples under id
	Put(id uuid.UUID, samples []float32) error

	// Get reads len(out) samples starting at start
	Get(id uuid.UUID, start int, out []float32) error

	// Delete removes the stored samples
	Delete(id uuid.UUID) error
}

// MemoryBackend keeps block data in process memory
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[uuid.UUID][]float32
}

// NewMemoryBackend creates an empty in-memory backend
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		data: make(map[uuid.UUID][]float32),
	}
}

func (m *MemoryBackend) Put(id uuid.UUID, samples []float32) error {
	buf := make([]float32, len(samples))
	copy(buf, samples)

	m.mu.Lock()
	m.data[id] = buf
	m.mu.Unlock()
	return nil
}

func (m *MemoryBackend) Get(id uuid.UUID, start int, out []float32) error {
	m.mu.RLock()
	buf, ok := m.data[id]
	m.mu.RUnlock()

	if !ok {
		return fmt.Errorf("block %s not found", id)
	}
	if start < 0 || start+len(out) > len(buf) {
		return fmt.Errorf("read [%d,%d) outside block of %d samples", start, start+len(out), len(buf))
	}
	copy(out, buf[start:start+len(out)])
	return nil
}

func (m *MemoryBackend) Delete(id uuid.UUID) error {
	m.mu.Lock()
	delete(m.data, id)
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored blocks
func (m *MemoryBackend) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// DirBackend stores each block as little-endian float32 in <dir>/<id>.blk
type DirBackend struct {
	dir string
}

// NewDirBackend creates the directory if needed
func NewDirBackend(dir string) (*DirBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create block directory: %w", err)
	}
	return &DirBackend{dir: dir}, nil
}

// Dir returns the storage directory
func (d *DirBackend) Dir() string {
	return d.dir
}

func (d *DirBackend) path(id uuid.UUID) string {
	return filepath.Join(d.dir, id.String()+".blk")
}

func (d *DirBackend) Put(id uuid.UUID, samples []float32) error {
	buf := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(s))
	}

	f, err := os.Create(d.path(id))
	if err != nil {
		return err
	}
	if _, err := f.Write(buf); err != nil {
		f.Close()
		return err
	}
	// Close reports deferred write errors such as a full disk
	return f.Close()
}

func (d *DirBackend) Get(id uuid.UUID, start int, out []float32) error {
	f, err := os.Open(d.path(id))
	if err != nil {
		return err
	}
	defer f.Close()

	buf := make([]byte, len(out)*4)
	if _, err := f.ReadAt(buf, int64(start)*4); err != nil {
		if err == io.EOF {
			return fmt.Errorf("read [%d,%d) past end of block %s", start, start+len(out), id)
		}
		return err
	}
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return nil
}

func (d *DirBackend) Delete(id uuid.UUID) error {
	err := os.Remove(d.path(id))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
