// ABOUTME: Application clipboard holding one detached track list snapshot
// ABOUTME: Replaced wholesale on every cut or copy; the old snapshot is released
package clipboard

import (
	"sync"

	"github.com/Resonate-Protocol/resonate-edit/pkg/track"
	"github.com/google/uuid"
)

// Clipboard holds tracks copied from [t0, t1) of the owning project
type Clipboard struct {
	mu     sync.RWMutex
	tracks *track.List
	t0, t1 float64
	owner  uuid.UUID
}

// New creates an empty clipboard
func New() *Clipboard {
	return &Clipboard{}
}

// Assign takes ownership of tracks, releasing the previous contents
func (c *Clipboard) Assign(tracks *track.List, t0, t1 float64, owner uuid.UUID) {
	c.mu.Lock()
	old := c.tracks
	c.tracks = tracks
	c.t0, c.t1 = t0, t1
	c.owner = owner
	c.mu.Unlock()

	if old != nil {
		old.Release()
	}
}

// Clear releases the contents
func (c *Clipboard) Clear() {
	c.Assign(nil, 0, 0, uuid.Nil)
}

// Tracks returns the held list; callers must not modify or release it
func (c *Clipboard) Tracks() *track.List {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tracks
}

// Empty reports whether the clipboard holds no tracks
func (c *Clipboard) Empty() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tracks == nil || c.tracks.Len() == 0
}

func (c *Clipboard) T0() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.t0
}

func (c *Clipboard) T1() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.t1
}

// Duration returns the length of the copied range
func (c *Clipboard) Duration() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.t1 - c.t0
}

// Owner returns the id of the project the contents came from
func (c *Clipboard) Owner() uuid.UUID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.owner
}
