package preview

import (
	"image"
	"sync"
	"time"
)

// Snapshot is the most recent annotated frame.
type Snapshot struct {
	Image      image.Image
	FrameIndex int
	CapturedAt time.Time
}

// Cache holds the latest Snapshot. The sampling loop is the only writer;
// stored images are never modified after Set.
type Cache struct {
	mu       sync.RWMutex
	snapshot Snapshot
	ready    bool
	now      func() time.Time
}

func NewCache() *Cache {
	return &Cache{now: time.Now}
}

// Set replaces the cached snapshot.
func (c *Cache) Set(img image.Image, frameIndex int) {
	s := Snapshot{Image: img, FrameIndex: frameIndex, CapturedAt: c.now()}

	c.mu.Lock()
	c.snapshot = s
	c.ready = true
	c.mu.Unlock()
}

// Get returns the latest snapshot; ok is false until the first Set.
func (c *Cache) Get() (Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot, c.ready
}

// Ready reports whether a snapshot is available.
func (c *Cache) Ready() bool {
	_, ok := c.Get()
	return ok
}
