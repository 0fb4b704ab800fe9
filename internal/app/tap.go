package app

import (
	"errors"
	"sync"
	"sync/atomic"

	"gocv.io/x/gocv"
)

// ErrNoFrame is returned by FrameTap.ReadFrame before a frame was seen.
var ErrNoFrame = errors.New("no frame available")

// FrameTap keeps a copy of the latest processed frame for preview
// clients. Frames are only copied while someone watches, so the camera
// is never read twice.
type FrameTap struct {
	viewers atomic.Int32

	mu    sync.Mutex
	frame gocv.Mat
	has   bool
}

// Watch registers a viewer. The returned func unregisters it.
func (t *FrameTap) Watch() func() {
	t.viewers.Add(1)
	var once sync.Once
	return func() { once.Do(func() { t.viewers.Add(-1) }) }
}

// Watching reports whether any viewer is registered.
func (t *FrameTap) Watching() bool {
	return t.viewers.Load() > 0
}

func (t *FrameTap) put(frame *gocv.Mat) {
	if !t.Watching() || frame == nil || frame.Empty() {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.has {
		t.frame = gocv.NewMat()
	}
	frame.CopyTo(&t.frame)
	t.has = true
}

// ReadFrame returns a clone of the latest frame. The caller closes it.
func (t *FrameTap) ReadFrame() (*gocv.Mat, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.has {
		return nil, ErrNoFrame
	}
	m := t.frame.Clone()
	return &m, nil
}

// Close releases the stored frame.
func (t *FrameTap) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.has {
		t.has = false
		return t.frame.Close()
	}
	return nil
}
