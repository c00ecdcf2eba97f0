package player

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
)

// Resource is one prepared audio file handed to a Sink. Pause and volume are
// controlled by the Player while the sink is playing it.
type Resource struct {
	ID   string // empty for the chime
	Path string

	gain atomic.Uint64

	mu      sync.Mutex
	paused  bool
	resumed chan struct{}
}

func NewResource(id, path string, volume float64) *Resource {
	r := &Resource{ID: id, Path: path}
	r.SetGain(volume)
	return r
}

func (r *Resource) Gain() float64 {
	return math.Float64frombits(r.gain.Load())
}

func (r *Resource) SetGain(v float64) {
	r.gain.Store(math.Float64bits(v))
}

// TogglePause flips the paused flag and reports the new value.
func (r *Resource) TogglePause() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.paused {
		r.paused = false
		close(r.resumed)
		return false
	}
	r.paused = true
	r.resumed = make(chan struct{})
	return true
}

func (r *Resource) Paused() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.paused
}

// WaitUnpaused blocks while the resource is paused.
func (r *Resource) WaitUnpaused(ctx context.Context) error {
	r.mu.Lock()
	if !r.paused {
		r.mu.Unlock()
		return nil
	}
	ch := r.resumed
	r.mu.Unlock()
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
