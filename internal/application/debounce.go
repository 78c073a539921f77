package application

import (
	"sync"
	"time"
)

// Debouncer coalesces bursts of values: apply runs once the window has passed without a
// new value, and receives only the latest one. A value is never applied after a newer one.
type Debouncer[T any] struct {
	mu      sync.Mutex
	window  time.Duration
	apply   func(T)
	timer   *time.Timer
	pending T
	armed   bool
	seq     uint64

	applyMu sync.Mutex
	applied uint64
}

// NewDebouncer creates a Debouncer. A non-positive window applies values immediately.
func NewDebouncer[T any](window time.Duration, apply func(T)) *Debouncer[T] {
	return &Debouncer[T]{window: window, apply: apply}
}

// Trigger records v as the pending value and restarts the window.
func (d *Debouncer[T]) Trigger(v T) {
	d.mu.Lock()
	d.seq++
	seq := d.seq

	if d.window <= 0 {
		d.armed = false
		d.mu.Unlock()
		d.applyLatest(seq, v)
		return
	}
	defer d.mu.Unlock()

	d.pending = v
	d.armed = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.fire)
}

// Flush applies the pending value now, if any.
func (d *Debouncer[T]) Flush() {
	d.fire()
}

// Stop drops the pending value.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.armed = false
}

func (d *Debouncer[T]) fire() {
	d.mu.Lock()
	if !d.armed {
		d.mu.Unlock()
		return
	}
	v, seq := d.pending, d.seq
	d.armed = false
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()

	d.applyLatest(seq, v)
}

// applyLatest runs apply for v unless a value triggered later has already been applied.
func (d *Debouncer[T]) applyLatest(seq uint64, v T) {
	d.applyMu.Lock()
	defer d.applyMu.Unlock()

	if seq <= d.applied {
		return
	}
	d.applied = seq
	d.apply(v)
}
