// Package debounce coalesces bursts of values into a single call made once
// input has been stable for a delay.
package debounce

import (
	"sync"
	"time"
)

const DefaultDelay = 500 * time.Millisecond

// Debouncer delivers the last pushed value to fn after delay has passed
// without another Push. fn runs on its own goroutine.
type Debouncer[T any] struct {
	mu      sync.Mutex
	delay   time.Duration
	fn      func(T)
	timer   *time.Timer
	pending bool
	value   T
	gen     uint64
	stopped bool
}

// New returns a debouncer that calls fn with the last pushed value once
// delay has passed without another push.
func New[T any](delay time.Duration, fn func(T)) *Debouncer[T] {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Debouncer[T]{delay: delay, fn: fn}
}

// Push replaces the pending value and restarts the timer.
func (d *Debouncer[T]) Push(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	d.value = v
	d.pending = true
	d.gen++
	gen := d.gen

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() { d.fire(gen) })
}

// fire delivers the value unless a later Push, Flush or Stop superseded
// the timer that scheduled it.
func (d *Debouncer[T]) fire(gen uint64) {
	d.mu.Lock()
	if d.gen != gen || !d.pending {
		d.mu.Unlock()
		return
	}
	v := d.value
	d.pending = false
	d.mu.Unlock()

	d.fn(v)
}

// Flush delivers the pending value now, on the calling goroutine. It
// reports whether there was one.
func (d *Debouncer[T]) Flush() bool {
	d.mu.Lock()
	if !d.pending {
		d.mu.Unlock()
		return false
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	v := d.value
	d.pending = false
	d.mu.Unlock()

	d.fn(v)
	return true
}

// Stop drops the pending value. Later pushes are ignored.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	d.pending = false
	d.stopped = true
}

// hasPending reports whether a value is waiting for the timer.
func (d *Debouncer[T]) hasPending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}
