// internal/booking/debouncer.go
package booking

import (
	"sync"
	"time"
)

// Debouncer runs the most recently scheduled function once no new schedule
// has arrived for the quiet period.
type Debouncer struct {
	delay time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	pending func()
	gen     uint64

	// running is held while a scheduled function executes.
	running sync.Mutex

	wg sync.WaitGroup
}

func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Schedule replaces any pending function and restarts the quiet period.
func (d *Debouncer) Schedule(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopLocked()
	d.pending = fn
	d.gen++
	gen := d.gen

	d.wg.Add(1)
	d.timer = time.AfterFunc(d.delay, func() {
		defer d.wg.Done()
		d.fire(gen)
	})
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || d.pending == nil {
		d.mu.Unlock()
		return
	}
	fn := d.pending
	d.pending = nil
	d.timer = nil
	d.running.Lock()
	d.mu.Unlock()

	defer d.running.Unlock()
	fn()
}

// Flush runs the pending function now, on the caller's goroutine. When a
// timer-driven run is already executing, Flush returns only after it ends.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	fn := d.pending
	d.pending = nil
	d.stopLocked()
	d.gen++
	d.mu.Unlock()

	d.running.Lock()
	defer d.running.Unlock()
	if fn != nil {
		fn()
	}
}

// Cancel drops the pending function without running it.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	d.pending = nil
	d.stopLocked()
	d.gen++
	d.mu.Unlock()
}

func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}

// Wait blocks until no timer callback is running or armed.
func (d *Debouncer) Wait() {
	d.wg.Wait()
}

func (d *Debouncer) stopLocked() {
	if d.timer != nil && d.timer.Stop() {
		d.wg.Done()
	}
	d.timer = nil
}
