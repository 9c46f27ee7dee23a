package grid

import (
	"sync"
	"time"
)

// DefaultDebounce is the quiet interval after the last edit before a bulk save goes out.
const DefaultDebounce = 600 * time.Millisecond

// Stopper cancels a scheduled callback. *time.Timer satisfies it.
type Stopper interface {
	Stop() bool
}

// Clock schedules callbacks. Tests substitute a manual clock.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Stopper
}

type systemClock struct{}

func (systemClock) AfterFunc(d time.Duration, f func()) Stopper {
	return time.AfterFunc(d, f)
}

// SystemClock is the wall clock.
func SystemClock() Clock { return systemClock{} }

// debouncer runs fn once the trigger calls stop arriving for delay.
type debouncer struct {
	mu    sync.Mutex
	clock Clock
	delay time.Duration
	fn    func()
	timer Stopper
	gen   uint64
}

func newDebouncer(clock Clock, delay time.Duration, fn func()) *debouncer {
	return &debouncer{clock: clock, delay: delay, fn: fn}
}

// Trigger restarts the quiet interval.
func (d *debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = d.clock.AfterFunc(d.delay, func() {
		d.mu.Lock()
		// a Stop that lost the race with the timer must not fire a stale callback
		if gen != d.gen {
			d.mu.Unlock()
			return
		}
		d.timer = nil
		d.mu.Unlock()
		d.fn()
	})
}

// Cancel drops a pending callback and reports whether one was pending.
func (d *debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	if d.timer == nil {
		return false
	}
	d.timer.Stop()
	d.timer = nil
	return true
}

func (d *debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}
