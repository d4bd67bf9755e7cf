package debounce

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

const DefaultDelay = 500 * time.Millisecond

// Debouncer runs only the most recently triggered function, once the delay
// has passed without another trigger.
type Debouncer struct {
	clock clockwork.Clock
	delay time.Duration

	mu      sync.Mutex
	timer   clockwork.Timer
	pending func()
	gen     uint64
}

func New(clock clockwork.Clock, delay time.Duration) *Debouncer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Debouncer{clock: clock, delay: delay}
}

func (d *Debouncer) Delay() time.Duration { return d.delay }

// Trigger schedules fn, cancelling any earlier pending call.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.pending = fn
	d.timer = d.clock.AfterFunc(d.delay, func() { d.fire(gen) })
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
	d.mu.Unlock()

	fn()
}

// Pending reports whether a call is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}

// Flush runs the pending call immediately. It returns false when nothing was
// pending.
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	fn := d.take()
	d.mu.Unlock()
	if fn == nil {
		return false
	}
	fn()
	return true
}

// Stop cancels the pending call, if any.
func (d *Debouncer) Stop() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.take() != nil
}

func (d *Debouncer) take() func() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
	fn := d.pending
	d.pending = nil
	return fn
}
