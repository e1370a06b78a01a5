package socketio

import (
	"sync"
	"time"
)

// BroadcastDebouncer collapses bursts of progress changes into one status
// broadcast. The callback runs once the window passes without new triggers,
// or after maxDelay at the latest so that a busy run still reports progress.
type BroadcastDebouncer struct {
	window   time.Duration
	maxDelay time.Duration
	callback func()

	mu      sync.Mutex
	timer   *time.Timer
	first   time.Time // first trigger of the pending burst
	pending bool
	stopped bool
}

// NewBroadcastDebouncer creates a debouncer; maxDelay below window is raised
// to window.
func NewBroadcastDebouncer(window, maxDelay time.Duration, callback func()) *BroadcastDebouncer {
	return &BroadcastDebouncer{
		window:   window,
		maxDelay: max(window, maxDelay),
		callback: callback,
	}
}

// Trigger schedules a broadcast.
func (d *BroadcastDebouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	now := time.Now()
	if !d.pending {
		d.pending = true
		d.first = now
	}

	delay := d.window
	if remaining := d.maxDelay - now.Sub(d.first); remaining < delay {
		delay = max(remaining, 0)
	}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(delay, d.flush)
}

func (d *BroadcastDebouncer) flush() {
	d.mu.Lock()
	if !d.pending || d.stopped {
		d.mu.Unlock()
		return
	}
	d.pending = false
	d.mu.Unlock()

	if d.callback != nil {
		d.callback()
	}
}

// Stop drops any pending broadcast and ignores further triggers.
func (d *BroadcastDebouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	d.pending = false
	if d.timer != nil {
		d.timer.Stop()
	}
}
