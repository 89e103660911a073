package watcher

import (
	"sync"
	"time"
)

// Debouncer coalesces bursts of events per path. A moved image pair raises
// several events (create, write, chmod) in quick succession; only one
// callback fires once the path has been quiet for the delay.
type Debouncer struct {
	delay    time.Duration
	timers   map[string]*time.Timer
	callback func(path string)
	mu       sync.Mutex
}

// NewDebouncer returns a Debouncer that calls callback for each path after
// delay of inactivity on that path.
func NewDebouncer(delay time.Duration, callback func(path string)) *Debouncer {
	return &Debouncer{
		delay:    delay,
		timers:   make(map[string]*time.Timer),
		callback: callback,
	}
}

// Add schedules path, restarting its timer if it is already pending.
func (d *Debouncer) Add(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if timer, ok := d.timers[path]; ok {
		timer.Stop()
	}

	var timer *time.Timer
	timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		// A newer Add replaced this timer.
		if d.timers[path] != timer {
			d.mu.Unlock()
			return
		}
		delete(d.timers, path)
		d.mu.Unlock()

		if d.callback != nil {
			d.callback(path)
		}
	})
	d.timers[path] = timer
}

// CancelAll drops every pending path without firing callbacks.
func (d *Debouncer) CancelAll() {
	d.drain()
}

// drain stops every timer and returns the paths that were pending.
func (d *Debouncer) drain() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	paths := make([]string, 0, len(d.timers))
	for path, timer := range d.timers {
		timer.Stop()
		delete(d.timers, path)
		paths = append(paths, path)
	}
	return paths
}

// Pending returns the number of paths still settling.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.timers)
}

// IsPending reports whether path is still settling.
func (d *Debouncer) IsPending(path string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.timers[path]
	return ok
}

// Delay returns the configured quiet period.
func (d *Debouncer) Delay() time.Duration {
	return d.delay
}
