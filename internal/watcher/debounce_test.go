package watcher

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewDebouncer(t *testing.T) {
	d := NewDebouncer(100*time.Millisecond, func(string) {})

	if d.Delay() != 100*time.Millisecond {
		t.Errorf("expected delay 100ms, got %v", d.Delay())
	}
	if d.Pending() != 0 {
		t.Errorf("expected 0 pending, got %d", d.Pending())
	}
}

func TestDebouncer_SingleFile(t *testing.T) {
	var called atomic.Int32
	var mu sync.Mutex
	var calledPath string

	d := NewDebouncer(50*time.Millisecond, func(path string) {
		mu.Lock()
		calledPath = path
		mu.Unlock()
		called.Add(1)
	})

	d.Add("/train/images/a.png")
	if !d.IsPending("/train/images/a.png") {
		t.Error("path should be pending after Add")
	}

	time.Sleep(150 * time.Millisecond)

	if called.Load() != 1 {
		t.Errorf("expected 1 callback, got %d", called.Load())
	}
	mu.Lock()
	if calledPath != "/train/images/a.png" {
		t.Errorf("callback got %q", calledPath)
	}
	mu.Unlock()
	if d.Pending() != 0 {
		t.Errorf("expected nothing pending after firing, got %d", d.Pending())
	}
}

func TestDebouncer_CoalescesBurst(t *testing.T) {
	var called atomic.Int32
	d := NewDebouncer(80*time.Millisecond, func(string) { called.Add(1) })

	for i := 0; i < 5; i++ {
		d.Add("/val/labels/a.txt")
		time.Sleep(20 * time.Millisecond)
	}
	time.Sleep(200 * time.Millisecond)

	if called.Load() != 1 {
		t.Errorf("expected burst to coalesce into 1 callback, got %d", called.Load())
	}
}

func TestDebouncer_IndependentPaths(t *testing.T) {
	var called atomic.Int32
	d := NewDebouncer(30*time.Millisecond, func(string) { called.Add(1) })

	d.Add("a.png")
	d.Add("a.txt")
	d.Add("b.png")
	if d.Pending() != 3 {
		t.Errorf("expected 3 pending, got %d", d.Pending())
	}
	time.Sleep(150 * time.Millisecond)
	if called.Load() != 3 {
		t.Errorf("expected 3 callbacks, got %d", called.Load())
	}
}

func TestDebouncer_CancelAll(t *testing.T) {
	var called atomic.Int32
	d := NewDebouncer(50*time.Millisecond, func(string) { called.Add(1) })

	d.Add("a.png")
	d.Add("b.png")
	d.CancelAll()
	time.Sleep(120 * time.Millisecond)

	if called.Load() != 0 {
		t.Errorf("cancelled paths should not fire, got %d callbacks", called.Load())
	}
	if d.Pending() != 0 {
		t.Errorf("expected 0 pending, got %d", d.Pending())
	}
}

func TestDebouncer_DrainReturnsPending(t *testing.T) {
	d := NewDebouncer(time.Second, nil)
	d.Add("x.png")
	d.Add("y.png")

	paths := d.drain()
	if len(paths) != 2 {
		t.Errorf("expected 2 drained paths, got %v", paths)
	}
	if d.Pending() != 0 {
		t.Error("drain should leave nothing pending")
	}
}
