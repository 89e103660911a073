// Package task runs a long operation in a goroutine and streams its progress
// messages back to the caller through a Handle.
package task

import (
	"context"
	"sync"
	"sync/atomic"
)

// DefaultBuffer is the channel capacity used when Start is given a
// non-positive buffer.
const DefaultBuffer = 64

// Emitter is handed to the running operation. Emit blocks only while the
// message buffer is full and returns false once the handle is cancelled or the
// context is done.
type Emitter[M any] struct {
	h   *Handle[M]
	ctx context.Context
}

// Emit sends msg to the handle's consumer. A message that fits in the buffer
// is always delivered, even after the context is done.
func (e Emitter[M]) Emit(msg M) bool {
	select {
	case e.h.messages <- msg:
		return true
	default:
	}
	select {
	case e.h.messages <- msg:
		return true
	case <-e.ctx.Done():
		return false
	}
}

// Cancelled reports whether the consumer asked the operation to stop.
func (e Emitter[M]) Cancelled() bool {
	return e.h.Cancelled() || e.ctx.Err() != nil
}

// Handle is the consumer side of a running operation.
type Handle[M any] struct {
	messages  chan M
	cancelled atomic.Bool
	done      chan struct{}
	stop      context.CancelFunc
	once      sync.Once
}

// Start launches fn in a goroutine. The message channel is closed after fn
// returns, so ranging over Messages terminates.
func Start[M any](ctx context.Context, buffer int, fn func(Emitter[M])) *Handle[M] {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	ctx, stop := context.WithCancel(ctx)
	h := &Handle[M]{
		messages: make(chan M, buffer),
		done:     make(chan struct{}),
		stop:     stop,
	}
	go func() {
		defer close(h.done)
		defer close(h.messages)
		defer stop()
		fn(Emitter[M]{h: h, ctx: ctx})
	}()
	return h
}

// Messages exposes the raw channel for range loops.
func (h *Handle[M]) Messages() <-chan M {
	return h.messages
}

// Poll returns the next buffered message without blocking. ok is false when
// nothing is pending or the channel has been drained and closed.
func (h *Handle[M]) Poll() (msg M, ok bool) {
	select {
	case msg, ok = <-h.messages:
		return msg, ok
	default:
		return msg, false
	}
}

// Next blocks until a message arrives, the operation finishes, or ctx ends.
func (h *Handle[M]) Next(ctx context.Context) (msg M, ok bool) {
	select {
	case msg, ok = <-h.messages:
		return msg, ok
	case <-ctx.Done():
		return msg, false
	}
}

// Cancel asks the operation to stop at its next checkpoint. Messages already
// buffered stay readable.
func (h *Handle[M]) Cancel() {
	h.once.Do(func() {
		h.cancelled.Store(true)
	})
}

// Cancelled reports whether Cancel was called.
func (h *Handle[M]) Cancelled() bool {
	return h.cancelled.Load()
}

// Done is closed once the operation has returned.
func (h *Handle[M]) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the operation returns and collects every message that was
// not yet consumed.
func (h *Handle[M]) Wait() []M {
	var rest []M
	for msg := range h.messages {
		rest = append(rest, msg)
	}
	<-h.done
	return rest
}
