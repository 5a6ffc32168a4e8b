package queue

import (
	"context"
	"errors"
	"time"
)

// ErrQueueFull is returned when a submission cannot be accepted without
// blocking.
var ErrQueueFull = errors.New("queue full")

// FIFO hands job identifiers to workers in submission order. It is decoupled
// from the Store: a job cancelled while queued stays in the channel and is
// skipped by the worker that eventually dequeues it.
type FIFO struct {
	ch chan string
}

// NewFIFO builds a queue with the given capacity.
func NewFIFO(capacity int) *FIFO {
	if capacity <= 0 {
		capacity = 256
	}
	return &FIFO{ch: make(chan string, capacity)}
}

// Enqueue adds a job identifier without blocking the submitter.
func (f *FIFO) Enqueue(id string) error {
	select {
	case f.ch <- id:
		return nil
	default:
		return ErrQueueFull
	}
}

// Dequeue blocks up to timeout for the next job identifier. The false return
// covers both an elapsed timeout and context cancellation, so worker loops
// re-check their shutdown condition at most one timeout interval late.
func (f *FIFO) Dequeue(ctx context.Context, timeout time.Duration) (string, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case id := <-f.ch:
		return id, true
	case <-timer.C:
		return "", false
	case <-ctx.Done():
		return "", false
	}
}

// Depth reports the number of queued identifiers.
func (f *FIFO) Depth() int {
	return len(f.ch)
}
