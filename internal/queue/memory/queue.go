// Package memory provides the bounded in-process queue between the feeder and workers.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/JakeFAU/law-leads-crawler/internal/lead"
)

// ErrClosed is returned once the queue has been closed and drained.
var ErrClosed = errors.New("queue closed")

// Queue is a bounded in-memory queue of candidates with context-aware operations.
type Queue struct {
	ch      chan lead.Candidate
	closeMu sync.RWMutex
	closed  bool
}

// NewQueue constructs a new queue with the provided capacity.
func NewQueue(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{
		ch: make(chan lead.Candidate, capacity),
	}
}

// Enqueue pushes a candidate into the queue or returns if the context ends.
func (q *Queue) Enqueue(ctx context.Context, c lead.Candidate) error {
	q.closeMu.RLock()
	defer q.closeMu.RUnlock()
	if q.closed {
		return ErrClosed
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("enqueue canceled: %w", ctx.Err())
	case q.ch <- c:
		return nil
	}
}

// Dequeue pops the next candidate, respecting context cancellation.
func (q *Queue) Dequeue(ctx context.Context) (lead.Candidate, error) {
	select {
	case <-ctx.Done():
		return lead.Candidate{}, fmt.Errorf("dequeue canceled: %w", ctx.Err())
	case c, ok := <-q.ch:
		if !ok {
			return lead.Candidate{}, ErrClosed
		}
		return c, nil
	}
}

// Len reports the number of buffered candidates.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Close closes the underlying channel for shutdown. Buffered candidates can
// still be dequeued.
func (q *Queue) Close() {
	q.closeMu.Lock()
	defer q.closeMu.Unlock()
	if q.closed {
		return
	}
	close(q.ch)
	q.closed = true
}
