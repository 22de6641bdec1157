// Package dispatcher manages worker fan-out over the candidate queue and the
// loops that keep the queue fed and stale claims reclaimed.
package dispatcher

import (
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/law-leads-crawler/internal/lead"
	"github.com/JakeFAU/law-leads-crawler/internal/worker"
)

// Queue is the bounded buffer between the feeder and the workers.
type Queue interface {
	Enqueue(ctx context.Context, c lead.Candidate) error
	Dequeue(ctx context.Context) (lead.Candidate, error)
}

// Dispatcher fans out queue work to a pool of workers.
type Dispatcher struct {
	queue   Queue
	workers []*worker.Worker
}

// New creates a Dispatcher.
func New(queue Queue, workers []*worker.Worker) *Dispatcher {
	return &Dispatcher{
		queue:   queue,
		workers: workers,
	}
}

// Run starts all workers and blocks until every worker has returned, which
// happens when the context finishes or the queue is closed and drained.
func (d *Dispatcher) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, w := range d.workers {
		wg.Add(1)
		go func(wk *worker.Worker) {
			defer wg.Done()
			wk.Run(ctx)
		}(w)
	}
	wg.Wait()
}

// Enqueue proxies to the underlying queue.
func (d *Dispatcher) Enqueue(ctx context.Context, c lead.Candidate) error {
	if err := d.queue.Enqueue(ctx, c); err != nil {
		return fmt.Errorf("queue enqueue: %w", err)
	}
	return nil
}
