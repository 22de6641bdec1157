// Package dispatcher contains tests for worker coordination.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/law-leads-crawler/internal/lead"
	queuemem "github.com/JakeFAU/law-leads-crawler/internal/queue/memory"
	"github.com/JakeFAU/law-leads-crawler/internal/storage/memory"
	"github.com/JakeFAU/law-leads-crawler/internal/worker"
)

// TestDispatcherRunStartsWorkers ensures workers begin processing and stop on cancel.
func TestDispatcherRunStartsWorkers(t *testing.T) {
	t.Parallel()

	queue := &blockingQueue{started: make(chan struct{}, 1)}
	w := worker.New("w-1", queue, nil, nil, nil, nil, worker.Config{}, zap.NewNop())
	dispatch := New(queue, []*worker.Worker{w})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		dispatch.Run(ctx)
		close(done)
	}()

	select {
	case <-queue.started:
	case <-time.After(time.Second):
		t.Fatal("worker did not begin dequeuing")
	}

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not stop after context cancel")
	}
}

// TestDispatcherEnqueueForwardsErrors verifies queue errors are wrapped for callers.
func TestDispatcherEnqueueForwardsErrors(t *testing.T) {
	t.Parallel()

	queue := &errorQueue{err: errors.New("boom")}
	dispatch := New(queue, nil)

	err := dispatch.Enqueue(context.Background(), lead.Candidate{ApolloID: "L1"})
	if err == nil || err.Error() != "queue enqueue: boom" {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

// TestPipelineOnePass runs feeder, dispatcher and workers together against the memory store.
func TestPipelineOnePass(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.NewStore(nil)
	var candidates []lead.Candidate
	for i := range 12 {
		candidates = append(candidates, lead.Candidate{
			ApolloID: fmt.Sprintf("L%02d", i),
			Website:  fmt.Sprintf("https://firm%d.law", i%4),
		})
	}
	_, err := store.InsertCandidates(ctx, candidates)
	require.NoError(t, err)

	queue := queuemem.NewQueue(2)
	var workers []*worker.Worker
	for i := range 3 {
		workers = append(workers, worker.New(
			fmt.Sprintf("w-%d", i), queue, store, store, store, &siteExtractor{}, worker.Config{}, zap.NewNop(),
		))
	}
	dispatch := New(queue, workers)
	feeder := NewFeeder(store, dispatch, FeederConfig{BatchSize: 5, Once: true}, zap.NewNop())

	done := make(chan struct{})
	go func() {
		dispatch.Run(ctx)
		close(done)
	}()
	require.NoError(t, feeder.Run(ctx))
	queue.Close()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("workers did not drain the queue")
	}

	counts, err := store.CountByStatus(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(12), counts[lead.StatusCompleted])

	for i := range 4 {
		firmID, err := store.Lookup(ctx, fmt.Sprintf("firm%d.law", i))
		require.NoError(t, err)
		rows, err := store.List(ctx, firmID)
		require.NoError(t, err)
		require.Len(t, rows, 1, "three candidates share each firm but its email is stored once")
	}
}

type blockingQueue struct {
	started chan struct{}
}

func (q *blockingQueue) Enqueue(context.Context, lead.Candidate) error {
	return nil
}

func (q *blockingQueue) Dequeue(ctx context.Context) (lead.Candidate, error) {
	select {
	case q.started <- struct{}{}:
	default:
	}
	<-ctx.Done()
	return lead.Candidate{}, fmt.Errorf("blocking dequeue canceled: %w", ctx.Err())
}

type errorQueue struct {
	err error
}

func (q *errorQueue) Enqueue(context.Context, lead.Candidate) error {
	return q.err
}

func (q *errorQueue) Dequeue(context.Context) (lead.Candidate, error) {
	return lead.Candidate{}, nil
}

// siteExtractor yields one address derived from the site host.
type siteExtractor struct {
	mu    sync.Mutex
	sites []string
}

func (e *siteExtractor) Extract(_ context.Context, websiteURL string) (iter.Seq[lead.Hit], error) {
	e.mu.Lock()
	e.sites = append(e.sites, websiteURL)
	e.mu.Unlock()
	host := websiteURL[len("https://"):]
	return func(yield func(lead.Hit) bool) {
		yield(lead.Hit{Email: "Info@" + host, SourcePage: websiteURL})
	}, nil
}
