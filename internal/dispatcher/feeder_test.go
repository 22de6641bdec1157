package dispatcher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/law-leads-crawler/internal/lead"
	"github.com/JakeFAU/law-leads-crawler/internal/storage/memory"
)

type recordingQueue struct {
	mu  sync.Mutex
	ids []string
	err error
}

func (q *recordingQueue) Enqueue(_ context.Context, c lead.Candidate) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.ids = append(q.ids, c.ApolloID)
	return nil
}

func (q *recordingQueue) snapshot() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.ids...)
}

func seedPending(t *testing.T, ids ...string) *memory.Store {
	t.Helper()
	store := memory.NewStore(nil)
	var cs []lead.Candidate
	for _, id := range ids {
		cs = append(cs, lead.Candidate{ApolloID: id, Website: "https://" + id + ".law"})
	}
	_, err := store.InsertCandidates(context.Background(), cs)
	require.NoError(t, err)
	return store
}

func TestFeederOncePassEnqueuesPendingInOrder(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := seedPending(t, "c", "a", "b", "d")
	claimed, err := store.Claim(ctx, "b", "w")
	require.NoError(t, err)
	require.True(t, claimed)

	q := &recordingQueue{}
	f := NewFeeder(store, q, FeederConfig{BatchSize: 2, Once: true}, zap.NewNop())
	require.NoError(t, f.Run(ctx))
	require.Equal(t, []string{"a", "c", "d"}, q.snapshot())
}

func TestFeederSkipsPreviousPass(t *testing.T) {
	t.Parallel()

	store := seedPending(t, "a", "b")
	q := &recordingQueue{}
	f := NewFeeder(store, q, FeederConfig{}, zap.NewNop())

	first, err := f.pass(context.Background(), nil)
	require.NoError(t, err)
	second, err := f.pass(context.Background(), first)
	require.NoError(t, err)
	require.Empty(t, second)
	third, err := f.pass(context.Background(), second)
	require.NoError(t, err)
	require.Len(t, third, 2)
	require.Equal(t, []string{"a", "b", "a", "b"}, q.snapshot())
}

func TestFeederReturnsEnqueueErrors(t *testing.T) {
	t.Parallel()

	store := seedPending(t, "a")
	f := NewFeeder(store, &recordingQueue{err: errors.New("full")}, FeederConfig{Once: true}, zap.NewNop())
	err := f.Run(context.Background())
	require.ErrorContains(t, err, "enqueue a: full")
}

func TestFeederStopsOnCancel(t *testing.T) {
	t.Parallel()

	store := seedPending(t, "a")
	q := &recordingQueue{}
	f := NewFeeder(store, q, FeederConfig{PollInterval: time.Hour}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.Run(ctx) }()

	require.Eventually(t, func() bool { return len(q.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("feeder did not stop after cancel")
	}
}

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestReaperResetsOnlyStaleClaims(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clock := &fixedClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := memory.NewStore(clock)
	_, err := store.InsertCandidates(ctx, []lead.Candidate{{ApolloID: "old"}, {ApolloID: "new"}})
	require.NoError(t, err)

	ok, err := store.Claim(ctx, "old", "crashed-worker")
	require.NoError(t, err)
	require.True(t, ok)
	clock.Advance(20 * time.Minute)
	ok, err = store.Claim(ctx, "new", "live-worker")
	require.NoError(t, err)
	require.True(t, ok)
	clock.Advance(time.Minute)

	r := NewReaper(store, 15*time.Minute, time.Minute, zap.NewNop())
	n, err := r.ReapOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	old, err := store.Get(ctx, "old")
	require.NoError(t, err)
	require.Equal(t, lead.StatusPending, old.Status)
	fresh, err := store.Get(ctx, "new")
	require.NoError(t, err)
	require.Equal(t, lead.StatusInProgress, fresh.Status)
}

func TestReaperRunStopsOnCancel(t *testing.T) {
	t.Parallel()

	store := memory.NewStore(nil)
	r := NewReaper(store, time.Minute, time.Hour, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, r.Run(ctx))
}
