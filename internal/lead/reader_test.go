package lead

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sliceReader struct {
	rows  []Candidate
	calls int
	err   error
}

func (r *sliceReader) NextBatch(_ context.Context, afterID string, limit int, status Status) ([]Candidate, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	var out []Candidate
	for _, c := range r.rows {
		if c.Status != status || c.ApolloID <= afterID {
			continue
		}
		out = append(out, c)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func newSliceReader(ids ...string) *sliceReader {
	sort.Strings(ids)
	r := &sliceReader{}
	for _, id := range ids {
		r.rows = append(r.rows, Candidate{ApolloID: id, Status: StatusPending})
	}
	return r
}

func collect(t *testing.T, r CandidateReader, batch int) []string {
	t.Helper()
	var ids []string
	for c, err := range Scan(context.Background(), r, StatusPending, batch) {
		require.NoError(t, err)
		ids = append(ids, c.ApolloID)
	}
	return ids
}

func TestScanPagesInOrder(t *testing.T) {
	t.Parallel()

	r := newSliceReader("e", "a", "c", "b", "d")
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, collect(t, r, 2))
	assert.Equal(t, 3, r.calls)
}

func TestScanExactMultipleDoesFinalEmptyRead(t *testing.T) {
	t.Parallel()

	r := newSliceReader("a", "b", "c", "d")
	assert.Equal(t, []string{"a", "b", "c", "d"}, collect(t, r, 2))
	assert.Equal(t, 3, r.calls)
}

func TestScanRestartable(t *testing.T) {
	t.Parallel()

	r := newSliceReader("a", "b", "c")
	seq := Scan(context.Background(), r, StatusPending, 2)
	var first, second []string
	for c, err := range seq {
		require.NoError(t, err)
		first = append(first, c.ApolloID)
	}
	for c, err := range seq {
		require.NoError(t, err)
		second = append(second, c.ApolloID)
	}
	assert.Equal(t, first, second)
}

func TestScanSkipsRowsThatLeaveStatus(t *testing.T) {
	t.Parallel()

	r := newSliceReader("a", "b", "c", "d")
	var seen []string
	for c, err := range Scan(context.Background(), r, StatusPending, 2) {
		require.NoError(t, err)
		seen = append(seen, c.ApolloID)
		// claim everything seen so far, as a worker would
		for i := range r.rows {
			if r.rows[i].ApolloID == c.ApolloID {
				r.rows[i].Status = StatusInProgress
			}
		}
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, seen)
}

func TestScanEarlyBreak(t *testing.T) {
	t.Parallel()

	r := newSliceReader("a", "b", "c", "d")
	for c := range Scan(context.Background(), r, StatusPending, 2) {
		if c.ApolloID == "a" {
			break
		}
	}
	assert.Equal(t, 1, r.calls)
}

func TestScanYieldsError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	r := &sliceReader{err: boom}
	var errs []error
	for _, err := range Scan(context.Background(), r, StatusPending, 0) {
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], boom)
}

func TestScanCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := newSliceReader("a")
	for _, err := range Scan(ctx, r, StatusPending, 1) {
		assert.ErrorIs(t, err, context.Canceled)
	}
	assert.Zero(t, r.calls)
}
