package lead

import (
	"context"
	"iter"
)

// DefaultBatchSize is used by Scan when a non-positive batch size is given.
const DefaultBatchSize = 100

// Scan returns a lazy sequence over candidates with the given status, ordered by
// apollo_id. Batches are fetched on demand using keyset pagination, so rows that change
// status mid-pass are neither skipped nor repeated. Each range over the sequence starts a
// new pass. A read error is yielded once and ends the pass.
func Scan(ctx context.Context, r CandidateReader, status Status, batchSize int) iter.Seq2[Candidate, error] {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return func(yield func(Candidate, error) bool) {
		after := ""
		for {
			if err := ctx.Err(); err != nil {
				yield(Candidate{}, err)
				return
			}
			batch, err := r.NextBatch(ctx, after, batchSize, status)
			if err != nil {
				yield(Candidate{}, err)
				return
			}
			for _, c := range batch {
				if !yield(c, nil) {
					return
				}
			}
			if len(batch) < batchSize {
				return
			}
			after = batch[len(batch)-1].ApolloID
		}
	}
}
