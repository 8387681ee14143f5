// Package index stores chunk records with embedding vectors and serves
// similarity search, ordered per-paper retrieval and delete-by-paper.
package index

import "context"

// Store is the vector index contract consumed by the ingestion pipeline
// and the API layer.
//
// Concurrent BulkUpsert and DeletePaper calls for the same paperId race:
// there is no versioning, so a delete racing an upsert can leave a mixed
// or empty result. Callers that need that guarantee must serialize the
// two operations per paperId.
type Store interface {
	// EnsureSchema idempotently creates the backing collection with the
	// chunk field set if it is absent. Safe to call on every startup and
	// safe to race across concurrent startups.
	EnsureSchema(ctx context.Context) error

	// BulkUpsert writes all chunks in one batched request. Every vector
	// is dimension-checked before any write; a mismatch fails with
	// ErrDimensionMismatch and nothing is written. Backend-side write
	// errors fail with ErrIndexWrite, in which case the indexing state
	// is unknown (some documents may have been persisted) and the caller
	// must not mark the paper completed.
	BulkUpsert(ctx context.Context, chunks []IndexedChunk) error

	// Search returns at most topK chunks ranked by descending shifted
	// cosine score. A non-empty paperID restricts scoring to that
	// paper's chunks. Tie order is backend-defined.
	Search(ctx context.Context, vector []float32, topK int, paperID string) ([]ScoredChunk, error)

	// ChunksForPaper returns the paper's chunks ordered by ascending
	// chunk ordinal, capped at 1000. Vectors are not returned.
	ChunksForPaper(ctx context.Context, paperID string) ([]IndexedChunk, error)

	// DeletePaper removes all chunks of the paper and returns how many
	// were deleted.
	DeletePaper(ctx context.Context, paperID string) (int, error)

	// Health reports whether the backend is reachable.
	Health(ctx context.Context) error

	Close() error
}
