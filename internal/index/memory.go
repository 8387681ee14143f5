package index

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// MemoryStore is an in-memory Store using brute-force cosine similarity.
// It backs unit tests and local development without a Qdrant instance.
type MemoryStore struct {
	mu        sync.RWMutex
	dimension int
	chunks    map[string]IndexedChunk // keyed by ChunkID
}

// NewMemoryStore creates an empty in-memory store for vectors of the
// given dimension.
func NewMemoryStore(dimension int) *MemoryStore {
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	return &MemoryStore{
		dimension: dimension,
		chunks:    make(map[string]IndexedChunk),
	}
}

// EnsureSchema is a no-op; the map is always ready.
func (s *MemoryStore) EnsureSchema(ctx context.Context) error { return nil }

// BulkUpsert validates all dimensions first, then inserts, so a
// mismatched batch writes nothing.
func (s *MemoryStore) BulkUpsert(ctx context.Context, chunks []IndexedChunk) error {
	for i, chunk := range chunks {
		if len(chunk.Vector) != s.dimension {
			return fmt.Errorf("%w: chunk %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(chunk.Vector), s.dimension)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, chunk := range chunks {
		s.chunks[chunk.ChunkID] = chunk
	}
	return nil
}

// Search scores every stored chunk (optionally restricted to one paper)
// with shifted cosine similarity and returns the topK in descending
// score order.
func (s *MemoryStore) Search(ctx context.Context, vector []float32, topK int, paperID string) ([]ScoredChunk, error) {
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(vector), s.dimension)
	}

	s.mu.RLock()
	var scored []ScoredChunk
	for _, chunk := range s.chunks {
		if paperID != "" && chunk.PaperID != paperID {
			continue
		}
		scored = append(scored, ScoredChunk{
			Chunk: chunk,
			Score: cosineSimilarity(vector, chunk.Vector) + 1.0,
		})
	}
	s.mu.RUnlock()

	sort.Slice(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if topK >= 0 && len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

// ChunksForPaper returns the paper's chunks ordered by ordinal, capped
// at 1000.
func (s *MemoryStore) ChunksForPaper(ctx context.Context, paperID string) ([]IndexedChunk, error) {
	s.mu.RLock()
	var chunks []IndexedChunk
	for _, chunk := range s.chunks {
		if chunk.PaperID == paperID {
			chunks = append(chunks, chunk)
		}
	}
	s.mu.RUnlock()

	sort.Slice(chunks, func(i, j int) bool {
		return chunks[i].ChunkIndex < chunks[j].ChunkIndex
	})
	if len(chunks) > maxChunksPerPaper {
		chunks = chunks[:maxChunksPerPaper]
	}
	return chunks, nil
}

// DeletePaper removes all chunks of the paper and returns the count.
func (s *MemoryStore) DeletePaper(ctx context.Context, paperID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for id, chunk := range s.chunks {
		if chunk.PaperID == paperID {
			delete(s.chunks, id)
			deleted++
		}
	}
	return deleted, nil
}

// Health always succeeds.
func (s *MemoryStore) Health(ctx context.Context) error { return nil }

// Close releases nothing.
func (s *MemoryStore) Close() error { return nil }

// cosineSimilarity is the dot product of the vectors divided by the
// product of their magnitudes. Zero vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
