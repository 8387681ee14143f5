package index

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// upsertBatchSize bounds a single Upsert request. Batches beyond the
// first make the bulk write non-atomic: a failure mid-way leaves earlier
// batches persisted, which is why BulkUpsert's contract says "state
// unknown" on error.
const upsertBatchSize = 100

// QdrantStore implements Store on a Qdrant collection. Chunk records
// are points whose payload carries paper_id, chunk_id, chunk_index,
// the denormalized paper metadata and the chunk text.
type QdrantStore struct {
	client     *qdrant.Client
	collection string
	dimension  int
}

// NewQdrantStore connects to Qdrant over gRPC and verifies health with
// exponential backoff, failing fast if the server stays unreachable.
func NewQdrantStore(host string, port int, collection string, dimension int) (*QdrantStore, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}

	if collection == "" {
		collection = DefaultCollection
	}
	if dimension <= 0 {
		dimension = DefaultDimension
	}

	s := &QdrantStore{client: client, collection: collection, dimension: dimension}

	if err := s.healthCheckWithRetry(context.Background()); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	return s, nil
}

// healthCheckWithRetry retries the health check with exponential
// backoff: initial 500ms, max interval 10s, max elapsed 30s.
func (s *QdrantStore) healthCheckWithRetry(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error {
		return s.Health(ctx)
	}, backoff.WithContext(b, ctx))
}

// Health performs a single health check against Qdrant.
func (s *QdrantStore) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}
	return nil
}

// EnsureSchema creates the collection with cosine vectors of the
// configured dimension if it does not exist, plus a keyword payload
// index on paper_id for filtered search and delete-by-paper. Losing a
// create race to a concurrent startup is treated as success.
func (s *QdrantStore) EnsureSchema(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("check collection: %w", err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(s.dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		// Another startup may have created it between the existence
		// check and the create call.
		if exists, checkErr := s.client.CollectionExists(ctx, s.collection); checkErr == nil && exists {
			return nil
		}
		return fmt.Errorf("create collection: %w", err)
	}

	if _, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: s.collection,
		FieldName:      "paper_id",
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
	}); err != nil {
		return fmt.Errorf("create paper_id index: %w", err)
	}
	if _, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: s.collection,
		FieldName:      "chunk_index",
		FieldType:      qdrant.FieldType_FieldTypeInteger.Enum(),
	}); err != nil {
		return fmt.Errorf("create chunk_index index: %w", err)
	}

	return nil
}

// BulkUpsert validates every vector's dimension before writing anything,
// then upserts in batches of 100. Any backend error maps to
// ErrIndexWrite; the caller must treat the paper as not indexed.
func (s *QdrantStore) BulkUpsert(ctx context.Context, chunks []IndexedChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	for i, chunk := range chunks {
		if len(chunk.Vector) != s.dimension {
			return fmt.Errorf("%w: chunk %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(chunk.Vector), s.dimension)
		}
	}

	for i := 0; i < len(chunks); i += upsertBatchSize {
		end := min(i+upsertBatchSize, len(chunks))
		batch := chunks[i:end]

		points := make([]*qdrant.PointStruct, len(batch))
		for j, chunk := range batch {
			points[j] = &qdrant.PointStruct{
				Id:      qdrant.NewIDUUID(pointID(chunk)),
				Vectors: qdrant.NewVectors(chunk.Vector...),
				Payload: qdrant.NewValueMap(chunkPayload(chunk)),
			}
		}

		if _, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: s.collection,
			Points:         points,
		}); err != nil {
			return fmt.Errorf("%w: batch %d-%d: %v", ErrIndexWrite, i, end, err)
		}
	}

	return nil
}

// Search runs cosine similarity search, optionally filtered to one
// paper, and shifts scores by +1.0 into [0, 2].
func (s *QdrantStore) Search(ctx context.Context, vector []float32, topK int, paperID string) ([]ScoredChunk, error) {
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(vector), s.dimension)
	}

	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Filter:         paperFilter(paperID),
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}

	scored := make([]ScoredChunk, 0, len(results))
	for _, result := range results {
		scored = append(scored, ScoredChunk{
			Chunk: chunkFromPayload(result.Payload),
			Score: float64(result.Score) + 1.0,
		})
	}
	return scored, nil
}

// ChunksForPaper scrolls all points of the paper (capped at 1000) and
// sorts them by the numeric chunk_index payload field. The chunk_id
// string would mis-sort past ordinal 9 lexicographically, which is why
// the ordinal is stored separately.
func (s *QdrantStore) ChunksForPaper(ctx context.Context, paperID string) ([]IndexedChunk, error) {
	var chunks []IndexedChunk
	var offset *qdrant.PointId

	batchSize := uint32(256)
	for len(chunks) < maxChunksPerPaper {
		results, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: s.collection,
			Filter:         paperFilter(paperID),
			Limit:          qdrant.PtrOf(batchSize),
			Offset:         offset,
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil {
			return nil, fmt.Errorf("scroll chunks: %w", err)
		}

		for _, result := range results {
			chunks = append(chunks, chunkFromPayload(result.Payload))
			if len(chunks) == maxChunksPerPaper {
				break
			}
		}

		if uint32(len(results)) < batchSize {
			break
		}
		offset = results[len(results)-1].Id
	}

	sort.Slice(chunks, func(i, j int) bool {
		return chunks[i].ChunkIndex < chunks[j].ChunkIndex
	})
	return chunks, nil
}

// DeletePaper removes all chunks of the paper via delete-by-filter and
// returns the number of points that matched beforehand. Not
// transactional with an in-flight BulkUpsert for the same paper.
func (s *QdrantStore) DeletePaper(ctx context.Context, paperID string) (int, error) {
	count, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.collection,
		Filter:         paperFilter(paperID),
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}

	if _, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Points:         qdrant.NewPointsSelectorFilter(paperFilter(paperID)),
	}); err != nil {
		return 0, fmt.Errorf("delete chunks: %w", err)
	}

	return int(count), nil
}

// Close closes the underlying gRPC connection.
func (s *QdrantStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// pointID derives a stable UUID from the chunk id so re-upserting the
// same chunk overwrites rather than duplicates.
func pointID(chunk IndexedChunk) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(chunk.ChunkID)).String()
}

func paperFilter(paperID string) *qdrant.Filter {
	if paperID == "" {
		return nil
	}
	return &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatch("paper_id", paperID),
		},
	}
}

func chunkPayload(chunk IndexedChunk) map[string]any {
	return map[string]any{
		"paper_id":    chunk.PaperID,
		"chunk_id":    chunk.ChunkID,
		"chunk_index": chunk.ChunkIndex,
		"title":       chunk.Title,
		"authors":     stringList(chunk.Authors),
		"abstract":    chunk.Abstract,
		"keywords":    stringList(chunk.Keywords),
		"text":        chunk.Text,
		"uploaded_at": chunk.UploadedAt.UTC().Format(time.RFC3339),
	}
}

func chunkFromPayload(payload map[string]*qdrant.Value) IndexedChunk {
	uploadedAt, err := time.Parse(time.RFC3339, payload["uploaded_at"].GetStringValue())
	if err != nil {
		uploadedAt = time.Time{}
	}

	return IndexedChunk{
		PaperID:    payload["paper_id"].GetStringValue(),
		ChunkID:    payload["chunk_id"].GetStringValue(),
		ChunkIndex: int(payload["chunk_index"].GetIntegerValue()),
		Title:      payload["title"].GetStringValue(),
		Authors:    payloadStrings(payload["authors"]),
		Abstract:   payload["abstract"].GetStringValue(),
		Keywords:   payloadStrings(payload["keywords"]),
		Text:       payload["text"].GetStringValue(),
		UploadedAt: uploadedAt,
	}
}

func stringList(values []string) []any {
	list := make([]any, len(values))
	for i, v := range values {
		list[i] = v
	}
	return list
}

func payloadStrings(v *qdrant.Value) []string {
	if v.GetListValue() == nil {
		return nil
	}
	var values []string
	for _, item := range v.GetListValue().Values {
		values = append(values, item.GetStringValue())
	}
	return values
}
