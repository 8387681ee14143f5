package index

import "time"

// IndexedChunk is the persisted record for one chunk of a paper. Title,
// authors and abstract are denormalized from the paper's metadata so
// search results need no join at query time.
type IndexedChunk struct {
	PaperID    string    // generated per ingestion, scopes all chunks of one paper
	ChunkID    string    // "{paperId}_chunk_{ordinal}"
	ChunkIndex int       // 0-based ordinal, the sort key for ordered retrieval
	Title      string
	Authors    []string
	Abstract   string
	Keywords   []string
	Text       string
	Vector     []float32 // dense embedding, exactly the store's dimension
	UploadedAt time.Time
}

// ScoredChunk is a search hit with its similarity score. Scores are
// cosine similarity shifted by +1.0, so they fall in [0, 2].
type ScoredChunk struct {
	Chunk IndexedChunk
	Score float64
}

// DefaultCollection is the default index collection name.
const DefaultCollection = "research_papers"

// DefaultDimension is the embedding size of the reference model
// (all-MiniLM-class, 384 components).
const DefaultDimension = 384

// maxChunksPerPaper caps ordered retrieval of a single paper's chunks.
const maxChunksPerPaper = 1000
