// Package ingest composes extraction, metadata heuristics, chunking,
// embedding and indexing into the paper ingestion pipeline.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"paper-search/internal/chunker"
	"paper-search/internal/index"
	"paper-search/internal/metadata"
)

// TextExtractor extracts plain text from a PDF byte stream.
type TextExtractor interface {
	Extract(data []byte) (string, error)
}

// Embedder maps a batch of texts to dense vectors, preserving order.
type Embedder interface {
	GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// ProcessedPaper is the immutable result of processing one uploaded
// PDF. A fresh PaperID is generated per call, so byte-identical
// re-uploads produce distinct papers with disjoint chunk sets.
type ProcessedPaper struct {
	PaperID        string
	RawText        string
	Chunks         []string
	Meta           metadata.Metadata
	SourcePath     string
	SourceFileSize int64
	UploadedAt     time.Time
}

// Pipeline drives raw bytes through extraction, metadata heuristics and
// chunking, then embedding and bulk indexing. It holds no mutable state
// between invocations; papers may be processed concurrently. Failures
// are not retried here, retries belong to the calling layer.
type Pipeline struct {
	extractor TextExtractor
	chunker   *chunker.Chunker
	embedder  Embedder
	store     index.Store
	logger    *slog.Logger
}

// NewPipeline wires the pipeline components together.
func NewPipeline(extractor TextExtractor, ch *chunker.Chunker, embedder Embedder, store index.Store, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		extractor: extractor,
		chunker:   ch,
		embedder:  embedder,
		store:     store,
		logger:    logger,
	}
}

// Process extracts text from the PDF bytes, guesses metadata and splits
// the text into chunks. Extraction failure is fatal for the paper;
// empty extracted text is not, it simply yields zero chunks.
func (p *Pipeline) Process(data []byte, filename string) (*ProcessedPaper, error) {
	paperID := uuid.New().String()

	text, err := p.extractor.Extract(data)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", filename, err)
	}

	meta := metadata.Extract(text)

	chunks, err := p.chunker.Split(text)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", filename, err)
	}

	p.logger.Debug("processed paper",
		"paper_id", paperID,
		"file", filename,
		"text_len", len(text),
		"chunks", len(chunks),
		"title", meta.Title,
	)

	return &ProcessedPaper{
		PaperID:        paperID,
		RawText:        text,
		Chunks:         chunks,
		Meta:           meta,
		SourcePath:     filename,
		SourceFileSize: int64(len(data)),
		UploadedAt:     time.Now().UTC(),
	}, nil
}

// Index embeds all chunks in one batched call and bulk-upserts them.
// An embedding failure commits nothing; a reported index write failure
// means the indexing state is unknown and the paper must not be marked
// completed.
func (p *Pipeline) Index(ctx context.Context, paper *ProcessedPaper) error {
	if len(paper.Chunks) == 0 {
		p.logger.Info("paper has no chunks, nothing to index", "paper_id", paper.PaperID)
		return nil
	}

	vectors, err := p.embedder.GenerateEmbeddings(ctx, paper.Chunks)
	if err != nil {
		return fmt.Errorf("embed paper %s: %w", paper.PaperID, err)
	}
	if len(vectors) != len(paper.Chunks) {
		return fmt.Errorf("embed paper %s: got %d vectors for %d chunks", paper.PaperID, len(vectors), len(paper.Chunks))
	}

	records := make([]index.IndexedChunk, len(paper.Chunks))
	for i, text := range paper.Chunks {
		records[i] = index.IndexedChunk{
			PaperID:    paper.PaperID,
			ChunkID:    fmt.Sprintf("%s_chunk_%d", paper.PaperID, i),
			ChunkIndex: i,
			Title:      paper.Meta.Title,
			Authors:    paper.Meta.Authors,
			Abstract:   paper.Meta.Abstract,
			Keywords:   paper.Meta.Keywords,
			Text:       text,
			Vector:     vectors[i],
			UploadedAt: paper.UploadedAt,
		}
	}

	if err := p.store.BulkUpsert(ctx, records); err != nil {
		return fmt.Errorf("index paper %s: %w", paper.PaperID, err)
	}

	p.logger.Info("indexed paper", "paper_id", paper.PaperID, "chunks", len(records))
	return nil
}

// Search embeds the query and returns the topK most similar chunks,
// optionally restricted to one paper.
func (p *Pipeline) Search(ctx context.Context, query string, topK int, paperID string) ([]index.ScoredChunk, error) {
	vectors, err := p.embedder.GenerateEmbeddings(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return p.store.Search(ctx, vectors[0], topK, paperID)
}

// Chunks returns the paper's indexed chunks in ordinal order.
func (p *Pipeline) Chunks(ctx context.Context, paperID string) ([]index.IndexedChunk, error) {
	return p.store.ChunksForPaper(ctx, paperID)
}

// Delete removes all indexed chunks of the paper and returns the count.
func (p *Pipeline) Delete(ctx context.Context, paperID string) (int, error) {
	return p.store.DeletePaper(ctx, paperID)
}
