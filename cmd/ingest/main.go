// Package main provides the offline ingestion CLI: index PDFs from
// disk, run ad-hoc searches and delete papers from the index.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"paper-search/internal/chunker"
	"paper-search/internal/config"
	"paper-search/internal/embedding"
	"paper-search/internal/index"
	"paper-search/internal/ingest"
	"paper-search/internal/pdftext"
)

var rootCmd = &cobra.Command{
	Use:   "paper-ingest",
	Short: "Paper index management tool",
	Long: `CLI for managing the research paper vector index.

Environment variables:
  QDRANT_HOST     Qdrant hostname (default: localhost)
  QDRANT_PORT     Qdrant gRPC port (default: 6334)
  COLLECTION_NAME index collection (default: research_papers)
  OPENAI_API_KEY  OpenAI API key for embeddings (required)`,
}

var indexCmd = &cobra.Command{
	Use:   "index <file.pdf> [more.pdf...]",
	Short: "Process and index PDF files",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runIndex,
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search indexed chunks by semantic similarity",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <paperID>",
	Short: "Delete all chunks of a paper",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

var searchTopK int

func init() {
	searchCmd.Flags().IntVar(&searchTopK, "top-k", 5, "number of results")
	rootCmd.AddCommand(indexCmd, searchCmd, deleteCmd)
}

func main() {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup builds the pipeline from environment configuration.
func setup(ctx context.Context) (*ingest.Pipeline, index.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	store, err := index.NewQdrantStore(cfg.QdrantHost, cfg.QdrantPort, cfg.Collection, cfg.EmbeddingDim)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to qdrant: %w", err)
	}
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("ensure schema: %w", err)
	}

	embeddingClient, err := embedding.NewClient()
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	embedder := embedding.NewEmbedder(embeddingClient, cfg.EmbeddingModel, cfg.EmbeddingDim, 0)

	ch, err := chunker.New(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	pipeline := ingest.NewPipeline(pdftext.NewExtractor(), ch, embedder, store, slog.Default())
	return pipeline, store, nil
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	pipeline, store, err := setup(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	failed := 0
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Printf("  %s: %v\n", path, err)
			failed++
			continue
		}

		paper, err := pipeline.Process(data, path)
		if err != nil {
			fmt.Printf("  %s: %v\n", path, err)
			failed++
			continue
		}

		if err := pipeline.Index(ctx, paper); err != nil {
			fmt.Printf("  %s: %v\n", path, err)
			failed++
			continue
		}

		fmt.Printf("  %s: indexed %d chunks as %s\n", path, len(paper.Chunks), paper.PaperID)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(args))
	}
	return nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	pipeline, store, err := setup(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	hits, err := pipeline.Search(ctx, args[0], searchTopK, "")
	if err != nil {
		return err
	}

	for _, hit := range hits {
		title := hit.Chunk.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Printf("%.4f  %s  %s\n    %s\n", hit.Score, hit.Chunk.ChunkID, title, truncate(hit.Chunk.Text, 160))
	}
	fmt.Printf("%d results\n", len(hits))
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	pipeline, store, err := setup(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	deleted, err := pipeline.Delete(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("deleted %d chunks for paper %s\n", deleted, args[0])
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
