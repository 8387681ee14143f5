// Package main runs the paper search HTTP server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"paper-search/internal/api"
	"paper-search/internal/chunker"
	"paper-search/internal/config"
	"paper-search/internal/embedding"
	"paper-search/internal/index"
	"paper-search/internal/ingest"
	"paper-search/internal/pdftext"
	"paper-search/internal/registry"
)

func main() {
	// Load .env if present (local development), ignore if missing.
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	store, err := newStore(cfg)
	if err != nil {
		logger.Error("failed to connect to vector index", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		logger.Error("failed to ensure index schema", "error", err)
		os.Exit(1)
	}

	embeddingClient, err := embedding.NewClient()
	if err != nil {
		logger.Error("failed to create embedding client", "error", err)
		os.Exit(1)
	}
	embedder := embedding.NewEmbedder(embeddingClient, cfg.EmbeddingModel, cfg.EmbeddingDim, 0)

	ch, err := chunker.New(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		logger.Error("invalid chunker configuration", "error", err)
		os.Exit(1)
	}

	pipeline := ingest.NewPipeline(pdftext.NewExtractor(), ch, embedder, store, logger)
	server := api.New(pipeline, store, registry.New(), cfg.MaxUploadSize, logger)

	httpServer := &http.Server{
		Addr:    "0.0.0.0:" + cfg.Port,
		Handler: server.Router(cfg.CORSOrigins),
	}

	go func() {
		logger.Info("starting HTTP server", "addr", httpServer.Addr, "backend", cfg.VectorBackend)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

func newStore(cfg *config.Config) (index.Store, error) {
	if cfg.VectorBackend == "memory" {
		return index.NewMemoryStore(cfg.EmbeddingDim), nil
	}
	return index.NewQdrantStore(cfg.QdrantHost, cfg.QdrantPort, cfg.Collection, cfg.EmbeddingDim)
}
