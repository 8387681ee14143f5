package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all runtime configuration for the paper search service.
// Values come from the environment with sensible defaults; the .env file
// (if any) is loaded by the entry points before Load is called.
type Config struct {
	// HTTP server
	Port        string
	CORSOrigins []string

	// Vector index backend: "qdrant" or "memory"
	VectorBackend string
	QdrantHost    string
	QdrantPort    int
	Collection    string

	// Embeddings
	EmbeddingModel string
	EmbeddingDim   int

	// Text processing
	ChunkSize    int
	ChunkOverlap int

	// Upload limits
	MaxUploadSize int64
}

// Load reads configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		CORSOrigins:   []string{getEnv("CORS_ORIGINS", "*")},
		VectorBackend: getEnv("VECTOR_BACKEND", "qdrant"),
		QdrantHost:    getEnv("QDRANT_HOST", "localhost"),
		QdrantPort:    getEnvInt("QDRANT_PORT", 6334),
		Collection:    getEnv("COLLECTION_NAME", "research_papers"),

		EmbeddingModel: getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
		EmbeddingDim:   getEnvInt("EMBEDDING_DIM", 384),

		ChunkSize:    getEnvInt("CHUNK_SIZE", 1000),
		ChunkOverlap: getEnvInt("CHUNK_OVERLAP", 200),

		MaxUploadSize: getEnvInt64("MAX_FILE_SIZE", 50<<20), // 50MB
	}

	if cfg.ChunkSize <= 0 {
		return nil, fmt.Errorf("CHUNK_SIZE must be positive, got %d", cfg.ChunkSize)
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("CHUNK_OVERLAP must be in [0, CHUNK_SIZE), got %d", cfg.ChunkOverlap)
	}
	if cfg.EmbeddingDim <= 0 {
		return nil, fmt.Errorf("EMBEDDING_DIM must be positive, got %d", cfg.EmbeddingDim)
	}
	if cfg.VectorBackend != "qdrant" && cfg.VectorBackend != "memory" {
		return nil, fmt.Errorf("VECTOR_BACKEND must be \"qdrant\" or \"memory\", got %q", cfg.VectorBackend)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}
