package precedent

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

type Config struct {
	Backend          string // sqlite, chroma or postgres
	SQLitePath       string
	ChromaURL        string
	ChromaCollection string
	ChromaAPIKey     string
	PostgresURL      string
	PostgresTable    string
	Timeout          time.Duration

	EmbeddingBackend  string // huggingface or hash
	EmbeddingEndpoint string
	EmbeddingAPIKey   string
	Dimension         int
}

// OpenEmbedder builds the configured embedder
func OpenEmbedder(cfg Config) (Embedder, error) {
	switch cfg.EmbeddingBackend {
	case "", "hash":
		return NewHashEmbedder(cfg.Dimension), nil
	case "huggingface":
		return NewHuggingFaceEmbedder(cfg.EmbeddingEndpoint, cfg.EmbeddingAPIKey, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown embedding backend %q", cfg.EmbeddingBackend)
	}
}

// OpenStore builds the configured vector store
func OpenStore(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case "", "sqlite":
		path := cfg.SQLitePath
		if path == "" {
			path = "precedents.db"
		}
		return OpenSQLite(path)
	case "chroma":
		if cfg.ChromaURL == "" {
			return nil, fmt.Errorf("chroma backend requires an endpoint")
		}
		return NewChromaStore(cfg.ChromaURL, cfg.ChromaCollection, cfg.ChromaAPIKey, cfg.Timeout), nil
	case "postgres":
		if cfg.PostgresURL == "" {
			return nil, fmt.Errorf("postgres backend requires a connection url")
		}
		return OpenPostgres(ctx, cfg.PostgresURL, cfg.PostgresTable, cfg.Dimension)
	default:
		return nil, fmt.Errorf("unknown precedent backend %q", cfg.Backend)
	}
}

// Open builds a Searcher from configuration
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (*Searcher, error) {
	embedder, err := OpenEmbedder(cfg)
	if err != nil {
		return nil, err
	}
	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewSearcher(embedder, store, logger), nil
}
