package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/kozaktomas/face-search/internal/config"
	"github.com/kozaktomas/face-search/internal/store"
	"github.com/kozaktomas/face-search/internal/store/hnswlocal"
	"github.com/kozaktomas/face-search/internal/store/postgres"
	"github.com/kozaktomas/face-search/internal/store/qdrant"
)

// openStore builds the vector store selected by FACE_STORE_BACKEND.
// The returned cleanup function flushes or closes the backend and must
// be called before the process exits.
func openStore(ctx context.Context, cfg *config.Config) (store.VectorStore, func(), error) {
	switch cfg.Store.Backend {
	case "qdrant":
		client, err := qdrant.New(cfg.Qdrant.URL, cfg.Qdrant.APIKey, cfg.Qdrant.Timeout)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to Qdrant: %w", err)
		}
		return client, func() {}, nil

	case "postgres":
		if cfg.Postgres.URL == "" {
			return nil, nil, errors.New("DATABASE_URL environment variable is required for the postgres backend")
		}
		st, err := postgres.New(ctx, postgres.Config{
			URL:          cfg.Postgres.URL,
			MaxOpenConns: cfg.Postgres.MaxOpenConns,
			MaxIdleConns: cfg.Postgres.MaxIdleConns,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to PostgreSQL: %w", err)
		}
		cleanup := func() {
			if err := st.Close(); err != nil {
				fmt.Printf("Warning: closing database: %v\n", err)
			}
		}
		return st, cleanup, nil

	case "local":
		st, err := hnswlocal.New(cfg.Store.LocalIndexPath)
		if err != nil {
			return nil, nil, fmt.Errorf("opening local index: %w", err)
		}
		cleanup := func() {
			if err := st.Save(); err != nil {
				fmt.Printf("Warning: saving local index: %v\n", err)
			}
		}
		return st, cleanup, nil
	}

	return nil, nil, fmt.Errorf("unknown store backend %q (expected qdrant, postgres or local)", cfg.Store.Backend)
}
