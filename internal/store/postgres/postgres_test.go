//go:build integration

package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kozaktomas/face-search/internal/store"
)

func setupTestContainer(t *testing.T) (*Store, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:pg16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	dbURL := fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())
	s, err := New(ctx, Config{URL: dbURL, MaxOpenConns: 5, MaxIdleConns: 2})
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to create store: %v", err)
	}

	cleanup := func() {
		s.Close()
		container.Terminate(ctx)
	}
	return s, cleanup
}

func testVector(dim int, seed float32) []float32 {
	v := make([]float32, dim)
	for i := range v {
		v[i] = seed + float32(i)/float32(dim)
	}
	return v
}

func TestPostgresStore(t *testing.T) {
	s, cleanup := setupTestContainer(t)
	if s == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	const collection = "faces_test"
	const dim = 128

	t.Run("CreateCollectionIdempotent", func(t *testing.T) {
		if err := s.CreateCollection(ctx, collection, dim, store.MetricCosine); err != nil {
			t.Fatalf("CreateCollection failed: %v", err)
		}
		if err := s.CreateCollection(ctx, collection, dim, store.MetricCosine); err != nil {
			t.Errorf("repeated CreateCollection with same schema should succeed: %v", err)
		}
		err := s.CreateCollection(ctx, collection, 64, store.MetricCosine)
		if !errors.Is(err, store.ErrSchemaConflict) {
			t.Errorf("expected ErrSchemaConflict, got %v", err)
		}
	})

	t.Run("QueryEmptyCollection", func(t *testing.T) {
		matches, err := s.Query(ctx, collection, testVector(dim, 0), 5)
		if err != nil {
			t.Fatalf("Query on empty collection failed: %v", err)
		}
		if len(matches) != 0 {
			t.Errorf("expected no matches, got %d", len(matches))
		}
	})

	t.Run("DimensionMismatch", func(t *testing.T) {
		err := s.Upsert(ctx, collection, store.Record{ID: "short", Vector: testVector(64, 0)})
		if !errors.Is(err, store.ErrDimensionMismatch) {
			t.Fatalf("expected ErrDimensionMismatch, got %v", err)
		}
		count, _ := s.Count(ctx, collection)
		if count != 0 {
			t.Errorf("rejected upsert must not write a record, count = %d", count)
		}
	})

	t.Run("UpsertQueryReplace", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			err := s.Upsert(ctx, collection, store.Record{
				ID:      fmt.Sprintf("rec-%d", i),
				Vector:  testVector(dim, float32(i)),
				Payload: map[string]any{"image": fmt.Sprintf("img%d.jpg", i)},
			})
			if err != nil {
				t.Fatalf("Upsert failed: %v", err)
			}
		}

		matches, err := s.Query(ctx, collection, testVector(dim, 2), 2)
		if err != nil {
			t.Fatalf("Query failed: %v", err)
		}
		if len(matches) != 2 {
			t.Fatalf("expected 2 matches, got %d", len(matches))
		}
		if matches[0].ID != "rec-2" {
			t.Errorf("expected rec-2 first, got %s", matches[0].ID)
		}
		if matches[0].Score < matches[1].Score {
			t.Errorf("cosine results must rank by descending similarity: %v", matches)
		}
		if matches[0].Payload["image"] != "img2.jpg" {
			t.Errorf("payload not preserved: %v", matches[0].Payload)
		}

		// Replace semantics: second upsert with the same ID wins.
		if err := s.Upsert(ctx, collection, store.Record{
			ID:      "rec-0",
			Vector:  testVector(dim, 50),
			Payload: map[string]any{"image": "replaced.jpg"},
		}); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
		count, err := s.Count(ctx, collection)
		if err != nil {
			t.Fatalf("Count failed: %v", err)
		}
		if count != 3 {
			t.Errorf("re-upsert must replace, not append: count = %d", count)
		}
		matches, err = s.Query(ctx, collection, testVector(dim, 50), 1)
		if err != nil {
			t.Fatalf("Query failed: %v", err)
		}
		if len(matches) == 0 || matches[0].ID != "rec-0" || matches[0].Payload["image"] != "replaced.jpg" {
			t.Errorf("expected replaced rec-0 to win, got %v", matches)
		}
	})

	t.Run("CollectionNotFound", func(t *testing.T) {
		_, err := s.Query(ctx, "does_not_exist", testVector(dim, 0), 5)
		if !errors.Is(err, store.ErrCollectionNotFound) {
			t.Errorf("expected ErrCollectionNotFound, got %v", err)
		}
		err = s.DeleteCollection(ctx, "does_not_exist")
		if !errors.Is(err, store.ErrCollectionNotFound) {
			t.Errorf("expected ErrCollectionNotFound, got %v", err)
		}
	})

	t.Run("DeleteCollectionCascades", func(t *testing.T) {
		if err := s.DeleteCollection(ctx, collection); err != nil {
			t.Fatalf("DeleteCollection failed: %v", err)
		}
		_, err := s.CollectionInfo(ctx, collection)
		if !errors.Is(err, store.ErrCollectionNotFound) {
			t.Errorf("expected ErrCollectionNotFound after delete, got %v", err)
		}
	})
}
