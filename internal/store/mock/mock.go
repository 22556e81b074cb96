// Package mock provides an in-memory VectorStore implementation for tests.
package mock

import (
	"context"
	"sort"
	"sync"

	"github.com/kozaktomas/face-search/internal/store"
)

type collection struct {
	dim     int
	metric  store.Metric
	records map[string]store.Record
}

// Store is an in-memory implementation of store.VectorStore with error
// injection hooks for exercising failure paths.
type Store struct {
	mu          sync.RWMutex
	collections map[string]*collection

	// Error injection
	CreateError error
	UpsertError error
	QueryError  error
}

// New creates an empty mock store.
func New() *Store {
	return &Store{collections: make(map[string]*collection)}
}

func (s *Store) CreateCollection(ctx context.Context, name string, dim int, metric store.Metric) error {
	if s.CreateError != nil {
		return s.CreateError
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.collections[name]; ok {
		if existing.dim != dim || existing.metric != metric {
			return store.ErrSchemaConflict
		}
		return nil
	}
	s.collections[name] = &collection{
		dim:     dim,
		metric:  metric,
		records: make(map[string]store.Record),
	}
	return nil
}

func (s *Store) CollectionInfo(ctx context.Context, name string) (*store.CollectionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[name]
	if !ok {
		return nil, store.ErrCollectionNotFound
	}
	return &store.CollectionInfo{
		Name:   name,
		Dim:    c.dim,
		Metric: c.metric,
		Count:  len(c.records),
	}, nil
}

func (s *Store) DeleteCollection(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[name]; !ok {
		return store.ErrCollectionNotFound
	}
	delete(s.collections, name)
	return nil
}

func (s *Store) Upsert(ctx context.Context, name string, rec store.Record) error {
	if s.UpsertError != nil {
		return s.UpsertError
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[name]
	if !ok {
		return store.ErrCollectionNotFound
	}
	if len(rec.Vector) != c.dim {
		return store.ErrDimensionMismatch
	}
	c.records[rec.ID] = rec
	return nil
}

func (s *Store) Query(ctx context.Context, name string, vector []float32, topK int) ([]store.Match, error) {
	if s.QueryError != nil {
		return nil, s.QueryError
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[name]
	if !ok {
		return nil, store.ErrCollectionNotFound
	}

	matches := make([]store.Match, 0, len(c.records))
	for _, rec := range c.records {
		matches = append(matches, store.Match{
			ID:      rec.ID,
			Score:   store.Score(c.metric, vector, rec.Vector),
			Payload: rec.Payload,
		})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return store.Better(c.metric, matches[i].Score, matches[j].Score)
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (s *Store) Count(ctx context.Context, name string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[name]
	if !ok {
		return 0, store.ErrCollectionNotFound
	}
	return len(c.records), nil
}

// Record returns the stored record with the given ID, or nil.
func (s *Store) Record(name, id string) *store.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[name]
	if !ok {
		return nil
	}
	rec, ok := c.records[id]
	if !ok {
		return nil
	}
	return &rec
}
