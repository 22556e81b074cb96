// Package hnswlocal implements store.VectorStore on an embedded HNSW
// graph, so the tool can run without any external database process.
// Records are gob-persisted to a single file; the graph itself is
// rebuilt from the records on load.
package hnswlocal

import (
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/coder/hnsw"

	"github.com/kozaktomas/face-search/internal/store"
)

// HNSW graph parameters for 128-dim face embeddings.
const (
	// maxNeighbors (M) is the maximum number of neighbors per node.
	maxNeighbors = 16
)

func init() {
	// Payload values the pipelines produce. gob needs the concrete
	// types of interface values registered up front.
	gob.Register(map[string]any{})
	gob.Register([]any{})
}

type collection struct {
	Dim     int
	Metric  store.Metric
	Records map[string]store.Record

	graph *hnsw.Graph[string] // rebuilt lazily, never persisted
}

type fileFormat struct {
	Version     int
	Collections map[string]*collection
}

const currentFileVersion = 1

// Store is a file-backed local vector store.
type Store struct {
	mu          sync.RWMutex
	path        string // empty means in-memory only
	collections map[string]*collection
}

// New creates a local store persisted at path. If the file exists its
// contents are loaded; an empty path keeps everything in memory.
func New(path string) (*Store, error) {
	s := &Store{
		path:        path,
		collections: make(map[string]*collection),
	}
	if path == "" {
		return s, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return s, nil
	}
	if err := s.load(path); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open local index file: %w", err)
	}
	defer f.Close()

	var data fileFormat
	if err := gob.NewDecoder(f).Decode(&data); err != nil {
		return fmt.Errorf("failed to decode local index file: %w", err)
	}
	if data.Version != currentFileVersion {
		return fmt.Errorf("unsupported local index file version %d", data.Version)
	}
	if data.Collections != nil {
		s.collections = data.Collections
	}
	return nil
}

// Save persists all collections to the configured path. A no-op for
// in-memory stores.
func (s *Store) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.path == "" {
		return nil
	}

	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("failed to create local index file: %w", err)
	}
	defer f.Close()

	data := fileFormat{Version: currentFileVersion, Collections: s.collections}
	if err := gob.NewEncoder(f).Encode(&data); err != nil {
		return fmt.Errorf("failed to encode local index file: %w", err)
	}
	return nil
}

func (s *Store) CreateCollection(ctx context.Context, name string, dim int, metric store.Metric) error {
	if metric == store.MetricDot {
		return errors.New("the local backend does not support the dot metric, use cosine or euclid")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.collections[name]; ok {
		if existing.Dim != dim || existing.Metric != metric {
			return fmt.Errorf("%w: %s has dim=%d metric=%s, requested dim=%d metric=%s",
				store.ErrSchemaConflict, name, existing.Dim, existing.Metric, dim, metric)
		}
		return nil
	}

	s.collections[name] = &collection{
		Dim:     dim,
		Metric:  metric,
		Records: make(map[string]store.Record),
	}
	return nil
}

func (s *Store) CollectionInfo(ctx context.Context, name string) (*store.CollectionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrCollectionNotFound, name)
	}
	return &store.CollectionInfo{Name: name, Dim: c.Dim, Metric: c.Metric, Count: len(c.Records)}, nil
}

func (s *Store) DeleteCollection(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[name]; !ok {
		return fmt.Errorf("%w: %s", store.ErrCollectionNotFound, name)
	}
	delete(s.collections, name)
	return nil
}

func (s *Store) Upsert(ctx context.Context, name string, rec store.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[name]
	if !ok {
		return fmt.Errorf("%w: %s", store.ErrCollectionNotFound, name)
	}
	if len(rec.Vector) != c.Dim {
		return fmt.Errorf("%w: got %d, collection %s expects %d",
			store.ErrDimensionMismatch, len(rec.Vector), name, c.Dim)
	}

	_, replacing := c.Records[rec.ID]
	c.Records[rec.ID] = rec

	if replacing {
		// The graph has no cheap node replacement; rebuild on next query.
		c.graph = nil
	} else if c.graph != nil {
		c.graph.Add(hnsw.MakeNode(rec.ID, rec.Vector))
	}
	return nil
}

func (s *Store) Query(ctx context.Context, name string, vector []float32, topK int) ([]store.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrCollectionNotFound, name)
	}
	if len(vector) != c.Dim {
		return nil, fmt.Errorf("%w: got %d, collection %s expects %d",
			store.ErrDimensionMismatch, len(vector), name, c.Dim)
	}
	if len(c.Records) == 0 {
		return []store.Match{}, nil
	}

	if c.graph == nil {
		c.rebuildGraph()
	}

	neighbors := c.graph.Search(vector, topK)
	matches := make([]store.Match, 0, len(neighbors))
	for _, n := range neighbors {
		rec, ok := c.Records[n.Key]
		if !ok {
			continue
		}
		matches = append(matches, store.Match{
			ID:      rec.ID,
			Score:   store.Score(c.Metric, vector, rec.Vector),
			Payload: rec.Payload,
		})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return store.Better(c.Metric, matches[i].Score, matches[j].Score)
	})
	return matches, nil
}

func (s *Store) Count(ctx context.Context, name string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", store.ErrCollectionNotFound, name)
	}
	return len(c.Records), nil
}

func (c *collection) rebuildGraph() {
	g := hnsw.NewGraph[string]()
	g.M = maxNeighbors
	g.Ml = 1.0 / float64(maxNeighbors) // standard HNSW formula
	if c.Metric == store.MetricEuclid {
		g.Distance = hnsw.EuclideanDistance
	} else {
		g.Distance = hnsw.CosineDistance
	}

	for _, rec := range c.Records {
		g.Add(hnsw.MakeNode(rec.ID, rec.Vector))
	}
	c.graph = g
}
