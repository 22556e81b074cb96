// Package store defines the vector store abstraction shared by all
// backends (Qdrant, PostgreSQL+pgvector, embedded HNSW) and the error
// taxonomy the pipelines rely on.
package store

import (
	"context"
	"errors"
	"fmt"
)

// Metric is the distance metric a collection is created with.
type Metric string

const (
	MetricCosine Metric = "Cosine"
	MetricEuclid Metric = "Euclid"
	MetricDot    Metric = "Dot"
)

// ParseMetric converts a user-supplied metric name to a Metric.
func ParseMetric(s string) (Metric, error) {
	switch s {
	case "cosine", "Cosine":
		return MetricCosine, nil
	case "euclid", "Euclid", "l2":
		return MetricEuclid, nil
	case "dot", "Dot":
		return MetricDot, nil
	}
	return "", fmt.Errorf("unknown distance metric %q (expected cosine, euclid or dot)", s)
}

// Sentinel errors shared by all backends. Callers match with errors.Is.
var (
	// ErrSchemaConflict means the collection already exists with a
	// different dimensionality or metric.
	ErrSchemaConflict = errors.New("collection exists with different schema")

	// ErrDimensionMismatch means a vector's length does not match the
	// dimensionality declared at collection creation. The record is
	// rejected before any write.
	ErrDimensionMismatch = errors.New("vector dimension does not match collection")

	// ErrCollectionNotFound means the named collection does not exist.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrStoreUnavailable means the external store could not be reached
	// after the bounded retry budget was exhausted.
	ErrStoreUnavailable = errors.New("vector store unavailable")
)

// Record is one stored face: an identifier, its embedding and arbitrary
// payload metadata (source file, person name, bounding box).
type Record struct {
	ID      string
	Vector  []float32
	Payload map[string]any
}

// Match is one ranked query result. Score follows the collection's
// metric: higher is more similar for Cosine and Dot, lower for Euclid.
type Match struct {
	ID      string
	Score   float64
	Payload map[string]any
}

// CollectionInfo describes an existing collection.
type CollectionInfo struct {
	Name   string
	Dim    int
	Metric Metric
	Count  int
}

// VectorStore is implemented by every backend. Durability lives in the
// backend; implementations hold no pipeline state.
type VectorStore interface {
	// CreateCollection creates a named collection with a fixed vector
	// dimensionality and distance metric. Creating a collection that
	// already exists with the same parameters is a no-op; differing
	// parameters return ErrSchemaConflict.
	CreateCollection(ctx context.Context, name string, dim int, metric Metric) error

	// CollectionInfo returns the schema and record count of a collection,
	// or ErrCollectionNotFound.
	CollectionInfo(ctx context.Context, name string) (*CollectionInfo, error)

	// DeleteCollection removes a collection and all its records.
	DeleteCollection(ctx context.Context, name string) error

	// Upsert inserts or replaces the record with the given ID. Returns
	// ErrDimensionMismatch before writing anything if the vector length
	// differs from the collection's dimensionality.
	Upsert(ctx context.Context, collection string, rec Record) error

	// Query returns up to topK matches ranked by the collection's metric.
	// An empty collection yields an empty slice, not an error.
	Query(ctx context.Context, collection string, vector []float32, topK int) ([]Match, error)

	// Count returns the number of records in a collection.
	Count(ctx context.Context, collection string) (int, error)
}
