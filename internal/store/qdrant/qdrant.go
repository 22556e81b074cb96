// Package qdrant implements store.VectorStore against the Qdrant REST
// API. The client owns no persistent state; durability lives entirely
// in the external Qdrant process.
package qdrant

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/kozaktomas/face-search/internal/store"
)

const defaultTimeout = 10 * time.Second

// Client talks to a Qdrant instance over HTTP.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	maxRetries uint64

	// dims caches collection dimensionality so every upsert does not
	// need a schema round trip.
	mu   sync.RWMutex
	dims map[string]int
}

// New creates a Qdrant client for the given base URL (e.g.
// http://localhost:6333). The API key is optional and only needed for
// cloud deployments. A zero timeout falls back to the default.
func New(baseURL, apiKey string, timeout time.Duration) (*Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid qdrant URL %q", baseURL)
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimSuffix(parsed.String(), "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: 3,
		dims:       make(map[string]int),
	}, nil
}

func (c *Client) resolveURL(endpoint string) string {
	return c.baseURL + endpoint
}

func collectionPath(name string) string {
	return "/collections/" + url.PathEscape(name)
}

// CreateCollection creates a collection with the given schema. It is
// idempotent when the collection already exists with the same
// dimensionality and metric, and returns store.ErrSchemaConflict when
// the existing schema differs.
func (c *Client) CreateCollection(ctx context.Context, name string, dim int, metric store.Metric) error {
	existing, err := c.CollectionInfo(ctx, name)
	if err == nil {
		if existing.Dim != dim || existing.Metric != metric {
			return fmt.Errorf("%w: %s has dim=%d metric=%s, requested dim=%d metric=%s",
				store.ErrSchemaConflict, name, existing.Dim, existing.Metric, dim, metric)
		}
		return nil
	}
	if !errors.Is(err, store.ErrCollectionNotFound) {
		return err
	}

	body := createCollectionRequest{Vectors: vectorConfig{Size: dim, Distance: string(metric)}}
	if _, err := doJSON[bool](ctx, c, http.MethodPut, collectionPath(name), body); err != nil {
		var apiErr *apiError
		// Another writer may have created it between the check and the PUT.
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict {
			return c.verifySchema(ctx, name, dim, metric)
		}
		return fmt.Errorf("creating collection %s: %w", name, err)
	}

	c.mu.Lock()
	c.dims[name] = dim
	c.mu.Unlock()
	return nil
}

func (c *Client) verifySchema(ctx context.Context, name string, dim int, metric store.Metric) error {
	info, err := c.CollectionInfo(ctx, name)
	if err != nil {
		return err
	}
	if info.Dim != dim || info.Metric != metric {
		return fmt.Errorf("%w: %s has dim=%d metric=%s, requested dim=%d metric=%s",
			store.ErrSchemaConflict, name, info.Dim, info.Metric, dim, metric)
	}
	return nil
}

// CollectionInfo fetches the schema and point count of a collection.
func (c *Client) CollectionInfo(ctx context.Context, name string) (*store.CollectionInfo, error) {
	resp, err := doJSON[collectionResult](ctx, c, http.MethodGet, collectionPath(name), nil)
	if err != nil {
		return nil, mapCollectionError(err, name)
	}

	info := &store.CollectionInfo{
		Name:   name,
		Dim:    resp.Result.Config.Params.Vectors.Size,
		Metric: store.Metric(resp.Result.Config.Params.Vectors.Distance),
		Count:  resp.Result.PointsCount,
	}

	c.mu.Lock()
	c.dims[name] = info.Dim
	c.mu.Unlock()
	return info, nil
}

// DeleteCollection removes a collection and all its points.
func (c *Client) DeleteCollection(ctx context.Context, name string) error {
	if _, err := doJSON[bool](ctx, c, http.MethodDelete, collectionPath(name), nil); err != nil {
		return mapCollectionError(err, name)
	}
	c.mu.Lock()
	delete(c.dims, name)
	c.mu.Unlock()
	return nil
}

// Upsert writes one point with wait=true so the write is durable before
// returning. The vector length is validated against the collection
// schema before anything is sent.
func (c *Client) Upsert(ctx context.Context, collection string, rec store.Record) error {
	dim, err := c.collectionDim(ctx, collection)
	if err != nil {
		return err
	}
	if len(rec.Vector) != dim {
		return fmt.Errorf("%w: got %d, collection %s expects %d",
			store.ErrDimensionMismatch, len(rec.Vector), collection, dim)
	}

	body := upsertPointsRequest{Points: []point{{ID: rec.ID, Vector: rec.Vector, Payload: rec.Payload}}}
	endpoint := collectionPath(collection) + "/points?wait=true"
	if _, err := doJSON[struct{}](ctx, c, http.MethodPut, endpoint, body); err != nil {
		return mapCollectionError(err, collection)
	}
	return nil
}

// Query runs a nearest-neighbor search and returns up to topK matches
// ranked by the collection's metric.
func (c *Client) Query(ctx context.Context, collection string, vector []float32, topK int) ([]store.Match, error) {
	body := searchRequest{Vector: vector, Limit: topK, WithPayload: true}
	endpoint := collectionPath(collection) + "/points/search"
	resp, err := doJSON[[]scoredPoint](ctx, c, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, mapCollectionError(err, collection)
	}

	matches := make([]store.Match, 0, len(resp.Result))
	for _, p := range resp.Result {
		matches = append(matches, store.Match{
			ID:      pointIDString(p.ID),
			Score:   p.Score,
			Payload: p.Payload,
		})
	}
	return matches, nil
}

// Count returns the exact number of points in a collection.
func (c *Client) Count(ctx context.Context, collection string) (int, error) {
	endpoint := collectionPath(collection) + "/points/count"
	resp, err := doJSON[countResult](ctx, c, http.MethodPost, endpoint, countRequest{Exact: true})
	if err != nil {
		return 0, mapCollectionError(err, collection)
	}
	return resp.Result.Count, nil
}

// collectionDim returns the cached dimensionality of a collection,
// fetching the schema on first use.
func (c *Client) collectionDim(ctx context.Context, name string) (int, error) {
	c.mu.RLock()
	dim, ok := c.dims[name]
	c.mu.RUnlock()
	if ok {
		return dim, nil
	}

	info, err := c.CollectionInfo(ctx, name)
	if err != nil {
		return 0, err
	}
	return info.Dim, nil
}

// mapCollectionError translates API errors onto the store taxonomy.
func mapCollectionError(err error, collection string) error {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusNotFound:
			return fmt.Errorf("%w: %s", store.ErrCollectionNotFound, collection)
		case strings.Contains(apiErr.Message, "dimension error"),
			strings.Contains(apiErr.Message, "Vector dimension"):
			return fmt.Errorf("%w: %s", store.ErrDimensionMismatch, apiErr.Message)
		}
	}
	return err
}
