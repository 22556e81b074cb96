package pipeline

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-search/internal/imaging"
	"github.com/kozaktomas/face-search/internal/store"
)

// Query runs the single-image lookup flow: load, embed, search. Any
// load or embedding failure propagates; there is no fallback.
type Query struct {
	Embedder Embedder
	Store    store.VectorStore
}

// Run embeds the image at path and returns up to topK ranked matches
// from the collection.
func (q *Query) Run(ctx context.Context, path, collection string, topK int) ([]store.Match, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("top-k must be positive, got %d", topK)
	}

	data, err := imaging.Load(path)
	if err != nil {
		return nil, err
	}
	data, err = imaging.Resize(data, maxImageSize)
	if err != nil {
		return nil, err
	}

	f, err := q.Embedder.Embed(data)
	if err != nil {
		return nil, fmt.Errorf("embedding %s: %w", path, err)
	}

	matches, err := q.Store.Query(ctx, collection, f.Embedding, topK)
	if err != nil {
		return nil, err
	}
	return matches, nil
}

// RunBytes is Run for in-memory image data, used by the HTTP API.
func (q *Query) RunBytes(ctx context.Context, data []byte, collection string, topK int) ([]store.Match, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("top-k must be positive, got %d", topK)
	}

	jpegData, err := imaging.ToJPEG(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", imaging.ErrImageLoad, err)
	}
	jpegData, err = imaging.Resize(jpegData, maxImageSize)
	if err != nil {
		return nil, err
	}

	f, err := q.Embedder.Embed(jpegData)
	if err != nil {
		return nil, err
	}
	return q.Store.Query(ctx, collection, f.Embedding, topK)
}
