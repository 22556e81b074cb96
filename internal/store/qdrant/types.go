package qdrant

import (
	"bytes"
	"encoding/json"
)

// Wire types for the subset of the Qdrant REST API this client uses.
// The request/response schema is owned by Qdrant and treated as a
// versioned dependency.

// vectorConfig declares vector dimension and distance metric.
type vectorConfig struct {
	Size     int    `json:"size"`
	Distance string `json:"distance"` // "Cosine", "Euclid", "Dot"
}

// createCollectionRequest is the body of PUT /collections/{name}.
type createCollectionRequest struct {
	Vectors vectorConfig `json:"vectors"`
}

// point represents a vector with payload. Qdrant requires the ID to be
// a UUID string or an unsigned integer, not an arbitrary string.
type point struct {
	ID      any            `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload,omitempty"`
}

// upsertPointsRequest is the body of PUT /collections/{name}/points.
type upsertPointsRequest struct {
	Points []point `json:"points"`
}

// searchRequest is the body of POST /collections/{name}/points/search.
type searchRequest struct {
	Vector      []float32 `json:"vector"`
	Limit       int       `json:"limit"`
	WithPayload bool      `json:"with_payload"`
}

// scoredPoint is one search result. The ID is a UUID string or an
// unsigned integer depending on how the point was written. It is kept
// raw so 64-bit integer IDs do not round-trip through float64.
type scoredPoint struct {
	ID      json.RawMessage `json:"id"`
	Score   float64         `json:"score"`
	Payload map[string]any  `json:"payload"`
}

// pointIDString renders a point ID without loss: quoted UUIDs are
// unwrapped, numeric IDs keep their exact decimal text.
func pointIDString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(raw))
}

// countRequest is the body of POST /collections/{name}/points/count.
type countRequest struct {
	Exact bool `json:"exact"`
}

type countResult struct {
	Count int `json:"count"`
}

// collectionResult is the relevant part of GET /collections/{name}.
type collectionResult struct {
	PointsCount int `json:"points_count"`
	Config      struct {
		Params struct {
			Vectors vectorConfig `json:"vectors"`
		} `json:"params"`
	} `json:"config"`
}

// envelope is Qdrant's standard response wrapper. Status is either the
// string "ok" or an object carrying an error message.
type envelope[T any] struct {
	Result T               `json:"result"`
	Status json.RawMessage `json:"status"`
	Time   float64         `json:"time"`
}

// statusError extracts the error message from a non-ok status field.
func statusError(raw json.RawMessage) string {
	var obj struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Error != "" {
		return obj.Error
	}
	return ""
}
