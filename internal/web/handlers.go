package web

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-search/internal/face"
	"github.com/kozaktomas/face-search/internal/imaging"
	"github.com/kozaktomas/face-search/internal/pipeline"
	"github.com/kozaktomas/face-search/internal/store"
)

const maxUploadSize = 32 << 20 // 32 MB

type errorResponse struct {
	Error string `json:"error"`
}

type createCollectionRequest struct {
	Dim    int    `json:"dim"`
	Metric string `json:"metric"`
}

type collectionResponse struct {
	Name   string `json:"name"`
	Dim    int    `json:"dim"`
	Metric string `json:"metric"`
	Count  int    `json:"count"`
}

type matchResponse struct {
	ID      string         `json:"id"`
	Score   float64        `json:"score"`
	Payload map[string]any `json:"payload,omitempty"`
}

type searchResponse struct {
	Collection string          `json:"collection"`
	Matches    []matchResponse `json:"matches"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCollectionInfo(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	info, err := s.store.CollectionInfo(r.Context(), name)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, collectionResponse{
		Name:   info.Name,
		Dim:    info.Dim,
		Metric: string(info.Metric),
		Count:  info.Count,
	})
}

func (s *Server) handleCollectionCreate(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	req := createCollectionRequest{
		Dim:    face.EmbeddingDim,
		Metric: string(store.MetricDot),
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
			return
		}
	}

	metric, err := store.ParseMetric(req.Metric)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if req.Dim <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "dim must be positive"})
		return
	}

	if err := s.store.CreateCollection(r.Context(), name, req.Dim, metric); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, collectionResponse{
		Name:   name,
		Dim:    req.Dim,
		Metric: string(metric),
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid multipart form"})
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing file upload"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadSize))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "failed to read upload"})
		return
	}

	collection := r.FormValue("collection")
	if collection == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing collection"})
		return
	}

	topK := s.defaultK
	if v := r.FormValue("top_k"); v != "" {
		topK, err = strconv.Atoi(v)
		if err != nil || topK <= 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "top_k must be a positive integer"})
			return
		}
	}

	q := &pipeline.Query{Embedder: s.embedder, Store: s.store}
	matches, err := q.RunBytes(r.Context(), data, collection, topK)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := searchResponse{Collection: collection, Matches: make([]matchResponse, 0, len(matches))}
	for _, m := range matches {
		resp.Matches = append(resp.Matches, matchResponse{ID: m.ID, Score: m.Score, Payload: m.Payload})
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeError maps domain errors to HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrCollectionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrSchemaConflict):
		status = http.StatusConflict
	case errors.Is(err, store.ErrDimensionMismatch):
		status = http.StatusBadRequest
	case errors.Is(err, store.ErrStoreUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, face.ErrNoFace), errors.Is(err, face.ErrAmbiguousFaces):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, imaging.ErrImageLoad):
		status = http.StatusBadRequest
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}
