package qdrant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kozaktomas/face-search/internal/store"
)

func TestNewRejectsInvalidURL(t *testing.T) {
	tests := []string{"", "not-a-url", "localhost:6333"}
	for _, tc := range tests {
		t.Run(tc, func(t *testing.T) {
			if _, err := New(tc, "", 0); err == nil {
				t.Errorf("New(%q) should fail", tc)
			}
		})
	}
}

func TestStoreUnavailableAfterRetries(t *testing.T) {
	client, err := New("http://127.0.0.1:1", "", 500*time.Millisecond)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	client.maxRetries = 1

	_, err = client.CollectionInfo(context.Background(), "any")
	if !errors.Is(err, store.ErrStoreUnavailable) {
		t.Errorf("expected ErrStoreUnavailable, got %v", err)
	}
}

// newTestClient points a client at a httptest server.
func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := New(srv.URL, "", time.Second)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return client, srv
}

func TestCollectionNotFoundMapping(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"status":{"error":"Not found: Collection missing doesn't exist"},"time":0}`)
	})

	_, err := client.CollectionInfo(context.Background(), "missing")
	if !errors.Is(err, store.ErrCollectionNotFound) {
		t.Errorf("expected ErrCollectionNotFound, got %v", err)
	}
}

func TestClientSideDimensionCheck(t *testing.T) {
	var upsertCalls int
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			fmt.Fprint(w, `{"result":{"points_count":0,"config":{"params":{"vectors":{"size":128,"distance":"Dot"}}}},"status":"ok","time":0}`)
			return
		}
		upsertCalls++
		fmt.Fprint(w, `{"result":{},"status":"ok","time":0}`)
	})

	err := client.Upsert(context.Background(), "faces", store.Record{
		ID:     "b0a0f6b2-0000-4000-8000-000000000001",
		Vector: make([]float32, 64),
	})
	if !errors.Is(err, store.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
	if upsertCalls != 0 {
		t.Errorf("mismatched vector must be rejected before any write, got %d upsert calls", upsertCalls)
	}
}

func TestNoRetryOnClientError(t *testing.T) {
	var calls int
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"status":{"error":"Bad request"},"time":0}`)
	})

	_, err := client.Count(context.Background(), "faces")
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("4xx responses must not be retried, got %d calls", calls)
	}
}

func TestQueryParsesMixedIDTypes(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"result":[
			{"id":"b0a0f6b2-0000-4000-8000-000000000001","score":0.9,"payload":{"image":"a.jpg"}},
			{"id":42,"score":0.5,"payload":{"image":"b.jpg"}}
		],"status":"ok","time":0}`)
	})

	matches, err := client.Query(context.Background(), "faces", make([]float32, 128), 5)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].ID != "b0a0f6b2-0000-4000-8000-000000000001" {
		t.Errorf("unexpected first ID %q", matches[0].ID)
	}
	if matches[1].ID != "42" {
		t.Errorf("integer IDs should be stringified, got %q", matches[1].ID)
	}
	if matches[0].Payload["image"] != "a.jpg" {
		t.Errorf("payload not preserved: %v", matches[0].Payload)
	}
}

func TestQueryPreservesLargeIntegerIDs(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"result":[
			{"id":18446744073709551615,"score":0.9,"payload":{}},
			{"id":9007199254740993,"score":0.5,"payload":{}}
		],"status":"ok","time":0}`)
	})

	matches, err := client.Query(context.Background(), "faces", make([]float32, 128), 5)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if matches[0].ID != "18446744073709551615" {
		t.Errorf("uint64 ID must not lose precision, got %q", matches[0].ID)
	}
	if matches[1].ID != "9007199254740993" {
		t.Errorf("ID above 2^53 must not round, got %q", matches[1].ID)
	}
}

func TestStatusError(t *testing.T) {
	if msg := statusError(json.RawMessage(`{"error":"boom"}`)); msg != "boom" {
		t.Errorf("statusError = %q, want boom", msg)
	}
	if msg := statusError(json.RawMessage(`"ok"`)); msg != "" {
		t.Errorf("statusError on ok status = %q, want empty", msg)
	}
}
