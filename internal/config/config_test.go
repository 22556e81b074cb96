package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"QDRANT_URL", "QDRANT_API_KEY", "QDRANT_TIMEOUT_SECONDS",
		"FACE_MODELS_DIR", "FACE_STORE_BACKEND", "FACE_COLLECTION", "FACE_TOP_K",
		"WEB_HOST", "WEB_PORT",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.Qdrant.URL != "http://localhost:6333" {
		t.Errorf("default Qdrant URL = %s", cfg.Qdrant.URL)
	}
	if cfg.Qdrant.Timeout != 10*time.Second {
		t.Errorf("default Qdrant timeout = %s", cfg.Qdrant.Timeout)
	}
	if cfg.Store.Backend != "qdrant" {
		t.Errorf("default backend = %s", cfg.Store.Backend)
	}
	if cfg.Search.Collection != "faces" || cfg.Search.TopK != 5 {
		t.Errorf("default search config = %+v", cfg.Search)
	}
	if cfg.Web.Host != "0.0.0.0" || cfg.Web.Port != 8080 {
		t.Errorf("default web config = %+v", cfg.Web)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("QDRANT_URL", "http://qdrant.internal:6333")
	t.Setenv("QDRANT_TIMEOUT_SECONDS", "30")
	t.Setenv("FACE_STORE_BACKEND", "local")
	t.Setenv("FACE_TOP_K", "20")
	t.Setenv("FACE_TOP_K_INVALID", "zzz")
	t.Setenv("WEB_HOST", "127.0.0.1")
	t.Setenv("WEB_PORT", "9090")

	cfg := Load()
	if cfg.Qdrant.URL != "http://qdrant.internal:6333" {
		t.Errorf("Qdrant URL = %s", cfg.Qdrant.URL)
	}
	if cfg.Qdrant.Timeout != 30*time.Second {
		t.Errorf("Qdrant timeout = %s", cfg.Qdrant.Timeout)
	}
	if cfg.Store.Backend != "local" {
		t.Errorf("backend = %s", cfg.Store.Backend)
	}
	if cfg.Search.TopK != 20 {
		t.Errorf("top-k = %d", cfg.Search.TopK)
	}
	if cfg.Web.Host != "127.0.0.1" || cfg.Web.Port != 9090 {
		t.Errorf("web config = %+v", cfg.Web)
	}
}

func TestLoadIgnoresInvalidWebPort(t *testing.T) {
	t.Setenv("WEB_PORT", "not-a-port")

	cfg := Load()
	if cfg.Web.Port != 8080 {
		t.Errorf("invalid WEB_PORT should fall back to default, got %d", cfg.Web.Port)
	}
}

func TestEnvIntInvalid(t *testing.T) {
	t.Setenv("FACE_TOP_K", "not-a-number")
	if got := envInt("FACE_TOP_K", 5); got != 5 {
		t.Errorf("invalid value should fall back to default, got %d", got)
	}
	t.Setenv("FACE_TOP_K", "-3")
	if got := envInt("FACE_TOP_K", 5); got != 5 {
		t.Errorf("negative value should fall back to default, got %d", got)
	}
}

func TestCollectionsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "collections.yaml")

	c, err := LoadCollections(path)
	if err != nil {
		t.Fatalf("LoadCollections on missing file failed: %v", err)
	}
	if got := c.CollectionFor("/photos/family"); got != "" {
		t.Errorf("empty mapping should return no collection, got %q", got)
	}

	c.Set("/photos/family", "family_faces")
	if err := c.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	reloaded, err := LoadCollections(path)
	if err != nil {
		t.Fatalf("LoadCollections failed: %v", err)
	}
	if got := reloaded.CollectionFor("/photos/family"); got != "family_faces" {
		t.Errorf("CollectionFor = %q; want family_faces", got)
	}
}
