package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds everything the pipelines need, read from environment
// variables (optionally via a .env file loaded in cmd/root.go).
type Config struct {
	Qdrant   QdrantConfig
	Postgres PostgresConfig
	Face     FaceConfig
	Store    StoreConfig
	Search   SearchConfig
	Web      WebConfig
}

type QdrantConfig struct {
	URL     string        // defaults to http://localhost:6333
	APIKey  string        // only needed for cloud deployments
	Timeout time.Duration // per-request timeout
}

type PostgresConfig struct {
	URL          string // PostgreSQL connection URL (pgvector extension required)
	MaxOpenConns int
	MaxIdleConns int
}

type FaceConfig struct {
	ModelsDir string // directory holding the dlib model files
}

type StoreConfig struct {
	Backend        string // qdrant (default), postgres or local
	LocalIndexPath string // persistence file for the local backend
}

type SearchConfig struct {
	Collection string // default collection name
	TopK       int    // default number of matches per query
}

type WebConfig struct {
	Host string // bind address for the HTTP server
	Port int
}

// envInt reads an environment variable and parses it as a positive
// integer, falling back to the default when unset or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// Load reads the configuration from the environment.
func Load() *Config {
	return &Config{
		Qdrant: QdrantConfig{
			URL:     envString("QDRANT_URL", "http://localhost:6333"),
			APIKey:  os.Getenv("QDRANT_API_KEY"),
			Timeout: time.Duration(envInt("QDRANT_TIMEOUT_SECONDS", 10)) * time.Second,
		},
		Postgres: PostgresConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Face: FaceConfig{
			ModelsDir: envString("FACE_MODELS_DIR", "models"),
		},
		Store: StoreConfig{
			Backend:        envString("FACE_STORE_BACKEND", "qdrant"),
			LocalIndexPath: os.Getenv("LOCAL_INDEX_PATH"),
		},
		Search: SearchConfig{
			Collection: envString("FACE_COLLECTION", "faces"),
			TopK:       envInt("FACE_TOP_K", 5),
		},
		Web: WebConfig{
			Host: envString("WEB_HOST", "0.0.0.0"),
			Port: envInt("WEB_PORT", 8080),
		},
	}
}
