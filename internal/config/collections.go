package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Collections maps source image directories to collection names, so
// repeated ingestion runs do not need the collection flag every time.
//
// File format (collections.yaml):
//
//	collections:
//	  /photos/family: family_faces
//	  /photos/work: work_faces
type Collections struct {
	Mapping map[string]string `yaml:"collections"`

	path string
}

// LoadCollections reads the mapping file. A missing file yields an
// empty mapping, not an error.
func LoadCollections(path string) (*Collections, error) {
	c := &Collections{Mapping: make(map[string]string), path: path}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading collections file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parsing collections file %s: %w", path, err)
	}
	if c.Mapping == nil {
		c.Mapping = make(map[string]string)
	}
	return c, nil
}

// CollectionFor returns the collection mapped to a directory, matching
// on the absolute path. Returns "" when the directory has no mapping.
func (c *Collections) CollectionFor(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return c.Mapping[dir]
	}
	if name, ok := c.Mapping[abs]; ok {
		return name
	}
	return c.Mapping[dir]
}

// Set records a directory to collection mapping.
func (c *Collections) Set(dir, collection string) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = dir
	}
	c.Mapping[abs] = collection
}

// Save writes the mapping back to the file it was loaded from.
func (c *Collections) Save() error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling collections: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0o644); err != nil {
		return fmt.Errorf("writing collections file %s: %w", c.path, err)
	}
	return nil
}
