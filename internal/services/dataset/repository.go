package dataset

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const registryFilename = "dataset_metadata.json"

// fileRepository persists the registry as a single JSON file. Save writes
// to a temp file and renames it over the old one, so a crash mid-write
// never leaves a truncated registry behind.
type fileRepository struct {
	path string
}

// NewFileRepository creates a registry repository backed by
// dataset_metadata.json under baseDir.
func NewFileRepository(baseDir string) Repository {
	return &fileRepository{path: filepath.Join(baseDir, registryFilename)}
}

func (r *fileRepository) Load() (*Registry, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewRegistry(), nil
		}
		return nil, fmt.Errorf("reading dataset registry: %w", err)
	}

	reg := NewRegistry()
	if err := json.Unmarshal(data, reg); err != nil {
		return nil, fmt.Errorf("parsing dataset registry: %w", err)
	}
	if reg.Classes == nil {
		reg.Classes = make(map[string]*ClassInfo)
	}
	if reg.Fingerprints == nil {
		reg.Fingerprints = make(map[string]string)
	}
	return reg, nil
}

func (r *fileRepository) Save(reg *Registry) error {
	now := time.Now()
	reg.LastUpdated = &now

	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding dataset registry: %w", err)
	}

	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing dataset registry: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("replacing dataset registry: %w", err)
	}
	return nil
}
