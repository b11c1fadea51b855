package training

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/verdantlabs/cropsight/pkg/errors"
)

// Config is one named training configuration, persisted as a JSON file
// consumed directly by the external training process.
type Config struct {
	Name            string                 `json:"name"`
	Architecture    string                 `json:"architecture"`
	Hyperparameters map[string]interface{} `json:"hyperparameters"`
	DatasetVersion  string                 `json:"dataset_version"`
	Augmentation    map[string]interface{} `json:"augmentation"`
	Optimizer       map[string]interface{} `json:"optimizer"`
	CreatedAt       time.Time              `json:"created_at"`
	Notes           string                 `json:"notes,omitempty"`
}

// ConfigStore persists training configurations under a configs
// directory, one JSON file per config name.
type ConfigStore struct {
	dir string
}

// NewConfigStore creates the configs directory if needed.
func NewConfigStore(basePath string) (*ConfigStore, error) {
	dir := filepath.Join(basePath, "configs")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating configs directory: %w", err)
	}
	return &ConfigStore{dir: dir}, nil
}

// Create writes a new training config. Empty augmentation or optimizer
// settings fall back to the standard defaults the trainer expects.
func (s *ConfigStore) Create(cfg Config) (*Config, error) {
	if cfg.Name == "" {
		return nil, errors.ValidationError("name", "config name must not be empty")
	}
	if strings.ContainsAny(cfg.Name, "/\\") {
		return nil, errors.ValidationError("name", "config name must not contain path separators")
	}
	if cfg.Architecture == "" {
		return nil, errors.ValidationError("architecture", "architecture must not be empty")
	}

	if _, err := os.Stat(s.path(cfg.Name)); err == nil {
		return nil, errors.AlreadyExists("training config", cfg.Name)
	}

	if cfg.Augmentation == nil {
		cfg.Augmentation = defaultAugmentation()
	}
	if cfg.Optimizer == nil {
		cfg.Optimizer = defaultOptimizer()
	}
	if cfg.Hyperparameters == nil {
		cfg.Hyperparameters = map[string]interface{}{}
	}
	cfg.CreatedAt = time.Now()

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding training config: %w", err)
	}
	if err := os.WriteFile(s.path(cfg.Name), data, 0644); err != nil {
		return nil, errors.StorageError("writing training config", err)
	}
	return &cfg, nil
}

// Get loads a config by name.
func (s *ConfigStore) Get(name string) (*Config, error) {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFound("training config", name)
		}
		return nil, errors.StorageError("reading training config", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decoding training config %s: %w", name, err)
	}
	return &cfg, nil
}

// List returns all config names, sorted.
func (s *ConfigStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errors.StorageError("listing training configs", err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".json"))
	}
	sort.Strings(names)
	return names, nil
}

// Path returns the on-disk path of a named config.
func (s *ConfigStore) Path(name string) string {
	return s.path(name)
}

func (s *ConfigStore) path(name string) string {
	return filepath.Join(s.dir, name+".json")
}

func defaultAugmentation() map[string]interface{} {
	return map[string]interface{}{
		"horizontal_flip":  true,
		"vertical_flip":    false,
		"rotation_range":   15,
		"zoom_range":       0.1,
		"brightness_range": []float64{0.8, 1.2},
		"fill_mode":        "nearest",
	}
}

func defaultOptimizer() map[string]interface{} {
	return map[string]interface{}{
		"name":          "adam",
		"learning_rate": 0.001,
		"beta_1":        0.9,
		"beta_2":        0.999,
		"epsilon":       1e-07,
	}
}
