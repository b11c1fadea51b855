package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

var (
	once    sync.Once
	initErr error
)

// Init initializes the configuration system.
// This should be called once at application startup.
func Init() error {
	once.Do(func() {
		setDefaults()

		viper.SetEnvPrefix("CROPSIGHT")
		viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		viper.AutomaticEnv()

		configPath := filepath.Clean("./config/settings.yaml")
		viper.SetConfigFile(configPath)

		if err := viper.ReadInConfig(); err != nil {
			// Missing config file is fine, defaults and env vars apply.
			if !os.IsNotExist(err) {
				initErr = fmt.Errorf("error reading config file %s: %w", configPath, err)
				return
			}
		}

		if err := validate(); err != nil {
			initErr = fmt.Errorf("invalid configuration: %w", err)
		}
	})

	return initErr
}

// GetConfig returns the current configuration as a struct.
// Init() must be called before using this.
func GetConfig() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &config, nil
}

// GetString returns a string config value
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetDuration returns a time.Duration config value
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}

func validate() error {
	port := viper.GetInt("server.port")
	if port <= 0 || port > 65535 {
		return fmt.Errorf("invalid server port: %d", port)
	}

	if viper.GetString("dataset.base_path") == "" {
		return fmt.Errorf("dataset.base_path must not be empty")
	}

	minB := viper.GetFloat64("dataset.min_brightness")
	maxB := viper.GetFloat64("dataset.max_brightness")
	if minB >= maxB {
		return fmt.Errorf("dataset.min_brightness (%v) must be below dataset.max_brightness (%v)", minB, maxB)
	}

	// Auto-correct nonsense dedup thresholds rather than failing startup.
	if viper.GetInt("dataset.dedup_threshold") < 0 {
		viper.Set("dataset.dedup_threshold", 5)
	}

	return nil
}

// Validate validates a Config struct (used by tests).
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Dataset.BasePath == "" {
		return fmt.Errorf("dataset base path must not be empty")
	}
	if c.Dataset.MinBrightness >= c.Dataset.MaxBrightness {
		return fmt.Errorf("invalid brightness window [%v, %v]", c.Dataset.MinBrightness, c.Dataset.MaxBrightness)
	}
	if c.Dataset.DedupThreshold < 0 {
		c.Dataset.DedupThreshold = 5
	}
	return nil
}

func setDefaults() {
	viper.SetDefault("environment", "development")

	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)
	viper.SetDefault("server.shutdown_timeout", 10*time.Second)
	viper.SetDefault("server.max_header_bytes", 1048576)
	viper.SetDefault("server.max_upload_bytes", 64*1024*1024)

	// Database defaults
	viper.SetDefault("database.path", "./data/cropsight.db")
	viper.SetDefault("database.verbose", false)

	// Dataset defaults
	viper.SetDefault("dataset.base_path", "./data/dataset")
	viper.SetDefault("dataset.min_dimension", 224)
	viper.SetDefault("dataset.max_file_size_mb", 10.0)
	viper.SetDefault("dataset.blur_threshold", 100.0)
	viper.SetDefault("dataset.min_brightness", 50.0)
	viper.SetDefault("dataset.max_brightness", 200.0)
	viper.SetDefault("dataset.dedup_threshold", 5)

	// Training defaults
	viper.SetDefault("training.base_path", "./data/training")
	viper.SetDefault("training.python_binary", "python3")
	viper.SetDefault("training.train_script", "./ml/train.py")
	viper.SetDefault("training.default_epochs", 50)
	viper.SetDefault("training.default_patience", 5)
	viper.SetDefault("training.poll_interval", 5*time.Second)

	// Performance tracking defaults
	viper.SetDefault("performance.base_path", "./data/performance")
	viper.SetDefault("performance.drift_window_size", 100)
	viper.SetDefault("performance.drift_drop_threshold", 0.05)
	viper.SetDefault("performance.accuracy_threshold", 0.90)
	viper.SetDefault("performance.confidence_threshold", 0.70)

	// Security defaults
	viper.SetDefault("security.enable_cors", true)
	viper.SetDefault("security.cors_origins", []string{"*"})

	// Logging defaults
	viper.SetDefault("logging.level", "info")
}
