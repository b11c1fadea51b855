package config

import "time"

// Config represents the complete application configuration
type Config struct {
	Environment string            `mapstructure:"environment"`
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Dataset     DatasetConfig     `mapstructure:"dataset"`
	Training    TrainingConfig    `mapstructure:"training"`
	Performance PerformanceConfig `mapstructure:"performance"`
	Security    SecurityConfig    `mapstructure:"security"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxHeaderBytes  int           `mapstructure:"max_header_bytes"`
	MaxUploadBytes  int64         `mapstructure:"max_upload_bytes"`
}

// DatabaseConfig contains SQLite settings for the experiment ledger
// and model registry.
type DatabaseConfig struct {
	Path    string `mapstructure:"path"`
	Verbose bool   `mapstructure:"verbose"`
}

// DatasetConfig contains dataset storage paths and ingestion thresholds.
type DatasetConfig struct {
	BasePath string `mapstructure:"base_path"`

	// Quality gate thresholds. Defaults preserve the values the ingestion
	// pipeline was originally tuned with.
	MinDimension  int     `mapstructure:"min_dimension"`
	MaxFileSizeMB float64 `mapstructure:"max_file_size_mb"`
	BlurThreshold float64 `mapstructure:"blur_threshold"`
	MinBrightness float64 `mapstructure:"min_brightness"`
	MaxBrightness float64 `mapstructure:"max_brightness"`

	// Near-duplicate detection threshold in Hamming bits.
	DedupThreshold int `mapstructure:"dedup_threshold"`
}

// TrainingConfig contains training orchestration settings.
type TrainingConfig struct {
	BasePath        string        `mapstructure:"base_path"`
	PythonBinary    string        `mapstructure:"python_binary"`
	TrainScript     string        `mapstructure:"train_script"`
	DefaultEpochs   int           `mapstructure:"default_epochs"`
	DefaultPatience int           `mapstructure:"default_patience"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
}

// PerformanceConfig contains prediction tracking settings.
type PerformanceConfig struct {
	BasePath            string  `mapstructure:"base_path"`
	DriftWindowSize     int     `mapstructure:"drift_window_size"`
	DriftDropThreshold  float64 `mapstructure:"drift_drop_threshold"`
	AccuracyThreshold   float64 `mapstructure:"accuracy_threshold"`
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold"`
}

// SecurityConfig contains HTTP security settings
type SecurityConfig struct {
	EnableCORS  bool     `mapstructure:"enable_cors"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}
