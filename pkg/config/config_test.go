package config

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func TestDefaults(t *testing.T) {
	resetViper(t)
	setDefaults()

	assert.Equal(t, "development", GetString("environment"))
	assert.Equal(t, 8080, GetInt("server.port"))
	assert.Equal(t, 30*time.Second, GetDuration("server.read_timeout"))
	assert.Equal(t, "./data/cropsight.db", GetString("database.path"))
	assert.Equal(t, 224, GetInt("dataset.min_dimension"))
	assert.Equal(t, 100.0, viper.GetFloat64("dataset.blur_threshold"))
	assert.Equal(t, 5, GetInt("dataset.dedup_threshold"))
	assert.Equal(t, 100, GetInt("performance.drift_window_size"))
	assert.Equal(t, 0.05, viper.GetFloat64("performance.drift_drop_threshold"))
	assert.Equal(t, 0.90, viper.GetFloat64("performance.accuracy_threshold"))
	assert.Equal(t, "python3", GetString("training.python_binary"))
	assert.True(t, GetBool("security.enable_cors"))
}

func TestValidate(t *testing.T) {
	t.Run("defaults pass", func(t *testing.T) {
		resetViper(t)
		setDefaults()
		assert.NoError(t, validate())
	})

	t.Run("rejects bad port", func(t *testing.T) {
		resetViper(t)
		setDefaults()
		viper.Set("server.port", 0)
		assert.Error(t, validate())
	})

	t.Run("rejects empty dataset base path", func(t *testing.T) {
		resetViper(t)
		setDefaults()
		viper.Set("dataset.base_path", "")
		assert.Error(t, validate())
	})

	t.Run("rejects inverted brightness window", func(t *testing.T) {
		resetViper(t)
		setDefaults()
		viper.Set("dataset.min_brightness", 250.0)
		assert.Error(t, validate())
	})

	t.Run("auto-corrects negative dedup threshold", func(t *testing.T) {
		resetViper(t)
		setDefaults()
		viper.Set("dataset.dedup_threshold", -3)
		require.NoError(t, validate())
		assert.Equal(t, 5, GetInt("dataset.dedup_threshold"))
	})
}

func TestGetConfig(t *testing.T) {
	resetViper(t)
	setDefaults()

	cfg, err := GetConfig()
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 224, cfg.Dataset.MinDimension)
	assert.Equal(t, 0.05, cfg.Performance.DriftDropThreshold)
	assert.Equal(t, "./data/training", cfg.Training.BasePath)
}

func TestEnvironmentOverride(t *testing.T) {
	resetViper(t)
	setDefaults()
	viper.SetEnvPrefix("CROPSIGHT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	require.NoError(t, os.Setenv("CROPSIGHT_SERVER_PORT", "9090"))
	t.Cleanup(func() { os.Unsetenv("CROPSIGHT_SERVER_PORT") })

	assert.Equal(t, 9090, GetInt("server.port"))
}

func TestConfigValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Server:  ServerConfig{Port: 8080},
			Dataset: DatasetConfig{BasePath: "./data/dataset", MinBrightness: 50, MaxBrightness: 200, DedupThreshold: 5},
		}
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, base().Validate())
	})

	t.Run("port out of range", func(t *testing.T) {
		cfg := base()
		cfg.Server.Port = 70000
		assert.Error(t, cfg.Validate())
	})

	t.Run("negative dedup threshold corrected", func(t *testing.T) {
		cfg := base()
		cfg.Dataset.DedupThreshold = -1
		require.NoError(t, cfg.Validate())
		assert.Equal(t, 5, cfg.Dataset.DedupThreshold)
	})
}
