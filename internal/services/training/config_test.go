package training

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdantlabs/cropsight/pkg/errors"
)

func newTestConfigStore(t *testing.T) *ConfigStore {
	t.Helper()
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestConfigStoreCreate(t *testing.T) {
	t.Run("fills defaults", func(t *testing.T) {
		store := newTestConfigStore(t)

		created, err := store.Create(Config{
			Name:         "resnet50_baseline",
			Architecture: "resnet50",
		})
		require.NoError(t, err)
		assert.False(t, created.CreatedAt.IsZero())
		assert.Equal(t, true, created.Augmentation["horizontal_flip"])
		assert.Equal(t, "nearest", created.Augmentation["fill_mode"])
		assert.Equal(t, "adam", created.Optimizer["name"])
		assert.Equal(t, 0.001, created.Optimizer["learning_rate"])
		assert.NotNil(t, created.Hyperparameters)

		// The file lands where the runner will look for it.
		_, err = os.Stat(store.Path("resnet50_baseline"))
		assert.NoError(t, err)
	})

	t.Run("keeps explicit settings", func(t *testing.T) {
		store := newTestConfigStore(t)

		created, err := store.Create(Config{
			Name:         "efficientnet_tuned",
			Architecture: "efficientnet_b0",
			Hyperparameters: map[string]interface{}{
				"batch_size": 64,
			},
			Optimizer: map[string]interface{}{
				"name":          "sgd",
				"learning_rate": 0.01,
			},
		})
		require.NoError(t, err)
		assert.Equal(t, "sgd", created.Optimizer["name"])
		assert.Equal(t, 64, created.Hyperparameters["batch_size"])
		// Augmentation was omitted and still gets defaults.
		assert.Equal(t, true, created.Augmentation["horizontal_flip"])
	})

	t.Run("rejects empty name", func(t *testing.T) {
		store := newTestConfigStore(t)

		_, err := store.Create(Config{Architecture: "resnet50"})
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeValidation, errors.GetCode(err))
	})

	t.Run("rejects path separators in name", func(t *testing.T) {
		store := newTestConfigStore(t)

		_, err := store.Create(Config{Name: "../escape", Architecture: "resnet50"})
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeValidation, errors.GetCode(err))
	})

	t.Run("rejects empty architecture", func(t *testing.T) {
		store := newTestConfigStore(t)

		_, err := store.Create(Config{Name: "no_arch"})
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeValidation, errors.GetCode(err))
	})

	t.Run("rejects duplicate name", func(t *testing.T) {
		store := newTestConfigStore(t)

		_, err := store.Create(Config{Name: "dup", Architecture: "resnet50"})
		require.NoError(t, err)
		_, err = store.Create(Config{Name: "dup", Architecture: "resnet50"})
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeAlreadyExists, errors.GetCode(err))
	})
}

func TestConfigStoreGet(t *testing.T) {
	store := newTestConfigStore(t)

	_, err := store.Create(Config{
		Name:           "resnet50_baseline",
		Architecture:   "resnet50",
		DatasetVersion: "v3_20260815_101500",
		Notes:          "baseline after the august dataset refresh",
	})
	require.NoError(t, err)

	t.Run("round trips", func(t *testing.T) {
		cfg, err := store.Get("resnet50_baseline")
		require.NoError(t, err)
		assert.Equal(t, "resnet50", cfg.Architecture)
		assert.Equal(t, "v3_20260815_101500", cfg.DatasetVersion)
		assert.Equal(t, "baseline after the august dataset refresh", cfg.Notes)
	})

	t.Run("missing config", func(t *testing.T) {
		_, err := store.Get("ghost")
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeNotFound, errors.GetCode(err))
	})
}

func TestConfigStoreList(t *testing.T) {
	store := newTestConfigStore(t)

	t.Run("empty store", func(t *testing.T) {
		names, err := store.List()
		require.NoError(t, err)
		assert.Empty(t, names)
	})

	for _, name := range []string{"zeta", "alpha", "mid"} {
		_, err := store.Create(Config{Name: name, Architecture: "resnet50"})
		require.NoError(t, err)
	}
	// Stray non-config files are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(store.Path("x")), "README.txt"), []byte("notes"), 0644))

	names, err := store.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, names)
}
