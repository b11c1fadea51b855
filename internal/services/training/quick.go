package training

import (
	"context"
	"fmt"
	"time"

	"github.com/verdantlabs/cropsight/internal/models"
	"github.com/verdantlabs/cropsight/internal/services/experiments"
)

// QuickExperiment creates a throwaway config for the given architecture
// and schedules a GPU run of it in one step. The config name embeds a
// timestamp so repeated quick runs never collide.
func QuickExperiment(ctx context.Context, configs *ConfigStore, ledger experiments.Service, architecture, datasetVersion string, hyperparameters map[string]interface{}) (*models.Experiment, error) {
	cfg, err := configs.Create(Config{
		Name:            fmt.Sprintf("quick_%s_%s", architecture, time.Now().UTC().Format("20060102_150405")),
		Architecture:    architecture,
		DatasetVersion:  datasetVersion,
		Hyperparameters: hyperparameters,
		Notes:           "quick experiment",
	})
	if err != nil {
		return nil, err
	}

	return ledger.Schedule(ctx, cfg.Name, experiments.WithGPU(true))
}
