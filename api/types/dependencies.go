package types

import (
	"github.com/verdantlabs/cropsight/internal/database"
	"github.com/verdantlabs/cropsight/internal/services/dataset"
	"github.com/verdantlabs/cropsight/internal/services/experiments"
	"github.com/verdantlabs/cropsight/internal/services/performance"
	"github.com/verdantlabs/cropsight/internal/services/registry"
	"github.com/verdantlabs/cropsight/internal/services/training"
)

// Dependencies holds all the dependencies needed by handlers
type Dependencies struct {
	DB                *database.DB
	DatasetStore      *dataset.Store
	StagingArea       *dataset.Area
	ExperimentService experiments.Service
	TrainingConfigs   *training.ConfigStore
	TrainingRunner    *training.Runner
	Tracker           *performance.Tracker
	ModelRegistry     registry.Service
}
