package experiments

import (
	"context"
	"time"

	"github.com/verdantlabs/cropsight/internal/models"
)

// Service manages the training experiment ledger: scheduling, the
// status state machine, and cross-experiment comparison.
type Service interface {
	Schedule(ctx context.Context, configName string, opts ...ScheduleOption) (*models.Experiment, error)
	Start(ctx context.Context, id uint) (bool, error)
	Complete(ctx context.Context, id uint, metrics map[string]float64, modelPath string) error
	Fail(ctx context.Context, id uint, errorMsg string) error
	Cancel(ctx context.Context, id uint) (bool, error)

	Get(ctx context.Context, id uint) (*models.Experiment, error)
	List(ctx context.Context, status models.ExperimentStatus, limit int) ([]*models.Experiment, error)
	NextPending(ctx context.Context) (*models.Experiment, error)

	Compare(ctx context.Context, ids []uint, metricName string) ([]ComparisonEntry, error)
	Best(ctx context.Context, metricName string) (*models.Experiment, error)

	AutoRetrainCheck(ctx context.Context) (*RetrainRecommendation, error)
}

// PerformanceSource supplies live model metrics for the auto-retrain
// check. The performance tracker satisfies this.
type PerformanceSource interface {
	CurrentAccuracy() (float64, bool)
	DriftDetected() (bool, float64)
	SamplesSinceLastTraining() int
}

// ScheduleOption customizes a scheduled experiment.
type ScheduleOption func(*models.Experiment)

// WithPriority sets the scheduling priority (higher runs first).
func WithPriority(priority int) ScheduleOption {
	return func(e *models.Experiment) {
		e.Priority = priority
	}
}

// WithGPU marks the experiment as needing a GPU.
func WithGPU(required bool) ScheduleOption {
	return func(e *models.Experiment) {
		e.GPURequired = required
	}
}

// WithMaxEpochs overrides the epoch budget.
func WithMaxEpochs(epochs int) ScheduleOption {
	return func(e *models.Experiment) {
		e.MaxEpochs = epochs
	}
}

// WithPatience overrides the early stopping patience.
func WithPatience(patience int) ScheduleOption {
	return func(e *models.Experiment) {
		e.Patience = patience
	}
}

// WithMetadata attaches free-form metadata.
func WithMetadata(meta map[string]interface{}) ScheduleOption {
	return func(e *models.Experiment) {
		e.Metadata = meta
	}
}

// ComparisonEntry is one row of a cross-experiment metric comparison.
type ComparisonEntry struct {
	ExperimentID uint                    `json:"experiment_id"`
	ConfigName   string                  `json:"config_name"`
	Status       models.ExperimentStatus `json:"status"`
	MetricValue  *float64                `json:"metric_value"`
	CompletedAt  *time.Time              `json:"completed_at"`
}

// RetrainRecommendation is the outcome of an auto-retrain evaluation.
type RetrainRecommendation struct {
	ShouldRetrain   bool     `json:"should_retrain"`
	Reasons         []string `json:"reasons"`
	CurrentAccuracy *float64 `json:"current_accuracy"`
	DriftDrop       *float64 `json:"drift_drop"`
	NewSamples      int      `json:"new_samples"`
	ScheduledID     *uint    `json:"scheduled_experiment_id"`
}
