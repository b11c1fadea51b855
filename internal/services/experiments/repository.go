package experiments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/verdantlabs/cropsight/internal/models"
)

// Repository errors
var (
	ErrExperimentNotFound = errors.New("experiment not found")
	ErrInvalidTransition  = errors.New("invalid experiment status transition")
	ErrNoPendingWork      = errors.New("no pending experiments")
)

// Repository defines the interface for experiment persistence.
type Repository interface {
	Create(ctx context.Context, exp *models.Experiment) error
	Get(ctx context.Context, id uint) (*models.Experiment, error)
	List(ctx context.Context, status models.ExperimentStatus, limit int) ([]*models.Experiment, error)
	ListByIDs(ctx context.Context, ids []uint) ([]*models.Experiment, error)
	NextPending(ctx context.Context) (*models.Experiment, error)
	BestCompleted(ctx context.Context, metricName string) (*models.Experiment, error)

	MarkRunning(ctx context.Context, id uint) error
	MarkCompleted(ctx context.Context, id uint, metrics models.MetricsMap, modelPath string) error
	MarkFailed(ctx context.Context, id uint, errorMsg string) error
	MarkCancelled(ctx context.Context, id uint) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new experiment repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, exp *models.Experiment) error {
	return r.db.WithContext(ctx).Create(exp).Error
}

func (r *repository) Get(ctx context.Context, id uint) (*models.Experiment, error) {
	var exp models.Experiment
	err := r.db.WithContext(ctx).First(&exp, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrExperimentNotFound
		}
		return nil, fmt.Errorf("getting experiment: %w", err)
	}
	return &exp, nil
}

func (r *repository) List(ctx context.Context, status models.ExperimentStatus, limit int) ([]*models.Experiment, error) {
	var exps []*models.Experiment
	query := r.db.WithContext(ctx).Order("created_at DESC")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&exps).Error
	return exps, err
}

func (r *repository) ListByIDs(ctx context.Context, ids []uint) ([]*models.Experiment, error) {
	var exps []*models.Experiment
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&exps).Error
	return exps, err
}

func (r *repository) NextPending(ctx context.Context) (*models.Experiment, error) {
	var exp models.Experiment
	err := r.db.WithContext(ctx).
		Where("status = ?", models.ExperimentStatusPending).
		Order("priority DESC, id ASC").
		First(&exp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoPendingWork
		}
		return nil, fmt.Errorf("finding next pending experiment: %w", err)
	}
	return &exp, nil
}

func (r *repository) BestCompleted(ctx context.Context, metricName string) (*models.Experiment, error) {
	var exps []*models.Experiment
	err := r.db.WithContext(ctx).
		Where("status = ?", models.ExperimentStatusCompleted).
		Find(&exps).Error
	if err != nil {
		return nil, fmt.Errorf("listing completed experiments: %w", err)
	}

	// Metrics live in a JSON column, so the max is taken in Go rather
	// than SQL. Experiments missing the metric are skipped entirely.
	var best *models.Experiment
	var bestValue float64
	for _, exp := range exps {
		v, ok := exp.MetricValue(metricName)
		if !ok {
			continue
		}
		if best == nil || v > bestValue {
			best = exp
			bestValue = v
		}
	}
	if best == nil {
		return nil, ErrExperimentNotFound
	}
	return best, nil
}

// MarkRunning transitions pending -> running. The status guard in the
// WHERE clause makes concurrent starts race-safe: only one caller sees
// RowsAffected == 1.
func (r *repository) MarkRunning(ctx context.Context, id uint) error {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&models.Experiment{}).
		Where("id = ? AND status = ?", id, models.ExperimentStatusPending).
		Updates(map[string]interface{}{
			"status":     models.ExperimentStatusRunning,
			"started_at": &now,
		})
	return transitionResult(result, ctx, r.db, id)
}

func (r *repository) MarkCompleted(ctx context.Context, id uint, metrics models.MetricsMap, modelPath string) error {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&models.Experiment{}).
		Where("id = ? AND status = ?", id, models.ExperimentStatusRunning).
		Updates(map[string]interface{}{
			"status":       models.ExperimentStatusCompleted,
			"completed_at": &now,
			"metrics":      metrics,
			"model_path":   modelPath,
		})
	return transitionResult(result, ctx, r.db, id)
}

func (r *repository) MarkFailed(ctx context.Context, id uint, errorMsg string) error {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&models.Experiment{}).
		Where("id = ? AND status = ?", id, models.ExperimentStatusRunning).
		Updates(map[string]interface{}{
			"status":       models.ExperimentStatusFailed,
			"completed_at": &now,
			"error":        models.TruncateError(errorMsg),
		})
	return transitionResult(result, ctx, r.db, id)
}

func (r *repository) MarkCancelled(ctx context.Context, id uint) error {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&models.Experiment{}).
		Where("id = ? AND status IN ?", id,
			[]models.ExperimentStatus{models.ExperimentStatusPending, models.ExperimentStatusRunning}).
		Updates(map[string]interface{}{
			"status":       models.ExperimentStatusCancelled,
			"completed_at": &now,
		})
	return transitionResult(result, ctx, r.db, id)
}

// transitionResult distinguishes "row missing" from "row in wrong state"
// after a guarded update that affected zero rows.
func transitionResult(result *gorm.DB, ctx context.Context, db *gorm.DB, id uint) error {
	if result.Error != nil {
		return fmt.Errorf("updating experiment status: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := db.WithContext(ctx).Model(&models.Experiment{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("checking experiment existence: %w", err)
	}
	if count == 0 {
		return ErrExperimentNotFound
	}
	return ErrInvalidTransition
}
