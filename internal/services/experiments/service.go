package experiments

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/verdantlabs/cropsight/internal/models"
)

// RetrainSettings controls the auto-retrain evaluation thresholds.
type RetrainSettings struct {
	AccuracyThreshold float64
	RetrainConfigName string
	RetrainPriority   int
}

// ScheduleDefaults seeds new experiments when no option overrides
// them. Zero values fall back to the standard 50 epochs / patience 5.
type ScheduleDefaults struct {
	MaxEpochs int
	Patience  int
}

type service struct {
	repo     Repository
	perf     PerformanceSource
	retrain  RetrainSettings
	defaults ScheduleDefaults
}

// NewService creates an experiment service. perf may be nil, in which
// case AutoRetrainCheck always recommends no action.
func NewService(repo Repository, perf PerformanceSource, retrain RetrainSettings, defaults ScheduleDefaults) Service {
	if defaults.MaxEpochs <= 0 {
		defaults.MaxEpochs = 50
	}
	if defaults.Patience <= 0 {
		defaults.Patience = 5
	}
	return &service{
		repo:     repo,
		perf:     perf,
		retrain:  retrain,
		defaults: defaults,
	}
}

func (s *service) Schedule(ctx context.Context, configName string, opts ...ScheduleOption) (*models.Experiment, error) {
	if configName == "" {
		return nil, fmt.Errorf("config name is required")
	}

	exp := &models.Experiment{
		ConfigName:  configName,
		Status:      models.ExperimentStatusPending,
		Priority:    5,
		MaxEpochs:   s.defaults.MaxEpochs,
		Patience:    s.defaults.Patience,
		ScheduledAt: time.Now(),
	}
	for _, opt := range opts {
		opt(exp)
	}

	if err := s.repo.Create(ctx, exp); err != nil {
		return nil, fmt.Errorf("scheduling experiment: %w", err)
	}

	log.Printf("[INFO] Scheduled experiment %d (config=%s, priority=%d)", exp.ID, configName, exp.Priority)
	return exp, nil
}

// Start attempts the pending -> running transition. It returns false
// without error when the experiment exists but is not pending; callers
// use the boolean to decide whether they own the run.
func (s *service) Start(ctx context.Context, id uint) (bool, error) {
	err := s.repo.MarkRunning(ctx, id)
	if err == nil {
		log.Printf("[INFO] Experiment %d started", id)
		return true, nil
	}
	if errors.Is(err, ErrInvalidTransition) {
		return false, nil
	}
	return false, err
}

func (s *service) Complete(ctx context.Context, id uint, metrics map[string]float64, modelPath string) error {
	if err := s.repo.MarkCompleted(ctx, id, models.MetricsMap(metrics), modelPath); err != nil {
		return err
	}
	log.Printf("[INFO] Experiment %d completed (model=%s)", id, modelPath)
	return nil
}

func (s *service) Fail(ctx context.Context, id uint, errorMsg string) error {
	if err := s.repo.MarkFailed(ctx, id, errorMsg); err != nil {
		return err
	}
	log.Printf("[WARN] Experiment %d failed: %s", id, models.TruncateError(errorMsg))
	return nil
}

// Cancel attempts to cancel a pending or running experiment. Like
// Start, it reports false without error when the experiment is already
// terminal.
func (s *service) Cancel(ctx context.Context, id uint) (bool, error) {
	err := s.repo.MarkCancelled(ctx, id)
	if err == nil {
		log.Printf("[INFO] Experiment %d cancelled", id)
		return true, nil
	}
	if errors.Is(err, ErrInvalidTransition) {
		return false, nil
	}
	return false, err
}

func (s *service) Get(ctx context.Context, id uint) (*models.Experiment, error) {
	return s.repo.Get(ctx, id)
}

func (s *service) List(ctx context.Context, status models.ExperimentStatus, limit int) ([]*models.Experiment, error) {
	return s.repo.List(ctx, status, limit)
}

func (s *service) NextPending(ctx context.Context) (*models.Experiment, error) {
	return s.repo.NextPending(ctx)
}

// Compare ranks the requested experiments by the named metric,
// descending. Only completed experiments that reported the metric make
// the ranking; pending, failed and metric-less runs are excluded.
func (s *service) Compare(ctx context.Context, ids []uint, metricName string) ([]ComparisonEntry, error) {
	exps, err := s.repo.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("loading experiments for comparison: %w", err)
	}

	byID := make(map[uint]*models.Experiment, len(exps))
	for _, exp := range exps {
		byID[exp.ID] = exp
	}

	entries := make([]ComparisonEntry, 0, len(ids))
	for _, id := range ids {
		exp, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("experiment %d: %w", id, ErrExperimentNotFound)
		}
		if exp.Status != models.ExperimentStatusCompleted {
			continue
		}
		v, ok := exp.MetricValue(metricName)
		if !ok {
			continue
		}
		value := v
		entries = append(entries, ComparisonEntry{
			ExperimentID: exp.ID,
			ConfigName:   exp.ConfigName,
			Status:       exp.Status,
			CompletedAt:  exp.CompletedAt,
			MetricValue:  &value,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return *entries[i].MetricValue > *entries[j].MetricValue
	})
	return entries, nil
}

func (s *service) Best(ctx context.Context, metricName string) (*models.Experiment, error) {
	return s.repo.BestCompleted(ctx, metricName)
}

// AutoRetrainCheck evaluates live performance against the retrain
// policy: retrain when accuracy has fallen below the threshold or when
// drift is detected. The new-sample count is reported for context but
// never triggers retraining on its own. When retraining is warranted a
// new experiment is scheduled immediately.
func (s *service) AutoRetrainCheck(ctx context.Context) (*RetrainRecommendation, error) {
	rec := &RetrainRecommendation{Reasons: []string{}}
	if s.perf == nil {
		return rec, nil
	}

	if acc, ok := s.perf.CurrentAccuracy(); ok {
		accuracy := acc
		rec.CurrentAccuracy = &accuracy
		if accuracy < s.retrain.AccuracyThreshold {
			rec.Reasons = append(rec.Reasons,
				fmt.Sprintf("accuracy %.4f below threshold %.4f", accuracy, s.retrain.AccuracyThreshold))
		}
	}

	if drifted, drop := s.perf.DriftDetected(); drifted {
		d := drop
		rec.DriftDrop = &d
		rec.Reasons = append(rec.Reasons, fmt.Sprintf("accuracy drift detected (drop %.4f)", drop))
	}

	rec.NewSamples = s.perf.SamplesSinceLastTraining()
	rec.ShouldRetrain = len(rec.Reasons) > 0

	if rec.ShouldRetrain {
		exp, err := s.Schedule(ctx, s.retrain.RetrainConfigName, WithPriority(s.retrain.RetrainPriority))
		if err != nil {
			return nil, fmt.Errorf("scheduling auto-retrain: %w", err)
		}
		id := exp.ID
		rec.ScheduledID = &id
		log.Printf("[INFO] Auto-retrain triggered: %v (experiment %d)", rec.Reasons, exp.ID)
	}

	return rec, nil
}
