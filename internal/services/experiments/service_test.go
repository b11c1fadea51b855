package experiments

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdantlabs/cropsight/internal/database"
	"github.com/verdantlabs/cropsight/internal/models"
)

func setupTestRepo(t *testing.T) Repository {
	t.Helper()
	db, err := database.Initialize(":memory:", false)
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Experiment{}))
	return NewRepository(db.DB)
}

func newTestService(t *testing.T, perf PerformanceSource) Service {
	t.Helper()
	return NewService(setupTestRepo(t), perf, RetrainSettings{
		AccuracyThreshold: 0.90,
		RetrainConfigName: "auto_retrain",
		RetrainPriority:   8,
	}, ScheduleDefaults{})
}

// stubPerformanceSource feeds canned live-performance readings into the
// auto-retrain check.
type stubPerformanceSource struct {
	accuracy    float64
	hasAccuracy bool
	drifted     bool
	drop        float64
	newSamples  int
}

func (s *stubPerformanceSource) CurrentAccuracy() (float64, bool) { return s.accuracy, s.hasAccuracy }
func (s *stubPerformanceSource) DriftDetected() (bool, float64)   { return s.drifted, s.drop }
func (s *stubPerformanceSource) SamplesSinceLastTraining() int    { return s.newSamples }

func TestServiceSchedule(t *testing.T) {
	ctx := context.Background()

	t.Run("applies defaults", func(t *testing.T) {
		svc := newTestService(t, nil)

		exp, err := svc.Schedule(ctx, "resnet50_baseline")
		require.NoError(t, err)
		assert.NotZero(t, exp.ID)
		assert.Equal(t, models.ExperimentStatusPending, exp.Status)
		assert.Equal(t, 5, exp.Priority)
		assert.Equal(t, 50, exp.MaxEpochs)
		assert.Equal(t, 5, exp.Patience)
		assert.False(t, exp.GPURequired)
		assert.False(t, exp.ScheduledAt.IsZero())
	})

	t.Run("configured defaults", func(t *testing.T) {
		svc := NewService(setupTestRepo(t), nil, RetrainSettings{}, ScheduleDefaults{
			MaxEpochs: 30,
			Patience:  3,
		})

		exp, err := svc.Schedule(ctx, "resnet50_baseline")
		require.NoError(t, err)
		assert.Equal(t, 30, exp.MaxEpochs)
		assert.Equal(t, 3, exp.Patience)
	})

	t.Run("options override defaults", func(t *testing.T) {
		svc := newTestService(t, nil)

		exp, err := svc.Schedule(ctx, "efficientnet_sweep",
			WithPriority(9),
			WithGPU(true),
			WithMaxEpochs(100),
			WithPatience(10),
			WithMetadata(map[string]interface{}{"sweep_id": "lr_search"}),
		)
		require.NoError(t, err)
		assert.Equal(t, 9, exp.Priority)
		assert.True(t, exp.GPURequired)
		assert.Equal(t, 100, exp.MaxEpochs)
		assert.Equal(t, 10, exp.Patience)
		assert.Equal(t, "lr_search", exp.Metadata["sweep_id"])
	})

	t.Run("requires config name", func(t *testing.T) {
		svc := newTestService(t, nil)

		_, err := svc.Schedule(ctx, "")
		assert.Error(t, err)
	})
}

func TestServiceLifecycle(t *testing.T) {
	ctx := context.Background()

	t.Run("pending to running to completed", func(t *testing.T) {
		svc := newTestService(t, nil)
		exp, err := svc.Schedule(ctx, "resnet50_baseline")
		require.NoError(t, err)

		started, err := svc.Start(ctx, exp.ID)
		require.NoError(t, err)
		assert.True(t, started)

		require.NoError(t, svc.Complete(ctx, exp.ID,
			map[string]float64{"val_accuracy": 0.94, "val_loss": 0.21}, "training/experiments/exp_0001/best_model.h5"))

		got, err := svc.Get(ctx, exp.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ExperimentStatusCompleted, got.Status)
		assert.NotNil(t, got.StartedAt)
		assert.NotNil(t, got.CompletedAt)
		assert.Equal(t, 0.94, got.Metrics["val_accuracy"])
		assert.Equal(t, "training/experiments/exp_0001/best_model.h5", got.ModelPath)
	})

	t.Run("second start loses the race", func(t *testing.T) {
		svc := newTestService(t, nil)
		exp, err := svc.Schedule(ctx, "resnet50_baseline")
		require.NoError(t, err)

		started, err := svc.Start(ctx, exp.ID)
		require.NoError(t, err)
		assert.True(t, started)

		started, err = svc.Start(ctx, exp.ID)
		require.NoError(t, err)
		assert.False(t, started)
	})

	t.Run("start of unknown experiment", func(t *testing.T) {
		svc := newTestService(t, nil)

		_, err := svc.Start(ctx, 9999)
		assert.ErrorIs(t, err, ErrExperimentNotFound)
	})

	t.Run("fail truncates long errors", func(t *testing.T) {
		svc := newTestService(t, nil)
		exp, err := svc.Schedule(ctx, "resnet50_baseline")
		require.NoError(t, err)
		_, err = svc.Start(ctx, exp.ID)
		require.NoError(t, err)

		longErr := strings.Repeat("CUDA out of memory. ", 100)
		require.NoError(t, svc.Fail(ctx, exp.ID, longErr))

		got, err := svc.Get(ctx, exp.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ExperimentStatusFailed, got.Status)
		assert.Len(t, got.Error, models.MaxErrorLength)
	})

	t.Run("cancel pending", func(t *testing.T) {
		svc := newTestService(t, nil)
		exp, err := svc.Schedule(ctx, "resnet50_baseline")
		require.NoError(t, err)

		cancelled, err := svc.Cancel(ctx, exp.ID)
		require.NoError(t, err)
		assert.True(t, cancelled)

		got, err := svc.Get(ctx, exp.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ExperimentStatusCancelled, got.Status)
	})

	t.Run("cancel completed is a no-op", func(t *testing.T) {
		svc := newTestService(t, nil)
		exp, err := svc.Schedule(ctx, "resnet50_baseline")
		require.NoError(t, err)
		_, err = svc.Start(ctx, exp.ID)
		require.NoError(t, err)
		require.NoError(t, svc.Complete(ctx, exp.ID, map[string]float64{"val_accuracy": 0.9}, ""))

		cancelled, err := svc.Cancel(ctx, exp.ID)
		require.NoError(t, err)
		assert.False(t, cancelled)
	})

	t.Run("complete requires running state", func(t *testing.T) {
		svc := newTestService(t, nil)
		exp, err := svc.Schedule(ctx, "resnet50_baseline")
		require.NoError(t, err)

		err = svc.Complete(ctx, exp.ID, nil, "")
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})
}

func TestServiceNextPending(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)

	t.Run("empty queue", func(t *testing.T) {
		_, err := svc.NextPending(ctx)
		assert.ErrorIs(t, err, ErrNoPendingWork)
	})

	low, err := svc.Schedule(ctx, "low_priority", WithPriority(3))
	require.NoError(t, err)
	high, err := svc.Schedule(ctx, "high_priority", WithPriority(9))
	require.NoError(t, err)
	highLater, err := svc.Schedule(ctx, "high_priority_later", WithPriority(9))
	require.NoError(t, err)
	_ = highLater

	t.Run("highest priority first", func(t *testing.T) {
		next, err := svc.NextPending(ctx)
		require.NoError(t, err)
		assert.Equal(t, high.ID, next.ID)
	})

	t.Run("ties break by schedule order", func(t *testing.T) {
		_, err := svc.Start(ctx, high.ID)
		require.NoError(t, err)

		next, err := svc.NextPending(ctx)
		require.NoError(t, err)
		assert.Equal(t, highLater.ID, next.ID)
	})

	t.Run("falls back to lower priority", func(t *testing.T) {
		_, err := svc.Start(ctx, highLater.ID)
		require.NoError(t, err)

		next, err := svc.NextPending(ctx)
		require.NoError(t, err)
		assert.Equal(t, low.ID, next.ID)
	})
}

func completeExperiment(t *testing.T, svc Service, configName string, metrics map[string]float64) *models.Experiment {
	t.Helper()
	ctx := context.Background()
	exp, err := svc.Schedule(ctx, configName)
	require.NoError(t, err)
	_, err = svc.Start(ctx, exp.ID)
	require.NoError(t, err)
	require.NoError(t, svc.Complete(ctx, exp.ID, metrics, ""))
	return exp
}

func TestServiceCompare(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)

	low := completeExperiment(t, svc, "config_a", map[string]float64{"val_accuracy": 0.70})
	high := completeExperiment(t, svc, "config_b", map[string]float64{"val_accuracy": 0.95})
	lossOnly := completeExperiment(t, svc, "config_c", map[string]float64{"val_loss": 0.4})
	pending, err := svc.Schedule(ctx, "config_d")
	require.NoError(t, err)

	t.Run("ranks descending by metric", func(t *testing.T) {
		entries, err := svc.Compare(ctx, []uint{low.ID, high.ID}, "val_accuracy")
		require.NoError(t, err)
		require.Len(t, entries, 2)

		assert.Equal(t, high.ID, entries[0].ExperimentID)
		assert.Equal(t, 0.95, *entries[0].MetricValue)
		assert.Equal(t, low.ID, entries[1].ExperimentID)
		assert.Equal(t, 0.70, *entries[1].MetricValue)
	})

	t.Run("excludes experiments without the metric", func(t *testing.T) {
		entries, err := svc.Compare(ctx, []uint{low.ID, lossOnly.ID, pending.ID}, "val_accuracy")
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, low.ID, entries[0].ExperimentID)
	})

	t.Run("missing experiment fails the whole comparison", func(t *testing.T) {
		_, err := svc.Compare(ctx, []uint{low.ID, 9999}, "val_accuracy")
		assert.ErrorIs(t, err, ErrExperimentNotFound)
	})
}

func TestServiceBest(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)

	t.Run("no completed experiments", func(t *testing.T) {
		_, err := svc.Best(ctx, "val_accuracy")
		assert.ErrorIs(t, err, ErrExperimentNotFound)
	})

	completeExperiment(t, svc, "config_a", map[string]float64{"val_accuracy": 0.89})
	winner := completeExperiment(t, svc, "config_b", map[string]float64{"val_accuracy": 0.95})
	completeExperiment(t, svc, "config_c", map[string]float64{"val_loss": 0.2})

	t.Run("highest metric wins, metricless skipped", func(t *testing.T) {
		best, err := svc.Best(ctx, "val_accuracy")
		require.NoError(t, err)
		assert.Equal(t, winner.ID, best.ID)
	})
}

func TestServiceAutoRetrainCheck(t *testing.T) {
	ctx := context.Background()

	t.Run("no performance source", func(t *testing.T) {
		svc := newTestService(t, nil)

		rec, err := svc.AutoRetrainCheck(ctx)
		require.NoError(t, err)
		assert.False(t, rec.ShouldRetrain)
		assert.Empty(t, rec.Reasons)
	})

	t.Run("healthy accuracy", func(t *testing.T) {
		svc := newTestService(t, &stubPerformanceSource{accuracy: 0.95, hasAccuracy: true, newSamples: 40})

		rec, err := svc.AutoRetrainCheck(ctx)
		require.NoError(t, err)
		assert.False(t, rec.ShouldRetrain)
		require.NotNil(t, rec.CurrentAccuracy)
		assert.Equal(t, 0.95, *rec.CurrentAccuracy)
		assert.Equal(t, 40, rec.NewSamples)
		assert.Nil(t, rec.ScheduledID)
	})

	t.Run("accuracy below threshold schedules retrain", func(t *testing.T) {
		svc := newTestService(t, &stubPerformanceSource{accuracy: 0.82, hasAccuracy: true})

		rec, err := svc.AutoRetrainCheck(ctx)
		require.NoError(t, err)
		assert.True(t, rec.ShouldRetrain)
		require.Len(t, rec.Reasons, 1)
		assert.Contains(t, rec.Reasons[0], "below threshold")
		require.NotNil(t, rec.ScheduledID)

		exp, err := svc.Get(ctx, *rec.ScheduledID)
		require.NoError(t, err)
		assert.Equal(t, "auto_retrain", exp.ConfigName)
		assert.Equal(t, 8, exp.Priority)
		assert.Equal(t, models.ExperimentStatusPending, exp.Status)
	})

	t.Run("drift alone schedules retrain", func(t *testing.T) {
		svc := newTestService(t, &stubPerformanceSource{accuracy: 0.93, hasAccuracy: true, drifted: true, drop: 0.07})

		rec, err := svc.AutoRetrainCheck(ctx)
		require.NoError(t, err)
		assert.True(t, rec.ShouldRetrain)
		require.Len(t, rec.Reasons, 1)
		assert.Contains(t, rec.Reasons[0], "drift")
		require.NotNil(t, rec.DriftDrop)
		assert.Equal(t, 0.07, *rec.DriftDrop)
	})

	t.Run("both reasons accumulate", func(t *testing.T) {
		svc := newTestService(t, &stubPerformanceSource{accuracy: 0.80, hasAccuracy: true, drifted: true, drop: 0.1})

		rec, err := svc.AutoRetrainCheck(ctx)
		require.NoError(t, err)
		assert.True(t, rec.ShouldRetrain)
		assert.Len(t, rec.Reasons, 2)
	})
}
