package performance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTracker(t *testing.T, driftWindow int) (*Tracker, Store) {
	t.Helper()
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	tracker, err := NewTracker(store, driftWindow)
	require.NoError(t, err)
	return tracker, store
}

func logLabeled(t *testing.T, tracker *Tracker, modelID, predicted, groundTruth string, confidence float64) {
	t.Helper()
	_, err := tracker.LogPrediction(modelID, "img_001", predicted, confidence, nil, 42.0, groundTruth, nil)
	require.NoError(t, err)
}

func logUnlabeled(t *testing.T, tracker *Tracker, modelID, predicted string, confidence float64) {
	t.Helper()
	_, err := tracker.LogPrediction(modelID, "img_001", predicted, confidence, nil, 42.0, "", nil)
	require.NoError(t, err)
}

func TestTrackerLogPrediction(t *testing.T) {
	t.Run("labeled record carries correctness", func(t *testing.T) {
		tracker, _ := newTestTracker(t, 0)

		rec, err := tracker.LogPrediction("resnet_v1", "img_42", "TomatoBlight", 0.91,
			[]ClassScore{{Class: "TomatoBlight", Score: 0.91}, {Class: "Healthy", Score: 0.09}},
			35.5, "TomatoBlight", map[string]string{"camera": "field_unit_3"})
		require.NoError(t, err)
		require.NotNil(t, rec.IsCorrect)
		assert.True(t, *rec.IsCorrect)
		assert.False(t, rec.Timestamp.IsZero())
	})

	t.Run("unlabeled record has no correctness", func(t *testing.T) {
		tracker, _ := newTestTracker(t, 0)

		rec, err := tracker.LogPrediction("resnet_v1", "img_42", "TomatoBlight", 0.91, nil, 35.5, "", nil)
		require.NoError(t, err)
		assert.Nil(t, rec.IsCorrect)
	})
}

func TestTrackerOverallMetrics(t *testing.T) {
	tracker, _ := newTestTracker(t, 0)

	// Two labeled (one correct), three unlabeled. Accuracy counts
	// labeled predictions only.
	logLabeled(t, tracker, "resnet_v1", "TomatoBlight", "TomatoBlight", 0.9)
	logLabeled(t, tracker, "resnet_v1", "TomatoBlight", "AppleScab", 0.8)
	logUnlabeled(t, tracker, "resnet_v1", "TomatoBlight", 0.7)
	logUnlabeled(t, tracker, "resnet_v1", "Healthy", 0.6)
	logUnlabeled(t, tracker, "resnet_v1", "Healthy", 0.5)

	overall := tracker.OverallMetrics()
	assert.Equal(t, 5, overall.TotalPredictions)
	assert.Equal(t, 2, overall.LabeledPredictions)
	assert.Equal(t, 1, overall.CorrectPredictions)
	assert.Equal(t, 0.5, overall.Accuracy)
	assert.Equal(t, 0.7, overall.AvgConfidence)
}

func TestTrackerClassMetrics(t *testing.T) {
	tracker, _ := newTestTracker(t, 0)

	logLabeled(t, tracker, "resnet_v1", "TomatoBlight", "TomatoBlight", 0.9)
	// Misprediction: a false positive for the predicted class and a
	// false negative for the true one.
	logLabeled(t, tracker, "resnet_v1", "TomatoBlight", "AppleScab", 0.6)

	t.Run("single class", func(t *testing.T) {
		out := tracker.ClassMetrics("TomatoBlight")
		require.Contains(t, out, "TomatoBlight")
		cls := out["TomatoBlight"]
		assert.Equal(t, 2, cls.TotalPredictions)
		assert.Equal(t, 2, cls.LabeledPredictions)
		assert.Equal(t, 1, cls.CorrectPredictions)
		assert.Equal(t, 1, cls.FalsePositives)
		assert.Equal(t, 0, cls.FalseNegatives)
		assert.Equal(t, 0.5, cls.Accuracy)
	})

	t.Run("false negative lands on the true class", func(t *testing.T) {
		out := tracker.ClassMetrics("AppleScab")
		require.Contains(t, out, "AppleScab")
		cls := out["AppleScab"]
		assert.Equal(t, 0, cls.TotalPredictions)
		assert.Equal(t, 1, cls.FalseNegatives)
	})

	t.Run("all classes", func(t *testing.T) {
		out := tracker.ClassMetrics("")
		assert.Len(t, out, 2)
	})

	t.Run("unknown class", func(t *testing.T) {
		out := tracker.ClassMetrics("Nonexistent")
		assert.Empty(t, out)
	})
}

func TestTrackerModelMetrics(t *testing.T) {
	tracker, _ := newTestTracker(t, 0)

	times := []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}
	for _, ms := range times {
		_, err := tracker.LogPrediction("resnet_v1", "img", "Healthy", 0.9, nil, ms, "Healthy", nil)
		require.NoError(t, err)
	}
	_, err := tracker.LogPrediction("mobilenet_v2", "img", "Healthy", 0.8, nil, 12.0, "", nil)
	require.NoError(t, err)

	t.Run("percentiles over the latency window", func(t *testing.T) {
		out := tracker.ModelMetrics("resnet_v1")
		require.Contains(t, out, "resnet_v1")
		mdl := out["resnet_v1"]
		assert.Equal(t, 10, mdl.TotalPredictions)
		assert.Equal(t, 55.0, mdl.AvgInferenceTimeMS)
		assert.Equal(t, 55.0, mdl.P50InferenceTimeMS)
		assert.Equal(t, 95.5, mdl.P95InferenceTimeMS)
		assert.Equal(t, 99.1, mdl.P99InferenceTimeMS)
	})

	t.Run("all models", func(t *testing.T) {
		out := tracker.ModelMetrics("")
		assert.Len(t, out, 2)
	})

	t.Run("unknown model", func(t *testing.T) {
		out := tracker.ModelMetrics("ghost")
		assert.Empty(t, out)
	})
}

func TestTrackerDailyTrends(t *testing.T) {
	tracker, _ := newTestTracker(t, 0)
	logLabeled(t, tracker, "resnet_v1", "Healthy", "Healthy", 0.9)

	trends := tracker.DailyTrends(7)
	today := time.Now().UTC().Format("2006-01-02")
	require.Contains(t, trends, today)
	assert.Equal(t, 1, trends[today].TotalPredictions)
	assert.Equal(t, 1.0, trends[today].Accuracy)
}

func TestTrackerConfusionMatrix(t *testing.T) {
	tracker, _ := newTestTracker(t, 0)

	logLabeled(t, tracker, "resnet_v1", "TomatoBlight", "TomatoBlight", 0.9)
	logLabeled(t, tracker, "resnet_v1", "TomatoBlight", "TomatoBlight", 0.9)
	logLabeled(t, tracker, "resnet_v1", "Healthy", "TomatoBlight", 0.6)
	logLabeled(t, tracker, "resnet_v1", "TomatoBlight", "AppleScab", 0.7)
	logUnlabeled(t, tracker, "resnet_v1", "TomatoBlight", 0.8)

	matrix, err := tracker.ConfusionMatrix([]string{"TomatoBlight", "Healthy"})
	require.NoError(t, err)

	assert.Equal(t, 2, matrix["TomatoBlight"]["TomatoBlight"])
	assert.Equal(t, 1, matrix["TomatoBlight"]["Healthy"])
	assert.Equal(t, 0, matrix["Healthy"]["TomatoBlight"])
	// The AppleScab ground truth is outside the requested class set and
	// must not appear anywhere.
	assert.NotContains(t, matrix, "AppleScab")
}

func TestTrackerLowConfidence(t *testing.T) {
	tracker, _ := newTestTracker(t, 0)

	confidences := []float64{0.95, 0.40, 0.85, 0.55, 0.30, 0.65}
	for i, c := range confidences {
		_, err := tracker.LogPrediction("resnet_v1", "img", "Healthy", c, nil, float64(i), "", nil)
		require.NoError(t, err)
	}

	t.Run("filters below threshold in log order", func(t *testing.T) {
		records, err := tracker.LowConfidence(0.7, 100)
		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.Equal(t, 0.40, records[0].Confidence)
		assert.Equal(t, 0.55, records[1].Confidence)
		assert.Equal(t, 0.30, records[2].Confidence)
	})

	t.Run("limit stops the scan early", func(t *testing.T) {
		records, err := tracker.LowConfidence(0.7, 2)
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, 0.40, records[0].Confidence)
		assert.Equal(t, 0.55, records[1].Confidence)
	})
}

func TestTrackerDetectDrift(t *testing.T) {
	logBatch := func(t *testing.T, tracker *Tracker, total, correct int) {
		t.Helper()
		for i := 0; i < total; i++ {
			gt := "Healthy"
			if i >= correct {
				gt = "TomatoBlight"
			}
			logLabeled(t, tracker, "resnet_v1", "Healthy", gt, 0.9)
		}
	}

	t.Run("insufficient labeled data", func(t *testing.T) {
		tracker, _ := newTestTracker(t, 20)
		logBatch(t, tracker, 39, 39)

		report, err := tracker.DetectDrift(0)
		require.NoError(t, err)
		assert.False(t, report.DriftDetected)
		assert.Equal(t, "insufficient labeled data", report.Message)
	})

	t.Run("unlabeled predictions do not count toward the window", func(t *testing.T) {
		tracker, _ := newTestTracker(t, 20)
		for i := 0; i < 50; i++ {
			logUnlabeled(t, tracker, "resnet_v1", "Healthy", 0.9)
		}

		report, err := tracker.DetectDrift(0)
		require.NoError(t, err)
		assert.False(t, report.DriftDetected)
		assert.Equal(t, "insufficient labeled data", report.Message)
	})

	t.Run("detects accuracy drop", func(t *testing.T) {
		tracker, _ := newTestTracker(t, 20)
		logBatch(t, tracker, 20, 19) // historical: 95% correct
		logBatch(t, tracker, 20, 16) // recent: 80% correct

		report, err := tracker.DetectDrift(0)
		require.NoError(t, err)
		assert.True(t, report.DriftDetected)
		assert.Equal(t, 0.95, report.HistoricalAccuracy)
		assert.Equal(t, 0.8, report.RecentAccuracy)
		assert.Equal(t, 0.15, report.AccuracyDrop)
		assert.Equal(t, "consider retraining with recent data", report.Recommendation)
	})

	t.Run("stable accuracy", func(t *testing.T) {
		tracker, _ := newTestTracker(t, 20)
		logBatch(t, tracker, 20, 18)
		logBatch(t, tracker, 20, 18)

		report, err := tracker.DetectDrift(0)
		require.NoError(t, err)
		assert.False(t, report.DriftDetected)
		assert.Equal(t, "performance stable", report.Recommendation)
	})

	t.Run("drop at the threshold is not drift", func(t *testing.T) {
		tracker, _ := newTestTracker(t, 20)
		logBatch(t, tracker, 20, 20) // 100%
		logBatch(t, tracker, 20, 19) // 95%, drop exactly 0.05

		report, err := tracker.DetectDrift(0)
		require.NoError(t, err)
		assert.False(t, report.DriftDetected)
	})
}

func TestTrackerTrainingBaseline(t *testing.T) {
	tracker, _ := newTestTracker(t, 0)

	logLabeled(t, tracker, "resnet_v1", "Healthy", "Healthy", 0.9)
	logLabeled(t, tracker, "resnet_v1", "Healthy", "Healthy", 0.9)
	assert.Equal(t, 2, tracker.SamplesSinceLastTraining())

	require.NoError(t, tracker.MarkTrainingBaseline())
	assert.Equal(t, 0, tracker.SamplesSinceLastTraining())

	logLabeled(t, tracker, "resnet_v1", "Healthy", "Healthy", 0.9)
	assert.Equal(t, 1, tracker.SamplesSinceLastTraining())
}

func TestTrackerCurrentAccuracy(t *testing.T) {
	tracker, _ := newTestTracker(t, 0)

	_, ok := tracker.CurrentAccuracy()
	assert.False(t, ok, "no labeled predictions yet")

	logUnlabeled(t, tracker, "resnet_v1", "Healthy", 0.9)
	_, ok = tracker.CurrentAccuracy()
	assert.False(t, ok, "unlabeled predictions never establish accuracy")

	logLabeled(t, tracker, "resnet_v1", "Healthy", "Healthy", 0.9)
	acc, ok := tracker.CurrentAccuracy()
	require.True(t, ok)
	assert.Equal(t, 1.0, acc)
}

func TestTrackerSnapshotPersistence(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	tracker, err := NewTracker(store, 0)
	require.NoError(t, err)
	logLabeled(t, tracker, "resnet_v1", "Healthy", "Healthy", 0.9)
	logLabeled(t, tracker, "resnet_v1", "Healthy", "TomatoBlight", 0.8)

	// A fresh tracker over the same store resumes the aggregates.
	resumed, err := NewTracker(store, 0)
	require.NoError(t, err)
	overall := resumed.OverallMetrics()
	assert.Equal(t, 2, overall.TotalPredictions)
	assert.Equal(t, 2, overall.LabeledPredictions)
	assert.Equal(t, 1, overall.CorrectPredictions)
	assert.Equal(t, 0.5, overall.Accuracy)
}
