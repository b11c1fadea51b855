package performance

import (
	"fmt"
	"log"
	"math"
	"sort"
	"sync"
	"time"
)

const (
	// DefaultDriftWindow is the recent-window size for drift detection.
	DefaultDriftWindow = 100
	// DriftDropThreshold is the accuracy drop that counts as drift.
	DriftDropThreshold = 0.05

	maxInferenceTimes = 1000
)

// Tracker maintains live model performance metrics over an append-only
// prediction log. Aggregates are updated incrementally per prediction;
// only the confusion matrix and the log scans replay the full stream.
type Tracker struct {
	mu        sync.Mutex
	store     Store
	snapshot  *MetricsSnapshot
	driftSize int
}

// NewTracker loads the persisted snapshot (or starts empty) and returns
// a tracker. driftWindow <= 0 selects DefaultDriftWindow.
func NewTracker(store Store, driftWindow int) (*Tracker, error) {
	snapshot, err := store.LoadMetrics()
	if err != nil {
		return nil, err
	}
	if driftWindow <= 0 {
		driftWindow = DefaultDriftWindow
	}
	return &Tracker{
		store:     store,
		snapshot:  snapshot,
		driftSize: driftWindow,
	}, nil
}

// LogPrediction appends one record to the log and folds it into the
// overall, per-class, per-model, and per-day aggregates. Appending the
// record happens before the snapshot update; a crash between the two
// loses only aggregate state, which the log can always rebuild.
func (t *Tracker) LogPrediction(modelID, imageID, predictedClass string, confidence float64, allPredictions []ClassScore, inferenceTimeMS float64, groundTruth string, metadata map[string]string) (*PredictionRecord, error) {
	rec := PredictionRecord{
		Timestamp:       time.Now().UTC(),
		ModelID:         modelID,
		ImageID:         imageID,
		PredictedClass:  predictedClass,
		Confidence:      confidence,
		AllPredictions:  allPredictions,
		InferenceTimeMS: inferenceTimeMS,
		GroundTruth:     groundTruth,
		Metadata:        metadata,
	}
	if groundTruth != "" {
		correct := predictedClass == groundTruth
		rec.IsCorrect = &correct
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.store.AppendPrediction(rec); err != nil {
		return nil, err
	}

	t.applyToSnapshot(rec)

	if err := t.store.SaveMetrics(t.snapshot); err != nil {
		log.Printf("[WARN] Failed to persist metrics snapshot: %v", err)
	}

	return &rec, nil
}

func (t *Tracker) applyToSnapshot(rec PredictionRecord) {
	overall := &t.snapshot.Overall
	overall.TotalPredictions++
	overall.AvgConfidence = runningAvg(overall.AvgConfidence, overall.TotalPredictions, rec.Confidence)
	if rec.IsCorrect != nil {
		overall.LabeledPredictions++
		if *rec.IsCorrect {
			overall.CorrectPredictions++
		}
		overall.Accuracy = ratio(overall.CorrectPredictions, overall.LabeledPredictions)
	}

	cls := t.classMetrics(rec.PredictedClass)
	cls.TotalPredictions++
	cls.AvgConfidence = runningAvg(cls.AvgConfidence, cls.TotalPredictions, rec.Confidence)
	if rec.IsCorrect != nil {
		cls.LabeledPredictions++
		if *rec.IsCorrect {
			cls.CorrectPredictions++
		} else {
			cls.FalsePositives++
			gt := t.classMetrics(rec.GroundTruth)
			gt.FalseNegatives++
		}
		cls.Accuracy = ratio(cls.CorrectPredictions, cls.LabeledPredictions)
	}

	mdl, ok := t.snapshot.PerModel[rec.ModelID]
	if !ok {
		mdl = &ModelMetrics{}
		t.snapshot.PerModel[rec.ModelID] = mdl
	}
	mdl.TotalPredictions++
	mdl.AvgConfidence = runningAvg(mdl.AvgConfidence, mdl.TotalPredictions, rec.Confidence)
	if rec.IsCorrect != nil {
		mdl.LabeledPredictions++
		if *rec.IsCorrect {
			mdl.CorrectPredictions++
		}
		mdl.Accuracy = ratio(mdl.CorrectPredictions, mdl.LabeledPredictions)
	}
	mdl.InferenceTimes = append(mdl.InferenceTimes, rec.InferenceTimeMS)
	if len(mdl.InferenceTimes) > maxInferenceTimes {
		mdl.InferenceTimes = mdl.InferenceTimes[len(mdl.InferenceTimes)-maxInferenceTimes:]
	}

	day := rec.Timestamp.Format("2006-01-02")
	daily, ok := t.snapshot.Daily[day]
	if !ok {
		daily = &DailyMetrics{}
		t.snapshot.Daily[day] = daily
	}
	daily.TotalPredictions++
	daily.AvgConfidence = runningAvg(daily.AvgConfidence, daily.TotalPredictions, rec.Confidence)
	if rec.IsCorrect != nil {
		daily.LabeledPredictions++
		if *rec.IsCorrect {
			daily.CorrectPredictions++
		}
		daily.Accuracy = ratio(daily.CorrectPredictions, daily.LabeledPredictions)
	}
}

func (t *Tracker) classMetrics(name string) *ClassMetrics {
	cls, ok := t.snapshot.PerClass[name]
	if !ok {
		cls = &ClassMetrics{}
		t.snapshot.PerClass[name] = cls
	}
	return cls
}

// OverallMetrics returns the aggregate over the whole stream.
func (t *Tracker) OverallMetrics() OverallMetrics {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshot.Overall
}

// ClassMetrics returns metrics for one class, or all classes when name
// is empty.
func (t *Tracker) ClassMetrics(name string) map[string]ClassMetrics {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]ClassMetrics)
	if name != "" {
		if cls, ok := t.snapshot.PerClass[name]; ok {
			out[name] = *cls
		}
		return out
	}
	for n, cls := range t.snapshot.PerClass {
		out[n] = *cls
	}
	return out
}

// ModelMetrics returns metrics for one model (or all models when id is
// empty) with inference-time percentiles computed over the retained
// latency window.
func (t *Tracker) ModelMetrics(id string) map[string]ModelMetrics {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]ModelMetrics)
	if id != "" {
		if mdl, ok := t.snapshot.PerModel[id]; ok {
			out[id] = withLatencyStats(*mdl)
		}
		return out
	}
	for mid, mdl := range t.snapshot.PerModel {
		out[mid] = withLatencyStats(*mdl)
	}
	return out
}

// DailyTrends returns per-day metrics for the last `days` days, keyed
// and sorted by date.
func (t *Tracker) DailyTrends(days int) map[string]DailyMetrics {
	t.mu.Lock()
	defer t.mu.Unlock()

	if days <= 0 {
		days = 30
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days)

	out := make(map[string]DailyMetrics)
	for day, stats := range t.snapshot.Daily {
		date, err := time.Parse("2006-01-02", day)
		if err != nil {
			continue
		}
		if !date.Before(cutoff.Truncate(24 * time.Hour)) {
			out[day] = *stats
		}
	}
	return out
}

// ConfusionMatrix replays the full log, counting only records whose
// ground truth and prediction both fall inside the requested class set.
// Cost is proportional to log size; this is an analytics query, not a
// hot path.
func (t *Tracker) ConfusionMatrix(classes []string) (map[string]map[string]int, error) {
	matrix := make(map[string]map[string]int, len(classes))
	inSet := make(map[string]bool, len(classes))
	for _, c := range classes {
		inSet[c] = true
		row := make(map[string]int, len(classes))
		for _, c2 := range classes {
			row[c2] = 0
		}
		matrix[c] = row
	}

	err := t.store.ScanPredictions(func(rec PredictionRecord) bool {
		if rec.GroundTruth != "" && inSet[rec.GroundTruth] && inSet[rec.PredictedClass] {
			matrix[rec.GroundTruth][rec.PredictedClass]++
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("building confusion matrix: %w", err)
	}
	return matrix, nil
}

// LowConfidence returns the first `limit` records below the confidence
// threshold in log order. The scan stops as soon as the limit is hit,
// so the result is not the globally lowest-confidence set.
func (t *Tracker) LowConfidence(threshold float64, limit int) ([]PredictionRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	records := []PredictionRecord{}
	err := t.store.ScanPredictions(func(rec PredictionRecord) bool {
		if rec.Confidence < threshold {
			records = append(records, rec)
		}
		return len(records) < limit
	})
	if err != nil {
		return nil, fmt.Errorf("scanning low-confidence predictions: %w", err)
	}
	return records, nil
}

// DetectDrift compares accuracy over the oldest labeled records against
// the most recent windowSize labeled records. It needs at least
// 2*windowSize labeled records; below that it reports no drift with an
// insufficient-data message rather than guessing.
func (t *Tracker) DetectDrift(windowSize int) (*DriftReport, error) {
	if windowSize <= 0 {
		windowSize = t.driftSize
	}

	var correctness []bool
	err := t.store.ScanPredictions(func(rec PredictionRecord) bool {
		if rec.IsCorrect != nil {
			correctness = append(correctness, *rec.IsCorrect)
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("scanning predictions for drift: %w", err)
	}

	if len(correctness) < windowSize*2 {
		return &DriftReport{
			DriftDetected: false,
			Message:       "insufficient labeled data",
		}, nil
	}

	historical := correctness[:len(correctness)-windowSize]
	recent := correctness[len(correctness)-windowSize:]

	historicalAccuracy := accuracyOf(historical)
	recentAccuracy := accuracyOf(recent)
	drop := historicalAccuracy - recentAccuracy
	detected := drop > DriftDropThreshold

	report := &DriftReport{
		DriftDetected:      detected,
		HistoricalAccuracy: round4(historicalAccuracy),
		RecentAccuracy:     round4(recentAccuracy),
		AccuracyDrop:       round4(drop),
		Threshold:          DriftDropThreshold,
		Recommendation:     "performance stable",
	}
	if detected {
		report.Recommendation = "consider retraining with recent data"
	}
	return report, nil
}

// MarkTrainingBaseline records the current stream position so that
// SamplesSinceLastTraining counts from the most recent training run.
func (t *Tracker) MarkTrainingBaseline() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snapshot.TrainingBaseline = t.snapshot.Overall.TotalPredictions
	return t.store.SaveMetrics(t.snapshot)
}

// CurrentAccuracy reports live overall accuracy; ok is false before any
// labeled prediction has been seen.
func (t *Tracker) CurrentAccuracy() (float64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.snapshot.Overall.LabeledPredictions == 0 {
		return 0, false
	}
	return t.snapshot.Overall.Accuracy, true
}

// DriftDetected satisfies the experiment service's performance source.
func (t *Tracker) DriftDetected() (bool, float64) {
	report, err := t.DetectDrift(0)
	if err != nil {
		log.Printf("[WARN] Drift detection failed: %v", err)
		return false, 0
	}
	return report.DriftDetected, report.AccuracyDrop
}

// SamplesSinceLastTraining counts predictions logged since the last
// training baseline mark.
func (t *Tracker) SamplesSinceLastTraining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshot.Overall.TotalPredictions - t.snapshot.TrainingBaseline
}

func runningAvg(oldAvg float64, n int, value float64) float64 {
	return round4((oldAvg*float64(n-1) + value) / float64(n))
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return round4(float64(num) / float64(den))
}

func accuracyOf(correctness []bool) float64 {
	if len(correctness) == 0 {
		return 0
	}
	correct := 0
	for _, ok := range correctness {
		if ok {
			correct++
		}
	}
	return float64(correct) / float64(len(correctness))
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

func withLatencyStats(m ModelMetrics) ModelMetrics {
	times := m.InferenceTimes
	if len(times) == 0 {
		return m
	}
	sorted := make([]float64, len(times))
	copy(sorted, times)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	m.AvgInferenceTimeMS = round2(sum / float64(len(sorted)))
	m.P50InferenceTimeMS = round2(percentile(sorted, 50))
	m.P95InferenceTimeMS = round2(percentile(sorted, 95))
	m.P99InferenceTimeMS = round2(percentile(sorted, 99))
	return m
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// percentile uses linear interpolation between closest ranks over a
// sorted slice.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := p / 100 * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}
	frac := rank - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}
