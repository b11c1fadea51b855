package performance

import "time"

// PredictionRecord is one immutable entry in the prediction log.
// IsCorrect is nil when no ground truth was supplied; unlabeled records
// never enter accuracy denominators.
type PredictionRecord struct {
	Timestamp       time.Time         `json:"timestamp"`
	ModelID         string            `json:"model_id"`
	ImageID         string            `json:"image_id"`
	PredictedClass  string            `json:"predicted_class"`
	Confidence      float64           `json:"confidence"`
	AllPredictions  []ClassScore      `json:"all_predictions"`
	InferenceTimeMS float64           `json:"inference_time_ms"`
	GroundTruth     string            `json:"ground_truth,omitempty"`
	IsCorrect       *bool             `json:"is_correct"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// ClassScore pairs a class name with its predicted probability.
type ClassScore struct {
	Class string  `json:"class"`
	Score float64 `json:"score"`
}

// OverallMetrics aggregates the full prediction stream.
type OverallMetrics struct {
	TotalPredictions   int     `json:"total_predictions"`
	LabeledPredictions int     `json:"labeled_predictions"`
	CorrectPredictions int     `json:"correct_predictions"`
	Accuracy           float64 `json:"accuracy"`
	AvgConfidence      float64 `json:"avg_confidence"`
}

// ClassMetrics aggregates predictions for one class. FalsePositives
// counts wrong predictions OF this class; FalseNegatives counts labeled
// records whose ground truth was this class but were predicted as
// something else. They are independent counters, not confusion cells.
type ClassMetrics struct {
	TotalPredictions   int     `json:"total_predictions"`
	LabeledPredictions int     `json:"labeled_predictions"`
	CorrectPredictions int     `json:"correct_predictions"`
	FalsePositives     int     `json:"false_positives"`
	FalseNegatives     int     `json:"false_negatives"`
	Accuracy           float64 `json:"accuracy"`
	AvgConfidence      float64 `json:"avg_confidence"`
}

// ModelMetrics aggregates predictions for one model. InferenceTimes
// keeps a sliding window of the last maxInferenceTimes latencies; the
// percentile fields are derived from that window on read.
type ModelMetrics struct {
	TotalPredictions   int       `json:"total_predictions"`
	LabeledPredictions int       `json:"labeled_predictions"`
	CorrectPredictions int       `json:"correct_predictions"`
	Accuracy           float64   `json:"accuracy"`
	AvgConfidence      float64   `json:"avg_confidence"`
	InferenceTimes     []float64 `json:"inference_times"`

	AvgInferenceTimeMS float64 `json:"avg_inference_time_ms,omitempty"`
	P50InferenceTimeMS float64 `json:"p50_inference_time_ms,omitempty"`
	P95InferenceTimeMS float64 `json:"p95_inference_time_ms,omitempty"`
	P99InferenceTimeMS float64 `json:"p99_inference_time_ms,omitempty"`
}

// DailyMetrics aggregates predictions for one calendar day (UTC).
type DailyMetrics struct {
	TotalPredictions   int     `json:"total_predictions"`
	LabeledPredictions int     `json:"labeled_predictions"`
	CorrectPredictions int     `json:"correct_predictions"`
	Accuracy           float64 `json:"accuracy"`
	AvgConfidence      float64 `json:"avg_confidence"`
}

// MetricsSnapshot is the persisted aggregate state, updated in O(1) per
// prediction and flushed whole-file on every log call.
type MetricsSnapshot struct {
	Overall          OverallMetrics           `json:"overall"`
	PerClass         map[string]*ClassMetrics `json:"per_class"`
	PerModel         map[string]*ModelMetrics `json:"per_model"`
	Daily            map[string]*DailyMetrics `json:"daily_stats"`
	TrainingBaseline int                      `json:"training_baseline"`
}

// NewMetricsSnapshot returns an empty snapshot.
func NewMetricsSnapshot() *MetricsSnapshot {
	return &MetricsSnapshot{
		PerClass: make(map[string]*ClassMetrics),
		PerModel: make(map[string]*ModelMetrics),
		Daily:    make(map[string]*DailyMetrics),
	}
}

// DriftReport is the result of comparing historical and recent
// accuracy windows over the labeled prediction stream.
type DriftReport struct {
	DriftDetected      bool    `json:"drift_detected"`
	HistoricalAccuracy float64 `json:"historical_accuracy,omitempty"`
	RecentAccuracy     float64 `json:"recent_accuracy,omitempty"`
	AccuracyDrop       float64 `json:"accuracy_drop,omitempty"`
	Threshold          float64 `json:"threshold,omitempty"`
	Message            string  `json:"message,omitempty"`
	Recommendation     string  `json:"recommendation,omitempty"`
}

// Store persists the prediction log and the metrics snapshot.
type Store interface {
	AppendPrediction(rec PredictionRecord) error
	// ScanPredictions streams the log in append order; returning false
	// from fn stops the scan early.
	ScanPredictions(fn func(rec PredictionRecord) bool) error
	LoadMetrics() (*MetricsSnapshot, error)
	SaveMetrics(snapshot *MetricsSnapshot) error
}
