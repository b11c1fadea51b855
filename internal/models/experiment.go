package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

// ExperimentStatus represents the lifecycle state of a training experiment
type ExperimentStatus string

const (
	ExperimentStatusPending   ExperimentStatus = "pending"
	ExperimentStatusRunning   ExperimentStatus = "running"
	ExperimentStatusCompleted ExperimentStatus = "completed"
	ExperimentStatusFailed    ExperimentStatus = "failed"
	ExperimentStatusCancelled ExperimentStatus = "cancelled"
)

// MaxErrorLength bounds the stored error text for failed experiments.
const MaxErrorLength = 1000

// Experiment represents one scheduled/executed training run.
//
// Status transitions are one-directional:
//
//	pending -> running -> completed | failed
//	pending -> cancelled
//	running -> cancelled
//
// A cancelled or failed experiment is never resurrected; a new one is
// scheduled instead.
type Experiment struct {
	gorm.Model
	ConfigName  string           `json:"config_name" gorm:"not null;index"`
	Status      ExperimentStatus `json:"status" gorm:"default:'pending';index:idx_experiments_status_priority"`
	Priority    int              `json:"priority" gorm:"default:5;index:idx_experiments_status_priority"`
	GPURequired bool             `json:"gpu_required" gorm:"default:false"`
	MaxEpochs   int              `json:"max_epochs" gorm:"default:50"`
	Patience    int              `json:"early_stopping_patience" gorm:"default:5"`

	ScheduledAt time.Time  `json:"scheduled_at"`
	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`

	Metrics   MetricsMap  `json:"metrics,omitempty" gorm:"type:json"`
	ModelPath string      `json:"model_path,omitempty"`
	Metadata  MetadataMap `json:"metadata,omitempty" gorm:"type:json"`
	Error     string      `json:"error,omitempty"`
}

// MetricsMap holds metric name -> value pairs reported by the trainer.
type MetricsMap map[string]float64

// Value implements driver.Valuer for MetricsMap
func (m MetricsMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner for MetricsMap
func (m *MetricsMap) Scan(value interface{}) error {
	if value == nil {
		*m = make(MetricsMap)
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(bytes, m)
}

// MetadataMap holds free-form metadata attached to a record.
type MetadataMap map[string]interface{}

// Value implements driver.Valuer for MetadataMap
func (m MetadataMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner for MetadataMap
func (m *MetadataMap) Scan(value interface{}) error {
	if value == nil {
		*m = make(MetadataMap)
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(bytes, m)
}

// CanStart reports whether the experiment may transition to running.
func (e *Experiment) CanStart() bool {
	return e.Status == ExperimentStatusPending
}

// CanCancel reports whether the experiment may transition to cancelled.
func (e *Experiment) CanCancel() bool {
	return e.Status == ExperimentStatusPending || e.Status == ExperimentStatusRunning
}

// IsTerminal reports whether the experiment has reached a final state.
func (e *Experiment) IsTerminal() bool {
	switch e.Status {
	case ExperimentStatusCompleted, ExperimentStatusFailed, ExperimentStatusCancelled:
		return true
	}
	return false
}

// MetricValue returns the named metric and whether it is present.
func (e *Experiment) MetricValue(name string) (float64, bool) {
	if e.Metrics == nil {
		return 0, false
	}
	v, ok := e.Metrics[name]
	return v, ok
}

// TruncateError bounds an error message to MaxErrorLength characters.
func TruncateError(msg string) string {
	if len(msg) > MaxErrorLength {
		return msg[:MaxErrorLength]
	}
	return msg
}

// TableName specifies the table name for GORM
func (Experiment) TableName() string {
	return "experiments"
}
