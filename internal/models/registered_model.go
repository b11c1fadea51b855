package models

import (
	"time"

	"gorm.io/gorm"
)

// ModelStatus marks whether a registered model serves predictions.
type ModelStatus string

const (
	ModelStatusActive   ModelStatus = "active"
	ModelStatusInactive ModelStatus = "inactive"
)

// RegisteredModel is a trained model artifact registered for serving.
// At most one model is active at a time; activating a model deactivates
// all others in the same transaction.
type RegisteredModel struct {
	gorm.Model
	ModelID         string      `json:"model_id" gorm:"uniqueIndex;not null"`
	Name            string      `json:"name" gorm:"not null"`
	Version         string      `json:"version" gorm:"not null"`
	ArtifactPath    string      `json:"path" gorm:"not null"`
	Architecture    string      `json:"architecture"`
	DatasetVersion  string      `json:"training_dataset"`
	Hyperparameters MetadataMap `json:"hyperparameters,omitempty" gorm:"type:json"`
	Status          ModelStatus `json:"status" gorm:"default:'inactive';index"`
	RegisteredAt    time.Time   `json:"registered_at"`
	ActivatedAt     *time.Time  `json:"activated_at,omitempty"`
	Metadata        MetadataMap `json:"metadata,omitempty" gorm:"type:json"`
}

// IsActive reports whether this model currently serves predictions.
func (m *RegisteredModel) IsActive() bool {
	return m.Status == ModelStatusActive
}

// TableName specifies the table name for GORM
func (RegisteredModel) TableName() string {
	return "registered_models"
}
