package registry

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/verdantlabs/cropsight/internal/models"
)

// Registry errors
var (
	ErrModelNotFound = errors.New("model not found")
	ErrNoActiveModel = errors.New("no active model")
)

// Service manages registered model versions and the single-active-model
// invariant.
type Service interface {
	Register(ctx context.Context, reg Registration) (*models.RegisteredModel, error)
	SetActive(ctx context.Context, modelID string) (*models.RegisteredModel, error)
	Active(ctx context.Context) (*models.RegisteredModel, error)
	Get(ctx context.Context, modelID string) (*models.RegisteredModel, error)
	List(ctx context.Context) ([]*models.RegisteredModel, error)
}

// Registration carries the fields for registering a trained model.
type Registration struct {
	Name            string
	Version         string
	ArtifactPath    string
	Architecture    string
	DatasetVersion  string
	Hyperparameters map[string]interface{}
	Metadata        map[string]interface{}
}

type service struct {
	db *gorm.DB
}

// NewService creates a model registry backed by the given database.
func NewService(db *gorm.DB) Service {
	return &service{db: db}
}

// Register records a new model version as inactive. The model id embeds
// a timestamp so re-registering the same name and version never
// collides.
func (s *service) Register(ctx context.Context, reg Registration) (*models.RegisteredModel, error) {
	if reg.Name == "" || reg.Version == "" {
		return nil, fmt.Errorf("model name and version are required")
	}
	if reg.ArtifactPath == "" {
		return nil, fmt.Errorf("model artifact path is required")
	}

	now := time.Now()
	model := &models.RegisteredModel{
		ModelID:         fmt.Sprintf("%s_%s_%s", reg.Name, reg.Version, now.Format("20060102_150405")),
		Name:            reg.Name,
		Version:         reg.Version,
		ArtifactPath:    reg.ArtifactPath,
		Architecture:    reg.Architecture,
		DatasetVersion:  reg.DatasetVersion,
		Hyperparameters: reg.Hyperparameters,
		Status:          models.ModelStatusInactive,
		RegisteredAt:    now,
		Metadata:        reg.Metadata,
	}

	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		return nil, fmt.Errorf("registering model: %w", err)
	}

	log.Printf("[INFO] Registered model %s (%s)", model.ModelID, model.ArtifactPath)
	return model, nil
}

// SetActive promotes one model to active and demotes every other in a
// single transaction, so readers never observe two active models.
func (s *service) SetActive(ctx context.Context, modelID string) (*models.RegisteredModel, error) {
	var model models.RegisteredModel

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("model_id = ?", modelID).First(&model).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrModelNotFound
			}
			return fmt.Errorf("finding model: %w", err)
		}

		if err := tx.Model(&models.RegisteredModel{}).
			Where("status = ?", models.ModelStatusActive).
			Update("status", models.ModelStatusInactive).Error; err != nil {
			return fmt.Errorf("deactivating models: %w", err)
		}

		now := time.Now()
		if err := tx.Model(&model).Updates(map[string]interface{}{
			"status":       models.ModelStatusActive,
			"activated_at": &now,
		}).Error; err != nil {
			return fmt.Errorf("activating model: %w", err)
		}

		model.Status = models.ModelStatusActive
		model.ActivatedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[INFO] Model %s is now active", modelID)
	return &model, nil
}

func (s *service) Active(ctx context.Context) (*models.RegisteredModel, error) {
	var model models.RegisteredModel
	err := s.db.WithContext(ctx).
		Where("status = ?", models.ModelStatusActive).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoActiveModel
		}
		return nil, fmt.Errorf("finding active model: %w", err)
	}
	return &model, nil
}

func (s *service) Get(ctx context.Context, modelID string) (*models.RegisteredModel, error) {
	var model models.RegisteredModel
	err := s.db.WithContext(ctx).Where("model_id = ?", modelID).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrModelNotFound
		}
		return nil, fmt.Errorf("getting model: %w", err)
	}
	return &model, nil
}

func (s *service) List(ctx context.Context) ([]*models.RegisteredModel, error) {
	var list []*models.RegisteredModel
	err := s.db.WithContext(ctx).Order("registered_at DESC").Find(&list).Error
	return list, err
}
