package mlmodels

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/verdantlabs/cropsight/api/types"
	"github.com/verdantlabs/cropsight/internal/services/registry"
)

// RegisterRequest is the request body for registering a trained model.
type RegisterRequest struct {
	Name            string                 `json:"name" binding:"required"`
	Version         string                 `json:"version" binding:"required"`
	ArtifactPath    string                 `json:"path" binding:"required"`
	Architecture    string                 `json:"architecture"`
	DatasetVersion  string                 `json:"training_dataset"`
	Hyperparameters map[string]interface{} `json:"hyperparameters"`
	Metadata        map[string]interface{} `json:"metadata"`
}

// Register records a new trained model version
// @Summary      Register model
// @Description  Record a trained model artifact; new models start inactive
// @Tags         models
// @Accept       json
// @Produce      json
// @Param        request body mlmodels.RegisterRequest true "Model details"
// @Success      201 {object} models.RegisteredModel "Registered model"
// @Failure      400 {object} types.ErrorResponse "Invalid request"
// @Router       /api/v1/models [post]
func Register(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest
		if !types.BindJSONOrError(c, &req) {
			return
		}

		model, err := deps.ModelRegistry.Register(c.Request.Context(), registry.Registration{
			Name:            req.Name,
			Version:         req.Version,
			ArtifactPath:    req.ArtifactPath,
			Architecture:    req.Architecture,
			DatasetVersion:  req.DatasetVersion,
			Hyperparameters: req.Hyperparameters,
			Metadata:        req.Metadata,
		})
		if err != nil {
			types.SendBadRequest(c, err.Error())
			return
		}
		types.SendCreated(c, model)
	}
}

// List lists all registered models
// @Summary      List models
// @Tags         models
// @Produce      json
// @Success      200 {object} object{models=[]models.RegisteredModel,count=int} "Registered models"
// @Router       /api/v1/models [get]
func List(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := deps.ModelRegistry.List(c.Request.Context())
		if err != nil {
			types.SendInternalError(c, "Failed to list models")
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"models": list,
			"count":  len(list),
		})
	}
}

// GetActive returns the model currently serving predictions
// @Summary      Active model
// @Tags         models
// @Produce      json
// @Success      200 {object} models.RegisteredModel "Active model"
// @Failure      404 {object} types.ErrorResponse "No active model"
// @Router       /api/v1/models/active [get]
func GetActive(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		model, err := deps.ModelRegistry.Active(c.Request.Context())
		if err != nil {
			if errors.Is(err, registry.ErrNoActiveModel) {
				types.SendNotFound(c, "No active model")
			} else {
				types.SendInternalError(c, "Failed to fetch active model")
			}
			return
		}
		types.SendSuccess(c, model)
	}
}

// Get returns one registered model by model id
// @Summary      Get model
// @Tags         models
// @Produce      json
// @Param        id path string true "Model ID"
// @Success      200 {object} models.RegisteredModel "Registered model"
// @Failure      404 {object} types.ErrorResponse "Model not found"
// @Router       /api/v1/models/{id} [get]
func Get(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		model, err := deps.ModelRegistry.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			if errors.Is(err, registry.ErrModelNotFound) {
				types.SendNotFound(c, "Model not found")
			} else {
				types.SendInternalError(c, "Failed to fetch model")
			}
			return
		}
		types.SendSuccess(c, model)
	}
}

// Activate promotes one model to active
// @Summary      Activate model
// @Description  Make this model the single active one; every other model is deactivated in the same transaction
// @Tags         models
// @Produce      json
// @Param        id path string true "Model ID"
// @Success      200 {object} models.RegisteredModel "Activated model"
// @Failure      404 {object} types.ErrorResponse "Model not found"
// @Router       /api/v1/models/{id}/activate [post]
func Activate(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		model, err := deps.ModelRegistry.SetActive(c.Request.Context(), c.Param("id"))
		if err != nil {
			if errors.Is(err, registry.ErrModelNotFound) {
				types.SendNotFound(c, "Model not found")
			} else {
				types.SendInternalError(c, "Failed to activate model")
			}
			return
		}

		// The tracker baseline resets so new-sample counts start from
		// this deployment.
		if deps.Tracker != nil {
			if err := deps.Tracker.MarkTrainingBaseline(); err != nil {
				types.SendInternalError(c, "Model activated but baseline update failed")
				return
			}
		}
		types.SendSuccess(c, model)
	}
}
