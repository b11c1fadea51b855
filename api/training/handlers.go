package training

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/verdantlabs/cropsight/api/types"
	"github.com/verdantlabs/cropsight/internal/models"
	"github.com/verdantlabs/cropsight/internal/services/experiments"
	"github.com/verdantlabs/cropsight/internal/services/training"
)

// ConfigRequest is the request body for creating a training config.
type ConfigRequest struct {
	Name            string                 `json:"name" binding:"required"`
	Architecture    string                 `json:"architecture" binding:"required"`
	Hyperparameters map[string]interface{} `json:"hyperparameters"`
	DatasetVersion  string                 `json:"dataset_version"`
	Augmentation    map[string]interface{} `json:"augmentation"`
	Optimizer       map[string]interface{} `json:"optimizer"`
	Notes           string                 `json:"notes"`
}

// CreateConfig stores a new training configuration
// @Summary      Create training config
// @Description  Persist a named training configuration; omitted augmentation and optimizer settings get standard defaults
// @Tags         training
// @Accept       json
// @Produce      json
// @Param        request body training.ConfigRequest true "Training configuration"
// @Success      201 {object} object{status=string,config=training.Config} "Created config"
// @Failure      400 {object} types.ErrorResponse "Invalid request"
// @Failure      409 {object} types.ErrorResponse "Config name already exists"
// @Router       /api/v1/training/configs [post]
func CreateConfig(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ConfigRequest
		if !types.BindJSONOrError(c, &req) {
			return
		}

		cfg, err := deps.TrainingConfigs.Create(training.Config{
			Name:            req.Name,
			Architecture:    req.Architecture,
			Hyperparameters: req.Hyperparameters,
			DatasetVersion:  req.DatasetVersion,
			Augmentation:    req.Augmentation,
			Optimizer:       req.Optimizer,
			Notes:           req.Notes,
		})
		if err != nil {
			types.SendAppError(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"status": types.StatusOK,
			"config": cfg,
		})
	}
}

// ListConfigs lists stored training config names
// @Summary      List training configs
// @Tags         training
// @Produce      json
// @Success      200 {object} object{configs=[]string,count=int} "Config names"
// @Router       /api/v1/training/configs [get]
func ListConfigs(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		names, err := deps.TrainingConfigs.List()
		if err != nil {
			types.SendAppError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"configs": names,
			"count":   len(names),
		})
	}
}

// GetConfig returns one training config by name
// @Summary      Get training config
// @Tags         training
// @Produce      json
// @Param        name path string true "Config name"
// @Success      200 {object} training.Config "Training configuration"
// @Failure      404 {object} types.ErrorResponse "Config not found"
// @Router       /api/v1/training/configs/{name} [get]
func GetConfig(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		cfg, err := deps.TrainingConfigs.Get(c.Param("name"))
		if err != nil {
			types.SendAppError(c, err)
			return
		}
		types.SendSuccess(c, cfg)
	}
}

// ScheduleRequest is the request body for scheduling an experiment.
type ScheduleRequest struct {
	ConfigName string                 `json:"config_name" binding:"required"`
	Priority   *int                   `json:"priority"`
	GPU        bool                   `json:"gpu_required"`
	MaxEpochs  *int                   `json:"max_epochs"`
	Patience   *int                   `json:"early_stopping_patience"`
	Metadata   map[string]interface{} `json:"metadata"`
}

// ScheduleExperiment queues a training experiment
// @Summary      Schedule experiment
// @Description  Create a pending experiment referencing a stored training config
// @Tags         training
// @Accept       json
// @Produce      json
// @Param        request body training.ScheduleRequest true "Experiment parameters"
// @Success      201 {object} models.Experiment "Scheduled experiment"
// @Failure      400 {object} types.ErrorResponse "Invalid request"
// @Router       /api/v1/training/experiments [post]
func ScheduleExperiment(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ScheduleRequest
		if !types.BindJSONOrError(c, &req) {
			return
		}

		var opts []experiments.ScheduleOption
		if req.Priority != nil {
			opts = append(opts, experiments.WithPriority(*req.Priority))
		}
		if req.GPU {
			opts = append(opts, experiments.WithGPU(true))
		}
		if req.MaxEpochs != nil {
			opts = append(opts, experiments.WithMaxEpochs(*req.MaxEpochs))
		}
		if req.Patience != nil {
			opts = append(opts, experiments.WithPatience(*req.Patience))
		}
		if req.Metadata != nil {
			opts = append(opts, experiments.WithMetadata(req.Metadata))
		}

		exp, err := deps.ExperimentService.Schedule(c.Request.Context(), req.ConfigName, opts...)
		if err != nil {
			types.SendAppError(c, err)
			return
		}
		types.SendCreated(c, exp)
	}
}

// QuickRequest is the request body for a quick experiment.
type QuickRequest struct {
	Architecture    string                 `json:"architecture" binding:"required"`
	DatasetVersion  string                 `json:"dataset_version"`
	Hyperparameters map[string]interface{} `json:"hyperparameters"`
}

// QuickExperiment creates a config and schedules a GPU run in one call
// @Summary      Quick experiment
// @Description  Create a timestamped config for the architecture and schedule a GPU training run of it
// @Tags         training
// @Accept       json
// @Produce      json
// @Param        request body training.QuickRequest true "Quick experiment parameters"
// @Success      201 {object} models.Experiment "Scheduled experiment"
// @Failure      400 {object} types.ErrorResponse "Invalid request"
// @Router       /api/v1/training/experiments/quick [post]
func QuickExperiment(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req QuickRequest
		if !types.BindJSONOrError(c, &req) {
			return
		}

		exp, err := training.QuickExperiment(c.Request.Context(), deps.TrainingConfigs, deps.ExperimentService,
			req.Architecture, req.DatasetVersion, req.Hyperparameters)
		if err != nil {
			types.SendAppError(c, err)
			return
		}
		types.SendCreated(c, exp)
	}
}

// ListExperiments lists experiments with optional status filter
// @Summary      List experiments
// @Tags         training
// @Produce      json
// @Param        status query string false "Status filter (pending, running, completed, failed, cancelled)"
// @Param        limit query int false "Maximum results" default(50)
// @Success      200 {object} object{experiments=[]models.Experiment,count=int} "Experiments"
// @Router       /api/v1/training/experiments [get]
func ListExperiments(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 50
		if raw := c.Query("limit"); raw != "" {
			if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
				limit = parsed
			}
		}

		exps, err := deps.ExperimentService.List(c.Request.Context(), models.ExperimentStatus(c.Query("status")), limit)
		if err != nil {
			types.SendAppError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"experiments": exps,
			"count":       len(exps),
		})
	}
}

// GetExperiment returns one experiment by id
// @Summary      Get experiment
// @Tags         training
// @Produce      json
// @Param        id path int true "Experiment ID"
// @Success      200 {object} models.Experiment "Experiment"
// @Failure      404 {object} types.ErrorResponse "Experiment not found"
// @Router       /api/v1/training/experiments/{id} [get]
func GetExperiment(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := types.ParseUintParam(c, "id")
		if !ok {
			return
		}
		exp, err := deps.ExperimentService.Get(c.Request.Context(), id)
		if err != nil {
			types.SendNotFound(c, "Experiment not found")
			return
		}
		types.SendSuccess(c, exp)
	}
}

// StartExperiment launches the training process for a pending experiment
// @Summary      Start experiment
// @Description  Claim the pending experiment and launch the external training process; only one run executes at a time
// @Tags         training
// @Produce      json
// @Param        id path int true "Experiment ID"
// @Success      200 {object} object{status=string,started=bool} "Launch outcome"
// @Failure      404 {object} types.ErrorResponse "Experiment not found"
// @Failure      409 {object} types.ErrorResponse "Not pending, or a run is already active"
// @Router       /api/v1/training/experiments/{id}/start [post]
func StartExperiment(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := types.ParseUintParam(c, "id")
		if !ok {
			return
		}
		exp, err := deps.ExperimentService.Get(c.Request.Context(), id)
		if err != nil {
			types.SendNotFound(c, "Experiment not found")
			return
		}

		if err := deps.TrainingRunner.Launch(c.Request.Context(), exp); err != nil {
			types.SendAppError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  types.StatusOK,
			"started": true,
		})
	}
}

// CancelExperiment cancels a pending or running experiment
// @Summary      Cancel experiment
// @Description  Move a pending or running experiment to cancelled; a running training process is stopped best-effort
// @Tags         training
// @Produce      json
// @Param        id path int true "Experiment ID"
// @Success      200 {object} object{status=string,cancelled=bool} "Cancellation outcome"
// @Failure      404 {object} types.ErrorResponse "Experiment not found"
// @Router       /api/v1/training/experiments/{id}/cancel [post]
func CancelExperiment(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := types.ParseUintParam(c, "id")
		if !ok {
			return
		}

		cancelled, err := deps.ExperimentService.Cancel(c.Request.Context(), id)
		if err != nil {
			types.SendAppError(c, err)
			return
		}
		if cancelled && deps.TrainingRunner != nil {
			deps.TrainingRunner.Cancel(id)
		}
		c.JSON(http.StatusOK, gin.H{
			"status":    types.StatusOK,
			"cancelled": cancelled,
		})
	}
}

// CompareExperiments compares a metric across experiments
// @Summary      Compare experiments
// @Tags         training
// @Produce      json
// @Param        ids query string true "Comma-separated experiment IDs"
// @Param        metric query string false "Metric name" default(val_accuracy)
// @Success      200 {object} object{metric=string,experiments=[]experiments.ComparisonEntry} "Comparison"
// @Failure      400 {object} types.ErrorResponse "Invalid ids"
// @Failure      404 {object} types.ErrorResponse "Experiment not found"
// @Router       /api/v1/training/experiments/compare [get]
func CompareExperiments(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		rawIDs := c.Query("ids")
		if rawIDs == "" {
			types.SendBadRequest(c, "ids query parameter is required")
			return
		}
		var ids []uint
		for _, part := range strings.Split(rawIDs, ",") {
			id, err := strconv.ParseUint(strings.TrimSpace(part), 10, 32)
			if err != nil {
				types.SendBadRequest(c, "invalid experiment id: "+part)
				return
			}
			ids = append(ids, uint(id))
		}

		metric := c.DefaultQuery("metric", "val_accuracy")
		entries, err := deps.ExperimentService.Compare(c.Request.Context(), ids, metric)
		if err != nil {
			types.SendAppError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"metric":      metric,
			"experiments": entries,
		})
	}
}

// BestExperiment returns the completed experiment with the highest metric
// @Summary      Best experiment
// @Tags         training
// @Produce      json
// @Param        metric query string false "Metric name" default(val_accuracy)
// @Success      200 {object} models.Experiment "Best experiment"
// @Failure      404 {object} types.ErrorResponse "No completed experiment has the metric"
// @Router       /api/v1/training/experiments/best [get]
func BestExperiment(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		metric := c.DefaultQuery("metric", "val_accuracy")
		exp, err := deps.ExperimentService.Best(c.Request.Context(), metric)
		if err != nil {
			types.SendNotFound(c, "No completed experiment with metric "+metric)
			return
		}
		types.SendSuccess(c, exp)
	}
}

// RetrainCheck evaluates whether the live model warrants retraining
// @Summary      Auto-retrain check
// @Description  Combine live accuracy and drift detection into a retrain recommendation; a warranted retrain schedules an experiment immediately
// @Tags         training
// @Produce      json
// @Success      200 {object} experiments.RetrainRecommendation "Recommendation"
// @Router       /api/v1/training/retrain-check [post]
func RetrainCheck(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, err := deps.ExperimentService.AutoRetrainCheck(c.Request.Context())
		if err != nil {
			types.SendAppError(c, err)
			return
		}
		types.SendSuccess(c, rec)
	}
}
