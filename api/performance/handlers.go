package performance

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/verdantlabs/cropsight/api/types"
	"github.com/verdantlabs/cropsight/internal/services/performance"
)

// PredictionRequest is the request body for logging a prediction.
type PredictionRequest struct {
	ModelID         string                   `json:"model_id" binding:"required"`
	ImageID         string                   `json:"image_id" binding:"required"`
	PredictedClass  string                   `json:"predicted_class" binding:"required"`
	Confidence      float64                  `json:"confidence"`
	AllPredictions  []performance.ClassScore `json:"all_predictions"`
	InferenceTimeMS float64                  `json:"inference_time_ms"`
	GroundTruth     string                   `json:"ground_truth"`
	Metadata        map[string]string        `json:"metadata"`
}

// LogPrediction appends one prediction to the performance log
// @Summary      Log prediction
// @Description  Append an immutable prediction record and fold it into the running aggregates
// @Tags         performance
// @Accept       json
// @Produce      json
// @Param        request body performance.PredictionRequest true "Prediction details"
// @Success      201 {object} performance.PredictionRecord "Logged record"
// @Failure      400 {object} types.ErrorResponse "Invalid request"
// @Failure      500 {object} types.ErrorResponse "Internal server error"
// @Router       /api/v1/performance/predictions [post]
func LogPrediction(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req PredictionRequest
		if !types.BindJSONOrError(c, &req) {
			return
		}

		rec, err := deps.Tracker.LogPrediction(
			req.ModelID,
			req.ImageID,
			req.PredictedClass,
			req.Confidence,
			req.AllPredictions,
			req.InferenceTimeMS,
			req.GroundTruth,
			req.Metadata,
		)
		if err != nil {
			types.SendInternalError(c, "Failed to log prediction")
			return
		}
		types.SendCreated(c, rec)
	}
}

// GetOverallMetrics returns overall aggregates
// @Summary      Overall metrics
// @Tags         performance
// @Produce      json
// @Success      200 {object} performance.OverallMetrics "Overall metrics"
// @Router       /api/v1/performance/metrics/overall [get]
func GetOverallMetrics(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		types.SendSuccess(c, deps.Tracker.OverallMetrics())
	}
}

// GetClassMetrics returns per-class aggregates
// @Summary      Per-class metrics
// @Tags         performance
// @Produce      json
// @Param        class query string false "Single class filter"
// @Success      200 {object} map[string]performance.ClassMetrics "Per-class metrics"
// @Router       /api/v1/performance/metrics/classes [get]
func GetClassMetrics(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		types.SendSuccess(c, deps.Tracker.ClassMetrics(c.Query("class")))
	}
}

// GetModelMetrics returns per-model aggregates with latency percentiles
// @Summary      Per-model metrics
// @Tags         performance
// @Produce      json
// @Param        model_id query string false "Single model filter"
// @Success      200 {object} map[string]performance.ModelMetrics "Per-model metrics"
// @Router       /api/v1/performance/metrics/models [get]
func GetModelMetrics(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		types.SendSuccess(c, deps.Tracker.ModelMetrics(c.Query("model_id")))
	}
}

// GetDailyTrends returns per-day metrics over a recent window
// @Summary      Daily trends
// @Tags         performance
// @Produce      json
// @Param        days query int false "Days back" default(30)
// @Success      200 {object} map[string]performance.DailyMetrics "Daily metrics keyed by date"
// @Router       /api/v1/performance/trends [get]
func GetDailyTrends(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		days := 30
		if raw := c.Query("days"); raw != "" {
			if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
				days = parsed
			}
		}
		types.SendSuccess(c, deps.Tracker.DailyTrends(days))
	}
}

// ConfusionMatrixRequest is the request body for a confusion matrix.
type ConfusionMatrixRequest struct {
	Classes []string `json:"classes" binding:"required"`
}

// GetConfusionMatrix replays the prediction log into a confusion matrix
// @Summary      Confusion matrix
// @Description  Full log replay over the requested class set; an analytics query, cost grows with log size
// @Tags         performance
// @Accept       json
// @Produce      json
// @Param        request body performance.ConfusionMatrixRequest true "Class set"
// @Success      200 {object} object{matrix=map[string]map[string]int} "Confusion matrix"
// @Failure      400 {object} types.ErrorResponse "Invalid request"
// @Router       /api/v1/performance/confusion-matrix [post]
func GetConfusionMatrix(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ConfusionMatrixRequest
		if !types.BindJSONOrError(c, &req) {
			return
		}
		matrix, err := deps.Tracker.ConfusionMatrix(req.Classes)
		if err != nil {
			types.SendInternalError(c, "Failed to build confusion matrix")
			return
		}
		c.JSON(http.StatusOK, gin.H{"matrix": matrix})
	}
}

// GetLowConfidence lists predictions below a confidence threshold
// @Summary      Low-confidence predictions
// @Tags         performance
// @Produce      json
// @Param        threshold query number false "Confidence threshold" default(0.7)
// @Param        limit query int false "Maximum records" default(100)
// @Success      200 {object} object{predictions=[]performance.PredictionRecord,count=int} "Matching records in log order"
// @Router       /api/v1/performance/low-confidence [get]
func GetLowConfidence(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		threshold := 0.7
		if raw := c.Query("threshold"); raw != "" {
			if parsed, err := strconv.ParseFloat(raw, 64); err == nil {
				threshold = parsed
			}
		}
		limit := 100
		if raw := c.Query("limit"); raw != "" {
			if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
				limit = parsed
			}
		}

		records, err := deps.Tracker.LowConfidence(threshold, limit)
		if err != nil {
			types.SendInternalError(c, "Failed to scan predictions")
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"predictions": records,
			"count":       len(records),
		})
	}
}

// GetDrift runs drift detection over the labeled prediction stream
// @Summary      Drift detection
// @Description  Compare historical and recent labeled accuracy windows; insufficient data yields a non-committal result
// @Tags         performance
// @Produce      json
// @Param        window query int false "Recent window size" default(100)
// @Success      200 {object} performance.DriftReport "Drift report"
// @Router       /api/v1/performance/drift [get]
func GetDrift(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		window := 0
		if raw := c.Query("window"); raw != "" {
			if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
				window = parsed
			}
		}
		report, err := deps.Tracker.DetectDrift(window)
		if err != nil {
			types.SendInternalError(c, "Failed to detect drift")
			return
		}
		types.SendSuccess(c, report)
	}
}
