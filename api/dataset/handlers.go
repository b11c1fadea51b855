package dataset

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/verdantlabs/cropsight/api/types"
)

// Upload ingests a batch of candidate images for one class
// @Summary      Upload images to staging
// @Description  Run a batch of images through quality validation and duplicate detection; survivors land in the staging area
// @Tags         dataset
// @Accept       multipart/form-data
// @Produce      json
// @Param        class formData string true "Disease class name"
// @Param        images formData file true "Image files (repeatable)"
// @Success      200 {object} object{status=string,result=dataset.BatchResult} "Batch outcome summary"
// @Failure      400 {object} types.ErrorResponse "Missing class or files"
// @Failure      500 {object} types.ErrorResponse "Internal server error"
// @Router       /api/v1/dataset/upload [post]
func Upload(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		className := c.PostForm("class")
		if className == "" {
			types.SendBadRequest(c, "class is required")
			return
		}

		form, err := c.MultipartForm()
		if err != nil {
			types.SendBadRequest(c, "invalid multipart form: "+err.Error())
			return
		}
		files := form.File["images"]
		if len(files) == 0 {
			types.SendBadRequest(c, "at least one image file is required")
			return
		}

		userMeta := map[string]string{}
		for key, values := range form.Value {
			if key == "class" || len(values) == 0 {
				continue
			}
			userMeta[key] = values[0]
		}

		// Uploads are spooled to a scratch directory so the staging
		// pipeline sees ordinary files.
		tmpDir, err := os.MkdirTemp("", "cropsight-upload-*")
		if err != nil {
			types.SendInternalError(c, "failed to create upload directory")
			return
		}
		defer os.RemoveAll(tmpDir)

		paths := make([]string, 0, len(files))
		for i, file := range files {
			dst := filepath.Join(tmpDir, fmt.Sprintf("%03d_%s", i, filepath.Base(file.Filename)))
			if err := c.SaveUploadedFile(file, dst); err != nil {
				log.Printf("[ERROR] Failed to save upload %s: %v", file.Filename, err)
				types.SendInternalError(c, "failed to save uploaded file")
				return
			}
			paths = append(paths, dst)
		}

		result, err := deps.StagingArea.AddImages(paths, className, userMeta)
		if err != nil {
			types.SendAppError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": types.StatusOK,
			"result": result,
		})
	}
}

// GetStaging reports current staging contents
// @Summary      Staging summary
// @Description  Enumerate staged images per class without touching committed versions
// @Tags         dataset
// @Produce      json
// @Success      200 {object} dataset.StagingSummary "Staging summary"
// @Failure      500 {object} types.ErrorResponse "Internal server error"
// @Router       /api/v1/dataset/staging [get]
func GetStaging(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		summary, err := deps.StagingArea.Summary()
		if err != nil {
			types.SendAppError(c, err)
			return
		}
		types.SendSuccess(c, summary)
	}
}

// CommitRequest is the request body for committing staged images.
type CommitRequest struct {
	VersionName string `json:"version_name"`
}

// Commit promotes staged images into a new dataset version
// @Summary      Commit staging to a version
// @Description  Create an immutable dataset version from the current staging contents; version name is auto-generated when omitted
// @Tags         dataset
// @Accept       json
// @Produce      json
// @Param        request body dataset.CommitRequest false "Optional version name"
// @Success      201 {object} object{status=string,version=dataset.VersionInfo} "Created version"
// @Failure      400 {object} types.ErrorResponse "Empty staging area"
// @Failure      409 {object} types.ErrorResponse "Version name already exists"
// @Failure      500 {object} types.ErrorResponse "Internal server error"
// @Router       /api/v1/dataset/commit [post]
func Commit(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CommitRequest
		if c.Request.ContentLength > 0 {
			if !types.BindJSONOrError(c, &req) {
				return
			}
		}

		version, err := deps.DatasetStore.Commit(req.VersionName)
		if err != nil {
			types.SendAppError(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"status":  types.StatusOK,
			"version": version,
		})
	}
}

// ListVersions lists all committed dataset versions
// @Summary      List dataset versions
// @Tags         dataset
// @Produce      json
// @Success      200 {object} object{versions=[]dataset.VersionInfo,count=int} "Committed versions"
// @Failure      500 {object} types.ErrorResponse "Internal server error"
// @Router       /api/v1/dataset/versions [get]
func ListVersions(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		versions, err := deps.DatasetStore.ListVersions()
		if err != nil {
			types.SendAppError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"versions": versions,
			"count":    len(versions),
		})
	}
}

// GetVersion returns one dataset version by name
// @Summary      Get dataset version
// @Tags         dataset
// @Produce      json
// @Param        name path string true "Version name"
// @Success      200 {object} dataset.VersionInfo "Version info"
// @Failure      404 {object} types.ErrorResponse "Version not found"
// @Router       /api/v1/dataset/versions/{name} [get]
func GetVersion(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		version, err := deps.DatasetStore.Version(c.Param("name"))
		if err != nil {
			types.SendAppError(c, err)
			return
		}
		types.SendSuccess(c, version)
	}
}

// ManifestRequest is the request body for manifest export.
type ManifestRequest struct {
	Version    string `json:"version"`
	OutputPath string `json:"output_path"`
}

// ExportManifest writes a training manifest for a version
// @Summary      Export training manifest
// @Description  Write the flat manifest (class ids, image paths) consumed by the training process; defaults to the latest version
// @Tags         dataset
// @Accept       json
// @Produce      json
// @Param        request body dataset.ManifestRequest false "Version and output path"
// @Success      200 {object} object{status=string,manifest_path=string} "Manifest location"
// @Failure      404 {object} types.ErrorResponse "Version not found"
// @Failure      500 {object} types.ErrorResponse "Internal server error"
// @Router       /api/v1/dataset/manifest [post]
func ExportManifest(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ManifestRequest
		if c.Request.ContentLength > 0 {
			if !types.BindJSONOrError(c, &req) {
				return
			}
		}
		if req.OutputPath == "" {
			req.OutputPath = filepath.Join(deps.DatasetStore.VersionsDir(), "..", "manifest.json")
		}

		path, err := deps.DatasetStore.ExportManifest(req.OutputPath, req.Version)
		if err != nil {
			types.SendAppError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":        types.StatusOK,
			"manifest_path": path,
		})
	}
}

// GetClasses lists registered classes with their image counts
// @Summary      List classes
// @Tags         dataset
// @Produce      json
// @Success      200 {object} object{classes=map[string]dataset.ClassInfo,count=int} "Registered classes"
// @Failure      500 {object} types.ErrorResponse "Internal server error"
// @Router       /api/v1/dataset/classes [get]
func GetClasses(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		classes, err := deps.DatasetStore.Classes()
		if err != nil {
			types.SendAppError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"classes": classes,
			"count":   len(classes),
		})
	}
}

// GetStatistics summarizes the whole dataset
// @Summary      Dataset statistics
// @Tags         dataset
// @Produce      json
// @Success      200 {object} dataset.Statistics "Dataset statistics"
// @Failure      500 {object} types.ErrorResponse "Internal server error"
// @Router       /api/v1/dataset/statistics [get]
func GetStatistics(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := deps.DatasetStore.Statistics()
		if err != nil {
			types.SendAppError(c, err)
			return
		}
		types.SendSuccess(c, stats)
	}
}
