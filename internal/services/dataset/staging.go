package dataset

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/verdantlabs/cropsight/internal/services/dedup"
	"github.com/verdantlabs/cropsight/internal/services/quality"
	"github.com/verdantlabs/cropsight/pkg/errors"
)

// Area is the staging area: images pass the quality gate and the
// duplicate check here before they can be committed into a version.
type Area struct {
	store          *Store
	gate           *quality.Gate
	dedupThreshold int
}

// NewArea creates a staging area backed by the given store.
func NewArea(store *Store, gate *quality.Gate, dedupThreshold int) *Area {
	return &Area{
		store:          store,
		gate:           gate,
		dedupThreshold: dedupThreshold,
	}
}

// AddImages runs a batch of candidate images for one class through the
// quality gate and the near-duplicate check, copying survivors into
// staging with a metadata sidecar. Per-image failures are recorded in
// the result and never abort the rest of the batch.
func (a *Area) AddImages(paths []string, className string, userMeta map[string]string) (*BatchResult, error) {
	if className == "" {
		return nil, errors.ValidationError("class", "class name must not be empty")
	}

	reg, err := a.store.Repo().Load()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorage, "loading dataset registry")
	}

	classDir := filepath.Join(a.store.StagingDir(), className)
	if err := os.MkdirAll(classDir, 0755); err != nil {
		return nil, errors.StorageError("creating staging class directory", err)
	}

	result := &BatchResult{
		Added:          []string{},
		Rejected:       []Rejection{},
		Duplicates:     []Duplicate{},
		TotalAttempted: len(paths),
	}

	for _, path := range paths {
		ok, reason, metrics := a.gate.Validate(path)
		if !ok {
			result.Rejected = append(result.Rejected, Rejection{
				Path:    path,
				Reason:  reason,
				Metrics: metrics,
			})
			continue
		}

		hash, err := dedup.Fingerprint(path)
		if err != nil {
			result.Rejected = append(result.Rejected, Rejection{
				Path:    path,
				Reason:  fmt.Sprintf("fingerprint failed: %v", err),
				Metrics: metrics,
			})
			continue
		}

		if existing, found := dedup.FindDuplicate(hash, reg.Fingerprints, a.dedupThreshold); found {
			result.Duplicates = append(result.Duplicates, Duplicate{
				Path:        path,
				DuplicateOf: existing,
			})
			continue
		}

		// The staged name carries the detected format's extension so
		// version counting and manifest export see a canonical tree.
		filename := fmt.Sprintf("%s_%s%s",
			time.Now().Format("20060102_150405"),
			uuid.New().String()[:8],
			extensionFor(metrics.Format))
		destPath := filepath.Join(classDir, filename)

		if err := copyFile(path, destPath); err != nil {
			result.Rejected = append(result.Rejected, Rejection{
				Path:    path,
				Reason:  fmt.Sprintf("copy to staging failed: %v", err),
				Metrics: metrics,
			})
			continue
		}

		meta := ImageMetadata{
			OriginalPath: path,
			Class:        className,
			AddedAt:      time.Now(),
			Quality:      metrics,
			Fingerprint:  hash,
			UserMetadata: userMeta,
		}
		if err := writeSidecar(destPath, meta); err != nil {
			log.Printf("[WARN] Failed to write metadata sidecar for %s: %v", destPath, err)
		}

		reg.Fingerprints[hash] = destPath
		result.Added = append(result.Added, destPath)
	}

	if err := a.store.Repo().Save(reg); err != nil {
		// Remove this batch's copies so no staged image sits around
		// without a recorded fingerprint.
		for _, staged := range result.Added {
			if rmErr := os.Remove(staged); rmErr != nil && !os.IsNotExist(rmErr) {
				log.Printf("[WARN] Failed to remove staged file %s: %v", staged, rmErr)
			}
			if rmErr := os.Remove(sidecarPath(staged)); rmErr != nil && !os.IsNotExist(rmErr) {
				log.Printf("[WARN] Failed to remove metadata sidecar for %s: %v", staged, rmErr)
			}
		}
		return nil, errors.Wrap(err, errors.ErrCodeStorage, "persisting fingerprint index")
	}

	log.Printf("[INFO] Staged batch for class %s: %d added, %d rejected, %d duplicates",
		className, len(result.Added), len(result.Rejected), len(result.Duplicates))

	return result, nil
}

// Summary reports the current staging contents by class.
func (a *Area) Summary() (*StagingSummary, error) {
	summary := &StagingSummary{Classes: make(map[string]int)}

	classes, err := listSubdirs(a.store.StagingDir())
	if err != nil {
		return nil, errors.StorageError("reading staging area", err)
	}

	for _, className := range classes {
		count, err := countImages(filepath.Join(a.store.StagingDir(), className))
		if err != nil {
			return nil, errors.StorageError("counting staged images", err)
		}
		summary.Classes[className] = count
		summary.TotalImages += count
	}
	summary.TotalClasses = len(classes)

	return summary, nil
}

func extensionFor(format string) string {
	if format == "png" {
		return ".png"
	}
	return ".jpg"
}

func sidecarPath(imagePath string) string {
	return imagePath[:len(imagePath)-len(filepath.Ext(imagePath))] + ".json"
}

func writeSidecar(imagePath string, meta ImageMetadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(sidecarPath(imagePath), data, 0644)
}
