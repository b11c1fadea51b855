package dataset

import (
	"time"

	"github.com/verdantlabs/cropsight/internal/services/quality"
)

// Registry is the cumulative persisted dataset state: every committed
// version, per-class aggregate counts, and the fingerprint index used
// for near-duplicate detection. It is owned exclusively by the Store;
// every mutation is followed by a whole-file replace of the backing
// record for crash consistency.
type Registry struct {
	Versions     []VersionInfo         `json:"versions"`
	Classes      map[string]*ClassInfo `json:"classes"`
	TotalImages  int                   `json:"total_images"`
	LastUpdated  *time.Time            `json:"last_updated"`
	Fingerprints map[string]string     `json:"image_hashes"`
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		Versions:     []VersionInfo{},
		Classes:      make(map[string]*ClassInfo),
		Fingerprints: make(map[string]string),
	}
}

// ClassInfo tracks a class across all committed versions.
type ClassInfo struct {
	TotalImages int      `json:"total_images"`
	Versions    []string `json:"versions"`
}

// VersionInfo is an immutable named snapshot of committed images.
type VersionInfo struct {
	Name        string                  `json:"name"`
	CreatedAt   time.Time               `json:"created_at"`
	Classes     map[string]VersionClass `json:"classes"`
	TotalImages int                     `json:"total_images"`
}

// VersionClass records one class inside a version.
type VersionClass struct {
	ImageCount int    `json:"image_count"`
	Path       string `json:"path"`
}

// Repository persists the dataset registry. Implementations must make
// Save atomic (no partially written registry visible after a crash).
type Repository interface {
	Load() (*Registry, error)
	Save(reg *Registry) error
}

// Manifest is the flat export consumed by the external training process.
type Manifest struct {
	Version     string          `json:"version"`
	CreatedAt   time.Time       `json:"created_at"`
	TotalImages int             `json:"total_images"`
	NumClasses  int             `json:"num_classes"`
	Classes     []ManifestClass `json:"classes"`
	Images      []ManifestImage `json:"images"`
}

// ManifestClass maps a class name to its numeric training id.
type ManifestClass struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// ManifestImage is one training sample entry.
type ManifestImage struct {
	Path     string `json:"path"`
	Class    string `json:"class"`
	ClassID  int    `json:"class_id"`
	Filename string `json:"filename"`
}

// Statistics summarizes the whole dataset.
type Statistics struct {
	TotalVersions  int                       `json:"total_versions"`
	TotalImages    int                       `json:"total_images"`
	TotalClasses   int                       `json:"total_classes"`
	Classes        map[string]ClassStatistic `json:"classes"`
	RecentVersions []VersionInfo             `json:"recent_versions"`
}

// ClassStatistic is the per-class slice of Statistics.
type ClassStatistic struct {
	TotalImages int     `json:"total_images"`
	Versions    int     `json:"versions"`
	Percentage  float64 `json:"percentage"`
}

// StagingSummary enumerates current staging contents.
type StagingSummary struct {
	TotalClasses int            `json:"total_classes"`
	TotalImages  int            `json:"total_images"`
	Classes      map[string]int `json:"classes"`
}

// BatchResult summarizes one staging batch. Individual validation or
// dedup failures never abort the batch; every file is accounted for.
type BatchResult struct {
	Added          []string    `json:"added"`
	Rejected       []Rejection `json:"rejected"`
	Duplicates     []Duplicate `json:"duplicates"`
	TotalAttempted int         `json:"total_attempted"`
}

// Rejection records one image that failed the quality gate.
type Rejection struct {
	Path    string          `json:"path"`
	Reason  string          `json:"reason"`
	Metrics quality.Metrics `json:"metrics"`
}

// Duplicate records one image rejected as a near-duplicate.
type Duplicate struct {
	Path        string `json:"path"`
	DuplicateOf string `json:"duplicate_of"`
}

// ImageMetadata is the sidecar record written next to each staged image.
type ImageMetadata struct {
	OriginalPath string            `json:"original_path"`
	Class        string            `json:"class"`
	AddedAt      time.Time         `json:"added_at"`
	Quality      quality.Metrics   `json:"quality_metrics"`
	Fingerprint  string            `json:"hash"`
	UserMetadata map[string]string `json:"user_metadata"`
}
