package dataset

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/verdantlabs/cropsight/pkg/errors"
)

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// Store is the dataset version store: it owns the staging and versions
// directory trees and the cumulative registry. Commit and staging
// mutations are not safe to run concurrently with each other and must be
// serialized by the caller (single admin operation at a time).
type Store struct {
	basePath string
	repo     Repository
}

// NewStore creates a version store rooted at basePath, creating the
// staging and versions directories if needed.
func NewStore(basePath string, repo Repository) (*Store, error) {
	for _, dir := range []string{basePath, filepath.Join(basePath, "staging"), filepath.Join(basePath, "versions")} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating dataset directory %s: %w", dir, err)
		}
	}
	return &Store{basePath: basePath, repo: repo}, nil
}

// StagingDir returns the root of the staging tree.
func (s *Store) StagingDir() string {
	return filepath.Join(s.basePath, "staging")
}

// VersionsDir returns the root of the committed versions tree.
func (s *Store) VersionsDir() string {
	return filepath.Join(s.basePath, "versions")
}

// Repo exposes the registry repository for collaborators that share the
// fingerprint index (the staging area).
func (s *Store) Repo() Repository {
	return s.repo
}

// Commit promotes the current staging contents into a new immutable
// version. With an empty name a version name is synthesized from the
// running version counter and a timestamp. The ordering is deliberate:
// every class subtree is copied into the version directory and the
// registry is persisted before staging is cleared, so a failure partway
// through leaves staging non-empty and retryable instead of losing data.
func (s *Store) Commit(versionName string) (*VersionInfo, error) {
	reg, err := s.repo.Load()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorage, "loading dataset registry")
	}

	if versionName == "" {
		versionName = fmt.Sprintf("v%d_%s", len(reg.Versions)+1, time.Now().Format("20060102_150405"))
	}
	for _, v := range reg.Versions {
		if v.Name == versionName {
			return nil, errors.AlreadyExists("dataset version", versionName)
		}
	}

	stagingClasses, err := listSubdirs(s.StagingDir())
	if err != nil {
		return nil, errors.StorageError("reading staging area", err)
	}
	if len(stagingClasses) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "staging area is empty, nothing to commit")
	}

	versionDir := filepath.Join(s.VersionsDir(), versionName)
	if _, statErr := os.Stat(versionDir); statErr == nil {
		return nil, errors.AlreadyExists("dataset version", versionName)
	}
	if err := os.MkdirAll(versionDir, 0755); err != nil {
		return nil, errors.StorageError("creating version directory", err)
	}

	version := VersionInfo{
		Name:      versionName,
		CreatedAt: time.Now(),
		Classes:   make(map[string]VersionClass),
	}

	for _, className := range stagingClasses {
		src := filepath.Join(s.StagingDir(), className)
		dst := filepath.Join(versionDir, className)

		if err := copyTree(src, dst); err != nil {
			// Leave staging untouched; drop the partial version so the
			// commit can be retried under the same name.
			if rmErr := os.RemoveAll(versionDir); rmErr != nil {
				log.Printf("[WARN] Failed to remove partial version directory %s: %v", versionDir, rmErr)
			}
			return nil, errors.StorageError("copying staging class "+className, err)
		}

		count, err := countImages(dst)
		if err != nil {
			if rmErr := os.RemoveAll(versionDir); rmErr != nil {
				log.Printf("[WARN] Failed to remove partial version directory %s: %v", versionDir, rmErr)
			}
			return nil, errors.StorageError("counting images in "+dst, err)
		}

		version.Classes[className] = VersionClass{ImageCount: count, Path: dst}
		version.TotalImages += count

		info, ok := reg.Classes[className]
		if !ok {
			info = &ClassInfo{}
			reg.Classes[className] = info
		}
		info.TotalImages += count
		info.Versions = append(info.Versions, versionName)
	}

	reg.Versions = append(reg.Versions, version)
	reg.TotalImages += version.TotalImages

	if err := s.repo.Save(reg); err != nil {
		if rmErr := os.RemoveAll(versionDir); rmErr != nil {
			log.Printf("[WARN] Failed to remove partial version directory %s: %v", versionDir, rmErr)
		}
		return nil, errors.Wrap(err, errors.ErrCodeStorage, "persisting dataset registry")
	}

	// Clear staging last. At this point the version is durable; leftover
	// staging content would only be re-committed, never lost.
	for _, className := range stagingClasses {
		if err := os.RemoveAll(filepath.Join(s.StagingDir(), className)); err != nil {
			log.Printf("[WARN] Failed to clear staging class %s: %v", className, err)
		}
	}

	log.Printf("[INFO] Committed dataset version %s (%d images, %d classes)",
		versionName, version.TotalImages, len(version.Classes))

	return &version, nil
}

// Version returns the named version, or the most recently committed one
// when name is empty.
func (s *Store) Version(name string) (*VersionInfo, error) {
	reg, err := s.repo.Load()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorage, "loading dataset registry")
	}

	if name == "" {
		if len(reg.Versions) == 0 {
			return nil, errors.New(errors.ErrCodeNotFound, "no dataset versions available")
		}
		latest := reg.Versions[len(reg.Versions)-1]
		return &latest, nil
	}

	for _, v := range reg.Versions {
		if v.Name == name {
			version := v
			return &version, nil
		}
	}
	return nil, errors.NotFound("dataset version", name)
}

// ListVersions returns all committed versions in commit order.
func (s *Store) ListVersions() ([]VersionInfo, error) {
	reg, err := s.repo.Load()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorage, "loading dataset registry")
	}
	return reg.Versions, nil
}

// ExportManifest writes the training manifest for a version (latest when
// version is empty) to outputPath and returns the written path.
func (s *Store) ExportManifest(outputPath, versionName string) (string, error) {
	version, err := s.Version(versionName)
	if err != nil {
		return "", err
	}

	manifest := Manifest{
		Version:     version.Name,
		CreatedAt:   version.CreatedAt,
		TotalImages: version.TotalImages,
		NumClasses:  len(version.Classes),
		Classes:     []ManifestClass{},
		Images:      []ManifestImage{},
	}

	// Class ids are assigned in sorted name order so the mapping is
	// stable across exports of the same version.
	classNames := make([]string, 0, len(version.Classes))
	for name := range version.Classes {
		classNames = append(classNames, name)
	}
	sort.Strings(classNames)

	for idx, className := range classNames {
		info := version.Classes[className]
		manifest.Classes = append(manifest.Classes, ManifestClass{
			ID:    idx,
			Name:  className,
			Count: info.ImageCount,
		})

		entries, err := os.ReadDir(info.Path)
		if err != nil {
			return "", errors.StorageError("reading version class directory", err)
		}
		for _, entry := range entries {
			if entry.IsDir() || !isImageFile(entry.Name()) {
				continue
			}
			absPath, err := filepath.Abs(filepath.Join(info.Path, entry.Name()))
			if err != nil {
				return "", errors.StorageError("resolving image path", err)
			}
			manifest.Images = append(manifest.Images, ManifestImage{
				Path:     absPath,
				Class:    className,
				ClassID:  idx,
				Filename: entry.Name(),
			})
		}
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInternal, "encoding manifest")
	}
	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return "", errors.StorageError("writing manifest", err)
	}

	return outputPath, nil
}

// Statistics returns dataset totals, per-class shares, and the five most
// recently committed versions.
func (s *Store) Statistics() (*Statistics, error) {
	reg, err := s.repo.Load()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorage, "loading dataset registry")
	}

	stats := &Statistics{
		TotalVersions:  len(reg.Versions),
		TotalImages:    reg.TotalImages,
		TotalClasses:   len(reg.Classes),
		Classes:        make(map[string]ClassStatistic),
		RecentVersions: []VersionInfo{},
	}

	for className, info := range reg.Classes {
		var pct float64
		if reg.TotalImages > 0 {
			pct = float64(info.TotalImages) / float64(reg.TotalImages) * 100
		}
		stats.Classes[className] = ClassStatistic{
			TotalImages: info.TotalImages,
			Versions:    len(info.Versions),
			Percentage:  pct,
		}
	}

	if n := len(reg.Versions); n > 0 {
		start := n - 5
		if start < 0 {
			start = 0
		}
		stats.RecentVersions = append(stats.RecentVersions, reg.Versions[start:]...)
	}

	return stats, nil
}

// Classes returns the cumulative per-class registry info.
func (s *Store) Classes() (map[string]*ClassInfo, error) {
	reg, err := s.repo.Load()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorage, "loading dataset registry")
	}
	return reg.Classes, nil
}

func listSubdirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func isImageFile(name string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(name))]
}

func countImages(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, entry := range entries {
		if !entry.IsDir() && isImageFile(entry.Name()) {
			count++
		}
	}
	return count, nil
}

func copyTree(src, dst string) error {
	if err := os.MkdirAll(dst, 0755); err != nil {
		return err
	}
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())
		if entry.IsDir() {
			if err := copyTree(srcPath, dstPath); err != nil {
				return err
			}
			continue
		}
		if err := copyFile(srcPath, dstPath); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
