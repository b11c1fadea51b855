package performance

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	predictionsFilename = "predictions.jsonl"
	metricsFilename     = "metrics.json"
)

// fileStore keeps the prediction log as append-only JSONL and the
// metrics snapshot as a whole-file-replaced JSON document.
type fileStore struct {
	basePath string
}

// NewFileStore creates a file-backed performance store rooted at baseDir.
func NewFileStore(baseDir string) (Store, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("creating performance directory: %w", err)
	}
	return &fileStore{basePath: baseDir}, nil
}

func (s *fileStore) predictionsPath() string {
	return filepath.Join(s.basePath, predictionsFilename)
}

func (s *fileStore) metricsPath() string {
	return filepath.Join(s.basePath, metricsFilename)
}

func (s *fileStore) AppendPrediction(rec PredictionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding prediction record: %w", err)
	}

	f, err := os.OpenFile(s.predictionsPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening prediction log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("appending prediction record: %w", err)
	}
	return nil
}

func (s *fileStore) ScanPredictions(fn func(rec PredictionRecord) bool) error {
	f, err := os.Open(s.predictionsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("opening prediction log: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec PredictionRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return fmt.Errorf("decoding prediction record: %w", err)
		}
		if !fn(rec) {
			return nil
		}
	}
	return scanner.Err()
}

func (s *fileStore) LoadMetrics() (*MetricsSnapshot, error) {
	data, err := os.ReadFile(s.metricsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return NewMetricsSnapshot(), nil
		}
		return nil, fmt.Errorf("reading metrics snapshot: %w", err)
	}

	snapshot := NewMetricsSnapshot()
	if err := json.Unmarshal(data, snapshot); err != nil {
		return nil, fmt.Errorf("decoding metrics snapshot: %w", err)
	}
	if snapshot.PerClass == nil {
		snapshot.PerClass = make(map[string]*ClassMetrics)
	}
	if snapshot.PerModel == nil {
		snapshot.PerModel = make(map[string]*ModelMetrics)
	}
	if snapshot.Daily == nil {
		snapshot.Daily = make(map[string]*DailyMetrics)
	}
	return snapshot, nil
}

func (s *fileStore) SaveMetrics(snapshot *MetricsSnapshot) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding metrics snapshot: %w", err)
	}

	tmpPath := s.metricsPath() + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("writing metrics snapshot: %w", err)
	}
	if err := os.Rename(tmpPath, s.metricsPath()); err != nil {
		return fmt.Errorf("replacing metrics snapshot: %w", err)
	}
	return nil
}
