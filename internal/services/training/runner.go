package training

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/verdantlabs/cropsight/internal/models"
	"github.com/verdantlabs/cropsight/internal/services/experiments"
	"github.com/verdantlabs/cropsight/pkg/errors"
)

// Ledger is the slice of the experiment service the runner needs to
// drive the status state machine.
type Ledger interface {
	Start(ctx context.Context, id uint) (bool, error)
	Complete(ctx context.Context, id uint, metrics map[string]float64, modelPath string) error
	Fail(ctx context.Context, id uint, errorMsg string) error
}

// Settings configures the external training process.
type Settings struct {
	BasePath     string
	PythonBinary string
	TrainScript  string
}

// Runner launches the external training process for one experiment at a
// time. A second launch while a run is active fails that experiment
// rather than queueing; scheduling order is the ledger's concern.
type Runner struct {
	settings Settings
	configs  *ConfigStore
	ledger   Ledger

	mu      sync.Mutex
	current uint
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewRunner creates a training runner. The experiments output directory
// is created under the base path.
func NewRunner(settings Settings, configs *ConfigStore, ledger Ledger) (*Runner, error) {
	if settings.PythonBinary == "" {
		settings.PythonBinary = "python3"
	}
	if settings.TrainScript == "" {
		settings.TrainScript = filepath.Join(settings.BasePath, "train.py")
	}
	if err := os.MkdirAll(filepath.Join(settings.BasePath, "experiments"), 0755); err != nil {
		return nil, fmt.Errorf("creating experiments directory: %w", err)
	}
	return &Runner{settings: settings, configs: configs, ledger: ledger}, nil
}

// Launch claims the run slot and the experiment's pending -> running
// transition, then executes the training process in the background.
// The returned error covers only launch-time failures; training
// outcomes are reported through the ledger.
func (r *Runner) Launch(ctx context.Context, exp *models.Experiment) error {
	cfgPath := r.configs.Path(exp.ConfigName)
	if _, err := os.Stat(cfgPath); err != nil {
		if os.IsNotExist(err) {
			return errors.NotFound("training config", exp.ConfigName)
		}
		return errors.StorageError("checking training config", err)
	}

	r.mu.Lock()
	if r.current != 0 {
		busy := r.current
		r.mu.Unlock()
		return errors.Newf(errors.ErrCodeConflict, "training slot busy with experiment %d", busy)
	}

	started, err := r.ledger.Start(ctx, exp.ID)
	if err != nil {
		r.mu.Unlock()
		return err
	}
	if !started {
		r.mu.Unlock()
		return errors.Newf(errors.ErrCodeConflict, "experiment %d is not pending", exp.ID)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	r.current = exp.ID
	r.cancel = cancel
	r.wg.Add(1)
	r.mu.Unlock()

	go r.run(runCtx, exp, cfgPath)
	return nil
}

// Cancel stops the running process for the given experiment, if it is
// the one currently executing. The ledger transition to cancelled is
// the caller's responsibility; the killed process is reaped here.
func (r *Runner) Cancel(id uint) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current != id || r.cancel == nil {
		return false
	}
	r.cancel()
	return true
}

// Wait blocks until any in-flight training run has finished. Used
// during shutdown.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// PendingSource supplies the next pending experiment in priority order.
type PendingSource interface {
	NextPending(ctx context.Context) (*models.Experiment, error)
}

// Poll launches the next pending experiment whenever the run slot is
// free, checking every interval until the context is cancelled.
func (r *Runner) Poll(ctx context.Context, interval time.Duration, pending PendingSource) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		r.mu.Lock()
		busy := r.current != 0
		r.mu.Unlock()
		if busy {
			continue
		}

		exp, err := pending.NextPending(ctx)
		if err != nil {
			if !stderrors.Is(err, experiments.ErrNoPendingWork) {
				log.Printf("[WARN] Polling pending experiments: %v", err)
			}
			continue
		}
		if err := r.Launch(ctx, exp); err != nil {
			log.Printf("[WARN] Failed to launch queued experiment %d: %v", exp.ID, err)
		}
	}
}

func (r *Runner) run(ctx context.Context, exp *models.Experiment, cfgPath string) {
	defer r.wg.Done()
	defer func() {
		r.mu.Lock()
		r.current = 0
		r.cancel = nil
		r.mu.Unlock()
	}()

	expDir := filepath.Join(r.settings.BasePath, "experiments", fmt.Sprintf("exp_%04d", exp.ID))
	if err := os.MkdirAll(expDir, 0755); err != nil {
		r.fail(exp.ID, fmt.Sprintf("creating experiment directory: %v", err))
		return
	}

	if err := r.writeRunConfig(expDir, exp, cfgPath); err != nil {
		log.Printf("[WARN] Failed to snapshot run config for experiment %d: %v", exp.ID, err)
	}

	args := []string{
		r.settings.TrainScript,
		"--config", cfgPath,
		"--output_dir", expDir,
		"--max_epochs", strconv.Itoa(exp.MaxEpochs),
		"--early_stopping_patience", strconv.Itoa(exp.Patience),
	}
	if exp.GPURequired {
		args = append(args, "--gpu", "true")
	}

	cmd := exec.CommandContext(ctx, r.settings.PythonBinary, args...)

	stdout, err := os.Create(filepath.Join(expDir, "stdout.log"))
	if err != nil {
		r.fail(exp.ID, fmt.Sprintf("creating stdout log: %v", err))
		return
	}
	defer stdout.Close()
	stderr, err := os.Create(filepath.Join(expDir, "stderr.log"))
	if err != nil {
		r.fail(exp.ID, fmt.Sprintf("creating stderr log: %v", err))
		return
	}
	defer stderr.Close()
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	log.Printf("[INFO] Launching training for experiment %d (config=%s)", exp.ID, exp.ConfigName)
	runErr := cmd.Run()

	if ctx.Err() == context.Canceled {
		// The ledger row was already moved to cancelled by the caller.
		log.Printf("[INFO] Training process for experiment %d stopped after cancellation", exp.ID)
		return
	}

	if runErr != nil {
		r.fail(exp.ID, readErrorTail(filepath.Join(expDir, "stderr.log"), runErr))
		return
	}

	metrics := readMetrics(filepath.Join(expDir, "metrics.json"))
	modelPath := findModelArtifact(expDir)

	if err := r.ledger.Complete(context.Background(), exp.ID, metrics, modelPath); err != nil {
		log.Printf("[ERROR] Failed to mark experiment %d completed: %v", exp.ID, err)
	}
}

func (r *Runner) fail(id uint, msg string) {
	if err := r.ledger.Fail(context.Background(), id, msg); err != nil {
		log.Printf("[ERROR] Failed to mark experiment %d failed: %v", id, err)
	}
}

func (r *Runner) writeRunConfig(expDir string, exp *models.Experiment, cfgPath string) error {
	cfgData, err := os.ReadFile(cfgPath)
	if err != nil {
		return err
	}
	snapshot := map[string]interface{}{
		"experiment": exp,
		"config":     json.RawMessage(cfgData),
	}
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(expDir, "config.json"), data, 0644)
}

// readErrorTail prefers the trainer's stderr output over the bare exec
// error, since the former names the actual failure.
func readErrorTail(stderrPath string, runErr error) string {
	data, err := os.ReadFile(stderrPath)
	if err != nil || len(data) == 0 {
		return runErr.Error()
	}
	return string(data)
}

// readMetrics loads the metrics the trainer wrote; a missing or broken
// file yields empty metrics, not a failed experiment.
func readMetrics(path string) map[string]float64 {
	data, err := os.ReadFile(path)
	if err != nil {
		return map[string]float64{}
	}
	var metrics map[string]float64
	if err := json.Unmarshal(data, &metrics); err != nil {
		log.Printf("[WARN] Unreadable metrics file %s: %v", path, err)
		return map[string]float64{}
	}
	return metrics
}

func findModelArtifact(expDir string) string {
	for _, name := range []string{"best_model.h5", "best_model.pth"} {
		path := filepath.Join(expDir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
