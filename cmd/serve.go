package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/verdantlabs/cropsight/api"
	"github.com/verdantlabs/cropsight/api/types"
	"github.com/verdantlabs/cropsight/internal/database"
	"github.com/verdantlabs/cropsight/internal/models"
	"github.com/verdantlabs/cropsight/internal/services/dataset"
	"github.com/verdantlabs/cropsight/internal/services/dedup"
	"github.com/verdantlabs/cropsight/internal/services/experiments"
	"github.com/verdantlabs/cropsight/internal/services/performance"
	"github.com/verdantlabs/cropsight/internal/services/quality"
	"github.com/verdantlabs/cropsight/internal/services/registry"
	"github.com/verdantlabs/cropsight/internal/services/training"
	"github.com/verdantlabs/cropsight/pkg/config"
)

var (
	serverHost string
	serverPort int
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long: `Start the CropSight API server with the configured settings.

Example:
  cropsight serve
  cropsight serve --port 9090
  cropsight serve --host 0.0.0.0 --port 8080`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	// Server flags
	serveCmd.Flags().StringVar(&serverHost, "host", "", "server host (overrides config)")
	serveCmd.Flags().IntVar(&serverPort, "port", 0, "server port (overrides config)")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.GetConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Use config values if flags not provided
	if serverHost == "" {
		serverHost = cfg.Server.Host
	}
	if serverPort == 0 {
		serverPort = cfg.Server.Port
	}

	db, err := database.Initialize(cfg.Database.Path, cfg.Database.Verbose)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	deps, runner, err := buildDependencies(cfg, db)
	if err != nil {
		return err
	}

	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := api.NewServer(fmt.Sprintf("%s:%d", serverHost, serverPort), api.Settings{
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		EnableCORS:     cfg.Security.EnableCORS,
		CORSOrigins:    cfg.Security.CORSOrigins,
	})
	srv.SetDependencies(deps)
	if err := srv.Initialize(); err != nil {
		return fmt.Errorf("initializing server: %w", err)
	}

	// Launch queued experiments in the background whenever the training
	// slot is free.
	pollCtx, pollCancel := context.WithCancel(context.Background())
	defer pollCancel()
	go runner.Poll(pollCtx, cfg.Training.PollInterval, deps.ExperimentService)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			serverErr <- fmt.Errorf("server error: %w", err)
		}
	}()

	fmt.Printf("CropSight API listening on %s:%d\n", serverHost, serverPort)

	select {
	case <-stop:
		fmt.Println("\nShutting down server...")
	case err := <-serverErr:
		fmt.Fprintf(os.Stderr, "\n%v\n", err)
		fmt.Println("Shutting down server...")
	}

	pollCancel()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Server forced to shutdown: %v\n", err)
		return err
	}

	// Let any in-flight training run finish writing its logs.
	runner.Wait()

	fmt.Println("Server gracefully stopped")
	return nil
}

// buildDependencies wires every service from configuration.
func buildDependencies(cfg *config.Config, db *database.DB) (*types.Dependencies, *training.Runner, error) {
	repo := dataset.NewFileRepository(cfg.Dataset.BasePath)
	store, err := dataset.NewStore(cfg.Dataset.BasePath, repo)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing dataset store: %w", err)
	}

	gate := quality.NewGate(quality.Thresholds{
		MinDimension:  cfg.Dataset.MinDimension,
		MaxFileSizeMB: cfg.Dataset.MaxFileSizeMB,
		BlurThreshold: cfg.Dataset.BlurThreshold,
		MinBrightness: cfg.Dataset.MinBrightness,
		MaxBrightness: cfg.Dataset.MaxBrightness,
	})

	dedupThreshold := cfg.Dataset.DedupThreshold
	if dedupThreshold <= 0 {
		dedupThreshold = dedup.DefaultThreshold
	}
	staging := dataset.NewArea(store, gate, dedupThreshold)

	perfStore, err := performance.NewFileStore(cfg.Performance.BasePath)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing performance store: %w", err)
	}
	tracker, err := performance.NewTracker(perfStore, cfg.Performance.DriftWindowSize)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing performance tracker: %w", err)
	}

	expService := experiments.NewService(
		experiments.NewRepository(db.DB),
		tracker,
		experiments.RetrainSettings{
			AccuracyThreshold: cfg.Performance.AccuracyThreshold,
			RetrainConfigName: "auto_retrain",
			RetrainPriority:   8,
		},
		experiments.ScheduleDefaults{
			MaxEpochs: cfg.Training.DefaultEpochs,
			Patience:  cfg.Training.DefaultPatience,
		},
	)

	configs, err := training.NewConfigStore(cfg.Training.BasePath)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing training config store: %w", err)
	}
	runner, err := training.NewRunner(training.Settings{
		BasePath:     cfg.Training.BasePath,
		PythonBinary: cfg.Training.PythonBinary,
		TrainScript:  cfg.Training.TrainScript,
	}, configs, expService)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing training runner: %w", err)
	}

	deps := &types.Dependencies{
		DB:                db,
		DatasetStore:      store,
		StagingArea:       staging,
		ExperimentService: expService,
		TrainingConfigs:   configs,
		TrainingRunner:    runner,
		Tracker:           tracker,
		ModelRegistry:     registry.NewService(db.DB),
	}
	return deps, runner, nil
}
