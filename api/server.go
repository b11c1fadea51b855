package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/verdantlabs/cropsight/api/types"
	"github.com/verdantlabs/cropsight/internal/database"
)

// Settings carries the HTTP server tuning knobs from configuration.
// Zero values fall back to the standing defaults.
type Settings struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxHeaderBytes int
	MaxUploadBytes int64
	EnableCORS     bool
	CORSOrigins    []string
}

// Server represents the HTTP server
type Server struct {
	engine             *gin.Engine
	httpServer         *http.Server
	db                 *database.DB
	settings           Settings
	rateLimiters       *sync.Map
	cleanupInitialized sync.Once
	cleanupStop        chan struct{}

	// Dependencies for handlers
	dependencies *types.Dependencies
}

// NewServer creates a new HTTP server
func NewServer(address string, settings Settings) *Server {
	if settings.ReadTimeout <= 0 {
		settings.ReadTimeout = 60 * time.Second
	}
	if settings.WriteTimeout <= 0 {
		settings.WriteTimeout = 60 * time.Second
	}
	if settings.MaxHeaderBytes <= 0 {
		settings.MaxHeaderBytes = 1 << 20 // 1 MB
	}
	if settings.MaxUploadBytes <= 0 {
		// Image batches arrive as multipart uploads, so the cap is well
		// above the per-image size limit enforced by validation.
		settings.MaxUploadBytes = 256 * 1024 * 1024
	}

	// Create Gin engine with recovery middleware only
	engine := gin.New()
	engine.Use(gin.Recovery())

	server := &Server{
		engine:       engine,
		settings:     settings,
		rateLimiters: &sync.Map{},
		cleanupStop:  make(chan struct{}),
		httpServer: &http.Server{
			Addr:           address,
			Handler:        engine,
			ReadTimeout:    settings.ReadTimeout,
			WriteTimeout:   settings.WriteTimeout,
			IdleTimeout:    30 * time.Second,
			MaxHeaderBytes: settings.MaxHeaderBytes,
		},
	}

	return server
}

// SetDatabase sets the database connection
func (s *Server) SetDatabase(db *database.DB) {
	s.db = db
	if s.dependencies == nil {
		s.dependencies = &types.Dependencies{}
	}
	s.dependencies.DB = db
}

// SetDependencies sets all handler dependencies
func (s *Server) SetDependencies(deps *types.Dependencies) {
	s.dependencies = deps
}

// Engine returns the Gin engine for testing
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Initialize sets up middleware and routes
func (s *Server) Initialize() error {
	s.setupMiddleware()
	return s.setupRoutes()
}

// setupMiddleware configures global middleware
func (s *Server) setupMiddleware() {
	s.engine.Use(gin.Logger())
	if s.settings.EnableCORS {
		s.engine.Use(CORSWithOrigins(s.settings.CORSOrigins))
	}
	s.engine.Use(RequestSizeLimitWithSize(s.settings.MaxUploadBytes))
}

// setupRoutes delegates to the main route registration
func (s *Server) setupRoutes() error {
	return RegisterRoutes(s.engine, s.dependencies, s.rateLimiters, s.cleanupStop, &s.cleanupInitialized)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	// Stop the rate limiter cleanup goroutine
	close(s.cleanupStop)

	return s.httpServer.Shutdown(ctx)
}
