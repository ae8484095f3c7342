package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihttp "github.com/conveyorci/conveyor/internal/api/http"
	"github.com/conveyorci/conveyor/internal/api/middleware"
	"github.com/conveyorci/conveyor/internal/command"
	"github.com/conveyorci/conveyor/internal/config"
	"github.com/conveyorci/conveyor/internal/coverage"
	"github.com/conveyorci/conveyor/internal/engine"
	"github.com/conveyorci/conveyor/internal/events"
	"github.com/conveyorci/conveyor/internal/git"
	"github.com/conveyorci/conveyor/internal/infrastructure/monitoring"
	"github.com/conveyorci/conveyor/internal/logging"
	"github.com/conveyorci/conveyor/internal/pipeline"
	"github.com/conveyorci/conveyor/internal/release"
	"github.com/conveyorci/conveyor/internal/secrets"
	"github.com/conveyorci/conveyor/internal/stages"
	"github.com/conveyorci/conveyor/internal/store"
	"github.com/conveyorci/conveyor/internal/ws"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	cfg     *config.Config
	log     *logging.Logger
	http    *http.Server
	manager *pipeline.Manager
	broker  *events.Broker
}

// New assembles the orchestrator: stores, stage executors, engine, and
// the HTTP surface.
func New(cfg *config.Config, log *logging.Logger) (*Server, error) {
	metrics := monitoring.NewMetrics()
	broker := events.NewBroker()
	secretStore := secrets.FromEnv()

	workflows := store.NewWorkflows()
	runs := store.NewRuns()

	if cfg.Engine.WorkflowsDir != "" {
		n, err := workflows.LoadDir(cfg.Engine.WorkflowsDir)
		if err != nil {
			log.Warn("failed to load workflows directory",
				zap.String("dir", cfg.Engine.WorkflowsDir), zap.Error(err))
		} else {
			log.Info("workflows loaded",
				zap.String("dir", cfg.Engine.WorkflowsDir), zap.Int("count", n))
		}
	}

	registry := stages.NewRegistry()
	if err := registerStages(registry, cfg, metrics, log); err != nil {
		return nil, err
	}

	eng := engine.New(registry, broker, secretStore, metrics, log, engine.Options{
		MaxParallel: cfg.Engine.MaxParallel,
		Workspace:   cfg.Git.Workspace,
	})
	manager := pipeline.NewManager(workflows, runs, eng, log)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	router.Use(monitoring.Middleware(metrics))
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	handlers := apihttp.NewHandlers(workflows, runs, manager, registry, metrics)
	wsHandler := ws.NewHandler(broker, runs, metrics, log)
	auth := middleware.Auth(cfg.Auth.TokenHash)

	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)
	router.GET("/stats", handlers.Stats)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Workflow management
	router.POST("/workflows", auth, handlers.SaveWorkflow)
	router.GET("/workflows", handlers.ListWorkflows)
	router.GET("/workflows/:name", handlers.GetWorkflow)
	router.POST("/workflows/:name/runs", auth, handlers.StartRun)

	// Triggers and runs
	router.POST("/events", auth, handlers.Trigger)
	router.GET("/runs", handlers.ListRuns)
	router.GET("/runs/:id", handlers.GetRun)
	router.GET("/runs/:id/coverage", handlers.GetRunCoverage)
	router.POST("/runs/:id/cancel", auth, handlers.CancelRun)

	// Stage discovery
	router.GET("/stages", handlers.ListStages)

	// WebSocket
	router.GET("/runs/:id/stream", wsHandler.StreamRun)

	return &Server{
		cfg: cfg,
		log: log,
		http: &http.Server{
			Addr:              cfg.Server.Host + ":" + cfg.Server.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		manager: manager,
		broker:  broker,
	}, nil
}

// Run starts the server
func (s *Server) Run() error {
	s.log.Info("server starting", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight runs.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.http.Shutdown(ctx)
	s.manager.Wait()
	return err
}

// registerStages wires the built-in stage executors.
func registerStages(registry *stages.Registry, cfg *config.Config, metrics *monitoring.Metrics, log *logging.Logger) error {
	runner := command.NewShellRunner(cfg.Engine.Shell)

	covClient := coverage.NewClient(coverage.Config{
		URL:   cfg.Coverage.URL,
		Token: cfg.Coverage.Token,
	})

	repo := git.NewCLI(cfg.Git.Workspace, runner)
	indexClient := release.NewIndexClient(release.IndexConfig{
		URL:        cfg.Index.URL,
		Token:      cfg.Index.Token,
		Repository: cfg.Index.Repository,
	})
	releaser := release.NewReleaser(cfg.Git.Workspace, repo, indexClient, log)

	providers := []stages.Provider{
		stages.NewLint(runner),
		stages.NewTest(runner, covClient, log),
		stages.NewDocs(runner, log),
		stages.NewRelease(releaser, metrics, log),
	}
	for _, p := range providers {
		if err := registry.Register(p); err != nil {
			return err
		}
		log.Info("stage registered", zap.String("stage", p.Definition().ID))
	}
	return nil
}
