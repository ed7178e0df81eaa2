package app

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scout/internal/common"
	"github.com/ternarybob/scout/internal/handlers"
	"github.com/ternarybob/scout/internal/interfaces"
	"github.com/ternarybob/scout/internal/services/crawler"
	"github.com/ternarybob/scout/internal/services/events"
	"github.com/ternarybob/scout/internal/services/jobs"
	"github.com/ternarybob/scout/internal/services/scheduler"
	badgerstore "github.com/ternarybob/scout/internal/storage/badger"
	"github.com/ternarybob/scout/internal/storage/objectstore"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	// Storage
	db          *badgerstore.BadgerDB
	JobLogs     interfaces.JobLogStorage
	ObjectStore interfaces.ObjectStore

	// Services
	EventService interfaces.EventService
	JobManager   *jobs.Manager
	Scheduler    *scheduler.Service

	browserPool *crawler.BrowserPool

	// HTTP handlers
	JobHandler    *handlers.JobHandler
	HealthHandler *handlers.HealthHandler
	WSHandler     *handlers.WebSocketHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	// Event service and WebSocket handler come first so everything
	// downstream can stream logs and lifecycle events
	app.EventService = events.NewService(logger)
	app.WSHandler = handlers.NewWebSocketHandler(app.EventService, logger)
	logger.Debug().Msg("Event service initialized")

	if err := app.initStorage(); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	if err := app.initServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.initHandlers()

	logger.Info().
		Bool("object_storage", app.ObjectStore != nil).
		Bool("audit", cfg.Audit.Enabled).
		Bool("renderer", cfg.Renderer.Enabled).
		Msg("Application initialization complete")

	return app, nil
}

// VerifySignature checks a request signature against the shared secret.
func (a *App) VerifySignature(timestamp string, body []byte, signature string) bool {
	return common.VerifySignature(a.Config.Crawler.SharedSecret, timestamp, body, signature)
}

// initStorage opens the Badger job log store and, when enabled, the
// S3-compatible artifact store.
func (a *App) initStorage() error {
	db, err := badgerstore.NewBadgerDB(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return fmt.Errorf("failed to open badger database: %w", err)
	}
	a.db = db

	jobLogs := badgerstore.NewJobLogStorage(db, a.Logger)
	a.JobLogs = handlers.NewJobLogBroadcaster(jobLogs, a.WSHandler, &a.Config.WebSocket)
	a.Logger.Debug().
		Str("path", a.Config.Storage.Badger.Path).
		Msg("Job log storage initialized")

	if a.Config.Storage.Object.Enabled {
		store, err := objectstore.NewClient(a.Config.Storage.Object, a.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize object storage: %w", err)
		}
		a.ObjectStore = store
		a.Logger.Debug().
			Str("bucket", a.Config.Storage.Object.Bucket).
			Msg("Object storage initialized")
	}

	return nil
}

// initServices initializes business services in dependency order.
func (a *App) initServices() error {
	audit, err := a.buildAuditRunner()
	if err != nil {
		return err
	}
	render, err := a.buildRenderRunner()
	if err != nil {
		return err
	}

	a.JobManager = jobs.NewManager(
		a.Config.Crawler,
		a.ObjectStore,
		audit,
		render,
		a.EventService,
		a.JobLogs,
		a.Logger,
	)
	a.Logger.Debug().
		Int("max_concurrent_jobs", a.Config.Crawler.MaxConcurrentJobs).
		Msg("Job manager initialized")

	a.Scheduler = scheduler.NewService(
		a.JobManager,
		a.JobLogs,
		a.Config.Crawler.StaleJobThreshold,
		a.Config.Storage.Badger.RetentionDays,
		a.Logger,
	)
	if a.Config.Scheduler.Enabled {
		if err := a.Scheduler.Start(a.Config.Scheduler.MaintenanceSchedule); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
	}

	return nil
}

func (a *App) buildAuditRunner() (interfaces.AuditRunner, error) {
	if !a.Config.Audit.Enabled {
		return nil, nil
	}

	switch a.Config.Audit.Mode {
	case "remote":
		a.Logger.Debug().Str("mode", "remote").Msg("Audit runner initialized")
		return crawler.NewRemoteAuditRunner(a.Config.Audit.MaxConcurrent, a.Config.Crawler.APIBaseURL, a.Logger), nil
	default:
		a.Logger.Debug().Str("mode", "local").Msg("Audit runner initialized")
		return crawler.NewLocalAuditRunner(a.Config.Audit.MaxConcurrent, a.Logger), nil
	}
}

func (a *App) buildRenderRunner() (interfaces.RenderRunner, error) {
	if !a.Config.Renderer.Enabled {
		return nil, nil
	}

	switch a.Config.Renderer.Mode {
	case "chromedp":
		pool := crawler.NewBrowserPool(a.Config.Renderer.MaxConcurrent, a.Config.Crawler.UserAgent, a.Logger)
		if err := pool.Init(); err != nil {
			return nil, fmt.Errorf("failed to start browser pool: %w", err)
		}
		a.browserPool = pool
		a.Logger.Debug().Str("mode", "chromedp").Msg("Render runner initialized")
		return crawler.NewChromeRenderRunner(pool, a.Config.Renderer.MaxConcurrent, a.Logger), nil
	default:
		a.Logger.Debug().
			Str("mode", "script").
			Str("script_path", a.Config.Renderer.ScriptPath).
			Msg("Render runner initialized")
		return crawler.NewScriptRenderRunner(a.Config.Renderer.MaxConcurrent, a.Config.Renderer.ScriptPath, a.Logger), nil
	}
}

// initHandlers initializes all HTTP handlers
func (a *App) initHandlers() {
	a.JobHandler = handlers.NewJobHandler(a.JobManager, a.JobLogs, a.Logger)
	a.HealthHandler = handlers.NewHealthHandler(a.Logger)
	a.Logger.Debug().Msg("HTTP handlers initialized")
}

// Close closes all application resources
func (a *App) Close() error {
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}

	if a.JobManager != nil {
		if err := a.JobManager.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close job manager")
		}
	}

	if a.browserPool != nil {
		a.browserPool.Shutdown()
		a.Logger.Info().Msg("Browser pool stopped")
	}

	if a.EventService != nil {
		if err := a.EventService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close event service")
		}
	}

	if a.JobLogs != nil {
		if err := a.JobLogs.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}

	return nil
}
