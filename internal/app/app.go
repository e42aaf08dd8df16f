package app

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/lingua/internal/common"
	"github.com/ternarybob/lingua/internal/handlers"
	"github.com/ternarybob/lingua/internal/interfaces"
	"github.com/ternarybob/lingua/internal/services/events"
	jobsvc "github.com/ternarybob/lingua/internal/services/jobs"
	"github.com/ternarybob/lingua/internal/services/scheduler"
	"github.com/ternarybob/lingua/internal/services/templates"
	"github.com/ternarybob/lingua/internal/services/translator"
	"github.com/ternarybob/lingua/internal/services/worker"
	"github.com/ternarybob/lingua/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager

	// Event-driven services
	EventService interfaces.EventService

	// Domain services
	TranslationService interfaces.TranslationService
	TemplateService    interfaces.TemplateService
	JobService         interfaces.JobService
	WorkerService      *worker.Service
	SchedulerService   *scheduler.Service

	// HTTP handlers
	APIHandler     *handlers.APIHandler
	WSHandler      *handlers.WebSocketHandler
	ProjectHandler *handlers.ProjectHandler
	FileHandler    *handlers.FileHandler
	SegmentHandler *handlers.SegmentHandler
	JobHandler     *handlers.JobHandler
	StatusHandler  *handlers.StatusHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := app.initServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.initHandlers()

	// Start background services after all handlers are wired so every
	// event published by the worker has its subscribers in place.
	if err := app.WorkerService.Start(); err != nil {
		return nil, fmt.Errorf("failed to start job worker: %w", err)
	}
	if err := app.SchedulerService.Start(); err != nil {
		return nil, fmt.Errorf("failed to start maintenance sweeper: %w", err)
	}

	logger.Info().
		Str("provider", cfg.Translator.Provider).
		Str("poll_interval", cfg.Worker.PollInterval).
		Msg("Application initialization complete")

	return app, nil
}

// initDatabase initializes the storage layer (Badger)
func (a *App) initDatabase() error {
	storageManager, err := badger.NewManager(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return fmt.Errorf("failed to create storage manager: %w", err)
	}

	a.StorageManager = storageManager
	a.Logger.Debug().
		Str("storage", "badger").
		Str("path", a.Config.Storage.Badger.Path).
		Msg("Storage layer initialized")
	return nil
}

// initServices initializes all business services in dependency order.
func (a *App) initServices() error {
	a.EventService = events.NewService(a.Logger)

	translationService, err := translator.NewTranslationService(&a.Config.Translator, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize translation service: %w", err)
	}
	a.TranslationService = translationService
	a.Logger.Debug().Str("provider", a.Config.Translator.Provider).Msg("Translation service initialized")

	a.TemplateService = templates.NewService(a.StorageManager.TemplateStorage(), a.Logger)

	a.JobService = jobsvc.NewService(
		a.StorageManager.JobStorage(),
		a.StorageManager.ProjectStorage(),
		a.EventService,
		a.Logger,
	)

	a.WorkerService = worker.NewService(
		&a.Config.Worker,
		a.StorageManager,
		a.TranslationService,
		a.TemplateService,
		a.EventService,
		a.Logger,
	)

	a.SchedulerService = scheduler.NewService(
		&a.Config.Worker,
		a.StorageManager.JobStorage(),
		a.EventService,
		a.Logger,
	)

	return nil
}

// initHandlers initializes all HTTP handlers
func (a *App) initHandlers() {
	a.WSHandler = handlers.NewWebSocketHandler(a.EventService, a.Logger, &a.Config.WebSocket)
	a.APIHandler = handlers.NewAPIHandler(a.WSHandler, a.Logger)
	a.ProjectHandler = handlers.NewProjectHandler(
		a.StorageManager.ProjectStorage(),
		a.StorageManager.TemplateStorage(),
		a.Logger,
	)
	a.FileHandler = handlers.NewFileHandler(a.StorageManager, a.EventService, a.Logger)
	a.SegmentHandler = handlers.NewSegmentHandler(a.StorageManager, a.EventService, a.Logger)
	a.JobHandler = handlers.NewJobHandler(a.JobService, a.Logger)
	a.StatusHandler = handlers.NewStatusHandler(a.StorageManager, a.Config.Worker.ThroughputPerMinute, a.Logger)
}

// Close shuts down background services and storage in reverse
// dependency order.
func (a *App) Close() error {
	if a.SchedulerService != nil {
		if err := a.SchedulerService.Stop(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop maintenance sweeper")
		}
	}

	if a.WorkerService != nil {
		if err := a.WorkerService.Stop(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop job worker")
		}
	}

	if a.TranslationService != nil {
		if err := a.TranslationService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close translation service")
		}
	}

	if a.EventService != nil {
		if err := a.EventService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close event service")
		}
	}

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}

	return nil
}
