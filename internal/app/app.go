package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/larder/internal/common"
	"github.com/ternarybob/larder/internal/handlers"
	"github.com/ternarybob/larder/internal/httpclient"
	"github.com/ternarybob/larder/internal/interfaces"
	"github.com/ternarybob/larder/internal/metrics"
	"github.com/ternarybob/larder/internal/services/events"
	"github.com/ternarybob/larder/internal/services/monitor"
	"github.com/ternarybob/larder/internal/services/shoplist"
	"github.com/ternarybob/larder/internal/services/status"
	"github.com/ternarybob/larder/internal/services/tools"
	"github.com/ternarybob/larder/internal/storage"
	"github.com/ternarybob/larder/internal/storage/filestore"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	// Storage. StorageManager is nil for a tool host, which keeps no history.
	StorageManager interfaces.StorageManager
	SessionStore   interfaces.SessionStorage

	// Services
	EventService   interfaces.EventService
	Metrics        interfaces.MetricsRecorder
	Prometheus     *metrics.PrometheusRecorder
	Executor       *httpclient.Executor
	ListService    *shoplist.Service
	StatusService  *status.Service
	MonitorService *monitor.Service
	ToolRegistry   *tools.Registry

	// Handlers
	APIHandler    *handlers.APIHandler
	ItemHandler   *handlers.ItemHandler
	AuthHandler   *handlers.AuthHandler
	StatusHandler *handlers.StatusHandler
	ToolsHandler  *handlers.ToolsHandler
	WSHandler     *handlers.WebSocketHandler
}

// New builds the server process: storage with history, every service and the HTTP handlers
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := app.initServices(); err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	if err := app.initHandlers(); err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}

	logger.Info().
		Bool("monitor_enabled", cfg.Monitor.Enabled).
		Bool("metrics_enabled", cfg.Metrics.Enabled).
		Msg("Application initialization complete")

	return app, nil
}

// NewToolHost builds the services an MCP tool process needs.
// It shares the session file with the server but opens no database, so both can run at once.
func NewToolHost(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config:       cfg,
		Logger:       logger,
		SessionStore: filestore.NewSessionStorage(cfg.Session.Path, logger),
	}

	if err := app.initServices(); err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return app, nil
}

func (a *App) initDatabase() error {
	storageManager, err := storage.NewStorageManager(a.Logger, a.Config)
	if err != nil {
		return fmt.Errorf("failed to create storage manager: %w", err)
	}

	a.StorageManager = storageManager
	a.SessionStore = storageManager.SessionStorage()
	a.Logger.Debug().
		Str("session_path", a.SessionStore.Path()).
		Str("history_path", a.Config.Storage.Badger.Path).
		Msg("Storage layer initialized")

	return nil
}

// initServices wires the services in dependency order:
// events and metrics, then the executor, the list layer, status, monitor and tools.
func (a *App) initServices() error {
	a.EventService = events.NewService(a.Logger)

	if err := events.SubscribeLoggerToAllEvents(a.EventService, a.Logger); err != nil {
		return fmt.Errorf("failed to subscribe event logger: %w", err)
	}

	a.Metrics = metrics.NewNoopRecorder()
	if a.Config.Metrics.Enabled && a.StorageManager != nil {
		a.Prometheus = metrics.NewPrometheusRecorder()
		a.Metrics = a.Prometheus
	}

	executor, err := httpclient.NewExecutor(
		a.SessionStore,
		a.Config.Upstream.BaseURL,
		a.Logger,
		httpclient.WithTimeout(a.Config.RequestTimeout()),
		httpclient.WithUserAgent(a.Config.Upstream.UserAgent),
		httpclient.WithRateLimit(a.Config.RateLimitInterval()),
		httpclient.WithMetrics(a.Metrics),
	)
	if err != nil {
		return fmt.Errorf("failed to create request executor: %w", err)
	}
	a.Executor = executor

	a.ListService = shoplist.NewService(executor, a.SessionStore, a.EventService, a.Metrics, a.Logger)

	var checks interfaces.CheckStorage
	if a.StorageManager != nil {
		checks = a.StorageManager.CheckStorage()
	}

	a.StatusService = status.NewService(a.SessionStore, checks, a.EventService, a.Logger)
	if err := a.StatusService.SubscribeToSessionEvents(); err != nil {
		return fmt.Errorf("failed to subscribe status service: %w", err)
	}
	a.StatusService.Initialize(context.Background())

	a.MonitorService = monitor.NewService(
		a.ListService,
		a.SessionStore,
		checks,
		a.StatusService,
		a.EventService,
		a.Metrics,
		monitor.Config{
			Interval:     a.Config.MonitorInterval(),
			CheckTimeout: a.Config.MonitorCheckTimeout(),
			HistoryLimit: a.Config.Monitor.HistoryLimit,
		},
		a.Logger,
	)

	a.ToolRegistry = tools.NewRegistry(a.ListService, a.MonitorService, a.Logger)

	a.Logger.Debug().
		Str("upstream", executor.BaseURL()).
		Str("state", string(a.StatusService.GetState())).
		Msg("Services initialized")

	return nil
}

func (a *App) initHandlers() error {
	a.APIHandler = handlers.NewAPIHandler(a.Logger)
	a.ItemHandler = handlers.NewItemHandler(a.ListService, a.Logger)
	a.AuthHandler = handlers.NewAuthHandler(a.SessionStore, a.StatusService, a.EventService, a.Metrics, a.Logger)
	a.StatusHandler = handlers.NewStatusHandler(a.StatusService, a.MonitorService, a.StorageManager.CheckStorage(), a.Logger)
	a.ToolsHandler = handlers.NewToolsHandler(a.ToolRegistry, a.Logger)

	a.WSHandler = handlers.NewWebSocketHandler(a.EventService, a.StatusService, a.Logger)
	if err := a.WSHandler.SubscribeToEvents(); err != nil {
		return fmt.Errorf("failed to subscribe websocket handler: %w", err)
	}

	return nil
}

// StartBackground starts the liveness monitor when enabled
func (a *App) StartBackground() error {
	if !a.Config.Monitor.Enabled {
		a.Logger.Info().Msg("Liveness monitor disabled")
		return nil
	}
	return a.MonitorService.Start()
}

// Close stops background work and releases storage. Safe on a partially built App.
func (a *App) Close() error {
	if a.MonitorService != nil && a.MonitorService.IsRunning() {
		ctx, cancel := context.WithTimeout(context.Background(), a.Config.MonitorCheckTimeout())
		if err := a.MonitorService.Stop(ctx); err != nil {
			a.Logger.Warn().Err(err).Msg("Liveness monitor did not stop cleanly")
		}
		cancel()
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
