package app

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/coursegen-backend/internal/data/db"
	"github.com/yungbote/coursegen-backend/internal/http"
	"github.com/yungbote/coursegen-backend/internal/observability"
	"github.com/yungbote/coursegen-backend/internal/platform/envutil"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Server   *http.Server
	Cfg      Config
	Repos    Repos
	Services Services
	Clients  Clients

	dbService    *db.Service
	jobs         *Jobs
	otelShutdown func(context.Context) error
}

func New(ctx context.Context) (*App, error) {
	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfigFromEnv(serviceName, cfg.AppEnv))
	var metrics *observability.Metrics
	if observability.Enabled() {
		metrics = observability.Init()
	}

	dbService, err := db.Open(log, db.ConfigFromEnv())
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := db.AutoMigrateAll(dbService.DB()); err != nil {
		_ = dbService.Close()
		log.Sync()
		return nil, fmt.Errorf("database automigrate: %w", err)
	}
	theDB := dbService.DB()

	clients, err := wireClients(ctx, log, cfg)
	if err != nil {
		_ = dbService.Close()
		log.Sync()
		return nil, err
	}

	reposet := wireRepos(theDB, log)

	serviceset, err := wireServices(theDB, log, cfg, reposet, clients)
	if err != nil {
		clients.Close()
		_ = dbService.Close()
		log.Sync()
		return nil, err
	}

	handlerset := wireHandlers(log, theDB, cfg, serviceset)
	middleware := wireMiddleware(log, serviceset)
	server := wireServer(log, cfg, metrics, handlerset, middleware)

	return &App{
		Log:          log,
		DB:           theDB,
		Server:       server,
		Cfg:          cfg,
		Repos:        reposet,
		Services:     serviceset,
		Clients:      clients,
		dbService:    dbService,
		jobs:         newJobs(log, serviceset.Auth, serviceset.RateStore),
		otelShutdown: otelShutdown,
	}, nil
}

// Start launches the background sweeps.
func (a *App) Start() error {
	if a == nil || a.jobs == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.jobs.Start()
}

// Run blocks serving HTTP on cfg.Port until Close.
func (a *App) Run() error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	addr := ":" + a.Cfg.Port
	a.Log.Info("Server listening", "addr", addr)
	return a.Server.Run(addr)
}

// Close drains in-flight requests, then releases every resource.
func (a *App) Close(ctx context.Context) {
	if a == nil {
		return
	}
	if a.Server != nil {
		if err := a.Server.Shutdown(ctx); err != nil {
			a.Log.Warn("http shutdown", "error", err)
		}
	}
	if a.jobs != nil {
		a.jobs.Stop()
	}
	a.Clients.Close()
	if a.otelShutdown != nil {
		otelCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.otelShutdown(otelCtx); err != nil {
			a.Log.Warn("otel shutdown", "error", err)
		}
		cancel()
	}
	if a.dbService != nil {
		if err := a.dbService.Close(); err != nil {
			a.Log.Warn("database close", "error", err)
		}
	}
	a.Log.Sync()
}
