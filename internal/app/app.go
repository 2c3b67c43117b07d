package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/cyclecoach-backend/internal/data/db"
	"github.com/yungbote/cyclecoach-backend/internal/http"
	"github.com/yungbote/cyclecoach-backend/internal/jobs/worker"
	"github.com/yungbote/cyclecoach-backend/internal/observability"
	"github.com/yungbote/cyclecoach-backend/internal/platform/logger"
	"github.com/yungbote/cyclecoach-backend/internal/realtime"
	"github.com/yungbote/cyclecoach-backend/internal/temporalx/temporalworker"
)

// abortWait bounds how long aborted runs get to write their failure.
const abortWait = 5 * time.Second

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Server   *http.Server
	Cfg      Config
	Repos    Repos
	Clients  Clients
	Services Services
	SSEHub   *realtime.SSEHub
	Metrics  *observability.Metrics

	pg           *db.PostgresService
	worker       *worker.Worker
	shutdownOTel func(context.Context) error
	cancel       context.CancelFunc
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	shutdownOTel := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
		Version:     cfg.Version,
	})

	pg, err := db.NewPostgresService(log, cfg.DB)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		_ = pg.Close()
		log.Sync()
		return nil, fmt.Errorf("database automigrate: %w", err)
	}
	theDB := pg.DB()

	clients, err := wireClients(context.Background(), log, cfg)
	if err != nil {
		_ = pg.Close()
		log.Sync()
		return nil, err
	}

	reposet := wireRepos(theDB, log)

	serviceset, err := wireServices(theDB, log, cfg, reposet, clients)
	if err != nil {
		clients.Close()
		_ = pg.Close()
		log.Sync()
		return nil, err
	}

	metrics := observability.Init(log)
	ssehub := realtime.NewSSEHub(log)
	handlerset := wireHandlers(log, theDB, cfg, serviceset, ssehub, metrics)
	middleware := wireMiddleware(log, serviceset)
	server := wireServer(log, cfg, handlerset, middleware, metrics)

	return &App{
		Log:          log,
		DB:           theDB,
		Server:       server,
		Cfg:          cfg,
		Repos:        reposet,
		Clients:      clients,
		Services:     serviceset,
		SSEHub:       ssehub,
		Metrics:      metrics,
		pg:           pg,
		shutdownOTel: shutdownOTel,
	}, nil
}

// Start brings up the background pieces: the bus forwarder, the metrics
// collectors and the generation executor. Exactly one executor runs: the
// Temporal worker when Temporal is configured, the polling pool otherwise.
func (a *App) Start() error {
	if a == nil || a.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if err := a.Clients.Bus.StartForwarder(ctx, a.SSEHub.Broadcast); err != nil {
		return fmt.Errorf("start SSE forwarder: %w", err)
	}

	a.Metrics.StartJobQueueCollector(ctx, a.Log, a.DB)
	if a.Clients.Redis != nil {
		a.Metrics.StartRedisCollector(ctx, a.Log, a.Clients.Redis)
	}

	if !a.Cfg.RunWorker {
		a.Log.Info("RUN_WORKER disabled; serving API only")
		return nil
	}
	if a.Clients.Temporal != nil {
		runner, err := temporalworker.NewRunner(a.Log, a.Cfg.Temporal, a.Clients.Temporal, a.Services.Queue, a.Services.Registry)
		if err != nil {
			return err
		}
		return runner.Start(ctx)
	}
	a.worker = worker.NewWorker(a.Log, a.Repos.GenerationJob, a.Services.Queue, a.Services.Registry, worker.Config{
		Concurrency:  a.Cfg.WorkerConcurrency,
		PollInterval: a.Cfg.WorkerPollInterval,
	})
	a.worker.Start(ctx)
	return nil
}

func (a *App) Run() error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Server.Run(":" + a.Cfg.Port)
}

// Shutdown drains HTTP first so no new jobs are accepted, then stops claiming
// and lets in-flight runs finish until ctx expires. Runs still going at that
// point are aborted and recorded as worker failures.
func (a *App) Shutdown(ctx context.Context) error {
	if a == nil {
		return nil
	}
	var err error
	if a.Server != nil {
		err = a.Server.Shutdown(ctx)
	}

	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.worker != nil {
		done := make(chan struct{})
		go func() {
			a.worker.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			a.Log.Warn("Worker drain timed out; aborting in-flight jobs", "error", ctx.Err())
			a.worker.Abort()
			select {
			case <-done:
			case <-time.After(abortWait):
				a.Log.Warn("Aborted jobs did not record their failure in time")
			}
		}
	}
	return err
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.Clients.Close()
	if a.pg != nil {
		_ = a.pg.Close()
	}
	if a.shutdownOTel != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.shutdownOTel(ctx); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
		cancel()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
