package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"SepsisWatch/internal/domain/repository"
	"SepsisWatch/internal/handler/api"
	"SepsisWatch/internal/handler/ws"
	mid "SepsisWatch/internal/middleware"
	"SepsisWatch/internal/usecase"
	pkgcache "SepsisWatch/pkg/cache"
	pkgch "SepsisWatch/pkg/clickhouse"
	"SepsisWatch/pkg/config"
	xhttp "SepsisWatch/pkg/http"
	pkgkafka "SepsisWatch/pkg/kafka"
	applogger "SepsisWatch/pkg/logger"
	"SepsisWatch/pkg/queue"

	"github.com/labstack/echo/v4"
)

// App encapsulates the entire application lifecycle: the Kafka observation
// consumer, the HTTP API, the live alert feed, and graceful teardown.
type App struct {
	cfg        *config.Config
	logger     *applogger.Logger
	proc       *usecase.EventProcessor
	intake     *mid.IntakeBuffer
	consumer   *pkgkafka.Consumer
	kh         pkgkafka.MessageHandler
	chClient   *pkgch.Client
	results    repository.ResultStore
	storage    repository.Storage
	redis      *pkgcache.RedisCache
	httpServer *xhttp.Server
	alertHub   *ws.AlertHub
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	logger *applogger.Logger,
	proc *usecase.EventProcessor,
	intake *mid.IntakeBuffer,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	chClient *pkgch.Client,
	results repository.ResultStore,
	storage repository.Storage,
	redis *pkgcache.RedisCache,
) *App {
	return &App{
		cfg:      cfg,
		logger:   logger,
		proc:     proc,
		intake:   intake,
		consumer: consumer,
		kh:       kh,
		chClient: chClient,
		results:  results,
		storage:  storage,
		redis:    redis,
	}
}

type routeGroup []xhttp.Handler

func (g routeGroup) RegisterRoutes(e *echo.Echo) {
	for _, h := range g {
		h.RegisterRoutes(e)
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := a.logger

	// Aggregated log shipping over the Redis queue, when available.
	if a.redis != nil {
		logQueue := queue.NewRedisPublisher(l, a.redis.Client(), queue.WithKeyPrefix("sepsiswatch:logs"))
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          "logs.aggregated",
			Publisher:      logQueue,
		})
	}

	// HTTP API plus the WebSocket alert feed.
	apiHandler := api.NewAssessEchoHandler(l, a.proc, a.results, a.storage)
	if a.redis != nil {
		layered := pkgcache.NewLayeredCache(a.redis, pkgcache.WithLayeredMemorySize(1000))
		apiHandler.SetCache(layered, a.cfg.Redis.CacheTTL)
	}

	a.alertHub = ws.NewAlertHub(l)
	a.proc.SetNotifier(a.alertHub)

	serverOpts := []xhttp.ServerOption{
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	}
	if a.cfg.Metrics.Enabled {
		serverOpts = append(serverOpts, xhttp.WithRequestMetrics(l, time.Second))
	}
	a.httpServer = xhttp.NewServer(routeGroup{apiHandler, a.alertHub}, serverOpts...)

	// Intake buffer flushes failed events in the background.
	a.intake.Start(ctx)

	// Start consumer if configured
	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				l.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		l.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	if err := a.httpServer.Start(); err != nil {
		l.Error("http server start error", applogger.Error(err))
		return err
	}
	l.Info("service started",
		applogger.Int("port", a.cfg.Server.Port),
		applogger.String("backend", a.cfg.Backend.Type),
	)

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	l.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services. Order matters: stop the consumer
// first so nothing new reaches the intake buffer, then the buffer itself,
// then the outward-facing surfaces.
func (a *App) shutdown(ctx context.Context) error {
	l := a.logger

	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	a.intake.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		l.Error("http shutdown error", applogger.Error(err))
	}

	if a.alertHub != nil {
		a.alertHub.Close()
	}

	// Close processor resources (publisher and storage sinks).
	a.proc.Close()

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			l.Warn("redis close error", applogger.Error(err))
		}
	}

	l.RemoveCollector()
	l.Info("shutdown complete")
	return nil
}
