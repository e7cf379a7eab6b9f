package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"BuzzRadar/internal/scheduler"
	pkgch "BuzzRadar/pkg/clickhouse"
	"BuzzRadar/pkg/config"
	xhttp "BuzzRadar/pkg/http"
	pkgkafka "BuzzRadar/pkg/kafka"
	applogger "BuzzRadar/pkg/logger"
)

// App encapsulates the entire application lifecycle: scheduler, Kafka posts
// consumer, HTTP server, and their teardown order.
type App struct {
	cfg       *config.Config
	log       *applogger.Logger
	sched     *scheduler.Scheduler
	consumer  *pkgkafka.Consumer
	posts     pkgkafka.MessageHandler
	chClient  *pkgch.Client
	handler   xhttp.Handler
	closers   []func() error
	httpServr *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	sched *scheduler.Scheduler,
	consumer *pkgkafka.Consumer,
	posts pkgkafka.MessageHandler,
	chClient *pkgch.Client,
	handler xhttp.Handler,
) *App {
	return &App{
		cfg:      cfg,
		log:      log,
		sched:    sched,
		consumer: consumer,
		posts:    posts,
		chClient: chClient,
		handler:  handler,
	}
}

// AddCloser registers extra resources to close on shutdown, in reverse
// registration order.
func (a *App) AddCloser(close func() error) {
	a.closers = append(a.closers, close)
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServr = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	a.sched.Start(ctx)
	a.log.Info("scheduler started",
		applogger.Duration("analytics_interval_ms", a.cfg.Scheduler.AnalyticsInterval),
		applogger.Int("maintenance_hour", a.cfg.Scheduler.MaintenanceHour),
	)

	if a.consumer != nil && a.posts != nil {
		a.consumer.RegisterHandler(a.posts)
		go func() {
			if err := a.consumer.Start(); err != nil {
				a.log.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		a.log.Info("kafka consumer started", applogger.String("topic", a.posts.Topic()))
	}

	if err := a.httpServr.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown stops services in reverse start order: stop taking ticks, drain
// the consumer, stop HTTP, then close clients.
func (a *App) shutdown(ctx context.Context) error {
	a.sched.Stop()
	a.log.Info("scheduler stopped")

	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServr.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("resource close error", applogger.Error(err))
		}
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
