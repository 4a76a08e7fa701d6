package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"QuantCore/internal/middleware"
	"QuantCore/internal/usecase"
	pkgch "QuantCore/pkg/clickhouse"
	"QuantCore/pkg/config"
	xhttp "QuantCore/pkg/http"
	applogger "QuantCore/pkg/logger"
	"QuantCore/pkg/queue"
)

// App encapsulates the application lifecycle: the tick collector, the
// scheduled rebalancer, the job queue, and the HTTP surface.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	collector  *usecase.TickCollector
	rebalancer *usecase.Rebalancer
	pipeline   *middleware.SignalPipeline
	handler    xhttp.Handler
	redisQueue *queue.RedisQueue
	chClient   *pkgch.Client
	httpServer *xhttp.Server
}

// New creates the App. redisQueue and chClient may be nil when those
// backends are not configured.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	collector *usecase.TickCollector,
	rebalancer *usecase.Rebalancer,
	pipeline *middleware.SignalPipeline,
	handler xhttp.Handler,
	redisQueue *queue.RedisQueue,
	chClient *pkgch.Client,
) *App {
	return &App{
		cfg:        cfg,
		log:        log,
		collector:  collector,
		rebalancer: rebalancer,
		pipeline:   pipeline,
		handler:    handler,
		redisQueue: redisQueue,
		chClient:   chClient,
	}
}

// Run starts every component and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.pipeline.Start(ctx)

	if err := a.collector.Start(ctx); err != nil {
		a.log.Error("collector start", applogger.Error(err))
		return err
	}
	a.log.Info("collector started", applogger.Strings("symbols", a.cfg.Feed.Symbols))

	a.rebalancer.Start(ctx)
	a.log.Info("rebalancer started",
		applogger.String("objective", a.cfg.Optimizer.Objective),
		applogger.Duration("interval", a.cfg.Optimizer.RebalanceInterval))

	if a.redisQueue != nil {
		if err := a.redisQueue.Start(); err != nil {
			a.log.Error("queue start", applogger.Error(err))
			return err
		}
	}

	metricsPath := ""
	if a.cfg.Metrics.Enabled {
		metricsPath = a.cfg.Metrics.Path
	}
	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(metricsPath),
		xhttp.WithLogger(a.log),
	)
	if err := a.httpServer.Start(); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	cancel()
	return a.shutdown()
}

// shutdown stops components in dependency order: intake first, then the
// HTTP surface, then the broker and storage clients.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.collector.Shutdown(ctx); err != nil {
		a.log.Warn("collector shutdown", applogger.Error(err))
	}
	a.rebalancer.Stop()

	if a.httpServer != nil {
		if err := a.httpServer.Stop(ctx); err != nil {
			a.log.Warn("http shutdown", applogger.Error(err))
		}
	}

	if a.redisQueue != nil {
		if err := a.redisQueue.Stop(ctx); err != nil {
			a.log.Warn("queue shutdown", applogger.Error(err))
		}
	}

	if err := a.pipeline.Close(); err != nil {
		a.log.Warn("publisher close", applogger.Error(err))
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.log.Warn("clickhouse close", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
