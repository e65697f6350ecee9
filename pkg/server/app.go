package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	mid "KalshiPulse/internal/middleware"
	"KalshiPulse/internal/usecase"
	pkgch "KalshiPulse/pkg/clickhouse"
	"KalshiPulse/pkg/config"
	xhttp "KalshiPulse/pkg/http"
	applogger "KalshiPulse/pkg/logger"
)

// App encapsulates the entire application lifecycle: the periodic
// strategy loop, the realtime ticker pipeline, and the HTTP surface.
type App struct {
	cfg         *config.Config
	log         *applogger.Logger
	runner      *usecase.StrategyRunner
	recorder    *usecase.EventRecorder
	pipeline    *mid.StreamPipeline
	httpServer  *xhttp.Server
	httpHandler xhttp.Handler
	chClient    *pkgch.Client
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	runner *usecase.StrategyRunner,
	recorder *usecase.EventRecorder,
	pipeline *mid.StreamPipeline,
	handler xhttp.Handler,
	chClient *pkgch.Client,
) *App {
	return &App{
		cfg:         cfg,
		log:         log,
		runner:      runner,
		recorder:    recorder,
		pipeline:    pipeline,
		httpHandler: handler,
		chClient:    chClient,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithLogging(a.log, time.Second),
	)
	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}

	contractIDs := a.cfg.Strategy.ContractIDs
	if len(contractIDs) > 0 {
		go a.strategyLoop(ctx, contractIDs)
		a.log.Info("strategy loop started",
			applogger.Strings("contracts", contractIDs),
			applogger.Duration("interval", a.cfg.Strategy.Interval),
		)

		if a.pipeline != nil {
			go func() {
				if err := a.pipeline.Run(ctx, contractIDs); err != nil && ctx.Err() == nil {
					a.log.Error("stream pipeline error", applogger.Error(err))
				}
			}()
			a.log.Info("stream pipeline started")
		}
	} else {
		a.log.Warn("no contracts configured, running API only")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	cancel()
	return a.shutdown()
}

// strategyLoop runs one pass immediately, then on every interval tick.
func (a *App) strategyLoop(ctx context.Context, contractIDs []string) {
	a.runPass(ctx, contractIDs)

	ticker := time.NewTicker(a.cfg.Strategy.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.runPass(ctx, contractIDs)
		}
	}
}

func (a *App) runPass(ctx context.Context, contractIDs []string) {
	summary := a.runner.RunStrategy(ctx, contractIDs)
	for _, res := range summary.Results {
		if res.Err != "" {
			a.log.Warn("contract pass failed",
				applogger.String("contract_id", res.ContractID),
				applogger.String("error", res.Err),
			)
		}
	}
}

// shutdown gracefully stops all services.
func (a *App) shutdown() error {
	if a.pipeline != nil {
		a.pipeline.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	if a.recorder != nil {
		a.recorder.Close()
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
