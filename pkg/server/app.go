package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"PerpScan/internal/engine"
	"PerpScan/internal/provider"
	"PerpScan/pkg/config"
	xhttp "PerpScan/pkg/http"
	applogger "PerpScan/pkg/logger"
)

// App encapsulates the entire application lifecycle: provider startup, the
// scan loop, the HTTP server, and graceful shutdown on SIGINT/SIGTERM.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	manager    *provider.Manager
	specs      map[string]provider.StartSpec
	engine     *engine.Engine
	httpServer *xhttp.Server
	handler    xhttp.Handler
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	manager *provider.Manager,
	specs map[string]provider.StartSpec,
	eng *engine.Engine,
	handler xhttp.Handler,
) *App {
	return &App{
		cfg:     cfg,
		log:     log,
		manager: manager,
		specs:   specs,
		engine:  eng,
		handler: handler,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithRequestMetrics(a.log, 0),
	)

	a.manager.StartAll(ctx, a.specs)
	a.log.Info("providers started", applogger.Strings("registered", a.manager.Names()))

	a.engine.Start(ctx)

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("http server listening", applogger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	a.engine.Stop()
	a.manager.StopAll()

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
		return err
	}

	a.log.Info("shutdown complete")
	return nil
}
