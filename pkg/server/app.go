package server

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"fximpact/pkg/cache"
	"fximpact/pkg/config"
	xhttp "fximpact/pkg/http"
	applogger "fximpact/pkg/logger"
)

// App encapsulates the application lifecycle: HTTP server up, block on
// signal, graceful shutdown.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	handler    xhttp.Handler
	cacheSvc   cache.Service
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, l *applogger.Logger, handler xhttp.Handler, cacheSvc cache.Service) *App {
	return &App{
		cfg:      cfg,
		log:      l,
		handler:  handler,
		cacheSvc: cacheSvc,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout.Std(), a.cfg.Server.WriteTimeout.Std(), a.cfg.Server.ShutdownTimeout.Std()),
		xhttp.WithMetrics(a.cfg.Metrics.Enabled),
		xhttp.WithLogger(a.log),
	)

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("ready",
		applogger.String("env", a.cfg.Environment),
		applogger.Int("port", a.cfg.Server.Port),
		applogger.Strings("assets", a.cfg.Analysis.Assets),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.shutdown()
}

func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout.Std())
	defer cancel()

	var firstErr error
	if err := a.httpServer.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
		firstErr = err
	}
	if closer, ok := a.cacheSvc.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			a.log.Error("cache close error", applogger.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	a.log.Info("stopped")
	return firstErr
}
