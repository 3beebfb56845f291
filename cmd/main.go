package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/sketchmatch/internal/adapters/http/api"
	"github.com/okian/sketchmatch/internal/adapters/http/swagger"
	app "github.com/okian/sketchmatch/internal/app"
	"github.com/okian/sketchmatch/internal/config"
	"github.com/okian/sketchmatch/internal/domain/analysis"
	"github.com/okian/sketchmatch/internal/domain/dtw"
	"github.com/okian/sketchmatch/pkg/logger"
	"github.com/okian/sketchmatch/pkg/metrics"
)

// HTTP server timeout constants. There is no write timeout: analysis
// responses stream for as long as the run lasts.
const (
	readTimeout       = 30 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Use stderr for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
	}

	if err := run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "server exited", logger.Error(err))
		os.Exit(1)
	}
}

// run starts the service and the HTTP server and blocks until ctx is done.
func run(ctx context.Context, cfg *config.Config) error {
	log := logger.Get()

	svc := newService(cfg, log)
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()

	metrics.StartSystemCollector(ctx)

	srv := newHTTPServer(ctx, cfg, svc)
	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
	return nil
}

// newService translates cfg into service and controller options.
func newService(cfg *config.Config, log logger.Logger) *app.Service {
	return app.New(
		app.WithLogger(log),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithControllerOptions(controllerOptions(cfg)...),
	)
}

func controllerOptions(cfg *config.Config) []analysis.Option {
	opts := []analysis.Option{
		analysis.WithParallelism(cfg.RunParallelism),
		analysis.WithProgressEvery(cfg.ProgressEvery),
		analysis.WithMaxResolution(cfg.MaxResolution),
		analysis.WithMaxCandidates(cfg.MaxCandidates),
		analysis.WithEventBuffer(cfg.EventBuffer),
	}
	var dtwOpts []dtw.Option
	if cfg.DTWWindow > 0 {
		dtwOpts = append(dtwOpts, dtw.WithWindow(cfg.DTWWindow))
	}
	if cfg.DTWSlopePenalty > 0 {
		dtwOpts = append(dtwOpts, dtw.WithSlopePenalty(cfg.DTWSlopePenalty))
	}
	if len(dtwOpts) > 0 {
		opts = append(opts, analysis.WithDTWOptions(dtwOpts...))
	}
	return opts
}

// newHTTPServer registers every route on a fresh mux.
func newHTTPServer(ctx context.Context, cfg *config.Config, svc *app.Service) *http.Server {
	mux := http.NewServeMux()

	// Register API documentation under /api-docs
	swagger.Register(ctx, mux)

	apiServer := api.NewServer(svc, svc,
		api.WithMaxRequestBytes(cfg.MaxRequestBytes),
		api.WithDefaultResolution(cfg.DefaultResolution),
	)
	apiServer.Register(ctx, mux)

	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}
