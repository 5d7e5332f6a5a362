package entrypoint

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mrlokans/librarian/internal/config"
	http_controllers "github.com/mrlokans/librarian/internal/http"
	"github.com/mrlokans/librarian/internal/scheduler"
	"github.com/mrlokans/librarian/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// Serve runs handler until SIGINT or SIGTERM, then shuts down gracefully.
func Serve(handler http.Handler, cfg *config.Config, log *zap.Logger, onShutdown ShutdownFunc) error {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-quit:
	}
	log.Info("shutting down server", zap.Duration("timeout", timeout))

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server shutdown", zap.Error(err))
	}

	// Stop background work once no request can enqueue more.
	if onShutdown != nil {
		onShutdown(ctx)
	}

	log.Info("server exiting")
	return nil
}

// Run wires the application and serves the HTTP API.
func Run(cfg *config.Config, log *zap.Logger, version string) error {
	log.Info("starting librarian",
		zap.String("version", version),
		zap.String("environment", cfg.App.Environment),
	)

	if err := EnsureDirectories(cfg.Ingest); err != nil {
		return err
	}

	ctx := context.Background()
	app, err := Build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := app.Close(closeCtx); err != nil {
			log.Error("error closing application", zap.Error(err))
		}
	}()

	sessionManager, err := app.SessionManager()
	if err != nil {
		return fmt.Errorf("failed to initialize session manager: %w", err)
	}

	// Initialize task queue if enabled
	var taskClient *tasks.Client
	bgCtx, bgCancel := context.WithCancel(ctx)
	defer bgCancel()
	if cfg.Tasks.Enabled {
		taskClient, err = tasks.NewClient(cfg.Tasks.DatabasePath, tasks.FromAppConfig(cfg.Tasks), log)
		if err != nil {
			return fmt.Errorf("failed to initialize task queue: %w", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Error("error closing task client", zap.Error(err))
			}
		}()

		taskClient.Register(tasks.NewImportBooksQueue(app.Importer, log))
		go taskClient.Start(bgCtx)
	} else {
		log.Info("task queue disabled, uploads are stored inline")
	}

	var inbox *scheduler.InboxScheduler
	if cfg.Ingest.Enabled {
		inbox = scheduler.NewInboxScheduler(cfg.Ingest.InboxDir, cfg.Ingest.Schedule, app.Importer, log)
		if err := inbox.Start(bgCtx); err != nil {
			return err
		}
	}

	routerCfg := http_controllers.RouterConfig{
		Database:       app.Provider,
		Health:         app.Provider,
		Users:          app.Users,
		Books:          app.Books,
		Auth:           app.Auth,
		Importer:       app.Importer,
		SessionManager: sessionManager,
		Cache:          app.Cache,
		APIPrefix:      cfg.HTTP.APIPrefix,
		UploadDir:      cfg.Ingest.UploadDir,
		Version:        version,
		Logger:         log,
	}
	if taskClient != nil {
		routerCfg.TaskQueue = taskClient
	}

	router := http_controllers.NewRouter(routerCfg)

	onShutdown := func(ctx context.Context) {
		if inbox != nil {
			inbox.Stop()
		}
		if taskClient != nil {
			taskClient.Stop(ctx)
		}
		bgCancel()
	}

	return Serve(router, cfg, log, onShutdown)
}
