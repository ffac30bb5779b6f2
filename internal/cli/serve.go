package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/ragchat/internal/api/handlers"
	"github.com/cloo-solutions/ragchat/internal/config"
	"github.com/cloo-solutions/ragchat/internal/jobs"
	"github.com/cloo-solutions/ragchat/internal/server"
	"github.com/cloo-solutions/ragchat/internal/telemetry"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the ragchat API server with optional background document sync",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "", "Port to listen on (overrides RAGCHAT_PORT)")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	SetupLogging(cfg.Debug)

	shutdownTelemetry := initTelemetry(cfg)
	defer shutdownTelemetry()

	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.Port = port
	}
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")

	app, err := NewApp(ctx, cfg, !noMigrate)
	if err != nil {
		return err
	}
	defer app.Close()

	if _, err := app.Embeddings.DetectDimensions(ctx); err != nil {
		slog.Warn("embedding dimension check failed, dimensionality will be learned on first use", "error", err)
	}

	bgCtx, cancelBg := context.WithCancel(ctx)
	defer cancelBg()
	worker := startSync(bgCtx, app)

	router := server.NewRouter(server.RouterConfig{
		ChatHandler:      handlers.NewChatHandler(app.Conversation),
		DocumentsHandler: handlers.NewDocumentsHandler(app.Ingestion),
		HealthHandler:    handlers.NewHealthHandler(app.Index),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}
	slog.Info("shutting down")

	cancelBg()
	if worker != nil {
		worker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	slog.Info("server exited")
	return nil
}

// startSync launches the periodic sync worker and the documents watcher
// when either is enabled. It returns nil when neither is.
func startSync(ctx context.Context, app *App) *jobs.Worker {
	cfg := app.Config
	if cfg.SyncInterval <= 0 && !cfg.WatchDocuments {
		return nil
	}

	worker := jobs.NewWorker(jobs.NewSyncProcessor(app.Ingestion), cfg.SyncInterval)
	go worker.Start(ctx)

	if cfg.WatchDocuments {
		docsDir, err := cfg.DocumentsPath()
		if err == nil {
			var watcher *jobs.Watcher
			watcher, err = jobs.NewWatcher(docsDir, jobs.DefaultDebounce, worker.Trigger)
			if err == nil {
				go watcher.Run(ctx)
			}
		}
		if err != nil {
			slog.Warn("document watcher disabled", "error", err)
		}
	}
	return worker
}

func initTelemetry(cfg *config.Config) func() {
	if cfg.SentryDSN == "" {
		return func() {}
	}

	// Default to 10% sampling in production, 100% in development
	sampleRate := 0.1
	if cfg.Environment == "development" {
		sampleRate = 1.0
	}

	shutdown, err := telemetry.Init(telemetry.Config{
		DSN:              cfg.SentryDSN,
		Environment:      cfg.Environment,
		TracesSampleRate: sampleRate,
		Debug:            cfg.Debug,
	})
	if err != nil {
		slog.Warn("telemetry init failed, continuing without tracing", "error", err)
		return func() {}
	}
	return shutdown
}

// loadApp is shared by the one-shot commands.
func loadApp(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	SetupLogging(cfg.Debug)
	return NewApp(ctx, cfg, true)
}
