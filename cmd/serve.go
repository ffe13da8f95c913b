package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/personal-assistant/internal/assistant"
	"github.com/Tiliavir/personal-assistant/internal/httpapi"
	"github.com/Tiliavir/personal-assistant/internal/notify"
	"github.com/Tiliavir/personal-assistant/internal/scheduler"
)

const shutdownTimeout = 10 * time.Second

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the reminder scheduler",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides config and ASSISTANT_ADDR)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.HTTP.Addr = serveAddr
	}

	logger := newLogger(cfg.Log, os.Stderr)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, err := openStores(ctx, cfg, logger, false)
	if err != nil {
		return err
	}
	defer func() {
		if err := stores.Close(); err != nil {
			logger.Error("closing storage", "error", err)
		}
	}()
	logger.Info("storage opened", "backend", cfg.Storage.Backend, "dir", cfg.Storage.DataDir)

	hub := notify.NewHub()
	emitter := notify.NewEmitter(stores.Notifications, hub)
	sched := scheduler.New(stores.Reminders, emitter, scheduler.WithLogger(logger))
	if err := sched.Start(ctx); err != nil {
		return err
	}

	chat := assistant.New(ctx, cfg.LLM, assistant.WithLogger(logger))
	if !chat.Online() {
		logger.Info("no model credentials configured, chat answers offline")
	}

	srv := &http.Server{
		Addr: cfg.HTTP.Addr,
		Handler: httpapi.NewHandler(httpapi.Options{
			Stores:         stores,
			Scheduler:      sched,
			Emitter:        emitter,
			Hub:            hub,
			Assistant:      chat,
			StaticDir:      cfg.HTTP.StaticDir,
			RequestTimeout: cfg.HTTP.RequestTimeout(),
			Logger:         logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       time.Minute,
	}
	// Shutdown does not wait for hijacked connections; closing the hub ends
	// the notification streams while ordinary requests drain.
	srv.RegisterOnShutdown(hub.Close)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			_ = sched.Shutdown(context.Background())
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	srvErr := srv.Shutdown(shutdownCtx)
	if srvErr != nil {
		logger.Error("server forced to shutdown", "error", srvErr)
	}
	if err := sched.Shutdown(shutdownCtx); err != nil {
		logger.Error("scheduler shutdown", "error", err)
		return err
	}
	logger.Info("server exited gracefully")
	return srvErr
}
