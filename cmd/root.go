package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/personal-assistant/internal/config"
	"github.com/Tiliavir/personal-assistant/internal/storage"
)

var (
	configPath string
	dataDir    string
)

var rootCmd = &cobra.Command{
	Use:   "assistant",
	Short: "Personal assistant backend – chat, todos and reminders",
	Long: `assistant serves a small JSON API for chatting with a language model,
keeping a todo list and firing reminders at their due time.
Data is stored as human-readable JSON files in ~/.assistant/data/.`,
	SilenceUsage: true,
}

// Execute is the entry point called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default ~/.assistant/config.json)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Override the storage data directory")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(remindersCmd)
	rootCmd.AddCommand(notificationsCmd)
	rootCmd.AddCommand(todosCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(chatCmd)
}

// loadConfig reads the config file and applies global flag overrides.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}
	if dataDir != "" {
		cfg.Storage.DataDir = dataDir
	}
	return cfg, nil
}

// openStores opens the configured backend. Listing commands pass readOnly so
// they never rewrite or quarantine files a running server may be using.
func openStores(ctx context.Context, cfg config.Config, logger *slog.Logger, readOnly bool) (*storage.Stores, error) {
	stores, err := storage.Open(ctx, storage.Options{
		Backend:  cfg.Storage.Backend,
		DataDir:  cfg.Storage.DataDir,
		Logger:   logger,
		ReadOnly: readOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("open storage in %s: %w", cfg.Storage.DataDir, err)
	}
	return stores, nil
}

// newLogger builds the slog logger described by cfg.
func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// cliLogger only reports problems; commands print their own output.
func cliLogger() *slog.Logger {
	return newLogger(config.LogConfig{Level: "warn"}, os.Stderr)
}
