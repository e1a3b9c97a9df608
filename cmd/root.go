package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/datapilot-cli/internal/ai"
	cfgpkg "github.com/KaramelBytes/datapilot-cli/internal/config"
)

var (
	cfgFile string

	// Loaded configuration
	cfg *cfgpkg.Global
)

var rootCmd = &cobra.Command{
	Use:   "datapilot",
	Short: "DataPilot: instant AI analysis of CSV files",
	Long: `DataPilot samples a CSV file, asks a language model for a structured analysis
(inferred data type, key metrics, charts and a strategic recommendation), answers
follow-up questions about the result and exports it as a PDF report.

Run "datapilot serve" for the browser interface.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

// Execute is the entry point called by main.main()
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		if hint := ai.Hint(err); hint != "" {
			fmt.Fprintln(os.Stderr, "  Hint:", hint)
		}
		os.Exit(1)
	}
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&cfgFile, "config", "", "config file (default is ~/.datapilot/config.yaml)")
	f.String("log-level", "info", "log level (debug, info, warn, error)")
	f.String("log-format", "console", "log format (console, json)")
	f.Int("http-timeout", 0, "HTTP client timeout in seconds (overrides config)")
	f.Int("retry-max", 0, "max attempts per model request (overrides config)")
	f.Int("retry-base-ms", 0, "base retry backoff in ms (overrides config)")
	f.Int("retry-max-ms", 0, "max retry backoff cap in ms (overrides config)")
	f.String("ollama-host", "", "Ollama base URL (overrides config)")
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to read .env: %v\n", err)
	}
	c, err := cfgpkg.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	cfg = c
	if err := setupLogging(cfg.LogLevel, cfg.LogFormat); err != nil {
		return err
	}
	if err := loadSavedCatalog(); err != nil {
		slog.Warn("ignoring saved model catalog", "error", err)
	}
	return nil
}

func parseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("invalid log level: %s (use debug, info, warn or error)", level)
}

func setupLogging(level, format string) error {
	slogLevel, err := parseLevel(level)
	if err != nil {
		return err
	}

	opts := &slog.HandlerOptions{Level: slogLevel}
	var handler slog.Handler
	switch format {
	case "console", "":
		handler = slog.NewTextHandler(os.Stderr, opts)
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		return fmt.Errorf("invalid log format: %s", format)
	}
	slog.SetDefault(slog.New(handler))
	return nil
}
