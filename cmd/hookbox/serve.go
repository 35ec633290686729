package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"hookbox/internal/history"
	"hookbox/internal/script"
	"hookbox/internal/security"
	"hookbox/internal/server"

	"github.com/spf13/cobra"
)

// ShutdownTimeout bounds how long serve waits for running scripts on SIGINT/SIGTERM.
const ShutdownTimeout = 5 * time.Minute

var (
	configFile  string
	logFile     string
	logLevel    string
	dbPath      string
	noHistory   bool
	host        string
	port        int
	noRateLimit bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the webhook server",
	Long: `Start the HTTP server to receive GitHub webhook requests.

Every delivery with a valid X-Hub-Signature is matched against the rules in the
configuration file and the matching scripts run in the background.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&configFile, "config", "c", getEnvOrDefault("HOOKBOX_CONFIG_FILE", ""), "Path to hookbox.yaml configuration file")
	serveCmd.Flags().StringVar(&logFile, "log", getEnvOrDefault("HOOKBOX_LOG_FILE", "./hookbox.log"), "Path to log file (empty for stdout only)")
	serveCmd.Flags().StringVar(&logLevel, "log-level", getEnvOrDefault("HOOKBOX_LOG_LEVEL", "info"), "Log level (debug, info, warn, error)")
	serveCmd.Flags().StringVar(&dbPath, "db", getEnvOrDefault("HOOKBOX_DB_PATH", "./hookbox.db"), "Path to SQLite history database")
	serveCmd.Flags().BoolVar(&noHistory, "no-history", os.Getenv("HOOKBOX_NO_HISTORY") == "1", "Do not record handler runs")
	serveCmd.Flags().StringVar(&host, "host", getEnvOrDefault("HOOKBOX_HOST", "127.0.0.1"), "Host to bind to")
	serveCmd.Flags().IntVarP(&port, "port", "p", getEnvOrDefaultInt("HOOKBOX_PORT", 5000), "Port to listen on")
	serveCmd.Flags().BoolVar(&noRateLimit, "no-rate-limit", os.Getenv("HOOKBOX_NO_RATE_LIMIT") == "1", "Disable per-IP rate limiting")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger, logCloser, err := setupLogging(logFile, logLevel)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer logCloser.Close()

	logger.Info("Starting hookbox", "version", version)

	cfg, err := loadConfig(configFile)
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Info("Configuration validated successfully", "config", cfg.File, "rules", len(cfg.Rules))

	for _, warning := range cfg.Warnings {
		logger.Warn(warning, "config", cfg.File)
	}

	rules, err := cfg.BuildRules(logger, script.NewLockManager())
	if err != nil {
		return fmt.Errorf("failed to build rules: %w", err)
	}

	var hist *history.History
	if !noHistory {
		logger.Info("Initializing history database", "db", dbPath)
		if err := security.CreateSecureDir(filepath.Dir(dbPath), security.PermDirectory); err != nil {
			return err
		}
		hist, err = history.NewHistory(dbPath)
		if err != nil {
			logger.Error("Failed to initialize history database", "error", err)
			return fmt.Errorf("failed to initialize history database: %w", err)
		}
	}

	srv, err := server.New(&server.Options{
		Path:             cfg.Path,
		Secret:           cfg.Secret,
		Rules:            rules,
		Logger:           logger,
		History:          hist,
		MaxPayloadBytes:  cfg.MaxPayloadBytes,
		DisableRateLimit: noRateLimit,
	})
	if err != nil {
		if hist != nil {
			hist.Close()
		}
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err)
			_ = srv.Shutdown(context.Background())
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down, waiting for running scripts", "timeout", ShutdownTimeout.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown incomplete", "error", err)
		return err
	}

	logger.Info("Shutdown complete")
	return nil
}

// setupLogging configures a JSON slog logger writing to stdout and, when
// logPath is set, to a log file. The returned closer releases the file.
func setupLogging(logPath, level string) (*slog.Logger, io.Closer, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var out io.Writer = os.Stdout
	var closer io.Closer = nopCloser{}

	if logPath != "" {
		file, err := security.OpenSecureAppend(logPath, security.PermLogFile)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		out = io.MultiWriter(os.Stdout, file)
		closer = file
	}

	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: lvl,
	})

	return slog.New(handler), closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
