package cli

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
	"syscall"

	"github.com/spf13/cobra"

	"github.com/getmockd/rxmux/pkg/config"
	"github.com/getmockd/rxmux/pkg/logging"
)

// serveFlags holds all flags for the serve command.
type serveFlags struct {
	configPath string
	addr       string
	logLevel   string
	logFormat  string
	logFile    string
	printURL   bool
}

var serveFlagVals serveFlags

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the demo server",
	Long: `Start an HTTP server whose routes are packet pipelines.

Routes:
  GET  /health         liveness
  GET  /metrics        Prometheus metrics
  GET  /hello/:name    gate + responder (404 for "nobody")
  GET  /profile/:id    fork/join of two lookups
  POST /users          bearer auth (when guard.jwtSecret is set) + JSON Schema
  POST /orders         JSONPath validation
  GET  /admin/routes   expression gate (when guard.allow is set)
  GET  /admin/requests request log, same gate`,
	Example: `  # Defaults on :8080
  rxmux serve

  # Config file plus JSON logs
  rxmux serve --config rxmux.yaml --log-format json

  # Auto-assign a port and print the URL
  rxmux serve --addr 127.0.0.1:0 --print-url`,
	RunE: runServe,
}

func init() {
	f := &serveFlagVals

	serveCmd.Flags().StringVarP(&f.configPath, "config", "c", "", "Path to config file (YAML or JSON)")
	serveCmd.Flags().StringVar(&f.addr, "addr", "", "Listen address (overrides config)")
	serveCmd.Flags().StringVar(&f.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	serveCmd.Flags().StringVar(&f.logFormat, "log-format", "", "Log format (text, json)")
	serveCmd.Flags().StringVar(&f.logFile, "log-file", "", "Also write JSON logs to this file")
	serveCmd.Flags().BoolVar(&f.printURL, "print-url", false, "Print the server URL to stdout on startup")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	f := &serveFlagVals

	cfg, err := loadConfig(f)
	if err != nil {
		return err
	}

	log, closeLog, err := newLogger(cfg.Logging, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg, log, func(addr net.Addr) {
		if f.printURL {
			fmt.Fprintf(cmd.OutOrStdout(), "http://%s\n", addr)
		}
	})
}

// loadConfig reads the config file and applies flag overrides, which win
// over the environment.
func loadConfig(f *serveFlags) (*config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if f.addr != "" {
		cfg.Server.Addr = f.addr
	}
	if f.logLevel != "" {
		cfg.Logging.Level = f.logLevel
	}
	if f.logFormat != "" {
		cfg.Logging.Format = f.logFormat
	}
	if f.logFile != "" {
		cfg.Logging.File = f.logFile
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid flags: %w", err)
	}
	return cfg, nil
}

// newLogger builds the process logger. With a log file configured, records
// go to both w and the file.
func newLogger(cfg config.LoggingConfig, w io.Writer) (*slog.Logger, func(), error) {
	console := logging.Handler(logging.Config{
		Level:  logging.ParseLevel(cfg.Level),
		Format: logging.ParseFormat(cfg.Format),
		Output: w,
	})
	if cfg.File == "" {
		return slog.New(console), func() {}, nil
	}

	file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	fileHandler := logging.Handler(logging.Config{
		Level:  logging.ParseLevel(cfg.Level),
		Format: logging.FormatJSON,
		Output: file,
	})
	return slog.New(logging.Tee(console, fileHandler)), func() { _ = file.Close() }, nil
}

// serve runs the demo application until ctx is done, then shuts down
// gracefully. ready is called with the bound address once listening.
func serve(ctx context.Context, cfg *config.Config, log *slog.Logger, ready func(net.Addr)) error {
	app, err := NewApp(cfg, log)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Server.Addr, err)
	}

	srv := &http.Server{
		Handler:      app,
		ReadTimeout:  config.MustDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.MustDuration(cfg.Server.WriteTimeout),
		ErrorLog:     slog.NewLogLogger(log.Handler(), slog.LevelWarn),
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	log.Info("server started", "addr", ln.Addr().String(), "routes", len(app.Routes()))
	if ready != nil {
		ready(ln.Addr())
	}

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.MustDuration(cfg.Server.ShutdownTimeout))
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
