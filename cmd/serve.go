package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/robertlancer/supershare/internal/google"
	"github.com/robertlancer/supershare/internal/instrumentation"
	"github.com/robertlancer/supershare/internal/logging"
	"github.com/robertlancer/supershare/internal/server"
	"github.com/robertlancer/supershare/internal/viewer"
)

// shutdownTimeout bounds graceful shutdown of the HTTP servers.
const shutdownTimeout = 30 * time.Second

// serveOptions collects everything the serve command needs to run.
type serveOptions struct {
	debugMode bool
	logFormat string

	addr  string
	mount string

	folderID string
	account  string

	keyDir         string
	keyFingerprint string
	serviceAccount string

	metricsEnabled bool
	metricsAddr    string
}

func newServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the document viewer HTTP server",
		Long: `Start the HTTP server that resolves document names in the URL path to
files in the configured Google Drive folder and serves embeddable viewer
pages.

Configuration can be provided via flags or environment variables
(SUPERSHARE_FOLDER, SUPERSHARE_EMAIL, SUPERSHARE_KEY_DIR,
SUPERSHARE_KEY_FINGERPRINT, SUPERSHARE_SERVICE_ACCOUNT). A .env file in
the working directory is loaded if present.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts)
		},
	}

	cmd.Flags().BoolVar(&opts.debugMode, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&opts.logFormat, "log-format", "text", "Log format: text or json")
	cmd.Flags().StringVar(&opts.addr, "addr", server.DefaultAddr, "Address for the viewer server")
	cmd.Flags().StringVar(&opts.mount, "mount", server.DefaultMount, "Path prefix the viewer handler is served under")
	cmd.Flags().StringVar(&opts.folderID, "folder", "", "Drive folder ID to search for documents")
	cmd.Flags().StringVar(&opts.account, "email", "", "Account email to impersonate for Drive API calls")
	cmd.Flags().StringVar(&opts.keyDir, "key-dir", "privatekeys", "Directory containing the service account .p12 key")
	cmd.Flags().StringVar(&opts.keyFingerprint, "key-fingerprint", "", "Fingerprint naming the key file ({fingerprint}-privatekey.p12)")
	cmd.Flags().StringVar(&opts.serviceAccount, "service-account", "", "Service account ID used to sign token requests")
	cmd.Flags().BoolVar(&opts.metricsEnabled, "metrics-enabled", true, "Enable the Prometheus metrics server")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", server.DefaultMetricsAddr, "Address for the metrics server")

	return cmd
}

func runServe(opts serveOptions) error {
	// A missing .env file is fine; flags and real environment still apply.
	_ = godotenv.Load()

	applyEnvFallbacks(&opts)

	logger, err := newLogger(opts.logFormat, opts.debugMode)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	if opts.folderID == "" {
		return fmt.Errorf("a Drive folder ID is required (--folder or SUPERSHARE_FOLDER)")
	}
	if opts.account == "" {
		return fmt.Errorf("an impersonation email is required (--email or SUPERSHARE_EMAIL)")
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize instrumentation
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	if err := instrConfig.Validate(); err != nil {
		return fmt.Errorf("invalid instrumentation config: %w", err)
	}

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize instrumentation: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			logger.Error("error during instrumentation shutdown", logging.Err(err))
		}
	}()

	// Start the metrics server on its own port
	var metricsServer *server.MetricsServer
	if opts.metricsEnabled && provider.Enabled() {
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    opts.metricsAddr,
			InstrumentationProvider: provider,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}

		metricsReady := make(chan struct{})
		metricsErr := make(chan error, 1)
		go func() {
			if err := metricsServer.StartWithReadySignal(metricsReady); err != nil && err != http.ErrServerClosed {
				metricsErr <- err
			}
			close(metricsErr)
		}()

		select {
		case <-metricsReady:
			logger.Info("metrics server started", "addr", metricsServer.Addr())
		case err := <-metricsErr:
			return fmt.Errorf("metrics server failed to start: %w", err)
		case <-time.After(5 * time.Second):
			return fmt.Errorf("metrics server startup timed out")
		}

		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := metricsServer.Shutdown(ctx); err != nil {
				logger.Error("error during metrics server shutdown", logging.Err(err))
			}
		}()
	}

	// Load the service account key once. On failure the process continues
	// with no usable key: the server stays up, readiness reports the
	// problem, and every Drive call fails until restart.
	var keys *google.KeyParts
	if opts.keyFingerprint == "" || opts.serviceAccount == "" {
		logger.Error("service account key not configured; Drive calls will fail",
			"key_dir", opts.keyDir)
	} else {
		keys, err = google.NewKeyParts(opts.keyDir, opts.keyFingerprint, opts.serviceAccount)
		if err != nil {
			logger.Error("failed to load service account key; Drive calls will fail",
				logging.Err(err))
			keys = nil
		}
	}

	factory := google.NewFactory(keys, logger, provider.Metrics())

	serverContext, err := server.NewServerContext(shutdownCtx, factory, viewer.Config{
		FolderID: opts.folderID,
		Account:  opts.account,
	}, provider.Metrics())
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		if err := serverContext.Shutdown(); err != nil {
			logger.Error("error during server context shutdown", logging.Err(err))
		}
	}()

	httpServer, err := server.NewHTTPServer(server.HTTPServerConfig{
		Addr:  opts.addr,
		Mount: opts.mount,
	}, serverContext, logger)
	if err != nil {
		return fmt.Errorf("failed to create viewer server: %w", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := httpServer.Start(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-shutdownCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("viewer server stopped with error: %w", err)
		}
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("error during viewer server shutdown: %w", err)
	}

	return nil
}

// applyEnvFallbacks fills unset options from environment variables.
func applyEnvFallbacks(opts *serveOptions) {
	if opts.folderID == "" {
		opts.folderID = os.Getenv("SUPERSHARE_FOLDER")
	}
	if opts.account == "" {
		opts.account = os.Getenv("SUPERSHARE_EMAIL")
	}
	if v := os.Getenv("SUPERSHARE_KEY_DIR"); v != "" && opts.keyDir == "privatekeys" {
		opts.keyDir = v
	}
	if opts.keyFingerprint == "" {
		opts.keyFingerprint = os.Getenv("SUPERSHARE_KEY_FINGERPRINT")
	}
	if opts.serviceAccount == "" {
		opts.serviceAccount = os.Getenv("SUPERSHARE_SERVICE_ACCOUNT")
	}
}

// newLogger builds the process logger from the requested format and level.
func newLogger(format string, debug bool) (*slog.Logger, error) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	handlerOpts := &slog.HandlerOptions{Level: level}

	switch format {
	case "text":
		return slog.New(slog.NewTextHandler(os.Stderr, handlerOpts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(os.Stderr, handlerOpts)), nil
	default:
		return nil, fmt.Errorf("unsupported log format %q (supported: text, json)", format)
	}
}
