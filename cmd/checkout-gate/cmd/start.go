package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Checkout-Gate/checkoutgate/internal/adapter/inbound/web"
	"github.com/Checkout-Gate/checkoutgate/internal/adapter/outbound/memory"
	"github.com/Checkout-Gate/checkoutgate/internal/adapter/outbound/sqlite"
	"github.com/Checkout-Gate/checkoutgate/internal/config"
	"github.com/Checkout-Gate/checkoutgate/internal/domain/catalog"
	"github.com/Checkout-Gate/checkoutgate/internal/domain/ratelimit"
	"github.com/Checkout-Gate/checkoutgate/internal/observe"
	"github.com/Checkout-Gate/checkoutgate/internal/service"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the server",
	Long: `Start the Checkout Gate server.

The server loads the service catalog, opens the transaction store, and
serves the checkout page plus its API on the configured listen address.

Examples:
  # Start with config file settings
  checkout-gate start

  # Start with a specific config file
  checkout-gate --config /path/to/config.yaml start

  # Start in development mode (debug logging, local sqlite file)
  checkout-gate start --dev`,
	RunE: runStart,
}

var devMode bool

func init() {
	startCmd.Flags().BoolVar(&devMode, "dev", false, "Enable development mode (verbose logging, local defaults)")
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	// Load configuration (without validation, so CLI flags can override first)
	cfg, err := config.LoadConfigRaw()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if devMode {
		cfg.DevMode = true
	}

	// Apply dev defaults (fills the store DSN if empty in dev mode)
	cfg.SetDevDefaults()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	// Create signal context for graceful shutdown.
	// stop() restores default signal handling so a second Ctrl+C does a hard kill.
	ctx, stop := signal.NotifyContext(context.Background(), gracefulSignals()...)
	go func() {
		<-ctx.Done()
		stop() // Restore default: next Ctrl+C = immediate exit.
	}()

	// Priority: DevMode=true -> debug, otherwise use configured log_level
	logLevel := parseLogLevel(cfg.Server.LogLevel)
	if cfg.DevMode {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	logger.Debug("log level configured", "level", cfg.Server.LogLevel, "effective", logLevel.String())

	if configFile := config.ConfigFileUsed(); configFile != "" {
		logger.Info("loaded config", "file", configFile)
	}

	// Write PID file so "checkout-gate stop" can find us.
	pidPath := pidFilePath()
	if err := writePIDFile(pidPath); err != nil {
		logger.Warn("failed to write PID file", "path", pidPath, "error", err)
	} else {
		defer os.Remove(pidPath)
	}

	if err := run(ctx, cfg, logger); err != nil {
		return err
	}

	logger.Info("checkout-gate stopped")
	return nil
}

// run wires the catalog, store, rate limiter, and HTTP server together and
// blocks until the context is cancelled.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	telemetryShutdown, err := observe.Setup(ctx, cfg.Telemetry.Enabled, Version)
	if err != nil {
		return fmt.Errorf("failed to set up telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := telemetryShutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	cat, err := catalog.Load()
	if err != nil {
		return fmt.Errorf("failed to load service catalog: %w", err)
	}
	logger.Info("service catalog loaded", "services", len(cat.Services()))

	store, err := sqlite.Open(cfg.Store.DSN,
		sqlite.WithMaxConns(cfg.Store.MaxConns),
		sqlite.WithWriteTimeout(cfg.Store.WriteTimeout),
		sqlite.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("failed to open transaction store: %w", err)
	}
	defer store.Close()
	logger.Info("transaction store ready", "dsn", cfg.Store.DSN)

	checkout := service.NewCheckoutService(cat, store, logger)

	handler, err := web.NewHandler(checkout, cfg.PayPal.ClientID)
	if err != nil {
		return fmt.Errorf("failed to create web handler: %w", err)
	}
	if cfg.PayPal.ClientID == "" {
		logger.Warn("paypal client ID not configured; checkout page will not load the payment SDK")
	}

	opts := []web.Option{
		web.WithAddr(cfg.Server.HTTPAddr),
		web.WithLogger(logger),
		web.WithAllowedOrigins(cfg.CORS.AllowedOrigins),
	}

	var limiter *memory.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = memory.NewRateLimiterWithConfig(cfg.RateLimit.CleanupInterval)
		limiter.StartCleanup(ctx)
		defer limiter.Stop()

		opts = append(opts, web.WithRateLimiter(limiter, ratelimit.Config{
			MaxRequests: cfg.RateLimit.MaxRequests,
			Window:      cfg.RateLimit.Window,
		}))
		logger.Info("rate limiting enabled",
			"max_requests", cfg.RateLimit.MaxRequests,
			"window", cfg.RateLimit.Window,
		)
	} else {
		logger.Warn("rate limiting disabled")
	}

	opts = append(opts, web.WithHealthChecker(web.NewHealthChecker(store, limiter, Version)))

	logger.Info("checkout-gate starting",
		"version", Version,
		"dev_mode", cfg.DevMode,
		"http_addr", cfg.Server.HTTPAddr,
		"rate_limit", cfg.RateLimit.Enabled,
		"telemetry", cfg.Telemetry.Enabled,
	)

	printBanner(Version, cfg.Server.HTTPAddr, cfg.DevMode)

	server := web.NewServer(handler, opts...)
	return server.Start(ctx)
}

// parseLogLevel converts a string log level to slog.Level.
// Returns slog.LevelInfo for unrecognized values.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// printBanner prints a formatted startup banner to stderr with version,
// address, and mode.
func printBanner(version, httpAddr string, devMode bool) {
	const (
		reset  = "\033[0m"
		bold   = "\033[1m"
		cyan   = "\033[36m"
		green  = "\033[32m"
		yellow = "\033[33m"
		dim    = "\033[2m"
	)

	pageURL := fmt.Sprintf("http://localhost%s/", httpAddr)
	if !strings.HasPrefix(httpAddr, ":") {
		pageURL = fmt.Sprintf("http://%s/", httpAddr)
	}

	modeStr := green + "production" + reset
	if devMode {
		modeStr = yellow + "development" + reset
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  %s%s Checkout Gate %s%s\n", bold, cyan, version, reset)
	fmt.Fprintf(os.Stderr, "  %s─────────────────────────────────────%s\n", dim, reset)
	fmt.Fprintf(os.Stderr, "  %-14s %s\n", "Storefront:", pageURL)
	fmt.Fprintf(os.Stderr, "  %-14s %shealth\n", "Health:", pageURL)
	fmt.Fprintf(os.Stderr, "  %-14s %smetrics\n", "Metrics:", pageURL)
	fmt.Fprintf(os.Stderr, "  %-14s %s\n", "Mode:", modeStr)
	fmt.Fprintf(os.Stderr, "  %s─────────────────────────────────────%s\n", dim, reset)
	fmt.Fprintf(os.Stderr, "\n")
}

// pidFilePath returns the standard location for the Checkout Gate PID file.
func pidFilePath() string {
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".checkout-gate", "server.pid")
	}
	return filepath.Join(os.TempDir(), "checkout-gate-server.pid")
}

// writePIDFile writes the current process PID to the given path, creating
// parent directories as needed.
func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0644)
}
