// Command gateway runs the API gateway: service registry, health
// monitoring, circuit breaking, rate limiting, and alerting in front of
// the backend services.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/simanto848/student-portal-backend-microservice-sub002/internal/config"
	"github.com/simanto848/student-portal-backend-microservice-sub002/internal/observability"
)

// Build information, set via ldflags.
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	var (
		configPath  = flag.String("config", envOr("GATEWAY_CONFIG", "configs/gateway.yaml"), "path to the configuration file")
		logLevel    = flag.String("log-level", envOr("GATEWAY_LOG_LEVEL", ""), "log level override (debug, info, warn, error)")
		logFormat   = flag.String("log-format", envOr("GATEWAY_LOG_FORMAT", ""), "log format override (json, console)")
		showVersion = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("gateway %s (commit %s, built %s)\n", version, commit, buildDate)
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := config.ValidateConfig(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if *logFormat != "" {
		cfg.Logging.Format = *logFormat
	}

	logger, err := observability.NewLogger(observability.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: "stdout",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	observability.SetGlobalLogger(logger)

	logger.Info("starting gateway",
		observability.String("version", version),
		observability.String("config", *configPath),
	)

	app, err := NewApp(cfg, *configPath, logger)
	if err != nil {
		logger.Fatal("failed to initialize gateway", observability.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		logger.Fatal("gateway exited with error", observability.Error(err))
	}
}

// envOr returns the environment value for key, or fallback when unset.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
