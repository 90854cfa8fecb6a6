// cmd/racepull/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/racepull/racepull/internal/browser"
	"github.com/racepull/racepull/internal/config"
	"github.com/racepull/racepull/internal/monitoring"
	"github.com/racepull/racepull/internal/orchestrator"
	"github.com/racepull/racepull/internal/platform"
	"github.com/racepull/racepull/internal/server"
	"github.com/racepull/racepull/internal/source"
	"github.com/racepull/racepull/internal/store"
	"github.com/racepull/racepull/internal/utils"
)

// Version information (set by build flags)
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	// A missing .env is the normal case outside local development.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := runServe(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

	case "extract":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Error: URL required")
			fmt.Fprintln(os.Stderr, "Usage: racepull extract <url>")
			os.Exit(1)
		}
		if err := runExtract(os.Args[2]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

	case "validate":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Error: config file required")
			fmt.Fprintln(os.Stderr, "Usage: racepull validate <config.yaml>")
			os.Exit(1)
		}
		if err := runValidate(os.Args[2]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("✓ Configuration file '%s' is valid\n", os.Args[2])

	case "version", "--version":
		printVersion()

	case "help", "--help", "-h":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command '%s'\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// loadConfig reads the optional config file argument, falling back to
// defaults plus environment overrides.
func loadConfig(args []string) (*config.Config, error) {
	if len(args) > 0 {
		return config.LoadFromFile(args[0])
	}
	return config.FromEnv(), nil
}

func runServe(args []string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	logger := utils.NewLoggerWithLevel(utils.ParseLogLevel(cfg.LogLevel))
	logger.Infof("racepull %s starting", version)

	st, err := store.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	pool, err := browser.NewChromePool(&browser.Config{
		Headless:    cfg.Browser.HeadlessEnabled(),
		Timeout:     cfg.Browser.Timeout.Std(),
		SettleDelay: cfg.Browser.SettleDelay.Std(),
		UserAgent:   cfg.Browser.UserAgent,
		PoolSize:    cfg.Jobs.Concurrency,
	})
	if err != nil {
		return fmt.Errorf("failed to create renderer pool: %w", err)
	}

	metrics := monitoring.NewMetrics("")
	svc, err := orchestrator.NewService(orchestrator.Options{
		Store:         st,
		Pool:          pool,
		Metrics:       metrics,
		Logger:        logger,
		Concurrency:   cfg.Jobs.Concurrency,
		MaxBatchSize:  cfg.Jobs.MaxBatchSize,
		RetryAttempts: cfg.Jobs.RetryAttempts,
		RetryDelay:    cfg.Jobs.RetryDelay.Std(),
		CacheTTL:      cfg.Jobs.CacheTTL.Std(),
		PerHostRPS:    cfg.RateLimit.PerHostRPS,
		Burst:         cfg.RateLimit.Burst,
	})
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	health := monitoring.NewHealthHandler(version)
	health.AddCheck("store", st.Ping)

	httpServer := &http.Server{
		Addr:         cfg.Server.Listen,
		Handler:      server.New(svc, metrics, health, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("listening on %s", cfg.Server.Listen)
		errCh <- httpServer.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		logger.Infof("received %s, shutting down", sig)
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("http shutdown: %v", err)
	}
	if err := svc.Close(); err != nil {
		logger.Errorf("service shutdown: %v", err)
	}
	logger.Info("shutdown complete")
	return nil
}

// runExtract renders and extracts a single URL without touching storage,
// for pattern debugging against a live page.
func runExtract(rawURL string) error {
	normalized, _, err := source.NormalizeAndHash(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	registry := platform.DefaultRegistry()
	profile, err := registry.Detect(normalized)
	if err != nil {
		return fmt.Errorf("no registered platform matches %q", normalized)
	}
	fmt.Fprintf(os.Stderr, "Platform: %s\n", profile.Name)

	renderer, err := browser.NewChromeRenderer(browser.DefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}
	defer renderer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	text, err := renderer.Render(ctx, normalized)
	if err != nil {
		return fmt.Errorf("rendering failed: %w", err)
	}

	result := platform.Extract(text, profile)
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func runValidate(path string) error {
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

func printUsage() {
	fmt.Println("racepull - Race Result Extraction Service")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  racepull serve [config.yaml]     Start the extraction API server")
	fmt.Println("  racepull extract <url>           Extract a single result page to stdout")
	fmt.Println("  racepull validate <config.yaml>  Validate a configuration file")
	fmt.Println("  racepull version                 Show version information")
	fmt.Println("  racepull help                    Show this help message")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  RACEPULL_LISTEN      Listen address (overrides config)")
	fmt.Println("  RACEPULL_DB_DRIVER   sqlite3, postgres or mysql")
	fmt.Println("  RACEPULL_DB_DSN      Database connection string")
	fmt.Println("  RACEPULL_LOG_LEVEL   debug, info, warn or error")
}

func printVersion() {
	fmt.Printf("racepull %s\n", version)
	fmt.Printf("Build time: %s\n", buildTime)
	fmt.Printf("Git commit: %s\n", gitCommit)
}
