package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aluiziolira/go-collect-posts/agent"
	"github.com/aluiziolira/go-collect-posts/collector"
	"github.com/aluiziolira/go-collect-posts/config"
	"github.com/aluiziolira/go-collect-posts/models"
	"github.com/aluiziolira/go-collect-posts/probe"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(1)
	}

	defaultCfg := config.DefaultConfig()
	configDefault, _ := config.EnvString("COLLECTOR_CONFIG")

	configPath := flag.String("config", configDefault, "YAML configuration file")
	sourceURL := flag.String("url", defaultCfg.SourceURL, "Feed URL to collect from")
	maxPosts := flag.Int("max-posts", defaultCfg.MaxItems, "Number of posts to collect")
	mode := flag.String("mode", defaultCfg.Mode, "Detail collection mode: sequential or concurrent")
	maxConcurrent := flag.Int("max-concurrent", defaultCfg.MaxConcurrent, "Maximum detail extractions in flight (concurrent mode)")
	useVision := flag.Bool("vision", defaultCfg.UseVision, "Attach page screenshots to model requests")
	headless := flag.Bool("headless", defaultCfg.Headless, "Run the browser without a window")
	outputDir := flag.String("output", defaultCfg.OutputDir, "Output directory")
	exportCSV := flag.Bool("csv", defaultCfg.ExportCSV, "Also export collected posts as CSV")
	retryDelay := flag.Duration("retry-delay", defaultCfg.RetryDelay, "Delay between detail attempts")
	model := flag.String("model", defaultCfg.Model, "Gemini model name")
	browserBin := flag.String("browser-bin", defaultCfg.BrowserBin, "Chromium binary (downloaded when empty)")
	probeLinks := flag.Bool("probe-links", defaultCfg.ProbeLinks, "Fetch the feed over HTTP to backfill post links")
	metricsAddr := flag.String("metrics-addr", defaultCfg.MetricsAddr, "Prometheus metrics listen address (e.g. :9090)")
	verbose := flag.Bool("v", false, "Enable verbose logging")

	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "url":
			cfg.SourceURL = *sourceURL
		case "max-posts":
			cfg.MaxItems = *maxPosts
		case "mode":
			cfg.Mode = strings.ToLower(*mode)
		case "max-concurrent":
			cfg.MaxConcurrent = *maxConcurrent
		case "vision":
			cfg.UseVision = *useVision
		case "headless":
			cfg.Headless = *headless
		case "output":
			cfg.OutputDir = *outputDir
		case "csv":
			cfg.ExportCSV = *exportCSV
		case "retry-delay":
			cfg.RetryDelay = *retryDelay
		case "model":
			cfg.Model = *model
		case "browser-bin":
			cfg.BrowserBin = *browserBin
		case "probe-links":
			cfg.ProbeLinks = *probeLinks
		case "metrics-addr":
			cfg.MetricsAddr = *metricsAddr
		case "v":
			cfg.Verbose = *verbose
		}
	})

	logger, level := newLogger(cfg.Verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}
	if cfg.APIKey == "" {
		slog.Error("invalid configuration", slog.String("error", "GEMINI_API_KEY is not set"))
		os.Exit(1)
	}

	metrics := collector.NewMetrics()
	opts := []collector.Option{
		collector.WithLogger(logger),
		collector.WithMetrics(metrics),
	}
	if cfg.ProbeLinks {
		prober, err := probe.New(probe.Config{
			LinkPattern: cfg.LinkPattern,
			UserAgent:   cfg.UserAgent,
			Timeout:     cfg.ProbeTimeout,
			CacheSize:   cfg.ProbeCacheSize,
			CacheTTL:    cfg.ProbeCacheTTL,
		}, probe.WithLogger(logger))
		if err != nil {
			slog.Error("initialising link prober", slog.Any("error", err))
			os.Exit(1)
		}
		opts = append(opts, collector.WithProber(prober))
	}

	c, err := collector.New(cfg, agent.NewLauncher(cfg, logger), opts...)
	if err != nil {
		slog.Error("initialising collector", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received, waiting for in-flight posts to finish")
	}()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	startTime := time.Now()
	summary, err := c.Collect(ctx, c.DefaultRequest())
	shutdownMetrics(metricsServer)
	if err != nil {
		slog.Error("collection failed", slog.Any("error", err))
		os.Exit(1)
	}

	printSummary(summary, time.Since(startTime))
}

// loadConfig layers the YAML file (when given) and the environment over the defaults.
func loadConfig(path string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if path != "" {
		if err := config.LoadFile(cfg, path); err != nil {
			return nil, err
		}
	}
	if err := config.ApplyEnv(cfg); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}
	return cfg, nil
}

func shutdownMetrics(server *http.Server) {
	if server == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("metrics server shutdown failed", slog.Any("error", err))
	}
}

func printSummary(summary *models.RunSummary, duration time.Duration) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Collection complete")
	fmt.Printf("  Run:           %s\n", summary.RunID)
	fmt.Printf("  Source:        %s\n", summary.URL)
	fmt.Printf("  Requested:     %d\n", summary.TotalPosts)
	fmt.Printf("  Listed:        %d\n", summary.Listed)
	if summary.ListEmpty {
		fmt.Println("  Warning:       the post list was empty")
	}
	fmt.Printf("  Collected:     %d\n", summary.Collected)
	fmt.Printf("  Failed:        %d\n", summary.Failed)
	for _, outcome := range summary.Details {
		if outcome.Failed() {
			fmt.Printf("    post %d: %s (%d attempts)\n", outcome.Position, outcome.Err, outcome.Attempts)
		}
	}
	fmt.Printf("  Mode:          %s\n", summary.Mode)
	fmt.Printf("  Duration:      %v\n", duration.Round(time.Millisecond))
	fmt.Printf("  Output dir:    %s\n", summary.OutputDir)
	fmt.Println(separator)
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
