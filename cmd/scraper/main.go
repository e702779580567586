package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/aluiziolira/go-scrape-reviews/config"
	"github.com/aluiziolira/go-scrape-reviews/models"
	"github.com/aluiziolira/go-scrape-reviews/parser"
	"github.com/aluiziolira/go-scrape-reviews/pipeline"
	"github.com/aluiziolira/go-scrape-reviews/scraper"
)

// Exit codes.
const (
	exitError       = 1
	exitBotDetected = 2
)

type options struct {
	productID     string
	productURL    string
	skip          int
	configPath    string
	outputDir     string
	format        string
	delay         time.Duration
	timeout       time.Duration
	baseURL       string
	userAgent     string
	metricsAddr   string
	respectRobots bool
	verbose       bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "scraper",
		Short:         "Scrape a product's customer reviews into a per-product CSV file.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cmd.Flags(), opts)
		},
	}

	registerFlags(cmd.Flags(), opts)
	cmd.MarkFlagsMutuallyExclusive("product-id", "url")

	return cmd
}

func registerFlags(flags *pflag.FlagSet, opts *options) {
	defaults := config.DefaultConfig()
	flags.StringVarP(&opts.productID, "product-id", "p", "", "Product ID to scrape (default "+config.DefaultProductID+")")
	flags.StringVarP(&opts.productURL, "url", "u", "", "Product page URL to take the product ID from")
	flags.IntVarP(&opts.skip, "skip", "s", 0, "Number of reviews already collected; the walk resumes after them")
	flags.StringVar(&opts.configPath, "config", "", "YAML config file (env "+config.PathEnv+")")
	flags.StringVar(&opts.outputDir, "output-dir", defaults.OutputDir, "Directory for review files")
	flags.StringVar(&opts.format, "format", defaults.OutputFormat, "Output format: csv, json, or dual")
	flags.DurationVar(&opts.delay, "delay", defaults.Delay, "Pause before every request")
	flags.DurationVar(&opts.timeout, "timeout", defaults.Timeout, "Per-request timeout")
	flags.StringVar(&opts.baseURL, "base-url", defaults.BaseURL, "Site origin hosting the review pages")
	flags.StringVar(&opts.userAgent, "user-agent", defaults.UserAgent, "User-Agent header sent with every request")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", defaults.MetricsAddr, "Prometheus metrics listen address (e.g. :9090)")
	flags.BoolVar(&opts.respectRobots, "respect-robots", defaults.RespectRobotsTxt, "Respect robots.txt directives")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose logging")
}

func run(ctx context.Context, flags *pflag.FlagSet, opts *options) error {
	cfg, err := buildConfig(flags, opts)
	if err != nil {
		return err
	}

	logger, level := newLogger(cfg.Verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if !parser.ValidProductID(cfg.ProductID) {
		slog.Error("invalid product id", slog.String("product_id", cfg.ProductID))
		return fmt.Errorf("invalid product id %q: want 10 uppercase letters or digits", cfg.ProductID)
	}

	slog.Info("starting scrape",
		slog.String("product_id", cfg.ProductID),
		slog.String("base_url", cfg.BaseURL),
		slog.Int("skip", opts.skip),
		slog.String("output_dir", cfg.OutputDir),
	)

	s, err := scraper.NewScraper(cfg)
	if err != nil {
		slog.Error("initialising scraper", slog.Any("error", err))
		return err
	}

	writer, err := createWriter(cfg.OutputFormat, cfg.OutputDir)
	if err != nil {
		slog.Error("creating writer", slog.Any("error", err))
		return err
	}

	if cfg.MetricsAddr != "" {
		metricsServer := &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(s.Metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	p, err := pipeline.NewPipeline(writer, cfg)
	if err != nil {
		return err
	}

	result, runErr := s.Run(ctx, cfg.ProductID, opts.skip, p)
	if err := p.Close(); err != nil && runErr == nil {
		runErr = err
	}

	printSummary(result, writer, p.GetMetrics())

	if runErr != nil {
		var bot scraper.ErrBotDetected
		if errors.As(runErr, &bot) {
			slog.Error("blocked by bot detection, rerun later with --skip to resume",
				slog.Int("collected", result.ReviewCount),
				slog.Any("error", runErr),
			)
		} else {
			slog.Error("scraping failed", slog.Any("error", runErr))
		}
		return runErr
	}

	if err := writer.Validate(); err != nil {
		slog.Error("output validation failed", slog.Any("error", err))
		return err
	}
	return nil
}

// buildConfig layers defaults, the YAML file, SCRAPER_* variables and
// explicitly set flags, in that order.
func buildConfig(flags *pflag.FlagSet, opts *options) (*config.Config, error) {
	path := opts.configPath
	if !flags.Changed("config") {
		if value, ok := config.EnvString(config.PathEnv); ok {
			path = value
		}
	}

	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	if flags.Changed("output-dir") {
		cfg.OutputDir = opts.outputDir
	}
	if flags.Changed("format") {
		cfg.OutputFormat = strings.ToLower(opts.format)
	}
	if flags.Changed("delay") {
		cfg.Delay = opts.delay
	}
	if flags.Changed("timeout") {
		cfg.Timeout = opts.timeout
	}
	if flags.Changed("base-url") {
		cfg.BaseURL = opts.baseURL
	}
	if flags.Changed("user-agent") {
		cfg.UserAgent = opts.userAgent
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr = opts.metricsAddr
	}
	if flags.Changed("respect-robots") {
		cfg.RespectRobotsTxt = opts.respectRobots
	}
	if flags.Changed("verbose") {
		cfg.Verbose = opts.verbose
	}

	if opts.productURL != "" {
		if _, ok := parser.ExtractProductID(opts.productURL); !ok {
			slog.Warn("no product id in url, using fallback",
				slog.String("url", opts.productURL),
				slog.String("product_id", cfg.ProductID),
			)
		}
	}
	cfg.ProductID = parser.ResolveProductID(opts.productID, opts.productURL, cfg.ProductID)
	if cfg.ProductID == "" {
		cfg.ProductID = config.DefaultProductID
	}
	return cfg, nil
}

type fileLister interface {
	Files() []string
}

func createWriter(format, dir string) (pipeline.OutputWriter, error) {
	switch format {
	case "json":
		return pipeline.NewJSONWriter(dir)
	case "csv":
		return pipeline.NewCSVWriter(dir)
	case "dual":
		return pipeline.NewDualWriter(dir, dir)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

func exitCode(err error) int {
	var bot scraper.ErrBotDetected
	if errors.As(err, &bot) {
		return exitBotDetected
	}
	return exitError
}

func printSummary(result *models.ScraperResult, writer pipeline.OutputWriter, metrics map[string]interface{}) {
	if result == nil {
		return
	}

	duration := result.EndTime.Sub(result.StartTime)
	written := int64(0)
	if processed, ok := metrics["processed_reviews"].(int64); ok {
		written = processed
	}
	reviewsPerSec := 0.0
	if duration.Seconds() > 0 {
		reviewsPerSec = float64(written) / duration.Seconds()
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("Scrape complete")
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRows([]table.Row{
		{"Product", fmt.Sprintf("%s (%s)", result.ProductTitle, result.ProductID)},
		{"Total reviews", result.TotalReviews},
		{"Pages", fmt.Sprintf("%d-%d of %d", result.StartPage, result.StartPage+max(result.PageCount-1, 0), result.PageCeiling)},
		{"Reviews written", written},
		{"Malformed entries", result.MalformedEntries},
		{"Requests", result.RequestCount},
		{"Errors", result.ErrorCount},
		{"Stop reason", result.StopReason},
	})
	if len(result.ErrorsByType) > 0 {
		t.AppendRow(table.Row{"Error types", fmt.Sprint(result.ErrorsByType)})
	}
	if valErrors, ok := metrics["validation_errors"].(map[string]int); ok && len(valErrors) > 0 {
		t.AppendRow(table.Row{"Validation", fmt.Sprint(valErrors)})
	}
	t.AppendRow(table.Row{"Duration", duration.Round(time.Millisecond)})
	t.AppendRow(table.Row{"Reviews/sec", fmt.Sprintf("%.2f", reviewsPerSec)})
	if lister, ok := writer.(fileLister); ok {
		for _, file := range lister.Files() {
			t.AppendRow(table.Row{"Output file", file})
		}
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
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
