package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"recruits/internal/config"
	"recruits/internal/diagnostics"
	"recruits/internal/formatter"
	"recruits/internal/logging"
	"recruits/internal/metrics"
	"recruits/internal/scraper"
	"recruits/internal/sink"
	_ "recruits/internal/sites/sports247"
)

var version = "dev"

var (
	seasons     []int
	width       int
	constrained bool
	outputDir   string
	format      string
	diag        bool
	showUI      bool
	proxyURL    string
	timeout     time.Duration
	configFile  string
	logLevel    string
	logFile     string
	metricsFile string
	site        string
)

func main() {
	var rootCmd = &cobra.Command{
		Use:     "recruits",
		Short:   "Scrape 247Sports composite recruiting classes",
		Version: version,
		Long: `recruits renders the 247Sports composite recruiting rankings for one or
more seasons in a headless browser, visits every ranked athlete's
recruiting profile and writes one row per athlete with ratings, ranks,
commitment and draft information.`,
		Example: `  # Scrape the 2019 class to CSV
  recruits -y 2019

  # Quick constrained run over two classes, JSON output
  recruits -y 2018 -y 2019 --constrained -f json

  # Store into SQLite with eight concurrent profiles per chunk
  recruits -y 2020 -w 8 -f sqlite -o data`,
		Args:         cobra.NoArgs,
		RunE:         run,
		SilenceUsage: true,
	}

	rootCmd.Flags().IntSliceVarP(&seasons, "season", "y", nil, "Recruiting class year (repeatable)")
	rootCmd.Flags().IntVarP(&width, "width", "w", 4, "Profiles fetched concurrently per chunk")
	rootCmd.Flags().BoolVar(&constrained, "constrained", false, "One load-more click and at most 50 profiles per season")
	rootCmd.Flags().StringVarP(&outputDir, "output-dir", "o", "output", "Output directory")
	rootCmd.Flags().StringVarP(&format, "format", "f", "csv", "Output format ("+strings.Join(config.Formats, ", ")+")")
	rootCmd.Flags().BoolVar(&diag, "diagnostics", true, "Save markup of pages that failed to parse")
	rootCmd.Flags().BoolVar(&showUI, "showui", false, "Show browser UI (disable headless mode)")
	rootCmd.Flags().StringVarP(&proxyURL, "proxy", "p", os.Getenv("RECRUITS_PROXY"), "Proxy URL (e.g. http://127.0.0.1:7890), defaults to RECRUITS_PROXY env var")
	rootCmd.Flags().DurationVarP(&timeout, "timeout", "t", 30*time.Second, "Profile navigation timeout")
	rootCmd.Flags().StringVarP(&configFile, "config", "c", "", "YAML config file")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.Flags().StringVar(&logFile, "log-file", "", "Also write logs to this file")
	rootCmd.Flags().StringVar(&metricsFile, "metrics-file", "", "Write prometheus metrics to this file on exit")
	rootCmd.Flags().StringVar(&site, "site", "sports247", "Site to scrape ("+strings.Join(scraper.Names(), ", ")+")")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// overrides returns config overrides for the flags set on the command line,
// so unset flags do not mask file or env values.
func overrides(cmd *cobra.Command) map[string]any {
	flags := cmd.Flags()
	out := map[string]any{}
	set := func(flag, key string, v any) {
		if flags.Changed(flag) {
			out[key] = v
		}
	}
	set("season", "seasons", seasons)
	set("width", "width", width)
	set("constrained", "constrained", constrained)
	set("output-dir", "output_dir", outputDir)
	set("format", "format", format)
	set("diagnostics", "diagnostics", diag)
	set("showui", "headless", !showUI)
	set("proxy", "proxy_url", proxyURL)
	set("timeout", "timeouts.navigation", timeout)
	set("log-level", "log_level", logLevel)
	set("log-file", "log_file", logFile)
	set("metrics-file", "metrics_file", metricsFile)
	set("site", "site", site)
	return out
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(config.LoadOptions{
		File:      configFile,
		Overrides: overrides(cmd),
	})
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return err
	}
	defer logger.Sync()

	s, ok := scraper.Get(cfg.Site)
	if !ok {
		return fmt.Errorf("unknown site: %s", cfg.Site)
	}

	runID := uuid.NewString()
	started := time.Now()
	rec := metrics.New()
	defer func() {
		if cfg.MetricsFile == "" {
			return
		}
		if err := rec.WriteTextfile(cfg.MetricsFile); err != nil {
			logger.Warn("Failed to write metrics", zap.Error(err))
		}
	}()

	logger.Info("Starting run",
		zap.String("run_id", runID),
		zap.Ints("seasons", cfg.Seasons),
		zap.Int("width", cfg.Width),
		zap.Bool("constrained", cfg.Constrained),
		zap.String("format", cfg.Format),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	content, err := s.Scrape(ctx, scraper.Options{
		Config:      cfg,
		Logger:      logger,
		Metrics:     rec,
		Diagnostics: diagnostics.New(cfg.OutputDir, runID, cfg.Diagnostics, logger.Named("diagnostics")),
	})
	if err != nil {
		logger.Error("Run failed", zap.Error(err))
		return fmt.Errorf("failed to scrape: %w", err)
	}

	records := content.Records()
	name := sink.FileName(cfg.Seasons, started, formatter.Extension(cfg.Format))
	path := filepath.Join(cfg.OutputDir, name)

	if cfg.Format == "sqlite" {
		db, err := sink.OpenSQLite(path)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.WriteRun(ctx, runID, cfg.Seasons, started, records); err != nil {
			return fmt.Errorf("failed to store records: %w", err)
		}
	} else {
		text, err := formatter.Format(content, cfg.Format)
		if err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}
		if path, err = sink.WriteFile(cfg.OutputDir, name, text); err != nil {
			return err
		}
	}
	rec.RecordsWritten(cfg.Format, len(records))
	logger.Info("Output written", zap.String("path", path), zap.Int("records", len(records)))

	sink.Summarize(records, path).Render(os.Stderr)
	if len(records) == 0 {
		return errors.New("no records written")
	}
	return nil
}
