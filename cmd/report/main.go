package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"epitrack/internal/config"
	"epitrack/internal/exporter"
	"epitrack/internal/fetch"
	"epitrack/internal/infrastructure"
	"epitrack/internal/report"
	"epitrack/internal/reshape"
	"epitrack/pkg/contracts"
)

func main() {
	confirmedURL := flag.String("confirmed", "", "URL of the confirmed-cases wide CSV (overrides config)")
	deathsURL := flag.String("deaths", "", "URL of the deaths wide CSV (overrides config)")
	outDir := flag.String("out", "", "output directory for report files (overrides config)")
	topN := flag.Int("top", 0, "ranking length (overrides config)")
	snapshot := flag.String("snapshot", "", "snapshot date as YYYY-MM-DD (default: latest date in the data)")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(contracts.GetFullVersionString())
		return
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Warn("Failed to load config, using defaults", "error", err)
		cfg = config.Default()
	}

	if *confirmedURL != "" {
		cfg.Sources.ConfirmedURL = *confirmedURL
	}
	if *deathsURL != "" {
		cfg.Sources.DeathsURL = *deathsURL
	}
	if *outDir != "" {
		cfg.Output.Dir = *outDir
	}
	if *topN > 0 {
		cfg.Report.TopN = *topN
	}
	if *snapshot != "" {
		cfg.Report.SnapshotDate = *snapshot
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}
	defer infrastructure.CloseLogFile()

	// One trace ID per run ties all log lines of this batch together
	ctx := infrastructure.ContextWithTraceID(context.Background())

	if cfg.Sources.ConfirmedURL == "" || cfg.Sources.DeathsURL == "" {
		logger.ErrorContext(ctx, "Both source URLs are required (flags or EPITRACK_SOURCES_* env)")
		os.Exit(2)
	}

	var snapshotDate time.Time
	if t, ok := cfg.SnapshotTime(); ok {
		snapshotDate = t
	} else if cfg.Report.SnapshotDate != "" {
		logger.ErrorContext(ctx, "Invalid snapshot date",
			slog.String("snapshot", cfg.Report.SnapshotDate))
		os.Exit(2)
	}

	logger.InfoContext(ctx, "Starting report run",
		slog.String("version", contracts.Version),
		slog.String("confirmed_url", cfg.Sources.ConfirmedURL),
		slog.String("deaths_url", cfg.Sources.DeathsURL),
		slog.String("output_dir", cfg.Output.Dir),
		slog.Int("top_n", cfg.Report.TopN),
		slog.Int64("min_confirmed", cfg.Report.MinConfirmed))

	client := fetch.NewClient(
		fetch.WithTimeout(cfg.Fetch.Timeout),
		fetch.WithUserAgent(cfg.Fetch.UserAgent),
	)

	// The two source files are independent; fetch them concurrently. Either
	// failure aborts the run before any transformation starts.
	var confirmedRaw, deathsRaw []byte
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		confirmedRaw, err = client.Fetch(gctx, cfg.Sources.ConfirmedURL)
		return err
	})
	g.Go(func() error {
		var err error
		deathsRaw, err = client.Fetch(gctx, cfg.Sources.DeathsURL)
		return err
	})
	if err := g.Wait(); err != nil {
		logger.ErrorContext(ctx, "Source fetch failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.InfoContext(ctx, "Fetched source files",
		slog.Int("confirmed_bytes", len(confirmedRaw)),
		slog.Int("deaths_bytes", len(deathsRaw)))

	confirmedWide, err := reshape.ParseWideCSV(bytes.NewReader(confirmedRaw))
	if err != nil {
		logger.ErrorContext(ctx, "Failed to parse confirmed table", slog.String("error", err.Error()))
		os.Exit(1)
	}
	deathsWide, err := reshape.ParseWideCSV(bytes.NewReader(deathsRaw))
	if err != nil {
		logger.ErrorContext(ctx, "Failed to parse deaths table", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var renderers []report.Renderer
	if cfg.Output.WriteCSV {
		renderers = append(renderers, exporter.NewCSVRenderer(cfg.Output.Dir, logger))
	}
	var summary report.SummaryRenderer
	if cfg.Output.WriteExcel {
		summary = exporter.NewExcelRenderer(cfg.Output.Dir, logger)
	}

	svc := report.NewService(logger, report.Config{
		TopN:         cfg.Report.TopN,
		MinConfirmed: cfg.Report.MinConfirmed,
		SnapshotDate: snapshotDate,
	}, renderers, summary)

	result, err := svc.Run(ctx, confirmedWide, deathsWide)
	if err != nil {
		logger.ErrorContext(ctx, "Report run failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.InfoContext(ctx, "Report run completed",
		slog.Int("joined_records", len(result.Joined)),
		slog.Int("countries", len(result.Aggregates)),
		slog.String("snapshot_date", result.SnapshotDate.Format("2006-01-02")),
		slog.String("output_dir", cfg.Output.Dir))
}
