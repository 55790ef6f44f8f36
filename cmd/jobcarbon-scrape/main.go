package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rshade/jobcarbon/internal/logging"
	"github.com/rshade/jobcarbon/internal/logparse"
	"github.com/rshade/jobcarbon/internal/scrape"
	"github.com/rshade/jobcarbon/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	os.Exit(run(ctx, os.Args[1:], os.Stderr))
}

func run(ctx context.Context, args []string, stderr io.Writer) int {
	cfg, err := parseConfig(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "[jobcarbon-scrape] %v\n", err)
		return 2
	}

	level := cfg.LogLevel
	if level == "" && os.Getenv(logging.EnvLevel) == "" {
		level = "info"
	}
	logger, err := logging.New("jobcarbon-scrape", level, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "[jobcarbon-scrape] %v\n", err)
		return 2
	}

	st, err := store.Open(ctx, cfg.DSN, cfg.Create)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to open job log database")
		return 1
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close job log database")
		}
	}()

	variant := logparse.VariantAccounting
	if cfg.ServerLogs {
		variant = logparse.VariantServer
	}

	s := scrape.New(scrape.Options{
		LogDir:     cfg.LogDir,
		Variant:    variant,
		WindowDays: cfg.WindowDays,
	}, st, logger)

	res, err := s.Run(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Scrape failed")
		return 1
	}

	logger.Info().
		Time("through", res.Through).
		Int("files", res.FilesRead).
		Int("missing", res.FilesMissing).
		Int("inserted", res.RowsInserted).
		Int("skipped", res.RowsSkipped).
		Msg("Scrape finished")

	if cfg.MetricsFile != "" {
		if err := scrape.WriteMetrics(cfg.MetricsFile, res); err != nil {
			logger.Error().Err(err).Str("path", cfg.MetricsFile).Msg("Failed to write metrics")
			return 1
		}
	}
	return 0
}
