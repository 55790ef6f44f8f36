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

	"github.com/rs/zerolog"

	"github.com/rshade/jobcarbon/internal/carbon"
	"github.com/rshade/jobcarbon/internal/config"
	"github.com/rshade/jobcarbon/internal/estimate"
	"github.com/rshade/jobcarbon/internal/logging"
	"github.com/rshade/jobcarbon/internal/logparse"
	"github.com/rshade/jobcarbon/internal/pricing"
	"github.com/rshade/jobcarbon/internal/render"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	stdout, _ := render.Stdout()
	os.Exit(run(ctx, os.Args[1:], stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, err := parseConfig(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "[jobcarbon] %v\n", err)
		return 2
	}

	logger, err := logging.New("jobcarbon", cfg.LogLevel, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "[jobcarbon] %v\n", err)
		return 2
	}
	carbon.SetLogger(logger)

	est, err := setup(cfg, logger)
	if err != nil {
		fmt.Fprintf(stderr, "[jobcarbon] %v\n", err)
		return 1
	}

	rep, err := est.Run(ctx, estimate.Request{
		Mode:     cfg.Mode,
		Inputs:   cfg.Inputs,
		Forecast: cfg.Forecast,
	})
	if errors.Is(err, estimate.ErrNoJobsFound) {
		fmt.Fprintf(stdout, "%v\n", err)
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "[jobcarbon] %v\n", err)
		return 1
	}

	if cfg.JSON {
		err = render.ReportJSON(stdout, rep)
	} else {
		err = render.Report(stdout, rep)
	}
	if err != nil {
		fmt.Fprintf(stderr, "[jobcarbon] write report: %v\n", err)
		return 1
	}
	return 0
}

func setup(cfg *Config, logger zerolog.Logger) (*estimate.Estimator, error) {
	clusterCfg, err := config.Load(cfg.ConfigPath)
	if pricing.IsMissingPrice(err) {
		return nil, fmt.Errorf("%w (set cluster.price.energy_price and cluster.price.price_currency)", err)
	}
	if err != nil {
		return nil, err
	}

	ref := carbon.DefaultReference()
	if cfg.ReferencePath != "" {
		if ref, err = carbon.LoadReference(cfg.ReferencePath); err != nil {
			return nil, err
		}
	}

	return estimate.FromConfig(clusterCfg, ref, estimate.Options{
		Source:       logparse.Tracejob{Path: cfg.TracejobPath},
		LookbackDays: cfg.LookbackDays,
	}, logger)
}
