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
	"time"

	"github.com/rs/zerolog"

	"github.com/rshade/jobcarbon/internal/aggregate"
	"github.com/rshade/jobcarbon/internal/carbon"
	"github.com/rshade/jobcarbon/internal/config"
	"github.com/rshade/jobcarbon/internal/estimate"
	"github.com/rshade/jobcarbon/internal/logging"
	"github.com/rshade/jobcarbon/internal/render"
	"github.com/rshade/jobcarbon/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	stdout, color := render.Stdout()
	os.Exit(run(ctx, os.Args[1:], stdout, os.Stderr, color))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, color bool) int {
	cfg, err := parseConfig(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "[jobcarbon-report] %v\n", err)
		return 2
	}

	logger, err := logging.New("jobcarbon-report", cfg.LogLevel, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "[jobcarbon-report] %v\n", err)
		return 2
	}
	carbon.SetLogger(logger)

	if err := report(ctx, cfg, stdout, color, logger); err != nil {
		if errors.Is(err, store.ErrNotExist) {
			fmt.Fprintf(stderr, "[jobcarbon-report] %v, run jobcarbon-scrape first\n", err)
		} else {
			fmt.Fprintf(stderr, "[jobcarbon-report] %v\n", err)
		}
		return 1
	}
	return 0
}

func report(ctx context.Context, cfg *Config, w io.Writer, color bool, logger zerolog.Logger) error {
	st, err := store.Open(ctx, cfg.DSN, false)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close job log database")
		}
	}()

	rows, err := st.Rows(ctx, store.Epoch)
	if err != nil {
		return fmt.Errorf("read job log: %w", err)
	}
	rows = aggregate.Since(rows, cfg.Days, time.Now())
	logger.Debug().Int("rows", len(rows)).Int("days", cfg.Days).Msg("loaded job log")

	metrics := []aggregate.Metric{aggregate.MetricMemory, aggregate.MetricCPU}
	if !cfg.NoCarbon {
		metrics = append(metrics, aggregate.MetricCarbon)
	}

	scores := make(map[aggregate.Metric][]aggregate.Score, len(metrics))
	for _, m := range metrics {
		var s []aggregate.Score
		if m == aggregate.MetricCarbon {
			est, err := estimator(cfg, logger)
			if err != nil {
				return err
			}
			s, err = aggregate.CarbonLoad(rows, est, cfg.CarbonJobs)
			if err != nil {
				return fmt.Errorf("carbon load: %w", err)
			}
		} else {
			s, err = aggregate.RankEfficiency(rows, m)
			if err != nil {
				return err
			}
		}
		scores[m] = s
	}

	if cfg.User != "" {
		stats := make([]render.UserStat, 0, len(metrics))
		for _, m := range metrics {
			s, rank, err := aggregate.Lookup(scores[m], cfg.User)
			if err != nil {
				return err
			}
			stats = append(stats, render.UserStat{Metric: m, Score: s, Rank: rank, Users: len(scores[m])})
		}
		if cfg.JSON {
			return render.UserJSON(w, cfg.User, stats)
		}
		return render.UserSummary(w, cfg.User, stats, color)
	}

	if cfg.JSON {
		for m, s := range scores {
			scores[m] = aggregate.Top(s, cfg.Top)
		}
		return render.ScoresJSON(w, scores)
	}
	for _, m := range metrics {
		if err := render.Chart(w, m, aggregate.Top(scores[m], cfg.Top), color); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}
	return nil
}

func estimator(cfg *Config, logger zerolog.Logger) (*estimate.Estimator, error) {
	clusterCfg, err := config.Load(cfg.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("%w (use -no-carbon to skip the carbon ranking)", err)
	}
	ref := carbon.DefaultReference()
	if cfg.ReferencePath != "" {
		if ref, err = carbon.LoadReference(cfg.ReferencePath); err != nil {
			return nil, err
		}
	}
	return estimate.FromConfig(clusterCfg, ref, estimate.Options{}, logger)
}
