// Package estimate runs the accounting pipeline for one invocation:
// it collects job usage from traces, pipeline logs or a forecast, prices
// every job and summarizes the batch.
package estimate

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"time"

	"github.com/rs/zerolog"

	"github.com/rshade/jobcarbon/internal/aggregate"
	"github.com/rshade/jobcarbon/internal/carbon"
	"github.com/rshade/jobcarbon/internal/jobrecord"
	"github.com/rshade/jobcarbon/internal/logparse"
)

var (
	// ErrNoJobsFound is returned when no input produced a job record.
	ErrNoJobsFound = errors.New("no jobs found, check whether the pipeline finished any jobs " +
		"and that they ran within the look-back window")

	// ErrNoInput is returned when a mode that needs inputs got none.
	ErrNoInput = errors.New("no job IDs or logfiles given")
)

// Mode selects where jobs come from.
type Mode int

const (
	// ModeJobs reads one trace per job ID.
	ModeJobs Mode = iota
	// ModeArray reads one trace per job array ID; every usage line is a job.
	ModeArray
	// ModeLogfile reads job IDs from pipeline logfiles.
	ModeLogfile
	// ModeForecast prices a job that has not run.
	ModeForecast
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeJobs:
		return "job"
	case ModeArray:
		return "array"
	case ModeLogfile:
		return "logfile"
	case ModeForecast:
		return "forecast"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Request is one estimate invocation.
type Request struct {
	Mode Mode

	// Inputs are job IDs, array IDs or logfile paths depending on Mode.
	Inputs []string

	// Forecast describes the job in ModeForecast.
	Forecast jobrecord.ForecastInput
}

// Report is the outcome of a run.
type Report struct {
	Mode     Mode
	Jobs     []carbon.JobResult
	Skipped  []string
	Summary  aggregate.Summary
	Currency string
}

// Options configures an Estimator.
type Options struct {
	// Source supplies job traces. Nil runs tracejob from $PATH.
	Source logparse.TraceSource

	// LookbackDays is how far back traces are searched.
	LookbackDays int

	// Location is the time zone of trace timestamps. Nil means time.Local.
	Location *time.Location
}

// Estimator prices jobs with a Calculator.
type Estimator struct {
	calc     *carbon.Calculator
	currency string
	opts     Options
	logger   zerolog.Logger
	now      func() time.Time
}

// New creates an Estimator. currency labels the cost figures.
func New(calc *carbon.Calculator, currency string, opts Options, logger zerolog.Logger) *Estimator {
	if opts.Source == nil {
		opts.Source = logparse.Tracejob{}
	}
	if opts.LookbackDays <= 0 {
		opts.LookbackDays = logparse.DefaultLookbackDays
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Estimator{
		calc:     calc,
		currency: currency,
		opts:     opts,
		logger:   logger.With().Str("component", "estimate").Logger(),
		now:      time.Now,
	}
}

// Run collects the jobs of req, prices them and summarizes the batch.
// Jobs missing from the logs are skipped with a warning; ErrNoJobsFound
// is returned when none remain. Malformed usage values are fatal.
func (e *Estimator) Run(ctx context.Context, req Request) (*Report, error) {
	var (
		records []jobrecord.Record
		skipped []string
		err     error
	)

	switch req.Mode {
	case ModeForecast:
		rec, ferr := jobrecord.Forecast(req.Forecast, e.now().In(e.opts.Location))
		if ferr != nil {
			return nil, fmt.Errorf("forecast: %w", ferr)
		}
		records = []jobrecord.Record{rec}
	case ModeJobs, ModeArray:
		if len(req.Inputs) == 0 {
			return nil, ErrNoInput
		}
		mode := logparse.ModeJob
		if req.Mode == ModeArray {
			mode = logparse.ModeArray
		}
		records, skipped, err = e.collect(ctx, req.Inputs, mode)
	case ModeLogfile:
		if len(req.Inputs) == 0 {
			return nil, ErrNoInput
		}
		ids, lerr := readLogfiles(req.Inputs)
		if lerr != nil {
			return nil, lerr
		}
		e.logger.Debug().Int("jobs", len(ids)).Msg("job IDs read from logfiles")
		records, skipped, err = e.collect(ctx, ids, logparse.ModeJob)
	default:
		return nil, fmt.Errorf("unknown mode %s", req.Mode)
	}
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNoJobsFound
	}

	results := make([]carbon.JobResult, len(records))
	for i, rec := range records {
		results[i] = e.calc.Calculate(rec)
		e.logger.Debug().
			Str("job_id", rec.JobID).
			Float64("energy_kwh", results[i].EnergyKWh).
			Float64("emissions_g", results[i].EmissionsG).
			Msg("priced job")
	}

	summary, err := aggregate.Summarize(results, e.calc.Reference())
	if err != nil {
		return nil, err
	}
	return &Report{
		Mode:     req.Mode,
		Jobs:     results,
		Skipped:  skipped,
		Summary:  summary,
		Currency: e.currency,
	}, nil
}

// ForecastEmissions returns the emissions in gCO2 of a job starting now.
func (e *Estimator) ForecastEmissions(in jobrecord.ForecastInput) (float64, error) {
	rec, err := jobrecord.Forecast(in, e.now().In(e.opts.Location))
	if err != nil {
		return 0, err
	}
	return e.calc.Calculate(rec).EmissionsG, nil
}

// collect reads the trace of every ID and normalizes its usage.
func (e *Estimator) collect(ctx context.Context, ids []string, mode logparse.Mode) ([]jobrecord.Record, []string, error) {
	var (
		records []jobrecord.Record
		skipped []string
	)
	traceOpts := logparse.TraceOptions{
		Mode:     mode,
		Now:      e.now().In(e.opts.Location),
		Location: e.opts.Location,
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		text, err := e.opts.Source.Trace(ctx, id, e.opts.LookbackDays)
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return nil, nil, fmt.Errorf("read trace of job %s: %w", id, err)
		}
		if err != nil {
			e.logger.Warn().Err(err).Str("job_id", id).Msg("could not read job trace, skipping")
			skipped = append(skipped, id)
			continue
		}

		usages, err := logparse.ParseTrace(id, text, traceOpts)
		if errors.Is(err, logparse.ErrNoUsage) {
			e.logger.Warn().
				Str("job_id", id).
				Int("lookback_days", e.opts.LookbackDays).
				Msg("job does not appear in the logs of the look-back window, skipping")
			skipped = append(skipped, id)
			continue
		}
		if err != nil {
			return nil, nil, err
		}

		for _, u := range usages {
			rec, err := jobrecord.FromUsage(u)
			if err != nil {
				return nil, nil, err
			}
			if rec.Crashed {
				e.logger.Warn().Str("job_id", id).Msg("job started but reported no usage, assuming it crashed")
			}
			records = append(records, rec)
		}
	}
	return records, skipped, nil
}

func readLogfiles(paths []string) ([]string, error) {
	var ids []string
	seen := make(map[string]bool)
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return nil, fmt.Errorf("open logfile: %w", err)
		}
		got, err := logparse.ParseWorkflowLog(f)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		for _, id := range got {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids, nil
}
