// Package scrape loads Torque accounting files into the accounting store.
// Files are named YYYYMMDD, one per day; each run reads the days after the
// newest date already stored, up to and including yesterday. Today's file
// is still being written and is left for the next day's run.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/rshade/jobcarbon/internal/logparse"
	"github.com/rshade/jobcarbon/internal/store"
)

// FileDateLayout names one day's accounting file.
const FileDateLayout = "20060102"

// DefaultLogDir is where Torque writes accounting files.
const DefaultLogDir = "/var/spool/torque/server_priv/accounting"

// Options configures a Scraper.
type Options struct {
	// LogDir holds the daily accounting files.
	LogDir string

	// Variant is the dialect of the files.
	Variant logparse.Variant

	// WindowDays limits the walk to the last WindowDays complete days.
	// Zero means no limit.
	WindowDays int
}

// Result summarizes one run.
type Result struct {
	Watermark    time.Time
	Through      time.Time
	FilesRead    int
	FilesMissing int
	RowsInserted int
	RowsSkipped  int
	Finished     time.Time
}

// Scraper copies accounting records into a Store.
type Scraper struct {
	opts   Options
	store  store.Store
	logger zerolog.Logger
	now    func() time.Time
}

// New creates a Scraper.
func New(opts Options, st store.Store, logger zerolog.Logger) *Scraper {
	if opts.LogDir == "" {
		opts.LogDir = DefaultLogDir
	}
	return &Scraper{
		opts:   opts,
		store:  st,
		logger: logger.With().Str("component", "scrape").Logger(),
		now:    time.Now,
	}
}

// Run reads every accounting file dated after the store watermark, up to
// yesterday, and inserts its rows. Missing files are skipped with a warning.
// Running again on the same day inserts nothing.
func (s *Scraper) Run(ctx context.Context) (Result, error) {
	latest, err := s.store.LatestDate(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("read watermark: %w", err)
	}

	n := s.now()
	through := time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	res := Result{Watermark: latest, Through: through}

	from := latest
	if s.opts.WindowDays > 0 {
		if floor := through.AddDate(0, 0, -s.opts.WindowDays); from.Before(floor) {
			from = floor
		}
	}

	s.logger.Info().
		Str("latest", latest.Format(store.DateLayout)).
		Str("from", from.Format(store.DateLayout)).
		Str("through", through.Format(store.DateLayout)).
		Msg("updating accounting store")

	for _, day := range DateRange(from, through) {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		inserted, skipped, err := s.scrapeFile(ctx, day)
		if errors.Is(err, os.ErrNotExist) {
			s.logger.Warn().Str("file", s.path(day)).Msg("accounting file does not exist")
			res.FilesMissing++
			continue
		}
		if err != nil {
			return res, err
		}
		res.FilesRead++
		res.RowsInserted += inserted
		res.RowsSkipped += skipped
		s.logger.Info().
			Str("file", s.path(day)).
			Int("rows", inserted).
			Msg("updated store")
	}

	res.Finished = s.now()
	return res, nil
}

func (s *Scraper) path(day time.Time) string {
	return filepath.Join(s.opts.LogDir, day.Format(FileDateLayout))
}

func (s *Scraper) scrapeFile(ctx context.Context, day time.Time) (int, int, error) {
	path := s.path(day)
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer func() { _ = f.Close() }()

	entries, err := logparse.ParseAccounting(f, s.opts.Variant)
	if err != nil {
		return 0, 0, fmt.Errorf("%s: %w", path, err)
	}

	rows := make([]store.Row, 0, len(entries))
	skipped := 0
	for _, e := range entries {
		r, err := ToRow(e, s.opts.Variant)
		if err != nil {
			s.logger.Warn().Err(err).Str("file", path).Str("user", e.Get(logparse.FieldUser)).
				Msg("skipping accounting record")
			skipped++
			continue
		}
		rows = append(rows, r)
	}

	n, err := s.store.Insert(ctx, rows)
	if err != nil {
		return 0, 0, fmt.Errorf("%s: %w", path, err)
	}
	return n, skipped, nil
}

// DateRange returns the calendar days after `after` up to and including
// through, as UTC midnights.
func DateRange(after, through time.Time) []time.Time {
	start := time.Date(after.Year(), after.Month(), after.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	end := time.Date(through.Year(), through.Month(), through.Day(), 0, 0, 0, 0, time.UTC)

	var days []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}
