package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/rshade/jobcarbon/internal/scrape"
)

// DefaultDB is the SQLite file written when -log is not given.
const DefaultDB = "torque_logs.db"

// Config holds the scraper settings.
type Config struct {
	LogDir      string
	DSN         string
	WindowDays  int
	ServerLogs  bool
	Create      bool
	MetricsFile string
	LogLevel    string
}

func parseConfig(args []string, stderr io.Writer) (*Config, error) {
	cfg := &Config{}

	fs := flag.NewFlagSet("jobcarbon-scrape", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: jobcarbon-scrape [flags]\n\n")
		fmt.Fprintf(stderr, "Copies new Torque accounting records into the job log database.\n\n")
		fs.PrintDefaults()
	}

	for _, name := range []string{"path", "p"} {
		fs.StringVar(&cfg.LogDir, name, scrape.DefaultLogDir, "directory of the daily accounting files")
	}
	for _, name := range []string{"log", "l"} {
		fs.StringVar(&cfg.DSN, name, DefaultDB, "SQLite file or postgres:// URL of the job log database")
	}
	for _, name := range []string{"window", "w"} {
		fs.IntVar(&cfg.WindowDays, name, 0, "only read the last N days of files (0: since the last scraped day)")
	}
	for _, name := range []string{"server-logs", "s"} {
		fs.BoolVar(&cfg.ServerLogs, name, false, "files are server_logs rather than accounting records")
	}
	fs.BoolVar(&cfg.Create, "create", true, "create the database if it does not exist")
	fs.StringVar(&cfg.MetricsFile, "metrics-file", "", "write run metrics in Prometheus text format to this file")
	fs.StringVar(&cfg.LogLevel, "log-level", "", "log level (default: $JOBCARBON_LOG_LEVEL or info)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if cfg.WindowDays < 0 {
		return nil, fmt.Errorf("window must not be negative, got %d", cfg.WindowDays)
	}
	return cfg, nil
}
