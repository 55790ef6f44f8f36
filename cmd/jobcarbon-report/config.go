package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/rshade/jobcarbon/internal/aggregate"
	"github.com/rshade/jobcarbon/internal/config"
)

// DefaultDB is the SQLite file read when no database is given.
const DefaultDB = "torque_logs.db"

// Config holds the report settings.
type Config struct {
	DSN           string
	User          string
	NoCarbon      bool
	Days          int
	Top           int
	CarbonJobs    int
	ConfigPath    string
	ReferencePath string
	JSON          bool
	LogLevel      string
}

func parseConfig(args []string, stderr io.Writer) (*Config, error) {
	cfg := &Config{}

	fs := flag.NewFlagSet("jobcarbon-report", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: jobcarbon-report [flags] [database]\n\n")
		fmt.Fprintf(stderr, "Ranks users by resource efficiency and carbon load.\n\n")
		fs.PrintDefaults()
	}

	fs.StringVar(&cfg.DSN, "db", DefaultDB, "SQLite file or postgres:// URL of the job log database")
	for _, name := range []string{"user", "u"} {
		fs.StringVar(&cfg.User, name, "", "report on a single user")
	}
	for _, name := range []string{"no-carbon", "c"} {
		fs.BoolVar(&cfg.NoCarbon, name, false, "skip the carbon load ranking")
	}
	fs.IntVar(&cfg.Days, "days", 0, "only use jobs from the last N days (0: all)")
	fs.IntVar(&cfg.Top, "top", 0, "show the first N users of each chart (0: all)")
	fs.IntVar(&cfg.CarbonJobs, "carbon-jobs", aggregate.DefaultCarbonJobs, "recent jobs per user forming the carbon load profile")
	fs.StringVar(&cfg.ConfigPath, "config", config.DefaultPath, "cluster configuration file")
	fs.StringVar(&cfg.ReferencePath, "reference", "", "emission reference YAML (default: built in)")
	fs.BoolVar(&cfg.JSON, "json", false, "write scores as JSON")
	fs.StringVar(&cfg.LogLevel, "log-level", "", "log level (default: $JOBCARBON_LOG_LEVEL or warn)")

	// The database may be given before, between or after the flags.
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		if fs.NArg() == 0 {
			break
		}
		positional = append(positional, fs.Arg(0))
		args = fs.Args()[1:]
	}

	switch len(positional) {
	case 0:
	case 1:
		cfg.DSN = positional[0]
	default:
		return nil, fmt.Errorf("expected one database, got %v", positional)
	}
	if cfg.Days < 0 || cfg.Top < 0 {
		return nil, fmt.Errorf("-days and -top must not be negative")
	}
	return cfg, nil
}
