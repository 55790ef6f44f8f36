package main

import (
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/rshade/jobcarbon/internal/config"
	"github.com/rshade/jobcarbon/internal/estimate"
	"github.com/rshade/jobcarbon/internal/jobrecord"
	"github.com/rshade/jobcarbon/internal/logparse"
)

// Config holds the command-line settings of one estimate run.
type Config struct {
	Mode   estimate.Mode
	Inputs []string

	Forecast jobrecord.ForecastInput

	ConfigPath    string
	ReferencePath string
	LookbackDays  int
	TracejobPath  string
	JSON          bool
	LogLevel      string
}

var errUsage = errors.New("usage")

func parseConfig(args []string, stderr io.Writer) (*Config, error) {
	cfg := &Config{}
	var array, logfile, forecast bool

	fs := flag.NewFlagSet("jobcarbon", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: jobcarbon [flags] <job IDs | array IDs | logfiles>\n\n")
		fmt.Fprintf(stderr, "Estimates the energy use, cost and carbon footprint of Torque jobs.\n\n")
		fs.PrintDefaults()
	}

	boolVar(fs, &array, "a", "array", false, "inputs are job array IDs")
	boolVar(fs, &logfile, "l", "logfile", false, "inputs are pipeline logfiles listing job IDs")
	boolVar(fs, &forecast, "f", "forecast", false, "forecast a job described by -walltime, -memory, -cpus and -gpus")
	stringVar(fs, &cfg.Forecast.Walltime, "t", "walltime", "", "forecast walltime as HH:MM:SS or DD:HH:MM:SS")
	stringVar(fs, &cfg.Forecast.Memory, "m", "memory", "", "forecast memory, e.g. 16gb")
	intVar(fs, &cfg.Forecast.Cores, "c", "cpus", 1, "forecast number of cores")
	intVar(fs, &cfg.Forecast.GPUs, "g", "gpus", 0, "forecast number of GPUs")

	fs.StringVar(&cfg.ConfigPath, "config", config.DefaultPath, "cluster configuration file")
	fs.StringVar(&cfg.ReferencePath, "reference", "", "emission reference YAML (default: built in)")
	fs.IntVar(&cfg.LookbackDays, "days", logparse.DefaultLookbackDays, "days of server logs searched for each job")
	fs.StringVar(&cfg.TracejobPath, "tracejob", "", "path of the tracejob binary (default: tracejob on $PATH)")
	fs.BoolVar(&cfg.JSON, "json", false, "write the report as JSON")
	fs.StringVar(&cfg.LogLevel, "log-level", "", "log level (default: $JOBCARBON_LOG_LEVEL or warn)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	cfg.Inputs = fs.Args()

	modes := 0
	for _, set := range []bool{array, logfile, forecast} {
		if set {
			modes++
		}
	}
	switch {
	case modes > 1:
		return nil, fmt.Errorf("%w: -array, -logfile and -forecast are mutually exclusive", errUsage)
	case array:
		cfg.Mode = estimate.ModeArray
	case logfile:
		cfg.Mode = estimate.ModeLogfile
	case forecast:
		cfg.Mode = estimate.ModeForecast
	default:
		cfg.Mode = estimate.ModeJobs
	}

	if cfg.Mode == estimate.ModeForecast {
		if len(cfg.Inputs) > 0 {
			return nil, fmt.Errorf("%w: -forecast takes no job IDs", errUsage)
		}
		if cfg.Forecast.Walltime == "" || cfg.Forecast.Memory == "" {
			return nil, fmt.Errorf("%w: -forecast needs -walltime and -memory", errUsage)
		}
	} else if len(cfg.Inputs) == 0 {
		return nil, fmt.Errorf("%w: no job IDs given", errUsage)
	}
	return cfg, nil
}

func boolVar(fs *flag.FlagSet, p *bool, short, long string, value bool, usage string) {
	fs.BoolVar(p, long, value, usage)
	fs.BoolVar(p, short, value, "shorthand for -"+long)
}

func stringVar(fs *flag.FlagSet, p *string, short, long, value, usage string) {
	fs.StringVar(p, long, value, usage)
	fs.StringVar(p, short, value, "shorthand for -"+long)
}

func intVar(fs *flag.FlagSet, p *int, short, long string, value int, usage string) {
	fs.IntVar(p, long, value, usage)
	fs.IntVar(p, short, value, "shorthand for -"+long)
}
