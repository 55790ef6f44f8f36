// Package config loads the cluster configuration document: where the
// cluster is and where its carbon intensity and energy prices come from.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the configuration file read when none is given.
const DefaultPath = "config.yaml"

var (
	// ErrMissingIntensity is returned when no carbon intensity source is configured.
	ErrMissingIntensity = errors.New("carbon intensity was not found, define it in the config file")

	// ErrMissingPrice is returned when no energy price or currency is configured.
	ErrMissingPrice = errors.New("energy price/currency was not found, define it in the config file")

	// ErrInvalid is returned when the document fails validation.
	ErrInvalid = errors.New("invalid configuration")
)

// Config is the top-level configuration document.
type Config struct {
	Cluster Cluster `yaml:"cluster"`
}

// Cluster describes the computing cluster.
type Cluster struct {
	// Location is a country name used for the carbon intensity lookup.
	Location string `yaml:"location"`

	// Timezone is the IANA zone tariff hours are read in. Empty means local time.
	Timezone string `yaml:"timezone"`

	Carbon Carbon `yaml:"carbon"`
	Price  Price  `yaml:"price"`
}

// Carbon selects the carbon intensity source. The first one set wins:
// CustomIntensityFile, CarbonIntensity, then a lookup of Location in the
// country table (CarbonRef, or the built-in table when empty).
type Carbon struct {
	// CarbonIntensity is a fixed grid intensity in gCO2/kWh.
	CarbonIntensity *float64 `yaml:"carbon_intensity" validate:"omitempty,gte=0"`

	// CustomIntensityFile is a 12x24 month-by-hour TSV table.
	CustomIntensityFile string `yaml:"custom_intensity_file"`

	// CarbonRef is a TSV file with Country and Carbon_intensity columns.
	CarbonRef string `yaml:"carbon_ref"`
}

// Literal returns the fixed intensity. A zero value counts as unset so
// the country lookup applies.
func (c Carbon) Literal() (float64, bool) {
	if c.CarbonIntensity == nil || *c.CarbonIntensity == 0 {
		return 0, false
	}
	return *c.CarbonIntensity, true
}

// Price selects the energy price source. CustomPriceTable wins over EnergyPrice.
type Price struct {
	// EnergyPrice is a fixed price per kWh.
	EnergyPrice *float64 `yaml:"energy_price" validate:"omitempty,gte=0"`

	// CustomPriceTable is a 2x24 weekday/weekend-by-hour TSV table.
	CustomPriceTable string `yaml:"custom_price_table"`

	PriceCurrency string `yaml:"price_currency" validate:"omitempty,alpha,len=3"`
}

var validate = validator.New()

// Load reads, validates and returns the configuration at path. Relative
// table paths are resolved against the directory of the file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	cfg.resolvePaths(filepath.Dir(path))
	return cfg, nil
}

// Parse decodes and validates a configuration document.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: parse YAML: %v", ErrInvalid, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints and that both a carbon intensity and
// an energy price source are configured.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	cl := c.Cluster
	if cl.Timezone != "" {
		if _, err := time.LoadLocation(cl.Timezone); err != nil {
			return fmt.Errorf("%w: timezone %q: %v", ErrInvalid, cl.Timezone, err)
		}
	}

	if _, ok := cl.Carbon.Literal(); !ok && cl.Carbon.CustomIntensityFile == "" &&
		strings.TrimSpace(cl.Location) == "" {
		return ErrMissingIntensity
	}
	if cl.Price.CustomPriceTable == "" && cl.Price.EnergyPrice == nil {
		return ErrMissingPrice
	}
	if cl.Price.PriceCurrency == "" {
		return ErrMissingPrice
	}
	return nil
}

// Location returns the time zone tariff hours are evaluated in.
func (c *Config) Location() *time.Location {
	if c.Cluster.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Cluster.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func (c *Config) resolvePaths(dir string) {
	resolve := func(p *string) {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
	resolve(&c.Cluster.Carbon.CustomIntensityFile)
	resolve(&c.Cluster.Carbon.CarbonRef)
	resolve(&c.Cluster.Price.CustomPriceTable)
}
