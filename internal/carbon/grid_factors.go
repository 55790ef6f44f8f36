package carbon

import (
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Column names of a country intensity table.
const (
	colCountry   = "Country"
	colIntensity = "Carbon_intensity"
)

// Source: see the header of data/carbon_intensity.tsv.
//
//go:embed data/carbon_intensity.tsv
var countryIntensityTSV string

var (
	countryIntensities     map[string]float64
	countryIntensitiesOnce sync.Once
)

// CountryIntensity returns the built-in grid carbon intensity in gCO2/kWh
// for a country. Lookup is case-insensitive.
func CountryIntensity(country string) (float64, bool) {
	countryIntensitiesOnce.Do(func() {
		m, err := ParseCountryIntensities(strings.NewReader(countryIntensityTSV))
		if err != nil {
			logger.Error().Err(err).Msg("failed to parse embedded country intensity table")
			m = map[string]float64{}
		}
		countryIntensities = m
	})
	v, ok := countryIntensities[normalizeCountry(country)]
	return v, ok
}

// LoadCountryIntensities reads a country intensity table from path.
func LoadCountryIntensities(path string) (map[string]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open country intensity table: %w", err)
	}
	defer func() { _ = f.Close() }()

	m, err := ParseCountryIntensities(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// ParseCountryIntensities reads a tab-separated table with a header row
// naming the Country and Carbon_intensity columns. Malformed rows are
// skipped with a warning.
func ParseCountryIntensities(r io.Reader) (map[string]float64, error) {
	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.Comment = '#'
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read country intensity header: %w", err)
	}
	countryCol, intensityCol := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case colCountry:
			countryCol = i
		case colIntensity:
			intensityCol = i
		}
	}
	if countryCol < 0 || intensityCol < 0 {
		return nil, errors.New("country intensity table needs Country and Carbon_intensity columns")
	}

	m := make(map[string]float64)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			logger.Warn().Err(err).Msg("skipping malformed country intensity row")
			continue
		}
		if len(record) <= countryCol || len(record) <= intensityCol {
			continue
		}

		country := normalizeCountry(record[countryCol])
		if country == "" {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(record[intensityCol]), 64)
		if err != nil || v < 0 {
			logger.Warn().
				Str("country", country).
				Str("value", record[intensityCol]).
				Msg("skipping invalid carbon intensity")
			continue
		}
		m[country] = v
	}
	return m, nil
}

func normalizeCountry(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
