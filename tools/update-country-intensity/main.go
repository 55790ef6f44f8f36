// Package main refreshes the built-in country carbon intensity table from
// Ember's yearly electricity data.
//
// The tool reads Ember's yearly carbon intensity JSON (from the API or a
// saved file), keeps the latest year of every country, and rewrites
// internal/carbon/data/carbon_intensity.tsv.
//
// Usage:
//
//	go run ./tools/update-country-intensity [--in FILE|URL] [--year YYYY] [--dry-run]
//
// Flags:
//
//	--in        Ember JSON file or URL (default: the Ember API, needs EMBER_API_KEY)
//	--year      Use this year instead of each country's latest
//	--output    Path to the table (default: ./internal/carbon/data/carbon_intensity.tsv)
//	--dry-run   Print the table without writing it
//	--validate  Check values are within the expected range
package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/rshade/jobcarbon/internal/carbon"
)

const (
	emberURL = "https://api.ember-energy.org/v1/carbon-intensity/yearly"

	// Valid range in gCO2/kWh. Nothing burns dirtier than lignite.
	minValidIntensity = 0.0
	maxValidIntensity = 1500.0

	// expectedMinCountries guards against truncated downloads.
	expectedMinCountries = 20
)

// emberResponse is the subset of Ember's yearly carbon intensity response we use.
type emberResponse struct {
	Data []emberRow `json:"data"`
}

type emberRow struct {
	Entity      string   `json:"entity"`
	Date        string   `json:"date"`
	Intensity   *float64 `json:"emissions_intensity_gco2_per_kwh"`
	IsAggregate bool     `json:"is_aggregate_entity"`
}

// countryIntensity is one row of the output table.
type countryIntensity struct {
	Country   string
	Year      int
	Intensity float64
}

func main() {
	in := flag.String("in", emberURL, "Ember JSON file or URL")
	year := flag.Int("year", 0, "Use this year instead of each country's latest")
	output := flag.String("output", "./internal/carbon/data/carbon_intensity.tsv", "Path to the country table")
	dryRun := flag.Bool("dry-run", false, "Print the table without writing it")
	validate := flag.Bool("validate", true, "Check values are within the expected range")
	flag.Parse()

	fmt.Println("Fetching Ember yearly carbon intensity...")
	fmt.Printf("Source: %s\n", *in)

	data, err := fetch(*in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error fetching intensities: %v\n", err)
		os.Exit(1)
	}

	rows, err := latest(data, *year)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error decoding intensities: %v\n", err)
		os.Exit(1)
	}

	if *validate {
		if err := validateRows(rows); err != nil {
			fmt.Fprintf(os.Stderr, "Validation error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Validation passed")
	}

	content, err := render(rows)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error rendering table: %v\n", err)
		os.Exit(1)
	}

	if *dryRun {
		fmt.Println("\n--- Dry run output ---")
		fmt.Print(content)
		return
	}

	if err := os.WriteFile(*output, []byte(content), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing file: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Updated %s with %d countries\n", *output, len(rows))
	fmt.Println("Run 'go test ./internal/carbon/...' to verify the changes")
}

// fetch reads src from disk, or over HTTP when it is a URL.
func fetch(src string) ([]byte, error) {
	if !strings.HasPrefix(src, "http://") && !strings.HasPrefix(src, "https://") {
		return os.ReadFile(src)
	}

	u, err := url.Parse(src)
	if err != nil {
		return nil, err
	}
	if key := os.Getenv("EMBER_API_KEY"); key != "" {
		q := u.Query()
		q.Set("api_key", key)
		u.RawQuery = q.Encode()
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Get(u.String())
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// latest keeps one row per country: the given year, or the newest one
// when year is 0. Aggregates such as "World" and rows without a value are
// dropped.
func latest(data []byte, year int) ([]countryIntensity, error) {
	var resp emberResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode JSON: %w", err)
	}

	byCountry := make(map[string]countryIntensity)
	for _, r := range resp.Data {
		if r.IsAggregate || r.Intensity == nil {
			continue
		}
		y, ok := parseYear(r.Date)
		if !ok {
			continue
		}
		if year != 0 && y != year {
			continue
		}
		country := strings.ToLower(strings.TrimSpace(r.Entity))
		if country == "" {
			continue
		}
		if cur, ok := byCountry[country]; ok && cur.Year >= y {
			continue
		}
		byCountry[country] = countryIntensity{Country: country, Year: y, Intensity: *r.Intensity}
	}

	rows := make([]countryIntensity, 0, len(byCountry))
	for _, r := range byCountry {
		rows = append(rows, r)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Country < rows[j].Country })
	return rows, nil
}

// parseYear reads the year of an Ember date, "2023" or "2023-01-01".
func parseYear(date string) (int, bool) {
	date = strings.TrimSpace(date)
	if len(date) < 4 {
		return 0, false
	}
	y, err := strconv.Atoi(date[:4])
	return y, err == nil
}

// validateRows checks the row count and that all values are plausible.
func validateRows(rows []countryIntensity) error {
	if len(rows) < expectedMinCountries {
		return fmt.Errorf("only %d countries found, expected at least %d", len(rows), expectedMinCountries)
	}

	var problems []string
	for _, r := range rows {
		if r.Intensity < minValidIntensity || r.Intensity > maxValidIntensity {
			problems = append(problems, fmt.Sprintf(
				"%s: intensity %.1f is outside valid range [%.0f, %.0f]",
				r.Country, r.Intensity, minValidIntensity, maxValidIntensity,
			))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("validation failed:\n%s", strings.Join(problems, "\n"))
	}
	return nil
}

// render formats rows as the embedded country table and checks that the
// carbon package reads every row back.
func render(rows []countryIntensity) (string, error) {
	newest := 0
	for _, r := range rows {
		newest = max(newest, r.Year)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Source: Ember yearly electricity data, lifecycle gCO2/kWh, %d.\n", newest)
	b.WriteString("Country\tCarbon_intensity\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "%s\t%s\n", r.Country, strconv.FormatFloat(r.Intensity, 'f', -1, 64))
	}

	parsed, err := carbon.ParseCountryIntensities(strings.NewReader(b.String()))
	if err != nil {
		return "", err
	}
	if len(parsed) != len(rows) {
		return "", fmt.Errorf("table round trip kept %d of %d countries", len(parsed), len(rows))
	}
	return b.String(), nil
}
