// Package main builds a 12x24 month-by-hour carbon intensity table from a
// history of hourly grid intensity readings.
//
// The input is a CSV with a timestamp column and a gCO2/kWh column, such as
// an export of the Energi Data Service CO2Emis dataset. Readings are
// averaged per calendar month and hour of day, in the given time zone, and
// written in the TSV layout read by custom_intensity_file.
//
// Usage:
//
//	go run ./tools/build-intensity-table --in FILE|URL [--out FILE] [--tz ZONE]
//
// Flags:
//
//	--in              CSV file or http(s) URL with hourly readings
//	--out             Output TSV (default: ./carbon_intensity_table.tsv)
//	--tz              Time zone readings are bucketed in (default: UTC)
//	--input-tz        Time zone of timestamps without an offset (default: UTC)
//	--time-column     Name of the timestamp column (default: first column)
//	--value-column    Name of the intensity column (default: second column)
//	--sep             Field separator (default: ,)
package main

import (
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rshade/jobcarbon/internal/tariff"
)

const months = 12

// timeLayouts are tried in order for the timestamp column.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

var errNoReadings = errors.New("no readings")

func main() {
	in := flag.String("in", "", "CSV file or http(s) URL with hourly readings")
	out := flag.String("out", "./carbon_intensity_table.tsv", "Output TSV file")
	tz := flag.String("tz", "UTC", "Time zone readings are bucketed in")
	inputTZ := flag.String("input-tz", "UTC", "Time zone of timestamps without an offset, e.g. Europe/Copenhagen for HourDK")
	timeCol := flag.String("time-column", "", "Timestamp column name (default: first column)")
	valueCol := flag.String("value-column", "", "Intensity column name (default: second column)")
	sep := flag.String("sep", ",", "Field separator; Energi Data Service exports use ';'")
	flag.Parse()

	if *in == "" {
		fmt.Fprintln(os.Stderr, "Error: --in is required")
		os.Exit(2)
	}
	if len([]rune(*sep)) != 1 {
		fmt.Fprintf(os.Stderr, "Error: --sep must be one character, got %q\n", *sep)
		os.Exit(2)
	}
	loc, err := time.LoadLocation(*tz)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: time zone %q: %v\n", *tz, err)
		os.Exit(2)
	}
	zone, err := time.LoadLocation(*inputTZ)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: time zone %q: %v\n", *inputTZ, err)
		os.Exit(2)
	}

	fmt.Printf("Reading %s\n", *in)
	r, err := open(*in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = r.Close() }()

	tbl, stats, err := build(r, columns{time: *timeCol, value: *valueCol, sep: []rune(*sep)[0], zone: zone}, loc)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building table: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Readings: %d used, %d skipped\n", stats.used, stats.skipped)

	f, err := os.Create(*out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output: %v\n", err)
		os.Exit(1)
	}
	if err := tariff.WriteTSV(f, tbl); err != nil {
		_ = f.Close()
		fmt.Fprintf(os.Stderr, "Error writing table: %v\n", err)
		os.Exit(1)
	}
	if err := f.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Error closing output: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Successfully wrote %s\n", *out)
}

// open returns the body of a URL or the contents of a file.
func open(src string) (io.ReadCloser, error) {
	if !strings.HasPrefix(src, "http://") && !strings.HasPrefix(src, "https://") {
		return os.Open(src)
	}

	client := &http.Client{Timeout: 60 * time.Second}
	resp, err := client.Get(src)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return resp.Body, nil
}

type columns struct {
	time, value string
	sep         rune

	// zone is the time zone of timestamps without an offset. Nil means UTC.
	zone *time.Location
}

type buildStats struct {
	used, skipped int
}

// build averages readings into a month-by-hour table. Every month and hour
// must have at least one reading.
func build(r io.Reader, cols columns, loc *time.Location) (tariff.Table, buildStats, error) {
	var stats buildStats

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.Comma = cols.sep

	header, err := reader.Read()
	if err != nil {
		return tariff.Table{}, stats, fmt.Errorf("failed to read CSV header: %w", err)
	}
	ti, vi, err := columnIndexes(header, cols)
	if err != nil {
		return tariff.Table{}, stats, err
	}

	var sum, count [months][tariff.HoursPerDay]float64
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil || len(record) <= max(ti, vi) {
			stats.skipped++
			continue
		}
		ts, ok := parseTime(record[ti], cols.zone, loc)
		if !ok {
			stats.skipped++
			continue
		}
		v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(record[vi]), ",", "."), 64)
		if err != nil || v < 0 {
			stats.skipped++
			continue
		}
		m, h := int(ts.Month())-1, ts.Hour()
		sum[m][h] += v
		count[m][h]++
		stats.used++
	}
	if stats.used == 0 {
		return tariff.Table{}, stats, errNoReadings
	}

	rows := make([][]float64, months)
	for m := range rows {
		rows[m] = make([]float64, tariff.HoursPerDay)
		for h := range rows[m] {
			if count[m][h] == 0 {
				return tariff.Table{}, stats, fmt.Errorf("%w for %s hour %d",
					errNoReadings, time.Month(m+1), h)
			}
			rows[m][h] = sum[m][h] / count[m][h]
		}
	}

	tbl, err := tariff.NewTable(tariff.ByMonth, rows)
	return tbl, stats, err
}

func columnIndexes(header []string, cols columns) (int, int, error) {
	find := func(name string, fallback int) (int, error) {
		if name == "" {
			if fallback >= len(header) {
				return 0, fmt.Errorf("CSV has %d columns, expected at least %d", len(header), fallback+1)
			}
			return fallback, nil
		}
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), name) {
				return i, nil
			}
		}
		return 0, fmt.Errorf("column %q not found in header %v", name, header)
	}

	ti, err := find(cols.time, 0)
	if err != nil {
		return 0, 0, err
	}
	vi, err := find(cols.value, 1)
	if err != nil {
		return 0, 0, err
	}
	return ti, vi, nil
}

// parseTime reads a timestamp and returns it in loc. Timestamps without
// an offset are read in zone, or UTC when zone is nil.
func parseTime(s string, zone, loc *time.Location) (time.Time, bool) {
	if zone == nil {
		zone = time.UTC
	}
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, zone); err == nil {
			return t.In(loc), true
		}
	}
	return time.Time{}, false
}
