package aggregate

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rshade/jobcarbon/internal/carbon"
	"github.com/rshade/jobcarbon/internal/jobrecord"
	"github.com/rshade/jobcarbon/internal/store"
)

// DefaultCarbonJobs is how many of a user's most recent jobs form the
// profile their carbon load is forecast from.
const DefaultCarbonJobs = 100

// ErrUnknownUser is returned by Lookup for a user without jobs.
var ErrUnknownUser = errors.New("user not found")

// Metric selects a per-user statistic.
type Metric int

const (
	// MetricMemory is used / requested memory.
	MetricMemory Metric = iota
	// MetricCPU is used / requested CPU time.
	MetricCPU
	// MetricCarbon is the forecast emissions of a typical job.
	MetricCarbon
)

// String returns the metric name.
func (m Metric) String() string {
	switch m {
	case MetricMemory:
		return "memory"
	case MetricCPU:
		return "cpus"
	case MetricCarbon:
		return "carbon"
	default:
		return fmt.Sprintf("Metric(%d)", int(m))
	}
}

// Title returns the chart heading of the metric.
func (m Metric) Title() string {
	switch m {
	case MetricMemory:
		return "Memory efficiency"
	case MetricCPU:
		return "CPU time efficiency"
	case MetricCarbon:
		return "Carbon load"
	default:
		return m.String()
	}
}

// HigherIsBetter reports the ranking direction of the metric.
func (m Metric) HigherIsBetter() bool {
	return m != MetricCarbon
}

// Score is one user's value of a metric.
type Score struct {
	User  string
	Value float64
}

// Forecaster returns the emissions of a job that has not run yet.
type Forecaster interface {
	ForecastEmissions(in jobrecord.ForecastInput) (float64, error)
}

// RankEfficiency returns each user's memory or CPU-time efficiency, best
// first. A user's efficiency is the mean of used/requested over their
// jobs weighted by each job's share of the user's total request, clipped
// to 1. Rows without a request carry no weight.
func RankEfficiency(rows []store.Row, m Metric) ([]Score, error) {
	var pick func(store.Row) (used, req float64)
	switch m {
	case MetricMemory:
		pick = func(r store.Row) (float64, float64) { return float64(r.MemMB), float64(r.MemReqMB) }
	case MetricCPU:
		pick = func(r store.Row) (float64, float64) { return float64(r.CPUTimeSec), float64(r.CPUTimeReqSec) }
	default:
		return nil, fmt.Errorf("rank efficiency by %s: not an efficiency metric", m)
	}

	type series struct{ weights, values []float64 }
	byUser := make(map[string]*series)
	var order []string
	for _, r := range rows {
		s, ok := byUser[r.User]
		if !ok {
			s = &series{}
			byUser[r.User] = s
			order = append(order, r.User)
		}
		used, req := pick(r)
		if req <= 0 {
			continue
		}
		s.weights = append(s.weights, req)
		s.values = append(s.values, used/req)
	}

	scores := make([]Score, 0, len(order))
	for _, u := range order {
		s := byUser[u]
		scores = append(scores, Score{
			User:  u,
			Value: carbon.Clamp(WeightedMean(s.weights, s.values), 0, 1),
		})
	}
	sortScores(scores, true)
	return scores, nil
}

// CarbonLoad forecasts, for each user, the emissions of a job with the
// mean cores, requested memory and walltime of their lastN most recent
// rows. Rows must be in log order. Users are ranked lowest load first.
func CarbonLoad(rows []store.Row, f Forecaster, lastN int) ([]Score, error) {
	if lastN <= 0 {
		lastN = DefaultCarbonJobs
	}

	byUser := make(map[string][]store.Row)
	var order []string
	for _, r := range rows {
		if _, ok := byUser[r.User]; !ok {
			order = append(order, r.User)
		}
		byUser[r.User] = append(byUser[r.User], r)
	}

	scores := make([]Score, 0, len(order))
	for _, u := range order {
		jobs := byUser[u]
		if len(jobs) > lastN {
			jobs = jobs[len(jobs)-lastN:]
		}

		in, err := MeanProfile(jobs)
		if err != nil {
			return nil, fmt.Errorf("profile of %s: %w", u, err)
		}
		g, err := f.ForecastEmissions(in)
		if err != nil {
			return nil, fmt.Errorf("forecast carbon load of %s: %w", u, err)
		}
		scores = append(scores, Score{User: u, Value: math.Trunc(g)})
	}
	sortScores(scores, false)
	return scores, nil
}

// MeanProfile returns the forecast input of a job with the mean cores,
// requested memory and walltime of rows. Means are rounded to whole
// units; memory is whole decimal gigabytes of the mean megabytes.
func MeanProfile(rows []store.Row) (jobrecord.ForecastInput, error) {
	if len(rows) == 0 {
		return jobrecord.ForecastInput{}, ErrNoJobs
	}

	var cores, memMB, wall float64
	for _, r := range rows {
		cores += float64(r.NProc)
		memMB += float64(r.MemReqMB)
		wall += float64(r.WalltimeSec)
	}
	n := float64(len(rows))
	cores = math.RoundToEven(cores / n)
	memMB = math.RoundToEven(memMB / n)
	wall = math.RoundToEven(wall / n)

	memory, err := jobrecord.FromGB(math.Trunc(memMB/1000), "gb")
	if err != nil {
		return jobrecord.ForecastInput{}, err
	}
	return jobrecord.ForecastInput{
		Walltime: jobrecord.FormatClock(time.Duration(wall) * time.Second),
		Memory:   memory,
		Cores:    int(cores),
	}, nil
}

// Lookup returns a user's score and 1-based rank.
func Lookup(scores []Score, user string) (Score, int, error) {
	for i, s := range scores {
		if s.User == user {
			return s, i + 1, nil
		}
	}
	return Score{}, 0, fmt.Errorf("%w: %s", ErrUnknownUser, user)
}

// Top returns the first n scores, or all of them when n <= 0.
func Top(scores []Score, n int) []Score {
	if n <= 0 || n >= len(scores) {
		return scores
	}
	return scores[:n]
}

// Since returns the rows logged on or after the start of the day `days`
// days before now. Zero days keeps every row.
func Since(rows []store.Row, days int, now time.Time) []store.Row {
	if days <= 0 {
		return rows
	}
	cutoff := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -days)
	out := make([]store.Row, 0, len(rows))
	for _, r := range rows {
		if !r.LogDate.Before(cutoff) {
			out = append(out, r)
		}
	}
	return out
}

func sortScores(scores []Score, desc bool) {
	sort.SliceStable(scores, func(i, j int) bool {
		a, b := scores[i], scores[j]
		if a.Value != b.Value {
			if desc {
				return a.Value > b.Value
			}
			return a.Value < b.Value
		}
		return a.User < b.User
	})
}
