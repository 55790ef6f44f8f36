// Package aggregate rolls per-job results up into fleet totals and ranks
// users by how efficiently they use what they request.
package aggregate

import (
	"errors"
	"time"

	"github.com/rshade/jobcarbon/internal/carbon"
)

// ErrNoJobs is returned when there is nothing to aggregate.
var ErrNoJobs = errors.New("no jobs to aggregate")

// Summary holds the totals of one run.
type Summary struct {
	Jobs        int
	CrashedJobs int

	// CPUHours is the total CPU time in hours.
	CPUHours float64

	EnergyKWh  float64
	EmissionsG float64
	Cost       float64
	RAMSticks  int

	// Efficiency is the CPU-time-weighted mean CPU efficiency.
	Efficiency float64

	// Start is the earliest job start and End the latest job end.
	Start     time.Time
	End       time.Time
	SpanHours float64

	Comparisons carbon.Comparisons
}

// Summarize totals results and compares the emissions against ref.
func Summarize(results []carbon.JobResult, ref carbon.Reference) (Summary, error) {
	if len(results) == 0 {
		return Summary{}, ErrNoJobs
	}

	var s Summary
	weights := make([]float64, len(results))
	effs := make([]float64, len(results))
	for i, r := range results {
		rec := r.Record
		s.Jobs++
		if rec.Crashed {
			s.CrashedJobs++
		}
		s.CPUHours += rec.CPUTimeSeconds() / carbon.SecondsPerHour
		s.EnergyKWh += r.EnergyKWh
		s.EmissionsG += r.EmissionsG
		s.Cost += r.Cost
		s.RAMSticks += r.RAMSticks

		if i == 0 || rec.Start.Before(s.Start) {
			s.Start = rec.Start
		}
		if i == 0 || rec.End.After(s.End) {
			s.End = rec.End
		}

		weights[i] = rec.CPUTimeSeconds()
		effs[i] = r.CPUEfficiency
	}

	s.Efficiency = WeightedMean(weights, effs)
	s.SpanHours = s.End.Sub(s.Start).Hours()
	s.Comparisons = carbon.Compare(s.EmissionsG, ref)
	return s, nil
}

// WeightedMean returns Σ (w_i / Σw) · v_i. Pairs with a non-positive
// weight are ignored; it returns 0 when no weight is positive.
func WeightedMean(weights, values []float64) float64 {
	var total float64
	for i, w := range weights {
		if w > 0 && i < len(values) {
			total += w
		}
	}
	if total == 0 {
		return 0
	}

	var mean float64
	for i, w := range weights {
		if w > 0 && i < len(values) {
			mean += w / total * values[i]
		}
	}
	return mean
}
