package carbon

import "github.com/rshade/jobcarbon/internal/jobrecord"

// JobResult is a job record with the figures derived from it.
type JobResult struct {
	Record jobrecord.Record

	// RAMSticks is the number of 16 GB memory units billed.
	RAMSticks int

	// CPUEfficiency is CPU time / cores / walltime. It is not clamped and
	// can exceed 1 through measurement noise.
	CPUEfficiency float64

	// EnergyKWh is the total energy of the job.
	EnergyKWh float64

	// PerHourKWh is the energy drawn per hour of walltime.
	PerHourKWh float64

	// Cost is in the configured price currency.
	Cost float64

	// EmissionsG is in grams CO2.
	EmissionsG float64
}

// Comparisons expresses an amount of CO2 in everyday terms.
type Comparisons struct {
	WashingCycles float64
	CarKm         float64
	TreeMonths    float64
	Flights       float64

	// OffsetCostMin and OffsetCostMax bound the price of offsetting the
	// emissions, in OffsetCurrency.
	OffsetCostMin  float64
	OffsetCostMax  float64
	OffsetCurrency string
}
