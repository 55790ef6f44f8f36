// Package carbon turns normalized job records into energy, cost and
// emissions figures using a set of fixed power-draw constants and the
// hourly tariff tables for energy price and grid carbon intensity.
package carbon

const (
	// SecondsPerHour converts second-based usage into kWh.
	SecondsPerHour = 3600.0

	// GramsPerTonne converts gCO2 into the tonnes offsets are priced in.
	GramsPerTonne = 1e6

	// MinWalltimeSeconds is the shortest walltime the per-hour energy
	// rate is computed over.
	MinWalltimeSeconds = 1.0
)
