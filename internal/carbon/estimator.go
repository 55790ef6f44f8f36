package carbon

import (
	"github.com/rshade/jobcarbon/internal/jobrecord"
	"github.com/rshade/jobcarbon/internal/tariff"
)

// Calculator derives energy, cost and emissions for job records. It holds
// the reference constants and both tariff tables for the process lifetime.
type Calculator struct {
	ref       Reference
	price     tariff.Table
	intensity tariff.Table
}

// NewCalculator creates a Calculator. price is per kWh; intensity is in
// gCO2/kWh.
func NewCalculator(ref Reference, price, intensity tariff.Table) *Calculator {
	return &Calculator{
		ref:       ref,
		price:     price,
		intensity: intensity,
	}
}

// Reference returns the reference constants the Calculator was built with.
func (c *Calculator) Reference() Reference {
	return c.ref
}

// Calculate derives the figures of one job.
//
// The calculation:
//  1. Energy (kWh) = (CPU s × core kW + CPU s × sticks × stick kW + GPUs × wall s × GPU kW) / 3600
//  2. Per-hour energy = Energy / walltime hours (walltime floored at one second)
//  3. Cost = price tariff accrued over [start, end] at the per-hour energy
//  4. Emissions (gCO2) = intensity tariff accrued the same way
func (c *Calculator) Calculate(rec jobrecord.Record) JobResult {
	sticks := rec.RAMSticks()
	wall := rec.WalltimeSeconds()

	energy := CalculateEnergyKWh(rec.CPUTimeSeconds(), sticks, rec.GPUs, wall, c.ref)

	if wall < MinWalltimeSeconds {
		wall = MinWalltimeSeconds
	}
	perHour := energy / (wall / SecondsPerHour)

	return JobResult{
		Record:        rec,
		RAMSticks:     sticks,
		CPUEfficiency: CPUEfficiency(rec),
		EnergyKWh:     energy,
		PerHourKWh:    perHour,
		Cost:          c.price.Accrue(rec.Start, rec.End, perHour),
		EmissionsG:    c.intensity.Accrue(rec.Start, rec.End, perHour),
	}
}

// CalculateEnergyKWh returns the energy of a job in kWh. CPU power scales
// with CPU time; memory power scales with CPU time per 16 GB stick; GPU
// power scales with walltime.
func CalculateEnergyKWh(cpuSeconds float64, ramSticks, gpus int, walltimeSeconds float64, ref Reference) float64 {
	e := ref.Energy
	cpu := cpuSeconds * e.CPUCore.KW
	mem := cpuSeconds * float64(ramSticks) * e.Memory16.KW
	gpu := float64(gpus) * walltimeSeconds * e.GPU.KW
	return (cpu + mem + gpu) / SecondsPerHour
}

// CPUEfficiency returns CPU time / cores / walltime, or 0 for a record
// without walltime.
func CPUEfficiency(rec jobrecord.Record) float64 {
	wall := rec.WalltimeSeconds()
	if wall <= 0 || rec.Cores < 1 {
		return 0
	}
	return rec.CPUTimeSeconds() / float64(rec.Cores) / wall
}
