package render

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/rshade/jobcarbon/internal/estimate"
)

const (
	rule       = "--------------------------------------------------------------------"
	timeLayout = "2006-01-02 15:04:05"
)

// Report writes the estimate report block.
func Report(w io.Writer, rep *estimate.Report) error {
	s := rep.Summary
	c := s.Comparisons

	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format+"\n", args...)
	}

	line(rule)
	line("----                    REPORT                                  ----")
	line("")
	if rep.Mode == estimate.ModeForecast {
		line("      Forecast for a job starting: %s", s.Start.Format(timeLayout))
	} else {
		line("      Computation began: %s", s.Start.Format(timeLayout))
		line("      Computation ended: %s", s.End.Format(timeLayout))
		line("      Jobs: %d", s.Jobs)
		if s.CrashedJobs > 0 {
			line("      Jobs without usage (assumed crashed): %d", s.CrashedJobs)
		}
		if len(rep.Skipped) > 0 {
			line("      Jobs not found: %s", strings.Join(rep.Skipped, ", "))
		}
	}
	line("      Total real time spent: %s hours", num(s.SpanHours, 2))
	line("      Total CPU time spent: %s hours", num(s.CPUHours, 2))
	line("      CPU efficiency: %s%%", num(s.Efficiency*100, 1))
	line("")
	line("      Number of 16GB RAM sticks used: %d", s.RAMSticks)
	line("")
	line("      Estimated energy use:          %s kWh", num(s.EnergyKWh, 3))
	line("      Estimated data center cost:    %s %s", num(s.Cost, 2), rep.Currency)
	line("      Estimated emissions generated: %s g CO2", num(s.EmissionsG, 2))
	line("      Price to offset carbon:        %s-%s %s",
		num(c.OffsetCostMin, 2), num(c.OffsetCostMax, 2), c.OffsetCurrency)
	line("")
	line("      The carbon generated corresponds to:")
	line("      - running %s cycles on a washing machine", num(c.WashingCycles, 2))
	line("      - driving %s km in a passenger car", num(c.CarKm, 2))
	line("      - %s months of a tree's carbon sequestration", num(c.TreeMonths, 2))
	line("      - flying %s times from CPH to London", num(c.Flights, 4))
	line("")
	line(rule)

	_, err := io.WriteString(w, b.String())
	return err
}

// num rounds v to places decimals and drops trailing zeros.
func num(v float64, places int) string {
	p := math.Pow(10, float64(places))
	r := math.Round(v*p) / p
	if r == 0 {
		r = 0 // no "-0"
	}
	s := fmt.Sprintf("%.*f", places, r)
	if places == 0 {
		return s
	}
	return strings.TrimSuffix(strings.TrimRight(s, "0"), ".")
}
