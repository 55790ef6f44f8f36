package render

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/rshade/jobcarbon/internal/aggregate"
)

const (
	chartWidth = 100
	nameWidth  = 10
)

// Chart writes a horizontal bar chart of scores for metric. Efficiency
// bars are scaled to 100% of the width; carbon bars are scaled so the
// largest load fills 1/1.2 of it. The first row is highlighted.
func Chart(w io.Writer, m aggregate.Metric, scores []aggregate.Score, color bool) error {
	scale := "Efficiency (used / requested resources)"
	if m == aggregate.MetricCarbon {
		scale = "Mean carbon load (gCO2e)"
	}

	maxValue := 0.0
	for _, s := range scores {
		maxValue = math.Max(maxValue, s.Value)
	}

	var b strings.Builder
	title := m.Title()
	b.WriteString(paint(fmt.Sprintf("----- %s %s", title, strings.Repeat("-", max(chartWidth-len(title), 0))), ansiBlue, color))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "%-*s| %-*s|\n", nameWidth, "User", chartWidth-1, scale)
	fmt.Fprintf(&b, "%-*s|%s|\n", nameWidth, "", strings.Repeat(" ", chartWidth))

	for i, s := range scores {
		value := num(s.Value, 3)
		bars := barLength(m, s.Value, maxValue)
		pad := max(chartWidth-bars-3-len(value), 0)

		name := fmt.Sprintf("%-*s", nameWidth, s.User)
		bar := strings.Repeat("=", bars)
		if i == 0 {
			name = paint(name, ansiGreen, color)
			bar = paint(bar, ansiGreen, color)
		}
		fmt.Fprintf(&b, "%s| %s  %s%s|\n", name, bar, value, strings.Repeat(" ", pad))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func barLength(m aggregate.Metric, v, maxValue float64) int {
	var n int
	if m == aggregate.MetricCarbon {
		if maxValue <= 0 {
			return 0
		}
		n = int(v / (maxValue * 1.2) * chartWidth)
	} else {
		n = int(v * chartWidth)
	}
	return min(max(n, 0), chartWidth)
}
