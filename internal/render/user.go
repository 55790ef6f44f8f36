package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/rshade/jobcarbon/internal/aggregate"
)

// UserStat is one metric of a single user's report.
type UserStat struct {
	Metric aggregate.Metric
	Score  aggregate.Score
	Rank   int
	Users  int
}

// UserSummary writes a single user's efficiency and carbon figures.
func UserSummary(w io.Writer, user string, stats []UserStat, color bool) error {
	var b strings.Builder
	b.WriteString("---------------------------------------------\n")
	fmt.Fprintf(&b, " Computation statistics for: %s\n\n", paint(user, ansiPurple, color))

	fmt.Fprintf(&b, " %-24s %12s %10s\n", "", "Efficiency", "Rank")
	var carbon *UserStat
	for i := range stats {
		st := stats[i]
		if st.Metric == aggregate.MetricCarbon {
			carbon = &stats[i]
			continue
		}
		fmt.Fprintf(&b, " %-24s %12s %10s\n", st.Metric.Title(), num(st.Score.Value, 3), rank(st))
	}

	if carbon != nil {
		b.WriteString("\n")
		fmt.Fprintf(&b, " %-24s %12s %10s\n", "", "gCO2e", "Rank")
		fmt.Fprintf(&b, " %-24s %12s %10s\n", "Mean carbon load", num(carbon.Score.Value, 0), rank(*carbon))
	}
	b.WriteString("---------------------------------------------\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func rank(st UserStat) string {
	if st.Users > 0 {
		return fmt.Sprintf("%d/%d", st.Rank, st.Users)
	}
	return fmt.Sprintf("%d", st.Rank)
}
