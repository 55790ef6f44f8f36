package render

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/jobcarbon/internal/aggregate"
	"github.com/rshade/jobcarbon/internal/carbon"
	"github.com/rshade/jobcarbon/internal/estimate"
	"github.com/rshade/jobcarbon/internal/jobrecord"
)

func sampleReport() *estimate.Report {
	start := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)
	return &estimate.Report{
		Mode:     estimate.ModeJobs,
		Currency: "DKK",
		Skipped:  []string{"99"},
		Jobs: []carbon.JobResult{{
			Record: jobrecord.Record{
				JobID:    "42",
				Start:    start,
				End:      end,
				Cores:    4,
				MemoryGB: 20,
				CPUTime:  6 * time.Hour,
				Walltime: 2 * time.Hour,
			},
			RAMSticks:     2,
			CPUEfficiency: 0.75,
			EnergyKWh:     0.12,
			PerHourKWh:    0.06,
			Cost:          0.24,
			EmissionsG:    12.5,
		}},
		Summary: aggregate.Summary{
			Jobs:       1,
			CPUHours:   6,
			EnergyKWh:  0.12,
			EmissionsG: 12.5,
			Cost:       0.24,
			RAMSticks:  2,
			Efficiency: 0.75,
			Start:      start,
			End:        end,
			SpanHours:  2,
			Comparisons: carbon.Comparisons{
				WashingCycles:  12.5 / 600,
				CarKm:          12.5 / 120,
				TreeMonths:     12.5 / 917,
				Flights:        12.5 / 150000,
				OffsetCostMin:  12.5 / 1e6 * 75,
				OffsetCostMax:  12.5 / 1e6 * 750,
				OffsetCurrency: "DKK",
			},
		},
	}
}

func TestReport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Report(&buf, sampleReport()))
	out := buf.String()

	for _, want := range []string{
		"Computation began: 2024-03-04 10:00:00",
		"Computation ended: 2024-03-04 12:00:00",
		"Total real time spent: 2 hours",
		"Total CPU time spent: 6 hours",
		"CPU efficiency: 75%",
		"Number of 16GB RAM sticks used: 2",
		"Estimated energy use:          0.12 kWh",
		"Estimated data center cost:    0.24 DKK",
		"Estimated emissions generated: 12.5 g CO2",
		"Price to offset carbon:        0-0.01 DKK",
		"driving 0.1 km",
		"Jobs not found: 99",
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "Forecast")
}

func TestReport_Forecast(t *testing.T) {
	rep := sampleReport()
	rep.Mode = estimate.ModeForecast

	var buf bytes.Buffer
	require.NoError(t, Report(&buf, rep))
	assert.Contains(t, buf.String(), "Forecast for a job starting: 2024-03-04 10:00:00")
	assert.NotContains(t, buf.String(), "Computation ended")
}

func TestNum(t *testing.T) {
	tests := []struct {
		v      float64
		places int
		want   string
	}{
		{1.0, 2, "1"},
		{1.2345, 2, "1.23"},
		{0.1, 3, "0.1"},
		{-0.0001, 2, "0"},
		{150, 0, "150"},
		{1234.5, 1, "1234.5"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, num(tt.v, tt.places), "num(%g, %d)", tt.v, tt.places)
	}
}

func TestChart_Efficiency(t *testing.T) {
	scores := []aggregate.Score{{User: "alice", Value: 0.9}, {User: "bob", Value: 0.25}}

	var buf bytes.Buffer
	require.NoError(t, Chart(&buf, aggregate.MetricCPU, scores, false))
	lines := strings.Split(buf.String(), "\n")

	assert.True(t, strings.HasPrefix(lines[0], "----- CPU time efficiency "))
	var alice, bob string
	for _, l := range lines {
		switch {
		case strings.HasPrefix(l, "alice"):
			alice = l
		case strings.HasPrefix(l, "bob"):
			bob = l
		}
	}
	assert.Contains(t, alice, "| "+strings.Repeat("=", 90)+"  0.9")
	assert.Contains(t, bob, "| "+strings.Repeat("=", 25)+"  0.25")
	assert.NotContains(t, buf.String(), "\033[")
}

func TestChart_CarbonScaledToMax(t *testing.T) {
	scores := []aggregate.Score{{User: "low", Value: 10}, {User: "high", Value: 120}}

	var buf bytes.Buffer
	require.NoError(t, Chart(&buf, aggregate.MetricCarbon, scores, true))
	out := buf.String()

	assert.Contains(t, out, ansiBlue+"----- Carbon load")
	assert.Contains(t, out, ansiGreen+"low       "+ansiReset)
	assert.Contains(t, out, "high      | "+strings.Repeat("=", 83)+"  120")
	assert.Contains(t, out, "Mean carbon load (gCO2e)")
}

func TestBarLength(t *testing.T) {
	assert.Equal(t, 100, barLength(aggregate.MetricMemory, 1.7, 0))
	assert.Equal(t, 0, barLength(aggregate.MetricMemory, -1, 0))
	assert.Equal(t, 0, barLength(aggregate.MetricCarbon, 5, 0))
	assert.Equal(t, 41, barLength(aggregate.MetricCarbon, 50, 100))
}

func TestUserSummary(t *testing.T) {
	stats := []UserStat{
		{Metric: aggregate.MetricMemory, Score: aggregate.Score{User: "alice", Value: 0.5}, Rank: 2, Users: 3},
		{Metric: aggregate.MetricCPU, Score: aggregate.Score{User: "alice", Value: 0.8}, Rank: 1, Users: 3},
		{Metric: aggregate.MetricCarbon, Score: aggregate.Score{User: "alice", Value: 321.4}, Rank: 3, Users: 3},
	}

	var buf bytes.Buffer
	require.NoError(t, UserSummary(&buf, "alice", stats, false))
	out := buf.String()

	assert.Contains(t, out, "Computation statistics for: alice")
	assert.Regexp(t, `Memory efficiency\s+0\.5\s+2/3`, out)
	assert.Regexp(t, `CPU time efficiency\s+0\.8\s+1/3`, out)
	assert.Regexp(t, `Mean carbon load\s+321\s+3/3`, out)
}

func TestUserSummary_WithoutCarbon(t *testing.T) {
	stats := []UserStat{{Metric: aggregate.MetricCPU, Score: aggregate.Score{User: "bob", Value: 1}, Rank: 1}}

	var buf bytes.Buffer
	require.NoError(t, UserSummary(&buf, "bob", stats, true))
	assert.NotContains(t, buf.String(), "gCO2e")
	assert.Contains(t, buf.String(), ansiPurple+"bob"+ansiReset)
}

func TestReportJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ReportJSON(&buf, sampleReport()))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "job", got["mode"])
	assert.Equal(t, "DKK", got["currency"])

	jobs := got["jobs"].([]any)
	require.Len(t, jobs, 1)
	job := jobs[0].(map[string]any)
	assert.Equal(t, "42", job["job_id"])
	assert.Equal(t, 21600.0, job["cpu_time_sec"])
	assert.NotContains(t, job, "crashed")

	summary := got["summary"].(map[string]any)
	assert.Equal(t, 12.5, summary["emissions_g"])
	assert.Equal(t, "DKK", summary["comparisons"].(map[string]any)["offset_currency"])
}

func TestScoresJSON(t *testing.T) {
	var buf bytes.Buffer
	err := ScoresJSON(&buf, map[aggregate.Metric][]aggregate.Score{
		aggregate.MetricCarbon: {{User: "a", Value: 1}, {User: "b", Value: 2}},
	})
	require.NoError(t, err)

	var got map[string][]scoreJSON
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, []scoreJSON{{User: "a", Value: 1, Rank: 1}, {User: "b", Value: 2, Rank: 2}}, got["carbon"])
}

func TestUserJSON(t *testing.T) {
	var buf bytes.Buffer
	err := UserJSON(&buf, "alice", []UserStat{
		{Metric: aggregate.MetricCPU, Score: aggregate.Score{User: "alice", Value: 0.5}, Rank: 2, Users: 4},
	})
	require.NoError(t, err)

	var got map[string]scoreJSON
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, scoreJSON{User: "alice", Value: 0.5, Rank: 2, Users: 4}, got["cpus"])
}
