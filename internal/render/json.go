package render

import (
	"io"
	"time"

	"github.com/goccy/go-json"

	"github.com/rshade/jobcarbon/internal/aggregate"
	"github.com/rshade/jobcarbon/internal/carbon"
	"github.com/rshade/jobcarbon/internal/estimate"
)

type jobJSON struct {
	JobID         string    `json:"job_id"`
	Start         time.Time `json:"start_time"`
	End           time.Time `json:"end_time"`
	Cores         int       `json:"cores"`
	GPUs          int       `json:"gpus"`
	MemoryGB      float64   `json:"memory_gb"`
	RAMSticks     int       `json:"ram_sticks"`
	CPUTimeSec    float64   `json:"cpu_time_sec"`
	WalltimeSec   float64   `json:"walltime_sec"`
	CPUEfficiency float64   `json:"cpu_efficiency"`
	EnergyKWh     float64   `json:"energy_kwh"`
	PerHourKWh    float64   `json:"per_hour_kwh"`
	Cost          float64   `json:"cost"`
	EmissionsG    float64   `json:"emissions_g"`
	Crashed       bool      `json:"crashed,omitempty"`
}

type comparisonsJSON struct {
	WashingCycles  float64 `json:"washing_cycles"`
	CarKm          float64 `json:"car_km"`
	TreeMonths     float64 `json:"tree_months"`
	Flights        float64 `json:"flights_cph_lon"`
	OffsetCostMin  float64 `json:"offset_cost_min"`
	OffsetCostMax  float64 `json:"offset_cost_max"`
	OffsetCurrency string  `json:"offset_currency"`
}

type summaryJSON struct {
	Jobs        int             `json:"jobs"`
	CrashedJobs int             `json:"crashed_jobs"`
	Start       time.Time       `json:"start_time"`
	End         time.Time       `json:"end_time"`
	SpanHours   float64         `json:"span_hours"`
	CPUHours    float64         `json:"cpu_hours"`
	Efficiency  float64         `json:"cpu_efficiency"`
	RAMSticks   int             `json:"ram_sticks"`
	EnergyKWh   float64         `json:"energy_kwh"`
	Cost        float64         `json:"cost"`
	EmissionsG  float64         `json:"emissions_g"`
	Comparisons comparisonsJSON `json:"comparisons"`
}

type reportJSON struct {
	Mode     string      `json:"mode"`
	Currency string      `json:"currency"`
	Summary  summaryJSON `json:"summary"`
	Jobs     []jobJSON   `json:"jobs"`
	Skipped  []string    `json:"skipped,omitempty"`
}

type scoreJSON struct {
	User  string  `json:"user"`
	Value float64 `json:"value"`
	Rank  int     `json:"rank"`
	Users int     `json:"users,omitempty"`
}

// ReportJSON writes an estimate report as indented JSON.
func ReportJSON(w io.Writer, rep *estimate.Report) error {
	out := reportJSON{
		Mode:     rep.Mode.String(),
		Currency: rep.Currency,
		Summary:  summaryToJSON(rep.Summary),
		Jobs:     make([]jobJSON, 0, len(rep.Jobs)),
		Skipped:  rep.Skipped,
	}
	for _, j := range rep.Jobs {
		out.Jobs = append(out.Jobs, jobToJSON(j))
	}
	return writeJSON(w, out)
}

// ScoresJSON writes per-user scores keyed by metric name, in rank order.
func ScoresJSON(w io.Writer, scores map[aggregate.Metric][]aggregate.Score) error {
	out := make(map[string][]scoreJSON, len(scores))
	for m, list := range scores {
		rows := make([]scoreJSON, len(list))
		for i, s := range list {
			rows[i] = scoreJSON{User: s.User, Value: s.Value, Rank: i + 1}
		}
		out[m.String()] = rows
	}
	return writeJSON(w, out)
}

// UserJSON writes a single user's scores keyed by metric name.
func UserJSON(w io.Writer, user string, stats []UserStat) error {
	out := make(map[string]scoreJSON, len(stats))
	for _, st := range stats {
		out[st.Metric.String()] = scoreJSON{User: user, Value: st.Score.Value, Rank: st.Rank, Users: st.Users}
	}
	return writeJSON(w, out)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func jobToJSON(j carbon.JobResult) jobJSON {
	r := j.Record
	return jobJSON{
		JobID:         r.JobID,
		Start:         r.Start,
		End:           r.End,
		Cores:         r.Cores,
		GPUs:          r.GPUs,
		MemoryGB:      r.MemoryGB,
		RAMSticks:     j.RAMSticks,
		CPUTimeSec:    r.CPUTimeSeconds(),
		WalltimeSec:   r.WalltimeSeconds(),
		CPUEfficiency: j.CPUEfficiency,
		EnergyKWh:     j.EnergyKWh,
		PerHourKWh:    j.PerHourKWh,
		Cost:          j.Cost,
		EmissionsG:    j.EmissionsG,
		Crashed:       r.Crashed,
	}
}

func summaryToJSON(s aggregate.Summary) summaryJSON {
	c := s.Comparisons
	return summaryJSON{
		Jobs:        s.Jobs,
		CrashedJobs: s.CrashedJobs,
		Start:       s.Start,
		End:         s.End,
		SpanHours:   s.SpanHours,
		CPUHours:    s.CPUHours,
		Efficiency:  s.Efficiency,
		RAMSticks:   s.RAMSticks,
		EnergyKWh:   s.EnergyKWh,
		Cost:        s.Cost,
		EmissionsG:  s.EmissionsG,
		Comparisons: comparisonsJSON{
			WashingCycles:  c.WashingCycles,
			CarKm:          c.CarKm,
			TreeMonths:     c.TreeMonths,
			Flights:        c.Flights,
			OffsetCostMin:  c.OffsetCostMin,
			OffsetCostMax:  c.OffsetCostMax,
			OffsetCurrency: c.OffsetCurrency,
		},
	}
}
