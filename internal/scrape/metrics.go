package scrape

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// WriteMetrics writes the outcome of a run to path in the Prometheus text
// format, for a node_exporter textfile collector.
func WriteMetrics(path string, res Result) error {
	reg := prometheus.NewRegistry()

	gauge := func(name, help string, v float64) error {
		g := prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "jobcarbon",
			Subsystem: "scrape",
			Name:      name,
			Help:      help,
		})
		g.Set(v)
		return reg.Register(g)
	}

	metrics := []struct {
		name, help string
		value      float64
	}{
		{"rows_inserted", "Accounting rows inserted by the last run.", float64(res.RowsInserted)},
		{"rows_skipped", "Accounting records skipped as malformed by the last run.", float64(res.RowsSkipped)},
		{"files_read", "Accounting files read by the last run.", float64(res.FilesRead)},
		{"files_missing", "Accounting files missing in the last run.", float64(res.FilesMissing)},
		{"watermark_timestamp_seconds", "Newest log date stored before the last run.", float64(res.Watermark.Unix())},
		{"last_run_timestamp_seconds", "Time the last run finished.", float64(res.Finished.Unix())},
	}
	for _, m := range metrics {
		if err := gauge(m.name, m.help, m.value); err != nil {
			return fmt.Errorf("register %s: %w", m.name, err)
		}
	}

	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
