package estimate

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/jobcarbon/internal/carbon"
	"github.com/rshade/jobcarbon/internal/jobrecord"
	"github.com/rshade/jobcarbon/internal/tariff"
)

const jobTrace = `Job: 4711215.torque01

03/14/2023 09:26:53  S    Job Run at request of root@torque01
03/14/2023 11:26:58  S    Exit_status=0 resources_used.cput=27600 resources_used.mem=8142248kb resources_used.vmem=9923344kb resources_used.walltime=02:00:05
`

const arrayTrace = `Job: 4711300[].torque01

03/15/2023 10:00:00  S    Exit_status=0 resources_used.cput=7200 resources_used.mem=2gb resources_used.walltime=02:00:00
03/15/2023 10:30:00  S    Exit_status=0 resources_used.cput=3600 resources_used.mem=1024mb resources_used.walltime=01:00:00
`

const crashedTrace = `Job: 4711400.torque01

03/16/2023 08:00:00  S    Job Run at request of root@torque01
`

const badUnitTrace = `Job: 4711500.torque01

03/16/2023 08:00:00  S    Exit_status=0 resources_used.cput=10 resources_used.mem=12pb resources_used.walltime=00:01:00
`

// fakeSource serves canned traces. Unknown IDs yield empty output, as
// tracejob does for jobs outside the look-back window.
type fakeSource struct {
	traces map[string]string
	err    error
	days   []int
}

func (f *fakeSource) Trace(_ context.Context, jobID string, days int) (string, error) {
	f.days = append(f.days, days)
	if f.err != nil {
		return "", f.err
	}
	return f.traces[jobID], nil
}

func testCalculator() *carbon.Calculator {
	ref := carbon.DefaultReference()
	ref.Energy = carbon.EnergyReference{
		CPUCore:  carbon.Power{KW: 0.01},
		Memory16: carbon.Power{KW: 0.005},
		GPU:      carbon.Power{KW: 0.3},
	}
	return carbon.NewCalculator(ref, tariff.Scalar(1), tariff.Scalar(100))
}

func newTestEstimator(src *fakeSource) *Estimator {
	e := New(testCalculator(), "DKK", Options{Source: src, Location: time.UTC}, zerolog.Nop())
	e.now = func() time.Time { return time.Date(2023, 3, 16, 9, 0, 0, 0, time.UTC) }
	return e
}

func TestRun_Jobs(t *testing.T) {
	src := &fakeSource{traces: map[string]string{"4711215": jobTrace}}
	e := newTestEstimator(src)

	rep, err := e.Run(context.Background(), Request{Mode: ModeJobs, Inputs: []string{"4711215", "999"}})
	require.NoError(t, err)

	require.Len(t, rep.Jobs, 1)
	assert.Equal(t, []string{"999"}, rep.Skipped)
	assert.Equal(t, "DKK", rep.Currency)
	assert.Equal(t, ModeJobs, rep.Mode)

	job := rep.Jobs[0]
	assert.Equal(t, "4711215", job.Record.JobID)
	assert.Equal(t, 4, job.Record.Cores)
	assert.Equal(t, 1, job.RAMSticks)
	assert.Equal(t, time.Date(2023, 3, 14, 9, 26, 53, 0, time.UTC), job.Record.Start)
	assert.InDelta(t, (27600*0.01+27600*0.005)/3600, job.EnergyKWh, 1e-12)

	assert.Equal(t, 1, rep.Summary.Jobs)
	assert.InDelta(t, job.EmissionsG, rep.Summary.EmissionsG, 1e-12)
	assert.Equal(t, []int{90, 90}, src.days, "default look-back")
}

func TestRun_Array(t *testing.T) {
	e := newTestEstimator(&fakeSource{traces: map[string]string{"4711300": arrayTrace}})

	rep, err := e.Run(context.Background(), Request{Mode: ModeArray, Inputs: []string{"4711300"}})
	require.NoError(t, err)
	require.Len(t, rep.Jobs, 2)

	first := rep.Jobs[0].Record
	assert.Equal(t, time.Date(2023, 3, 15, 8, 0, 0, 0, time.UTC), first.Start, "start is end minus walltime")
	assert.Equal(t, 1, first.Cores)
	assert.Equal(t, 2, rep.Summary.Jobs)
	assert.InDelta(t, 3.0, rep.Summary.CPUHours, 1e-12)
}

func TestRun_Logfile(t *testing.T) {
	dir := t.TempDir()
	log := "Building DAG of jobs...\n" +
		"Submitted job 1 with external jobid '4711215.torque01'.\n" +
		"Submitted job 2 with external jobid '4711300.torque01'.\n"
	path := filepath.Join(dir, "pipeline.log")
	require.NoError(t, os.WriteFile(path, []byte(log), 0o644))
	other := filepath.Join(dir, "rerun.log")
	require.NoError(t, os.WriteFile(other, []byte("Submitted job 1 with external jobid '4711215.torque01'.\n"), 0o644))

	src := &fakeSource{traces: map[string]string{"4711215": jobTrace, "4711300": arrayTrace}}
	e := newTestEstimator(src)

	rep, err := e.Run(context.Background(), Request{Mode: ModeLogfile, Inputs: []string{path, other}})
	require.NoError(t, err)

	// Logfile jobs are read as single jobs: the array trace yields its first line.
	assert.Len(t, rep.Jobs, 2)
	assert.Len(t, src.days, 2, "duplicate IDs are traced once")
}

func TestRun_LogfileMissing(t *testing.T) {
	e := newTestEstimator(&fakeSource{})
	_, err := e.Run(context.Background(), Request{Mode: ModeLogfile, Inputs: []string{filepath.Join(t.TempDir(), "none.log")}})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRun_Forecast(t *testing.T) {
	e := newTestEstimator(&fakeSource{})

	rep, err := e.Run(context.Background(), Request{
		Mode:     ModeForecast,
		Forecast: jobrecord.ForecastInput{Walltime: "01:00:00", Memory: "16gb", Cores: 4},
	})
	require.NoError(t, err)
	require.Len(t, rep.Jobs, 1)

	job := rep.Jobs[0]
	assert.Equal(t, 1, job.RAMSticks)
	assert.Equal(t, 14400.0, job.Record.CPUTimeSeconds())
	assert.InDelta(t, 0.06, job.EnergyKWh, 1e-12)
	assert.InDelta(t, 6.0, job.EmissionsG, 1e-9)
	assert.InDelta(t, 0.06, job.Cost, 1e-12)
}

func TestRun_Crashed(t *testing.T) {
	e := newTestEstimator(&fakeSource{traces: map[string]string{"4711400": crashedTrace}})

	rep, err := e.Run(context.Background(), Request{Mode: ModeJobs, Inputs: []string{"4711400"}})
	require.NoError(t, err)
	require.Len(t, rep.Jobs, 1)

	rec := rep.Jobs[0].Record
	assert.True(t, rec.Crashed)
	assert.Equal(t, time.Hour, rec.Walltime, "runs until the trace is read")
	assert.Equal(t, 1, rep.Summary.CrashedJobs)
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name    string
		src     *fakeSource
		req     Request
		wantErr error
	}{
		{
			name:    "nothing found",
			src:     &fakeSource{},
			req:     Request{Mode: ModeJobs, Inputs: []string{"1", "2"}},
			wantErr: ErrNoJobsFound,
		},
		{
			name:    "trace failures are skipped",
			src:     &fakeSource{err: fmt.Errorf("exit status 1")},
			req:     Request{Mode: ModeArray, Inputs: []string{"1"}},
			wantErr: ErrNoJobsFound,
		},
		{
			name:    "no inputs",
			src:     &fakeSource{},
			req:     Request{Mode: ModeJobs},
			wantErr: ErrNoInput,
		},
		{
			name:    "tracejob missing",
			src:     &fakeSource{err: fmt.Errorf("run tracejob: %w", exec.ErrNotFound)},
			req:     Request{Mode: ModeJobs, Inputs: []string{"1"}},
			wantErr: exec.ErrNotFound,
		},
		{
			name:    "tracejob path does not exist",
			src:     &fakeSource{err: fmt.Errorf("run tracejob: %w", &fs.PathError{Op: "fork/exec", Path: "/wrong/tracejob", Err: fs.ErrNotExist})},
			req:     Request{Mode: ModeJobs, Inputs: []string{"1", "2"}},
			wantErr: fs.ErrNotExist,
		},
		{
			name:    "tracejob not executable",
			src:     &fakeSource{err: fmt.Errorf("run tracejob: %w", fs.ErrPermission)},
			req:     Request{Mode: ModeArray, Inputs: []string{"1"}},
			wantErr: fs.ErrPermission,
		},
		{
			name:    "unknown memory unit is fatal",
			src:     &fakeSource{traces: map[string]string{"4711500": badUnitTrace}},
			req:     Request{Mode: ModeJobs, Inputs: []string{"4711500"}},
			wantErr: jobrecord.ErrUnknownMemoryUnit,
		},
		{
			name:    "malformed forecast walltime",
			src:     &fakeSource{},
			req:     Request{Mode: ModeForecast, Forecast: jobrecord.ForecastInput{Walltime: "1h", Memory: "1gb"}},
			wantErr: jobrecord.ErrMalformedWalltime,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestEstimator(tt.src).Run(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestEstimator(&fakeSource{}).Run(ctx, Request{Mode: ModeJobs, Inputs: []string{"1"}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestForecastEmissions(t *testing.T) {
	e := newTestEstimator(&fakeSource{})

	g, err := e.ForecastEmissions(jobrecord.ForecastInput{Walltime: "01:00:00", Memory: "16gb", Cores: 4})
	require.NoError(t, err)
	assert.InDelta(t, 6.0, g, 1e-9)

	_, err = e.ForecastEmissions(jobrecord.ForecastInput{Walltime: "01:00:00", Memory: "16zb"})
	assert.ErrorIs(t, err, jobrecord.ErrUnknownMemoryUnit)
}
