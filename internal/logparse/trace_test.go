package logparse

import (
	"context"
	"io/fs"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const singleJobTrace = `Job: 4711215.torque01

03/14/2023 09:26:52  S    enqueuing into batch, state 1 hop 1
03/14/2023 09:26:53  S    Job Run at request of root@torque01
03/14/2023 09:26:53  L    Job Run
03/14/2023 11:26:58  S    Exit_status=0 resources_used.cput=27600 resources_used.energy_used=0 resources_used.mem=8142248kb resources_used.vmem=9923344kb resources_used.walltime=02:00:05
03/14/2023 11:26:58  A    user=alice group=users jobname=align queue=batch Exit_status=0 resources_used.cput=27600 resources_used.mem=8142248kb resources_used.walltime=02:00:05
`

const arrayTrace = `Job: 4711300[].torque01

03/15/2023 10:00:00  S    Exit_status=0 resources_used.cput=7200 resources_used.mem=2gb resources_used.walltime=02:00:00
03/15/2023 10:30:00  S    Exit_status=0 resources_used.cput=3600 resources_used.mem=1024mb resources_used.walltime=01:00:00
`

const crashedTrace = `Job: 4711400.torque01

03/16/2023 08:00:00  S    Job Run at request of root@torque01
03/16/2023 08:00:01  S    job was terminated by server
`

func TestParseTrace_SingleJob(t *testing.T) {
	usages, err := ParseTrace("4711215", singleJobTrace, TraceOptions{Mode: ModeJob, Location: time.UTC})
	require.NoError(t, err)
	require.Len(t, usages, 1, "single job stops at the first usage line")

	u := usages[0]
	assert.Equal(t, "4711215", u.JobID)
	assert.True(t, u.HasStart)
	assert.Equal(t, time.Date(2023, 3, 14, 9, 26, 53, 0, time.UTC), u.Start)
	assert.Equal(t, time.Date(2023, 3, 14, 11, 26, 58, 0, time.UTC), u.End)
	assert.Equal(t, "27600", u.CPUTime)
	assert.Equal(t, "8142248kb", u.Memory)
	assert.Equal(t, "02:00:05", u.Walltime)
	assert.False(t, u.Crashed)
}

func TestParseTrace_Array(t *testing.T) {
	usages, err := ParseTrace("4711300", arrayTrace, TraceOptions{Mode: ModeArray, Location: time.UTC})
	require.NoError(t, err)
	require.Len(t, usages, 2, "every usage line is one array element")

	assert.False(t, usages[0].HasStart, "array traces carry no start marker")
	assert.Equal(t, "7200", usages[0].CPUTime)
	assert.Equal(t, "02:00:00", usages[0].Walltime)
	assert.Equal(t, "1024mb", usages[1].Memory)
	assert.Equal(t, time.Date(2023, 3, 15, 10, 30, 0, 0, time.UTC), usages[1].End)
}

func TestParseTrace_ArrayIgnoresStartMarker(t *testing.T) {
	trace := "03/15/2023 08:00:00  S    Job Run at request of root@torque01\n" + arrayTrace
	usages, err := ParseTrace("4711300", trace, TraceOptions{Mode: ModeArray, Location: time.UTC})
	require.NoError(t, err)
	for _, u := range usages {
		assert.False(t, u.HasStart)
	}
}

func TestParseTrace_Crashed(t *testing.T) {
	now := time.Date(2023, 3, 16, 12, 0, 0, 0, time.UTC)
	usages, err := ParseTrace("4711400", crashedTrace, TraceOptions{Mode: ModeJob, Now: now, Location: time.UTC})
	require.NoError(t, err)
	require.Len(t, usages, 1)

	u := usages[0]
	assert.True(t, u.Crashed)
	assert.Equal(t, time.Date(2023, 3, 16, 8, 0, 0, 0, time.UTC), u.Start)
	assert.Equal(t, now, u.End)
	assert.Empty(t, u.Memory)
}

func TestParseTrace_NoUsage(t *testing.T) {
	tests := []struct {
		name string
		text string
		mode Mode
	}{
		{"empty trace", "", ModeJob},
		{"unrelated lines", "03/16/2023 08:00:00  S    enqueuing into batch\n", ModeJob},
		{"incomplete usage line", "03/16/2023 08:00:00  S    resources_used.cput=10\n", ModeArray},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTrace("1", tt.text, TraceOptions{Mode: tt.mode, Location: time.UTC})
			assert.ErrorIs(t, err, ErrNoUsage)
		})
	}
}

func TestParseTrace_CPUTimeAsClock(t *testing.T) {
	trace := "03/14/2023 11:00:00  S    Exit_status=0 resources_used.cput=01:30:00 resources_used.mem=10gb resources_used.walltime=01:00:00\n"
	usages, err := ParseTrace("7", trace, TraceOptions{Mode: ModeJob, Location: time.UTC})
	require.NoError(t, err)
	assert.Equal(t, "01:30:00", usages[0].CPUTime)
}

func TestMode_String(t *testing.T) {
	assert.Equal(t, "job", ModeJob.String())
	assert.Equal(t, "array", ModeArray.String())
	assert.Equal(t, "Mode(9)", Mode(9).String())
}

func TestTracejob_MissingBinary(t *testing.T) {
	src := Tracejob{Path: filepath.Join(t.TempDir(), "tracejob")}
	_, err := src.Trace(context.Background(), "42", 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}
