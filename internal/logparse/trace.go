// Package logparse extracts raw per-job resource usage from Torque/PBS
// scheduler output: tracejob traces, workflow logfiles and daily
// accounting files.
package logparse

import (
	"bufio"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// TraceTimeLayout is the timestamp layout used by tracejob and the
// accounting files (e.g. "03/14/2023 09:26:53").
const TraceTimeLayout = "01/02/2006 15:04:05"

// ErrNoUsage is returned when a trace holds no resource usage for a job.
var ErrNoUsage = errors.New("no resource usage found")

// Mode selects how a trace is interpreted.
type Mode int

const (
	// ModeJob reads a single job: one record from the first usage line.
	ModeJob Mode = iota

	// ModeArray reads a job array: every usage line is one record and
	// there is no start marker.
	ModeArray
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeJob:
		return "job"
	case ModeArray:
		return "array"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

var (
	jobStartRe  = regexp.MustCompile(`Job Run at request of`)
	resourcesRe = regexp.MustCompile(`resources_used\.`)
	timestampRe = regexp.MustCompile(`(\d{2}/\d{2}/\d{4} \d{2}:\d{2}:\d{2})`)
	usedCPUTRe  = regexp.MustCompile(`resources_used\.cput=([0-9:]+)`)
	usedMemRe   = regexp.MustCompile(`resources_used\.mem=(\d+\w+)`)
	usedWallRe  = regexp.MustCompile(`resources_used\.walltime=(\d+:\d+:\d+(?::\d+)?)`)
)

// Usage is the raw resource usage of one job as it appears in a trace.
// Values are left as strings; jobrecord turns them into a Record.
type Usage struct {
	JobID string

	// Start is only set when HasStart is true. Array traces never carry
	// a start marker, so the start is derived from End and Walltime.
	Start    time.Time
	HasStart bool

	End time.Time

	CPUTime  string
	Memory   string
	Walltime string

	// Crashed marks a job that started but never reported usage. End is
	// the time the trace was read and the usage strings are empty.
	Crashed bool
}

// TraceOptions controls ParseTrace.
type TraceOptions struct {
	Mode Mode

	// Now is used as the end time of crashed jobs.
	Now time.Time

	// Location for trace timestamps. Nil means time.Local.
	Location *time.Location
}

// ParseTrace scans tracejob output for jobID.
//
// In ModeJob the scan stops at the first complete "resources_used." line.
// In ModeArray every complete usage line yields one Usage. A job that shows
// a start marker but no usage line is reported as crashed with End set to
// opts.Now. ErrNoUsage is returned when nothing was found.
func ParseTrace(jobID, text string, opts TraceOptions) ([]Usage, error) {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}

	var (
		usages   []Usage
		start    time.Time
		hasStart bool
	)

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()

		if opts.Mode == ModeJob && jobStartRe.MatchString(line) {
			if ts, ok := lineTimestamp(line, loc); ok {
				start, hasStart = ts, true
			}
		}

		if !resourcesRe.MatchString(line) {
			continue
		}

		u, ok := usageFromLine(line, loc)
		if !ok {
			continue
		}
		u.JobID = jobID
		if opts.Mode == ModeJob {
			u.Start, u.HasStart = start, hasStart
			usages = append(usages, u)
			break
		}
		usages = append(usages, u)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan trace for job %s: %w", jobID, err)
	}

	if len(usages) == 0 && hasStart {
		end := opts.Now
		if end.Before(start) {
			end = start
		}
		usages = append(usages, Usage{
			JobID:    jobID,
			Start:    start,
			HasStart: true,
			End:      end,
			Crashed:  true,
		})
	}

	if len(usages) == 0 {
		return nil, fmt.Errorf("job %s: %w", jobID, ErrNoUsage)
	}
	return usages, nil
}

// usageFromLine extracts the usage fields of a single line. It reports
// false when any of them is missing.
func usageFromLine(line string, loc *time.Location) (Usage, bool) {
	end, ok := lineTimestamp(line, loc)
	if !ok {
		return Usage{}, false
	}
	cput := firstGroup(usedCPUTRe, line)
	mem := firstGroup(usedMemRe, line)
	wall := firstGroup(usedWallRe, line)
	if cput == "" || mem == "" || wall == "" {
		return Usage{}, false
	}
	return Usage{
		End:      end,
		CPUTime:  cput,
		Memory:   mem,
		Walltime: wall,
	}, true
}

func lineTimestamp(line string, loc *time.Location) (time.Time, bool) {
	raw := firstGroup(timestampRe, line)
	if raw == "" {
		return time.Time{}, false
	}
	ts, err := time.ParseInLocation(TraceTimeLayout, raw, loc)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

func firstGroup(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}
