package logparse

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// DefaultLookbackDays is how many days of server logs tracejob searches.
const DefaultLookbackDays = 90

// TraceSource returns the trace text of a job.
type TraceSource interface {
	// Trace returns the scheduler trace for jobID, searching the last
	// days of logs.
	Trace(ctx context.Context, jobID string, days int) (string, error)
}

// Tracejob reads traces by running the tracejob command.
type Tracejob struct {
	// Path of the tracejob binary. Empty means "tracejob" on $PATH.
	Path string
}

// Trace runs `tracejob <jobID> -n <days> -alm` and returns its combined output.
func (t Tracejob) Trace(ctx context.Context, jobID string, days int) (string, error) {
	path := t.Path
	if path == "" {
		path = "tracejob"
	}
	if days <= 0 {
		days = DefaultLookbackDays
	}

	cmd := exec.CommandContext(ctx, path, jobID, "-n", strconv.Itoa(days), "-alm")
	var out strings.Builder
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("run %s for job %s: %w", path, jobID, err)
	}
	return out.String(), nil
}
