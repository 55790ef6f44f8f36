// Package jobrecord normalizes raw scheduler values into job records with
// consistent units: durations, gigabytes and core counts.
package jobrecord

import (
	"fmt"
	"math"
	"time"

	"github.com/rshade/jobcarbon/internal/logparse"
)

const (
	// RAMStickGB is the memory unit used for memory power draw.
	RAMStickGB = 16.0

	// CrashedJobMemoryGB is the memory assumed for a job that never
	// reported usage (100 MB).
	CrashedJobMemoryGB = 0.1
)

// Record is one completed or forecast job.
type Record struct {
	JobID string

	Start time.Time
	End   time.Time

	// Cores is at least 1. GPUs is at least 0.
	Cores int
	GPUs  int

	MemoryGB float64

	// CPUTime is the processor time consumed across all cores.
	CPUTime time.Duration

	// Walltime is the wall-clock duration of the job.
	Walltime time.Duration

	// Crashed is set for jobs synthesized from a start marker alone.
	Crashed bool
}

// RAMSticks returns the number of 16 GB memory units the job occupies.
func (r Record) RAMSticks() int {
	return int(math.Ceil(r.MemoryGB / RAMStickGB))
}

// WalltimeSeconds returns the walltime in seconds.
func (r Record) WalltimeSeconds() float64 {
	return r.Walltime.Seconds()
}

// CPUTimeSeconds returns the CPU time in seconds.
func (r Record) CPUTimeSeconds() float64 {
	return r.CPUTime.Seconds()
}

// Validate checks the record invariants.
func (r Record) Validate() error {
	switch {
	case r.End.Before(r.Start):
		return fmt.Errorf("%w: job %s ends %s before it starts %s",
			ErrInvalidRecord, r.JobID, r.End.Format(time.RFC3339), r.Start.Format(time.RFC3339))
	case r.Cores < 1:
		return fmt.Errorf("%w: job %s has %d cores", ErrInvalidRecord, r.JobID, r.Cores)
	case r.GPUs < 0:
		return fmt.Errorf("%w: job %s has %d GPUs", ErrInvalidRecord, r.JobID, r.GPUs)
	case r.MemoryGB < 0 || math.IsNaN(r.MemoryGB) || math.IsInf(r.MemoryGB, 0):
		return fmt.Errorf("%w: job %s has %g GB memory", ErrInvalidRecord, r.JobID, r.MemoryGB)
	case r.Walltime < 0 || r.CPUTime < 0:
		return fmt.Errorf("%w: job %s has negative duration", ErrInvalidRecord, r.JobID)
	}
	return nil
}

// InferCores estimates the core count of a historical job as
// ceil(cpuTime / walltime). A walltime under one second yields 1 core.
func InferCores(cpuTime, walltime time.Duration) int {
	if walltime < time.Second {
		return 1
	}
	cores := int(math.Ceil(cpuTime.Seconds() / walltime.Seconds()))
	if cores < 1 {
		return 1
	}
	return cores
}

// FromUsage builds a Record from the usage found in a trace.
//
// Jobs without a start marker start at End - Walltime. Crashed jobs run
// from their start marker to the time the trace was read on one core with
// CrashedJobMemoryGB of memory.
func FromUsage(u logparse.Usage) (Record, error) {
	if u.Crashed {
		wall := u.End.Sub(u.Start)
		return finish(Record{
			JobID:    u.JobID,
			Start:    u.Start,
			End:      u.End,
			Cores:    1,
			MemoryGB: CrashedJobMemoryGB,
			CPUTime:  wall,
			Walltime: wall,
			Crashed:  true,
		})
	}

	cput, err := ParseCPUTime(u.CPUTime)
	if err != nil {
		return Record{}, fmt.Errorf("job %s: %w", u.JobID, err)
	}
	mem, err := ParseMemoryGB(u.Memory)
	if err != nil {
		return Record{}, fmt.Errorf("job %s: %w", u.JobID, err)
	}
	wall, err := ParseWalltime(u.Walltime)
	if err != nil {
		return Record{}, fmt.Errorf("job %s: %w", u.JobID, err)
	}

	start := u.Start
	if !u.HasStart {
		start = u.End.Add(-wall)
	}

	return finish(Record{
		JobID:    u.JobID,
		Start:    start,
		End:      u.End,
		Cores:    InferCores(cput, wall),
		MemoryGB: mem,
		CPUTime:  cput,
		Walltime: wall,
	})
}

// finish applies the one-second minimum duration and validates.
func finish(r Record) (Record, error) {
	if r.End.Equal(r.Start) {
		r.End = r.Start.Add(time.Second)
	}
	if err := r.Validate(); err != nil {
		return Record{}, err
	}
	return r, nil
}
