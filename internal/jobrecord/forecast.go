package jobrecord

import (
	"fmt"
	"time"
)

// ForecastInput describes a job that has not run yet.
type ForecastInput struct {
	// Walltime in HH:MM:SS or DD:HH:MM:SS.
	Walltime string

	// Memory as accepted by ParseMemoryGB.
	Memory string

	Cores int
	GPUs  int
}

// Forecast builds the Record of a job starting at now and running for the
// requested walltime at full efficiency on every core.
//
// Zero inputs are floored: walltime to one second, memory to 1 GB and cores
// to one, so a forecast never reports zero consumption.
func Forecast(in ForecastInput, now time.Time) (Record, error) {
	wall, err := ParseWalltime(in.Walltime)
	if err != nil {
		return Record{}, err
	}
	if wall == 0 {
		wall = time.Second
	}

	mem, err := ParseMemoryGB(in.Memory)
	if err != nil {
		return Record{}, err
	}
	if mem == 0 {
		mem = 1
	}

	cores := in.Cores
	if cores == 0 {
		cores = 1
	}
	if cores < 0 || in.GPUs < 0 {
		return Record{}, fmt.Errorf("%w: cores=%d gpus=%d", ErrInvalidRecord, in.Cores, in.GPUs)
	}

	return finish(Record{
		JobID:    "forecast",
		Start:    now,
		End:      now.Add(wall),
		Cores:    cores,
		GPUs:     in.GPUs,
		MemoryGB: mem,
		CPUTime:  wall * time.Duration(cores),
		Walltime: wall,
	})
}
