package scrape

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rshade/jobcarbon/internal/jobrecord"
	"github.com/rshade/jobcarbon/internal/logparse"
	"github.com/rshade/jobcarbon/internal/store"
)

const (
	// AccountingDateLayout is the date prefix of an accounting line.
	AccountingDateLayout = "01/02/2006"

	// FullNodeMB is recorded for jobs that requested no memory.
	// A full compute node carries 180 GiB.
	FullNodeMB = 180 * 1024
)

var memoryRe = regexp.MustCompile(`^([0-9]+)([a-z]+)$`)

// MemoryToMB converts an accounting memory value such as "10gb" into
// binary megabytes. The bare default "1" means no memory was requested
// and maps to FullNodeMB; other bare numbers are megabytes.
func MemoryToMB(s string) (int64, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "1" {
		return FullNodeMB, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil && n >= 0 {
		return n, nil
	}

	m := memoryRe.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", jobrecord.ErrMalformedMemory, s)
	}
	amount, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", jobrecord.ErrMalformedMemory, s)
	}

	var mb float64
	switch m[2] {
	case "tb":
		mb = amount * 1024 * 1024
	case "gb":
		mb = amount * 1024
	case "mb":
		mb = amount
	case "kb":
		mb = amount / 1024
	case "b":
		mb = math.Ceil(math.RoundToEven(amount / 1024 / 1024))
	default:
		return 0, fmt.Errorf("%w: %q (accounting logs use b, kb, mb, gb or tb)", jobrecord.ErrUnknownMemoryUnit, s)
	}
	return int64(math.RoundToEven(mb)), nil
}

// ToRow converts an accounting entry into a store row.
//
// Server logs carry no request: requested walltime and memory are the used
// values and requested cores are round(cput/walltime + 1). Accounting logs
// multiply the requested CPU time by the node count.
func ToRow(e logparse.Entry, v logparse.Variant) (store.Row, error) {
	var r store.Row

	date, err := time.Parse(AccountingDateLayout, e.Get(logparse.FieldDate))
	if err != nil {
		return r, fmt.Errorf("log date %q: %w", e.Get(logparse.FieldDate), err)
	}
	r.LogDate = date
	r.User = e.Get(logparse.FieldUser)

	if r.ExitStatus, err = atoi(e, logparse.FieldExitStatus); err != nil {
		return r, err
	}
	if r.NGPUs, err = atoi(e, logparse.FieldReqGPUs); err != nil {
		return r, err
	}

	if !e.Found(logparse.FieldUsedWalltime) {
		return r, fmt.Errorf("%w: no resources_used.walltime", jobrecord.ErrMalformedWalltime)
	}
	used, err := jobrecord.ParseWalltime(e.Get(logparse.FieldUsedWalltime))
	if err != nil {
		return r, err
	}
	req := used
	if v == logparse.VariantAccounting && e.Found(logparse.FieldReqWalltime) {
		if req, err = jobrecord.ParseWalltime(e.Get(logparse.FieldReqWalltime)); err != nil {
			return r, err
		}
	}
	r.WalltimeSec = int64(used / time.Second)
	r.WalltimeReqSec = int64(req / time.Second)

	if r.MemMB, err = MemoryToMB(e.Get(logparse.FieldUsedMem)); err != nil {
		return r, err
	}
	r.MemReqMB = r.MemMB
	if v == logparse.VariantAccounting {
		if r.MemReqMB, err = MemoryToMB(e.Get(logparse.FieldReqMem)); err != nil {
			return r, err
		}
	}

	cput, err := strconv.ParseInt(e.Get(logparse.FieldUsedCPUTime), 10, 64)
	if err != nil {
		return r, fmt.Errorf("%s %q: %w", logparse.FieldUsedCPUTime, e.Get(logparse.FieldUsedCPUTime), err)
	}
	r.CPUTimeSec = cput

	switch v {
	case logparse.VariantServer:
		r.NProc = 1
		if r.WalltimeSec > 0 {
			r.NProc = int(math.RoundToEven(float64(cput)/float64(r.WalltimeSec) + 1))
		}
		r.CPUTimeReqSec = r.WalltimeReqSec * int64(r.NProc)
	default:
		if r.NProc, err = atoi(e, logparse.FieldReqCPUs); err != nil {
			return r, err
		}
		nodes, err := atoi(e, logparse.FieldReqNodes)
		if err != nil {
			return r, err
		}
		r.CPUTimeReqSec = r.WalltimeReqSec * int64(r.NProc) * int64(nodes)
	}
	return r, nil
}

func atoi(e logparse.Entry, f logparse.Field) (int, error) {
	n, err := strconv.Atoi(e.Get(f))
	if err != nil {
		return 0, fmt.Errorf("%s %q: %w", f, e.Get(f), err)
	}
	return n, nil
}
