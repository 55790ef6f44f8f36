package jobrecord

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Decimal memory units, expressed relative to one gigabyte.
var memoryUnits = map[string]float64{
	"kb": 1e6,
	"mb": 1e3,
	"gb": 1,
	"tb": 1e-3,
}

// ParseMemoryGB converts a scheduler memory value to gigabytes.
//
// A bare number is taken as megabytes. A value suffixed with kb, mb, gb or
// tb (any case) is converted with decimal factors. Any other suffix is an
// ErrUnknownMemoryUnit.
func ParseMemoryGB(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		if !validAmount(v) {
			return 0, fmt.Errorf("%w: %q", ErrMalformedMemory, s)
		}
		return v / memoryUnits["mb"], nil
	}

	if len(s) < 3 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedMemory, s)
	}
	unit := strings.ToLower(s[len(s)-2:])
	perGB, ok := memoryUnits[unit]
	if !ok {
		return 0, fmt.Errorf("%w: got %q", ErrUnknownMemoryUnit, s)
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(s[:len(s)-2]), 64)
	if err != nil || !validAmount(v) {
		return 0, fmt.Errorf("%w: %q", ErrMalformedMemory, s)
	}
	return v / perGB, nil
}

// validAmount rejects negative, NaN and infinite amounts.
func validAmount(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0)
}

// FromGB formats gb in the given unit so that ParseMemoryGB returns gb.
func FromGB(gb float64, unit string) (string, error) {
	unit = strings.ToLower(unit)
	perGB, ok := memoryUnits[unit]
	if !ok {
		return "", fmt.Errorf("%w: got %q", ErrUnknownMemoryUnit, unit)
	}
	return strconv.FormatFloat(gb*perGB, 'g', -1, 64) + unit, nil
}

// ParseWalltime parses HH:MM:SS or DD:HH:MM:SS.
func ParseWalltime(s string) (time.Duration, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 && len(parts) != 4 {
		return 0, fmt.Errorf("%w: got %q", ErrMalformedWalltime, s)
	}

	nums := make([]int64, len(parts))
	for i, p := range parts {
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("%w: got %q", ErrMalformedWalltime, s)
		}
		nums[i] = n
	}

	var days int64
	if len(nums) == 4 {
		days, nums = nums[0], nums[1:]
	}
	seconds := days*86400 + nums[0]*3600 + nums[1]*60 + nums[2]
	return time.Duration(seconds) * time.Second, nil
}

// ParseCPUTime parses a CPU time given either as integer seconds or as a
// walltime-style clock value.
func ParseCPUTime(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, ":") {
		return ParseWalltime(s)
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: cpu time %q", ErrMalformedWalltime, s)
	}
	return time.Duration(n) * time.Second, nil
}

// FormatClock renders d as H:MM:SS, the form accepted by ParseWalltime.
func FormatClock(d time.Duration) string {
	secs := int64(d / time.Second)
	h := secs / 3600
	m := (secs % 3600) / 60
	sec := secs % 60
	return fmt.Sprintf("%d:%02d:%02d", h, m, sec)
}
