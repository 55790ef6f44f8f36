package jobrecord

import "errors"

var (
	// ErrUnknownMemoryUnit is returned for a memory suffix other than kb, mb, gb or tb.
	ErrUnknownMemoryUnit = errors.New("memory unit not recognized, use kb, mb, gb or tb")

	// ErrMalformedMemory is returned when the numeric part of a memory value is invalid.
	ErrMalformedMemory = errors.New("malformed memory value")

	// ErrMalformedWalltime is returned for durations not in HH:MM:SS or DD:HH:MM:SS form.
	ErrMalformedWalltime = errors.New("malformed walltime, use HH:MM:SS or DD:HH:MM:SS")

	// ErrInvalidRecord is returned when a record breaks its invariants.
	ErrInvalidRecord = errors.New("invalid job record")
)
