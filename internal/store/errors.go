package store

import "errors"

var (
	// ErrNotExist is returned when an existing store was required but the
	// database file is missing.
	ErrNotExist = errors.New("accounting database does not exist")
)
