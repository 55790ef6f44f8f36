// Package store persists accounting rows in the torque_logs table. The
// default store is a single SQLite file; a PostgreSQL database is used
// when the DSN is a postgres:// URL.
package store

import (
	"context"
	"strings"
	"time"
)

// DateLayout is the text form of a log date.
const DateLayout = "2006-01-02"

// Epoch is the watermark of an empty store. Scraping starts the day after.
var Epoch = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)

// Row is one finished job as recorded in the accounting log.
type Row struct {
	// LogDate is the UTC midnight of the accounting day.
	LogDate time.Time

	User       string
	ExitStatus int
	NGPUs      int
	NProc      int

	WalltimeReqSec int64
	WalltimeSec    int64
	MemReqMB       int64
	MemMB          int64
	CPUTimeReqSec  int64
	CPUTimeSec     int64
}

// Store provides accounting database operations.
type Store interface {
	// LatestDate returns the newest log date, or Epoch when empty.
	LatestDate(ctx context.Context) (time.Time, error)

	// Insert appends rows in one transaction and returns the count.
	Insert(ctx context.Context, rows []Row) (int, error)

	// Rows returns rows logged on or after since, in insertion order
	// within each day.
	Rows(ctx context.Context, since time.Time) ([]Row, error)

	// Close releases the database.
	Close() error
}

// Open opens the store at dsn. A postgres:// or postgresql:// URL selects
// PostgreSQL; anything else is a SQLite file path. Unless create is set, a
// missing SQLite file is reported as ErrNotExist. The torque_logs table is
// created when absent.
func Open(ctx context.Context, dsn string, create bool) (Store, error) {
	if IsPostgres(dsn) {
		return OpenPostgres(ctx, dsn)
	}
	return OpenSQLite(ctx, dsn, create)
}

// IsPostgres reports whether dsn names a PostgreSQL database.
func IsPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
