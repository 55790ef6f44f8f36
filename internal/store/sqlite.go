package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS torque_logs (
		logdate text,
		"user" text,
		exit_status integer,
		ngpus integer,
		nproc integer,
		walltime_req_sec integer,
		walltime_sec integer,
		mem_req_mb integer,
		mem_mb integer,
		cput_req_sec integer,
		cput_sec integer
	)
`

// SQLite is a Store backed by a single SQLite file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens the SQLite store at path.
func OpenSQLite(ctx context.Context, path string, create bool) (*SQLite, error) {
	if !create {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotExist, path)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// One writer; the scraper and report never run statements concurrently.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create torque_logs table: %w", err)
	}
	return &SQLite{db: db}, nil
}

// LatestDate returns the newest log date, or Epoch when empty.
func (s *SQLite) LatestDate(ctx context.Context) (time.Time, error) {
	var latest sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT MAX(logdate) FROM torque_logs`).Scan(&latest)
	if err != nil {
		return time.Time{}, fmt.Errorf("query latest log date: %w", err)
	}
	if !latest.Valid || latest.String == "" {
		return Epoch, nil
	}

	t, err := time.Parse(DateLayout, latest.String)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse latest log date %q: %w", latest.String, err)
	}
	return t, nil
}

// Insert appends rows in one transaction.
func (s *SQLite) Insert(ctx context.Context, rows []Row) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin insert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO torque_logs (
			logdate, "user", exit_status, ngpus, nproc,
			walltime_req_sec, walltime_sec, mem_req_mb, mem_mb,
			cput_req_sec, cput_sec
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range rows {
		_, err := stmt.ExecContext(ctx,
			dateOnly(r.LogDate).Format(DateLayout),
			r.User,
			r.ExitStatus,
			r.NGPUs,
			r.NProc,
			r.WalltimeReqSec,
			r.WalltimeSec,
			r.MemReqMB,
			r.MemMB,
			r.CPUTimeReqSec,
			r.CPUTimeSec,
		)
		if err != nil {
			return 0, fmt.Errorf("insert row for %s: %w", r.User, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit insert: %w", err)
	}
	return len(rows), nil
}

// Rows returns rows logged on or after since.
func (s *SQLite) Rows(ctx context.Context, since time.Time) ([]Row, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT logdate, "user", exit_status, ngpus, nproc,
			walltime_req_sec, walltime_sec, mem_req_mb, mem_mb,
			cput_req_sec, cput_sec
		FROM torque_logs
		WHERE logdate >= ?
		ORDER BY logdate, rowid
	`, dateOnly(since).Format(DateLayout))
	if err != nil {
		return nil, fmt.Errorf("query rows: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Row
	for rows.Next() {
		var (
			r       Row
			logdate string
		)
		err := rows.Scan(
			&logdate,
			&r.User,
			&r.ExitStatus,
			&r.NGPUs,
			&r.NProc,
			&r.WalltimeReqSec,
			&r.WalltimeSec,
			&r.MemReqMB,
			&r.MemMB,
			&r.CPUTimeReqSec,
			&r.CPUTimeSec,
		)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		r.LogDate, err = time.Parse(DateLayout, logdate)
		if err != nil {
			return nil, fmt.Errorf("parse log date %q: %w", logdate, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
