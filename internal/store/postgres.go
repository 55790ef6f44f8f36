package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS torque_logs (
		logdate date,
		"user" text,
		exit_status integer,
		ngpus integer,
		nproc integer,
		walltime_req_sec bigint,
		walltime_sec bigint,
		mem_req_mb bigint,
		mem_mb bigint,
		cput_req_sec bigint,
		cput_sec bigint
	)
`

var rowColumns = []string{
	"logdate", "user", "exit_status", "ngpus", "nproc",
	"walltime_req_sec", "walltime_sec", "mem_req_mb", "mem_mb",
	"cput_req_sec", "cput_sec",
}

// Postgres is a Store backed by a PostgreSQL connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to dsn and ensures the torque_logs table exists.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create torque_logs table: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// LatestDate returns the newest log date, or Epoch when empty.
func (s *Postgres) LatestDate(ctx context.Context) (time.Time, error) {
	var latest *time.Time
	if err := s.pool.QueryRow(ctx, `SELECT MAX(logdate) FROM torque_logs`).Scan(&latest); err != nil {
		return time.Time{}, fmt.Errorf("query latest log date: %w", err)
	}
	if latest == nil {
		return Epoch, nil
	}
	return dateOnly(*latest), nil
}

// Insert appends rows with COPY inside one transaction.
func (s *Postgres) Insert(ctx context.Context, rows []Row) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	n, err := s.pool.CopyFrom(ctx,
		pgx.Identifier{"torque_logs"},
		rowColumns,
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			r := rows[i]
			return []any{
				dateOnly(r.LogDate),
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
			}, nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("copy rows into torque_logs: %w", err)
	}
	return int(n), nil
}

// Rows returns rows logged on or after since.
func (s *Postgres) Rows(ctx context.Context, since time.Time) ([]Row, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT logdate, "user", exit_status, ngpus, nproc,
			walltime_req_sec, walltime_sec, mem_req_mb, mem_mb,
			cput_req_sec, cput_sec
		FROM torque_logs
		WHERE logdate >= $1
		ORDER BY logdate, ctid
	`, dateOnly(since))
	if err != nil {
		return nil, fmt.Errorf("query rows: %w", err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Row, error) {
		var r Row
		err := row.Scan(
			&r.LogDate,
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
		r.LogDate = dateOnly(r.LogDate)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan rows: %w", err)
	}
	return out, nil
}

// Close closes the connection pool.
func (s *Postgres) Close() error {
	s.pool.Close()
	return nil
}

// DropTable removes the torque_logs table.
func (s *Postgres) DropTable(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `DROP TABLE IF EXISTS torque_logs`); err != nil {
		return fmt.Errorf("drop torque_logs table: %w", err)
	}
	return nil
}
