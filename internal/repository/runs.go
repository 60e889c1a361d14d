package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Alisasanian/PDFsorter/constants"
	"github.com/Alisasanian/PDFsorter/internal/common"
)

// Run is one pipeline execution.
type Run struct {
	ID         uuid.UUID
	Status     constants.RunStatus
	StartedAt  time.Time
	FinishedAt *time.Time
	Summary    json.RawMessage
}

type RunRepository interface {
	// Create records a run in status, replacing the status and start time of an existing one.
	Create(ctx context.Context, id uuid.UUID, status constants.RunStatus) (*Run, error)
	SetStatus(ctx context.Context, id uuid.UUID, status constants.RunStatus) error
	Finish(ctx context.Context, id uuid.UUID, status constants.RunStatus, summary any) error
	Get(ctx context.Context, id uuid.UUID) (*Run, error)
	List(ctx context.Context, limit int) ([]*Run, error)
	Count(ctx context.Context) (int, error)
}

type runRepo struct {
	db  *sql.DB
	log *slog.Logger
}

func NewRunRepository(db *sql.DB, log *slog.Logger) RunRepository {
	return &runRepo{db: db, log: log}
}

func (r *runRepo) Create(ctx context.Context, id uuid.UUID, status constants.RunStatus) (*Run, error) {
	run := &Run{ID: id, Status: status, StartedAt: time.Now().UTC()}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO runs (id, status, started_at) VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET status = excluded.status, started_at = excluded.started_at`,
		id, string(status), run.StartedAt)
	if err != nil {
		r.log.Error("run create failed", "run_id", id, "err", err)
		return nil, common.WrapError(errors.Join(common.ErrDatabase, err), "create run")
	}
	r.log.Info("run recorded", "run_id", id, "status", status)
	return run, nil
}

func (r *runRepo) SetStatus(ctx context.Context, id uuid.UUID, status constants.RunStatus) error {
	res, err := r.db.ExecContext(ctx, `UPDATE runs SET status = $1 WHERE id = $2`, string(status), id)
	if err != nil {
		r.log.Error("run status update failed", "run_id", id, "err", err)
		return common.WrapError(errors.Join(common.ErrDatabase, err), "update run")
	}
	return affectedOne(res, id)
}

func (r *runRepo) Finish(ctx context.Context, id uuid.UUID, status constants.RunStatus, summary any) error {
	var body any
	if summary != nil {
		b, err := json.Marshal(summary)
		if err != nil {
			return fmt.Errorf("encode run summary: %w", err)
		}
		body = string(b)
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE runs SET status = $1, finished_at = $2, summary = $3 WHERE id = $4`,
		string(status), time.Now().UTC(), body, id)
	if err != nil {
		r.log.Error("run finish failed", "run_id", id, "err", err)
		return common.WrapError(errors.Join(common.ErrDatabase, err), "finish run")
	}
	if err := affectedOne(res, id); err != nil {
		return err
	}
	r.log.Info("run finished", "run_id", id, "status", status)
	return nil
}

func (r *runRepo) Get(ctx context.Context, id uuid.UUID) (*Run, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, status, started_at, finished_at, summary FROM runs WHERE id = $1`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, common.WrapError(errors.Join(common.ErrDatabase, err), "get run")
	}
	return run, nil
}

func (r *runRepo) List(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, status, started_at, finished_at, summary FROM runs ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, common.WrapError(errors.Join(common.ErrDatabase, err), "list runs")
	}
	defer rows.Close()
	var out []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, common.WrapError(errors.Join(common.ErrDatabase, err), "list runs")
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

func (r *runRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&n); err != nil {
		return 0, common.WrapError(errors.Join(common.ErrDatabase, err), "count runs")
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var (
		run      Run
		status   string
		finished sql.NullTime
		summary  []byte
	)
	if err := s.Scan(&run.ID, &status, &run.StartedAt, &finished, &summary); err != nil {
		return nil, err
	}
	run.Status = constants.RunStatus(status)
	if finished.Valid {
		t := finished.Time
		run.FinishedAt = &t
	}
	if len(summary) > 0 {
		run.Summary = json.RawMessage(summary)
	}
	return &run, nil
}

func affectedOne(res sql.Result, id uuid.UUID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return common.WrapError(errors.Join(common.ErrDatabase, err), "rows affected")
	}
	if n == 0 {
		return fmt.Errorf("run %s: %w", id, common.ErrNotFound)
	}
	return nil
}
