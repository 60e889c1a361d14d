package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Alisasanian/PDFsorter/internal/common"
	"github.com/Alisasanian/PDFsorter/internal/dataset"
)

type RecordRepository interface {
	// Insert stores recs for a run in one transaction; re-inserting a page replaces it.
	Insert(ctx context.Context, runID uuid.UUID, recs []dataset.Record) error
	List(ctx context.Context, runID uuid.UUID) ([]dataset.Record, error)
}

type recordRepo struct {
	db  *sql.DB
	log *slog.Logger
}

func NewRecordRepository(db *sql.DB, log *slog.Logger) RecordRepository {
	return &recordRepo{db: db, log: log}
}

func (r *recordRepo) Insert(ctx context.Context, runID uuid.UUID, recs []dataset.Record) (err error) {
	if len(recs) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return common.WrapError(errors.Join(common.ErrDatabase, err), "begin")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO extraction_records (run_id, pdf_name, page_number, drawing_number, is_priority)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (run_id, pdf_name, page_number) DO UPDATE
		 SET drawing_number = excluded.drawing_number, is_priority = excluded.is_priority`)
	if err != nil {
		return common.WrapError(errors.Join(common.ErrDatabase, err), "prepare insert")
	}
	defer stmt.Close()

	for _, rec := range recs {
		var num sql.NullString
		if rec.DrawingNumber != "" {
			num = sql.NullString{String: rec.DrawingNumber, Valid: true}
		}
		if _, err = stmt.ExecContext(ctx, runID, rec.PDFName, rec.Page, num, rec.Priority); err != nil {
			r.log.Error("record insert failed", "run_id", runID, "pdf", rec.PDFName, "page", rec.Page, "err", err)
			return common.WrapError(errors.Join(common.ErrDatabase, err), "insert record")
		}
	}
	if err = tx.Commit(); err != nil {
		return common.WrapError(errors.Join(common.ErrDatabase, err), "commit")
	}
	r.log.Debug("records stored", "run_id", runID, "count", len(recs))
	return nil
}

func (r *recordRepo) List(ctx context.Context, runID uuid.UUID) ([]dataset.Record, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT pdf_name, page_number, drawing_number, is_priority FROM extraction_records
		 WHERE run_id = $1 ORDER BY pdf_name, page_number`, runID)
	if err != nil {
		return nil, common.WrapError(errors.Join(common.ErrDatabase, err), "list records")
	}
	defer rows.Close()
	var out []dataset.Record
	for rows.Next() {
		var (
			rec dataset.Record
			num sql.NullString
		)
		if err := rows.Scan(&rec.PDFName, &rec.Page, &num, &rec.Priority); err != nil {
			return nil, common.WrapError(errors.Join(common.ErrDatabase, err), "scan record")
		}
		rec.DrawingNumber = num.String
		out = append(out, rec)
	}
	return out, rows.Err()
}
