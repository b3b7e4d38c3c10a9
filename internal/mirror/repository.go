package mirror

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNoRows is returned when no mirrored report matches a lookup.
var ErrNoRows = errors.New("no mirrored report")

// ReportRow is one mirrored report as recorded in Postgres.
type ReportRow struct {
	ID            string    `json:"id"`
	ReportDate    string    `json:"report_date"`
	ReportID      string    `json:"report_id,omitempty"`
	StorageRef    string    `json:"storage_ref"`
	SummarySHA256 string    `json:"summary_sha256"`
	BlockCount    int       `json:"block_count"`
	FetchedAt     time.Time `json:"fetched_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Repository records mirrored reports.
type Repository interface {
	Upsert(ctx context.Context, row *ReportRow) (*ReportRow, error)
	GetByDate(ctx context.Context, date string) (*ReportRow, error)
	Latest(ctx context.Context) (*ReportRow, error)
	List(ctx context.Context, limit int) ([]ReportRow, error)
}

// PGRepository is the Postgres-backed Repository.
type PGRepository struct {
	db *sql.DB
}

// NewPGRepository creates a Repository backed by db.
func NewPGRepository(db *sql.DB) *PGRepository {
	return &PGRepository{db: db}
}

const reportColumns = `id, to_char(report_date, 'YYYY-MM-DD'), report_id, storage_ref, summary_sha256, block_count, fetched_at, updated_at`

const upsertReportSQL = `INSERT INTO reports (id, report_date, report_id, storage_ref, summary_sha256, block_count)
	 VALUES ($1, $2, $3, $4, $5, $6)
	 ON CONFLICT (report_date) DO UPDATE
	   SET report_id = EXCLUDED.report_id,
	       storage_ref = EXCLUDED.storage_ref,
	       summary_sha256 = EXCLUDED.summary_sha256,
	       block_count = EXCLUDED.block_count,
	       updated_at = now()
	 RETURNING ` + reportColumns

const selectReportByDateSQL = `SELECT ` + reportColumns + ` FROM reports WHERE report_date = $1`

const selectLatestReportSQL = `SELECT ` + reportColumns + ` FROM reports ORDER BY report_date DESC LIMIT 1`

const listReportsSQL = `SELECT ` + reportColumns + ` FROM reports ORDER BY report_date DESC LIMIT $1`

type scanner interface {
	Scan(dest ...any) error
}

func scanReport(s scanner) (*ReportRow, error) {
	r := &ReportRow{}
	err := s.Scan(&r.ID, &r.ReportDate, &r.ReportID, &r.StorageRef, &r.SummarySHA256, &r.BlockCount, &r.FetchedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRows
	}
	return r, err
}

// Upsert inserts row, or updates the existing row for the same report date.
// The returned row carries the id that is actually stored.
func (p *PGRepository) Upsert(ctx context.Context, row *ReportRow) (*ReportRow, error) {
	r, err := scanReport(p.db.QueryRowContext(ctx, upsertReportSQL,
		row.ID, row.ReportDate, row.ReportID, row.StorageRef, row.SummarySHA256, row.BlockCount,
	))
	if err != nil {
		return nil, fmt.Errorf("upsert report %s: %w", row.ReportDate, err)
	}
	return r, nil
}

// GetByDate looks up the report mirrored for date (YYYY-MM-DD).
func (p *PGRepository) GetByDate(ctx context.Context, date string) (*ReportRow, error) {
	r, err := scanReport(p.db.QueryRowContext(ctx, selectReportByDateSQL, date))
	if err != nil {
		return nil, fmt.Errorf("get report %s: %w", date, err)
	}
	return r, nil
}

// Latest returns the most recent mirrored report.
func (p *PGRepository) Latest(ctx context.Context) (*ReportRow, error) {
	r, err := scanReport(p.db.QueryRowContext(ctx, selectLatestReportSQL))
	if err != nil {
		return nil, fmt.Errorf("get latest report: %w", err)
	}
	return r, nil
}

// List returns up to limit reports, newest first.
func (p *PGRepository) List(ctx context.Context, limit int) ([]ReportRow, error) {
	rows, err := p.db.QueryContext(ctx, listReportsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var out []ReportRow
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}
