package db

import (
	"context"
	"fmt"
	"time"
)

// ShowRecord is the approved-catalog row shape returned to callers.
type ShowRecord struct {
	ShowID      int64      `json:"show_id"`
	ShowUUID    string     `json:"show_uuid"`
	Status      string     `json:"status"`
	Name        string     `json:"name"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	VenueName   *string    `json:"venue_name,omitempty"`
	Address     *string    `json:"address,omitempty"`
	City        *string    `json:"city,omitempty"`
	State       *string    `json:"state,omitempty"`
	EntryFee    *float64   `json:"entry_fee,omitempty"`
	Description *string    `json:"description,omitempty"`
	URL         *string    `json:"url,omitempty"`
	ContactInfo *string    `json:"contact_info,omitempty"`
	AdminNotes  *string    `json:"admin_notes,omitempty"`
	ApprovedBy  *int64     `json:"approved_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type InsertShowParams struct {
	Name        string
	StartDate   *time.Time
	EndDate     *time.Time
	VenueName   *string
	Address     *string
	City        *string
	State       *string
	EntryFee    *float64
	Description *string
	URL         *string
	ContactInfo *string
	AdminNotes  *string
	ApprovedBy  *int64
	Now         time.Time
}

const showColumns = `
	show_id,
	show_uuid::text,
	status,
	name,
	start_date,
	end_date,
	venue_name,
	address,
	city,
	state,
	entry_fee,
	description,
	url,
	contact_info,
	admin_notes,
	approved_by,
	created_at,
	updated_at
`

// InsertShowTx writes an approved show inside the transaction that removes
// its pending counterpart, so approval is all-or-nothing.
func (p *Pool) InsertShowTx(ctx context.Context, tx Tx, params InsertShowParams) (*ShowRecord, error) {
	q := `
INSERT INTO shows.shows (
	status,
	name,
	start_date,
	end_date,
	venue_name,
	address,
	city,
	state,
	entry_fee,
	description,
	url,
	contact_info,
	admin_notes,
	approved_by,
	created_at,
	updated_at
)
VALUES ('ACTIVE', $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)
RETURNING` + showColumns

	row, err := scanShow(tx.QueryRow(
		ctx,
		q,
		params.Name,
		params.StartDate,
		params.EndDate,
		params.VenueName,
		params.Address,
		params.City,
		params.State,
		params.EntryFee,
		params.Description,
		params.URL,
		params.ContactInfo,
		params.AdminNotes,
		params.ApprovedBy,
		params.Now.UTC(),
	))
	if err != nil {
		return nil, fmt.Errorf("insert show: %w", err)
	}
	return row, nil
}

func (p *Pool) GetShow(ctx context.Context, id int64) (*ShowRecord, error) {
	q := `
SELECT` + showColumns + `
FROM shows.shows
WHERE show_id = $1
LIMIT 1
`

	row, err := scanShow(p.QueryRow(ctx, q, id))
	if err != nil {
		if IsNoRows(err) {
			return nil, ErrNoRows
		}
		return nil, fmt.Errorf("query show: %w", err)
	}
	return row, nil
}

// ListUpcomingShows returns active shows starting on or after the given
// day, soonest first. Shows without a start date sort last.
func (p *Pool) ListUpcomingShows(ctx context.Context, from time.Time, limit, offset int) ([]ShowRecord, error) {
	q := `
SELECT` + showColumns + `
FROM shows.shows
WHERE status = 'ACTIVE'
  AND (start_date IS NULL OR start_date >= $1::date)
ORDER BY start_date ASC NULLS LAST, name ASC
LIMIT $2
OFFSET $3
`

	rows, err := p.Query(ctx, q, from.UTC().Format("2006-01-02"), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query upcoming shows: %w", err)
	}
	defer rows.Close()

	items := make([]ShowRecord, 0, limit)
	for rows.Next() {
		row, err := scanShow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate upcoming shows: %w", err)
	}
	return items, nil
}

// PipelineStats summarizes the queue and catalog for the stats endpoint.
type PipelineStats struct {
	PendingCount  int64      `json:"pending_count"`
	ActiveCount   int64      `json:"active_count"`
	LastRunAt     *time.Time `json:"last_run_at,omitempty"`
	LastRunStatus *string    `json:"last_run_status,omitempty"`
	RunsLast24h   int64      `json:"runs_last_24h"`
	ErrorsLast24h int64      `json:"errors_last_24h"`
	AverageScore  *float64   `json:"average_confidence,omitempty"`
	UnscoredCount int64      `json:"unscored_count"`
}

func (p *Pool) GetPipelineStats(ctx context.Context, now time.Time) (*PipelineStats, error) {
	const q = `
SELECT
	(SELECT COUNT(*) FROM shows.pending_shows WHERE status = 'PENDING'),
	(SELECT COUNT(*) FROM shows.shows WHERE status = 'ACTIVE'),
	(SELECT started_at FROM shows.crawl_runs ORDER BY started_at DESC LIMIT 1),
	(SELECT status FROM shows.crawl_runs ORDER BY started_at DESC LIMIT 1),
	(SELECT COUNT(*) FROM shows.crawl_runs WHERE started_at >= $1),
	(SELECT COALESCE(SUM(errors), 0) FROM shows.crawl_runs WHERE started_at >= $1),
	(SELECT AVG(confidence_score) FROM shows.pending_shows WHERE status = 'PENDING'),
	(SELECT COUNT(*) FROM shows.pending_shows WHERE status = 'PENDING' AND confidence_score IS NULL)
`

	since := now.UTC().Add(-24 * time.Hour)

	var stats PipelineStats
	if err := p.QueryRow(ctx, q, since).Scan(
		&stats.PendingCount,
		&stats.ActiveCount,
		&stats.LastRunAt,
		&stats.LastRunStatus,
		&stats.RunsLast24h,
		&stats.ErrorsLast24h,
		&stats.AverageScore,
		&stats.UnscoredCount,
	); err != nil {
		return nil, fmt.Errorf("query pipeline stats: %w", err)
	}
	return &stats, nil
}

func scanShow(scanner rowScanner) (*ShowRecord, error) {
	var row ShowRecord
	if err := scanner.Scan(
		&row.ShowID,
		&row.ShowUUID,
		&row.Status,
		&row.Name,
		&row.StartDate,
		&row.EndDate,
		&row.VenueName,
		&row.Address,
		&row.City,
		&row.State,
		&row.EntryFee,
		&row.Description,
		&row.URL,
		&row.ContactInfo,
		&row.AdminNotes,
		&row.ApprovedBy,
		&row.CreatedAt,
		&row.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &row, nil
}
