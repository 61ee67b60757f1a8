package db

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// PendingShowRecord is the moderation-queue row shape returned to callers.
type PendingShowRecord struct {
	PendingShowID   int64           `json:"pending_show_id"`
	PendingShowUUID string          `json:"pending_show_uuid"`
	Status          string          `json:"status"`
	Name            string          `json:"name"`
	StartDate       *time.Time      `json:"start_date,omitempty"`
	City            *string         `json:"city,omitempty"`
	SourceAddress   *string         `json:"source_address,omitempty"`
	RawPayload      json.RawMessage `json:"raw_payload,omitempty"`
	NormalizedJSON  json.RawMessage `json:"normalized_json,omitempty"`
	ConfidenceScore *float64        `json:"confidence_score,omitempty"`
	AdminNotes      *string         `json:"admin_notes,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type UpsertPendingShowParams struct {
	Name           string
	StartDate      *string
	City           *string
	SourceAddress  string
	RawPayload     json.RawMessage
	NormalizedJSON json.RawMessage
	Confidence     *float64
	Now            time.Time
}

const pendingShowColumns = `
	pending_show_id,
	pending_show_uuid::text,
	status,
	name,
	start_date,
	city,
	source_address,
	raw_payload,
	normalized_json,
	confidence_score,
	admin_notes,
	created_at,
	updated_at
`

// UpsertPendingShow inserts a normalized candidate or refreshes the row
// sharing its natural key. Conflict resolution on the unique index is the
// only concurrency control; overlapping runs converge on one row per event.
func (p *Pool) UpsertPendingShow(ctx context.Context, params UpsertPendingShowParams) (int64, bool, error) {
	const q = `
INSERT INTO shows.pending_shows (
	status,
	name,
	start_date,
	city,
	source_address,
	raw_payload,
	normalized_json,
	confidence_score,
	created_at,
	updated_at
)
VALUES ('PENDING', $1, $2::date, $3, $4, $5::jsonb, $6::jsonb, $7, $8, $8)
ON CONFLICT (lower(name), start_date, lower(coalesce(city, '')))
DO UPDATE SET
	source_address = EXCLUDED.source_address,
	raw_payload = EXCLUDED.raw_payload,
	normalized_json = EXCLUDED.normalized_json,
	confidence_score = EXCLUDED.confidence_score,
	updated_at = EXCLUDED.updated_at
RETURNING pending_show_id, (xmax = 0) AS inserted
`

	sourceAddress := normalizeNullableString(params.SourceAddress)

	var (
		id       int64
		inserted bool
	)
	if err := p.QueryRow(
		ctx,
		q,
		strings.TrimSpace(params.Name),
		params.StartDate,
		params.City,
		sourceAddress,
		string(params.RawPayload),
		nullableJSONText(params.NormalizedJSON),
		params.Confidence,
		params.Now.UTC(),
	).Scan(&id, &inserted); err != nil {
		return 0, false, fmt.Errorf("upsert pending show: %w", err)
	}
	return id, inserted, nil
}

// ListPendingShows pages the moderation queue ordered by confidence then
// recency, so the most trustworthy unreviewed candidates surface first.
func (p *Pool) ListPendingShows(ctx context.Context, status string, limit, offset int) (int64, []PendingShowRecord, error) {
	status = strings.ToUpper(strings.TrimSpace(status))
	if status == "" {
		status = StatusPending
	}

	const countQuery = `
SELECT COUNT(*)
FROM shows.pending_shows
WHERE status = $1
`
	var total int64
	if err := p.QueryRow(ctx, countQuery, status).Scan(&total); err != nil {
		return 0, nil, fmt.Errorf("count pending shows: %w", err)
	}

	q := `
SELECT` + pendingShowColumns + `
FROM shows.pending_shows
WHERE status = $1
ORDER BY confidence_score DESC NULLS LAST, created_at DESC, pending_show_id DESC
LIMIT $2
OFFSET $3
`

	rows, err := p.Query(ctx, q, status, limit, offset)
	if err != nil {
		return 0, nil, fmt.Errorf("query pending shows: %w", err)
	}
	defer rows.Close()

	items := make([]PendingShowRecord, 0, limit)
	for rows.Next() {
		row, err := scanPendingShow(rows)
		if err != nil {
			return 0, nil, err
		}
		items = append(items, *row)
	}
	if err := rows.Err(); err != nil {
		return 0, nil, fmt.Errorf("iterate pending shows: %w", err)
	}

	return total, items, nil
}

func (p *Pool) GetPendingShow(ctx context.Context, id int64) (*PendingShowRecord, error) {
	q := `
SELECT` + pendingShowColumns + `
FROM shows.pending_shows
WHERE pending_show_id = $1
LIMIT 1
`

	row, err := scanPendingShow(p.QueryRow(ctx, q, id))
	if err != nil {
		if IsNoRows(err) {
			return nil, ErrNoRows
		}
		return nil, fmt.Errorf("query pending show: %w", err)
	}
	return row, nil
}

// UpdatePendingShowPayload replaces the normalized payload, confidence
// score, and optionally the admin notes of a row that is still PENDING.
func (p *Pool) UpdatePendingShowPayload(ctx context.Context, id int64, normalizedJSON json.RawMessage, confidence *float64, adminNotes *string, now time.Time) (*PendingShowRecord, error) {
	q := `
UPDATE shows.pending_shows
SET
	normalized_json = $2::jsonb,
	confidence_score = COALESCE($3, confidence_score),
	admin_notes = COALESCE($4, admin_notes),
	updated_at = $5
WHERE pending_show_id = $1
  AND status = 'PENDING'
RETURNING` + pendingShowColumns

	row, err := scanPendingShow(p.QueryRow(ctx, q, id, string(normalizedJSON), confidence, adminNotes, now.UTC()))
	if err != nil {
		if IsNoRows(err) {
			return nil, ErrNoRows
		}
		return nil, fmt.Errorf("update pending show payload: %w", err)
	}
	return row, nil
}

func (p *Pool) UpdatePendingShowScore(ctx context.Context, id int64, score float64, now time.Time) error {
	const q = `
UPDATE shows.pending_shows
SET confidence_score = $2, updated_at = $3
WHERE pending_show_id = $1
`

	tag, err := p.Exec(ctx, q, id, score, now.UTC())
	if err != nil {
		return fmt.Errorf("update pending show score: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoRows
	}
	return nil
}

// ListUnscoredPendingShows returns PENDING rows that still lack a
// confidence score, oldest first.
func (p *Pool) ListUnscoredPendingShows(ctx context.Context, limit int) ([]PendingShowRecord, error) {
	q := `
SELECT` + pendingShowColumns + `
FROM shows.pending_shows
WHERE status = 'PENDING'
  AND confidence_score IS NULL
ORDER BY created_at ASC
LIMIT $1
`

	rows, err := p.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("query unscored pending shows: %w", err)
	}
	defer rows.Close()

	items := make([]PendingShowRecord, 0, limit)
	for rows.Next() {
		row, err := scanPendingShow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate unscored pending shows: %w", err)
	}
	return items, nil
}

// DeletePendingShowTx removes a PENDING row inside a transaction and
// returns it. Concurrent transitions race on the conditional delete; the
// loser sees ErrNoRows.
func (p *Pool) DeletePendingShowTx(ctx context.Context, tx Tx, id int64) (*PendingShowRecord, error) {
	q := `
DELETE FROM shows.pending_shows
WHERE pending_show_id = $1
  AND status = 'PENDING'
RETURNING` + pendingShowColumns

	row, err := scanPendingShow(tx.QueryRow(ctx, q, id))
	if err != nil {
		if IsNoRows(err) {
			return nil, ErrNoRows
		}
		return nil, fmt.Errorf("delete pending show: %w", err)
	}
	return row, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPendingShow(scanner rowScanner) (*PendingShowRecord, error) {
	var row PendingShowRecord
	if err := scanner.Scan(
		&row.PendingShowID,
		&row.PendingShowUUID,
		&row.Status,
		&row.Name,
		&row.StartDate,
		&row.City,
		&row.SourceAddress,
		&row.RawPayload,
		&row.NormalizedJSON,
		&row.ConfidenceScore,
		&row.AdminNotes,
		&row.CreatedAt,
		&row.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &row, nil
}

func normalizeNullableString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func nullableJSONText(raw json.RawMessage) *string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil
	}
	return &trimmed
}
