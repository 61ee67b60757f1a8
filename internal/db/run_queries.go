package db

import (
	"context"
	"fmt"
	"time"
)

// Crawl run statuses.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// CrawlRunRecord is the job-log row shape returned to callers.
type CrawlRunRecord struct {
	RunID          int64      `json:"run_id"`
	RunUUID        string     `json:"run_uuid"`
	Status         string     `json:"status"`
	SourcesSampled int        `json:"sources_sampled"`
	Processed      int        `json:"processed"`
	Errors         int        `json:"errors"`
	ErrorMessage   *string    `json:"error_message,omitempty"`
	StartedAt      time.Time  `json:"started_at"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
}

const crawlRunColumns = `
	run_id,
	run_uuid::text,
	status,
	sources_sampled,
	processed,
	errors,
	error_message,
	started_at,
	finished_at
`

// InsertCrawlRun records the start of a batch run.
func (p *Pool) InsertCrawlRun(ctx context.Context, sourcesSampled int, startedAt time.Time) (int64, error) {
	const q = `
INSERT INTO shows.crawl_runs (status, sources_sampled, started_at)
VALUES ('running', $1, $2)
RETURNING run_id
`

	var id int64
	if err := p.QueryRow(ctx, q, sourcesSampled, startedAt.UTC()).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert crawl run: %w", err)
	}
	return id, nil
}

// CompleteCrawlRun closes a run with its final counters.
func (p *Pool) CompleteCrawlRun(ctx context.Context, runID int64, processed, errCount int, finishedAt time.Time) error {
	const q = `
UPDATE shows.crawl_runs
SET status = 'completed', processed = $2, errors = $3, finished_at = $4
WHERE run_id = $1
`

	tag, err := p.Exec(ctx, q, runID, processed, errCount, finishedAt.UTC())
	if err != nil {
		return fmt.Errorf("complete crawl run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoRows
	}
	return nil
}

// FailCrawlRun closes a run that aborted before the batch finished.
func (p *Pool) FailCrawlRun(ctx context.Context, runID int64, message string, finishedAt time.Time) error {
	const q = `
UPDATE shows.crawl_runs
SET status = 'failed', error_message = $2, finished_at = $3
WHERE run_id = $1
`

	tag, err := p.Exec(ctx, q, runID, normalizeNullableString(message), finishedAt.UTC())
	if err != nil {
		return fmt.Errorf("fail crawl run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoRows
	}
	return nil
}

// ListRecentCrawlRuns returns the newest runs first.
func (p *Pool) ListRecentCrawlRuns(ctx context.Context, limit int) ([]CrawlRunRecord, error) {
	q := `
SELECT` + crawlRunColumns + `
FROM shows.crawl_runs
ORDER BY started_at DESC, run_id DESC
LIMIT $1
`

	rows, err := p.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("query crawl runs: %w", err)
	}
	defer rows.Close()

	items := make([]CrawlRunRecord, 0, limit)
	for rows.Next() {
		var row CrawlRunRecord
		if err := rows.Scan(
			&row.RunID,
			&row.RunUUID,
			&row.Status,
			&row.SourcesSampled,
			&row.Processed,
			&row.Errors,
			&row.ErrorMessage,
			&row.StartedAt,
			&row.FinishedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate crawl runs: %w", err)
	}
	return items, nil
}
