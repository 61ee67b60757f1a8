package moderation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"cardscout.app/showpipe/internal/db"
	"cardscout.app/showpipe/internal/globaltime"
	"cardscout.app/showpipe/internal/normalize"
	"cardscout.app/showpipe/internal/score"
)

var (
	// ErrNotFound covers both rows that never existed and rows another
	// reviewer transitioned first. Callers cannot tell the two apart.
	ErrNotFound = errors.New("pending show not found")

	// ErrForbidden means the actor lacks moderation rights.
	ErrForbidden = errors.New("moderation requires an admin account")
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// Actor identifies who is performing a moderation action.
type Actor struct {
	UserID   int64
	Username string
	IsAdmin  bool
}

// Corrections is a reviewer's partial override of a normalized candidate.
// Nil fields keep the stored value; empty strings clear it.
type Corrections struct {
	Name        *string  `json:"name,omitempty"`
	StartDate   *string  `json:"startDate,omitempty"`
	EndDate     *string  `json:"endDate,omitempty"`
	VenueName   *string  `json:"venueName,omitempty"`
	Address     *string  `json:"address,omitempty"`
	City        *string  `json:"city,omitempty"`
	State       *string  `json:"state,omitempty"`
	EntryFee    *float64 `json:"entryFee,omitempty"`
	Description *string  `json:"description,omitempty"`
	URL         *string  `json:"url,omitempty"`
	ContactInfo *string  `json:"contactInfo,omitempty"`
}

type store interface {
	ListPendingShows(ctx context.Context, status string, limit, offset int) (int64, []db.PendingShowRecord, error)
	GetPendingShow(ctx context.Context, id int64) (*db.PendingShowRecord, error)
	UpdatePendingShowPayload(ctx context.Context, id int64, normalizedJSON json.RawMessage, confidence *float64, adminNotes *string, now time.Time) (*db.PendingShowRecord, error)
	UpdatePendingShowScore(ctx context.Context, id int64, confidence float64, now time.Time) error
	ListUnscoredPendingShows(ctx context.Context, limit int) ([]db.PendingShowRecord, error)
	BeginTx(ctx context.Context, opts db.TxOptions) (db.Tx, error)
	DeletePendingShowTx(ctx context.Context, tx db.Tx, id int64) (*db.PendingShowRecord, error)
	InsertShowTx(ctx context.Context, tx db.Tx, params db.InsertShowParams) (*db.ShowRecord, error)
}

// Service owns the moderation state machine over the pending queue.
type Service struct {
	store  store
	logger zerolog.Logger
}

func NewService(st store, logger zerolog.Logger) *Service {
	return &Service{store: st, logger: logger}
}

// List pages the pending queue, highest confidence first. An empty status
// defaults to PENDING.
func (s *Service) List(ctx context.Context, status string, limit, offset int) (int64, []db.PendingShowRecord, error) {
	if status == "" {
		status = db.StatusPending
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.ListPendingShows(ctx, status, limit, offset)
}

func (s *Service) Get(ctx context.Context, id int64) (*db.PendingShowRecord, error) {
	row, err := s.store.GetPendingShow(ctx, id)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return row, nil
}

// Approve promotes a pending show into the approved catalog. The pending
// row is deleted and the canonical show inserted in one transaction, so a
// concurrent approve or reject of the same row loses with ErrNotFound.
func (s *Service) Approve(ctx context.Context, actor Actor, id int64, corrections *Corrections, notes *string) (*db.ShowRecord, error) {
	if !actor.IsAdmin {
		return nil, ErrForbidden
	}

	now := globaltime.Now()

	tx, err := s.store.BeginTx(ctx, db.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin approve transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	pending, err := s.store.DeletePendingShowTx(ctx, tx, id)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	candidate := candidateFromRecord(pending)
	applyCorrections(&candidate, corrections)

	if strings.TrimSpace(candidate.Name) == "" {
		return nil, fmt.Errorf("approved show requires a name")
	}

	approvedBy := actor.UserID
	show, err := s.store.InsertShowTx(ctx, tx, db.InsertShowParams{
		Name:        strings.TrimSpace(candidate.Name),
		StartDate:   candidate.StartDay(),
		EndDate:     dayFromISO(candidate.EndDate),
		VenueName:   candidate.VenueName,
		Address:     candidate.Address,
		City:        candidate.City,
		State:       candidate.State,
		EntryFee:    candidate.EntryFee,
		Description: candidate.Description,
		URL:         candidate.URL,
		ContactInfo: candidate.ContactInfo,
		AdminNotes:  mergeNotes(pending.AdminNotes, notes),
		ApprovedBy:  &approvedBy,
		Now:         now,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit approve transaction: %w", err)
	}

	s.logger.Info().
		Int64("pending_show_id", id).
		Int64("show_id", show.ShowID).
		Str("approved_by", actor.Username).
		Msg("pending show approved")

	return show, nil
}

// Reject removes a pending show from the queue.
func (s *Service) Reject(ctx context.Context, actor Actor, id int64, notes *string) error {
	if !actor.IsAdmin {
		return ErrForbidden
	}

	tx, err := s.store.BeginTx(ctx, db.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin reject transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	pending, err := s.store.DeletePendingShowTx(ctx, tx, id)
	if err != nil {
		if db.IsNoRows(err) {
			return ErrNotFound
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit reject transaction: %w", err)
	}

	event := s.logger.Info().
		Int64("pending_show_id", id).
		Str("name", pending.Name).
		Str("rejected_by", actor.Username)
	if notes != nil && strings.TrimSpace(*notes) != "" {
		event = event.Str("notes", strings.TrimSpace(*notes))
	}
	event.Msg("pending show rejected")

	return nil
}

// Edit applies reviewer corrections to a pending show and rescores it.
// The row stays PENDING.
func (s *Service) Edit(ctx context.Context, actor Actor, id int64, corrections Corrections, notes *string) (*db.PendingShowRecord, error) {
	if !actor.IsAdmin {
		return nil, ErrForbidden
	}

	pending, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if pending.Status != db.StatusPending {
		return nil, ErrNotFound
	}

	now := globaltime.Now()

	candidate := candidateFromRecord(pending)
	applyCorrections(&candidate, &corrections)
	candidate.NormalizedAt = now.UTC()

	confidence := score.Confidence(candidate)

	normalizedJSON, err := json.Marshal(candidate)
	if err != nil {
		return nil, fmt.Errorf("encode corrected payload: %w", err)
	}

	updated, err := s.store.UpdatePendingShowPayload(ctx, id, normalizedJSON, &confidence, mergeNotes(pending.AdminNotes, notes), now)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	s.logger.Info().
		Int64("pending_show_id", id).
		Str("edited_by", actor.Username).
		Float64("confidence", confidence).
		Msg("pending show edited")

	return updated, nil
}

// Rescore recomputes confidence for pending rows. With onlyMissing it
// touches only rows that never got a score, which is what the scheduled
// maintenance pass wants; a full rescore reapplies current weights to the
// head of the queue. Returns how many rows changed.
func (s *Service) Rescore(ctx context.Context, limit int, onlyMissing bool) (int, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	var (
		rows []db.PendingShowRecord
		err  error
	)
	if onlyMissing {
		rows, err = s.store.ListUnscoredPendingShows(ctx, limit)
	} else {
		_, rows, err = s.store.ListPendingShows(ctx, db.StatusPending, limit, 0)
	}
	if err != nil {
		return 0, err
	}

	now := globaltime.Now()

	scored := 0
	for _, row := range rows {
		candidate := candidateFromRecord(&row)
		confidence := score.Confidence(candidate)
		if row.ConfidenceScore != nil && *row.ConfidenceScore == confidence {
			continue
		}
		if err := s.store.UpdatePendingShowScore(ctx, row.PendingShowID, confidence, now); err != nil {
			if db.IsNoRows(err) {
				continue
			}
			return scored, err
		}
		scored++
	}
	return scored, nil
}

// candidateFromRecord recovers the typed candidate from a stored row,
// falling back to the indexed columns when the payload is missing.
func candidateFromRecord(record *db.PendingShowRecord) normalize.ShowCandidate {
	var candidate normalize.ShowCandidate
	if len(record.NormalizedJSON) > 0 {
		if err := json.Unmarshal(record.NormalizedJSON, &candidate); err == nil && candidate.Name != "" {
			return candidate
		}
	}

	candidate.Name = record.Name
	if record.StartDate != nil {
		iso := record.StartDate.Format("2006-01-02")
		candidate.StartDate = &iso
		candidate.EndDate = &iso
	}
	candidate.City = record.City
	return candidate
}

func applyCorrections(candidate *normalize.ShowCandidate, corrections *Corrections) {
	if corrections == nil {
		return
	}
	if corrections.Name != nil {
		candidate.Name = normalize.Text(*corrections.Name)
	}
	if corrections.StartDate != nil {
		candidate.StartDate = isoDayOrNil(*corrections.StartDate)
	}
	if corrections.EndDate != nil {
		candidate.EndDate = isoDayOrNil(*corrections.EndDate)
	}
	if corrections.VenueName != nil {
		candidate.VenueName = optional(normalize.Text(*corrections.VenueName))
	}
	if corrections.Address != nil {
		candidate.Address = optional(normalize.Text(*corrections.Address))
	}
	if corrections.City != nil {
		candidate.City = optional(normalize.Text(*corrections.City))
	}
	if corrections.State != nil {
		candidate.State = optional(normalize.State(*corrections.State))
	}
	if corrections.EntryFee != nil {
		candidate.EntryFee = corrections.EntryFee
	}
	if corrections.Description != nil {
		candidate.Description = optional(normalize.Text(*corrections.Description))
	}
	if corrections.URL != nil {
		candidate.URL = optional(strings.TrimSpace(*corrections.URL))
	}
	if corrections.ContactInfo != nil {
		candidate.ContactInfo = optional(normalize.Text(*corrections.ContactInfo))
	}

	// Keep the single-day invariant after date edits.
	start := candidate.StartDay()
	end := dayFromISO(candidate.EndDate)
	if start != nil && (end == nil || end.Before(*start)) {
		candidate.EndDate = candidate.StartDate
	}
	if start == nil {
		candidate.EndDate = nil
	}
}

func isoDayOrNil(raw string) *string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	if _, err := time.Parse("2006-01-02", trimmed); err != nil {
		return nil
	}
	return &trimmed
}

func dayFromISO(iso *string) *time.Time {
	if iso == nil {
		return nil
	}
	day, err := time.Parse("2006-01-02", *iso)
	if err != nil {
		return nil
	}
	utc := day.UTC()
	return &utc
}

func mergeNotes(existing, added *string) *string {
	var parts []string
	if existing != nil && strings.TrimSpace(*existing) != "" {
		parts = append(parts, strings.TrimSpace(*existing))
	}
	if added != nil && strings.TrimSpace(*added) != "" {
		parts = append(parts, strings.TrimSpace(*added))
	}
	if len(parts) == 0 {
		return nil
	}
	merged := strings.Join(parts, "\n")
	return &merged
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
