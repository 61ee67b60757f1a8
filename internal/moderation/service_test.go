package moderation

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"cardscout.app/showpipe/internal/db"
	"cardscout.app/showpipe/internal/normalize"
)

type memStore struct {
	pending map[int64]*db.PendingShowRecord
	shows   []db.ShowRecord
	nextID  int64
}

func newMemStore() *memStore {
	return &memStore{pending: make(map[int64]*db.PendingShowRecord), nextID: 1}
}

func (m *memStore) addPending(t *testing.T, candidate normalize.ShowCandidate, confidence *float64) int64 {
	t.Helper()

	payload, err := json.Marshal(candidate)
	if err != nil {
		t.Fatalf("marshal candidate: %v", err)
	}

	id := m.nextID
	m.nextID++
	m.pending[id] = &db.PendingShowRecord{
		PendingShowID:   id,
		Status:          db.StatusPending,
		Name:            candidate.Name,
		NormalizedJSON:  payload,
		ConfidenceScore: confidence,
		CreatedAt:       time.Now().UTC(),
		UpdatedAt:       time.Now().UTC(),
	}
	return id
}

func (m *memStore) ListPendingShows(_ context.Context, status string, limit, offset int) (int64, []db.PendingShowRecord, error) {
	var rows []db.PendingShowRecord
	for _, row := range m.pending {
		if row.Status == status {
			rows = append(rows, *row)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].PendingShowID < rows[j].PendingShowID
	})
	total := int64(len(rows))
	if offset >= len(rows) {
		return total, nil, nil
	}
	rows = rows[offset:]
	if limit < len(rows) {
		rows = rows[:limit]
	}
	return total, rows, nil
}

func (m *memStore) GetPendingShow(_ context.Context, id int64) (*db.PendingShowRecord, error) {
	row, ok := m.pending[id]
	if !ok {
		return nil, db.ErrNoRows
	}
	copied := *row
	return &copied, nil
}

func (m *memStore) UpdatePendingShowPayload(_ context.Context, id int64, normalizedJSON json.RawMessage, confidence *float64, adminNotes *string, now time.Time) (*db.PendingShowRecord, error) {
	row, ok := m.pending[id]
	if !ok || row.Status != db.StatusPending {
		return nil, db.ErrNoRows
	}
	row.NormalizedJSON = normalizedJSON
	if confidence != nil {
		row.ConfidenceScore = confidence
	}
	if adminNotes != nil {
		row.AdminNotes = adminNotes
	}
	row.UpdatedAt = now
	copied := *row
	return &copied, nil
}

func (m *memStore) UpdatePendingShowScore(_ context.Context, id int64, confidence float64, now time.Time) error {
	row, ok := m.pending[id]
	if !ok {
		return db.ErrNoRows
	}
	row.ConfidenceScore = &confidence
	row.UpdatedAt = now
	return nil
}

func (m *memStore) ListUnscoredPendingShows(_ context.Context, limit int) ([]db.PendingShowRecord, error) {
	var rows []db.PendingShowRecord
	for _, row := range m.pending {
		if row.Status == db.StatusPending && row.ConfidenceScore == nil {
			rows = append(rows, *row)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].PendingShowID < rows[j].PendingShowID
	})
	if limit < len(rows) {
		rows = rows[:limit]
	}
	return rows, nil
}

func (m *memStore) BeginTx(_ context.Context, _ db.TxOptions) (db.Tx, error) {
	return &memTx{}, nil
}

func (m *memStore) DeletePendingShowTx(_ context.Context, _ db.Tx, id int64) (*db.PendingShowRecord, error) {
	row, ok := m.pending[id]
	if !ok || row.Status != db.StatusPending {
		return nil, db.ErrNoRows
	}
	delete(m.pending, id)
	return row, nil
}

func (m *memStore) InsertShowTx(_ context.Context, _ db.Tx, params db.InsertShowParams) (*db.ShowRecord, error) {
	show := db.ShowRecord{
		ShowID:      int64(len(m.shows) + 1),
		Status:      db.StatusActive,
		Name:        params.Name,
		StartDate:   params.StartDate,
		EndDate:     params.EndDate,
		VenueName:   params.VenueName,
		Address:     params.Address,
		City:        params.City,
		State:       params.State,
		EntryFee:    params.EntryFee,
		Description: params.Description,
		URL:         params.URL,
		ContactInfo: params.ContactInfo,
		AdminNotes:  params.AdminNotes,
		ApprovedBy:  params.ApprovedBy,
		CreatedAt:   params.Now,
		UpdatedAt:   params.Now,
	}
	m.shows = append(m.shows, show)
	return &show, nil
}

type memTx struct{}

func (memTx) QueryRow(context.Context, string, ...any) *db.Row        { return &db.Row{} }
func (memTx) Query(context.Context, string, ...any) (*db.Rows, error) { return nil, db.ErrNoRows }
func (memTx) Exec(context.Context, string, ...any) (db.CommandTag, error) {
	return db.CommandTag{}, nil
}
func (memTx) Commit(context.Context) error   { return nil }
func (memTx) Rollback(context.Context) error { return nil }

func strPtr(v string) *string     { return &v }
func floatPtr(v float64) *float64 { return &v }

var admin = Actor{UserID: 1, Username: "admin", IsAdmin: true}
var viewer = Actor{UserID: 2, Username: "viewer", IsAdmin: false}

func sampleCandidate() normalize.ShowCandidate {
	return normalize.ShowCandidate{
		Name:      "Spring Card Expo",
		StartDate: strPtr("2026-06-14"),
		EndDate:   strPtr("2026-06-14"),
		City:      strPtr("Dayton"),
		State:     strPtr("OH"),
	}
}

func TestApprovePromotesAndRemovesPending(t *testing.T) {
	t.Parallel()

	st := newMemStore()
	id := st.addPending(t, sampleCandidate(), floatPtr(60))
	svc := NewService(st, zerolog.Nop())

	show, err := svc.Approve(context.Background(), admin, id, nil, strPtr("looks legit"))
	if err != nil {
		t.Fatalf("Approve() error = %v", err)
	}

	if show.Name != "Spring Card Expo" {
		t.Errorf("Name = %q, want %q", show.Name, "Spring Card Expo")
	}
	if show.Status != db.StatusActive {
		t.Errorf("Status = %q, want ACTIVE", show.Status)
	}
	if show.StartDate == nil || show.StartDate.Format("2006-01-02") != "2026-06-14" {
		t.Errorf("StartDate = %v, want 2026-06-14", show.StartDate)
	}
	if show.ApprovedBy == nil || *show.ApprovedBy != admin.UserID {
		t.Errorf("ApprovedBy = %v, want %d", show.ApprovedBy, admin.UserID)
	}
	if show.AdminNotes == nil || *show.AdminNotes != "looks legit" {
		t.Errorf("AdminNotes = %v, want note carried over", show.AdminNotes)
	}

	if _, ok := st.pending[id]; ok {
		t.Error("pending row survived approval")
	}
}

func TestApproveAppliesCorrections(t *testing.T) {
	t.Parallel()

	st := newMemStore()
	id := st.addPending(t, sampleCandidate(), floatPtr(60))
	svc := NewService(st, zerolog.Nop())

	corrections := &Corrections{
		Name:     strPtr("Spring Card Expo 2026"),
		EntryFee: floatPtr(5),
	}
	show, err := svc.Approve(context.Background(), admin, id, corrections, nil)
	if err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	if show.Name != "Spring Card Expo 2026" {
		t.Errorf("Name = %q, want corrected name", show.Name)
	}
	if show.EntryFee == nil || *show.EntryFee != 5 {
		t.Errorf("EntryFee = %v, want 5", show.EntryFee)
	}
	if show.City == nil || *show.City != "Dayton" {
		t.Errorf("City = %v, want stored value preserved", show.City)
	}
}

func TestApproveTwiceSecondLoses(t *testing.T) {
	t.Parallel()

	st := newMemStore()
	id := st.addPending(t, sampleCandidate(), floatPtr(60))
	svc := NewService(st, zerolog.Nop())

	if _, err := svc.Approve(context.Background(), admin, id, nil, nil); err != nil {
		t.Fatalf("first Approve() error = %v", err)
	}
	if _, err := svc.Approve(context.Background(), admin, id, nil, nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second Approve() error = %v, want ErrNotFound", err)
	}
	if len(st.shows) != 1 {
		t.Errorf("shows = %d, want exactly one", len(st.shows))
	}
}

func TestModerationRequiresAdmin(t *testing.T) {
	t.Parallel()

	st := newMemStore()
	id := st.addPending(t, sampleCandidate(), floatPtr(60))
	svc := NewService(st, zerolog.Nop())

	if _, err := svc.Approve(context.Background(), viewer, id, nil, nil); !errors.Is(err, ErrForbidden) {
		t.Errorf("Approve() error = %v, want ErrForbidden", err)
	}
	if err := svc.Reject(context.Background(), viewer, id, nil); !errors.Is(err, ErrForbidden) {
		t.Errorf("Reject() error = %v, want ErrForbidden", err)
	}
	if _, err := svc.Edit(context.Background(), viewer, id, Corrections{}, nil); !errors.Is(err, ErrForbidden) {
		t.Errorf("Edit() error = %v, want ErrForbidden", err)
	}

	if _, ok := st.pending[id]; !ok {
		t.Error("pending row was touched by a non-admin")
	}
}

func TestRejectRemovesPending(t *testing.T) {
	t.Parallel()

	st := newMemStore()
	id := st.addPending(t, sampleCandidate(), floatPtr(60))
	svc := NewService(st, zerolog.Nop())

	if err := svc.Reject(context.Background(), admin, id, strPtr("duplicate listing")); err != nil {
		t.Fatalf("Reject() error = %v", err)
	}
	if _, ok := st.pending[id]; ok {
		t.Error("pending row survived rejection")
	}
	if len(st.shows) != 0 {
		t.Error("rejection must not create a show")
	}

	if err := svc.Reject(context.Background(), admin, id, nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Reject() error = %v, want ErrNotFound", err)
	}
}

func TestEditKeepsPendingAndRescores(t *testing.T) {
	t.Parallel()

	st := newMemStore()
	id := st.addPending(t, sampleCandidate(), floatPtr(10))
	svc := NewService(st, zerolog.Nop())

	corrections := Corrections{
		Description: strPtr("Over 80 dealer tables of vintage and modern sports cards plus on-site grading."),
		URL:         strPtr("https://springcardexpo.example.com"),
	}
	updated, err := svc.Edit(context.Background(), admin, id, corrections, strPtr("filled in details"))
	if err != nil {
		t.Fatalf("Edit() error = %v", err)
	}

	if updated.Status != db.StatusPending {
		t.Errorf("Status = %q, want PENDING", updated.Status)
	}
	if updated.ConfidenceScore == nil || *updated.ConfidenceScore <= 10 {
		t.Errorf("ConfidenceScore = %v, want rescored above 10", updated.ConfidenceScore)
	}

	var candidate normalize.ShowCandidate
	if err := json.Unmarshal(updated.NormalizedJSON, &candidate); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if candidate.Description == nil {
		t.Fatal("Description was not applied")
	}
	if candidate.Name != "Spring Card Expo" {
		t.Errorf("Name = %q, want untouched fields preserved", candidate.Name)
	}
}

func TestEditEndBeforeStartCollapses(t *testing.T) {
	t.Parallel()

	st := newMemStore()
	id := st.addPending(t, sampleCandidate(), floatPtr(50))
	svc := NewService(st, zerolog.Nop())

	updated, err := svc.Edit(context.Background(), admin, id, Corrections{EndDate: strPtr("2026-06-01")}, nil)
	if err != nil {
		t.Fatalf("Edit() error = %v", err)
	}

	var candidate normalize.ShowCandidate
	if err := json.Unmarshal(updated.NormalizedJSON, &candidate); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if candidate.EndDate == nil || *candidate.EndDate != "2026-06-14" {
		t.Errorf("EndDate = %v, want collapsed to start date", candidate.EndDate)
	}
}

func TestRescoreFillsMissingScores(t *testing.T) {
	t.Parallel()

	st := newMemStore()
	unscored := st.addPending(t, sampleCandidate(), nil)
	scored := st.addPending(t, sampleCandidate(), floatPtr(55))
	svc := NewService(st, zerolog.Nop())

	count, err := svc.Rescore(context.Background(), 10, true)
	if err != nil {
		t.Fatalf("Rescore() error = %v", err)
	}
	if count != 1 {
		t.Errorf("Rescore() = %d, want 1", count)
	}
	if st.pending[unscored].ConfidenceScore == nil {
		t.Error("unscored row was not scored")
	}
	if *st.pending[scored].ConfidenceScore != 55 {
		t.Error("already-scored row must not change in missing-only mode")
	}
}

func TestListClampsLimit(t *testing.T) {
	t.Parallel()

	st := newMemStore()
	for i := 0; i < 5; i++ {
		st.addPending(t, sampleCandidate(), floatPtr(float64(i)))
	}
	svc := NewService(st, zerolog.Nop())

	total, rows, err := svc.List(context.Background(), "", 2, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 5 {
		t.Errorf("total = %d, want 5", total)
	}
	if len(rows) != 2 {
		t.Errorf("rows = %d, want 2", len(rows))
	}
}
