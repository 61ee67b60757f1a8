package crawl

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"cardscout.app/showpipe/internal/db"
	"cardscout.app/showpipe/internal/extract"
	"cardscout.app/showpipe/internal/registry"
)

type fakeFetcher struct {
	pages map[string]string
	fails map[string]error
}

func (f *fakeFetcher) FetchText(_ context.Context, sourceAddress string) (string, error) {
	if err, ok := f.fails[sourceAddress]; ok {
		return "", err
	}
	text, ok := f.pages[sourceAddress]
	if !ok {
		return "", fmt.Errorf("no page for %s", sourceAddress)
	}
	return text, nil
}

type fakeExtractor struct {
	results map[string]extract.Result
}

func (f *fakeExtractor) Extract(_ context.Context, sourceAddress, _ string) (extract.Result, error) {
	result, ok := f.results[sourceAddress]
	if !ok {
		return extract.Result{}, fmt.Errorf("no extraction for %s", sourceAddress)
	}
	return result, nil
}

type memStore struct {
	upserts    []db.UpsertPendingShowParams
	upsertFail map[string]error
	runs       int
	completed  bool
	failed     bool
}

func (m *memStore) UpsertPendingShow(_ context.Context, params db.UpsertPendingShowParams) (int64, bool, error) {
	if err, ok := m.upsertFail[params.Name]; ok {
		return 0, false, err
	}
	m.upserts = append(m.upserts, params)
	return int64(len(m.upserts)), true, nil
}

func (m *memStore) InsertCrawlRun(_ context.Context, _ int, _ time.Time) (int64, error) {
	m.runs++
	return int64(m.runs), nil
}

func (m *memStore) CompleteCrawlRun(_ context.Context, _ int64, _, _ int, _ time.Time) error {
	m.completed = true
	return nil
}

func (m *memStore) FailCrawlRun(_ context.Context, _ int64, _ string, _ time.Time) error {
	m.failed = true
	return nil
}

func testRegistry(t *testing.T, addresses ...string) *registry.Registry {
	t.Helper()

	entries := make([]string, 0, len(addresses))
	for _, address := range addresses {
		entries = append(entries, fmt.Sprintf(`{"address": %q}`, address))
	}
	payload := fmt.Sprintf(`{"sources": [%s]}`, strings.Join(entries, ","))

	reg, err := registry.Parse([]byte(payload))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return reg
}

func TestRunIsolatesSourceFailures(t *testing.T) {
	t.Parallel()

	good := "https://shows.example.com/calendar"
	bad := "https://broken.example.com/list"

	fetcher := &fakeFetcher{
		pages: map[string]string{good: "Spring Card Expo, June 14th, Dayton OH"},
		fails: map[string]error{bad: fmt.Errorf("connection refused")},
	}
	extractor := &fakeExtractor{
		results: map[string]extract.Result{
			good: {Candidates: []extract.Candidate{
				{Name: "Spring Card Expo", StartDate: "2026-06-14", City: "Dayton", State: "OH"},
			}},
		},
	}
	st := &memStore{}

	svc := NewService(testRegistry(t, good, bad), fetcher, extractor, st, zerolog.Nop(), 10)

	summary, err := svc.Run(context.Background(), 0)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if summary.SourcesSampled != 2 {
		t.Fatalf("SourcesSampled = %d, want 2", summary.SourcesSampled)
	}
	if summary.Processed != 1 {
		t.Errorf("Processed = %d, want 1", summary.Processed)
	}
	if summary.Errors != 1 {
		t.Errorf("Errors = %d, want 1", summary.Errors)
	}
	if summary.Upserted != 1 {
		t.Errorf("Upserted = %d, want 1", summary.Upserted)
	}
	if !st.completed {
		t.Error("run was not finalized")
	}

	if len(st.upserts) != 1 {
		t.Fatalf("upserts = %d, want 1", len(st.upserts))
	}
	upsert := st.upserts[0]
	if upsert.Name != "Spring Card Expo" {
		t.Errorf("Name = %q, want %q", upsert.Name, "Spring Card Expo")
	}
	if upsert.StartDate == nil || *upsert.StartDate != "2026-06-14" {
		t.Errorf("StartDate = %v, want 2026-06-14", upsert.StartDate)
	}
	if upsert.Confidence == nil || *upsert.Confidence <= 0 {
		t.Errorf("Confidence = %v, want positive", upsert.Confidence)
	}
}

func TestRunSkipsCandidatesWithoutIdentity(t *testing.T) {
	t.Parallel()

	source := "https://shows.example.com/events"

	fetcher := &fakeFetcher{pages: map[string]string{source: "some page"}}
	extractor := &fakeExtractor{
		results: map[string]extract.Result{
			source: {Candidates: []extract.Candidate{
				{City: "Dayton", State: "OH"},
				{Name: "Winter Sports Card Show"},
			}},
		},
	}
	st := &memStore{}

	svc := NewService(testRegistry(t, source), fetcher, extractor, st, zerolog.Nop(), 10)

	summary, err := svc.Run(context.Background(), 0)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if summary.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", summary.Skipped)
	}
	if summary.Upserted != 1 {
		t.Errorf("Upserted = %d, want 1", summary.Upserted)
	}
	if len(st.upserts) != 1 || st.upserts[0].Name != "Winter Sports Card Show" {
		t.Fatalf("unexpected upserts: %+v", st.upserts)
	}
}

func TestRunHonorsLimitOverride(t *testing.T) {
	t.Parallel()

	addresses := []string{
		"https://a.example.com/", "https://b.example.com/", "https://c.example.com/",
	}

	fetcher := &fakeFetcher{pages: map[string]string{}}
	for _, address := range addresses {
		fetcher.pages[address] = "page"
	}
	extractor := &fakeExtractor{results: map[string]extract.Result{}}
	for _, address := range addresses {
		extractor.results[address] = extract.Result{}
	}
	st := &memStore{}

	svc := NewService(testRegistry(t, addresses...), fetcher, extractor, st, zerolog.Nop(), 10)

	summary, err := svc.Run(context.Background(), 2)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.SourcesSampled != 2 {
		t.Errorf("SourcesSampled = %d, want 2", summary.SourcesSampled)
	}
}

func TestRunUpsertFailureKeepsRemainingCandidates(t *testing.T) {
	t.Parallel()

	source := "https://shows.example.com/regional"

	fetcher := &fakeFetcher{pages: map[string]string{source: "page"}}
	extractor := &fakeExtractor{
		results: map[string]extract.Result{
			source: {Candidates: []extract.Candidate{
				{Name: "First Show", StartDate: "2026-06-14"},
				{Name: "Broken Show", StartDate: "2026-06-21"},
				{Name: "Third Show", StartDate: "2026-06-28"},
			}},
		},
	}
	st := &memStore{
		upsertFail: map[string]error{"Broken Show": fmt.Errorf("deadlock detected")},
	}

	svc := NewService(testRegistry(t, source), fetcher, extractor, st, zerolog.Nop(), 10)

	summary, err := svc.Run(context.Background(), 0)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if summary.Upserted != 2 {
		t.Errorf("Upserted = %d, want 2", summary.Upserted)
	}
	if summary.Errors != 1 {
		t.Errorf("Errors = %d, want 1", summary.Errors)
	}
	if summary.Processed != 1 {
		t.Errorf("Processed = %d, want 1", summary.Processed)
	}
	if len(st.upserts) != 2 {
		t.Fatalf("upserts = %d, want 2", len(st.upserts))
	}
	if st.upserts[0].Name != "First Show" || st.upserts[1].Name != "Third Show" {
		t.Fatalf("unexpected upserts: %+v", st.upserts)
	}
}

func TestRunMalformedExtractionCountsAsError(t *testing.T) {
	t.Parallel()

	source := "https://shows.example.com/garbled"

	fetcher := &fakeFetcher{pages: map[string]string{source: "page"}}
	extractor := &fakeExtractor{
		results: map[string]extract.Result{
			source: {Malformed: true, RawText: "not json"},
		},
	}
	st := &memStore{}

	svc := NewService(testRegistry(t, source), fetcher, extractor, st, zerolog.Nop(), 10)

	summary, err := svc.Run(context.Background(), 0)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Errors != 1 {
		t.Errorf("Errors = %d, want 1", summary.Errors)
	}
	if len(st.upserts) != 0 {
		t.Errorf("upserts = %d, want 0", len(st.upserts))
	}
}

func TestCleanTextCollapsesWhitespace(t *testing.T) {
	t.Parallel()

	raw := "  Spring   Card Expo \r\n\r\n  June 14th \r  Dayton, OH  "
	want := "Spring Card Expo\n\nJune 14th\n\nDayton, OH"
	if got := CleanText(raw); got != want {
		t.Errorf("CleanText() = %q, want %q", got, want)
	}
}
