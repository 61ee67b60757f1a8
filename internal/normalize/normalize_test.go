package normalize

import (
	"testing"
	"time"

	"cardscout.app/showpipe/internal/extract"
)

var testNow = time.Date(2025, 4, 10, 15, 30, 0, 0, time.UTC)

func TestDateRelativeWords(t *testing.T) {
	t.Parallel()

	today := Date("today", testNow)
	if today == nil || !today.Equal(time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date for today: %v", today)
	}

	tomorrow := Date("Tomorrow", testNow)
	if tomorrow == nil || !tomorrow.Equal(time.Date(2025, 4, 11, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date for tomorrow: %v", tomorrow)
	}
}

func TestDateStripsPrefixAndClockTime(t *testing.T) {
	t.Parallel()

	got := Date("Starts May 3, 2025 at 9 AM", testNow)
	if got == nil || !got.Equal(time.Date(2025, 5, 3, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date: %v", got)
	}
}

func TestDateLongFormWithOrdinal(t *testing.T) {
	t.Parallel()

	got := Date("March 3rd, 2025", testNow)
	if got == nil || !got.Equal(time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date: %v", got)
	}
}

func TestDateLongFormWithoutYearUsesCurrentYear(t *testing.T) {
	t.Parallel()

	got := Date("June 14th", testNow)
	if got == nil || !got.Equal(time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date: %v", got)
	}
}

func TestDateKeepsBareTrailingDayNumber(t *testing.T) {
	t.Parallel()

	want := time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC)
	if got := Date("June 14", testNow); got == nil || !got.Equal(want) {
		t.Fatalf("expected bare day number kept, got %v", got)
	}

	for _, raw := range []string{"June 14 at 7pm", "June 14 @ 7", "June 14 10:30", "June 14 7pm"} {
		if got := Date(raw, testNow); got == nil || !got.Equal(want) {
			t.Fatalf("Date(%q) = %v, want %v", raw, got, want)
		}
	}
}

func TestDateIsIdempotentOnCanonicalForm(t *testing.T) {
	t.Parallel()

	got := Date("2025-05-03", testNow)
	if got == nil || !got.Equal(time.Date(2025, 5, 3, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date: %v", got)
	}
}

func TestDateUnparseableReturnsNil(t *testing.T) {
	t.Parallel()

	if got := Date("call the venue for details", testNow); got != nil {
		t.Fatalf("expected nil for unparseable input, got %v", got)
	}
	if got := Date("", testNow); got != nil {
		t.Fatalf("expected nil for empty input, got %v", got)
	}
}

func TestTwoDigitYearWindow(t *testing.T) {
	t.Parallel()

	got := dateFromNumericParts("5", "3", "75")
	if got == nil || got.Year() != 1975 {
		t.Fatalf("expected 1975, got %v", got)
	}

	got = dateFromNumericParts("5", "3", "25")
	if got == nil || got.Year() != 2025 {
		t.Fatalf("expected 2025, got %v", got)
	}

	if got := dateFromNumericParts("13", "3", "25"); got != nil {
		t.Fatalf("expected nil for month 13, got %v", got)
	}
}

func TestState(t *testing.T) {
	t.Parallel()

	if got := State("CA"); got != "CA" {
		t.Fatalf("expected CA to stay CA, got %q", got)
	}
	if got := State("california"); got != "CA" {
		t.Fatalf("expected california to map to CA, got %q", got)
	}
	if got := State("Queens, NY area"); got != "NY" {
		t.Fatalf("expected NY from freeform text, got %q", got)
	}
	if got := State("West Virginia"); got != "WV" {
		t.Fatalf("expected WV, got %q", got)
	}
	if got := State("Arkansas"); got != "AR" {
		t.Fatalf("expected AR, got %q", got)
	}
	if got := State("Zz"); got != "ZZ" {
		t.Fatalf("expected short input to uppercase, got %q", got)
	}
	if got := State("somewhere nice"); got != "" {
		t.Fatalf("expected empty code for unknown text, got %q", got)
	}
	if got := State(""); got != "" {
		t.Fatalf("expected empty code for empty input, got %q", got)
	}
}

func TestFee(t *testing.T) {
	t.Parallel()

	if got := Fee("free"); got == nil || *got != 0 {
		t.Fatalf("expected 0 for free, got %v", got)
	}
	if got := Fee("No charge for kids"); got == nil || *got != 0 {
		t.Fatalf("expected 0 for no charge, got %v", got)
	}
	if got := Fee("$5 at door"); got == nil || *got != 5 {
		t.Fatalf("expected 5, got %v", got)
	}
	if got := Fee("0"); got == nil || *got != 0 {
		t.Fatalf("expected 0 to stay 0, got %v", got)
	}
	if got := Fee("ask at the table"); got != nil {
		t.Fatalf("expected nil without numeric token, got %v", got)
	}
	if got := Fee(""); got != nil {
		t.Fatalf("expected nil for empty input, got %v", got)
	}
}

func TestAddress(t *testing.T) {
	t.Parallel()

	if got := Address("", "Sacramento", "CA"); got != "Sacramento, CA" {
		t.Fatalf("unexpected synthesized address: %q", got)
	}
	if got := Address("100 Main St, Sacramento, CA", "Sacramento", "CA"); got != "100 Main St, Sacramento, CA" {
		t.Fatalf("expected complete address unchanged, got %q", got)
	}
	if got := Address("100 Main St", "Sacramento", "CA"); got != "100 Main St, Sacramento, CA" {
		t.Fatalf("unexpected concatenated address: %q", got)
	}
	if got := Address("", "", ""); got != "" {
		t.Fatalf("expected empty address, got %q", got)
	}
}

func TestText(t *testing.T) {
	t.Parallel()

	if got := Text("  <b>Big&amp;Bold</b>   show \n listing "); got != "Big&Bold show listing" {
		t.Fatalf("unexpected cleaned text: %q", got)
	}
	if got := Text("already clean"); got != "already clean" {
		t.Fatalf("expected cleaning to be a no-op, got %q", got)
	}
}

func TestFromCandidateEndToEnd(t *testing.T) {
	t.Parallel()

	got := FromCandidate(extract.Candidate{
		Name:      "Spring Card Expo",
		StartDate: "May 3, 2025",
		State:     "california",
		EntryFee:  "free",
		City:      "Sacramento",
	}, testNow)

	if got.Name != "Spring Card Expo" {
		t.Fatalf("unexpected name: %q", got.Name)
	}
	if got.StartDate == nil || *got.StartDate != "2025-05-03" {
		t.Fatalf("unexpected start date: %v", got.StartDate)
	}
	if got.EndDate == nil || *got.EndDate != "2025-05-03" {
		t.Fatalf("expected single-day event end date, got %v", got.EndDate)
	}
	if got.State == nil || *got.State != "CA" {
		t.Fatalf("unexpected state: %v", got.State)
	}
	if got.EntryFee == nil || *got.EntryFee != 0 {
		t.Fatalf("unexpected entry fee: %v", got.EntryFee)
	}
	if got.City == nil || *got.City != "Sacramento" {
		t.Fatalf("unexpected city: %v", got.City)
	}
	if got.Address == nil || *got.Address != "Sacramento, CA" {
		t.Fatalf("unexpected address: %v", got.Address)
	}
	if !got.HasIdentity() {
		t.Fatalf("expected candidate to have identity")
	}
}

func TestFromCandidateKeepsExtractedAddress(t *testing.T) {
	t.Parallel()

	got := FromCandidate(extract.Candidate{
		Name:    "Valley Card Show",
		Address: "100 Main St",
		City:    "Sacramento",
		State:   "CA",
	}, testNow)

	if got.Address == nil || *got.Address != "100 Main St, Sacramento, CA" {
		t.Fatalf("expected extracted street address completed with city/state, got %v", got.Address)
	}
}

func TestFromCandidateEndDateBeforeStartCollapses(t *testing.T) {
	t.Parallel()

	got := FromCandidate(extract.Candidate{
		Name:      "Weekend Show",
		StartDate: "2025-05-03",
		EndDate:   "2025-05-01",
	}, testNow)

	if got.EndDate == nil || *got.EndDate != "2025-05-03" {
		t.Fatalf("expected end date collapsed to start, got %v", got.EndDate)
	}
}

func TestFromCandidateWithoutIdentity(t *testing.T) {
	t.Parallel()

	got := FromCandidate(extract.Candidate{Description: "a table of cards"}, testNow)
	if got.HasIdentity() {
		t.Fatalf("expected candidate without name or date to lack identity")
	}
}
