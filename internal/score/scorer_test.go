package score

import (
	"testing"
	"time"

	"cardscout.app/showpipe/internal/extract"
	"cardscout.app/showpipe/internal/normalize"
)

var testNow = time.Date(2025, 4, 10, 12, 0, 0, 0, time.UTC)

func TestConfidenceIsBounded(t *testing.T) {
	t.Parallel()

	full := normalize.FromCandidate(extract.Candidate{
		Name:        "National Sports Card Convention",
		StartDate:   "May 3, 2025",
		EndDate:     "May 4, 2025",
		VenueName:   "Expo Hall",
		City:        "Sacramento",
		State:       "CA",
		EntryFee:    "$5",
		Description: "Over two hundred vendor tables of vintage and modern trading cards.",
		URL:         "https://example.com/shows/expo",
	}, testNow)

	got := Confidence(full)
	if got < 0 || got > MaxConfidence {
		t.Fatalf("score out of bounds: %v", got)
	}

	empty := Confidence(normalize.FromCandidate(extract.Candidate{}, testNow))
	if empty < 0 || empty > MaxConfidence {
		t.Fatalf("score out of bounds: %v", empty)
	}
	if empty >= got {
		t.Fatalf("expected empty candidate to score below a complete one: empty=%v full=%v", empty, got)
	}
}

func TestConfidenceMonotoneInRequiredFields(t *testing.T) {
	t.Parallel()

	base := extract.Candidate{
		Name: "Spring Card Expo",
		City: "Sacramento",
	}

	withoutDate := Confidence(normalize.FromCandidate(base, testNow))

	withDate := base
	withDate.StartDate = "May 3, 2025"
	if got := Confidence(normalize.FromCandidate(withDate, testNow)); got < withoutDate {
		t.Fatalf("adding a start date lowered the score: %v -> %v", withoutDate, got)
	}

	withoutName := base
	withoutName.Name = ""
	withoutName.StartDate = "May 3, 2025"
	withName := withoutName
	withName.Name = "Spring Card Expo"
	if Confidence(normalize.FromCandidate(withName, testNow)) < Confidence(normalize.FromCandidate(withoutName, testNow)) {
		t.Fatalf("adding a name lowered the score")
	}
}

func TestConfidenceMonotoneInOptionalFields(t *testing.T) {
	t.Parallel()

	base := extract.Candidate{
		Name:      "Spring Card Expo",
		StartDate: "May 3, 2025",
		City:      "Sacramento",
		State:     "CA",
	}
	baseScore := Confidence(normalize.FromCandidate(base, testNow))

	withFee := base
	withFee.EntryFee = "free"
	if got := Confidence(normalize.FromCandidate(withFee, testNow)); got < baseScore {
		t.Fatalf("adding an entry fee lowered the score: %v -> %v", baseScore, got)
	}

	withURL := base
	withURL.URL = "https://example.com/expo"
	if got := Confidence(normalize.FromCandidate(withURL, testNow)); got < baseScore {
		t.Fatalf("adding a URL lowered the score: %v -> %v", baseScore, got)
	}
}

func TestMissingRequiredFieldsScoreLow(t *testing.T) {
	t.Parallel()

	sparse := Confidence(normalize.FromCandidate(extract.Candidate{
		Description: "a short note",
	}, testNow))
	if sparse > 30 {
		t.Fatalf("expected sparse candidate near the low end, got %v", sparse)
	}
}
