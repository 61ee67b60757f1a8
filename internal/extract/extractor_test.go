package extract

import "testing"

func TestParseCandidates(t *testing.T) {
	t.Parallel()

	result := ParseCandidates(`[{"name":"Spring Card Expo","startDate":"May 3, 2025","entryFee":5,"address":"100 J St","city":"Sacramento"}]`)
	if result.Malformed {
		t.Fatalf("did not expect malformed result")
	}
	if len(result.Candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(result.Candidates))
	}

	candidate := result.Candidates[0]
	if candidate.Name != "Spring Card Expo" {
		t.Fatalf("unexpected name: %q", candidate.Name)
	}
	if candidate.StartDate != "May 3, 2025" {
		t.Fatalf("unexpected start date: %q", candidate.StartDate)
	}
	if candidate.EntryFee != "5" {
		t.Fatalf("expected numeric fee rendered as text, got %q", candidate.EntryFee)
	}
	if candidate.Address != "100 J St" {
		t.Fatalf("unexpected address: %q", candidate.Address)
	}
}

func TestParseCandidatesEmptyArray(t *testing.T) {
	t.Parallel()

	result := ParseCandidates("  []  ")
	if result.Malformed {
		t.Fatalf("did not expect malformed result for empty array")
	}
	if len(result.Candidates) != 0 {
		t.Fatalf("expected no candidates, got %d", len(result.Candidates))
	}
}

func TestParseCandidatesRejectsNonArray(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{
		`{"name":"not an array"}`,
		"Sorry, I could not find any events.",
		`[{"name": "broken"`,
		"",
	} {
		result := ParseCandidates(raw)
		if !result.Malformed {
			t.Fatalf("expected malformed result for %q", raw)
		}
		if result.RawText != raw {
			t.Fatalf("expected raw text preserved for %q", raw)
		}
	}
}
