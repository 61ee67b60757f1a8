package registry

import "testing"

const validRegistryJSON = `{
  "sources": [
    {"address": "https://shows.example.com/calendar", "enabled": true, "priority_score": 5},
    {"address": "https://cards.example.org/events", "notes": "regional club page"},
    {"address": "https://stale.example.net/list", "enabled": false}
  ]
}`

func TestParseValidRegistry(t *testing.T) {
	t.Parallel()

	reg, err := Parse([]byte(validRegistryJSON))
	if err != nil {
		t.Fatalf("parse registry: %v", err)
	}
	if len(reg.Sources) != 3 {
		t.Fatalf("expected 3 sources, got %d", len(reg.Sources))
	}

	enabled := reg.Enabled()
	if len(enabled) != 2 {
		t.Fatalf("expected 2 enabled sources, got %d", len(enabled))
	}
	for _, source := range enabled {
		if source.Address == "https://stale.example.net/list" {
			t.Fatalf("disabled source leaked into enabled set")
		}
	}
}

func TestParseRejectsInvalidRegistry(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{
		`{"sources": [{"enabled": true}]}`,
		`{"sources": [{"address": "not-a-url"}]}`,
		`{"sources": "nope"}`,
		`[]`,
		``,
	} {
		if _, err := Parse([]byte(raw)); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestSampleBoundsAndUniqueness(t *testing.T) {
	t.Parallel()

	reg, err := Parse([]byte(validRegistryJSON))
	if err != nil {
		t.Fatalf("parse registry: %v", err)
	}

	sample := reg.Sample(5)
	if len(sample) != 2 {
		t.Fatalf("expected sample capped at enabled count, got %d", len(sample))
	}

	seen := make(map[string]struct{}, len(sample))
	for _, source := range sample {
		if _, dup := seen[source.Address]; dup {
			t.Fatalf("sample contains duplicate source %q", source.Address)
		}
		seen[source.Address] = struct{}{}
	}

	if got := reg.Sample(0); got != nil {
		t.Fatalf("expected nil sample for n=0, got %v", got)
	}

	one := reg.Sample(1)
	if len(one) != 1 {
		t.Fatalf("expected single-source sample, got %d", len(one))
	}
}
