package extract

import (
	"context"
	"encoding/json"
	"strings"
)

// Candidate is one loosely-structured show listing pulled out of a source
// document. Every field is freeform text; normalization happens later.
type Candidate struct {
	Name        string `json:"name"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	VenueName   string `json:"venueName"`
	Address     string `json:"address"`
	City        string `json:"city"`
	State       string `json:"state"`
	EntryFee    string `json:"entryFee"`
	Description string `json:"description"`
	URL         string `json:"url"`
	ContactInfo string `json:"contactInfo"`
}

// Result is the tagged outcome of one extraction call. Malformed responses
// carry the raw text for logging and are treated as a soft skip, never an
// error that stops the batch.
type Result struct {
	Candidates []Candidate
	Malformed  bool
	RawText    string
}

// Extractor turns one source document into candidate show records.
type Extractor interface {
	Extract(ctx context.Context, sourceAddress, documentText string) (Result, error)
}

// ParseCandidates decodes a model response that is expected to be a raw
// JSON array of candidate objects.
func ParseCandidates(raw string) Result {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "[") || !strings.HasSuffix(trimmed, "]") {
		return Result{Malformed: true, RawText: raw}
	}

	var loose []map[string]any
	if err := json.Unmarshal([]byte(trimmed), &loose); err != nil {
		return Result{Malformed: true, RawText: raw}
	}

	candidates := make([]Candidate, 0, len(loose))
	for _, fields := range loose {
		candidates = append(candidates, Candidate{
			Name:        looseString(fields["name"]),
			StartDate:   looseString(fields["startDate"]),
			EndDate:     looseString(fields["endDate"]),
			VenueName:   looseString(fields["venueName"]),
			Address:     looseString(fields["address"]),
			City:        looseString(fields["city"]),
			State:       looseString(fields["state"]),
			EntryFee:    looseString(fields["entryFee"]),
			Description: looseString(fields["description"]),
			URL:         looseString(fields["url"]),
			ContactInfo: looseString(fields["contactInfo"]),
		})
	}

	return Result{Candidates: candidates}
}

// looseString renders whatever JSON value the model produced as text.
func looseString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		encoded, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(encoded)
	case bool:
		if v {
			return "true"
		}
		return "false"
	default:
		return ""
	}
}
