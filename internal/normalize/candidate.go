package normalize

import (
	"time"

	"cardscout.app/showpipe/internal/extract"
)

const dayFormat = "2006-01-02"

// ShowCandidate is the canonical typed shape persisted as a pending show's
// normalized payload. Calendar dates are ISO "YYYY-MM-DD" strings.
type ShowCandidate struct {
	Name         string    `json:"name"`
	StartDate    *string   `json:"startDate"`
	EndDate      *string   `json:"endDate"`
	VenueName    *string   `json:"venueName,omitempty"`
	Address      *string   `json:"address,omitempty"`
	City         *string   `json:"city,omitempty"`
	State        *string   `json:"state,omitempty"`
	EntryFee     *float64  `json:"entryFee,omitempty"`
	Description  *string   `json:"description,omitempty"`
	URL          *string   `json:"url,omitempty"`
	ContactInfo  *string   `json:"contactInfo,omitempty"`
	NormalizedAt time.Time `json:"normalizedAt"`
}

// FromCandidate converts a loosely-structured extraction candidate into the
// canonical typed shape. A start date without an end date marks a single-day
// event; an end date before the start date collapses to the start date.
func FromCandidate(c extract.Candidate, now time.Time) ShowCandidate {
	start := Date(c.StartDate, now)
	end := Date(c.EndDate, now)
	if start != nil && (end == nil || end.Before(*start)) {
		end = start
	}
	if start == nil {
		end = nil
	}

	city := Text(c.City)
	state := State(c.State)

	return ShowCandidate{
		Name:         Text(c.Name),
		StartDate:    dayPtr(start),
		EndDate:      dayPtr(end),
		VenueName:    optionalText(c.VenueName),
		Address:      optionalString(Address(Text(c.Address), city, state)),
		City:         optionalString(city),
		State:        optionalString(state),
		EntryFee:     Fee(c.EntryFee),
		Description:  optionalText(c.Description),
		URL:          optionalString(Text(c.URL)),
		ContactInfo:  optionalText(c.ContactInfo),
		NormalizedAt: now.UTC(),
	}
}

// HasIdentity reports whether the candidate carries enough to be worth a
// reviewer's time: a name or a resolvable start date.
func (s ShowCandidate) HasIdentity() bool {
	return s.Name != "" || s.StartDate != nil
}

// StartDay parses the ISO start date back into a UTC time, if present.
func (s ShowCandidate) StartDay() *time.Time {
	if s.StartDate == nil {
		return nil
	}
	day, err := time.Parse(dayFormat, *s.StartDate)
	if err != nil {
		return nil
	}
	utc := day.UTC()
	return &utc
}

func dayPtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	formatted := t.Format(dayFormat)
	return &formatted
}

func optionalText(raw string) *string {
	return optionalString(Text(raw))
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
