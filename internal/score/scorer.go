package score

import (
	"strings"

	"cardscout.app/showpipe/internal/langdetect"
	"cardscout.app/showpipe/internal/normalize"
)

// Confidence scores order the reviewer queue only; nothing is auto-approved.
// The scale is 0-100 and every signal is an independent non-negative bonus,
// so filling in a missing field can never lower the score.
const (
	nameWeight           = 20
	startDateWeight      = 25
	stateWeight          = 10
	entryFeeWeight       = 10
	addressWeight        = 10
	substantialNameBonus = 5
	descriptionBonus     = 10
	urlBonus             = 5
	englishBonus         = 5

	substantialNameLength  = 8
	substantialDescription = 40

	MaxConfidence = 100.0
)

// Confidence computes the reviewer-priority score for a normalized candidate.
func Confidence(c normalize.ShowCandidate) float64 {
	points := 0

	if c.Name != "" {
		points += nameWeight
		if len(c.Name) >= substantialNameLength {
			points += substantialNameBonus
		}
	}
	if c.StartDate != nil {
		points += startDateWeight
	}
	if c.State != nil {
		points += stateWeight
	}
	if c.EntryFee != nil {
		points += entryFeeWeight
	}
	if addressCoversCityAndState(c) {
		points += addressWeight
	}

	description := ""
	if c.Description != nil {
		description = *c.Description
	}
	if len(description) >= substantialDescription {
		points += descriptionBonus
		if langdetect.IsLikelyEnglish(description) {
			points += englishBonus
		}
	}
	if c.URL != nil {
		points += urlBonus
	}

	score := float64(points)
	if score > MaxConfidence {
		score = MaxConfidence
	}
	return score
}

func addressCoversCityAndState(c normalize.ShowCandidate) bool {
	if c.Address == nil || c.City == nil || c.State == nil {
		return false
	}
	address := strings.ToLower(*c.Address)
	return strings.Contains(address, strings.ToLower(*c.City)) &&
		strings.Contains(address, strings.ToLower(*c.State))
}
