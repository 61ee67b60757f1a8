package normalize

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	freeFeeWords = []string{"free", "no charge", "no cost", "complimentary"}
	feeNumberRe  = regexp.MustCompile(`[$€£]?\s*(\d+(?:\.\d+)?)`)
)

// Fee extracts a non-negative entry fee from freeform text. "Free"-style
// wording maps to zero; text without a numeric token yields nil.
func Fee(raw string) *float64 {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" {
		return nil
	}

	for _, word := range freeFeeWords {
		if strings.Contains(trimmed, word) {
			zero := 0.0
			return &zero
		}
	}

	match := feeNumberRe.FindStringSubmatch(trimmed)
	if match == nil {
		return nil
	}

	value, err := strconv.ParseFloat(match[1], 64)
	if err != nil || value < 0 {
		return nil
	}
	return &value
}
