package langdetect

import (
	"strings"
	"sync"
	"unicode"

	lingua "github.com/pemistahl/lingua-go"
)

var (
	detectorOnce sync.Once
	detector     lingua.LanguageDetector
)

// DetectISO6391 returns the two-letter language code of the sample, or an
// empty string when the sample is too short to classify.
func DetectISO6391(text string) string {
	sample := strings.TrimSpace(text)
	if sample == "" {
		return ""
	}

	letterCount := 0
	for _, r := range sample {
		if unicode.IsLetter(r) {
			letterCount++
		}
	}
	if letterCount < 6 {
		return ""
	}

	language, exists := getDetector().DetectLanguageOf(sample)
	if !exists {
		return ""
	}

	code := strings.ToLower(language.IsoCode639_1().String())
	if len(code) != 2 {
		return ""
	}
	return code
}

// IsLikelyEnglish reports whether the sample reads as English. Samples too
// short to classify pass, so sparse listings are not penalized.
func IsLikelyEnglish(text string) bool {
	code := DetectISO6391(text)
	return code == "" || code == "en"
}

func getDetector() lingua.LanguageDetector {
	detectorOnce.Do(func() {
		// Show listings come from US-facing sources; a narrow candidate
		// set keeps the preloaded models small.
		detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(
				lingua.English,
				lingua.Spanish,
				lingua.French,
				lingua.German,
				lingua.Portuguese,
			).
			WithPreloadedLanguageModels().
			Build()
	})
	return detector
}
