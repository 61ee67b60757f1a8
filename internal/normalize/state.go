package normalize

import (
	"regexp"
	"sort"
	"strings"
)

type stateEntry struct {
	name string
	code string
}

var stateTable = []stateEntry{
	{"alabama", "AL"}, {"alaska", "AK"}, {"arizona", "AZ"}, {"arkansas", "AR"},
	{"california", "CA"}, {"colorado", "CO"}, {"connecticut", "CT"},
	{"delaware", "DE"}, {"florida", "FL"}, {"georgia", "GA"}, {"hawaii", "HI"},
	{"idaho", "ID"}, {"illinois", "IL"}, {"indiana", "IN"}, {"iowa", "IA"},
	{"kansas", "KS"}, {"kentucky", "KY"}, {"louisiana", "LA"}, {"maine", "ME"},
	{"maryland", "MD"}, {"massachusetts", "MA"}, {"michigan", "MI"},
	{"minnesota", "MN"}, {"mississippi", "MS"}, {"missouri", "MO"},
	{"montana", "MT"}, {"nebraska", "NE"}, {"nevada", "NV"},
	{"new hampshire", "NH"}, {"new jersey", "NJ"}, {"new mexico", "NM"},
	{"new york", "NY"}, {"north carolina", "NC"}, {"north dakota", "ND"},
	{"ohio", "OH"}, {"oklahoma", "OK"}, {"oregon", "OR"},
	{"pennsylvania", "PA"}, {"rhode island", "RI"}, {"south carolina", "SC"},
	{"south dakota", "SD"}, {"tennessee", "TN"}, {"texas", "TX"},
	{"utah", "UT"}, {"vermont", "VT"}, {"virginia", "VA"},
	{"washington", "WA"}, {"west virginia", "WV"}, {"wisconsin", "WI"},
	{"wyoming", "WY"}, {"district of columbia", "DC"},
}

// statesByNameLength orders the table so compound names win substring
// matches over their suffixes ("west virginia" before "virginia").
var statesByNameLength = func() []stateEntry {
	ordered := make([]stateEntry, len(stateTable))
	copy(ordered, stateTable)
	sort.SliceStable(ordered, func(i, j int) bool {
		return len(ordered[i].name) > len(ordered[j].name)
	})
	return ordered
}()

var stateCodes = func() map[string]struct{} {
	codes := make(map[string]struct{}, len(stateTable))
	for _, entry := range stateTable {
		codes[entry.code] = struct{}{}
	}
	return codes
}()

var stateTokenRe = regexp.MustCompile(`[A-Za-z]+`)

// State converts freeform location text into a 2-letter US state code.
// Unrecognized text longer than two characters yields an empty string.
func State(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	if len(trimmed) == 2 {
		upper := strings.ToUpper(trimmed)
		if _, ok := stateCodes[upper]; ok {
			return upper
		}
	}

	lower := strings.ToLower(trimmed)
	for _, entry := range stateTable {
		if entry.name == lower {
			return entry.code
		}
	}

	for _, entry := range statesByNameLength {
		if strings.Contains(lower, entry.name) {
			return entry.code
		}
	}

	// Uppercase 2-letter tokens inside freeform text ("Queens, NY area").
	for _, token := range stateTokenRe.FindAllString(trimmed, -1) {
		if len(token) != 2 || token != strings.ToUpper(token) {
			continue
		}
		if _, ok := stateCodes[token]; ok {
			return token
		}
	}

	if len(trimmed) <= 2 {
		return strings.ToUpper(trimmed)
	}
	return ""
}
