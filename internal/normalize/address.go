package normalize

import "strings"

// Address builds a display address from whatever location parts survived
// extraction. An address already mentioning both city and state is kept
// as-is; otherwise the non-empty parts are joined with ", ".
func Address(address, city, state string) string {
	address = strings.TrimSpace(address)
	city = strings.TrimSpace(city)
	state = strings.TrimSpace(state)

	if address == "" {
		return joinParts(city, state)
	}

	lower := strings.ToLower(address)
	hasCity := city != "" && strings.Contains(lower, strings.ToLower(city))
	hasState := state != "" && strings.Contains(lower, strings.ToLower(state))
	if hasCity && hasState {
		return address
	}

	return joinParts(address, city, state)
}

func joinParts(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		kept = append(kept, part)
	}
	return strings.Join(kept, ", ")
}
