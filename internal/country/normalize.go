package country

import "strings"

// Normalize builds the case-insensitive identity key for a country name:
// trimmed and lowercased. Internal whitespace is kept as given.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeCurrency uppercases a currency code and reports whether it is a
// well-formed 3-letter code.
func NormalizeCurrency(s string) (string, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) != 3 {
		return s, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return s, false
		}
	}
	return s, true
}
