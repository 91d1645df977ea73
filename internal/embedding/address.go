package embedding

import (
	"strings"
	"unicode"
)

// NormalizeAddress canonicalizes a sender address so that formatting and
// country-code variants of the same number compare equal.
// Alphanumeric sender IDs are lowercased and trimmed.
func NormalizeAddress(address string) string {
	trimmed := strings.TrimSpace(address)

	var digits strings.Builder
	hasLetter := false
	for _, r := range trimmed {
		switch {
		case unicode.IsDigit(r):
			digits.WriteRune(r)
		case unicode.IsLetter(r):
			hasLetter = true
		}
	}
	if hasLetter || digits.Len() == 0 {
		return strings.ToLower(trimmed)
	}

	number := digits.String()
	if strings.HasPrefix(trimmed, "+82") || (strings.HasPrefix(number, "82") && len(number) >= 11) {
		number = number[2:]
		if !strings.HasPrefix(number, "0") {
			number = "0" + number
		}
	}
	return number
}
