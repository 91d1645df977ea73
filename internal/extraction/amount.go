package extraction

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	wonAmount      = regexp.MustCompile(`(?i)(\d[\d,]*)\s*(?:원|krw)`)
	prefixedAmount = regexp.MustCompile(`(?i)(?:[₩$]|krw|usd)\s*(\d[\d,]*)`)
	// Amounts preceded by these words are running totals, not the charge.
	amountDenyPrefixes = []string{"누적", "잔액", "잔고", "balance"}
)

// ParseAmount converts a captured amount such as "1,234,567" or "42.10" into an
// integer. Fractional parts are dropped. It returns 0 when no digits are present.
func ParseAmount(s string) int {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i]
	}
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0
	}
	n, err := strconv.Atoi(b.String())
	if err != nil {
		return 0
	}
	return n
}

// HeuristicAmount returns the first positive amount in body that is written
// with a currency marker and is not a cumulative or balance figure.
func HeuristicAmount(body string) int {
	for _, re := range []*regexp.Regexp{wonAmount, prefixedAmount} {
		for _, loc := range re.FindAllStringSubmatchIndex(body, -1) {
			if isDeniedAmount(body[:loc[0]]) {
				continue
			}
			if n := ParseAmount(body[loc[2]:loc[3]]); n > 0 {
				return n
			}
		}
	}
	return 0
}

func isDeniedAmount(before string) bool {
	before = strings.ToLower(strings.TrimRight(before, " :\t"))
	for _, p := range amountDenyPrefixes {
		if strings.HasSuffix(before, p) {
			return true
		}
	}
	return false
}
