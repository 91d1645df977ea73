// Package telemetry uploads PII-masked message samples for offline regex curation.
package telemetry

import "regexp"

const mask = "***"

type maskRule struct {
	re   *regexp.Regexp
	repl string
}

// Applied in order: phone and account numbers before names so that masked
// digits cannot be mistaken for name fragments.
var maskRules = []maskRule{
	{regexp.MustCompile(`\+?82[- ]?1[016789][- ]?\d{3,4}[- ]?\d{4}|01[016789][- ]?\d{3,4}[- ]?\d{4}`), "***-****-****"},
	{regexp.MustCompile(`\d{2,6}-\d{2,6}-\d{2,8}(?:-\d{1,4})?`), mask},
	{regexp.MustCompile(`\d{10,}`), mask},
	{regexp.MustCompile(`[가-힣][*○＊][가-힣]?님`), mask + "님"},
	{regexp.MustCompile(`[가-힣]{2,4}님`), mask + "님"},
	{regexp.MustCompile(`[가-힣][*○＊][가-힣]`), mask},
}

// MaskPII removes personal data (phone numbers, account numbers, customer
// names) from a message body. Amounts, merchants and dates are kept.
func MaskPII(body string) string {
	for _, r := range maskRules {
		body = r.re.ReplaceAllString(body, r.repl)
	}
	return body
}
