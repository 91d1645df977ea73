// Package embedding turns message bodies into templates and templates into vectors.
package embedding

import (
	"regexp"
	"strings"
	"unicode"
)

// Template placeholders.
const (
	PlaceholderAmount = "{AMOUNT}"
	PlaceholderDate   = "{DATE}"
	PlaceholderTime   = "{TIME}"
	PlaceholderCardNo = "{CARD_NO}"
	PlaceholderStore  = "{STORE}"
	PlaceholderName   = "{NAME}"
	PlaceholderNum    = "{NUM}"
)

type substitution struct {
	re   *regexp.Regexp
	repl string
}

// Order matters: card numbers and full dates must be consumed before amounts,
// amounts before short dates, everything before the catch-all digit run.
var substitutions = []substitution{
	{regexp.MustCompile(`\d{4}[*xX]+\d*|[*xX]{2,}\d{2,4}|\(\d{4}\)`), PlaceholderCardNo},
	{regexp.MustCompile(`\d{4}[./-]\d{1,2}[./-]\d{1,2}`), PlaceholderDate},
	{regexp.MustCompile(`(?i)(?:[₩$]|krw|usd)\s*\d[\d,]*(?:\.\d+)?`), PlaceholderAmount},
	{regexp.MustCompile(`(?i)\d{1,3}(?:,\d{3})+(?:\.\d+)?\s*(?:원|krw|usd|달러)?|\d+(?:\.\d+)?\s*(?:원|krw|usd|달러)`), PlaceholderAmount},
	{regexp.MustCompile(`\d{1,2}[/.-]\d{1,2}`), PlaceholderDate},
	{regexp.MustCompile(`\d{1,2}월\s?\d{1,2}일`), PlaceholderDate},
	{regexp.MustCompile(`\d{1,2}:\d{2}(?::\d{2})?`), PlaceholderTime},
	{regexp.MustCompile(`[가-힣][*○]{1,2}[가-힣]`), PlaceholderName},
}

var (
	spaceRun       = regexp.MustCompile(`[ \t]+`)
	digitRun       = regexp.MustCompile(`\d+`)
	storeAfterTime = regexp.MustCompile(`\{TIME\}[ ]+([^{}\n]+)$`)
	storeAfterAt   = regexp.MustCompile(`(?i)\bat ([^{}\n]+?)( on \{DATE\}| \{DATE\}|\.|$)`)
	storeLineDeny  = []string{"누적", "잔액", "일시불", "할부", "승인", "감사"}
)

// Templatize replaces the variable fragments of a body with placeholders so that
// messages sharing an institutional format map to the same string.
func Templatize(body string) string {
	lines := strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(spaceRun.ReplaceAllString(line, " "))
		if line == "" {
			continue
		}
		for _, s := range substitutions {
			line = s.re.ReplaceAllString(line, s.repl)
		}
		line = storeAfterTime.ReplaceAllString(line, PlaceholderTime+" "+PlaceholderStore)
		line = storeAfterAt.ReplaceAllString(line, "at "+PlaceholderStore+"$2")
		out = append(out, line)
	}

	// A bare text line right after a time line is the merchant in multi-line formats.
	for i := 1; i < len(out); i++ {
		if strings.HasSuffix(out[i-1], PlaceholderTime) && isStoreLine(out[i]) {
			out[i] = PlaceholderStore
		}
	}

	for i := range out {
		out[i] = digitRun.ReplaceAllString(out[i], PlaceholderNum)
	}
	return strings.Join(out, "\n")
}

func isStoreLine(line string) bool {
	if strings.ContainsAny(line, "{}") || !strings.ContainsFunc(line, unicode.IsLetter) {
		return false
	}
	for _, deny := range storeLineDeny {
		if strings.Contains(line, deny) {
			return false
		}
	}
	return true
}

// HasPlaceholder reports whether a template contains the given placeholder.
func HasPlaceholder(template, placeholder string) bool {
	return strings.Contains(template, placeholder)
}
