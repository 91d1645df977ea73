package extraction

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hsh7097/MoneyTalk-sub002/internal/common"
	"github.com/hsh7097/MoneyTalk-sub002/internal/embedding"
	"github.com/hsh7097/MoneyTalk-sub002/internal/model"
)

const (
	amountCapture     = `(?:[₩$]\s*)?(\d[\d,]*)`
	bareAmountCapture = `(\d[\d,]*)\s*원`
	timeLiteral       = `\d{1,2}:\d{2}(?::\d{2})?`
)

var placeholderToken = regexp.MustCompile(`\{[A-Z_]+\}`)

// TemplateRegex derives a conservative regex triple from the placeholder
// markers of a template. Only the amount regex is required; it reports false
// when the template has no usable {AMOUNT} marker.
func TemplateRegex(template string) (model.RegexTriple, bool) {
	amount := templateAmountRegex(template)
	if amount == "" {
		return model.RegexTriple{}, false
	}
	return model.RegexTriple{
		AmountRegex: amount,
		StoreRegex:  templateStoreRegex(template),
		CardRegex:   templateCardRegex(template),
	}, true
}

// templateAmountRegex anchors the amount on the literal text that precedes
// the first non-cumulative {AMOUNT} marker on its line.
func templateAmountRegex(template string) string {
	for _, line := range strings.Split(template, "\n") {
		rest := line
		for {
			idx := strings.Index(rest, embedding.PlaceholderAmount)
			if idx < 0 {
				break
			}
			lead := literalBefore(rest[:idx])
			rest = rest[idx+len(embedding.PlaceholderAmount):]
			if isDeniedAmount(lead) {
				continue
			}
			if lead == "" {
				return bareAmountCapture
			}
			return regexp.QuoteMeta(lead) + `\s*` + amountCapture
		}
	}
	return ""
}

// literalBefore returns the literal text between the last placeholder in s
// and the end of s.
func literalBefore(s string) string {
	locs := placeholderToken.FindAllStringIndex(s, -1)
	if len(locs) > 0 {
		s = s[locs[len(locs)-1][1]:]
	}
	return strings.TrimSpace(s)
}

func templateStoreRegex(template string) string {
	switch {
	case strings.Contains(template, embedding.PlaceholderTime+"\n"+embedding.PlaceholderStore):
		return timeLiteral + `\s*\n\s*([^\n]+)`
	case strings.Contains(template, embedding.PlaceholderTime+" "+embedding.PlaceholderStore):
		return timeLiteral + `[ \t]+([^\n]+)`
	case strings.Contains(template, "at "+embedding.PlaceholderStore+" on"):
		return `(?i)\bat\s+(.+?)\s+on\b`
	case strings.Contains(template, "at "+embedding.PlaceholderStore):
		return `(?i)\bat\s+([^\n.]+)`
	}
	return ""
}

func templateCardRegex(template string) string {
	literal := placeholderToken.ReplaceAllString(template, " ")
	if m := koreanCard.FindStringSubmatch(literal); m != nil {
		return "(" + regexp.QuoteMeta(m[1]) + ")"
	}
	if m := englishCard.FindStringSubmatch(literal); m != nil {
		return `(?i)\b(` + regexp.QuoteMeta(m[1]) + `)\s+card\b`
	}
	return ""
}

// ValidateTriple checks that every regex in t compiles and that the amount
// regex resolves a positive amount on at least half of the sample bodies.
func ValidateTriple(t model.RegexTriple, samples []string) error {
	if t.AmountRegex == "" {
		return fmt.Errorf("%w: amount regex is empty", common.ErrRegexInvalid)
	}
	for name, pattern := range map[string]string{"amount": t.AmountRegex, "store": t.StoreRegex, "card": t.CardRegex} {
		if pattern == "" {
			continue
		}
		re, err := common.CompileRegex(pattern)
		if err != nil {
			return fmt.Errorf("%w: %s regex: %w", common.ErrRegexInvalid, name, err)
		}
		if re.NumSubexp() < 1 {
			return fmt.Errorf("%w: %s regex has no capture group", common.ErrRegexInvalid, name)
		}
	}
	if len(samples) == 0 {
		return nil
	}

	hits := 0
	for _, body := range samples {
		if ParseAmount(firstGroup(t.AmountRegex, body)) > 0 {
			hits++
		}
	}
	if hits*2 < len(samples) {
		return fmt.Errorf("%w: amount regex matched %d of %d samples", common.ErrRegexInvalid, hits, len(samples))
	}
	return nil
}
