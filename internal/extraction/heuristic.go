package extraction

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/hsh7097/MoneyTalk-sub002/internal/model"
)

// DateTimeLayout is the format used for AnalysisResult.DateTime when the date
// is taken from the message timestamp.
const DateTimeLayout = "2006-01-02 15:04"

var (
	timeToken     = regexp.MustCompile(`\d{1,2}:\d{2}(?::\d{2})?`)
	storeAfterAt  = regexp.MustCompile(`(?i)\bat\s+(.+?)(?:\s+on\b|\.|$)`)
	koreanCard    = regexp.MustCompile(`([A-Za-z가-힣]+카드)`)
	englishCard   = regexp.MustCompile(`(?i)\b([A-Za-z]+)\s+card\b`)
	storeLineDeny = []string{"누적", "잔액", "일시불", "할부", "승인", "취소", "감사", "님"}
)

// Fields is the set of values the heuristics could derive from one body.
type Fields struct {
	StoreName string
	CardName  string
	Category  string
	Amount    int
}

// Heuristic derives payment fields from the body alone.
func Heuristic(body string) Fields {
	store := HeuristicStore(body)
	return Fields{
		Amount:    HeuristicAmount(body),
		StoreName: store,
		CardName:  HeuristicCard(body),
		Category:  Categorize(store, body),
	}
}

// HeuristicStore returns the merchant name, looked up first on the text that
// follows a time stamp and then on an English "at <store>" phrase.
func HeuristicStore(body string) string {
	lines := splitLines(body)
	for i, line := range lines {
		loc := timeToken.FindStringIndex(line)
		if loc == nil {
			continue
		}
		if rest := strings.TrimSpace(line[loc[1]:]); looksLikeStore(rest) {
			return rest
		}
		if i+1 < len(lines) && looksLikeStore(lines[i+1]) {
			return lines[i+1]
		}
	}
	for _, line := range lines {
		if m := storeAfterAt.FindStringSubmatch(line); m != nil {
			if s := strings.TrimSpace(m[1]); looksLikeStore(s) {
				return s
			}
		}
	}
	return ""
}

// HeuristicCard returns the first card issuer name in body.
func HeuristicCard(body string) string {
	if m := koreanCard.FindStringSubmatch(body); m != nil {
		return m[1]
	}
	if m := englishCard.FindStringSubmatch(body); m != nil {
		return m[1]
	}
	return ""
}

// ParseHeuristic builds a heuristic-only result for msg, or nil when no
// amount can be found.
func ParseHeuristic(msg model.Message) *model.AnalysisResult {
	f := Heuristic(msg.Body)
	if f.Amount <= 0 {
		return nil
	}
	return &model.AnalysisResult{
		Amount:     f.Amount,
		StoreName:  f.StoreName,
		CardName:   f.CardName,
		Category:   f.Category,
		DateTime:   FormatDateTime(msg),
		Source:     model.SourceHeuristic,
		Confidence: model.ConfidenceHeuristic,
	}
}

// FormatDateTime renders the message timestamp in DateTimeLayout.
func FormatDateTime(msg model.Message) string {
	if msg.TimestampMillis <= 0 {
		return ""
	}
	return msg.Time().Format(DateTimeLayout)
}

func splitLines(body string) []string {
	raw := strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

func looksLikeStore(s string) bool {
	if s == "" || !strings.ContainsFunc(s, unicode.IsLetter) {
		return false
	}
	if HeuristicAmount(s) > 0 {
		return false
	}
	for _, deny := range storeLineDeny {
		if strings.Contains(s, deny) {
			return false
		}
	}
	return true
}
