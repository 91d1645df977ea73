package extraction

import (
	"strings"

	"github.com/hsh7097/MoneyTalk-sub002/internal/common"
	"github.com/hsh7097/MoneyTalk-sub002/internal/model"
)

// Fallback supplies field values for any regex that is missing, invalid or
// does not match. Source and Confidence are copied onto the result.
type Fallback struct {
	StoreName  string
	CardName   string
	Category   string
	DateTime   string
	Source     model.ParseSource
	PatternID  int64
	Amount     int
	Confidence float64
}

// ParseWithRegex extracts the amount, store and card of msg with one regex per
// field, each capturing its value in group 1. Fields that cannot be resolved
// fall back to fb. It returns nil only when no positive amount is available.
func ParseWithRegex(msg model.Message, amountRegex, storeRegex, cardRegex string, fb Fallback) *model.AnalysisResult {
	amount := ParseAmount(firstGroup(amountRegex, msg.Body))
	if amount <= 0 {
		amount = fb.Amount
	}
	if amount <= 0 {
		return nil
	}

	store := firstGroup(storeRegex, msg.Body)
	if store == "" {
		store = fb.StoreName
	}
	card := firstGroup(cardRegex, msg.Body)
	if card == "" {
		card = fb.CardName
	}

	category := fb.Category
	if category == "" || (store != fb.StoreName && Categorize(store, "") != DefaultCategory) {
		category = Categorize(store, msg.Body)
	}

	dateTime := fb.DateTime
	if dateTime == "" {
		dateTime = FormatDateTime(msg)
	}

	return &model.AnalysisResult{
		Amount:     amount,
		StoreName:  store,
		CardName:   card,
		Category:   category,
		DateTime:   dateTime,
		Source:     fb.Source,
		PatternID:  fb.PatternID,
		Confidence: fb.Confidence,
	}
}

// ParseWithPattern extracts msg using a cached pattern. The pattern's regex
// triple is applied when present; otherwise every field is derived from the
// message itself, with the pattern's card and category filling gaps.
func ParseWithPattern(msg model.Message, p *model.Pattern) *model.AnalysisResult {
	if p == nil {
		return nil
	}
	h := Heuristic(msg.Body)
	fb := Fallback{
		Amount:     h.Amount,
		StoreName:  h.StoreName,
		CardName:   h.CardName,
		Category:   p.ParsedCategory,
		Source:     model.SourceCache,
		PatternID:  p.ID,
		Confidence: p.Confidence,
	}
	if fb.CardName == "" {
		fb.CardName = p.ParsedCard
	}
	if fb.StoreName != "" && fb.StoreName != p.ParsedStore {
		if c := Categorize(fb.StoreName, ""); c != DefaultCategory {
			fb.Category = c
		}
	}
	return ParseWithRegex(msg, p.AmountRegex, p.StoreRegex, p.CardRegex, fb)
}

// firstGroup returns the trimmed first capture group of pattern in text, or ""
// when the pattern is empty, invalid or does not match.
func firstGroup(pattern, text string) string {
	if pattern == "" {
		return ""
	}
	re, err := common.CompileRegex(pattern)
	if err != nil {
		return ""
	}
	m := re.FindStringSubmatch(text)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}
