package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/hsh7097/MoneyTalk-sub002/internal/extraction"
	"github.com/hsh7097/MoneyTalk-sub002/internal/model"
)

// cleanMarkdownWrapper strips code fences and any prose around the first JSON
// value in content.
func cleanMarkdownWrapper(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```JSON")
		content = strings.TrimPrefix(content, "```")
		if i := strings.LastIndex(content, "```"); i >= 0 {
			content = content[:i]
		}
		content = strings.TrimSpace(content)
	}

	start := strings.IndexAny(content, "[{")
	if start < 0 {
		return content
	}
	closer := byte('}')
	if content[start] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(content, closer)
	if end < start {
		return content[start:]
	}
	return content[start : end+1]
}

// extractionItem is one element of the extraction answer. Amount shadows the
// embedded field so that one oddly typed amount cannot fail the whole answer.
type extractionItem struct {
	Index  *int          `json:"index"`
	Amount lenientAmount `json:"amount"`
	model.ExtractionResult
}

// lenientAmount accepts 15000, 15000.0, "15000", "15,000" and "15,000원".
// Anything else decodes as 0.
type lenientAmount int

func (a *lenientAmount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*a = 0
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = lenientAmount(extraction.ParseAmount(s))
	default:
		f, err := strconv.ParseFloat(string(data), 64)
		if err != nil || f > math.MaxInt32 {
			*a = 0
			return nil
		}
		*a = lenientAmount(math.Round(f))
	}
	return nil
}

// parseExtractions maps the LLM answer onto n input slots. Items are placed by
// their "index" field when present and by position otherwise; slots without a
// usable item stay nil.
func parseExtractions(content string, n int) ([]*model.ExtractionResult, error) {
	content = cleanMarkdownWrapper(content)

	var items []extractionItem
	if strings.HasPrefix(content, "{") {
		var single extractionItem
		if err := json.Unmarshal([]byte(content), &single); err != nil {
			return nil, fmt.Errorf("failed to parse JSON response: %w", err)
		}
		items = []extractionItem{single}
	} else if err := json.Unmarshal([]byte(content), &items); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	results := make([]*model.ExtractionResult, n)
	for pos, item := range items {
		idx := pos
		if item.Index != nil {
			idx = *item.Index
		}
		if idx < 0 || idx >= n || results[idx] != nil {
			continue
		}
		r := item.ExtractionResult
		r.Amount = int(item.Amount)
		r.StoreName = strings.TrimSpace(r.StoreName)
		r.CardName = strings.TrimSpace(r.CardName)
		r.Category = strings.TrimSpace(r.Category)
		if r.Amount < 0 {
			r.Amount = 0
		}
		results[idx] = &r
	}
	return results, nil
}

// parseRegexTriple decodes a regex generation answer. The amount regex is
// required.
func parseRegexTriple(content string) (*model.RegexTriple, error) {
	content = cleanMarkdownWrapper(content)

	var triple model.RegexTriple
	if err := json.Unmarshal([]byte(content), &triple); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}
	triple.AmountRegex = strings.TrimSpace(triple.AmountRegex)
	triple.StoreRegex = strings.TrimSpace(triple.StoreRegex)
	triple.CardRegex = strings.TrimSpace(triple.CardRegex)
	if triple.AmountRegex == "" {
		return nil, fmt.Errorf("no amount regex in response")
	}
	return &triple, nil
}
