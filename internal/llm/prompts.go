package llm

import (
	"fmt"
	"strings"
	"time"
)

const extractSystemPrompt = `You analyze card and bank notification text messages (mostly Korean).
For each numbered message decide whether it reports a completed card payment or purchase.
Authentication codes, advertisements, deposits, balance notices, delivery or survey messages are NOT payments.
You MUST respond with ONLY a valid JSON array. Do not include any explanatory text or markdown.`

const regexSystemPrompt = `You write Go (RE2) regular expressions that extract fields from card payment text messages.
Every regex must contain exactly one capture group holding the field value.
Do not use lookahead, lookbehind or backreferences.
You MUST respond with ONLY a valid JSON object. Do not include any explanatory text or markdown.`

// buildExtractPrompt numbers the bodies so the answer can be mapped back by index.
func buildExtractPrompt(bodies []string, timestamps []int64) string {
	var b strings.Builder
	b.WriteString("Messages:\n")
	for i, body := range bodies {
		fmt.Fprintf(&b, "\n[%d]", i)
		if i < len(timestamps) && timestamps[i] > 0 {
			fmt.Fprintf(&b, " (received %s)", time.UnixMilli(timestamps[i]).Format("2006-01-02 15:04"))
		}
		fmt.Fprintf(&b, "\n%s\n", body)
	}
	b.WriteString(`
Respond with one object per message:
[{"index": 0, "isPayment": true, "amount": 15000, "storeName": "스타벅스강남점", "cardName": "KB국민카드", "category": "카페", "dateTime": "2024-01-15 14:30"}]

Rules:
- amount is the charged amount as an integer in won, never a cumulative total or balance
- category is one of: 식비, 카페, 편의점, 마트, 교통, 쇼핑, 의료, 통신, 구독, 기타
- when isPayment is false the other fields may be empty`)
	return b.String()
}

func buildRegexPrompt(bodies []string, timestamps []int64) string {
	var b strings.Builder
	b.WriteString("These messages share one format:\n")
	for i, body := range bodies {
		fmt.Fprintf(&b, "\n--- sample %d", i+1)
		if i < len(timestamps) && timestamps[i] > 0 {
			fmt.Fprintf(&b, " (received %s)", time.UnixMilli(timestamps[i]).Format("2006-01-02 15:04"))
		}
		fmt.Fprintf(&b, "\n%s\n", body)
	}
	b.WriteString(`
Write regexes that work on every sample:
{"amountRegex": "...", "storeRegex": "...", "cardRegex": "..."}

Rules:
- amountRegex captures the charged amount digits (commas allowed), not a cumulative total
- storeRegex captures the merchant name
- cardRegex captures the card or issuer name
- use an empty string for a field that cannot be extracted reliably`)
	return b.String()
}
