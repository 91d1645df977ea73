package model

import "time"

// Pattern is a learned message format, keyed by its template embedding.
type Pattern struct {
	CreatedAt      time.Time   `json:"created_at"`
	LastMatchedAt  time.Time   `json:"last_matched_at"`
	Template       string      `json:"template"`
	SenderAddress  string      `json:"sender_address"`
	ParsedStore    string      `json:"parsed_store"`
	ParsedCard     string      `json:"parsed_card"`
	ParsedCategory string      `json:"parsed_category"`
	AmountRegex    string      `json:"amount_regex,omitempty"`
	StoreRegex     string      `json:"store_regex,omitempty"`
	CardRegex      string      `json:"card_regex,omitempty"`
	ParseSource    ParseSource `json:"parse_source"`
	Embedding      []float32   `json:"-"`
	ID             int64       `json:"id"`
	ParsedAmount   int         `json:"parsed_amount"`
	MatchCount     int         `json:"match_count"`
	Confidence     float64     `json:"confidence"`
	IsPayment      bool        `json:"is_payment"`
}

// HasRegex reports whether the pattern carries a stored amount regex.
func (p Pattern) HasRegex() bool {
	return p.AmountRegex != ""
}

// Regexes returns the stored regex triple.
func (p Pattern) Regexes() RegexTriple {
	return RegexTriple{
		AmountRegex: p.AmountRegex,
		StoreRegex:  p.StoreRegex,
		CardRegex:   p.CardRegex,
	}
}
