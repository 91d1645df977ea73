package model

// ParseSource indicates how an AnalysisResult was produced.
type ParseSource string

const (
	// SourceLLMRegex indicates fields were extracted with a verified LLM-generated regex.
	SourceLLMRegex ParseSource = "llm_regex"
	// SourceTemplateRegex indicates fields were extracted with a regex derived from the template.
	SourceTemplateRegex ParseSource = "template_regex"
	// SourceLLM indicates fields came straight from the LLM response.
	SourceLLM ParseSource = "llm"
	// SourceCache indicates the message matched a previously learned pattern.
	SourceCache ParseSource = "cache"
	// SourceHeuristic indicates fields were derived by keyword/shape heuristics only.
	SourceHeuristic ParseSource = "heuristic"
)

// Confidence tiers for persisted patterns and results.
const (
	ConfidenceVerifiedRegex = 1.0
	ConfidenceTemplateRegex = 0.8
	ConfidenceLLMOnly       = 0.6
	ConfidenceHeuristic     = 0.5
)

// ConfidenceFor returns the confidence tier that belongs to a parse source.
func ConfidenceFor(source ParseSource) float64 {
	switch source {
	case SourceLLMRegex:
		return ConfidenceVerifiedRegex
	case SourceTemplateRegex:
		return ConfidenceTemplateRegex
	case SourceLLM:
		return ConfidenceLLMOnly
	default:
		return ConfidenceHeuristic
	}
}

// AnalysisResult is the structured record extracted from one payment message.
type AnalysisResult struct {
	StoreName  string      `json:"store_name"`
	CardName   string      `json:"card_name"`
	Category   string      `json:"category"`
	DateTime   string      `json:"date_time"`
	Source     ParseSource `json:"source"`
	PatternID  int64       `json:"pattern_id,omitempty"`
	Amount     int         `json:"amount"`
	Confidence float64     `json:"confidence"`
}

// ExtractionResult is the LLM's judgment for a single message.
type ExtractionResult struct {
	StoreName string `json:"storeName"`
	CardName  string `json:"cardName"`
	Category  string `json:"category"`
	DateTime  string `json:"dateTime"`
	Amount    int    `json:"amount"`
	IsPayment bool   `json:"isPayment"`
}

// RegexTriple holds the per-field extraction regexes for one message format.
// Each regex captures its field in group 1.
type RegexTriple struct {
	AmountRegex string `json:"amountRegex"`
	StoreRegex  string `json:"storeRegex"`
	CardRegex   string `json:"cardRegex"`
}

// IsEmpty reports whether no regex is set.
func (r RegexTriple) IsEmpty() bool {
	return r.AmountRegex == "" && r.StoreRegex == "" && r.CardRegex == ""
}
