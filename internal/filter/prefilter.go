// Package filter rejects messages that cannot be payment notifications before any
// external service is called.
package filter

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Reason explains why a message was filtered out. ReasonNone means it passed.
type Reason string

// Filter outcomes.
const (
	ReasonNone            Reason = ""
	ReasonExcludedKeyword Reason = "excluded_keyword"
	ReasonTooShort        Reason = "too_short"
	ReasonTooLong         Reason = "too_long"
	ReasonNoDigit         Reason = "no_digit"
	ReasonNoAmountDigits  Reason = "no_amount_digits"
	ReasonBareLink        Reason = "bare_link"
	ReasonNoPaymentSignal Reason = "no_payment_signal"
)

// Default body length bounds, in runes.
const (
	DefaultMinLength = 10
	DefaultMaxLength = 400
)

// Non-payment signals: authentication codes, advertising, delivery/survey
// language and generic informational notices.
var defaultExcludedKeywords = []string{
	// authentication
	"인증번호", "인증 번호", "verification code", "one-time password", "passcode",
	// advertising
	"(광고)", "[광고]", "광고)", "무료거부", "수신거부", "이벤트 당첨", "[ad]", "(ad)", "unsubscribe", "promo code",
	// delivery / survey
	"택배", "배송", "배달 완료", "설문", "survey", "delivery", "shipped", "tracking number",
	// informational notices
	"결제예정", "결제 예정", "청구예정", "명세서", "이용대금 안내", "한도 안내", "statement is ready", "payment due",
}

var defaultPaymentKeywords = []string{
	"승인", "결제", "사용", "출금", "일시불", "할부", "체크", "approved", "purchase", "spent", "charged", "payment",
}

// Keywords that confirm a payment even when a hyperlink is present.
var defaultLinkSafeKeywords = []string{
	"승인", "결제", "approved", "charged",
}

var (
	digitRunPattern     = regexp.MustCompile(`\d{2,}`)
	linkPattern         = regexp.MustCompile(`(?i)(https?://|www\.)\S+`)
	amountCurrencyRegex = regexp.MustCompile(`(?i)(\d[\d,]*\s*(원|krw|usd|달러))|((₩|\$|krw|usd)\s*\d[\d,]*)`)
)

// Filter applies keyword and structural checks. It is pure and safe for concurrent use.
type Filter struct {
	excluded  []string
	payment   []string
	linkSafe  []string
	minLength int
	maxLength int
}

// Option customizes a Filter.
type Option func(*Filter)

// WithLengthBounds overrides the body length bounds.
func WithLengthBounds(minLength, maxLength int) Option {
	return func(f *Filter) {
		f.minLength = minLength
		f.maxLength = maxLength
	}
}

// WithExcludedKeywords adds extra non-payment keywords.
func WithExcludedKeywords(keywords ...string) Option {
	return func(f *Filter) {
		f.excluded = append(f.excluded, lowerAll(keywords)...)
	}
}

// New creates a filter with the default keyword sets.
func New(opts ...Option) *Filter {
	f := &Filter{
		excluded:  lowerAll(defaultExcludedKeywords),
		payment:   lowerAll(defaultPaymentKeywords),
		linkSafe:  lowerAll(defaultLinkSafeKeywords),
		minLength: DefaultMinLength,
		maxLength: DefaultMaxLength,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// IsCandidate reports whether the body may be a payment notification.
func (f *Filter) IsCandidate(body string) bool {
	return f.Check(body) == ReasonNone
}

// Check returns the first reason the body fails, or ReasonNone.
func (f *Filter) Check(body string) Reason {
	lower := strings.ToLower(body)

	if containsAny(lower, f.excluded) {
		return ReasonExcludedKeyword
	}

	length := utf8.RuneCountInString(strings.TrimSpace(body))
	if length < f.minLength {
		return ReasonTooShort
	}
	if length > f.maxLength {
		return ReasonTooLong
	}

	if strings.IndexFunc(body, unicode.IsDigit) < 0 {
		return ReasonNoDigit
	}
	if !digitRunPattern.MatchString(body) {
		return ReasonNoAmountDigits
	}

	if linkPattern.MatchString(body) && !containsAny(lower, f.linkSafe) {
		return ReasonBareLink
	}

	if !containsAny(lower, f.payment) && !amountCurrencyRegex.MatchString(body) {
		return ReasonNoPaymentSignal
	}

	return ReasonNone
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}
