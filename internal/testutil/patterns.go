package testutil

import (
	"time"

	"github.com/hsh7097/MoneyTalk-sub002/internal/model"
)

// PatternBuilder provides a fluent interface for constructing test patterns.
type PatternBuilder struct {
	p model.Pattern
}

// NewPattern starts a payment pattern with a verified regex source and a
// unit embedding.
func NewPattern(template string) *PatternBuilder {
	return &PatternBuilder{p: model.Pattern{
		Template:       template,
		SenderAddress:  "15881688",
		Embedding:      []float32{1, 0, 0},
		IsPayment:      true,
		ParsedAmount:   10000,
		ParsedStore:    "테스트상점",
		ParsedCard:     "KB국민카드",
		ParsedCategory: "기타",
		ParseSource:    model.SourceLLMRegex,
		Confidence:     model.ConfidenceVerifiedRegex,
		CreatedAt:      time.Now(),
	}}
}

// WithEmbedding sets the pattern embedding.
func (b *PatternBuilder) WithEmbedding(v ...float32) *PatternBuilder {
	b.p.Embedding = v
	return b
}

// WithSender sets the sender address.
func (b *PatternBuilder) WithSender(address string) *PatternBuilder {
	b.p.SenderAddress = address
	return b
}

// WithRegex sets the stored regex triple.
func (b *PatternBuilder) WithRegex(amount, store, card string) *PatternBuilder {
	b.p.AmountRegex, b.p.StoreRegex, b.p.CardRegex = amount, store, card
	return b
}

// WithFields sets the parsed fields.
func (b *PatternBuilder) WithFields(amount int, store, card, category string) *PatternBuilder {
	b.p.ParsedAmount, b.p.ParsedStore, b.p.ParsedCard, b.p.ParsedCategory = amount, store, card, category
	return b
}

// WithSource sets the parse source and its confidence tier.
func (b *PatternBuilder) WithSource(source model.ParseSource) *PatternBuilder {
	b.p.ParseSource = source
	b.p.Confidence = model.ConfidenceFor(source)
	return b
}

// NonPayment marks the pattern as a learned non-payment format.
func (b *PatternBuilder) NonPayment() *PatternBuilder {
	b.p.IsPayment = false
	b.p.ParsedAmount = 0
	b.p.ParseSource = model.SourceLLM
	b.p.Confidence = model.ConfidenceVerifiedRegex
	return b
}

// Build returns a copy of the configured pattern.
func (b *PatternBuilder) Build() *model.Pattern {
	p := b.p
	p.Embedding = append([]float32(nil), b.p.Embedding...)
	return &p
}
