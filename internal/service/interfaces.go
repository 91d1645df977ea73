// Package service defines the contracts between the classification core and its collaborators.
package service

import (
	"context"
	"time"

	"github.com/hsh7097/MoneyTalk-sub002/internal/model"
)

// PatternStore is the persistence contract for learned patterns.
// The core treats it as authoritative and keeps no state across restarts.
type PatternStore interface {
	GetAllPaymentPatterns(ctx context.Context) ([]model.Pattern, error)
	GetAllNonPaymentPatterns(ctx context.Context) ([]model.Pattern, error)
	Insert(ctx context.Context, pattern *model.Pattern) (int64, error)
	IncrementMatchCount(ctx context.Context, id int64, matchedAt time.Time) error
}

// Embedder produces template embeddings.
// EmbedBatch returns one entry per input; a nil entry marks a per-item failure.
type Embedder interface {
	EmbedBatch(ctx context.Context, templates []string) ([][]float32, error)
	ModelName() string
}

// LLMExtractor is the expensive language-model collaborator.
// ExtractBatch returns one entry per body; a nil entry marks a per-item failure.
type LLMExtractor interface {
	ExtractBatch(ctx context.Context, bodies []string, timestamps []int64) ([]*model.ExtractionResult, error)
	GenerateRegexForGroup(ctx context.Context, sampleBodies []string, sampleTimestamps []int64) (*model.RegexTriple, error)
}

// TelemetrySample is a PII-masked message body uploaded for offline regex curation.
type TelemetrySample struct {
	Regex         *model.RegexTriple `json:"regex,omitempty"`
	ID            string             `json:"id"`
	MaskedBody    string             `json:"masked_body"`
	CardName      string             `json:"card_name"`
	SenderAddress string             `json:"sender_address"`
	Source        model.ParseSource  `json:"source"`
}

// TelemetryCollector receives samples. Uploads are best-effort.
type TelemetryCollector interface {
	Upload(ctx context.Context, sample TelemetrySample) error
}

// MessageSource yields raw messages to classify.
type MessageSource interface {
	Messages(ctx context.Context) ([]model.Message, error)
}

// ProgressFunc reports pipeline progress as (stage, done, total).
type ProgressFunc func(stage string, done, total int)

// RetryOptions configures retry behavior for external calls.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// WithDefaults fills unset fields with sensible values.
func (o RetryOptions) WithDefaults() RetryOptions {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.InitialDelay <= 0 {
		o.InitialDelay = 100 * time.Millisecond
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = 30 * time.Second
	}
	if o.Multiplier <= 0 {
		o.Multiplier = 2.0
	}
	return o
}
