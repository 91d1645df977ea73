package llm

import (
	"context"
	"time"
)

// Client defines the interface for LLM providers.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Request is a single system + user prompt exchange.
type Request struct {
	System    string
	Prompt    string
	MaxTokens int
}

// Config holds configuration for the LLM client and extractor.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string
	MaxRetries  int
	RetryDelay  time.Duration
	Timeout     time.Duration
	RateLimit   int // requests per minute
	Temperature float64
	MaxTokens   int
	BatchSize   int
}
