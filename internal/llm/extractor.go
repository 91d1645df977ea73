package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hsh7097/MoneyTalk-sub002/internal/common"
	"github.com/hsh7097/MoneyTalk-sub002/internal/metrics"
	"github.com/hsh7097/MoneyTalk-sub002/internal/model"
	"github.com/hsh7097/MoneyTalk-sub002/internal/service"
	"golang.org/x/time/rate"
)

// Compile-time interface check
var _ service.LLMExtractor = (*Extractor)(nil)

const defaultBatchSize = 10

// Extractor implements service.LLMExtractor on top of a Client.
type Extractor struct {
	client      Client
	logger      *slog.Logger
	rateLimiter *rate.Limiter
	retryOpts   service.RetryOptions
	batchSize   int
}

// NewExtractor creates an extractor for the configured provider.
func NewExtractor(cfg Config, logger *slog.Logger) (*Extractor, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	return NewExtractorWithClient(client, cfg, logger), nil
}

// NewExtractorWithClient wraps an existing client.
func NewExtractorWithClient(client Client, cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	retryOpts := service.RetryOptions{
		MaxAttempts:  cfg.MaxRetries,
		InitialDelay: cfg.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
	if retryOpts.InitialDelay == 0 {
		retryOpts.InitialDelay = time.Second
	}

	return &Extractor{
		client:      client,
		logger:      logger,
		rateLimiter: newRateLimiter(cfg.RateLimit),
		retryOpts:   retryOpts,
		batchSize:   batchSize,
	}
}

// ExtractBatch asks the LLM to judge every body. Bodies are sent in chunks of
// the configured batch size; a failed chunk leaves nil entries and does not
// affect the others. An error is returned only when every chunk failed.
func (e *Extractor) ExtractBatch(ctx context.Context, bodies []string, timestamps []int64) ([]*model.ExtractionResult, error) {
	results := make([]*model.ExtractionResult, len(bodies))
	if len(bodies) == 0 {
		return results, nil
	}

	var lastErr error
	failed := 0
	chunks := 0
	for start := 0; start < len(bodies); start += e.batchSize {
		end := min(start+e.batchSize, len(bodies))
		chunks++

		var ts []int64
		if start < len(timestamps) {
			ts = timestamps[start:min(end, len(timestamps))]
		}

		chunk, err := e.extractChunk(ctx, bodies[start:end], ts)
		if err != nil {
			failed++
			lastErr = err
			e.logger.Warn("LLM extraction failed",
				"chunk_start", start,
				"chunk_size", end-start,
				"error", err)
			continue
		}
		copy(results[start:end], chunk)
	}

	if failed == chunks {
		return results, common.ExternalError("llm extract", lastErr)
	}
	return results, nil
}

func (e *Extractor) extractChunk(ctx context.Context, bodies []string, timestamps []int64) ([]*model.ExtractionResult, error) {
	req := Request{
		System: extractSystemPrompt,
		Prompt: buildExtractPrompt(bodies, timestamps),
	}
	results, err := call(ctx, e, "extract", req, func(content string) ([]*model.ExtractionResult, error) {
		return parseExtractions(content, len(bodies))
	})
	return results, err
}

// GenerateRegexForGroup asks the LLM for a regex triple covering the samples.
func (e *Extractor) GenerateRegexForGroup(ctx context.Context, sampleBodies []string, sampleTimestamps []int64) (*model.RegexTriple, error) {
	if len(sampleBodies) == 0 {
		return nil, fmt.Errorf("%w: no sample bodies", common.ErrMalformedInput)
	}
	req := Request{
		System: regexSystemPrompt,
		Prompt: buildRegexPrompt(sampleBodies, sampleTimestamps),
	}
	triple, err := call(ctx, e, "regex", req, parseRegexTriple)
	if err != nil {
		return nil, common.ExternalError("llm regex", err)
	}
	return triple, nil
}

// call sends and parses one request with retry. Every attempt takes a
// rate limiter token. Unparseable answers are retried like transport failures.
func call[T any](ctx context.Context, e *Extractor, operation string, req Request, parse func(string) (T, error)) (T, error) {
	var zero T
	value, err := common.Retry(ctx, func() (T, error) {
		if err := e.rateLimiter.Wait(ctx); err != nil {
			return zero, &common.RetryableError{Err: fmt.Errorf("rate limiter error: %w", err), Retryable: false}
		}
		content, err := e.client.Complete(ctx, req)
		if err != nil {
			return zero, err
		}
		parsed, err := parse(content)
		if err != nil {
			e.logger.Debug("unparseable LLM answer", "operation", operation, "error", err)
			return zero, err
		}
		return parsed, nil
	}, e.retryOpts)

	result := "success"
	if err != nil {
		result = "failure"
	}
	metrics.LLMCalls.WithLabelValues(operation, result).Inc()
	return value, err
}
