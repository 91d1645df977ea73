// Package engine implements the SMS payment classification pipeline: filtering,
// cache matching, clustering, LLM analysis, regex synthesis, member extraction
// and pattern persistence.
package engine

import (
	"fmt"
	"time"

	"github.com/hsh7097/MoneyTalk-sub002/internal/common"
	"github.com/hsh7097/MoneyTalk-sub002/internal/similarity"
)

// Options configures the pipeline.
type Options struct {
	Profile               similarity.Profile
	MergeFloor            float64       // rep-to-rep similarity needed to absorb a small cluster
	UploadDedupeThreshold float64       // telemetry samples at or above this similarity are skipped
	RegexCooldown         time.Duration // how long a failing template is skipped
	SmallGroupMax         int           // clusters at or below this size are merge candidates
	MinRegexGroupSize     int           // clusters below this size never request an LLM regex
	RegexSampleSize       int           // member bodies sent for regex generation
	RegexFailThreshold    int           // consecutive failures before cooldown
	EmbeddingChunkSize    int
	EmbeddingConcurrency  int
	LLMConcurrency        int
	LLMBatchSize          int // clusters analyzed per LLM stage round
	YieldEvery            int // clustering comparisons between scheduler yields
}

// DefaultOptions returns the tuned SMS defaults.
func DefaultOptions() Options {
	return Options{
		Profile:               similarity.SMSPatternProfile,
		MergeFloor:            0.70,
		UploadDedupeThreshold: 0.99,
		RegexCooldown:         30 * time.Minute,
		SmallGroupMax:         2,
		MinRegexGroupSize:     3,
		RegexSampleSize:       5,
		RegexFailThreshold:    2,
		EmbeddingChunkSize:    100,
		EmbeddingConcurrency:  4,
		LLMConcurrency:        2,
		LLMBatchSize:          10,
		YieldEvery:            256,
	}
}

// Validate checks threshold ranges and pool sizes.
func (o Options) Validate() error {
	if err := o.Profile.Validate(); err != nil {
		return fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}
	for name, v := range map[string]float64{
		"merge_floor":             o.MergeFloor,
		"upload_dedupe_threshold": o.UploadDedupeThreshold,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%w: %s %.2f outside [0,1]", common.ErrInvalidConfig, name, v)
		}
	}
	for name, v := range map[string]int{
		"embedding_chunk_size":  o.EmbeddingChunkSize,
		"embedding_concurrency": o.EmbeddingConcurrency,
		"llm_concurrency":       o.LLMConcurrency,
		"llm_batch_size":        o.LLMBatchSize,
		"regex_sample_size":     o.RegexSampleSize,
		"regex_fail_threshold":  o.RegexFailThreshold,
	} {
		if v <= 0 {
			return fmt.Errorf("%w: %s must be positive", common.ErrInvalidConfig, name)
		}
	}
	if o.SmallGroupMax < 0 || o.MinRegexGroupSize < 0 || o.RegexCooldown < 0 {
		return fmt.Errorf("%w: negative pipeline setting", common.ErrInvalidConfig)
	}
	return nil
}
