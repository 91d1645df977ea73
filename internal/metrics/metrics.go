// Package metrics provides Prometheus collectors for the classification pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "smspay"
	subsystem = "pipeline"
)

// Message outcomes.
const (
	OutcomeFiltered      = "filtered"
	OutcomeCacheHit      = "cache_hit"
	OutcomeCacheRejected = "cache_rejected"
	OutcomeAccepted      = "accepted"
	OutcomeRejected      = "rejected"
)

// Regex generation results.
const (
	RegexSuccess          = "success"
	RegexFailure          = "failure"
	RegexCooldownSkip     = "cooldown_skip"
	RegexTemplateFallback = "template_fallback"
	RegexNone             = "none"
)

// Telemetry upload results.
const (
	UploadSent         = "sent"
	UploadDeduplicated = "deduplicated"
	UploadFailed       = "failed"
)

var (
	// Messages counts messages by terminal outcome.
	// Labels: outcome (filtered, cache_hit, cache_rejected, accepted, rejected)
	Messages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "messages_total",
			Help:      "Total number of processed messages by outcome",
		},
		[]string{"outcome"},
	)

	// LLMCalls counts LLM requests.
	// Labels: operation (extract, regex), result (success, failure)
	LLMCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "llm_calls_total",
			Help:      "Total number of LLM calls by operation and result",
		},
		[]string{"operation", "result"},
	)

	// RegexGeneration counts regex synthesis outcomes per accepted cluster.
	RegexGeneration = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "regex_generation_total",
			Help:      "Total number of regex synthesis outcomes",
		},
		[]string{"result"},
	)

	// PatternsInserted counts newly learned patterns.
	// Labels: kind (payment, non_payment)
	PatternsInserted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "patterns_inserted_total",
			Help:      "Total number of patterns written to the store",
		},
		[]string{"kind"},
	)

	// TelemetryUploads counts sample upload decisions.
	TelemetryUploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "telemetry_uploads_total",
			Help:      "Total number of telemetry sample upload decisions",
		},
		[]string{"result"},
	)

	// StageDuration tracks how long each pipeline stage takes.
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "stage_duration_seconds",
			Help:      "Duration of pipeline stages in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	// CacheNovel counts cache misses whose best similarity was at or below the
	// profile reject threshold.
	CacheNovel = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cache_novel_total",
			Help:      "Total number of cache misses with no remotely similar pattern",
		},
	)
)

// ObserveStage records the time elapsed since start for stage.
func ObserveStage(stage string, start time.Time) {
	StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// PatternKind returns the patterns_inserted_total label for a pattern.
func PatternKind(isPayment bool) string {
	if isPayment {
		return "payment"
	}
	return "non_payment"
}
