package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/hsh7097/MoneyTalk-sub002/internal/common"
	"github.com/hsh7097/MoneyTalk-sub002/internal/filter"
	"github.com/hsh7097/MoneyTalk-sub002/internal/metrics"
	"github.com/hsh7097/MoneyTalk-sub002/internal/model"
	"github.com/hsh7097/MoneyTalk-sub002/internal/service"
)

// Pipeline stages, as reported to a ProgressFunc and to stage_duration_seconds.
const (
	StageFiltering        = "filtering"
	StageCacheMatching    = "cache_matching"
	StageGrouping         = "grouping"
	StageLLMAnalysis      = "llm_analysis"
	StageRegexSynthesis   = "regex_synthesis"
	StageMemberExtraction = "member_extraction"
	StagePersisted        = "persisted"
)

// Dependencies are the collaborators a Pipeline needs. Telemetry, Filter,
// Logger and Now are optional.
type Dependencies struct {
	Store     service.PatternStore
	Embedder  service.Embedder
	Extractor service.LLMExtractor
	Telemetry service.TelemetryCollector
	Filter    *filter.Filter
	Logger    *slog.Logger
	Now       func() time.Time
}

// Pipeline classifies SMS batches and learns patterns from them. It is safe
// for concurrent use; the regex cooldown map and the uploaded sample list are
// shared across runs for the lifetime of the Pipeline.
type Pipeline struct {
	store     service.PatternStore
	embedder  service.Embedder
	extractor service.LLMExtractor
	telemetry service.TelemetryCollector
	filter    *filter.Filter
	logger    *slog.Logger
	now       func() time.Time
	cooldown  *regexCooldown
	uploads   *uploadTracker
	opts      Options
	uploadWG  sync.WaitGroup
}

// Summary describes one ProcessBatch run.
type Summary struct {
	Total            int
	Filtered         int
	CacheHits        int
	CacheRejected    int
	Skipped          int // embedding failed, item dropped for this run
	Clusters         int
	LLMCalls         int
	RegexCalls       int
	Accepted         int
	Rejected         int
	PatternsInserted int
	StoreErrors      int
	Duration         time.Duration
}

// NewPipeline validates opts and wires the collaborators.
func NewPipeline(deps Dependencies, opts Options) (*Pipeline, error) {
	if deps.Store == nil || deps.Embedder == nil || deps.Extractor == nil {
		return nil, fmt.Errorf("%w: pipeline needs a store, an embedder and an extractor", common.ErrMissingConfig)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if deps.Filter == nil {
		deps.Filter = filter.New()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if opts.YieldEvery <= 0 {
		opts.YieldEvery = DefaultOptions().YieldEvery
	}

	return &Pipeline{
		store:     deps.Store,
		embedder:  deps.Embedder,
		extractor: deps.Extractor,
		telemetry: deps.Telemetry,
		filter:    deps.Filter,
		logger:    deps.Logger,
		now:       deps.Now,
		cooldown:  newRegexCooldown(opts.RegexFailThreshold, opts.RegexCooldown, deps.Now),
		uploads:   newUploadTracker(opts.UploadDedupeThreshold),
		opts:      opts,
	}, nil
}

// Options returns the options the pipeline was built with.
func (p *Pipeline) Options() Options {
	return p.opts
}

// Wait blocks until every telemetry upload started so far has finished.
func (p *Pipeline) Wait() {
	p.uploadWG.Wait()
}

// indexedResult keeps an accepted result next to its input position so the
// output can be returned in input order.
type indexedResult struct {
	model.Classified
	index int
}

// ProcessBatch runs msgs through every stage and returns the accepted results
// in input order. maxCount <= 0 processes every message. Per-item and
// per-cluster failures degrade that item and never fail the batch; the error
// is non-nil only when ctx is canceled, in which case the partial results
// gathered so far are returned with it.
func (p *Pipeline) ProcessBatch(ctx context.Context, msgs []model.Message, maxCount int, progress service.ProgressFunc) ([]model.Classified, *Summary, error) {
	start := time.Now()
	if maxCount > 0 && len(msgs) > maxCount {
		msgs = msgs[:maxCount]
	}
	summary := &Summary{Total: len(msgs)}
	var results []indexedResult

	finish := func(err error) ([]model.Classified, *Summary, error) {
		sort.SliceStable(results, func(i, j int) bool { return results[i].index < results[j].index })
		out := make([]model.Classified, len(results))
		for i, r := range results {
			out[i] = r.Classified
		}
		summary.Accepted = len(out)
		summary.Duration = time.Since(start)
		p.logger.Info("Batch classification complete",
			"total", summary.Total,
			"filtered", summary.Filtered,
			"cache_hits", summary.CacheHits,
			"cache_rejected", summary.CacheRejected,
			"clusters", summary.Clusters,
			"llm_calls", summary.LLMCalls,
			"regex_calls", summary.RegexCalls,
			"accepted", summary.Accepted,
			"patterns_inserted", summary.PatternsInserted,
			"duration", summary.Duration)
		return out, summary, err
	}

	if len(msgs) == 0 {
		return finish(nil)
	}

	candidates := p.filterMessages(msgs, summary)
	report(progress, StageFiltering, len(msgs), len(msgs))
	if err := ctx.Err(); err != nil {
		return finish(err)
	}

	hits, misses := p.matchCache(ctx, candidates, summary, progress)
	results = append(results, hits...)
	if err := ctx.Err(); err != nil {
		return finish(err)
	}

	clusters := p.groupCandidates(misses)
	summary.Clusters = len(clusters)
	report(progress, StageGrouping, len(misses), len(misses))

	done := 0
	for begin := 0; begin < len(clusters); begin += p.opts.LLMBatchSize {
		if err := ctx.Err(); err != nil {
			return finish(err)
		}
		end := min(begin+p.opts.LLMBatchSize, len(clusters))
		batch := clusters[begin:end]

		resolutions := p.analyzeClusters(ctx, batch, summary)
		if err := ctx.Err(); err != nil {
			return finish(err)
		}
		p.synthesizeRegexes(ctx, batch, resolutions, summary)

		stageStart := time.Now()
		for i, c := range batch {
			accepted, ref := p.extractMembers(c, resolutions[i])
			results = append(results, accepted...)
			summary.Rejected += len(c.members) - len(accepted)
			p.persist(ctx, c, resolutions[i], ref, len(accepted) > 0, summary)
		}
		metrics.ObserveStage(StageMemberExtraction, stageStart)

		done += len(batch)
		report(progress, StageLLMAnalysis, done, len(clusters))
	}
	report(progress, StagePersisted, len(clusters), len(clusters))

	return finish(nil)
}

// filterMessages applies the pre-filter and returns the surviving messages.
func (p *Pipeline) filterMessages(msgs []model.Message, summary *Summary) []candidate {
	defer metrics.ObserveStage(StageFiltering, time.Now())

	out := make([]candidate, 0, len(msgs))
	for i, msg := range msgs {
		if reason := p.filter.Check(msg.Body); reason != filter.ReasonNone {
			summary.Filtered++
			metrics.Messages.WithLabelValues(metrics.OutcomeFiltered).Inc()
			p.logger.Debug("Message filtered", "message_id", msg.ID, "reason", reason)
			continue
		}
		out = append(out, candidate{msg: msg, index: i})
	}
	return out
}

func report(progress service.ProgressFunc, stage string, done, total int) {
	if progress != nil {
		progress(stage, done, total)
	}
}

// isCanceled reports whether err came from context cancellation.
func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
