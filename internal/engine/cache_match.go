package engine

import (
	"context"
	"time"

	"github.com/hsh7097/MoneyTalk-sub002/internal/embedding"
	"github.com/hsh7097/MoneyTalk-sub002/internal/extraction"
	"github.com/hsh7097/MoneyTalk-sub002/internal/metrics"
	"github.com/hsh7097/MoneyTalk-sub002/internal/model"
	"github.com/hsh7097/MoneyTalk-sub002/internal/service"
	"github.com/hsh7097/MoneyTalk-sub002/internal/similarity"
)

// candidate is a message that survived filtering. The template and embedding
// are computed once and carried through every later stage.
type candidate struct {
	msg       model.Message
	template  string
	sender    string
	embedding []float32
	index     int
}

// patternCache is the snapshot of learned patterns a run matches against.
type patternCache struct {
	payment    []model.Pattern
	nonPayment []model.Pattern
}

// loadCache reads both pattern sets. A read failure is logged and leaves that
// set empty.
func (p *Pipeline) loadCache(ctx context.Context) (patternCache, int) {
	var cache patternCache
	failures := 0

	payment, err := p.store.GetAllPaymentPatterns(ctx)
	if err != nil {
		failures++
		p.logger.Error("Failed to load payment patterns, continuing with empty cache", "error", err)
	} else {
		cache.payment = payment
	}

	nonPayment, err := p.store.GetAllNonPaymentPatterns(ctx)
	if err != nil {
		failures++
		p.logger.Error("Failed to load non-payment patterns, continuing without them", "error", err)
	} else {
		cache.nonPayment = nonPayment
	}

	return cache, failures
}

// cacheDecision is the outcome of matching one embedding against the cache.
type cacheDecision struct {
	match    *similarity.Match
	rejected bool // matched a learned non-payment pattern
}

// decide matches emb against the cache. A non-payment pattern wins only when
// it clears the confirm threshold and beats the best payment similarity.
func (p *Pipeline) decide(cache patternCache, emb []float32) cacheDecision {
	confirm := p.opts.Profile.Confirm
	payHit := similarity.FindBestMatch(emb, cache.payment, confirm)
	nonHit := similarity.FindBestMatch(emb, cache.nonPayment, confirm)

	if nonHit != nil && (payHit == nil || nonHit.Similarity > payHit.Similarity) {
		return cacheDecision{match: nonHit, rejected: true}
	}
	if payHit != nil {
		return cacheDecision{match: payHit}
	}
	return cacheDecision{}
}

// resolveHit extracts msg with the matched pattern. Confidence is kept as
// stored above the auto-apply threshold and scaled by similarity below it.
func (p *Pipeline) resolveHit(msg model.Message, match *similarity.Match) *model.AnalysisResult {
	result := extraction.ParseWithPattern(msg, match.Pattern)
	if result == nil {
		return nil
	}
	if !p.opts.Profile.ShouldAutoApply(match.Similarity) {
		result.Confidence *= match.Similarity
	}
	return result
}

func (p *Pipeline) touch(ctx context.Context, pattern *model.Pattern) {
	if err := p.store.IncrementMatchCount(ctx, pattern.ID, p.now()); err != nil {
		p.logger.Error("Failed to increment pattern match count", "pattern_id", pattern.ID, "error", err)
	}
}

// matchCache templatizes and embeds every candidate, resolves cache hits, and
// returns the remaining misses with their embeddings attached.
func (p *Pipeline) matchCache(ctx context.Context, items []candidate, summary *Summary, progress service.ProgressFunc) ([]indexedResult, []candidate) {
	defer metrics.ObserveStage(StageCacheMatching, time.Now())

	if len(items) == 0 {
		return nil, nil
	}

	cache, failures := p.loadCache(ctx)
	summary.StoreErrors += failures

	for i := range items {
		items[i].template = embedding.Templatize(items[i].msg.Body)
		items[i].sender = embedding.NormalizeAddress(items[i].msg.SenderAddress)
	}
	p.embedCandidates(ctx, items, progress)

	var hits []indexedResult
	misses := make([]candidate, 0, len(items))
	for _, item := range items {
		if item.embedding == nil {
			summary.Skipped++
			continue
		}

		d := p.decide(cache, item.embedding)
		switch {
		case d.rejected:
			summary.CacheRejected++
			metrics.Messages.WithLabelValues(metrics.OutcomeCacheRejected).Inc()
			p.touch(ctx, d.match.Pattern)

		case d.match != nil:
			result := p.resolveHit(item.msg, d.match)
			p.touch(ctx, d.match.Pattern)
			if result == nil {
				summary.Rejected++
				metrics.Messages.WithLabelValues(metrics.OutcomeRejected).Inc()
				p.logger.Debug("Cache hit without a resolvable amount",
					"message_id", item.msg.ID, "pattern_id", d.match.Pattern.ID)
				continue
			}
			summary.CacheHits++
			metrics.Messages.WithLabelValues(metrics.OutcomeCacheHit).Inc()
			hits = append(hits, indexedResult{
				Classified: model.Classified{Message: item.msg, Result: *result},
				index:      item.index,
			})

		default:
			if p.opts.Profile.ShouldReject(similarity.BestSimilarity(item.embedding, cache.payment).Similarity) {
				metrics.CacheNovel.Inc()
			}
			misses = append(misses, item)
		}
	}

	p.logger.Info("Cache matching complete",
		"candidates", len(items),
		"hits", summary.CacheHits,
		"rejected", summary.CacheRejected,
		"misses", len(misses))
	return hits, misses
}

// embedCandidates embeds templates in chunks on the embedding pool. A failed
// chunk leaves its items without an embedding.
func (p *Pipeline) embedCandidates(ctx context.Context, items []candidate, progress service.ProgressFunc) {
	size := p.opts.EmbeddingChunkSize
	chunks := (len(items) + size - 1) / size
	completed := make(chan int, chunks)

	runBounded(ctx, chunks, p.opts.EmbeddingConcurrency, func(c int) {
		begin := c * size
		end := min(begin+size, len(items))
		templates := make([]string, end-begin)
		for i := range templates {
			templates[i] = items[begin+i].template
		}

		vectors, err := p.embedder.EmbedBatch(ctx, templates)
		if err != nil {
			p.logger.Warn("Embedding chunk failed, skipping its messages",
				"chunk", c, "size", len(templates), "error", err)
			completed <- len(templates)
			return
		}
		for i := range templates {
			if i < len(vectors) && len(vectors[i]) > 0 {
				items[begin+i].embedding = vectors[i]
			}
		}
		completed <- len(templates)
	})
	close(completed)

	done := 0
	for n := range completed {
		done += n
		report(progress, StageCacheMatching, done, len(items))
	}
}
