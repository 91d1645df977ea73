package engine

import (
	"context"

	"github.com/hsh7097/MoneyTalk-sub002/internal/embedding"
	"github.com/hsh7097/MoneyTalk-sub002/internal/extraction"
	"github.com/hsh7097/MoneyTalk-sub002/internal/filter"
	"github.com/hsh7097/MoneyTalk-sub002/internal/metrics"
	"github.com/hsh7097/MoneyTalk-sub002/internal/model"
)

// ClassifySingle classifies one incoming message using only the filter and
// the pattern cache, falling back to heuristic extraction on a miss. It never
// clusters or calls the LLM. A nil result means the message is not a payment
// or no amount could be found; the error is non-nil only when ctx is done.
func (p *Pipeline) ClassifySingle(ctx context.Context, msg model.Message) (*model.AnalysisResult, error) {
	if reason := p.filter.Check(msg.Body); reason != filter.ReasonNone {
		metrics.Messages.WithLabelValues(metrics.OutcomeFiltered).Inc()
		return nil, nil
	}

	template := embedding.Templatize(msg.Body)
	emb, err := embedding.EmbedOne(ctx, p.embedder, template)
	if err != nil || emb == nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		p.logger.Warn("Embedding failed, using heuristic extraction", "message_id", msg.ID, "error", err)
		return extraction.ParseHeuristic(msg), nil
	}

	cache, _ := p.loadCache(ctx)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d := p.decide(cache, emb)
	switch {
	case d.rejected:
		metrics.Messages.WithLabelValues(metrics.OutcomeCacheRejected).Inc()
		p.touch(ctx, d.match.Pattern)
		return nil, nil
	case d.match != nil:
		result := p.resolveHit(msg, d.match)
		p.touch(ctx, d.match.Pattern)
		if result != nil {
			metrics.Messages.WithLabelValues(metrics.OutcomeCacheHit).Inc()
		}
		return result, nil
	default:
		return extraction.ParseHeuristic(msg), nil
	}
}
