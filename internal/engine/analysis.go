package engine

import (
	"context"
	"time"

	"github.com/hsh7097/MoneyTalk-sub002/internal/extraction"
	"github.com/hsh7097/MoneyTalk-sub002/internal/metrics"
	"github.com/hsh7097/MoneyTalk-sub002/internal/model"
)

// resolution is what the LLM and regex stages decided for one cluster.
type resolution struct {
	extraction *model.ExtractionResult // nil when the call failed
	regex      model.RegexTriple
	source     model.ParseSource
	amount     int // representative amount, LLM first then heuristic
	payment    bool
	called     bool
	regexCall  bool
}

// analyzeClusters makes one extraction call per cluster representative on the
// LLM pool. A failed call leaves that cluster as not-payment.
func (p *Pipeline) analyzeClusters(ctx context.Context, batch []*cluster, summary *Summary) []*resolution {
	defer metrics.ObserveStage(StageLLMAnalysis, time.Now())

	out := make([]*resolution, len(batch))
	for i := range out {
		out[i] = &resolution{source: model.SourceLLM}
	}

	runBounded(ctx, len(batch), p.opts.LLMConcurrency, func(i int) {
		rep := batch[i].rep()
		r := out[i]
		r.called = true

		results, err := p.extractor.ExtractBatch(ctx, []string{rep.msg.Body}, []int64{rep.msg.TimestampMillis})
		if err != nil {
			if !isCanceled(err) {
				p.logger.Warn("LLM analysis failed, treating cluster as non-payment",
					"message_id", rep.msg.ID,
					"cluster_size", len(batch[i].members),
					"error", err)
			}
			return
		}
		if len(results) == 0 || results[0] == nil {
			p.logger.Warn("LLM returned no result for representative",
				"message_id", rep.msg.ID, "cluster_size", len(batch[i].members))
			return
		}

		r.extraction = results[0]
		r.payment = results[0].IsPayment
		if r.payment {
			r.amount = results[0].Amount
			if r.amount <= 0 {
				r.amount = extraction.HeuristicAmount(rep.msg.Body)
			}
		}
	})

	for _, r := range out {
		if r.called {
			summary.LLMCalls++
		}
	}
	return out
}
