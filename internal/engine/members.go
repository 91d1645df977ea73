package engine

import (
	"github.com/hsh7097/MoneyTalk-sub002/internal/extraction"
	"github.com/hsh7097/MoneyTalk-sub002/internal/metrics"
	"github.com/hsh7097/MoneyTalk-sub002/internal/model"
	"github.com/hsh7097/MoneyTalk-sub002/internal/similarity"
)

// reference holds the representative's resolved fields. Members inherit from
// it and the learned pattern is built from it.
type reference struct {
	store    string
	card     string
	category string
	amount   int
}

// extractMembers resolves every member of a payment cluster independently.
// Members whose amount cannot be resolved are dropped.
func (p *Pipeline) extractMembers(c *cluster, r *resolution) ([]indexedResult, reference) {
	if !r.payment {
		metrics.Messages.WithLabelValues(metrics.OutcomeRejected).Add(float64(len(c.members)))
		return nil, reference{}
	}

	rep := c.rep()
	ref := p.resolveReference(rep, r)
	accepted := make([]indexedResult, 0, len(c.members))

	repResult := extraction.ParseWithRegex(rep.msg, r.regex.AmountRegex, r.regex.StoreRegex, r.regex.CardRegex, extraction.Fallback{
		Amount:     ref.amount,
		StoreName:  ref.store,
		CardName:   ref.card,
		Category:   ref.category,
		DateTime:   r.extraction.DateTime,
		Source:     r.source,
		Confidence: model.ConfidenceFor(r.source),
	})
	if repResult != nil {
		ref.amount = repResult.Amount
		ref.store = repResult.StoreName
		ref.card = repResult.CardName
		ref.category = repResult.Category
		accepted = append(accepted, indexedResult{
			Classified: model.Classified{Message: rep.msg, Result: *repResult},
			index:      rep.index,
		})
	}

	for _, m := range c.members[1:] {
		result := p.extractMember(m, r, ref, similarity.CosineSimilarity(m.embedding, rep.embedding))
		if result == nil {
			continue
		}
		accepted = append(accepted, indexedResult{
			Classified: model.Classified{Message: m.msg, Result: *result},
			index:      m.index,
		})
	}

	metrics.Messages.WithLabelValues(metrics.OutcomeAccepted).Add(float64(len(accepted)))
	metrics.Messages.WithLabelValues(metrics.OutcomeRejected).Add(float64(len(c.members) - len(accepted)))
	return accepted, ref
}

// resolveReference merges the LLM answer with heuristics from the
// representative's own text.
func (p *Pipeline) resolveReference(rep candidate, r *resolution) reference {
	h := extraction.Heuristic(rep.msg.Body)
	ref := reference{
		store:    r.extraction.StoreName,
		card:     r.extraction.CardName,
		category: r.extraction.Category,
		amount:   r.amount,
	}
	if ref.store == "" {
		ref.store = h.StoreName
	}
	if ref.card == "" {
		ref.card = h.CardName
	}
	if ref.category == "" {
		ref.category = extraction.Categorize(ref.store, rep.msg.Body)
	}
	return ref
}

// extractMember applies the cluster regex to one member, or with no regex
// derives its fields from its own text.
func (p *Pipeline) extractMember(m candidate, r *resolution, ref reference, sim float64) *model.AnalysisResult {
	var result *model.AnalysisResult
	if r.regex.IsEmpty() {
		result = extraction.ParseHeuristic(m.msg)
	} else {
		h := extraction.Heuristic(m.msg.Body)
		result = extraction.ParseWithRegex(m.msg, r.regex.AmountRegex, r.regex.StoreRegex, r.regex.CardRegex, extraction.Fallback{
			Amount:     h.Amount,
			StoreName:  h.StoreName,
			CardName:   h.CardName,
			Category:   h.Category,
			Source:     r.source,
			Confidence: model.ConfidenceFor(r.source),
		})
	}
	if result == nil {
		return nil
	}
	if result.CardName == "" {
		result.CardName = ref.card
	}
	result.Category = p.memberCategory(result.StoreName, m.msg.Body, ref, sim)
	return result
}

// memberCategory keeps the representative's category for the same store, and
// otherwise categorizes by keyword, inheriting the representative's category
// only when the keywords find nothing and the member is close enough to
// propagate.
func (p *Pipeline) memberCategory(store, body string, ref reference, sim float64) string {
	if ref.category == "" {
		return extraction.Categorize(store, body)
	}
	if store != "" && store == ref.store {
		return ref.category
	}
	category := extraction.Categorize(store, body)
	if category == extraction.DefaultCategory && p.opts.Profile.ShouldPropagate(sim) {
		return ref.category
	}
	return category
}
