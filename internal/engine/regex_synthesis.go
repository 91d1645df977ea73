package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/hsh7097/MoneyTalk-sub002/internal/common"
	"github.com/hsh7097/MoneyTalk-sub002/internal/extraction"
	"github.com/hsh7097/MoneyTalk-sub002/internal/metrics"
	"github.com/hsh7097/MoneyTalk-sub002/internal/model"
)

// synthesizeRegexes requests a regex triple for each payment cluster whose
// LLM answer carried a positive amount, and falls back to a template-derived
// triple for any payment cluster left without one. A heuristic amount filled
// in after the LLM said 0 does not make a cluster eligible.
func (p *Pipeline) synthesizeRegexes(ctx context.Context, batch []*cluster, resolutions []*resolution, summary *Summary) {
	defer metrics.ObserveStage(StageRegexSynthesis, time.Now())

	var eligible []int
	for i, r := range resolutions {
		if r.payment && r.extraction.Amount > 0 && len(batch[i].members) >= p.opts.MinRegexGroupSize {
			eligible = append(eligible, i)
		}
	}

	runBounded(ctx, len(eligible), p.opts.LLMConcurrency, func(n int) {
		i := eligible[n]
		p.generateRegex(ctx, batch[i], resolutions[i])
	})

	for i, r := range resolutions {
		if r.regexCall {
			summary.RegexCalls++
		}
		if !r.payment || !r.regex.IsEmpty() {
			continue
		}
		c := batch[i]
		if triple, ok := extraction.TemplateRegex(c.rep().template); ok {
			if err := extraction.ValidateTriple(triple, sampleBodies(c, p.opts.RegexSampleSize)); err == nil {
				r.regex = triple
				r.source = model.SourceTemplateRegex
				metrics.RegexGeneration.WithLabelValues(metrics.RegexTemplateFallback).Inc()
				continue
			}
		}
		r.source = model.SourceLLM
		metrics.RegexGeneration.WithLabelValues(metrics.RegexNone).Inc()
	}
}

// generateRegex asks the extractor for a triple unless the template is in
// cooldown. Only a triple that passes validation counts as a success.
func (p *Pipeline) generateRegex(ctx context.Context, c *cluster, r *resolution) {
	template := c.rep().template
	if !p.cooldown.Allow(template) {
		metrics.RegexGeneration.WithLabelValues(metrics.RegexCooldownSkip).Inc()
		p.logger.Debug("Regex generation in cooldown", "template", template)
		return
	}

	bodies := sampleBodies(c, p.opts.RegexSampleSize)
	timestamps := make([]int64, len(bodies))
	for i := range bodies {
		timestamps[i] = c.members[i].msg.TimestampMillis
	}

	r.regexCall = true
	triple, err := p.extractor.GenerateRegexForGroup(ctx, bodies, timestamps)
	if err == nil && triple == nil {
		err = fmt.Errorf("%w: empty regex response", common.ErrExtraction)
	}
	if err == nil {
		err = extraction.ValidateTriple(*triple, bodies)
	}
	if err != nil {
		if isCanceled(err) {
			return
		}
		p.cooldown.RecordFailure(template)
		metrics.RegexGeneration.WithLabelValues(metrics.RegexFailure).Inc()
		p.logger.Warn("Regex generation failed",
			"cluster_size", len(c.members),
			"failures", p.cooldown.failures(template),
			"error", err)
		return
	}

	p.cooldown.RecordSuccess(template)
	metrics.RegexGeneration.WithLabelValues(metrics.RegexSuccess).Inc()
	r.regex = *triple
	r.source = model.SourceLLMRegex
}

func sampleBodies(c *cluster, n int) []string {
	n = min(n, len(c.members))
	bodies := make([]string, n)
	for i := range bodies {
		bodies[i] = c.members[i].msg.Body
	}
	return bodies
}
