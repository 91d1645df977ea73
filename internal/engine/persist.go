package engine

import (
	"context"

	"github.com/hsh7097/MoneyTalk-sub002/internal/metrics"
	"github.com/hsh7097/MoneyTalk-sub002/internal/model"
	"github.com/hsh7097/MoneyTalk-sub002/internal/service"
	"github.com/hsh7097/MoneyTalk-sub002/internal/telemetry"
)

// persist stores what the cluster taught us. Payment clusters with at least
// one accepted member become payment patterns, clusters the LLM explicitly
// judged as non-payment become non-payment patterns, and failed calls store
// nothing. Store errors are logged and never affect the returned results.
func (p *Pipeline) persist(ctx context.Context, c *cluster, r *resolution, ref reference, accepted bool, summary *Summary) {
	if r.extraction == nil {
		return
	}
	rep := c.rep()
	now := p.now()

	pattern := &model.Pattern{
		Template:      rep.template,
		SenderAddress: rep.sender,
		Embedding:     rep.embedding,
		CreatedAt:     now,
		LastMatchedAt: now,
		MatchCount:    1,
	}

	switch {
	case !r.payment:
		pattern.ParseSource = model.SourceLLM
		pattern.Confidence = model.ConfidenceVerifiedRegex
	case accepted:
		pattern.IsPayment = true
		pattern.ParsedAmount = ref.amount
		pattern.ParsedStore = ref.store
		pattern.ParsedCard = ref.card
		pattern.ParsedCategory = ref.category
		pattern.AmountRegex = r.regex.AmountRegex
		pattern.StoreRegex = r.regex.StoreRegex
		pattern.CardRegex = r.regex.CardRegex
		pattern.ParseSource = r.source
		pattern.Confidence = model.ConfidenceFor(r.source)
	default:
		p.logger.Debug("Payment cluster produced no results, not learning it",
			"message_id", rep.msg.ID, "cluster_size", len(c.members))
		return
	}

	id, err := p.store.Insert(ctx, pattern)
	if err != nil {
		summary.StoreErrors++
		p.logger.Error("Failed to persist pattern",
			"sender", rep.sender,
			"is_payment", pattern.IsPayment,
			"error", err)
		return
	}
	pattern.ID = id
	summary.PatternsInserted++
	metrics.PatternsInserted.WithLabelValues(metrics.PatternKind(pattern.IsPayment)).Inc()
	p.logger.Debug("Learned pattern",
		"pattern_id", id,
		"is_payment", pattern.IsPayment,
		"source", pattern.ParseSource,
		"cluster_size", len(c.members),
		"merged", c.merged)

	if pattern.IsPayment {
		p.uploadSample(ctx, rep, pattern)
	}
}

// uploadSample sends a masked copy of the representative to the telemetry
// collector in the background, unless a near-identical sample was already
// sent by this process.
func (p *Pipeline) uploadSample(ctx context.Context, rep candidate, pattern *model.Pattern) {
	if p.telemetry == nil {
		return
	}
	if !p.uploads.Claim(rep.embedding) {
		metrics.TelemetryUploads.WithLabelValues(metrics.UploadDeduplicated).Inc()
		return
	}

	sample := service.TelemetrySample{
		MaskedBody:    telemetry.MaskPII(rep.msg.Body),
		CardName:      pattern.ParsedCard,
		SenderAddress: pattern.SenderAddress,
		Source:        pattern.ParseSource,
	}
	if triple := pattern.Regexes(); !triple.IsEmpty() {
		sample.Regex = &triple
	}

	uploadCtx := context.WithoutCancel(ctx)
	p.uploadWG.Add(1)
	go func() {
		defer p.uploadWG.Done()
		if err := p.telemetry.Upload(uploadCtx, sample); err != nil {
			p.uploads.Release(rep.embedding)
			metrics.TelemetryUploads.WithLabelValues(metrics.UploadFailed).Inc()
			p.logger.Warn("Telemetry upload failed", "sender", sample.SenderAddress, "error", err)
			return
		}
		metrics.TelemetryUploads.WithLabelValues(metrics.UploadSent).Inc()
	}()
}
