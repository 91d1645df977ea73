// Package api exposes the real-time classification path and small batch
// uploads over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hsh7097/MoneyTalk-sub002/internal/engine"
	"github.com/hsh7097/MoneyTalk-sub002/internal/model"
	"github.com/hsh7097/MoneyTalk-sub002/internal/service"
	"github.com/hsh7097/MoneyTalk-sub002/internal/storage"
)

// Request limits.
const (
	MaxBatchMessages = 1000
	maxBodyBytes     = 4 << 20
)

// Classifier is the pipeline surface the handlers use.
type Classifier interface {
	ClassifySingle(ctx context.Context, msg model.Message) (*model.AnalysisResult, error)
	ProcessBatch(ctx context.Context, msgs []model.Message, maxCount int, progress service.ProgressFunc) ([]model.Classified, *engine.Summary, error)
}

var _ Classifier = (*engine.Pipeline)(nil)

// PatternCounter reports store size for the health endpoint.
type PatternCounter interface {
	CountPatterns(ctx context.Context) (storage.PatternCounts, error)
}

var _ PatternCounter = (*storage.SQLiteStorage)(nil)

// Handler implements the API handlers.
type Handler struct {
	classifier Classifier
	patterns   PatternCounter
	apiKey     string
	version    string
	modelName  string
}

// NewHandler creates a Handler. An empty apiKey disables authentication.
func NewHandler(c Classifier, patterns PatternCounter, modelName, apiKey, version string) *Handler {
	return &Handler{
		classifier: c,
		patterns:   patterns,
		apiKey:     apiKey,
		version:    version,
		modelName:  modelName,
	}
}

// HealthResponse is returned by GET /api/v1/health.
type HealthResponse struct {
	Status             string `json:"status"`
	Version            string `json:"version"`
	EmbeddingModel     string `json:"embedding_model"`
	PaymentPatterns    int    `json:"payment_patterns"`
	NonPaymentPatterns int    `json:"non_payment_patterns"`
}

// ClassifyResponse is returned by POST /api/v1/classify. Result is null when
// the message is not a payment.
type ClassifyResponse struct {
	Result    *model.AnalysisResult `json:"result"`
	IsPayment bool                  `json:"is_payment"`
}

// BatchRequest is the body of POST /api/v1/batch.
type BatchRequest struct {
	Messages []model.Message `json:"messages"`
	MaxCount int             `json:"max_count,omitempty"`
}

// BatchResult pairs a message ID with its analysis.
type BatchResult struct {
	MessageID string               `json:"message_id"`
	Result    model.AnalysisResult `json:"result"`
}

// BatchSummary reports run counters.
type BatchSummary struct {
	Total            int   `json:"total"`
	Filtered         int   `json:"filtered"`
	CacheHits        int   `json:"cache_hits"`
	CacheRejected    int   `json:"cache_rejected"`
	Skipped          int   `json:"skipped"`
	Clusters         int   `json:"clusters"`
	LLMCalls         int   `json:"llm_calls"`
	RegexCalls       int   `json:"regex_calls"`
	Accepted         int   `json:"accepted"`
	Rejected         int   `json:"rejected"`
	PatternsInserted int   `json:"patterns_inserted"`
	DurationMS       int64 `json:"duration_ms"`
}

// BatchResponse is returned by POST /api/v1/batch.
type BatchResponse struct {
	Results []BatchResult `json:"results"`
	Summary BatchSummary  `json:"summary"`
}

// Health returns the service status and pattern counts.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	counts, err := h.patterns.CountPatterns(r.Context())
	if err != nil {
		slog.Error("health check failed", "error", err)
		WriteProblem(w, r, http.StatusServiceUnavailable, "Pattern store unavailable")
		return
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:             "healthy",
		Version:            h.version,
		EmbeddingModel:     h.modelName,
		PaymentPatterns:    counts.Payment,
		NonPaymentPatterns: counts.NonPayment,
	})
}

// Classify handles POST /api/v1/classify.
func (h *Handler) Classify(w http.ResponseWriter, r *http.Request) {
	var msg model.Message
	if !decodeBody(w, r, &msg) {
		return
	}
	if strings.TrimSpace(msg.Body) == "" {
		WriteProblem(w, r, http.StatusUnprocessableEntity, "body is required")
		return
	}

	result, err := h.classifier.ClassifySingle(r.Context(), msg)
	if err != nil {
		slog.Warn("classification aborted", "message_id", msg.ID, "error", err)
		WriteProblem(w, r, http.StatusServiceUnavailable, "Classification was interrupted")
		return
	}

	writeJSON(w, http.StatusOK, ClassifyResponse{Result: result, IsPayment: result != nil})
}

// Batch handles POST /api/v1/batch.
func (h *Handler) Batch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Messages) == 0 {
		WriteProblem(w, r, http.StatusUnprocessableEntity, "messages must not be empty")
		return
	}
	if len(req.Messages) > MaxBatchMessages {
		WriteProblem(w, r, http.StatusUnprocessableEntity,
			fmt.Sprintf("at most %d messages per batch", MaxBatchMessages))
		return
	}

	results, summary, err := h.classifier.ProcessBatch(r.Context(), req.Messages, req.MaxCount, nil)
	if err != nil {
		slog.Warn("batch aborted", "messages", len(req.Messages), "error", err)
		WriteProblem(w, r, http.StatusServiceUnavailable, "Batch was interrupted")
		return
	}

	resp := BatchResponse{Results: make([]BatchResult, len(results))}
	for i, c := range results {
		resp.Results[i] = BatchResult{MessageID: c.Message.ID, Result: c.Result}
	}
	if summary != nil {
		resp.Summary = BatchSummary{
			Total:            summary.Total,
			Filtered:         summary.Filtered,
			CacheHits:        summary.CacheHits,
			CacheRejected:    summary.CacheRejected,
			Skipped:          summary.Skipped,
			Clusters:         summary.Clusters,
			LLMCalls:         summary.LLMCalls,
			RegexCalls:       summary.RegexCalls,
			Accepted:         summary.Accepted,
			Rejected:         summary.Rejected,
			PatternsInserted: summary.PatternsInserted,
			DurationMS:       summary.Duration.Milliseconds(),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// decodeBody decodes a bounded JSON body into v, writing a problem response
// and returning false on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteProblem(w, r, http.StatusRequestEntityTooLarge, "Request body too large")
			return false
		}
		WriteProblem(w, r, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %s", err.Error()))
		return false
	}
	return true
}
