package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hsh7097/MoneyTalk-sub002/internal/engine"
	"github.com/hsh7097/MoneyTalk-sub002/internal/model"
	"github.com/hsh7097/MoneyTalk-sub002/internal/service"
	"github.com/hsh7097/MoneyTalk-sub002/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockClassifier struct {
	single     *model.AnalysisResult
	singleErr  error
	batch      []model.Classified
	batchErr   error
	lastMsg    model.Message
	lastBatch  []model.Message
	lastMax    int
	batchCalls int
}

func (m *mockClassifier) ClassifySingle(_ context.Context, msg model.Message) (*model.AnalysisResult, error) {
	m.lastMsg = msg
	return m.single, m.singleErr
}

func (m *mockClassifier) ProcessBatch(_ context.Context, msgs []model.Message, maxCount int, _ service.ProgressFunc) ([]model.Classified, *engine.Summary, error) {
	m.batchCalls++
	m.lastBatch = msgs
	m.lastMax = maxCount
	if m.batchErr != nil {
		return nil, nil, m.batchErr
	}
	return m.batch, &engine.Summary{Total: len(msgs), Accepted: len(m.batch), Duration: 1500 * time.Millisecond}, nil
}

type mockCounter struct {
	counts storage.PatternCounts
	err    error
}

func (m *mockCounter) CountPatterns(context.Context) (storage.PatternCounts, error) {
	return m.counts, m.err
}

func newTestRouter(c Classifier, counter PatternCounter, apiKey string) http.Handler {
	return NewRouter(NewHandler(c, counter, "text-embedding-3-small", apiKey, "1.2.3"))
}

func do(t *testing.T, h http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		counter := &mockCounter{counts: storage.PatternCounts{Payment: 4, NonPayment: 2}}
		rec := do(t, newTestRouter(&mockClassifier{}, counter, "secret"), http.MethodGet, "/api/v1/health", "")

		require.Equal(t, http.StatusOK, rec.Code)
		var resp HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "healthy", resp.Status)
		assert.Equal(t, "1.2.3", resp.Version)
		assert.Equal(t, "text-embedding-3-small", resp.EmbeddingModel)
		assert.Equal(t, 4, resp.PaymentPatterns)
		assert.Equal(t, 2, resp.NonPaymentPatterns)
	})

	t.Run("store failure", func(t *testing.T) {
		rec := do(t, newTestRouter(&mockClassifier{}, &mockCounter{err: errors.New("locked")}, ""), http.MethodGet, "/api/v1/health", "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	})
}

func TestClassify(t *testing.T) {
	body := `{"id":"m1","address":"15881688","body":"KB국민카드 승인 15,000원 스타벅스","timestamp":1705300200000}`

	t.Run("payment", func(t *testing.T) {
		c := &mockClassifier{single: &model.AnalysisResult{Amount: 15000, StoreName: "스타벅스", Source: model.SourceCache}}
		rec := do(t, newTestRouter(c, &mockCounter{}, ""), http.MethodPost, "/api/v1/classify", body)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp ClassifyResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.IsPayment)
		require.NotNil(t, resp.Result)
		assert.Equal(t, 15000, resp.Result.Amount)
		assert.Equal(t, "15881688", c.lastMsg.SenderAddress)
		assert.Equal(t, int64(1705300200000), c.lastMsg.TimestampMillis)
	})

	t.Run("not a payment", func(t *testing.T) {
		rec := do(t, newTestRouter(&mockClassifier{}, &mockCounter{}, ""), http.MethodPost, "/api/v1/classify", body)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"result":null,"is_payment":false}`, rec.Body.String())
	})

	t.Run("invalid json", func(t *testing.T) {
		rec := do(t, newTestRouter(&mockClassifier{}, &mockCounter{}, ""), http.MethodPost, "/api/v1/classify", `{"body":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var p Problem
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
		assert.Equal(t, "/api/v1/classify", p.Instance)
		assert.Equal(t, problemBase+"bad-request", p.Type)
	})

	t.Run("empty body field", func(t *testing.T) {
		rec := do(t, newTestRouter(&mockClassifier{}, &mockCounter{}, ""), http.MethodPost, "/api/v1/classify", `{"id":"x","body":"  "}`)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("interrupted", func(t *testing.T) {
		c := &mockClassifier{singleErr: context.Canceled}
		rec := do(t, newTestRouter(c, &mockCounter{}, ""), http.MethodPost, "/api/v1/classify", body)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestBatch(t *testing.T) {
	t.Run("returns results and summary", func(t *testing.T) {
		c := &mockClassifier{batch: []model.Classified{
			{Message: model.Message{ID: "a"}, Result: model.AnalysisResult{Amount: 1000}},
		}}
		rec := do(t, newTestRouter(c, &mockCounter{}, ""), http.MethodPost, "/api/v1/batch",
			`{"messages":[{"id":"a","body":"승인 1,000원"},{"id":"b","body":"인증번호 1234"}],"max_count":5}`)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp BatchResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Results, 1)
		assert.Equal(t, "a", resp.Results[0].MessageID)
		assert.Equal(t, 2, resp.Summary.Total)
		assert.Equal(t, 1, resp.Summary.Accepted)
		assert.Equal(t, int64(1500), resp.Summary.DurationMS)
		assert.Equal(t, 5, c.lastMax)
	})

	t.Run("empty batch", func(t *testing.T) {
		c := &mockClassifier{}
		rec := do(t, newTestRouter(c, &mockCounter{}, ""), http.MethodPost, "/api/v1/batch", `{"messages":[]}`)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Zero(t, c.batchCalls)
	})

	t.Run("too many messages", func(t *testing.T) {
		msgs := make([]model.Message, MaxBatchMessages+1)
		payload, err := json.Marshal(BatchRequest{Messages: msgs})
		require.NoError(t, err)

		c := &mockClassifier{}
		rec := do(t, newTestRouter(c, &mockCounter{}, ""), http.MethodPost, "/api/v1/batch", string(payload))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Zero(t, c.batchCalls)
	})
}

func TestAuth(t *testing.T) {
	router := newTestRouter(&mockClassifier{}, &mockCounter{}, "secret")
	body := `{"body":"승인 1,000원"}`

	assert.Equal(t, http.StatusUnauthorized, do(t, router, http.MethodPost, "/api/v1/classify", body).Code)
	assert.Equal(t, http.StatusUnauthorized,
		do(t, router, http.MethodPost, "/api/v1/classify", body, "Authorization", "Bearer wrong").Code)
	assert.Equal(t, http.StatusOK,
		do(t, router, http.MethodPost, "/api/v1/classify", body, "Authorization", "Bearer secret").Code)
	assert.Equal(t, http.StatusOK, do(t, router, http.MethodGet, "/api/v1/health", "").Code, "health is public")
}

func TestMetricsEndpoint(t *testing.T) {
	rec := do(t, newTestRouter(&mockClassifier{}, &mockCounter{}, ""), http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
