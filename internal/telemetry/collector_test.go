package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hsh7097/MoneyTalk-sub002/internal/common"
	"github.com/hsh7097/MoneyTalk-sub002/internal/model"
	"github.com/hsh7097/MoneyTalk-sub002/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPCollector_Upload(t *testing.T) {
	var received service.TelemetrySample
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	c, err := NewHTTPCollector(server.URL, 0, nil)
	require.NoError(t, err)

	err = c.Upload(context.Background(), service.TelemetrySample{
		MaskedBody:    "김철수님 승인 5,000원",
		CardName:      "KB국민카드",
		SenderAddress: "15881688",
		Source:        model.SourceLLMRegex,
		Regex:         &model.RegexTriple{AmountRegex: `([\d,]+)원`},
	})
	require.NoError(t, err)

	assert.Len(t, received.ID, 26)
	assert.Equal(t, "***님 승인 5,000원", received.MaskedBody)
	assert.Equal(t, model.SourceLLMRegex, received.Source)
	require.NotNil(t, received.Regex)
	assert.Equal(t, `([\d,]+)원`, received.Regex.AmountRegex)
}

func TestHTTPCollector_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c, err := NewHTTPCollector(server.URL, 0, nil)
	require.NoError(t, err)

	err = c.Upload(context.Background(), service.TelemetrySample{ID: "fixed"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrExternalService))

	_, err = NewHTTPCollector("", 0, nil)
	assert.ErrorIs(t, err, common.ErrMissingConfig)
}
