package embedding

import (
	"context"
	"errors"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockEmbeddingsService implements EmbeddingsService for testing
type mockEmbeddingsService struct {
	response  *openai.CreateEmbeddingResponse
	err       error
	callCount int
	lastInput []string
}

func (m *mockEmbeddingsService) New(ctx context.Context, params openai.EmbeddingNewParams, _ ...option.RequestOption) (*openai.CreateEmbeddingResponse, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	m.callCount++

	if params.Input.Value != nil {
		if arr, ok := params.Input.Value.(openai.EmbeddingNewParamsInputArrayOfStrings); ok {
			m.lastInput = []string(arr)
		}
	}

	return m.response, m.err
}

func mockResponse(embeddings [][]float64, indices []int64) *openai.CreateEmbeddingResponse {
	data := make([]openai.Embedding, len(embeddings))
	for i, emb := range embeddings {
		data[i] = openai.Embedding{Embedding: emb, Index: indices[i]}
	}
	return &openai.CreateEmbeddingResponse{Data: data}
}

func TestOpenAI_EmbedBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("orders by index and skips blank templates", func(t *testing.T) {
		svc := &mockEmbeddingsService{
			response: mockResponse([][]float64{{0, 1}, {1, 0}}, []int64{1, 0}),
		}
		e := NewOpenAIWithService(svc, "")

		out, err := e.EmbedBatch(ctx, []string{"first {AMOUNT}", "  ", "second {STORE}"})
		require.NoError(t, err)
		require.Len(t, out, 3)

		assert.Equal(t, []string{"first {AMOUNT}", "second {STORE}"}, svc.lastInput)
		assert.Equal(t, []float32{1, 0}, out[0])
		assert.Nil(t, out[1])
		assert.Equal(t, []float32{0, 1}, out[2])
		assert.Equal(t, DefaultModel, e.ModelName())
	})

	t.Run("no call for empty input", func(t *testing.T) {
		svc := &mockEmbeddingsService{}
		e := NewOpenAIWithService(svc, "custom-model")

		out, err := e.EmbedBatch(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, out)
		assert.Equal(t, 0, svc.callCount)
		assert.Equal(t, "custom-model", e.ModelName())
	})

	t.Run("api error", func(t *testing.T) {
		svc := &mockEmbeddingsService{err: errors.New("boom")}
		e := NewOpenAIWithService(svc, "")

		_, err := e.EmbedBatch(ctx, []string{"a"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "boom")
	})

	t.Run("count mismatch", func(t *testing.T) {
		svc := &mockEmbeddingsService{response: mockResponse([][]float64{{1}}, []int64{0})}
		e := NewOpenAIWithService(svc, "")

		_, err := e.EmbedBatch(ctx, []string{"a", "b"})
		assert.Error(t, err)
	})
}

func TestEmbedOne(t *testing.T) {
	svc := &mockEmbeddingsService{response: mockResponse([][]float64{{0.5, 0.5}}, []int64{0})}
	v, err := EmbedOne(context.Background(), NewOpenAIWithService(svc, ""), "x")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.5}, v)
}
