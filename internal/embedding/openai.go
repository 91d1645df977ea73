package embedding

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultModel is the embedding model used when none is configured.
const DefaultModel = "text-embedding-3-small"

// Compile-time interface check
var _ Embedder = (*OpenAI)(nil)

// EmbeddingsService defines the interface for making embedding API calls.
// This abstraction enables testing without calling the real OpenAI API.
type EmbeddingsService interface {
	New(ctx context.Context, params openai.EmbeddingNewParams, opts ...option.RequestOption) (*openai.CreateEmbeddingResponse, error)
}

// OpenAI implements the embedding service using OpenAI's API.
type OpenAI struct {
	embeddings EmbeddingsService
	model      openai.EmbeddingModel
}

// NewOpenAI creates a new OpenAI embedding service.
func NewOpenAI(apiKey, model string) *OpenAI {
	if model == "" {
		model = DefaultModel
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAI{
		embeddings: client.Embeddings,
		model:      openai.EmbeddingModel(model),
	}
}

// NewOpenAIWithService creates an embedder over a custom embeddings service.
func NewOpenAIWithService(svc EmbeddingsService, model string) *OpenAI {
	if model == "" {
		model = DefaultModel
	}
	return &OpenAI{embeddings: svc, model: openai.EmbeddingModel(model)}
}

// EmbedBatch generates one embedding per template. Blank templates are not sent
// and yield a nil entry.
func (o *OpenAI) EmbedBatch(ctx context.Context, templates []string) ([][]float32, error) {
	out := make([][]float32, len(templates))
	if len(templates) == 0 {
		return out, nil
	}

	inputs := make([]string, 0, len(templates))
	positions := make([]int, 0, len(templates))
	for i, t := range templates {
		if strings.TrimSpace(t) == "" {
			continue
		}
		inputs = append(inputs, t)
		positions = append(positions, i)
	}
	if len(inputs) == 0 {
		return out, nil
	}

	resp, err := o.embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.F[openai.EmbeddingNewParamsInputUnion](
			openai.EmbeddingNewParamsInputArrayOfStrings(inputs),
		),
		Model: openai.F(o.model),
	})
	if err != nil {
		return nil, fmt.Errorf("batch embedding generation failed: %w", err)
	}

	if len(resp.Data) != len(inputs) {
		return nil, fmt.Errorf("batch embedding generation failed: expected %d embeddings, got %d", len(inputs), len(resp.Data))
	}

	// Sort by index to guarantee order matches input
	sort.Slice(resp.Data, func(i, j int) bool {
		return resp.Data[i].Index < resp.Data[j].Index
	})

	for i, data := range resp.Data {
		if len(data.Embedding) == 0 {
			continue
		}
		vector := make([]float32, len(data.Embedding))
		for j, v := range data.Embedding {
			vector[j] = float32(v)
		}
		out[positions[i]] = vector
	}

	return out, nil
}

// ModelName returns the embedding model name.
func (o *OpenAI) ModelName() string {
	return string(o.model)
}
