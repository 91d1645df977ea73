package embedding

import (
	"context"

	"github.com/hsh7097/MoneyTalk-sub002/internal/service"
)

// Embedder is the embedding service contract consumed by the pipeline.
type Embedder = service.Embedder

// EmbedOne embeds a single template, returning nil when the service produced no vector.
func EmbedOne(ctx context.Context, e Embedder, template string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{template})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, nil
	}
	return vectors[0], nil
}
