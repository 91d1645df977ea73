package similarity

import (
	"math"
	"testing"

	"github.com/hsh7097/MoneyTalk-sub002/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{name: "identical", a: []float32{1, 2, 3}, b: []float32{1, 2, 3}, want: 1},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 0},
		{name: "opposite", a: []float32{1, 0}, b: []float32{-1, 0}, want: -1},
		{name: "zero vector", a: []float32{0, 0}, b: []float32{1, 1}, want: 0},
		{name: "dimension mismatch", a: []float32{1}, b: []float32{1, 0}, want: 0},
		{name: "empty", a: nil, b: nil, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CosineSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestCosineSimilarity_SelfIsOne(t *testing.T) {
	vectors := [][]float32{
		{0.1, 0.2, 0.3},
		{3, -4},
		{0.333, 0.777, -0.12, 5.5},
		{1e-3, 2e-3},
	}
	for _, v := range vectors {
		assert.Equal(t, 1.0, CosineSimilarity(v, v))
	}
}

func TestCosineSimilarity_Symmetric(t *testing.T) {
	a := []float32{0.4, -1.2, 3.3, 0.01}
	b := []float32{2.2, 0.5, -0.7, 1.9}
	assert.Equal(t, CosineSimilarity(a, b), CosineSimilarity(b, a))
}

func TestFindBestMatch(t *testing.T) {
	candidates := []model.Pattern{
		{ID: 1, Embedding: []float32{1, 0}},
		{ID: 2, Embedding: []float32{0.93, float32(math.Sqrt(1 - 0.93*0.93))}},
		{ID: 3, Embedding: []float32{0, 1}},
	}

	t.Run("returns highest above threshold", func(t *testing.T) {
		m := FindBestMatch([]float32{1, 0}, candidates, 0.9)
		require.NotNil(t, m)
		assert.Equal(t, int64(1), m.Pattern.ID)
		assert.Equal(t, 1.0, m.Similarity)
	})

	t.Run("none below threshold", func(t *testing.T) {
		m := FindBestMatch([]float32{-1, 0}, candidates, 0.1)
		assert.Nil(t, m)
	})

	t.Run("never returns below minimum", func(t *testing.T) {
		query := []float32{0.7, 0.7}
		for _, threshold := range []float64{0.1, 0.5, 0.7, 0.9, 0.99} {
			m := FindBestMatch(query, candidates, threshold)
			if m != nil {
				assert.GreaterOrEqual(t, m.Similarity, threshold)
			}
		}
	})

	t.Run("ties keep first", func(t *testing.T) {
		dup := []model.Pattern{
			{ID: 10, Embedding: []float32{1, 1}},
			{ID: 11, Embedding: []float32{2, 2}},
		}
		m := FindBestMatch([]float32{1, 1}, dup, 0.5)
		require.NotNil(t, m)
		assert.Equal(t, int64(10), m.Pattern.ID)
	})

	t.Run("empty candidates", func(t *testing.T) {
		assert.Nil(t, FindBestMatch([]float32{1}, nil, 0))
	})
}

func TestPackEmbedding_RoundTrip(t *testing.T) {
	v := []float32{0.5, -1.25, 3.75}
	assert.Equal(t, v, UnpackEmbedding(PackEmbedding(v)))
}
