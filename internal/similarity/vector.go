package similarity

import (
	"encoding/binary"
	"math"

	"github.com/hsh7097/MoneyTalk-sub002/internal/model"
)

// CosineSimilarity computes dot(a,b)/(|a|*|b|).
// It returns 0 when either vector has zero magnitude or the dimensions differ.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	// sqrt(x*x) is exact, so identical vectors score exactly 1.
	sim := dot / math.Sqrt(normA*normB)
	if sim > 1 {
		sim = 1
	} else if sim < -1 {
		sim = -1
	}
	return sim
}

// Match is a search hit with its similarity score.
type Match struct {
	Pattern    *model.Pattern
	Similarity float64
}

// FindBestMatch returns the candidate most similar to query, or nil when the best
// similarity is below minSimilarity. Ties keep the first candidate encountered.
func FindBestMatch(query []float32, candidates []model.Pattern, minSimilarity float64) *Match {
	best := BestSimilarity(query, candidates)
	if best.Pattern == nil || best.Similarity < minSimilarity {
		return nil
	}
	return &best
}

// BestSimilarity returns the most similar candidate regardless of any threshold.
// Pattern is nil when candidates is empty.
func BestSimilarity(query []float32, candidates []model.Pattern) Match {
	best := Match{Similarity: math.Inf(-1)}
	for i := range candidates {
		sim := CosineSimilarity(query, candidates[i].Embedding)
		if sim > best.Similarity {
			best = Match{Pattern: &candidates[i], Similarity: sim}
		}
	}
	if best.Pattern == nil {
		best.Similarity = 0
	}
	return best
}

// PackEmbedding packs float32 values into a little-endian byte slice.
func PackEmbedding(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// UnpackEmbedding unpacks a byte slice produced by PackEmbedding.
func UnpackEmbedding(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
