package engine

import (
	"slices"
	"sync"

	"github.com/hsh7097/MoneyTalk-sub002/internal/similarity"
)

// uploadTracker remembers the embeddings of samples uploaded during the
// process lifetime.
type uploadTracker struct {
	uploaded  [][]float32
	threshold float64
	mu        sync.Mutex
}

func newUploadTracker(threshold float64) *uploadTracker {
	return &uploadTracker{threshold: threshold}
}

// Claim reports whether a sample with this embedding should be uploaded and,
// if so, reserves it. The check and the insert happen under one lock. A
// reservation whose upload fails must be given back with Release.
func (u *uploadTracker) Claim(embedding []float32) bool {
	u.mu.Lock()
	defer u.mu.Unlock()

	for _, prev := range u.uploaded {
		if similarity.CosineSimilarity(embedding, prev) >= u.threshold {
			return false
		}
	}
	u.uploaded = append(u.uploaded, append([]float32(nil), embedding...))
	return true
}

// Release drops a reservation made by Claim so later similar samples are
// uploaded again.
func (u *uploadTracker) Release(embedding []float32) {
	u.mu.Lock()
	defer u.mu.Unlock()

	for i, prev := range u.uploaded {
		if slices.Equal(prev, embedding) {
			u.uploaded = slices.Delete(u.uploaded, i, i+1)
			return
		}
	}
}

func (u *uploadTracker) Len() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.uploaded)
}
