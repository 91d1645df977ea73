package engine

import (
	"math"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUploadTracker(t *testing.T) {
	u := newUploadTracker(0.99)

	assert.True(t, u.Claim([]float32{1, 0}))
	assert.False(t, u.Claim([]float32{1, 0}), "identical embedding")
	assert.False(t, u.Claim([]float32{0.999, float32(math.Sqrt(1 - 0.999*0.999))}), "above threshold")
	assert.True(t, u.Claim([]float32{0.95, float32(math.Sqrt(1 - 0.95*0.95))}), "below threshold")
	assert.True(t, u.Claim([]float32{0, 1}))
	assert.Equal(t, 3, u.Len())
}

func TestUploadTracker_ConcurrentClaimsAdmitOne(t *testing.T) {
	u := newUploadTracker(0.99)
	var claimed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if u.Claim([]float32{0, 1, 0}) {
				claimed.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), claimed.Load())
}

func TestUploadTracker_Release(t *testing.T) {
	u := newUploadTracker(0.99)
	emb := []float32{0, 1, 0}

	assert.True(t, u.Claim(emb))
	assert.False(t, u.Claim(emb))

	u.Release(emb)
	assert.Equal(t, 0, u.Len())
	assert.True(t, u.Claim(emb), "released embedding can be claimed again")

	u.Release([]float32{1, 0, 0})
	assert.Equal(t, 1, u.Len(), "unknown embedding is ignored")
}
