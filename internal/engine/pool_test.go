package engine

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRunBounded(t *testing.T) {
	t.Run("respects the limit", func(t *testing.T) {
		var inFlight, peak, calls atomic.Int32
		runBounded(context.Background(), 20, 3, func(int) {
			n := inFlight.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			inFlight.Add(-1)
			calls.Add(1)
		})
		assert.Equal(t, int32(20), calls.Load())
		assert.LessOrEqual(t, peak.Load(), int32(3))
	})

	t.Run("results recombine by index", func(t *testing.T) {
		out := make([]int, 10)
		runBounded(context.Background(), len(out), 4, func(i int) { out[i] = i * i })
		for i, v := range out {
			assert.Equal(t, i*i, v)
		}
	})

	t.Run("canceled context skips work", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		var calls atomic.Int32
		runBounded(ctx, 10, 1, func(int) { calls.Add(1) })
		assert.Zero(t, calls.Load())
	})
}
