package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRegexCooldown(t *testing.T) {
	const template = "KB국민카드{NUM}승인\n{AMOUNT} 일시불"

	t.Run("skips after threshold until window passes", func(t *testing.T) {
		clock := newFakeClock()
		c := newRegexCooldown(2, 30*time.Minute, clock.Now)

		assert.True(t, c.Allow(template))
		c.RecordFailure(template)
		assert.True(t, c.Allow(template), "one failure is below the threshold")
		c.RecordFailure(template)
		assert.False(t, c.Allow(template))

		clock.Advance(29 * time.Minute)
		assert.False(t, c.Allow(template))

		clock.Advance(2 * time.Minute)
		assert.True(t, c.Allow(template))
		assert.Zero(t, c.failures(template), "expired cooldown is cleared")
	})

	t.Run("success resets the counter", func(t *testing.T) {
		clock := newFakeClock()
		c := newRegexCooldown(2, 30*time.Minute, clock.Now)

		c.RecordFailure(template)
		c.RecordSuccess(template)
		c.RecordFailure(template)
		assert.True(t, c.Allow(template))
		assert.Equal(t, 1, c.failures(template))
	})

	t.Run("templates are tracked independently", func(t *testing.T) {
		c := newRegexCooldown(1, time.Hour, newFakeClock().Now)
		c.RecordFailure("a")
		assert.False(t, c.Allow("a"))
		assert.True(t, c.Allow("b"))
	})

	t.Run("concurrent failures are all counted", func(t *testing.T) {
		c := newRegexCooldown(1000, time.Hour, newFakeClock().Now)
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				c.RecordFailure(template)
				_ = c.Allow(template)
			}()
		}
		wg.Wait()
		assert.Equal(t, 50, c.failures(template))
	})
}
