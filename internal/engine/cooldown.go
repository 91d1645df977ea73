package engine

import (
	"sync"
	"time"
)

type failureState struct {
	lastFailedAt time.Time
	failCount    int
}

// regexCooldown tracks consecutive regex generation failures per template.
// Once a template reaches the threshold it is skipped until the window has
// passed or a success resets it.
type regexCooldown struct {
	now       func() time.Time
	states    map[string]*failureState
	window    time.Duration
	threshold int
	mu        sync.Mutex
}

func newRegexCooldown(threshold int, window time.Duration, now func() time.Time) *regexCooldown {
	return &regexCooldown{
		now:       now,
		states:    make(map[string]*failureState),
		window:    window,
		threshold: threshold,
	}
}

// Allow reports whether generation may be attempted for template. An expired
// cooldown is cleared.
func (c *regexCooldown) Allow(template string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	state, ok := c.states[template]
	if !ok || state.failCount < c.threshold {
		return true
	}
	if c.now().Sub(state.lastFailedAt) < c.window {
		return false
	}
	delete(c.states, template)
	return true
}

// RecordFailure counts one failed generation.
func (c *regexCooldown) RecordFailure(template string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	state, ok := c.states[template]
	if !ok {
		state = &failureState{}
		c.states[template] = state
	}
	state.failCount++
	state.lastFailedAt = c.now()
}

// RecordSuccess resets the failure counter.
func (c *regexCooldown) RecordSuccess(template string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.states, template)
}

func (c *regexCooldown) failures(template string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if state, ok := c.states[template]; ok {
		return state.failCount
	}
	return 0
}
