package llm

import (
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultRequestsPerMinute = 60
	defaultBurst             = 5
)

// newRateLimiter creates a token bucket allowing requestsPerMinute requests
// with a small burst.
func newRateLimiter(requestsPerMinute int) *rate.Limiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = defaultRequestsPerMinute
	}
	burst := defaultBurst
	if requestsPerMinute < burst {
		burst = requestsPerMinute
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), burst)
}
