package ratelimiter

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// ProviderLimiters holds one token bucket limiter per outbound provider.
// Generation calls are slow and expensive, so the rate is expressed in
// requests per second with burst equal to the rate.
type ProviderLimiters struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*rate.Limiter
}

// New creates limiters granting ratePerSec requests per second per provider.
// A non-positive rate disables limiting.
func New(ratePerSec int) *ProviderLimiters {
	limit, burst := rate.Limit(ratePerSec), ratePerSec
	if ratePerSec <= 0 {
		limit, burst = rate.Inf, 1
	}
	return &ProviderLimiters{
		limit:    limit,
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Wait blocks until the provider's limiter grants a token.
// Returns a non-nil error only if ctx is cancelled while waiting.
func (pl *ProviderLimiters) Wait(ctx context.Context, provider string) error {
	return pl.limiter(provider).Wait(ctx)
}

func (pl *ProviderLimiters) limiter(provider string) *rate.Limiter {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	l, ok := pl.limiters[provider]
	if !ok {
		l = rate.NewLimiter(pl.limit, pl.burst)
		pl.limiters[provider] = l
	}
	return l
}
