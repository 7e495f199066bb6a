package capture

import (
	"context"
	"sync"

	"github.com/fwojciec/whatchanged"
	"golang.org/x/time/rate"
)

var _ whatchanged.DomainLimiter = (*DomainLimiter)(nil)

// DomainLimiter rate limits captures per host with one token bucket per
// host, so a batch spanning many sites is not throttled by its busiest one.
type DomainLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      float64
}

// NewDomainLimiter creates a DomainLimiter allowing rps requests per
// second to each host, without bursting. A non-positive rps disables
// limiting.
func NewDomainLimiter(rps float64) *DomainLimiter {
	return &DomainLimiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      rps,
	}
}

// Wait blocks until a request to domain is allowed or ctx ends.
func (d *DomainLimiter) Wait(ctx context.Context, domain string) error {
	if d.rps <= 0 {
		return ctx.Err()
	}

	d.mu.Lock()
	limiter, ok := d.limiters[domain]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(d.rps), 1)
		d.limiters[domain] = limiter
	}
	d.mu.Unlock()

	return limiter.Wait(ctx)
}
