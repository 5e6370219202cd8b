package utils

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Pacer keeps successive operations at least interval apart, measured from
// the end of one operation to the start of the next. Callers Wait before an
// operation and call Done once it has finished. The first Wait returns
// immediately.
type Pacer struct {
	mu      sync.Mutex
	limit   rate.Limit
	limiter *rate.Limiter
}

// NewPacer returns a pacer; a non-positive interval disables pacing
func NewPacer(interval time.Duration) *Pacer {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Pacer{limit: limit, limiter: rate.NewLimiter(limit, 1)}
}

// Wait blocks until the next operation may start
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	limiter := p.limiter
	p.mu.Unlock()
	return limiter.Wait(ctx)
}

// Done marks the end of an operation. The next Wait blocks for the full
// interval from now, however long the operation took.
func (p *Pacer) Done() {
	if p == nil {
		return
	}
	limiter := rate.NewLimiter(p.limit, 1)
	limiter.Allow()

	p.mu.Lock()
	p.limiter = limiter
	p.mu.Unlock()
}

// Sleep pauses for d unless ctx ends first
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
