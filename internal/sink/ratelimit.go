package sink

import (
	"context"
	"fmt"

	"github.com/pscheid92/tweetrelay/internal/domain"
	"golang.org/x/time/rate"
)

// RateLimited delays emits so next sees at most perSecond outputs per
// second on average, with bursts up to burst.
type RateLimited struct {
	next    domain.OutputSink
	limiter *rate.Limiter
}

var _ domain.OutputSink = (*RateLimited)(nil)

func NewRateLimited(next domain.OutputSink, perSecond float64, burst int) *RateLimited {
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{next: next, limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

func (r *RateLimited) Emit(ctx context.Context, out domain.RenderedOutput) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return r.next.Emit(ctx, out)
}
