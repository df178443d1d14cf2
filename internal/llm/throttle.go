package llm

import (
	"context"

	"golang.org/x/time/rate"
)

// Throttled limits the request rate of a provider shared by batch workers
type Throttled struct {
	inner   Provider
	limiter *rate.Limiter
}

var _ Provider = (*Throttled)(nil)

// NewThrottled wraps p; burst defaults to 1
func NewThrottled(p Provider, requestsPerSecond float64, burst int) *Throttled {
	if burst <= 0 {
		burst = 1
	}
	return &Throttled{inner: p, limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst)}
}

// Name returns the wrapped provider's name
func (t *Throttled) Name() string {
	return t.inner.Name()
}

// IsAvailable is not throttled
func (t *Throttled) IsAvailable(ctx context.Context) bool {
	return t.inner.IsAvailable(ctx)
}

// Complete waits for a token, then delegates. A deadline that expires while
// waiting is reported as ErrTimeout.
func (t *Throttled) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		if ctx.Err() == context.Canceled {
			return nil, ctx.Err()
		}
		return nil, &ServiceError{Provider: t.Name(), Kind: ErrTimeout, Err: err}
	}
	return t.inner.Complete(ctx, req)
}
