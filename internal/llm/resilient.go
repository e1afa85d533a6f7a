package llm

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Ads97/Veritas/internal/logger"
	"github.com/Ads97/Veritas/internal/metrics"
	"github.com/Ads97/Veritas/internal/worker"
)

// Resilient wraps a Provider with bounded retries on transport errors and call metrics
type Resilient struct {
	inner  Provider
	policy worker.RetryPolicy
	logger *zap.Logger
}

// NewResilient decorates p
func NewResilient(p Provider, policy worker.RetryPolicy, log *zap.Logger) *Resilient {
	return &Resilient{inner: p, policy: policy, logger: logger.OrNop(log)}
}

// Name returns the wrapped provider's name
func (r *Resilient) Name() string {
	return r.inner.Name()
}

// IsAvailable delegates to the wrapped provider
func (r *Resilient) IsAvailable(ctx context.Context) bool {
	return r.inner.IsAvailable(ctx)
}

// Judge calls the wrapped provider, retrying retryable failures
func (r *Resilient) Judge(ctx context.Context, req Request) (*Response, error) {
	attempt := 0
	return worker.Do(ctx, r.policy, func(ctx context.Context) (*Response, error) {
		attempt++
		start := time.Now()
		resp, err := r.inner.Judge(ctx, req)
		metrics.ObserveProvider(r.inner.Name(), "judge", start, err)
		if err != nil {
			r.logger.Debug("judge call failed",
				zap.String("provider", r.inner.Name()),
				zap.String("schema", req.SchemaName),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return nil, err
		}
		return resp, nil
	})
}
