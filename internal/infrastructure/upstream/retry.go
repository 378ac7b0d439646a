package upstream

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/velstore/giftcard-connector/internal/application"
	"github.com/velstore/giftcard-connector/internal/config"
)

// RetryClient decorates an UpstreamClient with bounded retries for the
// idempotent calls only. Balance checks can be repeated safely; redeem and
// refund move money and pass through untouched.
type RetryClient struct {
	inner      application.UpstreamClient
	baseDelay  time.Duration
	maxRetries int
}

func NewRetryClient(inner application.UpstreamClient, cfg config.RetryConfig) *RetryClient {
	maxRetries := int(cfg.MaxRetries)
	if maxRetries < 1 {
		// An unset retry config still has to reach the issuer once.
		maxRetries = 1
	}
	return &RetryClient{
		inner:      inner,
		baseDelay:  time.Duration(cfg.BaseDelay) * time.Second,
		maxRetries: maxRetries,
	}
}

func (r *RetryClient) CardCurrency() string {
	return r.inner.CardCurrency()
}

func (r *RetryClient) Healthcheck(ctx context.Context) *application.HealthcheckResult {
	return r.inner.Healthcheck(ctx)
}

// Balance with retry logic
func (r *RetryClient) Balance(ctx context.Context, req application.UpstreamBalanceRequest) (*application.UpstreamBalanceResponse, error) {
	return retry(r, ctx, func(ctx context.Context) (*application.UpstreamBalanceResponse, error) {
		return r.inner.Balance(ctx, req)
	})
}

// Redeem is not retried: a timed-out redeem may still have charged the
// card, and a second attempt would double-charge.
func (r *RetryClient) Redeem(ctx context.Context, req application.UpstreamRedeemRequest) (*application.UpstreamRedeemResponse, error) {
	return r.inner.Redeem(ctx, req)
}

// Refund is not retried for the same reason as Redeem.
func (r *RetryClient) Refund(ctx context.Context, req application.UpstreamRefundRequest) (*application.UpstreamRefundResponse, error) {
	return r.inner.Refund(ctx, req)
}

// Generic retry helper
func retry[T any](r *RetryClient, ctx context.Context, operation func(ctx context.Context) (*T, error)) (*T, error) {
	var lastErr error

	for attempt := 0; attempt < r.maxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		resp, err := operation(ctx)
		if err == nil {
			return resp, nil
		}

		lastErr = err

		if !isRetryable(err) {
			return nil, err
		}

		delay := backoffDelay(r.baseDelay, attempt)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil, fmt.Errorf("maximum retries exceeded: %w", lastErr)
}

func isRetryable(err error) bool {
	if upErr, ok := IsUpstreamError(err); ok {
		return upErr.IsRetryable()
	}
	// Transport-level failures (connection refused, timeout) arrive as
	// plain wrapped errors and are worth one more try.
	return true
}

// backoffDelay doubles the base delay per attempt and adds jitter.
func backoffDelay(base time.Duration, attempt int) time.Duration {
	delay := base << attempt
	jitter := time.Duration(rand.Int63n(int64(base)/2 + 1))
	return delay + jitter
}
