package provider

import (
	"context"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const maxTries = 3

// InitializeWithRetry wraps adapter.Initialize with bounded exponential
// retries. Processor-side rejections and validation errors are not retried;
// only transport-level failures are.
func InitializeWithRetry(ctx context.Context, a Adapter, req InitRequest) (*InitResponse, error) {
	return backoff.Retry(ctx, func() (*InitResponse, error) {
		resp, err := a.Initialize(ctx, req)
		if err != nil && !retryable(err) {
			return nil, backoff.Permanent(err)
		}
		return resp, err
	}, retryOpts()...)
}

// VerifyWithRetry wraps adapter.Verify with the same bounded retry policy.
// Verify is a pure read, so every attempt is safe.
func VerifyWithRetry(ctx context.Context, a Adapter, reference string) (*VerifyResult, error) {
	return backoff.Retry(ctx, func() (*VerifyResult, error) {
		res, err := a.Verify(ctx, reference)
		if err != nil && !retryable(err) {
			return nil, backoff.Permanent(err)
		}
		return res, err
	}, retryOpts()...)
}

func retryOpts() []backoff.RetryOption {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	return []backoff.RetryOption{
		backoff.WithBackOff(b),
		backoff.WithMaxTries(maxTries),
	}
}

// retryable reports whether an adapter error is a transient transport
// failure. A processor that answered, even with a rejection, made a decision
// worth keeping.
func retryable(err error) bool {
	msg := err.Error()
	if strings.Contains(msg, "validation error") {
		return false
	}
	if strings.Contains(msg, "rejected request") {
		return false
	}
	if strings.Contains(msg, "non-2xx status: 4") {
		return false
	}
	return true
}
