package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// retryPolicy 构造带上限的指数退避；MaxRetries=0 时只执行一次。
func (c *BinanceRESTClient) retryPolicy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	if c.RetryInitial > 0 {
		b.InitialInterval = c.RetryInitial
	}
	retries := c.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)
}

// withRetry 只对 Temporary 的通信错误重试，其余错误直接返回。
func (c *BinanceRESTClient) withRetry(ctx context.Context, op func() error) error {
	if c == nil || c.HTTPClient == nil {
		return ErrClientNotConfigured
	}
	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		var ce *CommunicationError
		if errors.As(err, &ce) && ce.Temporary() {
			return err
		}
		return backoff.Permanent(err)
	}, c.retryPolicy(ctx))
}
