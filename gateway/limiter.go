package gateway

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter 控制请求速率，避免触发交易所限流。
type RateLimiter interface {
	Wait(ctx context.Context) error
}

// NewRateLimiter 基于 x/time/rate 的令牌桶；rate 为每秒令牌数。
func NewRateLimiter(perSecond float64, burst int) RateLimiter {
	if perSecond <= 0 {
		perSecond = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

type noLimit struct{}

func (noLimit) Wait(ctx context.Context) error { return ctx.Err() }

// NoLimit 在 enableRateLimit=false 时使用。
var NoLimit RateLimiter = noLimit{}
