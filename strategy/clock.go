package strategy

import (
	"context"
	"time"
)

// Clock 抽象时间便于测试。
type Clock interface {
	Now() time.Time
}

// Sleeper 抽象阻塞等待；ctx 结束时提前返回 ctx.Err()。
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RealClock 默认使用 UTC 时间与真实 sleep。
var RealClock interface {
	Clock
	Sleeper
} = realClock{}
