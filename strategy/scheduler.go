package strategy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gap-trader-go/infrastructure/logger"
)

const DefaultCycleInterval = time.Hour

// Cycler 由 Engine 实现。
type Cycler interface {
	RunCycle(ctx context.Context) error
}

// Scheduler 无限循环执行周期，每次周期结束后再 sleep Interval（不做漂移补偿）。
type Scheduler struct {
	Engine   Cycler
	Interval time.Duration
	Sleeper  Sleeper
	Log      *logger.Logger

	// ContinueOnError 为 false 时任一周期出错即停止循环并返回错误。
	ContinueOnError bool
	// MaxCycles 大于 0 时执行指定次数后返回 nil。
	MaxCycles int
}

// Run 阻塞运行；ctx 取消时返回 ctx.Err()。
func (s *Scheduler) Run(ctx context.Context) error {
	if s.Engine == nil {
		return errors.New("scheduler: engine not set")
	}
	interval := s.Interval
	if interval <= 0 {
		interval = DefaultCycleInterval
	}
	sleeper := s.Sleeper
	if sleeper == nil {
		sleeper = RealClock
	}
	log := s.Log
	if log == nil {
		log = logger.NewNop()
	}

	for n := 1; ; n++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.Engine.RunCycle(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if !s.ContinueOnError {
				return fmt.Errorf("cycle %d: %w", n, err)
			}
			log.LogError(err, map[string]interface{}{"cycle": n})
		}
		if s.MaxCycles > 0 && n >= s.MaxCycles {
			return nil
		}
		if err := sleeper.Sleep(ctx, interval); err != nil {
			return err
		}
	}
}
