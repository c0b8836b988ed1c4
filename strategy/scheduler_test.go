package strategy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gap-trader-go/market"
)

type scriptedCycler struct {
	calls int
	errs  map[int]error
}

func (c *scriptedCycler) RunCycle(context.Context) error {
	c.calls++
	return c.errs[c.calls]
}

func TestScheduler_StopsOnFirstError(t *testing.T) {
	boom := errors.New("boom")
	cy := &scriptedCycler{errs: map[int]error{3: boom}}
	clk := &fakeClock{now: t0}
	s := &Scheduler{Engine: cy, Interval: time.Hour, Sleeper: clk}

	err := s.Run(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "cycle 3")
	assert.Equal(t, 3, cy.calls)
	assert.Equal(t, []time.Duration{time.Hour, time.Hour}, clk.sleeps)
}

func TestScheduler_ContinueOnError(t *testing.T) {
	cy := &scriptedCycler{errs: map[int]error{1: errors.New("a"), 2: errors.New("b")}}
	clk := &fakeClock{now: t0}
	s := &Scheduler{Engine: cy, Interval: time.Minute, Sleeper: clk, ContinueOnError: true, MaxCycles: 4}

	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, 4, cy.calls)
	assert.Len(t, clk.sleeps, 3)
}

func TestScheduler_SingleCycleDoesNotSleep(t *testing.T) {
	cy := &scriptedCycler{}
	clk := &fakeClock{now: t0}
	s := &Scheduler{Engine: cy, Sleeper: clk, MaxCycles: 1}
	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, 1, cy.calls)
	assert.Empty(t, clk.sleeps)
}

func TestScheduler_DefaultInterval(t *testing.T) {
	cy := &scriptedCycler{}
	clk := &fakeClock{now: t0}
	s := &Scheduler{Engine: cy, Sleeper: clk, MaxCycles: 2}
	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, []time.Duration{DefaultCycleInterval}, clk.sleeps)
}

func TestScheduler_ContextCancelDuringSleep(t *testing.T) {
	cy := &scriptedCycler{}
	ctx, cancel := context.WithCancel(context.Background())
	clk := &fakeClock{now: t0, onSleep: func(n int) error {
		if n == 2 {
			cancel()
			return ctx.Err()
		}
		return nil
	}}
	s := &Scheduler{Engine: cy, Interval: time.Second, Sleeper: clk}
	err := s.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, cy.calls)
}

func TestScheduler_CancelledCycleErrorReturnsCtxErr(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cy := &cancellingCycler{cancel: cancel}
	s := &Scheduler{Engine: cy, Sleeper: &fakeClock{now: t0}, ContinueOnError: true}
	assert.ErrorIs(t, s.Run(ctx), context.Canceled)
}

type cancellingCycler struct{ cancel context.CancelFunc }

func (c *cancellingCycler) RunCycle(ctx context.Context) error {
	c.cancel()
	return ctx.Err()
}

func TestScheduler_NoEngine(t *testing.T) {
	assert.Error(t, (&Scheduler{}).Run(context.Background()))
}

func TestScheduler_EngineErrorStopsLoop(t *testing.T) {
	boom := errors.New("klines 500")
	md := &fakeMarket{
		windows:    [][]market.Candle{window([2]float64{100, 100}, [2]float64{100, 100})},
		candlesErr: boom,
		errAt:      2,
	}
	oc := &fakeOrders{}
	e, clk := newTestEngine(t, testConfig(), md, oc, nil)
	s := &Scheduler{Engine: e, Interval: time.Hour, Sleeper: clk}

	err := s.Run(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 2, md.fetches)
	assert.Len(t, clk.sleeps, 1)
	assert.Empty(t, oc.placed)
}
