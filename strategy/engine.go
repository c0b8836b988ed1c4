package strategy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gap-trader-go/infrastructure/logger"
	"gap-trader-go/market"
	"gap-trader-go/order"
)

// MarketData 行情来源，由 gateway.BinanceRESTClient 实现。
type MarketData interface {
	FetchCandles(ctx context.Context, pair, timeframe string, limit int) ([]market.Candle, error)
	FetchLastPrice(ctx context.Context, pair string) (float64, error)
}

// OrderClient 下市价单，由 order.Manager 实现。
type OrderClient interface {
	SubmitMarketOrder(ctx context.Context, symbol string, side order.Side, qty float64) (order.Receipt, error)
}

// TradeJournal 记录成交回执，可选。
type TradeJournal interface {
	RecordTrade(ctx context.Context, r order.Receipt) error
}

// Observer 接收引擎事件（指标采集），可选。
type Observer interface {
	CycleDone(err error)
	AnomaliesFound(n int, latestGapPct float64)
	OrderSubmitted(side string)
	RecoveryPolled()
	LastPriceSeen(price float64)
	PhaseChanged(awaiting bool, target float64)
}

var (
	ErrInvalidConfig   = errors.New("invalid engine config")
	ErrRecoveryTimeout = errors.New("recovery wait exceeded")
)

const (
	DefaultCandleCount  = 100
	DefaultRecoveryPoll = 60 * time.Second
)

// EngineConfig 在引擎生命周期内不可变。
type EngineConfig struct {
	Symbol        string
	Timeframe     string
	GapThreshold  float64 // 百分比
	TradeQuantity float64
	CandleCount   int
	RecoveryPoll  time.Duration

	// MaxRecoveryWait 单次回补等待上限，0 表示无限等待；超时不平仓，下个周期继续等待。
	MaxRecoveryWait time.Duration
}

// Engine 执行 检测->买入->等待回补->卖出 的单仓位状态机。
// 只允许单个 goroutine 驱动。
type Engine struct {
	cfg     EngineConfig
	md      MarketData
	oc      OrderClient
	clock   Clock
	sleeper Sleeper
	store   StateStore
	journal TradeJournal
	obs     Observer
	log     *logger.Logger

	state State
}

func NewEngine(cfg EngineConfig, md MarketData, oc OrderClient) (*Engine, error) {
	if cfg.Symbol == "" || cfg.Timeframe == "" {
		return nil, fmt.Errorf("%w: symbol and timeframe are required", ErrInvalidConfig)
	}
	if cfg.GapThreshold < 0 {
		return nil, fmt.Errorf("%w: gap threshold must be >= 0", ErrInvalidConfig)
	}
	if cfg.TradeQuantity <= 0 {
		return nil, fmt.Errorf("%w: trade quantity must be > 0", ErrInvalidConfig)
	}
	if md == nil || oc == nil {
		return nil, fmt.Errorf("%w: market data and order client are required", ErrInvalidConfig)
	}
	if cfg.CandleCount <= 0 {
		cfg.CandleCount = DefaultCandleCount
	}
	if cfg.RecoveryPoll <= 0 {
		cfg.RecoveryPoll = DefaultRecoveryPoll
	}
	return &Engine{
		cfg:     cfg,
		md:      md,
		oc:      oc,
		clock:   RealClock,
		sleeper: RealClock,
		store:   NewMemoryStore(),
		obs:     nopObserver{},
		log:     logger.NewNop(),
		state:   Idle(),
	}, nil
}

func (e *Engine) SetClock(c Clock, s Sleeper) {
	if c != nil {
		e.clock = c
	}
	if s != nil {
		e.sleeper = s
	}
}

func (e *Engine) SetStore(s StateStore) {
	if s != nil {
		e.store = s
	}
}

func (e *Engine) SetJournal(j TradeJournal) { e.journal = j }

func (e *Engine) SetObserver(o Observer) {
	if o != nil {
		e.obs = o
	}
}

func (e *Engine) SetLogger(l *logger.Logger) {
	if l != nil {
		e.log = l
	}
}

// Config 返回构造时的配置副本。
func (e *Engine) Config() EngineConfig { return e.cfg }

// State 返回当前状态副本。
func (e *Engine) State() State { return e.state }

// Restore 从 StateStore 读取上次保存的状态；无记录时保持空仓。
func (e *Engine) Restore(ctx context.Context) error {
	s, ok, err := e.store.LoadState(ctx)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	if !ok {
		return nil
	}
	e.state = s
	e.obs.PhaseChanged(!s.IsIdle(), s.TargetClose)
	if !s.IsIdle() {
		e.log.LogEvent("state_restored", map[string]interface{}{
			"symbol": e.cfg.Symbol,
			"phase":  s.Phase.String(),
			"target": s.TargetClose,
			"qty":    s.Quantity,
		})
	}
	return nil
}

// RunCycle 执行一个完整周期。处于等待回补时不做检测也不会再次买入，
// 而是继续回补轮询直到卖出（或超出 MaxRecoveryWait）。
func (e *Engine) RunCycle(ctx context.Context) (err error) {
	defer func() { e.obs.CycleDone(err) }()

	e.log.LogEvent("cycle_start", map[string]interface{}{
		"symbol": e.cfg.Symbol,
		"phase":  e.state.Phase.String(),
	})
	if !e.state.IsIdle() {
		return e.awaitRecovery(ctx)
	}

	candles, err := e.md.FetchCandles(ctx, e.cfg.Symbol, e.cfg.Timeframe, e.cfg.CandleCount)
	if err != nil {
		return fmt.Errorf("fetch candles: %w", err)
	}
	anomalies, err := market.DetectGaps(candles, e.cfg.GapThreshold)
	if err != nil {
		return fmt.Errorf("detect gaps: %w", err)
	}
	latest, ok := market.MostRecent(anomalies)
	e.obs.AnomaliesFound(len(anomalies), latest.GapPct)
	if !ok {
		return nil
	}
	e.log.LogEvent("anomaly_detected", map[string]interface{}{
		"symbol":    e.cfg.Symbol,
		"gapPct":    latest.GapPct,
		"threshold": e.cfg.GapThreshold,
		"close":     latest.Close,
		"prevClose": latest.PrevClose,
		"candleTs":  latest.Ts,
	})
	// 有缺口即查询最新价，行情失败时整个周期中止
	price, err := e.md.FetchLastPrice(ctx, e.cfg.Symbol)
	if err != nil {
		return fmt.Errorf("fetch last price: %w", err)
	}
	e.obs.LastPriceSeen(price)

	// 只对向上跳空入场；向下跳空无论幅度多大都忽略
	if latest.GapPct <= e.cfg.GapThreshold {
		return nil
	}

	if err := e.enter(ctx, latest, price); err != nil {
		return err
	}
	return e.awaitRecovery(ctx)
}

func (e *Engine) enter(ctx context.Context, a market.Anomaly, lastPrice float64) error {
	r, err := e.oc.SubmitMarketOrder(ctx, e.cfg.Symbol, order.SideBuy, e.cfg.TradeQuantity)
	if err != nil {
		return fmt.Errorf("submit buy: %w", err)
	}
	e.obs.OrderSubmitted(string(order.SideBuy))
	e.log.LogOrder("order_submit", r.OrderID, map[string]interface{}{
		"symbol":    e.cfg.Symbol,
		"side":      string(order.SideBuy),
		"qty":       e.cfg.TradeQuantity,
		"lastPrice": lastPrice,
		"avgPrice":  r.AvgPrice,
	})

	next := AwaitingRecovery(a.Close, e.cfg.TradeQuantity)
	next.EntryOrderID = r.OrderID
	next.EnteredAt = e.clock.Now()
	e.transition(ctx, next)
	e.record(ctx, r)
	return nil
}

// PollRecovery 执行一次回补检查：最新收盘价 >= 目标价时卖出并回到空仓。
// 返回 true 表示已空仓。
func (e *Engine) PollRecovery(ctx context.Context) (bool, error) {
	if e.state.IsIdle() {
		return true, nil
	}
	candles, err := e.md.FetchCandles(ctx, e.cfg.Symbol, e.cfg.Timeframe, e.cfg.CandleCount)
	if err != nil {
		return false, fmt.Errorf("fetch candles: %w", err)
	}
	e.obs.RecoveryPolled()
	latest, ok := market.Latest(candles)
	if !ok {
		return false, nil
	}
	target := e.state.TargetClose
	e.log.LogEvent("recovery_poll", map[string]interface{}{
		"symbol":      e.cfg.Symbol,
		"latestClose": latest.Close,
		"target":      target,
	})
	if latest.Close < target {
		return false, nil
	}

	qty := e.state.Quantity
	r, err := e.oc.SubmitMarketOrder(ctx, e.cfg.Symbol, order.SideSell, qty)
	if err != nil {
		return false, fmt.Errorf("submit sell: %w", err)
	}
	e.obs.OrderSubmitted(string(order.SideSell))
	e.log.LogOrder("order_submit", r.OrderID, map[string]interface{}{
		"symbol":   e.cfg.Symbol,
		"side":     string(order.SideSell),
		"qty":      qty,
		"avgPrice": r.AvgPrice,
	})
	e.transition(ctx, Idle())
	e.record(ctx, r)
	e.log.LogEvent("position_closed", map[string]interface{}{
		"symbol":      e.cfg.Symbol,
		"target":      target,
		"qty":         qty,
		"latestClose": latest.Close,
	})
	return true, nil
}

// awaitRecovery 阻塞轮询直到卖出；首次检查不等待。
func (e *Engine) awaitRecovery(ctx context.Context) error {
	start := e.clock.Now()
	for {
		done, err := e.PollRecovery(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if e.cfg.MaxRecoveryWait > 0 && e.clock.Now().Sub(start) >= e.cfg.MaxRecoveryWait {
			return fmt.Errorf("%w after %s (target %v)", ErrRecoveryTimeout, e.cfg.MaxRecoveryWait, e.state.TargetClose)
		}
		if err := e.sleeper.Sleep(ctx, e.cfg.RecoveryPoll); err != nil {
			return err
		}
	}
}

// transition 更新内存状态并持久化。持久化失败只记录日志：内存状态已经正确，
// 中断周期反而会丢掉正在跟踪的仓位。
func (e *Engine) transition(ctx context.Context, next State) {
	e.state = next
	e.obs.PhaseChanged(!next.IsIdle(), next.TargetClose)
	if err := e.store.SaveState(ctx, next); err != nil {
		e.log.LogError(err, map[string]interface{}{"symbol": e.cfg.Symbol, "op": "save_state"})
	}
}

func (e *Engine) record(ctx context.Context, r order.Receipt) {
	if e.journal == nil {
		return
	}
	if err := e.journal.RecordTrade(ctx, r); err != nil {
		e.log.LogError(err, map[string]interface{}{"symbol": e.cfg.Symbol, "op": "record_trade"})
	}
}

type nopObserver struct{}

func (nopObserver) CycleDone(error)             {}
func (nopObserver) AnomaliesFound(int, float64) {}
func (nopObserver) OrderSubmitted(string)       {}
func (nopObserver) RecoveryPolled()             {}
func (nopObserver) LastPriceSeen(float64)       {}
func (nopObserver) PhaseChanged(bool, float64)  {}
