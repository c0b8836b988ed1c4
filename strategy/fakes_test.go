package strategy

import (
	"context"
	"errors"
	"time"

	"gap-trader-go/market"
	"gap-trader-go/order"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// window 由 (open, close) 对生成按小时递增的 K 线。
func window(ohlc ...[2]float64) []market.Candle {
	out := make([]market.Candle, 0, len(ohlc))
	for i, oc := range ohlc {
		out = append(out, market.Candle{
			Ts:    t0.Add(time.Duration(i) * time.Hour),
			Open:  oc[0],
			High:  oc[0],
			Low:   oc[1],
			Close: oc[1],
		})
	}
	return out
}

// gapWindow 是 [{close:100}, {open:102, close:101}]：缺口 2%。
func gapWindow() []market.Candle {
	return window([2]float64{100, 100}, [2]float64{102, 101})
}

// closeWindow 最新收盘价为 c 的窗口。
func closeWindow(c float64) []market.Candle {
	return window([2]float64{100, 100}, [2]float64{100, c})
}

type fakeMarket struct {
	windows    [][]market.Candle
	fetches    int
	price      float64
	candlesErr error
	priceErr   error
	errAt      int // 第几次 FetchCandles 返回 candlesErr，0 表示每次
}

func (f *fakeMarket) FetchCandles(_ context.Context, _, _ string, _ int) ([]market.Candle, error) {
	f.fetches++
	if f.candlesErr != nil && (f.errAt == 0 || f.errAt == f.fetches) {
		return nil, f.candlesErr
	}
	if len(f.windows) == 0 {
		return nil, nil
	}
	w := f.windows[0]
	if len(f.windows) > 1 {
		f.windows = f.windows[1:]
	}
	return w, nil
}

func (f *fakeMarket) FetchLastPrice(context.Context, string) (float64, error) {
	if f.priceErr != nil {
		return 0, f.priceErr
	}
	return f.price, nil
}

type placed struct {
	side order.Side
	qty  float64
}

type fakeOrders struct {
	placed []placed
	err    error
	errOn  order.Side
}

func (f *fakeOrders) SubmitMarketOrder(_ context.Context, symbol string, side order.Side, qty float64) (order.Receipt, error) {
	if f.err != nil && (f.errOn == "" || f.errOn == side) {
		return order.Receipt{}, f.err
	}
	f.placed = append(f.placed, placed{side: side, qty: qty})
	return order.Receipt{
		OrderID:  string(side) + "-1",
		Symbol:   symbol,
		Side:     side,
		Quantity: qty,
		Status:   order.StatusFilled,
	}, nil
}

func (f *fakeOrders) count(side order.Side) int {
	n := 0
	for _, p := range f.placed {
		if p.side == side {
			n++
		}
	}
	return n
}

// fakeClock 的 Sleep 只推进时间并记录时长。
type fakeClock struct {
	now     time.Time
	sleeps  []time.Duration
	onSleep func(n int) error
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	if c.onSleep != nil {
		return c.onSleep(len(c.sleeps))
	}
	return nil
}

type failingStore struct{ MemoryStore }

func (f *failingStore) SaveState(context.Context, State) error { return errors.New("disk full") }

type fakeJournal struct{ receipts []order.Receipt }

func (j *fakeJournal) RecordTrade(_ context.Context, r order.Receipt) error {
	j.receipts = append(j.receipts, r)
	return nil
}

type recordingObserver struct {
	cycles, cycleErrs int
	anomalies         int
	orders            []string
	polls             int
	phases            []bool
	lastPrice         float64
}

func (o *recordingObserver) CycleDone(err error) {
	o.cycles++
	if err != nil {
		o.cycleErrs++
	}
}

func (o *recordingObserver) AnomaliesFound(n int, _ float64) { o.anomalies += n }
func (o *recordingObserver) OrderSubmitted(side string)      { o.orders = append(o.orders, side) }
func (o *recordingObserver) RecoveryPolled()                 { o.polls++ }
func (o *recordingObserver) LastPriceSeen(p float64)         { o.lastPrice = p }

func (o *recordingObserver) PhaseChanged(awaiting bool, _ float64) {
	o.phases = append(o.phases, awaiting)
}
