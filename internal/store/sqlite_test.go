package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gap-trader-go/internal/store"
	"gap-trader-go/order"
	"gap-trader-go/strategy"
)

func TestSQLiteStore_EmptyLoad(t *testing.T) {
	db, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer db.Close()

	st, ok, err := db.LoadState(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, st.IsIdle())
}

func TestSQLiteStore_SaveOverwritesSingleRow(t *testing.T) {
	db, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()

	entered := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	st := strategy.AwaitingRecovery(101.5, 0.02)
	st.EntryOrderID = "12345"
	st.EnteredAt = entered
	require.NoError(t, db.SaveState(ctx, st))

	got, ok, err := db.LoadState(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, st, got)

	require.NoError(t, db.SaveState(ctx, strategy.Idle()))
	got, ok, err = db.LoadState(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, strategy.Idle(), got)
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gapbot.db")
	ctx := context.Background()

	db, err := store.NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, db.SaveState(ctx, strategy.AwaitingRecovery(99, 1)))
	require.NoError(t, db.Close())

	db, err = store.NewSQLiteStore(path)
	require.NoError(t, err)
	defer db.Close()
	got, ok, err := db.LoadState(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, strategy.PhaseAwaitingRecovery, got.Phase)
	assert.Equal(t, 99.0, got.TargetClose)
}

func TestSQLiteStore_Trades(t *testing.T) {
	db, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()

	tx := time.UnixMilli(1700000000123).UTC()
	buy := order.Receipt{
		OrderID: "1", ClientOrderID: "gb-abc", Symbol: "BTCUSDT", Side: order.SideBuy,
		Quantity: 0.01, ExecutedQty: 0.01, AvgPrice: 101000, Status: order.StatusFilled, TransactTime: tx,
	}
	sell := buy
	sell.OrderID, sell.ClientOrderID, sell.Side = "2", "gs-def", order.SideSell
	require.NoError(t, db.RecordTrade(ctx, buy))
	require.NoError(t, db.RecordTrade(ctx, sell))

	trades, err := db.Trades(ctx)
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, buy, trades[0])
	assert.Equal(t, order.SideSell, trades[1].Side)
}

func TestSQLiteStore_DrivesEngineRestore(t *testing.T) {
	db, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.SaveState(context.Background(), strategy.AwaitingRecovery(101, 0.01)))

	e, err := strategy.NewEngine(strategy.EngineConfig{
		Symbol: "BTC/USDT", Timeframe: "1h", GapThreshold: 1, TradeQuantity: 0.01,
	}, nopMarket{}, nopOrders{})
	require.NoError(t, err)
	e.SetStore(db)
	require.NoError(t, e.Restore(context.Background()))
	assert.Equal(t, 101.0, e.State().TargetClose)
	assert.False(t, e.State().IsIdle())
}
