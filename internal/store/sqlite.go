package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"gap-trader-go/order"
	"gap-trader-go/strategy"
)

// engine_state 恒为单行（id=1）；trades 记录每一笔成交回执。
const schema = `
CREATE TABLE IF NOT EXISTS engine_state (
    id             INTEGER PRIMARY KEY CHECK (id = 1),
    phase          INTEGER NOT NULL,
    target_close   REAL    NOT NULL DEFAULT 0,
    quantity       REAL    NOT NULL DEFAULT 0,
    entry_order_id TEXT    NOT NULL DEFAULT '',
    entered_at_ms  INTEGER NOT NULL DEFAULT 0,
    updated_at_ms  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS trades (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    order_id         TEXT    NOT NULL,
    client_order_id  TEXT    NOT NULL DEFAULT '',
    symbol           TEXT    NOT NULL,
    side             TEXT    NOT NULL,
    quantity         REAL    NOT NULL,
    executed_qty     REAL    NOT NULL DEFAULT 0,
    avg_price        REAL    NOT NULL DEFAULT 0,
    status           TEXT    NOT NULL DEFAULT '',
    transact_time_ms INTEGER NOT NULL DEFAULT 0,
    recorded_at_ms   INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(symbol, id);
`

// SQLiteStore 实现 strategy.StateStore 与 strategy.TradeJournal（pure Go，无 CGo）。
type SQLiteStore struct {
	db  *sql.DB
	mu  sync.Mutex
	now func() time.Time
}

// NewSQLiteStore 打开（或创建）数据库并应用 schema；path 可为 ":memory:"。
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store.NewSQLiteStore: open %q: %w", path, err)
	}
	// SQLite 单写者；:memory: 下多连接会各自得到独立数据库
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store.NewSQLiteStore: apply schema: %w", err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

// LoadState 读取上次保存的引擎状态；无记录时 ok=false。
func (s *SQLiteStore) LoadState(ctx context.Context) (strategy.State, bool, error) {
	var (
		st        strategy.State
		phase     int
		enteredMs int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT phase, target_close, quantity, entry_order_id, entered_at_ms FROM engine_state WHERE id = 1`,
	).Scan(&phase, &st.TargetClose, &st.Quantity, &st.EntryOrderID, &enteredMs)
	if errors.Is(err, sql.ErrNoRows) {
		return strategy.Idle(), false, nil
	}
	if err != nil {
		return strategy.State{}, false, fmt.Errorf("store.LoadState: %w", err)
	}
	st.Phase = strategy.Phase(phase)
	if st.Phase != strategy.PhaseIdle && st.Phase != strategy.PhaseAwaitingRecovery {
		return strategy.State{}, false, fmt.Errorf("store.LoadState: unknown phase %d", phase)
	}
	if enteredMs > 0 {
		st.EnteredAt = time.UnixMilli(enteredMs).UTC()
	}
	return st, true, nil
}

// SaveState 覆盖写入唯一的状态行。
func (s *SQLiteStore) SaveState(ctx context.Context, st strategy.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var enteredMs int64
	if !st.EnteredAt.IsZero() {
		enteredMs = st.EnteredAt.UnixMilli()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO engine_state (id, phase, target_close, quantity, entry_order_id, entered_at_ms, updated_at_ms)
		VALUES (1, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			phase          = excluded.phase,
			target_close   = excluded.target_close,
			quantity       = excluded.quantity,
			entry_order_id = excluded.entry_order_id,
			entered_at_ms  = excluded.entered_at_ms,
			updated_at_ms  = excluded.updated_at_ms
	`, int(st.Phase), st.TargetClose, st.Quantity, st.EntryOrderID, enteredMs, s.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("store.SaveState: %w", err)
	}
	return nil
}

// RecordTrade 追加一条成交记录。
func (s *SQLiteStore) RecordTrade(ctx context.Context, r order.Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var txMs int64
	if !r.TransactTime.IsZero() {
		txMs = r.TransactTime.UnixMilli()
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO trades
			(order_id, client_order_id, symbol, side, quantity, executed_qty, avg_price, status, transact_time_ms, recorded_at_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.OrderID, r.ClientOrderID, r.Symbol, string(r.Side), r.Quantity,
		r.ExecutedQty, r.AvgPrice, string(r.Status), txMs, s.now().UnixMilli(),
	); err != nil {
		return fmt.Errorf("store.RecordTrade: %w", err)
	}
	return nil
}

// Trades 按写入顺序返回全部成交记录。
func (s *SQLiteStore) Trades(ctx context.Context) ([]order.Receipt, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT order_id, client_order_id, symbol, side, quantity, executed_qty, avg_price, status, transact_time_ms
		FROM trades ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("store.Trades: %w", err)
	}
	defer rows.Close()

	var out []order.Receipt
	for rows.Next() {
		var (
			r            order.Receipt
			side, status string
			txMs         int64
		)
		if err := rows.Scan(&r.OrderID, &r.ClientOrderID, &r.Symbol, &side, &r.Quantity,
			&r.ExecutedQty, &r.AvgPrice, &status, &txMs); err != nil {
			return nil, fmt.Errorf("store.Trades: scan: %w", err)
		}
		r.Side = order.Side(side)
		r.Status = order.Status(status)
		if txMs > 0 {
			r.TransactTime = time.UnixMilli(txMs).UTC()
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

var (
	_ strategy.StateStore   = (*SQLiteStore)(nil)
	_ strategy.TradeJournal = (*SQLiteStore)(nil)
)
