package order

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Gateway 负责把市价单发往交易所；与 gateway.BinanceRESTClient 对接。
type Gateway interface {
	PlaceMarket(ctx context.Context, o Order) (Receipt, error)
}

var (
	ErrInvalidQuantity = errors.New("order quantity must be > 0")
	ErrUnknownOrder    = errors.New("unknown order")
)

// Manager 校验并下发市价单，同时保留本进程内的回执。
type Manager struct {
	gw       Gateway
	mu       sync.RWMutex
	receipts map[string]Receipt
	history  []string
}

func NewManager(gw Gateway) *Manager {
	return &Manager{
		gw:       gw,
		receipts: make(map[string]Receipt),
	}
}

// SubmitMarketOrder 校验方向与数量后同步下单。
func (m *Manager) SubmitMarketOrder(ctx context.Context, symbol string, side Side, qty float64) (Receipt, error) {
	if !side.Valid() {
		return Receipt{}, fmt.Errorf("%w: %q", ErrInvalidSide, side)
	}
	if qty <= 0 {
		return Receipt{}, ErrInvalidQuantity
	}
	if m.gw == nil {
		return Receipt{}, errors.New("order gateway not set")
	}
	o := Order{
		Symbol:   symbol,
		Side:     side,
		Quantity: qty,
		ClientID: generateID(side),
	}
	r, err := m.gw.PlaceMarket(ctx, o)
	if err != nil {
		return Receipt{}, err
	}
	if r.ClientOrderID == "" {
		r.ClientOrderID = o.ClientID
	}
	m.mu.Lock()
	m.receipts[r.ClientOrderID] = r
	m.history = append(m.history, r.ClientOrderID)
	m.mu.Unlock()
	return r, nil
}

// Receipt 按 clientOrderId 查询回执。
func (m *Manager) Receipt(clientID string) (Receipt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.receipts[clientID]
	if !ok {
		return Receipt{}, ErrUnknownOrder
	}
	return r, nil
}

// History 返回按提交顺序排列的回执。
func (m *Manager) History() []Receipt {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Receipt, 0, len(m.history))
	for _, id := range m.history {
		out = append(out, m.receipts[id])
	}
	return out
}

// generateID 生成 Binance 允许的 newClientOrderId（<=36 字符）。
func generateID(side Side) string {
	prefix := "gb"
	if side == SideSell {
		prefix = "gs"
	}
	return prefix + "-" + uuid.NewString()[:32]
}
