package order

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Side 下单方向。
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

var ErrInvalidSide = errors.New("order side must be BUY or SELL")

// ParseSide 接受 buy/sell（大小写不敏感）。
func ParseSide(s string) (Side, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(SideBuy):
		return SideBuy, nil
	case string(SideSell):
		return SideSell, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSide, s)
}

// Valid 判断方向是否为 BUY/SELL。
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// Status represents order lifecycle as reported by the exchange.
type Status string

const (
	StatusNew      Status = "NEW"
	StatusPartial  Status = "PARTIALLY_FILLED"
	StatusFilled   Status = "FILLED"
	StatusCanceled Status = "CANCELED"
	StatusRejected Status = "REJECTED"
	StatusExpired  Status = "EXPIRED"
)

// Order 是一笔市价单请求。
type Order struct {
	Symbol   string
	Side     Side
	Quantity float64
	ClientID string
}

// Receipt 是交易所对市价单的回执。
type Receipt struct {
	OrderID       string
	ClientOrderID string
	Symbol        string
	Side          Side
	Quantity      float64
	ExecutedQty   float64
	AvgPrice      float64
	Status        Status
	TransactTime  time.Time
}
