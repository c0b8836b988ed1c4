package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"gap-trader-go/market"
	"gap-trader-go/order"
)

const DefaultBaseURL = "https://api.binance.com"

// BinanceRESTClient 现货 REST 客户端；HTTPClient 可注入 httptest。
type BinanceRESTClient struct {
	BaseURL      string
	APIKey       string
	Secret       string
	HTTPClient   *http.Client
	RecvWindowMs int64
	Limiter      RateLimiter

	// MaxRetries 只作用于行情类 GET；下单从不自动重试，避免重复成交。
	MaxRetries   int
	RetryInitial time.Duration

	// OnRequest 每次 HTTP 往返后回调，用于指标采集。
	OnRequest func(action string, elapsed time.Duration, err error)
}

// FetchCandles 调用 /api/v3/klines，返回按时间升序的 K 线。
func (c *BinanceRESTClient) FetchCandles(ctx context.Context, pair, timeframe string, limit int) ([]market.Candle, error) {
	params := url.Values{}
	params.Set("symbol", NormalizeSymbol(pair))
	params.Set("interval", timeframe)
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	var rows [][]json.RawMessage
	err := c.withRetry(ctx, func() error {
		return c.getJSON(ctx, "klines", "/api/v3/klines?"+params.Encode(), &rows)
	})
	if err != nil {
		return nil, err
	}
	return parseKlines(rows)
}

type tickerResp struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// FetchLastPrice 调用 /api/v3/ticker/price 获取最新成交价。
func (c *BinanceRESTClient) FetchLastPrice(ctx context.Context, pair string) (float64, error) {
	var tr tickerResp
	err := c.withRetry(ctx, func() error {
		return c.getJSON(ctx, "ticker", "/api/v3/ticker/price?symbol="+url.QueryEscape(NormalizeSymbol(pair)), &tr)
	})
	if err != nil {
		return 0, err
	}
	p, err := strconv.ParseFloat(tr.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("parse ticker price %q: %w", tr.Price, err)
	}
	return p, nil
}

type orderResp struct {
	Symbol              string `json:"symbol"`
	OrderID             int64  `json:"orderId"`
	ClientOrderID       string `json:"clientOrderId"`
	TransactTime        int64  `json:"transactTime"`
	OrigQty             string `json:"origQty"`
	ExecutedQty         string `json:"executedQty"`
	CummulativeQuoteQty string `json:"cummulativeQuoteQty"`
	Status              string `json:"status"`
}

// PlaceMarket 调用签名接口 POST /api/v3/order 下市价单。
func (c *BinanceRESTClient) PlaceMarket(ctx context.Context, o order.Order) (order.Receipt, error) {
	if c == nil || c.HTTPClient == nil {
		return order.Receipt{}, ErrClientNotConfigured
	}
	if !o.Side.Valid() {
		return order.Receipt{}, fmt.Errorf("%w: %q", order.ErrInvalidSide, o.Side)
	}
	params := map[string]string{
		"symbol":   NormalizeSymbol(o.Symbol),
		"side":     string(o.Side),
		"type":     "MARKET",
		"quantity": strconv.FormatFloat(o.Quantity, 'f', -1, 64),
	}
	if o.ClientID != "" {
		params["newClientOrderId"] = o.ClientID
	}
	query, sig := SignParams(params, c.Secret, c.RecvWindowMs)
	var pr orderResp
	if err := c.doJSON(ctx, "order", http.MethodPost, "/api/v3/order?"+query+"&signature="+url.QueryEscape(sig), true, &pr); err != nil {
		return order.Receipt{}, err
	}
	if pr.OrderID == 0 {
		return order.Receipt{}, errors.New("empty orderId")
	}
	return pr.toReceipt(o), nil
}

func (pr orderResp) toReceipt(o order.Order) order.Receipt {
	r := order.Receipt{
		OrderID:       strconv.FormatInt(pr.OrderID, 10),
		ClientOrderID: pr.ClientOrderID,
		Symbol:        pr.Symbol,
		Side:          o.Side,
		Quantity:      o.Quantity,
		Status:        order.Status(pr.Status),
	}
	if pr.TransactTime > 0 {
		r.TransactTime = time.UnixMilli(pr.TransactTime).UTC()
	}
	r.ExecutedQty, _ = strconv.ParseFloat(pr.ExecutedQty, 64)
	if quote, err := strconv.ParseFloat(pr.CummulativeQuoteQty, 64); err == nil && r.ExecutedQty > 0 {
		r.AvgPrice = quote / r.ExecutedQty
	}
	return r
}

func (c *BinanceRESTClient) getJSON(ctx context.Context, action, path string, out interface{}) error {
	return c.doJSON(ctx, action, http.MethodGet, path, false, out)
}

func (c *BinanceRESTClient) doJSON(ctx context.Context, action, method, path string, signed bool, out interface{}) (err error) {
	if c == nil || c.HTTPClient == nil {
		return ErrClientNotConfigured
	}
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return err
		}
	}
	start := time.Now()
	defer func() {
		if c.OnRequest != nil {
			c.OnRequest(action, time.Since(start), err)
		}
	}()

	base := c.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	req, err := http.NewRequestWithContext(ctx, method, base+path, nil)
	if err != nil {
		return err
	}
	if signed {
		req.Header.Set("X-MBX-APIKEY", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return &CommunicationError{Op: action, Err: err}
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &CommunicationError{Op: action, StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode >= 300 {
		apiErr := &APIError{}
		if jerr := json.Unmarshal(body, apiErr); jerr != nil || apiErr.Msg == "" {
			return &CommunicationError{Op: action, StatusCode: resp.StatusCode, Err: fmt.Errorf("%s", string(body))}
		}
		return &CommunicationError{Op: action, StatusCode: resp.StatusCode, Err: apiErr}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", action, err)
	}
	return nil
}

// NewDefaultHTTPClient 提供一个带超时的 http.Client。
func NewDefaultHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &http.Client{Timeout: timeout}
}
