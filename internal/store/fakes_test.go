package store_test

import (
	"context"

	"gap-trader-go/market"
	"gap-trader-go/order"
)

type nopMarket struct{}

func (nopMarket) FetchCandles(context.Context, string, string, int) ([]market.Candle, error) {
	return nil, nil
}

func (nopMarket) FetchLastPrice(context.Context, string) (float64, error) { return 0, nil }

type nopOrders struct{}

func (nopOrders) SubmitMarketOrder(context.Context, string, order.Side, float64) (order.Receipt, error) {
	return order.Receipt{}, nil
}
