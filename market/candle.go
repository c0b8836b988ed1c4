package market

import "time"

// Candle 表示一根 OHLCV K 线，按 Ts 升序由交易所返回，获取后不再修改。
type Candle struct {
	Ts     time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Latest 返回窗口中最新的一根；窗口为空时第二个返回值为 false。
func Latest(candles []Candle) (Candle, bool) {
	if len(candles) == 0 {
		return Candle{}, false
	}
	return candles[len(candles)-1], true
}
