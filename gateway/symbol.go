package gateway

import "strings"

// NormalizeSymbol 把 "BTC/USDT"、"btc-usdt" 统一成 Binance 的 "BTCUSDT"。
func NormalizeSymbol(pair string) string {
	r := strings.NewReplacer("/", "", "-", "", "_", "", " ", "")
	return strings.ToUpper(r.Replace(pair))
}
