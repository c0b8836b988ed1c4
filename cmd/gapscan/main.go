package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"

	"gap-trader-go/config"
	"gap-trader-go/gateway"
	"gap-trader-go/market"
)

// gapscan 只读：拉取 K 线并打印跳空，不下单。不带 -config 时无需 API 密钥。
func main() {
	cfgPath := flag.String("config", "", "配置文件路径（可选，提供默认交易对/周期/阈值）")
	symbol := flag.String("symbol", "", "交易对(如 BTC/USDT)，覆盖配置")
	timeframe := flag.String("timeframe", "", "K 线周期(如 1h)，覆盖配置")
	threshold := flag.Float64("threshold", -1, "缺口阈值(百分比)，<0 表示沿用配置")
	limit := flag.Int("limit", 0, "K 线数量，0 表示沿用配置")
	flag.Parse()

	trading := config.TradingConfig{Symbol: "BTC/USDT", Timeframe: "1h", CandleCount: 100}
	baseURL := gateway.DefaultBaseURL
	if *cfgPath != "" {
		cfg, err := config.LoadWithEnvOverrides(*cfgPath)
		if err != nil {
			log.Fatalf("加载配置失败: %v", err)
		}
		trading = cfg.Trading
		baseURL = cfg.Gateway.BaseURL
	}
	if *symbol != "" {
		trading.Symbol = *symbol
	}
	if *timeframe != "" {
		trading.Timeframe = *timeframe
	}
	if *limit > 0 {
		trading.CandleCount = *limit
	}
	th := trading.Threshold()
	if *threshold >= 0 {
		th = *threshold
	}

	client := &gateway.BinanceRESTClient{
		BaseURL:    baseURL,
		HTTPClient: gateway.NewDefaultHTTPClient(10 * time.Second),
		Limiter:    gateway.NoLimit,
		MaxRetries: 2,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	candles, err := client.FetchCandles(ctx, trading.Symbol, trading.Timeframe, trading.CandleCount)
	if err != nil {
		log.Fatalf("获取 K 线失败: %v", err)
	}
	anomalies, err := market.DetectGaps(candles, th)
	if err != nil {
		log.Fatalf("检测缺口失败: %v", err)
	}

	fmt.Printf("%s %s 共 %d 根 K 线，阈值 %.4f%%，缺口 %d 个\n",
		gateway.NormalizeSymbol(trading.Symbol), trading.Timeframe, len(candles), th, len(anomalies))
	if len(anomalies) > 0 {
		table := tablewriter.NewWriter(os.Stdout)
		table.Header("#", "Time", "Dir", "Gap%", "PrevClose", "Close")
		for i, a := range anomalies {
			dir := "DOWN"
			if a.GapPct > th {
				dir = "UP"
			}
			table.Append(
				strconv.Itoa(i+1),
				a.Ts.Format(time.RFC3339),
				dir,
				fmt.Sprintf("%+.4f", a.GapPct),
				fmt.Sprintf("%.8g", a.PrevClose),
				fmt.Sprintf("%.8g", a.Close),
			)
		}
		table.Render()
	}
	if latest, ok := market.MostRecent(anomalies); ok && latest.GapPct > th {
		fmt.Printf("最新缺口向上，引擎会以 %.8g 为回补目标买入\n", latest.Close)
	}
}
