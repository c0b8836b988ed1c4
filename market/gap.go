package market

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// ErrDivisionByZero 前一根收盘价为 0，无法计算缺口百分比。
	ErrDivisionByZero    = errors.New("previous close is zero")
	ErrNegativeThreshold = errors.New("gap threshold must be >= 0")
)

// Anomaly 记录一次开盘价相对前收盘的跳空。
type Anomaly struct {
	Ts        time.Time
	GapPct    float64 // (open_t - close_{t-1}) / close_{t-1} * 100，保留符号
	PrevClose float64
	Close     float64
}

// GapPct 计算 curr 相对 prev 收盘的开盘缺口百分比。
func GapPct(prev, curr Candle) (float64, error) {
	if prev.Close == 0 {
		return 0, fmt.Errorf("candle %s: %w", curr.Ts.UTC().Format(time.RFC3339), ErrDivisionByZero)
	}
	return (curr.Open - prev.Close) / prev.Close * 100, nil
}

// DetectGaps 返回 |gap| 超过 threshold 的 K 线（保持原有顺序）。
// 少于两根时返回空结果，不视为错误。
func DetectGaps(candles []Candle, threshold float64) ([]Anomaly, error) {
	if threshold < 0 {
		return nil, ErrNegativeThreshold
	}
	if len(candles) < 2 {
		return nil, nil
	}
	var out []Anomaly
	for i := 1; i < len(candles); i++ {
		prev, curr := candles[i-1], candles[i]
		gap, err := GapPct(prev, curr)
		if err != nil {
			return nil, err
		}
		if math.Abs(gap) > threshold {
			out = append(out, Anomaly{
				Ts:        curr.Ts,
				GapPct:    gap,
				PrevClose: prev.Close,
				Close:     curr.Close,
			})
		}
	}
	return out, nil
}

// MostRecent 返回时间戳最大的异常。DetectGaps 的结果已按时间升序，取最后一个即可。
func MostRecent(anomalies []Anomaly) (Anomaly, bool) {
	if len(anomalies) == 0 {
		return Anomaly{}, false
	}
	return anomalies[len(anomalies)-1], true
}
