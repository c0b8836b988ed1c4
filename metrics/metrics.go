// Package metrics provides Prometheus metrics for the gap trading bot
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gapbot_cycles_total",
		Help: "已执行的检测周期数",
	})
	CycleErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gapbot_cycle_errors_total",
		Help: "以错误结束的周期数",
	})
	AnomaliesDetected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gapbot_anomalies_detected_total",
		Help: "检测到的跳空 K 线数量",
	})
	OrdersSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gapbot_orders_submitted_total",
		Help: "按方向统计的市价单数量",
	}, []string{"side"})
	RecoveryPolls = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gapbot_recovery_polls_total",
		Help: "回补轮询次数",
	})

	RestRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gapbot_rest_requests_total",
		Help: "REST 请求数量",
	}, []string{"action"})
	RestErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gapbot_rest_errors_total",
		Help: "REST 错误数量",
	}, []string{"action"})
	RestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gapbot_rest_latency_seconds",
		Help:    "REST 请求耗时",
		Buckets: prometheus.DefBuckets,
	}, []string{"action"})

	EnginePhase = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gapbot_engine_phase",
		Help: "引擎状态(0=idle,1=awaiting_recovery)",
	})
	LastPrice = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gapbot_last_price",
		Help: "最近一次获取的成交价",
	})
	LatestGapPct = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gapbot_latest_gap_pct",
		Help: "最近一次异常的缺口百分比",
	})
	RecoveryTarget = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gapbot_recovery_target",
		Help: "等待回补的目标收盘价，空仓时为 0",
	})
)

// Recorder 实现 strategy.Observer，把引擎事件转成指标。
type Recorder struct{}

func (Recorder) CycleDone(err error) {
	CyclesTotal.Inc()
	if err != nil {
		CycleErrors.Inc()
	}
}

func (Recorder) AnomaliesFound(n int, latestGapPct float64) {
	AnomaliesDetected.Add(float64(n))
	if n > 0 {
		LatestGapPct.Set(latestGapPct)
	}
}

func (Recorder) OrderSubmitted(side string) {
	OrdersSubmitted.WithLabelValues(side).Inc()
}

func (Recorder) RecoveryPolled() {
	RecoveryPolls.Inc()
}

func (Recorder) LastPriceSeen(p float64) {
	LastPrice.Set(p)
}

// PhaseChanged awaiting=true 时记录目标价，回到空仓时清零。
func (Recorder) PhaseChanged(awaiting bool, target float64) {
	if awaiting {
		EnginePhase.Set(1)
		RecoveryTarget.Set(target)
		return
	}
	EnginePhase.Set(0)
	RecoveryTarget.Set(0)
}

// ObserveREST 供 gateway.BinanceRESTClient.OnRequest 使用。
func ObserveREST(action string, elapsed time.Duration, err error) {
	RestRequests.WithLabelValues(action).Inc()
	RestLatency.WithLabelValues(action).Observe(elapsed.Seconds())
	if err != nil {
		RestErrors.WithLabelValues(action).Inc()
	}
}

// Handler 返回挂载 /metrics 的 mux。
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}
