package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultGapThreshold = 0.01

// AppConfig holds the main runtime configuration.
type AppConfig struct {
	Env     string        `yaml:"env"`
	Gateway GatewayConfig `yaml:"gateway"`
	Trading TradingConfig `yaml:"trading"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`

	// 兼容旧版 CONFIG.json：{"APIKEYS": "...", "SCREETS": "...", "ENABLERATELIMIT": true}
	LegacyAPIKey          string `yaml:"APIKEYS"`
	LegacyAPISecret       string `yaml:"SCREETS"`
	LegacyEnableRateLimit *bool  `yaml:"ENABLERATELIMIT"`
}

type GatewayConfig struct {
	APIKey          string  `yaml:"apiKey"`
	APISecret       string  `yaml:"apiSecret"`
	BaseURL         string  `yaml:"baseURL"`
	EnableRateLimit *bool   `yaml:"enableRateLimit"`
	RestRate        float64 `yaml:"restRate"`  // 每秒令牌数
	RestBurst       int     `yaml:"restBurst"` // 最大突发
	TimeoutMs       int     `yaml:"timeoutMs"`
	RecvWindowMs    int64   `yaml:"recvWindowMs"`
	MaxRetries      int     `yaml:"maxRetries"` // 行情请求的有限重试次数，0 表示不重试
}

// RateLimited 未配置时默认开启限流。
func (g GatewayConfig) RateLimited() bool {
	return g.EnableRateLimit == nil || *g.EnableRateLimit
}

type TradingConfig struct {
	Symbol             string   `yaml:"symbol"`
	Timeframe          string   `yaml:"timeframe"`
	GapThreshold       *float64 `yaml:"gapThreshold"`  // 百分比，0.01 表示 0.01%
	TradeQuantity      float64  `yaml:"tradeQuantity"` // 基础资产数量
	CandleCount        int      `yaml:"candleCount"`
	CycleIntervalSec   int      `yaml:"cycleIntervalSec"`
	RecoveryPollSec    int      `yaml:"recoveryPollSec"`
	MaxRecoveryWaitSec int      `yaml:"maxRecoveryWaitSec"` // 0 表示无限等待回补
	ContinueOnError    bool     `yaml:"continueOnError"`
}

// Threshold 返回缺口阈值；未配置时为 DefaultGapThreshold。
func (t TradingConfig) Threshold() float64 {
	if t.GapThreshold == nil {
		return DefaultGapThreshold
	}
	return *t.GapThreshold
}

func (t TradingConfig) CycleInterval() time.Duration {
	return time.Duration(t.CycleIntervalSec) * time.Second
}

func (t TradingConfig) RecoveryPoll() time.Duration {
	return time.Duration(t.RecoveryPollSec) * time.Second
}

func (t TradingConfig) MaxRecoveryWait() time.Duration {
	return time.Duration(t.MaxRecoveryWaitSec) * time.Second
}

type StorageConfig struct {
	StatePath string `yaml:"statePath"` // SQLite 路径；为空则状态只保存在内存
}

type LogConfig struct {
	Level      string   `yaml:"level"`
	Format     string   `yaml:"format"`
	Outputs    []string `yaml:"outputs"`
	OutputFile string   `yaml:"outputFile"`
	ErrorFile  string   `yaml:"errorFile"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// ConfigError 表示配置缺失或非法，启动阶段致命。
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("config: %v", e.Err)
	}
	return fmt.Sprintf("config %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// IsConfigError 判断 err 是否来自配置加载。
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// Load reads YAML (or JSON) config from path, applies defaults and validation.
func Load(path string) (AppConfig, error) {
	return load(path, false)
}

// LoadWithEnvOverrides loads .env (if present) and config, then overrides sensitive fields from env vars.
func LoadWithEnvOverrides(path string) (AppConfig, error) {
	_ = godotenv.Load()
	return load(path, true)
}

func load(path string, withEnv bool) (AppConfig, error) {
	var cfg AppConfig
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, &ConfigError{Path: path, Err: fmt.Errorf("read config: %w", err)}
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, &ConfigError{Path: path, Err: fmt.Errorf("parse yaml: %w", err)}
	}
	applyLegacy(&cfg)
	if withEnv {
		applyEnvOverrides(&cfg)
	}
	setDefaults(&cfg)
	if err := Validate(cfg); err != nil {
		return cfg, &ConfigError{Path: path, Err: err}
	}
	return cfg, nil
}

func applyLegacy(cfg *AppConfig) {
	if cfg.Gateway.APIKey == "" {
		cfg.Gateway.APIKey = cfg.LegacyAPIKey
	}
	if cfg.Gateway.APISecret == "" {
		cfg.Gateway.APISecret = cfg.LegacyAPISecret
	}
	if cfg.Gateway.EnableRateLimit == nil && cfg.LegacyEnableRateLimit != nil {
		v := *cfg.LegacyEnableRateLimit
		cfg.Gateway.EnableRateLimit = &v
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := os.Getenv("GAPBOT_API_KEY"); v != "" {
		cfg.Gateway.APIKey = v
	}
	if v := os.Getenv("GAPBOT_API_SECRET"); v != "" {
		cfg.Gateway.APISecret = v
	}
	if v := os.Getenv("GAPBOT_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

// setDefaults 对未填写的字段补默认值，与旧版入口硬编码的参数一致。
func setDefaults(cfg *AppConfig) {
	if cfg.Env == "" {
		cfg.Env = "prod"
	}
	if cfg.Gateway.BaseURL == "" {
		cfg.Gateway.BaseURL = "https://api.binance.com"
	}
	if cfg.Gateway.RestRate <= 0 {
		cfg.Gateway.RestRate = 10
	}
	if cfg.Gateway.RestBurst <= 0 {
		cfg.Gateway.RestBurst = 5
	}
	if cfg.Gateway.TimeoutMs <= 0 {
		cfg.Gateway.TimeoutMs = 10000
	}
	if cfg.Gateway.RecvWindowMs <= 0 {
		cfg.Gateway.RecvWindowMs = 5000
	}
	t := &cfg.Trading
	if t.Symbol == "" {
		t.Symbol = "BTC/USDT"
	}
	if t.Timeframe == "" {
		t.Timeframe = "1h"
	}
	if t.TradeQuantity == 0 {
		t.TradeQuantity = 0.01
	}
	if t.CandleCount == 0 {
		t.CandleCount = 100
	}
	if t.CycleIntervalSec == 0 {
		t.CycleIntervalSec = 3600
	}
	if t.RecoveryPollSec == 0 {
		t.RecoveryPollSec = 60
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if len(cfg.Log.Outputs) == 0 {
		cfg.Log.Outputs = []string{"stdout"}
	}
}
