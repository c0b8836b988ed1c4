package config

import (
	"errors"
	"fmt"
)

// Validate ensures required fields are present and trading parameters are sane.
func Validate(cfg AppConfig) error {
	if cfg.Gateway.APIKey == "" || cfg.Gateway.APISecret == "" {
		return errors.New("gateway.apiKey/apiSecret is required (or env overrides)")
	}
	if cfg.Gateway.RestRate < 0 || cfg.Gateway.RestBurst < 0 {
		return errors.New("gateway rate limit must be >= 0")
	}
	if cfg.Gateway.MaxRetries < 0 {
		return errors.New("gateway.maxRetries must be >= 0")
	}
	t := cfg.Trading
	if t.Symbol == "" {
		return errors.New("trading.symbol is required")
	}
	if t.Timeframe == "" {
		return errors.New("trading.timeframe is required")
	}
	if t.Threshold() < 0 {
		return fmt.Errorf("trading.gapThreshold must be >= 0, got %v", t.Threshold())
	}
	if t.TradeQuantity <= 0 {
		return fmt.Errorf("trading.tradeQuantity must be > 0, got %v", t.TradeQuantity)
	}
	if t.CandleCount < 2 || t.CandleCount > 1000 {
		return fmt.Errorf("trading.candleCount must be within [2,1000], got %d", t.CandleCount)
	}
	if t.CycleIntervalSec < 0 || t.RecoveryPollSec < 0 || t.MaxRecoveryWaitSec < 0 {
		return errors.New("trading intervals must be >= 0")
	}
	return nil
}
