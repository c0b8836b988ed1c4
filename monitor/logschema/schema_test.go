package logschema

import "testing"

func TestValidate(t *testing.T) {
	err := Validate("anomaly_detected", map[string]interface{}{
		"symbol":    "BTC/USDT",
		"gapPct":    2.0,
		"threshold": 1.0,
		"close":     101.0,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err = Validate("anomaly_detected", map[string]interface{}{
		"symbol": "BTC/USDT",
	})
	if err == nil {
		t.Fatalf("expected error for missing fields")
	}
	if err := Validate("unknown_event", nil); err != nil {
		t.Fatalf("unknown events should pass, got %v", err)
	}
}

func TestKnownEvents(t *testing.T) {
	names := Known()
	if len(names) == 0 {
		t.Fatalf("expected non-empty schema list")
	}
	found := false
	for _, n := range names {
		if n == "order_submit" {
			found = true
		}
	}
	if !found {
		t.Fatalf("order_submit not found in schemas")
	}
}
