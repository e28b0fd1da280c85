package quality

import (
	"testing"
	"time"
)

func TestAlertRoundTrip(t *testing.T) {
	alert := &Alert{
		Type:        AlertTypeTriggered,
		Reason:      "weather.unresolved_postal_code",
		Value:       120,
		Threshold:   100,
		Operator:    ">",
		Duration:    10,
		StartTime:   time.Date(2022, 2, 10, 6, 0, 0, 0, time.UTC),
		AlertID:     7,
		GeneratedAt: time.Date(2022, 2, 10, 6, 10, 0, 0, time.UTC),
	}

	data, err := EncodeAlert(alert)
	if err != nil {
		t.Fatalf("EncodeAlert failed: %v", err)
	}

	decoded, err := DecodeAlert(data)
	if err != nil {
		t.Fatalf("DecodeAlert failed: %v", err)
	}

	if decoded.Reason != alert.Reason || decoded.AlertID != alert.AlertID {
		t.Errorf("Round trip mismatch: %+v", decoded)
	}
}

func TestDecodeAlertRejectsUnknownType(t *testing.T) {
	if _, err := DecodeAlert([]byte(`{"type": "weather_alarm", "reason": "x"}`)); err == nil {
		t.Fatal("Expected error for unknown alert type")
	}
}

func TestDecodeAlertRequiresReason(t *testing.T) {
	if _, err := DecodeAlert([]byte(`{"type": "quality_alert_triggered"}`)); err == nil {
		t.Fatal("Expected error for missing reason")
	}
}

func TestEvaluateCondition(t *testing.T) {
	cases := []struct {
		value     float64
		operator  string
		threshold float64
		want      bool
	}{
		{120, ">", 100, true},
		{100, ">", 100, false},
		{100, ">=", 100, true},
		{5, "<", 10, true},
		{10, "<=", 10, true},
		{10, "!=", 10, false}, // unsupported operator never breaches
	}

	for _, c := range cases {
		got := evaluateCondition(c.value, c.operator, c.threshold)
		if got != c.want {
			t.Errorf("evaluateCondition(%v, %q, %v) = %v, want %v",
				c.value, c.operator, c.threshold, got, c.want)
		}
	}
}
