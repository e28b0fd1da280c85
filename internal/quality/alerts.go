package quality

import (
	"encoding/json"
	"fmt"
	"time"
)

// Alert types
const (
	AlertTypeTriggered = "quality_alert_triggered"
	AlertTypeCleared   = "quality_alert_cleared"
)

// Alert is the message published to the alerts topic when an exclusion
// counter breaches or clears a configured threshold
type Alert struct {
	Type        string    `json:"type"`
	Reason      string    `json:"reason"`
	Value       float64   `json:"value,omitempty"`
	Threshold   float64   `json:"threshold"`
	Operator    string    `json:"operator,omitempty"`
	Duration    int       `json:"duration_minutes,omitempty"`
	StartTime   time.Time `json:"start_time,omitempty"`
	AlertID     int64     `json:"alert_id"`
	GeneratedAt time.Time `json:"generated_at"`
}

// EncodeAlert encodes an alert to JSON
func EncodeAlert(alert *Alert) ([]byte, error) {
	data, err := json.Marshal(alert)
	if err != nil {
		return nil, fmt.Errorf("failed to encode alert: %w", err)
	}
	return data, nil
}

// DecodeAlert decodes an alert from JSON
func DecodeAlert(data []byte) (*Alert, error) {
	var alert Alert
	if err := json.Unmarshal(data, &alert); err != nil {
		return nil, fmt.Errorf("failed to decode alert: %w", err)
	}

	switch alert.Type {
	case AlertTypeTriggered, AlertTypeCleared:
	default:
		return nil, fmt.Errorf("unknown alert type: %s", alert.Type)
	}

	if alert.Reason == "" {
		return nil, fmt.Errorf("alert has no reason")
	}

	return &alert, nil
}
