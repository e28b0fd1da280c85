package report

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType represents the type of message
type MessageType string

const (
	// Consumer to server
	MsgTypeHello     MessageType = "hello"
	MsgTypeQuery     MessageType = "query"
	MsgTypeKeepalive MessageType = "keepalive"

	// Server to consumer
	MsgTypeAck  MessageType = "ack"
	MsgTypeRows MessageType = "rows"
)

// BaseMessage is the common structure for all messages
type BaseMessage struct {
	Type MessageType `json:"type"`
}

// HelloMessage opens a session; the role comes from the caller's identity
// provider and decides what every later read reveals
type HelloMessage struct {
	Type MessageType `json:"type"`
	Role string      `json:"role"`
}

// QueryMessage requests rows from a named derived dataset, optionally
// filtered by date range, city and country
type QueryMessage struct {
	Type    MessageType `json:"type"`
	Dataset string      `json:"dataset"`
	From    string      `json:"from,omitempty"` // 2006-01-02, inclusive
	To      string      `json:"to,omitempty"`   // 2006-01-02, inclusive
	City    string      `json:"city,omitempty"`
	Country string      `json:"country,omitempty"`
}

// KeepaliveMessage keeps an idle session open
type KeepaliveMessage struct {
	Type MessageType `json:"type"`
}

// AckMessage is sent by the server in response to session events
type AckMessage struct {
	Type   MessageType `json:"type"`
	Status string      `json:"status"`
	Detail string      `json:"detail,omitempty"`
}

// RowsMessage carries one query's masked result rows
type RowsMessage struct {
	Type    MessageType              `json:"type"`
	Dataset string                   `json:"dataset"`
	Count   int                      `json:"count"`
	Rows    []map[string]interface{} `json:"rows"`
}

// AckStatus constants
const (
	AckStatusReady = "ready"
	AckStatusAlive = "alive"
	AckStatusError = "error"
)

// ParseMessage parses a JSON line into the appropriate message type
func ParseMessage(data []byte) (interface{}, error) {
	var base BaseMessage
	if err := json.Unmarshal(data, &base); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	switch base.Type {
	case MsgTypeHello:
		var msg HelloMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("invalid hello message: %w", err)
		}
		if msg.Role == "" {
			return nil, fmt.Errorf("role is required")
		}
		return &msg, nil

	case MsgTypeQuery:
		var msg QueryMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("invalid query message: %w", err)
		}
		if err := validateQuery(&msg); err != nil {
			return nil, err
		}
		return &msg, nil

	case MsgTypeKeepalive:
		var msg KeepaliveMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("invalid keepalive message: %w", err)
		}
		return &msg, nil

	default:
		return nil, fmt.Errorf("unknown message type: %s", base.Type)
	}
}

// validateQuery validates a query message
func validateQuery(msg *QueryMessage) error {
	if msg.Dataset == "" {
		return fmt.Errorf("dataset is required")
	}
	for _, d := range []string{msg.From, msg.To} {
		if d == "" {
			continue
		}
		if _, err := time.Parse("2006-01-02", d); err != nil {
			return fmt.Errorf("invalid date %q (expected YYYY-MM-DD): %w", d, err)
		}
	}
	return nil
}

// EncodeMessage encodes a message to JSON
func EncodeMessage(msg interface{}) ([]byte, error) {
	return json.Marshal(msg)
}

// NewAckMessage creates a new acknowledgment message
func NewAckMessage(status, detail string) *AckMessage {
	return &AckMessage{
		Type:   MsgTypeAck,
		Status: status,
		Detail: detail,
	}
}
