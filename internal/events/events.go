// Package events carries cart activity between portal instances over Kafka.
package events

import (
	"encoding/json"
	"time"
)

const (
	EventCartSubmitted = "CartSubmitted"

	TopicCartSubmitted = "waste.cart.submitted"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // user id
	Payload       json.RawMessage `json:"payload"`
}

type ItemQty struct {
	ProductID string  `json:"product_id"`
	Quantity  float64 `json:"quantity"`
}

type CartSubmittedPayload struct {
	UserID        string    `json:"user_id"`
	Items         []ItemQty `json:"items"`
	TotalQuantity float64   `json:"total_quantity"`
}

// PartitionKey keeps one user's submissions in order.
func PartitionKey(userID string) []byte { return []byte(userID) }
