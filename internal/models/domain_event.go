package models

import (
	"encoding/json"
	"time"
)

// DomainEvent is what other EMR services publish on the events exchange.
// Type falls back to the AMQP routing key when empty.
type DomainEvent struct {
	ID         string          `json:"id,omitempty"`
	Type       string          `json:"type"`
	HospitalID uint            `json:"hospitalId"`
	UserID     *uint           `json:"userId,omitempty"`
	Data       json.RawMessage `json:"data"`
	OccurredAt *time.Time      `json:"occurredAt,omitempty"`
}
