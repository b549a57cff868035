package entity

import "time"

// WebhookEvent is the audit record written for every verified inbound event.
// It is observational only; the request pipeline never reads it back.
type WebhookEvent struct {
	ID              int64     `json:"id"`
	Provider        string    `json:"provider"`   // "commerce" or "processor"
	EventID         string    `json:"event_id"`   // order id or invoice token
	EventType       string    `json:"event_type"` // "orders/create", "ipn"
	Payload         string    `json:"payload"`
	SignatureValid  bool      `json:"signature_valid"`
	OutcomeCode     string    `json:"outcome_code"`
	ProcessingError string    `json:"processing_error"`
	CreatedAt       time.Time `json:"created_at"`
}
