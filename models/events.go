package models

import "time"

// OrderCreatedEvent is published to Kafka when a checkout completes.
type OrderCreatedEvent struct {
	Event         string    `json:"event"` // "order.created"
	OrderID       string    `json:"order_id"`
	CheckoutToken string    `json:"checkout_token"`
	UserID        string    `json:"user_id,omitempty"`
	Total         string    `json:"total"`
	Currency      string    `json:"currency"`
	Timestamp     time.Time `json:"timestamp"`
}

// PaymentEvent is the best-effort SNS fanout for payment state changes.
type PaymentEvent struct {
	Type          string    `json:"type"` // payment_succeeded, payment_failed, payment_refunded
	PaymentID     string    `json:"payment_id"`
	CheckoutToken string    `json:"checkout_token,omitempty"`
	OrderID       string    `json:"order_id,omitempty"`
	Amount        string    `json:"amount"`
	Currency      string    `json:"currency"`
	Timestamp     time.Time `json:"timestamp"`
}
