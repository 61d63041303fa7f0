// Package gateway defines the contract the checkout core uses to talk to
// any payment provider. New providers are added by implementing
// PaymentGateway, never by modifying the completion orchestrator.
package gateway

import (
	"context"

	"github.com/shopspring/decimal"
)

// Request carries everything an adapter needs to drive one gateway
// operation.
type Request struct {
	PaymentToken string // gateway token / payment intent id
	Amount       decimal.Decimal
	Currency     string
	ReturnURL    string
	CustomerID   string
	StoreSource  bool
	// Data is the raw payment-method payload handed in by the client or a
	// webhook event; adapters interpret it.
	Data map[string]any
}

// Response is the uniform gateway result. ActionRequired means additional
// customer interaction (e.g. a redirect) is needed before the payment can
// be considered final.
type Response struct {
	Success        bool
	ActionRequired bool
	ActionData     map[string]any
	TransactionID  string
	CustomerID     string
	Error          string
}

// PaymentGateway abstracts a payment provider. Providers supporting only
// delayed confirmation always return ActionRequired from ProcessPayment
// and complete exclusively through the webhook path.
type PaymentGateway interface {
	ProcessPayment(ctx context.Context, req Request) (Response, error)
	ConfirmPayment(ctx context.Context, req Request) (Response, error)
	Refund(ctx context.Context, req Request) (Response, error)
	Void(ctx context.Context, req Request) (Response, error)
}
