package gateway

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/paymentintent"
	"github.com/stripe/stripe-go/v80/refund"
)

// StripeGateway drives card payments through Stripe PaymentIntents. Card
// confirmation completes synchronously.
type StripeGateway struct {
	secretKey string
}

// NewStripeGateway configures the global Stripe client key and returns the
// adapter.
func NewStripeGateway(secretKey string) *StripeGateway {
	stripe.Key = secretKey
	return &StripeGateway{secretKey: secretKey}
}

// ProcessPayment confirms an existing intent or creates and confirms a new
// one from the supplied payment method token.
func (g *StripeGateway) ProcessPayment(ctx context.Context, req Request) (Response, error) {
	if req.PaymentToken != "" {
		params := &stripe.PaymentIntentConfirmParams{}
		params.Context = ctx
		if req.ReturnURL != "" {
			params.ReturnURL = stripe.String(req.ReturnURL)
		}
		pi, err := paymentintent.Confirm(req.PaymentToken, params)
		if err != nil {
			return stripeErrorResponse(req.PaymentToken, err), nil
		}
		return responseFromIntent(pi), nil
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountForStripe(req.Amount)),
		Currency: stripe.String(req.Currency),
		Confirm:  stripe.Bool(true),
	}
	params.Context = ctx
	if method, ok := req.Data["payment_method"].(string); ok && method != "" {
		params.PaymentMethod = stripe.String(method)
	}
	if req.ReturnURL != "" {
		params.ReturnURL = stripe.String(req.ReturnURL)
	}
	if req.StoreSource {
		params.SetupFutureUsage = stripe.String(string(stripe.PaymentIntentSetupFutureUsageOffSession))
	}
	pi, err := paymentintent.New(params)
	if err != nil {
		return stripeErrorResponse("", err), nil
	}
	return responseFromIntent(pi), nil
}

// ConfirmPayment re-reads the intent and reports whether the full amount
// was received.
func (g *StripeGateway) ConfirmPayment(ctx context.Context, req Request) (Response, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := paymentintent.Get(req.PaymentToken, params)
	if err != nil {
		return stripeErrorResponse(req.PaymentToken, err), nil
	}
	resp := responseFromIntent(pi)
	resp.Success = pi.Status == stripe.PaymentIntentStatusSucceeded ||
		pi.AmountReceived == pi.Amount
	resp.ActionRequired = false
	return resp, nil
}

// Refund refunds the intent up to the requested amount.
func (g *StripeGateway) Refund(ctx context.Context, req Request) (Response, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(req.PaymentToken),
		Amount:        stripe.Int64(amountForStripe(req.Amount)),
	}
	params.Context = ctx
	r, err := refund.New(params)
	if err != nil {
		return stripeErrorResponse(req.PaymentToken, err), nil
	}
	return Response{Success: true, TransactionID: r.ID}, nil
}

// Void cancels an uncaptured intent.
func (g *StripeGateway) Void(ctx context.Context, req Request) (Response, error) {
	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx
	pi, err := paymentintent.Cancel(req.PaymentToken, params)
	if err != nil {
		return stripeErrorResponse(req.PaymentToken, err), nil
	}
	return Response{Success: true, TransactionID: pi.ID}, nil
}

func responseFromIntent(pi *stripe.PaymentIntent) Response {
	resp := Response{
		TransactionID: pi.ID,
	}
	if pi.Customer != nil {
		resp.CustomerID = pi.Customer.ID
	}
	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded, stripe.PaymentIntentStatusProcessing:
		resp.Success = true
	case stripe.PaymentIntentStatusRequiresAction:
		resp.Success = true
		resp.ActionRequired = true
		resp.ActionData = map[string]any{"client_secret": pi.ClientSecret}
	default:
		resp.Error = fmt.Sprintf("unexpected payment intent status %q", pi.Status)
	}
	return resp
}

func stripeErrorResponse(transactionID string, err error) Response {
	msg := err.Error()
	if stripeErr, ok := err.(*stripe.Error); ok && stripeErr.Msg != "" {
		msg = stripeErr.Msg
	}
	return Response{TransactionID: transactionID, Error: msg}
}

// amountForStripe converts a decimal major-unit amount to minor units.
func amountForStripe(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
