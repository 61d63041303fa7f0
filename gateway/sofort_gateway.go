package gateway

import (
	"context"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/paymentintent"
)

// SofortGateway is the redirect-based bank-transfer adapter. ProcessPayment
// always returns ActionRequired; the payment completes only when the
// provider's webhook confirms it.
type SofortGateway struct {
	secretKey string
}

func NewSofortGateway(secretKey string) *SofortGateway {
	stripe.Key = secretKey
	return &SofortGateway{secretKey: secretKey}
}

// ProcessPayment creates a Sofort payment intent and hands the client
// secret back so the storefront can redirect the customer.
func (g *SofortGateway) ProcessPayment(ctx context.Context, req Request) (Response, error) {
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(amountForStripe(req.Amount)),
		Currency:           stripe.String(req.Currency),
		PaymentMethodTypes: stripe.StringSlice([]string{"sofort"}),
		ConfirmationMethod: stripe.String(string(stripe.PaymentIntentConfirmationMethodAutomatic)),
		CaptureMethod:      stripe.String(string(stripe.PaymentIntentCaptureMethodAutomatic)),
	}
	params.Context = ctx
	if token, ok := req.Data["checkout_token"].(string); ok && token != "" {
		params.AddMetadata("checkout_token", token)
	}
	if redirect, ok := req.Data["redirect_id"].(string); ok && redirect != "" {
		params.AddMetadata("redirect_id", redirect)
	}
	pi, err := paymentintent.New(params)
	if err != nil {
		return stripeErrorResponse("", err), nil
	}
	return Response{
		Success:        true,
		ActionRequired: true,
		ActionData:     map[string]any{"client_secret": pi.ClientSecret},
		TransactionID:  pi.ID,
		CustomerID:     req.CustomerID,
	}, nil
}

// ConfirmPayment verifies the intent amount was fully captured. It is
// called from the webhook reconciliation path with the event's intent.
func (g *SofortGateway) ConfirmPayment(ctx context.Context, req Request) (Response, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := paymentintent.Get(req.PaymentToken, params)
	if err != nil {
		return stripeErrorResponse(req.PaymentToken, err), nil
	}
	return Response{
		Success:       pi.AmountReceived == pi.Amount || pi.Status == stripe.PaymentIntentStatusProcessing,
		TransactionID: pi.ID,
		CustomerID:    req.CustomerID,
	}, nil
}

// Refund and Void share the Stripe intent machinery with the card adapter.
func (g *SofortGateway) Refund(ctx context.Context, req Request) (Response, error) {
	return (&StripeGateway{secretKey: g.secretKey}).Refund(ctx, req)
}

func (g *SofortGateway) Void(ctx context.Context, req Request) (Response, error) {
	return (&StripeGateway{secretKey: g.secretKey}).Void(ctx, req)
}
