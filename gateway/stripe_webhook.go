package gateway

import (
	"bytes"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/webhook"
)

// WebhookVerifier authenticates an incoming provider notification and
// returns the decoded envelope.
type WebhookVerifier interface {
	ParseWebhook(r *http.Request) (stripe.Event, error)
}

// StripeWebhookVerifier checks the Stripe-Signature header against the
// endpoint's signing secret.
type StripeWebhookVerifier struct {
	WebhookKey string
}

func NewStripeWebhookVerifier(webhookKey string) *StripeWebhookVerifier {
	return &StripeWebhookVerifier{WebhookKey: webhookKey}
}

func (v *StripeWebhookVerifier) ParseWebhook(r *http.Request) (stripe.Event, error) {
	var event stripe.Event
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		return event, err
	}
	r.Body = io.NopCloser(bytes.NewBuffer(payload))
	sigHeader := r.Header.Get("Stripe-Signature")
	return webhook.ConstructEvent(payload, sigHeader, v.WebhookKey)
}
