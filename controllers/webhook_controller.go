package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"checkout-service/gateway"
	"checkout-service/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v80"
	"go.uber.org/zap"
)

// WebhookController receives provider notifications and feeds the
// reconciler. A 2xx acknowledges the delivery; a 5xx makes the provider
// retry later.
type WebhookController struct {
	Verifier gateway.WebhookVerifier
	Webhooks *services.WebhookService
	Logger   *zap.Logger
}

// StripeWebhook handles payment status updates pushed by Stripe.
func (wc *WebhookController) StripeWebhook(c *gin.Context) {
	event, err := wc.Verifier.ParseWebhook(c.Request)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid webhook"})
		return
	}

	normalized, ok, err := normalizeStripeEvent(event)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Malformed webhook payload"})
		return
	}
	if !ok {
		// Event types outside the reconciler's interest are acknowledged so
		// Stripe stops redelivering them.
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	if err := wc.Webhooks.HandleEvent(c.Request.Context(), normalized); err != nil {
		wc.respondError(c, normalized, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "received"})
}

func (wc *WebhookController) respondError(c *gin.Context, event services.WebhookEvent, err error) {
	var refundErr *services.InvalidRefundAmountError
	var currencyErr *services.InvalidCurrencyError

	switch {
	case errors.Is(err, services.ErrPaymentNotFound):
		// Not our payment; ack so the provider does not keep retrying.
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
	case errors.As(err, &refundErr), errors.As(err, &currencyErr):
		wc.Logger.Warn("Rejecting webhook event",
			zap.String("type", event.Type),
			zap.String("transaction_token", event.TransactionToken),
			zap.Error(err),
		)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		wc.Logger.Error("Webhook handling failed",
			zap.String("type", event.Type),
			zap.String("transaction_token", event.TransactionToken),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// normalizeStripeEvent reduces a Stripe envelope to the reconciler's event
// shape. The second return is false for event types the reconciler ignores.
func normalizeStripeEvent(event stripe.Event) (services.WebhookEvent, bool, error) {
	switch event.Type {
	case "payment_intent.succeeded", "payment_intent.processing", "payment_intent.payment_failed":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return services.WebhookEvent{}, false, err
		}
		out := services.WebhookEvent{
			TransactionToken: pi.ID,
			Amount:           centsToDecimal(pi.AmountReceived),
			Currency:         string(pi.Currency),
			CheckoutToken:    checkoutTokenFromMetadata(pi.Metadata),
		}
		switch event.Type {
		case "payment_intent.succeeded":
			out.Type = services.WebhookPaymentSucceeded
		case "payment_intent.processing":
			out.Type = services.WebhookPaymentProcessing
		default:
			out.Type = services.WebhookPaymentFailed
			out.Amount = centsToDecimal(pi.Amount)
			if pi.LastPaymentError != nil {
				out.FailureMessage = pi.LastPaymentError.Msg
			}
		}
		return out, true, nil

	case "charge.refunded":
		var charge stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
			return services.WebhookEvent{}, false, err
		}
		out := services.WebhookEvent{
			Type:     services.WebhookPaymentRefunded,
			Amount:   centsToDecimal(charge.AmountRefunded),
			Currency: string(charge.Currency),
		}
		if charge.PaymentIntent != nil {
			out.TransactionToken = charge.PaymentIntent.ID
		}
		return out, true, nil

	default:
		return services.WebhookEvent{}, false, nil
	}
}

func checkoutTokenFromMetadata(metadata map[string]string) *uuid.UUID {
	raw, ok := metadata["checkout_token"]
	if !ok {
		return nil
	}
	token, err := uuid.Parse(raw)
	if err != nil {
		return nil
	}
	return &token
}

func centsToDecimal(amount int64) decimal.Decimal {
	return decimal.New(amount, -2)
}
