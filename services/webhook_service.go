package services

import (
	"checkout-service/models"
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Normalized webhook event types. The controller maps provider-specific
// envelope types onto these before dispatch.
const (
	WebhookPaymentProcessing = "payment_processing"
	WebhookPaymentSucceeded  = "payment_succeeded"
	WebhookPaymentFailed     = "payment_failed"
	WebhookPaymentRefunded   = "payment_refunded"
)

// WebhookEvent is a provider notification reduced to the fields the
// reconciler acts on.
type WebhookEvent struct {
	Type             string
	TransactionToken string
	CheckoutToken    *uuid.UUID
	Amount           decimal.Decimal
	Currency         string
	FailureMessage   string
}

// CheckoutCompleter finishes a checkout whose payment was confirmed out of
// band.
type CheckoutCompleter interface {
	CompleteConfirmed(ctx context.Context, token uuid.UUID) (*models.Order, error)
}

// WebhookService reconciles provider notifications with local payment
// state. Every handler is idempotent: providers redeliver, and the same
// event must never produce a second order or a second refund record.
type WebhookService struct {
	payments  PaymentStore
	completer CheckoutCompleter
	events    PaymentEventPublisher
	logger    *zap.Logger
}

// NewWebhookService creates a new WebhookService.
func NewWebhookService(payments PaymentStore, completer CheckoutCompleter, events PaymentEventPublisher, logger *zap.Logger) *WebhookService {
	return &WebhookService{payments: payments, completer: completer, events: events, logger: logger}
}

// HandleEvent dispatches one normalized event. A nil return acknowledges
// the delivery; the provider stops retrying.
func (s *WebhookService) HandleEvent(ctx context.Context, event WebhookEvent) error {
	payment, err := s.payments.ByTransactionToken(ctx, event.TransactionToken)
	if err != nil {
		return err
	}

	switch event.Type {
	case WebhookPaymentSucceeded:
		return s.handleConfirmed(ctx, payment, event, models.ChargeStatusFullyCharged)
	case WebhookPaymentProcessing:
		// Delayed-settlement providers confirm before funds arrive. The
		// order is created now; the payment stays pending until the
		// succeeded event lands.
		return s.handleConfirmed(ctx, payment, event, models.ChargeStatusPending)
	case WebhookPaymentFailed:
		return s.handleFailed(ctx, payment, event)
	case WebhookPaymentRefunded:
		return s.handleRefunded(ctx, payment, event)
	default:
		s.logger.Debug("Ignoring webhook event type", zap.String("type", event.Type))
		return nil
	}
}

func (s *WebhookService) handleConfirmed(ctx context.Context, payment *models.Payment, event WebhookEvent, status models.ChargeStatus) error {
	if payment.OrderID != nil {
		// Redelivery after a completed attempt. The order exists; there is
		// nothing left to reconcile except a pending -> charged upgrade.
		if status == models.ChargeStatusFullyCharged && payment.ChargeStatus == models.ChargeStatusPending {
			return s.payments.UpdateChargeStatus(ctx, payment.ID, status)
		}
		s.logger.Info("Duplicate webhook delivery for completed payment",
			zap.String("payment_id", payment.ID.String()))
		return nil
	}
	if payment.CheckoutToken == nil {
		s.logger.Warn("Confirmed payment has neither order nor checkout",
			zap.String("payment_id", payment.ID.String()))
		return nil
	}

	order, err := s.completer.CompleteConfirmed(ctx, *payment.CheckoutToken)
	if err != nil {
		if errors.Is(err, ErrAlreadyProcessing) {
			// Another delivery of the same event holds the claim. Ack this
			// one; the winner finishes the checkout.
			s.logger.Info("Completion already in progress, acknowledging duplicate",
				zap.String("checkout_token", payment.CheckoutToken.String()))
			return nil
		}
		return err
	}

	if status != models.ChargeStatusFullyCharged {
		if err := s.payments.UpdateChargeStatus(ctx, payment.ID, status); err != nil {
			return err
		}
	}

	s.publish(ctx, payment, event, "payment_succeeded", order)
	return nil
}

func (s *WebhookService) handleFailed(ctx context.Context, payment *models.Payment, event WebhookEvent) error {
	if payment.ChargeStatus == models.ChargeStatusRefused {
		return nil
	}
	if err := s.payments.UpdateChargeStatus(ctx, payment.ID, models.ChargeStatusRefused); err != nil {
		return err
	}

	txn := &models.Transaction{
		PaymentID: payment.ID,
		Kind:      models.TransactionCapture,
		Token:     event.TransactionToken,
		Amount:    payment.Total,
		Currency:  payment.Currency,
		IsSuccess: false,
	}
	if event.FailureMessage != "" {
		msg := event.FailureMessage
		txn.Error = &msg
	}
	if err := s.payments.CreateTransaction(ctx, txn); err != nil {
		s.logger.Error("Failed to record failed capture",
			zap.String("payment_id", payment.ID.String()), zap.Error(err))
	}

	s.publish(ctx, payment, event, "payment_failed", nil)
	return nil
}

// handleRefunded classifies the provider's cumulative refunded amount.
// A refused payment never transitions again, and a redelivery after a full
// refund is acknowledged as long as it does not quote more money than the
// payment ever held.
func (s *WebhookService) handleRefunded(ctx context.Context, payment *models.Payment, event WebhookEvent) error {
	if event.Currency != "" && !equalCurrency(event.Currency, payment.Currency) {
		return &InvalidCurrencyError{Expected: payment.Currency, Got: event.Currency}
	}
	if payment.ChargeStatus == models.ChargeStatusRefused {
		s.logger.Info("Ignoring refund for refused payment",
			zap.String("payment_id", payment.ID.String()))
		return nil
	}

	refunded := event.Amount
	if refunded.LessThanOrEqual(decimal.Zero) || refunded.GreaterThan(payment.Total) {
		return &InvalidRefundAmountError{Refunded: refunded, Total: payment.Total}
	}
	if payment.ChargeStatus == models.ChargeStatusFullyRefunded {
		s.logger.Info("Duplicate refund delivery for fully refunded payment",
			zap.String("payment_id", payment.ID.String()))
		return nil
	}

	status := models.ChargeStatusPartiallyRefunded
	if refunded.Equal(payment.Total) {
		status = models.ChargeStatusFullyRefunded
	}
	now := time.Now().UTC()
	if err := s.payments.SetRefund(ctx, payment.ID, status, refunded, &now); err != nil {
		return err
	}

	txn := &models.Transaction{
		PaymentID: payment.ID,
		Kind:      models.TransactionRefund,
		Token:     event.TransactionToken,
		Amount:    refunded,
		Currency:  payment.Currency,
		IsSuccess: true,
	}
	if err := s.payments.CreateTransaction(ctx, txn); err != nil {
		s.logger.Error("Failed to record refund transaction",
			zap.String("payment_id", payment.ID.String()), zap.Error(err))
	}

	s.publish(ctx, payment, event, "payment_refunded", nil)
	return nil
}

func (s *WebhookService) publish(ctx context.Context, payment *models.Payment, event WebhookEvent, eventType string, order *models.Order) {
	out := models.PaymentEvent{
		Type:      eventType,
		PaymentID: payment.ID.String(),
		Amount:    event.Amount.String(),
		Currency:  payment.Currency,
		Timestamp: time.Now().UTC(),
	}
	if payment.CheckoutToken != nil {
		out.CheckoutToken = payment.CheckoutToken.String()
	}
	if order != nil {
		out.OrderID = order.ID.String()
	} else if payment.OrderID != nil {
		out.OrderID = payment.OrderID.String()
	}
	if err := s.events.PublishPaymentEvent(context.WithoutCancel(ctx), out); err != nil {
		s.logger.Error("Failed to publish payment event",
			zap.String("payment_id", payment.ID.String()), zap.Error(err))
	}
}

func equalCurrency(a, b string) bool {
	return strings.EqualFold(a, b)
}
