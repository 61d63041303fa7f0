package services

import (
	"checkout-service/models"
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockReservation is one variant's reservation request during order-data
// preparation.
type StockReservation struct {
	VariantID      uuid.UUID
	SKU            string
	Quantity       int
	TrackInventory bool
}

// CheckoutStore loads the per-request checkout read model and mutates the
// few checkout fields the core owns.
type CheckoutStore interface {
	// LoadContext fetches checkout, addresses, gift cards, payments,
	// shipping method, voucher and joined line rows in one pass.
	LoadContext(ctx context.Context, token uuid.UUID) (*models.CheckoutInfo, []models.CheckoutLineInfo, error)
	UpdateDiscount(ctx context.Context, token uuid.UUID, voucherCode *string, name *string, amount decimal.Decimal) error
	ClearVoucher(ctx context.Context, token uuid.UUID) error
	ClearShippingMethod(ctx context.Context, token uuid.UUID) error
	// ClaimWebhookProcessing flips the webhook_processing flag false->true
	// and reports false when another writer already holds the claim.
	ClaimWebhookProcessing(ctx context.Context, token uuid.UUID) (bool, error)
	ReleaseWebhookProcessing(ctx context.Context, token uuid.UUID) error
}

// VoucherStore reads vouchers and serializes redemptions of usage-limited
// codes.
type VoucherStore interface {
	ActiveByCode(ctx context.Context, code, channelSlug string, at time.Time) (*models.Voucher, error)
	// Redeem locks the voucher row, verifies the usage limit and
	// increments the counter atomically.
	Redeem(ctx context.Context, code string, at time.Time) (*models.Voucher, error)
	// ReleaseUsage compensates a redemption after a later step failed.
	ReleaseUsage(ctx context.Context, code string) error
}

// StockStore answers availability questions and owns the atomic
// check-then-reserve step.
type StockStore interface {
	Availability(ctx context.Context, countryCode, channelSlug string, variantIDs []uuid.UUID) (map[uuid.UUID][]models.StockAvailability, error)
	// Reserve re-checks availability under row locks and inserts
	// allocations keyed by checkout token; returns InsufficientStockError
	// when a variant cannot be covered.
	Reserve(ctx context.Context, token uuid.UUID, countryCode, channelSlug string, items []StockReservation) error
	// Release drops every allocation the checkout holds.
	Release(ctx context.Context, token uuid.UUID) error
}

// PaymentStore persists payments, their transaction log and gateway
// customer profiles.
type PaymentStore interface {
	ByTransactionToken(ctx context.Context, token string) (*models.Payment, error)
	CreateTransaction(ctx context.Context, txn *models.Transaction) error
	UpdateChargeStatus(ctx context.Context, paymentID uuid.UUID, status models.ChargeStatus) error
	SetRefund(ctx context.Context, paymentID uuid.UUID, status models.ChargeStatus, amount decimal.Decimal, date *time.Time) error
	DeactivateForCheckout(ctx context.Context, token uuid.UUID) error
	StoreCustomerID(ctx context.Context, userID uuid.UUID, gatewayID, customerID string) error
}

// OrderStore materializes orders. CreateFromCheckout must create the order
// with its lines, re-point the checkout's stock allocations at them, attach
// payments and delete the checkout as one atomic unit.
type OrderStore interface {
	CreateFromCheckout(ctx context.Context, data *models.OrderData) (*models.Order, error)
}

// TicketStore persists stream tickets granted by completed ticket orders.
type TicketStore interface {
	Create(ctx context.Context, ticket *models.StreamTicket) error
}

// TaxCalculator is the external pricing collaborator the pricer delegates
// arithmetic to. Implementations return gross amounts.
type TaxCalculator interface {
	TaxedUnitPrice(ctx context.Context, line models.CheckoutLineInfo, countryCode string) (decimal.Decimal, error)
	TaxedShippingPrice(ctx context.Context, method *models.ShippingMethod, countryCode string) (decimal.Decimal, error)
}

// CheckoutLocker is the fast-path distributed claim per checkout token,
// layered over the durable webhook_processing flag.
type CheckoutLocker interface {
	Claim(ctx context.Context, token uuid.UUID) (bool, error)
	Release(ctx context.Context, token uuid.UUID) error
}

// OrderEventPublisher fans out order-created events.
type OrderEventPublisher interface {
	PublishOrderCreated(ctx context.Context, event models.OrderCreatedEvent) error
}

// PaymentEventPublisher fans out payment state changes, best-effort.
type PaymentEventPublisher interface {
	PublishPaymentEvent(ctx context.Context, event models.PaymentEvent) error
}
