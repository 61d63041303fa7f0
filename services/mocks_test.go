package services

import (
	"context"
	"time"

	"checkout-service/gateway"
	"checkout-service/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// --- Mocks for Dependencies ---

type MockCheckoutStore struct{ mock.Mock }

func (m *MockCheckoutStore) LoadContext(ctx context.Context, token uuid.UUID) (*models.CheckoutInfo, []models.CheckoutLineInfo, error) {
	args := m.Called(ctx, token)
	var info *models.CheckoutInfo
	if args.Get(0) != nil {
		info = args.Get(0).(*models.CheckoutInfo)
	}
	var lines []models.CheckoutLineInfo
	if args.Get(1) != nil {
		lines = args.Get(1).([]models.CheckoutLineInfo)
	}
	return info, lines, args.Error(2)
}
func (m *MockCheckoutStore) UpdateDiscount(ctx context.Context, token uuid.UUID, voucherCode *string, name *string, amount decimal.Decimal) error {
	args := m.Called(ctx, token, voucherCode, name, amount)
	return args.Error(0)
}
func (m *MockCheckoutStore) ClearVoucher(ctx context.Context, token uuid.UUID) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}
func (m *MockCheckoutStore) ClearShippingMethod(ctx context.Context, token uuid.UUID) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}
func (m *MockCheckoutStore) ClaimWebhookProcessing(ctx context.Context, token uuid.UUID) (bool, error) {
	args := m.Called(ctx, token)
	return args.Bool(0), args.Error(1)
}
func (m *MockCheckoutStore) ReleaseWebhookProcessing(ctx context.Context, token uuid.UUID) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

type MockVoucherStore struct{ mock.Mock }

func (m *MockVoucherStore) ActiveByCode(ctx context.Context, code, channelSlug string, at time.Time) (*models.Voucher, error) {
	args := m.Called(ctx, code, channelSlug, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Voucher), args.Error(1)
}
func (m *MockVoucherStore) Redeem(ctx context.Context, code string, at time.Time) (*models.Voucher, error) {
	args := m.Called(ctx, code, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Voucher), args.Error(1)
}
func (m *MockVoucherStore) ReleaseUsage(ctx context.Context, code string) error {
	args := m.Called(ctx, code)
	return args.Error(0)
}

type MockStockStore struct{ mock.Mock }

func (m *MockStockStore) Availability(ctx context.Context, countryCode, channelSlug string, variantIDs []uuid.UUID) (map[uuid.UUID][]models.StockAvailability, error) {
	args := m.Called(ctx, countryCode, channelSlug, variantIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID][]models.StockAvailability), args.Error(1)
}
func (m *MockStockStore) Reserve(ctx context.Context, token uuid.UUID, countryCode, channelSlug string, items []StockReservation) error {
	args := m.Called(ctx, token, countryCode, channelSlug, items)
	return args.Error(0)
}
func (m *MockStockStore) Release(ctx context.Context, token uuid.UUID) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

type MockPaymentStore struct{ mock.Mock }

func (m *MockPaymentStore) ByTransactionToken(ctx context.Context, token string) (*models.Payment, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}
func (m *MockPaymentStore) CreateTransaction(ctx context.Context, txn *models.Transaction) error {
	args := m.Called(ctx, txn)
	return args.Error(0)
}
func (m *MockPaymentStore) UpdateChargeStatus(ctx context.Context, paymentID uuid.UUID, status models.ChargeStatus) error {
	args := m.Called(ctx, paymentID, status)
	return args.Error(0)
}
func (m *MockPaymentStore) SetRefund(ctx context.Context, paymentID uuid.UUID, status models.ChargeStatus, amount decimal.Decimal, date *time.Time) error {
	args := m.Called(ctx, paymentID, status, amount, date)
	return args.Error(0)
}
func (m *MockPaymentStore) DeactivateForCheckout(ctx context.Context, token uuid.UUID) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}
func (m *MockPaymentStore) StoreCustomerID(ctx context.Context, userID uuid.UUID, gatewayID, customerID string) error {
	args := m.Called(ctx, userID, gatewayID, customerID)
	return args.Error(0)
}

type MockOrderStore struct{ mock.Mock }

func (m *MockOrderStore) CreateFromCheckout(ctx context.Context, data *models.OrderData) (*models.Order, error) {
	args := m.Called(ctx, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

type MockTicketStore struct{ mock.Mock }

func (m *MockTicketStore) Create(ctx context.Context, ticket *models.StreamTicket) error {
	args := m.Called(ctx, ticket)
	return args.Error(0)
}

type MockLocker struct{ mock.Mock }

func (m *MockLocker) Claim(ctx context.Context, token uuid.UUID) (bool, error) {
	args := m.Called(ctx, token)
	return args.Bool(0), args.Error(1)
}
func (m *MockLocker) Release(ctx context.Context, token uuid.UUID) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

type MockOrderEvents struct{ mock.Mock }

func (m *MockOrderEvents) PublishOrderCreated(ctx context.Context, event models.OrderCreatedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type MockPaymentEvents struct{ mock.Mock }

func (m *MockPaymentEvents) PublishPaymentEvent(ctx context.Context, event models.PaymentEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type MockGateway struct{ mock.Mock }

func (m *MockGateway) ProcessPayment(ctx context.Context, req gateway.Request) (gateway.Response, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(gateway.Response), args.Error(1)
}
func (m *MockGateway) ConfirmPayment(ctx context.Context, req gateway.Request) (gateway.Response, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(gateway.Response), args.Error(1)
}
func (m *MockGateway) Refund(ctx context.Context, req gateway.Request) (gateway.Response, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(gateway.Response), args.Error(1)
}
func (m *MockGateway) Void(ctx context.Context, req gateway.Request) (gateway.Response, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(gateway.Response), args.Error(1)
}

type MockCompleter struct{ mock.Mock }

func (m *MockCompleter) CompleteConfirmed(ctx context.Context, token uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}
