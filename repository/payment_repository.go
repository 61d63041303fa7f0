package repository

import (
	"checkout-service/models"
	"checkout-service/services"
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPaymentRepository implements services.PaymentStore using GORM.
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository.
func NewGormPaymentRepository(db *gorm.DB) services.PaymentStore {
	return &GormPaymentRepository{db: db}
}

// ByTransactionToken resolves a payment from a gateway transaction id, the
// way webhook events reference payments.
func (r *GormPaymentRepository) ByTransactionToken(ctx context.Context, token string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Preload("Transactions").
		Where("token = ?", token).
		First(&payment).Error
	if err == nil {
		return &payment, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// Fall back to the transaction log: some gateways only carry the
	// intent id on individual transactions.
	var txn models.Transaction
	err = r.db.WithContext(ctx).Where("token = ?", token).First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, services.ErrPaymentNotFound
		}
		return nil, err
	}
	err = r.db.WithContext(ctx).Preload("Transactions").First(&payment, "id = ?", txn.PaymentID).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// CreateTransaction appends one entry to a payment's immutable log.
func (r *GormPaymentRepository) CreateTransaction(ctx context.Context, txn *models.Transaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

// UpdateChargeStatus moves the payment's provider-side state.
func (r *GormPaymentRepository) UpdateChargeStatus(ctx context.Context, paymentID uuid.UUID, status models.ChargeStatus) error {
	return r.db.WithContext(ctx).Model(&models.Payment{}).
		Where("id = ?", paymentID).
		Update("charge_status", status).Error
}

// SetRefund records a refund outcome.
func (r *GormPaymentRepository) SetRefund(ctx context.Context, paymentID uuid.UUID, status models.ChargeStatus, amount decimal.Decimal, date *time.Time) error {
	return r.db.WithContext(ctx).Model(&models.Payment{}).
		Where("id = ?", paymentID).
		Updates(map[string]interface{}{
			"charge_status": status,
			"refund_amount": amount,
			"refund_date":   date,
		}).Error
}

// DeactivateForCheckout supersedes every active payment on the checkout.
func (r *GormPaymentRepository) DeactivateForCheckout(ctx context.Context, token uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&models.Payment{}).
		Where("checkout_token = ? AND is_active = ?", token, true).
		Update("is_active", false).Error
}

// StoreCustomerID upserts the gateway-side customer id for an account.
func (r *GormPaymentRepository) StoreCustomerID(ctx context.Context, userID uuid.UUID, gatewayID, customerID string) error {
	profile := models.CustomerGatewayProfile{
		UserID:     userID,
		Gateway:    gatewayID,
		CustomerID: customerID,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "gateway"}},
		DoUpdates: clause.AssignmentColumns([]string{"customer_id", "updated_at"}),
	}).Create(&profile).Error
}
