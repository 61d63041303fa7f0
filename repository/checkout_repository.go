package repository

import (
	"checkout-service/models"
	"checkout-service/services"
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormCheckoutRepository implements services.CheckoutStore using GORM.
type GormCheckoutRepository struct {
	db *gorm.DB
}

// NewGormCheckoutRepository creates a new GormCheckoutRepository.
func NewGormCheckoutRepository(db *gorm.DB) services.CheckoutStore {
	return &GormCheckoutRepository{db: db}
}

// LoadContext fetches the checkout with addresses, gift cards, payments,
// shipping method, voucher, and joined line/variant/product rows in one
// pass so callers never traverse lazy relations.
func (r *GormCheckoutRepository) LoadContext(ctx context.Context, token uuid.UUID) (*models.CheckoutInfo, []models.CheckoutLineInfo, error) {
	var checkout models.Checkout
	err := r.db.WithContext(ctx).
		Preload("ShippingAddress").
		Preload("BillingAddress").
		Preload("GiftCards").
		First(&checkout, "token = ?", token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, services.ErrCheckoutNotFound
		}
		return nil, nil, err
	}

	info := &models.CheckoutInfo{Checkout: checkout}

	if checkout.ShippingMethodID != nil {
		var method models.ShippingMethod
		if err := r.db.WithContext(ctx).First(&method, *checkout.ShippingMethodID).Error; err == nil {
			info.ShippingMethod = &method
		}
	}

	if checkout.VoucherCode != nil {
		var voucher models.Voucher
		err := r.db.WithContext(ctx).
			Where("code = ? AND channel_slug = ?", *checkout.VoucherCode, checkout.ChannelSlug).
			First(&voucher).Error
		if err == nil {
			info.Voucher = &voucher
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, err
		}
	}

	if err := r.db.WithContext(ctx).
		Where("checkout_token = ?", token).
		Order("created_at ASC").
		Find(&info.Payments).Error; err != nil {
		return nil, nil, err
	}

	var lines []models.CheckoutLine
	if err := r.db.WithContext(ctx).Where("checkout_token = ?", token).Order("id ASC").Find(&lines).Error; err != nil {
		return nil, nil, err
	}
	if len(lines) == 0 {
		return info, nil, nil
	}

	variantIDs := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		variantIDs = append(variantIDs, line.VariantID)
	}
	var variants []models.ProductVariant
	if err := r.db.WithContext(ctx).Where("id IN ?", variantIDs).Find(&variants).Error; err != nil {
		return nil, nil, err
	}
	variantByID := make(map[uuid.UUID]models.ProductVariant, len(variants))
	productIDs := make([]uuid.UUID, 0, len(variants))
	for _, v := range variants {
		variantByID[v.ID] = v
		productIDs = append(productIDs, v.ProductID)
	}
	var products []models.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", productIDs).Find(&products).Error; err != nil {
		return nil, nil, err
	}
	productByID := make(map[uuid.UUID]models.Product, len(products))
	for _, p := range products {
		productByID[p.ID] = p
	}

	lineInfos := make([]models.CheckoutLineInfo, 0, len(lines))
	for _, line := range lines {
		variant := variantByID[line.VariantID]
		lineInfos = append(lineInfos, models.CheckoutLineInfo{
			Line:    line,
			Variant: variant,
			Product: productByID[variant.ProductID],
		})
	}
	return info, lineInfos, nil
}

// UpdateDiscount stores the voucher snapshot on the checkout.
func (r *GormCheckoutRepository) UpdateDiscount(ctx context.Context, token uuid.UUID, voucherCode *string, name *string, amount decimal.Decimal) error {
	return r.db.WithContext(ctx).Model(&models.Checkout{}).
		Where("token = ?", token).
		Updates(map[string]interface{}{
			"voucher_code":    voucherCode,
			"discount_name":   name,
			"discount_amount": amount,
		}).Error
}

// ClearVoucher detaches the voucher and zeroes the discount snapshot.
func (r *GormCheckoutRepository) ClearVoucher(ctx context.Context, token uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&models.Checkout{}).
		Where("token = ?", token).
		Updates(map[string]interface{}{
			"voucher_code":    nil,
			"discount_name":   nil,
			"discount_amount": decimal.Zero,
		}).Error
}

// ClearShippingMethod removes a shipping method that no longer covers the
// checkout's destination.
func (r *GormCheckoutRepository) ClearShippingMethod(ctx context.Context, token uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&models.Checkout{}).
		Where("token = ?", token).
		Update("shipping_method_id", nil).Error
}

// ClaimWebhookProcessing performs the single-writer claim: the UPDATE only
// matches while the flag is still false, so exactly one writer wins.
func (r *GormCheckoutRepository) ClaimWebhookProcessing(ctx context.Context, token uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Checkout{}).
		Where("token = ? AND webhook_processing = ?", token, false).
		Update("webhook_processing", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ReleaseWebhookProcessing resets the claim so a legitimate retry can
// proceed.
func (r *GormCheckoutRepository) ReleaseWebhookProcessing(ctx context.Context, token uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&models.Checkout{}).
		Where("token = ?", token).
		Update("webhook_processing", false).Error
}
