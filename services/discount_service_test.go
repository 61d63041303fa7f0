package services

import (
	"context"
	"testing"

	"checkout-service/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

func testLine(price int64, quantity int, shippingRequired bool) models.CheckoutLineInfo {
	productID := uuid.New()
	return models.CheckoutLineInfo{
		Line: models.CheckoutLine{VariantID: uuid.New(), Quantity: quantity},
		Variant: models.ProductVariant{
			ID:             uuid.New(),
			ProductID:      productID,
			SKU:            "SKU-" + uuid.NewString()[:8],
			Price:          decimal.NewFromInt(price),
			TrackInventory: true,
		},
		Product: models.Product{ID: productID, Name: "Test Product", ShippingRequired: shippingRequired},
	}
}

func testCheckoutInfo() *models.CheckoutInfo {
	return &models.CheckoutInfo{
		Checkout: models.Checkout{
			Token:       uuid.New(),
			ChannelSlug: "default",
			Currency:    "EUR",
			ShippingAddress: &models.Address{
				Country: "DE",
			},
			BillingAddress: &models.Address{
				Country: "DE",
			},
		},
	}
}

func TestVoucherDiscount(t *testing.T) {
	checkouts := new(MockCheckoutStore)
	vouchers := new(MockVoucherStore)
	pricer := NewPricingService(FlatTaxCalculator{})
	svc := NewDiscountService(checkouts, vouchers, pricer, zap.NewNop())
	ctx := context.Background()

	t.Run("EntireOrderPercentage", func(t *testing.T) {
		info := testCheckoutInfo()
		lines := []models.CheckoutLineInfo{testLine(20, 2, true)} // subtotal 40

		voucher := &models.Voucher{
			Type:              models.VoucherTypeEntireOrder,
			DiscountValueType: models.DiscountValuePercentage,
			DiscountValue:     decimal.NewFromInt(10),
		}
		discount, err := svc.VoucherDiscount(ctx, voucher, info, lines)
		assert.NoError(t, err)
		assert.True(t, discount.Equal(decimal.NewFromInt(4)), "got %s", discount)
	})

	t.Run("EntireOrderBelowMinSpent", func(t *testing.T) {
		info := testCheckoutInfo()
		lines := []models.CheckoutLineInfo{testLine(20, 1, true)}

		voucher := &models.Voucher{
			Type:              models.VoucherTypeEntireOrder,
			DiscountValueType: models.DiscountValueFixed,
			DiscountValue:     decimal.NewFromInt(5),
			MinSpent:          decimal.NewFromInt(50),
		}
		_, err := svc.VoucherDiscount(ctx, voucher, info, lines)
		var notApplicable *NotApplicableError
		assert.ErrorAs(t, err, &notApplicable)
	})

	t.Run("ShippingVoucherWithoutShipping", func(t *testing.T) {
		info := testCheckoutInfo()
		lines := []models.CheckoutLineInfo{testLine(20, 1, false)}

		voucher := &models.Voucher{
			Type:              models.VoucherTypeShipping,
			DiscountValueType: models.DiscountValuePercentage,
			DiscountValue:     decimal.NewFromInt(100),
		}
		_, err := svc.VoucherDiscount(ctx, voucher, info, lines)
		var notApplicable *NotApplicableError
		assert.ErrorAs(t, err, &notApplicable)
		assert.Equal(t, "Your order does not require shipping.", notApplicable.Reason)
	})

	t.Run("ShippingVoucherCountryRestricted", func(t *testing.T) {
		info := testCheckoutInfo()
		info.ShippingMethod = &models.ShippingMethod{Name: "DHL", Price: decimal.NewFromInt(5)}
		lines := []models.CheckoutLineInfo{testLine(20, 1, true)}

		voucher := &models.Voucher{
			Type:              models.VoucherTypeShipping,
			DiscountValueType: models.DiscountValuePercentage,
			DiscountValue:     decimal.NewFromInt(100),
			Countries:         "AT,CH",
		}
		_, err := svc.VoucherDiscount(ctx, voucher, info, lines)
		var notApplicable *NotApplicableError
		assert.ErrorAs(t, err, &notApplicable)
		assert.Equal(t, "This offer is not valid in your country.", notApplicable.Reason)
	})

	t.Run("ShippingVoucherFull", func(t *testing.T) {
		info := testCheckoutInfo()
		info.ShippingMethod = &models.ShippingMethod{Name: "DHL", Price: decimal.NewFromInt(5)}
		lines := []models.CheckoutLineInfo{testLine(20, 1, true)}

		voucher := &models.Voucher{
			Type:              models.VoucherTypeShipping,
			DiscountValueType: models.DiscountValuePercentage,
			DiscountValue:     decimal.NewFromInt(100),
			Countries:         "DE,AT",
		}
		discount, err := svc.VoucherDiscount(ctx, voucher, info, lines)
		assert.NoError(t, err)
		assert.True(t, discount.Equal(decimal.NewFromInt(5)), "got %s", discount)
	})

	t.Run("SpecificProductNoMatch", func(t *testing.T) {
		info := testCheckoutInfo()
		lines := []models.CheckoutLineInfo{testLine(20, 1, true)}

		voucher := &models.Voucher{
			Type:              models.VoucherTypeSpecificProduct,
			DiscountValueType: models.DiscountValuePercentage,
			DiscountValue:     decimal.NewFromInt(50),
			ProductIDs:        uuid.NewString(),
		}
		_, err := svc.VoucherDiscount(ctx, voucher, info, lines)
		var notApplicable *NotApplicableError
		assert.ErrorAs(t, err, &notApplicable)
		assert.Equal(t, "This offer is only valid for selected items.", notApplicable.Reason)
	})

	t.Run("SpecificProductMatchesScopedLinesOnly", func(t *testing.T) {
		info := testCheckoutInfo()
		scoped := testLine(30, 2, true)
		other := testLine(100, 1, true)
		lines := []models.CheckoutLineInfo{scoped, other}

		voucher := &models.Voucher{
			Type:              models.VoucherTypeSpecificProduct,
			DiscountValueType: models.DiscountValuePercentage,
			DiscountValue:     decimal.NewFromInt(50),
			ProductIDs:        scoped.Product.ID.String(),
		}
		discount, err := svc.VoucherDiscount(ctx, voucher, info, lines)
		assert.NoError(t, err)
		// 50% of the scoped 60, the unscoped line untouched
		assert.True(t, discount.Equal(decimal.NewFromInt(30)), "got %s", discount)
	})
}

func TestRecalculate(t *testing.T) {
	ctx := context.Background()

	t.Run("DetachesInapplicableVoucherSilently", func(t *testing.T) {
		checkouts := new(MockCheckoutStore)
		vouchers := new(MockVoucherStore)
		pricer := NewPricingService(FlatTaxCalculator{})
		svc := NewDiscountService(checkouts, vouchers, pricer, zap.NewNop())

		info := testCheckoutInfo()
		code := "SAVE10"
		info.Checkout.VoucherCode = &code
		info.Checkout.DiscountAmount = decimal.NewFromInt(10)
		info.Voucher = &models.Voucher{
			Code:              code,
			Type:              models.VoucherTypeEntireOrder,
			DiscountValueType: models.DiscountValueFixed,
			DiscountValue:     decimal.NewFromInt(10),
			MinSpent:          decimal.NewFromInt(1000),
		}
		lines := []models.CheckoutLineInfo{testLine(20, 1, true)}

		checkouts.On("ClearVoucher", ctx, info.Checkout.Token).Return(nil)

		err := svc.Recalculate(ctx, info, lines)
		assert.NoError(t, err)
		assert.Nil(t, info.Voucher)
		assert.Nil(t, info.Checkout.VoucherCode)
		assert.True(t, info.Checkout.DiscountAmount.IsZero())
		checkouts.AssertExpectations(t)
	})

	t.Run("CapsDiscountAtSubtotal", func(t *testing.T) {
		checkouts := new(MockCheckoutStore)
		vouchers := new(MockVoucherStore)
		pricer := NewPricingService(FlatTaxCalculator{})
		svc := NewDiscountService(checkouts, vouchers, pricer, zap.NewNop())

		info := testCheckoutInfo()
		code := "BIGFIX"
		info.Checkout.VoucherCode = &code
		info.Voucher = &models.Voucher{
			Code:              code,
			Name:              "Big fixed discount",
			Type:              models.VoucherTypeEntireOrder,
			DiscountValueType: models.DiscountValueFixed,
			DiscountValue:     decimal.NewFromInt(500),
		}
		lines := []models.CheckoutLineInfo{testLine(20, 2, true)} // subtotal 40

		checkouts.On("UpdateDiscount", ctx, info.Checkout.Token, mock.Anything, mock.Anything, mock.Anything).Return(nil)

		err := svc.Recalculate(ctx, info, lines)
		assert.NoError(t, err)
		assert.True(t, info.Checkout.DiscountAmount.Equal(decimal.NewFromInt(40)), "got %s", info.Checkout.DiscountAmount)
		checkouts.AssertExpectations(t)
	})
}

func TestAddVoucherCode(t *testing.T) {
	ctx := context.Background()

	t.Run("UnknownCode", func(t *testing.T) {
		checkouts := new(MockCheckoutStore)
		vouchers := new(MockVoucherStore)
		pricer := NewPricingService(FlatTaxCalculator{})
		svc := NewDiscountService(checkouts, vouchers, pricer, zap.NewNop())

		info := testCheckoutInfo()
		vouchers.On("ActiveByCode", ctx, "NOPE", "default", mock.Anything).Return(nil, ErrVoucherNotFound)

		err := svc.AddVoucherCode(ctx, info, nil, "NOPE")
		var validationErr *ValidationError
		assert.ErrorAs(t, err, &validationErr)
		assert.Equal(t, CodeInvalidPromoCode, validationErr.Code)
	})

	t.Run("AppliesAndPersists", func(t *testing.T) {
		checkouts := new(MockCheckoutStore)
		vouchers := new(MockVoucherStore)
		pricer := NewPricingService(FlatTaxCalculator{})
		svc := NewDiscountService(checkouts, vouchers, pricer, zap.NewNop())

		info := testCheckoutInfo()
		lines := []models.CheckoutLineInfo{testLine(20, 2, true)}
		voucher := &models.Voucher{
			Code:              "SAVE10",
			Name:              "Save 10%",
			Type:              models.VoucherTypeEntireOrder,
			DiscountValueType: models.DiscountValuePercentage,
			DiscountValue:     decimal.NewFromInt(10),
		}
		vouchers.On("ActiveByCode", ctx, "SAVE10", "default", mock.Anything).Return(voucher, nil)
		checkouts.On("UpdateDiscount", ctx, info.Checkout.Token, mock.Anything, mock.Anything, mock.Anything).Return(nil)

		err := svc.AddVoucherCode(ctx, info, lines, "SAVE10")
		assert.NoError(t, err)
		assert.Equal(t, "SAVE10", *info.Checkout.VoucherCode)
		assert.True(t, info.Checkout.DiscountAmount.Equal(decimal.NewFromInt(4)))
		checkouts.AssertExpectations(t)
	})
}
