package services

import (
	"context"
	"errors"
	"testing"

	"checkout-service/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

type failingTaxCalculator struct{}

func (failingTaxCalculator) TaxedUnitPrice(context.Context, models.CheckoutLineInfo, string) (decimal.Decimal, error) {
	return decimal.Zero, errors.New("avatax unreachable")
}

func (failingTaxCalculator) TaxedShippingPrice(context.Context, *models.ShippingMethod, string) (decimal.Decimal, error) {
	return decimal.Zero, errors.New("avatax unreachable")
}

func TestTotal(t *testing.T) {
	ctx := context.Background()
	pricer := NewPricingService(FlatTaxCalculator{})

	t.Run("SubtotalPlusShippingMinusDiscount", func(t *testing.T) {
		info := testCheckoutInfo()
		info.ShippingMethod = &models.ShippingMethod{Name: "DHL", Price: decimal.NewFromInt(5)}
		info.Checkout.DiscountAmount = decimal.NewFromInt(4)
		lines := []models.CheckoutLineInfo{testLine(20, 2, true)}

		total, err := pricer.Total(ctx, info, lines)
		assert.NoError(t, err)
		assert.True(t, total.Equal(decimal.NewFromInt(41)), "got %s", total)
	})

	t.Run("NeverNegative", func(t *testing.T) {
		info := testCheckoutInfo()
		info.Checkout.DiscountAmount = decimal.NewFromInt(1000)
		lines := []models.CheckoutLineInfo{testLine(20, 1, true)}

		total, err := pricer.Total(ctx, info, lines)
		assert.NoError(t, err)
		assert.True(t, total.IsZero())
	})

	t.Run("NoShippingWithoutMethod", func(t *testing.T) {
		info := testCheckoutInfo()
		lines := []models.CheckoutLineInfo{testLine(20, 1, true)}

		shipping, err := pricer.ShippingPrice(ctx, info, lines)
		assert.NoError(t, err)
		assert.True(t, shipping.IsZero())
	})

	t.Run("SalePriceWins", func(t *testing.T) {
		info := testCheckoutInfo()
		line := testLine(20, 1, true)
		sale := decimal.NewFromInt(15)
		line.Variant.SalePrice = &sale

		price, err := pricer.UnitPrice(ctx, info, line)
		assert.NoError(t, err)
		assert.True(t, price.Equal(sale))
	})

	t.Run("TaxFailureWrapped", func(t *testing.T) {
		failing := NewPricingService(failingTaxCalculator{})
		info := testCheckoutInfo()
		lines := []models.CheckoutLineInfo{testLine(20, 1, true)}

		_, err := failing.Total(ctx, info, lines)
		var taxErr *TaxError
		assert.ErrorAs(t, err, &taxErr)
	})
}
