package services

import (
	"checkout-service/models"
	"context"

	"github.com/shopspring/decimal"
)

// PricingService composes the checkout's money figures. All arithmetic on
// gross prices is delegated to the TaxCalculator collaborator; failures
// come back wrapped in TaxError.
type PricingService struct {
	tax TaxCalculator
}

// NewPricingService creates a new PricingService.
func NewPricingService(tax TaxCalculator) *PricingService {
	return &PricingService{tax: tax}
}

// UnitPrice returns the gross unit price of one line.
func (s *PricingService) UnitPrice(ctx context.Context, info *models.CheckoutInfo, line models.CheckoutLineInfo) (decimal.Decimal, error) {
	price, err := s.tax.TaxedUnitPrice(ctx, line, info.Checkout.Country())
	if err != nil {
		return decimal.Zero, &TaxError{Err: err}
	}
	return price, nil
}

// Subtotal sums the gross line totals of the checkout.
func (s *PricingService) Subtotal(ctx context.Context, info *models.CheckoutInfo, lines []models.CheckoutLineInfo) (decimal.Decimal, error) {
	subtotal := decimal.Zero
	for _, line := range lines {
		price, err := s.UnitPrice(ctx, info, line)
		if err != nil {
			return decimal.Zero, err
		}
		subtotal = subtotal.Add(price.Mul(decimal.NewFromInt(int64(line.Line.Quantity))))
	}
	return subtotal, nil
}

// ShippingPrice returns the gross price of the chosen shipping method, or
// zero when the checkout needs no shipping.
func (s *PricingService) ShippingPrice(ctx context.Context, info *models.CheckoutInfo, lines []models.CheckoutLineInfo) (decimal.Decimal, error) {
	if info.ShippingMethod == nil || !models.ShippingRequired(lines) {
		return decimal.Zero, nil
	}
	price, err := s.tax.TaxedShippingPrice(ctx, info.ShippingMethod, info.Checkout.Country())
	if err != nil {
		return decimal.Zero, &TaxError{Err: err}
	}
	return price, nil
}

// Total is subtotal plus shipping minus the applied discount, never below
// zero.
func (s *PricingService) Total(ctx context.Context, info *models.CheckoutInfo, lines []models.CheckoutLineInfo) (decimal.Decimal, error) {
	subtotal, err := s.Subtotal(ctx, info, lines)
	if err != nil {
		return decimal.Zero, err
	}
	shipping, err := s.ShippingPrice(ctx, info, lines)
	if err != nil {
		return decimal.Zero, err
	}
	total := subtotal.Add(shipping).Sub(info.Checkout.DiscountAmount)
	if total.IsNegative() {
		return decimal.Zero, nil
	}
	return total, nil
}

// FlatTaxCalculator is the default collaborator: listed prices are already
// gross.
type FlatTaxCalculator struct{}

func (FlatTaxCalculator) TaxedUnitPrice(_ context.Context, line models.CheckoutLineInfo, _ string) (decimal.Decimal, error) {
	return line.Variant.CurrentPrice(), nil
}

func (FlatTaxCalculator) TaxedShippingPrice(_ context.Context, method *models.ShippingMethod, _ string) (decimal.Decimal, error) {
	return method.Price, nil
}
