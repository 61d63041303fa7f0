package services

import (
	"checkout-service/models"
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DiscountService evaluates vouchers against a priced checkout. It is
// query-based: the only mutation it performs is persisting the discount
// snapshot through the checkout store.
type DiscountService struct {
	checkouts CheckoutStore
	vouchers  VoucherStore
	pricer    *PricingService
	logger    *zap.Logger
}

// NewDiscountService creates a new DiscountService.
func NewDiscountService(checkouts CheckoutStore, vouchers VoucherStore, pricer *PricingService, logger *zap.Logger) *DiscountService {
	return &DiscountService{checkouts: checkouts, vouchers: vouchers, pricer: pricer, logger: logger}
}

// VoucherDiscount calculates the discount value for a voucher depending on
// its type. Returns NotApplicableError when the voucher's type-specific
// precondition fails.
func (s *DiscountService) VoucherDiscount(ctx context.Context, voucher *models.Voucher, info *models.CheckoutInfo, lines []models.CheckoutLineInfo) (decimal.Decimal, error) {
	switch voucher.Type {
	case models.VoucherTypeEntireOrder:
		subtotal, err := s.pricer.Subtotal(ctx, info, lines)
		if err != nil {
			return decimal.Zero, err
		}
		if subtotal.LessThan(voucher.MinSpent) {
			return decimal.Zero, &NotApplicableError{Reason: "This offer requires a higher order value."}
		}
		return voucher.DiscountAmountFor(subtotal), nil
	case models.VoucherTypeShipping:
		return s.shippingDiscount(ctx, voucher, info, lines)
	case models.VoucherTypeSpecificProduct:
		return s.specificProductDiscount(ctx, voucher, info, lines)
	default:
		return decimal.Zero, &NotApplicableError{Reason: "Unknown discount type."}
	}
}

// shippingDiscount requires shippable lines, a chosen method and, when the
// voucher restricts countries, a covered shipping address. The result is
// not capped by subtotal.
func (s *DiscountService) shippingDiscount(ctx context.Context, voucher *models.Voucher, info *models.CheckoutInfo, lines []models.CheckoutLineInfo) (decimal.Decimal, error) {
	if !models.ShippingRequired(lines) {
		return decimal.Zero, &NotApplicableError{Reason: "Your order does not require shipping."}
	}
	if info.ShippingMethod == nil {
		return decimal.Zero, &NotApplicableError{Reason: "Please select a shipping method first."}
	}
	if addr := info.Checkout.ShippingAddress; addr != nil && voucher.RestrictsCountry(addr.Country) {
		return decimal.Zero, &NotApplicableError{Reason: "This offer is not valid in your country."}
	}
	shippingPrice, err := s.pricer.ShippingPrice(ctx, info, lines)
	if err != nil {
		return decimal.Zero, err
	}
	return voucher.DiscountAmountFor(shippingPrice), nil
}

// specificProductDiscount collects the unit price of every unit in every
// line matching the voucher scope. An empty scope matches all lines; a line
// counts once no matter how many scoping rules it matches.
func (s *DiscountService) specificProductDiscount(ctx context.Context, voucher *models.Voucher, info *models.CheckoutInfo, lines []models.CheckoutLineInfo) (decimal.Decimal, error) {
	matched := decimal.Zero
	anyMatch := false
	for _, line := range lines {
		if !voucher.ScopeMatches(&line.Variant, &line.Product) {
			continue
		}
		anyMatch = true
		price, err := s.pricer.UnitPrice(ctx, info, line)
		if err != nil {
			return decimal.Zero, err
		}
		matched = matched.Add(price.Mul(decimal.NewFromInt(int64(line.Line.Quantity))))
	}
	if !anyMatch {
		return decimal.Zero, &NotApplicableError{Reason: "This offer is only valid for selected items."}
	}
	return voucher.DiscountAmountFor(matched), nil
}

// Recalculate re-runs the discount for the currently attached voucher after
// a checkout mutation. A voucher that no longer applies is silently
// detached; the checkout must never reference a voucher it cannot satisfy.
func (s *DiscountService) Recalculate(ctx context.Context, info *models.CheckoutInfo, lines []models.CheckoutLineInfo) error {
	checkout := &info.Checkout
	if info.Voucher == nil {
		if checkout.VoucherCode != nil {
			info.Voucher = nil
			return s.checkouts.ClearVoucher(ctx, checkout.Token)
		}
		return nil
	}

	voucher := info.Voucher
	discount, err := s.VoucherDiscount(ctx, voucher, info, lines)
	if err != nil {
		var notApplicable *NotApplicableError
		if errors.As(err, &notApplicable) {
			s.logger.Info("Voucher no longer applicable, detaching",
				zap.String("checkout_token", checkout.Token.String()),
				zap.String("voucher_code", voucher.Code),
				zap.String("reason", notApplicable.Reason),
			)
			info.Voucher = nil
			checkout.VoucherCode = nil
			checkout.DiscountAmount = decimal.Zero
			checkout.DiscountName = nil
			return s.checkouts.ClearVoucher(ctx, checkout.Token)
		}
		return err
	}

	// Shipping discounts are not capped by subtotal; everything else is.
	if voucher.Type != models.VoucherTypeShipping {
		subtotal, err := s.pricer.Subtotal(ctx, info, lines)
		if err != nil {
			return err
		}
		if discount.GreaterThan(subtotal) {
			discount = subtotal
		}
	}

	checkout.DiscountAmount = discount
	checkout.DiscountName = &voucher.Name
	code := voucher.Code
	checkout.VoucherCode = &code
	return s.checkouts.UpdateDiscount(ctx, checkout.Token, &code, &voucher.Name, discount)
}

// AddVoucherCode applies a voucher to the checkout by code. Unlike
// recalculation, an inapplicable voucher here surfaces as a user-facing
// error.
func (s *DiscountService) AddVoucherCode(ctx context.Context, info *models.CheckoutInfo, lines []models.CheckoutLineInfo, code string) error {
	voucher, err := s.vouchers.ActiveByCode(ctx, code, info.Checkout.ChannelSlug, time.Now())
	if err != nil {
		if errors.Is(err, ErrVoucherNotFound) {
			return &ValidationError{Field: "promo_code", Message: "Promo code is invalid", Code: CodeInvalidPromoCode}
		}
		return err
	}

	discount, err := s.VoucherDiscount(ctx, voucher, info, lines)
	if err != nil {
		var notApplicable *NotApplicableError
		if errors.As(err, &notApplicable) {
			return &ValidationError{Field: "promo_code", Message: "Voucher is not applicable to that checkout.", Code: CodeVoucherNotApplicable}
		}
		return err
	}

	if voucher.Type != models.VoucherTypeShipping {
		subtotal, err := s.pricer.Subtotal(ctx, info, lines)
		if err != nil {
			return err
		}
		if discount.GreaterThan(subtotal) {
			discount = subtotal
		}
	}

	info.Voucher = voucher
	info.Checkout.VoucherCode = &voucher.Code
	info.Checkout.DiscountAmount = discount
	info.Checkout.DiscountName = &voucher.Name
	return s.checkouts.UpdateDiscount(ctx, info.Checkout.Token, &voucher.Code, &voucher.Name, discount)
}

// RemoveVoucherCode detaches the voucher when the given code matches the
// one applied.
func (s *DiscountService) RemoveVoucherCode(ctx context.Context, info *models.CheckoutInfo, code string) error {
	if info.Checkout.VoucherCode == nil || *info.Checkout.VoucherCode != code {
		return nil
	}
	info.Voucher = nil
	info.Checkout.VoucherCode = nil
	info.Checkout.DiscountAmount = decimal.Zero
	info.Checkout.DiscountName = nil
	return s.checkouts.ClearVoucher(ctx, info.Checkout.Token)
}
