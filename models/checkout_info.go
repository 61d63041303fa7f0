package models

import "github.com/shopspring/decimal"

// CheckoutInfo is the derived per-request read model for a checkout. It is
// assembled in one pass by the repository and never cached across requests,
// because prices and availability can change between requests.
type CheckoutInfo struct {
	Checkout       Checkout
	ShippingMethod *ShippingMethod
	Voucher        *Voucher
	Payments       []Payment
	GiftCards      []GiftCard
}

// ActivePayment returns the checkout's single active payment, or nil.
func (i *CheckoutInfo) ActivePayment() *Payment {
	for idx := range i.Payments {
		if i.Payments[idx].IsActive {
			return &i.Payments[idx]
		}
	}
	return nil
}

// GiftCardBalance sums the active gift cards attached to the checkout.
func (i *CheckoutInfo) GiftCardBalance() decimal.Decimal {
	total := decimal.Zero
	for _, gc := range i.GiftCards {
		if gc.IsActive {
			total = total.Add(gc.CurrentBalance)
		}
	}
	return total
}

// CheckoutLineInfo joins a line with its variant and product rows.
type CheckoutLineInfo struct {
	Line    CheckoutLine
	Variant ProductVariant
	Product Product
}

// ShippingRequired reports whether any line's product needs shipping.
func ShippingRequired(lines []CheckoutLineInfo) bool {
	for _, l := range lines {
		if l.Product.ShippingRequired {
			return true
		}
	}
	return false
}
