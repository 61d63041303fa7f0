package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Machine error codes surfaced through the API.
const (
	CodeInsufficientStock    = "INSUFFICIENT_STOCK"
	CodeVoucherNotApplicable = "VOUCHER_NOT_APPLICABLE"
	CodeInvalidPromoCode     = "INVALID_PROMO_CODE"
	CodeTaxError             = "TAX_ERROR"
	CodePaymentError         = "PAYMENT_ERROR"
	CodeShippingMethodError  = "SHIPPING_METHOD_NOT_APPLICABLE"
	CodeShippingAddressError = "SHIPPING_ADDRESS_NOT_SET"
	CodeBillingAddressError  = "BILLING_ADDRESS_NOT_SET"
	CodeCheckoutNotFullyPaid = "CHECKOUT_NOT_FULLY_PAID"
	CodeInvalidRedirectURL   = "INVALID_REDIRECT_URL"
	CodeInvalid              = "INVALID"
)

var (
	// ErrCheckoutNotFound is returned when no checkout exists for a token.
	ErrCheckoutNotFound = errors.New("checkout not found")
	// ErrPaymentNotFound is returned when a webhook references an unknown
	// transaction.
	ErrPaymentNotFound = errors.New("payment not found")
	// ErrAlreadyProcessing is returned when another writer holds the
	// completion claim for a checkout.
	ErrAlreadyProcessing = errors.New("checkout completion already in progress")
	// ErrVoucherNotFound is returned when no active voucher matches a code.
	ErrVoucherNotFound = errors.New("voucher not found")
	// ErrVoucherUsageLimitReached is returned when a usage-limited voucher
	// has no redemptions left.
	ErrVoucherUsageLimitReached = errors.New("voucher usage limit reached")
)

// InsufficientStockItem names one variant that cannot be fulfilled and how
// many units remain.
type InsufficientStockItem struct {
	VariantID         uuid.UUID
	SKU               string
	AvailableQuantity int
}

// InsufficientStockError reports every variant whose requested quantity
// exceeds availability.
type InsufficientStockError struct {
	Items []InsufficientStockItem
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Items))
	for _, item := range e.Items {
		parts = append(parts, fmt.Sprintf("%s: only %d remaining", item.SKU, item.AvailableQuantity))
	}
	return "insufficient stock: " + strings.Join(parts, ", ")
}

// NotApplicableError means a voucher failed its type-specific precondition.
type NotApplicableError struct {
	Reason string
}

func (e *NotApplicableError) Error() string {
	return e.Reason
}

// TaxError wraps a failure of the external pricing collaborator.
type TaxError struct {
	Err error
}

func (e *TaxError) Error() string {
	return fmt.Sprintf("unable to calculate taxes: %v", e.Err)
}

func (e *TaxError) Unwrap() error {
	return e.Err
}

// PaymentError is a gateway failure. It is never field-attributed since it
// originates on the provider side.
type PaymentError struct {
	Msg string
}

func (e *PaymentError) Error() string {
	return e.Msg
}

// RedirectURLError rejects an untrusted redirect URL before any gateway
// call is made.
type RedirectURLError struct {
	URL string
}

func (e *RedirectURLError) Error() string {
	return fmt.Sprintf("redirect URL %q is not a trusted storefront origin", e.URL)
}

// ValidationError is a field-attributed client error raised during
// completion step 1.
type ValidationError struct {
	Field   string
	Message string
	Code    string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// InvalidRefundAmountError rejects a refund webhook quoting an amount that
// matches neither a full nor a partial refund.
type InvalidRefundAmountError struct {
	Refunded decimal.Decimal
	Total    decimal.Decimal
}

func (e *InvalidRefundAmountError) Error() string {
	return fmt.Sprintf("invalid refund amount %s for payment total %s", e.Refunded, e.Total)
}

// InvalidCurrencyError rejects a webhook quoting a currency different from
// the expected settlement currency.
type InvalidCurrencyError struct {
	Expected string
	Got      string
}

func (e *InvalidCurrencyError) Error() string {
	return fmt.Sprintf("invalid webhook currency %q, expected %q", e.Got, e.Expected)
}
