package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// VoucherType discriminates what a voucher discounts.
type VoucherType string

const (
	VoucherTypeEntireOrder     VoucherType = "ENTIRE_ORDER"
	VoucherTypeShipping        VoucherType = "SHIPPING"
	VoucherTypeSpecificProduct VoucherType = "SPECIFIC_PRODUCT"
)

// DiscountValueType distinguishes fixed-amount from percentage vouchers.
type DiscountValueType string

const (
	DiscountValueFixed      DiscountValueType = "fixed"
	DiscountValuePercentage DiscountValueType = "percentage"
)

// Voucher is a scoped, typed discount code. Read-only from the checkout
// core's perspective except for the usage counter.
type Voucher struct {
	ID                uuid.UUID         `gorm:"type:uuid;primaryKey"`
	Code              string            `gorm:"type:varchar(12);uniqueIndex;not null"`
	Name              string            `gorm:"type:varchar(255)"`
	Type              VoucherType       `gorm:"type:varchar(20);not null"`
	DiscountValueType DiscountValueType `gorm:"type:varchar(10);not null"`
	DiscountValue     decimal.Decimal   `gorm:"type:numeric(12,3);not null"`
	MinSpent          decimal.Decimal   `gorm:"type:numeric(12,3);default:0"`
	Countries         string            `gorm:"type:text"` // comma-separated ISO codes
	UsageLimit        *int
	UsedCount         int    `gorm:"not null;default:0"`
	ChannelSlug       string `gorm:"type:varchar(255);not null;index"`
	StartDate         time.Time
	EndDate           *time.Time
	Active            bool `gorm:"not null;default:true"`

	// Scoping sets; all empty means the voucher is unrestricted.
	VariantIDs    string `gorm:"type:text"`
	ProductIDs    string `gorm:"type:text"`
	CategoryIDs   string `gorm:"type:text"`
	CollectionIDs string `gorm:"type:text"`
}

// DiscountAmountFor applies the voucher's discount function to a base
// price. The caller is responsible for capping.
func (v *Voucher) DiscountAmountFor(base decimal.Decimal) decimal.Decimal {
	if v.DiscountValueType == DiscountValuePercentage {
		return base.Mul(v.DiscountValue).Div(decimal.NewFromInt(100)).Round(3)
	}
	return v.DiscountValue
}

// RestrictsCountry reports whether the voucher limits redemption to a
// country set that excludes the given country.
func (v *Voucher) RestrictsCountry(code string) bool {
	if strings.TrimSpace(v.Countries) == "" {
		return false
	}
	for _, c := range strings.Split(v.Countries, ",") {
		if strings.EqualFold(strings.TrimSpace(c), code) {
			return false
		}
	}
	return true
}

// HasScope reports whether any variant/product/category/collection
// restriction is configured.
func (v *Voucher) HasScope() bool {
	return strings.TrimSpace(v.VariantIDs) != "" ||
		strings.TrimSpace(v.ProductIDs) != "" ||
		strings.TrimSpace(v.CategoryIDs) != "" ||
		strings.TrimSpace(v.CollectionIDs) != ""
}

// ScopeMatches reports whether a line's variant/product classification
// falls inside the voucher scope. A line counts once no matter how many
// scoping rules it matches.
func (v *Voucher) ScopeMatches(variant *ProductVariant, product *Product) bool {
	if !v.HasScope() {
		return true
	}
	if containsUUID(splitUUIDs(v.VariantIDs), variant.ID) {
		return true
	}
	if containsUUID(splitUUIDs(v.ProductIDs), product.ID) {
		return true
	}
	if product.CategoryID != nil && containsUUID(splitUUIDs(v.CategoryIDs), *product.CategoryID) {
		return true
	}
	voucherCollections := splitUUIDs(v.CollectionIDs)
	for _, col := range product.Collections() {
		if containsUUID(voucherCollections, col) {
			return true
		}
	}
	return false
}

// ActiveAt reports whether the voucher's date window covers the instant.
func (v *Voucher) ActiveAt(t time.Time) bool {
	if !v.Active || t.Before(v.StartDate) {
		return false
	}
	return v.EndDate == nil || t.Before(*v.EndDate)
}

func containsUUID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
