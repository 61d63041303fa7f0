package models

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product groups variants and carries the classification used by voucher
// scoping and ticket matching.
type Product struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name             string    `gorm:"type:varchar(250);not null"`
	CategoryID       *uuid.UUID
	CollectionIDs    string  `gorm:"type:text"` // comma-separated uuids
	TicketType       *string `gorm:"type:varchar(16)"`
	ShippingRequired bool    `gorm:"not null;default:true"`
}

// Collections parses the comma-separated collection id list.
func (p *Product) Collections() []uuid.UUID {
	return splitUUIDs(p.CollectionIDs)
}

// ProductVariant is the sellable unit.
type ProductVariant struct {
	ID             uuid.UUID        `gorm:"type:uuid;primaryKey"`
	ProductID      uuid.UUID        `gorm:"type:uuid;not null;index"`
	SKU            string           `gorm:"type:varchar(255);uniqueIndex;not null"`
	Name           string           `gorm:"type:varchar(255)"`
	Price          decimal.Decimal  `gorm:"type:numeric(12,3);not null"`
	SalePrice      *decimal.Decimal `gorm:"type:numeric(12,3)"`
	TrackInventory bool             `gorm:"not null;default:true"`
}

// CurrentPrice returns the sale price when one is active, the list price
// otherwise.
func (v *ProductVariant) CurrentPrice() decimal.Decimal {
	if v.SalePrice != nil && v.SalePrice.LessThan(v.Price) {
		return *v.SalePrice
	}
	return v.Price
}

func splitUUIDs(csv string) []uuid.UUID {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	var out []uuid.UUID
	for _, part := range strings.Split(csv, ",") {
		id, err := uuid.Parse(strings.TrimSpace(part))
		if err == nil {
			out = append(out, id)
		}
	}
	return out
}
