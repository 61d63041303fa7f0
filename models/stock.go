package models

import (
	"strings"

	"github.com/google/uuid"
)

// Warehouse ships to a flattened set of countries for a channel.
type Warehouse struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Slug        string    `gorm:"type:varchar(255);uniqueIndex;not null"`
	ChannelSlug string    `gorm:"type:varchar(255);not null;index"`
	Countries   string    `gorm:"type:text"` // comma-separated ISO codes
}

// ShipsTo reports whether the warehouse serves the country. An empty list
// means it ships everywhere.
func (w *Warehouse) ShipsTo(code string) bool {
	if strings.TrimSpace(w.Countries) == "" {
		return true
	}
	for _, c := range strings.Split(w.Countries, ",") {
		if strings.EqualFold(strings.TrimSpace(c), code) {
			return true
		}
	}
	return false
}

// Stock is the on-hand quantity of one variant in one warehouse.
type Stock struct {
	ID          uint      `gorm:"primaryKey"`
	WarehouseID uuid.UUID `gorm:"type:uuid;not null;index:idx_stock_warehouse_variant,unique"`
	VariantID   uuid.UUID `gorm:"type:uuid;not null;index:idx_stock_warehouse_variant,unique"`
	Quantity    int       `gorm:"not null;default:0"`
}

// Allocation reserves part of a stock row. During checkout completion the
// reservation is keyed by checkout token; once the order materializes it is
// re-pointed at the order line.
type Allocation struct {
	ID                uint       `gorm:"primaryKey"`
	StockID           uint       `gorm:"not null;index"`
	CheckoutToken     *uuid.UUID `gorm:"type:uuid;index"`
	OrderLineID       *uint      `gorm:"index"`
	QuantityAllocated int        `gorm:"not null"`
}

// StockAvailability pairs a stock row with its currently allocated
// quantity.
type StockAvailability struct {
	Stock     Stock
	Allocated int
}

// AvailableQuantity sums availability across stock rows, clamping at zero.
// Corrupted data may drive a single row negative; the ledger tolerates it
// instead of raising.
func AvailableQuantity(stocks []StockAvailability) int {
	total := 0
	allocated := 0
	for _, s := range stocks {
		total += s.Stock.Quantity
		allocated += s.Allocated
	}
	if total < allocated {
		return 0
	}
	return total - allocated
}
