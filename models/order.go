package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order is the immutable snapshot created from a checkout. It must never
// exist concurrently with its originating checkout.
type Order struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	CheckoutToken   uuid.UUID       `gorm:"type:uuid;uniqueIndex;not null"`
	UserID          *uuid.UUID      `gorm:"type:uuid;index"`
	Email           string          `gorm:"type:varchar(254)"`
	ChannelSlug     string          `gorm:"type:varchar(255);not null"`
	Currency        string          `gorm:"type:varchar(3);not null"`
	BillingAddress  AddressSnapshot `gorm:"embedded;embeddedPrefix:billing_"`
	ShippingAddress AddressSnapshot `gorm:"embedded;embeddedPrefix:shipping_"`
	ShippingMethod  string          `gorm:"type:varchar(100)"`
	ShippingPrice   decimal.Decimal `gorm:"type:numeric(12,3);default:0"`
	Subtotal        decimal.Decimal `gorm:"type:numeric(12,3);not null"`
	Total           decimal.Decimal `gorm:"type:numeric(12,3);not null"`
	DiscountAmount  decimal.Decimal `gorm:"type:numeric(12,3);default:0"`
	DiscountName    *string         `gorm:"type:varchar(255)"`
	VoucherCode     *string         `gorm:"type:varchar(12)"`
	TrackingCode    string          `gorm:"type:varchar(255)"`
	RedirectURL     *string         `gorm:"type:varchar(1024)"`
	Lines           []OrderLine     `gorm:"foreignKey:OrderID"`
	CreatedAt       time.Time       `gorm:"autoCreateTime"`
}

// OrderLine freezes a checkout line's variant and price at completion time.
type OrderLine struct {
	ID          uint            `gorm:"primaryKey"`
	OrderID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	VariantID   uuid.UUID       `gorm:"type:uuid;not null"`
	ProductName string          `gorm:"type:varchar(250)"`
	SKU         string          `gorm:"type:varchar(255)"`
	Quantity    int             `gorm:"not null"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric(12,3);not null"`
	TotalPrice  decimal.Decimal `gorm:"type:numeric(12,3);not null"`
}

// OrderData is the prepared, not-yet-persisted order built during
// completion step 2. It exists only inside one completion attempt.
type OrderData struct {
	Order Order
	Lines []OrderLine
}

// StreamTicket grants a user access to a stream after a ticket checkout
// completes.
type StreamTicket struct {
	ID        uint       `gorm:"primaryKey"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;index"`
	Type      string     `gorm:"type:varchar(16);not null"`
	GameID    *string    `gorm:"type:varchar(64)"`
	SeasonID  *string    `gorm:"type:varchar(64)"`
	TeamIDs   *string    `gorm:"type:text"`
	LeagueIDs *string    `gorm:"type:text"`
	StartTime *time.Time
	Expires   *time.Time
	CreatedAt time.Time `gorm:"autoCreateTime"`
}
