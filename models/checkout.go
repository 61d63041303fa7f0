package models

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Address holds a postal address. Checkout references address rows; orders
// embed immutable copies instead.
type Address struct {
	ID             uint   `gorm:"primaryKey"`
	FirstName      string `gorm:"type:varchar(256)"`
	LastName       string `gorm:"type:varchar(256)"`
	CompanyName    string `gorm:"type:varchar(256)"`
	StreetAddress1 string `gorm:"type:varchar(256)"`
	StreetAddress2 string `gorm:"type:varchar(256)"`
	City           string `gorm:"type:varchar(256)"`
	PostalCode     string `gorm:"type:varchar(20)"`
	Country        string `gorm:"type:varchar(2);not null"`
	CountryArea    string `gorm:"type:varchar(128)"`
	Phone          string `gorm:"type:varchar(32)"`
}

// AddressSnapshot is the denormalized copy embedded into orders.
type AddressSnapshot struct {
	FirstName      string `gorm:"type:varchar(256)"`
	LastName       string `gorm:"type:varchar(256)"`
	CompanyName    string `gorm:"type:varchar(256)"`
	StreetAddress1 string `gorm:"type:varchar(256)"`
	StreetAddress2 string `gorm:"type:varchar(256)"`
	City           string `gorm:"type:varchar(256)"`
	PostalCode     string `gorm:"type:varchar(20)"`
	Country        string `gorm:"type:varchar(2)"`
	CountryArea    string `gorm:"type:varchar(128)"`
	Phone          string `gorm:"type:varchar(32)"`
}

// Snapshot converts an address row into its immutable order copy.
func (a *Address) Snapshot() AddressSnapshot {
	return AddressSnapshot{
		FirstName:      a.FirstName,
		LastName:       a.LastName,
		CompanyName:    a.CompanyName,
		StreetAddress1: a.StreetAddress1,
		StreetAddress2: a.StreetAddress2,
		City:           a.City,
		PostalCode:     a.PostalCode,
		Country:        a.Country,
		CountryArea:    a.CountryArea,
		Phone:          a.Phone,
	}
}

// Checkout is the mutable cart. It is destroyed exactly once, atomically
// with order creation, on successful completion.
type Checkout struct {
	Token             uuid.UUID  `gorm:"type:uuid;primaryKey"`
	ChannelSlug       string     `gorm:"type:varchar(255);not null;index"`
	Currency          string     `gorm:"type:varchar(3);not null"`
	Email             string     `gorm:"type:varchar(254)"`
	UserID            *uuid.UUID `gorm:"type:uuid;index"`
	ShippingAddressID *uint
	ShippingAddress   *Address `gorm:"foreignKey:ShippingAddressID"`
	BillingAddressID  *uint
	BillingAddress    *Address `gorm:"foreignKey:BillingAddressID"`
	ShippingMethodID  *uint
	VoucherCode       *string         `gorm:"type:varchar(12)"`
	DiscountAmount    decimal.Decimal `gorm:"type:numeric(12,3);default:0"`
	DiscountName      *string         `gorm:"type:varchar(255)"`
	WebhookProcessing bool            `gorm:"not null;default:false"`
	Metadata          *string         `gorm:"type:jsonb"`
	GiftCards         []GiftCard      `gorm:"many2many:checkout_gift_cards"`
	LastChange        time.Time       `gorm:"autoUpdateTime"`
	CreatedAt         time.Time       `gorm:"autoCreateTime"`
}

// Country returns the destination country used for stock and voucher
// country checks: shipping address first, billing as fallback.
func (c *Checkout) Country() string {
	if c.ShippingAddress != nil {
		return c.ShippingAddress.Country
	}
	if c.BillingAddress != nil {
		return c.BillingAddress.Country
	}
	return ""
}

// StreamMeta is the purchase-intent metadata a stream-ticket checkout
// carries. Absent keys stay nil.
type StreamMeta struct {
	GameID    *string    `json:"game_id"`
	SeasonID  *string    `json:"season_id"`
	Expires   *time.Time `json:"expires"`
	StartTime *time.Time `json:"start_time"`
	TeamIDs   *string    `json:"team_ids"`
	LeagueIDs *string    `json:"league_ids"`
}

// IsEmpty reports whether no purchase intent is declared at all.
func (m StreamMeta) IsEmpty() bool {
	return m.GameID == nil && m.SeasonID == nil && m.Expires == nil
}

// StreamMeta parses the checkout metadata blob. A checkout without
// metadata yields the zero value.
func (c *Checkout) StreamMeta() (StreamMeta, error) {
	var meta StreamMeta
	if c.Metadata == nil || strings.TrimSpace(*c.Metadata) == "" {
		return meta, nil
	}
	if err := json.Unmarshal([]byte(*c.Metadata), &meta); err != nil {
		return meta, err
	}
	return meta, nil
}

// CheckoutLine is a (checkout, variant, quantity) tuple. Quantity is always
// positive; a mutation driving it to zero deletes the line instead.
type CheckoutLine struct {
	ID            uint      `gorm:"primaryKey"`
	CheckoutToken uuid.UUID `gorm:"type:uuid;not null;index"`
	VariantID     uuid.UUID `gorm:"type:uuid;not null"`
	Quantity      int       `gorm:"not null"`
}

// GiftCard carries a spendable balance that reduces the amount a payment
// has to cover.
type GiftCard struct {
	ID             uint            `gorm:"primaryKey"`
	Code           string          `gorm:"type:varchar(16);uniqueIndex;not null"`
	CurrentBalance decimal.Decimal `gorm:"type:numeric(12,3);not null"`
	IsActive       bool            `gorm:"not null;default:true"`
}

// ShippingMethod is a deliverability option scoped to a channel and a set
// of countries (its zone, flattened).
type ShippingMethod struct {
	ID          uint            `gorm:"primaryKey"`
	Name        string          `gorm:"type:varchar(100);not null"`
	ChannelSlug string          `gorm:"type:varchar(255);not null;index"`
	Countries   string          `gorm:"type:text"` // comma-separated ISO codes
	Price       decimal.Decimal `gorm:"type:numeric(12,3);not null"`
}

// CoversCountry reports whether the method's zone includes the country.
// An empty country list means the zone is unrestricted.
func (m *ShippingMethod) CoversCountry(code string) bool {
	if strings.TrimSpace(m.Countries) == "" {
		return true
	}
	for _, c := range strings.Split(m.Countries, ",") {
		if strings.EqualFold(strings.TrimSpace(c), code) {
			return true
		}
	}
	return false
}
