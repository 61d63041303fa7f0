package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionKind classifies an attempted gateway operation.
type TransactionKind string

const (
	TransactionAuth            TransactionKind = "auth"
	TransactionCapture         TransactionKind = "capture"
	TransactionConfirm         TransactionKind = "confirm"
	TransactionRefund          TransactionKind = "refund"
	TransactionVoid            TransactionKind = "void"
	TransactionActionToConfirm TransactionKind = "action_to_confirm"
)

// ChargeStatus tracks the provider-side state of a payment.
type ChargeStatus string

const (
	ChargeStatusNotCharged        ChargeStatus = "not-charged"
	ChargeStatusPending           ChargeStatus = "pending"
	ChargeStatusFullyCharged      ChargeStatus = "fully-charged"
	ChargeStatusPartiallyRefunded ChargeStatus = "partially-refunded"
	ChargeStatusFullyRefunded     ChargeStatus = "fully-refunded"
	ChargeStatusRefused           ChargeStatus = "refused"
)

// Payment is one payment attempt against a checkout. A checkout keeps at
// most one active payment at a time; superseded attempts stay around
// deactivated.
type Payment struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	CheckoutToken *uuid.UUID      `gorm:"type:uuid;index"`
	OrderID       *uuid.UUID      `gorm:"type:uuid;index"`
	Gateway       string          `gorm:"type:varchar(255);not null"`
	Token         string          `gorm:"type:varchar(512);index"` // gateway token / intent id
	PSPReference  string          `gorm:"type:varchar(512);index"`
	Total         decimal.Decimal `gorm:"type:numeric(12,3);not null"`
	Currency      string          `gorm:"type:varchar(3);not null"`
	ToConfirm     bool            `gorm:"not null;default:false"`
	IsActive      bool            `gorm:"not null;default:true"`
	ChargeStatus  ChargeStatus    `gorm:"type:varchar(20);not null;default:'not-charged'"`
	CustomerID    *string         `gorm:"type:varchar(256)"`
	RefundAmount  decimal.Decimal `gorm:"type:numeric(12,3);default:0"`
	RefundDate    *time.Time
	Transactions  []Transaction `gorm:"foreignKey:PaymentID"`
	CreatedAt     time.Time     `gorm:"autoCreateTime"`
	UpdatedAt     time.Time     `gorm:"autoUpdateTime"`
}

// Transaction is one immutable log entry of a gateway operation.
type Transaction struct {
	ID             uint            `gorm:"primaryKey"`
	PaymentID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	Kind           TransactionKind `gorm:"type:varchar(25);not null"`
	Token          string          `gorm:"type:varchar(512);index"`
	Amount         decimal.Decimal `gorm:"type:numeric(12,3);not null"`
	Currency       string          `gorm:"type:varchar(3);not null"`
	IsSuccess      bool            `gorm:"not null"`
	ActionRequired bool            `gorm:"not null;default:false"`
	Error          *string         `gorm:"type:varchar(256)"`
	CreatedAt      time.Time       `gorm:"autoCreateTime"`
}
