package models

import (
	"time"

	"github.com/google/uuid"
)

// CustomerGatewayProfile remembers the gateway-side customer id of an
// authenticated account so future payments can reuse stored sources.
type CustomerGatewayProfile struct {
	ID         uint      `gorm:"primaryKey"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;index:idx_customer_gateway,unique"`
	Gateway    string    `gorm:"type:varchar(255);not null;index:idx_customer_gateway,unique"`
	CustomerID string    `gorm:"type:varchar(256);not null"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}
