package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dollmart/dollmart-backend/pkg/enums"
)

// Order is an immutable record of a completed checkout.
type Order struct {
	ID             uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	UserID         uuid.UUID         `gorm:"column:user_id;type:uuid;not null;index:idx_orders_user"`
	Status         enums.OrderStatus `gorm:"column:status;not null;default:placed"`
	Total          decimal.Decimal   `gorm:"column:total;type:numeric(12,3);not null"`
	DeliveryCode   string            `gorm:"column:delivery_code;type:char(6);not null"`
	LoyaltyApplied bool              `gorm:"column:loyalty_applied;not null;default:false"`
	Lines          []OrderLine       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	DeliveredAt    *time.Time        `gorm:"column:delivered_at"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
