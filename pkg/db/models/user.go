package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/dollmart/dollmart-backend/pkg/enums"
)

// User is a registered shopper or the store manager.
type User struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	Email         string              `gorm:"column:email;not null;uniqueIndex:idx_users_email"`
	PasswordHash  string              `gorm:"column:password_hash;not null"`
	Name          string              `gorm:"column:name;not null"`
	Role          enums.UserRole      `gorm:"column:role;not null;default:customer"`
	DiscountClass enums.DiscountClass `gorm:"column:discount_class;not null;default:individual"`
	VisitCount    int                 `gorm:"column:visit_count;not null;default:0"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
