package users

import (
	"time"

	"github.com/dollmart/dollmart-backend/pkg/db/models"
	"github.com/dollmart/dollmart-backend/pkg/enums"
	"github.com/google/uuid"
)

// Profile is the public view of a user account.
type Profile struct {
	ID            uuid.UUID           `json:"id"`
	Email         string              `json:"email"`
	Name          string              `json:"name"`
	Role          enums.UserRole      `json:"role"`
	DiscountClass enums.DiscountClass `json:"discount_class"`
	VisitCount    int                 `json:"visit_count"`
	CreatedAt     time.Time           `json:"created_at"`
}

// ProfileFromModel maps the persistence model onto the public view.
func ProfileFromModel(user *models.User) Profile {
	return Profile{
		ID:            user.ID,
		Email:         user.Email,
		Name:          user.Name,
		Role:          user.Role,
		DiscountClass: user.DiscountClass,
		VisitCount:    user.VisitCount,
		CreatedAt:     user.CreatedAt,
	}
}
