package auth

import (
	"github.com/dollmart/dollmart-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID        uuid.UUID
	Role          enums.UserRole
	DiscountClass enums.DiscountClass
	JTI           string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID        uuid.UUID           `json:"user_id"`
	Role          enums.UserRole      `json:"role"`
	DiscountClass enums.DiscountClass `json:"discount_class"`
	jwt.RegisteredClaims
}
