package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dollmart/dollmart-backend/internal/users"
	"github.com/dollmart/dollmart-backend/pkg/auth"
	"github.com/dollmart/dollmart-backend/pkg/config"
	"github.com/dollmart/dollmart-backend/pkg/db"
	"github.com/dollmart/dollmart-backend/pkg/db/models"
	"github.com/dollmart/dollmart-backend/pkg/enums"
	pkgerrors "github.com/dollmart/dollmart-backend/pkg/errors"
	"github.com/dollmart/dollmart-backend/pkg/logger"
	"github.com/dollmart/dollmart-backend/pkg/security"
	"gorm.io/gorm"
)

const minPasswordLength = 8

// Service handles registration and login.
type Service struct {
	usersRepo *users.Repository
	jwtCfg    config.JWTConfig
	pwCfg     config.PasswordConfig
	logg      *logger.Logger

	now func() time.Time
}

// NewService wires the auth service.
func NewService(usersRepo *users.Repository, jwtCfg config.JWTConfig, pwCfg config.PasswordConfig, logg *logger.Logger) *Service {
	return &Service{
		usersRepo: usersRepo,
		jwtCfg:    jwtCfg,
		pwCfg:     pwCfg,
		logg:      logg,
		now:       time.Now,
	}
}

// RegisterInput carries a new customer signup.
type RegisterInput struct {
	Email         string
	Password      string
	Name          string
	DiscountClass string
}

// Session is a logged-in identity with its bearer token.
type Session struct {
	User  users.Profile `json:"user"`
	Token string        `json:"token"`
}

// Register creates a customer account and logs it in.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*Session, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a valid email is required")
	}
	if len(input.Password) < minPasswordLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 8 characters")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}

	class := enums.DiscountClassIndividual
	if input.DiscountClass != "" {
		parsed, err := enums.ParseDiscountClass(input.DiscountClass)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount class must be individual or retail")
		}
		class = parsed
	}

	hash, err := security.HashPassword(input.Password, s.pwCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hashing password")
	}

	user, err := s.usersRepo.Create(ctx, &models.User{
		Email:         email,
		PasswordHash:  hash,
		Name:          name,
		Role:          enums.UserRoleCustomer,
		DiscountClass: class,
	})
	if err != nil {
		if db.IsUniqueViolation(err, "idx_users_email") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "email is already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating user")
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithUserID(ctx, user.ID.String()), "customer registered")
	}
	return s.sessionFor(user)
}

// Login verifies credentials and mints a token.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email and password are required")
	}

	user, err := s.usersRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading user")
	}

	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verifying password")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}

	return s.sessionFor(user)
}

func (s *Service) sessionFor(user *models.User) (*Session, error) {
	token, err := auth.MintAccessToken(s.jwtCfg, s.now(), auth.AccessTokenPayload{
		UserID:        user.ID,
		Role:          user.Role,
		DiscountClass: user.DiscountClass,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "minting token")
	}
	return &Session{User: users.ProfileFromModel(user), Token: token}, nil
}
