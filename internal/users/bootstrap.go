package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dollmart/dollmart-backend/pkg/config"
	"github.com/dollmart/dollmart-backend/pkg/db/models"
	"github.com/dollmart/dollmart-backend/pkg/enums"
	"github.com/dollmart/dollmart-backend/pkg/logger"
	"github.com/dollmart/dollmart-backend/pkg/security"
	"gorm.io/gorm"
)

// EnsureManager creates the store manager account on first boot. It is a
// no-op when the account already exists or no credentials are configured.
func EnsureManager(ctx context.Context, repo *Repository, bootstrap config.BootstrapConfig, pwCfg config.PasswordConfig, logg *logger.Logger) error {
	email := strings.ToLower(strings.TrimSpace(bootstrap.ManagerEmail))
	if email == "" || bootstrap.ManagerPassword == "" {
		return nil
	}

	_, err := repo.FindByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("looking up manager account: %w", err)
	}

	hash, err := security.HashPassword(bootstrap.ManagerPassword, pwCfg)
	if err != nil {
		return fmt.Errorf("hashing manager password: %w", err)
	}

	if _, err := repo.Create(ctx, &models.User{
		Email:        email,
		PasswordHash: hash,
		Name:         bootstrap.ManagerName,
		Role:         enums.UserRoleManager,
	}); err != nil {
		return fmt.Errorf("creating manager account: %w", err)
	}

	if logg != nil {
		logg.Info(ctx, "manager account created")
	}
	return nil
}
