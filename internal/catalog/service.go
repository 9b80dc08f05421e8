package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dollmart/dollmart-backend/pkg/db"
	"github.com/dollmart/dollmart-backend/pkg/db/models"
	pkgerrors "github.com/dollmart/dollmart-backend/pkg/errors"
	"github.com/dollmart/dollmart-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service owns catalog management: the manager's create/update/remove surface
// and the read surface shared with shoppers.
type Service struct {
	tx   txRunner
	repo *Repository
	logg *logger.Logger
}

// NewService wires the catalog service.
func NewService(tx txRunner, repo *Repository, logg *logger.Logger) *Service {
	return &Service{tx: tx, repo: repo, logg: logg}
}

// CreateProductInput carries the fields for a new catalog item.
type CreateProductInput struct {
	Name     string
	Category string
	Price    decimal.Decimal
	OnHand   int
}

// UpdateProductInput carries optional field updates; nil fields are untouched.
type UpdateProductInput struct {
	Name     *string
	Category *string
	Price    *decimal.Decimal
	OnHand   *int
}

// Create validates and inserts a new product.
func (s *Service) Create(ctx context.Context, input CreateProductInput) (*models.Product, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name is required")
	}
	if !input.Price.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
	}
	if input.OnHand <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "initial stock must be positive")
	}

	product := &models.Product{
		Name:     input.Name,
		Category: strings.TrimSpace(input.Category),
		Price:    input.Price,
		OnHand:   input.OnHand,
	}

	created, err := s.repo.Create(ctx, product)
	if err != nil {
		if db.IsUniqueViolation(err, "idx_products_name") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "a product with that name already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating product")
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "product_id", created.ID.String()), "product created")
	}
	return created, nil
}

// Update applies the provided fields to an existing product.
func (s *Service) Update(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*models.Product, error) {
	if input.Name != nil && strings.TrimSpace(*input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name cannot be blank")
	}
	if input.Price != nil && !input.Price.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
	}
	if input.OnHand != nil && *input.OnHand < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock cannot be negative")
	}

	var updated *models.Product
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		product, err := repo.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading product")
		}

		if input.Name != nil {
			product.Name = strings.TrimSpace(*input.Name)
		}
		if input.Category != nil {
			product.Category = strings.TrimSpace(*input.Category)
		}
		if input.Price != nil {
			product.Price = *input.Price
		}
		if input.OnHand != nil {
			product.OnHand = *input.OnHand
		}

		if _, err := repo.Save(ctx, product); err != nil {
			if db.IsUniqueViolation(err, "idx_products_name") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "a product with that name already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "saving product")
		}
		updated = product
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Remove deletes a product along with every cart line that reserves it.
// Order lines keep their snapshot so history survives removal.
func (s *Service) Remove(ctx context.Context, id uuid.UUID) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if _, err := repo.FindByID(ctx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading product")
		}

		if err := tx.WithContext(ctx).Where("product_id = ?", id).Delete(&models.CartLine{}).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clearing cart reservations")
		}

		if err := repo.Delete(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deleting product")
		}
		return nil
	})
	if err != nil {
		return err
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "product_id", id.String()), "product removed")
	}
	return nil
}

// Get returns a single product.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading product")
	}
	return product, nil
}

// List returns the full catalog.
func (s *Service) List(ctx context.Context) ([]models.Product, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing products")
	}
	return rows, nil
}

// Search returns products matching the query by name or category.
func (s *Service) Search(ctx context.Context, query string) ([]models.Product, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.List(ctx)
	}
	rows, err := s.repo.Search(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, fmt.Sprintf("searching products for %q", query))
	}
	return rows, nil
}
