package cart

import (
	"context"
	"errors"

	"github.com/dollmart/dollmart-backend/internal/availability"
	"github.com/dollmart/dollmart-backend/internal/catalog"
	"github.com/dollmart/dollmart-backend/internal/pricing"
	"github.com/dollmart/dollmart-backend/pkg/db/models"
	"github.com/dollmart/dollmart-backend/pkg/enums"
	pkgerrors "github.com/dollmart/dollmart-backend/pkg/errors"
	"github.com/dollmart/dollmart-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service owns cart reservations. Adding to a cart reserves availability for
// every shopper immediately; physical stock only moves at checkout.
type Service struct {
	tx          txRunner
	repo        *Repository
	catalogRepo *catalog.Repository
	calc        *availability.Calculator
	pricer      *pricing.Engine
	logg        *logger.Logger
}

// NewService wires the cart service.
func NewService(tx txRunner, repo *Repository, catalogRepo *catalog.Repository, calc *availability.Calculator, logg *logger.Logger) *Service {
	return &Service{tx: tx, repo: repo, catalogRepo: catalogRepo, calc: calc, pricer: pricing.NewEngine(), logg: logg}
}

// Add reserves qty more units of the product in the user's cart. The product
// row is read under a FOR UPDATE lock, so two shoppers racing for the last
// unit serialize: the second sees the first's reservation and is refused.
func (s *Service) Add(ctx context.Context, userID, productID uuid.UUID, qty int) (*models.CartLine, error) {
	if qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeOutOfStock, "requested quantity must be positive").
			WithDetails(map[string]any{"requested": qty})
	}

	var saved *models.CartLine
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		catalogRepo := s.catalogRepo.WithTx(tx)
		cartRepo := s.repo.WithTx(tx)
		calc := s.calc.WithTx(tx)

		product, err := catalogRepo.FindByIDForUpdate(ctx, productID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading product")
		}

		available, err := calc.Available(ctx, product)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "computing availability")
		}
		if qty > available {
			return pkgerrors.New(pkgerrors.CodeOutOfStock, "not enough stock available").
				WithDetails(map[string]any{"requested": qty, "available": available})
		}

		line, err := cartRepo.FindLine(ctx, userID, productID)
		switch {
		case err == nil:
			line.Quantity += qty
			saved, err = cartRepo.Save(ctx, line)
			return err
		case errors.Is(err, gorm.ErrRecordNotFound):
			saved, err = cartRepo.Create(ctx, &models.CartLine{
				UserID:    userID,
				ProductID: productID,
				Quantity:  qty,
			})
			return err
		default:
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart line")
		}
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// Reduce lowers the reserved quantity by qty; the line disappears when the
// reduction reaches or exceeds it.
func (s *Service) Reduce(ctx context.Context, userID, productID uuid.UUID, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.repo.WithTx(tx)

		line, err := cartRepo.FindLine(ctx, userID, productID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "item is not in the cart")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart line")
		}

		if qty >= line.Quantity {
			return cartRepo.DeleteLine(ctx, userID, productID)
		}
		line.Quantity -= qty
		_, err = cartRepo.Save(ctx, line)
		return err
	})
}

// Remove drops the product from the cart entirely.
func (s *Service) Remove(ctx context.Context, userID, productID uuid.UUID) error {
	err := s.repo.DeleteLine(ctx, userID, productID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "item is not in the cart")
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "removing cart line")
	}
	return nil
}

// View returns the user's cart lines with product data attached.
func (s *Service) View(ctx context.Context, userID uuid.UUID) ([]models.CartLine, error) {
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing cart")
	}
	return rows, nil
}

// PricedLine is a cart line quoted at the price the shopper would pay.
type PricedLine struct {
	Line      models.CartLine
	UnitPrice decimal.Decimal
	Subtotal  decimal.Decimal
}

// PricedCart is the shopper's view of their cart: each line at its
// class-discounted unit price plus a running total. The loyalty discount is
// not quoted here since it only settles at checkout.
type PricedCart struct {
	Lines []PricedLine
	Total decimal.Decimal
}

// ViewPriced returns the cart with every line priced for the given discount
// class.
func (s *Service) ViewPriced(ctx context.Context, userID uuid.UUID, class enums.DiscountClass) (*PricedCart, error) {
	rows, err := s.View(ctx, userID)
	if err != nil {
		return nil, err
	}

	priced := &PricedCart{Lines: make([]PricedLine, 0, len(rows)), Total: decimal.Zero}
	for _, row := range rows {
		if row.Product == nil {
			return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart line lost its product")
		}
		unit := s.pricer.UnitPrice(row.Product.Price, class)
		subtotal := unit.Mul(decimal.NewFromInt(int64(row.Quantity)))
		priced.Lines = append(priced.Lines, PricedLine{Line: row, UnitPrice: unit, Subtotal: subtotal})
		priced.Total = priced.Total.Add(subtotal)
	}
	return priced, nil
}

// Clear releases every reservation in the user's cart.
func (s *Service) Clear(ctx context.Context, userID uuid.UUID) error {
	if err := s.repo.DeleteByUser(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clearing cart")
	}
	return nil
}
