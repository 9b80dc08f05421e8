package orders

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"github.com/dollmart/dollmart-backend/internal/cart"
	"github.com/dollmart/dollmart-backend/internal/catalog"
	"github.com/dollmart/dollmart-backend/internal/pricing"
	"github.com/dollmart/dollmart-backend/internal/users"
	"github.com/dollmart/dollmart-backend/pkg/db/models"
	"github.com/dollmart/dollmart-backend/pkg/enums"
	pkgerrors "github.com/dollmart/dollmart-backend/pkg/errors"
	"github.com/dollmart/dollmart-backend/pkg/logger"
	"github.com/dollmart/dollmart-backend/pkg/metrics"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service owns checkout. Placing an order snapshots the cart into an immutable
// order, decrements physical stock, bumps the loyalty counter and clears the
// cart, all in one transaction.
type Service struct {
	tx          txRunner
	repo        *Repository
	cartRepo    *cart.Repository
	catalogRepo *catalog.Repository
	usersRepo   *users.Repository
	engine      *pricing.Engine
	checkout    *metrics.CheckoutMetrics
	logg        *logger.Logger

	newDeliveryCode func() string
}

// NewService wires the orders service.
func NewService(
	tx txRunner,
	repo *Repository,
	cartRepo *cart.Repository,
	catalogRepo *catalog.Repository,
	usersRepo *users.Repository,
	engine *pricing.Engine,
	checkout *metrics.CheckoutMetrics,
	logg *logger.Logger,
) *Service {
	return &Service{
		tx:              tx,
		repo:            repo,
		cartRepo:        cartRepo,
		catalogRepo:     catalogRepo,
		usersRepo:       usersRepo,
		engine:          engine,
		checkout:        checkout,
		logg:            logg,
		newDeliveryCode: generateDeliveryCode,
	}
}

// generateDeliveryCode draws a uniform six digit code. Leading zeros are
// significant, the code is a string end to end.
func generateDeliveryCode() string {
	return fmt.Sprintf("%06d", rand.Intn(1000000))
}

// Placement is the outcome of a checkout attempt. A declined confirmation
// yields Cancelled with no order and no side effects.
type Placement struct {
	Cancelled bool
	Order     *models.Order
}

// Place converts the user's cart into an order. The caller must confirm the
// purchase explicitly; a decline cancels the checkout without touching stock,
// the cart or the visit counter. An empty cart is rejected either way.
func (s *Service) Place(ctx context.Context, userID uuid.UUID, confirmed bool) (*Placement, error) {
	if !confirmed {
		lines, err := s.cartRepo.ListByUser(ctx, userID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart")
		}
		if len(lines) == 0 {
			return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "cannot checkout an empty cart")
		}
		if s.logg != nil {
			s.logg.Info(ctx, "checkout declined")
		}
		return &Placement{Cancelled: true}, nil
	}

	var placed *models.Order

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ordersRepo := s.repo.WithTx(tx)
		cartRepo := s.cartRepo.WithTx(tx)
		catalogRepo := s.catalogRepo.WithTx(tx)
		usersRepo := s.usersRepo.WithTx(tx)

		user, err := usersRepo.FindByID(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading user")
		}

		lines, err := cartRepo.ListByUser(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart")
		}
		if len(lines) == 0 {
			return pkgerrors.New(pkgerrors.CodeEmptyCart, "cannot checkout an empty cart")
		}

		// Stock rows are touched in ascending product id order so two
		// concurrent checkouts cannot deadlock each other.
		sort.Slice(lines, func(i, j int) bool {
			return lines[i].ProductID.String() < lines[j].ProductID.String()
		})

		productIDs := make([]uuid.UUID, 0, len(lines))
		for _, line := range lines {
			productIDs = append(productIDs, line.ProductID)
		}
		products, err := catalogRepo.FindByIDs(ctx, productIDs)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading products")
		}

		quoteLines := make([]pricing.QuoteLine, 0, len(lines))
		for _, line := range lines {
			product, ok := products[line.ProductID]
			if !ok {
				return pkgerrors.New(pkgerrors.CodeConflict, "a cart item was removed from the catalog")
			}

			affected, err := catalogRepo.DecrementOnHand(ctx, line.ProductID, line.Quantity)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decrementing stock")
			}
			if affected == 0 {
				return pkgerrors.New(pkgerrors.CodeOutOfStock, "stock changed during checkout").
					WithDetails(map[string]any{"product_id": line.ProductID, "requested": line.Quantity})
			}

			quoteLines = append(quoteLines, pricing.QuoteLine{Product: product, Quantity: line.Quantity})
		}

		quote := s.engine.Quote(quoteLines, user.DiscountClass, user.VisitCount)

		order := &models.Order{
			UserID:         userID,
			Status:         enums.OrderStatusPlaced,
			Total:          quote.Total,
			DeliveryCode:   s.newDeliveryCode(),
			LoyaltyApplied: quote.LoyaltyApplied,
		}
		for _, q := range quote.Lines {
			order.Lines = append(order.Lines, models.OrderLine{
				ProductID:   q.ProductID,
				ProductName: q.ProductName,
				UnitPrice:   q.UnitPrice,
				Quantity:    q.Quantity,
				LineTotal:   q.LineTotal,
			})
		}

		if _, err := ordersRepo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating order")
		}

		if err := usersRepo.IncrementVisitCount(ctx, userID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating visit count")
		}

		if err := cartRepo.DeleteByUser(ctx, userID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clearing cart")
		}

		placed = order
		return nil
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			s.checkout.IncFailure(string(typed.Code()))
		}
		return nil, err
	}

	s.checkout.IncPlaced()
	if s.logg != nil {
		ctx = s.logg.WithFields(ctx, map[string]any{
			"order_id": placed.ID.String(),
			"total":    placed.Total.String(),
		})
		s.logg.Info(ctx, "order placed")
	}
	return &Placement{Order: placed}, nil
}

// Get loads an order for its owner.
func (s *Service) Get(ctx context.Context, orderID, userID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByIDForUser(ctx, orderID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}
	return order, nil
}

// ListByUser returns the user's order history.
func (s *Service) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing orders")
	}
	return rows, nil
}

// ListPending returns every order still awaiting delivery.
func (s *Service) ListPending(ctx context.Context) ([]models.Order, error) {
	rows, err := s.repo.ListByStatus(ctx, enums.OrderStatusPlaced)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing pending orders")
	}
	return rows, nil
}

// ListAll returns the whole order book, newest first.
func (s *Service) ListAll(ctx context.Context) ([]models.Order, error) {
	rows, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing orders")
	}
	return rows, nil
}

// CountsByUser returns per-customer order tallies.
func (s *Service) CountsByUser(ctx context.Context) (map[uuid.UUID]int64, error) {
	counts, err := s.repo.CountByUser(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "counting orders")
	}
	return counts, nil
}
