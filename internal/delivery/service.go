package delivery

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/dollmart/dollmart-backend/internal/orders"
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

// Service confirms deliveries. A placed order flips to delivered exactly once,
// and only when the submitted code matches the stored one character for
// character.
type Service struct {
	tx         txRunner
	ordersRepo *orders.Repository
	checkout   *metrics.CheckoutMetrics
	logg       *logger.Logger

	now func() time.Time
}

// NewService wires the delivery service.
func NewService(tx txRunner, ordersRepo *orders.Repository, checkout *metrics.CheckoutMetrics, logg *logger.Logger) *Service {
	return &Service{
		tx:         tx,
		ordersRepo: ordersRepo,
		checkout:   checkout,
		logg:       logg,
		now:        time.Now,
	}
}

// Confirm completes delivery of a placed order.
func (s *Service) Confirm(ctx context.Context, orderID uuid.UUID, submittedCode string) (*models.Order, error) {
	var confirmed *models.Order

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.ordersRepo.WithTx(tx)

		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "no pending order with that id")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
		}
		// a delivered order is no longer pending, so it reads as absent
		if order.Status != enums.OrderStatusPlaced {
			return pkgerrors.New(pkgerrors.CodeNotFound, "no pending order with that id")
		}

		// exact string comparison: "000000" and "0" are different codes
		if subtle.ConstantTimeCompare([]byte(order.DeliveryCode), []byte(submittedCode)) != 1 {
			return pkgerrors.New(pkgerrors.CodeCodeMismatch, "delivery code does not match")
		}

		deliveredAt := s.now().UTC()
		affected, err := repo.MarkDelivered(ctx, orderID, deliveredAt)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marking order delivered")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "no pending order with that id")
		}

		order.Status = enums.OrderStatusDelivered
		order.DeliveredAt = &deliveredAt
		confirmed = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.checkout.IncDelivered()
	if s.logg != nil {
		s.logg.Info(s.logg.WithOrderID(ctx, confirmed.ID.String()), "order delivered")
	}
	return confirmed, nil
}
