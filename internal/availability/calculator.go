package availability

import (
	"context"

	"github.com/dollmart/dollmart-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Calculator derives sellable quantity: physical stock minus every cart
// reservation across all users, floored at zero. Cart lines never touch
// on_hand, so this is the only place the two views meet.
type Calculator struct {
	db *gorm.DB
}

// NewCalculator constructs a Calculator bound to the provided DB.
func NewCalculator(db *gorm.DB) *Calculator {
	return &Calculator{db: db}
}

// WithTx binds the calculator to a transaction so reads share its snapshot.
func (c *Calculator) WithTx(tx *gorm.DB) *Calculator {
	if tx == nil {
		return c
	}
	return &Calculator{db: tx}
}

// ReservedForProduct sums cart reservations for a single product.
func (c *Calculator) ReservedForProduct(ctx context.Context, productID uuid.UUID) (int, error) {
	var reserved int64
	err := c.db.WithContext(ctx).
		Model(&models.CartLine{}).
		Where("product_id = ?", productID).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&reserved).Error
	if err != nil {
		return 0, err
	}
	return int(reserved), nil
}

// ReservedForProducts sums cart reservations for each of the given products.
// Products with no reservations are absent from the map.
func (c *Calculator) ReservedForProducts(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	if len(productIDs) == 0 {
		return map[uuid.UUID]int{}, nil
	}

	type row struct {
		ProductID uuid.UUID
		Reserved  int64
	}
	var rows []row
	err := c.db.WithContext(ctx).
		Model(&models.CartLine{}).
		Where("product_id IN ?", productIDs).
		Select("product_id, COALESCE(SUM(quantity), 0) AS reserved").
		Group("product_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	reserved := make(map[uuid.UUID]int, len(rows))
	for _, r := range rows {
		reserved[r.ProductID] = int(r.Reserved)
	}
	return reserved, nil
}

// Available returns the sellable quantity for the product.
func (c *Calculator) Available(ctx context.Context, product *models.Product) (int, error) {
	reserved, err := c.ReservedForProduct(ctx, product.ID)
	if err != nil {
		return 0, err
	}
	return floorZero(product.OnHand - reserved), nil
}

// AvailableByProduct returns the sellable quantity for each product keyed by id.
func (c *Calculator) AvailableByProduct(ctx context.Context, products []models.Product) (map[uuid.UUID]int, error) {
	ids := make([]uuid.UUID, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}

	reserved, err := c.ReservedForProducts(ctx, ids)
	if err != nil {
		return nil, err
	}

	available := make(map[uuid.UUID]int, len(products))
	for _, p := range products {
		available[p.ID] = floorZero(p.OnHand - reserved[p.ID])
	}
	return available, nil
}

func floorZero(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
