package cart

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/dollmart/dollmart-backend/internal/availability"
	"github.com/dollmart/dollmart-backend/internal/catalog"
	"github.com/dollmart/dollmart-backend/pkg/db/models"
	"github.com/dollmart/dollmart-backend/pkg/enums"
	pkgerrors "github.com/dollmart/dollmart-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.User{}, &models.Product{}, &models.CartLine{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return conn
}

type gormTxRunner struct {
	db *gorm.DB
}

func (g gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return g.db.WithContext(ctx).Transaction(fn)
}

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	conn := newTestDB(t)
	svc := NewService(
		gormTxRunner{db: conn},
		NewRepository(conn),
		catalog.NewRepository(conn),
		availability.NewCalculator(conn),
		nil,
	)
	return svc, conn
}

func seedUser(t *testing.T, conn *gorm.DB) *models.User {
	t.Helper()
	user := &models.User{
		ID:           uuid.New(),
		Email:        fmt.Sprintf("dm_test_%s@example.com", uuid.NewString()),
		PasswordHash: "hash",
		Name:         "Cart Tester",
	}
	if err := conn.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func seedProduct(t *testing.T, conn *gorm.DB, onHand int) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:     uuid.New(),
		Name:   fmt.Sprintf("Item %s", uuid.NewString()),
		Price:  decimal.RequireFromString("10.99"),
		OnHand: onHand,
	}
	if err := conn.Create(product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}

func TestAddReservesAvailability(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	user := seedUser(t, conn)
	product := seedProduct(t, conn, 10)

	line, err := svc.Add(ctx, user.ID, product.ID, 3)
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if line.Quantity != 3 {
		t.Fatalf("expected quantity 3, got %d", line.Quantity)
	}

	// physical stock is untouched by reservations
	var stored models.Product
	if err := conn.First(&stored, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	if stored.OnHand != 10 {
		t.Fatalf("on_hand should stay 10, got %d", stored.OnHand)
	}
}

func TestAddMergesIntoExistingLine(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	user := seedUser(t, conn)
	product := seedProduct(t, conn, 10)

	if _, err := svc.Add(ctx, user.ID, product.ID, 2); err != nil {
		t.Fatalf("first add failed: %v", err)
	}
	line, err := svc.Add(ctx, user.ID, product.ID, 3)
	if err != nil {
		t.Fatalf("second add failed: %v", err)
	}
	if line.Quantity != 5 {
		t.Fatalf("expected merged quantity 5, got %d", line.Quantity)
	}

	var count int64
	if err := conn.Model(&models.CartLine{}).Count(&count).Error; err != nil {
		t.Fatalf("count lines: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected a single merged line, got %d", count)
	}
}

func TestAddRespectsOtherUsersReservations(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	alice := seedUser(t, conn)
	bob := seedUser(t, conn)
	product := seedProduct(t, conn, 5)

	if _, err := svc.Add(ctx, alice.ID, product.ID, 4); err != nil {
		t.Fatalf("alice add failed: %v", err)
	}

	_, err := svc.Add(ctx, bob.ID, product.ID, 2)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeOutOfStock {
		t.Fatalf("expected OUT_OF_STOCK, got %v", err)
	}

	if _, err := svc.Add(ctx, bob.ID, product.ID, 1); err != nil {
		t.Fatalf("bob should get the last unit: %v", err)
	}
}

func TestAddNeverOversellsUnderContention(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	alice := seedUser(t, conn)
	bob := seedUser(t, conn)
	product := seedProduct(t, conn, 1)

	// Both shoppers race for the last unit. The locked product read
	// serializes the availability checks, so at most one add commits.
	var wg sync.WaitGroup
	results := make([]error, 2)
	for i, userID := range []uuid.UUID{alice.ID, bob.ID} {
		wg.Add(1)
		go func(slot int, id uuid.UUID) {
			defer wg.Done()
			_, results[slot] = svc.Add(ctx, id, product.ID, 1)
		}(i, userID)
	}
	wg.Wait()

	wins := 0
	for _, err := range results {
		if err == nil {
			wins++
		}
	}
	if wins > 1 {
		t.Fatal("both shoppers reserved the last unit")
	}

	var reserved int
	if err := conn.Model(&models.CartLine{}).
		Select("COALESCE(SUM(quantity), 0)").
		Where("product_id = ?", product.ID).
		Scan(&reserved).Error; err != nil {
		t.Fatalf("sum reservations: %v", err)
	}
	if reserved > 1 {
		t.Fatalf("reservations exceed on-hand stock: %d", reserved)
	}
}

func TestAddValidatesInput(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	user := seedUser(t, conn)

	_, err := svc.Add(ctx, user.ID, uuid.New(), 0)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeOutOfStock {
		t.Fatalf("expected OUT_OF_STOCK for zero quantity, got %v", err)
	}

	_, err = svc.Add(ctx, user.ID, uuid.New(), 1)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND for missing product, got %v", err)
	}
}

func TestReducePartialAndFull(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	user := seedUser(t, conn)
	product := seedProduct(t, conn, 10)

	if _, err := svc.Add(ctx, user.ID, product.ID, 5); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	if err := svc.Reduce(ctx, user.ID, product.ID, 2); err != nil {
		t.Fatalf("reduce failed: %v", err)
	}
	lines, err := svc.View(ctx, user.ID)
	if err != nil {
		t.Fatalf("view failed: %v", err)
	}
	if len(lines) != 1 || lines[0].Quantity != 3 {
		t.Fatalf("expected quantity 3 after reduction, got %+v", lines)
	}

	// reducing by at least the remaining quantity drops the line
	if err := svc.Reduce(ctx, user.ID, product.ID, 10); err != nil {
		t.Fatalf("reduce failed: %v", err)
	}
	lines, err = svc.View(ctx, user.ID)
	if err != nil {
		t.Fatalf("view failed: %v", err)
	}
	if len(lines) != 0 {
		t.Fatalf("expected empty cart, got %d lines", len(lines))
	}
}

func TestRemoveMissingLineReturnsNotFound(t *testing.T) {
	svc, conn := newTestService(t)
	user := seedUser(t, conn)

	err := svc.Remove(context.Background(), user.ID, uuid.New())
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestReduceReleasesAvailabilityForOthers(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	alice := seedUser(t, conn)
	bob := seedUser(t, conn)
	product := seedProduct(t, conn, 5)

	if _, err := svc.Add(ctx, alice.ID, product.ID, 5); err != nil {
		t.Fatalf("alice add failed: %v", err)
	}
	if _, err := svc.Add(ctx, bob.ID, product.ID, 1); err == nil {
		t.Fatal("expected bob to be blocked")
	}

	if err := svc.Remove(ctx, alice.ID, product.ID); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if _, err := svc.Add(ctx, bob.ID, product.ID, 5); err != nil {
		t.Fatalf("bob should reserve released stock: %v", err)
	}
}

func TestViewPreloadsProducts(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	user := seedUser(t, conn)
	product := seedProduct(t, conn, 10)

	if _, err := svc.Add(ctx, user.ID, product.ID, 2); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	lines, err := svc.View(ctx, user.ID)
	if err != nil {
		t.Fatalf("view failed: %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	if lines[0].Product == nil || lines[0].Product.ID != product.ID {
		t.Fatal("expected product to be preloaded")
	}
}

func TestViewPricedAppliesRetailDiscount(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	user := seedUser(t, conn)
	product := seedProduct(t, conn, 10)

	if _, err := svc.Add(ctx, user.ID, product.ID, 2); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	retail, err := svc.ViewPriced(ctx, user.ID, enums.DiscountClassRetail)
	if err != nil {
		t.Fatalf("view failed: %v", err)
	}
	if len(retail.Lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(retail.Lines))
	}
	if !retail.Lines[0].UnitPrice.Equal(decimal.RequireFromString("9.891")) {
		t.Fatalf("expected discounted unit 9.891, got %s", retail.Lines[0].UnitPrice)
	}
	if !retail.Total.Equal(decimal.RequireFromString("19.782")) {
		t.Fatalf("expected total 19.782, got %s", retail.Total)
	}

	individual, err := svc.ViewPriced(ctx, user.ID, enums.DiscountClassIndividual)
	if err != nil {
		t.Fatalf("view failed: %v", err)
	}
	if !individual.Total.Equal(decimal.RequireFromString("21.98")) {
		t.Fatalf("expected list-price total 21.98, got %s", individual.Total)
	}
}

func TestClearEmptiesCart(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	user := seedUser(t, conn)
	first := seedProduct(t, conn, 10)
	second := seedProduct(t, conn, 10)

	if _, err := svc.Add(ctx, user.ID, first.ID, 1); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if _, err := svc.Add(ctx, user.ID, second.ID, 2); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	if err := svc.Clear(ctx, user.ID); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	lines, err := svc.View(ctx, user.ID)
	if err != nil {
		t.Fatalf("view failed: %v", err)
	}
	if len(lines) != 0 {
		t.Fatalf("expected empty cart, got %d lines", len(lines))
	}
}
