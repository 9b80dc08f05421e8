package availability

import (
	"context"
	"fmt"
	"testing"

	"github.com/dollmart/dollmart-backend/pkg/db/models"
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

func seedUser(t *testing.T, conn *gorm.DB) *models.User {
	t.Helper()
	user := &models.User{
		ID:           uuid.New(),
		Email:        fmt.Sprintf("dm_test_%s@example.com", uuid.NewString()),
		PasswordHash: "hash",
		Name:         "Availability Tester",
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
		Price:  decimal.NewFromInt(1),
		OnHand: onHand,
	}
	if err := conn.Create(product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}

func seedCartLine(t *testing.T, conn *gorm.DB, userID, productID uuid.UUID, qty int) {
	t.Helper()
	line := &models.CartLine{ID: uuid.New(), UserID: userID, ProductID: productID, Quantity: qty}
	if err := conn.Create(line).Error; err != nil {
		t.Fatalf("create cart line: %v", err)
	}
}

func TestAvailableSubtractsAllReservations(t *testing.T) {
	conn := newTestDB(t)
	calc := NewCalculator(conn)
	ctx := context.Background()

	product := seedProduct(t, conn, 10)
	alice := seedUser(t, conn)
	bob := seedUser(t, conn)

	seedCartLine(t, conn, alice.ID, product.ID, 3)
	seedCartLine(t, conn, bob.ID, product.ID, 4)

	available, err := calc.Available(ctx, product)
	if err != nil {
		t.Fatalf("available failed: %v", err)
	}
	if available != 3 {
		t.Fatalf("expected 3 available, got %d", available)
	}
}

func TestAvailableFloorsAtZero(t *testing.T) {
	conn := newTestDB(t)
	calc := NewCalculator(conn)
	ctx := context.Background()

	product := seedProduct(t, conn, 2)
	user := seedUser(t, conn)
	seedCartLine(t, conn, user.ID, product.ID, 5)

	available, err := calc.Available(ctx, product)
	if err != nil {
		t.Fatalf("available failed: %v", err)
	}
	if available != 0 {
		t.Fatalf("expected floor at 0, got %d", available)
	}
}

func TestAvailableWithNoReservations(t *testing.T) {
	conn := newTestDB(t)
	calc := NewCalculator(conn)

	product := seedProduct(t, conn, 7)
	available, err := calc.Available(context.Background(), product)
	if err != nil {
		t.Fatalf("available failed: %v", err)
	}
	if available != 7 {
		t.Fatalf("expected full stock, got %d", available)
	}
}

func TestAvailableByProduct(t *testing.T) {
	conn := newTestDB(t)
	calc := NewCalculator(conn)
	ctx := context.Background()

	first := seedProduct(t, conn, 5)
	second := seedProduct(t, conn, 1)
	third := seedProduct(t, conn, 4)
	user := seedUser(t, conn)

	seedCartLine(t, conn, user.ID, first.ID, 2)
	seedCartLine(t, conn, user.ID, second.ID, 9)

	available, err := calc.AvailableByProduct(ctx, []models.Product{*first, *second, *third})
	if err != nil {
		t.Fatalf("available by product failed: %v", err)
	}
	if available[first.ID] != 3 {
		t.Fatalf("expected 3 for first, got %d", available[first.ID])
	}
	if available[second.ID] != 0 {
		t.Fatalf("expected 0 for oversubscribed second, got %d", available[second.ID])
	}
	if available[third.ID] != 4 {
		t.Fatalf("expected untouched third, got %d", available[third.ID])
	}
}
