package orders

import (
	"context"
	"fmt"
	"regexp"
	"testing"

	"github.com/dollmart/dollmart-backend/internal/cart"
	"github.com/dollmart/dollmart-backend/internal/catalog"
	"github.com/dollmart/dollmart-backend/internal/pricing"
	"github.com/dollmart/dollmart-backend/internal/users"
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
	if err := conn.AutoMigrate(&models.User{}, &models.Product{}, &models.CartLine{}, &models.Order{}, &models.OrderLine{}); err != nil {
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
		cart.NewRepository(conn),
		catalog.NewRepository(conn),
		users.NewRepository(conn),
		pricing.NewEngine(),
		nil,
		nil,
	)
	return svc, conn
}

func seedUser(t *testing.T, conn *gorm.DB, class enums.DiscountClass, visits int) *models.User {
	t.Helper()
	user := &models.User{
		ID:            uuid.New(),
		Email:         fmt.Sprintf("dm_test_%s@example.com", uuid.NewString()),
		PasswordHash:  "hash",
		Name:          "Orders Tester",
		Role:          enums.UserRoleCustomer,
		DiscountClass: class,
		VisitCount:    visits,
	}
	if err := conn.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func seedProduct(t *testing.T, conn *gorm.DB, price string, onHand int) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:     uuid.New(),
		Name:   fmt.Sprintf("Item %s", uuid.NewString()),
		Price:  decimal.RequireFromString(price),
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

func TestPlaceFirstCheckout(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	user := seedUser(t, conn, enums.DiscountClassIndividual, 0)
	product := seedProduct(t, conn, "10.99", 50)
	seedCartLine(t, conn, user.ID, product.ID, 2)

	placement, err := svc.Place(ctx, user.ID, true)
	if err != nil {
		t.Fatalf("place failed: %v", err)
	}
	if placement.Cancelled {
		t.Fatal("confirmed checkout must not cancel")
	}
	order := placement.Order

	if !order.Total.Equal(decimal.RequireFromString("21.98")) {
		t.Fatalf("expected total 21.98, got %s", order.Total)
	}
	if order.Status != enums.OrderStatusPlaced {
		t.Fatalf("expected placed status, got %s", order.Status)
	}
	if order.LoyaltyApplied {
		t.Fatal("loyalty should not apply to the first checkout")
	}
	if matched, _ := regexp.MatchString(`^[0-9]{6}$`, order.DeliveryCode); !matched {
		t.Fatalf("expected six digit delivery code, got %q", order.DeliveryCode)
	}
	if len(order.Lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(order.Lines))
	}
	if order.Lines[0].ProductName != product.Name {
		t.Fatalf("line should snapshot the product name")
	}

	var storedProduct models.Product
	if err := conn.First(&storedProduct, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	if storedProduct.OnHand != 48 {
		t.Fatalf("expected on_hand 48, got %d", storedProduct.OnHand)
	}

	var storedUser models.User
	if err := conn.First(&storedUser, "id = ?", user.ID).Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	if storedUser.VisitCount != 1 {
		t.Fatalf("expected visit count 1, got %d", storedUser.VisitCount)
	}

	var cartCount int64
	if err := conn.Model(&models.CartLine{}).Where("user_id = ?", user.ID).Count(&cartCount).Error; err != nil {
		t.Fatalf("count cart: %v", err)
	}
	if cartCount != 0 {
		t.Fatalf("expected cart to be cleared, got %d lines", cartCount)
	}
}

func TestPlaceAppliesLoyaltyOnThirdCheckout(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	user := seedUser(t, conn, enums.DiscountClassIndividual, 2)
	product := seedProduct(t, conn, "10.99", 10)
	seedCartLine(t, conn, user.ID, product.ID, 1)

	placement, err := svc.Place(ctx, user.ID, true)
	if err != nil {
		t.Fatalf("place failed: %v", err)
	}
	order := placement.Order
	if !order.LoyaltyApplied {
		t.Fatal("expected loyalty discount")
	}
	if !order.Total.Equal(decimal.RequireFromString("9.891")) {
		t.Fatalf("expected total 9.891, got %s", order.Total)
	}
}

func TestPlaceRetailPricing(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	user := seedUser(t, conn, enums.DiscountClassRetail, 0)
	product := seedProduct(t, conn, "10.99", 10)
	seedCartLine(t, conn, user.ID, product.ID, 2)

	placement, err := svc.Place(ctx, user.ID, true)
	if err != nil {
		t.Fatalf("place failed: %v", err)
	}
	order := placement.Order
	if !order.Total.Equal(decimal.RequireFromString("19.782")) {
		t.Fatalf("expected total 19.782, got %s", order.Total)
	}
	if !order.Lines[0].UnitPrice.Equal(decimal.RequireFromString("9.891")) {
		t.Fatalf("expected discounted unit price, got %s", order.Lines[0].UnitPrice)
	}
}

func TestPlaceEmptyCart(t *testing.T) {
	svc, conn := newTestService(t)
	user := seedUser(t, conn, enums.DiscountClassIndividual, 0)

	_, err := svc.Place(context.Background(), user.ID, true)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeEmptyCart {
		t.Fatalf("expected EMPTY_CART, got %v", err)
	}

	// a decline still surfaces the empty cart instead of a hollow cancel
	_, err = svc.Place(context.Background(), user.ID, false)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeEmptyCart {
		t.Fatalf("expected EMPTY_CART on declined checkout, got %v", err)
	}
}

func TestPlaceDeclinedLeavesEverythingUntouched(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	user := seedUser(t, conn, enums.DiscountClassIndividual, 0)
	product := seedProduct(t, conn, "10.99", 50)
	seedCartLine(t, conn, user.ID, product.ID, 2)

	placement, err := svc.Place(ctx, user.ID, false)
	if err != nil {
		t.Fatalf("declined place failed: %v", err)
	}
	if !placement.Cancelled || placement.Order != nil {
		t.Fatalf("expected a cancelled placement, got %+v", placement)
	}

	var orderCount int64
	if err := conn.Model(&models.Order{}).Count(&orderCount).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if orderCount != 0 {
		t.Fatalf("decline must not create orders, got %d", orderCount)
	}

	var storedProduct models.Product
	if err := conn.First(&storedProduct, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	if storedProduct.OnHand != 50 {
		t.Fatalf("decline must not move stock, got %d", storedProduct.OnHand)
	}

	var cartCount int64
	if err := conn.Model(&models.CartLine{}).Where("user_id = ?", user.ID).Count(&cartCount).Error; err != nil {
		t.Fatalf("count cart: %v", err)
	}
	if cartCount != 1 {
		t.Fatalf("decline must keep the cart, got %d lines", cartCount)
	}
}

func TestPlaceAbortsOnStockShortfall(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	user := seedUser(t, conn, enums.DiscountClassIndividual, 0)
	plentiful := seedProduct(t, conn, "1.00", 100)
	scarce := seedProduct(t, conn, "2.00", 1)
	seedCartLine(t, conn, user.ID, plentiful.ID, 5)
	seedCartLine(t, conn, user.ID, scarce.ID, 3)

	_, err := svc.Place(ctx, user.ID, true)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeOutOfStock {
		t.Fatalf("expected OUT_OF_STOCK, got %v", err)
	}

	// the whole transaction rolls back: no orders, stock untouched, cart intact
	var orderCount int64
	if err := conn.Model(&models.Order{}).Count(&orderCount).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if orderCount != 0 {
		t.Fatalf("expected no orders, got %d", orderCount)
	}

	var storedPlentiful models.Product
	if err := conn.First(&storedPlentiful, "id = ?", plentiful.ID).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	if storedPlentiful.OnHand != 100 {
		t.Fatalf("expected rollback to restore stock, got %d", storedPlentiful.OnHand)
	}

	var storedUser models.User
	if err := conn.First(&storedUser, "id = ?", user.ID).Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	if storedUser.VisitCount != 0 {
		t.Fatalf("visit count must not move on failure, got %d", storedUser.VisitCount)
	}

	var cartCount int64
	if err := conn.Model(&models.CartLine{}).Count(&cartCount).Error; err != nil {
		t.Fatalf("count cart: %v", err)
	}
	if cartCount != 2 {
		t.Fatalf("expected cart to survive, got %d lines", cartCount)
	}
}

func TestDeliveryCodeKeepsLeadingZeros(t *testing.T) {
	svc, conn := newTestService(t)
	svc.newDeliveryCode = func() string { return "000042" }
	ctx := context.Background()

	user := seedUser(t, conn, enums.DiscountClassIndividual, 0)
	product := seedProduct(t, conn, "1.00", 10)
	seedCartLine(t, conn, user.ID, product.ID, 1)

	placement, err := svc.Place(ctx, user.ID, true)
	if err != nil {
		t.Fatalf("place failed: %v", err)
	}
	order := placement.Order
	if order.DeliveryCode != "000042" {
		t.Fatalf("expected code to survive verbatim, got %q", order.DeliveryCode)
	}

	var stored models.Order
	if err := conn.First(&stored, "id = ?", order.ID).Error; err != nil {
		t.Fatalf("load order: %v", err)
	}
	if stored.DeliveryCode != "000042" {
		t.Fatalf("stored code lost its leading zeros: %q", stored.DeliveryCode)
	}
}

func TestGetAndListScopes(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	alice := seedUser(t, conn, enums.DiscountClassIndividual, 0)
	bob := seedUser(t, conn, enums.DiscountClassIndividual, 0)
	product := seedProduct(t, conn, "1.00", 10)

	seedCartLine(t, conn, alice.ID, product.ID, 1)
	placement, err := svc.Place(ctx, alice.ID, true)
	if err != nil {
		t.Fatalf("place failed: %v", err)
	}
	order := placement.Order

	if _, err := svc.Get(ctx, order.ID, alice.ID); err != nil {
		t.Fatalf("owner should see their order: %v", err)
	}
	_, err = svc.Get(ctx, order.ID, bob.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND for other users, got %v", err)
	}

	mine, err := svc.ListByUser(ctx, alice.ID)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(mine) != 1 {
		t.Fatalf("expected 1 order, got %d", len(mine))
	}

	pending, err := svc.ListPending(ctx)
	if err != nil {
		t.Fatalf("list pending failed: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending order, got %d", len(pending))
	}
}
