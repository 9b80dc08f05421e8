package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func TestFindByIDForUpdateLoadsInsideTransaction(t *testing.T) {
	conn := newTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	product := mustCreateTestProduct(t, conn, "Bleach", "2.500", 8)

	err := conn.Transaction(func(tx *gorm.DB) error {
		locked, err := repo.WithTx(tx).FindByIDForUpdate(ctx, product.ID)
		if err != nil {
			return err
		}
		if locked.OnHand != 8 {
			t.Fatalf("expected on_hand 8, got %d", locked.OnHand)
		}

		if _, err := repo.WithTx(tx).FindByIDForUpdate(ctx, uuid.New()); !errors.Is(err, gorm.ErrRecordNotFound) {
			t.Fatalf("expected ErrRecordNotFound for a missing row, got %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("transaction failed: %v", err)
	}
}
