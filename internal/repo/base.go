package repo

import (
	"context"

	"gorm.io/gorm"
)

// Base carries the gorm handle every domain repository builds on. WithTx
// constructors rebind it so a repository works the same inside and outside
// a transaction.
type Base struct {
	db *gorm.DB
}

// NewBase wraps a gorm connection or transaction.
func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the handle bound to the supplied context (if any).
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}
