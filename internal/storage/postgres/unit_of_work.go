package postgres

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gravadigital/eventsoft-api/internal/logger"
)

type txKey struct{}

// UnitOfWork runs callbacks inside one gorm transaction carried in the context
type UnitOfWork struct {
	db  *gorm.DB
	log *log.Logger
}

func NewUnitOfWork(db *gorm.DB) *UnitOfWork {
	return &UnitOfWork{db: db, log: logger.Repository("unit_of_work")}
}

// WithTx joins the transaction already in ctx or opens a new one.
// The transaction rolls back when fn returns an error.
func (u *UnitOfWork) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}

	err := u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
	if err != nil {
		u.log.Debug("Transaction rolled back", "error", err)
		return fmt.Errorf("UnitOfWork.WithTx -> %w", err)
	}
	return nil
}

// dbFromContext returns the transaction in ctx, or db bound to ctx
func dbFromContext(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return db.WithContext(ctx)
}

// forUpdate adds a row lock on drivers that support SELECT ... FOR UPDATE
func forUpdate(db *gorm.DB) *gorm.DB {
	if db.Dialector.Name() == "postgres" {
		return db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return db
}
