package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/jmoiron/sqlx"
)

// Tx is a transaction carried on the context so nested repository calls share it
type Tx interface {
	IsOpen() bool
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	QueryRowxContext(ctx context.Context, query string, args ...any) *sqlx.Row
}

type txContextKey struct{}

// Transaction wraps sqlx.Tx. Only the owner, the call that began it, can end it.
type Transaction struct {
	*sqlx.Tx
	logger ectologger.Logger
	closed bool
	owner  bool
}

// GetTx joins the transaction already open on ctx or begins a new one and stores it on the returned context.
// Commit and Rollback on a joined transaction are no-ops so the outer caller decides the outcome.
func GetTx(ctx context.Context, logger ectologger.Logger, db DB, opts *sql.TxOptions) (context.Context, Tx, error) {
	if open, ok := ctx.Value(txContextKey{}).(*Transaction); ok && open.IsOpen() {
		return ctx, &Transaction{Tx: open.Tx, logger: logger}, nil
	}

	tx, err := db.BeginTxx(ctx, opts)
	if err != nil {
		logger.WithContext(ctx).WithError(err).Error("Failed to begin transaction")
		return ctx, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	owned := &Transaction{Tx: tx, logger: logger, owner: true}
	return context.WithValue(ctx, txContextKey{}, owned), owned, nil
}

func (t *Transaction) IsOpen() bool {
	return !t.closed
}

// Rollback aborts the transaction. Calling it after Commit is a no-op, so it is safe to defer.
func (t *Transaction) Rollback(ctx context.Context) error {
	if !t.owner || t.closed {
		return nil
	}
	t.closed = true

	if err := t.Tx.Rollback(); err != nil {
		t.logger.WithContext(ctx).WithError(err).Error("Failed to roll back transaction")
		return fmt.Errorf("failed to roll back transaction: %w", err)
	}
	return nil
}

func (t *Transaction) Commit(ctx context.Context) error {
	if !t.owner || t.closed {
		return nil
	}
	t.closed = true

	if err := t.Tx.Commit(); err != nil {
		t.logger.WithContext(ctx).WithError(err).Error("Failed to commit transaction")
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
