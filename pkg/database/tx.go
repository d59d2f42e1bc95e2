package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// TxFunc функция, выполняемая в транзакции
type TxFunc func(tx pgx.Tx) error

// WithTransaction выполняет функцию в транзакции.
// При ошибке или панике транзакция откатывается
func WithTransaction(ctx context.Context, db DB, fn TxFunc) error {
	_, err := WithTransactionResult(ctx, db, func(tx pgx.Tx) (struct{}, error) {
		return struct{}{}, fn(tx)
	})
	return err
}

// WithTransactionResult выполняет функцию в транзакции с возвратом результата
func WithTransactionResult[T any](ctx context.Context, db DB, fn func(tx pgx.Tx) (T, error)) (T, error) {
	var zero T

	tx, err := db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return zero, fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx) //nolint:errcheck // best effort on panic
			panic(p)
		}
	}()

	result, err := fn(tx)
	if err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return zero, fmt.Errorf("tx error: %v, rollback error: %w", err, rbErr)
		}
		return zero, err
	}

	if err := tx.Commit(ctx); err != nil {
		return zero, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return result, nil
}
