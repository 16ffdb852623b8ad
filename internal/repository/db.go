package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// fetchOne runs a single-row query. A missing row is (nil, nil).
func fetchOne[T any](ctx context.Context, q sqlx.QueryerContext, query string, args ...interface{}) (*T, error) {
	var out T
	if err := sqlx.GetContext(ctx, q, &out, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

// fetchAll runs a multi-row query. No rows is an empty, non-nil slice.
func fetchAll[T any](ctx context.Context, q sqlx.QueryerContext, query string, args ...interface{}) ([]T, error) {
	out := []T{}
	if err := sqlx.SelectContext(ctx, q, &out, query, args...); err != nil {
		return nil, err
	}
	return out, nil
}

// withTx runs fn inside a transaction. The transaction is rolled back when fn
// or the commit fails, and committed otherwise.
func withTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "commit tx")
	}
	return nil
}

// insert executes a single INSERT in its own transaction and returns the generated id.
func insert(ctx context.Context, db *sqlx.DB, query string, args ...interface{}) (int64, error) {
	var id int64
	err := withTx(ctx, db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	return id, err
}

// update executes a single UPDATE in its own transaction and returns the affected row count.
func update(ctx context.Context, db *sqlx.DB, query string, args ...interface{}) (int64, error) {
	var n int64
	err := withTx(ctx, db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	return n, err
}
