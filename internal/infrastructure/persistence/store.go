// Package persistence реализует ledger.Store поверх PostgreSQL.
package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"gift_market/internal/domain"
	"gift_market/internal/domain/ledger"
	"gift_market/pkg/errcodes"
)

const pgUniqueViolation = "23505"

var _ ledger.Store = (*Store)(nil)

type Store struct {
	db *sqlx.DB
}

// NewStore создаёт хранилище поверх пула соединений.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// WithinTx выполняет функцию в транзакции.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx ledger.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.WrapError(err, errcodes.LedgerUnavailable, "failed to begin transaction")
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, &txQueries{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return domain.WrapError(
				fmt.Errorf("%w; rollback: %v", err, rbErr),
				errcodes.LedgerUnavailable,
				"transaction failed",
			)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return domain.WrapError(err, errcodes.LedgerUnavailable, "failed to commit")
	}

	return nil
}

// Ping проверяет доступность базы для readiness-пробы.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type txQueries struct {
	tx *sqlx.Tx
}

// execUpdate выполняет условное обновление; ноль затронутых строк — notFound.
func (q *txQueries) execUpdate(ctx context.Context, notFound error, query string, args ...any) error {
	res, err := q.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return wrapDBError(err, "failed to execute update")
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return domain.WrapError(err, errcodes.InternalServerError, "failed to check affected rows")
	}

	if rows == 0 {
		return notFound
	}

	return nil
}

func wrapDBError(err error, msg string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return domain.WrapError(err, errcodes.AlreadyExist, "already exists")
	}
	return domain.WrapError(err, errcodes.InternalServerError, msg)
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func errOrderNotFound() error {
	return domain.NewError(errcodes.OrderNotFound, "order not found")
}

func errUserNotFound() error {
	return domain.NewError(errcodes.UserNotFound, "user not found")
}
