package persistence

import (
	"context"

	"github.com/shopspring/decimal"

	"gift_market/internal/domain"
	"gift_market/internal/domain/entity"
	"gift_market/pkg/errcodes"
)

const userColumns = `id, username, first_name, balance, commission, deposit_comment, is_banned, created_at`

// CreateUser сохраняет нового пользователя.
func (q *txQueries) CreateUser(ctx context.Context, user *entity.User) error {
	query := `
		INSERT INTO users (id, username, first_name, balance, commission, deposit_comment, is_banned)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`

	err := q.tx.QueryRowxContext(ctx, query,
		user.ID, user.Username, user.FirstName, user.Balance, user.Commission, user.DepositComment, user.IsBanned,
	).Scan(&user.CreatedAt)
	if err != nil {
		return wrapDBError(err, "failed to insert user")
	}

	return nil
}

// GetUser возвращает пользователя по telegram id.
func (q *txQueries) GetUser(ctx context.Context, id int64) (entity.User, error) {
	var user entity.User
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	if err := q.tx.GetContext(ctx, &user, query, id); err != nil {
		if isNoRows(err) {
			return entity.User{}, errUserNotFound()
		}
		return entity.User{}, domain.WrapError(err, errcodes.InternalServerError, "failed to get user")
	}

	return user, nil
}

// GetUserByDepositComment находит владельца депозитного комментария.
func (q *txQueries) GetUserByDepositComment(ctx context.Context, comment string) (entity.User, error) {
	var user entity.User
	query := `SELECT ` + userColumns + ` FROM users WHERE deposit_comment = $1`

	if err := q.tx.GetContext(ctx, &user, query, comment); err != nil {
		if isNoRows(err) {
			return entity.User{}, errUserNotFound()
		}
		return entity.User{}, domain.WrapError(err, errcodes.InternalServerError, "failed to get user")
	}

	return user, nil
}

func (q *txQueries) UpdateUserNames(ctx context.Context, id int64, username, firstName string) error {
	query := `UPDATE users SET username = $1, first_name = $2 WHERE id = $3`

	return q.execUpdate(ctx, errUserNotFound(), query, username, firstName, id)
}

func (q *txQueries) SetUserBanned(ctx context.Context, id int64, banned bool) error {
	query := `UPDATE users SET is_banned = $1 WHERE id = $2`

	return q.execUpdate(ctx, errUserNotFound(), query, banned, id)
}

// AddBalance — относительное изменение баланса, без чтения-записи.
func (q *txQueries) AddBalance(ctx context.Context, id int64, delta decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	query := `UPDATE users SET balance = balance + $1 WHERE id = $2 RETURNING balance`

	if err := q.tx.GetContext(ctx, &balance, query, delta, id); err != nil {
		if isNoRows(err) {
			return decimal.Zero, errUserNotFound()
		}
		return decimal.Zero, domain.WrapError(err, errcodes.InternalServerError, "failed to add balance")
	}

	return balance, nil
}

// DebitBalance списывает средства, только если их хватает.
func (q *txQueries) DebitBalance(ctx context.Context, id int64, amount decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	query := `UPDATE users SET balance = balance - $1 WHERE id = $2 AND balance >= $1 RETURNING balance`

	if err := q.tx.GetContext(ctx, &balance, query, amount, id); err != nil {
		if isNoRows(err) {
			return decimal.Zero, domain.NewError(errcodes.NotEnoughBalance, "not enough balance")
		}
		return decimal.Zero, domain.WrapError(err, errcodes.InternalServerError, "failed to debit balance")
	}

	return balance, nil
}

func (q *txQueries) AddCommission(ctx context.Context, id int64, delta decimal.Decimal) error {
	query := `UPDATE users SET commission = commission + $1 WHERE id = $2`

	return q.execUpdate(ctx, errUserNotFound(), query, delta, id)
}

func (q *txQueries) AddReferral(ctx context.Context, referrerID, userID int64) error {
	query := `INSERT INTO referrals (user_id, referrer_id) VALUES ($1, $2)`

	if _, err := q.tx.ExecContext(ctx, query, userID, referrerID); err != nil {
		return wrapDBError(err, "failed to add referral")
	}

	return nil
}

func (q *txQueries) GetReferrer(ctx context.Context, userID int64) (int64, error) {
	var referrerID int64
	query := `SELECT referrer_id FROM referrals WHERE user_id = $1`

	if err := q.tx.GetContext(ctx, &referrerID, query, userID); err != nil {
		if isNoRows(err) {
			return 0, nil
		}
		return 0, domain.WrapError(err, errcodes.InternalServerError, "failed to get referrer")
	}

	return referrerID, nil
}

func (q *txQueries) CountReferrals(ctx context.Context, referrerID int64) (int, error) {
	var n int
	query := `SELECT COUNT(*) FROM referrals WHERE referrer_id = $1`

	if err := q.tx.GetContext(ctx, &n, query, referrerID); err != nil {
		return 0, domain.WrapError(err, errcodes.InternalServerError, "failed to count referrals")
	}

	return n, nil
}

// ListUserIDs постранично отдаёт получателей рассылки.
func (q *txQueries) ListUserIDs(ctx context.Context, afterID int64, limit int) ([]int64, error) {
	var ids []int64
	query := `SELECT id FROM users WHERE id > $1 AND NOT is_banned ORDER BY id LIMIT $2`

	if err := q.tx.SelectContext(ctx, &ids, query, afterID, limit); err != nil {
		return nil, domain.WrapError(err, errcodes.InternalServerError, "failed to list users")
	}

	return ids, nil
}
