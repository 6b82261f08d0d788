package persistence

import (
	"context"
	"time"

	"gift_market/internal/domain"
	"gift_market/internal/domain/entity"
	"gift_market/pkg/errcodes"
)

func (q *txQueries) InsertBid(ctx context.Context, bid *entity.Bid) error {
	query := `INSERT INTO bids (gift_id, buyer_id, amount) VALUES ($1, $2, $3) RETURNING id, created_at`

	if err := q.tx.QueryRowxContext(ctx, query, bid.ListingID, bid.BuyerID, bid.Amount).
		Scan(&bid.ID, &bid.CreatedAt); err != nil {
		return wrapDBError(err, "failed to insert bid")
	}

	return nil
}

// ListBids возвращает ставки лота, последние первыми.
func (q *txQueries) ListBids(ctx context.Context, listingID int64) ([]entity.Bid, error) {
	bids := make([]entity.Bid, 0)
	query := `SELECT id, gift_id, buyer_id, amount, created_at FROM bids WHERE gift_id = $1 ORDER BY id DESC`

	if err := q.tx.SelectContext(ctx, &bids, query, listingID); err != nil {
		return nil, domain.WrapError(err, errcodes.InternalServerError, "failed to list bids")
	}

	return bids, nil
}

func (q *txQueries) CreateWithdrawRequest(ctx context.Context, req *entity.WithdrawRequest) error {
	query := `INSERT INTO withdraw_requests (user_id, amount, wallet) VALUES ($1, $2, $3) RETURNING id, created_at`

	if err := q.tx.QueryRowxContext(ctx, query, req.UserID, req.Amount, req.Wallet).
		Scan(&req.ID, &req.CreatedAt); err != nil {
		return wrapDBError(err, "failed to insert withdraw request")
	}

	return nil
}

func (q *txQueries) ListPendingWithdrawRequests(ctx context.Context, limit int) ([]entity.WithdrawRequest, error) {
	requests := make([]entity.WithdrawRequest, 0)
	query := `
		SELECT id, user_id, amount, wallet, is_completed, created_at, completed_at
		FROM withdraw_requests
		WHERE NOT is_completed
		ORDER BY id ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED`

	if err := q.tx.SelectContext(ctx, &requests, query, limit); err != nil {
		return nil, domain.WrapError(err, errcodes.InternalServerError, "failed to list withdraw requests")
	}

	return requests, nil
}

func (q *txQueries) CompleteWithdrawRequest(ctx context.Context, id int64, at time.Time) (entity.WithdrawRequest, error) {
	var req entity.WithdrawRequest
	query := `
		UPDATE withdraw_requests
		SET is_completed = TRUE, completed_at = $2
		WHERE id = $1 AND NOT is_completed
		RETURNING id, user_id, amount, wallet, is_completed, created_at, completed_at`

	if err := q.tx.GetContext(ctx, &req, query, id, at); err != nil {
		if isNoRows(err) {
			return entity.WithdrawRequest{}, domain.NewError(errcodes.WithdrawNotFound, "withdraw request not found")
		}
		return entity.WithdrawRequest{}, domain.WrapError(err, errcodes.InternalServerError, "failed to complete withdraw request")
	}

	return req, nil
}

func (q *txQueries) AppendHistory(ctx context.Context, r *entity.HistoryRecord) error {
	query := `
		INSERT INTO history (user_id, type, price, gift, model_name, listing_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	if err := q.tx.QueryRowxContext(ctx, query, r.UserID, string(r.Type), r.Price, r.Gift, r.ModelName, r.ListingID).
		Scan(&r.ID, &r.CreatedAt); err != nil {
		return wrapDBError(err, "failed to insert history")
	}

	return nil
}

const historyColumns = `id, user_id, type, price, gift, model_name, listing_id, created_at`

func (q *txQueries) ListHistory(ctx context.Context, userID int64, limit int) ([]entity.HistoryRecord, error) {
	query := `SELECT ` + historyColumns + ` FROM history WHERE user_id = $1 ORDER BY id DESC LIMIT $2`

	return q.selectHistory(ctx, query, userID, limit)
}

func (q *txQueries) ListActivity(ctx context.Context, limit int) ([]entity.HistoryRecord, error) {
	query := `
		SELECT ` + historyColumns + `
		FROM history
		WHERE type IN ('buy', 'bid', 'auction_won')
		ORDER BY id DESC
		LIMIT $1`

	return q.selectHistory(ctx, query, limit)
}

func (q *txQueries) selectHistory(ctx context.Context, query string, args ...any) ([]entity.HistoryRecord, error) {
	records := make([]entity.HistoryRecord, 0)
	if err := q.tx.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, domain.WrapError(err, errcodes.InternalServerError, "failed to list history")
	}

	return records, nil
}

// GetDepositCursor блокирует строку курсора до конца транзакции.
func (q *txQueries) GetDepositCursor(ctx context.Context) (int64, error) {
	var lt int64
	if err := q.tx.GetContext(ctx, &lt, `SELECT last_lt FROM deposit_cursor WHERE id = 1 FOR UPDATE`); err != nil {
		if isNoRows(err) {
			return 0, nil
		}
		return 0, domain.WrapError(err, errcodes.InternalServerError, "failed to get deposit cursor")
	}

	return lt, nil
}

func (q *txQueries) AdvanceDepositCursor(ctx context.Context, expected, next int64) error {
	query := `UPDATE deposit_cursor SET last_lt = $2, updated_at = NOW() WHERE id = 1 AND last_lt = $1`

	return q.execUpdate(ctx, domain.NewError(errcodes.StaleState, "deposit cursor moved"), query, expected, next)
}
