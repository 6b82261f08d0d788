package persistence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"gift_market/internal/domain"
	"gift_market/internal/domain/entity"
	"gift_market/internal/domain/ledger"
	"gift_market/internal/domain/value"
	"gift_market/pkg/errcodes"
)

// liveAuction — аукцион, который ещё принимает ставки.
const liveAuction = `min_step IS NOT NULL AND is_active AND NOT is_completed`

// CreateListing сохраняет новый ордер. Второй живой ордер на тот же
// экземпляр отсекается частичным уникальным индексом.
func (q *txQueries) CreateListing(ctx context.Context, l *entity.Listing) error {
	attrs, err := json.Marshal(l.Attributes)
	if err != nil {
		return domain.WrapError(err, errcodes.InternalServerError, "failed to marshal attributes")
	}

	query := `
		INSERT INTO gifts (
			type, number, attributes, model_name, rarity, number_score, image_url,
			seller_id, buyer_id, price, listing_fee, held_amount, is_vip,
			min_step, auction_end_time, status, is_active, is_completed, delivery_pending
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11, $12, $13,
			$14, $15, $16, $17, $18, $19
		)
		RETURNING id, created_at`

	err = q.tx.QueryRowxContext(ctx, query,
		l.Type, l.Number, attrs, l.Attributes.ModelName, string(l.Rarity), l.NumberScore, l.ImageURL,
		l.SellerID, nullBuyer(l.BuyerID), l.Price, l.ListingFee, l.HeldAmount, l.IsVIP,
		l.MinStep, nullTime(l.AuctionEndTime), string(l.Status), l.IsActive, l.IsCompleted, l.DeliveryPending,
	).Scan(&l.ID, &l.CreatedAt)
	if err != nil {
		return wrapDBError(err, "failed to insert order")
	}

	return nil
}

// GetListing возвращает ордер по идентификатору.
func (q *txQueries) GetListing(ctx context.Context, id int64) (entity.Listing, error) {
	return q.getListing(ctx, errOrderNotFound(), `SELECT `+listingColumns+` FROM gifts WHERE id = $1`, id)
}

// ListListings — витрина: VIP-ордера первыми, затем выбранная сортировка.
func (q *txQueries) ListListings(ctx context.Context, f value.ListingFilter) ([]entity.Listing, error) {
	f = f.Normalize()

	var (
		conds []string
		args  []any
	)

	add := func(cond string, arg ...any) {
		conds = append(conds, cond)
		args = append(args, arg...)
	}

	if !f.IncludeInactive {
		add("is_active AND NOT is_completed AND status = ?", string(value.StatusOnMarket))
	}
	if f.PriceFrom.Valid {
		add("price >= ?", f.PriceFrom.Decimal)
	}
	if f.PriceTo.Valid {
		add("price <= ?", f.PriceTo.Decimal)
	}
	if len(f.Rarities) > 0 {
		add("rarity IN (?)", lo.Map(f.Rarities, func(r value.Rarity, _ int) string { return string(r) }))
	}
	if len(f.Types) > 0 {
		add("type IN (?)", f.Types)
	}
	if f.ModelName != "" {
		add("LOWER(model_name) = LOWER(?)", f.ModelName)
	}
	if f.NumberFrom > 0 {
		add("number >= ?", f.NumberFrom)
	}
	if f.NumberTo > 0 {
		add("number <= ?", f.NumberTo)
	}
	if f.SellerID != 0 {
		add("seller_id = ?", f.SellerID)
	}
	if f.AuctionOnly {
		add("min_step IS NOT NULL")
	}

	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}

	query := fmt.Sprintf(
		`SELECT %s FROM gifts %s ORDER BY is_vip DESC, %s LIMIT ? OFFSET ?`,
		listingColumns, where, orderBy(f.Sort),
	)
	args = append(args, f.Limit, f.Offset)

	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return nil, domain.WrapError(err, errcodes.InternalServerError, "failed to build query")
	}

	var schemas []listingSchema
	if err := q.tx.SelectContext(ctx, &schemas, q.tx.Rebind(query), args...); err != nil {
		return nil, domain.WrapError(err, errcodes.InternalServerError, "failed to list orders")
	}

	return q.convert(listingsToDomain(schemas))
}

func orderBy(sort value.ListingSort) string {
	switch sort {
	case value.SortOldest:
		return "created_at ASC, id ASC"
	case value.SortPriceAsc:
		return "price ASC, id DESC"
	case value.SortPriceDesc:
		return "price DESC, id DESC"
	case value.SortNumberScore:
		return "number_score DESC, id DESC"
	default:
		return "created_at DESC, id DESC"
	}
}

func (q *txQueries) ClaimListing(ctx context.Context, id, buyerID int64, buyerFee decimal.Decimal) (entity.Listing, error) {
	query := `
		UPDATE gifts
		SET status = 'buy', buyer_id = $2, held_amount = price + $3
		WHERE id = $1
		  AND status = 'on_market' AND buyer_id IS NULL
		  AND is_active AND NOT is_completed AND min_step IS NULL
		RETURNING ` + listingColumns

	return q.getListing(ctx, errOrderNotFound(), query, id, buyerID, buyerFee)
}

func (q *txQueries) AcceptOrder(ctx context.Context, id, sellerID int64, at time.Time) (entity.Listing, error) {
	query := `
		UPDATE gifts
		SET status = 'seller_accept', created_order_date = $3
		WHERE id = $1 AND seller_id = $2 AND status = 'buy' AND NOT is_completed
		RETURNING ` + listingColumns

	return q.getListing(ctx, errOrderNotFound(), query, id, sellerID, at)
}

func (q *txQueries) ConfirmTransfer(ctx context.Context, id, sellerID int64) (entity.Listing, error) {
	query := `
		UPDATE gifts
		SET status = 'gift_transferred'
		WHERE id = $1 AND seller_id = $2 AND status = 'seller_accept' AND NOT is_completed
		RETURNING ` + listingColumns

	return q.getListing(ctx, errOrderNotFound(), query, id, sellerID)
}

func (q *txQueries) ReceiveOrder(ctx context.Context, id, buyerID int64, at time.Time) (entity.Listing, error) {
	query := `
		UPDATE gifts
		SET status = 'gift_received', is_completed = TRUE, is_active = FALSE, completed_order_date = $3
		WHERE id = $1 AND buyer_id = $2 AND status = 'gift_transferred' AND NOT is_completed
		RETURNING ` + listingColumns

	return q.getListing(ctx, errOrderNotFound(), query, id, buyerID, at)
}

func (q *txQueries) ReopenOrder(
	ctx context.Context,
	id int64,
	from value.OrderStatus,
	buyerID int64,
) (entity.Listing, error) {
	query := `
		UPDATE gifts
		SET status = 'on_market', buyer_id = NULL, held_amount = 0, created_order_date = NULL
		WHERE id = $1 AND status = $2 AND buyer_id = $3 AND NOT is_completed
		RETURNING ` + listingColumns

	return q.getListing(ctx, errOrderNotFound(), query, id, string(from), buyerID)
}

func (q *txQueries) UpdateListingPrice(
	ctx context.Context,
	id, sellerID int64,
	price decimal.Decimal,
) (entity.Listing, error) {
	query := `
		UPDATE gifts
		SET price = $3
		WHERE id = $1 AND seller_id = $2
		  AND status = 'on_market' AND buyer_id IS NULL
		  AND NOT is_completed AND min_step IS NULL
		RETURNING ` + listingColumns

	return q.getListing(ctx, errOrderNotFound(), query, id, sellerID, price)
}

// SetListingActive снимает ордер с витрины или возвращает его. Возврат
// сбрасывает параметры аукциона: повторно выставленный лот — обычная продажа.
func (q *txQueries) SetListingActive(ctx context.Context, id, sellerID int64, active bool) (entity.Listing, error) {
	query := `
		UPDATE gifts
		SET is_active = $3,
		    min_step = CASE WHEN $3 THEN NULL ELSE min_step END,
		    auction_end_time = CASE WHEN $3 THEN NULL ELSE auction_end_time END
		WHERE id = $1 AND seller_id = $2
		  AND status = 'on_market' AND buyer_id IS NULL
		  AND NOT is_completed AND is_active <> $3
		RETURNING ` + listingColumns

	return q.getListing(ctx, errOrderNotFound(), query, id, sellerID, active)
}

func (q *txQueries) DeleteListing(ctx context.Context, id, sellerID int64) (entity.Listing, error) {
	query := `
		DELETE FROM gifts
		WHERE id = $1 AND seller_id = $2
		  AND status = 'on_market' AND buyer_id IS NULL AND NOT is_completed
		RETURNING ` + listingColumns

	return q.getListing(ctx, errOrderNotFound(), query, id, sellerID)
}

// PlaceBid — compare-and-swap по наблюдаемым цене и лидеру.
func (q *txQueries) PlaceBid(
	ctx context.Context,
	id int64,
	prev ledger.BidState,
	bidderID int64,
	amount decimal.Decimal,
	now time.Time,
) (entity.Listing, error) {
	query := `
		UPDATE gifts
		SET price = $2, buyer_id = $3
		WHERE id = $1 AND ` + liveAuction + ` AND auction_end_time > $4
		  AND price = $5 AND buyer_id IS NOT DISTINCT FROM $6
		RETURNING ` + listingColumns

	l, err := q.getListing(ctx, nil, query, id, amount, bidderID, now, prev.Price, nullBuyer(prev.BuyerID))
	if err == nil {
		return l, nil
	}
	if !isNoRows(err) {
		return entity.Listing{}, err
	}

	var live bool
	check := `SELECT EXISTS(SELECT 1 FROM gifts WHERE id = $1 AND ` + liveAuction + ` AND auction_end_time > $2)`
	if err := q.tx.GetContext(ctx, &live, check, id, now); err != nil {
		return entity.Listing{}, domain.WrapError(err, errcodes.InternalServerError, "failed to check auction")
	}
	if live {
		return entity.Listing{}, domain.NewError(errcodes.StaleState, "bid is outdated")
	}

	return entity.Listing{}, errOrderNotFound()
}

func (q *txQueries) ListEndedAuctions(ctx context.Context, now time.Time, limit int) ([]entity.Listing, error) {
	query := `
		SELECT ` + listingColumns + `
		FROM gifts
		WHERE ` + liveAuction + ` AND auction_end_time <= $1
		ORDER BY auction_end_time ASC, id ASC
		LIMIT $2
		FOR UPDATE SKIP LOCKED`

	return q.selectListings(ctx, query, now, limit)
}

func (q *txQueries) CompleteAuction(ctx context.Context, id, buyerID int64, at time.Time) (entity.Listing, error) {
	query := `
		UPDATE gifts
		SET status = 'gift_received', is_completed = TRUE, is_active = FALSE,
		    completed_order_date = $3, delivery_pending = TRUE
		WHERE id = $1 AND buyer_id = $2 AND ` + liveAuction + ` AND auction_end_time <= $3
		RETURNING ` + listingColumns

	return q.getListing(ctx, errOrderNotFound(), query, id, buyerID, at)
}

func (q *txQueries) WithdrawAuction(ctx context.Context, id int64) (entity.Listing, error) {
	query := `
		UPDATE gifts
		SET is_active = FALSE
		WHERE id = $1 AND buyer_id IS NULL AND ` + liveAuction + `
		RETURNING ` + listingColumns

	return q.getListing(ctx, errOrderNotFound(), query, id)
}

// ReserveListings — занимает снятые с витрины подарки владельца под розыгрыш.
func (q *txQueries) ReserveListings(ctx context.Context, ownerID int64, ids []int64) ([]entity.Listing, error) {
	if len(ids) == 0 {
		return []entity.Listing{}, nil
	}

	query, args, err := sqlx.In(`
		UPDATE gifts
		SET is_completed = TRUE
		WHERE id IN (?) AND seller_id = ?
		  AND NOT is_active AND NOT is_completed AND buyer_id IS NULL
		RETURNING `+listingColumns, ids, ownerID)
	if err != nil {
		return nil, domain.WrapError(err, errcodes.InternalServerError, "failed to build query")
	}

	return q.selectListings(ctx, q.tx.Rebind(query), args...)
}

func (q *txQueries) ReleaseListings(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	query, args, err := sqlx.In(`
		UPDATE gifts
		SET is_completed = FALSE
		WHERE id IN (?) AND is_completed AND buyer_id IS NULL`, ids)
	if err != nil {
		return domain.WrapError(err, errcodes.InternalServerError, "failed to build query")
	}

	if _, err := q.tx.ExecContext(ctx, q.tx.Rebind(query), args...); err != nil {
		return domain.WrapError(err, errcodes.InternalServerError, "failed to release gifts")
	}

	return nil
}

func (q *txQueries) AssignPrize(ctx context.Context, id, winnerID int64) (entity.Listing, error) {
	query := `
		UPDATE gifts
		SET buyer_id = $2, status = 'gift_received', completed_order_date = NOW(), delivery_pending = TRUE
		WHERE id = $1 AND is_completed AND NOT is_active AND buyer_id IS NULL
		RETURNING ` + listingColumns

	return q.getListing(ctx, errOrderNotFound(), query, id, winnerID)
}

func (q *txQueries) ListPendingDeliveries(ctx context.Context, limit int) ([]entity.Listing, error) {
	query := `
		SELECT ` + listingColumns + `
		FROM gifts
		WHERE delivery_pending
		ORDER BY id ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED`

	return q.selectListings(ctx, query, limit)
}

func (q *txQueries) MarkDeliveryQueued(ctx context.Context, id int64) error {
	query := `UPDATE gifts SET delivery_pending = FALSE WHERE id = $1`

	return q.execUpdate(ctx, errOrderNotFound(), query, id)
}

// getListing читает одну строку gifts. Если notFound == nil, sql.ErrNoRows
// возвращается как есть.
func (q *txQueries) getListing(ctx context.Context, notFound error, query string, args ...any) (entity.Listing, error) {
	var schema listingSchema
	if err := q.tx.GetContext(ctx, &schema, query, args...); err != nil {
		if isNoRows(err) {
			if notFound == nil {
				return entity.Listing{}, err
			}
			return entity.Listing{}, notFound
		}
		return entity.Listing{}, wrapDBError(err, "failed to query order")
	}

	l, err := schema.toDomain()
	if err != nil {
		return entity.Listing{}, domain.WrapError(err, errcodes.InternalServerError, "failed to convert order")
	}

	return l, nil
}

func (q *txQueries) selectListings(ctx context.Context, query string, args ...any) ([]entity.Listing, error) {
	var schemas []listingSchema
	if err := q.tx.SelectContext(ctx, &schemas, query, args...); err != nil {
		return nil, domain.WrapError(err, errcodes.InternalServerError, "failed to select orders")
	}

	return q.convert(listingsToDomain(schemas))
}

func (q *txQueries) convert(listings []entity.Listing, err error) ([]entity.Listing, error) {
	if err != nil {
		return nil, domain.WrapError(err, errcodes.InternalServerError, "failed to convert orders")
	}
	return listings, nil
}
