package persistence

import (
	"context"
	"strings"
	"time"

	"gift_market/internal/domain"
	"gift_market/internal/domain/entity"
	"gift_market/internal/domain/ledger"
	"gift_market/pkg/errcodes"
)

func errGiveawayNotFound() error {
	return domain.NewError(errcodes.GiveawayNotFound, "giveaway not found")
}

// CreateGiveaway сохраняет розыгрыш со списками в JSONB.
func (q *txQueries) CreateGiveaway(ctx context.Context, g *entity.Giveaway) error {
	lists := make([][]byte, 0, 5)
	for _, encode := range []func() ([]byte, error){
		func() ([]byte, error) { return jsonList(g.GiftIDs) },
		func() ([]byte, error) { return jsonList(g.Channels) },
		func() ([]byte, error) { return jsonList(g.ParticipantIDs) },
		func() ([]byte, error) { return jsonList(g.ReferrerIDs) },
		func() ([]byte, error) { return jsonList(g.WinnerIDs) },
	} {
		raw, err := encode()
		if err != nil {
			return domain.WrapError(err, errcodes.InternalServerError, "failed to marshal giveaway")
		}
		lists = append(lists, raw)
	}

	query := `
		INSERT INTO giveaways (
			creator_id, type, gifts_ids, channels_usernames, quantity_members,
			end_time, price, participants_ids, referrers_ids, winners_ids, is_completed
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at`

	err := q.tx.QueryRowxContext(ctx, query,
		g.CreatorID, string(g.Type), lists[0], lists[1], g.QuantityMembers,
		g.EndTime, g.Price, lists[2], lists[3], lists[4], g.IsCompleted,
	).Scan(&g.ID, &g.CreatedAt)
	if err != nil {
		return wrapDBError(err, "failed to insert giveaway")
	}

	return nil
}

func (q *txQueries) GetGiveaway(ctx context.Context, id int64) (entity.Giveaway, error) {
	query := `SELECT ` + giveawayColumns + ` FROM giveaways WHERE id = $1 FOR UPDATE`

	return q.getGiveaway(ctx, errGiveawayNotFound(), query, id)
}

func (q *txQueries) ListGiveaways(ctx context.Context, f ledger.GiveawayFilter) ([]entity.Giveaway, error) {
	var (
		conds = []string{"TRUE"}
		args  []any
	)

	if f.CreatorID != 0 {
		args = append(args, f.CreatorID)
		conds = append(conds, "creator_id = "+placeholder(len(args)))
	}
	if f.ParticipantID != 0 {
		args = append(args, f.ParticipantID)
		conds = append(conds, "participants_ids @> to_jsonb(ARRAY["+placeholder(len(args))+"::BIGINT])")
	}
	if f.OnlyActive {
		conds = append(conds, "NOT is_completed")
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	args = append(args, limit, max(f.Offset, 0))

	query := `
		SELECT ` + giveawayColumns + `
		FROM giveaways
		WHERE ` + strings.Join(conds, " AND ") + `
		ORDER BY end_time ASC, id ASC
		LIMIT ` + placeholder(len(args)-1) + ` OFFSET ` + placeholder(len(args))

	return q.selectGiveaways(ctx, query, args...)
}

func (q *txQueries) ListEndedGiveaways(ctx context.Context, now time.Time, limit int) ([]entity.Giveaway, error) {
	query := `
		SELECT ` + giveawayColumns + `
		FROM giveaways
		WHERE NOT is_completed AND end_time <= $1
		ORDER BY id ASC
		LIMIT $2
		FOR UPDATE SKIP LOCKED`

	return q.selectGiveaways(ctx, query, now, limit)
}

// AddParticipant дописывает участника и его реферера в параллельные списки.
func (q *txQueries) AddParticipant(
	ctx context.Context,
	id, userID, referrerID int64,
	now time.Time,
) (entity.Giveaway, error) {
	query := `
		UPDATE giveaways
		SET participants_ids = participants_ids || to_jsonb($2::BIGINT),
		    referrers_ids = referrers_ids || to_jsonb($3::BIGINT)
		WHERE id = $1
		  AND NOT is_completed AND end_time > $4
		  AND NOT participants_ids @> to_jsonb(ARRAY[$2::BIGINT])
		  AND (quantity_members = 0 OR jsonb_array_length(participants_ids) < quantity_members)
		RETURNING ` + giveawayColumns

	return q.getGiveaway(ctx, domain.NewError(errcodes.GiveawayClosed, "giveaway is closed"),
		query, id, userID, referrerID, now)
}

func (q *txQueries) CompleteGiveaway(ctx context.Context, id int64, winners []int64) (entity.Giveaway, error) {
	raw, err := jsonList(winners)
	if err != nil {
		return entity.Giveaway{}, domain.WrapError(err, errcodes.InternalServerError, "failed to marshal winners")
	}

	query := `
		UPDATE giveaways
		SET is_completed = TRUE, winners_ids = $2
		WHERE id = $1 AND NOT is_completed
		RETURNING ` + giveawayColumns

	return q.getGiveaway(ctx, errGiveawayNotFound(), query, id, raw)
}

func (q *txQueries) getGiveaway(ctx context.Context, notFound error, query string, args ...any) (entity.Giveaway, error) {
	var schema giveawaySchema
	if err := q.tx.GetContext(ctx, &schema, query, args...); err != nil {
		if isNoRows(err) {
			return entity.Giveaway{}, notFound
		}
		return entity.Giveaway{}, wrapDBError(err, "failed to query giveaway")
	}

	g, err := schema.toDomain()
	if err != nil {
		return entity.Giveaway{}, domain.WrapError(err, errcodes.InternalServerError, "failed to convert giveaway")
	}

	return g, nil
}

func (q *txQueries) selectGiveaways(ctx context.Context, query string, args ...any) ([]entity.Giveaway, error) {
	var schemas []giveawaySchema
	if err := q.tx.SelectContext(ctx, &schemas, query, args...); err != nil {
		return nil, domain.WrapError(err, errcodes.InternalServerError, "failed to select giveaways")
	}

	giveaways, err := giveawaysToDomain(schemas)
	if err != nil {
		return nil, domain.WrapError(err, errcodes.InternalServerError, "failed to convert giveaways")
	}

	return giveaways, nil
}
