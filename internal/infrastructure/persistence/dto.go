package persistence

import (
	"database/sql"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"

	"gift_market/internal/domain/entity"
	"gift_market/internal/domain/value"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary //nolint:gochecknoglobals // skip

const listingColumns = `
	id, type, number, attributes, rarity, number_score, image_url,
	seller_id, buyer_id, price, listing_fee, held_amount, is_vip,
	min_step, auction_end_time, status, is_active, is_completed,
	delivery_pending, created_at, created_order_date, completed_order_date`

// listingSchema — внутренняя структура для маппинга строки gifts.
type listingSchema struct {
	ID                 int64               `db:"id"`
	Type               string              `db:"type"`
	Number             int                 `db:"number"`
	Attributes         []byte              `db:"attributes"`
	Rarity             string              `db:"rarity"`
	NumberScore        float64             `db:"number_score"`
	ImageURL           string              `db:"image_url"`
	SellerID           int64               `db:"seller_id"`
	BuyerID            sql.NullInt64       `db:"buyer_id"`
	Price              decimal.Decimal     `db:"price"`
	ListingFee         decimal.Decimal     `db:"listing_fee"`
	HeldAmount         decimal.Decimal     `db:"held_amount"`
	IsVIP              bool                `db:"is_vip"`
	MinStep            decimal.NullDecimal `db:"min_step"`
	AuctionEndTime     sql.NullTime        `db:"auction_end_time"`
	Status             string              `db:"status"`
	IsActive           bool                `db:"is_active"`
	IsCompleted        bool                `db:"is_completed"`
	DeliveryPending    bool                `db:"delivery_pending"`
	CreatedAt          time.Time           `db:"created_at"`
	CreatedOrderDate   sql.NullTime        `db:"created_order_date"`
	CompletedOrderDate sql.NullTime        `db:"completed_order_date"`
}

func (s *listingSchema) toDomain() (entity.Listing, error) {
	var attrs value.GiftAttributes
	if len(s.Attributes) > 0 {
		if err := json.Unmarshal(s.Attributes, &attrs); err != nil {
			return entity.Listing{}, err
		}
	}

	return entity.Listing{
		ID:                 s.ID,
		Type:               s.Type,
		Number:             s.Number,
		Attributes:         attrs,
		Rarity:             value.Rarity(s.Rarity),
		NumberScore:        s.NumberScore,
		ImageURL:           s.ImageURL,
		SellerID:           s.SellerID,
		BuyerID:            s.BuyerID.Int64,
		Price:              s.Price,
		ListingFee:         s.ListingFee,
		HeldAmount:         s.HeldAmount,
		IsVIP:              s.IsVIP,
		MinStep:            s.MinStep,
		AuctionEndTime:     timePtr(s.AuctionEndTime),
		Status:             value.OrderStatus(s.Status),
		IsActive:           s.IsActive,
		IsCompleted:        s.IsCompleted,
		DeliveryPending:    s.DeliveryPending,
		CreatedAt:          s.CreatedAt,
		CreatedOrderDate:   timePtr(s.CreatedOrderDate),
		CompletedOrderDate: timePtr(s.CompletedOrderDate),
	}, nil
}

func listingsToDomain(schemas []listingSchema) ([]entity.Listing, error) {
	result := make([]entity.Listing, 0, len(schemas))
	for i := range schemas {
		l, err := schemas[i].toDomain()
		if err != nil {
			return nil, err
		}
		result = append(result, l)
	}
	return result, nil
}

const giveawayColumns = `
	id, creator_id, type, gifts_ids, channels_usernames, quantity_members,
	end_time, price, participants_ids, referrers_ids, winners_ids,
	is_completed, created_at`

// giveawaySchema — строка giveaways; списки хранятся в JSONB.
type giveawaySchema struct {
	ID              int64           `db:"id"`
	CreatorID       int64           `db:"creator_id"`
	Type            string          `db:"type"`
	GiftIDs         []byte          `db:"gifts_ids"`
	Channels        []byte          `db:"channels_usernames"`
	QuantityMembers int             `db:"quantity_members"`
	EndTime         time.Time       `db:"end_time"`
	Price           decimal.Decimal `db:"price"`
	ParticipantIDs  []byte          `db:"participants_ids"`
	ReferrerIDs     []byte          `db:"referrers_ids"`
	WinnerIDs       []byte          `db:"winners_ids"`
	IsCompleted     bool            `db:"is_completed"`
	CreatedAt       time.Time       `db:"created_at"`
}

func (s *giveawaySchema) toDomain() (entity.Giveaway, error) {
	g := entity.Giveaway{
		ID:              s.ID,
		CreatorID:       s.CreatorID,
		Type:            value.GiveawayType(s.Type),
		QuantityMembers: s.QuantityMembers,
		EndTime:         s.EndTime,
		Price:           s.Price,
		IsCompleted:     s.IsCompleted,
		CreatedAt:       s.CreatedAt,
	}

	for raw, dest := range map[*[]byte]any{
		&s.GiftIDs:        &g.GiftIDs,
		&s.Channels:       &g.Channels,
		&s.ParticipantIDs: &g.ParticipantIDs,
		&s.ReferrerIDs:    &g.ReferrerIDs,
		&s.WinnerIDs:      &g.WinnerIDs,
	} {
		if len(*raw) == 0 {
			continue
		}
		if err := json.Unmarshal(*raw, dest); err != nil {
			return entity.Giveaway{}, err
		}
	}

	return g, nil
}

func giveawaysToDomain(schemas []giveawaySchema) ([]entity.Giveaway, error) {
	result := make([]entity.Giveaway, 0, len(schemas))
	for i := range schemas {
		g, err := schemas[i].toDomain()
		if err != nil {
			return nil, err
		}
		result = append(result, g)
	}
	return result, nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func nullBuyer(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// jsonList кодирует список для JSONB; nil сохраняется как [].
func jsonList[T any](items []T) ([]byte, error) {
	if items == nil {
		items = []T{}
	}
	return json.Marshal(items)
}

func placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}
