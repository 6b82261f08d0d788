package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"gift_market/internal/domain/value"
)

// Listing — ордер на продажу или аукцион конкретного экземпляра подарка.
// BuyerID == 0 означает отсутствие покупателя.
type Listing struct {
	ID          int64                `json:"id"`
	Type        string               `json:"type"`
	Number      int                  `json:"number"`
	Attributes  value.GiftAttributes `json:"attributes"`
	Rarity      value.Rarity         `json:"rarity"`
	NumberScore float64              `json:"number_score"`
	ImageURL    string               `json:"image_url"`

	SellerID   int64           `json:"seller_id"`
	BuyerID    int64           `json:"buyer_id,omitempty"`
	Price      decimal.Decimal `json:"price"`
	ListingFee decimal.Decimal `json:"listing_fee"`
	HeldAmount decimal.Decimal `json:"held_amount"`
	IsVIP      bool            `json:"is_vip"`

	MinStep        decimal.NullDecimal `json:"min_step"`
	AuctionEndTime *time.Time          `json:"auction_end_time,omitempty"`

	Status      value.OrderStatus `json:"status"`
	IsActive    bool              `json:"is_active"`
	IsCompleted bool              `json:"is_completed"`

	// DeliveryPending — подарок ждёт постановки задачи на передачу BuyerID.
	DeliveryPending bool `json:"delivery_pending"`

	CreatedAt          time.Time  `json:"created_at"`
	CreatedOrderDate   *time.Time `json:"created_order_date,omitempty"`
	CompletedOrderDate *time.Time `json:"completed_order_date,omitempty"`
}

func (l Listing) IsAuction() bool {
	return l.MinStep.Valid
}

func (l Listing) HasBuyer() bool {
	return l.BuyerID != 0
}

// IsParty сообщает, является ли пользователь продавцом или покупателем.
func (l Listing) IsParty(userID int64) bool {
	return userID == l.SellerID || (l.HasBuyer() && userID == l.BuyerID)
}

// AuctionEnded сообщает, что время аукциона вышло.
func (l Listing) AuctionEnded(now time.Time) bool {
	return l.AuctionEndTime != nil && !now.Before(*l.AuctionEndTime)
}

// SLAExpired сообщает, что продавец не передал подарок в отведённое окно.
func (l Listing) SLAExpired(now time.Time, sla time.Duration) bool {
	return l.Status == value.StatusSellerAccept &&
		l.CreatedOrderDate != nil &&
		now.Sub(*l.CreatedOrderDate) > sla
}

// GiftRef — публичная ссылка на экземпляр подарка (slug-номер).
func (l Listing) GiftRef() string {
	return fmt.Sprintf("%s-%d", l.Type, l.Number)
}
