// Данный файл должен быть сгенерирован из openapi спецификации и называться types.gen.go
package rest

import (
	"time"

	"github.com/shopspring/decimal"
)

// Error Модель ошибок
type Error struct {
	// Code Код ошибки
	Code ErrorCode `json:"code"`

	// Message Сообщение об ошибке (для отображения в UI в будущем)
	Message string `json:"message"`

	// SupportID Идентификатор запроса для обращения в поддержку
	SupportID string `json:"supportId"`
}

// ErrorCode Код ошибки
type ErrorCode string

// Attributes Трейты экземпляра подарка, проценты редкости
type Attributes struct {
	ModelName      string  `json:"model_name,omitempty"`
	PatternName    string  `json:"pattern_name,omitempty"`
	BackgroundName string  `json:"background_name,omitempty"`
	Model          float64 `json:"model" validate:"gt=0,lte=100"`
	Pattern        float64 `json:"pattern" validate:"gt=0,lte=100"`
	Background     float64 `json:"background" validate:"gt=0,lte=100"`
}

// Listing Ордер витрины
type Listing struct {
	ID             int64            `json:"id"`
	Type           string           `json:"type"`
	Number         int              `json:"number"`
	Attributes     Attributes       `json:"attributes"`
	Rarity         string           `json:"rarity"`
	NumberScore    float64          `json:"number_score"`
	ImageURL       string           `json:"image_url"`
	SellerID       int64            `json:"seller_id"`
	BuyerID        *int64           `json:"buyer_id,omitempty"`
	Price          decimal.Decimal  `json:"price"`
	HeldAmount     *decimal.Decimal `json:"held_amount,omitempty"`
	IsVIP          bool             `json:"is_vip"`
	MinStep        *decimal.Decimal `json:"min_step,omitempty"`
	AuctionEndTime *time.Time       `json:"auction_end_time,omitempty"`
	Status         string           `json:"status"`
	IsActive       bool             `json:"is_active"`
	IsCompleted    bool             `json:"is_completed"`
	CreatedAt      time.Time        `json:"created_at"`
	OrderCreatedAt *time.Time       `json:"created_order_date,omitempty"`
}

// CreateListingRequest Выставление подарка; min_step и auction_end_time задаются вместе
type CreateListingRequest struct {
	Type           string           `json:"type" validate:"required"`
	Number         int              `json:"number" validate:"gt=0"`
	Attributes     Attributes       `json:"attributes"`
	ImageURL       string           `json:"image_url" validate:"required,url"`
	Price          decimal.Decimal  `json:"price"`
	IsVIP          bool             `json:"is_vip"`
	MinStep        *decimal.Decimal `json:"min_step,omitempty"`
	AuctionEndTime *time.Time       `json:"auction_end_time,omitempty"`
}

type PriceRequest struct {
	Price decimal.Decimal `json:"price"`
}

type ActiveRequest struct {
	IsActive bool `json:"is_active"`
}

// CartItem Ордер корзины с ценой, которую видел покупатель
type CartItem struct {
	ID    int64           `json:"id" validate:"gt=0"`
	Price decimal.Decimal `json:"price"`
}

type CartBuyRequest struct {
	Items []CartItem `json:"items" validate:"required,min=1,max=20,dive"`
}

// CartBuyResponse При success=false ничего не куплено, cart — актуальные доступные ордера
type CartBuyResponse struct {
	Success bool      `json:"success"`
	Cart    []Listing `json:"cart"`
}

type BidRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type Bid struct {
	ID        int64           `json:"id"`
	ListingID int64           `json:"gift_id"`
	BuyerID   int64           `json:"buyer_id"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}

// Giveaway Розыгрыш; chances — шанс на победу каждого участника в процентах
type Giveaway struct {
	ID              int64             `json:"id"`
	CreatorID       int64             `json:"creator_id"`
	Type            string            `json:"type"`
	GiftIDs         []int64           `json:"gifts_ids"`
	Channels        []string          `json:"channels_usernames"`
	QuantityMembers int               `json:"quantity_members"`
	EndTime         time.Time         `json:"end_time"`
	Price           decimal.Decimal   `json:"price"`
	Participants    int               `json:"participants"`
	WinnerIDs       []int64           `json:"winners_ids"`
	IsCompleted     bool              `json:"is_completed"`
	Chances         map[int64]float64 `json:"chances"`
	CreatedAt       time.Time         `json:"created_at"`
}

type CreateGiveawayRequest struct {
	Type            string          `json:"type" validate:"oneof=free paid"`
	GiftIDs         []int64         `json:"gifts_ids" validate:"required,min=1,dive,gt=0"`
	Channels        []string        `json:"channels_usernames"`
	QuantityMembers int             `json:"quantity_members" validate:"gte=0"`
	EndTime         time.Time       `json:"end_time" validate:"required"`
	Price           decimal.Decimal `json:"price"`
}

type JoinGiveawayRequest struct {
	// ReferrerID Участник, пригласивший в розыгрыш, 0 — никто
	ReferrerID int64 `json:"referrer_id" validate:"gte=0"`
}

// LoginRequest Сырые initData из Telegram.WebApp
type LoginRequest struct {
	InitData string `json:"init_data" validate:"required"`
}

type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	Profile     Profile   `json:"profile"`
}

type User struct {
	ID             int64           `json:"id"`
	Username       string          `json:"username"`
	FirstName      string          `json:"first_name"`
	Balance        decimal.Decimal `json:"balance"`
	Commission     decimal.Decimal `json:"commission"`
	DepositComment string          `json:"deposit_comment"`
	CreatedAt      time.Time       `json:"created_at"`
}

type Profile struct {
	User
	ReferralLink   string `json:"referral_link"`
	CountReferrals int    `json:"count_referrals"`
}

type HistoryRecord struct {
	ID        int64           `json:"id"`
	UserID    int64           `json:"user_id"`
	Type      string          `json:"type"`
	Price     decimal.Decimal `json:"price"`
	Gift      string          `json:"gift,omitempty"`
	ModelName string          `json:"model_name,omitempty"`
	ListingID int64           `json:"listing_id,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

type WithdrawRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Wallet string          `json:"wallet" validate:"required"`
}

type Withdraw struct {
	ID        int64           `json:"id"`
	Amount    decimal.Decimal `json:"amount"`
	Wallet    string          `json:"wallet"`
	CreatedAt time.Time       `json:"created_at"`
}

// DepositAddress Куда переводить TON; comment обязателен для зачисления
type DepositAddress struct {
	Address string `json:"address"`
	Comment string `json:"comment"`
}
