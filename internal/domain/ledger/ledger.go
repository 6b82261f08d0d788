// Package ledger описывает транзакционное хранилище площадки.
//
// Все изменения денег и статусов ордеров выполняются внутри одной единицы
// работы (Store.WithinTx). Переходы статусов — условные обновления
// (compare-and-swap): если строка уже не соответствует ожидаемому состоянию,
// метод возвращает доменную ошибку вида NotFound/Conflict, а не молча
// ничего не делает.
package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"gift_market/internal/domain/entity"
	"gift_market/internal/domain/value"
)

type Store interface {
	// WithinTx выполняет fn в одной транзакции. Ошибка fn или паника
	// откатывает все изменения.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

type Tx interface {
	Users
	Listings
	Bids
	Withdrawals
	Giveaways
	History
	Cursor
}

type Users interface {
	CreateUser(ctx context.Context, user *entity.User) error
	GetUser(ctx context.Context, id int64) (entity.User, error)
	GetUserByDepositComment(ctx context.Context, comment string) (entity.User, error)
	UpdateUserNames(ctx context.Context, id int64, username, firstName string) error
	SetUserBanned(ctx context.Context, id int64, banned bool) error
	// AddBalance атомарно прибавляет delta к балансу и возвращает новое значение.
	AddBalance(ctx context.Context, id int64, delta decimal.Decimal) (decimal.Decimal, error)
	// DebitBalance списывает amount, только если баланса хватает.
	DebitBalance(ctx context.Context, id int64, amount decimal.Decimal) (decimal.Decimal, error)
	AddCommission(ctx context.Context, id int64, delta decimal.Decimal) error
	AddReferral(ctx context.Context, referrerID, userID int64) error
	// GetReferrer возвращает 0, если у пользователя нет реферера.
	GetReferrer(ctx context.Context, userID int64) (int64, error)
	CountReferrals(ctx context.Context, referrerID int64) (int, error)
	// ListUserIDs — незаблокированные пользователи с id > afterID по возрастанию.
	ListUserIDs(ctx context.Context, afterID int64, limit int) ([]int64, error)
}

type Listings interface {
	CreateListing(ctx context.Context, listing *entity.Listing) error
	GetListing(ctx context.Context, id int64) (entity.Listing, error)
	ListListings(ctx context.Context, filter value.ListingFilter) ([]entity.Listing, error)

	// ClaimListing: ON_MARKET без покупателя -> BUY. В эскроу удерживается
	// текущая цена строки плюс buyerFee.
	ClaimListing(ctx context.Context, id, buyerID int64, buyerFee decimal.Decimal) (entity.Listing, error)
	// AcceptOrder: BUY -> SELLER_ACCEPT, фиксирует начало окна SLA.
	AcceptOrder(ctx context.Context, id, sellerID int64, at time.Time) (entity.Listing, error)
	// ConfirmTransfer: SELLER_ACCEPT -> GIFT_TRANSFERRED.
	ConfirmTransfer(ctx context.Context, id, sellerID int64) (entity.Listing, error)
	// ReceiveOrder: GIFT_TRANSFERRED -> GIFT_RECEIVED, ордер завершён.
	ReceiveOrder(ctx context.Context, id, buyerID int64, at time.Time) (entity.Listing, error)
	// ReopenOrder: from -> ON_MARKET, покупатель и отметка SLA сброшены.
	ReopenOrder(ctx context.Context, id int64, from value.OrderStatus, buyerID int64) (entity.Listing, error)
	UpdateListingPrice(ctx context.Context, id, sellerID int64, price decimal.Decimal) (entity.Listing, error)
	SetListingActive(ctx context.Context, id, sellerID int64, active bool) (entity.Listing, error)
	DeleteListing(ctx context.Context, id, sellerID int64) (entity.Listing, error)

	// PlaceBid обновляет цену и лидера аукциона, если они всё ещё равны prev.
	PlaceBid(ctx context.Context, id int64, prev BidState, bidderID int64, amount decimal.Decimal, now time.Time) (entity.Listing, error)
	ListEndedAuctions(ctx context.Context, now time.Time, limit int) ([]entity.Listing, error)
	// CompleteAuction завершает аукцион с победителем buyerID и ставит подарок в очередь на передачу.
	CompleteAuction(ctx context.Context, id, buyerID int64, at time.Time) (entity.Listing, error)
	// WithdrawAuction снимает аукцион без ставок с витрины.
	WithdrawAuction(ctx context.Context, id int64) (entity.Listing, error)

	// ReserveListings помечает невыставленные подарки владельца как занятые розыгрышем.
	ReserveListings(ctx context.Context, ownerID int64, ids []int64) ([]entity.Listing, error)
	ReleaseListings(ctx context.Context, ids []int64) error
	// AssignPrize отдаёт зарезервированный подарок победителю и ставит его в очередь на передачу.
	AssignPrize(ctx context.Context, id, winnerID int64) (entity.Listing, error)

	ListPendingDeliveries(ctx context.Context, limit int) ([]entity.Listing, error)
	MarkDeliveryQueued(ctx context.Context, id int64) error
}

// BidState — наблюдаемые цена и лидер аукциона до новой ставки.
type BidState struct {
	Price   decimal.Decimal
	BuyerID int64
}

type Bids interface {
	InsertBid(ctx context.Context, bid *entity.Bid) error
	ListBids(ctx context.Context, listingID int64) ([]entity.Bid, error)
}

type Withdrawals interface {
	CreateWithdrawRequest(ctx context.Context, req *entity.WithdrawRequest) error
	ListPendingWithdrawRequests(ctx context.Context, limit int) ([]entity.WithdrawRequest, error)
	CompleteWithdrawRequest(ctx context.Context, id int64, at time.Time) (entity.WithdrawRequest, error)
}

type Giveaways interface {
	CreateGiveaway(ctx context.Context, giveaway *entity.Giveaway) error
	GetGiveaway(ctx context.Context, id int64) (entity.Giveaway, error)
	ListGiveaways(ctx context.Context, filter GiveawayFilter) ([]entity.Giveaway, error)
	ListEndedGiveaways(ctx context.Context, now time.Time, limit int) ([]entity.Giveaway, error)
	// AddParticipant добавляет участника, если розыгрыш открыт и не заполнен.
	AddParticipant(ctx context.Context, id, userID, referrerID int64, now time.Time) (entity.Giveaway, error)
	CompleteGiveaway(ctx context.Context, id int64, winners []int64) (entity.Giveaway, error)
}

type GiveawayFilter struct {
	CreatorID     int64
	ParticipantID int64
	OnlyActive    bool
	Limit         int
	Offset        int
}

type History interface {
	AppendHistory(ctx context.Context, record *entity.HistoryRecord) error
	ListHistory(ctx context.Context, userID int64, limit int) ([]entity.HistoryRecord, error)
	// ListActivity — лента сделок площадки (покупки, продажи, ставки).
	ListActivity(ctx context.Context, limit int) ([]entity.HistoryRecord, error)
}

type Cursor interface {
	GetDepositCursor(ctx context.Context) (int64, error)
	// AdvanceDepositCursor переставляет курсор, только если он всё ещё равен expected.
	AdvanceDepositCursor(ctx context.Context, expected, next int64) error
}
