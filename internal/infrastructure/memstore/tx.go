package memstore

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"gift_market/internal/domain"
	"gift_market/internal/domain/entity"
	"gift_market/internal/domain/ledger"
	"gift_market/internal/domain/value"
	"gift_market/pkg/errcodes"
)

var _ ledger.Tx = (*tx)(nil)

type tx struct {
	st  *state
	now func() time.Time
}

func errOrderNotFound() error {
	return domain.NewError(errcodes.OrderNotFound, "order not found")
}

// Users

func (t *tx) CreateUser(_ context.Context, user *entity.User) error {
	if _, ok := t.st.users[user.ID]; ok {
		return domain.NewError(errcodes.AlreadyExist, "user already exists")
	}
	for _, u := range t.st.users {
		if u.DepositComment == user.DepositComment {
			return domain.NewError(errcodes.AlreadyExist, "deposit comment already in use")
		}
	}

	user.CreatedAt = t.now()
	t.st.users[user.ID] = *user

	return nil
}

func (t *tx) GetUser(_ context.Context, id int64) (entity.User, error) {
	u, ok := t.st.users[id]
	if !ok {
		return entity.User{}, domain.NewError(errcodes.UserNotFound, "user not found")
	}
	return u, nil
}

func (t *tx) GetUserByDepositComment(_ context.Context, comment string) (entity.User, error) {
	for _, u := range t.st.users {
		if u.DepositComment == comment {
			return u, nil
		}
	}
	return entity.User{}, domain.NewError(errcodes.UserNotFound, "user not found")
}

func (t *tx) UpdateUserNames(_ context.Context, id int64, username, firstName string) error {
	u, ok := t.st.users[id]
	if !ok {
		return domain.NewError(errcodes.UserNotFound, "user not found")
	}
	u.Username, u.FirstName = username, firstName
	t.st.users[id] = u
	return nil
}

func (t *tx) SetUserBanned(_ context.Context, id int64, banned bool) error {
	u, ok := t.st.users[id]
	if !ok {
		return domain.NewError(errcodes.UserNotFound, "user not found")
	}
	u.IsBanned = banned
	t.st.users[id] = u
	return nil
}

func (t *tx) AddBalance(_ context.Context, id int64, delta decimal.Decimal) (decimal.Decimal, error) {
	u, ok := t.st.users[id]
	if !ok {
		return decimal.Zero, domain.NewError(errcodes.UserNotFound, "user not found")
	}
	u.Balance = u.Balance.Add(delta)
	t.st.users[id] = u
	return u.Balance, nil
}

func (t *tx) DebitBalance(_ context.Context, id int64, amount decimal.Decimal) (decimal.Decimal, error) {
	u, ok := t.st.users[id]
	if !ok || u.Balance.LessThan(amount) {
		return decimal.Zero, domain.NewError(errcodes.NotEnoughBalance, "not enough balance")
	}
	u.Balance = u.Balance.Sub(amount)
	t.st.users[id] = u
	return u.Balance, nil
}

func (t *tx) AddCommission(_ context.Context, id int64, delta decimal.Decimal) error {
	u, ok := t.st.users[id]
	if !ok {
		return domain.NewError(errcodes.UserNotFound, "user not found")
	}
	u.Commission = u.Commission.Add(delta)
	t.st.users[id] = u
	return nil
}

func (t *tx) AddReferral(_ context.Context, referrerID, userID int64) error {
	if _, ok := t.st.referrers[userID]; ok {
		return domain.NewError(errcodes.AlreadyExist, "referral already exists")
	}
	t.st.referrers[userID] = referrerID
	return nil
}

func (t *tx) GetReferrer(_ context.Context, userID int64) (int64, error) {
	return t.st.referrers[userID], nil
}

func (t *tx) CountReferrals(_ context.Context, referrerID int64) (int, error) {
	n := 0
	for _, r := range t.st.referrers {
		if r == referrerID {
			n++
		}
	}
	return n, nil
}

func (t *tx) ListUserIDs(_ context.Context, afterID int64, limit int) ([]int64, error) {
	ids := make([]int64, 0, len(t.st.users))
	for id, u := range t.st.users {
		if id > afterID && !u.IsBanned {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

// Listings

func (t *tx) CreateListing(_ context.Context, l *entity.Listing) error {
	for _, other := range t.st.listings {
		if other.Type == l.Type && other.Number == l.Number && other.IsActive && !other.IsCompleted {
			return domain.NewError(errcodes.AlreadyExist, "order already exists")
		}
	}

	l.ID = t.st.nextID()
	l.CreatedAt = t.now()
	t.st.listings[l.ID] = *l

	return nil
}

func (t *tx) GetListing(_ context.Context, id int64) (entity.Listing, error) {
	l, ok := t.st.listings[id]
	if !ok {
		return entity.Listing{}, errOrderNotFound()
	}
	return l, nil
}

func (t *tx) ListListings(_ context.Context, f value.ListingFilter) ([]entity.Listing, error) {
	f = f.Normalize()

	res := make([]entity.Listing, 0)
	for _, l := range t.st.listings {
		if matches(l, f) {
			res = append(res, l)
		}
	}

	slices.SortFunc(res, func(a, b entity.Listing) int {
		if a.IsVIP != b.IsVIP {
			if a.IsVIP {
				return -1
			}
			return 1
		}

		var c int
		switch f.Sort {
		case value.SortOldest:
			c = a.CreatedAt.Compare(b.CreatedAt)
		case value.SortPriceAsc:
			c = a.Price.Cmp(b.Price)
		case value.SortPriceDesc:
			c = b.Price.Cmp(a.Price)
		case value.SortNumberScore:
			c = cmp.Compare(b.NumberScore, a.NumberScore)
		default:
			c = b.CreatedAt.Compare(a.CreatedAt)
		}
		if c != 0 {
			return c
		}
		if f.Sort == value.SortOldest {
			return cmp.Compare(a.ID, b.ID)
		}
		return cmp.Compare(b.ID, a.ID)
	})

	if f.Offset >= len(res) {
		return []entity.Listing{}, nil
	}
	res = res[f.Offset:]
	if len(res) > f.Limit {
		res = res[:f.Limit]
	}

	return res, nil
}

func matches(l entity.Listing, f value.ListingFilter) bool {
	switch {
	case !f.IncludeInactive && (!l.IsActive || l.IsCompleted || l.Status != value.StatusOnMarket):
		return false
	case f.PriceFrom.Valid && l.Price.LessThan(f.PriceFrom.Decimal):
		return false
	case f.PriceTo.Valid && l.Price.GreaterThan(f.PriceTo.Decimal):
		return false
	case len(f.Rarities) > 0 && !slices.Contains(f.Rarities, l.Rarity):
		return false
	case len(f.Types) > 0 && !slices.Contains(f.Types, l.Type):
		return false
	case f.ModelName != "" && !strings.EqualFold(f.ModelName, l.Attributes.ModelName):
		return false
	case f.NumberFrom > 0 && l.Number < f.NumberFrom:
		return false
	case f.NumberTo > 0 && l.Number > f.NumberTo:
		return false
	case f.SellerID != 0 && l.SellerID != f.SellerID:
		return false
	case f.AuctionOnly && !l.IsAuction():
		return false
	}
	return true
}

// update применяет mutate к ордеру, если cond выполняется, иначе — OrderNotFound.
func (t *tx) update(id int64, cond func(entity.Listing) bool, mutate func(*entity.Listing)) (entity.Listing, error) {
	l, ok := t.st.listings[id]
	if !ok || !cond(l) {
		return entity.Listing{}, errOrderNotFound()
	}
	mutate(&l)
	t.st.listings[id] = l
	return l, nil
}

func (t *tx) ClaimListing(_ context.Context, id, buyerID int64, buyerFee decimal.Decimal) (entity.Listing, error) {
	return t.update(id, func(l entity.Listing) bool {
		return l.Status == value.StatusOnMarket && !l.HasBuyer() && l.IsActive && !l.IsCompleted && !l.IsAuction()
	}, func(l *entity.Listing) {
		l.Status = value.StatusBuy
		l.BuyerID = buyerID
		l.HeldAmount = l.Price.Add(buyerFee)
	})
}

func (t *tx) AcceptOrder(_ context.Context, id, sellerID int64, at time.Time) (entity.Listing, error) {
	return t.update(id, func(l entity.Listing) bool {
		return l.Status == value.StatusBuy && l.SellerID == sellerID && !l.IsCompleted
	}, func(l *entity.Listing) {
		l.Status = value.StatusSellerAccept
		l.CreatedOrderDate = &at
	})
}

func (t *tx) ConfirmTransfer(_ context.Context, id, sellerID int64) (entity.Listing, error) {
	return t.update(id, func(l entity.Listing) bool {
		return l.Status == value.StatusSellerAccept && l.SellerID == sellerID && !l.IsCompleted
	}, func(l *entity.Listing) {
		l.Status = value.StatusGiftTransferred
	})
}

func (t *tx) ReceiveOrder(_ context.Context, id, buyerID int64, at time.Time) (entity.Listing, error) {
	return t.update(id, func(l entity.Listing) bool {
		return l.Status == value.StatusGiftTransferred && l.BuyerID == buyerID && l.HasBuyer() && !l.IsCompleted
	}, func(l *entity.Listing) {
		l.Status = value.StatusGiftReceived
		l.IsCompleted = true
		l.IsActive = false
		l.CompletedOrderDate = &at
	})
}

func (t *tx) ReopenOrder(_ context.Context, id int64, from value.OrderStatus, buyerID int64) (entity.Listing, error) {
	return t.update(id, func(l entity.Listing) bool {
		return l.Status == from && l.BuyerID == buyerID && !l.IsCompleted
	}, func(l *entity.Listing) {
		l.Status = value.StatusOnMarket
		l.BuyerID = 0
		l.HeldAmount = decimal.Zero
		l.CreatedOrderDate = nil
	})
}

func (t *tx) UpdateListingPrice(_ context.Context, id, sellerID int64, price decimal.Decimal) (entity.Listing, error) {
	return t.update(id, func(l entity.Listing) bool {
		return l.SellerID == sellerID && l.Status == value.StatusOnMarket && !l.HasBuyer() && !l.IsCompleted && !l.IsAuction()
	}, func(l *entity.Listing) {
		l.Price = price
	})
}

func (t *tx) SetListingActive(_ context.Context, id, sellerID int64, active bool) (entity.Listing, error) {
	l, ok := t.st.listings[id]
	if ok && active {
		for _, other := range t.st.listings {
			if other.ID != id && other.Type == l.Type && other.Number == l.Number && other.IsActive && !other.IsCompleted {
				return entity.Listing{}, domain.NewError(errcodes.AlreadyExist, "order already exists")
			}
		}
	}

	return t.update(id, func(l entity.Listing) bool {
		return l.SellerID == sellerID && l.Status == value.StatusOnMarket && !l.HasBuyer() && !l.IsCompleted && l.IsActive != active
	}, func(l *entity.Listing) {
		l.IsActive = active
		if active {
			l.MinStep = decimal.NullDecimal{}
			l.AuctionEndTime = nil
		}
	})
}

func (t *tx) DeleteListing(_ context.Context, id, sellerID int64) (entity.Listing, error) {
	l, ok := t.st.listings[id]
	if !ok || l.SellerID != sellerID || l.Status != value.StatusOnMarket || l.HasBuyer() || l.IsCompleted {
		return entity.Listing{}, errOrderNotFound()
	}
	delete(t.st.listings, id)
	return l, nil
}

func (t *tx) PlaceBid(
	_ context.Context,
	id int64,
	prev ledger.BidState,
	bidderID int64,
	amount decimal.Decimal,
	now time.Time,
) (entity.Listing, error) {
	l, ok := t.st.listings[id]
	if !ok || !l.IsActive || l.IsCompleted || !l.IsAuction() || l.AuctionEnded(now) {
		return entity.Listing{}, errOrderNotFound()
	}
	if !l.Price.Equal(prev.Price) || l.BuyerID != prev.BuyerID {
		return entity.Listing{}, domain.NewError(errcodes.StaleState, "bid is outdated")
	}

	l.Price = amount
	l.BuyerID = bidderID
	t.st.listings[id] = l

	return l, nil
}

func (t *tx) ListEndedAuctions(_ context.Context, now time.Time, limit int) ([]entity.Listing, error) {
	res := make([]entity.Listing, 0)
	for _, l := range t.st.listings {
		if l.IsAuction() && l.IsActive && !l.IsCompleted && l.AuctionEnded(now) {
			res = append(res, l)
		}
	}
	slices.SortFunc(res, func(a, b entity.Listing) int {
		return cmp.Or(a.AuctionEndTime.Compare(*b.AuctionEndTime), cmp.Compare(a.ID, b.ID))
	})
	return head(res, limit), nil
}

func (t *tx) CompleteAuction(_ context.Context, id, buyerID int64, at time.Time) (entity.Listing, error) {
	return t.update(id, func(l entity.Listing) bool {
		return l.IsAuction() && l.IsActive && !l.IsCompleted && l.HasBuyer() && l.BuyerID == buyerID && l.AuctionEnded(at)
	}, func(l *entity.Listing) {
		l.Status = value.StatusGiftReceived
		l.IsCompleted = true
		l.IsActive = false
		l.CompletedOrderDate = &at
		l.DeliveryPending = true
	})
}

func (t *tx) WithdrawAuction(_ context.Context, id int64) (entity.Listing, error) {
	return t.update(id, func(l entity.Listing) bool {
		return l.IsAuction() && l.IsActive && !l.IsCompleted && !l.HasBuyer()
	}, func(l *entity.Listing) {
		l.IsActive = false
	})
}

func (t *tx) ReserveListings(_ context.Context, ownerID int64, ids []int64) ([]entity.Listing, error) {
	res := make([]entity.Listing, 0, len(ids))
	for _, id := range ids {
		l, ok := t.st.listings[id]
		if !ok || l.SellerID != ownerID || l.IsActive || l.IsCompleted || l.HasBuyer() {
			continue
		}
		l.IsCompleted = true
		t.st.listings[id] = l
		res = append(res, l)
	}
	return res, nil
}

func (t *tx) ReleaseListings(_ context.Context, ids []int64) error {
	for _, id := range ids {
		l, ok := t.st.listings[id]
		if !ok || !l.IsCompleted || l.HasBuyer() {
			continue
		}
		l.IsCompleted = false
		t.st.listings[id] = l
	}
	return nil
}

func (t *tx) AssignPrize(_ context.Context, id, winnerID int64) (entity.Listing, error) {
	at := t.now()
	return t.update(id, func(l entity.Listing) bool {
		return l.IsCompleted && !l.IsActive && !l.HasBuyer()
	}, func(l *entity.Listing) {
		l.BuyerID = winnerID
		l.Status = value.StatusGiftReceived
		l.CompletedOrderDate = &at
		l.DeliveryPending = true
	})
}

func (t *tx) ListPendingDeliveries(_ context.Context, limit int) ([]entity.Listing, error) {
	res := make([]entity.Listing, 0)
	for _, l := range t.st.listings {
		if l.DeliveryPending {
			res = append(res, l)
		}
	}
	slices.SortFunc(res, func(a, b entity.Listing) int { return cmp.Compare(a.ID, b.ID) })
	return head(res, limit), nil
}

func (t *tx) MarkDeliveryQueued(_ context.Context, id int64) error {
	l, ok := t.st.listings[id]
	if !ok {
		return errOrderNotFound()
	}
	l.DeliveryPending = false
	t.st.listings[id] = l
	return nil
}

// Bids

func (t *tx) InsertBid(_ context.Context, bid *entity.Bid) error {
	bid.ID = t.st.nextID()
	bid.CreatedAt = t.now()
	t.st.bids = append(t.st.bids, *bid)
	return nil
}

func (t *tx) ListBids(_ context.Context, listingID int64) ([]entity.Bid, error) {
	res := make([]entity.Bid, 0)
	for i := len(t.st.bids) - 1; i >= 0; i-- {
		if t.st.bids[i].ListingID == listingID {
			res = append(res, t.st.bids[i])
		}
	}
	return res, nil
}

// Withdrawals

func (t *tx) CreateWithdrawRequest(_ context.Context, req *entity.WithdrawRequest) error {
	req.ID = t.st.nextID()
	req.CreatedAt = t.now()
	t.st.withdrawals[req.ID] = *req
	return nil
}

func (t *tx) ListPendingWithdrawRequests(_ context.Context, limit int) ([]entity.WithdrawRequest, error) {
	res := make([]entity.WithdrawRequest, 0)
	for _, w := range t.st.withdrawals {
		if !w.IsCompleted {
			res = append(res, w)
		}
	}
	slices.SortFunc(res, func(a, b entity.WithdrawRequest) int { return cmp.Compare(a.ID, b.ID) })
	return head(res, limit), nil
}

func (t *tx) CompleteWithdrawRequest(_ context.Context, id int64, at time.Time) (entity.WithdrawRequest, error) {
	w, ok := t.st.withdrawals[id]
	if !ok || w.IsCompleted {
		return entity.WithdrawRequest{}, domain.NewError(errcodes.WithdrawNotFound, "withdraw request not found")
	}
	w.IsCompleted = true
	w.CompletedAt = &at
	t.st.withdrawals[id] = w
	return w, nil
}

// Giveaways

func (t *tx) CreateGiveaway(_ context.Context, g *entity.Giveaway) error {
	g.ID = t.st.nextID()
	g.CreatedAt = t.now()
	t.st.giveaways[g.ID] = cloneGiveaway(*g)
	return nil
}

func (t *tx) GetGiveaway(_ context.Context, id int64) (entity.Giveaway, error) {
	g, ok := t.st.giveaways[id]
	if !ok {
		return entity.Giveaway{}, domain.NewError(errcodes.GiveawayNotFound, "giveaway not found")
	}
	return cloneGiveaway(g), nil
}

func (t *tx) ListGiveaways(_ context.Context, f ledger.GiveawayFilter) ([]entity.Giveaway, error) {
	res := make([]entity.Giveaway, 0)
	for _, g := range t.st.giveaways {
		switch {
		case f.CreatorID != 0 && g.CreatorID != f.CreatorID:
			continue
		case f.ParticipantID != 0 && !g.HasParticipant(f.ParticipantID):
			continue
		case f.OnlyActive && g.IsCompleted:
			continue
		}
		res = append(res, cloneGiveaway(g))
	}
	slices.SortFunc(res, func(a, b entity.Giveaway) int {
		return cmp.Or(a.EndTime.Compare(b.EndTime), cmp.Compare(a.ID, b.ID))
	})
	if f.Offset >= len(res) {
		return []entity.Giveaway{}, nil
	}
	return head(res[f.Offset:], f.Limit), nil
}

func (t *tx) ListEndedGiveaways(_ context.Context, now time.Time, limit int) ([]entity.Giveaway, error) {
	res := make([]entity.Giveaway, 0)
	for _, g := range t.st.giveaways {
		if !g.IsCompleted && g.Ended(now) {
			res = append(res, cloneGiveaway(g))
		}
	}
	slices.SortFunc(res, func(a, b entity.Giveaway) int { return cmp.Compare(a.ID, b.ID) })
	return head(res, limit), nil
}

func (t *tx) AddParticipant(_ context.Context, id, userID, referrerID int64, now time.Time) (entity.Giveaway, error) {
	g, ok := t.st.giveaways[id]
	if !ok || g.IsCompleted || g.Ended(now) || g.HasParticipant(userID) || g.IsFull() {
		return entity.Giveaway{}, domain.NewError(errcodes.GiveawayClosed, "giveaway is closed")
	}
	g = cloneGiveaway(g)
	g.ParticipantIDs = append(g.ParticipantIDs, userID)
	g.ReferrerIDs = append(g.ReferrerIDs, referrerID)
	t.st.giveaways[id] = g
	return cloneGiveaway(g), nil
}

func (t *tx) CompleteGiveaway(_ context.Context, id int64, winners []int64) (entity.Giveaway, error) {
	g, ok := t.st.giveaways[id]
	if !ok || g.IsCompleted {
		return entity.Giveaway{}, domain.NewError(errcodes.GiveawayNotFound, "giveaway not found")
	}
	g = cloneGiveaway(g)
	g.IsCompleted = true
	g.WinnerIDs = slices.Clone(winners)
	t.st.giveaways[id] = g
	return cloneGiveaway(g), nil
}

// History

func (t *tx) AppendHistory(_ context.Context, r *entity.HistoryRecord) error {
	r.ID = t.st.nextID()
	r.CreatedAt = t.now()
	t.st.history = append(t.st.history, *r)
	return nil
}

func (t *tx) ListHistory(_ context.Context, userID int64, limit int) ([]entity.HistoryRecord, error) {
	return t.listHistory(limit, func(r entity.HistoryRecord) bool { return r.UserID == userID }), nil
}

func (t *tx) ListActivity(_ context.Context, limit int) ([]entity.HistoryRecord, error) {
	return t.listHistory(limit, func(r entity.HistoryRecord) bool {
		return r.Type == value.HistoryBuy || r.Type == value.HistoryBid || r.Type == value.HistoryAuctionWon
	}), nil
}

func (t *tx) listHistory(limit int, keep func(entity.HistoryRecord) bool) []entity.HistoryRecord {
	res := make([]entity.HistoryRecord, 0)
	for i := len(t.st.history) - 1; i >= 0; i-- {
		if keep(t.st.history[i]) {
			res = append(res, t.st.history[i])
		}
	}
	return head(res, limit)
}

// Cursor

func (t *tx) GetDepositCursor(context.Context) (int64, error) {
	return t.st.cursor, nil
}

func (t *tx) AdvanceDepositCursor(_ context.Context, expected, next int64) error {
	if t.st.cursor != expected {
		return domain.NewError(errcodes.StaleState, "deposit cursor moved")
	}
	t.st.cursor = next
	return nil
}

func head[T any](s []T, limit int) []T {
	if limit > 0 && len(s) > limit {
		return s[:limit]
	}
	return s
}
