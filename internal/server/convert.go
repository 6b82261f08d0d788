package server

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"gift_market/internal/domain/entity"
	"gift_market/internal/domain/service/account"
	"gift_market/internal/domain/service/giveaway"
	"gift_market/internal/domain/service/market"
	"gift_market/internal/domain/value"
	"gift_market/pkg/lox"
	"gift_market/pkg/rest"
)

func newRESTListing(l entity.Listing) rest.Listing {
	res := rest.Listing{
		ID:     l.ID,
		Type:   l.Type,
		Number: l.Number,
		Attributes: rest.Attributes{
			ModelName:      l.Attributes.ModelName,
			PatternName:    l.Attributes.PatternName,
			BackgroundName: l.Attributes.BackgroundName,
			Model:          l.Attributes.Model,
			Pattern:        l.Attributes.Pattern,
			Background:     l.Attributes.Background,
		},
		Rarity:         string(l.Rarity),
		NumberScore:    l.NumberScore,
		ImageURL:       l.ImageURL,
		SellerID:       l.SellerID,
		Price:          l.Price,
		IsVIP:          l.IsVIP,
		AuctionEndTime: l.AuctionEndTime,
		Status:         l.Status.String(),
		IsActive:       l.IsActive,
		IsCompleted:    l.IsCompleted,
		CreatedAt:      l.CreatedAt,
		OrderCreatedAt: l.CreatedOrderDate,
	}

	if l.HasBuyer() {
		res.BuyerID = &l.BuyerID
	}
	if l.HeldAmount.IsPositive() {
		res.HeldAmount = &l.HeldAmount
	}
	if l.MinStep.Valid {
		res.MinStep = &l.MinStep.Decimal
	}

	return res
}

func newRESTListings(listings []entity.Listing) []rest.Listing {
	return lox.Map(listings, newRESTListing)
}

func newDomainCreateListing(sellerID int64, r rest.CreateListingRequest) market.CreateInput {
	in := market.CreateInput{
		SellerID: sellerID,
		Type:     r.Type,
		Number:   r.Number,
		Attributes: value.GiftAttributes{
			ModelName:      r.Attributes.ModelName,
			PatternName:    r.Attributes.PatternName,
			BackgroundName: r.Attributes.BackgroundName,
			Model:          r.Attributes.Model,
			Pattern:        r.Attributes.Pattern,
			Background:     r.Attributes.Background,
		},
		ImageURL:       r.ImageURL,
		Price:          r.Price,
		VIP:            r.IsVIP,
		AuctionEndTime: r.AuctionEndTime,
	}

	if r.MinStep != nil {
		in.MinStep = decimal.NewNullDecimal(*r.MinStep)
	}

	return in
}

func newRESTBid(b entity.Bid) rest.Bid {
	return rest.Bid{
		ID:        b.ID,
		ListingID: b.ListingID,
		BuyerID:   b.BuyerID,
		Amount:    b.Amount,
		CreatedAt: b.CreatedAt,
	}
}

func newRESTGiveaway(v giveaway.View) rest.Giveaway {
	g := v.Giveaway

	return rest.Giveaway{
		ID:              g.ID,
		CreatorID:       g.CreatorID,
		Type:            string(g.Type),
		GiftIDs:         g.GiftIDs,
		Channels:        g.Channels,
		QuantityMembers: g.QuantityMembers,
		EndTime:         g.EndTime,
		Price:           g.Price,
		Participants:    len(g.ParticipantIDs),
		WinnerIDs:       g.WinnerIDs,
		IsCompleted:     g.IsCompleted,
		Chances:         v.Chances,
		CreatedAt:       g.CreatedAt,
	}
}

func newDomainCreateGiveaway(creatorID int64, r rest.CreateGiveawayRequest) (giveaway.CreateInput, error) {
	t, err := value.ParseGiveawayType(r.Type)
	if err != nil {
		return giveaway.CreateInput{}, fmt.Errorf("value.ParseGiveawayType: %w", err)
	}

	return giveaway.CreateInput{
		CreatorID:       creatorID,
		Type:            t,
		GiftIDs:         r.GiftIDs,
		Channels:        r.Channels,
		QuantityMembers: r.QuantityMembers,
		EndTime:         r.EndTime,
		Price:           r.Price,
	}, nil
}

func newRESTUser(u entity.User) rest.User {
	return rest.User{
		ID:             u.ID,
		Username:       u.Username,
		FirstName:      u.FirstName,
		Balance:        u.Balance,
		Commission:     u.Commission,
		DepositComment: u.DepositComment,
		CreatedAt:      u.CreatedAt,
	}
}

func newRESTProfile(p account.Profile) rest.Profile {
	return rest.Profile{
		User:           newRESTUser(p.User),
		ReferralLink:   p.ReferralLink,
		CountReferrals: p.CountReferrals,
	}
}

func newRESTHistory(records []entity.HistoryRecord) []rest.HistoryRecord {
	return lox.Map(records, func(h entity.HistoryRecord) rest.HistoryRecord {
		return rest.HistoryRecord{
			ID:        h.ID,
			UserID:    h.UserID,
			Type:      string(h.Type),
			Price:     h.Price,
			Gift:      h.Gift,
			ModelName: h.ModelName,
			ListingID: h.ListingID,
			CreatedAt: h.CreatedAt,
		}
	})
}

// parseListingFilter разбирает query витрины:
// price_from, price_to, rarity, type, model, number_from, number_to,
// auction, sort, limit, offset. Списки передаются через запятую.
func parseListingFilter(q url.Values) (value.ListingFilter, error) {
	var (
		f   value.ListingFilter
		err error
	)

	if f.PriceFrom, err = parseNullDecimal(q.Get("price_from")); err != nil {
		return f, fmt.Errorf("price_from: %w", err)
	}
	if f.PriceTo, err = parseNullDecimal(q.Get("price_to")); err != nil {
		return f, fmt.Errorf("price_to: %w", err)
	}

	if f.Rarities, err = lox.MapErr(splitList(q.Get("rarity")), func(s string) (value.Rarity, error) {
		return value.ParseRarity(strings.ToUpper(s))
	}); err != nil {
		return f, fmt.Errorf("rarity: %w", err)
	}

	f.Types = splitList(q.Get("type"))
	f.ModelName = q.Get("model")

	if f.NumberFrom, err = parseInt(q.Get("number_from")); err != nil {
		return f, fmt.Errorf("number_from: %w", err)
	}
	if f.NumberTo, err = parseInt(q.Get("number_to")); err != nil {
		return f, fmt.Errorf("number_to: %w", err)
	}
	if f.Limit, err = parseInt(q.Get("limit")); err != nil {
		return f, fmt.Errorf("limit: %w", err)
	}
	if f.Offset, err = parseInt(q.Get("offset")); err != nil {
		return f, fmt.Errorf("offset: %w", err)
	}

	if v := q.Get("auction"); v != "" {
		if f.AuctionOnly, err = strconv.ParseBool(v); err != nil {
			return f, fmt.Errorf("auction: %w", err)
		}
	}

	if f.Sort, err = value.ParseListingSort(q.Get("sort")); err != nil {
		return f, fmt.Errorf("sort: %w", err)
	}

	return f.Normalize(), nil
}

func parsePage(q url.Values) (limit, offset int, err error) {
	if limit, err = parseInt(q.Get("limit")); err != nil {
		return 0, 0, fmt.Errorf("limit: %w", err)
	}
	if offset, err = parseInt(q.Get("offset")); err != nil {
		return 0, 0, fmt.Errorf("offset: %w", err)
	}

	return limit, offset, nil
}

func parseNullDecimal(s string) (decimal.NullDecimal, error) {
	if s == "" {
		return decimal.NullDecimal{}, nil
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("decimal.NewFromString: %w", err)
	}

	return decimal.NewNullDecimal(d), nil
}

func parseInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("strconv.Atoi: %w", err)
	}
	if n < 0 {
		return 0, fmt.Errorf("must not be negative, got %d", n)
	}

	return n, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}

	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}

	return out
}
