package market_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"git.appkode.ru/pub/go/failure"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"gift_market/internal/domain"
	"gift_market/internal/domain/entity"
	"gift_market/internal/domain/service/market"
	"gift_market/internal/domain/value"
	"gift_market/pkg/errcodes"
)

func TestService_Create(t *testing.T) {
	testCases := []struct {
		name        string
		sellerFunds string
		mutate      func(*market.CreateInput)
		code        string
		wantBalance string
		wantFee     string
	}{
		{
			name:        "Standard fee debited",
			sellerFunds: "1",
			mutate:      func(*market.CreateInput) {},
			wantBalance: "0.5",
			wantFee:     "0.5",
		},
		{
			name:        "VIP listing fee",
			sellerFunds: "5",
			mutate:      func(in *market.CreateInput) { in.VIP = true },
			wantBalance: "2",
			wantFee:     "3",
		},
		{
			name:        "Fee exempt seller",
			sellerFunds: "0",
			mutate: func(in *market.CreateInput) {
				in.SellerID = vipID
				in.VIP = true
			},
			wantBalance: "0",
			wantFee:     "0",
		},
		{
			name:        "Not enough balance",
			sellerFunds: "0.1",
			mutate:      func(*market.CreateInput) {},
			code:        string(errcodes.NotEnoughBalance),
			wantBalance: "0.1",
		},
		{
			name:        "Foreign image host",
			sellerFunds: "1",
			mutate:      func(in *market.CreateInput) { in.ImageURL = "https://example.com/pepe.png" },
			code:        string(errcodes.InvalidImageURL),
			wantBalance: "1",
		},
		{
			name:        "Auction without end time",
			sellerFunds: "1",
			mutate:      func(in *market.CreateInput) { in.MinStep = decimal.NewNullDecimal(d("1")) },
			code:        string(errcodes.InvalidOrder),
			wantBalance: "1",
		},
		{
			name:        "Auction ending in the past",
			sellerFunds: "1",
			mutate: func(in *market.CreateInput) {
				past := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
				in.MinStep = decimal.NewNullDecimal(d("1"))
				in.AuctionEndTime = &past
			},
			code:        string(errcodes.InvalidOrder),
			wantBalance: "1",
		},
		{
			name:        "Zero price",
			sellerFunds: "1",
			mutate:      func(in *market.CreateInput) { in.Price = decimal.Zero },
			code:        string(errcodes.InvalidAmount),
			wantBalance: "1",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rq := require.New(t)
			f := newFixture(t)

			in := market.CreateInput{
				SellerID:   sellerID,
				Type:       "PlushPepe",
				Number:     1234,
				Attributes: value.GiftAttributes{Model: 1.5, Pattern: 0.8, Background: 1.2},
				ImageURL:   "https://nft.fragment.com/gift/plushpepe-1234.webp",
				Price:      d("10"),
			}
			tc.mutate(&in)

			u := f.store.User(in.SellerID)
			u.Balance = d(tc.sellerFunds)
			f.store.PutUser(u)

			l, err := f.service.Create(context.Background(), in)
			requireAmount(t, tc.wantBalance, f.store.Balance(in.SellerID))

			if tc.code != "" {
				rq.Error(err)
				code, _ := domain.GetCode(err)
				rq.Equal(tc.code, string(code))
				return
			}

			rq.NoError(err)
			rq.Equal(value.StatusOnMarket, l.Status)
			rq.Equal(value.RarityCommon, l.Rarity)
			requireAmount(t, tc.wantFee, l.ListingFee)
		})
	}
}

func TestService_CreateDuplicate(t *testing.T) {
	rq := require.New(t)
	f := newFixture(t)

	f.store.PutUser(entity.User{ID: sellerID, Username: "user", Balance: d("2"), DepositComment: "1"})

	f.createListing(t)

	_, err := f.service.Create(context.Background(), market.CreateInput{
		SellerID:   sellerID,
		Type:       "PlushPepe",
		Number:     1234,
		Attributes: value.GiftAttributes{Model: 1, Pattern: 1, Background: 1},
		ImageURL:   "https://nft.fragment.com/gift/plushpepe-1234.webp",
		Price:      d("3"),
	})
	rq.True(domain.HasCode(err, errcodes.AlreadyExist))
	rq.Equal(domain.KindConflict, domain.KindOf(err))
	requireAmount(t, "1.5", f.store.Balance(sellerID))
}

func TestService_Buy(t *testing.T) {
	testCases := []struct {
		name    string
		buyer   int64
		prepare func(f *fixture)
		code    failure.ErrorCode
	}{
		{
			name:  "Own gift",
			buyer: sellerID,
			code:  errcodes.NotAccess,
		},
		{
			name:  "Missing username",
			buyer: buyerID,
			prepare: func(f *fixture) {
				u := f.store.User(buyerID)
				u.Username = ""
				f.store.PutUser(u)
			},
			code: errcodes.NotUsername,
		},
		{
			name:  "Not enough balance",
			buyer: buyerID,
			prepare: func(f *fixture) {
				u := f.store.User(buyerID)
				u.Balance = d("9.99")
				f.store.PutUser(u)
			},
			code: errcodes.NotEnoughBalance,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rq := require.New(t)
			f := newFixture(t)
			l := f.createListing(t)

			if tc.prepare != nil {
				tc.prepare(f)
			}

			_, err := f.service.Buy(context.Background(), tc.buyer, l.ID)
			rq.True(domain.HasCode(err, tc.code), "got %v", err)

			stored, ok := f.store.Listing(l.ID)
			rq.True(ok)
			rq.Equal(value.StatusOnMarket, stored.Status)
			rq.Zero(stored.BuyerID)
		})
	}
}

func TestService_ConcurrentBuy(t *testing.T) {
	rq := require.New(t)
	f := newFixture(t)
	l := f.createListing(t)

	buyers := []int64{buyerID, otherID}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded []int64
		notFound  int
	)

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_, err := f.service.Buy(context.Background(), id, l.ID)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded = append(succeeded, id)
			case domain.HasCode(err, errcodes.OrderNotFound):
				notFound++
			}
		}(buyers[i%2])
	}
	wg.Wait()

	rq.Len(succeeded, 1)
	rq.Equal(7, notFound)

	total := d("30").Sub(f.store.Balance(buyerID)).Sub(f.store.Balance(otherID))
	requireAmount(t, "10", total)

	stored, _ := f.store.Listing(l.ID)
	rq.Equal(value.StatusBuy, stored.Status)
	rq.Equal(succeeded[0], stored.BuyerID)
}

func TestService_FullSaleWithReferral(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	f.store.PutReferral(referrerID, sellerID)

	l := f.createListing(t)

	_, err := f.service.Buy(ctx, buyerID, l.ID)
	rq.NoError(err)
	requireAmount(t, "5", f.store.Balance(buyerID))

	_, err = f.service.SellerAccept(ctx, sellerID, l.ID)
	rq.NoError(err)

	_, err = f.service.AcceptReceipt(ctx, buyerID, l.ID)
	rq.True(domain.HasCode(err, errcodes.OrderNotFound))

	_, err = f.service.ConfirmTransfer(ctx, buyerID, l.ID)
	rq.True(domain.HasCode(err, errcodes.OrderNotFound))

	_, err = f.service.ConfirmTransfer(ctx, sellerID, l.ID)
	rq.NoError(err)

	received, err := f.service.AcceptReceipt(ctx, buyerID, l.ID)
	rq.NoError(err)
	rq.Equal(value.StatusGiftReceived, received.Status)
	rq.True(received.IsCompleted)
	rq.NotNil(received.CompletedOrderDate)

	// 0.5 после выставления + 9.5 за продажу (комиссия 5% = 0.5).
	requireAmount(t, "10", f.store.Balance(sellerID))
	// 20% от комиссии.
	requireAmount(t, "0.1", f.store.Balance(referrerID))
	requireAmount(t, "0.1", f.store.User(referrerID).Commission)

	_, err = f.service.AcceptReceipt(ctx, buyerID, l.ID)
	rq.True(domain.HasCode(err, errcodes.OrderNotFound))
	requireAmount(t, "10", f.store.Balance(sellerID))
	requireAmount(t, "0.1", f.store.Balance(referrerID))

	history := f.store.History()
	rq.Len(history, 2)
	rq.Equal(value.HistoryBuy, history[0].Type)
	rq.Equal(buyerID, history[0].UserID)
	rq.Equal(value.HistorySell, history[1].Type)
	rq.Equal(sellerID, history[1].UserID)
}

func TestService_BuyerFee(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	f := newFixture(t)

	prices := value.DefaultPriceList()
	prices.BuyerFee = d("0.1")
	privileges := value.NewPrivileges(nil, nil)
	f.service = market.NewService(f.store, prices, privileges, nil, f.outbox, f.notifier).
		WithDebug(true).
		WithClock(f.clock.Now)

	l := f.createListing(t)

	claimed, err := f.service.Buy(ctx, buyerID, l.ID)
	rq.NoError(err)
	requireAmount(t, "10.1", claimed.HeldAmount)
	requireAmount(t, "4.9", f.store.Balance(buyerID))

	_, err = f.service.Cancel(ctx, buyerID, l.ID)
	rq.NoError(err)
	requireAmount(t, "15", f.store.Balance(buyerID))
}

func TestService_Cancel(t *testing.T) {
	testCases := []struct {
		name      string
		accept    bool
		elapsed   time.Duration
		caller    int64
		code      failure.ErrorCode
		wantAdmin int
	}{
		{
			name:   "Buyer cancels unaccepted order",
			caller: buyerID,
		},
		{
			name:   "Seller declines unaccepted order",
			caller: sellerID,
		},
		{
			name:   "Stranger cannot cancel unaccepted order",
			caller: otherID,
			code:   errcodes.NotAccess,
		},
		{
			name:    "Buyer within SLA",
			accept:  true,
			elapsed: 10 * time.Minute,
			caller:  buyerID,
			code:    errcodes.NotAccess,
		},
		{
			name:    "Seller within SLA",
			accept:  true,
			elapsed: 19 * time.Minute,
			caller:  sellerID,
			code:    errcodes.NotAccess,
		},
		{
			name:      "Anyone after SLA",
			accept:    true,
			elapsed:   21 * time.Minute,
			caller:    otherID,
			wantAdmin: 1,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rq := require.New(t)
			ctx := context.Background()
			f := newFixture(t)
			l := f.createListing(t)

			_, err := f.service.Buy(ctx, buyerID, l.ID)
			rq.NoError(err)

			if tc.accept {
				_, err = f.service.SellerAccept(ctx, sellerID, l.ID)
				rq.NoError(err)
			}
			f.clock.Advance(tc.elapsed)

			reopened, err := f.service.Cancel(ctx, tc.caller, l.ID)
			if tc.code != "" {
				rq.True(domain.HasCode(err, tc.code), "got %v", err)
				requireAmount(t, "5", f.store.Balance(buyerID))
				return
			}

			rq.NoError(err)
			rq.Equal(value.StatusOnMarket, reopened.Status)
			rq.Zero(reopened.BuyerID)
			rq.Nil(reopened.CreatedOrderDate)
			requireAmount(t, "15", f.store.Balance(buyerID))
			rq.Equal(tc.wantAdmin, f.notifier.AdminCount())
		})
	}
}

func TestService_GetForceCancelsExpiredOrder(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	l := f.createListing(t)

	_, err := f.service.Buy(ctx, buyerID, l.ID)
	rq.NoError(err)
	_, err = f.service.SellerAccept(ctx, sellerID, l.ID)
	rq.NoError(err)

	_, err = f.service.Get(ctx, otherID, l.ID)
	rq.True(domain.HasCode(err, errcodes.NotAccess))

	got, err := f.service.Get(ctx, buyerID, l.ID)
	rq.NoError(err)
	rq.Equal(value.StatusSellerAccept, got.Status)

	f.clock.Advance(21 * time.Minute)

	got, err = f.service.Get(ctx, sellerID, l.ID)
	rq.NoError(err)
	rq.Equal(value.StatusOnMarket, got.Status)
	rq.Zero(got.BuyerID)
	requireAmount(t, "15", f.store.Balance(buyerID))
	rq.Equal(1, f.notifier.AdminCount())

	_, err = f.service.Get(ctx, buyerID, l.ID)
	rq.NoError(err)
	requireAmount(t, "15", f.store.Balance(buyerID))
	rq.Equal(1, f.notifier.AdminCount())
}

func TestService_Delete(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	l := f.createListing(t)
	requireAmount(t, "0.5", f.store.Balance(sellerID))

	rq.True(domain.HasCode(f.service.Delete(ctx, otherID, l.ID), errcodes.OrderNotFound))

	_, err := f.service.Buy(ctx, buyerID, l.ID)
	rq.NoError(err)
	rq.True(domain.HasCode(f.service.Delete(ctx, sellerID, l.ID), errcodes.OrderNotFound))

	_, err = f.service.Cancel(ctx, buyerID, l.ID)
	rq.NoError(err)

	rq.NoError(f.service.Delete(ctx, sellerID, l.ID))
	requireAmount(t, "1", f.store.Balance(sellerID))

	_, ok := f.store.Listing(l.ID)
	rq.False(ok)
}

func TestService_UpdatePriceAndRelist(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	l := f.createListing(t)

	updated, err := f.service.UpdatePrice(ctx, sellerID, l.ID, d("12.5"))
	rq.NoError(err)
	requireAmount(t, "12.5", updated.Price)

	_, err = f.service.UpdatePrice(ctx, otherID, l.ID, d("1"))
	rq.True(domain.HasCode(err, errcodes.OrderNotFound))

	unlisted, err := f.service.SetActive(ctx, sellerID, l.ID, false)
	rq.NoError(err)
	rq.False(unlisted.IsActive)

	_, err = f.service.Buy(ctx, buyerID, l.ID)
	rq.True(domain.HasCode(err, errcodes.OrderNotFound))

	relisted, err := f.service.SetActive(ctx, sellerID, l.ID, true)
	rq.NoError(err)
	rq.True(relisted.IsActive)
}

func TestService_List(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	f := newFixture(t)

	for i, price := range []string{"3", "1", "2"} {
		f.store.PutListing(entity.Listing{
			Type:     "PlushPepe",
			Number:   100 + i,
			SellerID: sellerID,
			Price:    d(price),
			Rarity:   value.RarityRare,
			Status:   value.StatusOnMarket,
			IsActive: true,
			IsVIP:    i == 2,
		})
		f.clock.Advance(time.Minute)
	}

	listings, err := f.service.List(ctx, value.ListingFilter{Sort: value.SortPriceAsc})
	rq.NoError(err)
	rq.Len(listings, 3)
	rq.Equal(102, listings[0].Number)
	rq.Equal(101, listings[1].Number)
	rq.Equal(100, listings[2].Number)

	listings, err = f.service.List(ctx, value.ListingFilter{
		PriceTo: decimal.NewNullDecimal(d("2.5")),
		Limit:   1,
	})
	rq.NoError(err)
	rq.Len(listings, 1)
	rq.Equal(102, listings[0].Number)
}

func TestService_ListHidesOrdersInEscrow(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	f := newFixture(t)

	bought := f.createListing(t)
	free := f.createListing(t, func(in *market.CreateInput) { in.Number = 4321 })

	_, err := f.service.Buy(ctx, buyerID, bought.ID)
	rq.NoError(err)

	listings, err := f.service.List(ctx, value.ListingFilter{})
	rq.NoError(err)
	rq.Len(listings, 1)
	rq.Equal(free.ID, listings[0].ID)
	rq.Zero(listings[0].BuyerID)

	_, err = f.service.Get(ctx, otherID, bought.ID)
	rq.True(domain.HasCode(err, errcodes.NotAccess))

	// Продавец по-прежнему видит свой ордер в эскроу.
	own, err := f.service.List(ctx, value.ListingFilter{SellerID: sellerID, IncludeInactive: true})
	rq.NoError(err)
	rq.Len(own, 2)

	_, err = f.service.Cancel(ctx, buyerID, bought.ID)
	rq.NoError(err)

	listings, err = f.service.List(ctx, value.ListingFilter{})
	rq.NoError(err)
	rq.Len(listings, 2)
}
