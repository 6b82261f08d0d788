package server_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"git.appkode.ru/pub/go/failure"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"gift_market/internal/domain/entity"
	"gift_market/internal/domain/service/account"
	"gift_market/internal/domain/service/giveaway"
	"gift_market/internal/domain/service/market"
	"gift_market/internal/domain/service/settlement"
	"gift_market/internal/domain/value"
	"gift_market/internal/infrastructure/auth"
	"gift_market/internal/infrastructure/memstore"
	"gift_market/internal/server"
	"gift_market/pkg/errcodes"
	"gift_market/pkg/middlewarex"
	"gift_market/pkg/rest"
	"gift_market/pkg/tests"
)

const (
	botToken       = "1234567890:test-token"
	depositAddress = "EQCD39VS5jcptHL8vMjEXrzGaRcCVYto7HUn4bpAOg8xqB2N"
	sellerID       = int64(101)
	buyerID        = int64(202)
)

type notifierMock struct{}

func (notifierMock) Notify(context.Context, value.Audience, string) error { return nil }
func (notifierMock) NotifyUser(context.Context, int64, string) error      { return nil }
func (notifierMock) NotifyChannel(context.Context, string, string) error  { return nil }

type outboxMock struct{}

func (outboxMock) Dispatch(_ context.Context, deliveries ...entity.Delivery) int {
	return len(deliveries)
}

type walletsMock struct{}

func (walletsMock) ValidateAddress(string) error { return nil }

type subscribedMock struct{}

func (subscribedMock) IsSubscribed(context.Context, string, int64) (bool, error) { return true, nil }

type fixture struct {
	store  *memstore.Store
	client tests.APIClient
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memstore.New()
	prices := value.DefaultPriceList()
	privileges := value.NewPrivileges(nil, nil)

	marketService := market.NewService(
		store,
		prices,
		privileges,
		settlement.New(prices, privileges),
		outboxMock{},
		notifierMock{},
	).WithAssetHost("nft.fragment.com")

	tokens := auth.NewTokens("secret", time.Hour)

	srv := server.NewServer(
		server.NewMarketServer(marketService),
		server.NewGiveawayServer(giveaway.NewService(store, subscribedMock{}, outboxMock{}, notifierMock{})),
		server.NewUserServer(
			account.NewService(store, walletsMock{}, notifierMock{}, "gift_market_bot"),
			tokens,
			server.InitDataOptions{BotToken: botToken, MaxAge: time.Hour},
			depositAddress,
		),
	)

	r := chi.NewRouter()
	srv.RegisterRoutes(r, server.Middlewares{
		Auth:      middlewarex.Auth(tokens),
		RateLimit: middlewarex.RateLimit(rate.Inf, 1),
	})

	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)

	return &fixture{
		store:  store,
		client: tests.NewAPIClient(ts.URL, ts.Client()),
	}
}

func initData(userID int64, username string) string {
	params := url.Values{}
	params.Set("auth_date", strconv.FormatInt(time.Now().Unix(), 10))
	params.Set("user", `{"id":`+strconv.FormatInt(userID, 10)+`,"first_name":"`+username+`","username":"`+username+`"}`)

	return tests.SignInitData(params, botToken)
}

// login входит пользователем и пополняет ему баланс.
func (f *fixture) login(t *testing.T, userID int64, username, balance string) http.Header {
	t.Helper()

	rq := require.New(t)

	var res rest.LoginResponse

	resp, err := f.client.Post(context.Background(), "/v1/user/login", nil,
		rest.LoginRequest{InitData: initData(userID, username)}, &res, nil)
	rq.NoError(err)
	rq.Equal(http.StatusOK, resp.StatusCode)
	rq.Equal(userID, res.Profile.ID)
	rq.NotEmpty(res.AccessToken)

	u := f.store.User(userID)
	u.Balance = decimal.RequireFromString(balance)
	f.store.PutUser(u)

	return http.Header{"Authorization": []string{"Bearer " + res.AccessToken}}
}

func TestOrderFlow(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	f := newFixture(t)

	seller := f.login(t, sellerID, "seller", "1")
	buyer := f.login(t, buyerID, "buyer", "20")

	var listing rest.Listing

	resp, err := f.client.Post(ctx, "/v1/market/listings", seller, rest.CreateListingRequest{
		Type:     "PlushPepe",
		Number:   77,
		ImageURL: "https://nft.fragment.com/gift/plushpepe-77.webp",
		Price:    decimal.NewFromInt(10),
		Attributes: rest.Attributes{
			ModelName:  "Gold",
			Model:      1,
			Pattern:    0.5,
			Background: 0.3,
		},
	}, &listing, nil)
	rq.NoError(err)
	rq.Equal(http.StatusCreated, resp.StatusCode)
	rq.Equal(string(value.StatusOnMarket), listing.Status)

	var listings []rest.Listing

	resp, err = f.client.Get(ctx, "/v1/market/listings?sort=price_asc&type=PlushPepe", buyer, &listings, nil)
	rq.NoError(err)
	rq.Equal(http.StatusOK, resp.StatusCode)
	rq.Len(listings, 1)

	path := "/v1/market/listings/" + strconv.FormatInt(listing.ID, 10)

	steps := []struct {
		action string
		as     http.Header
		want   value.OrderStatus
	}{
		{action: "/buy", as: buyer, want: value.StatusBuy},
		{action: "/accept", as: seller, want: value.StatusSellerAccept},
		{action: "/confirm", as: seller, want: value.StatusGiftTransferred},
		{action: "/receive", as: buyer, want: value.StatusGiftReceived},
	}

	for _, step := range steps {
		var got rest.Listing

		resp, err := f.client.Post(ctx, path+step.action, step.as, nil, &got, nil)
		rq.NoError(err)
		rq.Equal(http.StatusOK, resp.StatusCode, step.action)
		rq.Equal(string(step.want), got.Status, step.action)
	}

	rq.True(decimal.NewFromInt(10).Equal(f.store.Balance(buyerID)))
	rq.True(decimal.RequireFromString("10").Equal(f.store.Balance(sellerID)))

	var history []rest.HistoryRecord

	resp, err = f.client.Get(ctx, "/v1/user/history", seller, &history, nil)
	rq.NoError(err)
	rq.Equal(http.StatusOK, resp.StatusCode)
	rq.NotEmpty(history)
}

func TestErrors(t *testing.T) {
	f := newFixture(t)
	user := f.login(t, buyerID, "buyer", "1")

	testCases := []struct {
		name       string
		method     string
		path       string
		headers    http.Header
		body       any
		wantStatus int
		wantCode   failure.ErrorCode
	}{
		{
			name:       "No token",
			method:     http.MethodGet,
			path:       "/v1/user/me",
			wantStatus: http.StatusUnauthorized,
			wantCode:   errcodes.Unauthorized,
		},
		{
			name:       "Bad token",
			method:     http.MethodGet,
			path:       "/v1/user/me",
			headers:    http.Header{"Authorization": []string{"Bearer nope"}},
			wantStatus: http.StatusUnauthorized,
			wantCode:   errcodes.Unauthorized,
		},
		{
			name:       "Unknown listing",
			method:     http.MethodPost,
			path:       "/v1/market/listings/999/buy",
			headers:    user,
			wantStatus: http.StatusNotFound,
			wantCode:   errcodes.OrderNotFound,
		},
		{
			name:       "Bad id",
			method:     http.MethodPost,
			path:       "/v1/market/listings/abc/buy",
			headers:    user,
			wantStatus: http.StatusBadRequest,
			wantCode:   errcodes.ValidationError,
		},
		{
			name:       "Bad sort",
			method:     http.MethodGet,
			path:       "/v1/market/listings?sort=random",
			headers:    user,
			wantStatus: http.StatusBadRequest,
			wantCode:   errcodes.ValidationError,
		},
		{
			name:       "Withdraw more than balance",
			method:     http.MethodPost,
			path:       "/v1/user/withdraw",
			headers:    user,
			body:       rest.WithdrawRequest{Amount: decimal.NewFromInt(5), Wallet: depositAddress},
			wantStatus: http.StatusBadRequest,
			wantCode:   errcodes.NotEnoughBalance,
		},
		{
			name:       "Forged init data",
			method:     http.MethodPost,
			path:       "/v1/user/login",
			body:       rest.LoginRequest{InitData: "user=%7B%22id%22%3A1%7D&hash=00"},
			wantStatus: http.StatusUnauthorized,
			wantCode:   errcodes.Unauthorized,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rq := require.New(t)
			ctx := context.Background()

			var (
				errDest rest.Error
				resp    *http.Response
				err     error
			)

			switch tc.method {
			case http.MethodGet:
				resp, err = f.client.Get(ctx, tc.path, tc.headers, nil, &errDest)
			default:
				resp, err = f.client.Post(ctx, tc.path, tc.headers, tc.body, nil, &errDest)
			}

			rq.NoError(err)
			rq.Equal(tc.wantStatus, resp.StatusCode)
			rq.Equal(string(tc.wantCode), string(errDest.Code))
		})
	}
}

func TestDepositAddress(t *testing.T) {
	rq := require.New(t)
	f := newFixture(t)
	user := f.login(t, buyerID, "buyer", "0")

	var res rest.DepositAddress

	resp, err := f.client.Get(context.Background(), "/v1/user/deposit-address", user, &res, nil)
	rq.NoError(err)
	rq.Equal(http.StatusOK, resp.StatusCode)
	rq.Equal(depositAddress, res.Address)
	rq.Equal(f.store.User(buyerID).DepositComment, res.Comment)
	rq.Len(res.Comment, 8)
}

func TestListingManagement(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	f := newFixture(t)

	seller := f.login(t, sellerID, "seller", "1")
	stranger := f.login(t, buyerID, "buyer", "1")

	var listing rest.Listing

	resp, err := f.client.Post(ctx, "/v1/market/listings", seller, rest.CreateListingRequest{
		Type:       "SnoopDogg",
		Number:     12345,
		ImageURL:   "https://nft.fragment.com/gift/snoopdogg-12345.webp",
		Price:      decimal.NewFromInt(10),
		Attributes: rest.Attributes{Model: 2, Pattern: 1, Background: 1},
	}, &listing, nil)
	rq.NoError(err)
	rq.Equal(http.StatusCreated, resp.StatusCode)

	path := "/v1/market/listings/" + strconv.FormatInt(listing.ID, 10)

	var errDest rest.Error

	resp, err = f.client.Put(ctx, path+"/price", stranger, rest.PriceRequest{Price: decimal.NewFromInt(1)}, nil, &errDest)
	rq.NoError(err)
	rq.Equal(http.StatusNotFound, resp.StatusCode)
	rq.Equal(string(errcodes.OrderNotFound), string(errDest.Code))

	var got rest.Listing

	resp, err = f.client.Put(ctx, path+"/price", seller, rest.PriceRequest{Price: decimal.NewFromInt(12)}, &got, nil)
	rq.NoError(err)
	rq.Equal(http.StatusOK, resp.StatusCode)
	rq.True(decimal.NewFromInt(12).Equal(got.Price))

	resp, err = f.client.Put(ctx, path+"/active", seller, rest.ActiveRequest{IsActive: false}, &got, nil)
	rq.NoError(err)
	rq.Equal(http.StatusOK, resp.StatusCode)
	rq.False(got.IsActive)

	resp, err = f.client.PostJSON(ctx, path+"/bids", seller, `{"amount":`, nil, &errDest)
	rq.NoError(err)
	rq.Equal(http.StatusBadRequest, resp.StatusCode)
	rq.Equal(string(errcodes.ValidationError), string(errDest.Code))

	resp, err = f.client.Delete(ctx, path, seller, nil, nil)
	rq.NoError(err)
	rq.Equal(http.StatusOK, resp.StatusCode)

	_, ok := f.store.Listing(listing.ID)
	rq.False(ok)
	rq.True(decimal.NewFromInt(1).Equal(f.store.Balance(sellerID)))
}

func TestCartBuy(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	f := newFixture(t)

	seller := f.login(t, sellerID, "seller", "1")
	buyer := f.login(t, buyerID, "buyer", "20")

	ids := make([]int64, 0, 2)
	for i, price := range []int64{4, 5} {
		var listing rest.Listing

		resp, err := f.client.Post(ctx, "/v1/market/listings", seller, rest.CreateListingRequest{
			Type:       "LootBag",
			Number:     300 + i,
			ImageURL:   "https://nft.fragment.com/gift/lootbag.webp",
			Price:      decimal.NewFromInt(price),
			Attributes: rest.Attributes{Model: 1, Pattern: 1, Background: 1},
		}, &listing, nil)
		rq.NoError(err)
		rq.Equal(http.StatusCreated, resp.StatusCode)
		ids = append(ids, listing.ID)
	}

	var res rest.CartBuyResponse

	resp, err := f.client.Post(ctx, "/v1/market/cart/buy", buyer, rest.CartBuyRequest{Items: []rest.CartItem{
		{ID: ids[0], Price: decimal.NewFromInt(4)},
		{ID: ids[1], Price: decimal.NewFromInt(3)},
	}}, &res, nil)
	rq.NoError(err)
	rq.Equal(http.StatusOK, resp.StatusCode)
	rq.False(res.Success)
	rq.Len(res.Cart, 2)
	rq.True(decimal.NewFromInt(5).Equal(res.Cart[1].Price))

	resp, err = f.client.Post(ctx, "/v1/market/cart/buy", buyer, rest.CartBuyRequest{Items: []rest.CartItem{
		{ID: ids[0], Price: decimal.NewFromInt(4)},
		{ID: ids[1], Price: decimal.NewFromInt(5)},
	}}, &res, nil)
	rq.NoError(err)
	rq.Equal(http.StatusOK, resp.StatusCode)
	rq.True(res.Success)
	rq.True(decimal.NewFromInt(11).Equal(f.store.Balance(buyerID)))

	// Ордера в эскроу пропадают с витрины.
	var listings []rest.Listing

	resp, err = f.client.Get(ctx, "/v1/market/listings", buyer, &listings, nil)
	rq.NoError(err)
	rq.Equal(http.StatusOK, resp.StatusCode)
	rq.Empty(listings)
}
