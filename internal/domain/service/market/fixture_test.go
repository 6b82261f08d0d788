package market_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"gift_market/internal/domain/entity"
	"gift_market/internal/domain/ledger"
	"gift_market/internal/domain/service/market"
	"gift_market/internal/domain/service/settlement"
	"gift_market/internal/domain/value"
	"gift_market/internal/infrastructure/memstore"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type notifierMock struct {
	mu     sync.Mutex
	admins []string
	users  map[int64][]string
}

func (n *notifierMock) Notify(_ context.Context, audience value.Audience, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if audience == value.AudienceAdmins {
		n.admins = append(n.admins, text)
	}
	return nil
}

func (n *notifierMock) NotifyUser(_ context.Context, userID int64, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.users == nil {
		n.users = make(map[int64][]string)
	}
	n.users[userID] = append(n.users[userID], text)
	return nil
}

func (n *notifierMock) AdminCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.admins)
}

type outboxMock struct {
	mu         sync.Mutex
	deliveries []entity.Delivery
}

func (o *outboxMock) Dispatch(_ context.Context, deliveries ...entity.Delivery) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.deliveries = append(o.deliveries, deliveries...)
	return len(deliveries)
}

type fixture struct {
	store      *memstore.Store
	clock      *clock
	notifier   *notifierMock
	outbox     *outboxMock
	prices     value.PriceList
	privileges value.Privileges
	service    *market.Service
}

const (
	sellerID   int64 = 1
	buyerID    int64 = 2
	referrerID int64 = 3
	otherID    int64 = 4
	vipID      int64 = 5
)

func newFixture(t *testing.T) *fixture {
	t.Helper()

	c := &clock{now: time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)}
	prices := value.DefaultPriceList()
	privileges := value.NewPrivileges([]int64{vipID}, nil)

	f := &fixture{
		store:      memstore.New().WithClock(c.Now),
		clock:      c,
		notifier:   &notifierMock{},
		outbox:     &outboxMock{},
		prices:     prices,
		privileges: privileges,
	}
	f.useSettler(settlement.New(prices, privileges))

	for id, balance := range map[int64]string{
		sellerID:   "1",
		buyerID:    "15",
		referrerID: "0",
		otherID:    "15",
		vipID:      "0",
	} {
		f.store.PutUser(entity.User{
			ID:             id,
			Username:       "user",
			Balance:        d(balance),
			DepositComment: decimal.NewFromInt(id).String(),
		})
	}

	return f
}

// useSettler пересобирает сервис поверх того же хранилища.
func (f *fixture) useSettler(settler market.Settler) {
	f.service = market.NewService(
		f.store,
		f.prices,
		f.privileges,
		settler,
		f.outbox,
		f.notifier,
	).WithAssetHost("nft.fragment.com").WithClock(f.clock.Now)
}

// brokenSettler успевает начислить продавцу и только потом падает.
type brokenSettler struct {
	engine *settlement.Engine
}

func (b brokenSettler) Apply(
	ctx context.Context,
	tx ledger.Tx,
	sellerID int64,
	price decimal.Decimal,
	channel settlement.Channel,
) (settlement.Result, error) {
	if _, err := b.engine.Apply(ctx, tx, sellerID, price, channel); err != nil {
		return settlement.Result{}, err
	}
	return settlement.Result{}, errors.New("referral ledger unavailable")
}

func (f *fixture) createListing(t *testing.T, mutate ...func(*market.CreateInput)) entity.Listing {
	t.Helper()

	in := market.CreateInput{
		SellerID:   sellerID,
		Type:       "PlushPepe",
		Number:     1234,
		Attributes: value.GiftAttributes{ModelName: "Frog", Model: 1.5, Pattern: 0.8, Background: 1.2},
		ImageURL:   "https://nft.fragment.com/gift/plushpepe-1234.webp",
		Price:      d("10"),
	}
	for _, m := range mutate {
		m(&in)
	}

	l, err := f.service.Create(context.Background(), in)
	require.NoError(t, err)

	return l
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func requireAmount(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, d(want).Equal(got), "want %s, got %s", want, got)
}
