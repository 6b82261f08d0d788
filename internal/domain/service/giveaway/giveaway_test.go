package giveaway_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"gift_market/internal/domain"
	"gift_market/internal/domain/entity"
	"gift_market/internal/domain/service/giveaway"
	"gift_market/internal/domain/value"
	"gift_market/internal/infrastructure/memstore"
	"gift_market/pkg/errcodes"
)

const creatorID int64 = 100

type checkerMock struct {
	unsubscribed map[int64]bool
}

func (c checkerMock) IsSubscribed(_ context.Context, _ string, userID int64) (bool, error) {
	return !c.unsubscribed[userID], nil
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

type notifierMock struct {
	mu       sync.Mutex
	users    []int64
	channels map[string][]string
}

func (n *notifierMock) NotifyChannel(_ context.Context, channel, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.channels == nil {
		n.channels = make(map[string][]string)
	}
	n.channels[channel] = append(n.channels[channel], text)
	return nil
}

func (n *notifierMock) NotifyUser(_ context.Context, userID int64, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.users = append(n.users, userID)
	return nil
}

type fixture struct {
	store    *memstore.Store
	now      time.Time
	checker  checkerMock
	outbox   *outboxMock
	notifier *notifierMock
	service  *giveaway.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store:   memstore.New(),
		now:     time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		checker:  checkerMock{unsubscribed: map[int64]bool{}},
		outbox:   &outboxMock{},
		notifier: &notifierMock{},
	}
	f.store.WithClock(func() time.Time { return f.now })

	f.service = giveaway.NewService(f.store, f.checker, f.outbox, f.notifier).
		WithClock(func() time.Time { return f.now })

	f.store.PutUser(entity.User{ID: creatorID, Username: "creator", Balance: decimal.Zero})
	for id := int64(1); id <= 5; id++ {
		f.store.PutUser(entity.User{ID: id, Username: "user", Balance: decimal.NewFromInt(3)})
	}

	return f
}

func (f *fixture) putGifts(n int) []int64 {
	ids := make([]int64, 0, n)
	for i := range n {
		ids = append(ids, f.store.PutListing(entity.Listing{
			Type:     "LootBag",
			Number:   500 + i,
			SellerID: creatorID,
			Price:    decimal.NewFromInt(1),
			Status:   value.StatusOnMarket,
		}))
	}
	return ids
}

func (f *fixture) create(t *testing.T, gifts []int64, mutate ...func(*giveaway.CreateInput)) entity.Giveaway {
	t.Helper()

	in := giveaway.CreateInput{
		CreatorID: creatorID,
		Type:      value.GiveawayFree,
		GiftIDs:   gifts,
		Channels:  []string{"@gifts_channel"},
		EndTime:   f.now.Add(time.Hour),
		Price:     decimal.Zero,
	}
	for _, m := range mutate {
		m(&in)
	}

	g, err := f.service.Create(context.Background(), in)
	require.NoError(t, err)

	return g
}

func TestService_Create(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	f := newFixture(t)

	gifts := f.putGifts(2)
	g := f.create(t, gifts)
	rq.Equal(gifts, g.GiftIDs)
	rq.Equal([]string{"gifts_channel"}, g.Channels)

	for _, id := range gifts {
		l, _ := f.store.Listing(id)
		rq.True(l.IsCompleted)
	}

	// Те же подарки второй раз не резервируются.
	_, err := f.service.Create(ctx, giveaway.CreateInput{
		CreatorID: creatorID,
		Type:      value.GiveawayFree,
		GiftIDs:   gifts,
		EndTime:   f.now.Add(time.Hour),
	})
	rq.True(domain.HasCode(err, errcodes.OrderNotFound))

	_, err = f.service.Create(ctx, giveaway.CreateInput{
		CreatorID: creatorID,
		Type:      value.GiveawayPaid,
		GiftIDs:   f.putGifts(1),
		EndTime:   f.now.Add(time.Hour),
	})
	rq.True(domain.HasCode(err, errcodes.InvalidAmount))

	_, err = f.service.Create(ctx, giveaway.CreateInput{
		CreatorID: creatorID,
		Type:      value.GiveawayFree,
		GiftIDs:   f.putGifts(1),
		EndTime:   f.now.Add(-time.Minute),
	})
	rq.True(domain.HasCode(err, errcodes.InvalidOrder))
}

func TestService_Join(t *testing.T) {
	testCases := []struct {
		name     string
		prepare  func(f *fixture, g entity.Giveaway)
		userID   int64
		wantCode string
	}{
		{
			name:   "Joined",
			userID: 1,
		},
		{
			name:     "Not subscribed",
			prepare:  func(f *fixture, _ entity.Giveaway) { f.checker.unsubscribed[1] = true },
			userID:   1,
			wantCode: string(errcodes.GiveawaySubscribe),
		},
		{
			name: "Already joined",
			prepare: func(f *fixture, g entity.Giveaway) {
				_, err := f.service.Join(context.Background(), g.ID, 1, 0)
				if err != nil {
					panic(err)
				}
			},
			userID:   1,
			wantCode: string(errcodes.GiveawayJoined),
		},
		{
			name:     "Ended",
			prepare:  func(f *fixture, _ entity.Giveaway) { f.now = f.now.Add(2 * time.Hour) },
			userID:   1,
			wantCode: string(errcodes.GiveawayClosed),
		},
		{
			name:     "Creator",
			userID:   creatorID,
			wantCode: string(errcodes.NotAccess),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rq := require.New(t)
			f := newFixture(t)
			g := f.create(t, f.putGifts(1))

			if tc.prepare != nil {
				tc.prepare(f, g)
			}

			joined, err := f.service.Join(context.Background(), g.ID, tc.userID, 0)
			if tc.wantCode != "" {
				rq.Error(err)
				code, _ := domain.GetCode(err)
				rq.Equal(tc.wantCode, string(code))
				return
			}

			rq.NoError(err)
			rq.True(joined.HasParticipant(tc.userID))
		})
	}
}

func TestService_JoinCapacityAndReferrer(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	f := newFixture(t)

	g := f.create(t, f.putGifts(1), func(in *giveaway.CreateInput) { in.QuantityMembers = 2 })

	_, err := f.service.Join(ctx, g.ID, 1, 0)
	rq.NoError(err)

	// Реферер, не участвующий в розыгрыше, игнорируется.
	joined, err := f.service.Join(ctx, g.ID, 2, 4)
	rq.NoError(err)
	rq.Equal([]int64{0, 0}, joined.ReferrerIDs)

	_, err = f.service.Join(ctx, g.ID, 3, 1)
	rq.True(domain.HasCode(err, errcodes.GiveawayClosed))
}

func TestService_JoinPaid(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	f := newFixture(t)

	g := f.create(t, f.putGifts(1), func(in *giveaway.CreateInput) {
		in.Type = value.GiveawayPaid
		in.Price = decimal.NewFromInt(2)
	})

	_, err := f.service.Join(ctx, g.ID, 1, 0)
	rq.NoError(err)
	rq.True(decimal.NewFromInt(1).Equal(f.store.Balance(1)))
	rq.True(decimal.NewFromInt(2).Equal(f.store.Balance(creatorID)))

	f.store.PutUser(entity.User{ID: 6, Username: "poor", Balance: decimal.NewFromInt(1)})
	_, err = f.service.Join(ctx, g.ID, 6, 1)
	rq.True(domain.HasCode(err, errcodes.NotEnoughBalance))
	rq.False(f.store.Giveaway(g.ID).HasParticipant(6))
}

func TestService_FinalizeGiveaways(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	f := newFixture(t)

	drawn := f.create(t, f.putGifts(3))
	for id := int64(1); id <= 5; id++ {
		_, err := f.service.Join(ctx, drawn.ID, id, 0)
		rq.NoError(err)
	}

	emptyGifts := f.putGifts(2)
	empty := f.create(t, emptyGifts)

	f.now = f.now.Add(2 * time.Hour)

	res, err := f.service.FinalizeGiveaways(ctx)
	rq.NoError(err)
	rq.Equal(giveaway.FinalizeResult{Drawn: 1, Cancelled: 1}, res)

	got := f.store.Giveaway(drawn.ID)
	rq.True(got.IsCompleted)
	rq.Equal([]int64{1, 2, 3}, got.WinnerIDs)

	for i, giftID := range drawn.GiftIDs {
		l, _ := f.store.Listing(giftID)
		rq.Equal(got.WinnerIDs[i], l.BuyerID)
		rq.Equal(value.StatusGiftReceived, l.Status)
	}
	rq.Len(f.outbox.deliveries, 3)

	// Итоги публикуются только для проведённого розыгрыша, один раз на канал.
	rq.Len(f.notifier.channels, 1)
	rq.Len(f.notifier.channels["gifts_channel"], 1)
	announcement := f.notifier.channels["gifts_channel"][0]
	rq.Contains(announcement, "Participants: 5")
	rq.Contains(announcement, "LootBag-500, LootBag-501, LootBag-502")
	rq.Contains(announcement, "Winners: 3")

	rq.True(f.store.Giveaway(empty.ID).IsCompleted)
	for _, giftID := range emptyGifts {
		l, _ := f.store.Listing(giftID)
		rq.False(l.IsCompleted)
		rq.False(l.HasBuyer())
	}

	res, err = f.service.FinalizeGiveaways(ctx)
	rq.NoError(err)
	rq.Equal(giveaway.FinalizeResult{}, res)
}

func TestService_FinalizeMoreGiftsThanParticipants(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	f := newFixture(t)

	g := f.create(t, f.putGifts(5))
	for id := int64(1); id <= 3; id++ {
		_, err := f.service.Join(ctx, g.ID, id, 0)
		rq.NoError(err)
	}

	f.now = f.now.Add(2 * time.Hour)

	_, err := f.service.FinalizeGiveaways(ctx)
	rq.NoError(err)

	winners := f.store.Giveaway(g.ID).WinnerIDs
	rq.Len(winners, 5)
	for id := int64(1); id <= 3; id++ {
		rq.Contains(winners, id)
	}
}

func TestService_GetChances(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	f := newFixture(t)

	g := f.create(t, f.putGifts(1))
	_, err := f.service.Join(ctx, g.ID, 1, 0)
	rq.NoError(err)
	_, err = f.service.Join(ctx, g.ID, 2, 1)
	rq.NoError(err)

	view, err := f.service.Get(ctx, g.ID)
	rq.NoError(err)
	rq.InDelta(75.0, view.Chances[1], 1e-9)
	rq.InDelta(50.0, view.Chances[2], 1e-9)

	_, err = f.service.Get(ctx, 9999)
	rq.True(domain.HasCode(err, errcodes.GiveawayNotFound))
}
