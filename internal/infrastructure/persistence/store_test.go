package persistence_test

import (
	"context"
	"os"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // golang postgres driver
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"gift_market/internal/domain"
	"gift_market/internal/domain/entity"
	"gift_market/internal/domain/ledger"
	"gift_market/internal/domain/value"
	"gift_market/internal/infrastructure/persistence"
	"gift_market/pkg/migrate"
	"gift_market/pkg/errcodes"
)

func newStore(t *testing.T) *persistence.Store {
	t.Helper()

	dsn := os.Getenv("PG_TEST_DSN")
	if dsn == "" {
		t.Skip("PG_TEST_DSN is not set")
	}

	db, err := sqlx.Connect("pgx", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, migrate.FromFiles(context.Background(), db, "../../../migrations/0001_init.sql"))

	_, err = db.Exec(`
		TRUNCATE bids, history, withdraw_requests, giveaways, gifts, referrals, users RESTART IDENTITY CASCADE;
		UPDATE deposit_cursor SET last_lt = 0;`)
	require.NoError(t, err)

	return persistence.NewStore(db)
}

func seedUsers(t *testing.T, store *persistence.Store, balances map[int64]string) {
	t.Helper()

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx ledger.Tx) error {
		for id, balance := range balances {
			u := entity.User{
				ID:             id,
				Username:       "user",
				Balance:        decimal.RequireFromString(balance),
				DepositComment: decimal.NewFromInt(id).String(),
			}
			if err := tx.CreateUser(ctx, &u); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func TestStore_ListingLifecycle(t *testing.T) {
	rq := require.New(t)
	store := newStore(t)
	ctx := context.Background()

	seedUsers(t, store, map[int64]string{1: "0", 2: "10"})

	listing := entity.Listing{
		Type:       "PlushPepe",
		Number:     777,
		Attributes: value.GiftAttributes{ModelName: "Frog", Model: 1, Pattern: 1, Background: 1},
		Rarity:     value.RarityLegend,
		ImageURL:   "https://nft.fragment.com/gift/plushpepe-777.webp",
		SellerID:   1,
		Price:      decimal.NewFromInt(5),
		Status:     value.StatusOnMarket,
		IsActive:   true,
	}

	err := store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		return tx.CreateListing(ctx, &listing)
	})
	rq.NoError(err)
	rq.NotZero(listing.ID)

	dup := listing
	err = store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		return tx.CreateListing(ctx, &dup)
	})
	rq.True(domain.HasCode(err, errcodes.AlreadyExist))

	err = store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		if _, err := tx.DebitBalance(ctx, 2, listing.Price); err != nil {
			return err
		}
		claimed, err := tx.ClaimListing(ctx, listing.ID, 2, decimal.Zero)
		if err != nil {
			return err
		}
		rq.Equal(value.StatusBuy, claimed.Status)
		rq.Equal(int64(2), claimed.BuyerID)
		return nil
	})
	rq.NoError(err)

	err = store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		_, err := tx.ClaimListing(ctx, listing.ID, 2, decimal.Zero)
		return err
	})
	rq.True(domain.HasCode(err, errcodes.OrderNotFound))

	err = store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		public, err := tx.ListListings(ctx, value.ListingFilter{})
		if err != nil {
			return err
		}
		rq.Empty(public)

		own, err := tx.ListListings(ctx, value.ListingFilter{SellerID: 1, IncludeInactive: true})
		if err != nil {
			return err
		}
		rq.Len(own, 1)
		return nil
	})
	rq.NoError(err)

	err = store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		_, err := tx.DebitBalance(ctx, 2, decimal.NewFromInt(100))
		return err
	})
	rq.True(domain.HasCode(err, errcodes.NotEnoughBalance))

	err = store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		reopened, err := tx.ReopenOrder(ctx, listing.ID, value.StatusBuy, 2)
		if err != nil {
			return err
		}
		rq.Equal(value.StatusOnMarket, reopened.Status)
		rq.Zero(reopened.BuyerID)
		return nil
	})
	rq.NoError(err)
}

func TestStore_DepositCursor(t *testing.T) {
	rq := require.New(t)
	store := newStore(t)
	ctx := context.Background()

	err := store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		lt, err := tx.GetDepositCursor(ctx)
		if err != nil {
			return err
		}
		rq.Zero(lt)
		return tx.AdvanceDepositCursor(ctx, lt, 42)
	})
	rq.NoError(err)

	err = store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		return tx.AdvanceDepositCursor(ctx, 0, 43)
	})
	rq.True(domain.HasCode(err, errcodes.StaleState))
}

func TestStore_Giveaway(t *testing.T) {
	rq := require.New(t)
	store := newStore(t)
	ctx := context.Background()

	seedUsers(t, store, map[int64]string{1: "0", 2: "0", 3: "0"})

	g := entity.Giveaway{
		CreatorID:       1,
		Type:            value.GiveawayFree,
		GiftIDs:         []int64{},
		Channels:        []string{"gifts"},
		QuantityMembers: 1,
		EndTime:         time.Now().Add(time.Hour),
		Price:           decimal.Zero,
	}

	rq.NoError(store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		return tx.CreateGiveaway(ctx, &g)
	}))

	rq.NoError(store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		joined, err := tx.AddParticipant(ctx, g.ID, 2, 0, time.Now())
		if err != nil {
			return err
		}
		rq.Equal([]int64{2}, joined.ParticipantIDs)
		rq.Equal([]int64{0}, joined.ReferrerIDs)
		return nil
	}))

	err := store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		_, err := tx.AddParticipant(ctx, g.ID, 3, 2, time.Now())
		return err
	})
	rq.True(domain.HasCode(err, errcodes.GiveawayClosed))
}
