package market_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gift_market/internal/domain/service/market"
	"gift_market/internal/domain/service/settlement"
	"gift_market/internal/domain/value"
)

func TestService_AcceptReceiptRollsBackOnSettlementError(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	l := f.createListing(t)

	_, err := f.service.Buy(ctx, buyerID, l.ID)
	rq.NoError(err)
	_, err = f.service.SellerAccept(ctx, sellerID, l.ID)
	rq.NoError(err)
	_, err = f.service.ConfirmTransfer(ctx, sellerID, l.ID)
	rq.NoError(err)

	historyBefore := len(f.store.History())

	f.useSettler(brokenSettler{engine: settlement.New(f.prices, f.privileges)})

	_, err = f.service.AcceptReceipt(ctx, buyerID, l.ID)
	rq.Error(err)

	got, _ := f.store.Listing(l.ID)
	rq.Equal(value.StatusGiftTransferred, got.Status)
	rq.False(got.IsCompleted)
	rq.Nil(got.CompletedOrderDate)
	requireAmount(t, "0.5", f.store.Balance(sellerID))
	requireAmount(t, "5", f.store.Balance(buyerID))
	rq.Len(f.store.History(), historyBefore)

	// Повтор после восстановления расчёта проходит штатно.
	f.useSettler(settlement.New(f.prices, f.privileges))

	received, err := f.service.AcceptReceipt(ctx, buyerID, l.ID)
	rq.NoError(err)
	rq.Equal(value.StatusGiftReceived, received.Status)
	requireAmount(t, "10", f.store.Balance(sellerID))
}

func TestService_FinalizeAuctionsRollsBackOnSettlementError(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	l := f.createAuction(t, 12)

	_, err := f.service.Bid(ctx, buyerID, l.ID, d("11"))
	rq.NoError(err)

	historyBefore := len(f.store.History())
	f.clock.Advance(2 * time.Hour)

	f.useSettler(brokenSettler{engine: settlement.New(f.prices, f.privileges)})

	res, err := f.service.FinalizeAuctions(ctx)
	rq.NoError(err)
	rq.Equal(market.FinalizeResult{Failed: 1}, res)

	got, _ := f.store.Listing(l.ID)
	rq.Equal(value.StatusOnMarket, got.Status)
	rq.True(got.IsActive)
	rq.False(got.IsCompleted)
	rq.False(got.DeliveryPending)
	rq.Equal(buyerID, got.BuyerID)
	requireAmount(t, "0.5", f.store.Balance(sellerID))
	requireAmount(t, "4", f.store.Balance(buyerID))
	rq.Len(f.store.History(), historyBefore)
	rq.Empty(f.outbox.deliveries)

	f.useSettler(settlement.New(f.prices, f.privileges))

	res, err = f.service.FinalizeAuctions(ctx)
	rq.NoError(err)
	rq.Equal(market.FinalizeResult{Completed: 1}, res)
	requireAmount(t, "10.95", f.store.Balance(sellerID))
}
