package market

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"gift_market/internal/domain"
	"gift_market/internal/domain/entity"
	"gift_market/internal/domain/ledger"
	"gift_market/internal/domain/service/settlement"
	"gift_market/internal/domain/value"
	"gift_market/internal/metrics"
	"gift_market/pkg/errcodes"
	"gift_market/pkg/logx"
)

// Bid принимает ставку. Предыдущий лидер получает свою ставку обратно в той
// же транзакции, в которой списывается новая; ставка поверх своей же
// сводится к доплате разницы.
func (s *Service) Bid(ctx context.Context, bidderID, listingID int64, amount decimal.Decimal) (entity.Listing, error) {
	amount = amount.Truncate(value.MoneyPrecision)
	if !amount.IsPositive() {
		return entity.Listing{}, domain.NewError(errcodes.InvalidAmount, "bid must be positive")
	}

	var (
		before  entity.Listing
		updated entity.Listing
	)

	now := s.now()

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		var err error

		bidder, err := tx.GetUser(ctx, bidderID)
		if err != nil {
			return err
		}
		if bidder.Username == "" {
			return domain.NewError(errcodes.NotUsername, "missing username")
		}

		before, err = tx.GetListing(ctx, listingID)
		if err != nil {
			return err
		}

		if err := s.checkBid(before, bidderID, amount, now); err != nil {
			return err
		}

		if before.HasBuyer() {
			if _, err := tx.AddBalance(ctx, before.BuyerID, before.Price); err != nil {
				return fmt.Errorf("refund outbid: %w", err)
			}
		}

		prev := ledger.BidState{Price: before.Price, BuyerID: before.BuyerID}

		updated, err = tx.PlaceBid(ctx, listingID, prev, bidderID, amount, now)
		if err != nil {
			return err
		}

		if _, err := tx.DebitBalance(ctx, bidderID, amount); err != nil {
			return err
		}

		if err := tx.InsertBid(ctx, &entity.Bid{ListingID: listingID, BuyerID: bidderID, Amount: amount}); err != nil {
			return fmt.Errorf("insert bid: %w", err)
		}

		return tx.AppendHistory(ctx, &entity.HistoryRecord{
			UserID:    bidderID,
			Type:      value.HistoryBid,
			Price:     amount,
			Gift:      updated.GiftRef(),
			ModelName: updated.Attributes.ModelName,
			ListingID: updated.ID,
		})
	})
	if err != nil {
		return entity.Listing{}, fmt.Errorf("bid: %w", err)
	}

	metrics.BidsAccepted.Inc()

	logger(ctx).Info("bid accepted",
		slog.Int64(logx.FieldListingID, listingID),
		slog.Int64("bidder_id", bidderID),
		logx.Money(logx.FieldAmount, amount),
	)

	if before.HasBuyer() && before.BuyerID != bidderID {
		s.notifyUser(ctx, before.BuyerID, fmt.Sprintf(
			"Your bid on %s was outbid, %s TON returned to your balance.", before.GiftRef(), before.Price,
		))
	}

	return updated, nil
}

func (s *Service) checkBid(l entity.Listing, bidderID int64, amount decimal.Decimal, now time.Time) error {
	switch {
	case !l.IsActive || l.IsCompleted:
		return domain.NewError(errcodes.OrderNotFound, "order not found")
	case !l.IsAuction():
		return domain.NewError(errcodes.AuctionBid, "not an auction")
	case l.AuctionEnded(now):
		return domain.NewError(errcodes.AuctionBid, "auction is over")
	case l.SellerID == bidderID:
		return domain.NewError(errcodes.NotAccess, "cannot bid on own auction")
	}

	if minBid := s.prices.MinNextBid(l.Price, l.MinStep.Decimal); amount.LessThan(minBid) {
		return domain.NewError(errcodes.AuctionBid, "bid is too low")
	}

	return nil
}

// ListBids — история ставок лота, последние первыми.
func (s *Service) ListBids(ctx context.Context, listingID int64) ([]entity.Bid, error) {
	var bids []entity.Bid

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		if _, err := tx.GetListing(ctx, listingID); err != nil {
			return err
		}

		var err error
		bids, err = tx.ListBids(ctx, listingID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list bids: %w", err)
	}

	return bids, nil
}

type FinalizeResult struct {
	Completed int
	Withdrawn int
	Failed    int
}

// FinalizeAuctions закрывает истёкшие аукционы, каждый в своей транзакции.
// Ошибка одного аукциона не останавливает остальные.
func (s *Service) FinalizeAuctions(ctx context.Context) (FinalizeResult, error) {
	var (
		ended  []entity.Listing
		result FinalizeResult
	)

	now := s.now()

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		var err error
		ended, err = tx.ListEndedAuctions(ctx, now, s.sweepBatch)
		return err
	})
	if err != nil {
		return result, fmt.Errorf("list ended auctions: %w", err)
	}

	for _, l := range ended {
		completed, err := s.finalizeAuction(ctx, l.ID)
		switch {
		case err != nil:
			result.Failed++
			logger(ctx).Error("finalize auction", slog.Int64(logx.FieldListingID, l.ID), logx.Error(err))
		case completed:
			result.Completed++
		default:
			result.Withdrawn++
		}
	}

	if len(ended) > 0 {
		logger(ctx).Info("auctions finalized",
			slog.Int("completed", result.Completed),
			slog.Int("withdrawn", result.Withdrawn),
			slog.Int("failed", result.Failed),
		)
	}

	return result, nil
}

func (s *Service) finalizeAuction(ctx context.Context, listingID int64) (bool, error) {
	var (
		won entity.Listing
		res settlement.Result
	)

	now := s.now()

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		l, err := tx.GetListing(ctx, listingID)
		if err != nil {
			return err
		}

		if !l.HasBuyer() {
			_, err = tx.WithdrawAuction(ctx, listingID)
			return err
		}

		won, err = tx.CompleteAuction(ctx, listingID, l.BuyerID, now)
		if err != nil {
			return err
		}

		res, err = s.settler.Apply(ctx, tx, won.SellerID, won.Price, settlement.ChannelAuction)
		if err != nil {
			return err
		}

		return appendSaleHistory(ctx, tx, won, value.HistoryAuctionWon)
	})
	if err != nil {
		return false, err
	}

	if !won.HasBuyer() {
		return false, nil
	}

	settlement.Observe(res, settlement.ChannelAuction)
	metrics.OrderTransitions.WithLabelValues(string(value.StatusGiftReceived)).Inc()

	s.outbox.Dispatch(ctx, entity.NewDelivery(won))

	s.notifyUser(ctx, won.BuyerID, fmt.Sprintf("You won the auction for %s at %s TON.", won.GiftRef(), won.Price))
	s.notifyUser(ctx, won.SellerID, fmt.Sprintf(
		"Auction for %s finished at %s TON, %s TON credited.", won.GiftRef(), won.Price, res.SellerCredit,
	))

	return true, nil
}
