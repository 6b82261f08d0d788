package market

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"gift_market/internal/domain"
	"gift_market/internal/domain/entity"
	"gift_market/internal/domain/ledger"
	"gift_market/internal/domain/value"
	"gift_market/internal/metrics"
	"gift_market/pkg/errcodes"
	"gift_market/pkg/logx"
)

const MaxCartSize = 20

// CartItem — ордер корзины и цена, которую видел покупатель.
type CartItem struct {
	ListingID int64
	Price     decimal.Decimal
}

// CartResult — итог покупки корзины. При Success == false ничего не куплено,
// а Listings содержит всё ещё доступные ордера с актуальными ценами.
type CartResult struct {
	Success  bool
	Listings []entity.Listing
}

// BuyCart покупает несколько ордеров в одной транзакции: либо все, либо ни одного.
// Если хоть один ордер ушёл с витрины или подорожал, покупка не выполняется.
func (s *Service) BuyCart(ctx context.Context, buyerID int64, items []CartItem) (CartResult, error) {
	if err := validateCart(items); err != nil {
		return CartResult{}, err
	}

	var result CartResult

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		buyer, err := tx.GetUser(ctx, buyerID)
		if err != nil {
			return err
		}
		if buyer.Username == "" {
			return domain.NewError(errcodes.NotUsername, "missing username")
		}

		available, stale, err := s.checkCart(ctx, tx, buyerID, items)
		if err != nil {
			return err
		}
		if stale {
			result = CartResult{Listings: available}
			return nil
		}

		claimed := make([]entity.Listing, 0, len(items))
		total := decimal.Zero

		for _, item := range items {
			l, err := tx.ClaimListing(ctx, item.ListingID, buyerID, s.prices.BuyerFee)
			if err != nil {
				return fmt.Errorf("claim %d: %w", item.ListingID, err)
			}
			claimed = append(claimed, l)
			total = total.Add(l.HeldAmount)
		}

		if _, err := tx.DebitBalance(ctx, buyerID, total); err != nil {
			return err
		}

		result = CartResult{Success: true, Listings: claimed}
		return nil
	})
	if err != nil {
		return CartResult{}, fmt.Errorf("buy cart: %w", err)
	}

	if !result.Success {
		logger(ctx).Info("cart is stale",
			slog.Int64(logx.FieldUserID, buyerID),
			slog.Int("items", len(items)),
			slog.Int("available", len(result.Listings)),
		)
		return result, nil
	}

	for _, l := range result.Listings {
		metrics.OrderTransitions.WithLabelValues(string(value.StatusBuy)).Inc()
		s.notifyUser(ctx, l.SellerID, fmt.Sprintf("Your gift %s was bought. Accept the order to continue.", l.GiftRef()))
	}

	return result, nil
}

func validateCart(items []CartItem) error {
	switch {
	case len(items) == 0:
		return domain.NewError(errcodes.InvalidOrder, "cart is empty")
	case len(items) > MaxCartSize:
		return domain.NewError(errcodes.InvalidOrder, fmt.Sprintf("cart holds at most %d gifts", MaxCartSize))
	case len(lo.UniqBy(items, func(i CartItem) int64 { return i.ListingID })) != len(items):
		return domain.NewError(errcodes.InvalidOrder, "cart has duplicate gifts")
	}
	return nil
}

// checkCart сверяет корзину с витриной. available — ордера, которые ещё
// можно купить, с текущими ценами; stale — корзина устарела.
func (s *Service) checkCart(ctx context.Context, tx ledger.Tx, buyerID int64, items []CartItem) ([]entity.Listing, bool, error) {
	var (
		available []entity.Listing
		stale     bool
	)

	for _, item := range items {
		l, err := tx.GetListing(ctx, item.ListingID)
		switch {
		case domain.HasCode(err, errcodes.OrderNotFound):
			stale = true
			continue
		case err != nil:
			return nil, false, err
		}

		if !buyable(l, buyerID) {
			stale = true
			continue
		}

		available = append(available, l)
		if !l.Price.Equal(item.Price) {
			stale = true
		}
	}

	return available, stale, nil
}

func buyable(l entity.Listing, buyerID int64) bool {
	return l.Status == value.StatusOnMarket &&
		l.IsActive &&
		!l.IsCompleted &&
		!l.HasBuyer() &&
		!l.IsAuction() &&
		l.SellerID != buyerID
}
