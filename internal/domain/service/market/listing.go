package market

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"gift_market/internal/domain"
	"gift_market/internal/domain/entity"
	"gift_market/internal/domain/ledger"
	"gift_market/internal/domain/service/rarity"
	"gift_market/internal/domain/service/settlement"
	"gift_market/internal/domain/value"
	"gift_market/internal/metrics"
	"gift_market/pkg/errcodes"
	"gift_market/pkg/logx"
)

type CreateInput struct {
	SellerID   int64
	Type       string
	Number     int
	Attributes value.GiftAttributes
	ImageURL   string
	Price      decimal.Decimal
	VIP        bool

	// Оба поля заданы — аукцион, оба пусты — обычная продажа.
	MinStep        decimal.NullDecimal
	AuctionEndTime *time.Time
}

// Create выставляет подарок и списывает плату за выставление.
func (s *Service) Create(ctx context.Context, in CreateInput) (entity.Listing, error) {
	now := s.now()

	if err := s.validateCreate(in, now); err != nil {
		return entity.Listing{}, err
	}

	score := rarity.NumberScore(in.Number)

	listing := entity.Listing{
		Type:           in.Type,
		Number:         in.Number,
		Attributes:     in.Attributes,
		Rarity:         rarity.Classify(in.Attributes, s.prices.Rarity),
		NumberScore:    score.Score,
		ImageURL:       in.ImageURL,
		SellerID:       in.SellerID,
		Price:          in.Price.Truncate(value.MoneyPrecision),
		IsVIP:          in.VIP,
		MinStep:        in.MinStep,
		AuctionEndTime: in.AuctionEndTime,
		Status:         value.StatusOnMarket,
		IsActive:       true,
	}

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		seller, err := tx.GetUser(ctx, in.SellerID)
		if err != nil {
			return err
		}
		if seller.IsBanned {
			return domain.NewError(errcodes.NotAccess, "user is banned")
		}

		listing.ListingFee = s.prices.ListingFeeFor(in.VIP, s.privileges.IsVIP(in.SellerID))

		if listing.ListingFee.IsPositive() {
			if _, err := tx.DebitBalance(ctx, in.SellerID, listing.ListingFee); err != nil {
				return err
			}
		}

		return tx.CreateListing(ctx, &listing)
	})
	if err != nil {
		return entity.Listing{}, fmt.Errorf("create listing: %w", err)
	}

	kind := "sale"
	if listing.IsAuction() {
		kind = "auction"
	}
	metrics.ListingsCreated.WithLabelValues(kind).Inc()

	logger(ctx).Info("listing created",
		slog.Int64(logx.FieldListingID, listing.ID),
		slog.String("gift", listing.GiftRef()),
		slog.String("kind", kind),
		slog.String("rarity", string(listing.Rarity)),
		logx.Money("fee", listing.ListingFee),
	)

	return listing, nil
}

func (s *Service) validateCreate(in CreateInput, now time.Time) error {
	switch {
	case strings.TrimSpace(in.Type) == "" || in.Number <= 0:
		return domain.NewError(errcodes.InvalidOrder, "gift type and number are required")
	case !in.Attributes.Valid():
		return domain.NewError(errcodes.InvalidOrder, "trait percentages must be within (0, 100]")
	case !in.Price.Truncate(value.MoneyPrecision).IsPositive():
		return domain.NewError(errcodes.InvalidAmount, "price must be positive")
	}

	if !s.debug && !s.allowedAsset(in.ImageURL) {
		return domain.NewError(errcodes.InvalidImageURL, "image must be served from the asset host")
	}

	if in.MinStep.Valid != (in.AuctionEndTime != nil) {
		return domain.NewError(errcodes.InvalidOrder, "auction needs both min step and end time")
	}
	if in.MinStep.Valid {
		if !in.MinStep.Decimal.IsPositive() {
			return domain.NewError(errcodes.InvalidOrder, "min step must be positive")
		}
		if !in.AuctionEndTime.After(now) {
			return domain.NewError(errcodes.InvalidOrder, "auction end time must be in the future")
		}
	}

	return nil
}

func (s *Service) allowedAsset(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "https" {
		return false
	}
	return s.assetHost != "" && strings.EqualFold(u.Hostname(), s.assetHost)
}

// Buy захватывает ордер покупателем и удерживает его деньги в эскроу.
// Проигравший гонку получает OrderNotFound; нехватка средств откатывает захват.
func (s *Service) Buy(ctx context.Context, buyerID, listingID int64) (entity.Listing, error) {
	var claimed entity.Listing

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		buyer, err := tx.GetUser(ctx, buyerID)
		if err != nil {
			return err
		}
		if buyer.Username == "" {
			return domain.NewError(errcodes.NotUsername, "missing username")
		}

		l, err := tx.GetListing(ctx, listingID)
		if err != nil {
			return err
		}
		if l.SellerID == buyerID {
			return domain.NewError(errcodes.NotAccess, "cannot buy own gift")
		}
		if l.IsAuction() {
			return domain.NewError(errcodes.OrderNotFound, "order not found")
		}

		claimed, err = tx.ClaimListing(ctx, listingID, buyerID, s.prices.BuyerFee)
		if err != nil {
			return err
		}

		_, err = tx.DebitBalance(ctx, buyerID, claimed.HeldAmount)
		return err
	})
	if err != nil {
		return entity.Listing{}, fmt.Errorf("buy: %w", err)
	}

	metrics.OrderTransitions.WithLabelValues(string(value.StatusBuy)).Inc()
	s.notifyUser(ctx, claimed.SellerID, fmt.Sprintf("Your gift %s was bought. Accept the order to continue.", claimed.GiftRef()))

	return claimed, nil
}

// SellerAccept подтверждает заказ продавцом и запускает окно SLA.
func (s *Service) SellerAccept(ctx context.Context, sellerID, listingID int64) (entity.Listing, error) {
	var accepted entity.Listing

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		var err error
		accepted, err = tx.AcceptOrder(ctx, listingID, sellerID, s.now())
		return err
	})
	if err != nil {
		return entity.Listing{}, fmt.Errorf("seller accept: %w", err)
	}

	metrics.OrderTransitions.WithLabelValues(string(value.StatusSellerAccept)).Inc()
	s.notifyUser(ctx, accepted.BuyerID, fmt.Sprintf(
		"The seller accepted your order for %s and has %s to transfer it.",
		accepted.GiftRef(), s.prices.SellerSLA,
	))

	return accepted, nil
}

// ConfirmTransfer — продавец сообщает, что передал подарок.
func (s *Service) ConfirmTransfer(ctx context.Context, sellerID, listingID int64) (entity.Listing, error) {
	var transferred entity.Listing

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		l, err := tx.GetListing(ctx, listingID)
		if err != nil {
			return err
		}

		if l.Status == value.StatusSellerAccept && !l.HasBuyer() {
			logger(ctx).Error("accepted order without buyer",
				slog.Int64(logx.FieldListingID, l.ID),
				slog.Int64(logx.FieldSellerID, l.SellerID),
			)
			return domain.NewError(errcodes.OrderNotFound, "order not found")
		}

		transferred, err = tx.ConfirmTransfer(ctx, listingID, sellerID)
		return err
	})
	if err != nil {
		return entity.Listing{}, fmt.Errorf("confirm transfer: %w", err)
	}

	metrics.OrderTransitions.WithLabelValues(string(value.StatusGiftTransferred)).Inc()
	s.notifyUser(ctx, transferred.BuyerID, fmt.Sprintf(
		"The seller says %s was transferred. Confirm receipt to complete the deal.", transferred.GiftRef(),
	))

	return transferred, nil
}

// AcceptReceipt завершает сделку: покупатель подтвердил получение, продавец
// и его реферер получают деньги в той же транзакции.
func (s *Service) AcceptReceipt(ctx context.Context, buyerID, listingID int64) (entity.Listing, error) {
	var (
		received entity.Listing
		res      settlement.Result
	)

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		var err error

		received, err = tx.ReceiveOrder(ctx, listingID, buyerID, s.now())
		if err != nil {
			return err
		}

		res, err = s.settler.Apply(ctx, tx, received.SellerID, received.Price, settlement.ChannelDirect)
		if err != nil {
			return err
		}

		return appendSaleHistory(ctx, tx, received, value.HistoryBuy)
	})
	if err != nil {
		return entity.Listing{}, fmt.Errorf("accept receipt: %w", err)
	}

	settlement.Observe(res, settlement.ChannelDirect)
	metrics.OrderTransitions.WithLabelValues(string(value.StatusGiftReceived)).Inc()
	s.notifyUser(ctx, received.SellerID, fmt.Sprintf(
		"Deal for %s is complete, %s TON credited.", received.GiftRef(), res.SellerCredit,
	))

	return received, nil
}

// appendSaleHistory пишет пару записей: buyerType покупателю и sell продавцу.
func appendSaleHistory(ctx context.Context, tx ledger.Tx, l entity.Listing, buyerType value.HistoryType) error {
	for _, rec := range []entity.HistoryRecord{
		{UserID: l.BuyerID, Type: buyerType},
		{UserID: l.SellerID, Type: value.HistorySell},
	} {
		rec.Price = l.Price
		rec.Gift = l.GiftRef()
		rec.ModelName = l.Attributes.ModelName
		rec.ListingID = l.ID

		if err := tx.AppendHistory(ctx, &rec); err != nil {
			return fmt.Errorf("append %s history: %w", rec.Type, err)
		}
	}
	return nil
}

// Cancel отменяет заказ.
//   - BUY: покупатель или продавец, деньги возвращаются покупателю;
//   - SELLER_ACCEPT: только после истечения SLA, тогда кто угодно.
func (s *Service) Cancel(ctx context.Context, callerID, listingID int64) (entity.Listing, error) {
	var before, reopened entity.Listing

	now := s.now()

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		var err error

		before, err = tx.GetListing(ctx, listingID)
		if err != nil {
			return err
		}

		switch before.Status {
		case value.StatusBuy:
			if !before.IsParty(callerID) {
				return domain.NewError(errcodes.NotAccess, "not a party of the order")
			}
		case value.StatusSellerAccept:
			if !before.SLAExpired(now, s.prices.SellerSLA) {
				return domain.NewError(errcodes.NotAccess, "seller still has time to transfer the gift")
			}
		default:
			return domain.NewError(errcodes.OrderNotFound, "order not found")
		}

		reopened, err = reopen(ctx, tx, before)
		return err
	})
	if err != nil {
		return entity.Listing{}, fmt.Errorf("cancel: %w", err)
	}

	metrics.OrderTransitions.WithLabelValues(string(value.StatusOnMarket)).Inc()

	if before.Status == value.StatusSellerAccept {
		s.reportSLABreach(ctx, before)
		return reopened, nil
	}

	other := before.BuyerID
	if callerID == before.BuyerID {
		other = before.SellerID
	}
	s.notifyUser(ctx, other, fmt.Sprintf("Order for %s was cancelled.", before.GiftRef()))

	return reopened, nil
}

// reopen возвращает ордер на витрину и деньги покупателю.
func reopen(ctx context.Context, tx ledger.Tx, l entity.Listing) (entity.Listing, error) {
	reopened, err := tx.ReopenOrder(ctx, l.ID, l.Status, l.BuyerID)
	if err != nil {
		return entity.Listing{}, err
	}

	if l.HeldAmount.IsPositive() {
		if _, err := tx.AddBalance(ctx, l.BuyerID, l.HeldAmount); err != nil {
			return entity.Listing{}, fmt.Errorf("refund buyer: %w", err)
		}
	}

	return reopened, nil
}

func (s *Service) reportSLABreach(ctx context.Context, l entity.Listing) {
	metrics.SLACancellations.Inc()

	logger(ctx).Warn("order cancelled after seller SLA",
		slog.Int64(logx.FieldListingID, l.ID),
		slog.Int64(logx.FieldSellerID, l.SellerID),
		slog.Int64("buyer_id", l.BuyerID),
	)

	s.notifyAdmins(ctx, fmt.Sprintf(
		"Seller %d did not transfer %s within %s. Order %d cancelled, buyer %d refunded %s TON.",
		l.SellerID, l.GiftRef(), s.prices.SellerSLA, l.ID, l.BuyerID, l.HeldAmount,
	))
	s.notifyUser(ctx, l.BuyerID, fmt.Sprintf("Order for %s was cancelled, %s TON refunded.", l.GiftRef(), l.HeldAmount))
}

// Get возвращает ордер. Сторонам сделки виден любой статус, остальным —
// только выставленные. Если сторона смотрит на ордер с истёкшим SLA,
// он сначала отменяется.
func (s *Service) Get(ctx context.Context, callerID, listingID int64) (entity.Listing, error) {
	var (
		result  entity.Listing
		expired *entity.Listing
	)

	now := s.now()

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		l, err := tx.GetListing(ctx, listingID)
		if err != nil {
			return err
		}

		if !l.IsParty(callerID) {
			if l.Status != value.StatusOnMarket {
				return domain.NewError(errcodes.NotAccess, "order is not on the market")
			}
			result = l
			return nil
		}

		if !l.SLAExpired(now, s.prices.SellerSLA) {
			result = l
			return nil
		}

		result, err = reopen(ctx, tx, l)
		expired = &l
		return err
	})
	if err != nil {
		return entity.Listing{}, fmt.Errorf("get listing: %w", err)
	}

	if expired != nil {
		metrics.OrderTransitions.WithLabelValues(string(value.StatusOnMarket)).Inc()
		s.reportSLABreach(ctx, *expired)
	}

	return result, nil
}

// UpdatePrice меняет цену выставленного непроданного ордера.
func (s *Service) UpdatePrice(ctx context.Context, sellerID, listingID int64, price decimal.Decimal) (entity.Listing, error) {
	price = price.Truncate(value.MoneyPrecision)
	if !price.IsPositive() {
		return entity.Listing{}, domain.NewError(errcodes.InvalidAmount, "price must be positive")
	}

	var updated entity.Listing

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		var err error
		updated, err = tx.UpdateListingPrice(ctx, listingID, sellerID, price)
		return err
	})
	if err != nil {
		return entity.Listing{}, fmt.Errorf("update price: %w", err)
	}

	return updated, nil
}

// SetActive снимает ордер с витрины или возвращает его туда.
func (s *Service) SetActive(ctx context.Context, sellerID, listingID int64, active bool) (entity.Listing, error) {
	var updated entity.Listing

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		var err error
		updated, err = tx.SetListingActive(ctx, listingID, sellerID, active)
		return err
	})
	if err != nil {
		return entity.Listing{}, fmt.Errorf("set active: %w", err)
	}

	return updated, nil
}

// Delete удаляет непроданный ордер и возвращает продавцу плату за выставление.
func (s *Service) Delete(ctx context.Context, sellerID, listingID int64) error {
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		deleted, err := tx.DeleteListing(ctx, listingID, sellerID)
		if err != nil {
			return err
		}

		if deleted.ListingFee.IsPositive() {
			if _, err := tx.AddBalance(ctx, sellerID, deleted.ListingFee); err != nil {
				return fmt.Errorf("refund listing fee: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("delete listing: %w", err)
	}

	return nil
}

func (s *Service) List(ctx context.Context, filter value.ListingFilter) ([]entity.Listing, error) {
	var listings []entity.Listing

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		var err error
		listings, err = tx.ListListings(ctx, filter)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list listings: %w", err)
	}

	return listings, nil
}
