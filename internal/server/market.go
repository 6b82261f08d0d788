package server

import (
	"context"
	"fmt"
	"net/http"

	"git.appkode.ru/pub/go/failure"
	"github.com/shopspring/decimal"

	"gift_market/internal/domain/entity"
	"gift_market/internal/domain/service/market"
	"gift_market/internal/domain/value"
	"gift_market/pkg/errcodes"
	"gift_market/pkg/httpx/reply"
	"gift_market/pkg/httpx/req"
	"gift_market/pkg/lox"
	"gift_market/pkg/rest"
)

type marketService interface {
	List(ctx context.Context, filter value.ListingFilter) ([]entity.Listing, error)
	Get(ctx context.Context, callerID, listingID int64) (entity.Listing, error)
	Create(ctx context.Context, in market.CreateInput) (entity.Listing, error)
	Buy(ctx context.Context, buyerID, listingID int64) (entity.Listing, error)
	BuyCart(ctx context.Context, buyerID int64, items []market.CartItem) (market.CartResult, error)
	SellerAccept(ctx context.Context, sellerID, listingID int64) (entity.Listing, error)
	ConfirmTransfer(ctx context.Context, sellerID, listingID int64) (entity.Listing, error)
	AcceptReceipt(ctx context.Context, buyerID, listingID int64) (entity.Listing, error)
	Cancel(ctx context.Context, callerID, listingID int64) (entity.Listing, error)
	UpdatePrice(ctx context.Context, sellerID, listingID int64, price decimal.Decimal) (entity.Listing, error)
	SetActive(ctx context.Context, sellerID, listingID int64, active bool) (entity.Listing, error)
	Delete(ctx context.Context, sellerID, listingID int64) error
	Bid(ctx context.Context, bidderID, listingID int64, amount decimal.Decimal) (entity.Listing, error)
	ListBids(ctx context.Context, listingID int64) ([]entity.Bid, error)
}

type MarketServer struct {
	marketService marketService
}

func NewMarketServer(marketService marketService) MarketServer {
	return MarketServer{
		marketService: marketService,
	}
}

func (s MarketServer) getV1Listings(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	filter, err := parseListingFilter(r.URL.Query())
	if err != nil {
		return failure.NewInvalidArgumentErrorFromError(
			fmt.Errorf("parseListingFilter: %w", err),
			failure.WithCode(errcodes.ValidationError),
			failure.WithDescription(err.Error()),
		)
	}

	listings, err := s.marketService.List(ctx, filter)
	if err != nil {
		return fmt.Errorf("marketService.List: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTListings(listings))

	return nil
}

// getV1MyGifts — все ордера пользователя, включая снятые и проданные.
func (s MarketServer) getV1MyGifts(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	uid, err := userID(r)
	if err != nil {
		return err
	}

	limit, offset, err := parsePage(r.URL.Query())
	if err != nil {
		return failure.NewInvalidArgumentErrorFromError(
			fmt.Errorf("parsePage: %w", err),
			failure.WithCode(errcodes.InvalidPaging),
		)
	}

	filter := value.ListingFilter{
		SellerID:        uid,
		IncludeInactive: true,
		Limit:           limit,
		Offset:          offset,
	}.Normalize()

	listings, err := s.marketService.List(ctx, filter)
	if err != nil {
		return fmt.Errorf("marketService.List: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTListings(listings))

	return nil
}

func (s MarketServer) getV1Listing(w http.ResponseWriter, r *http.Request) error {
	return s.transition(w, r, s.marketService.Get)
}

func (s MarketServer) postV1Listing(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	uid, err := userID(r)
	if err != nil {
		return err
	}

	var request rest.CreateListingRequest

	if err := req.Read(r, &request); err != nil {
		return fmt.Errorf("req.Read: %w", err)
	}

	listing, err := s.marketService.Create(ctx, newDomainCreateListing(uid, request))
	if err != nil {
		return fmt.Errorf("marketService.Create: %w", err)
	}

	reply.JSON(ctx, w, http.StatusCreated, newRESTListing(listing))

	return nil
}

func (s MarketServer) postV1Buy(w http.ResponseWriter, r *http.Request) error {
	return s.transition(w, r, s.marketService.Buy)
}

func (s MarketServer) postV1SellerAccept(w http.ResponseWriter, r *http.Request) error {
	return s.transition(w, r, s.marketService.SellerAccept)
}

func (s MarketServer) postV1ConfirmTransfer(w http.ResponseWriter, r *http.Request) error {
	return s.transition(w, r, s.marketService.ConfirmTransfer)
}

func (s MarketServer) postV1AcceptReceipt(w http.ResponseWriter, r *http.Request) error {
	return s.transition(w, r, s.marketService.AcceptReceipt)
}

func (s MarketServer) postV1Cancel(w http.ResponseWriter, r *http.Request) error {
	return s.transition(w, r, s.marketService.Cancel)
}

func (s MarketServer) putV1ListingPrice(w http.ResponseWriter, r *http.Request) error {
	var request rest.PriceRequest

	if err := req.Read(r, &request); err != nil {
		return fmt.Errorf("req.Read: %w", err)
	}

	return s.transition(w, r, func(ctx context.Context, uid, id int64) (entity.Listing, error) {
		return s.marketService.UpdatePrice(ctx, uid, id, request.Price)
	})
}

func (s MarketServer) putV1ListingActive(w http.ResponseWriter, r *http.Request) error {
	var request rest.ActiveRequest

	if err := req.Read(r, &request); err != nil {
		return fmt.Errorf("req.Read: %w", err)
	}

	return s.transition(w, r, func(ctx context.Context, uid, id int64) (entity.Listing, error) {
		return s.marketService.SetActive(ctx, uid, id, request.IsActive)
	})
}

func (s MarketServer) deleteV1Listing(w http.ResponseWriter, r *http.Request) error {
	uid, err := userID(r)
	if err != nil {
		return err
	}

	id, err := pathID(r)
	if err != nil {
		return err
	}

	if err := s.marketService.Delete(r.Context(), uid, id); err != nil {
		return fmt.Errorf("marketService.Delete: %w", err)
	}

	reply.OK(w)

	return nil
}

// postV1CartBuy покупает корзину целиком или не покупает ничего.
func (s MarketServer) postV1CartBuy(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	uid, err := userID(r)
	if err != nil {
		return err
	}

	var request rest.CartBuyRequest

	if err := req.Read(r, &request); err != nil {
		return fmt.Errorf("req.Read: %w", err)
	}

	res, err := s.marketService.BuyCart(ctx, uid, lox.Map(request.Items, func(i rest.CartItem) market.CartItem {
		return market.CartItem{ListingID: i.ID, Price: i.Price}
	}))
	if err != nil {
		return fmt.Errorf("marketService.BuyCart: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, rest.CartBuyResponse{
		Success: res.Success,
		Cart:    newRESTListings(res.Listings),
	})

	return nil
}

func (s MarketServer) postV1Bid(w http.ResponseWriter, r *http.Request) error {
	var request rest.BidRequest

	if err := req.Read(r, &request); err != nil {
		return fmt.Errorf("req.Read: %w", err)
	}

	return s.transition(w, r, func(ctx context.Context, uid, id int64) (entity.Listing, error) {
		return s.marketService.Bid(ctx, uid, id, request.Amount)
	})
}

func (s MarketServer) getV1Bids(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	id, err := pathID(r)
	if err != nil {
		return err
	}

	bids, err := s.marketService.ListBids(ctx, id)
	if err != nil {
		return fmt.Errorf("marketService.ListBids: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, lox.Map(bids, newRESTBid))

	return nil
}

// transition выполняет операцию над ордером из пути от имени пользователя
// и отвечает ордером в новом состоянии.
func (s MarketServer) transition(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, userID, listingID int64) (entity.Listing, error),
) error {
	ctx := r.Context()

	uid, err := userID(r)
	if err != nil {
		return err
	}

	id, err := pathID(r)
	if err != nil {
		return err
	}

	listing, err := op(ctx, uid, id)
	if err != nil {
		return fmt.Errorf("listing %d: %w", id, err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTListing(listing))

	return nil
}
