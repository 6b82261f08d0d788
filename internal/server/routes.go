package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"git.appkode.ru/pub/go/failure"
	"github.com/go-chi/chi/v5"

	"gift_market/internal/domain"
	"gift_market/pkg/contextx"
	"gift_market/pkg/errcodes"
	"gift_market/pkg/httpx/reply"
)

type Middleware = func(http.Handler) http.Handler

// Middlewares — middleware, зависящие от конфигурации приложения.
type Middlewares struct {
	Auth      Middleware
	RateLimit Middleware
}

func (s Server) RegisterRoutes(r chi.Router, mw Middlewares) { //nolint:funlen
	r.Route("/", func(r chi.Router) {
		r.Route("/v1", func(r chi.Router) {
			// unauthorized zone
			r.Group(func(r chi.Router) {
				r.Use(mw.RateLimit)

				r.Post("/user/login", handler(s.postV1Login))
				r.Get("/market/activity", handler(s.getV1Activity))
			})

			r.Group(func(r chi.Router) {
				r.Use(mw.Auth, mw.RateLimit)

				r.Get("/user/me", handler(s.getV1Me))
				r.Get("/user/history", handler(s.getV1History))
				r.Get("/user/gifts", handler(s.getV1MyGifts))
				r.Post("/user/withdraw", handler(s.postV1Withdraw))
				r.Get("/user/deposit-address", handler(s.getV1DepositAddress))
				r.Post("/market/cart/buy", handler(s.postV1CartBuy))

				r.Route("/market/listings", func(r chi.Router) {
					r.Get("/", handler(s.getV1Listings))
					r.Post("/", handler(s.postV1Listing))
					r.Get("/{id}", handler(s.getV1Listing))
					r.Delete("/{id}", handler(s.deleteV1Listing))
					r.Put("/{id}/price", handler(s.putV1ListingPrice))
					r.Put("/{id}/active", handler(s.putV1ListingActive))
					r.Post("/{id}/buy", handler(s.postV1Buy))
					r.Post("/{id}/accept", handler(s.postV1SellerAccept))
					r.Post("/{id}/confirm", handler(s.postV1ConfirmTransfer))
					r.Post("/{id}/receive", handler(s.postV1AcceptReceipt))
					r.Post("/{id}/cancel", handler(s.postV1Cancel))
					r.Get("/{id}/bids", handler(s.getV1Bids))
					r.Post("/{id}/bids", handler(s.postV1Bid))
				})

				r.Route("/giveaways", func(r chi.Router) {
					r.Get("/", handler(s.getV1Giveaways))
					r.Post("/", handler(s.postV1Giveaway))
					r.Get("/{id}", handler(s.getV1Giveaway))
					r.Post("/{id}/join", handler(s.postV1JoinGiveaway))
				})
			})
		})
	})
}

func handler(f func(http.ResponseWriter, *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := f(w, r); err != nil {
			writeError(w, r, err)
		}
	}
}

// writeError отвечает доменной ошибкой по её классу, остальные ошибки
// разбирает reply.Error.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *domain.AppError
	if !errors.As(err, &appErr) {
		reply.Error(r.Context(), w, err)
		return
	}

	reply.Fail(r.Context(), w, statusByKind(appErr.Kind()), err, appErr.Code, appErr.Message)
}

func statusByKind(kind domain.Kind) int {
	switch kind {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindInsufficientFunds, domain.KindInvalidInput:
		return http.StatusBadRequest
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindExternalFailure:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, failure.NewInvalidArgumentError(
			fmt.Sprintf("invalid id %q", r.PathValue("id")),
			failure.WithCode(errcodes.ValidationError),
			failure.WithDescription("id must be a positive integer"),
		)
	}

	return id, nil
}

func userID(r *http.Request) (int64, error) {
	id, err := contextx.UserIDFromContext(r.Context())
	if err != nil {
		return 0, fmt.Errorf("contextx.UserIDFromContext: %w", err)
	}

	return id.Int64(), nil
}
