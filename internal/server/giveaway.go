package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"git.appkode.ru/pub/go/failure"

	"gift_market/internal/domain/entity"
	"gift_market/internal/domain/ledger"
	"gift_market/internal/domain/service/giveaway"
	"gift_market/pkg/errcodes"
	"gift_market/pkg/httpx/reply"
	"gift_market/pkg/httpx/req"
	"gift_market/pkg/lox"
	"gift_market/pkg/rest"
)

type giveawayService interface {
	Create(ctx context.Context, in giveaway.CreateInput) (entity.Giveaway, error)
	Join(ctx context.Context, giveawayID, userID, referrerID int64) (entity.Giveaway, error)
	Get(ctx context.Context, giveawayID int64) (giveaway.View, error)
	List(ctx context.Context, filter ledger.GiveawayFilter) ([]giveaway.View, error)
}

type GiveawayServer struct {
	giveawayService giveawayService
}

func NewGiveawayServer(giveawayService giveawayService) GiveawayServer {
	return GiveawayServer{
		giveawayService: giveawayService,
	}
}

// getV1Giveaways: ?scope=active|created|joined, limit, offset.
func (s GiveawayServer) getV1Giveaways(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	uid, err := userID(r)
	if err != nil {
		return err
	}

	q := r.URL.Query()

	limit, offset, err := parsePage(q)
	if err != nil {
		return failure.NewInvalidArgumentErrorFromError(
			fmt.Errorf("parsePage: %w", err),
			failure.WithCode(errcodes.InvalidPaging),
		)
	}

	filter := ledger.GiveawayFilter{Limit: limit, Offset: offset}

	switch scope := q.Get("scope"); scope {
	case "", "active":
		filter.OnlyActive = true
	case "created":
		filter.CreatorID = uid
	case "joined":
		filter.ParticipantID = uid
	default:
		return failure.NewInvalidArgumentError(
			"unknown scope "+strconv.Quote(scope),
			failure.WithCode(errcodes.ValidationError),
			failure.WithDescription("scope must be one of active, created, joined"),
		)
	}

	views, err := s.giveawayService.List(ctx, filter)
	if err != nil {
		return fmt.Errorf("giveawayService.List: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, lox.Map(views, newRESTGiveaway))

	return nil
}

func (s GiveawayServer) getV1Giveaway(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	id, err := pathID(r)
	if err != nil {
		return err
	}

	view, err := s.giveawayService.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("giveawayService.Get: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTGiveaway(view))

	return nil
}

func (s GiveawayServer) postV1Giveaway(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	uid, err := userID(r)
	if err != nil {
		return err
	}

	var request rest.CreateGiveawayRequest

	if err := req.Read(r, &request); err != nil {
		return fmt.Errorf("req.Read: %w", err)
	}

	in, err := newDomainCreateGiveaway(uid, request)
	if err != nil {
		return failure.NewInvalidArgumentErrorFromError(
			fmt.Errorf("newDomainCreateGiveaway: %w", err),
			failure.WithCode(errcodes.ValidationError),
		)
	}

	created, err := s.giveawayService.Create(ctx, in)
	if err != nil {
		return fmt.Errorf("giveawayService.Create: %w", err)
	}

	reply.JSON(ctx, w, http.StatusCreated, newRESTGiveaway(giveaway.View{Giveaway: created}))

	return nil
}

func (s GiveawayServer) postV1JoinGiveaway(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	uid, err := userID(r)
	if err != nil {
		return err
	}

	id, err := pathID(r)
	if err != nil {
		return err
	}

	var request rest.JoinGiveawayRequest

	if err := req.Read(r, &request); err != nil {
		return fmt.Errorf("req.Read: %w", err)
	}

	if _, err := s.giveawayService.Join(ctx, id, uid, request.ReferrerID); err != nil {
		return fmt.Errorf("giveawayService.Join: %w", err)
	}

	view, err := s.giveawayService.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("giveawayService.Get: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTGiveaway(view))

	return nil
}
