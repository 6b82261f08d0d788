// Package giveaway проводит розыгрыши подарков.
package giveaway

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"gift_market/internal/domain"
	"gift_market/internal/domain/entity"
	"gift_market/internal/domain/ledger"
	"gift_market/internal/domain/value"
	"gift_market/pkg/contextx"
	"gift_market/pkg/errcodes"
	"gift_market/pkg/logx"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

const defaultSweepBatch = 50

type SubscriptionChecker interface {
	IsSubscribed(ctx context.Context, channel string, userID int64) (bool, error)
}

type Outbox interface {
	Dispatch(ctx context.Context, deliveries ...entity.Delivery) int
}

type Notifier interface {
	NotifyUser(ctx context.Context, userID int64, text string) error
	// NotifyChannel публикует сообщение в канале по его username без @.
	NotifyChannel(ctx context.Context, channel, text string) error
}

type Service struct {
	store      ledger.Store
	checker    SubscriptionChecker
	outbox     Outbox
	notifier   Notifier
	sweepBatch int
	now        func() time.Time
}

func NewService(store ledger.Store, checker SubscriptionChecker, outbox Outbox, notifier Notifier) *Service {
	return &Service{
		store:      store,
		checker:    checker,
		outbox:     outbox,
		notifier:   notifier,
		sweepBatch: defaultSweepBatch,
		now:        time.Now,
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) WithSweepBatch(n int) *Service {
	if n > 0 {
		s.sweepBatch = n
	}
	return s
}

type CreateInput struct {
	CreatorID       int64
	Type            value.GiveawayType
	GiftIDs         []int64
	Channels        []string
	QuantityMembers int
	EndTime         time.Time
	Price           decimal.Decimal
}

// Create резервирует снятые с витрины подарки создателя под розыгрыш.
func (s *Service) Create(ctx context.Context, in CreateInput) (entity.Giveaway, error) {
	in.GiftIDs = lo.Uniq(in.GiftIDs)
	in.Channels = lo.Uniq(lo.FilterMap(in.Channels, func(ch string, _ int) (string, bool) {
		ch = strings.TrimPrefix(strings.TrimSpace(ch), "@")
		return ch, ch != ""
	}))
	in.Price = in.Price.Truncate(value.MoneyPrecision)

	if err := s.validateCreate(in); err != nil {
		return entity.Giveaway{}, err
	}

	g := entity.Giveaway{
		CreatorID:       in.CreatorID,
		Type:            in.Type,
		Channels:        in.Channels,
		QuantityMembers: in.QuantityMembers,
		EndTime:         in.EndTime,
		Price:           in.Price,
		ParticipantIDs:  []int64{},
		ReferrerIDs:     []int64{},
	}

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		reserved, err := tx.ReserveListings(ctx, in.CreatorID, in.GiftIDs)
		if err != nil {
			return err
		}
		if len(reserved) != len(in.GiftIDs) {
			return domain.NewError(errcodes.OrderNotFound, "some gifts are not available for a giveaway")
		}

		g.GiftIDs = lo.Map(reserved, func(l entity.Listing, _ int) int64 { return l.ID })

		return tx.CreateGiveaway(ctx, &g)
	})
	if err != nil {
		return entity.Giveaway{}, fmt.Errorf("create giveaway: %w", err)
	}

	logger(ctx).Info("giveaway created",
		slog.Int64(logx.FieldGiveawayID, g.ID),
		slog.Int64("creator_id", g.CreatorID),
		slog.Int("gifts", len(g.GiftIDs)),
	)

	return g, nil
}

func (s *Service) validateCreate(in CreateInput) error {
	switch {
	case len(in.GiftIDs) == 0:
		return domain.NewError(errcodes.InvalidOrder, "giveaway needs at least one gift")
	case !in.EndTime.After(s.now()):
		return domain.NewError(errcodes.InvalidOrder, "giveaway end time must be in the future")
	case in.QuantityMembers < 0:
		return domain.NewError(errcodes.InvalidOrder, "quantity of members must not be negative")
	case in.Type == value.GiveawayPaid && !in.Price.IsPositive():
		return domain.NewError(errcodes.InvalidAmount, "paid giveaway needs a ticket price")
	case in.Type == value.GiveawayFree && !in.Price.IsZero():
		return domain.NewError(errcodes.InvalidAmount, "free giveaway cannot have a ticket price")
	case in.Type != value.GiveawayFree && in.Type != value.GiveawayPaid:
		return domain.NewError(errcodes.InvalidOrder, "unknown giveaway type")
	}
	return nil
}

// Join добавляет участника. referrerID учитывается, только если это другой
// участник того же розыгрыша.
func (s *Service) Join(ctx context.Context, giveawayID, userID, referrerID int64) (entity.Giveaway, error) {
	var g entity.Giveaway

	now := s.now()

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		var err error
		g, err = tx.GetGiveaway(ctx, giveawayID)
		return err
	})
	if err != nil {
		return entity.Giveaway{}, fmt.Errorf("join giveaway: %w", err)
	}

	if err := checkOpen(g, userID, now); err != nil {
		return entity.Giveaway{}, err
	}

	for _, ch := range g.Channels {
		ok, err := s.checker.IsSubscribed(ctx, ch, userID)
		if err != nil {
			return entity.Giveaway{}, fmt.Errorf("check subscription %s: %w", ch, err)
		}
		if !ok {
			return entity.Giveaway{}, domain.NewError(errcodes.GiveawaySubscribe, "subscribe to @"+ch+" to join")
		}
	}

	if referrerID == userID || !g.HasParticipant(referrerID) {
		referrerID = 0
	}

	var joined entity.Giveaway

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		if _, err := tx.GetUser(ctx, userID); err != nil {
			return err
		}

		if g.Price.IsPositive() {
			if _, err := tx.DebitBalance(ctx, userID, g.Price); err != nil {
				return err
			}
			if _, err := tx.AddBalance(ctx, g.CreatorID, g.Price); err != nil {
				return fmt.Errorf("credit creator: %w", err)
			}
		}

		var err error
		joined, err = tx.AddParticipant(ctx, giveawayID, userID, referrerID, now)
		return err
	})
	if err != nil {
		return entity.Giveaway{}, fmt.Errorf("join giveaway: %w", err)
	}

	return joined, nil
}

func checkOpen(g entity.Giveaway, userID int64, now time.Time) error {
	switch {
	case g.IsCompleted || g.Ended(now):
		return domain.NewError(errcodes.GiveawayClosed, "giveaway is over")
	case g.HasParticipant(userID):
		return domain.NewError(errcodes.GiveawayJoined, "already joined")
	case g.IsFull():
		return domain.NewError(errcodes.GiveawayClosed, "giveaway is full")
	case g.CreatorID == userID:
		return domain.NewError(errcodes.NotAccess, "creator cannot join own giveaway")
	}
	return nil
}

type View struct {
	Giveaway entity.Giveaway
	Chances  map[int64]float64
}

func (s *Service) Get(ctx context.Context, giveawayID int64) (View, error) {
	var g entity.Giveaway

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		var err error
		g, err = tx.GetGiveaway(ctx, giveawayID)
		return err
	})
	if err != nil {
		return View{}, fmt.Errorf("get giveaway: %w", err)
	}

	return newView(g), nil
}

func (s *Service) List(ctx context.Context, filter ledger.GiveawayFilter) ([]View, error) {
	var giveaways []entity.Giveaway

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		var err error
		giveaways, err = tx.ListGiveaways(ctx, filter)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list giveaways: %w", err)
	}

	return lo.Map(giveaways, func(g entity.Giveaway, _ int) View { return newView(g) }), nil
}

func newView(g entity.Giveaway) View {
	chances := Chances(g.ParticipantIDs, g.ReferrerIDs, len(g.GiftIDs))

	v := View{Giveaway: g, Chances: make(map[int64]float64, len(chances))}
	for i, p := range g.ParticipantIDs {
		v.Chances[p] = chances[i]
	}

	return v
}

type FinalizeResult struct {
	Drawn     int
	Cancelled int
	Failed    int
}

// FinalizeGiveaways разыгрывает истёкшие розыгрыши, каждый в своей транзакции.
func (s *Service) FinalizeGiveaways(ctx context.Context) (FinalizeResult, error) {
	var (
		ended  []entity.Giveaway
		result FinalizeResult
	)

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		var err error
		ended, err = tx.ListEndedGiveaways(ctx, s.now(), s.sweepBatch)
		return err
	})
	if err != nil {
		return result, fmt.Errorf("list ended giveaways: %w", err)
	}

	for _, g := range ended {
		drawn, err := s.finalize(ctx, g.ID)
		switch {
		case err != nil:
			result.Failed++
			logger(ctx).Error("finalize giveaway", slog.Int64(logx.FieldGiveawayID, g.ID), logx.Error(err))
		case drawn:
			result.Drawn++
		default:
			result.Cancelled++
		}
	}

	if len(ended) > 0 {
		logger(ctx).Info("giveaways finalized",
			slog.Int("drawn", result.Drawn),
			slog.Int("cancelled", result.Cancelled),
			slog.Int("failed", result.Failed),
		)
	}

	return result, nil
}

func (s *Service) finalize(ctx context.Context, giveawayID int64) (bool, error) {
	var (
		completed  entity.Giveaway
		deliveries []entity.Delivery
	)

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		g, err := tx.GetGiveaway(ctx, giveawayID)
		if err != nil {
			return err
		}

		if len(g.ParticipantIDs) == 0 {
			if err := tx.ReleaseListings(ctx, g.GiftIDs); err != nil {
				return err
			}
			completed, err = tx.CompleteGiveaway(ctx, giveawayID, nil)
			return err
		}

		winners := Distribute(g.ParticipantIDs, g.GiftIDs)

		for i, giftID := range g.GiftIDs {
			prize, err := tx.AssignPrize(ctx, giftID, winners[i])
			if err != nil {
				return fmt.Errorf("assign gift %d: %w", giftID, err)
			}
			deliveries = append(deliveries, entity.NewDelivery(prize))
		}

		completed, err = tx.CompleteGiveaway(ctx, giveawayID, winners)
		return err
	})
	if err != nil {
		return false, err
	}

	if len(deliveries) == 0 {
		return false, nil
	}

	s.outbox.Dispatch(ctx, deliveries...)

	for _, winner := range lo.Uniq(completed.WinnerIDs) {
		if err := s.notifier.NotifyUser(ctx, winner, fmt.Sprintf("You won giveaway #%d! The gift is on its way.", completed.ID)); err != nil {
			logger(ctx).Warn("notify winner", slog.Int64(logx.FieldUserID, winner), logx.Error(err))
		}
	}

	s.announce(ctx, completed, deliveries)

	return true, nil
}

// announce сообщает об итогах в каналы, подписка на которые была условием участия.
func (s *Service) announce(ctx context.Context, g entity.Giveaway, deliveries []entity.Delivery) {
	if len(g.Channels) == 0 {
		return
	}

	text := AnnouncementText(g, lo.Map(deliveries, func(d entity.Delivery, _ int) string { return d.GiftRef }))

	for _, ch := range g.Channels {
		if err := s.notifier.NotifyChannel(ctx, ch, text); err != nil {
			logger(ctx).Warn("announce giveaway",
				slog.Int64(logx.FieldGiveawayID, g.ID),
				slog.String("channel", ch),
				logx.Error(err),
			)
		}
	}
}

func AnnouncementText(g entity.Giveaway, gifts []string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "🎉 <b>Giveaway #%d is over!</b>\n\n", g.ID)
	fmt.Fprintf(&sb, "👥 Participants: %d\n", len(g.ParticipantIDs))
	fmt.Fprintf(&sb, "🎁 Gifts: %s\n", strings.Join(gifts, ", "))
	fmt.Fprintf(&sb, "🏆 Winners: %d\n\n", len(lo.Uniq(g.WinnerIDs)))
	sb.WriteString("Prizes are already on their way to the winners.")

	return sb.String()
}
