// Package market ведёт эскроу-цикл ордера и аукционы.
//
// Каждая операция выполняется в одной транзакции хранилища. Переходы
// статусов делаются условными обновлениями, деньги двигаются относительными
// инкрементами в той же транзакции. Уведомления и постановка передачи
// подарка выполняются после коммита и на результат операции не влияют.
package market

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"gift_market/internal/domain/entity"
	"gift_market/internal/domain/ledger"
	"gift_market/internal/domain/service/settlement"
	"gift_market/internal/domain/value"
	"gift_market/pkg/contextx"
	"gift_market/pkg/logx"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

const defaultSweepBatch = 100

type Notifier interface {
	Notify(ctx context.Context, audience value.Audience, text string) error
	NotifyUser(ctx context.Context, userID int64, text string) error
}

type Outbox interface {
	Dispatch(ctx context.Context, deliveries ...entity.Delivery) int
}

type Settler interface {
	Apply(
		ctx context.Context,
		tx ledger.Tx,
		sellerID int64,
		price decimal.Decimal,
		channel settlement.Channel,
	) (settlement.Result, error)
}

type Service struct {
	store      ledger.Store
	prices     value.PriceList
	privileges value.Privileges
	settler    Settler
	outbox     Outbox
	notifier   Notifier
	assetHost  string
	debug      bool
	sweepBatch int
	now        func() time.Time
}

func NewService(
	store ledger.Store,
	prices value.PriceList,
	privileges value.Privileges,
	settler Settler,
	outbox Outbox,
	notifier Notifier,
) *Service {
	return &Service{
		store:      store,
		prices:     prices,
		privileges: privileges,
		settler:    settler,
		outbox:     outbox,
		notifier:   notifier,
		sweepBatch: defaultSweepBatch,
		now:        time.Now,
	}
}

// WithAssetHost задаёт хост, с которого разрешены картинки подарков.
func (s *Service) WithAssetHost(host string) *Service {
	s.assetHost = host
	return s
}

// WithDebug отключает проверку хоста картинок.
func (s *Service) WithDebug(debug bool) *Service {
	s.debug = debug
	return s
}

func (s *Service) WithSweepBatch(n int) *Service {
	if n > 0 {
		s.sweepBatch = n
	}
	return s
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// notifyUser и notifyAdmins не прерывают операцию: ошибка только логируется.
func (s *Service) notifyUser(ctx context.Context, userID int64, text string) {
	if userID == 0 {
		return
	}
	if err := s.notifier.NotifyUser(ctx, userID, text); err != nil {
		logger(ctx).Warn("notify user", "user_id", userID, logx.Error(err))
	}
}

func (s *Service) notifyAdmins(ctx context.Context, text string) {
	if err := s.notifier.Notify(ctx, value.AudienceAdmins, text); err != nil {
		logger(ctx).Warn("notify admins", logx.Error(err))
	}
}
