package handler

import (
	"context"

	"github.com/shopspring/decimal"

	"gift_market/internal/domain/service/account"
	"gift_market/pkg/contextx"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

type Scheduler interface {
	Start(ctx context.Context) error
	Stop()
	IsRunning() bool
	Jobs() []string
	RunJob(ctx context.Context, name string) error
}

type Accounts interface {
	Profile(ctx context.Context, userID int64) (account.Profile, error)
	SetBanned(ctx context.Context, userID int64, banned bool) error
	Credit(ctx context.Context, userID int64, amount decimal.Decimal) (decimal.Decimal, error)
	Broadcast(ctx context.Context, text string) (account.BroadcastResult, error)
}

// Handler обрабатывает команды администраторов площадки.
type Handler struct {
	scheduler Scheduler
	accounts  Accounts
}

func New(scheduler Scheduler, accounts Accounts) *Handler {
	return &Handler{
		scheduler: scheduler,
		accounts:  accounts,
	}
}
