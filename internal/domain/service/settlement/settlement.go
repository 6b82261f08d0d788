// Package settlement распределяет деньги завершённой продажи между
// продавцом, площадкой и реферером продавца.
package settlement

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"gift_market/internal/domain/ledger"
	"gift_market/internal/metrics"
	"gift_market/pkg/contextx"
	"gift_market/pkg/logx"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

type Channel string

const (
	ChannelDirect  Channel = "direct"
	ChannelAuction Channel = "auction"
)

// Result — раскладка одной продажи.
// SellerCredit + Commission == Price, ReferrerReward <= Commission.
type Result struct {
	Price          decimal.Decimal
	Commission     decimal.Decimal
	SellerCredit   decimal.Decimal
	ReferrerID     int64
	ReferrerReward decimal.Decimal
}

type priceList interface {
	Commission(price decimal.Decimal, exempt bool) decimal.Decimal
	ReferrerReward(commission decimal.Decimal, vipReferrer bool) decimal.Decimal
}

type privileges interface {
	IsVIP(userID int64) bool
	IsCommissionExempt(userID int64) bool
}

type Engine struct {
	prices     priceList
	privileges privileges
}

func New(prices priceList, privileges privileges) *Engine {
	return &Engine{
		prices:     prices,
		privileges: privileges,
	}
}

// Compute считает раскладку без побочных эффектов. referrerID == 0 — реферера нет.
func (e *Engine) Compute(sellerID, referrerID int64, price decimal.Decimal) Result {
	commission := e.prices.Commission(price, e.privileges.IsCommissionExempt(sellerID))

	res := Result{
		Price:          price,
		Commission:     commission,
		SellerCredit:   price.Sub(commission),
		ReferrerReward: decimal.Zero,
	}

	if referrerID != 0 {
		res.ReferrerID = referrerID
		res.ReferrerReward = e.prices.ReferrerReward(commission, e.privileges.IsVIP(referrerID))
	}

	return res
}

// Apply начисляет продавцу и рефереру внутри транзакции вызывающего.
// Любая ошибка должна откатить переход статуса, который вызвал расчёт.
func (e *Engine) Apply(
	ctx context.Context,
	tx ledger.Tx,
	sellerID int64,
	price decimal.Decimal,
	channel Channel,
) (Result, error) {
	referrerID, err := tx.GetReferrer(ctx, sellerID)
	if err != nil {
		return Result{}, fmt.Errorf("get referrer: %w", err)
	}

	res := e.Compute(sellerID, referrerID, price)

	if _, err := tx.AddBalance(ctx, sellerID, res.SellerCredit); err != nil {
		return Result{}, fmt.Errorf("credit seller: %w", err)
	}

	if res.ReferrerID != 0 && res.ReferrerReward.IsPositive() {
		if _, err := tx.AddBalance(ctx, res.ReferrerID, res.ReferrerReward); err != nil {
			return Result{}, fmt.Errorf("credit referrer: %w", err)
		}
		if err := tx.AddCommission(ctx, res.ReferrerID, res.ReferrerReward); err != nil {
			return Result{}, fmt.Errorf("add referrer commission: %w", err)
		}
	}

	logger(ctx).Info("sale settled",
		slog.String("channel", string(channel)),
		slog.Int64(logx.FieldSellerID, sellerID),
		logx.Money("price", price),
		logx.Money("commission", res.Commission),
		slog.Int64(logx.FieldReferrerID, res.ReferrerID),
		logx.Money("referrer_reward", res.ReferrerReward),
	)

	return res, nil
}

// Observe публикует метрики после коммита транзакции.
func Observe(res Result, channel Channel) {
	metrics.Settlements.WithLabelValues(string(channel)).Inc()
	metrics.AddTON(metrics.CommissionEarned, res.Commission.Sub(res.ReferrerReward))
	metrics.AddTON(metrics.ReferralPaid, res.ReferrerReward)
}
