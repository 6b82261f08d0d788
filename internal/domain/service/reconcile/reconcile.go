// Package reconcile сверяет балансы пользователей с внешним леджером:
// зачисляет входящие депозиты и исполняет заявки на вывод.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"gift_market/internal/domain"
	"gift_market/internal/domain/entity"
	"gift_market/internal/domain/ledger"
	"gift_market/internal/domain/value"
	"gift_market/internal/metrics"
	"gift_market/pkg/contextx"
	"gift_market/pkg/errcodes"
	"gift_market/pkg/logx"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

const (
	defaultBatch = 100
	lockTTL      = time.Minute

	depositLockKey  = "reconcile:deposits"
	withdrawLockKey = "reconcile:withdrawals"
)

// Feed — лента транзакций депозитного адреса, от старых к новым,
// строго после afterLT.
type Feed interface {
	ListTransactions(ctx context.Context, afterLT int64, limit int) ([]entity.ChainTransaction, error)
}

type Sender interface {
	Transfer(ctx context.Context, wallet string, amount decimal.Decimal, comment string) error
}

type Notifier interface {
	Notify(ctx context.Context, audience value.Audience, text string) error
	NotifyUser(ctx context.Context, userID int64, text string) error
}

// Locker — межпроцессная блокировка. release снимает её.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

type Engine struct {
	store    ledger.Store
	feed     Feed
	sender   Sender
	notifier Notifier
	locker   Locker
	batch    int
	now      func() time.Time

	depositMu  sync.Mutex
	withdrawMu sync.Mutex
}

func New(store ledger.Store, feed Feed, sender Sender, notifier Notifier) *Engine {
	return &Engine{
		store:    store,
		feed:     feed,
		sender:   sender,
		notifier: notifier,
		batch:    defaultBatch,
		now:      time.Now,
	}
}

func (e *Engine) WithLocker(locker Locker) *Engine {
	e.locker = locker
	return e
}

func (e *Engine) WithBatch(n int) *Engine {
	if n > 0 {
		e.batch = n
	}
	return e
}

func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// singleFlight берёт локальную и, если настроена, распределённую блокировку.
// ok == false — такой же проход уже идёт.
func (e *Engine) singleFlight(ctx context.Context, mu *sync.Mutex, key string) (func(), bool, error) {
	if !mu.TryLock() {
		return nil, false, nil
	}

	if e.locker == nil {
		return mu.Unlock, true, nil
	}

	release, ok, err := e.locker.TryLock(ctx, key, lockTTL)
	if err != nil || !ok {
		mu.Unlock()
		return nil, false, err
	}

	return func() {
		release()
		mu.Unlock()
	}, true, nil
}

type DepositResult struct {
	Credited int
	Skipped  int
	Cursor   int64
}

// PollDeposits обрабатывает одну страницу ленты. Зачисление и сдвиг курсора
// фиксируются одной транзакцией на каждую внешнюю транзакцию.
func (e *Engine) PollDeposits(ctx context.Context) (DepositResult, error) {
	var res DepositResult

	unlock, ok, err := e.singleFlight(ctx, &e.depositMu, depositLockKey)
	if err != nil {
		return res, fmt.Errorf("lock deposits: %w", err)
	}
	if !ok {
		logger(ctx).Debug("deposit poll already running")
		return res, nil
	}
	defer unlock()

	err = e.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		res.Cursor, err = tx.GetDepositCursor(ctx)
		return err
	})
	if err != nil {
		return res, fmt.Errorf("get deposit cursor: %w", err)
	}

	txs, err := e.feed.ListTransactions(ctx, res.Cursor, e.batch)
	if err != nil {
		if nErr := e.notifier.Notify(ctx, value.AudienceAdmins, "Deposit feed is unavailable: "+err.Error()); nErr != nil {
			logger(ctx).Warn("notify admins", logx.Error(nErr))
		}
		return res, domain.WrapError(err, errcodes.LedgerUnavailable, "list ledger transactions")
	}

	for _, t := range txs {
		if t.LogicalTime <= res.Cursor {
			continue
		}

		user, credited, err := e.applyDeposit(ctx, res.Cursor, t)
		if err != nil {
			if domain.HasCode(err, errcodes.StaleState) {
				logger(ctx).Warn("deposit cursor moved by another worker", slog.Int64(logx.FieldCursor, res.Cursor))
				return res, nil
			}
			return res, fmt.Errorf("apply transaction %s: %w", t.Hash, err)
		}

		res.Cursor = t.LogicalTime

		if !credited {
			res.Skipped++
			metrics.DepositsCredited.WithLabelValues("skipped").Inc()
			continue
		}

		res.Credited++
		metrics.DepositsCredited.WithLabelValues("credited").Inc()
		e.announceDeposit(ctx, user, t)
	}

	if len(txs) > 0 {
		logger(ctx).Info("deposits polled",
			slog.Int("credited", res.Credited),
			slog.Int("skipped", res.Skipped),
			slog.Int64(logx.FieldCursor, res.Cursor),
		)
	}

	return res, nil
}

func (e *Engine) applyDeposit(ctx context.Context, cursor int64, t entity.ChainTransaction) (entity.User, bool, error) {
	var (
		user     entity.User
		credited bool
	)

	err := e.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		if t.Success && t.Comment != "" && t.Amount.IsPositive() {
			u, err := tx.GetUserByDepositComment(ctx, t.Comment)
			switch {
			case err == nil:
				if _, err := tx.AddBalance(ctx, u.ID, t.Amount); err != nil {
					return err
				}
				if err := tx.AppendHistory(ctx, &entity.HistoryRecord{
					UserID: u.ID,
					Type:   value.HistoryDeposit,
					Price:  t.Amount,
				}); err != nil {
					return err
				}
				user, credited = u, true
			case domain.HasCode(err, errcodes.UserNotFound):
				logger(ctx).Debug("deposit without matching comment", slog.String("hash", t.Hash))
			default:
				return err
			}
		}

		return tx.AdvanceDepositCursor(ctx, cursor, t.LogicalTime)
	})

	return user, credited, err
}

func (e *Engine) announceDeposit(ctx context.Context, user entity.User, t entity.ChainTransaction) {
	if err := e.notifier.NotifyUser(ctx, user.ID, fmt.Sprintf("Deposit of %s TON credited.", t.Amount)); err != nil {
		logger(ctx).Warn("notify user", slog.Int64(logx.FieldUserID, user.ID), logx.Error(err))
	}

	text := fmt.Sprintf("Deposit %s TON from @%s (id %d), tx %s", t.Amount, user.Username, user.ID, t.Hash)
	if err := e.notifier.Notify(ctx, value.AudienceDeposits, text); err != nil {
		logger(ctx).Warn("notify deposits channel", logx.Error(err))
	}
}

type WithdrawResult struct {
	Sent   int
	Failed int
}

// DrainWithdrawals исполняет ожидающие заявки. Заявка отмечается выполненной
// только после успешного перевода; при ошибке она остаётся до следующего прохода.
func (e *Engine) DrainWithdrawals(ctx context.Context) (WithdrawResult, error) {
	var res WithdrawResult

	unlock, ok, err := e.singleFlight(ctx, &e.withdrawMu, withdrawLockKey)
	if err != nil {
		return res, fmt.Errorf("lock withdrawals: %w", err)
	}
	if !ok {
		logger(ctx).Debug("withdraw drain already running")
		return res, nil
	}
	defer unlock()

	var pending []entity.WithdrawRequest

	err = e.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		pending, err = tx.ListPendingWithdrawRequests(ctx, e.batch)
		return err
	})
	if err != nil {
		return res, fmt.Errorf("list withdraw requests: %w", err)
	}

	for _, req := range pending {
		if err := e.withdraw(ctx, req); err != nil {
			res.Failed++
			metrics.WithdrawalsSent.WithLabelValues("failed").Inc()
			logger(ctx).Error("withdraw",
				slog.Int64(logx.FieldWithdrawID, req.ID),
				slog.Int64(logx.FieldUserID, req.UserID),
				logx.Error(err),
			)
			e.notifyAdmins(ctx, fmt.Sprintf("Withdraw #%d of %s TON failed: %v", req.ID, req.Amount, err))
			continue
		}

		res.Sent++
		metrics.WithdrawalsSent.WithLabelValues("sent").Inc()

		if err := e.notifier.NotifyUser(ctx, req.UserID, fmt.Sprintf("Withdrawal of %s TON sent.", req.Amount)); err != nil {
			logger(ctx).Warn("notify user", slog.Int64(logx.FieldUserID, req.UserID), logx.Error(err))
		}
	}

	if len(pending) > 0 {
		logger(ctx).Info("withdrawals drained", slog.Int("sent", res.Sent), slog.Int("failed", res.Failed))
	}

	return res, nil
}

func (e *Engine) withdraw(ctx context.Context, req entity.WithdrawRequest) error {
	if err := e.sender.Transfer(ctx, req.Wallet, req.Amount, fmt.Sprintf("withdraw #%d", req.ID)); err != nil {
		return domain.WrapError(err, errcodes.LedgerUnavailable, "transfer")
	}

	err := e.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		if _, err := tx.CompleteWithdrawRequest(ctx, req.ID, e.now()); err != nil {
			return err
		}
		return tx.AppendHistory(ctx, &entity.HistoryRecord{
			UserID: req.UserID,
			Type:   value.HistoryWithdraw,
			Price:  req.Amount,
		})
	})
	if err != nil {
		// Перевод уже ушёл: нужна ручная сверка.
		return fmt.Errorf("transfer sent, complete withdraw request: %w", err)
	}

	return nil
}

func (e *Engine) notifyAdmins(ctx context.Context, text string) {
	if err := e.notifier.Notify(ctx, value.AudienceAdmins, text); err != nil {
		logger(ctx).Warn("notify admins", logx.Error(err))
	}
}
