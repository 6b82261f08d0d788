package account

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/time/rate"

	"gift_market/internal/domain"
	"gift_market/internal/domain/ledger"
	"gift_market/pkg/errcodes"
	"gift_market/pkg/logx"
)

const (
	// Сообщений рассылки в секунду.
	defaultBroadcastRate rate.Limit = 5
	broadcastBatch                  = 500
)

type BroadcastResult struct {
	Sent   int
	Failed int
}

// WithBroadcastRate задаёт число сообщений рассылки в секунду; 0 или rate.Inf снимает ограничение.
func (s *Service) WithBroadcastRate(r rate.Limit) *Service {
	if r <= 0 {
		r = rate.Inf
	}
	s.broadcastRate = r
	return s
}

// Broadcast отправляет текст всем незаблокированным пользователям.
// Недоставленные сообщения только считаются, рассылка продолжается.
func (s *Service) Broadcast(ctx context.Context, text string) (BroadcastResult, error) {
	var result BroadcastResult

	text = strings.TrimSpace(text)
	if text == "" {
		return result, domain.NewError(errcodes.ValidationError, "broadcast text is empty")
	}

	limiter := rate.NewLimiter(s.broadcastRate, 1)

	var afterID int64
	for {
		var ids []int64

		err := s.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
			var err error
			ids, err = tx.ListUserIDs(ctx, afterID, broadcastBatch)
			return err
		})
		if err != nil {
			return result, fmt.Errorf("list recipients: %w", err)
		}

		for _, id := range ids {
			if err := limiter.Wait(ctx); err != nil {
				return result, fmt.Errorf("broadcast interrupted: %w", err)
			}

			if err := s.notifier.NotifyUser(ctx, id, text); err != nil {
				result.Failed++
				logger(ctx).Debug("broadcast message", slog.Int64(logx.FieldUserID, id), logx.Error(err))
				continue
			}
			result.Sent++
		}

		if len(ids) < broadcastBatch {
			break
		}
		afterID = ids[len(ids)-1]
	}

	logger(ctx).Info("broadcast finished", slog.Int("sent", result.Sent), slog.Int("failed", result.Failed))

	return result, nil
}
