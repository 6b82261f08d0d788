// Package delivery ставит передачу подарков в очередь после коммита.
//
// Ордер, который ждёт передачи, помечен delivery_pending. Флаг снимается
// только после успешной постановки задачи; если очередь недоступна, флаг
// остаётся и Requeue повторит постановку. Идентификатор задачи выводится из
// id ордера, поэтому повтор не создаёт второй передачи.
package delivery

import (
	"context"
	"log/slog"

	"gift_market/internal/domain/entity"
	"gift_market/internal/domain/ledger"
	"gift_market/internal/metrics"
	"gift_market/pkg/contextx"
	"gift_market/pkg/logx"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

const defaultRequeueLimit = 100

type Queue interface {
	Enqueue(ctx context.Context, delivery entity.Delivery) error
}

type Outbox struct {
	store ledger.Store
	queue Queue
}

func NewOutbox(store ledger.Store, queue Queue) *Outbox {
	return &Outbox{
		store: store,
		queue: queue,
	}
}

// Dispatch ставит передачи в очередь и возвращает число поставленных.
// Вызывается только вне транзакции.
func (o *Outbox) Dispatch(ctx context.Context, deliveries ...entity.Delivery) int {
	queued := 0

	for _, d := range deliveries {
		if err := o.queue.Enqueue(ctx, d); err != nil {
			metrics.DeliveriesQueued.WithLabelValues("failed").Inc()
			logger(ctx).Warn("delivery enqueue failed, will retry",
				slog.Int64(logx.FieldListingID, d.ListingID),
				slog.Int64(logx.FieldRecipientID, d.RecipientID),
				logx.Error(err),
			)
			continue
		}

		err := o.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
			return tx.MarkDeliveryQueued(ctx, d.ListingID)
		})
		if err != nil {
			// Задача уже в очереди; повторная постановка отсеется по task id.
			logger(ctx).Error("mark delivery queued",
				slog.Int64(logx.FieldListingID, d.ListingID),
				logx.Error(err),
			)
		}

		metrics.DeliveriesQueued.WithLabelValues("queued").Inc()
		queued++
	}

	return queued
}

// Requeue повторяет постановку для ордеров, оставшихся в delivery_pending.
func (o *Outbox) Requeue(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = defaultRequeueLimit
	}

	var pending []entity.Listing

	err := o.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		var err error
		pending, err = tx.ListPendingDeliveries(ctx, limit)
		return err
	})
	if err != nil {
		return 0, err
	}

	if len(pending) == 0 {
		return 0, nil
	}

	deliveries := make([]entity.Delivery, 0, len(pending))
	for _, l := range pending {
		deliveries = append(deliveries, entity.NewDelivery(l))
	}

	queued := o.Dispatch(ctx, deliveries...)

	logger(ctx).Info("deliveries requeued",
		slog.Int("pending", len(pending)),
		slog.Int("queued", queued),
	)

	return queued, nil
}
