// Package queue ставит и обрабатывает фоновые задачи площадки через asynq.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/hibiken/asynq"
	jsoniter "github.com/json-iterator/go"

	"gift_market/internal/domain/entity"
	"gift_market/internal/domain/service/delivery"
	"gift_market/pkg/application/modules"
	"gift_market/pkg/contextx"
	"gift_market/pkg/logx"
)

var (
	json   = jsoniter.ConfigCompatibleWithStandardLibrary //nolint:gochecknoglobals
	logger = contextx.LoggerFromContextOrDefault          //nolint:gochecknoglobals
)

const (
	TypeDeliverGift = "gift:deliver"

	// deliveryRetention держит завершённую задачу, чтобы повторная постановка
	// с тем же id отсеялась.
	deliveryRetention = 24 * time.Hour
)

func DeliveryTaskID(listingID int64) string {
	return "gift-delivery-" + strconv.FormatInt(listingID, 10)
}

type Client struct {
	client   *asynq.Client
	queue    string
	maxRetry int
}

func NewClient(opt asynq.RedisConnOpt, queue string, maxRetry int) *Client {
	return &Client{
		client:   asynq.NewClient(opt),
		queue:    queue,
		maxRetry: maxRetry,
	}
}

func (c *Client) Close() error {
	return c.client.Close()
}

// Enqueue ставит передачу подарка. Задача с тем же ордером уже в очереди —
// это успех.
func (c *Client) Enqueue(ctx context.Context, d entity.Delivery) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("json.Marshal: %w", err)
	}

	task := asynq.NewTask(TypeDeliverGift, payload,
		asynq.TaskID(DeliveryTaskID(d.ListingID)),
		asynq.Queue(c.queue),
		asynq.MaxRetry(c.maxRetry),
		asynq.Retention(deliveryRetention),
	)

	info, err := c.client.EnqueueContext(ctx, task)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		logger(ctx).Debug("delivery already queued", slog.Int64(logx.FieldListingID, d.ListingID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("client.EnqueueContext: %w", err)
	}

	logger(ctx).Info("delivery queued", slog.String("task_id", info.ID), slog.String("queue", info.Queue))

	return nil
}

type deliverer interface {
	Deliver(ctx context.Context, d entity.Delivery, lastAttempt bool) error
}

func DeliveryHandler(d deliverer) modules.AsynqHandler {
	return modules.AsynqHandler{
		Pattern: TypeDeliverGift,
		Handle: func(ctx context.Context, task *asynq.Task) error {
			var del entity.Delivery
			if err := json.Unmarshal(task.Payload(), &del); err != nil {
				return fmt.Errorf("decode delivery: %v: %w", err, asynq.SkipRetry)
			}

			ctx, traceID := contextx.EnsureTraceID(ctx)
			ctx = contextx.WithLogger(ctx, logger(ctx).With(
				logx.Stringer(logx.FieldTraceID, traceID),
				slog.Int64(logx.FieldListingID, del.ListingID),
			))

			err := d.Deliver(ctx, del, lastAttempt(ctx))
			if err != nil && !delivery.Retryable(err) {
				return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
			}

			return err
		},
	}
}

func lastAttempt(ctx context.Context) bool {
	retried, ok := asynq.GetRetryCount(ctx)
	if !ok {
		return false
	}

	maxRetry, ok := asynq.GetMaxRetry(ctx)
	if !ok {
		return false
	}

	return retried >= maxRetry
}
