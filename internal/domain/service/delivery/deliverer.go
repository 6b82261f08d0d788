package delivery

import (
	"context"
	"fmt"
	"log/slog"

	"gift_market/internal/domain"
	"gift_market/internal/domain/entity"
	"gift_market/internal/domain/ledger"
	"gift_market/internal/domain/value"
	"gift_market/pkg/errcodes"
	"gift_market/pkg/logx"
)

// Transferer передаёт уникальный подарок пользователю во внешней системе.
type Transferer interface {
	TransferGift(ctx context.Context, slug, username string) error
}

type Notifier interface {
	Notify(ctx context.Context, audience value.Audience, text string) error
	NotifyUser(ctx context.Context, userID int64, text string) error
}

// Deliverer исполняет задачу передачи, поставленную Outbox.
type Deliverer struct {
	store      ledger.Store
	transferer Transferer
	notifier   Notifier
}

func NewDeliverer(store ledger.Store, transferer Transferer, notifier Notifier) *Deliverer {
	return &Deliverer{
		store:      store,
		transferer: transferer,
		notifier:   notifier,
	}
}

// Deliver передаёт подарок получателю. Ошибки вида InvalidInput/NotFound
// повторять бессмысленно; lastAttempt включает оповещение администраторов.
func (d *Deliverer) Deliver(ctx context.Context, del entity.Delivery, lastAttempt bool) error {
	err := d.deliver(ctx, del)
	if err == nil {
		return nil
	}

	if lastAttempt || !Retryable(err) {
		text := fmt.Sprintf("Gift %s for user %d was not delivered: %v", del.GiftRef, del.RecipientID, err)
		if nErr := d.notifier.Notify(ctx, value.AudienceAdmins, text); nErr != nil {
			logger(ctx).Warn("notify admins", logx.Error(nErr))
		}
	}

	return err
}

func (d *Deliverer) deliver(ctx context.Context, del entity.Delivery) error {
	var recipient entity.User

	err := d.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		var err error
		recipient, err = tx.GetUser(ctx, del.RecipientID)
		return err
	})
	if err != nil {
		return fmt.Errorf("get recipient: %w", err)
	}

	if recipient.Username == "" {
		return domain.NewError(errcodes.NotUsername, "recipient has no username")
	}

	if err := d.transferer.TransferGift(ctx, del.GiftRef, recipient.Username); err != nil {
		return domain.WrapError(err, errcodes.DeliveryFailed, "transfer gift")
	}

	logger(ctx).Info("gift delivered",
		slog.Int64(logx.FieldListingID, del.ListingID),
		slog.Int64(logx.FieldRecipientID, del.RecipientID),
		slog.String("gift", del.GiftRef),
	)

	if err := d.notifier.NotifyUser(ctx, del.RecipientID, fmt.Sprintf("Gift %s has been sent to you.", del.GiftRef)); err != nil {
		logger(ctx).Warn("notify recipient", slog.Int64(logx.FieldUserID, del.RecipientID), logx.Error(err))
	}

	return nil
}

// Retryable сообщает, имеет ли смысл повторить передачу.
func Retryable(err error) bool {
	switch domain.KindOf(err) {
	case domain.KindInvalidInput, domain.KindNotFound:
		return false
	default:
		return true
	}
}
