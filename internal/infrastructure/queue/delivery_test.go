package queue_test

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"gift_market/internal/domain"
	"gift_market/internal/domain/entity"
	"gift_market/internal/infrastructure/queue"
	"gift_market/pkg/errcodes"
)

type delivererMock struct {
	err  error
	got  []entity.Delivery
	last []bool
}

func (d *delivererMock) Deliver(_ context.Context, del entity.Delivery, lastAttempt bool) error {
	d.got = append(d.got, del)
	d.last = append(d.last, lastAttempt)
	return d.err
}

func TestDeliveryHandler(t *testing.T) {
	testCases := []struct {
		name      string
		payload   string
		err       error
		wantErr   bool
		wantSkip  bool
		wantCalls int
	}{
		{
			name:      "Delivered",
			payload:   `{"listing_id":42,"recipient_id":7,"gift_ref":"PlushPepe-1"}`,
			wantCalls: 1,
		},
		{
			name:     "Broken payload",
			payload:  `{"listing_id":`,
			wantErr:  true,
			wantSkip: true,
		},
		{
			name:      "Transient failure is retried",
			payload:   `{"listing_id":42,"recipient_id":7,"gift_ref":"PlushPepe-1"}`,
			err:       domain.WrapError(errors.New("FLOOD_WAIT"), errcodes.DeliveryFailed, "transfer gift"),
			wantErr:   true,
			wantCalls: 1,
		},
		{
			name:      "Permanent failure is not retried",
			payload:   `{"listing_id":42,"recipient_id":7,"gift_ref":"PlushPepe-1"}`,
			err:       domain.NewError(errcodes.NotUsername, "recipient has no username"),
			wantErr:   true,
			wantSkip:  true,
			wantCalls: 1,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rq := require.New(t)
			d := &delivererMock{err: tc.err}
			h := queue.DeliveryHandler(d)
			rq.Equal(queue.TypeDeliverGift, h.Pattern)

			err := h.Handle(context.Background(), asynq.NewTask(queue.TypeDeliverGift, []byte(tc.payload)))

			rq.Len(d.got, tc.wantCalls)
			if !tc.wantErr {
				rq.NoError(err)
				rq.Equal(entity.Delivery{ListingID: 42, RecipientID: 7, GiftRef: "PlushPepe-1"}, d.got[0])
				rq.Equal([]bool{false}, d.last)
				return
			}

			rq.Error(err)
			rq.Equal(tc.wantSkip, errors.Is(err, asynq.SkipRetry))
		})
	}
}

func TestDeliveryTaskID(t *testing.T) {
	require.Equal(t, "gift-delivery-42", queue.DeliveryTaskID(42))
}
