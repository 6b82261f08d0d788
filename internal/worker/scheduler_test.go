package worker_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gift_market/internal/config"
	"gift_market/internal/domain/service/market"
	"gift_market/internal/worker"
)

func TestScheduler_RunJob(t *testing.T) {
	errSweep := errors.New("sweep failed")

	testCases := []struct {
		name    string
		job     string
		wantErr error
	}{
		{name: "Success", job: "ok"},
		{name: "Job error is returned", job: "broken", wantErr: errSweep},
		{name: "Unknown job", job: "missing", wantErr: worker.ErrUnknownJob},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rq := require.New(t)

			var calls atomic.Int32

			s := worker.NewScheduler(
				worker.Job{Name: "ok", Interval: time.Minute, Run: func(context.Context) error {
					calls.Add(1)
					return nil
				}},
				worker.Job{Name: "broken", Interval: time.Minute, Run: func(context.Context) error {
					return errSweep
				}},
			)

			err := s.RunJob(context.Background(), tc.job)
			if tc.wantErr != nil {
				rq.ErrorIs(err, tc.wantErr)
				return
			}

			rq.NoError(err)
			rq.Equal(int32(1), calls.Load())
		})
	}
}

func TestScheduler_StartStop(t *testing.T) {
	rq := require.New(t)

	var calls atomic.Int32

	s := worker.NewScheduler(worker.Job{
		Name:     "tick",
		Interval: time.Second,
		Run: func(context.Context) error {
			calls.Add(1)
			return nil
		},
	})

	rq.False(s.IsRunning())
	rq.NoError(s.Start(context.Background()))
	rq.True(s.IsRunning())
	rq.ErrorIs(s.Start(context.Background()), worker.ErrAlreadyRunning)

	rq.Eventually(func() bool { return calls.Load() > 0 }, 5*time.Second, 50*time.Millisecond)

	s.Stop()
	rq.False(s.IsRunning())

	stopped := calls.Load()
	time.Sleep(1500 * time.Millisecond)
	rq.Equal(stopped, calls.Load())

	// Повторный запуск после остановки разрешён.
	rq.NoError(s.Start(context.Background()))
	s.Stop()
}

type auctionsStub struct {
	calls int
}

func (a *auctionsStub) FinalizeAuctions(context.Context) (market.FinalizeResult, error) {
	a.calls++
	return market.FinalizeResult{}, nil
}

func TestSweeps_Jobs(t *testing.T) {
	rq := require.New(t)

	auctions := &auctionsStub{}
	cfg := config.Scheduler{AuctionsInterval: 30 * time.Second}

	jobs := worker.Sweeps{Auctions: auctions}.Jobs(cfg)
	rq.Len(jobs, 1)
	rq.Equal(worker.JobAuctions, jobs[0].Name)
	rq.Equal(30*time.Second, jobs[0].Interval)

	s := worker.NewScheduler(jobs...)
	rq.Equal([]string{worker.JobAuctions}, s.Jobs())
	rq.NoError(s.RunJob(context.Background(), worker.JobAuctions))
	rq.Equal(1, auctions.calls)
}
