package worker

import (
	"context"

	"gift_market/internal/config"
	"gift_market/internal/domain/service/giveaway"
	"gift_market/internal/domain/service/market"
	"gift_market/internal/domain/service/reconcile"
)

const (
	JobAuctions   = "auctions"
	JobGiveaways  = "giveaways"
	JobDeliveries = "deliveries"
	JobDeposits   = "deposits"
	JobWithdraw   = "withdraw"
)

type AuctionFinalizer interface {
	FinalizeAuctions(ctx context.Context) (market.FinalizeResult, error)
}

type GiveawayFinalizer interface {
	FinalizeGiveaways(ctx context.Context) (giveaway.FinalizeResult, error)
}

type DeliveryRequeuer interface {
	Requeue(ctx context.Context, limit int) (int, error)
}

type Reconciler interface {
	PollDeposits(ctx context.Context) (reconcile.DepositResult, error)
	DrainWithdrawals(ctx context.Context) (reconcile.WithdrawResult, error)
}

// Sweeps — сервисы, чьи проходы запускаются по расписанию.
// Незаданный сервис не получает задачу.
type Sweeps struct {
	Auctions   AuctionFinalizer
	Giveaways  GiveawayFinalizer
	Deliveries DeliveryRequeuer
	Reconciler Reconciler
}

func (s Sweeps) Jobs(cfg config.Scheduler) []Job {
	var jobs []Job

	if s.Auctions != nil {
		jobs = append(jobs, Job{
			Name:     JobAuctions,
			Interval: cfg.AuctionsInterval,
			Run: func(ctx context.Context) error {
				_, err := s.Auctions.FinalizeAuctions(ctx)
				return err
			},
		})
	}

	if s.Giveaways != nil {
		jobs = append(jobs, Job{
			Name:     JobGiveaways,
			Interval: cfg.GiveawaysInterval,
			Run: func(ctx context.Context) error {
				_, err := s.Giveaways.FinalizeGiveaways(ctx)
				return err
			},
		})
	}

	if s.Deliveries != nil {
		jobs = append(jobs, Job{
			Name:     JobDeliveries,
			Interval: cfg.DeliveriesInterval,
			Run: func(ctx context.Context) error {
				_, err := s.Deliveries.Requeue(ctx, cfg.SweepBatch)
				return err
			},
		})
	}

	if s.Reconciler != nil {
		jobs = append(jobs,
			Job{
				Name:     JobDeposits,
				Interval: cfg.DepositsInterval,
				Run: func(ctx context.Context) error {
					_, err := s.Reconciler.PollDeposits(ctx)
					return err
				},
			},
			Job{
				Name:     JobWithdraw,
				Interval: cfg.WithdrawInterval,
				Run: func(ctx context.Context) error {
					_, err := s.Reconciler.DrainWithdrawals(ctx)
					return err
				},
			},
		)
	}

	return jobs
}
