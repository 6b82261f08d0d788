// Package metrics содержит прометеевские метрики площадки.
// Экспортируются через pkg/metrics.PrometheusServer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

const namespace = "gift_market"

//nolint:gochecknoglobals
var (
	ListingsCreated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "listings_created_total",
		Help:      "Listings put up for sale, by kind.",
	}, []string{"kind"})

	OrderTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "order_transitions_total",
		Help:      "Successful order status transitions.",
	}, []string{"to"})

	SLACancellations = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sla_cancellations_total",
		Help:      "Orders force-cancelled after the seller SLA elapsed.",
	})

	BidsAccepted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bids_accepted_total",
		Help:      "Accepted auction bids.",
	})

	Settlements = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "settlements_total",
		Help:      "Settled sales by channel (direct, auction).",
	}, []string{"channel"})

	CommissionEarned = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "commission_earned_ton_total",
		Help:      "Commission retained by the market, TON.",
	})

	ReferralPaid = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "referral_paid_ton_total",
		Help:      "Referral rewards credited, TON.",
	})

	DepositsCredited = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "deposits_total",
		Help:      "Processed ledger transactions by outcome (credited, skipped).",
	}, []string{"outcome"})

	WithdrawalsSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "withdrawals_total",
		Help:      "Withdraw requests processed by outcome (sent, failed).",
	}, []string{"outcome"})

	DeliveriesQueued = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "deliveries_total",
		Help:      "Gift delivery jobs by outcome (queued, failed, sent).",
	}, []string{"outcome"})

	JobDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "job_duration_seconds",
		Help:      "Duration of background sweeps.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"job"})
)

func init() { //nolint:gochecknoinits
	prometheus.MustRegister(
		ListingsCreated,
		OrderTransitions,
		SLACancellations,
		BidsAccepted,
		Settlements,
		CommissionEarned,
		ReferralPaid,
		DepositsCredited,
		WithdrawalsSent,
		DeliveriesQueued,
		JobDuration,
	)
}

// AddTON прибавляет денежную сумму к счётчику.
func AddTON(c prometheus.Counter, amount decimal.Decimal) {
	if amount.IsPositive() {
		c.Add(amount.InexactFloat64())
	}
}
