package config

import "time"

type Scheduler struct {
	AuctionsInterval   time.Duration `env:"SCHEDULER_AUCTIONS_INTERVAL" envDefault:"30s"`
	GiveawaysInterval  time.Duration `env:"SCHEDULER_GIVEAWAYS_INTERVAL" envDefault:"1m"`
	DeliveriesInterval time.Duration `env:"SCHEDULER_DELIVERIES_INTERVAL" envDefault:"1m"`
	DepositsInterval   time.Duration `env:"SCHEDULER_DEPOSITS_INTERVAL" envDefault:"15s"`
	WithdrawInterval   time.Duration `env:"SCHEDULER_WITHDRAW_INTERVAL" envDefault:"1m"`
	SweepBatch         int           `env:"SCHEDULER_SWEEP_BATCH" envDefault:"100"`
	LockTTL            time.Duration `env:"SCHEDULER_LOCK_TTL" envDefault:"2m"`

	DeliveryQueue     string `env:"DELIVERY_QUEUE" envDefault:"delivery"`
	DeliveryMaxRetry  int    `env:"DELIVERY_MAX_RETRY" envDefault:"5"`
	WorkerConcurrency int    `env:"DELIVERY_CONCURRENCY" envDefault:"2"`
}
