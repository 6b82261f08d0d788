package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/mymmrac/telego"
	"github.com/shopspring/decimal"

	"gift_market/internal/config"
	"gift_market/internal/domain/service/account"
	"gift_market/internal/domain/service/delivery"
	"gift_market/internal/domain/service/giveaway"
	"gift_market/internal/domain/service/market"
	"gift_market/internal/domain/service/reconcile"
	"gift_market/internal/domain/service/settlement"
	"gift_market/internal/infrastructure/lock"
	"gift_market/internal/infrastructure/notifier"
	"gift_market/internal/infrastructure/persistence"
	"gift_market/internal/infrastructure/queue"
	"gift_market/internal/infrastructure/telegram"
	"gift_market/internal/infrastructure/ton"
	"gift_market/internal/worker"
	"gift_market/pkg/application/connectors"
	"gift_market/pkg/logx"
)

const lockPrefix = "gift-market:"

var errWithdrawalsDisabled = errors.New("withdrawals are disabled: TON_MNEMONIC is not set")

// withdrawalsDisabled оставляет заявки в очереди, пока кошелёк не настроен.
type withdrawalsDisabled struct{}

func (withdrawalsDisabled) Transfer(context.Context, string, decimal.Decimal, string) error {
	return errWithdrawalsDisabled
}

// container — граф зависимостей площадки без серверов.
type container struct {
	pg    *connectors.Postgres
	rds   *connectors.Redis
	store *persistence.Store

	bot           *telego.Bot
	deliveryQueue *queue.Client
	pool          *telegram.ClientPool

	market    *market.Service
	giveaway  *giveaway.Service
	account   *account.Service
	deliverer *delivery.Deliverer
	scheduler *worker.Scheduler
}

func newContainer(ctx context.Context, cfg config.Config) (*container, error) { //nolint:funlen
	c := &container{
		pg: &connectors.Postgres{
			DSN:             cfg.Postgres.DSN,
			MaxOpenConns:    cfg.Postgres.MaxOpenConns,
			MaxIdleConns:    cfg.Postgres.MaxIdleConns,
			ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
			Migrations:      cfg.Postgres.Migrations,
		},
		rds: &connectors.Redis{
			Username:           cfg.Redis.Username,
			Password:           cfg.Redis.Password,
			Address:            cfg.Redis.Address,
			DatabaseNumber:     cfg.Redis.DatabaseNumber,
			PoolSize:           cfg.Redis.PoolSize,
			MinIdleConnections: cfg.Redis.MinIdleConnections,
			MaxIdleConnections: cfg.Redis.MaxIdleConnections,
		},
	}

	c.store = persistence.NewStore(c.pg.Client(ctx))
	locker := lock.NewRedisLocker(c.rds.Client(ctx), lockPrefix)

	c.deliveryQueue = queue.NewClient(redisOpt(cfg.Redis), cfg.Scheduler.DeliveryQueue, cfg.Scheduler.DeliveryMaxRetry)

	// Telegram
	var err error

	c.bot, err = telego.NewBot(cfg.Bot.Token)
	if err != nil {
		c.close(ctx)
		return nil, fmt.Errorf("telego.NewBot: %w", err)
	}

	notify := notifier.NewTelegramBot(c.bot, notifier.Chats{
		Admins:          cfg.Bot.Admins,
		Owners:          cfg.Bot.Owners,
		DepositChatID:   cfg.Bot.DepositChatID,
		DepositThreadID: cfg.Bot.DepositThreadID,
	})

	accounts, err := telegram.LoadAccounts(cfg.Telegram.AccountsFile)
	if err != nil {
		c.close(ctx)
		return nil, fmt.Errorf("load accounts: %w", err)
	}

	c.pool, err = telegram.NewPool(cfg.Telegram, accounts)
	if err != nil {
		c.close(ctx)
		return nil, fmt.Errorf("create pool: %w", err)
	}

	// TON
	feed, err := ton.NewFeed(ton.FeedOptions{
		BaseURL:        cfg.TON.APIURL,
		Token:          cfg.TON.APIToken,
		DepositAddress: cfg.TON.DepositAddress,
		LogTraffic:     cfg.TON.LogTraffic,
	})
	if err != nil {
		c.close(ctx)
		return nil, fmt.Errorf("ton feed: %w", err)
	}

	var sender reconcile.Sender = withdrawalsDisabled{}
	if cfg.TON.Mnemonic != "" {
		sender, err = ton.NewWallet(ctx, ton.WalletOptions{
			Mnemonic: cfg.TON.Mnemonic,
			Testnet:  cfg.TON.Testnet,
		})
		if err != nil {
			c.close(ctx)
			return nil, fmt.Errorf("ton wallet: %w", err)
		}
	} else {
		logger(ctx).Warn("ton mnemonic is not set, withdrawals stay pending")
	}

	// Сервисы
	prices := cfg.Market.PriceList()
	privileges := cfg.Market.Privileges()

	outbox := delivery.NewOutbox(c.store, c.deliveryQueue)

	c.market = market.NewService(
		c.store,
		prices,
		privileges,
		settlement.New(prices, privileges),
		outbox,
		notify,
	).
		WithAssetHost(cfg.Market.AssetHost).
		WithDebug(cfg.App.Debug).
		WithSweepBatch(cfg.Scheduler.SweepBatch)

	c.giveaway = giveaway.NewService(c.store, notify, outbox, notify).
		WithSweepBatch(cfg.Scheduler.SweepBatch)

	c.account = account.NewService(c.store, ton.AddressValidator{}, notify, cfg.Bot.Name)

	reconciler := reconcile.New(c.store, feed, sender, notify).
		WithLocker(locker).
		WithBatch(cfg.Scheduler.SweepBatch)

	c.deliverer = delivery.NewDeliverer(c.store, c.pool, notify)

	c.scheduler = worker.NewScheduler(worker.Sweeps{
		Auctions:   c.market,
		Giveaways:  c.giveaway,
		Deliveries: outbox,
		Reconciler: reconciler,
	}.Jobs(cfg.Scheduler)...)

	return c, nil
}

func (c *container) close(ctx context.Context) {
	if c.deliveryQueue != nil {
		if err := c.deliveryQueue.Close(); err != nil {
			logger(ctx).Error("deliveryQueue.Close", logx.Error(err))
		}
	}

	c.rds.Close(ctx)
	c.pg.Close(ctx)
}

func redisOpt(cfg config.Redis) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Address,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DatabaseNumber,
	}
}
