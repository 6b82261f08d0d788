// Package application собирает зависимости площадки и запускает её модули.
package application

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"gift_market/internal/config"
	"gift_market/internal/infrastructure/auth"
	"gift_market/internal/infrastructure/queue"
	"gift_market/internal/server"
	"gift_market/internal/transport/bot"
	"gift_market/internal/transport/bot/handler"
	"gift_market/internal/worker"
	"gift_market/pkg/application/modules"
	"gift_market/pkg/contextx"
	"gift_market/pkg/logx"
	"gift_market/pkg/middlewarex"
	"gift_market/pkg/probe"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

const logFieldMaxLen = 2048

// Run запускает площадку и блокируется до отмены ctx или падения модуля.
func Run(ctx context.Context, cfg config.Config) error { //nolint:funlen
	g, ctx := errgroup.WithContext(ctx)

	c, err := newContainer(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.close(ctx)

	tokens := auth.NewTokens(cfg.Auth.Secret, cfg.Auth.TokenTTL)

	// HTTP
	srv := server.NewServer(
		server.NewMarketServer(c.market),
		server.NewGiveawayServer(c.giveaway),
		server.NewUserServer(
			c.account,
			tokens,
			server.InitDataOptions{BotToken: cfg.Bot.Token, MaxAge: cfg.Auth.InitDataMaxAge},
			cfg.TON.DepositAddress,
		),
	)

	masker := logx.NewSensitiveDataMasker()

	router := chi.NewRouter()
	router.Use(
		middlewarex.TraceID,
		middlewarex.RequestLogging(masker, logFieldMaxLen),
		middlewarex.ResponseLogging(masker, logFieldMaxLen),
		middlewarex.Recovery,
	)
	srv.RegisterRoutes(router, server.Middlewares{
		Auth:      middlewarex.Auth(tokens),
		RateLimit: middlewarex.RateLimit(rate.Limit(cfg.HTTP.RateLimit), cfg.HTTP.RateBurst),
	})

	httpServer := &http.Server{
		//nolint:exhaustruct
		Addr:              cfg.HTTP.ListenAddress,
		Handler:           router,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	// Модули
	modules.HTTPServer{ShutdownTimeout: cfg.HTTP.ShutdownTimeout}.Run(ctx, g, httpServer)

	modules.MetricServer{
		Name:          cfg.App.Name,
		Version:       cfg.App.Version,
		ListenAddress: cfg.HTTP.MetricsListenAddress,
	}.Run(ctx, g)

	modules.ProbeServer{
		Name:          cfg.App.Name,
		Version:       cfg.App.Version,
		ListenAddress: cfg.HTTP.ProbeListenAddress,
		Checks: map[string]probe.Check{
			"postgres": c.store.Ping,
			"redis":    c.rds.Ping,
			"telegram": c.pool.Ready,
		},
		CheckTimeout: cfg.HTTP.ProbeCheckTimeout,
	}.Run(ctx, g)

	modules.AsynqServer{
		RedisUsername: cfg.Redis.Username,
		RedisPassword: cfg.Redis.Password,
		RedisAddress:  cfg.Redis.Address,
		RedisDB:       cfg.Redis.DatabaseNumber,
		Concurrency:   cfg.Scheduler.WorkerConcurrency,
	}.Run(ctx, g, modules.AsynqQueues{cfg.Scheduler.DeliveryQueue: 1}, queue.DeliveryHandler(c.deliverer))

	g.Go(func() error {
		if err := c.pool.Start(ctx); err != nil && ctx.Err() == nil {
			return fmt.Errorf("telegram pool: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := c.pool.WaitReady(ctx); err != nil {
			return nil //nolint:nilerr // остановка до готовности
		}
		logger(ctx).Info("telegram pool ready", slog.Int("clients", c.pool.Size()))
		return nil
	})

	if err := c.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("scheduler.Start: %w", err)
	}
	defer c.scheduler.Stop()

	adminBot := bot.New(c.bot, cfg.Bot.Admins, handler.New(c.scheduler, c.account))
	g.Go(func() error {
		return adminBot.Run(ctx)
	})

	logger(ctx).Info("application started")

	if err := g.Wait(); err != nil {
		return fmt.Errorf("errgroup.Wait: %w", err)
	}

	return nil
}

// RunJob однократно выполняет фоновую задачу без запуска серверов.
func RunJob(ctx context.Context, cfg config.Config, name string) error {
	c, err := newContainer(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.close(ctx)

	return c.scheduler.RunJob(ctx, name)
}

// Jobs — имена задач, доступных RunJob.
func Jobs() []string {
	return []string{
		worker.JobAuctions,
		worker.JobGiveaways,
		worker.JobDeliveries,
		worker.JobDeposits,
		worker.JobWithdraw,
	}
}
