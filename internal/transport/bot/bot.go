// Package bot запускает административный интерфейс площадки в Telegram.
package bot

import (
	"context"
	"fmt"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"

	"gift_market/internal/transport/bot/handler"
	"gift_market/pkg/contextx"
	"gift_market/pkg/logx"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

const pollingTimeout = 60

// Bot принимает команды администраторов через long polling.
type Bot struct {
	bot     *telego.Bot
	admins  []int64
	handler *handler.Handler
}

func New(bot *telego.Bot, admins []int64, h *handler.Handler) *Bot {
	return &Bot{
		bot:     bot,
		admins:  admins,
		handler: h,
	}
}

// Run обрабатывает обновления до отмены ctx.
func (b *Bot) Run(ctx context.Context) error {
	updates, err := b.bot.UpdatesViaLongPolling(ctx, &telego.GetUpdatesParams{
		Timeout: pollingTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to get updates: %w", err)
	}

	botHandler, err := th.NewBotHandler(b.bot, updates)
	if err != nil {
		return fmt.Errorf("failed to create bot handler: %w", err)
	}

	b.handler.RegisterRoutes(botHandler, b.admins)

	go func() {
		if err := botHandler.Start(); err != nil {
			logger(ctx).Error("bot handler start", logx.Error(err))
		}
	}()

	logger(ctx).Info("admin bot started")

	<-ctx.Done()

	if err := botHandler.Stop(); err != nil {
		logger(ctx).Error("bot handler stop", logx.Error(err))
	}

	logger(ctx).Info("admin bot stopped")

	return nil
}
