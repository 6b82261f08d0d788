package telegram

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"
	"github.com/patrickmn/go-cache"
)

// ConsoleInput запрашивает код подтверждения при первом входе аккаунта.
type ConsoleInput struct{}

func (ConsoleInput) Code(_ context.Context, _ *tg.AuthSentCode) (string, error) {
	fmt.Print("Введите код из Telegram: ")

	text, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read code: %w", err)
	}

	return strings.TrimSpace(text), nil
}

type Client struct {
	client   *telegram.Client
	api      *tg.Client
	peers    *cache.Cache
	Phone    string
	Password string
}

// Start поднимает соединение и держит его открытым до отмены ctx.
func (c *Client) Start(ctx context.Context, onReady func() error) error {
	return c.client.Run(ctx, func(ctx context.Context) error {
		status, err := c.client.Auth().Status(ctx)
		if err != nil {
			return fmt.Errorf("auth status: %w", err)
		}

		if !status.Authorized {
			logger(ctx).Info("account not authorized, starting login flow", "phone", c.Phone)
			if err := c.authenticate(ctx); err != nil {
				return fmt.Errorf("authenticate: %w", err)
			}
		}

		if onReady != nil {
			if err := onReady(); err != nil {
				return err
			}
		}

		<-ctx.Done()
		return ctx.Err()
	})
}

func (c *Client) authenticate(ctx context.Context) error {
	flow := auth.NewFlow(
		auth.Constant(c.Phone, c.Password, ConsoleInput{}),
		auth.SendCodeOptions{},
	)

	return c.client.Auth().IfNecessary(ctx, flow)
}
