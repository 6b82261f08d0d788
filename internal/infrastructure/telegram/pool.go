package telegram

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/gotd/td/telegram"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"gift_market/internal/config"
)

type ClientPool struct {
	clients []*Client
	index   atomic.Uint64
	ready   chan struct{}
}

var errPoolNotReady = errors.New("telegram accounts are not ready")

func NewPool(cfg config.Telegram, accounts []Account) (*ClientPool, error) {
	if len(accounts) == 0 {
		return nil, errors.New("no accounts provided")
	}

	log := zap.NewNop()
	if cfg.Debug {
		l, err := zap.NewDevelopment()
		if err != nil {
			return nil, fmt.Errorf("create zap logger: %w", err)
		}
		log = l
	}

	pool := &ClientPool{
		clients: make([]*Client, 0, len(accounts)),
		ready:   make(chan struct{}),
	}

	for i, acc := range accounts {
		client, err := newClientWithSession(cfg, acc, fmt.Sprintf("session_%d", i), log)
		if err != nil {
			return nil, fmt.Errorf("create client %d: %w", i, err)
		}

		pool.clients = append(pool.clients, client)
	}

	return pool, nil
}

func newClientWithSession(cfg config.Telegram, acc Account, sessionName string, log *zap.Logger) (*Client, error) {
	if err := os.MkdirAll(cfg.SessionDir, 0o700); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}

	client := telegram.NewClient(cfg.APIID, cfg.APIHash, telegram.Options{
		SessionStorage: &telegram.FileSessionStorage{Path: filepath.Join(cfg.SessionDir, sessionName+".json")},
		Logger:         log.With(zap.String("phone", acc.Phone)),
	})

	return &Client{
		client:   client,
		api:      client.API(),
		peers:    cache.New(peerTTL, 2*peerTTL),
		Phone:    acc.Phone,
		Password: acc.Password,
	}, nil
}

// Start держит все аккаунты подключёнными до отмены ctx.
func (p *ClientPool) Start(ctx context.Context) error {
	var (
		wg         sync.WaitGroup
		readyCount atomic.Int32
		errCh      = make(chan error, len(p.clients))
	)

	for i, c := range p.clients {
		wg.Add(1)

		go func() {
			defer wg.Done()

			err := c.Start(ctx, func() error {
				if int(readyCount.Add(1)) == len(p.clients) {
					close(p.ready)
				}
				return nil
			})
			if err != nil && ctx.Err() == nil {
				errCh <- fmt.Errorf("client %d: %w", i, err)
			}
		}()
	}

	select {
	case <-p.ready:
		logger(ctx).Info("telegram accounts ready", "count", len(p.clients))
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	<-ctx.Done()
	wg.Wait()

	return ctx.Err()
}

func (p *ClientPool) WaitReady(ctx context.Context) error {
	select {
	case <-p.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Ready — проверка готовности для /ready: все аккаунты авторизованы.
func (p *ClientPool) Ready(context.Context) error {
	select {
	case <-p.ready:
		return nil
	default:
		return errPoolNotReady
	}
}

func (p *ClientPool) Size() int {
	return len(p.clients)
}

// TransferGift пробует аккаунты по кругу: подарок лежит на одном из них.
func (p *ClientPool) TransferGift(ctx context.Context, slug, username string) error {
	start := p.index.Add(1)

	var errs []error

	for i := range len(p.clients) {
		c := p.clients[(start+uint64(i))%uint64(len(p.clients))]

		err := c.TransferGift(ctx, slug, username)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		errs = append(errs, fmt.Errorf("%s: %w", c.Phone, err))
	}

	return errors.Join(errs...)
}
