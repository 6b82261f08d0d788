package ton

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xssnick/tonutils-go/liteclient"
	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/ton"
	"github.com/xssnick/tonutils-go/ton/wallet"
)

const (
	mainnetConfigURL = "https://ton.org/global.config.json"
	testnetConfigURL = "https://ton.org/testnet-global.config.json"
)

type WalletOptions struct {
	Mnemonic string
	Testnet  bool
}

// Wallet отправляет выводы с горячего кошелька площадки (v5r1).
type Wallet struct {
	wallet *wallet.Wallet
}

func NewWallet(ctx context.Context, opts WalletOptions) (*Wallet, error) {
	configURL, networkID := mainnetConfigURL, wallet.MainnetGlobalID
	if opts.Testnet {
		configURL, networkID = testnetConfigURL, wallet.TestnetGlobalID
	}

	pool := liteclient.NewConnectionPool()
	if err := pool.AddConnectionsFromConfigUrl(ctx, configURL); err != nil {
		return nil, fmt.Errorf("connect liteservers: %w", err)
	}

	api := ton.NewAPIClient(pool, ton.ProofCheckPolicyFast).WithRetry()

	w, err := wallet.FromSeed(api, strings.Fields(opts.Mnemonic), wallet.ConfigV5R1Final{
		NetworkGlobalID: int32(networkID),
	})
	if err != nil {
		return nil, fmt.Errorf("wallet from seed: %w", err)
	}

	logger(ctx).Info("ton wallet ready", "address", w.WalletAddress().String())

	return &Wallet{wallet: w}, nil
}

func (w *Wallet) Transfer(ctx context.Context, to string, amount decimal.Decimal, comment string) error {
	addr, err := ParseAddress(to)
	if err != nil {
		return err
	}

	coins, err := tlb.FromTON(amount.StringFixed(9))
	if err != nil {
		return fmt.Errorf("convert amount: %w", err)
	}

	if err := w.wallet.Transfer(ctx, addr, coins, comment); err != nil {
		return fmt.Errorf("wallet.Transfer: %w", err)
	}

	return nil
}
