package ton

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
	"github.com/xssnick/tonutils-go/address"

	"gift_market/internal/domain/entity"
	"gift_market/internal/domain/value"
	"gift_market/pkg/httpx"
	"gift_market/pkg/logx"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary //nolint:gochecknoglobals

const (
	feedTimeout    = 20 * time.Second
	logFieldMaxLen = 4096
	textCommentOp  = "text_comment"
)

// Feed читает входящие транзакции депозитного адреса через tonapi.
type Feed struct {
	baseURL string
	deposit *address.Address
	client  *http.Client
}

type FeedOptions struct {
	BaseURL        string
	Token          string
	DepositAddress string
	LogTraffic     bool
}

func NewFeed(opts FeedOptions) (*Feed, error) {
	deposit, err := ParseAddress(opts.DepositAddress)
	if err != nil {
		return nil, fmt.Errorf("deposit address: %w", err)
	}

	var transport http.RoundTripper = http.DefaultTransport
	if opts.LogTraffic {
		transport = httpx.NewLoggingRoundTripper(transport,
			httpx.WithLogFieldMaxLen(logFieldMaxLen),
			httpx.WithLogLevel(slog.LevelDebug),
		)
	}
	if opts.Token != "" {
		transport = httpx.NewAuthBearerRoundTripper(transport, httpx.StaticToken(opts.Token))
	}

	return &Feed{
		baseURL: opts.BaseURL,
		deposit: deposit,
		client:  &http.Client{Transport: transport, Timeout: feedTimeout},
	}, nil
}

type transactionsResponse struct {
	Transactions []transaction `json:"transactions"`
}

type transaction struct {
	Hash    string   `json:"hash"`
	LT      int64    `json:"lt"`
	Success bool     `json:"success"`
	InMsg   *message `json:"in_msg"`
}

type message struct {
	Value         int64        `json:"value"`
	Source        *account     `json:"source"`
	Destination   *account     `json:"destination"`
	DecodedOpName string       `json:"decoded_op_name"`
	DecodedBody   *decodedBody `json:"decoded_body"`
}

type account struct {
	Address string `json:"address"`
}

type decodedBody struct {
	Text string `json:"text"`
}

func (f *Feed) ListTransactions(ctx context.Context, afterLT int64, limit int) ([]entity.ChainTransaction, error) {
	q := url.Values{}
	q.Set("after_lt", strconv.FormatInt(afterLT, 10))
	q.Set("limit", strconv.Itoa(limit))
	q.Set("sort_order", "asc")

	endpoint := fmt.Sprintf("%s/v2/blockchain/accounts/%s/transactions?%s",
		f.baseURL, url.PathEscape(RawAddress(f.deposit)), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("http.NewRequestWithContext: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("client.Do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tonapi status %d", resp.StatusCode)
	}

	var body transactionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode transactions: %w", err)
	}

	res := make([]entity.ChainTransaction, 0, len(body.Transactions))
	for _, t := range body.Transactions {
		if t.LT <= afterLT {
			continue
		}
		res = append(res, f.convert(ctx, t))
	}

	return res, nil
}

// convert оставляет Success только для входящего перевода на депозитный адрес.
func (f *Feed) convert(ctx context.Context, t transaction) entity.ChainTransaction {
	ct := entity.ChainTransaction{
		LogicalTime: t.LT,
		Hash:        t.Hash,
		Amount:      decimal.Zero,
	}

	msg := t.InMsg
	if msg == nil || msg.Destination == nil || msg.Value <= 0 {
		return ct
	}

	dest, err := ParseAddress(msg.Destination.Address)
	if err != nil {
		logger(ctx).Warn("unparsable destination", "hash", t.Hash, logx.Error(err))
		return ct
	}

	ct.Destination = msg.Destination.Address
	ct.Success = t.Success && SameAddress(dest, f.deposit)
	ct.Amount = decimal.New(msg.Value, -value.MoneyPrecision)

	if msg.Source != nil {
		ct.Source = msg.Source.Address
	}
	if msg.DecodedOpName == textCommentOp && msg.DecodedBody != nil {
		ct.Comment = strings.TrimSpace(msg.DecodedBody.Text)
	}

	return ct
}
