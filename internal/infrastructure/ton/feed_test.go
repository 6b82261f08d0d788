package ton_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"gift_market/internal/infrastructure/ton"
)

const transactionsJSON = `{"transactions":[
 {"hash":"h1","lt":101,"success":true,"in_msg":{"value":1500000000,
   "source":{"address":"0:1111111111111111111111111111111111111111111111111111111111111111"},
   "destination":{"address":"` + rawAddr + `"},
   "decoded_op_name":"text_comment","decoded_body":{"text":" 12345678 "}}},
 {"hash":"h2","lt":102,"success":false,"in_msg":{"value":700000000,
   "destination":{"address":"` + rawAddr + `"},
   "decoded_op_name":"text_comment","decoded_body":{"text":"12345678"}}},
 {"hash":"h3","lt":103,"success":true,"in_msg":{"value":0}},
 {"hash":"h4","lt":104,"success":true,"in_msg":{"value":5,
   "destination":{"address":"0:2222222222222222222222222222222222222222222222222222222222222222"}}}
]}`

func TestFeed_ListTransactions(t *testing.T) {
	rq := require.New(t)

	var gotQuery, gotAuth, gotPath string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(transactionsJSON))
	}))
	defer srv.Close()

	feed, err := ton.NewFeed(ton.FeedOptions{
		BaseURL:        srv.URL,
		Token:          "secret",
		DepositAddress: friendlyAddr,
	})
	rq.NoError(err)

	txs, err := feed.ListTransactions(context.Background(), 100, 10)
	rq.NoError(err)

	rq.Equal("/v2/blockchain/accounts/"+rawAddr+"/transactions", gotPath)
	rq.Equal("after_lt=100&limit=10&sort_order=asc", gotQuery)
	rq.Equal("Bearer secret", gotAuth)

	rq.Len(txs, 4)

	rq.True(txs[0].Success)
	rq.Equal("12345678", txs[0].Comment)
	rq.True(decimal.RequireFromString("1.5").Equal(txs[0].Amount))

	rq.False(txs[1].Success)
	rq.False(txs[2].Success)
	rq.False(txs[3].Success)
	rq.Equal(int64(104), txs[3].LogicalTime)
}

func TestFeed_ListTransactionsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	feed, err := ton.NewFeed(ton.FeedOptions{BaseURL: srv.URL, DepositAddress: rawAddr})
	require.NoError(t, err)

	_, err = feed.ListTransactions(context.Background(), 0, 10)
	require.Error(t, err)
}
