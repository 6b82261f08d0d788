package settlement_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"gift_market/internal/domain/service/settlement"
	"gift_market/internal/domain/value"
	"gift_market/pkg/tests"
)

func TestEngine_Compute(t *testing.T) {
	const (
		seller    int64 = 1
		holder    int64 = 2
		referrer  int64 = 3
		vipReferr int64 = 4
	)

	engine := settlement.New(value.DefaultPriceList(), value.NewPrivileges([]int64{vipReferr}, []int64{holder}))

	testCases := []struct {
		name       string
		seller     int64
		referrer   int64
		price      string
		commission string
		credit     string
		reward     string
	}{
		{
			name:       "No referrer",
			seller:     seller,
			price:      "10",
			commission: "0.5",
			credit:     "9.5",
			reward:     "0",
		},
		{
			name:       "Default referrer",
			seller:     seller,
			referrer:   referrer,
			price:      "10",
			commission: "0.5",
			credit:     "9.5",
			reward:     "0.1",
		},
		{
			name:       "VIP referrer",
			seller:     seller,
			referrer:   vipReferr,
			price:      "10",
			commission: "0.5",
			credit:     "9.5",
			reward:     "0.2",
		},
		{
			name:       "Commission exempt seller",
			seller:     holder,
			referrer:   referrer,
			price:      "10",
			commission: "0",
			credit:     "10",
			reward:     "0",
		},
		{
			name:       "Truncated to nanoton",
			seller:     seller,
			referrer:   referrer,
			price:      "0.000000033",
			commission: "0.000000001",
			credit:     "0.000000032",
			reward:     "0",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rq := require.New(t)

			res := engine.Compute(tc.seller, tc.referrer, decimal.RequireFromString(tc.price))

			rq.True(decimal.RequireFromString(tc.commission).Equal(res.Commission), res.Commission.String())
			rq.True(decimal.RequireFromString(tc.credit).Equal(res.SellerCredit), res.SellerCredit.String())
			rq.True(decimal.RequireFromString(tc.reward).Equal(res.ReferrerReward), res.ReferrerReward.String())
			rq.True(res.SellerCredit.Add(res.Commission).Equal(res.Price))
			rq.True(res.ReferrerReward.LessThanOrEqual(res.Commission))
		})
	}
}

func TestEngine_ComputeConservesPrice(t *testing.T) {
	rq := require.New(t)
	random := tests.NewRandomizer()

	const (
		seller    int64 = 1
		vipReferr int64 = 2
	)

	engine := settlement.New(value.DefaultPriceList(), value.NewPrivileges([]int64{vipReferr}, nil))
	limit := decimal.NewFromInt(100_000)

	for range 1000 {
		price := random.Amount(limit, value.MoneyPrecision)

		var referrer int64
		if random.Bool() {
			referrer = vipReferr
		}

		res := engine.Compute(seller, referrer, price)

		rq.True(res.SellerCredit.Add(res.Commission).Equal(price), "price %s", price)
		rq.False(res.Commission.IsNegative(), "price %s", price)
		rq.False(res.ReferrerReward.IsNegative(), "price %s", price)
		rq.True(res.ReferrerReward.LessThanOrEqual(res.Commission), "price %s", price)
	}
}
