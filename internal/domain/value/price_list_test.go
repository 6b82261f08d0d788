package value_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"gift_market/internal/domain/value"
)

func TestPriceList_Validate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(p *value.PriceList)
		wantErr bool
	}{
		{
			name:   "Defaults",
			mutate: func(*value.PriceList) {},
		},
		{
			name:    "Negative fee",
			mutate:  func(p *value.PriceList) { p.ListingFee = decimal.NewFromInt(-1) },
			wantErr: true,
		},
		{
			name:    "Percent above hundred",
			mutate:  func(p *value.PriceList) { p.VIPReferralPercent = decimal.NewFromInt(101) },
			wantErr: true,
		},
		{
			name:    "Zero SLA",
			mutate:  func(p *value.PriceList) { p.SellerSLA = 0 },
			wantErr: true,
		},
		{
			name:    "Unordered rarity thresholds",
			mutate:  func(p *value.PriceList) { p.Rarity.Rare = 3 },
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := value.DefaultPriceList()
			tc.mutate(&p)

			if tc.wantErr {
				require.Error(t, p.Validate())
			} else {
				require.NoError(t, p.Validate())
			}
		})
	}
}

func TestPriceList_MinNextBid(t *testing.T) {
	rq := require.New(t)
	p := value.DefaultPriceList()

	rq.True(decimal.RequireFromString("10.99").Equal(p.MinNextBid(decimal.NewFromInt(10), decimal.NewFromInt(1))))
	rq.True(decimal.RequireFromString("10.49").Equal(p.MinNextBid(decimal.NewFromInt(10), decimal.RequireFromString("0.5"))))
}

func TestPriceList_ListingFeeFor(t *testing.T) {
	rq := require.New(t)
	p := value.DefaultPriceList()
	p.SellerSLA = time.Minute

	rq.True(p.ListingFee.Equal(p.ListingFeeFor(false, false)))
	rq.True(p.VIPListingFee.Equal(p.ListingFeeFor(true, false)))
	rq.True(p.ListingFeeFor(true, true).IsZero())
}
