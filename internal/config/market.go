package config

import (
	"time"

	"github.com/shopspring/decimal"

	"gift_market/internal/domain/value"
)

type Market struct {
	ListingFee         decimal.Decimal `env:"MARKET_LISTING_FEE" envDefault:"0.5"`
	VIPListingFee      decimal.Decimal `env:"MARKET_VIP_LISTING_FEE" envDefault:"3"`
	BuyerFee           decimal.Decimal `env:"MARKET_BUYER_FEE" envDefault:"0"`
	SellerFeePercent   decimal.Decimal `env:"MARKET_SELLER_FEE_PERCENT" envDefault:"5"`
	ReferralPercent    decimal.Decimal `env:"MARKET_REFERRAL_PERCENT" envDefault:"20"`
	VIPReferralPercent decimal.Decimal `env:"MARKET_VIP_REFERRAL_PERCENT" envDefault:"40"`
	BidTolerance       decimal.Decimal `env:"MARKET_BID_TOLERANCE" envDefault:"0.01"`
	SellerSLA          time.Duration   `env:"MARKET_SELLER_SLA" envDefault:"20m"`

	RarityCommon   float64 `env:"MARKET_RARITY_COMMON" envDefault:"2.5"`
	RarityRare     float64 `env:"MARKET_RARITY_RARE" envDefault:"1.7"`
	RarityMythical float64 `env:"MARKET_RARITY_MYTHICAL" envDefault:"1.0"`

	VIPUserIDs       []int64 `env:"MARKET_VIP_USERS" envSeparator:","`
	FeeExemptUserIDs []int64 `env:"MARKET_FEE_EXEMPT_USERS" envSeparator:","`

	AssetHost string `env:"MARKET_ASSET_HOST" envDefault:"nft.fragment.com"`
}

func (m Market) PriceList() value.PriceList {
	return value.PriceList{
		ListingFee:         m.ListingFee,
		VIPListingFee:      m.VIPListingFee,
		BuyerFee:           m.BuyerFee,
		SellerFeePercent:   m.SellerFeePercent,
		ReferralPercent:    m.ReferralPercent,
		VIPReferralPercent: m.VIPReferralPercent,
		BidTolerance:       m.BidTolerance,
		SellerSLA:          m.SellerSLA,
		Rarity: value.RarityThresholds{
			Common:   m.RarityCommon,
			Rare:     m.RarityRare,
			Mythical: m.RarityMythical,
		},
	}
}

func (m Market) Privileges() value.Privileges {
	return value.NewPrivileges(m.VIPUserIDs, m.FeeExemptUserIDs)
}
