package value

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// MoneyPrecision — число знаков после запятой (нанотоны).
const MoneyPrecision = 9

//nolint:gochecknoglobals
var hundred = decimal.NewFromInt(100)

// PriceList — неизменяемый набор экономических констант площадки.
// Передаётся в сервисы при создании, глобального состояния нет.
type PriceList struct {
	ListingFee         decimal.Decimal
	VIPListingFee      decimal.Decimal
	BuyerFee           decimal.Decimal
	SellerFeePercent   decimal.Decimal
	ReferralPercent    decimal.Decimal
	VIPReferralPercent decimal.Decimal
	BidTolerance       decimal.Decimal
	SellerSLA          time.Duration
	Rarity             RarityThresholds
}

func DefaultPriceList() PriceList {
	return PriceList{
		ListingFee:         decimal.RequireFromString("0.5"),
		VIPListingFee:      decimal.NewFromInt(3),
		BuyerFee:           decimal.Zero,
		SellerFeePercent:   decimal.NewFromInt(5),
		ReferralPercent:    decimal.NewFromInt(20),
		VIPReferralPercent: decimal.NewFromInt(40),
		BidTolerance:       decimal.RequireFromString("0.01"),
		SellerSLA:          20 * time.Minute,
		Rarity: RarityThresholds{
			Common:   2.5,
			Rare:     1.7,
			Mythical: 1.0,
		},
	}
}

func (p PriceList) Validate() error {
	var errs []error

	for name, v := range map[string]decimal.Decimal{
		"listing fee":     p.ListingFee,
		"vip listing fee": p.VIPListingFee,
		"buyer fee":       p.BuyerFee,
		"bid tolerance":   p.BidTolerance,
	} {
		if v.IsNegative() {
			errs = append(errs, fmt.Errorf("%s must not be negative", name))
		}
	}

	for name, v := range map[string]decimal.Decimal{
		"seller fee percent":   p.SellerFeePercent,
		"referral percent":     p.ReferralPercent,
		"vip referral percent": p.VIPReferralPercent,
	} {
		if v.IsNegative() || v.GreaterThan(hundred) {
			errs = append(errs, fmt.Errorf("%s must be within [0, 100]", name))
		}
	}

	if p.SellerSLA <= 0 {
		errs = append(errs, errors.New("seller SLA must be positive"))
	}

	if err := p.Rarity.Validate(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// ListingFeeFor возвращает плату за выставление; освобождённые продавцы не платят.
func (p PriceList) ListingFeeFor(vipListing, exempt bool) decimal.Decimal {
	switch {
	case exempt:
		return decimal.Zero
	case vipListing:
		return p.VIPListingFee
	default:
		return p.ListingFee
	}
}

// BuyerCharge — сумма, списываемая с покупателя и удерживаемая в эскроу.
func (p PriceList) BuyerCharge(price decimal.Decimal) decimal.Decimal {
	return price.Add(p.BuyerFee)
}

// Commission — доля площадки с продажи, округлённая вниз до нанотона.
func (p PriceList) Commission(price decimal.Decimal, exempt bool) decimal.Decimal {
	if exempt {
		return decimal.Zero
	}
	return price.Mul(p.SellerFeePercent).Div(hundred).Truncate(MoneyPrecision)
}

// SellerCredit — сколько получает продавец; SellerCredit + Commission == price.
func (p PriceList) SellerCredit(price decimal.Decimal, exempt bool) decimal.Decimal {
	return price.Sub(p.Commission(price, exempt))
}

// ReferrerReward — отдельное начисление рефереру продавца из комиссии.
func (p PriceList) ReferrerReward(commission decimal.Decimal, vipReferrer bool) decimal.Decimal {
	percent := p.ReferralPercent
	if vipReferrer {
		percent = p.VIPReferralPercent
	}
	return commission.Mul(percent).Div(hundred).Truncate(MoneyPrecision)
}

// MinNextBid возвращает минимальную допустимую ставку: цена плюс шаг
// за вычетом допуска на округление. Правило одно и для первой ставки.
func (p PriceList) MinNextBid(price, minStep decimal.Decimal) decimal.Decimal {
	return price.Add(minStep).Sub(p.BidTolerance)
}
