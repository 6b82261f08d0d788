package value

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type ListingSort string

const (
	SortNewest      ListingSort = "newest"
	SortOldest      ListingSort = "oldest"
	SortPriceAsc    ListingSort = "price_asc"
	SortPriceDesc   ListingSort = "price_desc"
	SortNumberScore ListingSort = "number_score"
)

func ParseListingSort(s string) (ListingSort, error) {
	switch v := ListingSort(s); v {
	case "":
		return SortNewest, nil
	case SortNewest, SortOldest, SortPriceAsc, SortPriceDesc, SortNumberScore:
		return v, nil
	default:
		return "", fmt.Errorf("unknown sort %q", s)
	}
}

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// ListingFilter — типизированный фильтр витрины.
// Нулевые значения полей означают «без ограничения».
type ListingFilter struct {
	PriceFrom   decimal.NullDecimal
	PriceTo     decimal.NullDecimal
	Rarities    []Rarity
	Types       []string
	ModelName   string
	NumberFrom  int
	NumberTo    int
	SellerID    int64
	AuctionOnly bool
	// IncludeInactive отключает условие «выставлен, не продан и не в эскроу».
	IncludeInactive bool
	Sort            ListingSort
	Limit           int
	Offset          int
}

// Normalize подставляет значения по умолчанию для сортировки и пагинации.
func (f ListingFilter) Normalize() ListingFilter {
	if f.Sort == "" {
		f.Sort = SortNewest
	}
	if f.Limit <= 0 {
		f.Limit = DefaultPageLimit
	}
	if f.Limit > MaxPageLimit {
		f.Limit = MaxPageLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}
