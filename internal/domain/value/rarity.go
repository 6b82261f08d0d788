package value

import "fmt"

type Rarity string

const (
	RarityCommon   Rarity = "COMMON"
	RarityRare     Rarity = "RARE"
	RarityMythical Rarity = "MYTHICAL"
	RarityLegend   Rarity = "LEGEND"
)

func ParseRarity(s string) (Rarity, error) {
	switch r := Rarity(s); r {
	case RarityCommon, RarityRare, RarityMythical, RarityLegend:
		return r, nil
	default:
		return "", fmt.Errorf("unknown rarity %q", s)
	}
}

// RarityThresholds — нижние границы суммы процентов трейтов для каждого тира.
// Всё, что ниже Mythical, считается LEGEND.
type RarityThresholds struct {
	Common   float64
	Rare     float64
	Mythical float64
}

func (t RarityThresholds) Validate() error {
	if !(t.Common > t.Rare && t.Rare > t.Mythical && t.Mythical > 0) {
		return fmt.Errorf("rarity thresholds must be strictly decreasing and positive: %+v", t)
	}
	return nil
}
