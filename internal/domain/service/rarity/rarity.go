// Package rarity содержит чистые функции оценки экземпляра подарка:
// тир редкости по трейтам и «красоту» серийного номера.
package rarity

import "gift_market/internal/domain/value"

// Classify относит подарок к тиру по сумме процентов трёх трейтов.
// Чем меньше сумма, тем реже подарок.
func Classify(attrs value.GiftAttributes, t value.RarityThresholds) value.Rarity {
	sum := attrs.Sum()

	switch {
	case sum >= t.Common:
		return value.RarityCommon
	case sum >= t.Rare:
		return value.RarityRare
	case sum >= t.Mythical:
		return value.RarityMythical
	default:
		return value.RarityLegend
	}
}
