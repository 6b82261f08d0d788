package giveaway

const (
	maxChance  = 95.0
	fullChance = 100.0
)

// Distribute раздаёт подарки по кругу: i-й подарок получает
// participants[i mod n]. Результат параллелен giftIDs.
func Distribute(participants, giftIDs []int64) []int64 {
	if len(participants) == 0 {
		return nil
	}

	winners := make([]int64, len(giftIDs))
	for i := range giftIDs {
		winners[i] = participants[i%len(participants)]
	}

	return winners
}

// Chances — отображаемая вероятность выигрыша каждого участника в процентах.
// На распределение не влияет.
func Chances(participants, referrers []int64, giftCount int) []float64 {
	n := len(participants)
	chances := make([]float64, n)
	if n == 0 {
		return chances
	}

	if giftCount >= n {
		for i := range chances {
			chances[i] = fullChance
		}
		return chances
	}

	refs := make(map[int64]int, n)
	total := 0
	for _, r := range referrers {
		if r == 0 {
			continue
		}
		refs[r]++
		total++
	}

	base := fullChance / float64(n)

	for i, p := range participants {
		c := base
		if total > 0 {
			c += float64(refs[p]) / float64(4*total) * 100
		}
		chances[i] = min(c, maxChance)
	}

	return chances
}
