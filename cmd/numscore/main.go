package main

import (
	"cmp"
	"flag"
	"fmt"
	"os"
	"slices"
	"strconv"

	"gift_market/internal/domain/entity"
	"gift_market/internal/domain/service/rarity"
)

// go run ./cmd/numscore -min 80 1 69 1000 12321 48213
//
// Печатает оценки серийных номеров подарков, лучшие сверху.
func main() {
	minScore := flag.Float64("min", 0, "minimal score to print, 0-100")
	flag.Parse()

	type scored struct {
		number int
		rating entity.Rating
	}

	var result []scored

	for _, arg := range flag.Args() {
		n, err := strconv.Atoi(arg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "skip %q: %v\n", arg, err)
			continue
		}

		r := rarity.NumberScore(n)
		if r.Score < *minScore {
			continue
		}

		result = append(result, scored{number: n, rating: r})
	}

	slices.SortFunc(result, func(a, b scored) int {
		return cmp.Or(cmp.Compare(b.rating.Score, a.rating.Score), cmp.Compare(a.number, b.number))
	})

	for _, s := range result {
		fmt.Printf("#%-8d %5.1f%%  %s\n", s.number, s.rating.Score, s.rating.Description)
	}
}
