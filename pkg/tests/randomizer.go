package tests

import (
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
)

type Randomizer struct {
	Float64 func() float64
	Bool    func() bool
	// Intn returns a number in [0, n).
	Intn func(n int) int
}

func NewRandomizer() Randomizer {
	random := rand.New(rand.NewSource(time.Now().Unix())) //nolint:gosec // for tests

	return Randomizer{
		Float64: random.Float64,
		Bool:    func() bool { return random.Intn(2) == 0 }, //nolint:mnd // skip
		Intn:    random.Intn,
	}
}

// Amount returns a positive amount not greater than limit, rounded down to places.
func (r Randomizer) Amount(limit decimal.Decimal, places int32) decimal.Decimal {
	unit := decimal.New(1, -places)

	amount := limit.Mul(decimal.NewFromFloat(r.Float64())).RoundDown(places)
	if amount.LessThan(unit) {
		return unit
	}

	return amount
}
