package viewmodel

import (
	"math/big"

	"github.com/predicthub/predicthub/internal/domain"
)

// Probability is a yes/no percentage pair that always sums to 100.
type Probability struct {
	Yes int `json:"yes"`
	No  int `json:"no"`
}

var hundred = big.NewInt(100)

// Probabilities derives the display probability from weighted totals.
// An empty market shows 50/50. Otherwise yes is floor(100*Y/(Y+N)) and no
// takes the remainder, so rounding always favours "no".
func Probabilities(weightedYes, weightedNo *big.Int) Probability {
	y := cloneOrZero(weightedYes)
	n := cloneOrZero(weightedNo)

	total := new(big.Int).Add(y, n)
	if total.Sign() == 0 {
		return Probability{Yes: 50, No: 50}
	}

	yes := new(big.Int).Mul(y, hundred)
	yes.Quo(yes, total)
	p := int(yes.Int64())
	return Probability{Yes: p, No: 100 - p}
}

// MarketProbabilities is a convenience over Probabilities for a view.
func MarketProbabilities(m domain.MarketView) Probability {
	return Probabilities(m.WeightedYes, m.WeightedNo)
}
