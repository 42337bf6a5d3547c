package viewmodel

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProbabilities(t *testing.T) {
	tests := []struct {
		name    string
		yes, no int64
		want    Probability
	}{
		{"empty market is a coin flip", 0, 0, Probability{50, 50}},
		{"30/70", 30, 70, Probability{30, 70}},
		{"one third floors yes", 1, 2, Probability{33, 67}},
		{"two thirds floors yes", 2, 1, Probability{66, 34}},
		{"only yes", 5, 0, Probability{100, 0}},
		{"only no", 0, 5, Probability{0, 100}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Probabilities(big.NewInt(tt.yes), big.NewInt(tt.no))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProbabilities_SumAndFloor(t *testing.T) {
	for y := int64(0); y <= 40; y++ {
		for n := int64(0); n <= 40; n++ {
			if y+n == 0 {
				continue
			}
			p := Probabilities(big.NewInt(y), big.NewInt(n))
			assert.Equal(t, 100, p.Yes+p.No)
			assert.Equal(t, int((y*100)/(y+n)), p.Yes)
		}
	}
}

func TestProbabilities_LargeAmounts(t *testing.T) {
	// Weighted totals are uint256 on chain; they must not overflow.
	y := new(big.Int).Lsh(big.NewInt(1), 200)
	n := new(big.Int).Lsh(big.NewInt(1), 201)
	assert.Equal(t, Probability{33, 67}, Probabilities(y, n))
}

func TestProbabilities_NilTreatedAsZero(t *testing.T) {
	assert.Equal(t, Probability{50, 50}, Probabilities(nil, nil))
	assert.Equal(t, Probability{0, 100}, Probabilities(nil, big.NewInt(1)))
}
