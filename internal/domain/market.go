package domain

import (
	"math/big"
	"time"
)

// Outcome is the on-chain market state enum.
type Outcome uint8

const (
	OutcomeOpen        Outcome = 0
	OutcomeResolvedYes Outcome = 1
	OutcomeResolvedNo  Outcome = 2
)

// IsOpen reports whether the market still accepts bets.
func (o Outcome) IsOpen() bool { return o == OutcomeOpen }

// IsResolved reports whether the market was resolved to either side. Values
// outside the enum are neither open nor resolved.
func (o Outcome) IsResolved() bool {
	return o == OutcomeResolvedYes || o == OutcomeResolvedNo
}

func (o Outcome) String() string {
	switch o {
	case OutcomeOpen:
		return "open"
	case OutcomeResolvedYes:
		return "resolved_yes"
	case OutcomeResolvedNo:
		return "resolved_no"
	default:
		return "unknown"
	}
}

// Side is a bet or resolution direction.
type Side bool

const (
	SideYes Side = true
	SideNo  Side = false
)

func (s Side) String() string {
	if s {
		return "yes"
	}
	return "no"
}

// RawMarket is the positional tuple returned by the contract's markets(i)
// read. EndTime is carried by the contract but not surfaced in views.
type RawMarket struct {
	ID         *big.Int
	Question   string
	Arbitrator string
	CreatedAt  *big.Int
	EndTime    *big.Int
	YesBets    *big.Int
	NoBets     *big.Int
	Outcome    uint8
}

// WeightedTotals is the per-market pair used for probability display.
type WeightedTotals struct {
	Yes *big.Int
	No  *big.Int
}

// MarketView is a display-ready market record. It is built once from a
// RawMarket and its WeightedTotals and never mutated afterwards.
type MarketView struct {
	ID            uint64   `json:"id"`
	Question      string   `json:"question"`
	Arbitrator    string   `json:"arbitrator"`
	FormattedDate string   `json:"formatted_date"`
	YesBets       *big.Int `json:"yes_bets"`
	NoBets        *big.Int `json:"no_bets"`
	Outcome       Outcome  `json:"outcome"`
	WeightedYes   *big.Int `json:"weighted_yes"`
	WeightedNo    *big.Int `json:"weighted_no"`
}

// TotalPool returns yesBets + noBets.
func (m MarketView) TotalPool() *big.Int {
	return new(big.Int).Add(orZero(m.YesBets), orZero(m.NoBets))
}

// Snapshot is the result of one full refresh. Markets is replaced wholesale
// on every refresh; Loading and Err are forwarded to the rendering layer
// unmodified.
type Snapshot struct {
	RunID     string       `json:"run_id"`
	Count     uint64       `json:"count"`
	Markets   []MarketView `json:"markets"`
	Loading   bool         `json:"loading"`
	Err       string       `json:"error,omitempty"`
	FetchedAt time.Time    `json:"fetched_at"`
}

// Find returns the market with the given id.
func (s Snapshot) Find(id uint64) (MarketView, bool) {
	for _, m := range s.Markets {
		if m.ID == id {
			return m, true
		}
	}
	return MarketView{}, false
}

// UserBet is the (yes, no) stake of one account in one market.
type UserBet struct {
	YesAmount *big.Int `json:"yes_amount"`
	NoAmount  *big.Int `json:"no_amount"`
}

func orZero(n *big.Int) *big.Int {
	if n == nil {
		return new(big.Int)
	}
	return n
}
