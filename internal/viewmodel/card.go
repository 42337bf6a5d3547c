package viewmodel

import (
	"math/big"
	"strings"

	"github.com/predicthub/predicthub/internal/domain"
)

// CardInput carries the viewer-specific reads needed to decide which
// actions a market card offers.
type CardInput struct {
	Market    domain.MarketView
	Viewer    string
	Amount    *big.Int
	Allowance *big.Int
	Bet       domain.UserBet
}

// Card is the per-viewer presentation of one market.
type Card struct {
	Market        domain.MarketView `json:"market"`
	Probability   Probability       `json:"probability"`
	YesPool       string            `json:"yes_pool"`
	NoPool        string            `json:"no_pool"`
	TotalPool     string            `json:"total_pool"`
	Resolved      bool              `json:"resolved"`
	IsArbitrator  bool              `json:"is_arbitrator"`
	NeedsApproval bool              `json:"needs_approval"`
	CanBet        bool              `json:"can_bet"`
	CanResolve    bool              `json:"can_resolve"`
	UserWon       bool              `json:"user_won"`
	CanWithdraw   bool              `json:"can_withdraw"`
}

// DeriveCard computes action availability. An action that is unavailable
// stays disabled until its precondition holds; nothing here is an error.
func DeriveCard(in CardInput) Card {
	m := in.Market
	amount := cloneOrZero(in.Amount)
	allowance := cloneOrZero(in.Allowance)
	yesStake := cloneOrZero(in.Bet.YesAmount)
	noStake := cloneOrZero(in.Bet.NoAmount)

	hasAmount := amount.Sign() > 0
	covered := allowance.Cmp(amount) >= 0
	isArbitrator := SameAddress(in.Viewer, m.Arbitrator)
	won := (m.Outcome == domain.OutcomeResolvedYes && yesStake.Sign() > 0) ||
		(m.Outcome == domain.OutcomeResolvedNo && noStake.Sign() > 0)

	return Card{
		Market:        m,
		Probability:   MarketProbabilities(m),
		YesPool:       domain.FormatUnits(m.YesBets),
		NoPool:        domain.FormatUnits(m.NoBets),
		TotalPool:     domain.FormatUnits(m.TotalPool()),
		Resolved:      m.Outcome.IsResolved(),
		IsArbitrator:  isArbitrator,
		NeedsApproval: hasAmount && !covered,
		CanBet:        m.Outcome.IsOpen() && hasAmount && covered,
		CanResolve:    m.Outcome.IsOpen() && isArbitrator,
		UserWon:       won,
		CanWithdraw:   m.Outcome.IsResolved() && won,
	}
}

// SameAddress compares two hex account identifiers case-insensitively. Empty
// values never match.
func SameAddress(a, b string) bool {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	if a == "" || b == "" {
		return false
	}
	return strings.EqualFold(a, b)
}
