package notify

import (
	"fmt"

	"github.com/predicthub/predicthub/internal/domain"
)

// MarketResolvedMessage renders the alert for a market that left the open
// set since the previous refresh.
func MarketResolvedMessage(m domain.MarketView) (title, message string) {
	title = fmt.Sprintf("Market #%d resolved %s", m.ID, sideLabel(m.Outcome))
	message = fmt.Sprintf("%s\nPool: %s yes / %s no",
		m.Question, domain.FormatUnits(m.YesBets), domain.FormatUnits(m.NoBets))
	return title, message
}

// TxSubmittedMessage renders the alert for an operator transaction.
func TxSubmittedMessage(h domain.TxHandle) (title, message string) {
	title = "Transaction submitted: " + h.Method
	message = "Hash: " + h.Hash
	if h.MarketID != nil {
		message += fmt.Sprintf("\nMarket: #%d", *h.MarketID)
	}
	return title, message
}

func sideLabel(o domain.Outcome) string {
	switch o {
	case domain.OutcomeResolvedYes:
		return "YES"
	case domain.OutcomeResolvedNo:
		return "NO"
	default:
		return o.String()
	}
}
