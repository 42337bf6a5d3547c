package viewmodel

import (
	"fmt"
	"strings"

	"github.com/predicthub/predicthub/internal/domain"
)

// Subset names one of the two market lists shown to users.
type Subset string

const (
	SubsetOpen     Subset = "open"
	SubsetResolved Subset = "resolved"
)

// ParseSubset accepts "open"/"active" and "resolved"/"closed".
func ParseSubset(s string) (Subset, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "open", "active":
		return SubsetOpen, nil
	case "resolved", "closed":
		return SubsetResolved, nil
	default:
		return "", fmt.Errorf("viewmodel: unknown subset %q", s)
	}
}

// Partition splits views into open (outcome 0) and resolved (outcome 1 or 2)
// lists, preserving order. Markets with any other outcome land in neither.
func Partition(views []domain.MarketView) (open, resolved []domain.MarketView) {
	open = make([]domain.MarketView, 0, len(views))
	resolved = make([]domain.MarketView, 0, len(views))
	for _, v := range views {
		switch {
		case v.Outcome.IsOpen():
			open = append(open, v)
		case v.Outcome.IsResolved():
			resolved = append(resolved, v)
		}
	}
	return open, resolved
}

// Select returns the requested subset of views.
func Select(views []domain.MarketView, s Subset) []domain.MarketView {
	open, resolved := Partition(views)
	if s == SubsetResolved {
		return resolved
	}
	return open
}

// Stats summarises a snapshot for the landing counters.
type Stats struct {
	Total    uint64 `json:"total"`
	Open     int    `json:"open"`
	Resolved int    `json:"resolved"`
}

// ComputeStats counts markets per subset. Total is the on-chain market count,
// which can exceed Open+Resolved while reads are pending.
func ComputeStats(snap domain.Snapshot) Stats {
	open, resolved := Partition(snap.Markets)
	return Stats{
		Total:    snap.Count,
		Open:     len(open),
		Resolved: len(resolved),
	}
}
