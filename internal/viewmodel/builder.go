// Package viewmodel turns raw prediction-market contract reads into
// display-ready market records. Everything here is pure: no I/O, no shared
// state, safe to call repeatedly with stale or partial input.
package viewmodel

import (
	"math/big"
	"time"

	"github.com/predicthub/predicthub/internal/domain"
)

// readsPerMarket is the stride of the flat read batch: market tuple,
// weightedYes, weightedNo.
const readsPerMarket = 3

// DefaultDateLayout matches the en-US toLocaleDateString rendering.
const DefaultDateLayout = "1/2/2006"

// Builder converts flat read batches into MarketViews. The zero value is not
// usable; construct with NewBuilder.
type Builder struct {
	layout string
	loc    *time.Location
}

// NewBuilder creates a Builder that formats creation dates with layout in
// loc. Empty layout and nil loc fall back to DefaultDateLayout and UTC.
func NewBuilder(layout string, loc *time.Location) *Builder {
	if layout == "" {
		layout = DefaultDateLayout
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Builder{layout: layout, loc: loc}
}

// Build groups results by a fixed stride of three and derives one MarketView
// per market whose tuple read is present. Missing tuples are skipped
// silently; missing or non-integer weighted totals become zero. Output order
// follows market index order.
func (b *Builder) Build(count uint64, results []domain.ReadResult) []domain.MarketView {
	if count == 0 || len(results) == 0 {
		return []domain.MarketView{}
	}

	// Never walk past the groups that actually have entries; a huge count
	// with a short batch would otherwise spin on absent reads.
	groups := (uint64(len(results)) + readsPerMarket - 1) / readsPerMarket
	if groups > count {
		groups = count
	}

	views := make([]domain.MarketView, 0, groups)
	for i := uint64(0); i < groups; i++ {
		base := i * readsPerMarket
		raw, ok := at(results, base).Market()
		if !ok {
			continue
		}
		view, ok := b.view(raw, domain.WeightedTotals{
			Yes: intOrZero(at(results, base+1)),
			No:  intOrZero(at(results, base+2)),
		})
		if !ok {
			continue
		}
		views = append(views, view)
	}
	return views
}

// view zips one tuple with its weighted totals. ok is false when the tuple
// id is missing or does not fit a uint64.
func (b *Builder) view(raw domain.RawMarket, w domain.WeightedTotals) (domain.MarketView, bool) {
	if raw.ID == nil || !raw.ID.IsUint64() {
		return domain.MarketView{}, false
	}
	return domain.MarketView{
		ID:            raw.ID.Uint64(),
		Question:      raw.Question,
		Arbitrator:    raw.Arbitrator,
		FormattedDate: b.FormatDate(raw.CreatedAt),
		YesBets:       cloneOrZero(raw.YesBets),
		NoBets:        cloneOrZero(raw.NoBets),
		Outcome:       domain.Outcome(raw.Outcome),
		WeightedYes:   w.Yes,
		WeightedNo:    w.No,
	}, true
}

// FormatDate renders a seconds-since-epoch timestamp as a calendar date.
// Timestamps that do not fit an int64 render as an empty string.
func (b *Builder) FormatDate(ts *big.Int) string {
	if ts == nil {
		ts = new(big.Int)
	}
	if !ts.IsInt64() {
		return ""
	}
	return time.Unix(ts.Int64(), 0).In(b.loc).Format(b.layout)
}

func at(results []domain.ReadResult, i uint64) domain.ReadResult {
	if i >= uint64(len(results)) {
		return domain.Absent(nil)
	}
	return results[i]
}

func intOrZero(r domain.ReadResult) *big.Int {
	if n, ok := r.BigInt(); ok {
		return new(big.Int).Set(n)
	}
	return new(big.Int)
}

func cloneOrZero(n *big.Int) *big.Int {
	if n == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(n)
}
