// Package ranking derives ordered top-N lists, percentage shares and
// period-over-period deltas from aggregated group totals.
package ranking

import (
	"sort"

	"github.com/shopspring/decimal"

	"riepilogo/internal/core"
)

// Percentages are reported with this many decimal places.
const percentagePlaces = 2

var hundred = decimal.NewFromInt(100)

// DeltaKind classifies a period-over-period comparison.
type DeltaKind string

const (
	// Change carries a numeric percentage.
	Change DeltaKind = "change"
	// New means the previous period was empty and the current one is not.
	New DeltaKind = "new"
	// Flat means both periods are empty.
	Flat DeltaKind = "flat"
	// Undefined means the previous total is negative, so no ratio is meaningful.
	Undefined DeltaKind = "undefined"
)

// Delta compares the totals of two periods.
type Delta struct {
	Kind       DeltaKind       `json:"kind"`
	Percentage decimal.Decimal `json:"percentage"`
	Current    core.Money      `json:"-"`
	Previous   core.Money      `json:"-"`
}

// HasPercentage reports whether Percentage is meaningful.
func (d Delta) HasPercentage() bool {
	return d.Kind == Change
}

// PeriodDelta computes (current-previous)/previous*100.
func PeriodDelta(current, previous core.Money) Delta {
	d := Delta{Current: current, Previous: previous, Percentage: decimal.Zero}
	switch {
	case previous.Cents > 0:
		d.Kind = Change
		diff := decimal.NewFromInt(current.Cents - previous.Cents)
		d.Percentage = diff.Div(decimal.NewFromInt(previous.Cents)).Mul(hundred).Round(percentagePlaces)
	case previous.Cents == 0 && current.Cents > 0:
		d.Kind = New
	case previous.Cents == 0:
		d.Kind = Flat
	default:
		d.Kind = Undefined
	}
	return d
}

// SortGroups orders groups in place by total desc, then name asc, then id asc.
func SortGroups(groups []core.GroupTotal) {
	sort.SliceStable(groups, func(i, j int) bool {
		return less(groups[i], groups[j])
	})
}

func less(a, b core.GroupTotal) bool {
	if a.Total.Cents != b.Total.Cents {
		return a.Total.Cents > b.Total.Cents
	}
	if an, bn := a.Ref.SortName(), b.Ref.SortName(); an != bn {
		return an < bn
	}
	return a.Ref.Key() < b.Ref.Key()
}

// GrandTotal sums every group.
func GrandTotal(groups []core.GroupTotal) core.Money {
	var total core.Money
	for _, g := range groups {
		total = total.Add(g.Total)
	}
	return total
}

// TopN returns the n largest groups with their rank and share of the grand
// total of all groups. n <= 0 or n beyond the group count returns every group.
// The input slice is not modified.
func TopN(groups []core.GroupTotal, n int) []core.RankedGroup {
	sorted := make([]core.GroupTotal, len(groups))
	copy(sorted, groups)
	SortGroups(sorted)

	if n <= 0 || n > len(sorted) {
		n = len(sorted)
	}

	pcts := apportion(sorted, GrandTotal(groups))
	ranked := make([]core.RankedGroup, 0, n)
	for i := 0; i < n; i++ {
		ranked = append(ranked, core.RankedGroup{
			GroupTotal: sorted[i],
			Rank:       i + 1,
			Percentage: pcts[i],
		})
	}
	return ranked
}

// apportion splits 100 across groups by largest remainder, so the rounded
// shares of all groups add up to exactly 100. With a negative group the
// shares are rounded independently.
func apportion(groups []core.GroupTotal, grand core.Money) []decimal.Decimal {
	out := make([]decimal.Decimal, len(groups))
	if grand.Cents <= 0 {
		for i, g := range groups {
			out[i] = Percentage(g.Total, grand)
		}
		return out
	}
	for _, g := range groups {
		if g.Total.Cents < 0 {
			for i, g := range groups {
				out[i] = Percentage(g.Total, grand)
			}
			return out
		}
	}

	whole := decimal.NewFromInt(grand.Cents)
	remainders := make([]decimal.Decimal, len(groups))
	sum := decimal.Zero
	for i, g := range groups {
		exact := decimal.NewFromInt(g.Total.Cents).Mul(hundred).Div(whole)
		out[i] = exact.RoundFloor(percentagePlaces)
		remainders[i] = exact.Sub(out[i])
		sum = sum.Add(out[i])
	}

	unit := decimal.New(1, -percentagePlaces)
	missing := hundred.Sub(sum).Div(unit).Round(0).IntPart()
	order := make([]int, len(groups))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return remainders[order[a]].GreaterThan(remainders[order[b]])
	})
	for k := 0; k < int(missing) && k < len(order); k++ {
		out[order[k]] = out[order[k]].Add(unit)
	}
	return out
}

// Shares ranks every group.
func Shares(groups []core.GroupTotal) []core.RankedGroup {
	return TopN(groups, len(groups))
}

// Percentage returns part/whole*100 rounded to two places, or zero when whole is zero.
func Percentage(part, whole core.Money) decimal.Decimal {
	if whole.Cents == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(part.Cents).
		Div(decimal.NewFromInt(whole.Cents)).
		Mul(hundred).
		Round(percentagePlaces)
}
