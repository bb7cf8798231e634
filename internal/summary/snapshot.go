package summary

import (
	"time"

	"riepilogo/internal/calendar"
	"riepilogo/internal/core"
	"riepilogo/internal/ranking"
)

// Snapshot is the immutable output of one recompute. Callers must not modify it.
type Snapshot struct {
	Params  Params
	Range   calendar.DateRange
	Buckets []core.AggregateResult

	Total core.Money
	Count int

	TopCategories     []core.RankedGroup
	TopPaymentMethods []core.RankedGroup
	TopEstablishments []core.RankedGroup
	// CategoryShares ranks every category of the period.
	CategoryShares []core.RankedGroup

	PreviousTotal core.Money
	Delta         ranking.Delta

	ComputedAt time.Time
}

// Average is the mean transaction amount over the whole period.
func (s *Snapshot) Average() core.Money {
	return core.AggregateResult{Total: s.Total, Count: s.Count}.Average()
}

// Bucket returns the result whose bucket has the given label.
func (s *Snapshot) Bucket(label string) (core.AggregateResult, bool) {
	for _, b := range s.Buckets {
		if b.Bucket.Label == label {
			return b, true
		}
	}
	return core.AggregateResult{}, false
}
