package core

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	Day   Granularity = "day"
	Month Granularity = "month"
	Year  Granularity = "year"
)

type Granularity string

// Bucket is a canonical time interval [Start, End) in the calendar location.
type Bucket struct {
	Label       string
	Start       time.Time
	End         time.Time
	Granularity Granularity
	// Key is the calendar key of the interval: yyyymmdd, yyyymm or yyyy.
	Key        int
	Selectable bool
}

// KeyOf returns the bucket key a local calendar day falls into for granularity g.
func KeyOf(g Granularity, d Date) int {
	switch g {
	case Day:
		return d.Year()*10000 + int(d.Month())*100 + d.Day()
	case Month:
		return d.Year()*100 + int(d.Month())
	case Year:
		return d.Year()
	}
	return 0
}

// GroupTotal is the subtotal of one dimension value inside a bucket.
type GroupTotal struct {
	Ref   Ref
	Total Money
	Count int
}

// RankedGroup is a GroupTotal with its position and share of the grand total.
type RankedGroup struct {
	GroupTotal
	Rank       int
	Percentage decimal.Decimal
}

// AggregateResult is the immutable summary of one bucket.
type AggregateResult struct {
	Bucket            Bucket
	Total             Money
	Count             int
	ByCategory        []GroupTotal
	ByPaymentMethod   []GroupTotal
	ByEstablishment   []GroupTotal
	TopEstablishments []RankedGroup
}

// Average is computed at presentation time from the summed state.
func (a AggregateResult) Average() Money {
	if a.Count == 0 {
		return Money{}
	}
	avg := decimal.NewFromInt(a.Total.Cents).Div(decimal.NewFromInt(int64(a.Count))).Round(0)
	return Money{Cents: avg.IntPart()}
}

// IsEmpty reports whether no record fell into the bucket.
func (a AggregateResult) IsEmpty() bool {
	return a.Count == 0
}
