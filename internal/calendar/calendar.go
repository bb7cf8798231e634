// Package calendar generates the canonical time buckets summaries are grouped by.
//
// Buckets never depend on data: a window of n days always has n buckets.
// Boundaries are built with time.Date in the calendar location, so month
// lengths, leap years and DST shifts are handled by the time package.
package calendar

import (
	"fmt"
	"time"

	"riepilogo/internal/core"
)

// DateRange is the half-open interval [From, To).
type DateRange struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls inside the range.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.From) && t.Before(r.To)
}

func (r DateRange) IsZero() bool {
	return r.From.IsZero() && r.To.IsZero()
}

type Calendar struct {
	loc *time.Location
}

// New returns a calendar working in loc (UTC when nil).
func New(loc *time.Location) *Calendar {
	if loc == nil {
		loc = time.UTC
	}
	return &Calendar{loc: loc}
}

func (c *Calendar) Location() *time.Location {
	return c.loc
}

// Today returns the local calendar day of t.
func (c *Calendar) Today(t time.Time) core.Date {
	return core.DayOf(t, c.loc)
}

// DailyWindow returns n day buckets ending with anchor's local day, oldest first.
// The last two are labeled "today" and "yesterday", older ones by weekday.
func (c *Calendar) DailyWindow(n int, anchor time.Time) []core.Bucket {
	return c.dailyWindow(n, c.Today(anchor), true)
}

// PreviousDailyWindow returns the n days right before DailyWindow(n, anchor),
// labeled by ISO date.
func (c *Calendar) PreviousDailyWindow(n int, anchor time.Time) []core.Bucket {
	if n <= 0 {
		return []core.Bucket{}
	}
	end := c.Today(anchor)
	prev := core.Date{Time: time.Date(end.Year(), end.Month(), end.Day()-n, 0, 0, 0, 0, c.loc)}
	return c.dailyWindow(n, prev, false)
}

func (c *Calendar) dailyWindow(n int, last core.Date, relative bool) []core.Bucket {
	if n <= 0 {
		return []core.Bucket{}
	}
	out := make([]core.Bucket, 0, n)
	for i := n - 1; i >= 0; i-- {
		start := time.Date(last.Year(), last.Month(), last.Day()-i, 0, 0, 0, 0, c.loc)
		end := time.Date(start.Year(), start.Month(), start.Day()+1, 0, 0, 0, 0, c.loc)
		label := start.Format("2006-01-02")
		if relative {
			label = dayLabel(i, start)
		}
		out = append(out, core.Bucket{
			Label:       label,
			Start:       start,
			End:         end,
			Granularity: core.Day,
			Key:         core.KeyOf(core.Day, core.Date{Time: start}),
			Selectable:  true,
		})
	}
	return out
}

func dayLabel(daysAgo int, start time.Time) string {
	switch daysAgo {
	case 0:
		return "today"
	case 1:
		return "yesterday"
	default:
		return start.Weekday().String()
	}
}

// MonthBuckets returns the 12 months of year. Months starting after now are
// generated but not selectable.
func (c *Calendar) MonthBuckets(year int, now time.Time) []core.Bucket {
	today := c.Today(now)
	out := make([]core.Bucket, 0, 12)
	for m := time.January; m <= time.December; m++ {
		start := time.Date(year, m, 1, 0, 0, 0, 0, c.loc)
		end := time.Date(year, m+1, 1, 0, 0, 0, 0, c.loc)
		out = append(out, core.Bucket{
			Label:       fmt.Sprintf("%s %d", m.String()[:3], year),
			Start:       start,
			End:         end,
			Granularity: core.Month,
			Key:         year*100 + int(m),
			Selectable:  !start.After(today.Time),
		})
	}
	return out
}

// YearBuckets returns one bucket per year in [from, to]. Future years are not selectable.
func (c *Calendar) YearBuckets(from, to int, now time.Time) []core.Bucket {
	if to < from {
		return []core.Bucket{}
	}
	today := c.Today(now)
	out := make([]core.Bucket, 0, to-from+1)
	for y := from; y <= to; y++ {
		start := time.Date(y, time.January, 1, 0, 0, 0, 0, c.loc)
		end := time.Date(y+1, time.January, 1, 0, 0, 0, 0, c.loc)
		out = append(out, core.Bucket{
			Label:       fmt.Sprintf("%d", y),
			Start:       start,
			End:         end,
			Granularity: core.Year,
			Key:         y,
			Selectable:  !start.After(today.Time),
		})
	}
	return out
}

// Span returns the range covering all buckets, assuming they are ordered.
func Span(buckets []core.Bucket) DateRange {
	if len(buckets) == 0 {
		return DateRange{}
	}
	r := DateRange{From: buckets[0].Start, To: buckets[0].End}
	for _, b := range buckets[1:] {
		if b.Start.Before(r.From) {
			r.From = b.Start
		}
		if b.End.After(r.To) {
			r.To = b.End
		}
	}
	return r
}

// DaysIn returns the number of days of month m in year.
func DaysIn(year int, m time.Month) int {
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
