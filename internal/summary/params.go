package summary

import (
	"errors"
	"fmt"
	"strings"

	"riepilogo/internal/core"
)

// Kind is the shape of a summary.
type Kind string

const (
	// LastDays is a rolling window of days ending today.
	LastDays Kind = "last-days"
	// Monthly is the twelve months of a year.
	Monthly Kind = "monthly"
	// Annual is a range of whole years.
	Annual Kind = "annual"
)

const (
	DefaultDays  = 7
	DefaultTopN  = 5
	defaultYears = 5
	maxDays      = 400
	maxYears     = 50
	maxTopN      = 100
)

var (
	ErrUnknownKind   = errors.New("unknown summary kind")
	ErrInvalidParams = errors.New("invalid summary parameters")
)

// ParseKind accepts the canonical names plus a few aliases.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "last-days", "last7", "week", "daily":
		return LastDays, nil
	case "monthly", "month", "months":
		return Monthly, nil
	case "annual", "year", "years", "yearly":
		return Annual, nil
	}
	return "", fmt.Errorf("%q: %w", s, ErrUnknownKind)
}

// Params identifies a summary. Zero fields are filled by WithDefaults.
type Params struct {
	Kind  Kind
	Owner core.OwnerID
	// Days is the LastDays window length.
	Days int
	// Year is the Monthly year.
	Year int
	// FromYear and ToYear bound an Annual summary, inclusive.
	FromYear int
	ToYear   int
	// TopN bounds every ranked list.
	TopN int
}

// WithDefaults fills unset fields relative to today.
func (p Params) WithDefaults(today core.Date, days, topN int) Params {
	if days <= 0 {
		days = DefaultDays
	}
	if topN <= 0 {
		topN = DefaultTopN
	}
	if p.TopN <= 0 {
		p.TopN = topN
	}
	switch p.Kind {
	case LastDays:
		if p.Days <= 0 {
			p.Days = days
		}
	case Monthly:
		if p.Year == 0 {
			p.Year = today.Year()
		}
	case Annual:
		if p.ToYear == 0 {
			p.ToYear = today.Year()
		}
		if p.FromYear == 0 {
			p.FromYear = p.ToYear - defaultYears + 1
		}
	}
	return p
}

// Validate checks fully defaulted params.
func (p Params) Validate() error {
	if strings.TrimSpace(string(p.Owner)) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidParams, core.ErrEmptyOwner)
	}
	if p.TopN < 1 || p.TopN > maxTopN {
		return fmt.Errorf("%w: top must be between 1 and %d, got %d", ErrInvalidParams, maxTopN, p.TopN)
	}
	switch p.Kind {
	case LastDays:
		if p.Days < 1 || p.Days > maxDays {
			return fmt.Errorf("%w: days must be between 1 and %d, got %d", ErrInvalidParams, maxDays, p.Days)
		}
	case Monthly:
		if p.Year < 1 || p.Year > 9999 {
			return fmt.Errorf("%w: year %d out of range", ErrInvalidParams, p.Year)
		}
	case Annual:
		if p.FromYear < 1 || p.ToYear > 9999 || p.FromYear > p.ToYear {
			return fmt.Errorf("%w: year range %d-%d", ErrInvalidParams, p.FromYear, p.ToYear)
		}
		if p.ToYear-p.FromYear+1 > maxYears {
			return fmt.Errorf("%w: at most %d years", ErrInvalidParams, maxYears)
		}
	default:
		return fmt.Errorf("%q: %w", p.Kind, ErrUnknownKind)
	}
	return nil
}

// Key identifies the summary inside a Registry.
func (p Params) Key() string {
	switch p.Kind {
	case LastDays:
		return fmt.Sprintf("%s/%s/%d/top%d", p.Owner, p.Kind, p.Days, p.TopN)
	case Monthly:
		return fmt.Sprintf("%s/%s/%d/top%d", p.Owner, p.Kind, p.Year, p.TopN)
	case Annual:
		return fmt.Sprintf("%s/%s/%d-%d/top%d", p.Owner, p.Kind, p.FromYear, p.ToYear, p.TopN)
	}
	return fmt.Sprintf("%s/%s", p.Owner, p.Kind)
}
