package core

import (
	"errors"
	"strings"
	"time"
)

const (
	CategoryKind      LookupKind = "category"
	PaymentMethodKind LookupKind = "payment_method"
	EstablishmentKind LookupKind = "establishment"
)

type (
	OwnerID string

	LookupKind string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// NullMoney is an amount read from the store that may be missing or malformed.
	NullMoney struct {
		Money
		Valid bool
	}

	TransactionRecord struct {
		ID              string
		OwnerID         OwnerID
		Amount          NullMoney
		Description     string
		OccurredAt      time.Time
		CategoryID      *string // weak reference, may dangle
		PaymentMethodID *string
		EstablishmentID *string
	}

	// Lookup is a category, payment method or establishment.
	Lookup struct {
		ID      string
		Kind    LookupKind
		Name    string
		Icon    string
		OwnerID OwnerID
	}

	// Lookups holds the id -> Lookup tables of a single owner.
	Lookups struct {
		Categories     map[string]Lookup
		PaymentMethods map[string]Lookup
		Establishments map[string]Lookup
	}
)

var (
	ErrInvalidDay         = errors.New("invalid day")
	ErrInvalidMonth       = errors.New("invalid month")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrEmptyOwner         = errors.New("empty owner")
	ErrEmptyName          = errors.New("empty name")
	ErrMissingOccurredAt  = errors.New("missing occurred_at")
	ErrInvalidLookupKind  = errors.New("invalid lookup kind")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
)

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// NewDate creates a new Date from year, month, day in the given location.
func NewDate(year, month, day int, loc *time.Location) Date {
	if loc == nil {
		loc = time.UTC
	}
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)}
}

// DayOf truncates t to the start of its calendar day in loc.
func DayOf(t time.Time, loc *time.Location) Date {
	if loc == nil {
		loc = time.UTC
	}
	t = t.In(loc)
	return NewDate(t.Year(), int(t.Month()), t.Day(), loc)
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Add returns m + o.
func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

// ValidMoney wraps m as a present amount.
func ValidMoney(m Money) NullMoney {
	return NullMoney{Money: m, Valid: true}
}

func (k LookupKind) IsValid() bool {
	switch k {
	case CategoryKind, PaymentMethodKind, EstablishmentKind:
		return true
	default:
		return false
	}
}

func (t TransactionRecord) Validate() error {
	if strings.TrimSpace(string(t.OwnerID)) == "" {
		return ErrEmptyOwner
	}
	if t.OccurredAt.IsZero() {
		return ErrMissingOccurredAt
	}
	if !t.Amount.Valid {
		return ErrInvalidAmount
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if len(t.Description) > 200 {
		return ErrDescriptionTooLong
	}
	return nil
}

func (l Lookup) Validate() error {
	if !l.Kind.IsValid() {
		return ErrInvalidLookupKind
	}
	if strings.TrimSpace(string(l.OwnerID)) == "" {
		return ErrEmptyOwner
	}
	if strings.TrimSpace(l.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

// NewLookups returns empty, non-nil lookup tables.
func NewLookups() Lookups {
	return Lookups{
		Categories:     make(map[string]Lookup),
		PaymentMethods: make(map[string]Lookup),
		Establishments: make(map[string]Lookup),
	}
}

// Add registers l in the table matching its kind.
func (ls Lookups) Add(l Lookup) {
	switch l.Kind {
	case CategoryKind:
		ls.Categories[l.ID] = l
	case PaymentMethodKind:
		ls.PaymentMethods[l.ID] = l
	case EstablishmentKind:
		ls.Establishments[l.ID] = l
	}
}

// Resolve turns a weak reference into a Ref. Nil or dangling ids resolve to Unknown.
func (ls Lookups) Resolve(kind LookupKind, id *string) Ref {
	if id == nil || *id == "" {
		return Unknown()
	}
	var table map[string]Lookup
	switch kind {
	case CategoryKind:
		table = ls.Categories
	case PaymentMethodKind:
		table = ls.PaymentMethods
	case EstablishmentKind:
		table = ls.Establishments
	}
	l, ok := table[*id]
	if !ok {
		return Unknown()
	}
	return Known(l)
}
