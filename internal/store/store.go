// Package store defines the persistence contract the summary pipeline reads
// from and the transaction service writes to.
package store

import (
	"context"
	"errors"

	"riepilogo/internal/calendar"
	"riepilogo/internal/core"
)

var (
	// ErrUnavailable wraps any failure to reach the backing store.
	ErrUnavailable = errors.New("store unavailable")
	ErrNotFound    = errors.New("not found")
	ErrInvalid     = errors.New("invalid record")
)

// Reader is the query side. Query returns the owner's records whose
// OccurredAt falls in [r.From, r.To), unique by id.
type Reader interface {
	Query(ctx context.Context, owner core.OwnerID, r calendar.DateRange) ([]core.TransactionRecord, error)
	Lookups(ctx context.Context, owner core.OwnerID) (core.Lookups, error)
}

// Writer is the command side.
type Writer interface {
	CreateTransaction(ctx context.Context, rec core.TransactionRecord) error
	UpdateTransaction(ctx context.Context, rec core.TransactionRecord) error
	DeleteTransaction(ctx context.Context, owner core.OwnerID, id string) error
	SaveLookup(ctx context.Context, l core.Lookup) error
	DeleteLookup(ctx context.Context, kind core.LookupKind, owner core.OwnerID, id string) error
}

// Store is a full backend.
type Store interface {
	Reader
	Writer
	Close() error
}
