package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"riepilogo/internal/core"
	"riepilogo/internal/log"
	"riepilogo/internal/store"
)

// Publisher signals that committed data changed. *bus.Bus satisfies it.
type Publisher interface {
	Publish(ctx context.Context) error
}

// Notifier forwards a change notice to other processes.
type Notifier interface {
	PublishInvalidation(ctx context.Context, owner core.OwnerID) error
}

// TransactionInput is the user-editable part of a transaction.
type TransactionInput struct {
	Amount          string
	Description     string
	OccurredAt      time.Time
	CategoryID      *string
	PaymentMethodID *string
	EstablishmentID *string
}

// TransactionService writes to the store and, once a write is committed,
// invalidates every mounted summary.
type TransactionService struct {
	store    store.Writer
	bus      Publisher
	notifier Notifier
	logger   *log.Logger
	slog     *log.StructuredLogger
	newID    func() string
}

type Option func(*TransactionService)

// WithNotifier forwards invalidations to other processes.
func WithNotifier(n Notifier) Option {
	return func(s *TransactionService) { s.notifier = n }
}

// WithIDGenerator overrides uuid generation.
func WithIDGenerator(fn func() string) Option {
	return func(s *TransactionService) { s.newID = fn }
}

func NewTransactionService(w store.Writer, bus Publisher, logger *log.Logger, opts ...Option) *TransactionService {
	logger = log.OrDiscard(logger).WithComponent(log.ComponentService)
	s := &TransactionService{
		store:  w,
		bus:    bus,
		logger: logger,
		slog:   log.NewStructuredLogger(logger),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateTransaction validates the input, assigns an id and stores it.
func (s *TransactionService) CreateTransaction(ctx context.Context, owner core.OwnerID, in TransactionInput) (core.TransactionRecord, error) {
	rec, err := buildRecord(owner, s.newID(), in)
	if err != nil {
		return core.TransactionRecord{}, err
	}

	if err := s.store.CreateTransaction(ctx, rec); err != nil {
		return core.TransactionRecord{}, fmt.Errorf("save transaction: %w", err)
	}

	s.slog.LogTransactionWritten(ctx, log.OpCreate, string(owner), rec.ID, rec.Amount.Cents)
	s.invalidate(ctx, owner)
	return rec, nil
}

// UpdateTransaction replaces the editable fields of an existing transaction.
func (s *TransactionService) UpdateTransaction(ctx context.Context, owner core.OwnerID, id string, in TransactionInput) (core.TransactionRecord, error) {
	if strings.TrimSpace(id) == "" {
		return core.TransactionRecord{}, fmt.Errorf("missing id: %w", store.ErrInvalid)
	}
	rec, err := buildRecord(owner, id, in)
	if err != nil {
		return core.TransactionRecord{}, err
	}

	if err := s.store.UpdateTransaction(ctx, rec); err != nil {
		return core.TransactionRecord{}, fmt.Errorf("update transaction: %w", err)
	}

	s.slog.LogTransactionWritten(ctx, log.OpUpdate, string(owner), rec.ID, rec.Amount.Cents)
	s.invalidate(ctx, owner)
	return rec, nil
}

func (s *TransactionService) DeleteTransaction(ctx context.Context, owner core.OwnerID, id string) error {
	if err := s.store.DeleteTransaction(ctx, owner, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	s.slog.LogTransactionWritten(ctx, log.OpDelete, string(owner), id, 0)
	s.invalidate(ctx, owner)
	return nil
}

// SaveLookup creates or renames a lookup. A new id is assigned when l.ID is empty.
func (s *TransactionService) SaveLookup(ctx context.Context, l core.Lookup) (core.Lookup, error) {
	l.Name = strings.TrimSpace(l.Name)
	if err := l.Validate(); err != nil {
		return core.Lookup{}, fmt.Errorf("invalid lookup: %w: %w", store.ErrInvalid, err)
	}
	if l.ID == "" {
		l.ID = s.newID()
	}

	if err := s.store.SaveLookup(ctx, l); err != nil {
		return core.Lookup{}, fmt.Errorf("save lookup: %w", err)
	}

	s.logger.InfoContext(ctx, "Lookup saved",
		log.FieldLookupKind, string(l.Kind),
		log.FieldLookupID, l.ID,
		log.FieldOwner, string(l.OwnerID))
	s.invalidate(ctx, l.OwnerID)
	return l, nil
}

// DeleteLookup removes a lookup. Transactions referencing it resolve to Unknown afterwards.
func (s *TransactionService) DeleteLookup(ctx context.Context, kind core.LookupKind, owner core.OwnerID, id string) error {
	if !kind.IsValid() {
		return fmt.Errorf("lookup kind %q: %w", kind, store.ErrInvalid)
	}
	if err := s.store.DeleteLookup(ctx, kind, owner, id); err != nil {
		return fmt.Errorf("delete lookup: %w", err)
	}

	s.logger.InfoContext(ctx, "Lookup deleted",
		log.FieldLookupKind, string(kind),
		log.FieldLookupID, id,
		log.FieldOwner, string(owner))
	s.invalidate(ctx, owner)
	return nil
}

// invalidate runs only after a committed write. Failures here never fail the write.
func (s *TransactionService) invalidate(ctx context.Context, owner core.OwnerID) {
	if s.bus != nil {
		if err := s.bus.Publish(ctx); err != nil {
			s.logger.WarnContext(ctx, "Failed to publish invalidation",
				log.FieldOwner, string(owner),
				log.FieldError, err)
		}
	}

	if s.notifier == nil {
		return
	}
	if err := s.notifier.PublishInvalidation(ctx, owner); err != nil {
		s.slog.LogError(ctx, "Failed to forward invalidation", err,
			log.ComponentService, log.OpNotify, log.NewFields().WithOwner(string(owner)))
	}
}

func buildRecord(owner core.OwnerID, id string, in TransactionInput) (core.TransactionRecord, error) {
	cents, err := core.ParseDecimalToCents(in.Amount)
	if err != nil {
		return core.TransactionRecord{}, fmt.Errorf("invalid amount %q: %w: %w", in.Amount, store.ErrInvalid, err)
	}

	rec := core.TransactionRecord{
		ID:              id,
		OwnerID:         owner,
		Amount:          core.ValidMoney(core.Money{Cents: cents}),
		Description:     strings.TrimSpace(in.Description),
		OccurredAt:      in.OccurredAt,
		CategoryID:      normalizeRef(in.CategoryID),
		PaymentMethodID: normalizeRef(in.PaymentMethodID),
		EstablishmentID: normalizeRef(in.EstablishmentID),
	}
	if err := rec.Validate(); err != nil {
		return core.TransactionRecord{}, fmt.Errorf("invalid transaction: %w: %w", store.ErrInvalid, err)
	}
	return rec, nil
}

func normalizeRef(id *string) *string {
	if id == nil {
		return nil
	}
	v := strings.TrimSpace(*id)
	if v == "" {
		return nil
	}
	return &v
}

// IsClientError reports whether err was caused by the caller's input.
func IsClientError(err error) bool {
	return errors.Is(err, store.ErrInvalid) || errors.Is(err, store.ErrNotFound)
}
