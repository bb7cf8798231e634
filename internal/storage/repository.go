package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"riepilogo/internal/calendar"
	"riepilogo/internal/core"
	"riepilogo/internal/log"
	"riepilogo/internal/store"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	logger  *log.Logger
}

var _ store.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		logger:  log.OrDiscard(logger).WithComponent(log.ComponentStore),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Query(ctx context.Context, owner core.OwnerID, rng calendar.DateRange) ([]core.TransactionRecord, error) {
	rows, err := r.queries.ListTransactionsInRange(ctx, ListTransactionsInRangeParams{
		OwnerID: string(owner),
		From:    rng.From.Unix(),
		To:      rng.To.Unix(),
	})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w: %w", store.ErrUnavailable, err)
	}

	records := make([]core.TransactionRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, recordFromRow(row))
	}
	return records, nil
}

func (r *SQLiteRepository) Lookups(ctx context.Context, owner core.OwnerID) (core.Lookups, error) {
	rows, err := r.queries.ListLookups(ctx, string(owner))
	if err != nil {
		return core.Lookups{}, fmt.Errorf("list lookups: %w: %w", store.ErrUnavailable, err)
	}

	ls := core.NewLookups()
	for _, row := range rows {
		ls.Add(core.Lookup{
			ID:      row.ID,
			Kind:    core.LookupKind(row.Kind),
			Name:    row.Name,
			Icon:    row.Icon,
			OwnerID: core.OwnerID(row.OwnerID),
		})
	}
	return ls, nil
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, rec core.TransactionRecord) error {
	if err := r.queries.CreateTransaction(ctx, rowFromRecord(rec)); err != nil {
		if isConstraint(err) {
			return fmt.Errorf("create transaction %s: %w", rec.ID, store.ErrInvalid)
		}
		return fmt.Errorf("create transaction: %w", err)
	}

	r.logger.DebugContext(ctx, "Transaction saved to SQLite",
		log.FieldTxID, rec.ID,
		log.FieldOwner, string(rec.OwnerID),
		log.FieldAmountCents, rec.Amount.Cents)
	return nil
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, rec core.TransactionRecord) error {
	n, err := r.queries.UpdateTransaction(ctx, rowFromRecord(rec))
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("transaction %s: %w", rec.ID, store.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, owner core.OwnerID, id string) error {
	n, err := r.queries.DeleteTransaction(ctx, string(owner), id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("transaction %s: %w", id, store.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) SaveLookup(ctx context.Context, l core.Lookup) error {
	if !l.Kind.IsValid() || l.ID == "" {
		return fmt.Errorf("lookup %q of kind %q: %w", l.ID, l.Kind, store.ErrInvalid)
	}
	n, err := r.queries.UpsertLookup(ctx, Lookup{
		ID:      l.ID,
		Kind:    string(l.Kind),
		OwnerID: string(l.OwnerID),
		Name:    l.Name,
		Icon:    l.Icon,
	})
	if err != nil {
		return fmt.Errorf("save lookup: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("lookup %s: %w", l.ID, store.ErrNotFound)
	}
	return nil
}

// DeleteLookup leaves referencing transactions untouched; their references dangle.
func (r *SQLiteRepository) DeleteLookup(ctx context.Context, kind core.LookupKind, owner core.OwnerID, id string) error {
	n, err := r.queries.DeleteLookup(ctx, string(kind), string(owner), id)
	if err != nil {
		return fmt.Errorf("delete lookup: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("lookup %s: %w", id, store.ErrNotFound)
	}
	return nil
}

func isConstraint(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return true
	}
	return false
}

func rowFromRecord(rec core.TransactionRecord) Transaction {
	row := Transaction{
		ID:              rec.ID,
		OwnerID:         string(rec.OwnerID),
		Description:     rec.Description,
		CategoryID:      nullString(rec.CategoryID),
		PaymentMethodID: nullString(rec.PaymentMethodID),
		EstablishmentID: nullString(rec.EstablishmentID),
	}
	if rec.Amount.Valid {
		row.Amount = sql.NullString{String: rec.Amount.String(), Valid: true}
	}
	if !rec.OccurredAt.IsZero() {
		row.OccurredAt = sql.NullInt64{Int64: rec.OccurredAt.Unix(), Valid: true}
	}
	return row
}

func recordFromRow(row Transaction) core.TransactionRecord {
	rec := core.TransactionRecord{
		ID:              row.ID,
		OwnerID:         core.OwnerID(row.OwnerID),
		Description:     row.Description,
		CategoryID:      stringPtr(row.CategoryID),
		PaymentMethodID: stringPtr(row.PaymentMethodID),
		EstablishmentID: stringPtr(row.EstablishmentID),
	}
	if row.Amount.Valid {
		if m, err := core.ParseAmount(row.Amount.String); err == nil {
			rec.Amount = core.ValidMoney(m)
		}
	}
	if row.OccurredAt.Valid {
		rec.OccurredAt = time.Unix(row.OccurredAt.Int64, 0).UTC()
	}
	return rec
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
