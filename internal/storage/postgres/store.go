// Package postgres is the PostgreSQL backend, on a pgx connection pool.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"riepilogo/internal/calendar"
	"riepilogo/internal/core"
	"riepilogo/internal/log"
	"riepilogo/internal/store"
)

//go:embed schema.sql
var schema string

const uniqueViolation = "23505"

type Store struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

var _ store.Store = (*Store)(nil)

// Open connects to url and makes sure the schema exists.
func Open(ctx context.Context, url string, logger *log.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{
		pool:   pool,
		logger: log.OrDiscard(logger).WithComponent(log.ComponentStore),
	}, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) Query(ctx context.Context, owner core.OwnerID, r calendar.DateRange) ([]core.TransactionRecord, error) {
	query := `
		SELECT id, owner_id, amount, description, occurred_at, category_id, payment_method_id, establishment_id
		FROM transactions
		WHERE owner_id = $1 AND occurred_at >= $2 AND occurred_at < $3
		ORDER BY occurred_at, id`

	rows, err := s.pool.Query(ctx, query, string(owner), r.From, r.To)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w: %w", store.ErrUnavailable, err)
	}
	defer rows.Close()

	var records []core.TransactionRecord
	for rows.Next() {
		var (
			rec        core.TransactionRecord
			ownerID    string
			amount     decimal.NullDecimal
			occurredAt *time.Time
		)
		if err := rows.Scan(&rec.ID, &ownerID, &amount, &rec.Description, &occurredAt,
			&rec.CategoryID, &rec.PaymentMethodID, &rec.EstablishmentID); err != nil {
			return nil, fmt.Errorf("scan transaction: %w: %w", store.ErrUnavailable, err)
		}
		rec.OwnerID = core.OwnerID(ownerID)
		if amount.Valid {
			rec.Amount = core.ValidMoney(core.MoneyFromDecimal(amount.Decimal))
		}
		if occurredAt != nil {
			rec.OccurredAt = occurredAt.UTC()
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w: %w", store.ErrUnavailable, err)
	}
	return records, nil
}

func (s *Store) Lookups(ctx context.Context, owner core.OwnerID) (core.Lookups, error) {
	query := `SELECT id, kind, name, icon FROM lookups WHERE owner_id = $1 ORDER BY kind, name, id`

	rows, err := s.pool.Query(ctx, query, string(owner))
	if err != nil {
		return core.Lookups{}, fmt.Errorf("list lookups: %w: %w", store.ErrUnavailable, err)
	}
	defer rows.Close()

	ls := core.NewLookups()
	for rows.Next() {
		l := core.Lookup{OwnerID: owner}
		var kind string
		if err := rows.Scan(&l.ID, &kind, &l.Name, &l.Icon); err != nil {
			return core.Lookups{}, fmt.Errorf("scan lookup: %w: %w", store.ErrUnavailable, err)
		}
		l.Kind = core.LookupKind(kind)
		ls.Add(l)
	}
	if err := rows.Err(); err != nil {
		return core.Lookups{}, fmt.Errorf("iterate lookups: %w: %w", store.ErrUnavailable, err)
	}
	return ls, nil
}

func (s *Store) CreateTransaction(ctx context.Context, rec core.TransactionRecord) error {
	query := `
		INSERT INTO transactions (id, owner_id, amount, description, occurred_at, category_id, payment_method_id, establishment_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.pool.Exec(ctx, query, rec.ID, string(rec.OwnerID), amountArg(rec.Amount), rec.Description,
		timeArg(rec.OccurredAt), rec.CategoryID, rec.PaymentMethodID, rec.EstablishmentID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("create transaction %s: %w", rec.ID, store.ErrInvalid)
		}
		return fmt.Errorf("create transaction: %w", err)
	}

	s.logger.DebugContext(ctx, "Transaction saved to PostgreSQL",
		log.FieldTxID, rec.ID,
		log.FieldOwner, string(rec.OwnerID))
	return nil
}

func (s *Store) UpdateTransaction(ctx context.Context, rec core.TransactionRecord) error {
	query := `
		UPDATE transactions SET amount = $3, description = $4, occurred_at = $5,
			category_id = $6, payment_method_id = $7, establishment_id = $8, updated_at = now()
		WHERE id = $1 AND owner_id = $2`

	tag, err := s.pool.Exec(ctx, query, rec.ID, string(rec.OwnerID), amountArg(rec.Amount), rec.Description,
		timeArg(rec.OccurredAt), rec.CategoryID, rec.PaymentMethodID, rec.EstablishmentID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transaction %s: %w", rec.ID, store.ErrNotFound)
	}
	return nil
}

func (s *Store) DeleteTransaction(ctx context.Context, owner core.OwnerID, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM transactions WHERE id = $1 AND owner_id = $2`, id, string(owner))
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transaction %s: %w", id, store.ErrNotFound)
	}
	return nil
}

func (s *Store) SaveLookup(ctx context.Context, l core.Lookup) error {
	if !l.Kind.IsValid() || l.ID == "" {
		return fmt.Errorf("lookup %q of kind %q: %w", l.ID, l.Kind, store.ErrInvalid)
	}
	query := `
		INSERT INTO lookups (id, kind, owner_id, name, icon) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, icon = EXCLUDED.icon
		WHERE lookups.owner_id = EXCLUDED.owner_id AND lookups.kind = EXCLUDED.kind
		RETURNING id`

	var id string
	err := s.pool.QueryRow(ctx, query, l.ID, string(l.Kind), string(l.OwnerID), l.Name, l.Icon).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("lookup %s: %w", l.ID, store.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("save lookup: %w", err)
	}
	return nil
}

func (s *Store) DeleteLookup(ctx context.Context, kind core.LookupKind, owner core.OwnerID, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM lookups WHERE id = $1 AND kind = $2 AND owner_id = $3`,
		id, string(kind), string(owner))
	if err != nil {
		return fmt.Errorf("delete lookup: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("lookup %s: %w", id, store.ErrNotFound)
	}
	return nil
}

func amountArg(m core.NullMoney) any {
	if !m.Valid {
		return nil
	}
	return m.Decimal()
}

func timeArg(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
