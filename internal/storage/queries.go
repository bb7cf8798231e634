package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Transaction is a row of the transactions table.
type Transaction struct {
	ID              string
	OwnerID         string
	Amount          sql.NullString
	Description     string
	OccurredAt      sql.NullInt64
	CategoryID      sql.NullString
	PaymentMethodID sql.NullString
	EstablishmentID sql.NullString
}

// Lookup is a row of the lookups table.
type Lookup struct {
	ID      string
	Kind    string
	OwnerID string
	Name    string
	Icon    string
}

const createTransaction = `INSERT INTO transactions (
    id, owner_id, amount, description, occurred_at, category_id, payment_method_id, establishment_id
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateTransaction(ctx context.Context, t Transaction) error {
	_, err := q.db.ExecContext(ctx, createTransaction,
		t.ID, t.OwnerID, t.Amount, t.Description, t.OccurredAt,
		t.CategoryID, t.PaymentMethodID, t.EstablishmentID)
	return err
}

const updateTransaction = `UPDATE transactions SET
    amount = ?, description = ?, occurred_at = ?,
    category_id = ?, payment_method_id = ?, establishment_id = ?,
    updated_at = CURRENT_TIMESTAMP
WHERE id = ? AND owner_id = ?`

func (q *Queries) UpdateTransaction(ctx context.Context, t Transaction) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateTransaction,
		t.Amount, t.Description, t.OccurredAt,
		t.CategoryID, t.PaymentMethodID, t.EstablishmentID,
		t.ID, t.OwnerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteTransaction = `DELETE FROM transactions WHERE id = ? AND owner_id = ?`

func (q *Queries) DeleteTransaction(ctx context.Context, ownerID, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteTransaction, id, ownerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const listTransactionsInRange = `SELECT
    id, owner_id, amount, description, occurred_at, category_id, payment_method_id, establishment_id
FROM transactions
WHERE owner_id = ? AND occurred_at >= ? AND occurred_at < ?
ORDER BY occurred_at, id`

type ListTransactionsInRangeParams struct {
	OwnerID string
	From    int64
	To      int64
}

func (q *Queries) ListTransactionsInRange(ctx context.Context, arg ListTransactionsInRangeParams) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listTransactionsInRange, arg.OwnerID, arg.From, arg.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Transaction
	for rows.Next() {
		var i Transaction
		if err := rows.Scan(
			&i.ID, &i.OwnerID, &i.Amount, &i.Description, &i.OccurredAt,
			&i.CategoryID, &i.PaymentMethodID, &i.EstablishmentID,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listLookups = `SELECT id, kind, owner_id, name, icon FROM lookups WHERE owner_id = ? ORDER BY kind, name, id`

func (q *Queries) ListLookups(ctx context.Context, ownerID string) ([]Lookup, error) {
	rows, err := q.db.QueryContext(ctx, listLookups, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Lookup
	for rows.Next() {
		var i Lookup
		if err := rows.Scan(&i.ID, &i.Kind, &i.OwnerID, &i.Name, &i.Icon); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// upsertLookup never moves a lookup to another owner or kind.
const upsertLookup = `INSERT INTO lookups (id, kind, owner_id, name, icon)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET name = excluded.name, icon = excluded.icon
WHERE lookups.owner_id = excluded.owner_id AND lookups.kind = excluded.kind`

func (q *Queries) UpsertLookup(ctx context.Context, l Lookup) (int64, error) {
	res, err := q.db.ExecContext(ctx, upsertLookup, l.ID, l.Kind, l.OwnerID, l.Name, l.Icon)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteLookup = `DELETE FROM lookups WHERE id = ? AND kind = ? AND owner_id = ?`

func (q *Queries) DeleteLookup(ctx context.Context, kind, ownerID, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteLookup, id, kind, ownerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
