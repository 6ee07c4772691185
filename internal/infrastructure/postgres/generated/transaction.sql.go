package generated

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const btColumns = `id, idempotency_key, type, status, actor, entry_ids, reversal_entry_ids, metadata, failure, attempts, created_at, updated_at`

const insertTransactionIfAbsent = `-- name: InsertTransactionIfAbsent :one
INSERT INTO business_transactions (` + btColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (idempotency_key) DO NOTHING
RETURNING ` + btColumns + `
`

type InsertTransactionIfAbsentParams struct {
	ID               string             `json:"id"`
	IdempotencyKey   string             `json:"idempotency_key"`
	Type             string             `json:"type"`
	Status           string             `json:"status"`
	Actor            string             `json:"actor"`
	EntryIds         []string           `json:"entry_ids"`
	ReversalEntryIds []string           `json:"reversal_entry_ids"`
	Metadata         []byte             `json:"metadata"`
	Failure          []byte             `json:"failure"`
	Attempts         int32              `json:"attempts"`
	CreatedAt        pgtype.Timestamptz `json:"created_at"`
	UpdatedAt        pgtype.Timestamptz `json:"updated_at"`
}

// InsertTransactionIfAbsent returns pgx.ErrNoRows when the idempotency key already exists.
func (q *Queries) InsertTransactionIfAbsent(ctx context.Context, arg InsertTransactionIfAbsentParams) (BusinessTransaction, error) {
	row := q.db.QueryRow(ctx, insertTransactionIfAbsent,
		arg.ID,
		arg.IdempotencyKey,
		arg.Type,
		arg.Status,
		arg.Actor,
		arg.EntryIds,
		arg.ReversalEntryIds,
		arg.Metadata,
		arg.Failure,
		arg.Attempts,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return scanBusinessTransaction(row)
}

const getTransactionByID = `-- name: GetTransactionByID :one
SELECT ` + btColumns + ` FROM business_transactions WHERE id = $1
`

func (q *Queries) GetTransactionByID(ctx context.Context, id string) (BusinessTransaction, error) {
	return scanBusinessTransaction(q.db.QueryRow(ctx, getTransactionByID, id))
}

const getTransactionByKey = `-- name: GetTransactionByKey :one
SELECT ` + btColumns + ` FROM business_transactions WHERE idempotency_key = $1
`

func (q *Queries) GetTransactionByKey(ctx context.Context, idempotencyKey string) (BusinessTransaction, error) {
	return scanBusinessTransaction(q.db.QueryRow(ctx, getTransactionByKey, idempotencyKey))
}

const updateTransaction = `-- name: UpdateTransaction :execrows
UPDATE business_transactions
SET status = $3, entry_ids = $4, reversal_entry_ids = $5, metadata = $6, failure = $7, attempts = $8, updated_at = $9
WHERE id = $1 AND status = $2
`

type UpdateTransactionParams struct {
	ID               string             `json:"id"`
	ExpectedStatus   string             `json:"expected_status"`
	Status           string             `json:"status"`
	EntryIds         []string           `json:"entry_ids"`
	ReversalEntryIds []string           `json:"reversal_entry_ids"`
	Metadata         []byte             `json:"metadata"`
	Failure          []byte             `json:"failure"`
	Attempts         int32              `json:"attempts"`
	UpdatedAt        pgtype.Timestamptz `json:"updated_at"`
}

func (q *Queries) UpdateTransaction(ctx context.Context, arg UpdateTransactionParams) (int64, error) {
	result, err := q.db.Exec(ctx, updateTransaction,
		arg.ID,
		arg.ExpectedStatus,
		arg.Status,
		arg.EntryIds,
		arg.ReversalEntryIds,
		arg.Metadata,
		arg.Failure,
		arg.Attempts,
		arg.UpdatedAt,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const listStaleTransactions = `-- name: ListStaleTransactions :many
SELECT ` + btColumns + ` FROM business_transactions
WHERE status NOT IN ('completed', 'rejected', 'failed', 'reversed') AND updated_at < $1
ORDER BY updated_at
LIMIT $2
`

type ListStaleTransactionsParams struct {
	Before pgtype.Timestamptz `json:"before"`
	Limit  int32              `json:"limit"`
}

func (q *Queries) ListStaleTransactions(ctx context.Context, arg ListStaleTransactionsParams) ([]BusinessTransaction, error) {
	rows, err := q.db.Query(ctx, listStaleTransactions, arg.Before, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []BusinessTransaction
	for rows.Next() {
		i, err := scanBusinessTransaction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func scanBusinessTransaction(row interface{ Scan(dest ...any) error }) (BusinessTransaction, error) {
	var i BusinessTransaction
	err := row.Scan(
		&i.ID,
		&i.IdempotencyKey,
		&i.Type,
		&i.Status,
		&i.Actor,
		&i.EntryIds,
		&i.ReversalEntryIds,
		&i.Metadata,
		&i.Failure,
		&i.Attempts,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}
