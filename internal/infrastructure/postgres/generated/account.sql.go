package generated

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const countAccounts = `-- name: CountAccounts :one
SELECT COUNT(*) FROM accounts
`

func (q *Queries) CountAccounts(ctx context.Context) (int64, error) {
	row := q.db.QueryRow(ctx, countAccounts)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const createAccount = `-- name: CreateAccount :exec
INSERT INTO accounts (id, code, name, type, currency, state, allow_negative_balance, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`

type CreateAccountParams struct {
	ID                   string             `json:"id"`
	Code                 string             `json:"code"`
	Name                 string             `json:"name"`
	Type                 string             `json:"type"`
	Currency             string             `json:"currency"`
	State                string             `json:"state"`
	AllowNegativeBalance bool               `json:"allow_negative_balance"`
	CreatedAt            pgtype.Timestamptz `json:"created_at"`
	UpdatedAt            pgtype.Timestamptz `json:"updated_at"`
}

func (q *Queries) CreateAccount(ctx context.Context, arg CreateAccountParams) error {
	_, err := q.db.Exec(ctx, createAccount,
		arg.ID,
		arg.Code,
		arg.Name,
		arg.Type,
		arg.Currency,
		arg.State,
		arg.AllowNegativeBalance,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return err
}

const getAccountByID = `-- name: GetAccountByID :one
SELECT id, code, name, type, currency, state, allow_negative_balance, created_at, updated_at FROM accounts WHERE id = $1
`

func (q *Queries) GetAccountByID(ctx context.Context, id string) (Account, error) {
	row := q.db.QueryRow(ctx, getAccountByID, id)
	var i Account
	err := row.Scan(
		&i.ID,
		&i.Code,
		&i.Name,
		&i.Type,
		&i.Currency,
		&i.State,
		&i.AllowNegativeBalance,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listAccounts = `-- name: ListAccounts :many
SELECT id, code, name, type, currency, state, allow_negative_balance, created_at, updated_at FROM accounts
ORDER BY created_at, id
LIMIT $1 OFFSET $2
`

type ListAccountsParams struct {
	Limit  int32 `json:"limit"`
	Offset int32 `json:"offset"`
}

func (q *Queries) ListAccounts(ctx context.Context, arg ListAccountsParams) ([]Account, error) {
	rows, err := q.db.Query(ctx, listAccounts, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Account
	for rows.Next() {
		var i Account
		if err := rows.Scan(
			&i.ID,
			&i.Code,
			&i.Name,
			&i.Type,
			&i.Currency,
			&i.State,
			&i.AllowNegativeBalance,
			&i.CreatedAt,
			&i.UpdatedAt,
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

const lockAccounts = `-- name: LockAccounts :many
SELECT id FROM accounts WHERE id = ANY($1::text[]) ORDER BY id FOR UPDATE
`

func (q *Queries) LockAccounts(ctx context.Context, ids []string) ([]string, error) {
	rows, err := q.db.Query(ctx, lockAccounts, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		items = append(items, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateAccountState = `-- name: UpdateAccountState :execrows
UPDATE accounts SET state = $2, updated_at = $3 WHERE id = $1
`

type UpdateAccountStateParams struct {
	ID        string             `json:"id"`
	State     string             `json:"state"`
	UpdatedAt pgtype.Timestamptz `json:"updated_at"`
}

func (q *Queries) UpdateAccountState(ctx context.Context, arg UpdateAccountStateParams) (int64, error) {
	result, err := q.db.Exec(ctx, updateAccountState, arg.ID, arg.State, arg.UpdatedAt)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
