package generated

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const createJournalEntry = `-- name: CreateJournalEntry :exec
INSERT INTO journal_entries (id, transaction_id, description, state, reversal_of, reversed_by, created_at, posted_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`

type CreateJournalEntryParams struct {
	ID            string             `json:"id"`
	TransactionID pgtype.Text        `json:"transaction_id"`
	Description   string             `json:"description"`
	State         string             `json:"state"`
	ReversalOf    pgtype.Text        `json:"reversal_of"`
	ReversedBy    pgtype.Text        `json:"reversed_by"`
	CreatedAt     pgtype.Timestamptz `json:"created_at"`
	PostedAt      pgtype.Timestamptz `json:"posted_at"`
}

func (q *Queries) CreateJournalEntry(ctx context.Context, arg CreateJournalEntryParams) error {
	_, err := q.db.Exec(ctx, createJournalEntry,
		arg.ID,
		arg.TransactionID,
		arg.Description,
		arg.State,
		arg.ReversalOf,
		arg.ReversedBy,
		arg.CreatedAt,
		arg.PostedAt,
	)
	return err
}

const createJournalLine = `-- name: CreateJournalLine :exec
INSERT INTO journal_lines (entry_id, line_no, account_id, direction, amount, currency, posted_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`

type CreateJournalLineParams struct {
	EntryID   string             `json:"entry_id"`
	LineNo    int32              `json:"line_no"`
	AccountID string             `json:"account_id"`
	Direction string             `json:"direction"`
	Amount    pgtype.Numeric     `json:"amount"`
	Currency  string             `json:"currency"`
	PostedAt  pgtype.Timestamptz `json:"posted_at"`
}

func (q *Queries) CreateJournalLine(ctx context.Context, arg CreateJournalLineParams) error {
	_, err := q.db.Exec(ctx, createJournalLine,
		arg.EntryID,
		arg.LineNo,
		arg.AccountID,
		arg.Direction,
		arg.Amount,
		arg.Currency,
		arg.PostedAt,
	)
	return err
}

const getJournalEntry = `-- name: GetJournalEntry :one
SELECT id, transaction_id, description, state, reversal_of, reversed_by, created_at, posted_at FROM journal_entries WHERE id = $1
`

func (q *Queries) GetJournalEntry(ctx context.Context, id string) (JournalEntry, error) {
	row := q.db.QueryRow(ctx, getJournalEntry, id)
	var i JournalEntry
	err := row.Scan(
		&i.ID,
		&i.TransactionID,
		&i.Description,
		&i.State,
		&i.ReversalOf,
		&i.ReversedBy,
		&i.CreatedAt,
		&i.PostedAt,
	)
	return i, err
}

const stampJournalEntriesPosted = `-- name: StampJournalEntriesPosted :exec
UPDATE journal_entries SET posted_at = $2 WHERE id = ANY($1::text[])
`

type StampJournalEntriesPostedParams struct {
	Ids      []string           `json:"ids"`
	PostedAt pgtype.Timestamptz `json:"posted_at"`
}

func (q *Queries) StampJournalEntriesPosted(ctx context.Context, arg StampJournalEntriesPostedParams) error {
	_, err := q.db.Exec(ctx, stampJournalEntriesPosted, arg.Ids, arg.PostedAt)
	return err
}

const stampJournalLinesPosted = `-- name: StampJournalLinesPosted :exec
UPDATE journal_lines SET posted_at = $2 WHERE entry_id = ANY($1::text[])
`

type StampJournalLinesPostedParams struct {
	EntryIds []string           `json:"entry_ids"`
	PostedAt pgtype.Timestamptz `json:"posted_at"`
}

func (q *Queries) StampJournalLinesPosted(ctx context.Context, arg StampJournalLinesPostedParams) error {
	_, err := q.db.Exec(ctx, stampJournalLinesPosted, arg.EntryIds, arg.PostedAt)
	return err
}

const getJournalLines = `-- name: GetJournalLines :many
SELECT entry_id, line_no, account_id, direction, amount, currency, posted_at FROM journal_lines
WHERE entry_id = ANY($1::text[])
ORDER BY entry_id, line_no
`

func (q *Queries) GetJournalLines(ctx context.Context, entryIds []string) ([]JournalLine, error) {
	rows, err := q.db.Query(ctx, getJournalLines, entryIds)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []JournalLine
	for rows.Next() {
		var i JournalLine
		if err := rows.Scan(
			&i.EntryID,
			&i.LineNo,
			&i.AccountID,
			&i.Direction,
			&i.Amount,
			&i.Currency,
			&i.PostedAt,
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

const listEntriesByAccount = `-- name: ListEntriesByAccount :many
SELECT e.id, e.transaction_id, e.description, e.state, e.reversal_of, e.reversed_by, e.created_at, e.posted_at FROM journal_entries e
WHERE EXISTS (SELECT 1 FROM journal_lines l WHERE l.entry_id = e.id AND l.account_id = $1)
ORDER BY e.posted_at DESC, e.id DESC
LIMIT $2 OFFSET $3
`

type ListEntriesByAccountParams struct {
	AccountID string `json:"account_id"`
	Limit     int32  `json:"limit"`
	Offset    int32  `json:"offset"`
}

func (q *Queries) ListEntriesByAccount(ctx context.Context, arg ListEntriesByAccountParams) ([]JournalEntry, error) {
	rows, err := q.db.Query(ctx, listEntriesByAccount, arg.AccountID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanJournalEntries(rows)
}

const listEntriesByTransaction = `-- name: ListEntriesByTransaction :many
SELECT id, transaction_id, description, state, reversal_of, reversed_by, created_at, posted_at FROM journal_entries
WHERE transaction_id = $1
ORDER BY posted_at, id
`

func (q *Queries) ListEntriesByTransaction(ctx context.Context, transactionID pgtype.Text) ([]JournalEntry, error) {
	rows, err := q.db.Query(ctx, listEntriesByTransaction, transactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanJournalEntries(rows)
}

const markEntryReversed = `-- name: MarkEntryReversed :execrows
UPDATE journal_entries SET state = 'reversed', reversed_by = $2
WHERE id = $1 AND state = 'posted' AND reversed_by IS NULL
`

type MarkEntryReversedParams struct {
	ID         string      `json:"id"`
	ReversedBy pgtype.Text `json:"reversed_by"`
}

func (q *Queries) MarkEntryReversed(ctx context.Context, arg MarkEntryReversedParams) (int64, error) {
	result, err := q.db.Exec(ctx, markEntryReversed, arg.ID, arg.ReversedBy)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const sumAccountLines = `-- name: SumAccountLines :many
SELECT currency, direction, SUM(amount)::numeric AS total FROM journal_lines
WHERE account_id = $1 AND posted_at <= $2
GROUP BY currency, direction
`

type SumAccountLinesParams struct {
	AccountID string             `json:"account_id"`
	AsOf      pgtype.Timestamptz `json:"as_of"`
}

type SumAccountLinesRow struct {
	Currency  string         `json:"currency"`
	Direction string         `json:"direction"`
	Total     pgtype.Numeric `json:"total"`
}

func (q *Queries) SumAccountLines(ctx context.Context, arg SumAccountLinesParams) ([]SumAccountLinesRow, error) {
	rows, err := q.db.Query(ctx, sumAccountLines, arg.AccountID, arg.AsOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SumAccountLinesRow
	for rows.Next() {
		var i SumAccountLinesRow
		if err := rows.Scan(&i.Currency, &i.Direction, &i.Total); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const sumAllAccountLines = `-- name: SumAllAccountLines :many
SELECT currency, direction, SUM(amount)::numeric AS total FROM journal_lines
WHERE account_id = $1
GROUP BY currency, direction
`

func (q *Queries) SumAllAccountLines(ctx context.Context, accountID string) ([]SumAccountLinesRow, error) {
	rows, err := q.db.Query(ctx, sumAllAccountLines, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SumAccountLinesRow
	for rows.Next() {
		var i SumAccountLinesRow
		if err := rows.Scan(&i.Currency, &i.Direction, &i.Total); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const totalsByDirection = `-- name: TotalsByDirection :many
SELECT currency, direction, SUM(amount)::numeric AS total FROM journal_lines
GROUP BY currency, direction
`

type TotalsByDirectionRow struct {
	Currency  string         `json:"currency"`
	Direction string         `json:"direction"`
	Total     pgtype.Numeric `json:"total"`
}

func (q *Queries) TotalsByDirection(ctx context.Context) ([]TotalsByDirectionRow, error) {
	rows, err := q.db.Query(ctx, totalsByDirection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TotalsByDirectionRow
	for rows.Next() {
		var i TotalsByDirectionRow
		if err := rows.Scan(&i.Currency, &i.Direction, &i.Total); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func scanJournalEntries(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]JournalEntry, error) {
	var items []JournalEntry
	for rows.Next() {
		var i JournalEntry
		if err := rows.Scan(
			&i.ID,
			&i.TransactionID,
			&i.Description,
			&i.State,
			&i.ReversalOf,
			&i.ReversedBy,
			&i.CreatedAt,
			&i.PostedAt,
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
