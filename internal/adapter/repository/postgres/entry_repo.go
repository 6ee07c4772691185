package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/AlexShrike/nexum-sub002/internal/domain"
	"github.com/AlexShrike/nexum-sub002/internal/infrastructure/postgres/generated"
	"github.com/AlexShrike/nexum-sub002/internal/usecase"
)

// EntryRepository implements usecase.EntryRepository.
type EntryRepository struct {
	queries *generated.Queries
}

// NewEntryRepository creates a new EntryRepository.
func NewEntryRepository(db generated.DBTX) *EntryRepository {
	return &EntryRepository{queries: generated.New(db)}
}

// Create writes a posted entry and its lines. Every account it touches must be locked in s.
// posted_at holds a placeholder until the commit stamps it.
func (r *EntryRepository) Create(ctx context.Context, s usecase.Scope, entry *domain.JournalEntry) error {
	tx, err := txOf(s)
	if err != nil {
		return err
	}
	if err := tx.locked(entry.AccountIDs()); err != nil {
		return err
	}
	postedAt := entry.PostedAt
	if postedAt.IsZero() {
		postedAt = entry.CreatedAt
	}

	err = tx.queries.CreateJournalEntry(ctx, generated.CreateJournalEntryParams{
		ID:            entry.ID,
		TransactionID: textOrNull(entry.TransactionID),
		Description:   entry.Description,
		State:         string(entry.State),
		ReversalOf:    textOrNull(entry.ReversalOf),
		ReversedBy:    textOrNull(entry.ReversedBy),
		CreatedAt:     timeToPgTimestamptz(entry.CreatedAt),
		PostedAt:      timeToPgTimestamptz(postedAt),
	})
	if err != nil {
		if isUniqueViolation(err) && entry.ReversalOf != "" {
			return fmt.Errorf("%w: %s", domain.ErrEntryAlreadyReversed, entry.ReversalOf)
		}
		return mapError("entry.create", err)
	}

	for i, l := range entry.Lines {
		err := tx.queries.CreateJournalLine(ctx, generated.CreateJournalLineParams{
			EntryID:   entry.ID,
			LineNo:    int32(i),
			AccountID: l.AccountID,
			Direction: string(l.Direction),
			Amount:    decimalToNumeric(l.Amount.Amount()),
			Currency:  string(l.Amount.Currency()),
			PostedAt:  timeToPgTimestamptz(postedAt),
		})
		if err != nil {
			return mapError("entry.create_line", err)
		}
	}

	tx.entries = append(tx.entries, entry.ID)
	return nil
}

// GetByID retrieves a committed entry.
func (r *EntryRepository) GetByID(ctx context.Context, id string) (*domain.JournalEntry, error) {
	return getEntry(ctx, r.queries, id)
}

// GetInScope retrieves an entry as seen from s.
func (r *EntryRepository) GetInScope(ctx context.Context, s usecase.Scope, id string) (*domain.JournalEntry, error) {
	tx, err := txOf(s)
	if err != nil {
		return nil, err
	}
	return getEntry(ctx, tx.queries, id)
}

// MarkReversed links a posted entry to its reversal.
func (r *EntryRepository) MarkReversed(ctx context.Context, s usecase.Scope, id, reversedBy string) error {
	tx, err := txOf(s)
	if err != nil {
		return err
	}

	n, err := tx.queries.MarkEntryReversed(ctx, generated.MarkEntryReversedParams{
		ID:         id,
		ReversedBy: textOrNull(reversedBy),
	})
	if err != nil {
		return mapError("entry.mark_reversed", err)
	}
	if n == 1 {
		return nil
	}

	if _, err := getEntry(ctx, tx.queries, id); err != nil {
		return err
	}
	return fmt.Errorf("%w: %s", domain.ErrEntryAlreadyReversed, id)
}

// ListByAccount returns committed entries touching accountID, newest first.
func (r *EntryRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.JournalEntry, error) {
	rows, err := r.queries.ListEntriesByAccount(ctx, generated.ListEntriesByAccountParams{
		AccountID: accountID,
		Limit:     int32(limit),
		Offset:    int32(offset),
	})
	if err != nil {
		return nil, mapError("entry.list_by_account", err)
	}
	return withLines(ctx, r.queries, rows)
}

// ListByTransaction returns committed entries of a transaction in posting order.
func (r *EntryRepository) ListByTransaction(ctx context.Context, transactionID string) ([]*domain.JournalEntry, error) {
	rows, err := r.queries.ListEntriesByTransaction(ctx, textOrNull(transactionID))
	if err != nil {
		return nil, mapError("entry.list_by_transaction", err)
	}
	return withLines(ctx, r.queries, rows)
}

// SumByAccount folds posted lines with PostedAt <= asOf.
func (r *EntryRepository) SumByAccount(ctx context.Context, accountID string, asOf time.Time) (domain.LineTotals, error) {
	rows, err := r.queries.SumAccountLines(ctx, generated.SumAccountLinesParams{
		AccountID: accountID,
		AsOf:      timeToPgTimestamptz(asOf),
	})
	if err != nil {
		return nil, mapError("entry.sum", err)
	}
	return foldTotals(rows), nil
}

// SumByAccountInScope folds every line visible to s, including its own writes.
func (r *EntryRepository) SumByAccountInScope(ctx context.Context, s usecase.Scope, accountID string) (domain.LineTotals, error) {
	tx, err := txOf(s)
	if err != nil {
		return nil, err
	}
	rows, err := tx.queries.SumAllAccountLines(ctx, accountID)
	if err != nil {
		return nil, mapError("entry.sum", err)
	}
	return foldTotals(rows), nil
}

// TotalsByDirection sums every posted line per currency and direction.
func (r *EntryRepository) TotalsByDirection(ctx context.Context) (debits, credits domain.LineTotals, err error) {
	rows, err := r.queries.TotalsByDirection(ctx)
	if err != nil {
		return nil, nil, mapError("entry.totals", err)
	}

	debits = make(domain.LineTotals)
	credits = make(domain.LineTotals)
	for _, row := range rows {
		cur := domain.Currency(row.Currency)
		total := numericToDecimal(row.Total)
		if domain.Direction(row.Direction) == domain.Debit {
			debits[cur] = debits[cur].Add(total)
		} else {
			credits[cur] = credits[cur].Add(total)
		}
	}
	return debits, credits, nil
}

func foldTotals(rows []generated.SumAccountLinesRow) domain.LineTotals {
	totals := make(domain.LineTotals)
	for _, row := range rows {
		totals.Apply(domain.Direction(row.Direction), domain.NewMoney(numericToDecimal(row.Total), domain.Currency(row.Currency)))
	}
	return totals
}

func getEntry(ctx context.Context, q *generated.Queries, id string) (*domain.JournalEntry, error) {
	row, err := q.GetJournalEntry(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrEntryNotFound, id)
		}
		return nil, mapError("entry.get", err)
	}

	entries, err := withLines(ctx, q, []generated.JournalEntry{row})
	if err != nil {
		return nil, err
	}
	return entries[0], nil
}

func withLines(ctx context.Context, q *generated.Queries, rows []generated.JournalEntry) ([]*domain.JournalEntry, error) {
	out := make([]*domain.JournalEntry, 0, len(rows))
	if len(rows) == 0 {
		return out, nil
	}

	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}

	lines, err := q.GetJournalLines(ctx, ids)
	if err != nil {
		return nil, mapError("entry.lines", err)
	}
	byEntry := make(map[string][]generated.JournalLine, len(rows))
	for _, l := range lines {
		byEntry[l.EntryID] = append(byEntry[l.EntryID], l)
	}

	for _, row := range rows {
		out = append(out, rowToEntry(row, byEntry[row.ID]))
	}
	return out, nil
}
