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

// TransactionRepository implements usecase.TransactionRepository on business_transactions.
type TransactionRepository struct {
	queries *generated.Queries
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(db generated.DBTX) *TransactionRepository {
	return &TransactionRepository{queries: generated.New(db)}
}

// CreateIfAbsent relies on the unique index on idempotency_key. A concurrent insert of the
// same key blocks until the other scope finishes, then sees its row.
func (r *TransactionRepository) CreateIfAbsent(ctx context.Context, s usecase.Scope, txn *domain.Transaction) (*domain.Transaction, bool, error) {
	tx, err := txOf(s)
	if err != nil {
		return nil, false, err
	}

	metadata, failure, err := encodeTransaction(txn)
	if err != nil {
		return nil, false, domain.NewError(domain.KindStorageFailure, "transaction.create", err)
	}

	row, err := tx.queries.InsertTransactionIfAbsent(ctx, generated.InsertTransactionIfAbsentParams{
		ID:               txn.ID,
		IdempotencyKey:   txn.IdempotencyKey,
		Type:             string(txn.Type),
		Status:           string(txn.Status),
		Actor:            txn.Actor,
		EntryIds:         nonNil(txn.EntryIDs),
		ReversalEntryIds: nonNil(txn.ReversalEntryIDs),
		Metadata:         metadata,
		Failure:          failure,
		Attempts:         int32(txn.Attempts),
		CreatedAt:        timeToPgTimestamptz(txn.CreatedAt),
		UpdatedAt:        timeToPgTimestamptz(txn.UpdatedAt),
	})
	if errors.Is(err, pgx.ErrNoRows) {
		existing, err := tx.queries.GetTransactionByKey(ctx, txn.IdempotencyKey)
		if err != nil {
			return nil, false, mapError("transaction.get_by_key", err)
		}
		stored, err := rowToTransaction(existing)
		if err != nil {
			return nil, false, domain.NewError(domain.KindStorageFailure, "transaction.create", err)
		}
		return stored, false, nil
	}
	if err != nil {
		return nil, false, mapError("transaction.create", err)
	}

	created, err := rowToTransaction(row)
	if err != nil {
		return nil, false, domain.NewError(domain.KindStorageFailure, "transaction.create", err)
	}
	return created, true, nil
}

func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	return r.get(r.queries.GetTransactionByID(ctx, id))
}

func (r *TransactionRepository) GetByKey(ctx context.Context, key string) (*domain.Transaction, error) {
	return r.get(r.queries.GetTransactionByKey(ctx, key))
}

func (r *TransactionRepository) GetInScope(ctx context.Context, s usecase.Scope, id string) (*domain.Transaction, error) {
	tx, err := txOf(s)
	if err != nil {
		return nil, err
	}
	return r.get(tx.queries.GetTransactionByID(ctx, id))
}

// Update replaces the record only if its stored status is still expected.
func (r *TransactionRepository) Update(ctx context.Context, s usecase.Scope, txn *domain.Transaction, expected domain.TransactionStatus) error {
	tx, err := txOf(s)
	if err != nil {
		return err
	}

	metadata, failure, err := encodeTransaction(txn)
	if err != nil {
		return domain.NewError(domain.KindStorageFailure, "transaction.update", err)
	}

	n, err := tx.queries.UpdateTransaction(ctx, generated.UpdateTransactionParams{
		ID:               txn.ID,
		ExpectedStatus:   string(expected),
		Status:           string(txn.Status),
		EntryIds:         nonNil(txn.EntryIDs),
		ReversalEntryIds: nonNil(txn.ReversalEntryIDs),
		Metadata:         metadata,
		Failure:          failure,
		Attempts:         int32(txn.Attempts),
		UpdatedAt:        timeToPgTimestamptz(txn.UpdatedAt),
	})
	if err != nil {
		return mapError("transaction.update", err)
	}
	if n == 1 {
		return nil
	}

	if _, err := r.get(tx.queries.GetTransactionByID(ctx, txn.ID)); err != nil {
		return err
	}
	return fmt.Errorf("%w: %s is no longer %s", domain.ErrTransactionStale, txn.ID, expected)
}

// ListStale returns non-terminal records not updated since before, oldest first.
func (r *TransactionRepository) ListStale(ctx context.Context, before time.Time, limit int) ([]*domain.Transaction, error) {
	rows, err := r.queries.ListStaleTransactions(ctx, generated.ListStaleTransactionsParams{
		Before: timeToPgTimestamptz(before),
		Limit:  int32(limit),
	})
	if err != nil {
		return nil, mapError("transaction.list_stale", err)
	}

	out := make([]*domain.Transaction, 0, len(rows))
	for _, row := range rows {
		txn, err := rowToTransaction(row)
		if err != nil {
			return nil, domain.NewError(domain.KindStorageFailure, "transaction.list_stale", err)
		}
		out = append(out, txn)
	}
	return out, nil
}

func (r *TransactionRepository) get(row generated.BusinessTransaction, err error) (*domain.Transaction, error) {
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, mapError("transaction.get", err)
	}
	txn, err := rowToTransaction(row)
	if err != nil {
		return nil, domain.NewError(domain.KindStorageFailure, "transaction.get", err)
	}
	return txn, nil
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
