package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/AlexShrike/nexum-sub002/internal/domain"
	"github.com/AlexShrike/nexum-sub002/internal/usecase"
)

// TransactionRepository implements usecase.TransactionRepository.
type TransactionRepository struct {
	store *Store
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(store *Store) *TransactionRepository {
	return &TransactionRepository{store: store}
}

// CreateIfAbsent stages txn unless its key is committed or claimed by another open scope.
// A key claimed elsewhere is a concurrency conflict; retrying after that scope ends sees
// the committed record.
func (r *TransactionRepository) CreateIfAbsent(ctx context.Context, s usecase.Scope, txn *domain.Transaction) (*domain.Transaction, bool, error) {
	ms, err := scopeOf(s)
	if err != nil {
		return nil, false, err
	}

	if existing, err := r.GetByKey(ctx, txn.IdempotencyKey); err == nil {
		return existing, false, nil
	}

	if !r.store.claim(txn.IdempotencyKey, ms) {
		return nil, false, fmt.Errorf("%w: %s", domain.ErrDuplicateIdempotencyKey, txn.IdempotencyKey)
	}
	ms.claimed = append(ms.claimed, txn.IdempotencyKey)

	// The claim may have raced a commit that released it.
	if existing, err := r.GetByKey(ctx, txn.IdempotencyKey); err == nil {
		return existing, false, nil
	}

	ms.txns[txn.ID] = txn.Clone()
	return txn.Clone(), true, nil
}

// GetByID retrieves a committed record.
func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	txn, ok := r.store.txns[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrTransactionNotFound, id)
	}
	return txn.Clone(), nil
}

// GetByKey retrieves a committed record by idempotency key.
func (r *TransactionRepository) GetByKey(ctx context.Context, key string) (*domain.Transaction, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	id, ok := r.store.txnKeys[key]
	if !ok {
		return nil, fmt.Errorf("%w: key %s", domain.ErrTransactionNotFound, key)
	}
	return r.store.txns[id].Clone(), nil
}

// GetInScope retrieves a record including changes staged in s.
func (r *TransactionRepository) GetInScope(ctx context.Context, s usecase.Scope, id string) (*domain.Transaction, error) {
	ms, err := scopeOf(s)
	if err != nil {
		return nil, err
	}
	if txn, ok := ms.txns[id]; ok {
		return txn.Clone(), nil
	}
	return r.GetByID(ctx, id)
}

// Update stages txn if the record's status is still expected. The expectation against
// committed state is checked again at commit.
func (r *TransactionRepository) Update(ctx context.Context, s usecase.Scope, txn *domain.Transaction, expected domain.TransactionStatus) error {
	ms, err := scopeOf(s)
	if err != nil {
		return err
	}

	current, err := r.GetInScope(ctx, s, txn.ID)
	if err != nil {
		return err
	}
	if current.Status != expected {
		return fmt.Errorf("%w: %s is %s, expected %s", domain.ErrTransactionStale, txn.ID, current.Status, expected)
	}

	_, staged := ms.txns[txn.ID]
	if _, tracked := ms.txnExpected[txn.ID]; !staged && !tracked {
		ms.txnExpected[txn.ID] = expected
	}
	ms.txns[txn.ID] = txn.Clone()
	return nil
}

// ListStale returns non-terminal records not updated since before, oldest first.
func (r *TransactionRepository) ListStale(ctx context.Context, before time.Time, limit int) ([]*domain.Transaction, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var out []*domain.Transaction
	for _, txn := range r.store.txns {
		if !txn.Status.IsTerminal() && txn.UpdatedAt.Before(before) {
			out = append(out, txn.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
