package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/AlexShrike/nexum-sub002/internal/domain"
	"github.com/AlexShrike/nexum-sub002/internal/usecase"
)

// EntryRepository implements usecase.EntryRepository.
type EntryRepository struct {
	store *Store
}

// NewEntryRepository creates a new EntryRepository.
func NewEntryRepository(store *Store) *EntryRepository {
	return &EntryRepository{store: store}
}

// Create stages a posted entry. Every account it touches must be locked by s.
func (r *EntryRepository) Create(ctx context.Context, s usecase.Scope, entry *domain.JournalEntry) error {
	ms, err := scopeOf(s)
	if err != nil {
		return err
	}
	for _, id := range entry.AccountIDs() {
		if !ms.locked(id) {
			return fmt.Errorf("%w: %s", domain.ErrAccountNotLocked, id)
		}
	}

	r.store.mu.RLock()
	_, exists := r.store.entries[entry.ID]
	r.store.mu.RUnlock()
	if _, staged := ms.entries[entry.ID]; exists || staged {
		return domain.NewError(domain.KindConcurrencyConflict, "entry.create", fmt.Errorf("entry %s already exists", entry.ID))
	}

	ms.entries[entry.ID] = entry.Clone()
	ms.entryOrder = append(ms.entryOrder, entry.ID)
	return nil
}

// GetByID retrieves a committed entry.
func (r *EntryRepository) GetByID(ctx context.Context, id string) (*domain.JournalEntry, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	e, ok := r.store.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrEntryNotFound, id)
	}
	return e.Clone(), nil
}

// GetInScope retrieves an entry as seen from s.
func (r *EntryRepository) GetInScope(ctx context.Context, s usecase.Scope, id string) (*domain.JournalEntry, error) {
	ms, err := scopeOf(s)
	if err != nil {
		return nil, err
	}

	e, ok := ms.entries[id]
	if ok {
		e = e.Clone()
	} else {
		e, err = r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
	}

	if by, ok := ms.reversed[id]; ok {
		e.State = domain.EntryStateReversed
		e.ReversedBy = by
	}
	return e, nil
}

// MarkReversed stages the link from an entry to its reversal.
func (r *EntryRepository) MarkReversed(ctx context.Context, s usecase.Scope, id, reversedBy string) error {
	ms, err := scopeOf(s)
	if err != nil {
		return err
	}

	e, err := r.GetInScope(ctx, s, id)
	if err != nil {
		return err
	}
	if e.State != domain.EntryStatePosted || e.ReversedBy != "" {
		return fmt.Errorf("%w: %s", domain.ErrEntryAlreadyReversed, id)
	}

	if staged, ok := ms.entries[id]; ok {
		staged.State = domain.EntryStateReversed
		staged.ReversedBy = reversedBy
		return nil
	}
	ms.reversed[id] = reversedBy
	return nil
}

// SumByAccount folds committed lines posted at or before asOf.
func (r *EntryRepository) SumByAccount(ctx context.Context, accountID string, asOf time.Time) (domain.LineTotals, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	return r.store.sumLocked(accountID, func(e *domain.JournalEntry) bool {
		return !e.PostedAt.After(asOf)
	}), nil
}

// SumByAccountInScope folds committed lines plus lines staged in s.
func (r *EntryRepository) SumByAccountInScope(ctx context.Context, s usecase.Scope, accountID string) (domain.LineTotals, error) {
	ms, err := scopeOf(s)
	if err != nil {
		return nil, err
	}

	r.store.mu.RLock()
	totals := r.store.sumLocked(accountID, nil)
	r.store.mu.RUnlock()

	for _, id := range ms.entryOrder {
		for _, l := range ms.entries[id].Lines {
			if l.AccountID == accountID {
				totals.Apply(l.Direction, l.Amount)
			}
		}
	}
	return totals, nil
}

// TotalsByDirection sums every committed line per currency and direction.
func (r *EntryRepository) TotalsByDirection(ctx context.Context) (debits, credits domain.LineTotals, err error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	debits = make(domain.LineTotals)
	credits = make(domain.LineTotals)
	for _, e := range r.store.entries {
		for _, l := range e.Lines {
			cur := l.Amount.Currency()
			if l.Direction == domain.Debit {
				debits[cur] = debits[cur].Add(l.Amount.Amount())
			} else {
				credits[cur] = credits[cur].Add(l.Amount.Amount())
			}
		}
	}
	return debits, credits, nil
}

// ListByAccount returns committed entries touching accountID, newest first.
func (r *EntryRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.JournalEntry, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	ids := r.store.byAccount[accountID]
	out := make([]*domain.JournalEntry, 0)
	for i := len(ids) - 1 - offset; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, r.store.entries[ids[i]].Clone())
	}
	return out, nil
}

// ListByTransaction returns committed entries of a transaction in posting order.
func (r *EntryRepository) ListByTransaction(ctx context.Context, transactionID string) ([]*domain.JournalEntry, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]*domain.JournalEntry, 0)
	for _, e := range r.store.entries {
		if e.TransactionID == transactionID {
			out = append(out, e.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PostedAt.Equal(out[j].PostedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].PostedAt.Before(out[j].PostedAt)
	})
	return out, nil
}
