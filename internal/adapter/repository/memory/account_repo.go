package memory

import (
	"context"
	"fmt"

	"github.com/AlexShrike/nexum-sub002/internal/domain"
	"github.com/AlexShrike/nexum-sub002/internal/usecase"
)

// AccountRepository implements usecase.AccountRepository.
type AccountRepository struct {
	store *Store
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(store *Store) *AccountRepository {
	return &AccountRepository{store: store}
}

// Create stages a new account.
func (r *AccountRepository) Create(ctx context.Context, s usecase.Scope, account *domain.Account) error {
	ms, err := scopeOf(s)
	if err != nil {
		return err
	}

	r.store.mu.RLock()
	_, idTaken := r.store.accounts[account.ID]
	_, codeTaken := r.store.accountCodes[account.Code]
	r.store.mu.RUnlock()

	if _, staged := ms.accounts[account.ID]; idTaken || staged {
		return fmt.Errorf("%w: %s", domain.ErrAccountAlreadyExists, account.ID)
	}
	if codeTaken {
		return fmt.Errorf("%w: code %s", domain.ErrAccountAlreadyExists, account.Code)
	}

	cp := *account
	ms.accounts[account.ID] = &cp
	ms.accountOrder = append(ms.accountOrder, account.ID)
	return nil
}

// GetByID retrieves a committed account.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	acc, ok := r.store.accounts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrAccountNotFound, id)
	}
	cp := *acc
	return &cp, nil
}

// GetInScope retrieves an account including changes staged in s.
func (r *AccountRepository) GetInScope(ctx context.Context, s usecase.Scope, id string) (*domain.Account, error) {
	ms, err := scopeOf(s)
	if err != nil {
		return nil, err
	}
	if acc, ok := ms.accounts[id]; ok {
		cp := *acc
		return &cp, nil
	}
	return r.GetByID(ctx, id)
}

// UpdateState stages a state change. The account must be locked by s.
func (r *AccountRepository) UpdateState(ctx context.Context, s usecase.Scope, account *domain.Account) error {
	ms, err := scopeOf(s)
	if err != nil {
		return err
	}
	if !ms.locked(account.ID) {
		return fmt.Errorf("%w: %s", domain.ErrAccountNotLocked, account.ID)
	}

	current, err := r.GetInScope(ctx, s, account.ID)
	if err != nil {
		return err
	}
	current.State = account.State
	current.UpdatedAt = account.UpdatedAt

	if _, staged := ms.accounts[account.ID]; !staged {
		ms.accountOrder = append(ms.accountOrder, account.ID)
	}
	ms.accounts[account.ID] = current
	return nil
}

// List returns committed accounts in creation order.
func (r *AccountRepository) List(ctx context.Context, limit, offset int) ([]*domain.Account, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	ids := r.store.accountOrder
	if offset >= len(ids) {
		return []*domain.Account{}, nil
	}
	ids = ids[offset:]
	if limit > 0 && limit < len(ids) {
		ids = ids[:limit]
	}

	out := make([]*domain.Account, 0, len(ids))
	for _, id := range ids {
		cp := *r.store.accounts[id]
		out = append(out, &cp)
	}
	return out, nil
}
