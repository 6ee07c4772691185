package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/AlexShrike/nexum-sub002/internal/domain"
	"github.com/AlexShrike/nexum-sub002/internal/infrastructure/postgres/generated"
	"github.com/AlexShrike/nexum-sub002/internal/usecase"
)

// AccountRepository implements usecase.AccountRepository.
type AccountRepository struct {
	queries *generated.Queries
}

// NewAccountRepository creates a new AccountRepository. db is normally a *pgxpool.Pool.
func NewAccountRepository(db generated.DBTX) *AccountRepository {
	return &AccountRepository{queries: generated.New(db)}
}

// Create inserts an account inside s.
func (r *AccountRepository) Create(ctx context.Context, s usecase.Scope, account *domain.Account) error {
	tx, err := txOf(s)
	if err != nil {
		return err
	}

	err = tx.queries.CreateAccount(ctx, generated.CreateAccountParams{
		ID:                   account.ID,
		Code:                 account.Code,
		Name:                 account.Name,
		Type:                 string(account.Type),
		Currency:             string(account.Currency),
		State:                string(account.State),
		AllowNegativeBalance: account.AllowNegativeBalance,
		CreatedAt:            timeToPgTimestamptz(account.CreatedAt),
		UpdatedAt:            timeToPgTimestamptz(account.UpdatedAt),
	})
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", domain.ErrAccountAlreadyExists, account.Code)
	}
	return mapError("account.create", err)
}

// GetByID retrieves a committed account.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	return getAccount(ctx, r.queries, id)
}

// GetInScope retrieves an account as seen from s.
func (r *AccountRepository) GetInScope(ctx context.Context, s usecase.Scope, id string) (*domain.Account, error) {
	tx, err := txOf(s)
	if err != nil {
		return nil, err
	}
	return getAccount(ctx, tx.queries, id)
}

// UpdateState persists State and UpdatedAt. The account must be locked in s.
func (r *AccountRepository) UpdateState(ctx context.Context, s usecase.Scope, account *domain.Account) error {
	tx, err := txOf(s)
	if err != nil {
		return err
	}
	if err := tx.locked([]string{account.ID}); err != nil {
		return err
	}

	n, err := tx.queries.UpdateAccountState(ctx, generated.UpdateAccountStateParams{
		ID:        account.ID,
		State:     string(account.State),
		UpdatedAt: timeToPgTimestamptz(account.UpdatedAt),
	})
	if err != nil {
		return mapError("account.update_state", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrAccountNotFound, account.ID)
	}
	return nil
}

// List lists accounts with pagination.
func (r *AccountRepository) List(ctx context.Context, limit, offset int) ([]*domain.Account, error) {
	rows, err := r.queries.ListAccounts(ctx, generated.ListAccountsParams{
		Limit:  int32(limit),
		Offset: int32(offset),
	})
	if err != nil {
		return nil, mapError("account.list", err)
	}

	accounts := make([]*domain.Account, 0, len(rows))
	for _, row := range rows {
		accounts = append(accounts, rowToAccount(row))
	}

	return accounts, nil
}

func getAccount(ctx context.Context, q *generated.Queries, id string) (*domain.Account, error) {
	row, err := q.GetAccountByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrAccountNotFound, id)
		}

		return nil, mapError("account.get", err)
	}

	return rowToAccount(row), nil
}
