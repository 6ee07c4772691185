package usecase

import (
	"context"
	"time"

	"github.com/AlexShrike/nexum-sub002/internal/domain"
)

// Scope is one all-or-nothing unit of work. Repositories downcast it to their backend type.
type Scope interface {
	// LockAccounts takes write locks on the accounts' histories for the rest of the scope.
	LockAccounts(ctx context.Context, ids []string) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// ScopeManager opens scopes.
type ScopeManager interface {
	Begin(ctx context.Context) (Scope, error)
}

// AccountRepository defines data access for accounts.
type AccountRepository interface {
	Create(ctx context.Context, s Scope, account *domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetInScope(ctx context.Context, s Scope, id string) (*domain.Account, error)
	UpdateState(ctx context.Context, s Scope, account *domain.Account) error
	List(ctx context.Context, limit, offset int) ([]*domain.Account, error)
}

// EntryRepository defines data access for journal entries.
type EntryRepository interface {
	Create(ctx context.Context, s Scope, entry *domain.JournalEntry) error
	GetByID(ctx context.Context, id string) (*domain.JournalEntry, error)
	GetInScope(ctx context.Context, s Scope, id string) (*domain.JournalEntry, error)
	MarkReversed(ctx context.Context, s Scope, id, reversedBy string) error
	// ListByAccount returns committed entries touching accountID, newest first.
	ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.JournalEntry, error)
	ListByTransaction(ctx context.Context, transactionID string) ([]*domain.JournalEntry, error)
	// SumByAccount folds posted lines with PostedAt <= asOf into debit-minus-credit totals.
	SumByAccount(ctx context.Context, accountID string, asOf time.Time) (domain.LineTotals, error)
	// SumByAccountInScope folds committed lines plus lines staged in s.
	SumByAccountInScope(ctx context.Context, s Scope, accountID string) (domain.LineTotals, error)
	// TotalsByDirection sums every posted line per currency and direction.
	TotalsByDirection(ctx context.Context) (debits, credits domain.LineTotals, err error)
}

// TransactionRepository defines data access for business transaction records.
type TransactionRepository interface {
	// CreateIfAbsent stores txn unless its idempotency key exists. It returns the stored
	// record and whether txn was the one created.
	CreateIfAbsent(ctx context.Context, s Scope, txn *domain.Transaction) (*domain.Transaction, bool, error)
	GetByID(ctx context.Context, id string) (*domain.Transaction, error)
	GetByKey(ctx context.Context, key string) (*domain.Transaction, error)
	GetInScope(ctx context.Context, s Scope, id string) (*domain.Transaction, error)
	// Update replaces the record only if its stored status is still expected.
	Update(ctx context.Context, s Scope, txn *domain.Transaction, expected domain.TransactionStatus) error
	ListStale(ctx context.Context, before time.Time, limit int) ([]*domain.Transaction, error)
}

// AuditRepository defines data access for the audit chain. Staged drafts are sealed by
// the backend when the scope commits.
type AuditRepository interface {
	Stage(ctx context.Context, s Scope, draft domain.AuditDraft) error
	Range(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditEvent, error)
	GetBySequence(ctx context.Context, seq int64) (*domain.AuditEvent, error)
	Head(ctx context.Context) (domain.AuditChainHead, error)
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// ResultCache keeps terminal transaction results keyed by idempotency key. It is an
// accelerator only; the transaction repository is authoritative.
type ResultCache interface {
	Get(ctx context.Context, key string) (*domain.TransactionResult, error)
	Set(ctx context.Context, key string, result *domain.TransactionResult, ttl time.Duration) error
	// SetIfAbsent stores result only when key holds nothing and reports whether it did.
	SetIfAbsent(ctx context.Context, key string, result *domain.TransactionResult, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
}

// PostCommitListener is notified after a business transaction commits.
type PostCommitListener interface {
	Name() string
	OnCommit(ctx context.Context, event domain.TransactionEvent) error
}
