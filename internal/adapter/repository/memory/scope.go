package memory

import (
	"context"
	"errors"
	"fmt"

	"github.com/AlexShrike/nexum-sub002/internal/domain"
	"github.com/AlexShrike/nexum-sub002/internal/usecase"
)

// ErrInjectedFault is what a commit fault hook can return to simulate a crash.
var ErrInjectedFault = errors.New("injected commit fault")

// Scope buffers writes until Commit. It is not safe for concurrent use.
type Scope struct {
	store  *Store
	closed bool

	held     []string
	heldSet  map[string]bool
	maxHeld  string
	accounts map[string]*domain.Account
	// accountOrder keeps creation order for new accounts and update order otherwise.
	accountOrder []string
	entries      map[string]*domain.JournalEntry
	entryOrder   []string
	reversed     map[string]string
	txns         map[string]*domain.Transaction
	txnExpected  map[string]domain.TransactionStatus
	claimed      []string
	drafts       []domain.AuditDraft
}

func newScope(st *Store) *Scope {
	return &Scope{
		store:       st,
		heldSet:     make(map[string]bool),
		accounts:    make(map[string]*domain.Account),
		entries:     make(map[string]*domain.JournalEntry),
		reversed:    make(map[string]string),
		txns:        make(map[string]*domain.Transaction),
		txnExpected: make(map[string]domain.TransactionStatus),
	}
}

func scopeOf(s usecase.Scope) (*Scope, error) {
	ms, ok := s.(*Scope)
	if !ok || ms == nil {
		return nil, domain.ErrUnknownScope
	}
	if ms.closed {
		return nil, domain.ErrScopeClosed
	}
	return ms, nil
}

// LockAccounts takes the account locks in ascending id order. Locks already held are
// skipped; asking for an id below the highest lock held fails with ErrLockOrder.
func (s *Scope) LockAccounts(ctx context.Context, ids []string) error {
	if s.closed {
		return domain.ErrScopeClosed
	}

	for _, id := range sortedUnique(ids) {
		if s.heldSet[id] {
			continue
		}
		if s.maxHeld != "" && id < s.maxHeld {
			return fmt.Errorf("%w: %s after %s", domain.ErrLockOrder, id, s.maxHeld)
		}

		l := s.store.lockFor(id)
		select {
		case l <- struct{}{}:
		case <-ctx.Done():
			return domain.NewError(domain.KindConcurrencyConflict, "lock_accounts", ctx.Err())
		}

		s.held = append(s.held, id)
		s.heldSet[id] = true
		s.maxHeld = id
	}
	return nil
}

func (s *Scope) locked(id string) bool { return s.heldSet[id] }

// Commit validates compare-and-set expectations, seals staged audit drafts, stamps staged
// entries with the commit time and applies every buffered write at once. On any error
// nothing is applied.
func (s *Scope) Commit(ctx context.Context) error {
	if s.closed {
		return domain.ErrScopeClosed
	}
	defer s.release()

	if err := s.store.fault(); err != nil {
		return domain.NewError(domain.KindStorageFailure, "commit", err)
	}

	st := s.store
	st.mu.Lock()
	defer st.mu.Unlock()

	for id, expected := range s.txnExpected {
		cur, ok := st.txns[id]
		if !ok || cur.Status != expected {
			return fmt.Errorf("%w: %s", domain.ErrTransactionStale, id)
		}
	}
	for id := range s.reversed {
		if e, ok := st.entries[id]; ok && e.ReversedBy != "" {
			return fmt.Errorf("%w: %s", domain.ErrEntryAlreadyReversed, id)
		}
	}
	for id, acc := range s.accounts {
		if _, exists := st.accounts[id]; exists {
			continue
		}
		if _, taken := st.accountCodes[acc.Code]; taken {
			return fmt.Errorf("%w: code %s", domain.ErrAccountAlreadyExists, acc.Code)
		}
	}

	if err := st.failSeal(s.drafts); err != nil {
		return err
	}
	events, head, err := st.head.Seal(s.drafts)
	if err != nil {
		return err
	}

	if len(s.entryOrder) > 0 {
		postedAt := st.commitTime()
		for _, id := range s.entryOrder {
			s.entries[id].PostedAt = postedAt
		}
	}

	st.apply(s, events, head)
	return nil
}

// Rollback discards buffered writes. Rolling back a closed scope is a no-op.
func (s *Scope) Rollback(ctx context.Context) error {
	if s.closed {
		return nil
	}
	s.release()
	return nil
}

func (s *Scope) release() {
	s.closed = true
	for i := len(s.held) - 1; i >= 0; i-- {
		<-s.store.lockFor(s.held[i])
	}
	s.held = nil
	s.store.releaseClaims(s)
}
