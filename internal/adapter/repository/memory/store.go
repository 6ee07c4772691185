// Package memory is an in-process storage backend. Committed state sits behind one
// RWMutex; scopes buffer their writes and apply them, together with audit sealing, in a
// single critical section at commit.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/AlexShrike/nexum-sub002/internal/domain"
	"github.com/AlexShrike/nexum-sub002/internal/usecase"
)

// Store holds committed ledger state.
type Store struct {
	mu           sync.RWMutex
	accounts     map[string]*domain.Account
	accountCodes map[string]string
	accountOrder []string
	entries      map[string]*domain.JournalEntry
	byAccount    map[string][]string
	txns         map[string]*domain.Transaction
	txnKeys      map[string]string
	audit        []domain.AuditEvent
	head         domain.AuditChainHead
	clock        usecase.Clock
	lastPosted   time.Time

	locksMu sync.Mutex
	locks   map[string]chan struct{}

	claimsMu sync.Mutex
	claims   map[string]*Scope

	faultMu     sync.Mutex
	commitFault func() error
	sealFault   func([]domain.AuditDraft) error
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock commits stamp posted entries with.
func WithClock(c usecase.Clock) Option {
	return func(st *Store) {
		if c != nil {
			st.clock = c
		}
	}
}

// NewStore creates an empty store with a genesis audit head.
func NewStore(opts ...Option) *Store {
	st := &Store{
		accounts:     make(map[string]*domain.Account),
		accountCodes: make(map[string]string),
		entries:      make(map[string]*domain.JournalEntry),
		byAccount:    make(map[string][]string),
		txns:         make(map[string]*domain.Transaction),
		txnKeys:      make(map[string]string),
		head:         domain.GenesisHead(),
		locks:        make(map[string]chan struct{}),
		claims:       make(map[string]*Scope),
		clock:        usecase.SystemClock{},
	}
	for _, opt := range opts {
		opt(st)
	}
	return st
}

// SetCommitFault installs a hook run at the start of every commit. A non-nil error aborts
// the commit before anything is applied. Pass nil to clear it.
func (st *Store) SetCommitFault(fn func() error) {
	st.faultMu.Lock()
	defer st.faultMu.Unlock()
	st.commitFault = fn
}

func (st *Store) fault() error {
	st.faultMu.Lock()
	fn := st.commitFault
	st.faultMu.Unlock()
	if fn == nil {
		return nil
	}
	return fn()
}

// SetSealFault installs a hook run with a scope's audit drafts just before they are
// sealed. A non-nil error fails the commit as an audit append failure. Pass nil to clear it.
func (st *Store) SetSealFault(fn func(drafts []domain.AuditDraft) error) {
	st.faultMu.Lock()
	defer st.faultMu.Unlock()
	st.sealFault = fn
}

func (st *Store) failSeal(drafts []domain.AuditDraft) error {
	st.faultMu.Lock()
	fn := st.sealFault
	st.faultMu.Unlock()
	if fn == nil || len(drafts) == 0 {
		return nil
	}
	if err := fn(drafts); err != nil {
		return domain.NewError(domain.KindAuditAppendFailure, "audit.seal", err)
	}
	return nil
}

// Begin implements usecase.ScopeManager.
func (st *Store) Begin(ctx context.Context) (usecase.Scope, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return newScope(st), nil
}

func (st *Store) lockFor(id string) chan struct{} {
	st.locksMu.Lock()
	defer st.locksMu.Unlock()
	l, ok := st.locks[id]
	if !ok {
		l = make(chan struct{}, 1)
		st.locks[id] = l
	}
	return l
}

func (st *Store) claim(key string, s *Scope) bool {
	st.claimsMu.Lock()
	defer st.claimsMu.Unlock()
	if owner, ok := st.claims[key]; ok && owner != s {
		return false
	}
	st.claims[key] = s
	return true
}

func (st *Store) releaseClaims(s *Scope) {
	st.claimsMu.Lock()
	defer st.claimsMu.Unlock()
	for _, key := range s.claimed {
		if st.claims[key] == s {
			delete(st.claims, key)
		}
	}
}

// sumLocked folds committed lines for accountID. st.mu must be held.
func (st *Store) sumLocked(accountID string, include func(*domain.JournalEntry) bool) domain.LineTotals {
	totals := make(domain.LineTotals)
	for _, id := range st.byAccount[accountID] {
		e := st.entries[id]
		if include != nil && !include(e) {
			continue
		}
		for _, l := range e.Lines {
			if l.AccountID == accountID {
				totals.Apply(l.Direction, l.Amount)
			}
		}
	}
	return totals
}

// commitTime returns the posting time for a commit. It never goes backwards, so posting
// order matches commit order and audit order. st.mu must be held for writing.
func (st *Store) commitTime() time.Time {
	now := st.clock.Now().UTC().Truncate(time.Microsecond)
	if !now.After(st.lastPosted) {
		now = st.lastPosted.Add(time.Microsecond)
	}
	st.lastPosted = now
	return now
}

func (st *Store) apply(s *Scope, events []domain.AuditEvent, head domain.AuditChainHead) {
	for _, id := range s.accountOrder {
		acc := s.accounts[id]
		if _, exists := st.accounts[id]; !exists {
			st.accountOrder = append(st.accountOrder, id)
			st.accountCodes[acc.Code] = id
		}
		st.accounts[id] = acc
	}

	for _, id := range s.entryOrder {
		e := s.entries[id]
		st.entries[id] = e
		for _, accID := range e.AccountIDs() {
			st.byAccount[accID] = append(st.byAccount[accID], id)
		}
	}

	for id, by := range s.reversed {
		e := st.entries[id].Clone()
		e.State = domain.EntryStateReversed
		e.ReversedBy = by
		st.entries[id] = e
	}

	for id, txn := range s.txns {
		st.txns[id] = txn
		st.txnKeys[txn.IdempotencyKey] = id
	}

	st.audit = append(st.audit, events...)
	st.head = head
}

func sortedUnique(ids []string) []string {
	out := append([]string(nil), ids...)
	sort.Strings(out)
	n := 0
	for i, id := range out {
		if i > 0 && id == out[n-1] {
			continue
		}
		out[n] = id
		n++
	}
	return out[:n]
}
