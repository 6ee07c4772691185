package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/AlexShrike/nexum-sub002/internal/domain"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func openAccount(t *testing.T, st *Store, id string, typ domain.AccountType) {
	t.Helper()
	ctx := context.Background()
	s, _ := st.Begin(ctx)
	acc := &domain.Account{
		ID: id, Code: id, Name: id, Type: typ, Currency: "USD",
		State: domain.AccountStateActive, CreatedAt: testNow, UpdatedAt: testNow,
	}
	if err := NewAccountRepository(st).Create(ctx, s, acc); err != nil {
		t.Fatalf("create account: %v", err)
	}
	if err := s.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func postedEntry(id string, debit, credit string, amount string) *domain.JournalEntry {
	m := domain.MustParseMoney(amount, "USD")
	return &domain.JournalEntry{
		ID: id,
		Lines: []domain.Line{
			{AccountID: debit, Direction: domain.Debit, Amount: m},
			{AccountID: credit, Direction: domain.Credit, Amount: m},
		},
		State:     domain.EntryStatePosted,
		CreatedAt: testNow,
		PostedAt:  testNow,
	}
}

// setClock reads whatever time was last set.
type setClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *setClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *setClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func draft(t *testing.T, entityID string) domain.AuditDraft {
	t.Helper()
	d, err := domain.NewAuditDraft(testNow, "tester", domain.AuditActionEntryPosted, domain.EntityEntry, entityID, map[string]any{"id": entityID})
	if err != nil {
		t.Fatalf("draft: %v", err)
	}
	return d
}

func TestScope_CommitAppliesEverything(t *testing.T) {
	ctx := context.Background()
	st := NewStore()
	openAccount(t, st, "a", domain.AccountTypeAsset)
	openAccount(t, st, "b", domain.AccountTypeAsset)

	entries := NewEntryRepository(st)
	audit := NewAuditRepository(st)

	s, _ := st.Begin(ctx)
	if err := s.LockAccounts(ctx, []string{"b", "a"}); err != nil {
		t.Fatalf("lock: %v", err)
	}
	if err := entries.Create(ctx, s, postedEntry("e1", "a", "b", "10.00")); err != nil {
		t.Fatalf("create entry: %v", err)
	}
	if err := audit.Stage(ctx, s, draft(t, "e1")); err != nil {
		t.Fatalf("stage: %v", err)
	}

	if _, err := entries.GetByID(ctx, "e1"); !errors.Is(err, domain.ErrEntryNotFound) {
		t.Fatalf("staged entry visible before commit: %v", err)
	}
	inScope, err := entries.SumByAccountInScope(ctx, s, "a")
	if err != nil || !inScope["USD"].Equal(domain.MustParseMoney("10", "USD").Amount()) {
		t.Fatalf("in-scope sum = %v, %v", inScope, err)
	}

	if err := s.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}

	if _, err := entries.GetByID(ctx, "e1"); err != nil {
		t.Fatalf("entry missing after commit: %v", err)
	}
	head, _ := audit.Head(ctx)
	if head.Sequence != 1 {
		t.Fatalf("head sequence = %d, want 1", head.Sequence)
	}
	ev, err := audit.GetBySequence(ctx, 1)
	if err != nil || ev.PreviousHash != domain.GenesisHash || ev.Hash != ev.ComputeHash() {
		t.Fatalf("sealed event not linked to genesis: %+v %v", ev, err)
	}
}

func TestScope_InjectedFaultAppliesNothing(t *testing.T) {
	ctx := context.Background()
	st := NewStore()
	openAccount(t, st, "a", domain.AccountTypeAsset)
	openAccount(t, st, "b", domain.AccountTypeAsset)

	entries := NewEntryRepository(st)
	audit := NewAuditRepository(st)
	st.SetCommitFault(func() error { return ErrInjectedFault })

	s, _ := st.Begin(ctx)
	_ = s.LockAccounts(ctx, []string{"a", "b"})
	_ = entries.Create(ctx, s, postedEntry("e1", "a", "b", "10.00"))
	_ = audit.Stage(ctx, s, draft(t, "e1"))

	err := s.Commit(ctx)
	if domain.KindOf(err) != domain.KindStorageFailure || !errors.Is(err, ErrInjectedFault) {
		t.Fatalf("commit error = %v", err)
	}

	if _, err := entries.GetByID(ctx, "e1"); !errors.Is(err, domain.ErrEntryNotFound) {
		t.Fatalf("entry applied despite failed commit")
	}
	head, _ := audit.Head(ctx)
	if head.Sequence != 0 {
		t.Fatalf("audit advanced to %d despite failed commit", head.Sequence)
	}

	// Locks were released with the failed scope.
	st.SetCommitFault(nil)
	s2, _ := st.Begin(ctx)
	lockCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := s2.LockAccounts(lockCtx, []string{"a", "b"}); err != nil {
		t.Fatalf("locks leaked: %v", err)
	}
	_ = s2.Rollback(ctx)
}

func TestScope_LockOrder(t *testing.T) {
	ctx := context.Background()
	st := NewStore()

	s, _ := st.Begin(ctx)
	defer s.Rollback(ctx)

	if err := s.LockAccounts(ctx, []string{"m"}); err != nil {
		t.Fatalf("lock m: %v", err)
	}
	if err := s.LockAccounts(ctx, []string{"m", "z"}); err != nil {
		t.Fatalf("re-lock with higher id: %v", err)
	}
	err := s.LockAccounts(ctx, []string{"a"})
	if !errors.Is(err, domain.ErrLockOrder) {
		t.Fatalf("expected ErrLockOrder, got %v", err)
	}
}

func TestScope_LockWaitHonorsContext(t *testing.T) {
	ctx := context.Background()
	st := NewStore()

	holder, _ := st.Begin(ctx)
	if err := holder.LockAccounts(ctx, []string{"a"}); err != nil {
		t.Fatal(err)
	}
	defer holder.Rollback(ctx)

	waiter, _ := st.Begin(ctx)
	defer waiter.Rollback(ctx)

	wctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	err := waiter.LockAccounts(wctx, []string{"a"})
	if !domain.IsRetryable(err) {
		t.Fatalf("expected retryable conflict, got %v", err)
	}
}

func TestScope_ClosedScope(t *testing.T) {
	ctx := context.Background()
	st := NewStore()

	s, _ := st.Begin(ctx)
	if err := s.Commit(ctx); err != nil {
		t.Fatal(err)
	}
	if err := s.Commit(ctx); !errors.Is(err, domain.ErrScopeClosed) {
		t.Fatalf("second commit: %v", err)
	}
	if err := s.Rollback(ctx); err != nil {
		t.Fatalf("rollback after commit: %v", err)
	}
	if err := NewAuditRepository(st).Stage(ctx, s, draft(t, "x")); !errors.Is(err, domain.ErrScopeClosed) {
		t.Fatalf("stage on closed scope: %v", err)
	}
}

func TestEntryRepository_RequiresLocks(t *testing.T) {
	ctx := context.Background()
	st := NewStore()
	openAccount(t, st, "a", domain.AccountTypeAsset)
	openAccount(t, st, "b", domain.AccountTypeAsset)

	s, _ := st.Begin(ctx)
	defer s.Rollback(ctx)
	_ = s.LockAccounts(ctx, []string{"a"})

	err := NewEntryRepository(st).Create(ctx, s, postedEntry("e1", "a", "b", "1.00"))
	if !errors.Is(err, domain.ErrAccountNotLocked) {
		t.Fatalf("expected ErrAccountNotLocked, got %v", err)
	}
}

func TestEntryRepository_SumByAccountAsOf(t *testing.T) {
	ctx := context.Background()
	clock := &setClock{}
	st := NewStore(WithClock(clock))
	openAccount(t, st, "a", domain.AccountTypeAsset)
	openAccount(t, st, "b", domain.AccountTypeAsset)
	entries := NewEntryRepository(st)

	for i, at := range []time.Time{testNow, testNow.Add(time.Hour)} {
		clock.Set(at)
		s, _ := st.Begin(ctx)
		_ = s.LockAccounts(ctx, []string{"a", "b"})
		e := postedEntry(string(rune('x'+i)), "a", "b", "5.00")
		if err := entries.Create(ctx, s, e); err != nil {
			t.Fatal(err)
		}
		if err := s.Commit(ctx); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		asOf time.Time
		want string
	}{
		{testNow.Add(-time.Second), "0"},
		{testNow, "5"},
		{testNow.Add(2 * time.Hour), "10"},
	}
	for _, tt := range tests {
		got, err := entries.SumByAccount(ctx, "a", tt.asOf)
		if err != nil {
			t.Fatal(err)
		}
		if got["USD"].String() != tt.want {
			t.Errorf("asOf %s: got %s, want %s", tt.asOf, got["USD"], tt.want)
		}
	}

	debits, credits, _ := entries.TotalsByDirection(ctx)
	if !debits["USD"].Equal(credits["USD"]) {
		t.Fatalf("debits %s != credits %s", debits["USD"], credits["USD"])
	}
}

func TestTransactionRepository_ClaimAndCompareAndSet(t *testing.T) {
	ctx := context.Background()
	st := NewStore()
	repo := NewTransactionRepository(st)

	txn := &domain.Transaction{ID: "t1", IdempotencyKey: "k1", Type: domain.TransactionTypeJournal, Status: domain.StatusCreated, CreatedAt: testNow, UpdatedAt: testNow}

	s1, _ := st.Begin(ctx)
	if _, created, err := repo.CreateIfAbsent(ctx, s1, txn); err != nil || !created {
		t.Fatalf("first claim: created=%v err=%v", created, err)
	}

	s2, _ := st.Begin(ctx)
	other := txn.Clone()
	other.ID = "t2"
	if _, _, err := repo.CreateIfAbsent(ctx, s2, other); !errors.Is(err, domain.ErrDuplicateIdempotencyKey) {
		t.Fatalf("concurrent claim: %v", err)
	}
	_ = s2.Rollback(ctx)

	if err := s1.Commit(ctx); err != nil {
		t.Fatal(err)
	}

	s3, _ := st.Begin(ctx)
	stored, created, err := repo.CreateIfAbsent(ctx, s3, other)
	if err != nil || created || stored.ID != "t1" {
		t.Fatalf("claim after commit: stored=%v created=%v err=%v", stored, created, err)
	}
	_ = s3.Rollback(ctx)

	// Two scopes both expect created; only the first commit wins.
	a, _ := st.Begin(ctx)
	b, _ := st.Begin(ctx)
	next := stored.Clone()
	if err := next.TransitionTo(domain.StatusValidating, testNow); err != nil {
		t.Fatal(err)
	}
	if err := repo.Update(ctx, a, next, domain.StatusCreated); err != nil {
		t.Fatal(err)
	}
	if err := repo.Update(ctx, b, next, domain.StatusCreated); err != nil {
		t.Fatal(err)
	}
	if err := a.Commit(ctx); err != nil {
		t.Fatal(err)
	}
	if err := b.Commit(ctx); !errors.Is(err, domain.ErrTransactionStale) {
		t.Fatalf("second commit: %v", err)
	}

	s4, _ := st.Begin(ctx)
	defer s4.Rollback(ctx)
	if err := repo.Update(ctx, s4, next, domain.StatusCreated); !errors.Is(err, domain.ErrTransactionStale) {
		t.Fatalf("stale update: %v", err)
	}
}

func TestTransactionRepository_ListStale(t *testing.T) {
	ctx := context.Background()
	st := NewStore()
	repo := NewTransactionRepository(st)

	records := []*domain.Transaction{
		{ID: "old", IdempotencyKey: "k1", Status: domain.StatusValidating, UpdatedAt: testNow.Add(-time.Hour)},
		{ID: "new", IdempotencyKey: "k2", Status: domain.StatusCreated, UpdatedAt: testNow},
		{ID: "done", IdempotencyKey: "k3", Status: domain.StatusCompleted, UpdatedAt: testNow.Add(-time.Hour)},
	}
	s, _ := st.Begin(ctx)
	for _, r := range records {
		if _, _, err := repo.CreateIfAbsent(ctx, s, r); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Commit(ctx); err != nil {
		t.Fatal(err)
	}

	stale, err := repo.ListStale(ctx, testNow.Add(-time.Minute), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(stale) != 1 || stale[0].ID != "old" {
		t.Fatalf("stale = %v", stale)
	}
}

func TestAuditRepository_ConcurrentCommitsStayGapless(t *testing.T) {
	ctx := context.Background()
	st := NewStore()
	audit := NewAuditRepository(st)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, _ := st.Begin(ctx)
			_ = audit.Stage(ctx, s, draft(t, "x"))
			_ = audit.Stage(ctx, s, draft(t, "y"))
			if err := s.Commit(ctx); err != nil {
				t.Errorf("commit %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	events, err := audit.Range(ctx, domain.AuditFilter{FromSeq: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 40 {
		t.Fatalf("got %d events", len(events))
	}
	anchor := &domain.AuditEvent{Hash: domain.GenesisHash}
	if res := domain.VerifyChain(anchor, events); !res.Valid {
		t.Fatalf("chain invalid: %+v", res)
	}

	filtered, _ := audit.Range(ctx, domain.AuditFilter{EntityID: "y", Limit: 5})
	if len(filtered) != 5 || filtered[0].EntityID != "y" {
		t.Fatalf("filtered = %d events", len(filtered))
	}
}

func TestScope_CommitStampsPostingTimeInCommitOrder(t *testing.T) {
	ctx := context.Background()
	clock := &setClock{}
	st := NewStore(WithClock(clock))
	for _, id := range []string{"a1", "a2", "b1", "b2"} {
		openAccount(t, st, id, domain.AccountTypeAsset)
	}
	entries := NewEntryRepository(st)
	audit := NewAuditRepository(st)

	stage := func(entryID, debit, credit string) *Scope {
		s, _ := st.Begin(ctx)
		if err := s.LockAccounts(ctx, []string{debit, credit}); err != nil {
			t.Fatal(err)
		}
		e := postedEntry(entryID, debit, credit, "5.00")
		e.PostedAt = time.Time{}
		if err := entries.Create(ctx, s, e); err != nil {
			t.Fatal(err)
		}
		if err := audit.Stage(ctx, s, draft(t, entryID)); err != nil {
			t.Fatal(err)
		}
		return s.(*Scope)
	}

	clock.Set(testNow)
	slow := stage("ea", "a1", "a2")
	clock.Set(testNow.Add(time.Second))
	fast := stage("eb", "b1", "b2")

	clock.Set(testNow.Add(2 * time.Second))
	if err := fast.Commit(ctx); err != nil {
		t.Fatal(err)
	}

	asOf := testNow.Add(3 * time.Second)
	before, _ := entries.SumByAccount(ctx, "a1", asOf)

	clock.Set(testNow.Add(4 * time.Second))
	if err := slow.Commit(ctx); err != nil {
		t.Fatal(err)
	}

	after, _ := entries.SumByAccount(ctx, "a1", asOf)
	if !before["USD"].Equal(after["USD"]) {
		t.Fatalf("balance as of %s changed after a later commit: %s -> %s", asOf, before["USD"], after["USD"])
	}

	ea, _ := entries.GetByID(ctx, "ea")
	eb, _ := entries.GetByID(ctx, "eb")
	if !eb.PostedAt.Before(ea.PostedAt) {
		t.Fatalf("expected first commit to post first, got eb=%s ea=%s", eb.PostedAt, ea.PostedAt)
	}
	if !ea.PostedAt.Equal(testNow.Add(4 * time.Second)) {
		t.Fatalf("expected commit time stamp, got %s", ea.PostedAt)
	}

	events, _ := audit.Range(ctx, domain.AuditFilter{Limit: 10})
	if len(events) != 2 || events[0].EntityID != "eb" || events[1].EntityID != "ea" {
		t.Fatalf("expected audit order to follow commit order, got %+v", events)
	}
}

func TestScope_CommitTimeNeverGoesBackwards(t *testing.T) {
	ctx := context.Background()
	clock := &setClock{}
	st := NewStore(WithClock(clock))
	openAccount(t, st, "a", domain.AccountTypeAsset)
	openAccount(t, st, "b", domain.AccountTypeAsset)
	entries := NewEntryRepository(st)

	for i, at := range []time.Time{testNow, testNow.Add(-time.Hour)} {
		clock.Set(at)
		s, _ := st.Begin(ctx)
		_ = s.LockAccounts(ctx, []string{"a", "b"})
		if err := entries.Create(ctx, s, postedEntry(string(rune('p'+i)), "a", "b", "1.00")); err != nil {
			t.Fatal(err)
		}
		if err := s.Commit(ctx); err != nil {
			t.Fatal(err)
		}
	}

	p, _ := entries.GetByID(ctx, "p")
	q, _ := entries.GetByID(ctx, "q")
	if !q.PostedAt.After(p.PostedAt) {
		t.Fatalf("expected %s after %s", q.PostedAt, p.PostedAt)
	}
}
