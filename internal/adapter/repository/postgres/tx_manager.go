// Package postgres is the pgx storage backend. A scope is one database transaction;
// account locks are row locks and audit drafts are sealed under the audit_head row lock
// just before the transaction commits.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/AlexShrike/nexum-sub002/internal/domain"
	"github.com/AlexShrike/nexum-sub002/internal/infrastructure/postgres/generated"
	"github.com/AlexShrike/nexum-sub002/internal/usecase"
)

type pgxPool interface {
	Begin(context.Context) (pgx.Tx, error)
}

// TxManager implements usecase.ScopeManager.
type TxManager struct {
	pool    pgxPool
	retrier *Retrier
	now     func() time.Time
}

// NewTxManager creates a new TxManager.
func NewTxManager(pool *pgxpool.Pool, logger zerolog.Logger) *TxManager {
	return newTxManagerWithPool(pool, NewRetrier(DefaultRetryPolicy, logger))
}

func newTxManagerWithPool(pool pgxPool, retrier *Retrier) *TxManager {
	if retrier == nil {
		retrier = NewRetrier(DefaultRetryPolicy, zerolog.Nop())
	}
	return &TxManager{pool: pool, retrier: retrier, now: time.Now}
}

// Begin starts a new transaction.
func (m *TxManager) Begin(ctx context.Context) (usecase.Scope, error) {
	var tx pgx.Tx
	err := m.retrier.Retry(ctx, "begin", func() error {
		var err error
		tx, err = m.pool.Begin(ctx)
		return err
	})
	if err != nil {
		return nil, mapError("begin", err)
	}

	return &Tx{tx: tx, queries: generated.New(tx), held: make(map[string]bool), now: m.now}, nil
}

// Tx wraps a pgx transaction. It is not safe for concurrent use.
type Tx struct {
	tx      pgx.Tx
	queries *generated.Queries
	held    map[string]bool
	maxHeld string
	drafts  []domain.AuditDraft
	entries []string
	now     func() time.Time
	closed  bool
}

func txOf(s usecase.Scope) (*Tx, error) {
	t, ok := s.(*Tx)
	if !ok || t == nil {
		return nil, domain.ErrUnknownScope
	}
	if t.closed {
		return nil, domain.ErrScopeClosed
	}
	return t, nil
}

// LockAccounts takes FOR UPDATE row locks in ascending id order. Locks already held are
// skipped; asking for an id below the highest lock held fails with ErrLockOrder.
func (t *Tx) LockAccounts(ctx context.Context, ids []string) error {
	if t.closed {
		return domain.ErrScopeClosed
	}

	var want []string
	for _, id := range sortedUnique(ids) {
		if t.held[id] {
			continue
		}
		if t.maxHeld != "" && id < t.maxHeld {
			return fmt.Errorf("%w: %s after %s", domain.ErrLockOrder, id, t.maxHeld)
		}
		want = append(want, id)
	}
	if len(want) == 0 {
		return nil
	}

	if _, err := t.queries.LockAccounts(ctx, want); err != nil {
		if ctx.Err() != nil {
			return domain.NewError(domain.KindConcurrencyConflict, "lock_accounts", ctx.Err())
		}
		return mapError("lock_accounts", err)
	}

	for _, id := range want {
		t.held[id] = true
	}
	t.maxHeld = want[len(want)-1]
	return nil
}

func (t *Tx) locked(ids []string) error {
	for _, id := range ids {
		if !t.held[id] {
			return fmt.Errorf("%w: %s", domain.ErrAccountNotLocked, id)
		}
	}
	return nil
}

// Commit seals staged audit drafts onto the chain head, stamps staged entries with the
// commit time and commits.
func (t *Tx) Commit(ctx context.Context) error {
	if t.closed {
		return domain.ErrScopeClosed
	}
	t.closed = true

	if err := t.seal(ctx); err != nil {
		_ = t.tx.Rollback(ctx)
		return err
	}

	if err := t.tx.Commit(ctx); err != nil {
		return mapError("commit", err)
	}
	return nil
}

// Rollback rolls back the transaction. Rolling back a closed scope is a no-op.
func (t *Tx) Rollback(ctx context.Context) error {
	if t.closed {
		return nil
	}
	t.closed = true

	if err := t.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return mapError("rollback", err)
	}
	return nil
}

// PgxTx returns the underlying pgx.Tx.
func (t *Tx) PgxTx() pgx.Tx {
	return t.tx
}

// seal runs under the audit_head row lock, so commit times and audit sequence numbers
// are assigned in the same order.
func (t *Tx) seal(ctx context.Context) error {
	if len(t.drafts) == 0 && len(t.entries) == 0 {
		return nil
	}

	row, err := t.queries.LockAuditHead(ctx)
	if err != nil {
		return auditError(err)
	}

	events, head, err := domain.AuditChainHead{Sequence: row.Sequence, Hash: row.Hash}.Seal(t.drafts)
	if err != nil {
		return err
	}

	lastPosted := row.LastPostedAt
	if len(t.entries) > 0 {
		postedAt := t.commitTime(row.LastPostedAt)
		lastPosted = timeToPgTimestamptz(postedAt)
		err := t.queries.StampJournalEntriesPosted(ctx, generated.StampJournalEntriesPostedParams{Ids: t.entries, PostedAt: lastPosted})
		if err != nil {
			return mapError("entry.stamp", err)
		}
		err = t.queries.StampJournalLinesPosted(ctx, generated.StampJournalLinesPostedParams{EntryIds: t.entries, PostedAt: lastPosted})
		if err != nil {
			return mapError("entry.stamp_lines", err)
		}
	}

	for _, ev := range events {
		err := t.queries.InsertAuditEvent(ctx, generated.InsertAuditEventParams{
			Sequence:      ev.Sequence,
			OccurredAt:    timeToPgTimestamptz(ev.Timestamp),
			Actor:         ev.Actor,
			Action:        string(ev.Action),
			EntityType:    ev.EntityType,
			EntityID:      ev.EntityID,
			Payload:       ev.Payload,
			PayloadDigest: ev.PayloadDigest,
			PreviousHash:  ev.PreviousHash,
			Hash:          ev.Hash,
		})
		if err != nil {
			return auditError(err)
		}
	}

	err = t.queries.UpdateAuditHead(ctx, generated.UpdateAuditHeadParams{
		Sequence:     head.Sequence,
		Hash:         head.Hash,
		LastPostedAt: lastPosted,
	})
	if err != nil {
		return auditError(err)
	}
	return nil
}

// commitTime is the current time at microsecond precision, kept strictly after the
// previous commit's.
func (t *Tx) commitTime(last pgtype.Timestamptz) time.Time {
	now := t.now().UTC().Truncate(time.Microsecond)
	if last.Valid && !now.After(last.Time) {
		now = last.Time.UTC().Add(time.Microsecond)
	}
	return now
}

func auditError(err error) error {
	if isConflict(err) {
		return domain.NewError(domain.KindConcurrencyConflict, "audit.seal", err)
	}
	return domain.NewError(domain.KindAuditAppendFailure, "audit.seal", err)
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

var (
	_ usecase.ScopeManager          = (*TxManager)(nil)
	_ usecase.Scope                 = (*Tx)(nil)
	_ usecase.AccountRepository     = (*AccountRepository)(nil)
	_ usecase.EntryRepository       = (*EntryRepository)(nil)
	_ usecase.TransactionRepository = (*TransactionRepository)(nil)
	_ usecase.AuditRepository       = (*AuditRepository)(nil)
)
