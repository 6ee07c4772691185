package memory

import (
	"context"
	"fmt"

	"github.com/AlexShrike/nexum-sub002/internal/domain"
	"github.com/AlexShrike/nexum-sub002/internal/usecase"
)

// AuditRepository implements usecase.AuditRepository.
type AuditRepository struct {
	store *Store
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(store *Store) *AuditRepository {
	return &AuditRepository{store: store}
}

// Stage queues a draft; the scope seals it at commit.
func (r *AuditRepository) Stage(ctx context.Context, s usecase.Scope, draft domain.AuditDraft) error {
	ms, err := scopeOf(s)
	if err != nil {
		return err
	}
	ms.drafts = append(ms.drafts, draft)
	return nil
}

// Range returns sealed events in sequence order.
func (r *AuditRepository) Range(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditEvent, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	start := filter.FromSeq
	if start < 1 {
		start = 1
	}

	out := make([]domain.AuditEvent, 0)
	for i := start - 1; i < int64(len(r.store.audit)); i++ {
		e := r.store.audit[i]
		if filter.ToSeq > 0 && e.Sequence > filter.ToSeq {
			break
		}
		if filter.EntityID != "" && e.EntityID != filter.EntityID {
			continue
		}
		out = append(out, e)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

// GetBySequence returns one sealed event.
func (r *AuditRepository) GetBySequence(ctx context.Context, seq int64) (*domain.AuditEvent, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	if seq < 1 || seq > int64(len(r.store.audit)) {
		return nil, domain.NewError(domain.KindNotFound, "audit.get", fmt.Errorf("no audit event with sequence %d", seq))
	}
	e := r.store.audit[seq-1]
	return &e, nil
}

// Head returns the sequence and hash of the last sealed event.
func (r *AuditRepository) Head(ctx context.Context) (domain.AuditChainHead, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return r.store.head, nil
}

// Tamper overwrites a sealed event in place. It exists so tests can prove verification
// detects edits.
func (r *AuditRepository) Tamper(seq int64, fn func(*domain.AuditEvent)) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	fn(&r.store.audit[seq-1])
}
