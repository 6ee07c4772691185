package postgres

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5"

	"github.com/AlexShrike/nexum-sub002/internal/domain"
	"github.com/AlexShrike/nexum-sub002/internal/infrastructure/postgres/generated"
	"github.com/AlexShrike/nexum-sub002/internal/usecase"
)

// AuditRepository stores the hash chain in audit_events. Rows are only ever inserted.
type AuditRepository struct {
	queries *generated.Queries
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db generated.DBTX) *AuditRepository {
	return &AuditRepository{queries: generated.New(db)}
}

// Stage queues draft on s; it is sealed and inserted when s commits.
func (r *AuditRepository) Stage(ctx context.Context, s usecase.Scope, draft domain.AuditDraft) error {
	tx, err := txOf(s)
	if err != nil {
		return err
	}
	tx.drafts = append(tx.drafts, draft)
	return nil
}

// Range returns sealed events in sequence order.
func (r *AuditRepository) Range(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditEvent, error) {
	from := filter.FromSeq
	if from < 1 {
		from = 1
	}
	limit := int32(math.MaxInt32)
	if filter.Limit > 0 {
		limit = int32(filter.Limit)
	}

	rows, err := r.queries.ListAuditEvents(ctx, generated.ListAuditEventsParams{
		FromSeq:  from,
		ToSeq:    filter.ToSeq,
		EntityID: filter.EntityID,
		Limit:    limit,
	})
	if err != nil {
		return nil, mapError("audit.range", err)
	}

	out := make([]domain.AuditEvent, 0, len(rows))
	for _, row := range rows {
		out = append(out, rowToAuditEvent(row))
	}
	return out, nil
}

// GetBySequence returns one sealed event.
func (r *AuditRepository) GetBySequence(ctx context.Context, seq int64) (*domain.AuditEvent, error) {
	row, err := r.queries.GetAuditEvent(ctx, seq)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewError(domain.KindNotFound, "audit.get", fmt.Errorf("audit event %d not found", seq))
		}
		return nil, mapError("audit.get", err)
	}
	ev := rowToAuditEvent(row)
	return &ev, nil
}

// Head returns the committed tip of the chain.
func (r *AuditRepository) Head(ctx context.Context) (domain.AuditChainHead, error) {
	row, err := r.queries.GetAuditHead(ctx)
	if err != nil {
		return domain.AuditChainHead{}, mapError("audit.head", err)
	}
	return domain.AuditChainHead{Sequence: row.Sequence, Hash: row.Hash}, nil
}
