package generated

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const getAuditHead = `-- name: GetAuditHead :one
SELECT id, sequence, hash, last_posted_at FROM audit_head WHERE id
`

func (q *Queries) GetAuditHead(ctx context.Context) (AuditHead, error) {
	row := q.db.QueryRow(ctx, getAuditHead)
	var i AuditHead
	err := row.Scan(&i.ID, &i.Sequence, &i.Hash, &i.LastPostedAt)
	return i, err
}

const lockAuditHead = `-- name: LockAuditHead :one
SELECT id, sequence, hash, last_posted_at FROM audit_head WHERE id FOR UPDATE
`

func (q *Queries) LockAuditHead(ctx context.Context) (AuditHead, error) {
	row := q.db.QueryRow(ctx, lockAuditHead)
	var i AuditHead
	err := row.Scan(&i.ID, &i.Sequence, &i.Hash, &i.LastPostedAt)
	return i, err
}

const updateAuditHead = `-- name: UpdateAuditHead :exec
UPDATE audit_head SET sequence = $1, hash = $2, last_posted_at = $3 WHERE id
`

type UpdateAuditHeadParams struct {
	Sequence     int64              `json:"sequence"`
	Hash         string             `json:"hash"`
	LastPostedAt pgtype.Timestamptz `json:"last_posted_at"`
}

func (q *Queries) UpdateAuditHead(ctx context.Context, arg UpdateAuditHeadParams) error {
	_, err := q.db.Exec(ctx, updateAuditHead, arg.Sequence, arg.Hash, arg.LastPostedAt)
	return err
}

const insertAuditEvent = `-- name: InsertAuditEvent :exec
INSERT INTO audit_events (sequence, occurred_at, actor, action, entity_type, entity_id, payload, payload_digest, previous_hash, hash)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`

type InsertAuditEventParams struct {
	Sequence      int64              `json:"sequence"`
	OccurredAt    pgtype.Timestamptz `json:"occurred_at"`
	Actor         string             `json:"actor"`
	Action        string             `json:"action"`
	EntityType    string             `json:"entity_type"`
	EntityID      string             `json:"entity_id"`
	Payload       []byte             `json:"payload"`
	PayloadDigest string             `json:"payload_digest"`
	PreviousHash  string             `json:"previous_hash"`
	Hash          string             `json:"hash"`
}

func (q *Queries) InsertAuditEvent(ctx context.Context, arg InsertAuditEventParams) error {
	_, err := q.db.Exec(ctx, insertAuditEvent,
		arg.Sequence,
		arg.OccurredAt,
		arg.Actor,
		arg.Action,
		arg.EntityType,
		arg.EntityID,
		arg.Payload,
		arg.PayloadDigest,
		arg.PreviousHash,
		arg.Hash,
	)
	return err
}

const getAuditEvent = `-- name: GetAuditEvent :one
SELECT sequence, occurred_at, actor, action, entity_type, entity_id, payload, payload_digest, previous_hash, hash FROM audit_events WHERE sequence = $1
`

func (q *Queries) GetAuditEvent(ctx context.Context, sequence int64) (AuditEvent, error) {
	return scanAuditEvent(q.db.QueryRow(ctx, getAuditEvent, sequence))
}

const listAuditEvents = `-- name: ListAuditEvents :many
SELECT sequence, occurred_at, actor, action, entity_type, entity_id, payload, payload_digest, previous_hash, hash FROM audit_events
WHERE sequence >= $1
  AND ($2::bigint = 0 OR sequence <= $2)
  AND ($3::text = '' OR entity_id = $3)
ORDER BY sequence
LIMIT $4
`

type ListAuditEventsParams struct {
	FromSeq  int64  `json:"from_seq"`
	ToSeq    int64  `json:"to_seq"`
	EntityID string `json:"entity_id"`
	Limit    int32  `json:"limit"`
}

func (q *Queries) ListAuditEvents(ctx context.Context, arg ListAuditEventsParams) ([]AuditEvent, error) {
	rows, err := q.db.Query(ctx, listAuditEvents, arg.FromSeq, arg.ToSeq, arg.EntityID, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []AuditEvent
	for rows.Next() {
		i, err := scanAuditEvent(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func scanAuditEvent(row interface{ Scan(dest ...any) error }) (AuditEvent, error) {
	var i AuditEvent
	err := row.Scan(
		&i.Sequence,
		&i.OccurredAt,
		&i.Actor,
		&i.Action,
		&i.EntityType,
		&i.EntityID,
		&i.Payload,
		&i.PayloadDigest,
		&i.PreviousHash,
		&i.Hash,
	)
	return i, err
}
