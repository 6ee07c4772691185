package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// GenesisHash is the previous hash of the first audit event.
const GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// AuditAction names a state-changing action.
type AuditAction string

const (
	AuditActionAccountOpened   AuditAction = "account.opened"
	AuditActionAccountFrozen   AuditAction = "account.frozen"
	AuditActionAccountActivate AuditAction = "account.activated"
	AuditActionAccountClosed   AuditAction = "account.closed"

	AuditActionEntryPosted   AuditAction = "entry.posted"
	AuditActionEntryReversed AuditAction = "entry.reversed"

	AuditActionTransactionCreated   AuditAction = "transaction.created"
	AuditActionTransactionRejected  AuditAction = "transaction.rejected"
	AuditActionTransactionCompleted AuditAction = "transaction.completed"
	AuditActionTransactionFailed    AuditAction = "transaction.failed"
	AuditActionTransactionReversed  AuditAction = "transaction.reversed"
	AuditActionComplianceFallback   AuditAction = "compliance.fallback"
)

// Entity types referenced by audit events.
const (
	EntityAccount     = "account"
	EntityEntry       = "journal_entry"
	EntityTransaction = "transaction"
)

// AuditDraft is an event staged in a scope before the chain assigns its sequence and hash.
type AuditDraft struct {
	Timestamp  time.Time
	Actor      string
	Action     AuditAction
	EntityType string
	EntityID   string
	Payload    json.RawMessage
}

// NewAuditDraft canonicalizes payload and fills the digest-relevant fields.
func NewAuditDraft(at time.Time, actor string, action AuditAction, entityType, entityID string, payload any) (AuditDraft, error) {
	raw, err := CanonicalPayload(payload)
	if err != nil {
		return AuditDraft{}, err
	}
	if actor == "" {
		actor = "system"
	}
	return AuditDraft{
		Timestamp:  at.UTC(),
		Actor:      actor,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Payload:    raw,
	}, nil
}

// CanonicalPayload encodes v as JSON with sorted map keys. A nil payload becomes "{}".
func CanonicalPayload(v any) (json.RawMessage, error) {
	if v == nil {
		return json.RawMessage("{}"), nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode audit payload: %w", err)
	}
	// Round trip through a generic value so struct and map payloads share one key order.
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("decode audit payload: %w", err)
	}
	data, err = json.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("encode audit payload: %w", err)
	}
	return data, nil
}

// AuditEvent is a sealed link of the hash chain. It is never mutated or deleted.
type AuditEvent struct {
	Sequence      int64           `json:"sequence"`
	Timestamp     time.Time       `json:"timestamp"`
	Actor         string          `json:"actor"`
	Action        AuditAction     `json:"action"`
	EntityType    string          `json:"entity_type"`
	EntityID      string          `json:"entity_id"`
	Payload       json.RawMessage `json:"payload"`
	PayloadDigest string          `json:"payload_digest"`
	PreviousHash  string          `json:"previous_hash"`
	Hash          string          `json:"hash"`
}

// PayloadDigest returns the hex sha256 of a payload.
func PayloadDigest(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// ComputeHash derives the event hash from the previous hash and the serialized fields.
func (e *AuditEvent) ComputeHash() string {
	fields := strings.Join([]string{
		strconv.FormatInt(e.Sequence, 10),
		e.Timestamp.UTC().Format(time.RFC3339Nano),
		e.Actor,
		string(e.Action),
		e.EntityType,
		e.EntityID,
		e.PayloadDigest,
	}, "|")

	h := sha256.New()
	h.Write([]byte(e.PreviousHash))
	h.Write([]byte(fields))
	return hex.EncodeToString(h.Sum(nil))
}

// AuditChainHead is the tip of the chain a backend seals new events onto.
type AuditChainHead struct {
	Sequence int64
	Hash     string
}

// GenesisHead is the head of an empty chain.
func GenesisHead() AuditChainHead {
	return AuditChainHead{Sequence: 0, Hash: GenesisHash}
}

// Seal assigns sequence numbers and hashes to drafts in order and returns the new head.
// Callers must hold the chain's write serialization point. Timestamps are truncated to
// microseconds so they survive a round trip through SQL timestamp columns.
func (h AuditChainHead) Seal(drafts []AuditDraft) ([]AuditEvent, AuditChainHead, error) {
	if h.Hash == "" {
		h = GenesisHead()
	}
	events := make([]AuditEvent, 0, len(drafts))
	head := h
	for _, d := range drafts {
		if d.Action == "" || d.EntityID == "" {
			return nil, h, NewError(KindAuditAppendFailure, "seal", fmt.Errorf("incomplete audit draft %+v", d))
		}
		payload := d.Payload
		if len(payload) == 0 {
			payload = json.RawMessage("{}")
		}
		ev := AuditEvent{
			Sequence:      head.Sequence + 1,
			Timestamp:     d.Timestamp.UTC().Truncate(time.Microsecond),
			Actor:         d.Actor,
			Action:        d.Action,
			EntityType:    d.EntityType,
			EntityID:      d.EntityID,
			Payload:       append(json.RawMessage(nil), payload...),
			PayloadDigest: PayloadDigest(payload),
			PreviousHash:  head.Hash,
		}
		ev.Hash = ev.ComputeHash()
		events = append(events, ev)
		head = AuditChainHead{Sequence: ev.Sequence, Hash: ev.Hash}
	}
	return events, head, nil
}

// VerificationResult reports the outcome of recomputing a chain range.
type VerificationResult struct {
	Valid         bool   `json:"valid"`
	EventsChecked int    `json:"events_checked"`
	FirstBreak    *int64 `json:"first_break,omitempty"`
	Reason        string `json:"reason,omitempty"`
}

// VerifyChain recomputes events in order. anchor is the event just before events[0], or nil
// when events start at sequence 1.
func VerifyChain(anchor *AuditEvent, events []AuditEvent) VerificationResult {
	expectedPrev := GenesisHash
	expectedSeq := int64(1)
	if anchor != nil {
		expectedPrev = anchor.Hash
		expectedSeq = anchor.Sequence + 1
	} else if len(events) > 0 && events[0].Sequence != 1 {
		// Without an anchor the first link can only be checked internally.
		expectedPrev = events[0].PreviousHash
		expectedSeq = events[0].Sequence
	}

	res := VerificationResult{Valid: true}
	for i := range events {
		ev := &events[i]
		res.EventsChecked++

		reason := ""
		switch {
		case ev.Sequence != expectedSeq:
			reason = fmt.Sprintf("expected sequence %d", expectedSeq)
		case PayloadDigest(ev.Payload) != ev.PayloadDigest:
			reason = "payload digest mismatch"
		case ev.PreviousHash != expectedPrev:
			reason = "previous hash does not link"
		case ev.ComputeHash() != ev.Hash:
			reason = "hash mismatch"
		}
		if reason != "" {
			seq := ev.Sequence
			res.Valid = false
			res.FirstBreak = &seq
			res.Reason = reason
			return res
		}

		expectedPrev = ev.Hash
		expectedSeq = ev.Sequence + 1
	}
	return res
}

// AuditFilter selects a range of the chain.
type AuditFilter struct {
	EntityID string
	FromSeq  int64
	ToSeq    int64
	Limit    int
}
