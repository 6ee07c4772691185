package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// TransactionType is the closed set of business transactions the processor understands.
type TransactionType string

const (
	TransactionTypeTransfer         TransactionType = "transfer"
	TransactionTypeJournal          TransactionType = "journal"
	TransactionTypeLoanDisbursement TransactionType = "loan_disbursement"
	TransactionTypeLoanRepayment    TransactionType = "loan_repayment"
	TransactionTypeInterestAccrual  TransactionType = "interest_accrual"
)

func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeTransfer, TransactionTypeJournal, TransactionTypeLoanDisbursement,
		TransactionTypeLoanRepayment, TransactionTypeInterestAccrual:
		return true
	}
	return false
}

// TransactionStatus is the processor state of a business transaction.
type TransactionStatus string

const (
	StatusCreated    TransactionStatus = "created"
	StatusValidating TransactionStatus = "validating"
	StatusRejected   TransactionStatus = "rejected"
	StatusPosting    TransactionStatus = "posting"
	StatusCompleted  TransactionStatus = "completed"
	StatusFailed     TransactionStatus = "failed"
	StatusReversed   TransactionStatus = "reversed"
)

var transactionTransitions = map[TransactionStatus][]TransactionStatus{
	StatusCreated:    {StatusValidating, StatusFailed},
	StatusValidating: {StatusRejected, StatusPosting, StatusFailed},
	StatusPosting:    {StatusCompleted, StatusFailed},
	StatusCompleted:  {StatusReversed},
	StatusFailed:     {StatusValidating},
}

// IsTerminal reports whether no further processing will happen without a new request.
func (s TransactionStatus) IsTerminal() bool {
	switch s {
	case StatusRejected, StatusCompleted, StatusFailed, StatusReversed:
		return true
	}
	return false
}

// Failure describes why a transaction was rejected or failed.
type Failure struct {
	Kind      ErrorKind `json:"kind"`
	Reason    string    `json:"reason"`
	Retryable bool      `json:"retryable"`
}

// FailureFrom classifies err. Storage and audit failures may be re-attempted with the same key.
func FailureFrom(err error) *Failure {
	if err == nil {
		return nil
	}
	kind := KindOf(err)
	retryable := false
	switch kind {
	case KindConcurrencyConflict, KindStorageFailure, KindAuditAppendFailure, KindUnknown:
		retryable = true
	}
	return &Failure{Kind: kind, Reason: err.Error(), Retryable: retryable}
}

// Transaction is the persisted record of one business transaction.
type Transaction struct {
	ID               string
	IdempotencyKey   string
	Type             TransactionType
	Status           TransactionStatus
	Actor            string
	EntryIDs         []string
	ReversalEntryIDs []string
	Metadata         map[string]any
	Failure          *Failure
	Attempts         int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// TransitionTo moves the record to next. It is the only way Status changes.
func (t *Transaction) TransitionTo(next TransactionStatus, at time.Time) error {
	allowed := false
	for _, s := range transactionTransitions[t.Status] {
		if s == next {
			allowed = true
			break
		}
	}
	if allowed && t.Status == StatusFailed && (t.Failure == nil || !t.Failure.Retryable) {
		allowed = false
	}
	if !allowed {
		return fmt.Errorf("%w: transaction %s from %s to %s", ErrInvalidTransition, t.ID, t.Status, next)
	}

	if next == StatusValidating {
		t.Attempts++
		t.Failure = nil
	}
	t.Status = next
	t.UpdatedAt = at
	return nil
}

// Fail moves the record to failed or rejected and records why.
func (t *Transaction) Fail(next TransactionStatus, cause error, at time.Time) error {
	if next != StatusFailed && next != StatusRejected {
		return fmt.Errorf("%w: %s is not a failure status", ErrInvalidTransition, next)
	}
	if err := t.TransitionTo(next, at); err != nil {
		return err
	}
	t.Failure = FailureFrom(cause)
	if next == StatusRejected {
		t.Failure.Retryable = false
	}
	return nil
}

// SetMetadata records a processor-owned key. The value is stored in its JSON form.
func (t *Transaction) SetMetadata(key string, value any) {
	if t.Metadata == nil {
		t.Metadata = make(map[string]any)
	}
	t.Metadata[key] = normalizeMetadataValue(value)
}

// NormalizeMetadata returns a deep copy of m holding the values a JSON round trip yields:
// numbers become float64, slices []any and objects map[string]any. Results read back from
// any store or cache then compare equal to the ones returned when they were produced.
func NormalizeMetadata(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalizeMetadataValue(v)
	}
	return out
}

func normalizeMetadataValue(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}

// Clone returns a deep copy of the slices and metadata map.
func (t *Transaction) Clone() *Transaction {
	if t == nil {
		return nil
	}
	cp := *t
	cp.EntryIDs = append([]string(nil), t.EntryIDs...)
	cp.ReversalEntryIDs = append([]string(nil), t.ReversalEntryIDs...)
	if t.Metadata != nil {
		cp.Metadata = make(map[string]any, len(t.Metadata))
		for k, v := range t.Metadata {
			cp.Metadata[k] = v
		}
	}
	if t.Failure != nil {
		f := *t.Failure
		cp.Failure = &f
	}
	return &cp
}

// TransactionResult is what submit returns, both on first processing and on replay.
type TransactionResult struct {
	ID              string            `json:"id"`
	IdempotencyKey  string            `json:"idempotency_key"`
	Type            TransactionType   `json:"type"`
	Status          TransactionStatus `json:"status"`
	PostedEntries   []string          `json:"posted_entries"`
	ReversalEntries []string          `json:"reversal_entries,omitempty"`
	Metadata        map[string]any    `json:"metadata,omitempty"`
	Failure         *Failure          `json:"failure,omitempty"`
	Replayed        bool              `json:"replayed"`
}

// Result projects the record into a TransactionResult.
func (t *Transaction) Result() *TransactionResult {
	c := t.Clone()
	entries := c.EntryIDs
	if entries == nil {
		entries = []string{}
	}
	return &TransactionResult{
		ID:              c.ID,
		IdempotencyKey:  c.IdempotencyKey,
		Type:            c.Type,
		Status:          c.Status,
		PostedEntries:   entries,
		ReversalEntries: c.ReversalEntryIDs,
		Metadata:        c.Metadata,
		Failure:         c.Failure,
	}
}

// Clone returns a copy that shares nothing with r.
func (r *TransactionResult) Clone() *TransactionResult {
	if r == nil {
		return nil
	}
	cp := *r
	cp.PostedEntries = append([]string{}, r.PostedEntries...)
	if r.ReversalEntries != nil {
		cp.ReversalEntries = append([]string(nil), r.ReversalEntries...)
	}
	if r.Metadata != nil {
		cp.Metadata = make(map[string]any, len(r.Metadata))
		for k, v := range r.Metadata {
			cp.Metadata[k] = v
		}
	}
	if r.Failure != nil {
		f := *r.Failure
		cp.Failure = &f
	}
	return &cp
}
