package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures by how callers must react to them.
type ErrorKind string

const (
	KindUnknown                ErrorKind = "unknown"
	KindValidation             ErrorKind = "validation"
	KindNotFound               ErrorKind = "not_found"
	KindConcurrencyConflict    ErrorKind = "concurrency_conflict"
	KindStorageFailure         ErrorKind = "storage_failure"
	KindAuditAppendFailure     ErrorKind = "audit_append_failure"
	KindExternalServiceTimeout ErrorKind = "external_service_timeout"
	KindIntegrityViolation     ErrorKind = "integrity_violation"
)

// sentinel is a comparable error value that knows its kind.
type sentinel struct {
	kind ErrorKind
	msg  string
}

func (e *sentinel) Error() string        { return e.msg }
func (e *sentinel) errorKind() ErrorKind { return e.kind }

type kinded interface {
	error
	errorKind() ErrorKind
}

func newSentinel(kind ErrorKind, msg string) error {
	return &sentinel{kind: kind, msg: msg}
}

var (
	// Money errors
	ErrCurrencyMismatch = newSentinel(KindValidation, "currency mismatch")
	ErrInvalidCurrency  = newSentinel(KindValidation, "invalid currency code")
	ErrInvalidAmount    = newSentinel(KindValidation, "amount must be positive")
	ErrAmountPrecision  = newSentinel(KindValidation, "amount has more fractional digits than the currency allows")

	// Account errors
	ErrAccountNotFound      = newSentinel(KindNotFound, "account not found")
	ErrAccountNotActive     = newSentinel(KindValidation, "account is not active")
	ErrInvalidAccountType   = newSentinel(KindValidation, "invalid account type")
	ErrInvalidAccountName   = newSentinel(KindValidation, "invalid account name")
	ErrInsufficientFunds    = newSentinel(KindValidation, "insufficient available balance")
	ErrAccountAlreadyExists = newSentinel(KindValidation, "account already exists")
	ErrAccountHasBalance    = newSentinel(KindValidation, "account balance must be zero to close")

	// Entry errors
	ErrUnbalancedEntry      = newSentinel(KindValidation, "entry debits and credits do not balance")
	ErrTooFewLines          = newSentinel(KindValidation, "entry needs at least two lines")
	ErrInvalidDirection     = newSentinel(KindValidation, "invalid line direction")
	ErrEntryNotFound        = newSentinel(KindNotFound, "journal entry not found")
	ErrEntryNotPosted       = newSentinel(KindValidation, "journal entry is not posted")
	ErrEntryAlreadyReversed = newSentinel(KindValidation, "journal entry already reversed")
	ErrAccountNotLocked     = newSentinel(KindConcurrencyConflict, "account is not locked by the current scope")

	// Transaction errors
	ErrTransactionNotFound     = newSentinel(KindNotFound, "transaction not found")
	ErrInvalidTransition       = newSentinel(KindValidation, "invalid state transition")
	ErrInvalidTransactionType  = newSentinel(KindValidation, "invalid transaction type")
	ErrMissingIdempotencyKey   = newSentinel(KindValidation, "idempotency key is required")
	ErrTransactionInProgress   = newSentinel(KindConcurrencyConflict, "transaction with this idempotency key is in progress")
	ErrDuplicateIdempotencyKey = newSentinel(KindConcurrencyConflict, "idempotency key already claimed")
	ErrComplianceRejected      = newSentinel(KindValidation, "rejected by compliance check")
	ErrTransactionStale        = newSentinel(KindConcurrencyConflict, "transaction record changed concurrently")

	// Scope errors
	ErrScopeClosed   = newSentinel(KindStorageFailure, "storage scope already closed")
	ErrLockOrder     = newSentinel(KindConcurrencyConflict, "accounts must be locked in ascending order")
	ErrLockConflict  = newSentinel(KindConcurrencyConflict, "account lock conflict")
	ErrUnknownScope  = newSentinel(KindStorageFailure, "scope does not belong to this backend")
	ErrChainBroken   = newSentinel(KindIntegrityViolation, "audit chain verification failed")
	ErrInvalidRange  = newSentinel(KindValidation, "invalid sequence range")
	ErrLoanNotAccrue = newSentinel(KindValidation, "loan does not accrue interest in its current state")
)

// Error wraps an underlying failure with a kind and the operation that produced it.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

// NewError wraps err. A nil err yields nil.
func NewError(kind ErrorKind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error        { return e.Err }
func (e *Error) errorKind() ErrorKind { return e.Kind }

// KindOf reports the kind of the outermost classified error in err's chain.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var k kinded
	if errors.As(err, &k) {
		return k.errorKind()
	}
	return KindUnknown
}

// IsRetryable reports whether the whole business transaction may be retried.
func IsRetryable(err error) bool {
	return KindOf(err) == KindConcurrencyConflict
}

// IsValidation reports whether err was rejected before any write.
func IsValidation(err error) bool {
	k := KindOf(err)
	return k == KindValidation || k == KindNotFound
}
