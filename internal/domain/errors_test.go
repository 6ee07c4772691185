package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, ""},
		{"sentinel", ErrUnbalancedEntry, KindValidation},
		{"wrapped sentinel", fmt.Errorf("post: %w", ErrAccountNotFound), KindNotFound},
		{"kinded wrapper", NewError(KindStorageFailure, "commit", errors.New("io")), KindStorageFailure},
		{"outermost wins", NewError(KindAuditAppendFailure, "seal", ErrInvalidAmount), KindAuditAppendFailure},
		{"plain", errors.New("boom"), KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewError(t *testing.T) {
	if NewError(KindStorageFailure, "op", nil) != nil {
		t.Fatal("nil cause must produce nil error")
	}

	cause := errors.New("connection reset")
	err := NewError(KindStorageFailure, "begin", cause)
	if !errors.Is(err, cause) {
		t.Fatal("wrapper must unwrap to its cause")
	}
	if err.Error() != "begin: storage_failure: connection reset" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(ErrLockOrder) {
		t.Error("lock order conflicts are retryable")
	}
	if IsRetryable(ErrUnbalancedEntry) {
		t.Error("validation failures are never retried")
	}
	if !IsValidation(ErrTransactionNotFound) {
		t.Error("not found is reported like a validation failure")
	}
}
