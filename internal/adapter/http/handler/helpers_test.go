package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/AlexShrike/nexum-sub002/internal/adapter/http/dto"
	"github.com/AlexShrike/nexum-sub002/internal/domain"
	"github.com/AlexShrike/nexum-sub002/internal/lending"
)

func TestParseIntQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/accounts?limit=50", nil)
	if got := parseIntQuery(req, "limit", 10); got != 50 {
		t.Fatalf("expected limit=50, got %d", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/accounts?limit=invalid", nil)
	if got := parseIntQuery(req, "limit", 10); got != 10 {
		t.Fatalf("expected fallback to default, got %d", got)
	}

	req.URL = &url.URL{RawQuery: ""}
	if got := parseIntQuery(req, "limit", 25); got != 25 {
		t.Fatalf("expected default when missing, got %d", got)
	}
}

func TestParseTimeQuery(t *testing.T) {
	fallback := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		query   string
		want    time.Time
		wantErr bool
	}{
		{"", fallback, false},
		{"as_of=2024-02-03T04:05:06Z", time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC), false},
		{"as_of=2024-02-03", time.Date(2024, 2, 3, 23, 59, 59, 999999999, time.UTC), false},
		{"as_of=03/02/2024", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/x?"+tt.query, nil)
			got, err := parseTimeQuery(req, "as_of", fallback)
			if tt.wantErr {
				if domain.KindOf(err) != domain.KindValidation {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestMapDomainError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"account not found", domain.ErrAccountNotFound, http.StatusNotFound},
		{"transaction not found", fmt.Errorf("load: %w", domain.ErrTransactionNotFound), http.StatusNotFound},
		{"insufficient funds", domain.ErrInsufficientFunds, http.StatusBadRequest},
		{"invalid amount", domain.ErrInvalidAmount, http.StatusBadRequest},
		{"currency mismatch", domain.ErrCurrencyMismatch, http.StatusBadRequest},
		{"duplicate account", domain.ErrAccountAlreadyExists, http.StatusConflict},
		{"already reversed", domain.ErrEntryAlreadyReversed, http.StatusConflict},
		{"invalid transition", domain.ErrInvalidTransition, http.StatusConflict},
		{"in progress", domain.ErrTransactionInProgress, http.StatusConflict},
		{"compliance timeout", domain.NewError(domain.KindExternalServiceTimeout, "check", errors.New("slow")), http.StatusGatewayTimeout},
		{"scope closed", domain.ErrScopeClosed, http.StatusServiceUnavailable},
		{"audit append", domain.NewError(domain.KindAuditAppendFailure, "seal", errors.New("x")), http.StatusServiceUnavailable},
		{"bad schedule", lending.ErrInvalidSchedule, http.StatusBadRequest},
		{"chain broken", domain.ErrChainBroken, http.StatusInternalServerError},
		{"unknown error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mapDomainError(tt.err); got != tt.expected {
				t.Fatalf("expected %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestWriteJSON(t *testing.T) {
	rr := httptest.NewRecorder()
	payload := map[string]string{"status": "ok"}

	writeJSON(rr, http.StatusCreated, payload)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", rr.Code)
	}

	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected content-type application/json, got %s", ct)
	}

	var decoded map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if decoded["status"] != "ok" {
		t.Fatalf("expected payload to round-trip, got %+v", decoded)
	}
}

func TestWriteDomainError(t *testing.T) {
	rr := httptest.NewRecorder()

	writeDomainError(rr, httptest.NewRequest(http.MethodGet, "/", nil), "failed to get account", domain.ErrAccountNotFound)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}

	var resp dto.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}

	if resp.Error != "failed to get account" || resp.Kind != "not_found" || resp.Message != "account not found" {
		t.Fatalf("unexpected error response %+v", resp)
	}
}
