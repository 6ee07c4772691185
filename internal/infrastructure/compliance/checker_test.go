package compliance_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlexShrike/nexum-sub002/internal/domain"
	"github.com/AlexShrike/nexum-sub002/internal/infrastructure/compliance"
	"github.com/AlexShrike/nexum-sub002/internal/usecase"
)

func TestHTTPChecker_Decisions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "key-1", r.Header.Get("Idempotency-Key"))

		var req usecase.ComplianceRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		outcome := "allow"
		if req.Type == domain.TransactionTypeLoanDisbursement {
			outcome = "block"
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"outcome": outcome, "reasons": []string{"rule-" + outcome}})
	}))
	defer srv.Close()

	checker := compliance.NewHTTPChecker(srv.URL, srv.Client())

	dec, err := checker.Check(context.Background(), usecase.ComplianceRequest{IdempotencyKey: "key-1", Type: domain.TransactionTypeTransfer})
	require.NoError(t, err)
	assert.Equal(t, usecase.ComplianceAllow, dec.Outcome)
	assert.Equal(t, []string{"rule-allow"}, dec.Reasons)

	dec, err = checker.Check(context.Background(), usecase.ComplianceRequest{IdempotencyKey: "key-1", Type: domain.TransactionTypeLoanDisbursement})
	require.NoError(t, err)
	assert.Equal(t, usecase.ComplianceBlock, dec.Outcome)
}

func TestHTTPChecker_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}},
		{"malformed body", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("{"))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := compliance.NewHTTPChecker(srv.URL, srv.Client()).Check(context.Background(), usecase.ComplianceRequest{})
			assert.Error(t, err)
		})
	}
}

func TestHTTPChecker_HonorsContext(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := compliance.NewHTTPChecker(srv.URL, nil).Check(ctx, usecase.ComplianceRequest{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStaticChecker(t *testing.T) {
	checker := compliance.StaticChecker{
		ByType: map[string]usecase.ComplianceOutcome{"loan_disbursement": usecase.ComplianceReview},
	}

	dec, err := checker.Check(context.Background(), usecase.ComplianceRequest{Type: domain.TransactionTypeTransfer})
	require.NoError(t, err)
	assert.Equal(t, usecase.ComplianceAllow, dec.Outcome)

	dec, err = checker.Check(context.Background(), usecase.ComplianceRequest{Type: domain.TransactionTypeLoanDisbursement})
	require.NoError(t, err)
	assert.Equal(t, usecase.ComplianceReview, dec.Outcome)
	assert.NotEmpty(t, dec.Reasons)
}
