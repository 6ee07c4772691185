// Package compliance holds clients for external compliance engines.
package compliance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/AlexShrike/nexum-sub002/internal/usecase"
)

const maxResponseBytes = 64 << 10

// HTTPChecker posts each request as JSON to an engine and reads back
// {"outcome": "allow|review|block", "reasons": [...]}.
type HTTPChecker struct {
	url    string
	client *http.Client
}

var _ usecase.ComplianceChecker = (*HTTPChecker)(nil)

// NewHTTPChecker creates a checker for url. A nil client uses one with a 10s timeout;
// the gate's own timeout is normally shorter.
func NewHTTPChecker(url string, client *http.Client) *HTTPChecker {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPChecker{url: url, client: client}
}

type checkResponse struct {
	Outcome usecase.ComplianceOutcome `json:"outcome"`
	Reasons []string                  `json:"reasons"`
}

// Check implements usecase.ComplianceChecker.
func (c *HTTPChecker) Check(ctx context.Context, req usecase.ComplianceRequest) (usecase.ComplianceDecision, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return usecase.ComplianceDecision{}, fmt.Errorf("encode compliance request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return usecase.ComplianceDecision{}, fmt.Errorf("build compliance request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Idempotency-Key", req.IdempotencyKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return usecase.ComplianceDecision{}, fmt.Errorf("call compliance engine: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return usecase.ComplianceDecision{}, fmt.Errorf("compliance engine returned %s", resp.Status)
	}

	var out checkResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&out); err != nil {
		return usecase.ComplianceDecision{}, fmt.Errorf("decode compliance response: %w", err)
	}

	return usecase.ComplianceDecision{Outcome: out.Outcome, Reasons: out.Reasons}, nil
}

// StaticChecker answers every request with the same outcome. Rules can flag specific
// transaction types for review or block.
type StaticChecker struct {
	Default usecase.ComplianceOutcome
	ByType  map[string]usecase.ComplianceOutcome
}

var _ usecase.ComplianceChecker = StaticChecker{}

// Check implements usecase.ComplianceChecker.
func (s StaticChecker) Check(_ context.Context, req usecase.ComplianceRequest) (usecase.ComplianceDecision, error) {
	if outcome, ok := s.ByType[string(req.Type)]; ok {
		return usecase.ComplianceDecision{Outcome: outcome, Reasons: []string{"rule for " + string(req.Type)}}, nil
	}
	outcome := s.Default
	if outcome == "" {
		outcome = usecase.ComplianceAllow
	}
	return usecase.ComplianceDecision{Outcome: outcome}, nil
}
