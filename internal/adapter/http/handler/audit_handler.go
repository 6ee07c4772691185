package handler

import (
	"context"
	"net/http"

	"github.com/AlexShrike/nexum-sub002/internal/adapter/http/dto"
	"github.com/AlexShrike/nexum-sub002/internal/domain"
	"github.com/AlexShrike/nexum-sub002/internal/usecase"
)

// AuditService reads and verifies the audit chain.
type AuditService interface {
	Range(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditEvent, error)
	Verify(ctx context.Context, fromSeq, toSeq int64) (domain.VerificationResult, error)
}

// ReconciliationService checks ledger totals and chain health together.
type ReconciliationService interface {
	GenerateReconciliationReport(ctx context.Context) (*usecase.ReconciliationReport, error)
}

// AuditHandler serves the audit chain and reconciliation reports.
type AuditHandler struct {
	audit     AuditService
	reconcile ReconciliationService
}

// NewAuditHandler creates a new AuditHandler.
func NewAuditHandler(audit AuditService, reconcile ReconciliationService) *AuditHandler {
	return &AuditHandler{audit: audit, reconcile: reconcile}
}

// List returns audit events filtered by entity_id, from_seq, to_seq and limit.
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	events, err := h.audit.Range(r.Context(), domain.AuditFilter{
		EntityID: r.URL.Query().Get("entity_id"),
		FromSeq:  parseInt64Query(r, "from_seq", 1),
		ToSeq:    parseInt64Query(r, "to_seq", 0),
		Limit:    parseIntQuery(r, "limit", 100),
	})
	if err != nil {
		writeDomainError(w, r, "failed to read audit events", err)
		return
	}
	if events == nil {
		events = []domain.AuditEvent{}
	}

	writeJSON(w, http.StatusOK, dto.AuditEventsResponse{Events: events})
}

// Verify recomputes the chain over from_seq..to_seq. A broken chain answers 409 with the
// verification result as the body.
func (h *AuditHandler) Verify(w http.ResponseWriter, r *http.Request) {
	res, err := h.audit.Verify(r.Context(), parseInt64Query(r, "from_seq", 1), parseInt64Query(r, "to_seq", 0))
	if err != nil {
		writeDomainError(w, r, "failed to verify audit chain", err)
		return
	}

	status := http.StatusOK
	if !res.Valid {
		status = http.StatusConflict
	}
	writeJSON(w, status, res)
}

// Reconcile runs a full reconciliation.
func (h *AuditHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	report, err := h.reconcile.GenerateReconciliationReport(r.Context())
	if err != nil {
		writeDomainError(w, r, "reconciliation failed", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ReconciliationResponse{OK: report.OK(), Report: report})
}
