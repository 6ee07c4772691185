package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/AlexShrike/nexum-sub002/internal/adapter/http/dto"
	"github.com/AlexShrike/nexum-sub002/internal/domain"
	"github.com/AlexShrike/nexum-sub002/internal/usecase"
)

// EntryService defines the behavior needed by EntryHandler.
type EntryService interface {
	ListByAccount(ctx context.Context, q usecase.AccountEntriesQuery) ([]*domain.JournalEntry, error)
	ListByTransaction(ctx context.Context, transactionID string) ([]*domain.JournalEntry, error)
	Statement(ctx context.Context, q usecase.StatementQuery) (*usecase.Statement, error)
}

// EntryHandler handles journal entry queries.
type EntryHandler struct {
	entryUC EntryService
}

// NewEntryHandler creates a new EntryHandler.
func NewEntryHandler(entryUC EntryService) *EntryHandler {
	return &EntryHandler{entryUC: entryUC}
}

// ListByAccount lists entries touching an account, newest first.
func (h *EntryHandler) ListByAccount(w http.ResponseWriter, r *http.Request) {
	entries, err := h.entryUC.ListByAccount(r.Context(), usecase.AccountEntriesQuery{
		AccountID: chi.URLParam(r, "id"),
		Limit:     parseIntQuery(r, "limit", 50),
		Offset:    parseIntQuery(r, "offset", 0),
	})
	if err != nil {
		writeDomainError(w, r, "failed to list entries", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"entries": dto.EntriesFromDomain(entries)})
}

// ListByTransaction lists entries a transaction posted, reversals included.
func (h *EntryHandler) ListByTransaction(w http.ResponseWriter, r *http.Request) {
	entries, err := h.entryUC.ListByTransaction(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, "failed to list entries", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"entries": dto.EntriesFromDomain(entries)})
}

// Statement returns an account's postings in a window with running balances.
func (h *EntryHandler) Statement(w http.ResponseWriter, r *http.Request) {
	from, err := parseTimeQuery(r, "from", time.Time{})
	if err != nil {
		writeDomainError(w, r, "invalid from", err)
		return
	}
	to, err := parseTimeQuery(r, "to", time.Time{})
	if err != nil {
		writeDomainError(w, r, "invalid to", err)
		return
	}

	st, err := h.entryUC.Statement(r.Context(), usecase.StatementQuery{
		AccountID: chi.URLParam(r, "id"),
		Currency:  domain.Currency(r.URL.Query().Get("currency")),
		From:      from,
		To:        to,
	})
	if err != nil {
		writeDomainError(w, r, "failed to build statement", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.StatementFromUseCase(st))
}
