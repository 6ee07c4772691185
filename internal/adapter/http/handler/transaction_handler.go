package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/AlexShrike/nexum-sub002/internal/adapter/http/dto"
	"github.com/AlexShrike/nexum-sub002/internal/domain"
	"github.com/AlexShrike/nexum-sub002/internal/usecase"
)

// TransactionService defines the behavior needed by TransactionHandler.
type TransactionService interface {
	Submit(ctx context.Context, req usecase.SubmitRequest) (*domain.TransactionResult, error)
	Get(ctx context.Context, id string) (*domain.TransactionResult, error)
	Reverse(ctx context.Context, id, actor string) (*domain.TransactionResult, error)
}

// TransactionHandler handles business transaction requests.
type TransactionHandler struct {
	processor TransactionService
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(processor TransactionService) *TransactionHandler {
	return &TransactionHandler{processor: processor}
}

// Submit processes a business transaction. A replay answers 200 with the stored result,
// a first completion 201, a rejection 422 and a failure 503; the body is the result in
// every case.
func (h *TransactionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req dto.SubmitTransactionRequest
	if err := decodeBodyWithKey(w, r, &req); err != nil {
		writeDomainError(w, r, "invalid request body", err)
		return
	}

	submit, err := req.ToSubmitRequest(actorFrom(r, ""))
	if err != nil {
		writeDomainError(w, r, "invalid request body", err)
		return
	}

	res, err := h.processor.Submit(r.Context(), submit)
	if err != nil {
		writeDomainError(w, r, "failed to submit transaction", err)
		return
	}

	writeJSON(w, resultStatus(res), res)
}

// Get returns the stored result of a transaction.
func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	res, err := h.processor.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, "failed to get transaction", err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// Reverse reverses every entry a completed transaction posted.
func (h *TransactionHandler) Reverse(w http.ResponseWriter, r *http.Request) {
	var req dto.ActorRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeDomainError(w, r, "invalid request body", err)
			return
		}
	}

	res, err := h.processor.Reverse(r.Context(), chi.URLParam(r, "id"), actorFrom(r, req.Actor))
	if err != nil {
		writeDomainError(w, r, "failed to reverse transaction", err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// decodeBodyWithKey decodes a submission, taking the idempotency key from the header
// when the body leaves it out.
func decodeBodyWithKey(w http.ResponseWriter, r *http.Request, req *dto.SubmitTransactionRequest) error {
	if err := decodeJSONNoValidate(w, r, req); err != nil {
		return err
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = r.Header.Get(IdempotencyKeyHeader)
	}
	return dto.Validate(req)
}

func resultStatus(res *domain.TransactionResult) int {
	switch {
	case res.Replayed:
		return http.StatusOK
	case res.Status == domain.StatusRejected:
		return http.StatusUnprocessableEntity
	case res.Status == domain.StatusFailed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusCreated
	}
}
