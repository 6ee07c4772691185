package handler

import (
	"context"
	"net/http"

	"github.com/AlexShrike/nexum-sub002/internal/adapter/http/dto"
	"github.com/AlexShrike/nexum-sub002/internal/usecase"
)

// InterestService defines the behavior needed by InterestHandler.
type InterestService interface {
	AccruePeriod(ctx context.Context, in usecase.AccruePeriodInput) (*usecase.AccrualOutcome, error)
}

// InterestHandler runs interest accrual periods.
type InterestHandler struct {
	interest InterestService
}

// NewInterestHandler creates a new InterestHandler.
func NewInterestHandler(interest InterestService) *InterestHandler {
	return &InterestHandler{interest: interest}
}

// Accrue accrues one period and posts it. The status follows the posting result; a
// period that rounded to zero answers 200 with no result.
func (h *InterestHandler) Accrue(w http.ResponseWriter, r *http.Request) {
	var req dto.AccrualRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, r, "invalid request body", err)
		return
	}

	in, err := req.ToInput(actorFrom(r, req.Actor))
	if err != nil {
		writeDomainError(w, r, "invalid request body", err)
		return
	}

	out, err := h.interest.AccruePeriod(r.Context(), in)
	if err != nil {
		writeDomainError(w, r, "failed to accrue interest", err)
		return
	}

	status := http.StatusOK
	if out.Result != nil {
		status = resultStatus(out.Result)
	}
	writeJSON(w, status, out)
}
