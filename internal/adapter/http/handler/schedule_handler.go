package handler

import (
	"net/http"

	"github.com/AlexShrike/nexum-sub002/internal/adapter/http/dto"
	"github.com/AlexShrike/nexum-sub002/internal/lending"
)

// ScheduleHandler generates amortization schedules. It keeps no state.
type ScheduleHandler struct{}

// NewScheduleHandler creates a new ScheduleHandler.
func NewScheduleHandler() *ScheduleHandler {
	return &ScheduleHandler{}
}

// Generate returns the installment table for a loan.
func (h *ScheduleHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req dto.ScheduleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, r, "invalid request body", err)
		return
	}

	in, err := req.ToLending()
	if err != nil {
		writeDomainError(w, r, "invalid request body", err)
		return
	}

	schedule, err := lending.GenerateSchedule(in)
	if err != nil {
		writeDomainError(w, r, "failed to generate schedule", err)
		return
	}

	writeJSON(w, http.StatusOK, schedule)
}
