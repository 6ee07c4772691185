package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/AlexShrike/nexum-sub002/internal/adapter/http/dto"
	"github.com/AlexShrike/nexum-sub002/internal/domain"
	"github.com/AlexShrike/nexum-sub002/internal/lending"
)

const (
	// ActorHeader names the caller recorded on audit events.
	ActorHeader = "X-Actor"
	// IdempotencyKeyHeader may carry the idempotency key instead of the body.
	IdempotencyKeyHeader = "Idempotency-Key"

	maxBodyBytes = 1 << 20
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error:   message,
		Message: details,
	})
}

// writeDomainError writes err with the status its kind maps to. Server side failures are
// logged on the request logger.
func writeDomainError(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := mapDomainError(err)
	if status >= http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("kind", string(domain.KindOf(err))).Msg(message)
	}
	writeJSON(w, status, dto.ErrorResponse{
		Error:   message,
		Kind:    string(domain.KindOf(err)),
		Message: err.Error(),
	})
}

// mapDomainError maps domain errors to HTTP status codes.
func mapDomainError(err error) int {
	switch {
	case errors.Is(err, domain.ErrAccountAlreadyExists),
		errors.Is(err, domain.ErrEntryAlreadyReversed),
		errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, lending.ErrInvalidSchedule),
		errors.Is(err, lending.ErrNotAtBoundary):
		return http.StatusBadRequest
	}

	switch domain.KindOf(err) {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConcurrencyConflict:
		return http.StatusConflict
	case domain.KindExternalServiceTimeout:
		return http.StatusGatewayTimeout
	case domain.KindStorageFailure, domain.KindAuditAppendFailure:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON decodes a bounded request body into v and validates it.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if err := decodeJSONNoValidate(w, r, v); err != nil {
		return err
	}
	return dto.Validate(v)
}

func decodeJSONNoValidate(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return domain.NewError(domain.KindValidation, "decode", err)
	}
	return nil
}

// actorFrom returns the caller named in the actor header, if any.
func actorFrom(r *http.Request, fallback string) string {
	if actor := r.Header.Get(ActorHeader); actor != "" {
		return actor
	}
	return fallback
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultValue int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return i
}

// parseInt64Query is parseIntQuery for sequence numbers.
func parseInt64Query(r *http.Request, key string, defaultValue int64) int64 {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultValue
	}
	i, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return defaultValue
	}
	return i
}

// parseTimeQuery parses an RFC 3339 timestamp or a YYYY-MM-DD date (end of that day).
func parseTimeQuery(r *http.Request, key string, defaultValue time.Time) (time.Time, error) {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultValue, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, val); err == nil {
		return t, nil
	}
	d, err := time.Parse(time.DateOnly, val)
	if err != nil {
		return time.Time{}, domain.NewError(domain.KindValidation, "query", errors.New(key+" must be RFC 3339 or YYYY-MM-DD"))
	}
	return d.Add(24*time.Hour - time.Nanosecond), nil
}
