package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/AlexShrike/nexum-sub002/internal/domain"
)

// PostgreSQL error codes the backend classifies.
const (
	pgErrDeadlock             = "40P01"
	pgErrSerializationFailure = "40001"
	pgErrLockNotAvailable     = "55P03"
	pgErrUniqueViolation      = "23505"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isUniqueViolation(err error) bool {
	return pgCode(err) == pgErrUniqueViolation
}

func isConflict(err error) bool {
	switch pgCode(err) {
	case pgErrDeadlock, pgErrSerializationFailure, pgErrLockNotAvailable:
		return true
	}
	return false
}

// mapError classifies a driver error. Errors that already carry a kind pass through.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if domain.KindOf(err) != domain.KindUnknown {
		return err
	}
	if isConflict(err) {
		return domain.NewError(domain.KindConcurrencyConflict, op, err)
	}
	return domain.NewError(domain.KindStorageFailure, op, err)
}
