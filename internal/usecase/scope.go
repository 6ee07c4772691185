package usecase

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/AlexShrike/nexum-sub002/internal/domain"
)

// WithScope runs fn inside a new scope. The scope is rolled back when fn returns an error
// or panics and committed otherwise. Commit runs without the caller's cancellation.
func WithScope(ctx context.Context, scopes ScopeManager, fn func(s Scope) error) (err error) {
	s, err := scopes.Begin(ctx)
	if err != nil {
		if domain.KindOf(err) == domain.KindUnknown {
			err = domain.NewError(domain.KindStorageFailure, "begin", err)
		}
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = s.Rollback(context.WithoutCancel(ctx))
			panic(p)
		}
	}()

	if err := fn(s); err != nil {
		if rbErr := s.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
			return multierr.Append(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}

	return s.Commit(context.WithoutCancel(ctx))
}
