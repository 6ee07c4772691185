package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/AlexShrike/nexum-sub002/internal/domain"
	"github.com/AlexShrike/nexum-sub002/internal/usecase"
	"github.com/AlexShrike/nexum-sub002/internal/usecase/mocks"
)

func TestWithScope(t *testing.T) {
	boom := errors.New("boom")

	t.Run("commits on success", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		scopes := mocks.NewMockScopeManager(ctrl)
		s := mocks.NewMockScope(ctrl)
		scopes.EXPECT().Begin(gomock.Any()).Return(s, nil)
		s.EXPECT().Commit(gomock.Any()).Return(nil)

		err := usecase.WithScope(context.Background(), scopes, func(usecase.Scope) error { return nil })
		assert.NoError(t, err)
	})

	t.Run("rolls back on error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		scopes := mocks.NewMockScopeManager(ctrl)
		s := mocks.NewMockScope(ctrl)
		scopes.EXPECT().Begin(gomock.Any()).Return(s, nil)
		s.EXPECT().Rollback(gomock.Any()).Return(nil)

		err := usecase.WithScope(context.Background(), scopes, func(usecase.Scope) error { return boom })
		assert.ErrorIs(t, err, boom)
	})

	t.Run("rollback failure is joined", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		scopes := mocks.NewMockScopeManager(ctrl)
		s := mocks.NewMockScope(ctrl)
		rbErr := errors.New("conn closed")
		scopes.EXPECT().Begin(gomock.Any()).Return(s, nil)
		s.EXPECT().Rollback(gomock.Any()).Return(rbErr)

		err := usecase.WithScope(context.Background(), scopes, func(usecase.Scope) error { return boom })
		assert.ErrorIs(t, err, boom)
		assert.ErrorIs(t, err, rbErr)
	})

	t.Run("rolls back and repanics", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		scopes := mocks.NewMockScopeManager(ctrl)
		s := mocks.NewMockScope(ctrl)
		scopes.EXPECT().Begin(gomock.Any()).Return(s, nil)
		s.EXPECT().Rollback(gomock.Any()).Return(nil)

		assert.PanicsWithValue(t, "kaboom", func() {
			_ = usecase.WithScope(context.Background(), scopes, func(usecase.Scope) error { panic("kaboom") })
		})
	})

	t.Run("begin failure is a storage error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		scopes := mocks.NewMockScopeManager(ctrl)
		scopes.EXPECT().Begin(gomock.Any()).Return(nil, boom)

		called := false
		err := usecase.WithScope(context.Background(), scopes, func(usecase.Scope) error {
			called = true
			return nil
		})
		assert.False(t, called)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, domain.KindStorageFailure, domain.KindOf(err))
	})

	t.Run("commit ignores caller cancellation", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		scopes := mocks.NewMockScopeManager(ctrl)
		s := mocks.NewMockScope(ctrl)
		ctx, cancel := context.WithCancel(context.Background())

		scopes.EXPECT().Begin(gomock.Any()).Return(s, nil)
		s.EXPECT().Commit(gomock.Any()).DoAndReturn(func(ctx context.Context) error {
			return ctx.Err()
		})

		err := usecase.WithScope(ctx, scopes, func(usecase.Scope) error {
			cancel()
			return nil
		})
		assert.NoError(t, err)
	})
}
