package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/AlexShrike/nexum-sub002/internal/domain"
	"github.com/AlexShrike/nexum-sub002/internal/usecase"
	"github.com/AlexShrike/nexum-sub002/internal/usecase/mocks"
)

func TestAccountUseCase_Open(t *testing.T) {
	tests := []struct {
		name    string
		input   usecase.OpenAccountInput
		wantErr error
	}{
		{
			name:  "asset account",
			input: usecase.OpenAccountInput{Code: "1000", Name: "Cash", Type: domain.AccountTypeAsset, Currency: "usd"},
		},
		{
			name:    "unknown currency",
			input:   usecase.OpenAccountInput{Code: "1001", Name: "Cash", Type: domain.AccountTypeAsset, Currency: "XXX"},
			wantErr: domain.ErrInvalidCurrency,
		},
		{
			name:    "unknown type",
			input:   usecase.OpenAccountInput{Code: "1002", Name: "Cash", Type: "contra", Currency: "USD"},
			wantErr: domain.ErrInvalidAccountType,
		},
		{
			name:    "control characters in name",
			input:   usecase.OpenAccountInput{Code: "1003", Name: "Ca\x00sh", Type: domain.AccountTypeAsset, Currency: "USD"},
			wantErr: domain.ErrInvalidAccountName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEnv(t)
			acc, err := e.accounts.Open(context.Background(), tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, domain.Currency("USD"), acc.Currency)
			assert.Equal(t, domain.AccountStateActive, acc.State)
			assert.Equal(t, []domain.AuditAction{domain.AuditActionAccountOpened}, e.auditActions(t, acc.ID))

			stored, err := e.accounts.Get(context.Background(), acc.ID)
			require.NoError(t, err)
			assert.Equal(t, acc.Code, stored.Code)
		})
	}
}

func TestAccountUseCase_DuplicateCode(t *testing.T) {
	e := newTestEnv(t)
	e.open(t, "cash", domain.AccountTypeAsset)

	_, err := e.accounts.Open(context.Background(), usecase.OpenAccountInput{Code: "cash", Name: "again", Type: domain.AccountTypeAsset, Currency: "USD"})
	assert.ErrorIs(t, err, domain.ErrAccountAlreadyExists)
}

func TestAccountUseCase_Lifecycle(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	b := e.bank(t, "25.00")

	acc, err := e.accounts.Freeze(ctx, b.alice.ID, "ops")
	require.NoError(t, err)
	assert.Equal(t, domain.AccountStateFrozen, acc.State)

	_, err = e.accounts.Freeze(ctx, b.alice.ID, "ops")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	acc, err = e.accounts.Activate(ctx, b.alice.ID, "ops")
	require.NoError(t, err)
	assert.Equal(t, domain.AccountStateActive, acc.State)

	_, err = e.accounts.Close(ctx, b.alice.ID, "ops")
	assert.ErrorIs(t, err, domain.ErrAccountHasBalance)

	res, err := e.processor.Submit(ctx, transfer("drain", b.alice.ID, b.bob.ID, "25.00"))
	require.NoError(t, err)
	require.Equal(t, domain.StatusCompleted, res.Status)

	acc, err = e.accounts.Close(ctx, b.alice.ID, "ops")
	require.NoError(t, err)
	assert.Equal(t, domain.AccountStateClosed, acc.State)

	_, err = e.accounts.Activate(ctx, b.alice.ID, "ops")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	assert.Equal(t, []domain.AuditAction{
		domain.AuditActionAccountOpened,
		domain.AuditActionAccountFrozen,
		domain.AuditActionAccountActivate,
		domain.AuditActionAccountClosed,
	}, e.auditActions(t, b.alice.ID))

	list, err := e.accounts.List(ctx, 2, 1)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, b.alice.ID, list[0].ID)
}

func TestAccountUseCase_OpenRollsBackOnRepositoryError(t *testing.T) {
	ctrl := gomock.NewController(t)

	scopes := mocks.NewMockScopeManager(ctrl)
	scope := mocks.NewMockScope(ctrl)
	accountRepo := mocks.NewMockAccountRepository(ctrl)
	entryRepo := mocks.NewMockEntryRepository(ctrl)
	auditRepo := mocks.NewMockAuditRepository(ctrl)
	ids := mocks.NewMockIDGenerator(ctrl)

	dbErr := errors.New("connection reset")
	ids.EXPECT().Generate().Return("acc-1")
	scopes.EXPECT().Begin(gomock.Any()).Return(scope, nil)
	accountRepo.EXPECT().Create(gomock.Any(), scope, gomock.Any()).Return(dbErr)
	scope.EXPECT().Rollback(gomock.Any()).Return(nil)

	audit := usecase.NewAuditChain(auditRepo, nil, zerolog.Nop(), nil)
	uc := usecase.NewAccountUseCase(scopes, accountRepo, entryRepo, audit, ids, nil, zerolog.Nop(), nil)

	_, err := uc.Open(context.Background(), usecase.OpenAccountInput{Code: "c", Name: "Cash", Type: domain.AccountTypeAsset, Currency: "USD"})
	assert.ErrorIs(t, err, dbErr)
}
