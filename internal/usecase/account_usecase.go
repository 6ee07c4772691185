package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/AlexShrike/nexum-sub002/internal/domain"
	"github.com/AlexShrike/nexum-sub002/internal/infrastructure/metrics"
)

// OpenAccountInput describes a new account.
type OpenAccountInput struct {
	Code                 string
	Name                 string
	Type                 domain.AccountType
	Currency             string
	AllowNegativeBalance bool
	Actor                string
}

// AccountUseCase opens accounts and moves them through their lifecycle.
type AccountUseCase struct {
	scopes      ScopeManager
	accountRepo AccountRepository
	entryRepo   EntryRepository
	audit       *AuditChain
	idGen       IDGenerator
	clock       Clock
	logger      zerolog.Logger
	metrics     *metrics.Metrics
}

// NewAccountUseCase creates a new AccountUseCase.
func NewAccountUseCase(
	scopes ScopeManager,
	accountRepo AccountRepository,
	entryRepo EntryRepository,
	audit *AuditChain,
	idGen IDGenerator,
	clock Clock,
	logger zerolog.Logger,
	m *metrics.Metrics,
) *AccountUseCase {
	if clock == nil {
		clock = SystemClock{}
	}
	return &AccountUseCase{
		scopes:      scopes,
		accountRepo: accountRepo,
		entryRepo:   entryRepo,
		audit:       audit,
		idGen:       idGen,
		clock:       clock,
		logger:      logger.With().Str("component", "accounts").Logger(),
		metrics:     m,
	}
}

// Open creates an active account.
func (uc *AccountUseCase) Open(ctx context.Context, in OpenAccountInput) (*domain.Account, error) {
	currency, err := domain.ParseCurrency(in.Currency)
	if err != nil {
		return nil, err
	}

	now := uc.clock.Now()
	account := &domain.Account{
		ID:                   uc.idGen.Generate(),
		Code:                 strings.TrimSpace(in.Code),
		Name:                 strings.TrimSpace(in.Name),
		Type:                 in.Type,
		Currency:             currency,
		State:                domain.AccountStateActive,
		AllowNegativeBalance: in.AllowNegativeBalance,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if account.Code == "" {
		account.Code = account.ID
	}

	if err := account.Validate(); err != nil {
		return nil, err
	}

	err = WithScope(ctx, uc.scopes, func(s Scope) error {
		if err := uc.accountRepo.Create(ctx, s, account); err != nil {
			return err
		}
		return uc.audit.Record(ctx, s, AuditRecord{
			Actor:      in.Actor,
			Action:     domain.AuditActionAccountOpened,
			EntityType: domain.EntityAccount,
			EntityID:   account.ID,
			Payload: map[string]any{
				"code":                   account.Code,
				"name":                   account.Name,
				"type":                   account.Type,
				"currency":               account.Currency,
				"allow_negative_balance": account.AllowNegativeBalance,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	uc.metrics.ObserveAccountOperation("open")
	uc.logger.Info().Str("account_id", account.ID).Str("type", string(account.Type)).Msg("account opened")
	return account, nil
}

// Get returns an account.
func (uc *AccountUseCase) Get(ctx context.Context, id string) (*domain.Account, error) {
	return uc.accountRepo.GetByID(ctx, id)
}

// List returns accounts ordered by creation.
func (uc *AccountUseCase) List(ctx context.Context, limit, offset int) ([]*domain.Account, error) {
	if offset < 0 {
		offset = 0
	}
	return uc.accountRepo.List(ctx, domain.ClampLimit(limit), offset)
}

func (uc *AccountUseCase) Freeze(ctx context.Context, id, actor string) (*domain.Account, error) {
	return uc.transition(ctx, id, actor, domain.AccountStateFrozen, domain.AuditActionAccountFrozen)
}

func (uc *AccountUseCase) Activate(ctx context.Context, id, actor string) (*domain.Account, error) {
	return uc.transition(ctx, id, actor, domain.AccountStateActive, domain.AuditActionAccountActivate)
}

// Close moves the account to closed. Every currency balance must be zero.
func (uc *AccountUseCase) Close(ctx context.Context, id, actor string) (*domain.Account, error) {
	return uc.transition(ctx, id, actor, domain.AccountStateClosed, domain.AuditActionAccountClosed)
}

func (uc *AccountUseCase) transition(ctx context.Context, id, actor string, next domain.AccountState, action domain.AuditAction) (*domain.Account, error) {
	var updated *domain.Account

	err := WithScope(ctx, uc.scopes, func(s Scope) error {
		// The lock orders the state change against postings on the same account.
		if err := s.LockAccounts(ctx, []string{id}); err != nil {
			return err
		}

		account, err := uc.accountRepo.GetInScope(ctx, s, id)
		if err != nil {
			return err
		}
		prev := account.State

		if next == domain.AccountStateClosed {
			totals, err := uc.entryRepo.SumByAccountInScope(ctx, s, id)
			if err != nil {
				return err
			}
			for cur, net := range totals {
				if !net.IsZero() {
					return fmt.Errorf("%w: %s balance is %s", domain.ErrAccountHasBalance, cur, net)
				}
			}
		}

		if err := account.TransitionTo(next, uc.clock.Now()); err != nil {
			return err
		}
		if err := uc.accountRepo.UpdateState(ctx, s, account); err != nil {
			return err
		}

		updated = account
		return uc.audit.Record(ctx, s, AuditRecord{
			Actor:      actor,
			Action:     action,
			EntityType: domain.EntityAccount,
			EntityID:   id,
			Payload:    map[string]any{"from": prev, "to": next},
		})
	})
	if err != nil {
		return nil, err
	}

	uc.metrics.ObserveAccountOperation(string(next))
	uc.logger.Info().Str("account_id", id).Str("state", string(next)).Msg("account state changed")
	return updated, nil
}
