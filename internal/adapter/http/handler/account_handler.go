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

// AccountService defines the behavior needed by AccountHandler.
type AccountService interface {
	Open(ctx context.Context, in usecase.OpenAccountInput) (*domain.Account, error)
	Get(ctx context.Context, id string) (*domain.Account, error)
	List(ctx context.Context, limit, offset int) ([]*domain.Account, error)
	Freeze(ctx context.Context, id, actor string) (*domain.Account, error)
	Activate(ctx context.Context, id, actor string) (*domain.Account, error)
	Close(ctx context.Context, id, actor string) (*domain.Account, error)
}

// BalanceService answers balance queries.
type BalanceService interface {
	BalanceOf(ctx context.Context, accountID string, asOf time.Time) (domain.Balance, error)
}

// AccountHandler handles account-related HTTP requests.
type AccountHandler struct {
	accounts AccountService
	balances BalanceService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accounts AccountService, balances BalanceService) *AccountHandler {
	return &AccountHandler{accounts: accounts, balances: balances}
}

// Create opens a new account.
func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateAccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, r, "invalid request body", err)
		return
	}

	account, err := h.accounts.Open(r.Context(), req.ToUseCaseInput(actorFrom(r, "")))
	if err != nil {
		writeDomainError(w, r, "failed to create account", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.AccountFromDomain(account))
}

// Get retrieves an account by ID.
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	account, err := h.accounts.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, "failed to get account", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountFromDomain(account))
}

// List lists accounts.
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", 20)
	offset := parseIntQuery(r, "offset", 0)

	accounts, err := h.accounts.List(r.Context(), limit, offset)
	if err != nil {
		writeDomainError(w, r, "failed to list accounts", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ListAccountsResponse{
		Accounts: dto.AccountsFromDomain(accounts),
		Limit:    limit,
		Offset:   offset,
	})
}

// Freeze blocks new postings to an account.
func (h *AccountHandler) Freeze(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.accounts.Freeze)
}

// Activate returns a frozen account to service.
func (h *AccountHandler) Activate(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.accounts.Activate)
}

// Close closes an account with a zero balance.
func (h *AccountHandler) Close(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.accounts.Close)
}

func (h *AccountHandler) transition(w http.ResponseWriter, r *http.Request, fn func(context.Context, string, string) (*domain.Account, error)) {
	var req dto.ActorRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeDomainError(w, r, "invalid request body", err)
			return
		}
	}

	account, err := fn(r.Context(), chi.URLParam(r, "id"), actorFrom(r, req.Actor))
	if err != nil {
		writeDomainError(w, r, "account transition failed", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountFromDomain(account))
}

// Balance returns an account balance as of now or the as_of query parameter.
func (h *AccountHandler) Balance(w http.ResponseWriter, r *http.Request) {
	asOf, err := parseTimeQuery(r, "as_of", time.Now().UTC())
	if err != nil {
		writeDomainError(w, r, "invalid as_of", err)
		return
	}

	balance, err := h.balances.BalanceOf(r.Context(), chi.URLParam(r, "id"), asOf)
	if err != nil {
		writeDomainError(w, r, "failed to get balance", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.BalanceFromDomain(balance, r.URL.Query().Get("currency")))
}
