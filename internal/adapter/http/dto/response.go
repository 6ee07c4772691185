package dto

import (
	"sort"
	"time"

	"github.com/AlexShrike/nexum-sub002/internal/domain"
	"github.com/AlexShrike/nexum-sub002/internal/usecase"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message,omitempty"`
}

// AccountResponse represents an account in API responses.
type AccountResponse struct {
	ID                   string    `json:"id"`
	Code                 string    `json:"code"`
	Name                 string    `json:"name"`
	Type                 string    `json:"type"`
	Currency             string    `json:"currency"`
	State                string    `json:"state"`
	AllowNegativeBalance bool      `json:"allow_negative_balance"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// AccountFromDomain converts domain account to response.
func AccountFromDomain(a *domain.Account) *AccountResponse {
	return &AccountResponse{
		ID:                   a.ID,
		Code:                 a.Code,
		Name:                 a.Name,
		Type:                 string(a.Type),
		Currency:             string(a.Currency),
		State:                string(a.State),
		AllowNegativeBalance: a.AllowNegativeBalance,
		CreatedAt:            a.CreatedAt,
		UpdatedAt:            a.UpdatedAt,
	}
}

// AccountsFromDomain converts domain accounts to responses.
func AccountsFromDomain(accounts []*domain.Account) []*AccountResponse {
	result := make([]*AccountResponse, len(accounts))
	for i, a := range accounts {
		result[i] = AccountFromDomain(a)
	}
	return result
}

// ListAccountsResponse represents a page of accounts.
type ListAccountsResponse struct {
	Accounts []*AccountResponse `json:"accounts"`
	Limit    int                `json:"limit"`
	Offset   int                `json:"offset"`
}

// BalanceResponse is an account balance, one amount per currency sorted by code.
type BalanceResponse struct {
	AccountID string         `json:"account_id"`
	AsOf      time.Time      `json:"as_of"`
	Amounts   []domain.Money `json:"amounts"`
}

// BalanceFromDomain converts a balance, keeping only currency when it is set.
func BalanceFromDomain(b domain.Balance, currency string) *BalanceResponse {
	resp := &BalanceResponse{AccountID: b.AccountID, AsOf: b.AsOf, Amounts: []domain.Money{}}
	if currency != "" {
		resp.Amounts = append(resp.Amounts, b.In(domain.Currency(currency)))
		return resp
	}
	for _, m := range b.Amounts {
		resp.Amounts = append(resp.Amounts, m)
	}
	sort.Slice(resp.Amounts, func(i, j int) bool {
		return resp.Amounts[i].Currency() < resp.Amounts[j].Currency()
	})
	return resp
}

// EntryResponse represents a journal entry in API responses.
type EntryResponse struct {
	ID            string        `json:"id"`
	TransactionID string        `json:"transaction_id,omitempty"`
	Description   string        `json:"description"`
	State         string        `json:"state"`
	ReversalOf    string        `json:"reversal_of,omitempty"`
	ReversedBy    string        `json:"reversed_by,omitempty"`
	Lines         []domain.Line `json:"lines"`
	PostedAt      time.Time     `json:"posted_at"`
}

// EntriesFromDomain converts domain entries to responses.
func EntriesFromDomain(entries []*domain.JournalEntry) []*EntryResponse {
	result := make([]*EntryResponse, len(entries))
	for i, e := range entries {
		result[i] = &EntryResponse{
			ID:            e.ID,
			TransactionID: e.TransactionID,
			Description:   e.Description,
			State:         string(e.State),
			ReversalOf:    e.ReversalOf,
			ReversedBy:    e.ReversedBy,
			Lines:         e.Lines,
			PostedAt:      e.PostedAt,
		}
	}
	return result
}

// StatementLineResponse is one posting on a statement.
type StatementLineResponse struct {
	EntryID       string       `json:"entry_id"`
	TransactionID string       `json:"transaction_id,omitempty"`
	Description   string       `json:"description"`
	PostedAt      time.Time    `json:"posted_at"`
	Direction     string       `json:"direction"`
	Amount        domain.Money `json:"amount"`
	Balance       domain.Money `json:"balance"`
}

// StatementResponse is an account statement for a posting window.
type StatementResponse struct {
	AccountID string                   `json:"account_id"`
	Currency  string                   `json:"currency"`
	From      *time.Time               `json:"from,omitempty"`
	To        time.Time                `json:"to"`
	Opening   domain.Money             `json:"opening"`
	Closing   domain.Money             `json:"closing"`
	Lines     []*StatementLineResponse `json:"lines"`
}

// StatementFromUseCase converts a statement to its response form.
func StatementFromUseCase(st *usecase.Statement) *StatementResponse {
	resp := &StatementResponse{
		AccountID: st.AccountID,
		Currency:  string(st.Currency),
		To:        st.To,
		Opening:   st.Opening,
		Closing:   st.Closing,
		Lines:     make([]*StatementLineResponse, len(st.Lines)),
	}
	if !st.From.IsZero() {
		from := st.From
		resp.From = &from
	}
	for i, l := range st.Lines {
		resp.Lines[i] = &StatementLineResponse{
			EntryID:       l.EntryID,
			TransactionID: l.TransactionID,
			Description:   l.Description,
			PostedAt:      l.PostedAt,
			Direction:     string(l.Direction),
			Amount:        l.Amount,
			Balance:       l.Balance,
		}
	}
	return resp
}

// AuditEventsResponse is a page of the audit chain.
type AuditEventsResponse struct {
	Events []domain.AuditEvent `json:"events"`
}

// ReconciliationResponse reports per-currency totals and chain health.
type ReconciliationResponse struct {
	OK     bool                          `json:"ok"`
	Report *usecase.ReconciliationReport `json:"report"`
}
