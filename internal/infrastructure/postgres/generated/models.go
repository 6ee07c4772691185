package generated

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type Account struct {
	ID                   string             `json:"id"`
	Code                 string             `json:"code"`
	Name                 string             `json:"name"`
	Type                 string             `json:"type"`
	Currency             string             `json:"currency"`
	State                string             `json:"state"`
	AllowNegativeBalance bool               `json:"allow_negative_balance"`
	CreatedAt            pgtype.Timestamptz `json:"created_at"`
	UpdatedAt            pgtype.Timestamptz `json:"updated_at"`
}

type AuditEvent struct {
	Sequence      int64              `json:"sequence"`
	OccurredAt    pgtype.Timestamptz `json:"occurred_at"`
	Actor         string             `json:"actor"`
	Action        string             `json:"action"`
	EntityType    string             `json:"entity_type"`
	EntityID      string             `json:"entity_id"`
	Payload       []byte             `json:"payload"`
	PayloadDigest string             `json:"payload_digest"`
	PreviousHash  string             `json:"previous_hash"`
	Hash          string             `json:"hash"`
}

type AuditHead struct {
	ID           bool               `json:"id"`
	Sequence     int64              `json:"sequence"`
	Hash         string             `json:"hash"`
	LastPostedAt pgtype.Timestamptz `json:"last_posted_at"`
}

type BusinessTransaction struct {
	ID               string             `json:"id"`
	IdempotencyKey   string             `json:"idempotency_key"`
	Type             string             `json:"type"`
	Status           string             `json:"status"`
	Actor            string             `json:"actor"`
	EntryIds         []string           `json:"entry_ids"`
	ReversalEntryIds []string           `json:"reversal_entry_ids"`
	Metadata         []byte             `json:"metadata"`
	Failure          []byte             `json:"failure"`
	Attempts         int32              `json:"attempts"`
	CreatedAt        pgtype.Timestamptz `json:"created_at"`
	UpdatedAt        pgtype.Timestamptz `json:"updated_at"`
}

type JournalEntry struct {
	ID            string             `json:"id"`
	TransactionID pgtype.Text        `json:"transaction_id"`
	Description   string             `json:"description"`
	State         string             `json:"state"`
	ReversalOf    pgtype.Text        `json:"reversal_of"`
	ReversedBy    pgtype.Text        `json:"reversed_by"`
	CreatedAt     pgtype.Timestamptz `json:"created_at"`
	PostedAt      pgtype.Timestamptz `json:"posted_at"`
}

type JournalLine struct {
	EntryID   string             `json:"entry_id"`
	LineNo    int32              `json:"line_no"`
	AccountID string             `json:"account_id"`
	Direction string             `json:"direction"`
	Amount    pgtype.Numeric     `json:"amount"`
	Currency  string             `json:"currency"`
	PostedAt  pgtype.Timestamptz `json:"posted_at"`
}
