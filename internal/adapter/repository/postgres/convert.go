package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/AlexShrike/nexum-sub002/internal/domain"
	"github.com/AlexShrike/nexum-sub002/internal/infrastructure/postgres/generated"
)

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric

	_ = n.Scan(d.String())

	return n
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}

func timeToPgTimestamptz(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func textOrNull(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

func rowToAccount(row generated.Account) *domain.Account {
	return &domain.Account{
		ID:                   row.ID,
		Code:                 row.Code,
		Name:                 row.Name,
		Type:                 domain.AccountType(row.Type),
		Currency:             domain.Currency(row.Currency),
		State:                domain.AccountState(row.State),
		AllowNegativeBalance: row.AllowNegativeBalance,
		CreatedAt:            row.CreatedAt.Time.UTC(),
		UpdatedAt:            row.UpdatedAt.Time.UTC(),
	}
}

func rowToEntry(row generated.JournalEntry, lines []generated.JournalLine) *domain.JournalEntry {
	e := &domain.JournalEntry{
		ID:            row.ID,
		TransactionID: row.TransactionID.String,
		Description:   row.Description,
		State:         domain.EntryState(row.State),
		ReversalOf:    row.ReversalOf.String,
		ReversedBy:    row.ReversedBy.String,
		CreatedAt:     row.CreatedAt.Time.UTC(),
		PostedAt:      row.PostedAt.Time.UTC(),
		Lines:         make([]domain.Line, 0, len(lines)),
	}
	for _, l := range lines {
		cur := domain.Currency(l.Currency)
		e.Lines = append(e.Lines, domain.Line{
			AccountID: l.AccountID,
			Direction: domain.Direction(l.Direction),
			Amount:    domain.NewMoney(numericToDecimal(l.Amount), cur),
		})
	}
	return e
}

func rowToTransaction(row generated.BusinessTransaction) (*domain.Transaction, error) {
	txn := &domain.Transaction{
		ID:               row.ID,
		IdempotencyKey:   row.IdempotencyKey,
		Type:             domain.TransactionType(row.Type),
		Status:           domain.TransactionStatus(row.Status),
		Actor:            row.Actor,
		EntryIDs:         row.EntryIds,
		ReversalEntryIDs: row.ReversalEntryIds,
		Attempts:         int(row.Attempts),
		CreatedAt:        row.CreatedAt.Time.UTC(),
		UpdatedAt:        row.UpdatedAt.Time.UTC(),
	}
	if len(row.Metadata) > 0 {
		if err := json.Unmarshal(row.Metadata, &txn.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata of %s: %w", row.ID, err)
		}
	}
	if len(row.Failure) > 0 {
		var f domain.Failure
		if err := json.Unmarshal(row.Failure, &f); err != nil {
			return nil, fmt.Errorf("decode failure of %s: %w", row.ID, err)
		}
		txn.Failure = &f
	}
	return txn, nil
}

func encodeTransaction(txn *domain.Transaction) (metadata, failure []byte, err error) {
	meta := txn.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	metadata, err = json.Marshal(meta)
	if err != nil {
		return nil, nil, fmt.Errorf("encode metadata: %w", err)
	}
	if txn.Failure != nil {
		failure, err = json.Marshal(txn.Failure)
		if err != nil {
			return nil, nil, fmt.Errorf("encode failure: %w", err)
		}
	}
	return metadata, failure, nil
}

func rowToAuditEvent(row generated.AuditEvent) domain.AuditEvent {
	return domain.AuditEvent{
		Sequence:      row.Sequence,
		Timestamp:     row.OccurredAt.Time.UTC(),
		Actor:         row.Actor,
		Action:        domain.AuditAction(row.Action),
		EntityType:    row.EntityType,
		EntityID:      row.EntityID,
		Payload:       json.RawMessage(row.Payload),
		PayloadDigest: row.PayloadDigest,
		PreviousHash:  row.PreviousHash,
		Hash:          row.Hash,
	}
}
