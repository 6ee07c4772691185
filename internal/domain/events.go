package domain

import "time"

// TransactionEvent is delivered to post-commit listeners after a scope commits.
type TransactionEvent struct {
	TransactionID string            `json:"transaction_id"`
	Type          TransactionType   `json:"type"`
	Status        TransactionStatus `json:"status"`
	EntryIDs      []string          `json:"entry_ids"`
	OccurredAt    time.Time         `json:"occurred_at"`
}

// EventFromTransaction builds the listener payload for txn.
func EventFromTransaction(txn *Transaction, at time.Time) TransactionEvent {
	ids := txn.EntryIDs
	if txn.Status == StatusReversed {
		ids = txn.ReversalEntryIDs
	}
	return TransactionEvent{
		TransactionID: txn.ID,
		Type:          txn.Type,
		Status:        txn.Status,
		EntryIDs:      append([]string(nil), ids...),
		OccurredAt:    at,
	}
}
