// internal/domain/transaction.go
package domain

import "time"

// TransactionType defines the type of a ledger transaction.
type TransactionType string

const (
	TransactionTypeRecharge    TransactionType = "RECHARGE"
	TransactionTypeConsumption TransactionType = "CONSUMPTION"
	TransactionTypeRefund      TransactionType = "REFUND"
	TransactionTypeReward      TransactionType = "REWARD"
	TransactionTypeAdminAdjust TransactionType = "ADMIN_ADJUST"
)

// Valid reports whether t is one of the known transaction types.
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeRecharge, TransactionTypeConsumption, TransactionTypeRefund,
		TransactionTypeReward, TransactionTypeAdminAdjust:
		return true
	}
	return false
}

// Transaction is an immutable ledger record. Rows are appended and never updated.
type Transaction struct {
	ID           int64           `db:"id" json:"id"` // BIGSERIAL, monotonic
	UserID       int64           `db:"user_id" json:"user_id"`
	Type         TransactionType `db:"transaction_type" json:"transaction_type"`
	Amount       int64           `db:"amount" json:"amount"`               // positive = credit, negative = debit
	BalanceAfter int64           `db:"balance_after" json:"balance_after"` // wallet balance right after this row
	Notes        *string         `db:"notes" json:"notes,omitempty"`
	Reference    *string         `db:"reference" json:"reference,omitempty"` // package id, job reference
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}

// NewTransaction creates a new Transaction instance.
func NewTransaction(userID int64, txType TransactionType, amount, balanceAfter int64, notes, reference *string) *Transaction {
	return &Transaction{
		UserID:       userID,
		Type:         txType,
		Amount:       amount,
		BalanceAfter: balanceAfter,
		Notes:        notes,
		Reference:    reference,
		CreatedAt:    time.Now().UTC(),
	}
}

// TransactionFilter narrows ListTransactions. Zero values mean "no filter".
type TransactionFilter struct {
	Type          TransactionType
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
