// internal/domain/wallet.go
package domain

import "time"

// Wallet represents a user's T-coin wallet. Balance is a cached projection of
// the user's transaction history and is only changed together with an append.
type Wallet struct {
	UserID    int64     `db:"user_id" json:"user_id"`
	Balance   int64     `db:"balance" json:"balance"` // smallest unit; negative only after an admin adjustment
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// NewWallet creates a new zero-balance Wallet instance.
func NewWallet(userID int64) *Wallet {
	now := time.Now().UTC()
	return &Wallet{
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// BalanceAudit is one wallet whose cached balance disagrees with its history.
type BalanceAudit struct {
	UserID           int64 `db:"user_id"`
	Balance          int64 `db:"balance"`
	LedgerSum        int64 `db:"ledger_sum"`
	LastBalanceAfter int64 `db:"last_balance_after"`
}
