// internal/repository/wallet_repo.go
package repository

import (
	"context"
	"time"

	"tcoin-wallet/internal/domain"
)

// WalletRepository defines the interface for wallet data operations.
type WalletRepository interface {
	// EnsureWallet creates a zero-balance wallet for the user if none exists.
	EnsureWallet(ctx context.Context, q DBExecutor, userID int64) error
	// GetWalletByUserID retrieves a user's wallet without locking it.
	GetWalletByUserID(ctx context.Context, q DBExecutor, userID int64) (*domain.Wallet, error)
	// GetWalletForUpdate retrieves a user's wallet and locks the row until the surrounding transaction ends.
	GetWalletForUpdate(ctx context.Context, q DBExecutor, userID int64) (*domain.Wallet, error)
	// UpdateWalletBalance sets the cached balance. Callers must hold the row lock.
	UpdateWalletBalance(ctx context.Context, q DBExecutor, userID, balance int64, updatedAt time.Time) error
}
