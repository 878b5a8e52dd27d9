// internal/repository/postgres/wallet_pg.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tcoin-wallet/internal/domain"
	"tcoin-wallet/internal/repository"
	"tcoin-wallet/internal/util"
)

// WalletRepository implements repository.WalletRepository for PostgreSQL.
// Methods receive the DBExecutor so they can run inside a service-owned transaction.
type WalletRepository struct{}

// NewWalletRepository creates a new WalletRepository.
func NewWalletRepository() repository.WalletRepository {
	return &WalletRepository{}
}

// EnsureWallet creates the user's wallet with a zero balance unless it already exists.
func (r *WalletRepository) EnsureWallet(ctx context.Context, q repository.DBExecutor, userID int64) error {
	query := `INSERT INTO wallets (user_id, balance) VALUES ($1, 0) ON CONFLICT (user_id) DO NOTHING`
	if _, err := q.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to ensure wallet for user %d: %w", userID, err)
	}
	return nil
}

// GetWalletByUserID retrieves a wallet by its owner.
func (r *WalletRepository) GetWalletByUserID(ctx context.Context, q repository.DBExecutor, userID int64) (*domain.Wallet, error) {
	var wallet domain.Wallet
	query := `SELECT user_id, balance, created_at, updated_at FROM wallets WHERE user_id = $1`
	if err := q.GetContext(ctx, &wallet, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, util.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get wallet for user %d: %w", userID, err)
	}
	return &wallet, nil
}

// GetWalletForUpdate retrieves a wallet and row-locks it. Concurrent mutations
// for the same user queue here, which keeps balance_after gap-free.
func (r *WalletRepository) GetWalletForUpdate(ctx context.Context, q repository.DBExecutor, userID int64) (*domain.Wallet, error) {
	var wallet domain.Wallet
	query := `SELECT user_id, balance, created_at, updated_at FROM wallets WHERE user_id = $1 FOR UPDATE`
	if err := q.GetContext(ctx, &wallet, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, util.ErrNotFound
		}
		return nil, fmt.Errorf("failed to lock wallet for user %d: %w", userID, err)
	}
	return &wallet, nil
}

// UpdateWalletBalance writes the new cached balance of a locked wallet.
func (r *WalletRepository) UpdateWalletBalance(ctx context.Context, q repository.DBExecutor, userID, balance int64, updatedAt time.Time) error {
	query := `UPDATE wallets SET balance = $1, updated_at = $2 WHERE user_id = $3`
	result, err := q.ExecContext(ctx, query, balance, updatedAt, userID)
	if err != nil {
		return fmt.Errorf("failed to update wallet balance for user %d: %w", userID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected after updating wallet balance for user %d: %w", userID, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("update wallet balance for user %d: %w", userID, util.ErrNotFound)
	}
	return nil
}
