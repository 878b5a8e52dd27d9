// internal/repository/transaction_repo.go
package repository

import (
	"context"

	"tcoin-wallet/internal/domain"
)

// TransactionRepository defines the interface for ledger transaction data operations.
type TransactionRepository interface {
	// CreateTransaction appends a transaction record using the provided DBExecutor.
	CreateTransaction(ctx context.Context, q DBExecutor, transaction *domain.Transaction) error
	// ListTransactionsByUserID returns one page of a user's history, newest first, and the total count.
	ListTransactionsByUserID(ctx context.Context, q DBExecutor, userID int64, filter domain.TransactionFilter, limit, offset int) ([]domain.Transaction, int64, error)
	// FindBalanceMismatches returns wallets whose cached balance disagrees with their history.
	FindBalanceMismatches(ctx context.Context, q DBExecutor) ([]domain.BalanceAudit, error)
}
