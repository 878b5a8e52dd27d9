// internal/repository/postgres/transaction_pg.go
package postgres

import (
	"context"
	"fmt"
	"strings"

	"tcoin-wallet/internal/domain"
	"tcoin-wallet/internal/repository"
)

// TransactionRepository implements repository.TransactionRepository for PostgreSQL.
type TransactionRepository struct{}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository() repository.TransactionRepository {
	return &TransactionRepository{}
}

// CreateTransaction inserts a new transaction record using the provided DBExecutor.
func (r *TransactionRepository) CreateTransaction(ctx context.Context, q repository.DBExecutor, transaction *domain.Transaction) error {
	query := `INSERT INTO wallet_transactions (user_id, transaction_type, amount, balance_after, notes, reference, created_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`

	err := q.QueryRowContext(ctx, query,
		transaction.UserID,
		transaction.Type,
		transaction.Amount,
		transaction.BalanceAfter,
		transaction.Notes,
		transaction.Reference,
		transaction.CreatedAt,
	).Scan(&transaction.ID)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

// ListTransactionsByUserID retrieves a page of a user's transactions, newest first.
// It performs two queries: one for the data and one for the total count.
func (r *TransactionRepository) ListTransactionsByUserID(ctx context.Context, q repository.DBExecutor, userID int64, filter domain.TransactionFilter, limit, offset int) ([]domain.Transaction, int64, error) {
	where, args := transactionFilterClause(userID, filter)

	transactions := []domain.Transaction{}
	query := fmt.Sprintf(`
		SELECT id, user_id, transaction_type, amount, balance_after, notes, reference, created_at
		FROM wallet_transactions
		WHERE %s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	if err := q.SelectContext(ctx, &transactions, query, append(args, limit, offset)...); err != nil {
		return nil, 0, fmt.Errorf("failed to fetch transactions for user %d: %w", userID, err)
	}

	var totalCount int64
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM wallet_transactions WHERE %s`, where)
	if err := q.GetContext(ctx, &totalCount, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to get total transaction count for user %d: %w", userID, err)
	}

	return transactions, totalCount, nil
}

func transactionFilterClause(userID int64, filter domain.TransactionFilter) (string, []interface{}) {
	conds := []string{"user_id = $1"}
	args := []interface{}{userID}

	if filter.Type != "" {
		args = append(args, filter.Type)
		conds = append(conds, fmt.Sprintf("transaction_type = $%d", len(args)))
	}
	if filter.CreatedAfter != nil {
		args = append(args, *filter.CreatedAfter)
		conds = append(conds, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedBefore != nil {
		args = append(args, *filter.CreatedBefore)
		conds = append(conds, fmt.Sprintf("created_at < $%d", len(args)))
	}
	return strings.Join(conds, " AND "), args
}

// FindBalanceMismatches compares every wallet with the sum of its history and
// with the balance_after of its latest transaction.
func (r *TransactionRepository) FindBalanceMismatches(ctx context.Context, q repository.DBExecutor) ([]domain.BalanceAudit, error) {
	audits := []domain.BalanceAudit{}
	query := `
		WITH sums AS (
			SELECT user_id, SUM(amount) AS ledger_sum, MAX(id) AS last_id
			FROM wallet_transactions
			GROUP BY user_id
		)
		SELECT w.user_id, w.balance,
		       COALESCE(s.ledger_sum, 0) AS ledger_sum,
		       COALESCE(t.balance_after, 0) AS last_balance_after
		FROM wallets w
		LEFT JOIN sums s ON s.user_id = w.user_id
		LEFT JOIN wallet_transactions t ON t.id = s.last_id
		WHERE w.balance <> COALESCE(s.ledger_sum, 0)
		   OR w.balance <> COALESCE(t.balance_after, 0)`
	if err := q.SelectContext(ctx, &audits, query); err != nil {
		return nil, fmt.Errorf("failed to audit wallet balances: %w", err)
	}
	return audits, nil
}
