// internal/service/ledger_service.go
package service

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"tcoin-wallet/internal/domain"
	"tcoin-wallet/internal/metrics"
	"tcoin-wallet/internal/repository"
	"tcoin-wallet/internal/util"
	"tcoin-wallet/pkg/db"
)

// LedgerService defines the interface for wallet and transaction history logic.
type LedgerService interface {
	GetWallet(ctx context.Context, userID int64) (*domain.Wallet, error)
	ApplyTransaction(ctx context.Context, userID int64, txType domain.TransactionType, amount int64, notes, reference *string) (*domain.Transaction, error)
	ListTransactions(ctx context.Context, userID int64, page, pageSize int, filter domain.TransactionFilter) (*Page[domain.Transaction], error)
	AdjustBalance(ctx context.Context, userID, amount int64, notes string) (*domain.Transaction, error)

	CreditForPayment(ctx context.Context, userID, packageID, amount int64) (*domain.Transaction, error)
	DebitForConsumption(ctx context.Context, userID, amount int64, jobReference string) (*domain.Transaction, error)
	RefundConsumption(ctx context.Context, userID, amount int64, jobReference string) (*domain.Transaction, error)
	AdminAdjust(ctx context.Context, userID, amount int64, notes string) (*domain.Transaction, error)
}

// LedgerOptions carries the tunables of the ledger.
type LedgerOptions struct {
	// BalanceFloor is the lowest balance a non-admin transaction may leave.
	BalanceFloor  int64
	RetryAttempts int
}

// ledger is the mutation primitive every coin movement goes through. It must
// run inside a transaction owned by the caller.
type ledger struct {
	walletRepo      repository.WalletRepository
	transactionRepo repository.TransactionRepository
	floor           int64
	now             func() time.Time
}

// apply locks the user's wallet, computes the new balance and appends the
// history row. Nothing is written when a check fails.
func (l *ledger) apply(ctx context.Context, q repository.DBExecutor, userID int64, txType domain.TransactionType, amount int64, notes, reference *string) (*domain.Transaction, error) {
	if err := validateAmount(txType, amount); err != nil {
		return nil, err
	}
	if txType == domain.TransactionTypeAdminAdjust && (notes == nil || strings.TrimSpace(*notes) == "") {
		return nil, fmt.Errorf("%w: admin adjustments require notes", util.ErrInvalidInput)
	}

	if err := l.walletRepo.EnsureWallet(ctx, q, userID); err != nil {
		return nil, fmt.Errorf("failed to ensure wallet for user %d: %w", userID, err)
	}
	wallet, err := l.walletRepo.GetWalletForUpdate(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock wallet for user %d: %w", userID, err)
	}

	if (amount > 0 && wallet.Balance > math.MaxInt64-amount) || (amount < 0 && wallet.Balance < math.MinInt64-amount) {
		return nil, fmt.Errorf("%w: balance would overflow", util.ErrInvalidAmount)
	}
	newBalance := wallet.Balance + amount
	if txType != domain.TransactionTypeAdminAdjust && amount < 0 && newBalance < l.floor {
		return nil, util.ErrInsufficientBalance
	}

	now := l.now().UTC()
	if err := l.walletRepo.UpdateWalletBalance(ctx, q, userID, newBalance, now); err != nil {
		return nil, fmt.Errorf("failed to update wallet balance: %w", err)
	}

	transaction := domain.NewTransaction(userID, txType, amount, newBalance, notes, reference)
	transaction.CreatedAt = now
	if err := l.transactionRepo.CreateTransaction(ctx, q, transaction); err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	return transaction, nil
}

func validateAmount(txType domain.TransactionType, amount int64) error {
	if !txType.Valid() {
		return fmt.Errorf("%w: unknown transaction type %q", util.ErrInvalidInput, txType)
	}
	if amount == 0 {
		return fmt.Errorf("%w: amount must not be zero", util.ErrInvalidAmount)
	}
	switch txType {
	case domain.TransactionTypeRecharge, domain.TransactionTypeRefund, domain.TransactionTypeReward:
		if amount < 0 {
			return fmt.Errorf("%w: %s requires a positive amount", util.ErrInvalidAmount, txType)
		}
	case domain.TransactionTypeConsumption:
		if amount > 0 {
			return fmt.Errorf("%w: %s requires a negative amount", util.ErrInvalidAmount, txType)
		}
	}
	return nil
}

// ledgerService implements the LedgerService interface.
type ledgerService struct {
	dbExecutor  repository.DBExecutor // For non-transactional reads (e.g., *sqlx.DB)
	uow         *unitOfWork
	ledger      *ledger
	walletRepo  repository.WalletRepository
	txRepo      repository.TransactionRepository
	packageRepo repository.PackageRepository
	logger      *logrus.Logger
}

// NewLedgerService creates a new instance of LedgerService.
func NewLedgerService(
	dbBeginner db.DBTxBeginner,
	dbExecutor repository.DBExecutor,
	walletRepo repository.WalletRepository,
	transactionRepo repository.TransactionRepository,
	packageRepo repository.PackageRepository,
	tx TxFuncs,
	opts LedgerOptions,
	logger *logrus.Logger,
) LedgerService {
	return &ledgerService{
		dbExecutor: dbExecutor,
		uow:        &unitOfWork{dbBeginner: dbBeginner, tx: tx, retryAttempts: opts.RetryAttempts},
		ledger: &ledger{
			walletRepo:      walletRepo,
			transactionRepo: transactionRepo,
			floor:           opts.BalanceFloor,
			now:             time.Now,
		},
		walletRepo:  walletRepo,
		txRepo:      transactionRepo,
		packageRepo: packageRepo,
		logger:      logger,
	}
}

// GetWallet returns the user's wallet, creating an empty one on first access.
func (s *ledgerService) GetWallet(ctx context.Context, userID int64) (*domain.Wallet, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("%w: user id must be positive", util.ErrInvalidInput)
	}
	var wallet *domain.Wallet
	err := s.uow.read(ctx, func() error {
		if err := s.walletRepo.EnsureWallet(ctx, s.dbExecutor, userID); err != nil {
			return err
		}
		w, err := s.walletRepo.GetWalletByUserID(ctx, s.dbExecutor, userID)
		if err != nil {
			return err
		}
		wallet = w
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get wallet: failed to load wallet for user %d: %w", userID, err)
	}
	return wallet, nil
}

// ApplyTransaction applies one signed amount to the user's wallet and appends it to history.
func (s *ledgerService) ApplyTransaction(ctx context.Context, userID int64, txType domain.TransactionType, amount int64, notes, reference *string) (*domain.Transaction, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("%w: user id must be positive", util.ErrInvalidInput)
	}
	if err := validateAmount(txType, amount); err != nil {
		return nil, err
	}

	var transaction *domain.Transaction
	err := s.uow.run(ctx, "apply transaction", func(ctx context.Context, q repository.DBExecutor) error {
		t, err := s.ledger.apply(ctx, q, userID, txType, amount, notes, reference)
		if err != nil {
			return err
		}
		transaction = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordApplied(transaction)
	return transaction, nil
}

func (s *ledgerService) recordApplied(t *domain.Transaction) {
	metrics.RecordTransaction(string(t.Type))
	s.logger.WithFields(logrus.Fields{
		"user_id":        t.UserID,
		"transaction_id": t.ID,
		"type":           t.Type,
		"amount":         t.Amount,
		"balance_after":  t.BalanceAfter,
	}).Info("Ledger transaction applied")
}

// ListTransactions returns one page of a user's history, newest first.
func (s *ledgerService) ListTransactions(ctx context.Context, userID int64, page, pageSize int, filter domain.TransactionFilter) (*Page[domain.Transaction], error) {
	if userID <= 0 {
		return nil, fmt.Errorf("%w: user id must be positive", util.ErrInvalidInput)
	}
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown transaction type %q", util.ErrInvalidInput, filter.Type)
	}
	if filter.CreatedAfter != nil && filter.CreatedBefore != nil && filter.CreatedBefore.Before(*filter.CreatedAfter) {
		return nil, fmt.Errorf("%w: empty date range", util.ErrInvalidInput)
	}
	bounds, err := newPageBounds(page, pageSize)
	if err != nil {
		return nil, err
	}

	var (
		items []domain.Transaction
		total int64
	)
	err = s.uow.read(ctx, func() error {
		var err error
		items, total, err = s.txRepo.ListTransactionsByUserID(ctx, s.dbExecutor, userID, filter, bounds.limit(), bounds.offset())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list transactions: failed to query history for user %d: %w", userID, err)
	}
	return newPage(bounds, items, total), nil
}

// AdjustBalance applies an ADMIN_ADJUST transaction. It may take the balance below the floor.
func (s *ledgerService) AdjustBalance(ctx context.Context, userID, amount int64, notes string) (*domain.Transaction, error) {
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return nil, fmt.Errorf("%w: admin adjustments require notes", util.ErrInvalidInput)
	}
	return s.ApplyTransaction(ctx, userID, domain.TransactionTypeAdminAdjust, amount, &notes, nil)
}

// AdminAdjust is the administration entry point for AdjustBalance.
func (s *ledgerService) AdminAdjust(ctx context.Context, userID, amount int64, notes string) (*domain.Transaction, error) {
	return s.AdjustBalance(ctx, userID, amount, notes)
}

// CreditForPayment records a completed package purchase as a RECHARGE.
// The package must exist, be active and grant exactly amount coins.
func (s *ledgerService) CreditForPayment(ctx context.Context, userID, packageID, amount int64) (*domain.Transaction, error) {
	if userID <= 0 || packageID <= 0 {
		return nil, fmt.Errorf("%w: user id and package id must be positive", util.ErrInvalidInput)
	}
	if amount <= 0 {
		return nil, fmt.Errorf("%w: recharge amount must be positive", util.ErrInvalidAmount)
	}

	var transaction *domain.Transaction
	err := s.uow.run(ctx, "credit for payment", func(ctx context.Context, q repository.DBExecutor) error {
		pkg, err := s.packageRepo.GetPackageByID(ctx, q, packageID)
		if err != nil {
			return fmt.Errorf("credit for payment: failed to get package %d: %w", packageID, err)
		}
		if !pkg.IsActive {
			return fmt.Errorf("%w: package %d is not active", util.ErrInvalidInput, packageID)
		}
		if pkg.TCoins != amount {
			return fmt.Errorf("%w: package %d grants %d tcoins, got %d", util.ErrInvalidAmount, packageID, pkg.TCoins, amount)
		}

		notes := "Recharge: " + pkg.Name
		reference := "package:" + strconv.FormatInt(pkg.ID, 10)
		t, err := s.ledger.apply(ctx, q, userID, domain.TransactionTypeRecharge, amount, &notes, &reference)
		if err != nil {
			return err
		}
		transaction = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordApplied(transaction)
	return transaction, nil
}

// DebitForConsumption charges a content job. Either sign is accepted; the
// magnitude of amount is debited.
func (s *ledgerService) DebitForConsumption(ctx context.Context, userID, amount int64, jobReference string) (*domain.Transaction, error) {
	if amount == 0 || amount == math.MinInt64 {
		return nil, fmt.Errorf("%w: invalid consumption amount %d", util.ErrInvalidAmount, amount)
	}
	if amount > 0 {
		amount = -amount
	}
	notes := "Content consumption"
	return s.ApplyTransaction(ctx, userID, domain.TransactionTypeConsumption, amount, &notes, optionalString(jobReference))
}

// RefundConsumption returns coins for a failed or cancelled content job.
func (s *ledgerService) RefundConsumption(ctx context.Context, userID, amount int64, jobReference string) (*domain.Transaction, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: refund amount must be positive", util.ErrInvalidAmount)
	}
	notes := "Consumption refund"
	return s.ApplyTransaction(ctx, userID, domain.TransactionTypeRefund, amount, &notes, optionalString(jobReference))
}

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
