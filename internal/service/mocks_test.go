// internal/service/mocks_test.go
package service

import (
	"context"
	"database/sql"
	"io"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"

	"tcoin-wallet/internal/domain"
	"tcoin-wallet/internal/repository"
	"tcoin-wallet/pkg/db"
)

// MockDBExecutor is a mock implementation of repository.DBExecutor.
type MockDBExecutor struct {
	mock.Mock
}

func (m *MockDBExecutor) GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	argsCalled := m.Called(ctx, dest, query, args)
	return argsCalled.Error(0)
}

func (m *MockDBExecutor) SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	argsCalled := m.Called(ctx, dest, query, args)
	return argsCalled.Error(0)
}

func (m *MockDBExecutor) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	argsCalled := m.Called(ctx, query, args)
	return argsCalled.Get(0).(sql.Result), argsCalled.Error(1)
}

func (m *MockDBExecutor) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	m.Called(ctx, query, args)
	return &sql.Row{}
}

// MockWalletRepository is a mock implementation of repository.WalletRepository.
type MockWalletRepository struct {
	mock.Mock
}

func (m *MockWalletRepository) EnsureWallet(ctx context.Context, q repository.DBExecutor, userID int64) error {
	args := m.Called(ctx, q, userID)
	return args.Error(0)
}

func (m *MockWalletRepository) GetWalletByUserID(ctx context.Context, q repository.DBExecutor, userID int64) (*domain.Wallet, error) {
	args := m.Called(ctx, q, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Wallet), args.Error(1)
}

func (m *MockWalletRepository) GetWalletForUpdate(ctx context.Context, q repository.DBExecutor, userID int64) (*domain.Wallet, error) {
	args := m.Called(ctx, q, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Wallet), args.Error(1)
}

func (m *MockWalletRepository) UpdateWalletBalance(ctx context.Context, q repository.DBExecutor, userID, balance int64, updatedAt time.Time) error {
	args := m.Called(ctx, q, userID, balance, updatedAt)
	return args.Error(0)
}

// MockTransactionRepository is a mock implementation of repository.TransactionRepository.
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) CreateTransaction(ctx context.Context, q repository.DBExecutor, transaction *domain.Transaction) error {
	args := m.Called(ctx, q, transaction)
	return args.Error(0)
}

func (m *MockTransactionRepository) ListTransactionsByUserID(ctx context.Context, q repository.DBExecutor, userID int64, filter domain.TransactionFilter, limit, offset int) ([]domain.Transaction, int64, error) {
	args := m.Called(ctx, q, userID, filter, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]domain.Transaction), args.Get(1).(int64), args.Error(2)
}

func (m *MockTransactionRepository) FindBalanceMismatches(ctx context.Context, q repository.DBExecutor) ([]domain.BalanceAudit, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.BalanceAudit), args.Error(1)
}

// MockPackageRepository is a mock implementation of repository.PackageRepository.
type MockPackageRepository struct {
	mock.Mock
}

func (m *MockPackageRepository) GetPackageByID(ctx context.Context, q repository.DBExecutor, id int64) (*domain.RechargePackage, error) {
	args := m.Called(ctx, q, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RechargePackage), args.Error(1)
}

// MockVoucherRepository is a mock implementation of repository.VoucherRepository.
type MockVoucherRepository struct {
	mock.Mock
}

func (m *MockVoucherRepository) CreateVoucher(ctx context.Context, q repository.DBExecutor, voucher *domain.Voucher) error {
	args := m.Called(ctx, q, voucher)
	return args.Error(0)
}

func (m *MockVoucherRepository) GetVoucherByCode(ctx context.Context, q repository.DBExecutor, code string) (*domain.Voucher, error) {
	args := m.Called(ctx, q, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Voucher), args.Error(1)
}

func (m *MockVoucherRepository) ListVouchers(ctx context.Context, q repository.DBExecutor, used *bool, limit, offset int) ([]domain.Voucher, int64, error) {
	args := m.Called(ctx, q, used, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]domain.Voucher), args.Get(1).(int64), args.Error(2)
}

func (m *MockVoucherRepository) DeleteUnusedVoucher(ctx context.Context, q repository.DBExecutor, id int64) (string, error) {
	args := m.Called(ctx, q, id)
	return args.String(0), args.Error(1)
}

func (m *MockVoucherRepository) MarkVoucherUsed(ctx context.Context, q repository.DBExecutor, code string, userID int64, usedAt time.Time) (*domain.Voucher, error) {
	args := m.Called(ctx, q, code, userID, usedAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Voucher), args.Error(1)
}

func (m *MockVoucherRepository) ClaimRedemption(ctx context.Context, q repository.DBExecutor, redemption *domain.VoucherRedemption) error {
	args := m.Called(ctx, q, redemption)
	return args.Error(0)
}

func (m *MockVoucherRepository) RedemptionExists(ctx context.Context, q repository.DBExecutor, fingerprint string) (bool, error) {
	args := m.Called(ctx, q, fingerprint)
	return args.Bool(0), args.Error(1)
}

// MockDBBeginner is a mock implementation of db.DBTxBeginner.
type MockDBBeginner struct {
	mock.Mock
}

func (m *MockDBBeginner) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	args := m.Called(ctx, opts)
	return &sqlx.Tx{}, args.Error(1)
}

// MockTxController is a mock implementation of db.TxController.
// It also implements repository.DBExecutor by embedding MockDBExecutor.
type MockTxController struct {
	mock.Mock
	MockDBExecutor
}

func (m *MockTxController) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockTxController) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

// mockTxFuncs routes the injected lifecycle functions to mockTx.
func mockTxFuncs(mockTx *MockTxController) TxFuncs {
	return TxFuncs{
		Begin: func(ctx context.Context, dbConn db.DBTxBeginner) (db.TxController, error) {
			return mockTx, nil
		},
		Commit: func(tx db.TxController) error {
			return mockTx.Commit()
		},
		Rollback: func(tx db.TxController) {
			_ = mockTx.Rollback()
		},
	}
}

// MockGuard is a mock implementation of AttemptGuard.
type MockGuard struct {
	mock.Mock
}

func (m *MockGuard) Allow(ctx context.Context, userID int64) bool {
	args := m.Called(ctx, userID)
	return args.Bool(0)
}

func (m *MockGuard) RecordFailure(ctx context.Context, userID int64) {
	m.Called(ctx, userID)
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
