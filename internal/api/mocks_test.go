// internal/api/mocks_test.go
package api_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"tcoin-wallet/internal/domain"
	"tcoin-wallet/internal/service"
)

// MockLedgerService is a mock implementation of service.LedgerService.
type MockLedgerService struct {
	mock.Mock
}

func (m *MockLedgerService) GetWallet(ctx context.Context, userID int64) (*domain.Wallet, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Wallet), args.Error(1)
}

func (m *MockLedgerService) ApplyTransaction(ctx context.Context, userID int64, txType domain.TransactionType, amount int64, notes, reference *string) (*domain.Transaction, error) {
	args := m.Called(ctx, userID, txType, amount, notes, reference)
	return transactionOrNil(args)
}

func (m *MockLedgerService) ListTransactions(ctx context.Context, userID int64, page, pageSize int, filter domain.TransactionFilter) (*service.Page[domain.Transaction], error) {
	args := m.Called(ctx, userID, page, pageSize, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Page[domain.Transaction]), args.Error(1)
}

func (m *MockLedgerService) AdjustBalance(ctx context.Context, userID, amount int64, notes string) (*domain.Transaction, error) {
	args := m.Called(ctx, userID, amount, notes)
	return transactionOrNil(args)
}

func (m *MockLedgerService) CreditForPayment(ctx context.Context, userID, packageID, amount int64) (*domain.Transaction, error) {
	args := m.Called(ctx, userID, packageID, amount)
	return transactionOrNil(args)
}

func (m *MockLedgerService) DebitForConsumption(ctx context.Context, userID, amount int64, jobReference string) (*domain.Transaction, error) {
	args := m.Called(ctx, userID, amount, jobReference)
	return transactionOrNil(args)
}

func (m *MockLedgerService) RefundConsumption(ctx context.Context, userID, amount int64, jobReference string) (*domain.Transaction, error) {
	args := m.Called(ctx, userID, amount, jobReference)
	return transactionOrNil(args)
}

func (m *MockLedgerService) AdminAdjust(ctx context.Context, userID, amount int64, notes string) (*domain.Transaction, error) {
	args := m.Called(ctx, userID, amount, notes)
	return transactionOrNil(args)
}

// MockRedemptionService is a mock implementation of service.RedemptionService.
type MockRedemptionService struct {
	mock.Mock
}

func (m *MockRedemptionService) Redeem(ctx context.Context, code string, userID int64) (*domain.Transaction, error) {
	args := m.Called(ctx, code, userID)
	return transactionOrNil(args)
}

// MockVoucherService is a mock implementation of service.VoucherService.
type MockVoucherService struct {
	mock.Mock
}

func (m *MockVoucherService) Create(ctx context.Context, params service.CreateVoucherParams) (*domain.Voucher, error) {
	args := m.Called(ctx, params)
	return voucherOrNil(args)
}

func (m *MockVoucherService) Get(ctx context.Context, code string) (*domain.Voucher, error) {
	args := m.Called(ctx, code)
	return voucherOrNil(args)
}

func (m *MockVoucherService) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockVoucherService) MarkUsed(ctx context.Context, code string, userID int64) (*domain.Voucher, error) {
	args := m.Called(ctx, code, userID)
	return voucherOrNil(args)
}

func (m *MockVoucherService) List(ctx context.Context, page, pageSize int, used *bool) (*service.Page[domain.Voucher], error) {
	args := m.Called(ctx, page, pageSize, used)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Page[domain.Voucher]), args.Error(1)
}

func (m *MockVoucherService) Issue(ctx context.Context, tcoins int64, validFrom, validUntil *time.Time) (*service.IssuedVoucher, error) {
	args := m.Called(ctx, tcoins, validFrom, validUntil)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.IssuedVoucher), args.Error(1)
}

func transactionOrNil(args mock.Arguments) (*domain.Transaction, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func voucherOrNil(args mock.Arguments) (*domain.Voucher, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Voucher), args.Error(1)
}
