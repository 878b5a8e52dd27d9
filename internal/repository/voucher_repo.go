// internal/repository/voucher_repo.go
package repository

import (
	"context"
	"time"

	"tcoin-wallet/internal/domain"
)

// VoucherRepository covers registered vouchers and the exclusivity markers of
// self-describing ones.
type VoucherRepository interface {
	CreateVoucher(ctx context.Context, q DBExecutor, voucher *domain.Voucher) error
	GetVoucherByCode(ctx context.Context, q DBExecutor, code string) (*domain.Voucher, error)
	ListVouchers(ctx context.Context, q DBExecutor, used *bool, limit, offset int) ([]domain.Voucher, int64, error)
	// DeleteUnusedVoucher removes a voucher that has never been redeemed and returns its code.
	DeleteUnusedVoucher(ctx context.Context, q DBExecutor, id int64) (string, error)
	// MarkVoucherUsed flips is_used only if it is still false. It is the
	// exclusivity gate for registered vouchers.
	MarkVoucherUsed(ctx context.Context, q DBExecutor, code string, userID int64, usedAt time.Time) (*domain.Voucher, error)
	// ClaimRedemption inserts the marker for a self-describing code, failing
	// with util.ErrAlreadyRedeemed when one already exists.
	ClaimRedemption(ctx context.Context, q DBExecutor, redemption *domain.VoucherRedemption) error
	RedemptionExists(ctx context.Context, q DBExecutor, fingerprint string) (bool, error)
}
