// internal/repository/postgres/voucher_pg.go
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
	"tcoin-wallet/pkg/db"
)

const voucherColumns = `id, code, tcoins, is_used, used_at, used_by_user_id, valid_from, valid_until, notes, created_at`

// VoucherRepository implements repository.VoucherRepository for PostgreSQL.
type VoucherRepository struct{}

// NewVoucherRepository creates a new VoucherRepository.
func NewVoucherRepository() repository.VoucherRepository {
	return &VoucherRepository{}
}

// CreateVoucher inserts a registered voucher. A taken code maps to util.ErrDuplicateCode.
func (r *VoucherRepository) CreateVoucher(ctx context.Context, q repository.DBExecutor, voucher *domain.Voucher) error {
	query := `INSERT INTO vouchers (code, tcoins, valid_from, valid_until, notes, created_at)
              VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	err := q.QueryRowContext(ctx, query,
		voucher.Code,
		voucher.TCoins,
		voucher.ValidFrom,
		voucher.ValidUntil,
		voucher.Notes,
		voucher.CreatedAt,
	).Scan(&voucher.ID)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return util.ErrDuplicateCode
		}
		return fmt.Errorf("failed to create voucher: %w", err)
	}
	return nil
}

// GetVoucherByCode retrieves a registered voucher by its code.
func (r *VoucherRepository) GetVoucherByCode(ctx context.Context, q repository.DBExecutor, code string) (*domain.Voucher, error) {
	var voucher domain.Voucher
	query := `SELECT ` + voucherColumns + ` FROM vouchers WHERE code = $1`
	if err := q.GetContext(ctx, &voucher, query, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, util.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get voucher: %w", err)
	}
	return &voucher, nil
}

// ListVouchers returns a page of registered vouchers, newest first, optionally filtered by used state.
func (r *VoucherRepository) ListVouchers(ctx context.Context, q repository.DBExecutor, used *bool, limit, offset int) ([]domain.Voucher, int64, error) {
	vouchers := []domain.Voucher{}
	query := `SELECT ` + voucherColumns + ` FROM vouchers
		WHERE ($1::boolean IS NULL OR is_used = $1)
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`
	if err := q.SelectContext(ctx, &vouchers, query, used, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("failed to list vouchers: %w", err)
	}

	var totalCount int64
	countQuery := `SELECT COUNT(*) FROM vouchers WHERE ($1::boolean IS NULL OR is_used = $1)`
	if err := q.GetContext(ctx, &totalCount, countQuery, used); err != nil {
		return nil, 0, fmt.Errorf("failed to count vouchers: %w", err)
	}
	return vouchers, totalCount, nil
}

// DeleteUnusedVoucher deletes a voucher only while it is unused and returns
// its code. Used vouchers stay as audit records and yield util.ErrAlreadyUsed.
func (r *VoucherRepository) DeleteUnusedVoucher(ctx context.Context, q repository.DBExecutor, id int64) (string, error) {
	var code string
	err := q.GetContext(ctx, &code, `DELETE FROM vouchers WHERE id = $1 AND is_used = FALSE RETURNING code`, id)
	if err == nil {
		return code, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("failed to delete voucher %d: %w", id, err)
	}

	var isUsed bool
	if err := q.GetContext(ctx, &isUsed, `SELECT is_used FROM vouchers WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", util.ErrNotFound
		}
		return "", fmt.Errorf("failed to check voucher %d: %w", id, err)
	}
	return "", util.ErrAlreadyUsed
}

// MarkVoucherUsed is a conditional update: only the first caller sees a row come back.
func (r *VoucherRepository) MarkVoucherUsed(ctx context.Context, q repository.DBExecutor, code string, userID int64, usedAt time.Time) (*domain.Voucher, error) {
	var voucher domain.Voucher
	query := `UPDATE vouchers SET is_used = TRUE, used_at = $2, used_by_user_id = $3
              WHERE code = $1 AND is_used = FALSE
              RETURNING ` + voucherColumns
	if err := q.GetContext(ctx, &voucher, query, code, usedAt, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, util.ErrAlreadyRedeemed
		}
		return nil, fmt.Errorf("failed to mark voucher used: %w", err)
	}
	return &voucher, nil
}

// ClaimRedemption records the exclusivity marker of a self-describing code.
func (r *VoucherRepository) ClaimRedemption(ctx context.Context, q repository.DBExecutor, redemption *domain.VoucherRedemption) error {
	query := `INSERT INTO voucher_redemptions (fingerprint, user_id, tcoins, key_id, redeemed_at)
              VALUES ($1, $2, $3, $4, $5) ON CONFLICT (fingerprint) DO NOTHING`
	result, err := q.ExecContext(ctx, query,
		redemption.Fingerprint,
		redemption.UserID,
		redemption.TCoins,
		int16(redemption.KeyID),
		redemption.RedeemedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to claim voucher redemption: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected after claiming redemption: %w", err)
	}
	if rowsAffected == 0 {
		return util.ErrAlreadyRedeemed
	}
	return nil
}

// RedemptionExists reports whether a fingerprint already carries a marker.
func (r *VoucherRepository) RedemptionExists(ctx context.Context, q repository.DBExecutor, fingerprint string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM voucher_redemptions WHERE fingerprint = $1)`
	if err := q.GetContext(ctx, &exists, query, fingerprint); err != nil {
		return false, fmt.Errorf("failed to check voucher redemption: %w", err)
	}
	return exists, nil
}
