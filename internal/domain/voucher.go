// internal/domain/voucher.go
package domain

import "time"

// Voucher is an admin-issued, explicitly stored voucher code.
type Voucher struct {
	ID           int64      `db:"id" json:"id"`
	Code         string     `db:"code" json:"code"`
	TCoins       int64      `db:"tcoins" json:"tcoins"`
	IsUsed       bool       `db:"is_used" json:"is_used"`
	UsedAt       *time.Time `db:"used_at" json:"used_at,omitempty"`
	UsedByUserID *int64     `db:"used_by_user_id" json:"used_by_user_id,omitempty"`
	ValidFrom    *time.Time `db:"valid_from" json:"valid_from,omitempty"`
	ValidUntil   *time.Time `db:"valid_until" json:"valid_until,omitempty"`
	Notes        *string    `db:"notes" json:"notes,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}

// NewVoucher creates a new unused Voucher instance.
func NewVoucher(code string, tcoins int64, validFrom, validUntil *time.Time, notes *string) *Voucher {
	return &Voucher{
		Code:       code,
		TCoins:     tcoins,
		ValidFrom:  validFrom,
		ValidUntil: validUntil,
		Notes:      notes,
		CreatedAt:  time.Now().UTC(),
	}
}

// VoucherRedemption is the exclusivity marker for a redeemed self-describing code.
type VoucherRedemption struct {
	Fingerprint string    `db:"fingerprint" json:"fingerprint"`
	UserID      int64     `db:"user_id" json:"user_id"`
	TCoins      int64     `db:"tcoins" json:"tcoins"`
	KeyID       uint8     `db:"key_id" json:"key_id"`
	RedeemedAt  time.Time `db:"redeemed_at" json:"redeemed_at"`
}
