// internal/util/errors.go
package util

import "errors"

// Ledger errors.
var (
	ErrNotFound            = errors.New("resource not found")
	ErrInvalidInput        = errors.New("invalid input provided")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrStorageUnavailable  = errors.New("storage unavailable")
)

// Voucher errors. Everything here is terminal for the caller; none of them is retried.
var (
	ErrInvalidFormat         = errors.New("invalid voucher code format")
	ErrAuthenticationFailed  = errors.New("voucher code failed authentication")
	ErrPayloadTooLarge       = errors.New("voucher payload does not fit in a code")
	ErrInvalidValidityWindow = errors.New("invalid voucher validity window")
	ErrInvalidOrExpiredCode  = errors.New("invalid or expired voucher code")
	ErrCodeNotYetValid       = errors.New("voucher code is not yet valid")
	ErrCodeExpired           = errors.New("voucher code has expired")
	ErrAlreadyRedeemed       = errors.New("voucher code has already been redeemed")
	ErrAlreadyUsed           = errors.New("voucher has been used and cannot be deleted")
	ErrDuplicateCode         = errors.New("voucher code already exists")
	ErrTooManyAttempts       = errors.New("too many failed redemption attempts")
)

// IsError reports whether err matches target anywhere in its chain.
func IsError(err, target error) bool {
	return errors.Is(err, target)
}
