// internal/service/redemption_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"tcoin-wallet/internal/domain"
	"tcoin-wallet/internal/metrics"
	"tcoin-wallet/internal/repository"
	"tcoin-wallet/internal/util"
	"tcoin-wallet/internal/voucher"
	"tcoin-wallet/pkg/db"
)

// RedemptionService turns a voucher code into a RECHARGE transaction.
type RedemptionService interface {
	Redeem(ctx context.Context, code string, userID int64) (*domain.Transaction, error)
}

// AttemptGuard throttles users who keep submitting bad codes.
type AttemptGuard interface {
	Allow(ctx context.Context, userID int64) bool
	RecordFailure(ctx context.Context, userID int64)
}

type voucherKind string

const (
	voucherKindRegistered voucherKind = "registered"
	voucherKindEncoded    voucherKind = "encoded"
	voucherKindUnknown    voucherKind = "unknown"
)

// voucherSource is a resolved voucher of either kind. Registered vouchers
// are claimed by flipping their row; encoded ones by inserting a marker. A
// registered code that also decodes is claimed both ways.
type voucherSource struct {
	kind       voucherKind
	code       string
	tcoins     int64
	validFrom  *time.Time
	validUntil *time.Time
	keyID      uint8
	decodes    bool
}

func (v voucherSource) claim(ctx context.Context, q repository.DBExecutor, repo repository.VoucherRepository, userID int64, now time.Time) error {
	switch v.kind {
	case voucherKindRegistered:
		if _, err := repo.MarkVoucherUsed(ctx, q, v.code, userID, now); err != nil {
			return err
		}
		if !v.decodes {
			return nil
		}
	case voucherKindEncoded:
	default:
		return fmt.Errorf("unknown voucher kind %q", v.kind)
	}
	return repo.ClaimRedemption(ctx, q, &domain.VoucherRedemption{
		Fingerprint: voucher.Fingerprint(v.code),
		UserID:      userID,
		TCoins:      v.tcoins,
		KeyID:       v.keyID,
		RedeemedAt:  now,
	})
}

func (v voucherSource) reference() string {
	if v.kind == voucherKindEncoded {
		return "voucher:" + voucher.Fingerprint(v.code)
	}
	return "voucher:" + v.code
}

// redemptionService implements the RedemptionService interface.
type redemptionService struct {
	dbExecutor  repository.DBExecutor
	uow         *unitOfWork
	ledger      *ledger
	voucherRepo repository.VoucherRepository
	codec       *voucher.Codec
	guard       AttemptGuard
	logger      *logrus.Logger
	now         func() time.Time
}

// NewRedemptionService creates a new instance of RedemptionService.
func NewRedemptionService(
	dbBeginner db.DBTxBeginner,
	dbExecutor repository.DBExecutor,
	walletRepo repository.WalletRepository,
	transactionRepo repository.TransactionRepository,
	voucherRepo repository.VoucherRepository,
	codec *voucher.Codec,
	guard AttemptGuard,
	tx TxFuncs,
	opts LedgerOptions,
	logger *logrus.Logger,
) RedemptionService {
	return &redemptionService{
		dbExecutor: dbExecutor,
		uow:        &unitOfWork{dbBeginner: dbBeginner, tx: tx, retryAttempts: opts.RetryAttempts},
		ledger: &ledger{
			walletRepo:      walletRepo,
			transactionRepo: transactionRepo,
			floor:           opts.BalanceFloor,
			now:             time.Now,
		},
		voucherRepo: voucherRepo,
		codec:       codec,
		guard:       guard,
		logger:      logger,
		now:         time.Now,
	}
}

// Redeem credits the voucher's value to the user exactly once. The claim on
// the voucher and the RECHARGE commit together or not at all.
func (s *redemptionService) Redeem(ctx context.Context, code string, userID int64) (*domain.Transaction, error) {
	code = strings.TrimSpace(code)
	if userID <= 0 {
		return nil, fmt.Errorf("%w: user id must be positive", util.ErrInvalidInput)
	}
	if !s.guard.Allow(ctx, userID) {
		metrics.RecordRedemption("throttled", string(voucherKindUnknown))
		return nil, util.ErrTooManyAttempts
	}
	if !voucher.ValidCode(code) {
		s.fail(ctx, userID, voucherKindUnknown, util.ErrInvalidFormat)
		return nil, util.ErrInvalidFormat
	}

	src, err := s.resolve(ctx, code, userID)
	if err != nil {
		s.fail(ctx, userID, voucherKindUnknown, err)
		return nil, err
	}

	now := s.now().UTC()
	if err := voucher.CheckWindow(src.validFrom, src.validUntil, now); err != nil {
		s.fail(ctx, userID, src.kind, err)
		return nil, err
	}

	var transaction *domain.Transaction
	err = s.uow.run(ctx, "redeem", func(ctx context.Context, q repository.DBExecutor) error {
		if err := src.claim(ctx, q, s.voucherRepo, userID, now); err != nil {
			return err
		}
		notes := "Voucher redemption"
		reference := src.reference()
		t, err := s.ledger.apply(ctx, q, userID, domain.TransactionTypeRecharge, src.tcoins, &notes, &reference)
		if err != nil {
			return err
		}
		transaction = t
		return nil
	})
	if err != nil {
		s.fail(ctx, userID, src.kind, err)
		if errors.Is(err, util.ErrAlreadyRedeemed) || errors.Is(err, util.ErrStorageUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("redeem: %w", err)
	}

	metrics.RecordRedemption("success", string(src.kind))
	metrics.RecordTransaction(string(transaction.Type))
	s.logger.WithFields(logrus.Fields{
		"user_id":        userID,
		"transaction_id": transaction.ID,
		"kind":           src.kind,
		"fingerprint":    voucher.Fingerprint(code),
		"tcoins":         src.tcoins,
	}).Info("Voucher redeemed")
	return transaction, nil
}

// resolve looks the code up in the registry first and falls back to decoding it.
func (s *redemptionService) resolve(ctx context.Context, code string, userID int64) (voucherSource, error) {
	var row *domain.Voucher
	err := s.uow.read(ctx, func() error {
		var err error
		row, err = s.voucherRepo.GetVoucherByCode(ctx, s.dbExecutor, code)
		return err
	})
	switch {
	case err == nil:
		if row.IsUsed {
			return voucherSource{}, util.ErrAlreadyRedeemed
		}
		src := voucherSource{
			kind:       voucherKindRegistered,
			code:       row.Code,
			tcoins:     row.TCoins,
			validFrom:  row.ValidFrom,
			validUntil: row.ValidUntil,
		}
		if _, err := s.codec.Decode(row.Code); err == nil {
			src.decodes = true
			src.keyID, _ = voucher.KeyID(row.Code)
		}
		return src, nil
	case !errors.Is(err, util.ErrNotFound):
		return voucherSource{}, fmt.Errorf("redeem: failed to look up voucher: %w", err)
	}

	p, err := s.codec.Decode(code)
	if err != nil {
		if errors.Is(err, util.ErrAuthenticationFailed) {
			metrics.RecordForgeryAttempt()
			s.logger.WithFields(logrus.Fields{
				"security_event": "voucher_forgery",
				"user_id":        userID,
				"fingerprint":    voucher.Fingerprint(code),
			}).Warn("Voucher code failed authentication")
		}
		return voucherSource{}, util.ErrInvalidOrExpiredCode
	}
	keyID, _ := voucher.KeyID(code)
	return voucherSource{
		kind:       voucherKindEncoded,
		code:       code,
		tcoins:     p.TCoins,
		validFrom:  p.ValidFrom,
		validUntil: p.ValidUntil,
		keyID:      keyID,
	}, nil
}

// fail records a failed attempt. Only errors a guesser can provoke count
// towards the guard; storage faults do not.
func (s *redemptionService) fail(ctx context.Context, userID int64, kind voucherKind, err error) {
	metrics.RecordRedemption(outcomeOf(err), string(kind))
	if errors.Is(err, util.ErrInvalidFormat) || errors.Is(err, util.ErrInvalidOrExpiredCode) {
		s.guard.RecordFailure(ctx, userID)
	}
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, util.ErrInvalidFormat):
		return "invalid_format"
	case errors.Is(err, util.ErrInvalidOrExpiredCode):
		return "invalid_code"
	case errors.Is(err, util.ErrAlreadyRedeemed):
		return "already_redeemed"
	case errors.Is(err, util.ErrCodeNotYetValid):
		return "not_yet_valid"
	case errors.Is(err, util.ErrCodeExpired):
		return "expired"
	case errors.Is(err, util.ErrStorageUnavailable):
		return "storage_unavailable"
	}
	return "error"
}
