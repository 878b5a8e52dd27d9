// internal/service/voucher_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"tcoin-wallet/internal/domain"
	"tcoin-wallet/internal/repository"
	"tcoin-wallet/internal/util"
	"tcoin-wallet/internal/voucher"
	"tcoin-wallet/pkg/db"
)

// VoucherService manages registered vouchers and issues self-describing ones.
type VoucherService interface {
	Create(ctx context.Context, params CreateVoucherParams) (*domain.Voucher, error)
	Get(ctx context.Context, code string) (*domain.Voucher, error)
	Delete(ctx context.Context, id int64) error
	MarkUsed(ctx context.Context, code string, userID int64) (*domain.Voucher, error)
	List(ctx context.Context, page, pageSize int, used *bool) (*Page[domain.Voucher], error)
	Issue(ctx context.Context, tcoins int64, validFrom, validUntil *time.Time) (*IssuedVoucher, error)
}

// CreateVoucherParams describes a registered voucher. An empty Code asks the
// service to generate one.
type CreateVoucherParams struct {
	Code       string
	TCoins     int64
	ValidFrom  *time.Time
	ValidUntil *time.Time
	Notes      *string
}

// IssuedVoucher is a self-describing code and the payload it decodes to.
type IssuedVoucher struct {
	Code       string     `json:"code"`
	TCoins     int64      `json:"tcoins"`
	ValidFrom  *time.Time `json:"valid_from,omitempty"`
	ValidUntil *time.Time `json:"valid_until,omitempty"`
	KeyID      uint8      `json:"key_id"`
}

// voucherService implements the VoucherService interface.
type voucherService struct {
	dbExecutor  repository.DBExecutor
	uow         *unitOfWork
	voucherRepo repository.VoucherRepository
	codec       *voucher.Codec
	logger      *logrus.Logger
	now         func() time.Time
}

// NewVoucherService creates a new instance of VoucherService.
func NewVoucherService(
	dbBeginner db.DBTxBeginner,
	dbExecutor repository.DBExecutor,
	voucherRepo repository.VoucherRepository,
	codec *voucher.Codec,
	tx TxFuncs,
	retryAttempts int,
	logger *logrus.Logger,
) VoucherService {
	return &voucherService{
		dbExecutor:  dbExecutor,
		uow:         &unitOfWork{dbBeginner: dbBeginner, tx: tx, retryAttempts: retryAttempts},
		voucherRepo: voucherRepo,
		codec:       codec,
		logger:      logger,
		now:         time.Now,
	}
}

// Create stores a registered voucher. Without an explicit code the payload is
// encoded into a self-describing code; when it does not fit, a random code is used.
func (s *voucherService) Create(ctx context.Context, params CreateVoucherParams) (*domain.Voucher, error) {
	if params.TCoins < 1 {
		return nil, fmt.Errorf("%w: tcoins must be at least 1", util.ErrInvalidAmount)
	}
	if params.ValidFrom != nil && params.ValidUntil != nil && params.ValidUntil.Before(*params.ValidFrom) {
		return nil, util.ErrInvalidValidityWindow
	}
	if params.Notes != nil && strings.TrimSpace(*params.Notes) == "" {
		params.Notes = nil
	}

	code := strings.TrimSpace(params.Code)
	if code != "" && !voucher.ValidCode(code) {
		return nil, fmt.Errorf("%w: %q", util.ErrInvalidFormat, code)
	}
	if code == "" {
		generated, err := s.generateCode(params)
		if err != nil {
			return nil, fmt.Errorf("create voucher: %w", err)
		}
		code = generated
	}

	// A self-describing code that was redeemed or revoked stays spent, even
	// when registered again.
	_, decodeErr := s.codec.Decode(code)
	v := domain.NewVoucher(code, params.TCoins, params.ValidFrom, params.ValidUntil, params.Notes)
	err := s.uow.read(ctx, func() error {
		if decodeErr == nil {
			spent, err := s.voucherRepo.RedemptionExists(ctx, s.dbExecutor, voucher.Fingerprint(code))
			if err != nil {
				return err
			}
			if spent {
				return util.ErrAlreadyRedeemed
			}
		}
		return s.voucherRepo.CreateVoucher(ctx, s.dbExecutor, v)
	})
	if err != nil {
		if errors.Is(err, util.ErrDuplicateCode) || errors.Is(err, util.ErrAlreadyRedeemed) {
			return nil, err
		}
		return nil, fmt.Errorf("create voucher: failed to store voucher: %w", err)
	}

	s.logger.WithFields(logrus.Fields{"voucher_id": v.ID, "tcoins": v.TCoins}).Info("Registered voucher created")
	return v, nil
}

func (s *voucherService) generateCode(params CreateVoucherParams) (string, error) {
	code, err := s.codec.Encode(voucher.Payload{
		TCoins:     params.TCoins,
		ValidFrom:  params.ValidFrom,
		ValidUntil: params.ValidUntil,
	})
	if err == nil {
		return code, nil
	}
	if !errors.Is(err, util.ErrPayloadTooLarge) && !errors.Is(err, util.ErrInvalidValidityWindow) {
		return "", err
	}
	return voucher.GenerateRandom(voucher.MaxCodeSymbols)
}

// Get returns the registered voucher with the given code.
func (s *voucherService) Get(ctx context.Context, code string) (*domain.Voucher, error) {
	if !voucher.ValidCode(code) {
		return nil, util.ErrInvalidFormat
	}
	var v *domain.Voucher
	err := s.uow.read(ctx, func() error {
		var err error
		v, err = s.voucherRepo.GetVoucherByCode(ctx, s.dbExecutor, code)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get voucher: %w", err)
	}
	return v, nil
}

// Delete removes an unused registered voucher. When its code is also a valid
// self-describing code, a marker is stored in the same transaction so the
// code cannot be redeemed through the codec path afterwards.
func (s *voucherService) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: voucher id must be positive", util.ErrInvalidInput)
	}
	return s.uow.run(ctx, "delete voucher", func(ctx context.Context, q repository.DBExecutor) error {
		code, err := s.voucherRepo.DeleteUnusedVoucher(ctx, q, id)
		if err != nil {
			return fmt.Errorf("delete voucher: %w", err)
		}
		p, err := s.codec.Decode(code)
		if err != nil {
			return nil
		}
		keyID, _ := voucher.KeyID(code)
		marker := &domain.VoucherRedemption{
			Fingerprint: voucher.Fingerprint(code),
			TCoins:      p.TCoins,
			KeyID:       keyID,
			RedeemedAt:  s.now().UTC(),
		}
		if err := s.voucherRepo.ClaimRedemption(ctx, q, marker); err != nil && !errors.Is(err, util.ErrAlreadyRedeemed) {
			return fmt.Errorf("delete voucher: failed to revoke code: %w", err)
		}
		return nil
	})
}

// MarkUsed flips a registered voucher to used outside of a redemption.
func (s *voucherService) MarkUsed(ctx context.Context, code string, userID int64) (*domain.Voucher, error) {
	if !voucher.ValidCode(code) {
		return nil, util.ErrInvalidFormat
	}
	var v *domain.Voucher
	err := s.uow.run(ctx, "mark voucher used", func(ctx context.Context, q repository.DBExecutor) error {
		if _, err := s.voucherRepo.GetVoucherByCode(ctx, q, code); err != nil {
			return err
		}
		var err error
		v, err = s.voucherRepo.MarkVoucherUsed(ctx, q, code, userID, s.now().UTC())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("mark voucher used: %w", err)
	}
	return v, nil
}

// List returns one page of registered vouchers, optionally filtered by used state.
func (s *voucherService) List(ctx context.Context, page, pageSize int, used *bool) (*Page[domain.Voucher], error) {
	bounds, err := newPageBounds(page, pageSize)
	if err != nil {
		return nil, err
	}
	var (
		items []domain.Voucher
		total int64
	)
	err = s.uow.read(ctx, func() error {
		var err error
		items, total, err = s.voucherRepo.ListVouchers(ctx, s.dbExecutor, used, bounds.limit(), bounds.offset())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list vouchers: %w", err)
	}
	return newPage(bounds, items, total), nil
}

// Issue encodes a self-describing voucher. Nothing is stored; the code is
// its own record until it is redeemed. Bounds must be 00:00 UTC.
func (s *voucherService) Issue(ctx context.Context, tcoins int64, validFrom, validUntil *time.Time) (*IssuedVoucher, error) {
	code, err := s.codec.Encode(voucher.Payload{TCoins: tcoins, ValidFrom: validFrom, ValidUntil: validUntil})
	if err != nil {
		return nil, fmt.Errorf("issue voucher: %w", err)
	}
	keyID, _ := voucher.KeyID(code)

	s.logger.WithFields(logrus.Fields{
		"fingerprint": voucher.Fingerprint(code),
		"tcoins":      tcoins,
		"key_id":      keyID,
	}).Info("Self-describing voucher issued")

	return &IssuedVoucher{
		Code:       code,
		TCoins:     tcoins,
		ValidFrom:  utcTime(validFrom),
		ValidUntil: utcTime(validUntil),
		KeyID:      keyID,
	}, nil
}

func utcTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
