// internal/api/handler/admin.go
package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"tcoin-wallet/internal/api/types"
	"tcoin-wallet/internal/domain"
	"tcoin-wallet/internal/service"
	"tcoin-wallet/internal/util"
)

// AdminHandler serves balance adjustments and voucher management.
type AdminHandler struct {
	responder
	ledger   service.LedgerService
	vouchers service.VoucherService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(ledger service.LedgerService, vouchers service.VoucherService, logger *logrus.Logger) *AdminHandler {
	return &AdminHandler{
		responder: responder{logger: logger},
		ledger:    ledger,
		vouchers:  vouchers,
	}
}

// AdjustRequest is a manual balance correction. Notes are mandatory.
type AdjustRequest struct {
	Amount int64  `json:"amount" validate:"ne=0"`
	Notes  string `json:"notes" validate:"required,max=500"`
}

// AdjustBalance applies an ADMIN_ADJUST transaction.
// POST /admin/users/{userID}/adjust
func (h *AdminHandler) AdjustBalance(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	var req AdjustRequest
	if !h.bind(w, r, &req) {
		return
	}

	tx, err := h.ledger.AdminAdjust(r.Context(), userID, req.Amount, req.Notes)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"user_id":        userID,
		"amount":         req.Amount,
		"transaction_id": tx.ID,
	}).Warn("Admin balance adjustment applied")

	h.respondWithJSON(w, http.StatusCreated, types.TransactionResponse{
		Message:     "Balance adjusted",
		Transaction: tx,
		NewBalance:  tx.BalanceAfter,
	})
}

// CreateVoucherRequest registers a voucher. An empty code is generated.
type CreateVoucherRequest struct {
	Code       string     `json:"code" validate:"omitempty,max=64"`
	TCoins     int64      `json:"tcoins" validate:"gte=1"`
	ValidFrom  *time.Time `json:"valid_from"`
	ValidUntil *time.Time `json:"valid_until"`
	Notes      *string    `json:"notes" validate:"omitempty,max=500"`
}

// CreateVoucher registers a voucher in the store.
// POST /admin/vouchers
func (h *AdminHandler) CreateVoucher(w http.ResponseWriter, r *http.Request) {
	var req CreateVoucherRequest
	if !h.bind(w, r, &req) {
		return
	}

	v, err := h.vouchers.Create(r.Context(), service.CreateVoucherParams{
		Code:       req.Code,
		TCoins:     req.TCoins,
		ValidFrom:  req.ValidFrom,
		ValidUntil: req.ValidUntil,
		Notes:      req.Notes,
	})
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusCreated, v)
}

// IssueVoucherRequest asks for a self-describing code. Nothing is stored.
// Bounds must be 00:00 UTC.
type IssueVoucherRequest struct {
	TCoins     int64      `json:"tcoins" validate:"gte=1"`
	ValidFrom  *time.Time `json:"valid_from"`
	ValidUntil *time.Time `json:"valid_until"`
}

// IssueVoucher encodes a self-describing voucher code.
// POST /admin/vouchers/issue
func (h *AdminHandler) IssueVoucher(w http.ResponseWriter, r *http.Request) {
	var req IssueVoucherRequest
	if !h.bind(w, r, &req) {
		return
	}

	issued, err := h.vouchers.Issue(r.Context(), req.TCoins, req.ValidFrom, req.ValidUntil)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusCreated, issued)
}

// ListVouchers pages through registered vouchers.
// GET /admin/vouchers?page=&page_size=&used=
func (h *AdminHandler) ListVouchers(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page")
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	pageSize, err := queryInt(r, "page_size")
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	var used *bool
	if s := r.URL.Query().Get("used"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			h.respondWithError(w, fmt.Errorf("%w: used must be true or false", util.ErrInvalidInput))
			return
		}
		used = &b
	}

	result, err := h.vouchers.List(r.Context(), page, pageSize, used)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, types.PaginatedResponse[domain.Voucher]{
		Data:       result.Items,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalCount: result.TotalCount,
	})
}

// GetVoucher looks a registered voucher up by code.
// GET /admin/vouchers/{voucher}
func (h *AdminHandler) GetVoucher(w http.ResponseWriter, r *http.Request) {
	v, err := h.vouchers.Get(r.Context(), chi.URLParam(r, "voucher"))
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, v)
}

// DeleteVoucher removes an unused registered voucher by id.
// DELETE /admin/vouchers/{voucher}
func (h *AdminHandler) DeleteVoucher(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "voucher")
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	if err := h.vouchers.Delete(r.Context(), id); err != nil {
		h.respondWithError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
