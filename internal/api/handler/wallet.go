// internal/api/handler/wallet.go
package handler

import (
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"tcoin-wallet/internal/api/types"
	"tcoin-wallet/internal/domain"
	"tcoin-wallet/internal/service"
	"tcoin-wallet/internal/util"
)

// WalletHandler serves the user-facing wallet endpoints.
type WalletHandler struct {
	responder
	ledger     service.LedgerService
	redemption service.RedemptionService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(ledger service.LedgerService, redemption service.RedemptionService, logger *logrus.Logger) *WalletHandler {
	return &WalletHandler{
		responder:  responder{logger: logger},
		ledger:     ledger,
		redemption: redemption,
	}
}

// GetWallet returns the user's balance. A user without a wallet has 0.
// GET /users/{userID}/wallet
func (h *WalletHandler) GetWallet(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	wallet, err := h.ledger.GetWallet(r.Context(), userID)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, types.WalletResponse{UserID: wallet.UserID, Balance: wallet.Balance})
}

// ListTransactions returns the user's history, newest first.
// GET /users/{userID}/transactions?page=&page_size=&type=&from=&to=
func (h *WalletHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		h.respondWithError(w, err)
		return
	}
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

	var filter domain.TransactionFilter
	if t := r.URL.Query().Get("type"); t != "" {
		filter.Type = domain.TransactionType(t)
		if !filter.Type.Valid() {
			h.respondWithError(w, fmt.Errorf("%w: unknown transaction type %q", util.ErrInvalidInput, t))
			return
		}
	}
	if filter.CreatedAfter, err = queryTime(r, "from"); err != nil {
		h.respondWithError(w, err)
		return
	}
	if filter.CreatedBefore, err = queryTime(r, "to"); err != nil {
		h.respondWithError(w, err)
		return
	}

	result, err := h.ledger.ListTransactions(r.Context(), userID, page, pageSize, filter)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, types.PaginatedResponse[domain.Transaction]{
		Data:       result.Items,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalCount: result.TotalCount,
	})
}

// RedeemRequest represents the request body for a voucher redemption.
type RedeemRequest struct {
	Code string `json:"code" validate:"required,max=64"`
}

// Redeem credits the user with the value of a voucher code.
// POST /users/{userID}/redeem
func (h *WalletHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	var req RedeemRequest
	if !h.bind(w, r, &req) {
		return
	}

	tx, err := h.redemption.Redeem(r.Context(), req.Code, userID)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, types.TransactionResponse{
		Message:     "Voucher redeemed",
		Transaction: tx,
		NewBalance:  tx.BalanceAfter,
	})
}
