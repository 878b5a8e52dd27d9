// internal/api/handler/internal.go
package handler

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"tcoin-wallet/internal/api/types"
	"tcoin-wallet/internal/service"
)

// InternalHandler serves the endpoints called by the payment and content
// services. They are not exposed to end users.
type InternalHandler struct {
	responder
	ledger service.LedgerService
}

// NewInternalHandler creates a new InternalHandler.
func NewInternalHandler(ledger service.LedgerService, logger *logrus.Logger) *InternalHandler {
	return &InternalHandler{
		responder: responder{logger: logger},
		ledger:    ledger,
	}
}

// CreditRequest is sent once a package payment has settled.
type CreditRequest struct {
	UserID    int64 `json:"user_id" validate:"gt=0"`
	PackageID int64 `json:"package_id" validate:"gt=0"`
	Amount    int64 `json:"amount" validate:"gt=0"`
}

// CreditForPayment handles a settled recharge.
// POST /internal/payments/credit
func (h *InternalHandler) CreditForPayment(w http.ResponseWriter, r *http.Request) {
	var req CreditRequest
	if !h.bind(w, r, &req) {
		return
	}

	tx, err := h.ledger.CreditForPayment(r.Context(), req.UserID, req.PackageID, req.Amount)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusCreated, types.TransactionResponse{
		Message:     "Recharge credited",
		Transaction: tx,
		NewBalance:  tx.BalanceAfter,
	})
}

// ConsumptionRequest charges or refunds a content generation job.
type ConsumptionRequest struct {
	UserID       int64  `json:"user_id" validate:"gt=0"`
	Amount       int64  `json:"amount" validate:"ne=0"`
	JobReference string `json:"job_reference" validate:"required,max=128"`
}

// DebitForConsumption charges a job. A positive cost and a negative delta are both accepted.
// POST /internal/consumption/debit
func (h *InternalHandler) DebitForConsumption(w http.ResponseWriter, r *http.Request) {
	var req ConsumptionRequest
	if !h.bind(w, r, &req) {
		return
	}

	tx, err := h.ledger.DebitForConsumption(r.Context(), req.UserID, req.Amount, req.JobReference)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusCreated, types.TransactionResponse{
		Message:     "Consumption debited",
		Transaction: tx,
		NewBalance:  tx.BalanceAfter,
	})
}

// RefundConsumption returns coins for a failed job.
// POST /internal/consumption/refund
func (h *InternalHandler) RefundConsumption(w http.ResponseWriter, r *http.Request) {
	var req ConsumptionRequest
	if !h.bind(w, r, &req) {
		return
	}

	tx, err := h.ledger.RefundConsumption(r.Context(), req.UserID, req.Amount, req.JobReference)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusCreated, types.TransactionResponse{
		Message:     "Consumption refunded",
		Transaction: tx,
		NewBalance:  tx.BalanceAfter,
	})
}
