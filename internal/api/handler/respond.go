// internal/api/handler/respond.go
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"tcoin-wallet/internal/util"
)

// DefaultTimeout bounds every request. Ledger units of work that already
// started are not cut short by it.
const DefaultTimeout = 15 * time.Second

// errorStatus maps service sentinels to HTTP status codes. Order matters:
// the first sentinel found in the error chain wins.
var errorStatus = []struct {
	err    error
	status int
}{
	{util.ErrInvalidInput, http.StatusBadRequest},
	{util.ErrInvalidAmount, http.StatusBadRequest},
	{util.ErrInvalidFormat, http.StatusBadRequest},
	{util.ErrInvalidOrExpiredCode, http.StatusBadRequest},
	{util.ErrInvalidValidityWindow, http.StatusBadRequest},
	{util.ErrPayloadTooLarge, http.StatusBadRequest},
	{util.ErrInsufficientBalance, http.StatusPaymentRequired},
	{util.ErrNotFound, http.StatusNotFound},
	{util.ErrDuplicateCode, http.StatusConflict},
	{util.ErrAlreadyUsed, http.StatusConflict},
	{util.ErrAlreadyRedeemed, http.StatusConflict},
	{util.ErrCodeExpired, http.StatusGone},
	{util.ErrCodeNotYetValid, http.StatusUnprocessableEntity},
	{util.ErrTooManyAttempts, http.StatusTooManyRequests},
	{util.ErrStorageUnavailable, http.StatusServiceUnavailable},
}

// responder carries the response helpers shared by all handlers.
type responder struct {
	logger *logrus.Logger
}

func (h responder) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		h.logger.WithError(err).Error("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

// respondWithError writes the mapped status. Only the sentinel text reaches
// the client, except for invalid input where the detail is useful.
func (h responder) respondWithError(w http.ResponseWriter, err error) {
	// A forged code looks the same as an unknown one from the outside.
	if errors.Is(err, util.ErrAuthenticationFailed) {
		err = util.ErrInvalidOrExpiredCode
	}

	statusCode := http.StatusInternalServerError
	message := "Internal server error"
	for _, m := range errorStatus {
		if util.IsError(err, m.err) {
			statusCode = m.status
			message = m.err.Error()
			if m.err == util.ErrInvalidInput {
				message = err.Error()
			}
			break
		}
	}

	switch {
	case statusCode == http.StatusInternalServerError:
		h.logger.WithError(err).Error("Unhandled service error")
	case statusCode == http.StatusServiceUnavailable:
		h.logger.WithError(err).Warn("Storage unavailable")
	}

	h.respondWithJSON(w, statusCode, map[string]string{"error": message})
}

// pathID parses a positive integer URL parameter.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", util.ErrInvalidInput, name)
	}
	return id, nil
}

// queryInt parses an optional integer query parameter. Absent means 0.
func queryInt(r *http.Request, name string) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", util.ErrInvalidInput, name)
	}
	return v, nil
}

// queryTime parses an optional RFC 3339 query parameter.
func queryTime(r *http.Request, name string) (*time.Time, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be an RFC 3339 timestamp", util.ErrInvalidInput, name)
	}
	return &t, nil
}
