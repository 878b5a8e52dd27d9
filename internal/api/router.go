// internal/api/router.go
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"tcoin-wallet/internal/api/handler"
	"tcoin-wallet/internal/api/middleware"
)

// Handlers groups the HTTP handlers the router mounts.
type Handlers struct {
	Wallet   *handler.WalletHandler
	Internal *handler.InternalHandler
	Admin    *handler.AdminHandler
}

// NewRouter sets up and returns a new HTTP router.
func NewRouter(h Handlers, limiter *middleware.RateLimiter, logger *logrus.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middlewares
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.Metrics)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(handler.DefaultTimeout))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(limiter))

		r.Route("/users/{userID}", func(r chi.Router) {
			r.Get("/wallet", h.Wallet.GetWallet)
			r.Get("/transactions", h.Wallet.ListTransactions)
			r.Post("/redeem", h.Wallet.Redeem)
		})

		r.Route("/internal", func(r chi.Router) {
			r.Post("/payments/credit", h.Internal.CreditForPayment)
			r.Post("/consumption/debit", h.Internal.DebitForConsumption)
			r.Post("/consumption/refund", h.Internal.RefundConsumption)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/users/{userID}/adjust", h.Admin.AdjustBalance)
			r.Route("/vouchers", func(r chi.Router) {
				r.Post("/", h.Admin.CreateVoucher)
				r.Get("/", h.Admin.ListVouchers)
				r.Post("/issue", h.Admin.IssueVoucher)
				r.Get("/{voucher}", h.Admin.GetVoucher)
				r.Delete("/{voucher}", h.Admin.DeleteVoucher)
			})
		})
	})

	return r
}
