// Package jobs runs the service's scheduled background work.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"tcoin-wallet/internal/metrics"
	"tcoin-wallet/internal/repository"
)

// Reconciler compares every wallet's cached balance with its transaction
// history. It only reports; balances are never rewritten automatically.
type Reconciler struct {
	dbExecutor      repository.DBExecutor
	transactionRepo repository.TransactionRepository
	logger          *logrus.Logger
}

// NewReconciler creates a Reconciler.
func NewReconciler(dbExecutor repository.DBExecutor, transactionRepo repository.TransactionRepository, logger *logrus.Logger) *Reconciler {
	return &Reconciler{
		dbExecutor:      dbExecutor,
		transactionRepo: transactionRepo,
		logger:          logger,
	}
}

// Run performs one reconciliation pass and returns the number of mismatched wallets.
func (r *Reconciler) Run(ctx context.Context) (int, error) {
	audits, err := r.transactionRepo.FindBalanceMismatches(ctx, r.dbExecutor)
	if err != nil {
		return 0, fmt.Errorf("reconcile: %w", err)
	}
	for _, a := range audits {
		r.logger.WithFields(logrus.Fields{
			"user_id":            a.UserID,
			"balance":            a.Balance,
			"ledger_sum":         a.LedgerSum,
			"last_balance_after": a.LastBalanceAfter,
		}).Error("Wallet balance disagrees with transaction history")
	}
	metrics.RecordReconcileMismatches(len(audits))
	return len(audits), nil
}

// Scheduler runs the reconciler on a cron schedule.
type Scheduler struct {
	cron       *cron.Cron
	reconciler *Reconciler
	logger     *logrus.Logger
}

// NewScheduler creates a scheduler in UTC.
func NewScheduler(reconciler *Reconciler, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron:       cron.New(cron.WithLocation(time.UTC)),
		reconciler: reconciler,
		logger:     logger,
	}
}

// Start registers the reconcile job under spec and starts the scheduler.
func (s *Scheduler) Start(ctx context.Context, spec string) error {
	_, err := s.cron.AddFunc(spec, func() {
		n, err := s.reconciler.Run(ctx)
		if err != nil {
			s.logger.WithError(err).Error("[CRON] Reconciliation failed")
			return
		}
		s.logger.WithField("mismatches", n).Info("[CRON] Reconciliation finished")
	})
	if err != nil {
		return fmt.Errorf("invalid reconcile schedule %q: %w", spec, err)
	}
	s.cron.Start()
	s.logger.WithField("schedule", spec).Info("Reconcile scheduler started")
	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Reconcile scheduler stopped")
}
