// internal/service/unit_of_work.go
package service

import (
	"context"
	"fmt"

	"tcoin-wallet/internal/repository"
	"tcoin-wallet/internal/util"
	"tcoin-wallet/pkg/db"
)

// TxFuncs bundles the transaction lifecycle functions injected into services.
// Production code passes db.BeginTx, db.CommitTx and db.RollbackTx.
type TxFuncs struct {
	Begin    db.BeginTxFunc
	Commit   db.CommitTxFunc
	Rollback db.RollbackTxFunc
}

// DefaultTxFuncs returns the pkg/db implementations.
func DefaultTxFuncs() TxFuncs {
	return TxFuncs{Begin: db.BeginTx, Commit: db.CommitTx, Rollback: db.RollbackTx}
}

// unitOfWork runs a function inside one database transaction, retrying the
// whole transaction on transient storage faults raised before the commit.
type unitOfWork struct {
	dbBeginner    db.DBTxBeginner
	tx            TxFuncs
	retryAttempts int
}

// run executes fn and commits. Once started, the work is detached from the
// caller's cancellation so a disconnect cannot abort a half-applied mutation.
func (u *unitOfWork) run(ctx context.Context, op string, fn func(ctx context.Context, q repository.DBExecutor) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	ctx = context.WithoutCancel(ctx)

	return util.WithRetry(ctx, u.retryAttempts, db.IsTransient, func() error {
		txController, err := u.tx.Begin(ctx, u.dbBeginner)
		if err != nil {
			return fmt.Errorf("%s: failed to begin transaction: %w", op, err)
		}
		defer u.tx.Rollback(txController)

		txExecutor, ok := txController.(repository.DBExecutor)
		if !ok {
			return fmt.Errorf("%s: transaction controller does not implement DBExecutor", op)
		}

		if err := fn(ctx, txExecutor); err != nil {
			return err
		}

		if err := u.tx.Commit(txController); err != nil {
			if db.IsTransient(err) && !db.CommitRolledBack(err) {
				// The commit may have landed. The cause is flattened so the
				// fault is not retried and fn never runs twice.
				return fmt.Errorf("%w: %s: commit outcome unknown: %v", util.ErrStorageUnavailable, op, err)
			}
			return fmt.Errorf("%s: failed to commit transaction: %w", op, err)
		}
		return nil
	})
}

// read runs a non-transactional query with the same retry policy.
func (u *unitOfWork) read(ctx context.Context, fn func() error) error {
	return util.WithRetry(ctx, u.retryAttempts, db.IsTransient, fn)
}
