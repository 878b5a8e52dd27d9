// pkg/db/errors.go
package db

import (
	"database/sql/driver"
	"errors"
	"net"
	"strings"

	"github.com/lib/pq"
)

// Postgres SQLSTATE codes the ledger cares about.
const (
	codeUniqueViolation      = "23505"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
	codeQueryCanceled        = "57014"
	codeAdminShutdown        = "57P01"
	codeCannotConnectNow     = "57P03"
)

// IsUniqueViolation reports whether err is a unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == codeUniqueViolation
}

// IsTransient reports whether err is a storage fault worth retrying:
// lost connections, serialization failures, deadlocks and lock timeouts.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable,
			codeQueryCanceled, codeAdminShutdown, codeCannotConnectNow:
			return true
		}
		// Class 08: connection exceptions.
		return strings.HasPrefix(string(pqErr.Code), "08")
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

// CommitRolledBack reports whether a failed COMMIT is known to have aborted
// the transaction. Only errors the server raises while validating the commit
// qualify; a lost connection leaves the outcome unknown.
func CommitRolledBack(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	switch string(pqErr.Code) {
	case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable:
		return true
	}
	return false
}
