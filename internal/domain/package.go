// internal/domain/package.go
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RechargePackage is a purchasable bundle of T-coins. The catalog itself is
// maintained elsewhere; the ledger only reads it.
type RechargePackage struct {
	ID        int64           `db:"id" json:"id"`
	Name      string          `db:"name" json:"name"`
	TCoins    int64           `db:"tcoins" json:"tcoins"`
	Price     decimal.Decimal `db:"price" json:"price"` // NUMERIC(12, 2)
	IsActive  bool            `db:"is_active" json:"is_active"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}
