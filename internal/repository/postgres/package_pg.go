// internal/repository/postgres/package_pg.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tcoin-wallet/internal/domain"
	"tcoin-wallet/internal/repository"
	"tcoin-wallet/internal/util"
)

// PackageRepository implements repository.PackageRepository for PostgreSQL.
type PackageRepository struct{}

// NewPackageRepository creates a new PackageRepository.
func NewPackageRepository() repository.PackageRepository {
	return &PackageRepository{}
}

// GetPackageByID retrieves a recharge package by its ID.
func (r *PackageRepository) GetPackageByID(ctx context.Context, q repository.DBExecutor, id int64) (*domain.RechargePackage, error) {
	var pkg domain.RechargePackage
	query := `SELECT id, name, tcoins, price, is_active, created_at FROM recharge_packages WHERE id = $1`
	if err := q.GetContext(ctx, &pkg, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, util.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get recharge package %d: %w", id, err)
	}
	return &pkg, nil
}
