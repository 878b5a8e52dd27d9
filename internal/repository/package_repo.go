// internal/repository/package_repo.go
package repository

import (
	"context"

	"tcoin-wallet/internal/domain"
)

// PackageRepository reads the recharge package catalog.
type PackageRepository interface {
	GetPackageByID(ctx context.Context, q DBExecutor, id int64) (*domain.RechargePackage, error)
}
