// internal/api/types/response.go
package types

import "tcoin-wallet/internal/domain"

// PaginatedResponse defines a generic structure for paginated API responses.
// T represents the type of data contained in the 'Data' slice.
type PaginatedResponse[T any] struct {
	Data       []T   `json:"data"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalCount int64 `json:"total_count"`
}

// WalletResponse is the balance view of a wallet.
type WalletResponse struct {
	UserID  int64 `json:"user_id"`
	Balance int64 `json:"balance"`
}

// TransactionResponse reports a committed ledger mutation.
type TransactionResponse struct {
	Message     string              `json:"message"`
	Transaction *domain.Transaction `json:"transaction"`
	NewBalance  int64               `json:"new_balance"`
}
