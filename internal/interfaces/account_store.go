package interfaces

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/crosschain-yield-ledger-system/internal/models"
)

// AccountStore persists per-account (principal, rate, lastUpdate) tuples and
// the single global rate scalar. GetAccount never fails for an unknown id;
// it returns the implicit zero-value record instead.
type AccountStore interface {
	GetAccount(ctx context.Context, accountId string) (models.Account, error)
	// SaveAccounts persists every given record or none of them.
	SaveAccounts(ctx context.Context, accounts ...models.Account) error
	GlobalRate(ctx context.Context) (decimal.Decimal, error)
	SetGlobalRate(ctx context.Context, rate decimal.Decimal) error
}
