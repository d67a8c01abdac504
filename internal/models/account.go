package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is the per-holder ledger record. Principal excludes interest
// accrued since LastUpdate; Rate is the holder's fixed interest rate per
// second, scaled by the ledger precision factor.
type Account struct {
	ID         string          `json:"id"`
	Principal  decimal.Decimal `json:"principal"`
	Rate       decimal.Decimal `json:"rate"`
	LastUpdate time.Time       `json:"last_update"`
}

// NewAccount returns the implicit zero-value record for a holder that has
// never been credited.
func NewAccount(id string) Account {
	return Account{
		ID:        id,
		Principal: decimal.Zero,
		Rate:      decimal.Zero,
	}
}
