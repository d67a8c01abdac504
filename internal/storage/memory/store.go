package memory

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	interfaces "github.com/sheikh-saqib/crosschain-yield-ledger-system/internal/interfaces"
	"github.com/sheikh-saqib/crosschain-yield-ledger-system/internal/models"
)

// MemoryAccountStore is an in-memory implementation of
// interfaces.AccountStore. It is thread-safe and used for tests and
// single-node deployments without a database.
type MemoryAccountStore struct {
	mu         sync.Mutex
	accounts   map[string]models.Account
	globalRate decimal.Decimal
}

// NewMemoryAccountStore creates a store seeded with the given initial
// global interest rate.
func NewMemoryAccountStore(globalRate decimal.Decimal) *MemoryAccountStore {
	return &MemoryAccountStore{
		accounts:   make(map[string]models.Account),
		globalRate: globalRate,
	}
}

// GetAccount returns the stored record, or the implicit zero-value record
// for a holder that has never been credited.
func (m *MemoryAccountStore) GetAccount(ctx context.Context, accountId string) (models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	acc, exists := m.accounts[accountId]
	if !exists {
		return models.NewAccount(accountId), nil
	}
	return acc, nil
}

// SaveAccounts stores every given record. In memory this is trivially
// all-or-nothing under the store lock.
func (m *MemoryAccountStore) SaveAccounts(ctx context.Context, accounts ...models.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, acc := range accounts {
		m.accounts[acc.ID] = acc
	}
	return nil
}

func (m *MemoryAccountStore) GlobalRate(ctx context.Context) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.globalRate, nil
}

func (m *MemoryAccountStore) SetGlobalRate(ctx context.Context, rate decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.globalRate = rate
	return nil
}

// Compile-time check: ensure MemoryAccountStore implements AccountStore
var _ interfaces.AccountStore = (*MemoryAccountStore)(nil)
