package vault

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheikh-saqib/crosschain-yield-ledger-system/internal/ledger"
	"github.com/sheikh-saqib/crosschain-yield-ledger-system/internal/storage/memory"
)

const (
	admin        = "admin"
	vaultAccount = "vault"
)

var (
	globalRate = decimal.RequireFromString("50000000000")
	tenTokens  = decimal.RequireFromString("10000000000000000000")
)

type fakeBank struct {
	collected  decimal.Decimal
	paidOut    decimal.Decimal
	failPayout bool
}

func (b *fakeBank) Collect(ctx context.Context, holder string, amount decimal.Decimal) error {
	b.collected = b.collected.Add(amount)
	return nil
}

func (b *fakeBank) Payout(ctx context.Context, holder string, amount decimal.Decimal) error {
	if b.failPayout {
		return errors.New("wire transfer bounced")
	}
	b.paidOut = b.paidOut.Add(amount)
	return nil
}

func newTestVault(t *testing.T) (*Vault, *ledger.Ledger, *fakeBank, *clock.Mock) {
	t.Helper()
	mock := clock.NewMock()
	store := memory.NewMemoryAccountStore(globalRate)
	l := ledger.NewLedger(store, admin, ledger.WithClock(mock))
	require.NoError(t, l.GrantMintBurnRole(admin, vaultAccount))

	bank := &fakeBank{collected: decimal.Zero, paidOut: decimal.Zero}
	v := NewVault(vaultAccount, l, bank, nil)
	return v, l, bank, mock
}

func TestDepositMintsAtGlobalRate(t *testing.T) {
	ctx := context.Background()
	v, l, bank, _ := newTestVault(t)

	require.NoError(t, v.Deposit(ctx, "alice", tenTokens))

	balance, err := l.BalanceOf(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, balance.Equal(tenTokens))

	rate, err := l.UserInterestRate(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, rate.Equal(globalRate))

	assert.True(t, bank.collected.Equal(tenTokens))
}

func TestDepositAfterRateCutGetsLowerRate(t *testing.T) {
	ctx := context.Background()
	v, l, _, _ := newTestVault(t)

	require.NoError(t, v.Deposit(ctx, "alice", tenTokens))

	lowered := decimal.RequireFromString("40000000000")
	require.NoError(t, l.SetGlobalRate(ctx, admin, lowered))
	require.NoError(t, v.Deposit(ctx, "bob", tenTokens))

	aliceRate, err := l.UserInterestRate(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, aliceRate.Equal(globalRate))

	bobRate, err := l.UserInterestRate(ctx, "bob")
	require.NoError(t, err)
	assert.True(t, bobRate.Equal(lowered))
}

func TestRedeemPartialAmount(t *testing.T) {
	ctx := context.Background()
	v, l, bank, _ := newTestVault(t)

	require.NoError(t, v.Deposit(ctx, "alice", tenTokens))

	half := tenTokens.Div(decimal.NewFromInt(2))
	require.NoError(t, v.Redeem(ctx, "alice", half))

	balance, err := l.BalanceOf(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, balance.Equal(half))
	assert.True(t, bank.paidOut.Equal(half))
}

func TestRedeemMaxIncludesAccruedInterest(t *testing.T) {
	ctx := context.Background()
	v, l, bank, mock := newTestVault(t)

	require.NoError(t, v.Deposit(ctx, "alice", tenTokens))
	mock.Add(time.Hour)

	want := decimal.RequireFromString("10001800000000000000")
	require.NoError(t, v.Redeem(ctx, "alice", ledger.MaxAmount))

	balance, err := l.BalanceOf(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
	assert.True(t, bank.paidOut.Equal(want), "got %s want %s", bank.paidOut, want)
}

func TestRedeemWithNothingDepositedFails(t *testing.T) {
	ctx := context.Background()
	v, _, _, _ := newTestVault(t)

	err := v.Redeem(ctx, "alice", tenTokens)
	assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)

	err = v.Redeem(ctx, "alice", ledger.MaxAmount)
	assert.ErrorIs(t, err, ledger.ErrAmountNotPositive)
}

func TestFailedPayoutRetainsNoBurn(t *testing.T) {
	ctx := context.Background()
	v, l, bank, _ := newTestVault(t)

	require.NoError(t, v.Deposit(ctx, "alice", tenTokens))
	bank.failPayout = true

	err := v.Redeem(ctx, "alice", tenTokens)
	assert.ErrorIs(t, err, ErrPayoutFailed)

	// Balance and rate are exactly as before the attempt.
	balance, err := l.BalanceOf(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, balance.Equal(tenTokens))

	rate, err := l.UserInterestRate(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, rate.Equal(globalRate))
}
