package vault

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sheikh-saqib/crosschain-yield-ledger-system/internal/ledger"
)

// ErrPayoutFailed means the settlement-asset transfer backing a redemption
// did not complete. The burn is compensated before this is returned, so a
// failed redemption leaves the holder's balance untouched.
var ErrPayoutFailed = errors.New("settlement payout failed")

// SettlementBank moves the native settlement asset in and out of the vault.
// It is the external collaborator on the other side of every deposit and
// redemption.
type SettlementBank interface {
	Collect(ctx context.Context, holder string, amount decimal.Decimal) error
	Payout(ctx context.Context, holder string, amount decimal.Decimal) error
}

// Vault exchanges the settlement asset for ledger units. Deposits mint at
// the then-current global rate; redemptions burn and pay out, with a
// per-holder lock held across the external payout so a holder cannot
// re-enter their own redemption.
//
// The vault's account must hold the ledger's mint/burn capability.
type Vault struct {
	account string
	ledger  *ledger.Ledger
	bank    SettlementBank
	log     *zap.Logger

	muMap map[string]*sync.Mutex // per-holder redemption locks
	mapMu sync.Mutex             // protects muMap
}

func NewVault(account string, l *ledger.Ledger, bank SettlementBank, log *zap.Logger) *Vault {
	if log == nil {
		log = zap.NewNop()
	}
	return &Vault{
		account: account,
		ledger:  l,
		bank:    bank,
		log:     log,
		muMap:   make(map[string]*sync.Mutex),
	}
}

func (v *Vault) getHolderLock(holder string) *sync.Mutex {
	v.mapMu.Lock()
	defer v.mapMu.Unlock()

	if _, exists := v.muMap[holder]; !exists {
		v.muMap[holder] = &sync.Mutex{}
	}
	return v.muMap[holder]
}

// Deposit collects the settlement asset from the holder and mints the same
// amount of ledger units at the current global rate.
func (v *Vault) Deposit(ctx context.Context, holder string, amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return fmt.Errorf("deposit: %w", ledger.ErrAmountNotPositive)
	}
	rate, err := v.ledger.GlobalInterestRate(ctx)
	if err != nil {
		return err
	}
	if err := v.bank.Collect(ctx, holder, amount); err != nil {
		return err
	}
	if err := v.ledger.Mint(ctx, v.account, holder, amount, rate); err != nil {
		// The settlement asset was already collected; hand it back.
		if payoutErr := v.bank.Payout(ctx, holder, amount); payoutErr != nil {
			v.log.Error("refund after failed deposit mint failed",
				zap.String("holder", holder),
				zap.String("amount", amount.String()),
				zap.Error(payoutErr))
		}
		return err
	}
	return nil
}

// Redeem burns the holder's ledger units and pays out the equivalent
// settlement asset. ledger.MaxAmount redeems the holder's entire balance.
// If the payout cannot complete, the burned amount is re-minted at the
// holder's prior rate and ErrPayoutFailed is returned, so no burn is ever
// retained for a failed redemption.
func (v *Vault) Redeem(ctx context.Context, holder string, amount decimal.Decimal) error {
	lock := v.getHolderLock(holder)
	lock.Lock()
	defer lock.Unlock()

	if amount.Equal(ledger.MaxAmount) {
		balance, err := v.ledger.BalanceOf(ctx, holder)
		if err != nil {
			return err
		}
		amount = balance
	}
	if amount.Sign() <= 0 {
		return fmt.Errorf("redeem: %w", ledger.ErrAmountNotPositive)
	}

	rate, err := v.ledger.UserInterestRate(ctx, holder)
	if err != nil {
		return err
	}
	if err := v.ledger.Burn(ctx, v.account, holder, amount); err != nil {
		return err
	}

	if err := v.bank.Payout(ctx, holder, amount); err != nil {
		if mintErr := v.ledger.Mint(ctx, v.account, holder, amount, rate); mintErr != nil {
			v.log.Error("compensating re-mint after failed payout failed",
				zap.String("holder", holder),
				zap.String("amount", amount.String()),
				zap.Error(mintErr))
		}
		return fmt.Errorf("redeem %s for %s: %v: %w", amount, holder, err, ErrPayoutFailed)
	}
	return nil
}
