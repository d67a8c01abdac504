package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	interfaces "github.com/sheikh-saqib/crosschain-yield-ledger-system/internal/interfaces"
	"github.com/sheikh-saqib/crosschain-yield-ledger-system/internal/models"
	"github.com/sheikh-saqib/crosschain-yield-ledger-system/internal/models/events"
)

// precisionFactor scales interest rates and the accrual multiplier.
// A rate r means the balance grows by principal*r/precisionFactor each
// second.
var precisionFactor = decimal.New(1, 18)

// MaxAmount is a sentinel meaning "the holder's entire current balance".
// It is resolved to a concrete snapshot value at the start of an operation
// and is never stored.
var MaxAmount = decimal.RequireFromString(
	"115792089237316195423570985008687907853269984665640564039457584007913129639935")

// Ledger is the yield-bearing accrual ledger. Every balance grows
// continuously at the holder's individually assigned rate; pending interest
// is realized lazily, at the top of every state-mutating entry point that
// touches the account, so no global rebase sweep is ever needed.
//
// Mint and burn are gated by a capability table whose issuance is
// single-admin. That centralization is an accepted trust assumption of the
// design, not something the ledger tries to mitigate.
type Ledger struct {
	store     interfaces.AccountStore
	publisher interfaces.EventPublisher
	clock     clock.Clock
	log       *zap.Logger

	admin string

	muMap map[string]*sync.Mutex // per-account locks
	mapMu sync.Mutex             // protects muMap

	mu         sync.Mutex // protects roles and allowances
	roles      map[string]bool
	allowances map[string]map[string]decimal.Decimal
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock replaces the wall clock, mainly so tests can advance time.
func WithClock(c clock.Clock) Option {
	return func(l *Ledger) { l.clock = c }
}

// WithPublisher attaches an event publisher for mint/burn/transfer and
// rate-change notifications.
func WithPublisher(p interfaces.EventPublisher) Option {
	return func(l *Ledger) { l.publisher = p }
}

// WithLogger attaches a structured logger.
func WithLogger(log *zap.Logger) Option {
	return func(l *Ledger) { l.log = log }
}

// NewLedger creates a ledger backed by the given store. admin is the only
// identity allowed to grant the mint/burn capability and to lower the
// global rate.
func NewLedger(store interfaces.AccountStore, admin string, opts ...Option) *Ledger {
	l := &Ledger{
		store:      store,
		clock:      clock.New(),
		log:        zap.NewNop(),
		admin:      admin,
		muMap:      make(map[string]*sync.Mutex),
		roles:      make(map[string]bool),
		allowances: make(map[string]map[string]decimal.Decimal),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Ledger) getAccountLock(accountId string) *sync.Mutex {
	l.mapMu.Lock()
	defer l.mapMu.Unlock()

	if _, exists := l.muMap[accountId]; !exists {
		l.muMap[accountId] = &sync.Mutex{}
	}
	return l.muMap[accountId]
}

// projectBalance returns the balance of acc at time now:
// principal * (precisionFactor + rate*elapsedSeconds) / precisionFactor,
// with truncating division. Pure; does not mutate acc.
func projectBalance(acc models.Account, now time.Time) decimal.Decimal {
	if acc.LastUpdate.IsZero() || !now.After(acc.LastUpdate) {
		return acc.Principal
	}
	elapsed := decimal.NewFromInt(int64(now.Sub(acc.LastUpdate) / time.Second))
	multiplier := precisionFactor.Add(acc.Rate.Mul(elapsed))
	balance, _ := acc.Principal.Mul(multiplier).QuoRem(precisionFactor, 0)
	return balance
}

// realize folds pending interest into principal and stamps the account with
// now. Afterwards the projected balance equals the principal until time
// advances again, so calling realize twice in a row is a no-op the second
// time.
func realize(acc *models.Account, now time.Time) {
	acc.Principal = projectBalance(*acc, now)
	acc.LastUpdate = now
}

// BalanceOf returns the holder's principal plus interest accrued since the
// last realization. Pure projection; never fails for an unknown account,
// which reads as zero.
func (l *Ledger) BalanceOf(ctx context.Context, accountId string) (decimal.Decimal, error) {
	acc, err := l.store.GetAccount(ctx, accountId)
	if err != nil {
		return decimal.Zero, err
	}
	return projectBalance(acc, l.clock.Now()), nil
}

// PrincipalBalanceOf returns the last-realized balance, excluding interest
// accrued since the holder was last touched.
func (l *Ledger) PrincipalBalanceOf(ctx context.Context, accountId string) (decimal.Decimal, error) {
	acc, err := l.store.GetAccount(ctx, accountId)
	if err != nil {
		return decimal.Zero, err
	}
	return acc.Principal, nil
}

// UserInterestRate returns the rate fixed to the holder at mint time or
// inherited through a transfer.
func (l *Ledger) UserInterestRate(ctx context.Context, accountId string) (decimal.Decimal, error) {
	acc, err := l.store.GetAccount(ctx, accountId)
	if err != nil {
		return decimal.Zero, err
	}
	return acc.Rate, nil
}

// UserLastUpdated returns the timestamp of the holder's most recent accrual
// realization.
func (l *Ledger) UserLastUpdated(ctx context.Context, accountId string) (time.Time, error) {
	acc, err := l.store.GetAccount(ctx, accountId)
	if err != nil {
		return time.Time{}, err
	}
	return acc.LastUpdate, nil
}

// GlobalInterestRate returns the default rate assigned to new depositors.
func (l *Ledger) GlobalInterestRate(ctx context.Context) (decimal.Decimal, error) {
	return l.store.GlobalRate(ctx)
}

// PrecisionFactor returns the fixed scaling constant shared by rate and
// multiplier arithmetic.
func (l *Ledger) PrecisionFactor() decimal.Decimal {
	return precisionFactor
}

// HasMintBurnRole reports whether the account holds the mint/burn
// capability.
func (l *Ledger) HasMintBurnRole(accountId string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.roles[accountId]
}

// GrantMintBurnRole attaches the mint/burn capability to an account.
// Admin-only; issuance has no further checks.
func (l *Ledger) GrantMintBurnRole(caller, accountId string) error {
	if caller != l.admin {
		return fmt.Errorf("grant mint/burn role: %w", ErrUnauthorized)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.roles[accountId] = true
	return nil
}

// Mint realizes pending interest for the recipient, fixes their rate to the
// given value, then credits the amount. Restricted to holders of the
// mint/burn capability. The unconditional rate assignment is what lets the
// destination side of a bridge transfer reconstruct the sender's original
// rate, and what assigns the current global rate on the vault deposit path.
func (l *Ledger) Mint(ctx context.Context, caller, to string, amount, rate decimal.Decimal) error {
	if !l.HasMintBurnRole(caller) {
		return fmt.Errorf("mint: %w", ErrUnauthorized)
	}
	if amount.Sign() <= 0 {
		return fmt.Errorf("mint: %w", ErrAmountNotPositive)
	}
	if rate.Sign() <= 0 {
		return fmt.Errorf("mint: %w", ErrRateCannotBeZero)
	}
	if !rate.IsInteger() {
		return fmt.Errorf("mint: rate %s: %w", rate, ErrRateNotInteger)
	}

	lock := l.getAccountLock(to)
	lock.Lock()
	defer lock.Unlock()

	acc, err := l.store.GetAccount(ctx, to)
	if err != nil {
		return err
	}
	now := l.clock.Now()
	realize(&acc, now)
	acc.Rate = rate
	acc.Principal = acc.Principal.Add(amount)

	if err := l.store.SaveAccounts(ctx, acc); err != nil {
		return err
	}
	l.publish(events.TopicMinted, events.TokensMinted{
		Account: to, Amount: amount, Rate: rate, OccurredAt: now,
	})
	return nil
}

// Burn realizes pending interest for the holder, then debits the amount.
// MaxAmount resolves to the holder's full post-accrual balance. Restricted
// to holders of the mint/burn capability.
func (l *Ledger) Burn(ctx context.Context, caller, from string, amount decimal.Decimal) error {
	if !l.HasMintBurnRole(caller) {
		return fmt.Errorf("burn: %w", ErrUnauthorized)
	}

	lock := l.getAccountLock(from)
	lock.Lock()
	defer lock.Unlock()

	acc, err := l.store.GetAccount(ctx, from)
	if err != nil {
		return err
	}
	now := l.clock.Now()
	realize(&acc, now)

	if amount.Equal(MaxAmount) {
		amount = acc.Principal
	}
	if amount.Sign() <= 0 {
		return fmt.Errorf("burn: %w", ErrAmountNotPositive)
	}
	if amount.GreaterThan(acc.Principal) {
		return fmt.Errorf("burn %s from %s: %w", amount, from, ErrInsufficientBalance)
	}
	acc.Principal = acc.Principal.Sub(amount)

	if err := l.store.SaveAccounts(ctx, acc); err != nil {
		return err
	}
	l.publish(events.TopicBurned, events.TokensBurned{
		Account: from, Amount: amount, OccurredAt: now,
	})
	return nil
}

// Transfer moves amount from one holder to another, realizing both sides
// first. A destination with zero balance inherits the sender's rate rather
// than the global rate; this is how early-adopter yield propagates through
// transfers. MaxAmount resolves to the sender's full balance.
func (l *Ledger) Transfer(ctx context.Context, from, to string, amount decimal.Decimal) error {
	return l.transfer(ctx, from, to, amount, "")
}

// TransferFrom is Transfer on behalf of a holder, spending the caller's
// allowance.
func (l *Ledger) TransferFrom(ctx context.Context, spender, from, to string, amount decimal.Decimal) error {
	return l.transfer(ctx, from, to, amount, spender)
}

func (l *Ledger) transfer(ctx context.Context, from, to string, amount decimal.Decimal, spender string) error {
	if from == to {
		return l.transferSelf(ctx, from, amount, spender)
	}

	fromMutex := l.getAccountLock(from)
	toMutex := l.getAccountLock(to)

	// Lock in order to avoid deadlocks
	if from < to {
		fromMutex.Lock()
		toMutex.Lock()
	} else {
		toMutex.Lock()
		fromMutex.Lock()
	}
	defer fromMutex.Unlock()
	defer toMutex.Unlock()

	src, err := l.store.GetAccount(ctx, from)
	if err != nil {
		return err
	}
	dst, err := l.store.GetAccount(ctx, to)
	if err != nil {
		return err
	}
	now := l.clock.Now()
	realize(&src, now)
	realize(&dst, now)

	if amount.Equal(MaxAmount) {
		amount = src.Principal
	}
	if amount.Sign() <= 0 {
		return fmt.Errorf("transfer: %w", ErrAmountNotPositive)
	}
	if amount.GreaterThan(src.Principal) {
		return fmt.Errorf("transfer %s from %s: %w", amount, from, ErrInsufficientBalance)
	}
	if spender != "" {
		if err := l.spendAllowance(from, spender, amount); err != nil {
			return err
		}
	}

	if dst.Principal.IsZero() {
		dst.Rate = src.Rate
	}
	src.Principal = src.Principal.Sub(amount)
	dst.Principal = dst.Principal.Add(amount)

	if err := l.store.SaveAccounts(ctx, src, dst); err != nil {
		if spender != "" {
			l.restoreAllowance(from, spender, amount)
		}
		return err
	}
	l.publish(events.TopicTransferred, events.TokensTransferred{
		FromAccount: from, ToAccount: to, Amount: amount, OccurredAt: now,
	})
	return nil
}

// transferSelf keeps self-transfers well defined: realize, check the
// amount, and leave the balance unchanged.
func (l *Ledger) transferSelf(ctx context.Context, accountId string, amount decimal.Decimal, spender string) error {
	lock := l.getAccountLock(accountId)
	lock.Lock()
	defer lock.Unlock()

	acc, err := l.store.GetAccount(ctx, accountId)
	if err != nil {
		return err
	}
	now := l.clock.Now()
	realize(&acc, now)

	if amount.Equal(MaxAmount) {
		amount = acc.Principal
	}
	if amount.Sign() <= 0 {
		return fmt.Errorf("transfer: %w", ErrAmountNotPositive)
	}
	if amount.GreaterThan(acc.Principal) {
		return fmt.Errorf("transfer %s from %s: %w", amount, accountId, ErrInsufficientBalance)
	}
	if spender != "" {
		if err := l.spendAllowance(accountId, spender, amount); err != nil {
			return err
		}
	}
	if err := l.store.SaveAccounts(ctx, acc); err != nil {
		if spender != "" {
			l.restoreAllowance(accountId, spender, amount)
		}
		return err
	}
	return nil
}

// Approve lets spender move up to amount out of owner's balance via
// TransferFrom.
func (l *Ledger) Approve(owner, spender string, amount decimal.Decimal) error {
	if amount.Sign() < 0 {
		return fmt.Errorf("approve: %w", ErrAmountNotPositive)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.allowances[owner] == nil {
		l.allowances[owner] = make(map[string]decimal.Decimal)
	}
	l.allowances[owner][spender] = amount
	return nil
}

// Allowance returns the amount spender may still move out of owner's
// balance.
func (l *Ledger) Allowance(owner, spender string) decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.allowances[owner] == nil {
		return decimal.Zero
	}
	allowance, ok := l.allowances[owner][spender]
	if !ok {
		return decimal.Zero
	}
	return allowance
}

func (l *Ledger) spendAllowance(owner, spender string, amount decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	allowance := decimal.Zero
	if l.allowances[owner] != nil {
		allowance = l.allowances[owner][spender]
	}
	if amount.GreaterThan(allowance) {
		return fmt.Errorf("spend %s of allowance %s: %w", amount, allowance, ErrInsufficientAllowance)
	}
	l.allowances[owner][spender] = allowance.Sub(amount)
	return nil
}

func (l *Ledger) restoreAllowance(owner, spender string, amount decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.allowances[owner] == nil {
		l.allowances[owner] = make(map[string]decimal.Decimal)
	}
	l.allowances[owner][spender] = l.allowances[owner][spender].Add(amount)
}

// SetGlobalRate lowers the default rate for new depositors. Admin-only; the
// rate can only ever move strictly downward and never to zero, so holders
// minted earlier always hold a rate at least as high as later ones.
func (l *Ledger) SetGlobalRate(ctx context.Context, caller string, newRate decimal.Decimal) error {
	if caller != l.admin {
		return fmt.Errorf("set global rate: %w", ErrUnauthorized)
	}
	if newRate.Sign() <= 0 {
		return fmt.Errorf("set global rate: %w", ErrRateCannotBeZero)
	}
	if !newRate.IsInteger() {
		return fmt.Errorf("set global rate %s: %w", newRate, ErrRateNotInteger)
	}
	current, err := l.store.GlobalRate(ctx)
	if err != nil {
		return err
	}
	if newRate.GreaterThanOrEqual(current) {
		return fmt.Errorf("set global rate %s, current %s: %w", newRate, current, ErrRateMustDecrease)
	}
	if err := l.store.SetGlobalRate(ctx, newRate); err != nil {
		return err
	}
	l.publish(events.TopicRateChanged, events.GlobalRateChanged{
		OldRate: current, NewRate: newRate, OccurredAt: l.clock.Now(),
	})
	return nil
}

func (l *Ledger) publish(topic string, event any) {
	if l.publisher == nil {
		return
	}
	if err := l.publisher.Publish(topic, event); err != nil {
		l.log.Warn("publish event failed", zap.String("topic", topic), zap.Error(err))
	}
}
