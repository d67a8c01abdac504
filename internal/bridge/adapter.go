package bridge

import (
	"context"
	"fmt"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	interfaces "github.com/sheikh-saqib/crosschain-yield-ledger-system/internal/interfaces"
	"github.com/sheikh-saqib/crosschain-yield-ledger-system/internal/ledger"
	"github.com/sheikh-saqib/crosschain-yield-ledger-system/internal/models"
	"github.com/sheikh-saqib/crosschain-yield-ledger-system/internal/models/events"
)

// RemoteChain is one entry of the externally supplied allowlist: a trusted
// remote chain and the ledger address to mint against on that chain.
type RemoteChain struct {
	ChainID       string
	LedgerAddress string
}

// Adapter implements the two halves of a cross-chain transfer against the
// local ledger: lock-or-burn outbound, release-or-mint inbound. The encoded
// payload fully determines the destination effect, so the adapter keeps no
// persistent state between the two halves; inbound processing is idempotent
// per message ID and safe under arbitrary relay delay.
//
// The adapter's pooled account must hold the ledger's mint/burn capability.
type Adapter struct {
	chainID string
	account string // pooled account tokens pass through on the way out
	ledger  *ledger.Ledger
	relay   interfaces.Relay
	remotes map[string]RemoteChain

	publisher interfaces.EventPublisher
	clock     clock.Clock
	log       *zap.Logger

	mu        sync.Mutex
	processed map[string]bool // inbound message IDs already released
}

// Option configures an Adapter.
type Option func(*Adapter)

func WithClock(c clock.Clock) Option {
	return func(a *Adapter) { a.clock = c }
}

func WithPublisher(p interfaces.EventPublisher) Option {
	return func(a *Adapter) { a.publisher = p }
}

func WithLogger(log *zap.Logger) Option {
	return func(a *Adapter) { a.log = log }
}

// NewAdapter creates a bridge adapter for the given local chain. account is
// the adapter's pooled ledger account; remotes is the allowlist of chains
// transfers may be sent to or received from.
func NewAdapter(chainID, account string, l *ledger.Ledger, relay interfaces.Relay, remotes []RemoteChain, opts ...Option) *Adapter {
	a := &Adapter{
		chainID:   chainID,
		account:   account,
		ledger:    l,
		relay:     relay,
		remotes:   make(map[string]RemoteChain),
		clock:     clock.New(),
		log:       zap.NewNop(),
		processed: make(map[string]bool),
	}
	for _, remote := range remotes {
		a.remotes[remote.ChainID] = remote
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// LockOrBurn executes the outbound half: moves the amount into the pooled
// account, burns it there, and returns the destination ledger address plus
// the sender's rate encoded as the payload. The rate is read before the
// tokens move so the pooled account's own rate never leaks into the
// payload.
func (a *Adapter) LockOrBurn(ctx context.Context, sender string, amount decimal.Decimal, destChain string) (string, []byte, error) {
	remote, ok := a.remotes[destChain]
	if !ok {
		return "", nil, fmt.Errorf("lock-or-burn to %q: %w", destChain, ErrUnknownDestination)
	}

	if amount.Equal(ledger.MaxAmount) {
		balance, err := a.ledger.BalanceOf(ctx, sender)
		if err != nil {
			return "", nil, err
		}
		amount = balance
	}

	rate, err := a.ledger.UserInterestRate(ctx, sender)
	if err != nil {
		return "", nil, err
	}
	payload, err := EncodeRate(rate)
	if err != nil {
		return "", nil, err
	}

	if err := a.ledger.Transfer(ctx, sender, a.account, amount); err != nil {
		return "", nil, err
	}

	// Lock and release amounts match 1:1 per message; enforce that here
	// instead of assuming it.
	pooled, err := a.ledger.PrincipalBalanceOf(ctx, a.account)
	if err != nil {
		a.returnLocked(ctx, sender, amount)
		return "", nil, err
	}
	if pooled.LessThan(amount) {
		a.returnLocked(ctx, sender, amount)
		return "", nil, fmt.Errorf("pooled %s, burning %s: %w", pooled, amount, ErrPooledBalanceTooLow)
	}

	if err := a.ledger.Burn(ctx, a.account, a.account, amount); err != nil {
		a.returnLocked(ctx, sender, amount)
		return "", nil, err
	}
	return remote.LedgerAddress, payload, nil
}

// returnLocked hands a committed lock transfer back to the sender when a
// later sub-step fails; the pool must never retain tokens for a failed
// lock.
func (a *Adapter) returnLocked(ctx context.Context, sender string, amount decimal.Decimal) {
	if err := a.ledger.Transfer(ctx, a.account, sender, amount); err != nil {
		a.log.Error("return locked tokens failed",
			zap.String("sender", sender),
			zap.String("amount", amount.String()),
			zap.Error(err))
	}
}

// ReleaseOrMint executes the inbound half: decodes the rate from the
// payload and mints the amount at exactly that rate, so the holder keeps
// the yield entitlement they had on the source chain. Returns the credited
// amount unchanged; there is no fee or slippage model.
func (a *Adapter) ReleaseOrMint(ctx context.Context, receiver string, amount decimal.Decimal, payload []byte) (decimal.Decimal, error) {
	rate, err := DecodeRate(payload)
	if err != nil {
		return decimal.Zero, err
	}
	if err := a.ledger.Mint(ctx, a.account, receiver, amount, rate); err != nil {
		return decimal.Zero, err
	}
	return amount, nil
}

// Send bridges amount from sender on this chain to receiver on destChain:
// lock-or-burn locally, then hand the self-describing message to the relay.
// A MaxAmount sentinel is resolved to the sender's full balance before
// anything moves. If the relay rejects the message the burn is compensated
// by re-minting at the sender's original rate, so no tokens are stranded.
func (a *Adapter) Send(ctx context.Context, sender, receiver string, amount decimal.Decimal, destChain string) (models.TransferMessage, error) {
	if amount.Equal(ledger.MaxAmount) {
		balance, err := a.ledger.BalanceOf(ctx, sender)
		if err != nil {
			return models.TransferMessage{}, err
		}
		amount = balance
	}

	_, payload, err := a.LockOrBurn(ctx, sender, amount, destChain)
	if err != nil {
		return models.TransferMessage{}, err
	}

	msg := models.TransferMessage{
		ID:          uuid.New().String(),
		SourceChain: a.chainID,
		DestChain:   destChain,
		Receiver:    receiver,
		Amount:      amount,
		Payload:     payload,
		CreatedAt:   a.clock.Now(),
	}
	if err := a.relay.Send(ctx, msg); err != nil {
		a.compensateBurn(ctx, sender, amount, payload)
		return models.TransferMessage{}, fmt.Errorf("relay send: %w", err)
	}

	a.publish(events.TopicBridgeSent, events.BridgeTransfer{
		MessageID: msg.ID, SourceChain: a.chainID, DestChain: destChain,
		Account: sender, Amount: amount, OccurredAt: msg.CreatedAt,
	})
	a.log.Info("bridge transfer sent",
		zap.String("message_id", msg.ID),
		zap.String("dest_chain", destChain),
		zap.String("amount", amount.String()))
	return msg, nil
}

func (a *Adapter) compensateBurn(ctx context.Context, sender string, amount decimal.Decimal, payload []byte) {
	rate, err := DecodeRate(payload)
	if err == nil {
		err = a.ledger.Mint(ctx, a.account, sender, amount, rate)
	}
	if err != nil {
		a.log.Error("compensating re-mint failed",
			zap.String("sender", sender),
			zap.String("amount", amount.String()),
			zap.Error(err))
	}
}

// HandleMessage is the relay's inbound callback. It validates the source
// chain against the allowlist, drops already-processed message IDs, and
// releases the transfer on the local ledger. The payload carries no
// time-sensitive data, so arbitrarily delayed delivery is fine.
func (a *Adapter) HandleMessage(ctx context.Context, msg models.TransferMessage) error {
	if _, ok := a.remotes[msg.SourceChain]; !ok {
		return fmt.Errorf("release from %q: %w", msg.SourceChain, ErrUnknownDestination)
	}

	// Reserve the ID before minting so a concurrent duplicate delivery
	// cannot race past the check; release it again if the mint fails so a
	// later redelivery can still succeed.
	a.mu.Lock()
	if a.processed[msg.ID] {
		a.mu.Unlock()
		return nil
	}
	a.processed[msg.ID] = true
	a.mu.Unlock()

	if _, err := a.ReleaseOrMint(ctx, msg.Receiver, msg.Amount, msg.Payload); err != nil {
		a.mu.Lock()
		delete(a.processed, msg.ID)
		a.mu.Unlock()
		return err
	}

	a.publish(events.TopicBridgeRecvd, events.BridgeTransfer{
		MessageID: msg.ID, SourceChain: msg.SourceChain, DestChain: a.chainID,
		Account: msg.Receiver, Amount: msg.Amount, OccurredAt: a.clock.Now(),
	})
	a.log.Info("bridge transfer received",
		zap.String("message_id", msg.ID),
		zap.String("source_chain", msg.SourceChain),
		zap.String("amount", msg.Amount.String()))
	return nil
}

func (a *Adapter) publish(topic string, event any) {
	if a.publisher == nil {
		return
	}
	if err := a.publisher.Publish(topic, event); err != nil {
		a.log.Warn("publish event failed", zap.String("topic", topic), zap.Error(err))
	}
}
