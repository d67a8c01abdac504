package interfaces

import (
	"context"

	"github.com/sheikh-saqib/crosschain-yield-ledger-system/internal/models"
)

// MessageHandler consumes one inbound cross-chain transfer message. The
// relay may deliver after arbitrary delay; handlers must not validate the
// payload against wall-clock time.
type MessageHandler func(ctx context.Context, msg models.TransferMessage) error

// Relay is the external message network connecting two ledgers. It is
// assumed to deliver each message at most once; ordering is not guaranteed.
type Relay interface {
	Send(ctx context.Context, msg models.TransferMessage) error
}
