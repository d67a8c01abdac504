package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransferMessage is the self-describing cross-chain payload handed to the
// relay. Payload carries the sender's interest rate encoded as a 32-byte
// big-endian unsigned integer; it is opaque to the relay and interpreted
// only by the bridge adapters on both ends.
type TransferMessage struct {
	ID          string          `json:"id"`
	SourceChain string          `json:"source_chain"`
	DestChain   string          `json:"dest_chain"`
	Receiver    string          `json:"receiver"`
	Amount      decimal.Decimal `json:"amount"`
	Payload     []byte          `json:"payload"`
	CreatedAt   time.Time       `json:"created_at"`
}
