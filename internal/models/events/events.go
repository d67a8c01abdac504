package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// Topic names the publisher writes to.
const (
	TopicMinted      = "tokens_minted"
	TopicBurned      = "tokens_burned"
	TopicTransferred = "tokens_transferred"
	TopicRateChanged = "global_rate_changed"
	TopicBridgeSent  = "bridge_transfer_sent"
	TopicBridgeRecvd = "bridge_transfer_received"
)

type TokensMinted struct {
	Account    string          `json:"account"`
	Amount     decimal.Decimal `json:"amount"`
	Rate       decimal.Decimal `json:"rate"`
	OccurredAt time.Time       `json:"occurred_at"`
}

type TokensBurned struct {
	Account    string          `json:"account"`
	Amount     decimal.Decimal `json:"amount"`
	OccurredAt time.Time       `json:"occurred_at"`
}

type TokensTransferred struct {
	FromAccount string          `json:"from_account"`
	ToAccount   string          `json:"to_account"`
	Amount      decimal.Decimal `json:"amount"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

type GlobalRateChanged struct {
	OldRate    decimal.Decimal `json:"old_rate"`
	NewRate    decimal.Decimal `json:"new_rate"`
	OccurredAt time.Time       `json:"occurred_at"`
}

type BridgeTransfer struct {
	MessageID   string          `json:"message_id"`
	SourceChain string          `json:"source_chain"`
	DestChain   string          `json:"dest_chain"`
	Account     string          `json:"account"`
	Amount      decimal.Decimal `json:"amount"`
	OccurredAt  time.Time       `json:"occurred_at"`
}
