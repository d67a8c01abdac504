package bridge

import "errors"

var (
	// ErrUnknownDestination means the chain is not on the configured
	// allowlist of remote ledgers.
	ErrUnknownDestination = errors.New("unknown destination chain")

	// ErrPayloadDecode means an inbound payload is not a well-formed
	// encoded rate.
	ErrPayloadDecode = errors.New("malformed bridge payload")

	// ErrPooledBalanceTooLow means the adapter's pooled account does not
	// cover the amount about to be burned. Lock and release amounts match
	// 1:1 per message, so this indicates a broken invariant rather than an
	// expected runtime condition.
	ErrPooledBalanceTooLow = errors.New("pooled balance below burn amount")

	// ErrRateTooLarge means a holder rate does not fit the 32-byte wire
	// encoding.
	ErrRateTooLarge = errors.New("rate does not fit payload encoding")
)
