package bridge

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/crosschain-yield-ledger-system/internal/ledger"
)

// payloadSize is the fixed wire size of an encoded rate: one 32-byte
// big-endian unsigned integer, opaque to the relay.
const payloadSize = 32

// EncodeRate serializes a holder's interest rate into the bridge payload.
// The rate must be a non-negative integer; a fractional rate would not
// survive the round trip.
func EncodeRate(rate decimal.Decimal) ([]byte, error) {
	if !rate.IsInteger() {
		return nil, fmt.Errorf("encode rate %s: %w", rate, ledger.ErrRateNotInteger)
	}
	n := rate.BigInt()
	if n.Sign() < 0 || n.BitLen() > payloadSize*8 {
		return nil, fmt.Errorf("encode rate %s: %w", rate, ErrRateTooLarge)
	}
	buf := make([]byte, payloadSize)
	n.FillBytes(buf)
	return buf, nil
}

// DecodeRate reconstructs the holder's interest rate from an inbound
// payload.
func DecodeRate(payload []byte) (decimal.Decimal, error) {
	if len(payload) != payloadSize {
		return decimal.Zero, fmt.Errorf("payload is %d bytes, want %d: %w", len(payload), payloadSize, ErrPayloadDecode)
	}
	n := new(big.Int).SetBytes(payload)
	return decimal.NewFromBigInt(n, 0), nil
}
