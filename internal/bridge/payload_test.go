package bridge

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheikh-saqib/crosschain-yield-ledger-system/internal/ledger"
)

func TestRateRoundTrip(t *testing.T) {
	rates := []string{
		"1",
		"50000000000",
		"115792089237316195423570985008687907853269984665640564039457584007913129639935",
	}
	for _, raw := range rates {
		rate := decimal.RequireFromString(raw)

		payload, err := EncodeRate(rate)
		require.NoError(t, err)
		assert.Len(t, payload, 32)

		decoded, err := DecodeRate(payload)
		require.NoError(t, err)
		assert.True(t, decoded.Equal(rate), "got %s want %s", decoded, rate)
	}
}

func TestDecodeRejectsWrongLength(t *testing.T) {
	_, err := DecodeRate([]byte{0x01, 0x02})
	assert.ErrorIs(t, err, ErrPayloadDecode)

	_, err = DecodeRate(nil)
	assert.ErrorIs(t, err, ErrPayloadDecode)

	_, err = DecodeRate(make([]byte, 33))
	assert.ErrorIs(t, err, ErrPayloadDecode)
}

func TestEncodeRejectsFractionalRate(t *testing.T) {
	// A fractional rate would truncate to zero on the wire and the
	// destination mint would reject it, so it must never encode.
	_, err := EncodeRate(decimal.RequireFromString("0.5"))
	assert.ErrorIs(t, err, ledger.ErrRateNotInteger)

	_, err = EncodeRate(decimal.RequireFromString("50000000000.25"))
	assert.ErrorIs(t, err, ledger.ErrRateNotInteger)
}

func TestEncodeRejectsOversizedRate(t *testing.T) {
	tooBig := decimal.RequireFromString(
		"115792089237316195423570985008687907853269984665640564039457584007913129639936")
	_, err := EncodeRate(tooBig)
	assert.ErrorIs(t, err, ErrRateTooLarge)
}
