package kafka

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sheikh-saqib/crosschain-yield-ledger-system/internal/bridge"
	"github.com/sheikh-saqib/crosschain-yield-ledger-system/internal/ledger"
	"github.com/sheikh-saqib/crosschain-yield-ledger-system/internal/models"
)

func testMessage() models.TransferMessage {
	return models.TransferMessage{
		ID:          "msg-1",
		SourceChain: "chain-a",
		DestChain:   "chain-b",
		Receiver:    "alice",
		Amount:      decimal.NewFromInt(100),
		Payload:     make([]byte, 32),
	}
}

func newTestConsumer(handler func(ctx context.Context, msg models.TransferMessage) error) *Consumer {
	return &Consumer{
		handler:    handler,
		log:        zap.NewNop(),
		retryDelay: time.Millisecond,
	}
}

func TestDeliverRetriesTransientFailures(t *testing.T) {
	calls := 0
	c := newTestConsumer(func(ctx context.Context, msg models.TransferMessage) error {
		calls++
		if calls < 3 {
			return errors.New("store briefly down")
		}
		return nil
	})

	require.NoError(t, c.deliver(context.Background(), testMessage()))
	assert.Equal(t, 3, calls, "transient failures must be retried, not dropped")
}

func TestDeliverDropsPermanentRejections(t *testing.T) {
	rejections := []error{
		fmt.Errorf("release: %w", bridge.ErrPayloadDecode),
		fmt.Errorf("release: %w", bridge.ErrUnknownDestination),
		fmt.Errorf("mint: %w", ledger.ErrRateCannotBeZero),
		fmt.Errorf("mint: %w", ledger.ErrRateNotInteger),
		fmt.Errorf("mint: %w", ledger.ErrAmountNotPositive),
	}
	for _, rejection := range rejections {
		calls := 0
		c := newTestConsumer(func(ctx context.Context, msg models.TransferMessage) error {
			calls++
			return rejection
		})

		// Permanent rejections can never be cured by redelivery; the
		// message is dropped so the partition keeps moving.
		require.NoError(t, c.deliver(context.Background(), testMessage()))
		assert.Equal(t, 1, calls, "%v must not be retried", rejection)
	}
}

func TestDeliverStopsWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := newTestConsumer(func(ctx context.Context, msg models.TransferMessage) error {
		cancel()
		return errors.New("still failing")
	})

	err := c.deliver(ctx, testMessage())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTopicFor(t *testing.T) {
	assert.Equal(t, "bridge_transfers.chain-b", TopicFor("chain-b"))
}
