package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/sheikh-saqib/crosschain-yield-ledger-system/internal/bridge"
	interfaces "github.com/sheikh-saqib/crosschain-yield-ledger-system/internal/interfaces"
	"github.com/sheikh-saqib/crosschain-yield-ledger-system/internal/ledger"
	"github.com/sheikh-saqib/crosschain-yield-ledger-system/internal/models"
)

// TopicFor returns the Kafka topic carrying transfers bound for a chain.
func TopicFor(chainID string) string {
	return fmt.Sprintf("bridge_transfers.%s", chainID)
}

// Relay delivers cross-chain transfer messages over Kafka: each chain
// consumes its own topic, and messages are keyed by message ID. Delivery
// guarantees are Kafka's; the bridge adapter deduplicates by message ID on
// the receiving side.
type Relay struct {
	writer *kafka.Writer
}

func NewRelay(brokers []string) *Relay {
	return &Relay{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Balancer: &kafka.LeastBytes{},
		},
	}
}

func (r *Relay) Send(ctx context.Context, msg models.TransferMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	return r.writer.WriteMessages(ctx, kafka.Message{
		Topic: TopicFor(msg.DestChain),
		Key:   []byte(msg.ID),
		Value: data,
	})
}

func (r *Relay) Close() error {
	return r.writer.Close()
}

var _ interfaces.Relay = (*Relay)(nil)

// Consumer reads a chain's inbound topic and hands each transfer message to
// the bridge adapter's handler.
type Consumer struct {
	reader     *kafka.Reader
	handler    interfaces.MessageHandler
	log        *zap.Logger
	retryDelay time.Duration
}

func NewConsumer(brokers []string, chainID, groupID string, handler interfaces.MessageHandler, log *zap.Logger) *Consumer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: brokers,
			Topic:   TopicFor(chainID),
			GroupID: groupID,
		}),
		handler:    handler,
		log:        log,
		retryDelay: 5 * time.Second,
	}
}

// Run consumes until ctx is cancelled. A message's offset is only committed
// once the handler has accepted it or rejected it permanently; transient
// failures (store briefly down) are retried in place rather than dropped,
// which is safe because the adapter deduplicates by message ID. Each
// burned-on-source transfer is thus delivered or held, never lost.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		var msg models.TransferMessage
		if err := json.Unmarshal(m.Value, &msg); err != nil {
			c.log.Error("drop undecodable relay message",
				zap.String("key", string(m.Key)),
				zap.Error(err))
		} else if err := c.deliver(ctx, msg); err != nil {
			return err
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil {
			return err
		}
	}
}

// deliver hands one message to the handler, retrying transient failures
// until ctx is cancelled. Permanent protocol rejections are logged and
// dropped; redelivering them can never succeed.
func (c *Consumer) deliver(ctx context.Context, msg models.TransferMessage) error {
	for {
		err := c.handler(ctx, msg)
		if err == nil {
			return nil
		}
		if permanent(err) {
			c.log.Error("drop permanently rejected relay message",
				zap.String("message_id", msg.ID),
				zap.Error(err))
			return nil
		}
		c.log.Warn("handle relay message failed, retrying",
			zap.String("message_id", msg.ID),
			zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.retryDelay):
		}
	}
}

// permanent reports whether a handler error can never be cured by
// redelivery.
func permanent(err error) bool {
	return errors.Is(err, bridge.ErrPayloadDecode) ||
		errors.Is(err, bridge.ErrUnknownDestination) ||
		errors.Is(err, ledger.ErrRateCannotBeZero) ||
		errors.Is(err, ledger.ErrRateNotInteger) ||
		errors.Is(err, ledger.ErrAmountNotPositive)
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
