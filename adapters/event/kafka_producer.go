package event

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/khoahotran/detasker/internal/config"
	"github.com/khoahotran/detasker/internal/ledger"
	"github.com/khoahotran/detasker/pkg/logger"
)

const TopicLedgerEvents = "ledger.events"

// messageWriter is the part of *kafka.Writer the producer needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaProducerClient struct {
	LedgerEventsWriter messageWriter
	logger             logger.Logger
}

var _ ledger.Publisher = (*KafkaProducerClient)(nil)

func NewKafkaProducerClient(cfg config.Config, log logger.Logger) (*KafkaProducerClient, error) {
	brokers := cfg.Kafka.Brokers
	if len(brokers) == 0 {
		return nil, fmt.Errorf("config Kafka brokers not found")
	}

	// writer 'ledger.events'; hashing on the key keeps one job's events in one partition
	ledgerWriter := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        TopicLedgerEvents,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}

	log.Info("Initialize Kafka Producers successfully.", zap.Strings("brokers", brokers))

	return &KafkaProducerClient{LedgerEventsWriter: ledgerWriter, logger: log}, nil
}

// Publish writes events in commit order.
func (c *KafkaProducerClient) Publish(ctx context.Context, events []ledger.Event) error {
	msgs := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		value, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal %s event: %w", e.Type, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(messageKey(e)),
			Value: value,
			Headers: []kafka.Header{
				{Key: "event_type", Value: []byte(e.Type)},
			},
		})
	}
	if err := c.LedgerEventsWriter.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write ledger events: %w", err)
	}
	c.logger.Debug("Published ledger events", zap.Int("count", len(msgs)))
	return nil
}

func messageKey(e ledger.Event) string {
	if e.JobID != nil {
		return "job:" + strconv.FormatUint(*e.JobID, 10)
	}
	return "address:" + e.Address.String()
}

func (c *KafkaProducerClient) Close() {
	if c.LedgerEventsWriter != nil {
		if err := c.LedgerEventsWriter.Close(); err != nil {
			c.logger.Error("Failed to close Kafka writer", err)
		}
	}
	c.logger.Info("Closed Kafka Producers")
}
