package event

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/khoahotran/detasker/internal/config"
	"github.com/khoahotran/detasker/internal/ledger"
	"github.com/khoahotran/detasker/pkg/logger"
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// HandlerFunc processes one decoded ledger event. A non-nil error leaves the message uncommitted.
type HandlerFunc func(ctx context.Context, e ledger.Event) error

type LedgerEventConsumer struct {
	reader   messageReader
	handlers map[string][]HandlerFunc
	logger   logger.Logger
}

func NewLedgerEventConsumer(cfg config.Config, log logger.Logger) *LedgerEventConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Kafka.Brokers,
		Topic:    TopicLedgerEvents,
		GroupID:  cfg.Kafka.GroupID,
		MinBytes: 10e3,
		MaxBytes: 10e6,
	})
	return &LedgerEventConsumer{reader: reader, handlers: map[string][]HandlerFunc{}, logger: log}
}

// Handle registers fn for one event type. Several handlers may share a type; they run in order.
func (c *LedgerEventConsumer) Handle(eventType string, fn HandlerFunc) {
	c.handlers[eventType] = append(c.handlers[eventType], fn)
}

// Run consumes until ctx is cancelled.
func (c *LedgerEventConsumer) Run(ctx context.Context) error {
	c.logger.Info("Worker listening on topic", zap.String("topic", TopicLedgerEvents))
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			c.logger.Error("Failed to read message from Kafka", err)
			continue
		}
		c.process(ctx, msg)
	}
}

func (c *LedgerEventConsumer) process(ctx context.Context, msg kafka.Message) {
	var e ledger.Event
	if err := json.Unmarshal(msg.Value, &e); err != nil {
		c.logger.Error("Failed to unmarshal ledger event, skipping", err, zap.String("key", string(msg.Key)))
		c.commit(ctx, msg)
		return
	}

	for _, fn := range c.handlers[e.Type] {
		if err := fn(ctx, e); err != nil {
			c.logger.Error("Failed to process ledger event", err, zap.String("type", e.Type), zap.Uint64("seq", e.Seq))
			return
		}
	}
	c.commit(ctx, msg)
}

func (c *LedgerEventConsumer) commit(ctx context.Context, msg kafka.Message) {
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		c.logger.Error("Failed to commit message", err)
	}
}

func (c *LedgerEventConsumer) Close() {
	if err := c.reader.Close(); err != nil {
		c.logger.Error("Failed to close Kafka reader", err)
	}
}
