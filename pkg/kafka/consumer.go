package kafka

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// maxHandlerRetries bounds handler attempts before a message is dead-lettered
// (or dropped when no DLQ is configured) and committed.
const maxHandlerRetries = 3

// TopicPrefix prefixes every marketplace topic.
const TopicPrefix = "conectabairro"

// Topic builds "<prefix>.<domain>.<action>".
func Topic(domain, action string) string {
	return TopicPrefix + "." + domain + "." + action
}

// Handler processes one event.
type Handler func(ctx context.Context, event *Event) error

// MessageReader is the subset of *kafka.Reader the consumer uses.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Config() kafka.ReaderConfig
	Close() error
}

// ConsumerConfig holds Kafka consumer configuration.
type ConsumerConfig struct {
	Brokers  []string
	GroupID  string
	Topic    string
	MinBytes int
	MaxBytes int
}

// Consumer reads events from one topic and hands them to a Handler.
type Consumer struct {
	reader    MessageReader
	handler   Handler
	dlq       *DLQProducer
	backoff   time.Duration
	logger    *slog.Logger
	closeOnce sync.Once
}

// ConsumerOption customises a Consumer.
type ConsumerOption func(*Consumer)

// WithDLQ sends messages that exhaust their retries to d.
func WithDLQ(d *DLQProducer) ConsumerOption {
	return func(c *Consumer) { c.dlq = d }
}

// WithRetryBackoff sets the base wait between handler attempts.
func WithRetryBackoff(d time.Duration) ConsumerOption {
	return func(c *Consumer) { c.backoff = d }
}

// NewConsumer creates a consumer backed by a kafka-go reader.
func NewConsumer(cfg ConsumerConfig, handler Handler, logger *slog.Logger, opts ...ConsumerOption) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: cfg.MinBytes,
		MaxBytes: cfg.MaxBytes,
	})
	return NewConsumerWithReader(r, handler, logger, opts...)
}

// NewConsumerWithReader creates a consumer on top of an existing reader.
func NewConsumerWithReader(r MessageReader, handler Handler, logger *slog.Logger, opts ...ConsumerOption) *Consumer {
	c := &Consumer{
		reader:  r,
		handler: handler,
		backoff: 100 * time.Millisecond,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start consumes until ctx is cancelled. Undecodable messages are committed
// and skipped; handler failures are retried with linear backoff.
func (c *Consumer) Start(ctx context.Context) error {
	cfg := c.reader.Config()
	c.logger.Info("consumer started",
		slog.String("topic", cfg.Topic),
		slog.String("group", cfg.GroupID),
	)

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer stopping", slog.String("topic", cfg.Topic))
				return c.Close()
			}
			c.logger.Error("failed to fetch message", slog.String("error", err.Error()))
			continue
		}

		if !c.process(ctx, cfg.GroupID, msg) {
			return c.Close()
		}
	}
}

// process handles one message and reports whether consumption should go on.
func (c *Consumer) process(ctx context.Context, group string, msg kafka.Message) bool {
	event, err := UnmarshalEvent(msg.Value)
	if err != nil {
		c.logger.Error("dropping unusable event",
			slog.String("error", err.Error()),
			slog.String("topic", msg.Topic),
		)
		c.commit(ctx, msg)
		return true
	}

	hctx := ExtractTraceContext(ctx, msg)
	start := time.Now()

	var lastErr error
	for attempt := 1; attempt <= maxHandlerRetries; attempt++ {
		lastErr = c.handler(hctx, event)
		if lastErr == nil {
			break
		}
		c.logger.Warn("handler failed",
			slog.String("event_type", event.EventType),
			slog.String("aggregate_id", event.AggregateID),
			slog.String("error", lastErr.Error()),
			slog.Int64("offset", msg.Offset),
			slog.Int("attempt", attempt),
		)
		if attempt == maxHandlerRetries {
			break
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(time.Duration(attempt) * c.backoff):
		}
	}
	ConsumerProcessingDuration.WithLabelValues(msg.Topic, group).Observe(time.Since(start).Seconds())

	if lastErr == nil {
		ConsumerMessagesProcessed.WithLabelValues(msg.Topic, group).Inc()
		c.commit(ctx, msg)
		return true
	}

	ConsumerMessagesFailed.WithLabelValues(msg.Topic, group).Inc()
	if c.dlq != nil {
		if err := c.dlq.Publish(ctx, msg, lastErr, group); err != nil {
			c.logger.Error("failed to dead-letter message", slog.String("error", err.Error()))
		} else {
			ConsumerDLQPublished.WithLabelValues(msg.Topic, group).Inc()
		}
	} else {
		c.logger.Error("handler failed after all retries, skipping message",
			slog.String("event_type", event.EventType),
			slog.String("aggregate_id", event.AggregateID),
			slog.String("error", lastErr.Error()),
		)
	}
	c.commit(ctx, msg)
	return true
}

func (c *Consumer) commit(ctx context.Context, msg kafka.Message) {
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		c.logger.Error("failed to commit message",
			slog.String("topic", msg.Topic),
			slog.Int64("offset", msg.Offset),
			slog.String("error", err.Error()),
		)
	}
}

// Close closes the reader. It is safe to call more than once.
func (c *Consumer) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.reader.Close()
	})
	return err
}
