package kafka

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/turtacn/PillScope/internal/domain/pill"
	"github.com/turtacn/PillScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/PillScope/pkg/errors"
)

var (
	ErrAlreadyRunning = errors.New(errors.ErrCodeConflict, "consumer already running")
	ErrConsumerClosed = errors.New(errors.CodeMessageQueueError, "consumer closed")
)

// EventHandler processes one decoded event. A non-nil error stops
// consumption and leaves the message uncommitted.
type EventHandler func(ctx context.Context, event pill.Event) error

// ConsumerConfig holds configuration for the Consumer.
type ConsumerConfig struct {
	Brokers         []string
	Topic           string
	GroupID         string // empty reads partition 0 without a group
	AutoOffsetReset string // earliest, latest
	MaxWait         time.Duration
}

// ReaderInterface abstracts kafka.Reader for testing.
type ReaderInterface interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads pipeline events back off the topic.
type Consumer struct {
	reader  ReaderInterface
	config  ConsumerConfig
	logger  logging.Logger
	running atomic.Bool
	closed  atomic.Bool

	consumed atomic.Int64
	skipped  atomic.Int64
}

// NewConsumer creates a new Consumer.
func NewConsumer(cfg ConsumerConfig, logger logging.Logger) (*Consumer, error) {
	if err := ValidateConsumerConfig(cfg); err != nil {
		return nil, err
	}
	if cfg.MaxWait == 0 {
		cfg.MaxWait = time.Second
	}

	readerCfg := kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     cfg.GroupID,
		MaxWait:     cfg.MaxWait,
		StartOffset: kafka.FirstOffset,
	}
	if cfg.AutoOffsetReset == "latest" {
		readerCfg.StartOffset = kafka.LastOffset
	}

	return &Consumer{
		reader: kafka.NewReader(readerCfg),
		config: cfg,
		logger: logger,
	}, nil
}

// Consume blocks, handing each event to handler until ctx is cancelled or
// handler fails. Messages that do not decode as events are logged and
// skipped. Cancellation is a clean stop and returns nil.
func (c *Consumer) Consume(ctx context.Context, handler EventHandler) error {
	if c.closed.Load() {
		return ErrConsumerClosed
	}
	if !c.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer c.running.Store(false)

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || stderrors.Is(err, context.Canceled) {
				return nil
			}
			return errors.Wrap(err, errors.CodeMessageQueueError, "failed to fetch message")
		}
		c.consumed.Add(1)

		var event pill.Event
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			c.skipped.Add(1)
			c.logger.Warn("Skipping undecodable event",
				logging.Int64("offset", msg.Offset),
				logging.Err(err))
		} else if err := handler(ctx, event); err != nil {
			return err
		}

		if c.config.GroupID != "" {
			if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
				c.logger.Error("Failed to commit offset", logging.Int64("offset", msg.Offset), logging.Err(err))
			}
		}
	}
}

// Consumed and Skipped report lifetime counters.
func (c *Consumer) Consumed() int64 { return c.consumed.Load() }
func (c *Consumer) Skipped() int64  { return c.skipped.Load() }

// Close closes the reader. Repeated calls are no-ops.
func (c *Consumer) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.reader.Close()
}

func ValidateConsumerConfig(cfg ConsumerConfig) error {
	if len(cfg.Brokers) == 0 {
		return errors.New(errors.ErrCodeValidation, "brokers required")
	}
	if cfg.Topic == "" {
		return errors.New(errors.ErrCodeValidation, "topic required")
	}
	return nil
}

//Personal.AI order the ending
