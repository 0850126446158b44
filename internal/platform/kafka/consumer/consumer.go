// Package consumer runs a franz-go group consumer loop with at-least-once
// semantics: offsets are committed only after the handler accepted a batch.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"doiregistrar/internal/platform/metrics"
)

// Message is a consumed record, decoupled from the client library.
type Message struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
}

// Handler processes one message.
type Handler interface {
	Handle(ctx context.Context, msg *Message) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, msg *Message) error

func (f HandlerFunc) Handle(ctx context.Context, msg *Message) error {
	return f(ctx, msg)
}

// BatchHandler processes everything returned by one poll.
type BatchHandler interface {
	HandleBatch(ctx context.Context, msgs []*Message) error
}

// PerMessage adapts a Handler to a BatchHandler, stopping at the first error.
func PerMessage(h Handler) BatchHandler {
	return perMessage{h}
}

type perMessage struct{ h Handler }

func (p perMessage) HandleBatch(ctx context.Context, msgs []*Message) error {
	for _, m := range msgs {
		if err := p.h.Handle(ctx, m); err != nil {
			return fmt.Errorf("handle %s/%d@%d: %w", m.Topic, m.Partition, m.Offset, err)
		}
	}
	return nil
}

// Client is the subset of *kgo.Client the loop needs.
type Client interface {
	PollFetches(ctx context.Context) kgo.Fetches
	CommitRecords(ctx context.Context, rs ...*kgo.Record) error
	AllowRebalance()
}

// Consumer polls, hands batches to the handler, and commits.
type Consumer struct {
	client  Client
	group   string
	handler BatchHandler
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Consumer)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Consumer) {
		c.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Consumer) {
		c.metrics = m
	}
}

func New(client Client, group string, handler BatchHandler, opts ...Option) *Consumer {
	c := &Consumer{
		client:  client,
		group:   group,
		handler: handler,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run blocks until ctx is done or the client is closed, both of which
// return nil. A handler error stops the loop without committing the batch,
// so its records are redelivered to the next member of the group.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.InfoContext(ctx, "consumer started", "group", c.group)
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			c.logger.InfoContext(ctx, "consumer stopped", "group", c.group)
			return nil
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			if errors.Is(err, context.Canceled) {
				return
			}
			c.logger.WarnContext(ctx, "fetch error", "group", c.group, "topic", topic, "partition", partition, "error", err)
		})

		records := fetches.Records()
		if len(records) == 0 {
			c.client.AllowRebalance()
			continue
		}

		if err := c.handleBatch(ctx, records); err != nil {
			c.client.AllowRebalance()
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		if err := c.client.CommitRecords(ctx, records...); err != nil {
			if c.metrics != nil {
				c.metrics.IncCommitFailures(c.group)
			}
			c.logger.ErrorContext(ctx, "offset commit failed; batch may be redelivered",
				"group", c.group,
				"records", len(records),
				"error", err,
			)
		}
		c.client.AllowRebalance()
	}
}

func (c *Consumer) handleBatch(ctx context.Context, records []*kgo.Record) error {
	msgs := make([]*Message, len(records))
	perTopic := make(map[string]int)
	for i, r := range records {
		msgs[i] = toMessage(r)
		perTopic[r.Topic]++
	}
	if c.metrics != nil {
		for topic, n := range perTopic {
			c.metrics.AddConsumed(topic, n)
		}
	}

	start := time.Now()
	err := c.handler.HandleBatch(ctx, msgs)
	if c.metrics != nil {
		c.metrics.ObserveBatch(c.group, time.Since(start).Seconds())
	}
	if err != nil {
		if c.metrics != nil {
			c.metrics.IncHandlerErrors(c.group)
		}
		c.logger.ErrorContext(ctx, "batch handler failed; offsets not committed",
			"group", c.group,
			"records", len(records),
			"error", err,
		)
		return fmt.Errorf("consumer %s: %w", c.group, err)
	}
	return nil
}

func toMessage(r *kgo.Record) *Message {
	headers := make(map[string]string, len(r.Headers))
	for _, h := range r.Headers {
		headers[h.Key] = string(h.Value)
	}
	return &Message{
		Topic:     r.Topic,
		Partition: r.Partition,
		Offset:    r.Offset,
		Key:       r.Key,
		Value:     r.Value,
		Headers:   headers,
		Timestamp: r.Timestamp,
	}
}
