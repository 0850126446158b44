// Package bus adapts a Kafka producer to the publisher's EventBus contract.
package bus

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"doiregistrar/internal/events/models"
)

// Record headers carried on every produced event.
const (
	HeaderSource     = "source"
	HeaderDetailType = "detail-type"
	HeaderEntryID    = "entry-id"
	HeaderAttempt    = "attempt"
)

const (
	codeTimeout       = "Timeout"
	codeProduceFailed = "ProduceFailed"
)

// Producer is the subset of *kgo.Client used by KafkaBus.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// KafkaBus publishes entries to a single topic, keyed by resource so that
// events for one publication stay on one partition.
type KafkaBus struct {
	producer Producer
	topic    string
	routes   map[string]string
	logger   *slog.Logger
}

type Option func(*KafkaBus)

func WithLogger(logger *slog.Logger) Option {
	return func(b *KafkaBus) {
		b.logger = logger
	}
}

// WithTopicFor sends entries of detailType to topic instead of the default.
func WithTopicFor(detailType, topic string) Option {
	return func(b *KafkaBus) {
		b.routes[detailType] = topic
	}
}

func NewKafka(producer Producer, topic string, opts ...Option) *KafkaBus {
	b := &KafkaBus{
		producer: producer,
		topic:    topic,
		routes:   make(map[string]string),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// PutEntries produces every entry and reports per-entry outcomes in input
// order. Produce failures never fail the whole call; a cancelled context does.
func (b *KafkaBus) PutEntries(ctx context.Context, entries []models.BatchEntry) ([]models.PutResult, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	records := make([]*kgo.Record, len(entries))
	index := make(map[*kgo.Record]int, len(entries))
	for i, e := range entries {
		records[i] = b.toRecord(e)
		index[records[i]] = i
	}

	produced := b.producer.ProduceSync(ctx, records...)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := make([]models.PutResult, len(entries))
	seen := make([]bool, len(entries))
	for _, r := range produced {
		i, ok := index[r.Record]
		if !ok {
			continue
		}
		seen[i] = true
		if r.Err != nil {
			results[i] = toPutResult(r.Err)
			b.logger.DebugContext(ctx, "kafka produce failed",
				"topic", r.Record.Topic,
				"entry_id", entries[i].ID,
				"error", r.Err,
			)
		}
	}
	for i := range seen {
		if !seen[i] {
			results[i] = models.PutResult{ErrorCode: codeProduceFailed, ErrorMessage: "no produce result"}
		}
	}
	return results, nil
}

func (b *KafkaBus) toRecord(e models.BatchEntry) *kgo.Record {
	topic := b.topic
	if t, ok := b.routes[e.DetailType]; ok {
		topic = t
	}
	return &kgo.Record{
		Topic: topic,
		Key:   []byte(e.Resource),
		Value: e.Payload,
		Headers: []kgo.RecordHeader{
			{Key: HeaderSource, Value: []byte(e.Source)},
			{Key: HeaderDetailType, Value: []byte(e.DetailType)},
			{Key: HeaderEntryID, Value: []byte(e.ID.String())},
			{Key: HeaderAttempt, Value: []byte(strconv.Itoa(e.Attempts))},
		},
	}
}

func toPutResult(err error) models.PutResult {
	var ke *kerr.Error
	switch {
	case errors.As(err, &ke):
		return models.PutResult{ErrorCode: ke.Message, ErrorMessage: ke.Description}
	case errors.Is(err, kgo.ErrRecordTimeout), errors.Is(err, context.DeadlineExceeded):
		return models.PutResult{ErrorCode: codeTimeout, ErrorMessage: err.Error()}
	default:
		return models.PutResult{ErrorCode: codeProduceFailed, ErrorMessage: err.Error()}
	}
}
