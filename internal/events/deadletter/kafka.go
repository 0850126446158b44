// Package deadletter holds the sinks that receive entries the publisher
// gave up on.
package deadletter

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"doiregistrar/internal/events/models"
)

// Headers added on top of the original entry's metadata.
const (
	HeaderSource     = "source"
	HeaderDetailType = "detail-type"
	HeaderEntryID    = "entry-id"
	HeaderAttempts   = "attempts"
	HeaderReason     = "dead-letter-reason"
	HeaderFailedAt   = "dead-lettered-at"
)

// Producer is the subset of *kgo.Client used by KafkaSink.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// KafkaSink writes dead letters to a dedicated topic.
type KafkaSink struct {
	producer Producer
	topic    string
	now      func() time.Time
}

func NewKafka(producer Producer, topic string) *KafkaSink {
	return &KafkaSink{producer: producer, topic: topic, now: time.Now}
}

// Send produces one record and waits for the broker ack.
func (s *KafkaSink) Send(ctx context.Context, entry models.BatchEntry, reason string) error {
	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(entry.Resource),
		Value: entry.Payload,
		Headers: []kgo.RecordHeader{
			{Key: HeaderSource, Value: []byte(entry.Source)},
			{Key: HeaderDetailType, Value: []byte(entry.DetailType)},
			{Key: HeaderEntryID, Value: []byte(entry.ID.String())},
			{Key: HeaderAttempts, Value: []byte(strconv.Itoa(entry.Attempts))},
			{Key: HeaderReason, Value: []byte(reason)},
			{Key: HeaderFailedAt, Value: []byte(s.now().UTC().Format(time.RFC3339Nano))},
		},
	}
	if err := s.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce dead letter to %s: %w", s.topic, err)
	}
	return nil
}
