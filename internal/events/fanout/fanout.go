// Package fanout forwards change-data-capture records onto the event bus.
package fanout

import (
	"context"

	"doiregistrar/internal/events/models"
	"doiregistrar/internal/platform/kafka/consumer"
)

// Source tags entries produced by the fan-out loop.
const Source = "doiregistrar.fanout"

// Publisher delivers a batch at least once.
type Publisher interface {
	Publish(ctx context.Context, entries []models.BatchEntry)
}

// Fanout turns every consumed batch into one publish call. Publish never
// fails, so the batch is always committed afterwards; undeliverable entries
// end up in the dead-letter channel.
type Fanout struct {
	publisher Publisher
}

func New(publisher Publisher) *Fanout {
	return &Fanout{publisher: publisher}
}

func (f *Fanout) HandleBatch(ctx context.Context, msgs []*consumer.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	entries := make([]models.BatchEntry, len(msgs))
	for i, m := range msgs {
		entries[i] = models.NewBatchEntry(m.Value, Source, string(m.Key), models.DetailTypeChangeRecord)
	}
	f.publisher.Publish(ctx, entries)
	return ctx.Err()
}
