package deadletter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"doiregistrar/internal/events/models"
)

type recordingProducer struct {
	records []*kgo.Record
	err     error
}

func (p *recordingProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	p.records = append(p.records, rs...)
	out := make(kgo.ProduceResults, len(rs))
	for i, r := range rs {
		out[i] = kgo.ProduceResult{Record: r, Err: p.err}
	}
	return out
}

func headerMap(r *kgo.Record) map[string]string {
	m := make(map[string]string, len(r.Headers))
	for _, h := range r.Headers {
		m[h.Key] = string(h.Value)
	}
	return m
}

func TestKafkaSink_Send(t *testing.T) {
	p := &recordingProducer{}
	sink := NewKafka(p, "doi-events-dlq")
	sink.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	entry := models.NewBatchEntry([]byte(`{"op":"update"}`), "doiregistrar.fanout", "publication/7", models.DetailTypeChangeRecord)
	entry.Attempts = 3

	require.NoError(t, sink.Send(context.Background(), entry, "ThrottlingException: rate exceeded"))
	require.Len(t, p.records, 1)

	r := p.records[0]
	assert.Equal(t, "doi-events-dlq", r.Topic)
	assert.Equal(t, "publication/7", string(r.Key))
	assert.Equal(t, `{"op":"update"}`, string(r.Value))

	h := headerMap(r)
	assert.Equal(t, entry.ID.String(), h[HeaderEntryID])
	assert.Equal(t, "3", h[HeaderAttempts])
	assert.Equal(t, "ThrottlingException: rate exceeded", h[HeaderReason])
	assert.Equal(t, "2026-03-01T12:00:00Z", h[HeaderFailedAt])
	assert.Equal(t, models.DetailTypeChangeRecord, h[HeaderDetailType])
}

func TestKafkaSink_SendError(t *testing.T) {
	p := &recordingProducer{err: errors.New("broker down")}
	sink := NewKafka(p, "doi-events-dlq")

	err := sink.Send(context.Background(), models.NewBatchEntry(nil, "s", "r", "d"), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "doi-events-dlq")
	assert.Contains(t, err.Error(), "broker down")
}
