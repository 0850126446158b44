package bus

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"doiregistrar/internal/events/models"
)

// fakeProducer completes records in reverse order, failing the ones whose
// key is listed in fail.
type fakeProducer struct {
	fail     map[string]error
	drop     map[string]bool
	received []*kgo.Record
}

func (p *fakeProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	p.received = append(p.received, rs...)
	var out kgo.ProduceResults
	for _, r := range slices.Backward(rs) {
		if p.drop[string(r.Key)] {
			continue
		}
		out = append(out, kgo.ProduceResult{Record: r, Err: p.fail[string(r.Key)]})
	}
	return out
}

func header(r *kgo.Record, key string) string {
	for _, h := range r.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func entries(resources ...string) []models.BatchEntry {
	out := make([]models.BatchEntry, len(resources))
	for i, r := range resources {
		out[i] = models.NewBatchEntry([]byte(`{}`), "doiregistrar.fanout", r, models.DetailTypeChangeRecord)
		out[i].Attempts = 2
	}
	return out
}

func TestPutEntries_ResultsFollowInputOrder(t *testing.T) {
	p := &fakeProducer{fail: map[string]error{
		"publication/b": kerr.NotLeaderForPartition,
		"publication/d": kgo.ErrRecordTimeout,
	}}
	b := NewKafka(p, "doi-events")

	in := entries("publication/a", "publication/b", "publication/c", "publication/d", "publication/e")
	results, err := b.PutEntries(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, results, 5)

	assert.False(t, results[0].Failed())
	assert.Equal(t, "NOT_LEADER_FOR_PARTITION", results[1].ErrorCode)
	assert.False(t, results[2].Failed())
	assert.Equal(t, codeTimeout, results[3].ErrorCode)
	assert.False(t, results[4].Failed())
}

func TestPutEntries_RecordShape(t *testing.T) {
	p := &fakeProducer{}
	b := NewKafka(p, "doi-events")

	in := entries("publication/42")
	_, err := b.PutEntries(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, p.received, 1)

	r := p.received[0]
	assert.Equal(t, "doi-events", r.Topic)
	assert.Equal(t, "publication/42", string(r.Key))
	assert.Equal(t, `{}`, string(r.Value))
	assert.Equal(t, "doiregistrar.fanout", header(r, HeaderSource))
	assert.Equal(t, models.DetailTypeChangeRecord, header(r, HeaderDetailType))
	assert.Equal(t, in[0].ID.String(), header(r, HeaderEntryID))
	assert.Equal(t, "2", header(r, HeaderAttempt))
}

func TestPutEntries_MissingResultIsFailure(t *testing.T) {
	p := &fakeProducer{drop: map[string]bool{"publication/b": true}}
	b := NewKafka(p, "doi-events")

	results, err := b.PutEntries(context.Background(), entries("publication/a", "publication/b"))
	require.NoError(t, err)
	assert.False(t, results[0].Failed())
	assert.Equal(t, codeProduceFailed, results[1].ErrorCode)
}

func TestPutEntries_GenericErrorIsProduceFailed(t *testing.T) {
	p := &fakeProducer{fail: map[string]error{"publication/a": errors.New("client closed")}}
	b := NewKafka(p, "doi-events")

	results, err := b.PutEntries(context.Background(), entries("publication/a"))
	require.NoError(t, err)
	assert.Equal(t, codeProduceFailed, results[0].ErrorCode)
	assert.Equal(t, "client closed", results[0].ErrorMessage)
}

func TestPutEntries_CancelledContextFailsCall(t *testing.T) {
	b := NewKafka(&fakeProducer{}, "doi-events")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.PutEntries(ctx, entries("publication/a"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPutEntries_Empty(t *testing.T) {
	p := &fakeProducer{}
	results, err := NewKafka(p, "doi-events").PutEntries(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Empty(t, p.received)
}

func TestPutEntries_TopicPerDetailType(t *testing.T) {
	p := &fakeProducer{}
	b := NewKafka(p, "doi-events", WithTopicFor(models.DetailTypeDoiUpdated, "doi-notifications"))

	in := entries("publication/1", "publication/2")
	in[1].DetailType = models.DetailTypeDoiUpdated
	_, err := b.PutEntries(context.Background(), in)
	require.NoError(t, err)

	require.Len(t, p.received, 2)
	assert.Equal(t, "doi-events", p.received[0].Topic)
	assert.Equal(t, "doi-notifications", p.received[1].Topic)
}
