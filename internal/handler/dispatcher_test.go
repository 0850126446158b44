package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	doimodels "doiregistrar/internal/doi/models"
	"doiregistrar/internal/events/bus"
	"doiregistrar/internal/events/models"
	"doiregistrar/internal/handler/mocks"
	"doiregistrar/internal/platform/kafka/consumer"
	dErrors "doiregistrar/pkg/domain-errors"
	"doiregistrar/pkg/platform/sentinel"
)

type capturePublisher struct{ published []models.BatchEntry }

func (p *capturePublisher) Publish(_ context.Context, entries []models.BatchEntry) {
	p.published = append(p.published, entries...)
}

type captureSink struct {
	err     error
	entries []models.BatchEntry
	reasons []string
}

func (s *captureSink) Send(_ context.Context, entry models.BatchEntry, reason string) error {
	s.entries = append(s.entries, entry)
	s.reasons = append(s.reasons, reason)
	return s.err
}

func message(t *testing.T, rec ChangeRecord) *consumer.Message {
	t.Helper()
	payload, err := json.Marshal(rec)
	require.NoError(t, err)
	return &consumer.Message{
		Topic: "doi-events",
		Key:   []byte(rec.Resource),
		Value: payload,
		Headers: map[string]string{
			bus.HeaderSource:     "doiregistrar.fanout",
			bus.HeaderDetailType: models.DetailTypeChangeRecord,
			bus.HeaderEntryID:    "6f1c1b8e-6c4e-4c39-9d7a-0e9d2f8b1a11",
		},
	}
}

func newDispatcher(t *testing.T) (*Dispatcher, *mocks.MockLifecycle, *capturePublisher, *captureSink) {
	ctrl := gomock.NewController(t)
	lifecycle := mocks.NewMockLifecycle(ctrl)
	pub := &capturePublisher{}
	sink := &captureSink{}
	return NewDispatcher(New(lifecycle), pub, sink, nil), lifecycle, pub, sink
}

func TestDispatcher_SuccessPublishesNotification(t *testing.T) {
	d, lifecycle, pub, sink := newDispatcher(t)
	lifecycle.EXPECT().DeleteMetadata(gomock.Any(), "t", doi).Return(nil)

	err := d.Handle(context.Background(), message(t, ChangeRecord{Operation: OpDeleteMetadata, Tenant: "t", Resource: "publication/1", Doi: doi.String()}))
	require.NoError(t, err)
	require.Len(t, pub.published, 1)
	assert.Equal(t, models.DetailTypeDoiUpdated, pub.published[0].DetailType)
	assert.Empty(t, sink.entries)
}

func TestDispatcher_RejectedIsDropped(t *testing.T) {
	d, lifecycle, pub, sink := newDispatcher(t)
	lifecycle.EXPECT().DeleteDraftDoi(gomock.Any(), "t", doi).Return(dErrors.New(dErrors.KindNotDraft, "findable"))

	err := d.Handle(context.Background(), message(t, ChangeRecord{Operation: OpDeleteDraft, Tenant: "t", Resource: "publication/1", Doi: doi.String()}))
	require.NoError(t, err)
	assert.Empty(t, pub.published)
	assert.Empty(t, sink.entries)
}

func TestDispatcher_RetryableIsDeadLettered(t *testing.T) {
	d, lifecycle, pub, sink := newDispatcher(t)
	lifecycle.EXPECT().UpdateMetadata(gomock.Any(), "t", doi, "<r/>").Return(dErrors.Upstream(http.StatusServiceUnavailable, "maintenance"))

	msg := message(t, ChangeRecord{Operation: OpUpdate, Tenant: "t", Resource: "publication/9", Doi: doi.String(), MetadataXML: "<r/>"})
	require.NoError(t, d.Handle(context.Background(), msg))

	assert.Empty(t, pub.published)
	require.Len(t, sink.entries, 1)
	dl := sink.entries[0]
	assert.Equal(t, uuid.MustParse("6f1c1b8e-6c4e-4c39-9d7a-0e9d2f8b1a11"), dl.ID)
	assert.Equal(t, "publication/9", dl.Resource)
	assert.Equal(t, msg.Value, dl.Payload)
	assert.Equal(t, models.DetailTypeChangeRecord, dl.DetailType)
	assert.Contains(t, sink.reasons[0], "upstream_api")
}

func TestDispatcher_DeadLetterFailureBlocksCommit(t *testing.T) {
	d, lifecycle, _, sink := newDispatcher(t)
	sink.err = errors.New("dlq down")
	lifecycle.EXPECT().UpdateMetadata(gomock.Any(), "t", doi, "").Return(dErrors.New(dErrors.KindTransport, "timeout"))

	err := d.Handle(context.Background(), message(t, ChangeRecord{Operation: OpUpdate, Tenant: "t", Doi: doi.String()}))
	assert.ErrorContains(t, err, "dlq down")
}

func TestDispatcher_UndecodableIsDropped(t *testing.T) {
	d, _, pub, sink := newDispatcher(t)
	err := d.Handle(context.Background(), &consumer.Message{Topic: "doi-events", Value: []byte("{")})
	require.NoError(t, err)
	assert.Empty(t, pub.published)
	assert.Empty(t, sink.entries)
}

func TestDispatcher_IndeterminateCreateIsReportedNotRetried(t *testing.T) {
	d, lifecycle, pub, sink := newDispatcher(t)
	lifecycle.EXPECT().CreateDoi(gomock.Any(), "t", "<r/>").
		Return(doimodels.Doi{}, dErrors.New(dErrors.KindTransport, "read timeout"))

	rec := ChangeRecord{Operation: OpCreate, Tenant: "t", Resource: "publication/3", MetadataXML: "<r/>"}
	require.NoError(t, d.Handle(context.Background(), message(t, rec)))

	assert.Empty(t, sink.entries)
	require.Len(t, pub.published, 1)
	assert.Equal(t, models.DetailTypeMintIndeterminate, pub.published[0].DetailType)
	assert.Equal(t, "publication/3", pub.published[0].Resource)

	var report MintIndeterminate
	require.NoError(t, json.Unmarshal(pub.published[0].Payload, &report))
	assert.Equal(t, rec, report.Record)
	assert.Contains(t, report.Error, "read timeout")
}

func TestDispatcher_LandingPageFailureNeverMintsTwice(t *testing.T) {
	d, lifecycle, pub, sink := newDispatcher(t)
	lifecycle.EXPECT().CreateDoi(gomock.Any(), "t", "<r/>").Return(doi, nil).Times(1)
	gomock.InOrder(
		lifecycle.EXPECT().SetLandingPage(gomock.Any(), "t", doi, "https://example.org/p/4").
			Return(dErrors.New(dErrors.KindTransport, "connection reset")),
		lifecycle.EXPECT().SetLandingPage(gomock.Any(), "t", doi, "https://example.org/p/4").Return(nil),
	)

	msg := message(t, ChangeRecord{
		Operation:   OpCreate,
		Tenant:      "t",
		Resource:    "publication/4",
		MetadataXML: "<r/>",
		LandingPage: "https://example.org/p/4",
	})
	require.NoError(t, d.Handle(context.Background(), msg))

	// The minted DOI is announced straight away.
	require.Len(t, pub.published, 1)
	var created DoiUpdated
	require.NoError(t, json.Unmarshal(pub.published[0].Payload, &created))
	assert.Equal(t, OpCreate, created.Operation)
	assert.Equal(t, doi.String(), created.Doi)

	require.Len(t, sink.entries, 1)
	parked := sink.entries[0]
	assert.Equal(t, models.DetailTypeChangeRecord, parked.DetailType)
	assert.NotEqual(t, uuid.MustParse("6f1c1b8e-6c4e-4c39-9d7a-0e9d2f8b1a11"), parked.ID)
	again, err := remainingEntry(msg, &IncompleteError{Doi: doi, Remaining: ChangeRecord{Operation: OpFindable}})
	require.NoError(t, err)
	assert.Equal(t, parked.ID, again.ID)

	var remaining ChangeRecord
	require.NoError(t, json.Unmarshal(parked.Payload, &remaining))
	assert.Equal(t, OpFindable, remaining.Operation)
	assert.Equal(t, doi.String(), remaining.Doi)

	// Replaying the parked record finishes the job without another create.
	redriven := &consumer.Message{
		Topic:   "doi-events",
		Key:     []byte(parked.Resource),
		Value:   parked.Payload,
		Headers: map[string]string{bus.HeaderDetailType: parked.DetailType, bus.HeaderEntryID: parked.ID.String()},
	}
	require.NoError(t, d.Handle(context.Background(), redriven))
	require.Len(t, pub.published, 2)
	assert.Len(t, sink.entries, 1)
}

func TestDispatcher_LandingPageRejectedAfterMintIsCommitted(t *testing.T) {
	d, lifecycle, pub, sink := newDispatcher(t)
	lifecycle.EXPECT().CreateDoi(gomock.Any(), "t", "").Return(doi, nil)
	lifecycle.EXPECT().SetLandingPage(gomock.Any(), "t", doi, "ftp://nope").
		Return(dErrors.New(dErrors.KindInvalidInput, "landing page must be http(s)"))

	err := d.Handle(context.Background(), message(t, ChangeRecord{Operation: OpCreate, Tenant: "t", LandingPage: "ftp://nope"}))
	require.NoError(t, err)
	assert.Len(t, pub.published, 1)
	assert.Empty(t, sink.entries)
}

func TestDispatcher_CredentialOutageIsDeadLettered(t *testing.T) {
	d, lifecycle, pub, sink := newDispatcher(t)
	outage := dErrors.Wrap(sentinel.ErrUnavailable, dErrors.KindTransport, "fetch customer secrets")
	lifecycle.EXPECT().CreateDoi(gomock.Any(), "t", "<r/>").Return(doimodels.Doi{}, outage)

	err := d.Handle(context.Background(), message(t, ChangeRecord{Operation: OpCreate, Tenant: "t", MetadataXML: "<r/>"}))
	require.NoError(t, err)
	assert.Empty(t, pub.published)
	require.Len(t, sink.entries, 1)
	assert.Contains(t, sink.reasons[0], "transport")
}
