package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	customermodels "doiregistrar/internal/customer/models"
	"doiregistrar/internal/customer/resolver"
	doimodels "doiregistrar/internal/doi/models"
	"doiregistrar/internal/doi/service"
	servicemocks "doiregistrar/internal/doi/service/mocks"
	"doiregistrar/internal/events/models"
	"doiregistrar/internal/handler/mocks"
	dErrors "doiregistrar/pkg/domain-errors"
	"doiregistrar/pkg/platform/sentinel"
)

type HandlerSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	lifecycle *mocks.MockLifecycle
	handler   *Handler
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.lifecycle = mocks.NewMockLifecycle(s.ctrl)
	s.handler = New(s.lifecycle)
	s.handler.now = func() time.Time { return time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC) }
}

func (s *HandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

var doi = doimodels.MustNew("10.5072", "abc123")

func (s *HandlerSuite) decodeEvent(entry *models.BatchEntry) DoiUpdated {
	s.Require().NotNil(entry)
	s.Equal(models.DetailTypeDoiUpdated, entry.DetailType)
	s.Equal(Source, entry.Source)
	var ev DoiUpdated
	s.Require().NoError(json.Unmarshal(entry.Payload, &ev))
	return ev
}

func (s *HandlerSuite) TestCreateWithLandingPage() {
	ctx := context.Background()
	gomock.InOrder(
		s.lifecycle.EXPECT().CreateDoi(ctx, "tenant-a", "<resource/>").Return(doi, nil),
		s.lifecycle.EXPECT().SetLandingPage(ctx, "tenant-a", doi, "https://example.org/p/1").Return(nil),
	)

	entry, err := s.handler.Handle(ctx, ChangeRecord{
		Operation:   OpCreate,
		Tenant:      "tenant-a",
		Resource:    "publication/1",
		MetadataXML: "<resource/>",
		LandingPage: "https://example.org/p/1",
	})
	s.Require().NoError(err)

	ev := s.decodeEvent(entry)
	s.Equal(OpCreate, ev.Operation)
	s.Equal("10.5072/abc123", ev.Doi)
	s.Equal("publication/1", entry.Resource)
	s.Equal(time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC), ev.At)
}

func (s *HandlerSuite) TestCreateLandingPageFailureKeepsMintedDoi() {
	ctx := context.Background()
	s.lifecycle.EXPECT().CreateDoi(ctx, "tenant-a", "<resource/>").Return(doi, nil)
	s.lifecycle.EXPECT().SetLandingPage(ctx, "tenant-a", doi, "https://example.org/p/1").
		Return(dErrors.New(dErrors.KindTransport, "connection reset"))

	entry, err := s.handler.Handle(ctx, ChangeRecord{
		Operation:   OpCreate,
		Tenant:      "tenant-a",
		Resource:    "publication/1",
		MetadataXML: "<resource/>",
		LandingPage: "https://example.org/p/1",
	})
	s.Nil(entry)

	var inc *IncompleteError
	s.Require().ErrorAs(err, &inc)
	s.Equal(doi, inc.Doi)
	s.Equal(ChangeRecord{
		Operation:   OpFindable,
		Tenant:      "tenant-a",
		Resource:    "publication/1",
		Doi:         "10.5072/abc123",
		LandingPage: "https://example.org/p/1",
	}, inc.Remaining)
	ev := s.decodeEvent(inc.Created)
	s.Equal(OpCreate, ev.Operation)
	s.Equal("10.5072/abc123", ev.Doi)
	s.Equal(OutcomeRetryable, Classify(err))
}

func (s *HandlerSuite) TestCreateTransportFailureIsIndeterminate() {
	s.lifecycle.EXPECT().CreateDoi(gomock.Any(), "tenant-a", "").
		Return(doimodels.Doi{}, dErrors.New(dErrors.KindTransport, "read timeout"))

	_, err := s.handler.Handle(context.Background(), ChangeRecord{Operation: OpCreate, Tenant: "tenant-a"})
	var mint *MintError
	s.Require().ErrorAs(err, &mint)
	s.True(mint.MayHaveMinted())
	s.Equal(OutcomeIndeterminate, Classify(err))
}

func (s *HandlerSuite) TestDraftCredentialOutageIsRetryable() {
	outage := dErrors.Wrap(sentinel.ErrUnavailable, dErrors.KindTransport, "fetch customer secrets")
	s.lifecycle.EXPECT().CreateDraftDoi(gomock.Any(), "tenant-a").Return(doimodels.Doi{}, outage)

	_, err := s.handler.Handle(context.Background(), ChangeRecord{Operation: OpDraft, Tenant: "tenant-a"})
	s.Equal(OutcomeRetryable, Classify(err))
}

func (s *HandlerSuite) TestOwnershipCheck() {
	dir := mocks.NewMockDirectory(s.ctrl)
	h := New(s.lifecycle, WithDirectory(dir))
	ctx := context.Background()

	dir.EXPECT().ResolveByPrefix(ctx, "10.5072").Return(&customermodels.CustomerConfig{CustomerID: "tenant-b"}, nil)
	_, err := h.Handle(ctx, ChangeRecord{Operation: OpDeleteMetadata, Tenant: "tenant-a", Doi: "10.5072/abc123"})
	s.True(dErrors.HasKind(err, dErrors.KindConfiguration))
	s.Equal(OutcomeRejected, Classify(err))

	dir.EXPECT().ResolveByPrefix(ctx, "10.5072").Return(&customermodels.CustomerConfig{CustomerID: "tenant-a"}, nil)
	s.lifecycle.EXPECT().DeleteMetadata(ctx, "tenant-a", doi).Return(nil)
	_, err = h.Handle(ctx, ChangeRecord{Operation: OpDeleteMetadata, Tenant: "tenant-a", Doi: "10.5072/abc123"})
	s.NoError(err)

	unlisted := dErrors.Wrap(sentinel.ErrNotFound, dErrors.KindConfiguration, "no customer owns prefix 10.5072")
	dir.EXPECT().ResolveByPrefix(ctx, "10.5072").Return(nil, unlisted)
	s.lifecycle.EXPECT().DeleteMetadata(ctx, "tenant-a", doi).Return(nil)
	_, err = h.Handle(ctx, ChangeRecord{Operation: OpDeleteMetadata, Tenant: "tenant-a", Doi: "10.5072/abc123"})
	s.NoError(err)

	outage := dErrors.Wrap(sentinel.ErrUnavailable, dErrors.KindTransport, "fetch customer secrets")
	dir.EXPECT().ResolveByPrefix(ctx, "10.5072").Return(nil, outage)
	_, err = h.Handle(ctx, ChangeRecord{Operation: OpDeleteMetadata, Tenant: "tenant-a", Doi: "10.5072/abc123"})
	s.Equal(OutcomeRetryable, Classify(err))
}

func (s *HandlerSuite) TestCreateRejectsExplicitDoi() {
	_, err := s.handler.Handle(context.Background(), ChangeRecord{Operation: OpCreate, Tenant: "t", Doi: "10.5072/x"})
	s.True(dErrors.HasKind(err, dErrors.KindInvalidInput))
}

func (s *HandlerSuite) TestDraft() {
	s.lifecycle.EXPECT().CreateDraftDoi(gomock.Any(), "tenant-a").Return(doi, nil)
	entry, err := s.handler.Handle(context.Background(), ChangeRecord{Operation: OpDraft, Tenant: "tenant-a"})
	s.Require().NoError(err)
	s.Equal("10.5072/abc123", s.decodeEvent(entry).Doi)
}

func (s *HandlerSuite) TestRoutesExistingDoiOperations() {
	ctx := context.Background()
	s.lifecycle.EXPECT().UpdateMetadata(ctx, "t", doi, "<resource/>").Return(nil)
	s.lifecycle.EXPECT().SetLandingPage(ctx, "t", doi, "https://example.org").Return(nil)
	s.lifecycle.EXPECT().DeleteMetadata(ctx, "t", doi).Return(nil)
	s.lifecycle.EXPECT().DeleteDraftDoi(ctx, "t", doi).Return(nil)

	for _, rec := range []ChangeRecord{
		{Operation: OpUpdate, MetadataXML: "<resource/>"},
		{Operation: OpFindable, LandingPage: "https://example.org"},
		{Operation: OpDeleteMetadata},
		{Operation: OpDeleteDraft},
	} {
		rec.Tenant = "t"
		rec.Doi = "https://doi.org/10.5072/abc123"
		_, err := s.handler.Handle(ctx, rec)
		s.NoError(err, rec.Operation)
	}
}

func (s *HandlerSuite) TestUnknownOperation() {
	_, err := s.handler.Handle(context.Background(), ChangeRecord{Operation: "archive", Tenant: "t", Doi: "10.5072/x"})
	s.True(dErrors.HasKind(err, dErrors.KindInvalidInput))
	s.Equal(OutcomeRejected, Classify(err))
}

func (s *HandlerSuite) TestMissingTenant() {
	_, err := s.handler.Handle(context.Background(), ChangeRecord{Operation: OpDraft})
	s.True(dErrors.HasKind(err, dErrors.KindInvalidInput))
}

func (s *HandlerSuite) TestBadDoi() {
	_, err := s.handler.Handle(context.Background(), ChangeRecord{Operation: OpUpdate, Tenant: "t", Doi: "no-slash"})
	s.True(dErrors.HasKind(err, dErrors.KindInvalidInput))
}

func (s *HandlerSuite) TestLifecycleErrorPassesThrough() {
	notDraft := &dErrors.Error{Kind: dErrors.KindNotDraft, Err: sentinel.ErrInvalidState}
	s.lifecycle.EXPECT().DeleteDraftDoi(gomock.Any(), "t", doi).Return(notDraft)

	entry, err := s.handler.Handle(context.Background(), ChangeRecord{Operation: OpDeleteDraft, Tenant: "t", Doi: "10.5072/abc123"})
	s.Nil(entry)
	s.ErrorIs(err, sentinel.ErrInvalidState)
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Outcome
	}{
		{"not draft", dErrors.New(dErrors.KindNotDraft, "findable"), OutcomeRejected},
		{"configuration", dErrors.New(dErrors.KindConfiguration, "unknown tenant"), OutcomeRejected},
		{"invalid input", dErrors.New(dErrors.KindInvalidInput, "bad doi"), OutcomeRejected},
		{"upstream 4xx", dErrors.Upstream(http.StatusUnprocessableEntity, "bad xml"), OutcomeRejected},
		{"upstream 5xx", dErrors.Upstream(http.StatusBadGateway, "oops"), OutcomeRetryable},
		{"upstream 429", dErrors.Upstream(http.StatusTooManyRequests, "slow down"), OutcomeRetryable},
		{"transport", dErrors.New(dErrors.KindTransport, "reset"), OutcomeRetryable},
		{"deadline", context.DeadlineExceeded, OutcomeRetryable},
		{"create transport", &MintError{Op: OpCreate, Err: dErrors.New(dErrors.KindTransport, "reset")}, OutcomeIndeterminate},
		{"create 5xx", &MintError{Op: OpCreate, Err: dErrors.Upstream(http.StatusBadGateway, "oops")}, OutcomeIndeterminate},
		{"create unreadable 201", &MintError{Op: OpCreate, Err: dErrors.Upstream(http.StatusCreated, "OK")}, OutcomeIndeterminate},
		{"create cancelled", &MintError{Op: OpDraft, Err: context.Canceled}, OutcomeIndeterminate},
		{"create 429", &MintError{Op: OpCreate, Err: dErrors.Upstream(http.StatusTooManyRequests, "slow down")}, OutcomeRetryable},
		{"create 4xx", &MintError{Op: OpCreate, Err: dErrors.Upstream(http.StatusUnprocessableEntity, "bad xml")}, OutcomeRejected},
		{"create store outage", &MintError{Op: OpCreate, Err: dErrors.Wrap(sentinel.ErrUnavailable, dErrors.KindTransport, "secrets")}, OutcomeRetryable},
		{"unknown", errors.New("?"), OutcomeRejected},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.err); got != tc.want {
				t.Fatalf("Classify(%v) = %s, want %s", tc.err, got, tc.want)
			}
		})
	}
}

// downStore fails every fetch the way an unreachable Redis does.
type downStore struct{}

func (downStore) Fetch(context.Context) ([]byte, error) {
	return nil, fmt.Errorf("read secret key doi:customers: %w: %w", sentinel.ErrUnavailable, errors.New("dial tcp: connection refused"))
}

func TestSecretStoreOutageIsRetryable(t *testing.T) {
	ctrl := gomock.NewController(t)
	registry := servicemocks.NewMockRegistryTransport(ctrl)
	h := New(service.New(resolver.New(downStore{}), registry))

	for _, rec := range []ChangeRecord{
		{Operation: OpCreate, Tenant: "https://example.net/customer/42", MetadataXML: "<resource/>"},
		{Operation: OpUpdate, Tenant: "https://example.net/customer/42", Doi: "10.5072/abc123", MetadataXML: "<resource/>"},
	} {
		_, err := h.Handle(context.Background(), rec)
		if !errors.Is(err, sentinel.ErrUnavailable) {
			t.Fatalf("%s: expected unavailable, got %v", rec.Operation, err)
		}
		if got := Classify(err); got != OutcomeRetryable {
			t.Fatalf("%s: Classify = %s, want %s", rec.Operation, got, OutcomeRetryable)
		}
	}
}
