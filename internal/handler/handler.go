// Package handler applies publication change records to the DOI registry.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	customermodels "doiregistrar/internal/customer/models"
	doimodels "doiregistrar/internal/doi/models"
	"doiregistrar/internal/events/models"
	dErrors "doiregistrar/pkg/domain-errors"
	"doiregistrar/pkg/platform/sentinel"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Lifecycle,Directory

// Operation names a change-record action.
type Operation string

const (
	OpCreate         Operation = "create"
	OpDraft          Operation = "draft"
	OpUpdate         Operation = "update"
	OpFindable       Operation = "findable"
	OpDeleteMetadata Operation = "delete_metadata"
	OpDeleteDraft    Operation = "delete_draft"
)

// Source tags events emitted by the handler.
const Source = "doiregistrar.handler"

// ChangeRecord is one publication change to mirror into the registry.
type ChangeRecord struct {
	Operation   Operation `json:"operation"`
	Tenant      string    `json:"tenant"`
	Resource    string    `json:"resource"`
	Doi         string    `json:"doi,omitempty"`
	MetadataXML string    `json:"metadataXml,omitempty"`
	LandingPage string    `json:"landingPage,omitempty"`
}

// DoiUpdated is the payload of the event emitted after a successful change.
type DoiUpdated struct {
	Operation Operation `json:"operation"`
	Tenant    string    `json:"tenant"`
	Resource  string    `json:"resource"`
	Doi       string    `json:"doi"`
	At        time.Time `json:"at"`
}

// Lifecycle is the DOI lifecycle client.
type Lifecycle interface {
	CreateDoi(ctx context.Context, tenant, metadataXML string) (doimodels.Doi, error)
	CreateDraftDoi(ctx context.Context, tenant string) (doimodels.Doi, error)
	UpdateMetadata(ctx context.Context, tenant string, doi doimodels.Doi, metadataXML string) error
	SetLandingPage(ctx context.Context, tenant string, doi doimodels.Doi, landingPage string) error
	DeleteMetadata(ctx context.Context, tenant string, doi doimodels.Doi) error
	DeleteDraftDoi(ctx context.Context, tenant string, doi doimodels.Doi) error
}

// Directory maps a DOI prefix to the tenant that owns it.
type Directory interface {
	ResolveByPrefix(ctx context.Context, prefix string) (*customermodels.CustomerConfig, error)
}

// Handler routes change records to the lifecycle client.
type Handler struct {
	lifecycle Lifecycle
	directory Directory
	logger    *slog.Logger
	now       func() time.Time
}

type Option func(*Handler)

func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithDirectory rejects records naming a DOI under another tenant's prefix.
func WithDirectory(d Directory) Option {
	return func(h *Handler) {
		h.directory = d
	}
}

func New(lifecycle Lifecycle, opts ...Option) *Handler {
	h := &Handler{
		lifecycle: lifecycle,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Decode parses a change record payload.
func Decode(payload []byte) (ChangeRecord, error) {
	var rec ChangeRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		return ChangeRecord{}, dErrors.Wrap(err, dErrors.KindInvalidInput, "decode change record")
	}
	return rec, nil
}

// Handle applies rec and returns the DoiUpdated event to publish.
func (h *Handler) Handle(ctx context.Context, rec ChangeRecord) (*models.BatchEntry, error) {
	if rec.Tenant == "" {
		return nil, dErrors.New(dErrors.KindInvalidInput, "change record has no tenant")
	}

	doi, err := h.apply(ctx, rec)
	if err != nil {
		return nil, err
	}

	entry, err := h.event(rec, doi)
	if err != nil {
		return nil, err
	}
	h.logger.InfoContext(ctx, "change record applied",
		"op", rec.Operation,
		"tenant", rec.Tenant,
		"resource", rec.Resource,
		"doi", doi.String(),
	)
	return entry, nil
}

func (h *Handler) event(rec ChangeRecord, doi doimodels.Doi) (*models.BatchEntry, error) {
	payload, err := json.Marshal(DoiUpdated{
		Operation: rec.Operation,
		Tenant:    rec.Tenant,
		Resource:  rec.Resource,
		Doi:       doi.String(),
		At:        h.now().UTC(),
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.KindInternal, "encode DoiUpdated")
	}
	entry := models.NewBatchEntry(payload, Source, rec.Resource, models.DetailTypeDoiUpdated)
	return &entry, nil
}

func (h *Handler) apply(ctx context.Context, rec ChangeRecord) (doimodels.Doi, error) {
	switch rec.Operation {
	case OpCreate:
		if rec.Doi != "" {
			return doimodels.Doi{}, dErrors.New(dErrors.KindInvalidInput, "create must not name a DOI")
		}
		doi, err := h.lifecycle.CreateDoi(ctx, rec.Tenant, rec.MetadataXML)
		if err != nil {
			return doimodels.Doi{}, &MintError{Op: rec.Operation, Err: err}
		}
		if rec.LandingPage != "" {
			if err := h.lifecycle.SetLandingPage(ctx, rec.Tenant, doi, rec.LandingPage); err != nil {
				return doimodels.Doi{}, h.incomplete(rec, doi, err)
			}
		}
		return doi, nil
	case OpDraft:
		doi, err := h.lifecycle.CreateDraftDoi(ctx, rec.Tenant)
		if err != nil {
			return doimodels.Doi{}, &MintError{Op: rec.Operation, Err: err}
		}
		return doi, nil
	}

	doi, err := doimodels.ParseURI(rec.Doi)
	if err != nil {
		return doimodels.Doi{}, err
	}
	if err := h.checkOwner(ctx, rec.Tenant, doi); err != nil {
		return doimodels.Doi{}, err
	}
	switch rec.Operation {
	case OpUpdate:
		err = h.lifecycle.UpdateMetadata(ctx, rec.Tenant, doi, rec.MetadataXML)
	case OpFindable:
		err = h.lifecycle.SetLandingPage(ctx, rec.Tenant, doi, rec.LandingPage)
	case OpDeleteMetadata:
		err = h.lifecycle.DeleteMetadata(ctx, rec.Tenant, doi)
	case OpDeleteDraft:
		err = h.lifecycle.DeleteDraftDoi(ctx, rec.Tenant, doi)
	default:
		err = dErrors.New(dErrors.KindInvalidInput, fmt.Sprintf("unknown operation %q", rec.Operation))
	}
	return doi, err
}

// checkOwner rejects a DOI whose prefix is registered to another tenant.
// Prefixes no tenant lists are left to the lifecycle client.
func (h *Handler) checkOwner(ctx context.Context, tenant string, doi doimodels.Doi) error {
	if h.directory == nil {
		return nil
	}
	owner, err := h.directory.ResolveByPrefix(ctx, doi.Prefix())
	if err != nil {
		if dErrors.HasKind(err, dErrors.KindConfiguration) && errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		return err
	}
	if owner.CustomerID != tenant {
		return dErrors.New(dErrors.KindConfiguration,
			fmt.Sprintf("doi %s belongs to customer %s, not %s", doi, owner.CustomerID, tenant))
	}
	return nil
}

// incomplete records a create that minted doi but failed to set its landing
// page. The follow-up is a findable record, so replaying it never mints again.
func (h *Handler) incomplete(rec ChangeRecord, doi doimodels.Doi, err error) error {
	created, evErr := h.event(ChangeRecord{Operation: OpCreate, Tenant: rec.Tenant, Resource: rec.Resource}, doi)
	if evErr != nil {
		return evErr
	}
	return &IncompleteError{
		Doi:     doi,
		Created: created,
		Remaining: ChangeRecord{
			Operation:   OpFindable,
			Tenant:      rec.Tenant,
			Resource:    rec.Resource,
			Doi:         doi.String(),
			LandingPage: rec.LandingPage,
		},
		Err: err,
	}
}

// MintError wraps a failed create or draft request.
type MintError struct {
	Op  Operation
	Err error
}

func (e *MintError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *MintError) Unwrap() error { return e.Err }

// MayHaveMinted reports whether the request could have reached the registry
// and minted an identifier we never learned about. Credential store outages,
// configuration faults and 4xx answers happen before anything is minted.
func (e *MintError) MayHaveMinted() bool {
	if errors.Is(e.Err, sentinel.ErrUnavailable) {
		return false
	}
	switch dErrors.KindOf(e.Err) {
	case dErrors.KindTransport:
		return true
	case dErrors.KindUpstream:
		code := dErrors.StatusCode(e.Err)
		if code == http.StatusTooManyRequests {
			return false
		}
		// 2xx here means the registry minted but the answer was unreadable.
		return code >= http.StatusInternalServerError || code < http.StatusMultipleChoices
	}
	return errors.Is(e.Err, context.Canceled) || errors.Is(e.Err, context.DeadlineExceeded)
}

// IncompleteError is a create that minted Doi but failed afterwards.
// Created announces the minted DOI; Remaining finishes the job against it.
type IncompleteError struct {
	Doi       doimodels.Doi
	Created   *models.BatchEntry
	Remaining ChangeRecord
	Err       error
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("minted %s but %s failed: %v", e.Doi, e.Remaining.Operation, e.Err)
}

func (e *IncompleteError) Unwrap() error { return e.Err }

// Outcome is how a failed change record should be treated.
type Outcome string

const (
	// OutcomeRejected records can never succeed as sent; they are logged and dropped.
	OutcomeRejected Outcome = "rejected"
	// OutcomeRetryable records may succeed later; they are dead-lettered for redrive.
	OutcomeRetryable Outcome = "retryable"
	// OutcomeIndeterminate creates may already have minted a DOI. They are
	// reported for reconciliation and never redriven.
	OutcomeIndeterminate Outcome = "indeterminate"
)

// Classify maps a Handle error to an Outcome. Cancellation is retryable
// except for a create that may already have minted.
func Classify(err error) Outcome {
	var mint *MintError
	if errors.As(err, &mint) && mint.MayHaveMinted() {
		return OutcomeIndeterminate
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return OutcomeRetryable
	}
	if dErrors.IsRetryable(err) {
		return OutcomeRetryable
	}
	return OutcomeRejected
}
