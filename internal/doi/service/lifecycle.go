package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"

	"doiregistrar/internal/customer/models"
	doimodels "doiregistrar/internal/doi/models"
	"doiregistrar/internal/registry/transport"
	dErrors "doiregistrar/pkg/domain-errors"
	"doiregistrar/pkg/platform/sentinel"
)

const (
	OpCreateDoi      = "CreateDoi"
	OpCreateDraftDoi = "CreateDraftDoi"
	OpUpdateMetadata = "UpdateMetadata"
	OpSetLandingPage = "SetLandingPage"
	OpDeleteMetadata = "DeleteMetadata"
	OpDeleteDraftDoi = "DeleteDraftDoi"
	OpGetDoi         = "GetDoi"
)

// createdDoiPattern finds the minted identifier in an MDS create response, "OK (10.5072/abc123)".
var createdDoiPattern = regexp.MustCompile(`\(([^()\s]+/[^()\s]+)\)`)

// CreateDoi mints a DOI under the tenant's prefix by posting its first
// metadata document. The registry answers 201 with the new identifier.
func (s *Service) CreateDoi(ctx context.Context, tenant, metadataXML string) (doimodels.Doi, error) {
	var created doimodels.Doi
	err := s.run(ctx, OpCreateDoi, tenant, doimodels.Doi{}, func(ctx context.Context) error {
		cfg, err := s.resolve(ctx, tenant, doimodels.Doi{})
		if err != nil {
			return err
		}
		resp, err := s.registry.PostMetadata(ctx, cfg, cfg.Prefix, metadataXML)
		if err != nil {
			return err
		}
		if resp.StatusCode != http.StatusCreated {
			return dErrors.Upstream(resp.StatusCode, resp.Body)
		}
		created, err = parseCreatedDoi(resp, cfg)
		return err
	})
	return created, err
}

func parseCreatedDoi(resp transport.Response, cfg *models.CustomerConfig) (doimodels.Doi, error) {
	m := createdDoiPattern.FindStringSubmatch(resp.Body)
	if m == nil {
		return doimodels.Doi{}, &dErrors.Error{
			Kind:       dErrors.KindUpstream,
			StatusCode: resp.StatusCode,
			Message:    "no doi in create response: " + resp.Body,
			Err:        sentinel.ErrMalformed,
		}
	}
	d, err := doimodels.Parse(m[1])
	if err != nil {
		return doimodels.Doi{}, &dErrors.Error{Kind: dErrors.KindUpstream, StatusCode: resp.StatusCode, Message: "unparseable doi in create response", Err: err}
	}
	if !d.HasPrefix(cfg.Prefix) {
		return doimodels.Doi{}, &dErrors.Error{
			Kind:       dErrors.KindUpstream,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("registry minted %s outside tenant prefix %s", d, cfg.Prefix),
		}
	}
	return d, nil
}

// CreateDraftDoi reserves a draft DOI without metadata through the REST API.
func (s *Service) CreateDraftDoi(ctx context.Context, tenant string) (doimodels.Doi, error) {
	var created doimodels.Doi
	err := s.run(ctx, OpCreateDraftDoi, tenant, doimodels.Doi{}, func(ctx context.Context) error {
		cfg, err := s.resolve(ctx, tenant, doimodels.Doi{})
		if err != nil {
			return err
		}
		resp, err := s.registry.CreateDraft(ctx, cfg, cfg.Prefix)
		if err != nil {
			return err
		}
		if resp.StatusCode != http.StatusCreated {
			return dErrors.Upstream(resp.StatusCode, resp.Body)
		}
		res, err := transport.DecodeDoiResource(resp.Body)
		if err != nil {
			return &dErrors.Error{Kind: dErrors.KindUpstream, StatusCode: resp.StatusCode, Message: "malformed draft response", Err: err}
		}
		raw := res.Data.Attributes.Doi
		if raw == "" {
			raw = res.Data.ID
		}
		created, err = doimodels.Parse(raw)
		if err != nil {
			return &dErrors.Error{Kind: dErrors.KindUpstream, StatusCode: resp.StatusCode, Message: "unparseable doi in draft response", Err: err}
		}
		return nil
	})
	return created, err
}

// UpdateMetadata replaces the metadata of an existing DOI. For a registered
// DOI the registry treats this as re-promotion to findable.
func (s *Service) UpdateMetadata(ctx context.Context, tenant string, doi doimodels.Doi, metadataXML string) error {
	return s.run(ctx, OpUpdateMetadata, tenant, doi, func(ctx context.Context) error {
		cfg, err := s.resolve(ctx, tenant, doi)
		if err != nil {
			return err
		}
		resp, err := s.registry.PostMetadata(ctx, cfg, doi.String(), metadataXML)
		return checkSuccess(resp, err)
	})
}

// SetLandingPage registers the landing page URL of a draft, making it
// findable. Findable is permanent: the DOI can no longer be deleted.
func (s *Service) SetLandingPage(ctx context.Context, tenant string, doi doimodels.Doi, landingPage string) error {
	return s.run(ctx, OpSetLandingPage, tenant, doi, func(ctx context.Context) error {
		if err := validateLandingPage(landingPage); err != nil {
			return err
		}
		cfg, err := s.resolve(ctx, tenant, doi)
		if err != nil {
			return err
		}
		if err := s.requireState(ctx, cfg, doi, doimodels.TransitionSetLandingPage); err != nil {
			return err
		}
		resp, err := s.registry.RegisterURL(ctx, cfg, doi, landingPage)
		return checkSuccess(resp, err)
	})
}

// DeleteMetadata withdraws a findable DOI to registered. The identifier keeps resolving.
func (s *Service) DeleteMetadata(ctx context.Context, tenant string, doi doimodels.Doi) error {
	return s.run(ctx, OpDeleteMetadata, tenant, doi, func(ctx context.Context) error {
		cfg, err := s.resolve(ctx, tenant, doi)
		if err != nil {
			return err
		}
		resp, err := s.registry.DeleteMetadata(ctx, cfg, doi)
		return checkSuccess(resp, err)
	})
}

// DeleteDraftDoi hard-deletes a draft. The state is re-read immediately
// before deleting; anything but draft fails with KindNotDraft and no delete
// is sent.
func (s *Service) DeleteDraftDoi(ctx context.Context, tenant string, doi doimodels.Doi) error {
	return s.run(ctx, OpDeleteDraftDoi, tenant, doi, func(ctx context.Context) error {
		cfg, err := s.resolve(ctx, tenant, doi)
		if err != nil {
			return err
		}
		if err := s.requireState(ctx, cfg, doi, doimodels.TransitionDeleteDraft); err != nil {
			return err
		}
		resp, err := s.registry.DeleteDraft(ctx, cfg, doi)
		return checkSuccess(resp, err)
	})
}

// GetDoi reads the current registry state of a DOI. A missing DOI is an
// upstream 404 wrapping sentinel.ErrNotFound.
func (s *Service) GetDoi(ctx context.Context, tenant string, doi doimodels.Doi) (doimodels.DoiState, error) {
	var state doimodels.DoiState
	err := s.run(ctx, OpGetDoi, tenant, doi, func(ctx context.Context) error {
		cfg, err := s.resolve(ctx, tenant, doi)
		if err != nil {
			return err
		}
		state, err = s.fetchState(ctx, cfg, doi)
		return err
	})
	return state, err
}

// requireState fetches the current state and checks that t is legal from it.
func (s *Service) requireState(ctx context.Context, cfg *models.CustomerConfig, doi doimodels.Doi, t doimodels.Transition) error {
	state, err := s.fetchState(ctx, cfg, doi)
	if err != nil {
		return err
	}
	if _, ok := state.Apply(t); !ok {
		return &dErrors.Error{
			Kind:    dErrors.KindNotDraft,
			Message: fmt.Sprintf("doi %s is %s; %s requires draft", doi, state, t),
			Err:     sentinel.ErrInvalidState,
		}
	}
	return nil
}

func (s *Service) fetchState(ctx context.Context, cfg *models.CustomerConfig, doi doimodels.Doi) (doimodels.DoiState, error) {
	resp, err := s.registry.GetDoi(ctx, cfg, doi)
	if err != nil {
		return "", err
	}
	if resp.StatusCode == http.StatusNotFound {
		return "", &dErrors.Error{Kind: dErrors.KindUpstream, StatusCode: resp.StatusCode, Message: "doi not found", Err: sentinel.ErrNotFound}
	}
	if !resp.Success() {
		return "", dErrors.Upstream(resp.StatusCode, resp.Body)
	}
	res, err := transport.DecodeDoiResource(resp.Body)
	if err != nil {
		return "", &dErrors.Error{Kind: dErrors.KindUpstream, StatusCode: resp.StatusCode, Message: "malformed doi resource", Err: fmt.Errorf("%w: %w", sentinel.ErrMalformed, err)}
	}
	state, err := doimodels.ParseDoiState(res.Data.Attributes.State)
	if err != nil {
		return "", &dErrors.Error{Kind: dErrors.KindUpstream, StatusCode: resp.StatusCode, Message: "unexpected doi state", Err: err}
	}
	return state, nil
}

func checkSuccess(resp transport.Response, err error) error {
	if err != nil {
		return err
	}
	if !resp.Success() {
		return dErrors.Upstream(resp.StatusCode, resp.Body)
	}
	return nil
}

func validateLandingPage(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return dErrors.New(dErrors.KindInvalidInput, fmt.Sprintf("landing page %q is not an absolute http(s) url", raw))
	}
	return nil
}
