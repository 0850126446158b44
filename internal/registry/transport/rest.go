package transport

import (
	"context"
	"encoding/json"
	"net/http"

	"doiregistrar/internal/customer/models"
	doimodels "doiregistrar/internal/doi/models"
	dErrors "doiregistrar/pkg/domain-errors"
)

const contentTypeJSONAPI = "application/vnd.api+json"

// DoiAttributes is the subset of the JSON:API "dois" resource this service reads and writes.
type DoiAttributes struct {
	Prefix string `json:"prefix,omitempty"`
	Doi    string `json:"doi,omitempty"`
	Suffix string `json:"suffix,omitempty"`
	State  string `json:"state,omitempty"`
}

// DoiResource is a JSON:API document wrapping one "dois" resource.
type DoiResource struct {
	Data struct {
		ID         string        `json:"id,omitempty"`
		Type       string        `json:"type"`
		Attributes DoiAttributes `json:"attributes"`
	} `json:"data"`
}

// NewDraftRequest builds the body that asks the registry to mint a draft under prefix.
func NewDraftRequest(prefix string) DoiResource {
	var r DoiResource
	r.Data.Type = "dois"
	r.Data.Attributes.Prefix = prefix
	return r
}

// CreateDraft mints a draft DOI without metadata.
func (t *Transport) CreateDraft(ctx context.Context, cfg *models.CustomerConfig, prefix string) (Response, error) {
	body, err := json.Marshal(NewDraftRequest(prefix))
	if err != nil {
		return Response{}, dErrors.Wrap(err, dErrors.KindInternal, "rest.create_draft: encode body")
	}
	return t.do(ctx, cfg, "rest.create_draft", request{
		method:      http.MethodPost,
		base:        t.rest,
		path:        []string{"dois"},
		body:        string(body),
		contentType: contentTypeJSONAPI,
		accept:      contentTypeJSONAPI,
	})
}

// GetDoi fetches the DOI resource, including its current state.
func (t *Transport) GetDoi(ctx context.Context, cfg *models.CustomerConfig, doi doimodels.Doi) (Response, error) {
	return t.do(ctx, cfg, "rest.get_doi", request{
		method: http.MethodGet,
		base:   t.rest,
		path:   []string{"dois", doi.String()},
		accept: contentTypeJSONAPI,
	})
}

// DecodeDoiResource parses a REST response body.
func DecodeDoiResource(body string) (DoiResource, error) {
	var r DoiResource
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		return DoiResource{}, err
	}
	return r, nil
}
