package transport

import (
	"context"
	"fmt"
	"net/http"

	"doiregistrar/internal/customer/models"
	doimodels "doiregistrar/internal/doi/models"
)

const (
	contentTypeXML  = "application/xml;charset=UTF-8"
	contentTypeText = "text/plain;charset=UTF-8"
)

// PostMetadata uploads an XML metadata document. Posting to a bare prefix
// mints a new DOI (201, body "OK (prefix/suffix)"); posting to an existing
// DOI replaces its metadata.
func (t *Transport) PostMetadata(ctx context.Context, cfg *models.CustomerConfig, prefixOrDoi, metadataXML string) (Response, error) {
	return t.do(ctx, cfg, "mds.post_metadata", request{
		method:      http.MethodPost,
		base:        t.mds,
		path:        []string{"metadata", prefixOrDoi},
		body:        metadataXML,
		contentType: contentTypeXML,
	})
}

// RegisterURL sets the landing page of a DOI.
func (t *Transport) RegisterURL(ctx context.Context, cfg *models.CustomerConfig, doi doimodels.Doi, landingPage string) (Response, error) {
	return t.do(ctx, cfg, "mds.register_url", request{
		method:      http.MethodPut,
		base:        t.mds,
		path:        []string{"doi", doi.String()},
		body:        fmt.Sprintf("doi=%s\nurl=%s", doi.String(), landingPage),
		contentType: contentTypeText,
	})
}

// DeleteMetadata hides a DOI's metadata. The registry moves findable DOIs to registered.
func (t *Transport) DeleteMetadata(ctx context.Context, cfg *models.CustomerConfig, doi doimodels.Doi) (Response, error) {
	return t.do(ctx, cfg, "mds.delete_metadata", request{
		method: http.MethodDelete,
		base:   t.mds,
		path:   []string{"metadata", doi.String()},
	})
}

// DeleteDraft hard-deletes a DOI. The registry only honours this for drafts,
// but it is not guaranteed to refuse otherwise; callers check state first.
func (t *Transport) DeleteDraft(ctx context.Context, cfg *models.CustomerConfig, doi doimodels.Doi) (Response, error) {
	return t.do(ctx, cfg, "mds.delete_draft", request{
		method: http.MethodDelete,
		base:   t.mds,
		path:   []string{"doi", doi.String()},
	})
}
