// Package resolver maps tenant identifiers to registry credentials.
//
// The credential document is loaded lazily, exactly once per Resolver, on the
// first successful fetch. Concurrent first calls share one fetch. A document
// that fails to decode poisons the Resolver: every later call returns the same
// configuration error without touching the store again. Store outages are not
// memoised and surface as transport errors so callers retry them.
package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"

	"doiregistrar/internal/customer/models"
	dErrors "doiregistrar/pkg/domain-errors"
	"doiregistrar/pkg/platform/sentinel"
)

// SecretStore returns the raw customer credential document.
type SecretStore interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// Resolver caches customer configs keyed by customer id.
type Resolver struct {
	store  SecretStore
	logger *slog.Logger

	group singleflight.Group

	mu       sync.RWMutex
	loaded   bool
	loadErr  error
	byID     map[string]models.CustomerConfig
	byPrefix map[string]models.CustomerConfig
}

type Option func(*Resolver)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// New constructs a Resolver. Nothing is fetched until the first Resolve.
func New(store SecretStore, opts ...Option) *Resolver {
	r := &Resolver{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the fully configured credentials for customerID.
// Unknown or unconfigured tenants fail with KindConfiguration wrapping
// sentinel.ErrNotFound.
func (r *Resolver) Resolve(ctx context.Context, customerID string) (*models.CustomerConfig, error) {
	if err := r.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	cfg, ok := r.byID[customerID]
	r.mu.RUnlock()
	if !ok {
		return nil, dErrors.Wrap(sentinel.ErrNotFound, dErrors.KindConfiguration,
			fmt.Sprintf("no registry configuration for customer %s", customerID))
	}
	return &cfg, nil
}

// ResolveByPrefix returns the tenant that owns a DOI prefix.
func (r *Resolver) ResolveByPrefix(ctx context.Context, prefix string) (*models.CustomerConfig, error) {
	if err := r.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	cfg, ok := r.byPrefix[prefix]
	r.mu.RUnlock()
	if !ok {
		return nil, dErrors.Wrap(sentinel.ErrNotFound, dErrors.KindConfiguration,
			fmt.Sprintf("no customer owns prefix %s", prefix))
	}
	return &cfg, nil
}

// Customers lists the ids of every fully configured tenant, sorted.
func (r *Resolver) Customers(ctx context.Context) ([]string, error) {
	if err := r.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *Resolver) ensureLoaded(ctx context.Context) error {
	r.mu.RLock()
	loaded, loadErr := r.loaded, r.loadErr
	r.mu.RUnlock()
	if loaded {
		return loadErr
	}

	_, err, _ := r.group.Do("load", func() (any, error) {
		// A caller that lost the race to a finished load must not fetch again.
		r.mu.RLock()
		loaded, loadErr := r.loaded, r.loadErr
		r.mu.RUnlock()
		if loaded {
			return nil, loadErr
		}
		return nil, r.load(ctx)
	})
	return err
}

func (r *Resolver) load(ctx context.Context) error {
	payload, err := r.store.Fetch(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "customer secret fetch failed", "error", err)
		return fetchError(err)
	}

	byID, byPrefix, skipped, parseErr := decode(payload)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaded = true
	if parseErr != nil {
		r.loadErr = dErrors.Wrap(parseErr, dErrors.KindConfiguration, "decode customer secrets")
		r.logger.ErrorContext(ctx, "customer secrets are malformed; resolver disabled", "error", parseErr)
		return r.loadErr
	}
	r.byID = byID
	r.byPrefix = byPrefix
	for _, id := range skipped {
		r.logger.WarnContext(ctx, "customer is not fully configured; ignoring", "tenant", id)
	}
	r.logger.InfoContext(ctx, "customer secrets loaded", "customers", len(byID))
	return nil
}

// fetchError classifies a store failure. A missing document is a deployment
// mistake; anything else is an outage the caller may retry.
func fetchError(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.KindConfiguration, "fetch customer secrets")
	}
	return dErrors.Wrap(err, dErrors.KindTransport, "fetch customer secrets")
}

func decode(payload []byte) (byID, byPrefix map[string]models.CustomerConfig, skipped []string, err error) {
	var records []models.CustomerConfig
	if err := json.Unmarshal(payload, &records); err != nil {
		return nil, nil, nil, fmt.Errorf("%w: %w", sentinel.ErrMalformed, err)
	}
	byID = make(map[string]models.CustomerConfig, len(records))
	byPrefix = make(map[string]models.CustomerConfig, len(records))
	for _, rec := range records {
		if !rec.IsFullyConfigured() {
			skipped = append(skipped, rec.CustomerID)
			continue
		}
		byID[rec.CustomerID] = rec
		byPrefix[rec.Prefix] = rec
	}
	return byID, byPrefix, skipped, nil
}
