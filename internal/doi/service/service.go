// Package service is the DOI lifecycle client consumed by handlers.
//
// It composes the credential resolver and the registry transport, and it owns
// the state machine: operations that are only legal for drafts fetch the
// current state from the registry immediately before acting. The check and
// the mutation are two separate round-trips. The registry offers no
// transaction, so a concurrent registration can still slip in between; the
// registry remains the source of truth and the resulting call fails safely.
package service

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"doiregistrar/internal/customer/models"
	"doiregistrar/internal/doi/metrics"
	doimodels "doiregistrar/internal/doi/models"
	"doiregistrar/internal/registry/transport"
	dErrors "doiregistrar/pkg/domain-errors"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks CredentialResolver,RegistryTransport

// CredentialResolver maps a tenant to its registry credentials.
type CredentialResolver interface {
	Resolve(ctx context.Context, customerID string) (*models.CustomerConfig, error)
}

// RegistryTransport performs raw registry calls.
type RegistryTransport interface {
	PostMetadata(ctx context.Context, cfg *models.CustomerConfig, prefixOrDoi, metadataXML string) (transport.Response, error)
	RegisterURL(ctx context.Context, cfg *models.CustomerConfig, doi doimodels.Doi, landingPage string) (transport.Response, error)
	DeleteMetadata(ctx context.Context, cfg *models.CustomerConfig, doi doimodels.Doi) (transport.Response, error)
	DeleteDraft(ctx context.Context, cfg *models.CustomerConfig, doi doimodels.Doi) (transport.Response, error)
	CreateDraft(ctx context.Context, cfg *models.CustomerConfig, prefix string) (transport.Response, error)
	GetDoi(ctx context.Context, cfg *models.CustomerConfig, doi doimodels.Doi) (transport.Response, error)
}

// Service is the DOI lifecycle client.
type Service struct {
	resolver    CredentialResolver
	registry    RegistryTransport
	logger      *slog.Logger
	metrics     *metrics.Metrics
	tracer      trace.Tracer
	prefixGuard bool
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

// WithPrefixGuard refuses to touch an existing DOI whose prefix is not the
// acting tenant's prefix.
func WithPrefixGuard() Option {
	return func(s *Service) {
		s.prefixGuard = true
	}
}

// New constructs a Service.
func New(resolver CredentialResolver, registry RegistryTransport, opts ...Option) *Service {
	s := &Service{
		resolver: resolver,
		registry: registry,
		logger:   slog.Default(),
		tracer:   otel.Tracer("doiregistrar/internal/doi/service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// run wraps one operation with a span, metrics, logging and operation context.
func (s *Service) run(ctx context.Context, op, tenant string, doi doimodels.Doi, fn func(ctx context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, "doi."+op, trace.WithAttributes(
		attribute.String("doi.tenant", tenant),
		attribute.String("doi.id", doi.String()),
	))
	defer span.End()

	start := time.Now()
	err := fn(ctx)

	outcome := "ok"
	if err != nil {
		outcome = string(dErrors.KindOf(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		s.logger.WarnContext(ctx, "doi operation failed",
			"op", op,
			"tenant", tenant,
			"doi", doi.String(),
			"kind", outcome,
			"status", dErrors.StatusCode(err),
			"error", err,
		)
	}
	if s.metrics != nil {
		s.metrics.Observe(op, start, outcome)
		if dErrors.HasKind(err, dErrors.KindNotDraft) {
			s.metrics.IncNotDraftRejected()
		}
	}
	return dErrors.WithOperation(err, op, tenant, doi.String())
}

func (s *Service) resolve(ctx context.Context, tenant string, doi doimodels.Doi) (*models.CustomerConfig, error) {
	cfg, err := s.resolver.Resolve(ctx, tenant)
	if err != nil {
		return nil, err
	}
	if s.prefixGuard && !doi.IsZero() && !doi.HasPrefix(cfg.Prefix) {
		return nil, dErrors.New(dErrors.KindConfiguration,
			"doi prefix "+doi.Prefix()+" does not belong to tenant prefix "+cfg.Prefix)
	}
	return cfg, nil
}
