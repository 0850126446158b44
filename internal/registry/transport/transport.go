// Package transport speaks HTTP to the upstream DOI registry.
//
// Two endpoint families are covered: the legacy metadata store (MDS, XML
// bodies) and the JSON:API REST endpoint. Every request authenticates with the
// credentials of the customer config passed in; nothing is cached between
// calls. The transport reports status and body only. It never retries and
// never interprets response content.
package transport

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"doiregistrar/internal/customer/models"
	dErrors "doiregistrar/pkg/domain-errors"
)

const (
	DefaultConnectTimeout = 3 * time.Second
	DefaultRequestTimeout = 15 * time.Second

	maxBodyBytes = 1 << 20
	userAgent    = "doiregistrar/1.0"
)

// Response is the raw upstream answer.
type Response struct {
	StatusCode int
	Body       string
}

// Success reports a 2xx status.
func (r Response) Success() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Config locates the registry endpoints.
type Config struct {
	MdsURL         string
	RestURL        string
	ConnectTimeout time.Duration
	RequestTimeout time.Duration
}

// Transport is the authenticated HTTP client for the registry.
type Transport struct {
	mds    *url.URL
	rest   *url.URL
	client *http.Client
	logger *slog.Logger
}

type Option func(*Transport)

func WithLogger(logger *slog.Logger) Option {
	return func(t *Transport) {
		t.logger = logger
	}
}

// WithHTTPClient replaces the default client. Timeouts on the supplied client are kept as-is.
func WithHTTPClient(c *http.Client) Option {
	return func(t *Transport) {
		t.client = c
	}
}

// New validates the endpoint URLs and builds a Transport.
func New(cfg Config, opts ...Option) (*Transport, error) {
	mds, err := parseBase(cfg.MdsURL)
	if err != nil {
		return nil, fmt.Errorf("mds url: %w", err)
	}
	rest, err := parseBase(cfg.RestURL)
	if err != nil {
		return nil, fmt.Errorf("rest url: %w", err)
	}
	t := &Transport{
		mds:    mds,
		rest:   rest,
		client: newHTTPClient(cfg.ConnectTimeout, cfg.RequestTimeout),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

func parseBase(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("missing host in %q", raw)
	}
	return u, nil
}

func newHTTPClient(connectTimeout, requestTimeout time.Duration) *http.Client {
	if connectTimeout <= 0 {
		connectTimeout = DefaultConnectTimeout
	}
	if requestTimeout <= 0 {
		requestTimeout = DefaultRequestTimeout
	}
	dialer := &net.Dialer{Timeout: connectTimeout, KeepAlive: 30 * time.Second}
	return &http.Client{
		Timeout: requestTimeout,
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           dialer.DialContext,
			TLSHandshakeTimeout:   connectTimeout,
			ResponseHeaderTimeout: requestTimeout,
			MaxIdleConnsPerHost:   8,
			IdleConnTimeout:       90 * time.Second,
		},
	}
}

type request struct {
	method      string
	base        *url.URL
	path        []string
	body        string
	contentType string
	accept      string
}

func (t *Transport) do(ctx context.Context, cfg *models.CustomerConfig, op string, r request) (Response, error) {
	if cfg == nil || !cfg.IsFullyConfigured() {
		return Response{}, dErrors.New(dErrors.KindConfiguration, op+": customer is not fully configured")
	}

	target := r.base.JoinPath(r.path...)
	var body io.Reader
	if r.body != "" {
		body = strings.NewReader(r.body)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, target.String(), body)
	if err != nil {
		return Response{}, dErrors.Wrap(err, dErrors.KindInternal, op+": build request")
	}
	req.SetBasicAuth(cfg.Username, cfg.Password)
	req.Header.Set("User-Agent", userAgent)
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if r.accept != "" {
		req.Header.Set("Accept", r.accept)
	}

	start := time.Now()
	resp, err := t.client.Do(req)
	if err != nil {
		t.logger.WarnContext(ctx, "registry request failed",
			"op", op,
			"method", r.method,
			"url", target.Redacted(),
			"tenant", cfg.CustomerID,
			"error", err,
		)
		return Response{}, dErrors.Wrap(err, dErrors.KindTransport, op)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Response{}, dErrors.Wrap(err, dErrors.KindTransport, op+": read body")
	}

	t.logger.DebugContext(ctx, "registry request",
		"op", op,
		"method", r.method,
		"url", target.Redacted(),
		"tenant", cfg.CustomerID,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)
	return Response{StatusCode: resp.StatusCode, Body: string(raw)}, nil
}
