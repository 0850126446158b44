package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"doiregistrar/internal/events/models"
	dErrors "doiregistrar/pkg/domain-errors"
	"doiregistrar/pkg/platform/httputil"
)

// New builds an HTTP server with sane defaults for this project.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// DeadLetterAdmin exposes the persisted dead letters.
type DeadLetterAdmin interface {
	List(ctx context.Context, limit int) ([]models.DeadLetter, error)
	Redrive(ctx context.Context, limit int) (int, error)
	Discard(ctx context.Context, id uuid.UUID) error
}

// Ops configures the operational router.
type Ops struct {
	Gatherer    prometheus.Gatherer
	Checks      map[string]HealthCheck
	DeadLetters DeadLetterAdmin
	Logger      *slog.Logger
}

const defaultListLimit = 50

// NewOpsRouter serves /healthz, /metrics and, when a dead-letter admin is
// configured, /admin/dead-letters (list, redrive, discard by id).
func NewOpsRouter(ops Ops) http.Handler {
	if ops.Logger == nil {
		ops.Logger = slog.Default()
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", healthz(ops.Checks))
	if ops.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(ops.Gatherer, promhttp.HandlerOpts{}))
	}
	if ops.DeadLetters != nil {
		d := &deadLetterHandler{admin: ops.DeadLetters, logger: ops.Logger}
		r.Route("/admin/dead-letters", func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))
			r.Get("/", d.list)
			r.Post("/redrive", d.redrive)
			r.Delete("/{id}", d.discard)
		})
	}
	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthz(checks map[string]HealthCheck) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok", Checks: map[string]string{}}
		status := http.StatusOK
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}

type deadLetterHandler struct {
	admin  DeadLetterAdmin
	logger *slog.Logger
}

type deadLetterView struct {
	EntryID    string    `json:"entryId"`
	Source     string    `json:"source"`
	Resource   string    `json:"resource"`
	DetailType string    `json:"detailType"`
	Attempts   int       `json:"attempts"`
	Reason     string    `json:"reason"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (h *deadLetterHandler) list(w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	letters, err := h.admin.List(r.Context(), limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list dead letters failed", "error", err)
		httputil.WriteError(w, err)
		return
	}
	out := make([]deadLetterView, len(letters))
	for i, dl := range letters {
		out[i] = deadLetterView{
			EntryID:    dl.EntryID.String(),
			Source:     dl.Source,
			Resource:   dl.Resource,
			DetailType: dl.DetailType,
			Attempts:   dl.Attempts,
			Reason:     dl.Reason,
			CreatedAt:  dl.CreatedAt,
		}
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *deadLetterHandler) redrive(w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	n, err := h.admin.Redrive(r.Context(), limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "redrive failed", "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int{"redriven": n})
}

func (h *deadLetterHandler) discard(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.KindInvalidInput, "dead letter id must be a uuid"))
		return
	}
	if err := h.admin.Discard(r.Context(), id); err != nil {
		if !dErrors.HasKind(err, dErrors.KindNotFound) {
			h.logger.ErrorContext(r.Context(), "discard dead letter failed", "entry_id", id, "error", err)
		}
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func limitParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultListLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, dErrors.New(dErrors.KindInvalidInput, "limit must be a positive integer")
	}
	return n, nil
}
