package httpserver

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doiregistrar/internal/events/models"
	dErrors "doiregistrar/pkg/domain-errors"
	"doiregistrar/pkg/testutil"
)

type fakeAdmin struct {
	letters      []models.DeadLetter
	redriveLimit int
	discarded    []uuid.UUID
}

func (f *fakeAdmin) Discard(_ context.Context, id uuid.UUID) error {
	for i, dl := range f.letters {
		if dl.EntryID == id {
			f.letters = append(f.letters[:i], f.letters[i+1:]...)
			f.discarded = append(f.discarded, id)
			return nil
		}
	}
	return dErrors.New(dErrors.KindNotFound, "no dead letter "+id.String())
}

func (f *fakeAdmin) List(_ context.Context, limit int) ([]models.DeadLetter, error) {
	if limit < len(f.letters) {
		return f.letters[:limit], nil
	}
	return f.letters, nil
}

func (f *fakeAdmin) Redrive(_ context.Context, limit int) (int, error) {
	f.redriveLimit = limit
	return min(limit, len(f.letters)), nil
}

func TestHealthz(t *testing.T) {
	h := NewOpsRouter(Ops{Checks: map[string]HealthCheck{
		"redis": func(context.Context) error { return nil },
	}})
	rr := testutil.Do(t, h, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rr.Code)

	body := testutil.DecodeJSON[healthResponse](t, rr)
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "ok", body.Checks["redis"])
}

func TestHealthz_Degraded(t *testing.T) {
	h := NewOpsRouter(Ops{Checks: map[string]HealthCheck{
		"redis":    func(context.Context) error { return nil },
		"postgres": func(context.Context) error { return errors.New("connection refused") },
	}})
	rr := testutil.Do(t, h, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), "connection refused")
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "doiregistrar_test_total", Help: "test"})
	reg.MustRegister(c)
	c.Inc()

	rr := testutil.Do(t, NewOpsRouter(Ops{Gatherer: reg}), http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "doiregistrar_test_total 1")
}

func TestDeadLetters(t *testing.T) {
	admin := &fakeAdmin{letters: []models.DeadLetter{
		{EntryID: uuid.New(), Resource: "publication/1", Attempts: 3, Reason: "Throttled", CreatedAt: time.Now()},
		{EntryID: uuid.New(), Resource: "publication/2", Attempts: 3, Reason: "Throttled", CreatedAt: time.Now()},
	}}
	h := NewOpsRouter(Ops{DeadLetters: admin})

	rr := testutil.Do(t, h, http.MethodGet, "/admin/dead-letters?limit=1")
	require.Equal(t, http.StatusOK, rr.Code)
	views := testutil.DecodeJSON[[]deadLetterView](t, rr)
	require.Len(t, views, 1)
	assert.Equal(t, "publication/1", views[0].Resource)

	rr = testutil.Do(t, h, http.MethodPost, "/admin/dead-letters/redrive?limit=10")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"redriven":2}`, rr.Body.String())
	assert.Equal(t, 10, admin.redriveLimit)

	rr = testutil.Do(t, h, http.MethodGet, "/admin/dead-letters?limit=zero")
	testutil.AssertErrorKind(t, rr, http.StatusBadRequest, "invalid_input")
}

func TestDiscardDeadLetter(t *testing.T) {
	keep, drop := uuid.New(), uuid.New()
	admin := &fakeAdmin{letters: []models.DeadLetter{{EntryID: keep}, {EntryID: drop}}}
	h := NewOpsRouter(Ops{DeadLetters: admin})

	rr := testutil.Do(t, h, http.MethodDelete, "/admin/dead-letters/"+drop.String())
	require.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, []uuid.UUID{drop}, admin.discarded)
	require.Len(t, admin.letters, 1)
	assert.Equal(t, keep, admin.letters[0].EntryID)

	rr = testutil.Do(t, h, http.MethodDelete, "/admin/dead-letters/"+drop.String())
	testutil.AssertErrorKind(t, rr, http.StatusNotFound, "not_found")

	rr = testutil.Do(t, h, http.MethodDelete, "/admin/dead-letters/not-a-uuid")
	testutil.AssertErrorKind(t, rr, http.StatusBadRequest, "invalid_input")
}

func TestDeadLettersNotMountedWithoutAdmin(t *testing.T) {
	rr := testutil.Do(t, NewOpsRouter(Ops{}), http.MethodGet, "/admin/dead-letters")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
