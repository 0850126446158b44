// Package registrystub is an in-process DOI registry for tests. It serves the
// MDS and REST endpoint families the transport uses, keeps DOI state in
// memory, and counts calls so tests can assert that a request was never sent.
package registrystub

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type account struct {
	password string
	prefix   string
}

// Server is a stub registry bound to an httptest server.
type Server struct {
	srv *httptest.Server

	mu       sync.Mutex
	accounts map[string]account
	states   map[string]string
	urls     map[string]string
	calls    map[string]int
}

// New starts a stub registry and closes it when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		accounts: make(map[string]account),
		states:   make(map[string]string),
		urls:     make(map[string]string),
		calls:    make(map[string]int),
	}
	s.srv = httptest.NewServer(s.routes())
	t.Cleanup(s.srv.Close)
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.authenticate)
	r.Route("/mds", func(r chi.Router) {
		r.Post("/metadata/*", s.postMetadata)
		r.Delete("/metadata/*", s.deleteMetadata)
		r.Put("/doi/*", s.registerURL)
		r.Delete("/doi/*", s.deleteDoi)
	})
	r.Route("/rest", func(r chi.Router) {
		r.Post("/dois", s.createDraft)
		r.Get("/dois/*", s.getDoi)
	})
	return r
}

func (s *Server) MdsURL() string  { return s.srv.URL + "/mds" }
func (s *Server) RestURL() string { return s.srv.URL + "/rest" }

// AddAccount registers credentials allowed to mint under prefix.
func (s *Server) AddAccount(username, password, prefix string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[username] = account{password: password, prefix: prefix}
}

// Seed puts a DOI into the registry in the given state.
func (s *Server) Seed(doi, state string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[doi] = state
}

// State returns the current state of doi.
func (s *Server) State(doi string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[doi]
	return st, ok
}

// LandingPage returns the URL registered for doi.
func (s *Server) LandingPage(doi string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.urls[doi]
}

// Calls counts requests by method and route family, e.g. Calls("DELETE", "/mds/doi").
func (s *Server) Calls(method, route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method+" "+route]
}

func (s *Server) record(r *http.Request, route string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[r.Method+" "+route]++
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		s.mu.Lock()
		acct, known := s.accounts[user]
		s.mu.Unlock()
		if !ok || !known || acct.password != pass {
			http.Error(w, "Bad credentials", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) owns(r *http.Request, doi string) bool {
	user, _, _ := r.BasicAuth()
	s.mu.Lock()
	defer s.mu.Unlock()
	prefix, _, _ := strings.Cut(doi, "/")
	return s.accounts[user].prefix == prefix
}

func (s *Server) mint(prefix string) string {
	doi := prefix + "/" + strings.ToUpper(uuid.NewString()[:8])
	s.mu.Lock()
	s.states[doi] = "draft"
	s.mu.Unlock()
	return doi
}

func (s *Server) postMetadata(w http.ResponseWriter, r *http.Request) {
	s.record(r, "/mds/metadata")
	target := chi.URLParam(r, "*")
	if !s.owns(r, target) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	if body, _ := io.ReadAll(r.Body); len(body) == 0 {
		http.Error(w, "Missing metadata", http.StatusBadRequest)
		return
	}
	if !strings.Contains(target, "/") {
		doi := s.mint(target)
		w.WriteHeader(http.StatusCreated)
		fmt.Fprintf(w, "OK (%s)", doi)
		return
	}
	s.mu.Lock()
	state, ok := s.states[target]
	if !ok || state == "registered" {
		// Uploading metadata creates the DOI if needed and re-promotes registered DOIs.
		if ok {
			s.states[target] = "findable"
		} else {
			s.states[target] = "draft"
		}
	}
	s.mu.Unlock()
	w.WriteHeader(http.StatusCreated)
	fmt.Fprintf(w, "OK (%s)", target)
}

func (s *Server) deleteMetadata(w http.ResponseWriter, r *http.Request) {
	s.record(r, "/mds/metadata")
	doi := chi.URLParam(r, "*")
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[doi]
	if !ok {
		http.Error(w, "DOI not found", http.StatusNotFound)
		return
	}
	if state == "findable" {
		s.states[doi] = "registered"
	}
	_, _ = io.WriteString(w, "OK")
}

func (s *Server) registerURL(w http.ResponseWriter, r *http.Request) {
	s.record(r, "/mds/doi")
	doi := chi.URLParam(r, "*")
	body, _ := io.ReadAll(r.Body)
	var landing string
	for _, line := range strings.Split(string(body), "\n") {
		if v, ok := strings.CutPrefix(line, "url="); ok {
			landing = strings.TrimSpace(v)
		}
	}
	if landing == "" {
		http.Error(w, "param 'url' required", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.states[doi]; !ok {
		http.Error(w, "DOI not found", http.StatusNotFound)
		return
	}
	s.states[doi] = "findable"
	s.urls[doi] = landing
	w.WriteHeader(http.StatusCreated)
	_, _ = io.WriteString(w, "OK")
}

func (s *Server) deleteDoi(w http.ResponseWriter, r *http.Request) {
	s.record(r, "/mds/doi")
	doi := chi.URLParam(r, "*")
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[doi]
	switch {
	case !ok:
		http.Error(w, "DOI not found", http.StatusNotFound)
	case state != "draft":
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	default:
		delete(s.states, doi)
		delete(s.urls, doi)
		_, _ = io.WriteString(w, "OK")
	}
}

type resource struct {
	Data struct {
		ID         string `json:"id,omitempty"`
		Type       string `json:"type"`
		Attributes struct {
			Prefix string `json:"prefix,omitempty"`
			Doi    string `json:"doi,omitempty"`
			State  string `json:"state,omitempty"`
		} `json:"attributes"`
	} `json:"data"`
}

func (s *Server) createDraft(w http.ResponseWriter, r *http.Request) {
	s.record(r, "/rest/dois")
	var req resource
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Data.Attributes.Prefix == "" {
		http.Error(w, "invalid json:api body", http.StatusUnprocessableEntity)
		return
	}
	if !s.owns(r, req.Data.Attributes.Prefix+"/") {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	doi := s.mint(req.Data.Attributes.Prefix)
	writeResource(w, http.StatusCreated, doi, "draft")
}

func (s *Server) getDoi(w http.ResponseWriter, r *http.Request) {
	s.record(r, "/rest/dois")
	doi := chi.URLParam(r, "*")
	state, ok := s.State(doi)
	if !ok {
		w.Header().Set("Content-Type", "application/vnd.api+json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"errors":[{"status":"404","title":"The resource you are looking for doesn't exist."}]}`)
		return
	}
	writeResource(w, http.StatusOK, doi, state)
}

func writeResource(w http.ResponseWriter, status int, doi, state string) {
	var res resource
	res.Data.ID = strings.ToLower(doi)
	res.Data.Type = "dois"
	res.Data.Attributes.Doi = doi
	res.Data.Attributes.State = state
	w.Header().Set("Content-Type", "application/vnd.api+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(res)
}
